// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package analysis

import (
	"fmt"
	"strings"
)

// Signature is a C function prototype.
type Signature struct {
	ReturnType        string
	Name              string
	CallingConvention string
	Params            []Param
	VarArgs           bool
}

// Param is one declared parameter. Type is normalized so pointer
// types read "char *" and "u8 **".
type Param struct {
	Type string
	Name string
}

// String renders the signature as a C prototype without the trailing
// semicolon: "int __stdcall foo(char *name, ...)".
func (s Signature) String() string {
	var builder strings.Builder
	writeDeclaration(&builder, s.ReturnType, "")
	if !strings.HasSuffix(s.ReturnType, "*") {
		builder.WriteByte(' ')
	}
	if s.CallingConvention != "" {
		builder.WriteString(s.CallingConvention)
		builder.WriteByte(' ')
	}
	builder.WriteString(s.Name)
	builder.WriteByte('(')
	if len(s.Params) == 0 && !s.VarArgs {
		builder.WriteString("void")
	}
	for i, param := range s.Params {
		if i > 0 {
			builder.WriteString(", ")
		}
		writeDeclaration(&builder, param.Type, param.Name)
	}
	if s.VarArgs {
		if len(s.Params) > 0 {
			builder.WriteString(", ")
		}
		builder.WriteString("...")
	}
	builder.WriteByte(')')
	return builder.String()
}

func writeDeclaration(builder *strings.Builder, typeName, name string) {
	builder.WriteString(typeName)
	if name == "" {
		return
	}
	if !strings.HasSuffix(typeName, "*") {
		builder.WriteByte(' ')
	}
	builder.WriteString(name)
}

// TypeResolver reports whether a non-builtin base type name is known
// to the engine.
type TypeResolver func(name string) bool

// ParseSignature parses a C prototype such as
// "int __cdecl foo(char *name, u32 flags)". Base types must be
// builtin or accepted by resolve. A calling convention omitted from
// text is inherited from prototype. Unnamed parameters are named
// param_1, param_2 and so on.
func ParseSignature(text string, prototype Signature, resolve TypeResolver) (Signature, error) {
	tokens, err := tokenize(text)
	if err != nil {
		return Signature{}, err
	}
	if len(tokens) > 0 && tokens[len(tokens)-1].kind == tokenSemicolon {
		tokens = tokens[:len(tokens)-1]
	}

	open := -1
	for i, tok := range tokens {
		if tok.kind == tokenOpen {
			open = i
			break
		}
	}
	if open < 0 || tokens[len(tokens)-1].kind != tokenClose {
		return Signature{}, fmt.Errorf("syntax error in %q: expected a parenthesized parameter list", text)
	}

	head := tokens[:open]
	if len(head) == 0 || head[len(head)-1].kind != tokenIdent || typeKeywords[head[len(head)-1].text] {
		return Signature{}, fmt.Errorf("syntax error in %q: missing function name", text)
	}
	signature := Signature{Name: head[len(head)-1].text}
	head = head[:len(head)-1]

	if len(head) > 0 && head[len(head)-1].kind == tokenIdent && strings.HasPrefix(head[len(head)-1].text, "__") {
		signature.CallingConvention = head[len(head)-1].text
		head = head[:len(head)-1]
	}
	if signature.CallingConvention == "" {
		signature.CallingConvention = prototype.CallingConvention
	}

	signature.ReturnType, err = parseType(head, resolve)
	if err != nil {
		return Signature{}, fmt.Errorf("return type: %w", err)
	}

	groups, err := splitParams(tokens[open+1 : len(tokens)-1])
	if err != nil {
		return Signature{}, fmt.Errorf("syntax error in %q: %w", text, err)
	}
	if len(groups) == 1 && len(groups[0]) == 0 {
		return signature, nil
	}
	if len(groups) == 1 && len(groups[0]) == 1 && groups[0][0].text == "void" {
		return signature, nil
	}

	for i, group := range groups {
		if len(group) == 1 && group[0].kind == tokenEllipsis {
			if i != len(groups)-1 {
				return Signature{}, fmt.Errorf("syntax error in %q: '...' must be the last parameter", text)
			}
			signature.VarArgs = true
			continue
		}
		param, err := parseParam(group, resolve)
		if err != nil {
			return Signature{}, fmt.Errorf("parameter %d: %w", i+1, err)
		}
		if param.Type == "void" {
			return Signature{}, fmt.Errorf("parameter %d: void must be the only parameter", i+1)
		}
		if param.Name == "" {
			param.Name = fmt.Sprintf("param_%d", i+1)
		}
		signature.Params = append(signature.Params, param)
	}
	return signature, nil
}

func splitParams(tokens []token) ([][]token, error) {
	groups := [][]token{nil}
	for _, tok := range tokens {
		switch tok.kind {
		case tokenOpen, tokenClose:
			return nil, fmt.Errorf("function pointer parameters are not supported")
		case tokenSemicolon:
			return nil, fmt.Errorf("unexpected ';'")
		case tokenComma:
			if len(groups[len(groups)-1]) == 0 {
				return nil, fmt.Errorf("empty parameter")
			}
			groups = append(groups, nil)
		default:
			groups[len(groups)-1] = append(groups[len(groups)-1], tok)
		}
	}
	if len(groups) > 1 && len(groups[len(groups)-1]) == 0 {
		return nil, fmt.Errorf("empty parameter")
	}
	return groups, nil
}

func parseParam(tokens []token, resolve TypeResolver) (Param, error) {
	meaningful := make([]token, 0, len(tokens))
	for _, tok := range tokens {
		if tok.kind == tokenIdent && qualifiers[tok.text] {
			continue
		}
		meaningful = append(meaningful, tok)
	}

	var param Param
	if last := len(meaningful) - 1; last >= 1 && meaningful[last].kind == tokenIdent && !typeKeywords[meaningful[last].text] {
		param.Name = meaningful[last].text
		meaningful = meaningful[:last]
	}

	typeName, err := parseType(meaningful, resolve)
	if err != nil {
		return Param{}, err
	}
	param.Type = typeName
	return param, nil
}

// parseType normalizes a type made of identifier words followed by
// pointer stars.
func parseType(tokens []token, resolve TypeResolver) (string, error) {
	var words []string
	stars := 0
	for _, tok := range tokens {
		switch tok.kind {
		case tokenIdent:
			if qualifiers[tok.text] {
				continue
			}
			if stars > 0 {
				return "", fmt.Errorf("unexpected %q after '*'", tok.text)
			}
			words = append(words, tok.text)
		case tokenStar:
			stars++
		default:
			return "", fmt.Errorf("unexpected %q", tok.text)
		}
	}
	if len(words) == 0 {
		return "", fmt.Errorf("missing type")
	}

	base := strings.Join(words, " ")
	if _, builtin := builtinTypeSizes[base]; !builtin && (resolve == nil || !resolve(base)) {
		return "", fmt.Errorf("Can't resolve datatype: %s", base)
	}
	if stars == 0 {
		return base, nil
	}
	return base + " " + strings.Repeat("*", stars), nil
}

// builtinTypeSizes are the types every program knows, with their
// sizes on a 32-bit target.
var builtinTypeSizes = map[string]int{
	"void":               0,
	"bool":               1,
	"char":               1,
	"signed char":        1,
	"unsigned char":      1,
	"uchar":              1,
	"byte":               1,
	"short":              2,
	"unsigned short":     2,
	"ushort":             2,
	"word":               2,
	"wchar_t":            2,
	"int":                4,
	"unsigned":           4,
	"unsigned int":       4,
	"uint":               4,
	"long":               4,
	"unsigned long":      4,
	"ulong":              4,
	"dword":              4,
	"long long":          8,
	"unsigned long long": 8,
	"qword":              8,
	"float":              4,
	"double":             8,
	"pointer":            4,
	"size_t":             4,
	"undefined":          1,
	"undefined1":         1,
	"undefined2":         2,
	"undefined4":         4,
	"undefined8":         8,
	"u8":                 1,
	"u16":                2,
	"u32":                4,
	"u64":                8,
	"s8":                 1,
	"s16":                2,
	"s32":                4,
	"s64":                8,
	"int8_t":             1,
	"int16_t":            2,
	"int32_t":            4,
	"int64_t":            8,
	"uint8_t":            1,
	"uint16_t":           2,
	"uint32_t":           4,
	"uint64_t":           8,
}

var qualifiers = map[string]bool{
	"const":    true,
	"volatile": true,
	"struct":   true,
	"union":    true,
	"enum":     true,
}

// typeKeywords can never be parameter or function names.
var typeKeywords = map[string]bool{
	"void":     true,
	"char":     true,
	"short":    true,
	"int":      true,
	"long":     true,
	"signed":   true,
	"unsigned": true,
	"float":    true,
	"double":   true,
	"bool":     true,
	"const":    true,
	"volatile": true,
	"struct":   true,
	"union":    true,
	"enum":     true,
}

type tokenKind int

const (
	tokenIdent tokenKind = iota
	tokenStar
	tokenOpen
	tokenClose
	tokenComma
	tokenEllipsis
	tokenSemicolon
)

type token struct {
	kind tokenKind
	text string
}

func tokenize(text string) ([]token, error) {
	var tokens []token
	for i := 0; i < len(text); {
		c := text[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '*':
			tokens = append(tokens, token{tokenStar, "*"})
			i++
		case c == '(':
			tokens = append(tokens, token{tokenOpen, "("})
			i++
		case c == ')':
			tokens = append(tokens, token{tokenClose, ")"})
			i++
		case c == ',':
			tokens = append(tokens, token{tokenComma, ","})
			i++
		case c == ';':
			tokens = append(tokens, token{tokenSemicolon, ";"})
			i++
		case strings.HasPrefix(text[i:], "..."):
			tokens = append(tokens, token{tokenEllipsis, "..."})
			i += 3
		case isIdentStart(c):
			start := i
			for i < len(text) && isIdentPart(text[i]) {
				i++
			}
			tokens = append(tokens, token{tokenIdent, text[start:i]})
		default:
			return nil, fmt.Errorf("syntax error in %q: unexpected character %q at offset %d", text, c, i)
		}
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty signature")
	}
	return tokens, nil
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
