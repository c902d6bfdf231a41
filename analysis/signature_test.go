// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package analysis

import (
	"strings"
	"testing"
)

func knownTypes(names ...string) TypeResolver {
	return func(name string) bool {
		for _, known := range names {
			if known == name {
				return true
			}
		}
		return false
	}
}

func TestParseSignature(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", "int foo(int)", "int foo(int param_1)"},
		{"named params", "void sub_8000134(u8 *buffer, u32 length)", "void sub_8000134(u8 *buffer, u32 length)"},
		{"void params", "int main(void)", "int main(void)"},
		{"empty params", "int main()", "int main(void)"},
		{"pointer return", "char * GetName(Entity *entity)", "char *GetName(Entity *entity)"},
		{"double pointer", "void Free(void **slot);", "void Free(void **slot)"},
		{"calling convention", "int __stdcall Draw(int x)", "int __stdcall Draw(int x)"},
		{"multi-word type", "unsigned int Count(unsigned char value, unsigned int)", "unsigned int Count(unsigned char value, unsigned int param_2)"},
		{"qualifiers dropped", "void Copy(const struct Entity *source)", "void Copy(Entity *source)"},
		{"varargs", "int printf(char *format, ...)", "int printf(char *format, ...)"},
		{"only varargs", "void Log(...)", "void Log(...)"},
	}
	resolve := knownTypes("Entity")
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			signature, err := ParseSignature(test.input, Signature{}, resolve)
			if err != nil {
				t.Fatalf("ParseSignature(%q): %v", test.input, err)
			}
			if got := signature.String(); got != test.want {
				t.Errorf("ParseSignature(%q).String() = %q, want %q", test.input, got, test.want)
			}
		})
	}
}

func TestParseSignatureInheritsCallingConvention(t *testing.T) {
	prototype := Signature{ReturnType: "void", Name: "foo", CallingConvention: "__thiscall"}

	signature, err := ParseSignature("int foo(int a)", prototype, nil)
	if err != nil {
		t.Fatalf("ParseSignature: %v", err)
	}
	if signature.CallingConvention != "__thiscall" {
		t.Errorf("CallingConvention = %q, want inherited __thiscall", signature.CallingConvention)
	}

	signature, err = ParseSignature("int __cdecl foo(int a)", prototype, nil)
	if err != nil {
		t.Fatalf("ParseSignature: %v", err)
	}
	if signature.CallingConvention != "__cdecl" {
		t.Errorf("CallingConvention = %q, want explicit __cdecl", signature.CallingConvention)
	}
}

func TestParseSignatureFields(t *testing.T) {
	signature, err := ParseSignature("u32 ReadBits(u8 *stream, int count)", Signature{}, nil)
	if err != nil {
		t.Fatalf("ParseSignature: %v", err)
	}
	if signature.ReturnType != "u32" || signature.Name != "ReadBits" {
		t.Errorf("unexpected head: %+v", signature)
	}
	if len(signature.Params) != 2 {
		t.Fatalf("expected 2 params, got %d", len(signature.Params))
	}
	if signature.Params[0] != (Param{Type: "u8 *", Name: "stream"}) {
		t.Errorf("param 0 = %+v", signature.Params[0])
	}
	if signature.Params[1] != (Param{Type: "int", Name: "count"}) {
		t.Errorf("param 1 = %+v", signature.Params[1])
	}
}

func TestParseSignatureErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		message string
	}{
		{"empty", "", "empty signature"},
		{"no parens", "int foo", "parenthesized parameter list"},
		{"unclosed", "int foo(int", "parenthesized parameter list"},
		{"no name", "int (int)", "missing function name"},
		{"no return type", "foo(int)", "missing type"},
		{"unknown return", "Thing foo(void)", "Can't resolve datatype: Thing"},
		{"unknown param", "int foo(Widget *w)", "Can't resolve datatype: Widget"},
		{"varargs not last", "int foo(..., int)", "must be the last parameter"},
		{"void with others", "int foo(void, int)", "void must be the only parameter"},
		{"empty param", "int foo(int,)", "empty parameter"},
		{"function pointer", "int foo(void (*cb)(int))", "function pointer"},
		{"bad character", "int foo(int a[4])", "unexpected character"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ParseSignature(test.input, Signature{}, nil)
			if err == nil {
				t.Fatalf("ParseSignature(%q) succeeded, want error containing %q", test.input, test.message)
			}
			if !strings.Contains(err.Error(), test.message) {
				t.Errorf("ParseSignature(%q) error = %q, want it to contain %q", test.input, err, test.message)
			}
		})
	}
}
