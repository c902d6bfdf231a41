// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cleanup

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ReadRules parses CSV rules. The header row must name the columns
// source, replacement and dotall (any order; dotall is optional).
// Replacements in these files use backslash group references (\1,
// \g<name>), which are translated to Go expansion syntax.
func ReadRules(r io.Reader) ([]Rule, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}
	sourceColumn, hasSource := columns["source"]
	replacementColumn, hasReplacement := columns["replacement"]
	dotallColumn, hasDotall := columns["dotall"]
	if !hasSource || !hasReplacement {
		return nil, fmt.Errorf("header must contain source and replacement columns, got %v", header)
	}

	var rules []Rule
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := reader.FieldPos(0)

		field := func(column int) string {
			if column < len(record) {
				return record[column]
			}
			return ""
		}

		rule := Rule{
			Pattern:     field(sourceColumn),
			Replacement: translateReplacement(field(replacementColumn)),
		}
		if rule.Pattern == "" {
			return nil, fmt.Errorf("line %d: empty source pattern", line)
		}
		if hasDotall {
			if value := strings.TrimSpace(field(dotallColumn)); value != "" {
				rule.DotAll, err = strconv.ParseBool(value)
				if err != nil {
					return nil, fmt.Errorf("line %d: dotall: %q is not a boolean", line, value)
				}
			}
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// LoadRulesFile reads CSV rules from path.
func LoadRulesFile(path string) ([]Rule, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	rules, err := ReadRules(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rules, nil
}

// translateReplacement rewrites \1 and \g<name> references as ${1}
// and ${name}, escapes literal dollars, and resolves \\ and \n.
func translateReplacement(replacement string) string {
	var builder strings.Builder
	for i := 0; i < len(replacement); i++ {
		c := replacement[i]
		if c == '$' {
			builder.WriteString("$$")
			continue
		}
		if c != '\\' || i+1 == len(replacement) {
			builder.WriteByte(c)
			continue
		}

		next := replacement[i+1]
		switch {
		case next >= '0' && next <= '9':
			end := i + 1
			for end < len(replacement) && end < i+3 && replacement[end] >= '0' && replacement[end] <= '9' {
				end++
			}
			builder.WriteString("${" + replacement[i+1:end] + "}")
			i = end - 1
		case next == 'g' && i+2 < len(replacement) && replacement[i+2] == '<':
			closing := strings.IndexByte(replacement[i+3:], '>')
			if closing < 0 {
				builder.WriteByte(c)
				continue
			}
			builder.WriteString("${" + replacement[i+3:i+3+closing] + "}")
			i += 3 + closing
		case next == 'n':
			builder.WriteByte('\n')
			i++
		case next == 't':
			builder.WriteByte('\t')
			i++
		case next == '\\':
			builder.WriteByte('\\')
			i++
		default:
			builder.WriteByte(c)
		}
	}
	return builder.String()
}
