// Package toon encodes class reports in TOON (Token-Oriented Object Notation).
package toon

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/phobologic/typeinfo/internal/model"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// Encode renders the reportable classes of tus as three tables: classes,
// fields and methods. The same filters as the text report apply.
func Encode(tus []*model.TranslationUnit) string {
	var classRows, fieldRows, methodRows [][]string

	for _, tu := range tus {
		for _, c := range tu.Classes() {
			if !c.Reportable() {
				continue
			}
			bases := make([]string, len(c.Bases))
			for i, b := range c.Bases {
				bases[i] = b.Type
			}
			classRows = append(classRows, []string{tu.Path, c.Name, c.Tag, strings.Join(bases, " ")})

			for _, f := range c.Fields() {
				fieldRows = append(fieldRows, []string{c.Name, f.Name, f.Type, f.Access.String()})
			}
			for _, m := range c.Methods() {
				if m.Excluded() {
					continue
				}
				methodRows = append(methodRows, []string{
					c.Name,
					m.Name,
					m.ReturnType,
					m.Access.String(),
					m.Dispatch().String(),
				})
			}
		}
	}

	parts := []string{
		formatTabular("classes", []string{"file", "name", "tag", "bases"}, classRows),
		formatTabular("fields", []string{"class", "name", "type", "access"}, fieldRows),
		formatTabular("methods", []string{"class", "name", "returns", "access", "dispatch"}, methodRows),
	}
	return strings.Join(parts, "\n")
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
