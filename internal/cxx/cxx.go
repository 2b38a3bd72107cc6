// Package cxx holds C++ type-spelling helpers shared by the frontends.
package cxx

import (
	"regexp"
	"strings"

	"github.com/phobologic/typeinfo/internal/model"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	commaRe      = regexp.MustCompile(` ?, ?`)
)

// CollapseWhitespace replaces runs of whitespace with a single space and
// trims. Commas are followed by exactly one space, as clang prints template
// argument and parameter lists.
func CollapseWhitespace(s string) string {
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(commaRe.ReplaceAllString(s, ", "))
}

// StripTemplateArgs returns name without a trailing template argument list,
// so "Box<int>" becomes "Box".
func StripTemplateArgs(name string) string {
	if i := strings.IndexByte(name, '<'); i > 0 {
		return strings.TrimSpace(name[:i])
	}
	return name
}

// Unqualified returns the last component of a qualified name.
func Unqualified(name string) string {
	name = StripTemplateArgs(name)
	if i := strings.LastIndex(name, "::"); i >= 0 {
		return name[i+2:]
	}
	return name
}

// ReturnType extracts the return type from a function type spelling such as
// "const std::string &() const" or "double (int, int)". Pointer-to-function
// return types are not unwrapped.
func ReturnType(fnType string) string {
	depth := 0
	for i, r := range fnType {
		switch r {
		case '<', '[':
			depth++
		case '>', ']':
			if depth > 0 {
				depth--
			}
		case '(':
			if depth == 0 {
				return strings.TrimSpace(fnType[:i])
			}
		}
	}
	return strings.TrimSpace(fnType)
}

// ConstFunction reports whether a function type spelling such as
// "double () const" carries a const qualifier after its parameter list.
func ConstFunction(fnType string) bool {
	depth, open := 0, false
	for i, r := range fnType {
		switch r {
		case '(':
			depth++
			open = true
		case ')':
			depth--
			if open && depth == 0 {
				for _, word := range strings.Fields(fnType[i+1:]) {
					if word == "const" {
						return true
					}
				}
				return false
			}
		}
	}
	return false
}

// AssignmentRole classifies an operator= of class by its parameter types,
// following the language's definition of copy and move assignment: a single
// parameter of type X, X&, const X&, volatile X& or const volatile X& is a
// copy; X&& with any cv-qualification is a move.
func AssignmentRole(class string, params []string) model.Role {
	if len(params) != 1 {
		return model.RoleOrdinary
	}
	t := CollapseWhitespace(params[0])

	move := strings.HasSuffix(t, "&&")
	switch {
	case move:
		t = strings.TrimSpace(strings.TrimSuffix(t, "&&"))
	case strings.HasSuffix(t, "&"):
		t = strings.TrimSpace(strings.TrimSuffix(t, "&"))
	}

	for {
		trimmed := strings.TrimSpace(strings.TrimSuffix(strings.TrimSuffix(t, "const"), "volatile"))
		trimmed = strings.TrimPrefix(trimmed, "const ")
		trimmed = strings.TrimPrefix(trimmed, "volatile ")
		trimmed = strings.TrimPrefix(trimmed, "class ")
		trimmed = strings.TrimPrefix(trimmed, "struct ")
		trimmed = strings.TrimSpace(trimmed)
		if trimmed == t {
			break
		}
		t = trimmed
	}

	if !sameClass(t, class) {
		return model.RoleOrdinary
	}
	if move {
		return model.RoleMoveAssign
	}
	return model.RoleCopyAssign
}

// sameClass compares a parameter type against the enclosing class name,
// ignoring qualification and template arguments of the class itself.
func sameClass(paramType, class string) bool {
	if paramType == class {
		return true
	}
	return Unqualified(paramType) == Unqualified(class) && !strings.ContainsAny(paramType, "*")
}

// Signature is the comparable shape of a method for override matching.
func Signature(m *model.MethodDecl) string {
	params := make([]string, len(m.Params))
	for i, p := range m.Params {
		params[i] = CollapseWhitespace(p)
	}
	sig := m.Name + "(" + strings.Join(params, ", ") + ")"
	if m.Const {
		sig += " const"
	}
	return sig
}
