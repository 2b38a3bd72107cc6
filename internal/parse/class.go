package parse

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/typeinfo/internal/cxx"
	"github.com/phobologic/typeinfo/internal/model"
)

// class builds a ClassDecl from a class, struct or union specifier.
func (b *builder) class(n *sitter.Node) *model.ClassDecl {
	c := &model.ClassDecl{
		Tag:  strings.TrimSuffix(n.Type(), "_specifier"),
		Line: line(n),
	}
	if name := n.ChildByFieldName("name"); name != nil {
		c.Name = cxx.Unqualified(cxx.CollapseWhitespace(b.text(name)))
	}

	body := n.ChildByFieldName("body")
	if body == nil {
		return c
	}
	c.Complete = true

	for i := 0; i < int(n.NamedChildCount()); i++ {
		if child := n.NamedChild(i); child.Type() == "base_class_clause" {
			c.Bases = b.bases(child)
		}
	}

	b.members(c, body, defaultAccess(c.Tag))
	return c
}

func defaultAccess(tag string) model.Access {
	if tag == "class" {
		return model.AccessPrivate
	}
	return model.AccessPublic
}

// bases reads a base_class_clause. Each specifier is an optional access
// keyword and optional "virtual" followed by a type, separated by commas.
func (b *builder) bases(clause *sitter.Node) []model.Base {
	var out []model.Base
	for i := 0; i < int(clause.ChildCount()); i++ {
		child := clause.Child(i)
		switch child.Type() {
		case ",", ":", "...", "attribute_declaration", "comment",
			"access_specifier", "public", "protected", "private", "virtual":
		default:
			if child.IsNamed() {
				out = append(out, model.Base{Type: cxx.CollapseWhitespace(b.text(child))})
			}
		}
	}
	return out
}

// members appends the fields and methods of a field_declaration_list.
func (b *builder) members(c *model.ClassDecl, body *sitter.Node, access model.Access) model.Access {
	for i := 0; i < int(body.ChildCount()); i++ {
		n := body.Child(i)
		if !n.IsNamed() {
			continue
		}
		switch body.FieldNameForChild(i) {
		case "alternative", "condition", "name":
			continue
		}
		switch n.Type() {
		case "access_specifier":
			access = model.ParseAccess(strings.TrimSpace(strings.TrimSuffix(b.text(n), ":")))
		case "field_declaration", "declaration", "function_definition":
			b.member(c, n, access)
		case "preproc_if", "preproc_ifdef":
			access = b.members(c, n, access)
		}
	}
	return access
}

// member handles one member declaration, which may declare several fields,
// a method, or a nested type.
func (b *builder) member(c *model.ClassDecl, n *sitter.Node, access model.Access) {
	spec := b.specifiers(n)
	if spec.friend {
		return
	}

	declarators := 0
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.FieldNameForChild(i) != "declarator" {
			continue
		}
		declarators++
		name, t, fn := b.declarator(spec.typ, n.Child(i))
		if fn != nil {
			c.Members = append(c.Members, b.method(c, n, fn, name, t, spec, access))
			continue
		}
		if spec.static || n.Type() == "function_definition" {
			continue
		}
		c.Members = append(c.Members, &model.FieldDecl{
			Name:   name,
			Type:   t.String(),
			Access: access,
			Line:   line(n),
		})
	}

	// An anonymous struct or union member introduces an unnamed field.
	if declarators == 0 && !spec.static {
		if t := n.ChildByFieldName("type"); t != nil && isClassLike(t) &&
			t.ChildByFieldName("name") == nil && t.ChildByFieldName("body") != nil {
			c.Members = append(c.Members, &model.FieldDecl{
				Type:   spec.typ.String(),
				Access: access,
				Line:   line(n),
			})
		}
	}
}

// method builds a MethodDecl. n is the whole member declaration and fn its
// function declarator.
func (b *builder) method(c *model.ClassDecl, n, fn *sitter.Node, name string, ret spelling, spec specifiers, access model.Access) *model.MethodDecl {
	m := &model.MethodDecl{
		Name:       name,
		ReturnType: ret.String(),
		Params:     b.parameterTypes(fn.ChildByFieldName("parameters")),
		Static:     spec.static,
		Access:     access,
		Virtual:    spec.virtual,
		Line:       line(n),
	}

	for i := 0; i < int(fn.ChildCount()); i++ {
		child := fn.Child(i)
		switch child.Type() {
		case "type_qualifier":
			if b.text(child) == "const" {
				m.Const = true
			}
		case "virtual_specifier":
			if b.text(child) == "override" {
				m.MarkedOverride = true
			}
			m.Virtual = true
		case "trailing_return_type":
			if desc := lastNamed(child); desc != nil {
				m.ReturnType = b.typeDescriptor(desc)
			}
		}
	}

	if isPure(b, n) {
		m.Pure = true
		m.Virtual = true
	}

	switch {
	case strings.HasPrefix(name, "~"):
		m.Role = model.RoleDestructor
		m.ReturnType = "void"
	case !spec.hasType && !strings.HasPrefix(name, "operator") && cxx.StripTemplateArgs(name) == c.Name:
		m.Role = model.RoleConstructor
		m.ReturnType = "void"
	case name == "operator=":
		m.Role = cxx.AssignmentRole(c.Name, m.Params)
	}
	return m
}

// isPure reports whether a member declaration ends in "= 0".
func isPure(b *builder, n *sitter.Node) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.Type() == "pure_virtual_clause" {
			return true
		}
		if n.FieldNameForChild(i) == "default_value" && strings.TrimSpace(b.text(child)) == "0" {
			return true
		}
	}
	return false
}

// typeDescriptor renders a type_descriptor such as "const char *".
func (b *builder) typeDescriptor(n *sitter.Node) string {
	if n.Type() != "type_descriptor" {
		return cxx.CollapseWhitespace(b.text(n))
	}
	spec := b.specifiers(n)
	t := spec.typ
	if d := n.ChildByFieldName("declarator"); d != nil {
		_, t, _ = b.declarator(t, d)
	}
	return t.String()
}

func lastNamed(n *sitter.Node) *sitter.Node {
	if n.NamedChildCount() == 0 {
		return nil
	}
	return n.NamedChild(int(n.NamedChildCount()) - 1)
}
