package parse

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/typeinfo/internal/cxx"
)

// spelling is a type under construction, written the way clang prints it.
// Suffixes such as array bounds and parameter lists collect in right; open is
// set while a pointer has been parenthesized around them.
type spelling struct {
	left  string
	right string
	open  bool
}

func (s spelling) String() string {
	return strings.TrimSpace(s.left + s.right)
}

// indirect applies a pointer or reference operator.
func (s spelling) indirect(op, quals string) spelling {
	switch {
	case s.right == "":
		s.left = joinOp(s.left, op)
	case s.open:
		s.left += op
	default:
		s.left = joinOp(s.left, "("+op)
		s.right = ")" + s.right
		s.open = true
	}
	if quals != "" {
		s.left += quals
	}
	return s
}

func (s spelling) array(size string) spelling {
	s.right = "[" + size + "]" + s.right
	s.open = false
	return s
}

func (s spelling) function(params []string) spelling {
	s.right = "(" + strings.Join(params, ", ") + ")" + s.right
	s.open = false
	return s
}

func joinOp(left, op string) string {
	if left == "" || strings.HasSuffix(left, "*") || strings.HasSuffix(left, "&") {
		return left + op
	}
	return left + " " + op
}

// specifiers holds what a declaration says before its declarators.
type specifiers struct {
	typ     spelling
	hasType bool
	static  bool
	virtual bool
	friend  bool
}

// specifiers reads the type, cv-qualifiers and storage of a declaration,
// parameter or operator_cast node.
func (b *builder) specifiers(n *sitter.Node) specifiers {
	var (
		spec  specifiers
		quals []string
		base  string
	)
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if n.FieldNameForChild(i) == "type" {
			base = b.typeName(child)
			spec.hasType = true
			continue
		}
		switch child.Type() {
		case "type_qualifier":
			switch q := b.text(child); q {
			case "const", "volatile":
				quals = append(quals, q)
			}
		case "storage_class_specifier":
			if b.text(child) == "static" {
				spec.static = true
			}
		case "virtual", "virtual_function_specifier":
			spec.virtual = true
		case "friend":
			spec.friend = true
		}
	}
	spec.typ.left = strings.TrimSpace(strings.Join(append(quals, base), " "))
	return spec
}

// typeName renders a type specifier node.
func (b *builder) typeName(n *sitter.Node) string {
	if isClassLike(n) || n.Type() == "enum_specifier" {
		tag := strings.TrimSuffix(n.Type(), "_specifier")
		if name := n.ChildByFieldName("name"); name != nil {
			if n.ChildByFieldName("body") != nil {
				return cxx.CollapseWhitespace(b.text(name))
			}
			return tag + " " + cxx.CollapseWhitespace(b.text(name))
		}
		return tag + " (anonymous)"
	}
	return cxx.CollapseWhitespace(b.text(n))
}

// declarator walks a declarator from the outside in, applying each level to
// t. It stops at the declared name, or at the function declarator of a
// function declaration, which is returned as fn.
func (b *builder) declarator(t spelling, d *sitter.Node) (name string, out spelling, fn *sitter.Node) {
	for d != nil {
		switch d.Type() {
		case "pointer_declarator", "abstract_pointer_declarator":
			t = t.indirect("*", b.pointerQualifiers(d))
		case "reference_declarator", "abstract_reference_declarator":
			op := "&"
			if d.ChildCount() > 0 && d.Child(0).Type() == "&&" {
				op = "&&"
			}
			t = t.indirect(op, "")
		case "array_declarator", "abstract_array_declarator":
			size := ""
			if s := d.ChildByFieldName("size"); s != nil {
				size = cxx.CollapseWhitespace(b.text(s))
			}
			t = t.array(size)
		case "parenthesized_declarator", "abstract_parenthesized_declarator":
		case "function_declarator", "abstract_function_declarator":
			inner := d.ChildByFieldName("declarator")
			if inner != nil && !isParenthesized(inner) {
				return b.declaredName(inner), t, d
			}
			t = t.function(b.parameterTypes(d.ChildByFieldName("parameters")))
		case "operator_cast":
			return b.operatorCast(d)
		case "init_declarator":
		default:
			return b.declaredName(d), t, nil
		}
		d = innerDeclarator(d)
	}
	return "", t, nil
}

func isParenthesized(n *sitter.Node) bool {
	return n.Type() == "parenthesized_declarator" || n.Type() == "abstract_parenthesized_declarator"
}

func (b *builder) pointerQualifiers(d *sitter.Node) string {
	var quals []string
	for i := 0; i < int(d.ChildCount()); i++ {
		child := d.Child(i)
		if child.Type() == "type_qualifier" {
			quals = append(quals, b.text(child))
		}
	}
	return strings.Join(quals, " ")
}

// innerDeclarator returns the next declarator level. Reference and
// parenthesized declarators carry no field name, so the last named child is
// used for them.
func innerDeclarator(d *sitter.Node) *sitter.Node {
	if inner := d.ChildByFieldName("declarator"); inner != nil {
		return inner
	}
	for i := int(d.NamedChildCount()) - 1; i >= 0; i-- {
		child := d.NamedChild(i)
		switch child.Type() {
		case "type_qualifier", "attribute_declaration", "ms_pointer_modifier", "comment":
			continue
		}
		if strings.HasSuffix(child.Type(), "declarator") || isNameNode(child) {
			return child
		}
		return nil
	}
	return nil
}

func isNameNode(n *sitter.Node) bool {
	switch n.Type() {
	case "identifier", "field_identifier", "type_identifier", "destructor_name",
		"operator_name", "qualified_identifier", "template_function", "operator_cast":
		return true
	}
	return false
}

// declaredName renders a declarator name the way clang names declarations:
// symbolic operators lose inner spaces, qualification is dropped.
func (b *builder) declaredName(n *sitter.Node) string {
	name := cxx.CollapseWhitespace(b.text(n))
	if n.Type() == "qualified_identifier" {
		if i := strings.LastIndex(name, "::"); i >= 0 {
			name = name[i+2:]
		}
	}
	if rest, ok := strings.CutPrefix(name, "operator"); ok {
		rest = strings.TrimSpace(rest)
		if rest != "" && !isIdentStart(rest[0]) {
			return "operator" + strings.ReplaceAll(rest, " ", "")
		}
		return "operator " + rest
	}
	return name
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// operatorCast handles "operator T()": the name is derived from the target
// type, which is also the return type.
func (b *builder) operatorCast(n *sitter.Node) (string, spelling, *sitter.Node) {
	t := b.specifiers(n).typ
	d := n.ChildByFieldName("declarator")
	for d != nil {
		switch d.Type() {
		case "abstract_function_declarator", "function_declarator":
			return "operator " + t.String(), t, d
		case "abstract_pointer_declarator", "pointer_declarator":
			t = t.indirect("*", b.pointerQualifiers(d))
		case "abstract_reference_declarator", "reference_declarator":
			op := "&"
			if d.ChildCount() > 0 && d.Child(0).Type() == "&&" {
				op = "&&"
			}
			t = t.indirect(op, "")
		}
		d = innerDeclarator(d)
	}
	return "operator " + t.String(), t, nil
}

// parameterTypes renders the types of a parameter_list, dropping names.
func (b *builder) parameterTypes(list *sitter.Node) []string {
	if list == nil {
		return nil
	}
	var params []string
	for i := 0; i < int(list.ChildCount()); i++ {
		p := list.Child(i)
		switch p.Type() {
		case "parameter_declaration", "optional_parameter_declaration", "variadic_parameter_declaration":
			spec := b.specifiers(p)
			t := spec.typ
			if d := p.ChildByFieldName("declarator"); d != nil {
				_, t, _ = b.declarator(t, d)
			}
			if p.Type() == "variadic_parameter_declaration" {
				t.left += "..."
			}
			params = append(params, t.String())
		case "...":
			params = append(params, "...")
		}
	}
	if len(params) == 1 && params[0] == "void" {
		return nil
	}
	return params
}
