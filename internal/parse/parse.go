// Package parse builds declaration trees from C++ source using tree-sitter.
package parse

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/typeinfo/internal/lang"
	"github.com/phobologic/typeinfo/internal/model"
)

// maxDiagnostics bounds the syntax errors recorded per file.
const maxDiagnostics = 20

// Analyze parses source and returns its top-level declarations in source
// order. The parser must be created for C++. filePath is recorded on the
// unit and its diagnostics.
func Analyze(ctx context.Context, parser *sitter.Parser, source []byte, filePath string) (*model.TranslationUnit, error) {
	tu := &model.TranslationUnit{Path: filePath}
	if len(source) == 0 {
		return tu, nil
	}

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filePath, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	b := &builder{source: source, tu: tu}
	b.topLevel(root)
	if root.HasError() {
		b.collectErrors(root)
	}
	return tu, nil
}

type builder struct {
	source []byte
	tu     *model.TranslationUnit
}

func (b *builder) text(n *sitter.Node) string {
	return lang.NodeText(n, b.source)
}

func line(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

// topLevel appends the declarations directly under a translation unit, or
// under the taken branch of a preprocessor conditional at that level.
func (b *builder) topLevel(parent *sitter.Node) {
	for i := 0; i < int(parent.ChildCount()); i++ {
		n := parent.Child(i)
		if !n.IsNamed() {
			continue
		}
		switch parent.FieldNameForChild(i) {
		case "alternative", "condition", "name":
			continue
		}
		switch n.Type() {
		case "comment", "preproc_include", "preproc_def", "preproc_function_def",
			"preproc_call", "ERROR":
			continue
		case "preproc_if", "preproc_ifdef":
			b.topLevel(n)
		case "class_specifier", "struct_specifier", "union_specifier":
			b.tu.Decls = append(b.tu.Decls, b.class(n))
		case "declaration", "type_definition":
			if t := n.ChildByFieldName("type"); t != nil && isClassLike(t) && t.ChildByFieldName("body") != nil {
				b.tu.Decls = append(b.tu.Decls, b.class(t))
			}
			b.tu.Decls = append(b.tu.Decls, b.other(n))
		case "template_declaration":
			if c := b.explicitSpecialization(n); c != nil {
				b.tu.Decls = append(b.tu.Decls, c)
				continue
			}
			b.tu.Decls = append(b.tu.Decls, b.other(n))
		case "namespace_definition":
			b.tu.Decls = append(b.tu.Decls, b.other(n))
			b.namespace(n, "")
		default:
			b.tu.Decls = append(b.tu.Decls, b.other(n))
		}
	}
}

// namespace records the class definitions of a namespace, nested namespaces
// included, in tu.Hidden. An anonymous namespace adds no scope.
func (b *builder) namespace(n *sitter.Node, scope string) {
	if name := n.ChildByFieldName("name"); name != nil {
		scope = qualify(scope, strings.Join(strings.Fields(b.text(name)), ""))
	}
	if body := n.ChildByFieldName("body"); body != nil {
		b.scoped(body, scope)
	}
}

func (b *builder) scoped(parent *sitter.Node, scope string) {
	for i := 0; i < int(parent.ChildCount()); i++ {
		n := parent.Child(i)
		if !n.IsNamed() {
			continue
		}
		switch parent.FieldNameForChild(i) {
		case "alternative", "condition", "name":
			continue
		}
		var c *model.ClassDecl
		switch n.Type() {
		case "namespace_definition":
			b.namespace(n, scope)
		case "preproc_if", "preproc_ifdef":
			b.scoped(n, scope)
		case "class_specifier", "struct_specifier", "union_specifier":
			c = b.class(n)
		case "declaration", "type_definition":
			if t := n.ChildByFieldName("type"); t != nil && isClassLike(t) && t.ChildByFieldName("body") != nil {
				c = b.class(t)
			}
		case "template_declaration":
			c = b.explicitSpecialization(n)
		}
		if c != nil && c.Complete {
			c.Scope = scope
			b.tu.Hidden = append(b.tu.Hidden, c)
		}
	}
}

func qualify(scope, name string) string {
	if scope == "" {
		return name
	}
	return scope + "::" + name
}

func isClassLike(n *sitter.Node) bool {
	switch n.Type() {
	case "class_specifier", "struct_specifier", "union_specifier":
		return true
	}
	return false
}

// explicitSpecialization returns the class defined by a "template <>"
// declaration, or nil for anything else.
func (b *builder) explicitSpecialization(n *sitter.Node) *model.ClassDecl {
	params := n.ChildByFieldName("parameters")
	if params == nil || params.NamedChildCount() != 0 {
		return nil
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if isClassLike(child) && child.ChildByFieldName("body") != nil {
			return b.class(child)
		}
	}
	return nil
}

func (b *builder) other(n *sitter.Node) *model.OtherDecl {
	o := &model.OtherDecl{Kind: n.Type(), Line: line(n)}
	if name := n.ChildByFieldName("name"); name != nil {
		o.Name = b.text(name)
	} else if d := n.ChildByFieldName("declarator"); d != nil {
		o.Name, _, _ = b.declarator(spelling{}, d)
	}
	return o
}

func (b *builder) collectErrors(n *sitter.Node) {
	if len(b.tu.Diagnostics) >= maxDiagnostics {
		return
	}
	switch {
	case n.IsMissing():
		b.diagnose(n, fmt.Sprintf("missing %s", n.Type()))
		return
	case n.Type() == "ERROR":
		b.diagnose(n, fmt.Sprintf("syntax error near %q", truncate(b.text(n), 40)))
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.HasError() || child.IsMissing() {
			b.collectErrors(child)
		}
	}
}

func (b *builder) diagnose(n *sitter.Node, msg string) {
	p := n.StartPoint()
	b.tu.Diagnostics = append(b.tu.Diagnostics, model.Diagnostic{
		Path:    b.tu.Path,
		Line:    int(p.Row) + 1,
		Column:  int(p.Column) + 1,
		Message: msg,
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
