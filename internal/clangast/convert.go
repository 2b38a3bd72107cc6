package clangast

import (
	"strings"

	"github.com/phobologic/typeinfo/internal/cxx"
	"github.com/phobologic/typeinfo/internal/model"
)

// Options controls conversion.
type Options struct {
	// SkipIncluded leaves top-level declarations that come from an #include
	// rather than the main file out of the report. Their classes are still
	// kept hidden for hierarchy resolution.
	SkipIncluded bool
}

// Convert maps a decoded translation unit to the model. path is recorded on
// the unit. Classes inside namespaces are kept hidden.
func Convert(root *Node, files *Files, path string, opts Options) *model.TranslationUnit {
	tu := &model.TranslationUnit{Path: path}
	for _, n := range root.Inner {
		if opts.SkipIncluded && files.Included(n.pos.file) {
			hide(tu, n, "")
			continue
		}
		switch n.Kind {
		case "CXXRecordDecl", "ClassTemplateSpecializationDecl", "RecordDecl":
			tu.Decls = append(tu.Decls, record(n))
		case "NamespaceDecl", "LinkageSpecDecl":
			tu.Decls = append(tu.Decls, &model.OtherDecl{Kind: n.Kind, Name: n.Name, Line: n.pos.line})
			hide(tu, n, "")
		default:
			tu.Decls = append(tu.Decls, &model.OtherDecl{Kind: n.Kind, Name: n.Name, Line: n.pos.line})
		}
	}
	return tu
}

// hide adds the complete records under n to tu.Hidden. Anonymous namespaces
// and linkage specifications add no scope.
func hide(tu *model.TranslationUnit, n *Node, scope string) {
	switch n.Kind {
	case "CXXRecordDecl", "ClassTemplateSpecializationDecl", "RecordDecl":
		if n.CompleteDefinition && !n.IsImplicit {
			c := record(n)
			c.Scope = scope
			tu.Hidden = append(tu.Hidden, c)
		}
	case "NamespaceDecl", "LinkageSpecDecl":
		inner := scope
		if n.Kind == "NamespaceDecl" {
			inner = qualify(scope, n.Name)
		}
		for _, child := range n.Inner {
			hide(tu, child, inner)
		}
	}
}

func qualify(scope, name string) string {
	switch {
	case name == "":
		return scope
	case scope == "":
		return name
	}
	return scope + "::" + name
}

func record(n *Node) *model.ClassDecl {
	c := &model.ClassDecl{
		Name:     n.Name,
		Tag:      n.TagUsed,
		Line:     n.pos.line,
		Complete: n.CompleteDefinition,
		Implicit: n.IsImplicit,
	}
	if c.Tag == "" {
		c.Tag = "struct"
	}

	for _, b := range n.Bases {
		c.Bases = append(c.Bases, model.Base{Type: b.Type.QualType})
	}

	access := model.AccessPublic
	if c.Tag == "class" {
		access = model.AccessPrivate
	}
	for _, m := range n.Inner {
		if m.Kind == "AccessSpecDecl" {
			access = model.ParseAccess(m.Access)
			continue
		}
		memberAccess := access
		if m.Access != "" {
			memberAccess = model.ParseAccess(m.Access)
		}
		switch m.Kind {
		case "FieldDecl":
			c.Members = append(c.Members, &model.FieldDecl{
				Name:   m.Name,
				Type:   typeOf(m),
				Access: memberAccess,
				Line:   m.pos.line,
			})
		case "CXXMethodDecl", "CXXConversionDecl", "CXXConstructorDecl", "CXXDestructorDecl":
			c.Members = append(c.Members, method(c, m, memberAccess))
		}
	}
	return c
}

func method(c *model.ClassDecl, n *Node, access model.Access) *model.MethodDecl {
	fnType := typeOf(n)
	m := &model.MethodDecl{
		Name:       n.Name,
		ReturnType: cxx.ReturnType(fnType),
		Const:      cxx.ConstFunction(fnType),
		Static:     n.StorageClass == "static",
		Access:     access,
		Virtual:    n.Virtual || n.Pure,
		Pure:       n.Pure,
		Line:       n.pos.line,
	}
	for _, child := range n.Inner {
		switch child.Kind {
		case "ParmVarDecl":
			m.Params = append(m.Params, typeOf(child))
		case "OverrideAttr":
			m.MarkedOverride = true
			m.Virtual = true
		case "FinalAttr":
			m.Virtual = true
		}
	}

	switch n.Kind {
	case "CXXConstructorDecl":
		m.Role = model.RoleConstructor
	case "CXXDestructorDecl":
		m.Role = model.RoleDestructor
	default:
		if m.Name == "operator=" {
			m.Role = cxx.AssignmentRole(c.Name, m.Params)
		}
	}
	return m
}

func typeOf(n *Node) string {
	if n.Type == nil {
		return ""
	}
	return strings.TrimSpace(n.Type.QualType)
}
