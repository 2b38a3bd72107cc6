// Package model defines the declaration tree that frontends produce and the
// reporter consumes.
package model

// Access is the visibility of a member or base specifier.
type Access int

const (
	AccessNone Access = iota
	AccessPublic
	AccessProtected
	AccessPrivate
)

var accessLabels = [...]string{
	AccessNone:      "none",
	AccessPublic:    "public",
	AccessProtected: "protected",
	AccessPrivate:   "private",
}

// String returns the lowercase label for a. Out-of-range values map to "none".
func (a Access) String() string {
	if a < 0 || int(a) >= len(accessLabels) {
		return accessLabels[AccessNone]
	}
	return accessLabels[a]
}

// ParseAccess maps a C++ access keyword to an Access. Anything unrecognized is
// AccessNone.
func ParseAccess(s string) Access {
	switch s {
	case "public":
		return AccessPublic
	case "protected":
		return AccessProtected
	case "private":
		return AccessPrivate
	}
	return AccessNone
}

// Dispatch classifies how a method participates in virtual dispatch.
type Dispatch int

const (
	DispatchOrdinary Dispatch = iota
	DispatchVirtual
	DispatchOverride
	DispatchPureVirtual
)

var dispatchLabels = [...]string{
	DispatchOrdinary:    "",
	DispatchVirtual:     "virtual",
	DispatchOverride:    "override",
	DispatchPureVirtual: "pure",
}

// String returns a short label; ordinary methods have an empty label.
func (d Dispatch) String() string {
	if d < 0 || int(d) >= len(dispatchLabels) {
		return dispatchLabels[DispatchOrdinary]
	}
	return dispatchLabels[d]
}

// Role identifies special member functions.
type Role int

const (
	RoleOrdinary Role = iota
	RoleConstructor
	RoleDestructor
	RoleCopyAssign
	RoleMoveAssign
)

// Decl is one node of the declaration tree. The set of implementations is
// closed: *ClassDecl, *FieldDecl, *MethodDecl and *OtherDecl.
type Decl interface {
	DeclName() string
	decl()
}

// TranslationUnit is the root of one analyzed source file.
type TranslationUnit struct {
	Path  string
	Decls []Decl
	// Hidden holds class definitions that take part in hierarchy resolution
	// but are never reported: those nested in namespaces and, when included
	// files are skipped, those from #included files.
	Hidden      []*ClassDecl
	Diagnostics []Diagnostic
}

// Classes returns the class declarations of tu in source order.
func (tu *TranslationUnit) Classes() []*ClassDecl {
	var out []*ClassDecl
	for _, d := range tu.Decls {
		if c, ok := d.(*ClassDecl); ok {
			out = append(out, c)
		}
	}
	return out
}

// Diagnostic records input the frontend could not fully understand.
type Diagnostic struct {
	Path    string
	Line    int
	Column  int
	Message string
}

// Base is one direct base-class specifier, spelled as written.
type Base struct {
	Type string
}

// ClassDecl is a class, struct or union declaration.
type ClassDecl struct {
	Name     string
	Scope    string // enclosing namespaces, "a::b"; empty at global scope
	Tag      string // class, struct or union
	Line     int
	Complete bool // has a body, not just a forward declaration
	Implicit bool // synthesized by the frontend rather than written
	Bases    []Base
	Members  []Decl
}

func (c *ClassDecl) DeclName() string { return c.Name }
func (*ClassDecl) decl()              {}

// QualifiedName returns Name prefixed with the enclosing namespaces.
func (c *ClassDecl) QualifiedName() string {
	if c.Scope == "" {
		return c.Name
	}
	return c.Scope + "::" + c.Name
}

// Reportable reports whether c is a user-written complete definition.
func (c *ClassDecl) Reportable() bool {
	return c.Complete && !c.Implicit
}

// Fields returns the data members of c in declaration order.
func (c *ClassDecl) Fields() []*FieldDecl {
	var out []*FieldDecl
	for _, m := range c.Members {
		if f, ok := m.(*FieldDecl); ok {
			out = append(out, f)
		}
	}
	return out
}

// Methods returns the member functions of c in declaration order, including
// special members.
func (c *ClassDecl) Methods() []*MethodDecl {
	var out []*MethodDecl
	for _, m := range c.Members {
		if fn, ok := m.(*MethodDecl); ok {
			out = append(out, fn)
		}
	}
	return out
}

// FieldDecl is a non-static data member.
type FieldDecl struct {
	Name   string
	Type   string
	Access Access
	Line   int
}

func (f *FieldDecl) DeclName() string { return f.Name }
func (*FieldDecl) decl()              {}

// MethodDecl is a member function.
type MethodDecl struct {
	Name       string
	ReturnType string
	Params     []string // parameter types, names stripped
	Const      bool
	Static     bool
	Access     Access
	Virtual    bool
	Pure       bool
	// MarkedOverride is set when the declaration carries an override
	// specifier. A final specifier only makes the method virtual.
	MarkedOverride bool
	Overrides      []string // qualified names of overridden base methods
	Role           Role
	Line           int
}

func (m *MethodDecl) DeclName() string { return m.Name }
func (*MethodDecl) decl()              {}

// Dispatch classifies m. Pure-virtual wins over override, which wins over
// virtual.
func (m *MethodDecl) Dispatch() Dispatch {
	switch {
	case m.Pure:
		return DispatchPureVirtual
	case len(m.Overrides) > 0:
		return DispatchOverride
	case m.Virtual:
		return DispatchVirtual
	}
	return DispatchOrdinary
}

// Excluded reports whether m is a special member left out of reports.
func (m *MethodDecl) Excluded() bool {
	switch m.Role {
	case RoleConstructor, RoleDestructor, RoleCopyAssign, RoleMoveAssign:
		return true
	}
	return false
}

// OtherDecl is any top-level declaration that is not class-like.
type OtherDecl struct {
	Kind string
	Name string
	Line int
}

func (o *OtherDecl) DeclName() string { return o.Name }
func (*OtherDecl) decl()              {}
