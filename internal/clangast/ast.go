// Package clangast reads the JSON AST that clang prints with
// -Xclang -ast-dump=json and converts it to the declaration model.
package clangast

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrNotAST is returned when the input decodes but is not a translation unit.
var ErrNotAST = errors.New("not a clang JSON AST")

// Node is one entry of the dump. Only the attributes the converter reads are
// decoded; the rest of the document is skipped.
type Node struct {
	Kind               string     `json:"kind"`
	Loc                Loc        `json:"loc"`
	Range              Range      `json:"range"`
	IsImplicit         bool       `json:"isImplicit"`
	Name               string     `json:"name"`
	TagUsed            string     `json:"tagUsed"`
	CompleteDefinition bool       `json:"completeDefinition"`
	Bases              []BaseSpec `json:"bases"`
	Type               *QualType  `json:"type"`
	Access             string     `json:"access"`
	StorageClass       string     `json:"storageClass"`
	Virtual            bool       `json:"virtual"`
	Pure               bool       `json:"pure"`
	Inner              []*Node    `json:"inner"`

	pos position
}

// QualType is a type as clang spells it.
type QualType struct {
	QualType string `json:"qualType"`
}

// BaseSpec is one entry of a record's base list.
type BaseSpec struct {
	Type QualType `json:"type"`
}

// Loc is a source location. The dumper only writes the file and line when
// they differ from the previously written location, so a Loc is meaningful
// only in document order.
type Loc struct {
	File         string   `json:"file"`
	Line         int      `json:"line"`
	Col          int      `json:"col"`
	IncludedFrom *Include `json:"includedFrom"`
	SpellingLoc  *Loc     `json:"spellingLoc"`
	ExpansionLoc *Loc     `json:"expansionLoc"`
}

// Include names the file that included a location's file.
type Include struct {
	File string `json:"file"`
}

// Range is a begin/end pair of locations.
type Range struct {
	Begin Loc `json:"begin"`
	End   Loc `json:"end"`
}

type position struct {
	file string
	line int
}

// Decode reads a dump and resolves every node's location.
func Decode(r io.Reader) (*Node, *Files, error) {
	var root Node
	if err := json.NewDecoder(r).Decode(&root); err != nil {
		return nil, nil, fmt.Errorf("decoding AST: %w", err)
	}
	if root.Kind != "TranslationUnitDecl" {
		return nil, nil, fmt.Errorf("%w: top-level kind %q", ErrNotAST, root.Kind)
	}
	files := &Files{included: make(map[string]string)}
	files.walk(&root)
	return &root, files, nil
}

// Files follows the dumper's running location state and remembers which
// files were entered through an #include.
type Files struct {
	file     string
	line     int
	included map[string]string
}

// Included reports whether file was pulled in by an #include. Locations with
// no file (builtins, implicit declarations) count as included.
func (f *Files) Included(file string) bool {
	if file == "" {
		return true
	}
	_, ok := f.included[file]
	return ok
}

func (f *Files) walk(n *Node) {
	n.pos = f.apply(&n.Loc)
	f.apply(&n.Range.Begin)
	f.apply(&n.Range.End)
	for _, child := range n.Inner {
		f.walk(child)
	}
}

// apply advances the running state over l and returns where l points. For a
// macro location the expansion point is what counts.
func (f *Files) apply(l *Loc) position {
	if l.SpellingLoc != nil || l.ExpansionLoc != nil {
		var p position
		if l.SpellingLoc != nil {
			p = f.apply(l.SpellingLoc)
		}
		if l.ExpansionLoc != nil {
			p = f.apply(l.ExpansionLoc)
		}
		return p
	}
	if l.File != "" {
		f.file = l.File
		if l.IncludedFrom != nil {
			f.included[l.File] = l.IncludedFrom.File
		}
	}
	if l.Line != 0 {
		f.line = l.Line
	}
	// An empty object is an invalid location.
	if l.Col == 0 && l.File == "" && l.Line == 0 {
		return position{}
	}
	return position{file: f.file, line: f.line}
}
