// Package frontend is the boundary between the reporter and the engines that
// turn C++ source into declarations.
package frontend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/typeinfo/internal/clangast"
	"github.com/phobologic/typeinfo/internal/discover"
	"github.com/phobologic/typeinfo/internal/lang"
	"github.com/phobologic/typeinfo/internal/model"
	"github.com/phobologic/typeinfo/internal/parse"
)

// ErrUnknownFrontend is returned by New for an unregistered name.
var ErrUnknownFrontend = errors.New("unknown frontend")

// Default is the frontend used when none is configured.
const Default = "treesitter"

// Frontend produces a translation unit from one input file. Implementations
// must be safe for concurrent use.
type Frontend interface {
	Analyze(ctx context.Context, path string, source []byte) (*model.TranslationUnit, error)
}

// Options configures the frontends that need it.
type Options struct {
	Clang        string
	ClangArgs    []string
	SkipIncluded bool
}

// Engine pairs a frontend with the input kinds it accepts.
type Engine struct {
	Name     string
	Frontend Frontend
	accepts  map[discover.Kind]bool
	dumps    Frontend
}

// For returns the frontend that handles kind. AST dumps are always decoded
// directly, whatever engine is selected. ok is false for inputs the engine
// skips.
func (e *Engine) For(kind discover.Kind) (Frontend, bool) {
	if kind == discover.ASTDump {
		return e.dumps, true
	}
	return e.Frontend, e.accepts[kind]
}

type constructor func(Options) (Frontend, []discover.Kind)

var registry = map[string]constructor{
	"treesitter": func(Options) (Frontend, []discover.Kind) {
		return NewTreeSitter(), []discover.Kind{discover.Source, discover.Header}
	},
	// Headers are not translation units on their own.
	"clang": func(o Options) (Frontend, []discover.Kind) {
		r := &clangast.Runner{
			Binary:  o.Clang,
			Args:    o.ClangArgs,
			Options: clangast.Options{SkipIncluded: o.SkipIncluded},
		}
		return r, []discover.Kind{discover.Source}
	},
}

// New builds the named engine.
func New(name string, opts Options) (*Engine, error) {
	if name == "" {
		name = Default
	}
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (available: %v)", ErrUnknownFrontend, name, Names())
	}
	fe, kinds := ctor(opts)
	e := &Engine{
		Name:     name,
		Frontend: fe,
		accepts:  make(map[discover.Kind]bool, len(kinds)),
		dumps:    &clangast.Dump{Options: clangast.Options{SkipIncluded: opts.SkipIncluded}},
	}
	for _, k := range kinds {
		e.accepts[k] = true
	}
	return e, nil
}

// Names lists the registered frontends in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TreeSitter parses with the tree-sitter C++ grammar. Parsers are not safe
// for concurrent use, so each call borrows one from a pool.
type TreeSitter struct {
	parsers sync.Pool
}

// NewTreeSitter returns a tree-sitter frontend.
func NewTreeSitter() *TreeSitter {
	ts := &TreeSitter{}
	ts.parsers.New = func() any {
		return lang.Languages[lang.CPP].NewParser()
	}
	return ts
}

// Analyze parses source.
func (ts *TreeSitter) Analyze(ctx context.Context, path string, source []byte) (*model.TranslationUnit, error) {
	p := ts.parsers.Get().(*sitter.Parser)
	defer ts.parsers.Put(p)
	return parse.Analyze(ctx, p, source, path)
}
