// Package graph resolves the class hierarchy across translation units and
// ranks files by how much of the hierarchy depends on them.
package graph

import (
	"math"
	"sort"
	"strings"

	"github.com/phobologic/typeinfo/internal/cxx"
	"github.com/phobologic/typeinfo/internal/model"
)

// Inheritance is an edge from a derived class to one of its direct bases.
// BaseFile is empty when the base is not defined in any analyzed unit.
type Inheritance struct {
	Derived  string
	Base     string
	File     string
	BaseFile string
}

// Hierarchy indexes complete class definitions by qualified name.
type Hierarchy struct {
	classes map[string]*model.ClassDecl
	byName  map[string][]*model.ClassDecl
	files   map[*model.ClassDecl]string
}

// BuildHierarchy indexes the complete, user-written classes of tus, hidden
// ones included. When a qualified name is defined more than once, the first
// definition in unit order wins. Edges are only built for reported classes.
func BuildHierarchy(tus []*model.TranslationUnit) (*Hierarchy, []Inheritance) {
	h := &Hierarchy{
		classes: make(map[string]*model.ClassDecl),
		byName:  make(map[string][]*model.ClassDecl),
		files:   make(map[*model.ClassDecl]string),
	}
	for _, tu := range tus {
		for _, c := range tu.Classes() {
			h.add(c, tu.Path)
		}
		for _, c := range tu.Hidden {
			h.add(c, tu.Path)
		}
	}

	var edges []Inheritance
	for _, tu := range tus {
		for _, c := range tu.Classes() {
			if !c.Reportable() {
				continue
			}
			for _, b := range c.Bases {
				e := Inheritance{Derived: c.Name, Base: lookupKey(b.Type), File: tu.Path}
				if base, ok := h.Base(c, b.Type); ok {
					e.Base = base.QualifiedName()
					e.BaseFile = h.files[base]
				}
				edges = append(edges, e)
			}
		}
	}

	sort.SliceStable(edges, func(i, j int) bool {
		if edges[i].File != edges[j].File {
			return edges[i].File < edges[j].File
		}
		return edges[i].Derived < edges[j].Derived
	})
	return h, edges
}

func (h *Hierarchy) add(c *model.ClassDecl, path string) {
	if !c.Reportable() || c.Name == "" {
		return
	}
	q := c.QualifiedName()
	if _, dup := h.classes[q]; dup {
		return
	}
	h.classes[q] = c
	h.byName[c.Name] = append(h.byName[c.Name], c)
	h.files[c] = path
}

// Base resolves a base-class spelling written in c. Enclosing namespaces are
// searched from the innermost outwards, as C++ name lookup does. When that
// fails, a single known class whose qualified name ends in the spelling is
// taken, which covers names brought in by using-directives; if several
// classes match, the base stays unresolved.
func (h *Hierarchy) Base(c *model.ClassDecl, spelling string) (*model.ClassDecl, bool) {
	name := lookupKey(spelling)
	if name == "" {
		return nil, false
	}
	if strings.HasPrefix(name, "::") {
		base, ok := h.classes[name[2:]]
		return base, ok && base != c
	}

	scope := c.Scope
	for {
		if base, ok := h.classes[qualify(scope, name)]; ok && base != c {
			return base, true
		}
		if scope == "" {
			break
		}
		scope = parentScope(scope)
	}

	var match *model.ClassDecl
	for _, cand := range h.byName[cxx.Unqualified(name)] {
		if cand == c || !strings.HasSuffix("::"+cand.QualifiedName(), "::"+name) {
			continue
		}
		if match != nil {
			return nil, false
		}
		match = cand
	}
	return match, match != nil
}

// lookupKey reduces a base spelling to a comparable class name: template
// arguments and whitespace are dropped.
func lookupKey(spelling string) string {
	spelling = strings.TrimPrefix(strings.TrimSpace(spelling), "typename ")
	return strings.Join(strings.Fields(cxx.StripTemplateArgs(spelling)), "")
}

func qualify(scope, name string) string {
	if scope == "" {
		return name
	}
	return scope + "::" + name
}

func parentScope(scope string) string {
	if i := strings.LastIndex(scope, "::"); i >= 0 {
		return scope[:i]
	}
	return ""
}

// Resolve records, for every method of every class in tus, the base-class
// methods it overrides. A method overrides a virtual method of a transitive
// base with the same name, parameter types and constness; such a method is
// virtual even when not declared so. A method marked override whose base
// cannot be found still counts as an override; final alone does not.
func Resolve(tus []*model.TranslationUnit) []Inheritance {
	h, edges := BuildHierarchy(tus)
	r := &resolver{h: h, state: make(map[*model.ClassDecl]int)}
	for _, tu := range tus {
		for _, c := range tu.Classes() {
			if c.Complete {
				r.class(c)
			}
		}
	}
	return edges
}

type resolver struct {
	h     *Hierarchy
	state map[*model.ClassDecl]int // 1 in progress, 2 done
}

// class resolves the bases of c before c itself, so that virtuality gained
// by overriding is visible to derived classes.
func (r *resolver) class(c *model.ClassDecl) {
	if r.state[c] != 0 {
		return
	}
	r.state[c] = 1
	for _, base := range r.h.bases(c) {
		r.class(base)
	}
	for _, m := range c.Methods() {
		r.h.resolveMethod(c, m)
	}
	r.state[c] = 2
}

// bases returns the resolvable direct bases of c.
func (h *Hierarchy) bases(c *model.ClassDecl) []*model.ClassDecl {
	out := make([]*model.ClassDecl, 0, len(c.Bases))
	for _, b := range c.Bases {
		if base, ok := h.Base(c, b.Type); ok {
			out = append(out, base)
		}
	}
	return out
}

func (h *Hierarchy) resolveMethod(c *model.ClassDecl, m *model.MethodDecl) {
	m.Overrides = nil
	if m.Static || m.Role == model.RoleConstructor {
		return
	}

	sig := cxx.Signature(m)
	if m.Role == model.RoleDestructor {
		sig = "~"
	}

	visited := map[*model.ClassDecl]struct{}{c: {}}
	queue := h.bases(c)
	for len(queue) > 0 {
		base := queue[0]
		queue = queue[1:]
		if _, seen := visited[base]; seen {
			continue
		}
		visited[base] = struct{}{}

		for _, bm := range base.Methods() {
			if !isVirtualCandidate(bm) {
				continue
			}
			bsig := cxx.Signature(bm)
			if bm.Role == model.RoleDestructor {
				bsig = "~"
			}
			if bsig == sig {
				m.Overrides = append(m.Overrides, base.QualifiedName()+"::"+bm.Name)
			}
		}
		queue = append(queue, h.bases(base)...)
	}

	if len(m.Overrides) > 0 {
		m.Virtual = true
		return
	}
	if m.MarkedOverride {
		m.Overrides = []string{m.Name}
	}
}

// isVirtualCandidate reports whether bm can be overridden.
func isVirtualCandidate(bm *model.MethodDecl) bool {
	return bm.Virtual || bm.Pure || len(bm.Overrides) > 0
}

// Rank applies PageRank to units over file-level inheritance edges: a file
// defining a derived class links to the file defining its base. Units with no
// edges share the uniform rank.
func Rank(tus []*model.TranslationUnit, edges []Inheritance) map[string]float64 {
	if len(tus) == 0 {
		return nil
	}

	nodes := make(map[string]struct{}, len(tus))
	for _, tu := range tus {
		nodes[tu.Path] = struct{}{}
	}

	outEdges := make(map[string][]string)
	outDegree := make(map[string]int)
	for _, e := range edges {
		if e.BaseFile == "" || e.BaseFile == e.File {
			continue
		}
		outEdges[e.File] = append(outEdges[e.File], e.BaseFile)
		outDegree[e.File]++
	}

	if len(outEdges) == 0 {
		uniform := 1.0 / float64(len(nodes))
		ranks := make(map[string]float64, len(nodes))
		for n := range nodes {
			ranks[n] = uniform
		}
		return ranks
	}

	return pageRank(nodes, outEdges, outDegree, 0.85, 100, 1e-6)
}

func pageRank(
	nodes map[string]struct{},
	outEdges map[string][]string,
	outDegree map[string]int,
	alpha float64,
	maxIter int,
	tol float64,
) map[string]float64 {
	n := len(nodes)
	if n == 0 {
		return nil
	}

	rank := make(map[string]float64, n)
	initial := 1.0 / float64(n)
	for node := range nodes {
		rank[node] = initial
	}

	teleport := (1.0 - alpha) / float64(n)

	for iter := 0; iter < maxIter; iter++ {
		newRank := make(map[string]float64, n)

		// Dangling node contribution (nodes with no outgoing edges)
		var danglingSum float64
		for node := range nodes {
			if outDegree[node] == 0 {
				danglingSum += rank[node]
			}
		}
		danglingContrib := alpha * danglingSum / float64(n)

		for node := range nodes {
			newRank[node] = teleport + danglingContrib
		}

		for src, targets := range outEdges {
			deg := float64(outDegree[src])
			contrib := alpha * rank[src] / deg
			for _, tgt := range targets {
				newRank[tgt] += contrib
			}
		}

		var diff float64
		for node := range nodes {
			diff += math.Abs(newRank[node] - rank[node])
		}

		rank = newRank

		if diff < tol {
			break
		}
	}

	return rank
}
