// Package ranking selects which translation units and classes are reported.
package ranking

import (
	"sort"
	"strings"

	"github.com/phobologic/typeinfo/internal/model"
)

// SelectFiles returns the maxFiles highest-ranked units, kept in their
// original order. If maxFiles is <= 0 or >= len(tus), tus is returned as is.
// Ties are broken by original position.
func SelectFiles(tus []*model.TranslationUnit, ranks map[string]float64, maxFiles int) []*model.TranslationUnit {
	if maxFiles <= 0 || maxFiles >= len(tus) {
		return tus
	}

	order := make([]int, len(tus))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return ranks[tus[order[i]].Path] > ranks[tus[order[j]].Path]
	})

	keep := order[:maxFiles]
	sort.Ints(keep)

	selected := make([]*model.TranslationUnit, 0, maxFiles)
	for _, i := range keep {
		selected = append(selected, tus[i])
	}
	return selected
}

// FilterByClass returns copies of tus that keep only the class declarations
// whose name contains substr (case-insensitive). Other declarations are
// dropped; units left without classes are omitted. An empty substr returns tus
// unchanged.
func FilterByClass(tus []*model.TranslationUnit, substr string) []*model.TranslationUnit {
	if substr == "" {
		return tus
	}
	lower := strings.ToLower(substr)

	var out []*model.TranslationUnit
	for _, tu := range tus {
		var decls []model.Decl
		for _, c := range tu.Classes() {
			if strings.Contains(strings.ToLower(c.Name), lower) {
				decls = append(decls, c)
			}
		}
		if len(decls) == 0 {
			continue
		}
		out = append(out, &model.TranslationUnit{
			Path:        tu.Path,
			Decls:       decls,
			Diagnostics: tu.Diagnostics,
		})
	}
	return out
}
