// Package report renders the class summary of a translation unit.
package report

import (
	"io"
	"strings"

	"github.com/phobologic/typeinfo/internal/model"
)

const (
	baseArrow     = " -> "
	fieldsHeader  = "\n|_Fields\n"
	methodsHeader = "|\n|_Methods\n"
	itemPrefix    = "| |_ "
)

// dispatchSuffix is indexed by model.Dispatch; ordinary methods get no suffix.
var dispatchSuffix = [...]string{
	model.DispatchOrdinary:    "",
	model.DispatchVirtual:     "|virtual",
	model.DispatchOverride:    "|override",
	model.DispatchPureVirtual: "|virtual|pure",
}

// Report writes one block per reportable class of tu, in declaration order.
// A unit without reportable classes produces no output.
func Report(w io.Writer, tu *model.TranslationUnit) error {
	var b strings.Builder
	for _, d := range tu.Decls {
		c, ok := d.(*model.ClassDecl)
		if !ok || !c.Reportable() {
			continue
		}
		writeClass(&b, c)
	}
	if b.Len() == 0 {
		return nil
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// ReportAll reports each unit in turn.
func ReportAll(w io.Writer, tus []*model.TranslationUnit) error {
	for _, tu := range tus {
		if err := Report(w, tu); err != nil {
			return err
		}
	}
	return nil
}

func writeClass(b *strings.Builder, c *model.ClassDecl) {
	b.WriteString(c.Name)
	for _, base := range c.Bases {
		b.WriteString(baseArrow)
		b.WriteString(base.Type)
	}

	b.WriteString(fieldsHeader)
	for _, f := range c.Fields() {
		b.WriteString(itemPrefix)
		b.WriteString(f.Name)
		b.WriteString(" (")
		b.WriteString(f.Type)
		b.WriteString("|")
		b.WriteString(f.Access.String())
		b.WriteString(")\n")
	}

	b.WriteString(methodsHeader)
	for _, m := range c.Methods() {
		if m.Excluded() {
			continue
		}
		b.WriteString(itemPrefix)
		b.WriteString(m.Name)
		b.WriteString(" (")
		b.WriteString(m.ReturnType)
		b.WriteString("()|")
		b.WriteString(m.Access.String())
		b.WriteString(Suffix(m.Dispatch()))
		b.WriteString(")\n")
	}

	b.WriteString("\n")
}

// Suffix returns the method-line tag for d.
func Suffix(d model.Dispatch) string {
	if d < 0 || int(d) >= len(dispatchSuffix) {
		return ""
	}
	return dispatchSuffix[d]
}
