// Package plugin registers the named actions that render analyzed translation
// units, the way a compiler registers frontend plugins.
package plugin

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/phobologic/typeinfo/internal/model"
	"github.com/phobologic/typeinfo/internal/report"
	"github.com/phobologic/typeinfo/internal/toon"
)

// PrintDataTypeInfo is the name the declaration reporter is registered under.
const PrintDataTypeInfo = "print-data-type-info"

// Toon is the name of the TOON encoder action.
const Toon = "toon"

// ErrUnknownAction is returned by Lookup for an unregistered name.
var ErrUnknownAction = errors.New("unknown plugin action")

// Action is a registered plugin.
type Action interface {
	// ParseArgs receives the plugin's arguments and reports whether they
	// were accepted.
	ParseArgs(args []string) bool
	// Run renders tus to w.
	Run(w io.Writer, tus []*model.TranslationUnit) error
}

// Entry is a registered action with its description.
type Entry struct {
	Name        string
	Description string
	Action      Action
}

var (
	mu      sync.RWMutex
	entries = map[string]Entry{}
)

// Register adds an action. Registering a name twice panics.
func Register(name, description string, a Action) {
	mu.Lock()
	defer mu.Unlock()
	if _, dup := entries[name]; dup {
		panic(fmt.Sprintf("plugin: %q registered twice", name))
	}
	entries[name] = Entry{Name: name, Description: description, Action: a}
}

// Lookup returns the named action.
func Lookup(name string) (Action, error) {
	mu.RLock()
	defer mu.RUnlock()
	e, ok := entries[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownAction, name)
	}
	return e.Action, nil
}

// Names lists the registered action names in sorted order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe returns the description registered for name.
func Describe(name string) string {
	mu.RLock()
	defer mu.RUnlock()
	return entries[name].Description
}

func init() {
	Register(PrintDataTypeInfo, "print classes with their bases, fields and methods", reporter{})
	Register(Toon, "print classes, fields and methods as TOON tables", toonEncoder{})
}

// reporter prints the class report.
type reporter struct{}

// ParseArgs accepts and ignores any argument.
func (reporter) ParseArgs([]string) bool { return true }

func (reporter) Run(w io.Writer, tus []*model.TranslationUnit) error {
	return report.ReportAll(w, tus)
}

type toonEncoder struct{}

func (toonEncoder) ParseArgs([]string) bool { return true }

func (toonEncoder) Run(w io.Writer, tus []*model.TranslationUnit) error {
	_, err := fmt.Fprintln(w, toon.Encode(tus))
	return err
}
