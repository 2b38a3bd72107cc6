// Package discover finds C++ inputs in a source tree.
package discover

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/phobologic/typeinfo/internal/lang"
)

// ErrNoInput is returned when the given paths hold nothing to analyze.
var ErrNoInput = errors.New("no C++ input files found")

// Kind says how an input file is fed to a frontend.
type Kind int

const (
	Source Kind = iota
	Header
	ASTDump // clang -ast-dump=json output
)

// astDumpSuffix marks JSON AST dumps picked up from directories.
const astDumpSuffix = ".ast.json"

// FileEntry represents a discovered input file.
type FileEntry struct {
	Path     string // Relative to the root it was found under, or as given
	Abs      string
	Language string
	Kind     Kind
}

var skipDirs = map[string]struct{}{
	".git":         {},
	".hg":          {},
	".svn":         {},
	"node_modules": {},
	"build":        {},
	"cmake-build":  {},
	"out":          {},
	"third_party":  {},
	"vendor":       {},
	"_deps":        {},
	"CMakeFiles":   {},
}

// Classify returns the language and kind of a file name. ok is false for files
// that are neither C++ nor an AST dump.
func Classify(name string) (language string, kind Kind, ok bool) {
	if strings.HasSuffix(name, astDumpSuffix) || strings.EqualFold(filepath.Ext(name), ".json") {
		return lang.CPP, ASTDump, true
	}
	ext := filepath.Ext(name)
	langName := lang.ForExtension(ext)
	if langName == "" {
		return "", 0, false
	}
	if lang.Languages[langName].IsHeader(ext) {
		return langName, Header, true
	}
	return langName, Source, true
}

// Paths expands command-line arguments into input files. Directories are
// walked with Files; files are taken as given, whatever their extension
// says, provided it is recognized. When more than one directory is given,
// each directory's paths are prefixed with the argument that named it, so
// that units from different trees stay distinct. The result keeps argument
// order, and each directory's files are sorted. ErrNoInput is returned when
// nothing is found.
func Paths(args []string) ([]FileEntry, error) {
	dirs := 0
	for _, arg := range args {
		if info, err := os.Stat(arg); err == nil && info.IsDir() {
			dirs++
		}
	}

	var out []FileEntry
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", arg, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("input path: %w", err)
		}
		if info.IsDir() {
			files, err := Files(abs)
			if err != nil {
				return nil, fmt.Errorf("discovering files in %s: %w", arg, err)
			}
			if dirs > 1 {
				for i := range files {
					files[i].Path = filepath.Join(arg, files[i].Path)
				}
			}
			out = append(out, files...)
			continue
		}
		langName, kind, ok := Classify(info.Name())
		if !ok {
			return nil, fmt.Errorf("%s: not a C++ source, header or AST dump", arg)
		}
		out = append(out, FileEntry{Path: arg, Abs: abs, Language: langName, Kind: kind})
	}
	if len(out) == 0 {
		return nil, ErrNoInput
	}
	return out, nil
}

// Files discovers C++ sources, headers and AST dumps under root.
func Files(root string) ([]FileEntry, error) {
	gitFiles := gitLsFiles(root)
	var gi *ignore.GitIgnore
	if gitFiles == nil {
		gi = loadGitignore(root)
	}

	var results []FileEntry

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors
		}

		name := d.Name()

		if d.IsDir() {
			if path == root {
				return nil
			}
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "cmake-build-") {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") {
			return nil
		}

		// Skip symlinks
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}

		if gitFiles != nil {
			if _, ok := gitFiles[filepath.ToSlash(rel)]; !ok {
				return nil
			}
		} else if gi != nil && gi.MatchesPath(rel) {
			return nil
		}

		// Only dumps named *.ast.json are picked up from directories; other
		// JSON files are far more likely to be configuration.
		if strings.HasSuffix(name, ".json") && !strings.HasSuffix(name, astDumpSuffix) {
			return nil
		}

		langName, kind, ok := Classify(name)
		if !ok {
			return nil
		}

		results = append(results, FileEntry{Path: rel, Abs: path, Language: langName, Kind: kind})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})

	return results, nil
}

func gitLsFiles(root string) map[string]struct{} {
	gitDir := filepath.Join(root, ".git")
	info, err := os.Stat(gitDir)
	if err != nil || !info.IsDir() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil
	}

	files := make(map[string]struct{})
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line != "" {
			files[line] = struct{}{}
		}
	}
	return files
}

func loadGitignore(root string) *ignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return gi
}
