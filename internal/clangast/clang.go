package clangast

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/phobologic/typeinfo/internal/model"
)

// DefaultBinary is the compiler driver used when none is configured.
const DefaultBinary = "clang++"

// ClangError reports a compiler run that exited unsuccessfully.
type ClangError struct {
	Path     string
	ExitCode int
	Stderr   string
}

func (e *ClangError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	if msg == "" {
		return fmt.Sprintf("clang failed on %s (exit %d)", e.Path, e.ExitCode)
	}
	return fmt.Sprintf("clang failed on %s (exit %d): %s", e.Path, e.ExitCode, msg)
}

// Runner invokes clang to dump the AST of a source file.
type Runner struct {
	Binary string
	Args   []string
	Options
}

// Command returns the argument vector used for path.
func (r *Runner) Command(path string) []string {
	bin := r.Binary
	if bin == "" {
		bin = DefaultBinary
	}
	argv := []string{bin, "-fsyntax-only", "-Xclang", "-ast-dump=json"}
	argv = append(argv, r.Args...)
	return append(argv, path)
}

// Analyze compiles path and converts its AST. The source bytes are not used;
// clang reads the file itself so that relative includes resolve.
func (r *Runner) Analyze(ctx context.Context, path string, _ []byte) (*model.TranslationUnit, error) {
	argv := r.Command(path)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &ClangError{Path: path, ExitCode: exitErr.ExitCode(), Stderr: stderr.String()}
		}
		return nil, fmt.Errorf("running %s: %w", argv[0], err)
	}

	root, files, err := Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	tu := Convert(root, files, path, r.Options)
	tu.Diagnostics = ParseDiagnostics(stderr.String())
	return tu, nil
}

// Dump converts pre-generated JSON dumps.
type Dump struct {
	Options
}

// Analyze decodes source as a JSON AST.
func (d *Dump) Analyze(_ context.Context, path string, source []byte) (*model.TranslationUnit, error) {
	root, files, err := Decode(bytes.NewReader(source))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return Convert(root, files, path, d.Options), nil
}

var diagnosticLine = regexp.MustCompile(`^(.+?):(\d+):(\d+): (?:warning|error|fatal error): (.*)$`)

// ParseDiagnostics extracts "file:line:col: warning: msg" lines from compiler
// output. Notes and context lines are ignored.
func ParseDiagnostics(stderr string) []model.Diagnostic {
	var diags []model.Diagnostic
	for _, line := range strings.Split(stderr, "\n") {
		m := diagnosticLine.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m == nil {
			continue
		}
		ln, _ := strconv.Atoi(m[2])
		col, _ := strconv.Atoi(m[3])
		diags = append(diags, model.Diagnostic{Path: m[1], Line: ln, Column: col, Message: m[4]})
	}
	return diags
}
