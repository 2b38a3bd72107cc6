// typeinfo reports the classes declared in C++ translation units: their
// bases, fields and methods.
package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/phobologic/typeinfo/internal/config"
	"github.com/phobologic/typeinfo/internal/discover"
	"github.com/phobologic/typeinfo/internal/frontend"
	"github.com/phobologic/typeinfo/internal/graph"
	"github.com/phobologic/typeinfo/internal/model"
	"github.com/phobologic/typeinfo/internal/plugin"
	"github.com/phobologic/typeinfo/internal/ranking"
)

var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

type options struct {
	frontend     string
	clang        string
	clangArgs    []string
	skipIncluded bool
	format       string
	output       string
	maxFiles     int
	class        string
	cachePath    string
	maxFileSize  int
	strict       bool
	configPath   string
	verbose      bool
	pluginArgs   []string
	showVersion  bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "typeinfo [flags] [path...]",
		Short: "Report the classes declared in C++ sources",
		Long: `typeinfo prints, for every class, struct and union defined at the top level of
each C++ translation unit, its base classes, its fields with their types and
access, and its methods with their return types, access and virtual dispatch.

Paths may be source files, headers, JSON AST dumps (clang -Xclang
-ast-dump=json) or directories, which are searched recursively. The default is
the current directory.

` + actionHelp(),
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.showVersion {
				_, _ = fmt.Fprintf(stdout, "typeinfo %s\n", version)
				return nil
			}
			return runReport(cmd, opts, args, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	f := cmd.Flags()
	f.StringVar(&opts.frontend, "frontend", frontend.Default, fmt.Sprintf("analysis frontend %v", frontend.Names()))
	f.StringVar(&opts.clang, "clang", "clang++", "clang driver used by the clang frontend")
	f.StringArrayVar(&opts.clangArgs, "clang-arg", nil, "extra argument passed to clang (repeatable)")
	f.BoolVar(&opts.skipIncluded, "skip-included", false, "with clang ASTs, skip declarations from #included files")
	f.StringVar(&opts.format, "format", config.FormatText, "output format: text or toon")
	f.StringVarP(&opts.output, "output", "o", "", "write output to file instead of stdout")
	f.IntVarP(&opts.maxFiles, "max-files", "n", 0, "report only the N files most depended on by the class hierarchy")
	f.StringVar(&opts.class, "class", "", "report only classes whose name contains this text")
	f.StringVar(&opts.cachePath, "cache", "", "cache file path")
	f.IntVar(&opts.maxFileSize, "max-file-size", 1_000_000, "skip files larger than this many bytes")
	f.BoolVar(&opts.strict, "strict", false, "fail on frontend diagnostics and unreadable files")
	f.StringVar(&opts.configPath, "config", config.DefaultPath, "config file")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "log progress to stderr")
	f.StringArrayVar(&opts.pluginArgs, "plugin-arg", nil, "argument for the "+plugin.PrintDataTypeInfo+" action (accepted and ignored)")
	f.BoolVarP(&opts.showVersion, "version", "V", false, "show version and exit")

	cmd.AddCommand(newInitCmd(stdout, stderr))
	return cmd
}

// actionHelp lists the registered report actions with their descriptions.
func actionHelp() string {
	var b strings.Builder
	b.WriteString("Report actions (--format text runs " + plugin.PrintDataTypeInfo + "):\n")
	for _, name := range plugin.Names() {
		fmt.Fprintf(&b, "  %-22s %s\n", name, plugin.Describe(name))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// settings merges the config file, the environment and explicitly set flags,
// in increasing precedence.
func settings(cmd *cobra.Command, opts *options) (*config.Config, error) {
	flags := cmd.Flags()
	cfg, err := config.LoadConfig(opts.configPath, flags.Changed("config"))
	if err != nil {
		return nil, err
	}
	if flags.Changed("frontend") {
		cfg.Frontend = opts.frontend
	}
	if flags.Changed("clang") {
		cfg.Clang.Binary = opts.clang
	}
	if flags.Changed("clang-arg") {
		cfg.Clang.Args = opts.clangArgs
	}
	if flags.Changed("skip-included") {
		cfg.Clang.SkipIncluded = opts.skipIncluded
	}
	if flags.Changed("format") {
		cfg.Output.Format = opts.format
	}
	if flags.Changed("max-files") {
		cfg.Output.MaxFiles = opts.maxFiles
	}
	if flags.Changed("max-file-size") {
		cfg.Output.MaxFileSize = opts.maxFileSize
	}
	if flags.Changed("strict") {
		cfg.Strict = opts.strict
	}
	return cfg, cfg.Validate()
}

func newLogger(stderr io.Writer, verbose bool) *slog.Logger {
	if !verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func runReport(cmd *cobra.Command, opts *options, args []string, stdout, stderr io.Writer) error {
	cfg, err := settings(cmd, opts)
	if err != nil {
		return err
	}
	logger := newLogger(stderr, opts.verbose)

	engine, err := frontend.New(cfg.Frontend, frontend.Options{
		Clang:        cfg.Clang.Binary,
		ClangArgs:    cfg.Clang.Args,
		SkipIncluded: cfg.Clang.SkipIncluded,
	})
	if err != nil {
		return err
	}

	actionName := plugin.PrintDataTypeInfo
	if cfg.Output.Format == config.FormatToon {
		actionName = plugin.Toon
	}
	action, err := plugin.Lookup(actionName)
	if err != nil {
		return err
	}
	if !action.ParseArgs(opts.pluginArgs) {
		return fmt.Errorf("%s: invalid plugin arguments %q", actionName, opts.pluginArgs)
	}

	if len(args) == 0 {
		args = []string{"."}
	}
	files, err := discover.Paths(args)
	if err != nil {
		return err
	}
	logger.Debug("discovered inputs", "count", len(files), "frontend", engine.Name)

	// Check cache freshness
	if opts.cachePath != "" && cacheIsFresh(opts.cachePath, files) {
		data, err := os.ReadFile(opts.cachePath)
		if err == nil {
			logger.Debug("using cache", "path", opts.cachePath)
			return emit(opts.output, stdout, data)
		}
	}

	files = filterBySize(files, cfg.Output.MaxFileSize, stderr)
	files = filterByEngine(engine, files, logger)
	if len(files) == 0 {
		return fmt.Errorf("%w (after size and frontend filters)", discover.ErrNoInput)
	}

	tus, failures := analyzeConcurrent(cmd.Context(), engine, files, stderr, logger)
	if err := cmd.Context().Err(); err != nil {
		return err
	}
	if cfg.Strict && failures > 0 {
		return fmt.Errorf("%d file(s) had errors or diagnostics (--strict)", failures)
	}
	if len(tus) == 0 {
		return fmt.Errorf("no files could be analyzed")
	}

	edges := graph.Resolve(tus)
	logger.Debug("resolved hierarchy", "edges", len(edges))

	if cfg.Output.MaxFiles > 0 {
		ranks := graph.Rank(tus, edges)
		tus = ranking.SelectFiles(tus, ranks, cfg.Output.MaxFiles)
	}
	if opts.class != "" {
		tus = ranking.FilterByClass(tus, opts.class)
	}

	var buf bytes.Buffer
	if err := action.Run(&buf, tus); err != nil {
		return fmt.Errorf("%s: %w", actionName, err)
	}

	// Write cache
	if opts.cachePath != "" {
		if err := os.WriteFile(opts.cachePath, buf.Bytes(), 0o644); err != nil {
			_, _ = fmt.Fprintf(stderr, "Warning: writing cache %s: %v\n", opts.cachePath, err)
		}
	}

	return emit(opts.output, stdout, buf.Bytes())
}

// emit writes data to the output file, or to stdout when none is set.
func emit(path string, stdout io.Writer, data []byte) error {
	if path == "" {
		_, err := stdout.Write(data)
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

func cacheIsFresh(cachePath string, files []discover.FileEntry) bool {
	cacheInfo, err := os.Stat(cachePath)
	if err != nil {
		return false
	}
	cacheMtime := cacheInfo.ModTime()

	for _, f := range files {
		fi, err := os.Stat(f.Abs)
		if err != nil {
			return false
		}
		if !fi.ModTime().Before(cacheMtime) {
			return false
		}
	}
	return true
}

func filterBySize(files []discover.FileEntry, maxSize int, stderr io.Writer) []discover.FileEntry {
	if maxSize <= 0 {
		return files
	}
	var kept []discover.FileEntry
	for _, f := range files {
		fi, err := os.Stat(f.Abs)
		if err != nil {
			kept = append(kept, f) // keep if can't stat
			continue
		}
		// AST dumps are routinely far larger than their source.
		if f.Kind != discover.ASTDump && fi.Size() > int64(maxSize) {
			_, _ = fmt.Fprintf(stderr, "Warning: %s: skipped (>%d bytes)\n", f.Path, maxSize)
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

func filterByEngine(engine *frontend.Engine, files []discover.FileEntry, logger *slog.Logger) []discover.FileEntry {
	var kept []discover.FileEntry
	for _, f := range files {
		if _, ok := engine.For(f.Kind); !ok {
			logger.Debug("skipping input not accepted by frontend", "path", f.Path, "frontend", engine.Name)
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

// analyzeConcurrent runs the frontend over files with a bounded pool of
// workers and returns the units in input order. failures counts files that
// could not be analyzed or produced diagnostics; each is reported as a
// warning.
func analyzeConcurrent(ctx context.Context, engine *frontend.Engine, files []discover.FileEntry, stderr io.Writer, logger *slog.Logger) (tus []*model.TranslationUnit, failures int) {
	type result struct {
		index int
		tu    *model.TranslationUnit
		fail  bool
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	work := make(chan int, len(files))
	results := make(chan result, len(files))

	var wg sync.WaitGroup
	var stderrMu sync.Mutex
	warn := func(format string, args ...any) {
		stderrMu.Lock()
		defer stderrMu.Unlock()
		_, _ = fmt.Fprintf(stderr, "Warning: "+format+"\n", args...)
	}

	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for idx := range work {
				if ctx.Err() != nil {
					continue
				}
				f := files[idx]
				fe, _ := engine.For(f.Kind)

				source, err := os.ReadFile(f.Abs)
				if err != nil {
					warn("failed to read %s: %v", f.Path, err)
					results <- result{index: idx, fail: true}
					continue
				}

				tu, err := fe.Analyze(ctx, f.Abs, source)
				if err != nil {
					warn("failed to analyze %s: %v", f.Path, err)
					results <- result{index: idx, fail: true}
					continue
				}
				relabel(tu, f)
				for _, d := range tu.Diagnostics {
					warn("%s:%d:%d: %s", d.Path, d.Line, d.Column, d.Message)
				}
				logger.Debug("analyzed", "path", f.Path, "decls", len(tu.Decls), "diagnostics", len(tu.Diagnostics))
				results <- result{index: idx, tu: tu, fail: len(tu.Diagnostics) > 0}
			}
		}()
	}

	for i := range files {
		work <- i
	}
	close(work)

	go func() {
		wg.Wait()
		close(results)
	}()

	// Collect results in original order
	indexed := make([]*model.TranslationUnit, len(files))
	for r := range results {
		indexed[r.index] = r.tu
		if r.fail {
			failures++
		}
	}

	for _, tu := range indexed {
		if tu != nil {
			tus = append(tus, tu)
		}
	}
	return tus, failures
}

// relabel replaces the absolute path a frontend was given with the path the
// file is displayed under.
func relabel(tu *model.TranslationUnit, f discover.FileEntry) {
	tu.Path = f.Path
	for i := range tu.Diagnostics {
		if tu.Diagnostics[i].Path == f.Abs || tu.Diagnostics[i].Path == "" {
			tu.Diagnostics[i].Path = f.Path
		}
	}
}
