package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phobologic/typeinfo/internal/config"
	"github.com/phobologic/typeinfo/internal/frontend"
)

// newInitCmd implements `typeinfo init`, which writes a commented default
// config file.
func newInitCmd(stdout, stderr io.Writer) *cobra.Command {
	var dryRun, force bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a default " + config.DefaultPath,
		Long: `Write a commented default config file. path defaults to ./` + config.DefaultPath + `.
An existing file is left alone unless --force is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := generateConfig()
			if err != nil {
				return err
			}

			// --dry-run with no path: just print the file.
			if dryRun {
				_, _ = fmt.Fprint(stdout, content)
				return nil
			}

			path := config.DefaultPath
			if len(args) > 0 {
				path = args[0]
			}

			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", path)
				} else if !errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("checking %s: %w", path, err)
				}
			}

			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}

			_, _ = fmt.Fprintf(stderr, "wrote default config to %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the config instead of writing it")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

// generateConfig renders the default settings as YAML under an explanatory
// header.
func generateConfig() (string, error) {
	data, err := config.Default().Marshal()
	if err != nil {
		return "", fmt.Errorf("encoding default config: %w", err)
	}

	header := []string{
		"# typeinfo configuration.",
		"#",
		"# frontend: " + strings.Join(frontend.Names(), " or ") + ". The clang frontend runs",
		"#   clang.binary -fsyntax-only -Xclang -ast-dump=json with clang.args on",
		"#   each source file; headers are only analyzed through the sources that",
		"#   include them.",
		"# clang.skip_included: drop declarations that come from #included files.",
		"# output.format: " + config.FormatText + " or " + config.FormatToon + ".",
		"# output.max_files: report only the N files most depended on (0 = all).",
		"# output.max_file_size: skip larger sources, in bytes (0 = no limit).",
		"# strict: fail when a file cannot be analyzed cleanly.",
		"#",
		"# " + config.EnvFrontend + ", " + config.EnvClang + " and " + config.EnvFormat +
			" override these,",
		"# and command-line flags override everything.",
	}
	return strings.Join(header, "\n") + "\n" + string(data), nil
}
