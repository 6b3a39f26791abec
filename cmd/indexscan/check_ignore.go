package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/IvanShishkin/indexscan/internal/config"
	"github.com/IvanShishkin/indexscan/internal/core"
	"github.com/spf13/cobra"
)

// checkIgnoreCmd creates the check-ignore command
func checkIgnoreCmd() *cobra.Command {
	var (
		root   string
		ignore []string
	)

	cmd := &cobra.Command{
		Use:   "check-ignore <path>...",
		Short: "Show which ignore rule decides each path",
		Long: `For every path prints "<source>:<line>:<pattern>\t<path>", or "::\t<path>" when no rule
matches. Paths are relative to the root unless absolute. A trailing "/" marks a directory
that does not exist on disk.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("root") {
				cfg.Root = root
			}
			if cmd.Flags().Changed("ignore") {
				cfg.Ignore = ignore
			}

			opts, err := cfg.ScanOptions()
			if err != nil {
				return err
			}
			scanner := core.NewScanner(opts, logger)
			canonical, err := scanner.ResolveRoot()
			if err != nil {
				return err
			}
			rules, err := scanner.LoadRules()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, arg := range args {
				rel, isDir, err := relativeTo(canonical, arg)
				if err != nil {
					return err
				}
				if r, ok := rules.Match(rel, isDir); ok {
					fmt.Fprintf(out, "%s:%d:%s\t%s\n", r.Source, r.Line, r.Pattern, arg)
				} else {
					fmt.Fprintf(out, "::\t%s\n", arg)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&root, "root", "r", ".", "Scan root the paths are relative to")
	cmd.Flags().StringSliceVar(&ignore, "ignore", nil, "Extra ignore patterns, applied last")

	return cmd
}

// relativeTo converts a user-supplied path into a forward-slash path relative to root
func relativeTo(root, arg string) (string, bool, error) {
	isDir := strings.HasSuffix(arg, "/") || strings.HasSuffix(arg, string(filepath.Separator))

	full := arg
	if !filepath.IsAbs(full) {
		full = filepath.Join(root, arg)
	} else if resolved, err := filepath.EvalSymlinks(full); err == nil {
		full = resolved
	}
	if info, err := os.Stat(full); err == nil {
		isDir = info.IsDir()
	}

	rel, err := filepath.Rel(root, full)
	if err != nil {
		return "", false, fmt.Errorf("path %s is not under %s: %w", arg, root, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false, fmt.Errorf("path %s is outside %s", arg, root)
	}
	return filepath.ToSlash(rel), isDir, nil
}
