package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/feeledger-dev/feeledger/internal/config"
	"github.com/feeledger-dev/feeledger/internal/gitops"
	"github.com/feeledger-dev/feeledger/internal/ledger"
	"github.com/feeledger-dev/feeledger/internal/roster"
)

func newInitCommand() *cobra.Command {
	var name string
	var store string
	var useGit bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new fee ledger",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd.OutOrStdout(), absDir, name, store, useGit)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "institution name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&store, "store", "file", "migration report store: file or sqlite")
	cmd.Flags().BoolVar(&useGit, "git", true, "track the ledger in git and auto-commit changes")

	return cmd
}

func runInit(out io.Writer, dir, name, store string, useGit bool) error {
	if _, err := os.Stat(filepath.Join(dir, config.FileName)); err == nil {
		return fmt.Errorf("%s already exists in %s", config.FileName, dir)
	}

	dirs := []string{
		"roster",
		"fees",
		"migration",
		"logs",
		"import",
		filepath.Join("import", "processed"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	cfg := config.Default(name)
	cfg.Migration.Store = store
	cfg.Git.AutoCommit = useGit
	if err := config.Validate(cfg); err != nil {
		return err
	}
	if err := config.Save(filepath.Join(dir, config.FileName), cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	if err := roster.Save(roster.DefaultPath(dir), nil); err != nil {
		return fmt.Errorf("writing roster: %w", err)
	}

	f, err := os.Create(ledger.StructurePath(dir))
	if err != nil {
		return fmt.Errorf("creating fee structure: %w", err)
	}
	if err := ledger.WriteStructure(f, ledger.NewStructure(nil)); err != nil {
		f.Close()
		return fmt.Errorf("writing fee structure: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing fee structure: %w", err)
	}

	// Staged temp files and the sqlite journal never belong in history.
	gitignore := "migration/.report-*\nmigration/.openings-*\nmigration/report.db-*\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "import", ".gitkeep"), []byte{}, 0o644); err != nil {
		return fmt.Errorf("writing .gitkeep: %w", err)
	}

	if !useGit {
		fmt.Fprintf(out, "Initialized fee ledger at %s\n", dir)
		return nil
	}

	if err := gitops.Init(dir); err != nil {
		return fmt.Errorf("git init: %w", err)
	}
	hash, err := gitops.CommitAll(dir, "init: Initialize "+name, cfg.Git.AuthorName, cfg.Git.AuthorEmail)
	if err != nil {
		return fmt.Errorf("initial commit: %w", err)
	}

	fmt.Fprintf(out, "Initialized fee ledger at %s (%s)\n", dir, hash)
	return nil
}
