package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/feeledger-dev/feeledger/internal/auditlog"
	"github.com/feeledger-dev/feeledger/internal/migration"
	"github.com/feeledger-dev/feeledger/internal/model"
	"github.com/feeledger-dev/feeledger/internal/money"
	"github.com/feeledger-dev/feeledger/internal/roster"
	"github.com/feeledger-dev/feeledger/internal/sheet"
)

func newMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "One-time opening-balance migration",
	}
	migrateCmd.AddCommand(newMigrateCheckCommand())
	migrateCmd.AddCommand(newMigrateRunCommand())
	migrateCmd.AddCommand(newMigrateStatusCommand())
	return migrateCmd
}

func newMigrateCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check [file]",
		Short: "Validate an opening-balance spreadsheet without committing it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}

			store, closeStore, err := e.store()
			if err != nil {
				return err
			}
			defer closeStore()

			existing, err := store.Get(cmd.Context())
			if err != nil {
				return err
			}
			if existing != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: opening balances were already migrated on %s; this sheet cannot be committed\n",
					existing.CompletedAt.Format("2006-01-02"))
			}

			path, err := e.sheetPath(args)
			if err != nil {
				return err
			}
			plan, err := e.prepare(cmd, path)
			if err != nil {
				return err
			}
			printPlan(cmd.OutOrStdout(), path, plan)

			e.audit(auditlog.Entry{
				Action:  auditlog.ActionMigrationValidated,
				Details: fmt.Sprintf("file=%s rows=%d valid=%d invalid=%d", filepath.Base(path), len(plan.Rows), len(plan.Valid), len(plan.Invalid)),
			})

			if len(plan.Invalid) > 0 {
				return fmt.Errorf("%w: %d of %d rows", migration.ErrInvalidRows, len(plan.Invalid), len(plan.Rows))
			}
			return nil
		},
	}
}

func newMigrateRunCommand() *cobra.Command {
	var month string
	var yes bool

	cmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Commit opening balances from a spreadsheet (once per ledger)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			store, closeStore, err := e.store()
			if err != nil {
				return err
			}
			defer closeStore()

			svc := migration.NewService(e.root, store, e.log)
			existing, err := svc.Status(cmd.Context())
			if err != nil {
				return err
			}
			if existing != nil {
				return fmt.Errorf("%w: report %s committed %s", migration.ErrAlreadyMigrated,
					existing.ID, existing.CompletedAt.Format("2006-01-02"))
			}

			path, err := e.sheetPath(args)
			if err != nil {
				return err
			}
			plan, err := e.prepare(cmd, path)
			if err != nil {
				return err
			}

			students, err := e.students(cmd.Context())
			if err != nil {
				return err
			}

			report, err := svc.Commit(cmd.Context(), plan, migration.CommitParams{
				Month:      month,
				SourceFile: filepath.Base(path),
				Confirmed:  yes,
				Students:   roster.Build(roster.Active(students)),
			})
			switch {
			case errors.Is(err, migration.ErrInvalidRows):
				printPlan(cmd.ErrOrStderr(), path, plan)
				return err
			case errors.Is(err, migration.ErrNotConfirmed):
				printPlan(cmd.OutOrStdout(), path, plan)
				return fmt.Errorf("%w: re-run with --yes to commit", err)
			case err != nil:
				return err
			}

			if isImportFile(e.root, path) {
				if err := sheet.MarkProcessed(e.root, filepath.Base(path)); err != nil {
					e.log.Warn("could not move migrated sheet", zap.String("file", path), zap.Error(err))
				}
			}

			e.audit(auditlog.Entry{
				Action: auditlog.ActionMigrationCommitted,
				Details: fmt.Sprintf("month=%s file=%s students=%d pending_due=%s advance=%s",
					report.Month, report.SourceFile, report.StudentsCount,
					money.Format(report.TotalPendingDue), money.Format(report.TotalAdvance)),
				Ref: report.ID,
			})
			e.commit(fmt.Sprintf("migrate: opening balances for %s (%d students)", report.Month, report.StudentsCount))

			printReport(cmd.OutOrStdout(), &report)
			return nil
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "month the balances open (YYYY-MM, required)")
	_ = cmd.MarkFlagRequired("month")
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the migration")

	return cmd
}

func newMigrateStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the migration report, if any",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			store, closeStore, err := e.store()
			if err != nil {
				return err
			}
			defer closeStore()

			report, err := migration.NewService(e.root, store, e.log).Status(cmd.Context())
			if err != nil {
				return err
			}
			if report == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "No migration has been run.")
				return nil
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
}

// sheetPath returns the explicit file argument, or the single spreadsheet
// waiting in import/.
func (e *env) sheetPath(args []string) (string, error) {
	if len(args) > 0 {
		return filepath.Abs(args[0])
	}
	files, err := sheet.DefaultRegistry().Scan(e.root)
	if err != nil {
		return "", err
	}
	switch len(files) {
	case 0:
		return "", fmt.Errorf("no spreadsheet given and none found in import/")
	case 1:
		return files[0].Path, nil
	default:
		names := make([]string, len(files))
		for i, f := range files {
			names[i] = f.Name
		}
		return "", fmt.Errorf("several spreadsheets in import/, name one: %s", strings.Join(names, ", "))
	}
}

// prepare decodes a sheet and validates it against the active roster.
func (e *env) prepare(cmd *cobra.Command, path string) (*migration.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading spreadsheet: %w", err)
	}
	table, err := sheet.DefaultRegistry().DecodeBytes(filepath.Base(path), data)
	if err != nil {
		return nil, err
	}

	students, err := e.students(cmd.Context())
	if err != nil {
		return nil, err
	}
	plan, err := migration.Prepare(table, roster.Build(roster.Active(students)))
	if err != nil {
		return nil, err
	}

	e.log.Info("sheet validated",
		zap.String("file", filepath.Base(path)),
		zap.Int("rows", len(plan.Rows)),
		zap.Int("valid", len(plan.Valid)),
		zap.Int("invalid", len(plan.Invalid)))
	return plan, nil
}

func isImportFile(root, path string) bool {
	rel, err := filepath.Rel(filepath.Join(root, "import"), path)
	return err == nil && rel == filepath.Base(path)
}

func printPlan(out io.Writer, path string, plan *migration.Plan) {
	fmt.Fprintf(out, "%s: %d rows, %d valid, %d invalid\n", filepath.Base(path), len(plan.Rows), len(plan.Valid), len(plan.Invalid))
	fmt.Fprintf(out, "  Current month total: %s\n", money.Format(plan.TotalCurrentMonth))
	fmt.Fprintf(out, "  Pending due:         %s\n", money.Format(plan.TotalPendingDue))
	fmt.Fprintf(out, "  Advance:             %s\n", money.Format(plan.TotalAdvance))
	for _, line := range migration.RowErrors(plan.Rows) {
		fmt.Fprintf(out, "  %s\n", line)
	}
}

func printReport(out io.Writer, r *model.MigrationReport) {
	fmt.Fprintf(out, "Migration %s\n", r.ID)
	fmt.Fprintf(out, "  Month:        %s\n", r.Month)
	fmt.Fprintf(out, "  Completed:    %s\n", r.CompletedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(out, "  Source file:  %s\n", r.SourceFile)
	fmt.Fprintf(out, "  Students:     %d\n", r.StudentsCount)
	fmt.Fprintf(out, "  Pending due:  %s\n", money.Format(r.TotalPendingDue))
	fmt.Fprintf(out, "  Advance:      %s\n", money.Format(r.TotalAdvance))
	fmt.Fprintf(out, "  Rejected:     %d\n", r.RejectedRows)
}
