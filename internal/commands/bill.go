package commands

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/feeledger-dev/feeledger/internal/auditlog"
	"github.com/feeledger-dev/feeledger/internal/id"
	"github.com/feeledger-dev/feeledger/internal/ledger"
	"github.com/feeledger-dev/feeledger/internal/money"
	"github.com/feeledger-dev/feeledger/internal/pagination"
	"github.com/feeledger-dev/feeledger/internal/printout"
)

func newBillCommand() *cobra.Command {
	billCmd := &cobra.Command{
		Use:   "bill",
		Short: "Monthly bills and payments",
	}
	billCmd.AddCommand(newBillGenerateCommand())
	billCmd.AddCommand(newBillPayCommand())
	billCmd.AddCommand(newBillPrintCommand())
	billCmd.AddCommand(newBillBalanceCommand())
	return billCmd
}

func newBillGenerateCommand() *cobra.Command {
	var month, class, section string
	var include []string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the month's bills for active students",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("include") {
				include = e.cfg.Fees.Include
			}
			inc, err := ledger.ParseInclusion(include, e.cfg.Fees.Categories)
			if err != nil {
				return err
			}
			students, err := e.students(cmd.Context())
			if err != nil {
				return err
			}
			fees, err := ledger.LoadStructure(e.root)
			if err != nil {
				return err
			}

			book := ledger.NewBook(e.root, fees, e.log)
			bills, skipped, err := book.GenerateBills(filterStudents(students, class, section), month, inc)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			entries := make([]auditlog.Entry, 0, len(bills))
			for _, b := range bills {
				fmt.Fprintf(out, "%s  %-12s %-4s %-3s %-5s net payable %s\n",
					b.ID, b.StudentID, b.Class, b.Section, b.Roll, money.Format(b.Summary.NetPayable))
				entries = append(entries, auditlog.Entry{
					Action:  auditlog.ActionBillGenerated,
					Details: fmt.Sprintf("student=%s month=%s net_payable=%s", b.StudentID, b.Month, money.Format(b.Summary.NetPayable)),
					Ref:     b.ID,
				})
			}
			for _, s := range skipped {
				fmt.Fprintf(cmd.ErrOrStderr(), "skipped: %v\n", s)
			}
			fmt.Fprintf(out, "Generated %d bills for %s (%d skipped)\n", len(bills), month, len(skipped))

			if len(entries) > 0 {
				e.audit(entries...)
				e.commit(fmt.Sprintf("bill: generate %d bills for %s", len(bills), month))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "billing month (YYYY-MM, required)")
	_ = cmd.MarkFlagRequired("month")
	cmd.Flags().StringVar(&class, "class", "", "only this class")
	cmd.Flags().StringVar(&section, "section", "", "only this section")
	cmd.Flags().StringSliceVar(&include, "include", nil, "optional fees to bill (exam, annual, computer, transport)")

	return cmd
}

func newBillPayCommand() *cobra.Command {
	var amount, mode, date, ref string

	cmd := &cobra.Command{
		Use:   "pay <bill-id>",
		Short: "Record a payment against a bill",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}

			amt, err := money.ParseString(amount)
			if err != nil {
				if errors.Is(err, money.ErrNegative) {
					return fmt.Errorf("%w: %v", ledger.ErrInvalidAmount, err)
				}
				return fmt.Errorf("parsing --amount: %w", err)
			}
			pm, err := ledger.ParseMode(mode)
			if err != nil {
				return err
			}
			var paid time.Time
			if date != "" {
				paid, err = time.Parse("2006-01-02", date)
				if err != nil {
					return fmt.Errorf("parsing --date (want YYYY-MM-DD): %w", err)
				}
			}

			book := ledger.NewBook(e.root, nil, e.log)
			p, err := book.RecordPayment(ledger.PaymentParams{
				BillID:    args[0],
				Amount:    amt,
				Mode:      pm,
				Date:      paid,
				Reference: ref,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s: %s %s on %s (remaining %s, advance created %s)\n",
				p.ID, money.Format(p.Amount), p.Mode, p.Date.Format("2006-01-02"),
				money.Format(p.Remaining), money.Format(p.AdvanceCreated))

			e.audit(auditlog.Entry{
				Action: auditlog.ActionPaymentRecorded,
				Details: fmt.Sprintf("bill=%s student=%s amount=%s mode=%s remaining=%s advance_created=%s",
					p.BillID, p.StudentID, money.Format(p.Amount), p.Mode, money.Format(p.Remaining), money.Format(p.AdvanceCreated)),
				Ref: p.ID,
			})
			e.commit(fmt.Sprintf("bill: payment %s (%s)", p.ID, money.Format(p.Amount)))
			return nil
		},
	}

	cmd.Flags().StringVar(&amount, "amount", "", "amount paid (required)")
	_ = cmd.MarkFlagRequired("amount")
	cmd.Flags().StringVar(&mode, "mode", "cash", "payment mode: cash, bank, cheque, online")
	cmd.Flags().StringVar(&date, "date", "", "payment date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&ref, "ref", "", "receipt or transaction reference")

	return cmd
}

func newBillPrintCommand() *cobra.Command {
	var month, outPath string
	var page, perPage int

	cmd := &cobra.Command{
		Use:   "print",
		Short: "Lay out the month's bills on print pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			if _, _, err := id.ParseMonth(month); err != nil {
				return err
			}

			bills, err := ledger.NewBook(e.root, nil, e.log).ReadBills(month)
			if err != nil {
				return err
			}
			if len(bills) == 0 {
				return fmt.Errorf("no bills generated for %s", month)
			}

			if perPage == 0 {
				perPage = e.cfg.Print.PerPage
			}
			pages := pagination.Paginate(bills, perPage)
			if page > 0 {
				p, err := pagination.PageFor(pages, page)
				if err != nil {
					return err
				}
				pages = []pagination.Page{p}
			}

			if outPath == "" {
				return printout.Text(cmd.OutOrStdout(), pages, e.institution())
			}

			f, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("creating %s: %w", outPath, err)
			}
			if err := printout.WriteWorkbook(f, pages, e.institution()); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("closing %s: %w", outPath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d pages (%d bills) to %s\n", len(pages), countBills(pages), outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "billing month (YYYY-MM, required)")
	_ = cmd.MarkFlagRequired("month")
	cmd.Flags().IntVar(&page, "page", 0, "reprint only this page")
	cmd.Flags().IntVar(&perPage, "per-page", 0, "bills per page (default from config)")
	cmd.Flags().StringVar(&outPath, "out", "", "write an xlsx workbook instead of a text preview")

	return cmd
}

func newBillBalanceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "balance <student-id>",
		Short: "Show a student's carried due and advance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			bal, err := ledger.NewBook(e.root, nil, e.log).Balance(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  due %s  advance %s\n", args[0], money.Format(bal.Due), money.Format(bal.Advance))
			return nil
		},
	}
}

func countBills(pages []pagination.Page) int {
	n := 0
	for _, p := range pages {
		n += p.Occupied()
	}
	return n
}
