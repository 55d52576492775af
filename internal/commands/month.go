package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/feeledger-dev/feeledger/internal/auditlog"
	"github.com/feeledger-dev/feeledger/internal/id"
	"github.com/feeledger-dev/feeledger/internal/ledger"
)

func newMonthCommand() *cobra.Command {
	monthCmd := &cobra.Command{
		Use:   "month",
		Short: "Billing month lifecycle",
	}
	monthCmd.AddCommand(newMonthCloseCommand())
	return monthCmd
}

func newMonthCloseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "close <YYYY-MM>",
		Short: "Close a month to further billing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			year, mon, err := id.ParseMonth(args[0])
			if err != nil {
				return err
			}
			month := fmt.Sprintf("%04d-%02d", year, mon)

			if err := ledger.NewBook(e.root, nil, e.log).CloseMonth(month); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Closed %s\n", month)
			e.audit(auditlog.Entry{Action: auditlog.ActionMonthClosed, Ref: month})
			e.commit("month: close " + month)
			return nil
		},
	}
}
