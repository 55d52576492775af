package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/feeledger-dev/feeledger/internal/auditlog"
)

func newLogCommand() *cobra.Command {
	var actions []string
	var ref, actor, since string
	var last int

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the audit trail of migrations, bills, payments and month closes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}

			q := auditlog.Query{Ref: ref, Actor: actor, Last: last}
			for _, name := range actions {
				a, err := auditlog.ParseAction(name)
				if err != nil {
					return err
				}
				q.Actions = append(q.Actions, a)
			}
			if since != "" {
				t, err := time.Parse("2006-01-02", since)
				if err != nil {
					return fmt.Errorf("invalid --since %q (want YYYY-MM-DD): %w", since, err)
				}
				q.Since = t
			}

			entries, err := auditlog.Read(e.root)
			if err != nil {
				return err
			}
			matched := auditlog.Select(entries, q)

			out := cmd.OutOrStdout()
			if len(matched) == 0 {
				fmt.Fprintln(out, "No audit entries.")
				return nil
			}
			for _, en := range matched {
				fmt.Fprintf(out, "%s  %-10s %-20s %-14s %s\n",
					en.Timestamp.UTC().Format(time.RFC3339), en.Actor, en.Action, en.Ref, en.Details)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&actions, "action", nil, "only these actions (e.g. bill.generated,payment.recorded)")
	cmd.Flags().StringVar(&ref, "ref", "", "only this report, bill (with its payments) or month")
	cmd.Flags().StringVar(&actor, "by", "", "only entries recorded by this actor")
	cmd.Flags().StringVar(&since, "since", "", "only entries on or after this date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&last, "last", 0, "only the most recent N entries")

	return cmd
}
