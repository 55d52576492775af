package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/feeledger-dev/feeledger/internal/id"
	"github.com/feeledger-dev/feeledger/internal/model"
	"github.com/feeledger-dev/feeledger/internal/roster"
)

func newRosterCommand() *cobra.Command {
	rosterCmd := &cobra.Command{
		Use:   "roster",
		Short: "Student roster snapshot",
	}
	rosterCmd.AddCommand(newRosterShowCommand())
	rosterCmd.AddCommand(newRosterImportCommand())
	return rosterCmd
}

func newRosterShowCommand() *cobra.Command {
	var class, section string
	var all bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "List students in the roster snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			students, err := e.students(cmd.Context())
			if err != nil {
				return err
			}

			shown := filterStudents(students, class, section)
			if !all {
				shown = roster.Active(shown)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-12s %-6s %-8s %-6s %-7s %s\n", "ID", "CLASS", "SECTION", "ROLL", "STATUS", "NAME")
			for _, s := range shown {
				fmt.Fprintf(out, "%-12s %-6s %-8s %-6s %-7s %s\n", s.ID, s.Class, s.Section, s.Roll, s.Status, s.Name)
			}
			fmt.Fprintf(out, "%d of %d students (%d active)\n", len(shown), len(students), len(roster.Active(students)))
			return nil
		},
	}

	cmd.Flags().StringVar(&class, "class", "", "only this class")
	cmd.Flags().StringVar(&section, "section", "", "only this section")
	cmd.Flags().BoolVar(&all, "all", false, "include students who have left")

	return cmd
}

func newRosterImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <students.json|students.csv>",
		Short: "Replace the roster snapshot with an export from the student service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			students, err := roster.FileSource{Path: args[0]}.Students(cmd.Context())
			if err != nil {
				return err
			}
			if err := roster.Save(roster.DefaultPath(e.root), students); err != nil {
				return err
			}

			idx := roster.Build(students)
			if idx.Len() != len(students) {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %d students share a class/section/roll\n", len(students)-idx.Len())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d students (%d active) from %s\n",
				len(students), len(roster.Active(students)), filepath.Base(args[0]))
			e.commit("roster: import " + filepath.Base(args[0]))
			return nil
		},
	}
}

// filterStudents keeps students matching class and section; empty matches all.
func filterStudents(students []model.StudentRecord, class, section string) []model.StudentRecord {
	class = id.CanonicalClass(class)
	section = id.CanonicalSection(section)

	var out []model.StudentRecord
	for _, s := range students {
		if class != "" && id.CanonicalClass(s.Class) != class {
			continue
		}
		if section != "" && id.CanonicalSection(s.Section) != section {
			continue
		}
		out = append(out, s)
	}
	return out
}
