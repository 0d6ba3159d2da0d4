package cli

import (
	"github.com/spf13/cobra"
)

func newInsulinCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insulin",
		Short: "Daily averages and insulin suggestions",
	}

	var (
		patientID uint
		day       string
	)
	cmd.PersistentFlags().UintVarP(&patientID, "patient", "p", 0, "Patient id")

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the suggestion of one day",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePatient(patientID); err != nil {
				return err
			}
			return Run(cmd, func(s *session) error {
				out, err := s.app.Insulin.Suggestion(s.ctx, patientID, day)
				if err != nil {
					return err
				}
				return s.print(out)
			})
		},
	}

	recompute := &cobra.Command{
		Use:   "recompute",
		Short: "Recompute the suggestion of one day from its readings",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePatient(patientID); err != nil {
				return err
			}
			return Run(cmd, func(s *session) error {
				out, err := s.app.Insulin.Recompute(s.ctx, patientID, day)
				if err != nil {
					return err
				}
				return s.print(out)
			})
		},
	}

	for _, c := range []*cobra.Command{show, recompute} {
		c.Flags().StringVarP(&day, "day", "d", "", "Day as 2006-01-02 or 02.01.2006")
		_ = c.MarkFlagRequired("day")
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List every suggestion, newest day first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePatient(patientID); err != nil {
				return err
			}
			return Run(cmd, func(s *session) error {
				out, err := s.app.Insulin.Suggestions(s.ctx, patientID)
				if err != nil {
					return err
				}
				return s.print(out)
			})
		},
	}

	chart := &cobra.Command{
		Use:   "chart",
		Short: "Daily averages for charting, oldest day first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePatient(patientID); err != nil {
				return err
			}
			return Run(cmd, func(s *session) error {
				out, err := s.app.Insulin.DailyAverages(s.ctx, patientID)
				if err != nil {
					return err
				}
				return s.print(out)
			})
		},
	}

	cmd.AddCommand(show, recompute, list, chart)
	return cmd
}
