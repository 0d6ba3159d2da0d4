package cli

import (
	"github.com/spf13/cobra"
)

func newAdherenceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "adherence",
		Short: "Track applied diets and exercises",
	}

	apply := &cobra.Command{
		Use:   "apply <record-id>",
		Short: "Mark a pending record as applied",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return Run(cmd, func(s *session) error {
				out, err := s.app.Adherence.MarkApplied(s.ctx, id)
				if err != nil {
					return err
				}
				return s.print(out)
			})
		},
	}

	var patientID uint
	progress := &cobra.Command{
		Use:   "progress",
		Short: "Applied share of diets and exercises",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePatient(patientID); err != nil {
				return err
			}
			return Run(cmd, func(s *session) error {
				out, err := s.app.Adherence.Progress(s.ctx, patientID)
				if err != nil {
					return err
				}
				return s.print(out)
			})
		},
	}
	pending := &cobra.Command{
		Use:   "pending",
		Short: "Records still waiting to be applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePatient(patientID); err != nil {
				return err
			}
			return Run(cmd, func(s *session) error {
				out, err := s.app.Adherence.Pending(s.ctx, patientID)
				if err != nil {
					return err
				}
				return s.print(out)
			})
		},
	}
	history := &cobra.Command{
		Use:   "history",
		Short: "Every record of the patient",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePatient(patientID); err != nil {
				return err
			}
			return Run(cmd, func(s *session) error {
				out, err := s.app.Adherence.History(s.ctx, patientID)
				if err != nil {
					return err
				}
				return s.print(out)
			})
		},
	}
	for _, c := range []*cobra.Command{progress, pending, history} {
		c.Flags().UintVarP(&patientID, "patient", "p", 0, "Patient id")
	}

	cmd.AddCommand(apply, progress, pending, history)
	return cmd
}
