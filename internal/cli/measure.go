package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	apperrors "github.com/vladimiradmaev/glucose-guide/internal/errors"
	"github.com/vladimiradmaev/glucose-guide/internal/services"
)

func newMeasureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "measure",
		Short: "Blood glucose readings",
	}
	cmd.AddCommand(newMeasureAddCmd(), newMeasureDeleteCmd(), newMeasureListCmd())
	return cmd
}

func newMeasureAddCmd() *cobra.Command {
	var (
		patientID uint
		level     float64
		at        string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a reading",
		Long: "Record a reading for a patient. The time is read in the clinic time zone " +
			"unless it carries an offset; it defaults to now.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePatient(patientID); err != nil {
				return err
			}
			return Run(cmd, func(s *session) error {
				measuredAt, err := parseTime(at, s.cfg.Location())
				if err != nil {
					return err
				}
				res, err := s.app.BloodSugar.Record(s.ctx, services.RecordInput{
					PatientID:  patientID,
					Level:      level,
					MeasuredAt: measuredAt,
				})
				if err != nil {
					return err
				}
				return s.print(res)
			})
		},
	}
	cmd.Flags().UintVarP(&patientID, "patient", "p", 0, "Patient id")
	cmd.Flags().Float64VarP(&level, "level", "l", 0, "Glucose level in mg/dL")
	cmd.Flags().StringVar(&at, "at", "", "Time of the reading")
	_ = cmd.MarkFlagRequired("level")
	return cmd
}

func newMeasureDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <measurement-id>",
		Short: "Delete a reading and recompute its day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return Run(cmd, func(s *session) error {
				if err := s.app.BloodSugar.DeleteMeasurement(s.ctx, id); err != nil {
					return err
				}
				return s.print(map[string]interface{}{"deleted": id})
			})
		},
	}
}

func newMeasureListCmd() *cobra.Command {
	var (
		patientID uint
		from, to  string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a patient's readings, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePatient(patientID); err != nil {
				return err
			}
			return Run(cmd, func(s *session) error {
				out, err := s.app.BloodSugar.Measurements(s.ctx, patientID, from, to)
				if err != nil {
					return err
				}
				return s.print(out)
			})
		},
	}
	cmd.Flags().UintVarP(&patientID, "patient", "p", 0, "Patient id")
	cmd.Flags().StringVar(&from, "from", "", "First day, inclusive")
	cmd.Flags().StringVar(&to, "to", "", "Last day, inclusive")
	return cmd
}

func parseID(value string) (uint, error) {
	id, err := strconv.ParseUint(value, 10, 0)
	if err != nil || id == 0 {
		return 0, apperrors.NewValidationError("invalid id " + strconv.Quote(value))
	}
	return uint(id), nil
}
