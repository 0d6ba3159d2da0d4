package cli

import (
	"github.com/spf13/cobra"

	"github.com/vladimiradmaev/glucose-guide/internal/domain"
	"github.com/vladimiradmaev/glucose-guide/internal/services"
)

func newAlertsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Patient and physician alert feeds",
	}

	var patientID uint
	cmd.PersistentFlags().UintVarP(&patientID, "patient", "p", 0, "Patient id")

	feed := func(use, short string, fetch bool) *cobra.Command {
		var (
			audience string
			day      string
		)
		c := &cobra.Command{
			Use:   use,
			Short: short,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := requirePatient(patientID); err != nil {
					return err
				}
				return Run(cmd, func(s *session) error {
					filter := services.AlertFilter{
						PatientID: patientID,
						Audience:  domain.Audience(audience),
						Day:       day,
					}
					var (
						out []domain.Alert
						err error
					)
					if fetch {
						out, err = s.app.Alerts.FetchAlerts(s.ctx, filter)
					} else {
						out, err = s.app.Alerts.AlertHistory(s.ctx, filter)
					}
					if err != nil {
						return err
					}
					return s.print(out)
				})
			},
		}
		c.Flags().StringVarP(&audience, "audience", "a", string(domain.AudiencePatient), "patient or physician")
		c.Flags().StringVarP(&day, "day", "d", "", "Only alerts of this day")
		return c
	}

	var from, to string
	generate := &cobra.Command{
		Use:   "generate",
		Short: "Run the physician severity pass",
		Long: "Run the physician severity pass over [--from, --to], or over every day " +
			"the patient has readings on. A range spans at most 366 days. " +
			"Urgent alerts are sent to the patient's doctors.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePatient(patientID); err != nil {
				return err
			}
			return Run(cmd, func(s *session) error {
				res, err := s.app.Alerts.GeneratePhysicianAlerts(s.ctx, patientID, services.PhysicianPassOptions{From: from, To: to})
				if res != nil {
					if perr := s.print(res); perr != nil {
						return perr
					}
				}
				return err
			})
		},
	}
	generate.Flags().StringVar(&from, "from", "", "First day, inclusive")
	generate.Flags().StringVar(&to, "to", "", "Last day, inclusive")

	var day string
	completeness := &cobra.Command{
		Use:   "completeness",
		Short: "Re-evaluate the completeness alerts of one day",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePatient(patientID); err != nil {
				return err
			}
			return Run(cmd, func(s *session) error {
				out, err := s.app.Alerts.CheckCompleteness(s.ctx, patientID, day)
				if err != nil {
					return err
				}
				return s.print(out)
			})
		},
	}
	completeness.Flags().StringVarP(&day, "day", "d", "", "Day as 2006-01-02 or 02.01.2006")
	_ = completeness.MarkFlagRequired("day")

	firstCheck := &cobra.Command{
		Use:   "first-check",
		Short: "Flag a patient who never measured",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePatient(patientID); err != nil {
				return err
			}
			return Run(cmd, func(s *session) error {
				created, err := s.app.Alerts.CheckFirstMeasurement(s.ctx, patientID)
				if err != nil {
					return err
				}
				return s.print(map[string]bool{"created": created})
			})
		},
	}

	cmd.AddCommand(
		feed("fetch", "Show undelivered alerts and mark them delivered", true),
		feed("history", "Show every alert without marking", false),
		generate,
		completeness,
		firstCheck,
	)
	return cmd
}
