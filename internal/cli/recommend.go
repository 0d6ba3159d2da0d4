package cli

import (
	"github.com/spf13/cobra"

	"github.com/vladimiradmaev/glucose-guide/internal/domain"
	"github.com/vladimiradmaev/glucose-guide/internal/services"
)

func newRecommendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Diet and exercise recommendations",
	}

	var (
		patientID uint
		level     float64
		symptoms  []string
		day       string
	)
	prescribe := &cobra.Command{
		Use:   "prescribe",
		Short: "Resolve a recommendation and store it as pending",
		Long: "Resolve the diet and exercise for a level and an exact symptom set. " +
			"Nothing is stored when no rule matches.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePatient(patientID); err != nil {
				return err
			}
			return Run(cmd, func(s *session) error {
				out, err := s.app.Recommendation.Prescribe(s.ctx, services.PrescriptionInput{
					PatientID: patientID,
					Level:     level,
					Symptoms:  symptoms,
					Day:       day,
				})
				if err != nil {
					return err
				}
				return s.print(out)
			})
		},
	}
	prescribe.Flags().UintVarP(&patientID, "patient", "p", 0, "Patient id")
	prescribe.Flags().Float64VarP(&level, "level", "l", 0, "Glucose level in mg/dL")
	prescribe.Flags().StringSliceVarP(&symptoms, "symptom", "s", nil, "Symptom, repeat or separate with commas")
	prescribe.Flags().StringVarP(&day, "day", "d", "", "Day of the records, defaults to today")
	_ = prescribe.MarkFlagRequired("level")

	list := &cobra.Command{
		Use:   "symptoms",
		Short: "List the symptoms the rule table knows",
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(cmd, func(s *session) error {
				return s.print(s.app.Recommendation.Symptoms())
			})
		},
	}

	var kind string
	items := &cobra.Command{
		Use:   "items",
		Short: "List the diets or exercises prescribed so far",
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(cmd, func(s *session) error {
				out, err := s.app.Recommendation.Items(s.ctx, domain.AdherenceKind(kind))
				if err != nil {
					return err
				}
				return s.print(out)
			})
		},
	}
	items.Flags().StringVarP(&kind, "kind", "k", string(domain.KindDiet), "diet or exercise")

	cmd.AddCommand(prescribe, list, items)
	return cmd
}
