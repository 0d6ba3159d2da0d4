package services_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/vladimiradmaev/glucose-guide/internal/domain"
	apperrors "github.com/vladimiradmaev/glucose-guide/internal/errors"
	"github.com/vladimiradmaev/glucose-guide/internal/services"
)

var _ = Describe("RecommendationService", func() {
	var (
		e       *env
		patient *domain.User
	)

	BeforeEach(func() {
		e = newEnv()
		patient = e.patient()
	})

	prescribe := func(day string, level float64, symptoms ...string) *services.Prescription {
		out, err := e.recommendation.Prescribe(e.ctx, services.PrescriptionInput{
			PatientID: patient.ID,
			Level:     level,
			Symptoms:  symptoms,
			Day:       day,
			At:        at(0, "09:15"),
		})
		Expect(err).ToNot(HaveOccurred())
		return out
	}

	Describe("Prescribe", func() {
		It("stores a pending diet and exercise record for a matching rule", func() {
			out := prescribe(testDay, 152, "Poliüri", "Polidipsi")
			Expect(out.Matched).To(BeTrue())
			Expect(out.Diet).To(Equal("Şekersiz Diyet"))
			Expect(out.Exercise).To(Equal("Klinik Egzersiz"))
			Expect(out.Records).To(HaveLen(2))
			Expect(out.Records[0].Kind).To(Equal(domain.KindDiet))
			Expect(out.Records[0].Time).To(Equal("09:15:00"))
			Expect(out.Records[1].Item.Name).To(Equal("Klinik Egzersiz"))

			pending, err := e.adherence.Pending(e.ctx, patient.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(pending).To(HaveLen(2))
			for _, r := range pending {
				Expect(r.Applied).To(BeFalse())
				Expect(r.Day).To(Equal(testDay))
			}
		})

		It("stores nothing when the symptoms are a superset of every rule", func() {
			out := prescribe(testDay, 152, "Poliüri", "Polidipsi", "Kilo Kaybı")
			Expect(out.Matched).To(BeFalse())
			Expect(out.Records).To(BeEmpty())

			history, err := e.adherence.History(e.ctx, patient.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(history).To(BeEmpty())
		})

		It("reuses catalogue items across prescriptions", func() {
			first := prescribe(testDay, 152, "Poliüri", "Polidipsi")
			second := prescribe(dayOf(1), 160, "polidipsi", "POLIURI")
			Expect(second.Records[0].ItemID).To(Equal(first.Records[0].ItemID))
			Expect(second.Records[1].ItemID).To(Equal(first.Records[1].ItemID))
		})

		DescribeTable("rejects invalid input",
			func(in services.PrescriptionInput) {
				_, err := e.recommendation.Prescribe(e.ctx, in)
				Expect(apperrors.IsType(err, apperrors.ErrorTypeValidation)).To(BeTrue())
			},
			Entry("no symptoms", services.PrescriptionInput{PatientID: 1, Level: 120}),
			Entry("blank symptom", services.PrescriptionInput{PatientID: 1, Level: 120, Symptoms: []string{""}}),
			Entry("level out of range", services.PrescriptionInput{PatientID: 1, Level: 900, Symptoms: []string{"Poliüri"}}),
			Entry("bad day", services.PrescriptionInput{PatientID: 1, Level: 120, Symptoms: []string{"Poliüri"}, Day: "someday"}),
		)
	})

	Describe("Items", func() {
		It("lists each prescribed item once", func() {
			prescribe(testDay, 152, "Poliüri", "Polidipsi")
			prescribe(dayOf(1), 152, "Poliüri", "Polidipsi")

			diets, err := e.recommendation.Items(e.ctx, domain.KindDiet)
			Expect(err).ToNot(HaveOccurred())
			Expect(diets).To(HaveLen(1))
			Expect(diets[0].Name).To(Equal("Şekersiz Diyet"))

			exercises, err := e.recommendation.Items(e.ctx, domain.KindExercise)
			Expect(err).ToNot(HaveOccurred())
			Expect(exercises).To(HaveLen(1))
			Expect(exercises[0].Kind).To(Equal(domain.KindExercise))
		})

		It("is empty before anything is prescribed", func() {
			items, err := e.recommendation.Items(e.ctx, domain.KindDiet)
			Expect(err).ToNot(HaveOccurred())
			Expect(items).To(BeEmpty())
		})

		It("rejects an unknown kind", func() {
			_, err := e.recommendation.Items(e.ctx, "snack")
			Expect(apperrors.IsType(err, apperrors.ErrorTypeValidation)).To(BeTrue())
		})
	})

	It("offers the catalogue vocabulary", func() {
		Expect(e.recommendation.Symptoms()).To(HaveLen(8))
		Expect(e.recommendation.Symptoms()).To(ContainElement("Poliüri"))
	})

	Describe("AdherenceService", func() {
		It("reports the applied share per kind", func() {
			var diets []domain.AdherenceRecord
			for i := 0; i < 4; i++ {
				out := prescribe(dayOf(i), 152, "Poliüri", "Polidipsi")
				diets = append(diets, out.Records[0])
			}
			for _, r := range diets[:3] {
				applied, err := e.adherence.MarkApplied(e.ctx, r.ID)
				Expect(err).ToNot(HaveOccurred())
				Expect(applied.Applied).To(BeTrue())
				Expect(applied.AppliedAt).ToNot(BeNil())
			}

			progress, err := e.adherence.Progress(e.ctx, patient.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(progress.DietPercent).To(BeNumerically("==", 75.0))
			Expect(progress.ExercisePercent).To(BeNumerically("==", 0))

			pending, err := e.adherence.Pending(e.ctx, patient.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(pending).To(HaveLen(5))
		})

		It("reports zero for a patient without records", func() {
			progress, err := e.adherence.Progress(e.ctx, patient.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(progress.DietPercent).To(BeZero())
			Expect(progress.ExercisePercent).To(BeZero())
		})

		It("rounds to one decimal", func() {
			var diets []domain.AdherenceRecord
			for i := 0; i < 3; i++ {
				diets = append(diets, prescribe(dayOf(i), 152, "Poliüri", "Polidipsi").Records[0])
			}
			_, err := e.adherence.MarkApplied(e.ctx, diets[0].ID)
			Expect(err).ToNot(HaveOccurred())

			progress, err := e.adherence.Progress(e.ctx, patient.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(progress.DietPercent).To(BeNumerically("==", 33.3))
		})

		It("applies at most one item of a kind per day", func() {
			first := prescribe(testDay, 152, "Poliüri", "Polidipsi")
			second := prescribe(testDay, 152, "Poliüri", "Polidipsi")

			_, err := e.adherence.MarkApplied(e.ctx, first.Records[0].ID)
			Expect(err).ToNot(HaveOccurred())

			_, err = e.adherence.MarkApplied(e.ctx, second.Records[0].ID)
			Expect(errors.Is(err, apperrors.ErrAlreadyApplied)).To(BeTrue())

			_, err = e.adherence.MarkApplied(e.ctx, first.Records[0].ID)
			Expect(errors.Is(err, apperrors.ErrAlreadyApplied)).To(BeTrue())

			// The exercise of the same day is still open.
			_, err = e.adherence.MarkApplied(e.ctx, second.Records[1].ID)
			Expect(err).ToNot(HaveOccurred())
		})

		It("reports an unknown record", func() {
			_, err := e.adherence.MarkApplied(e.ctx, 999)
			Expect(errors.Is(err, apperrors.ErrNotFound)).To(BeTrue())
		})
	})
})
