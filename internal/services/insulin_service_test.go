package services_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/vladimiradmaev/glucose-guide/internal/domain"
	apperrors "github.com/vladimiradmaev/glucose-guide/internal/errors"
)

var _ = Describe("InsulinService", func() {
	var (
		e       *env
		patient *domain.User
	)

	BeforeEach(func() {
		e = newEnv()
		patient = e.patient()
	})

	Describe("Recompute", func() {
		It("is idempotent", func() {
			e.record(patient.ID, 160, at(0, "07:30"))
			e.record(patient.ID, 180, at(0, "12:30"))

			first, err := e.insulin.Recompute(e.ctx, patient.ID, testDay)
			Expect(err).ToNot(HaveOccurred())
			second, err := e.insulin.Recompute(e.ctx, patient.ID, testDay)
			Expect(err).ToNot(HaveOccurred())

			Expect(second.ID).To(Equal(first.ID))
			Expect(second.Average).To(BeNumerically("==", 170))
			Expect(second.Dose).To(Equal(2))
			Expect(second.ReadingCount).To(Equal(2))

			all, err := e.insulin.Suggestions(e.ctx, patient.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(all).To(HaveLen(1))
		})

		It("ignores unclassified readings", func() {
			e.record(patient.ID, 100, at(0, "07:30"))
			e.record(patient.ID, 400, at(0, "10:30"))

			suggestion, err := e.insulin.Recompute(e.ctx, patient.ID, testDay)
			Expect(err).ToNot(HaveOccurred())
			Expect(suggestion.Average).To(BeNumerically("==", 100))
			Expect(suggestion.ReadingCount).To(Equal(1))
		})

		It("returns nothing for a day without classified readings", func() {
			suggestion, err := e.insulin.Recompute(e.ctx, patient.ID, testDay)
			Expect(err).ToNot(HaveOccurred())
			Expect(suggestion).To(BeNil())
		})

		It("rejects a malformed day", func() {
			_, err := e.insulin.Recompute(e.ctx, patient.ID, "2025-13-01")
			Expect(apperrors.IsType(err, apperrors.ErrorTypeValidation)).To(BeTrue())
		})
	})

	Describe("DailyAverages", func() {
		It("lists days oldest first with reliability and hypoglycemia flags", func() {
			e.record(patient.ID, 60, at(1, "07:30"))
			e.record(patient.ID, 70, at(1, "12:30"))

			e.record(patient.ID, 100, at(0, "07:30"))
			e.record(patient.ID, 120, at(0, "12:30"))
			e.record(patient.ID, 140, at(0, "15:30"))

			points, err := e.insulin.DailyAverages(e.ctx, patient.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(points).To(HaveLen(2))

			Expect(points[0].Day).To(Equal(testDay))
			Expect(points[0].Average).To(BeNumerically("==", 120))
			Expect(points[0].Dose).To(Equal(1))
			Expect(points[0].Reliable).To(BeTrue())
			Expect(points[0].Hypoglycemia).To(BeFalse())

			Expect(points[1].Day).To(Equal(dayOf(1)))
			Expect(points[1].Average).To(BeNumerically("==", 65))
			Expect(points[1].Dose).To(Equal(0))
			Expect(points[1].Reliable).To(BeFalse())
			Expect(points[1].Hypoglycemia).To(BeTrue())

			history, err := e.insulin.Suggestions(e.ctx, patient.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(history[0].Day).To(Equal(dayOf(1)))
		})
	})
})
