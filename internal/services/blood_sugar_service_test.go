package services_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/vladimiradmaev/glucose-guide/internal/clinical"
	"github.com/vladimiradmaev/glucose-guide/internal/domain"
	apperrors "github.com/vladimiradmaev/glucose-guide/internal/errors"
	"github.com/vladimiradmaev/glucose-guide/internal/events"
	"github.com/vladimiradmaev/glucose-guide/internal/repository"
	"github.com/vladimiradmaev/glucose-guide/internal/services"
)

var _ = Describe("BloodSugarService", func() {
	var (
		e       *env
		patient *domain.User
	)

	BeforeEach(func() {
		e = newEnv()
		patient = e.patient()
	})

	Describe("Record", func() {
		It("classifies the reading and derives the day's suggestion", func() {
			res := e.record(patient.ID, 140, at(0, "08:00"))
			Expect(res.Warnings).To(BeEmpty())
			Expect(res.Measurement.ID).ToNot(BeZero())
			Expect(res.Measurement.Slot).To(Equal(domain.SlotMorning))
			Expect(res.Measurement.Day).To(Equal(testDay))

			suggestion, err := e.insulin.Suggestion(e.ctx, patient.ID, testDay)
			Expect(err).ToNot(HaveOccurred())
			Expect(suggestion.Average).To(BeNumerically("==", 140))
			Expect(suggestion.Dose).To(Equal(1))
			Expect(suggestion.ReadingCount).To(Equal(1))
		})

		It("stores an unclassified reading with a warning and leaves the average alone", func() {
			res := e.record(patient.ID, 300, at(0, "10:15"))
			Expect(res.Measurement.Slot).To(Equal(domain.SlotNone))
			Expect(res.Warnings).To(ConsistOf(services.UnclassifiedWarning))

			_, err := e.insulin.Suggestion(e.ctx, patient.ID, testDay)
			Expect(apperrors.IsType(err, apperrors.ErrorTypeNotFound)).To(BeTrue())

			e.record(patient.ID, 90, at(0, "10:45"))
			readings, err := e.bloodSugar.Measurements(e.ctx, patient.ID, "", "")
			Expect(err).ToNot(HaveOccurred())
			Expect(readings).To(HaveLen(2))
		})

		It("rejects a second reading in the same window", func() {
			e.record(patient.ID, 120, at(0, "07:10"))

			_, err := e.bloodSugar.Record(e.ctx, services.RecordInput{
				PatientID:  patient.ID,
				Level:      130,
				MeasuredAt: at(0, "08:50"),
			})
			Expect(errors.Is(err, apperrors.ErrDuplicateSlot)).To(BeTrue())

			readings, err := e.bloodSugar.Measurements(e.ctx, patient.ID, testDay, testDay)
			Expect(err).ToNot(HaveOccurred())
			Expect(readings).To(HaveLen(1))
			Expect(readings[0].Level).To(BeNumerically("==", 120))
		})

		It("allows the same window on another day", func() {
			e.record(patient.ID, 120, at(0, "07:10"))
			e.record(patient.ID, 125, at(1, "07:10"))

			readings, err := e.bloodSugar.Measurements(e.ctx, patient.ID, "", "")
			Expect(err).ToNot(HaveOccurred())
			Expect(readings).To(HaveLen(2))
			Expect(readings[0].Day).To(Equal(dayOf(1)))
		})

		DescribeTable("rejects invalid input",
			func(patientID func() uint, level float64) {
				_, err := e.bloodSugar.Record(e.ctx, services.RecordInput{
					PatientID:  patientID(),
					Level:      level,
					MeasuredAt: at(0, "07:30"),
				})
				Expect(apperrors.IsType(err, apperrors.ErrorTypeValidation)).To(BeTrue())
			},
			Entry("level above 500", func() uint { return patient.ID }, 501.0),
			Entry("negative level", func() uint { return patient.ID }, -1.0),
			Entry("missing patient", func() uint { return 0 }, 100.0),
		)

		It("accepts the range bounds", func() {
			e.record(patient.ID, 0, at(0, "07:30"))
			e.record(patient.ID, 500, at(0, "12:30"))
		})

		It("rolls the reading back when a subscriber fails", func() {
			bus := events.NewBus()
			bus.Subscribe(events.MeasurementRecorded, "failing", func(context.Context, repository.Store, events.MeasurementEvent) error {
				return errors.New("boom")
			})
			svc := services.NewBloodSugarService(e.store, e.locker, clinical.DefaultWindowTable(), bus, nil)

			_, err := svc.Record(e.ctx, services.RecordInput{PatientID: patient.ID, Level: 100, MeasuredAt: at(0, "07:30")})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("boom"))
			Expect(errors.Is(err, apperrors.ErrDatabaseError)).To(BeTrue())

			readings, err := e.bloodSugar.Measurements(e.ctx, patient.ID, "", "")
			Expect(err).ToNot(HaveOccurred())
			Expect(readings).To(BeEmpty())
		})
	})

	Describe("DeleteMeasurement", func() {
		It("recomputes the suggestion without the deleted reading", func() {
			e.record(patient.ID, 100, at(0, "07:30"))
			high := e.record(patient.ID, 200, at(0, "12:30"))

			suggestion, err := e.insulin.Suggestion(e.ctx, patient.ID, testDay)
			Expect(err).ToNot(HaveOccurred())
			Expect(suggestion.Average).To(BeNumerically("==", 150))
			Expect(suggestion.Dose).To(Equal(1))

			Expect(e.bloodSugar.DeleteMeasurement(e.ctx, high.Measurement.ID)).To(Succeed())

			suggestion, err = e.insulin.Suggestion(e.ctx, patient.ID, testDay)
			Expect(err).ToNot(HaveOccurred())
			Expect(suggestion.Average).To(BeNumerically("==", 100))
			Expect(suggestion.Dose).To(Equal(0))
			Expect(suggestion.ReadingCount).To(Equal(1))
		})

		It("frees the window for a new reading", func() {
			first := e.record(patient.ID, 100, at(0, "07:30"))
			Expect(e.bloodSugar.DeleteMeasurement(e.ctx, first.Measurement.ID)).To(Succeed())
			e.record(patient.ID, 110, at(0, "08:30"))
		})

		It("reports an unknown reading", func() {
			err := e.bloodSugar.DeleteMeasurement(e.ctx, 4242)
			Expect(errors.Is(err, apperrors.ErrNotFound)).To(BeTrue())
		})
	})

	Describe("Measurements", func() {
		It("rejects a malformed day", func() {
			_, err := e.bloodSugar.Measurements(e.ctx, patient.ID, "12/05/2025", "")
			Expect(apperrors.IsType(err, apperrors.ErrorTypeValidation)).To(BeTrue())
		})

		It("accepts display form days", func() {
			e.record(patient.ID, 100, at(0, "07:30"))
			readings, err := e.bloodSugar.Measurements(e.ctx, patient.ID, "12.05.2025", "12.05.2025")
			Expect(err).ToNot(HaveOccurred())
			Expect(readings).To(HaveLen(1))
		})
	})
})
