package services_test

import (
	"errors"
	"strconv"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/vladimiradmaev/glucose-guide/internal/domain"
	apperrors "github.com/vladimiradmaev/glucose-guide/internal/errors"
	"github.com/vladimiradmaev/glucose-guide/internal/services"
)

var _ = Describe("AlertService", func() {
	var (
		e       *env
		patient *domain.User
	)

	BeforeEach(func() {
		e = newEnv()
		patient = e.patient()
	})

	Describe("a day with three readings", func() {
		It("walks the patient feed through the completeness states", func() {
			e.record(patient.ID, 65, at(0, "07:30"))
			feed := e.fetch(patient.ID, domain.AudiencePatient)
			Expect(categories(feed)).To(ConsistOf(
				domain.AlertInsufficientMeasurement,
				domain.AlertMissingMeasurement,
				domain.AlertLowGlucose,
			))
			missing := withCategory(feed, domain.AlertMissingMeasurement)
			Expect(missing[0].Message).To(ContainSubstring("12.05.2025 tarihinde 4 ölçüm eksik"))
			Expect(withCategory(feed, domain.AlertLowGlucose)[0].Message).To(Equal("Kan şekeri seviyesi çok düşük: 65 mg/dL"))

			e.record(patient.ID, 95, at(0, "12:30"))
			feed = e.fetch(patient.ID, domain.AudiencePatient)
			Expect(categories(feed)).To(ConsistOf(domain.AlertMissingMeasurement))
			Expect(feed[0].Message).To(ContainSubstring("3 ölçüm eksik"))

			e.record(patient.ID, 205, at(0, "18:30"))
			feed = e.fetch(patient.ID, domain.AudiencePatient)
			Expect(categories(feed)).To(ConsistOf(domain.AlertMissingMeasurement, domain.AlertHighGlucose))
			Expect(withCategory(feed, domain.AlertMissingMeasurement)[0].Message).
				To(Equal("Ölçüm eksik! 12.05.2025 tarihinde 2 ölçüm ortalama alınırken hesaba katılmadı."))

			history := e.history(patient.ID, domain.AudiencePatient)
			Expect(categories(history)).To(ConsistOf(
				domain.AlertMissingMeasurement,
				domain.AlertLowGlucose,
				domain.AlertHighGlucose,
			))

			suggestion, err := e.insulin.Suggestion(e.ctx, patient.ID, testDay)
			Expect(err).ToNot(HaveOccurred())
			Expect(suggestion.Average).To(BeNumerically("~", 121.67, 0.01))
			Expect(suggestion.Dose).To(Equal(1))
			Expect(suggestion.ReadingCount).To(Equal(3))
		})
	})

	Describe("CheckCompleteness", func() {
		BeforeEach(func() {
			e.record(patient.ID, 100, at(0, "07:30"))
			e.record(patient.ID, 100, at(0, "12:30"))
			e.record(patient.ID, 100, at(0, "15:30"))
		})

		It("does not duplicate or re-arm an unchanged alert", func() {
			Expect(e.fetch(patient.ID, domain.AudiencePatient)).To(HaveLen(1))

			current, err := e.alerts.CheckCompleteness(e.ctx, patient.ID, testDay)
			Expect(err).ToNot(HaveOccurred())
			Expect(current).To(HaveLen(1))
			Expect(current[0].Category).To(Equal(domain.AlertMissingMeasurement))
			Expect(current[0].Delivered).To(BeTrue())

			Expect(e.fetch(patient.ID, domain.AudiencePatient)).To(BeEmpty())
			Expect(e.history(patient.ID, domain.AudiencePatient)).To(HaveLen(1))
		})

		It("re-arms the alert when the missing count changes and clears it once the day is complete", func() {
			e.fetch(patient.ID, domain.AudiencePatient)

			e.record(patient.ID, 100, at(0, "18:30"))
			feed := e.fetch(patient.ID, domain.AudiencePatient)
			Expect(feed).To(HaveLen(1))
			Expect(feed[0].Message).To(ContainSubstring("1 ölçüm"))

			e.record(patient.ID, 100, at(0, "22:30"))
			current, err := e.alerts.CheckCompleteness(e.ctx, patient.ID, testDay)
			Expect(err).ToNot(HaveOccurred())
			Expect(current).To(BeEmpty())
			Expect(e.history(patient.ID, domain.AudiencePatient)).To(BeEmpty())
		})

		It("brings back the heavy alerts when readings are deleted", func() {
			readings, err := e.bloodSugar.Measurements(e.ctx, patient.ID, testDay, testDay)
			Expect(err).ToNot(HaveOccurred())
			Expect(e.bloodSugar.DeleteMeasurement(e.ctx, readings[0].ID)).To(Succeed())

			current, err := e.alerts.CheckCompleteness(e.ctx, patient.ID, testDay)
			Expect(err).ToNot(HaveOccurred())
			Expect(categories(current)).To(ConsistOf(domain.AlertInsufficientMeasurement, domain.AlertMissingMeasurement))
		})

		It("rejects a malformed day", func() {
			_, err := e.alerts.CheckCompleteness(e.ctx, patient.ID, "yesterday")
			Expect(apperrors.IsType(err, apperrors.ErrorTypeValidation)).To(BeTrue())
		})
	})

	Describe("severity alerts", func() {
		It("accumulates one alert per out-of-range reading", func() {
			e.record(patient.ID, 60, at(0, "07:30"))
			e.record(patient.ID, 50, at(0, "12:30"))
			e.record(patient.ID, 181, at(0, "15:30"))
			e.record(patient.ID, 180, at(0, "18:30"))

			history := e.history(patient.ID, domain.AudiencePatient)
			Expect(withCategory(history, domain.AlertLowGlucose)).To(HaveLen(2))
			Expect(withCategory(history, domain.AlertHighGlucose)).To(HaveLen(1))
		})

		It("checks unclassified readings too", func() {
			e.record(patient.ID, 40, at(0, "10:00"))
			Expect(withCategory(e.history(patient.ID, domain.AudiencePatient), domain.AlertLowGlucose)).To(HaveLen(1))
		})
	})

	Describe("GeneratePhysicianAlerts", func() {
		var doctor *domain.User

		BeforeEach(func() {
			doctor = e.register(domain.RoleDoctor, 0)
			Expect(e.users.LinkPatient(e.ctx, doctor.ID, patient.ID)).To(Succeed())
			Expect(e.users.SetTelegramChat(e.ctx, doctor.ID, 777001)).To(Succeed())

			e.record(patient.ID, 65, at(0, "07:30"))
			e.record(patient.ID, 130, at(0, "12:30"))
		})

		It("creates day and reading alerts and notifies the doctor of urgent ones", func() {
			result, err := e.alerts.GeneratePhysicianAlerts(e.ctx, patient.ID, services.PhysicianPassOptions{})
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Days).To(Equal(1))
			Expect(categories(result.Created)).To(ConsistOf(
				domain.AlertMeasurementInsufficient,
				domain.AlertUrgent,
				domain.AlertFollowUp,
			))
			Expect(result.Notified).To(ConsistOf(doctor.ID))

			sent := e.notifier.Sent()
			Expect(sent).To(HaveLen(1))
			Expect(sent[0].Recipient).To(Equal(strconv.Itoa(777001)))
			Expect(sent[0].Body).To(ContainSubstring(patient.FullName()))
			Expect(sent[0].Body).To(ContainSubstring("Hipoglisemi"))
		})

		It("is idempotent", func() {
			_, err := e.alerts.GeneratePhysicianAlerts(e.ctx, patient.ID, services.PhysicianPassOptions{})
			Expect(err).ToNot(HaveOccurred())

			result, err := e.alerts.GeneratePhysicianAlerts(e.ctx, patient.ID, services.PhysicianPassOptions{})
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Created).To(BeEmpty())
			Expect(result.Notified).To(BeEmpty())
			Expect(e.notifier.Sent()).To(HaveLen(1))
			Expect(e.history(patient.ID, domain.AudiencePhysician)).To(HaveLen(3))
		})

		It("only adds alerts for new readings on a later pass", func() {
			_, err := e.alerts.GeneratePhysicianAlerts(e.ctx, patient.ID, services.PhysicianPassOptions{})
			Expect(err).ToNot(HaveOccurred())

			e.record(patient.ID, 250, at(0, "18:30"))
			result, err := e.alerts.GeneratePhysicianAlerts(e.ctx, patient.ID, services.PhysicianPassOptions{})
			Expect(err).ToNot(HaveOccurred())
			Expect(categories(result.Created)).To(ConsistOf(domain.AlertUrgentIntervention))
			Expect(e.notifier.Sent()).To(HaveLen(2))

			// The insufficient alert of the day stays even though the day now has three readings.
			Expect(withCategory(e.history(patient.ID, domain.AudiencePhysician), domain.AlertMeasurementInsufficient)).To(HaveLen(1))
		})

		It("flags days without readings in an explicit range", func() {
			result, err := e.alerts.GeneratePhysicianAlerts(e.ctx, patient.ID, services.PhysicianPassOptions{
				From: testDay,
				To:   dayOf(2),
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Days).To(Equal(3))
			Expect(withCategory(result.Created, domain.AlertMeasurementMissing)).To(HaveLen(2))
		})

		It("keeps physician alerts out of the patient feed", func() {
			_, err := e.alerts.GeneratePhysicianAlerts(e.ctx, patient.ID, services.PhysicianPassOptions{})
			Expect(err).ToNot(HaveOccurred())

			for _, a := range e.fetch(patient.ID, domain.AudiencePatient) {
				Expect(domain.AudiencePatient.Categories()).To(ContainElement(a.Category))
			}
			Expect(e.fetch(patient.ID, domain.AudiencePhysician)).To(HaveLen(3))
			Expect(e.fetch(patient.ID, domain.AudiencePhysician)).To(BeEmpty())
		})

		It("returns the result and a delivery error when the notifier fails", func() {
			e.notifier.err = apperrors.NewDeliveryError(errors.New("network down"), "telegram")

			result, err := e.alerts.GeneratePhysicianAlerts(e.ctx, patient.ID, services.PhysicianPassOptions{})
			Expect(errors.Is(err, apperrors.ErrDelivery)).To(BeTrue())
			Expect(result).ToNot(BeNil())
			Expect(result.Created).To(HaveLen(3))
			Expect(e.history(patient.ID, domain.AudiencePhysician)).To(HaveLen(3))
		})

		It("requires both ends of a range", func() {
			_, err := e.alerts.GeneratePhysicianAlerts(e.ctx, patient.ID, services.PhysicianPassOptions{From: testDay})
			Expect(apperrors.IsType(err, apperrors.ErrorTypeValidation)).To(BeTrue())
		})

		It("rejects a reversed range", func() {
			_, err := e.alerts.GeneratePhysicianAlerts(e.ctx, patient.ID, services.PhysicianPassOptions{From: dayOf(2), To: testDay})
			Expect(apperrors.IsType(err, apperrors.ErrorTypeValidation)).To(BeTrue())
		})

		It("rejects a range longer than a year without writing", func() {
			_, err := e.alerts.GeneratePhysicianAlerts(e.ctx, patient.ID, services.PhysicianPassOptions{
				From: "2000-01-01",
				To:   "2029-12-31",
			})
			Expect(apperrors.IsType(err, apperrors.ErrorTypeValidation)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("at most 366"))
			Expect(e.history(patient.ID, domain.AudiencePhysician)).To(BeEmpty())
			Expect(e.notifier.Sent()).To(BeEmpty())
		})

		It("accepts a range of exactly a year", func() {
			result, err := e.alerts.GeneratePhysicianAlerts(e.ctx, patient.ID, services.PhysicianPassOptions{
				From: "2024-05-13",
				To:   "2025-05-13",
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Days).To(Equal(services.MaxPhysicianPassDays))
		})
	})

	Describe("CheckFirstMeasurement", func() {
		It("raises the alert once for a patient who never measured", func() {
			created, err := e.alerts.CheckFirstMeasurement(e.ctx, patient.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(created).To(BeTrue())

			created, err = e.alerts.CheckFirstMeasurement(e.ctx, patient.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(created).To(BeFalse())

			history := e.history(patient.ID, domain.AudiencePhysician)
			Expect(categories(history)).To(ConsistOf(domain.AlertFirstMeasurementMissing))
		})

		It("does nothing once the patient has a reading", func() {
			e.record(patient.ID, 100, at(0, "07:30"))
			created, err := e.alerts.CheckFirstMeasurement(e.ctx, patient.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(created).To(BeFalse())
		})
	})

	Describe("FetchAlerts", func() {
		It("delivers each alert once", func() {
			e.record(patient.ID, 65, at(0, "07:30"))

			first := e.fetch(patient.ID, domain.AudiencePatient)
			Expect(first).To(HaveLen(3))
			for _, a := range first {
				Expect(a.Delivered).To(BeTrue())
			}
			Expect(e.fetch(patient.ID, domain.AudiencePatient)).To(BeEmpty())

			for _, a := range e.history(patient.ID, domain.AudiencePatient) {
				Expect(a.Delivered).To(BeTrue())
			}
		})

		It("filters by day", func() {
			e.record(patient.ID, 65, at(0, "07:30"))
			e.record(patient.ID, 65, at(1, "07:30"))

			alerts, err := e.alerts.FetchAlerts(e.ctx, services.AlertFilter{
				PatientID: patient.ID,
				Audience:  domain.AudiencePatient,
				Day:       dayOf(1),
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(alerts).To(HaveLen(3))
			for _, a := range alerts {
				Expect(a.Day).To(Equal(dayOf(1)))
			}
			Expect(e.fetch(patient.ID, domain.AudiencePatient)).To(HaveLen(3))
		})

		DescribeTable("rejects an invalid filter",
			func(filter services.AlertFilter) {
				_, err := e.alerts.FetchAlerts(e.ctx, filter)
				Expect(apperrors.IsType(err, apperrors.ErrorTypeValidation)).To(BeTrue())
			},
			Entry("no patient", services.AlertFilter{Audience: domain.AudiencePatient}),
			Entry("unknown audience", services.AlertFilter{PatientID: 1, Audience: "nurse"}),
			Entry("bad day", services.AlertFilter{PatientID: 1, Audience: domain.AudiencePatient, Day: "tomorrow"}),
		)
	})
})
