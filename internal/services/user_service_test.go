package services_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/vladimiradmaev/glucose-guide/internal/domain"
	apperrors "github.com/vladimiradmaev/glucose-guide/internal/errors"
	"github.com/vladimiradmaev/glucose-guide/internal/services"
)

var _ = Describe("UserService", func() {
	var (
		e      *env
		doctor *domain.User
	)

	BeforeEach(func() {
		e = newEnv()
		doctor = e.register(domain.RoleDoctor, 0)
	})

	It("links a patient registered by a doctor", func() {
		patient := e.register(domain.RolePatient, doctor.ID)

		patients, err := e.users.Patients(e.ctx, doctor.ID)
		Expect(err).ToNot(HaveOccurred())
		Expect(patients).To(HaveLen(1))
		Expect(patients[0].ID).To(Equal(patient.ID))

		all, err := e.users.Patients(e.ctx, 0)
		Expect(err).ToNot(HaveOccurred())
		Expect(all).To(HaveLen(1))

		doctors, err := e.users.Doctors(e.ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(doctors).To(HaveLen(1))
	})

	It("rejects a duplicate national id", func() {
		in := services.RegisterUserInput{
			NationalID: doctor.NationalID,
			FirstName:  "Ayşe",
			LastName:   "Yılmaz",
			Role:       domain.RolePatient,
		}
		_, err := e.users.RegisterUser(e.ctx, in)
		Expect(errors.Is(err, apperrors.ErrDuplicateUser)).To(BeTrue())
	})

	It("parses the birth date in either form", func() {
		user, err := e.users.RegisterUser(e.ctx, services.RegisterUserInput{
			NationalID: "12345678901",
			FirstName:  "Ayşe",
			LastName:   "Yılmaz",
			Role:       domain.RolePatient,
			BirthDate:  "03.04.1980",
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(user.BirthDate).ToNot(BeNil())
		Expect(user.BirthDate.Format("2006-01-02")).To(Equal("1980-04-03"))

		found, err := e.users.GetUserByNationalID(e.ctx, "12345678901")
		Expect(err).ToNot(HaveOccurred())
		Expect(found.ID).To(Equal(user.ID))
	})

	DescribeTable("rejects invalid registrations",
		func(in services.RegisterUserInput) {
			_, err := e.users.RegisterUser(e.ctx, in)
			Expect(apperrors.IsType(err, apperrors.ErrorTypeValidation)).To(BeTrue())
		},
		Entry("short national id", services.RegisterUserInput{NationalID: "123", FirstName: "A", LastName: "B", Role: domain.RolePatient}),
		Entry("letters in national id", services.RegisterUserInput{NationalID: "1234567890a", FirstName: "A", LastName: "B", Role: domain.RolePatient}),
		Entry("unknown role", services.RegisterUserInput{NationalID: "12345678901", FirstName: "A", LastName: "B", Role: "nurse"}),
		Entry("bad email", services.RegisterUserInput{NationalID: "12345678901", FirstName: "A", LastName: "B", Role: domain.RolePatient, Email: "nope"}),
		Entry("doctor with a doctor", services.RegisterUserInput{NationalID: "12345678901", FirstName: "A", LastName: "B", Role: domain.RoleDoctor, DoctorID: 1}),
		Entry("bad birth date", services.RegisterUserInput{NationalID: "12345678901", FirstName: "A", LastName: "B", Role: domain.RolePatient, BirthDate: "1980"}),
	)

	It("requires the linked doctor to exist and be a doctor", func() {
		patient := e.register(domain.RolePatient, 0)

		_, err := e.users.RegisterUser(e.ctx, services.RegisterUserInput{
			NationalID: "10987654321",
			FirstName:  "A",
			LastName:   "B",
			Role:       domain.RolePatient,
			DoctorID:   patient.ID,
		})
		Expect(apperrors.IsType(err, apperrors.ErrorTypeNotFound)).To(BeTrue())

		_, err = e.users.GetUserByNationalID(e.ctx, "10987654321")
		Expect(apperrors.IsType(err, apperrors.ErrorTypeNotFound)).To(BeTrue())
	})

	It("links only from a doctor to a patient", func() {
		patient := e.register(domain.RolePatient, 0)
		Expect(e.users.LinkPatient(e.ctx, doctor.ID, patient.ID)).To(Succeed())
		Expect(e.users.LinkPatient(e.ctx, doctor.ID, patient.ID)).To(Succeed())

		err := e.users.LinkPatient(e.ctx, patient.ID, doctor.ID)
		Expect(apperrors.IsType(err, apperrors.ErrorTypeValidation)).To(BeTrue())

		err = e.users.LinkPatient(e.ctx, doctor.ID, 9999)
		Expect(apperrors.IsType(err, apperrors.ErrorTypeNotFound)).To(BeTrue())
	})

	It("stores the telegram chat", func() {
		Expect(e.users.SetTelegramChat(e.ctx, doctor.ID, 42)).To(Succeed())
		user, err := e.users.GetUser(e.ctx, doctor.ID)
		Expect(err).ToNot(HaveOccurred())
		Expect(*user.TelegramChatID).To(Equal(int64(42)))

		err = e.users.SetTelegramChat(e.ctx, 9999, 42)
		Expect(apperrors.IsType(err, apperrors.ErrorTypeNotFound)).To(BeTrue())
	})
})
