package services

import (
	"context"
	"fmt"
	"time"

	"github.com/vladimiradmaev/glucose-guide/internal/domain"
	apperrors "github.com/vladimiradmaev/glucose-guide/internal/errors"
	"github.com/vladimiradmaev/glucose-guide/internal/logger"
	"github.com/vladimiradmaev/glucose-guide/internal/repository"
	"github.com/vladimiradmaev/glucose-guide/internal/utils"
)

type RegisterUserInput struct {
	NationalID string      `json:"national_id" validate:"required,len=11,numeric"`
	FirstName  string      `json:"first_name" validate:"required"`
	LastName   string      `json:"last_name" validate:"required"`
	Email      string      `json:"email" validate:"omitempty,email"`
	Role       domain.Role `json:"role" validate:"required,oneof=doctor patient"`
	Gender     string      `json:"gender,omitempty"`
	// BirthDate is optional, in 02.01.2006 or 2006-01-02 form.
	BirthDate      string `json:"birth_date,omitempty"`
	TelegramChatID *int64 `json:"telegram_chat_id,omitempty"`
	// DoctorID links a new patient to the doctor who registered them.
	DoctorID uint `json:"doctor_id,omitempty"`
}

// UserService keeps the registry of doctors and patients.
type UserService struct {
	store repository.Store
}

func NewUserService(store repository.Store) *UserService {
	return &UserService{store: store}
}

func (s *UserService) RegisterUser(ctx context.Context, in RegisterUserInput) (*domain.User, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.DoctorID != 0 && in.Role != domain.RolePatient {
		return nil, apperrors.NewValidationError("only patients can be linked to a doctor")
	}

	user := &domain.User{
		NationalID:     in.NationalID,
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Email:          in.Email,
		Role:           in.Role,
		Gender:         in.Gender,
		TelegramChatID: in.TelegramChatID,
	}
	if in.BirthDate != "" {
		day, err := utils.ParseDay(in.BirthDate)
		if err != nil {
			return nil, apperrors.NewValidationError(err.Error())
		}
		birth, _ := time.Parse(utils.DayLayout, day)
		user.BirthDate = &birth
	}

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		users := tx.Users()

		_, err := users.GetByNationalID(ctx, in.NationalID)
		if err == nil {
			return apperrors.NewConflictError(apperrors.ErrDuplicateUser.Code,
				fmt.Sprintf("national id %s is already registered", in.NationalID))
		}
		if !repository.IsNotFound(err) {
			return err
		}

		if in.DoctorID != 0 {
			doctor, err := users.GetByID(ctx, in.DoctorID)
			if repository.IsNotFound(err) || (err == nil && doctor.Role != domain.RoleDoctor) {
				return apperrors.NewNotFoundError("doctor", in.DoctorID)
			}
			if err != nil {
				return err
			}
		}

		if err := users.Create(ctx, user); err != nil {
			return fmt.Errorf("failed to register user: %w", err)
		}
		if in.DoctorID != 0 {
			return users.LinkPatient(ctx, in.DoctorID, user.ID)
		}
		return nil
	})
	if err != nil {
		return nil, storageError(err)
	}

	logger.Info("User registered", "user_id", user.ID, "role", user.Role)
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, id uint) (*domain.User, error) {
	user, err := s.store.Users().GetByID(ctx, id)
	if repository.IsNotFound(err) {
		return nil, apperrors.NewNotFoundError("user", id)
	}
	if err != nil {
		return nil, storageError(err)
	}
	return user, nil
}

func (s *UserService) GetUserByNationalID(ctx context.Context, nationalID string) (*domain.User, error) {
	user, err := s.store.Users().GetByNationalID(ctx, nationalID)
	if repository.IsNotFound(err) {
		return nil, apperrors.NewNotFoundError("user", nationalID)
	}
	if err != nil {
		return nil, storageError(err)
	}
	return user, nil
}

// Patients lists the patients of a doctor, or every patient when doctorID is 0.
func (s *UserService) Patients(ctx context.Context, doctorID uint) ([]domain.User, error) {
	var (
		out []domain.User
		err error
	)
	if doctorID == 0 {
		out, err = s.store.Users().ListByRole(ctx, domain.RolePatient)
	} else {
		out, err = s.store.Users().PatientsOf(ctx, doctorID)
	}
	if err != nil {
		return nil, storageError(err)
	}
	return out, nil
}

func (s *UserService) Doctors(ctx context.Context) ([]domain.User, error) {
	out, err := s.store.Users().ListByRole(ctx, domain.RoleDoctor)
	if err != nil {
		return nil, storageError(err)
	}
	return out, nil
}

// LinkPatient makes doctorID follow patientID.
func (s *UserService) LinkPatient(ctx context.Context, doctorID, patientID uint) error {
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		doctor, err := tx.Users().GetByID(ctx, doctorID)
		if err != nil {
			return err
		}
		patient, err := tx.Users().GetByID(ctx, patientID)
		if err != nil {
			return err
		}
		if doctor.Role != domain.RoleDoctor || patient.Role != domain.RolePatient {
			return apperrors.NewValidationError("link must go from a doctor to a patient")
		}
		return tx.Users().LinkPatient(ctx, doctorID, patientID)
	})
	return storageError(err)
}

// SetTelegramChat stores the chat that urgent notifications for the user go to.
func (s *UserService) SetTelegramChat(ctx context.Context, userID uint, chatID int64) error {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return err
	}
	return storageError(s.store.Users().UpdateTelegramChat(ctx, userID, chatID))
}
