package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vladimiradmaev/glucose-guide/internal/domain"
)

// UserRepository handles user data operations
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// GetByID gets a user by primary key
func (r *UserRepository) GetByID(ctx context.Context, id uint) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByNationalID gets a user by their national id number
func (r *UserRepository) GetByNationalID(ctx context.Context, nationalID string) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).Where("national_id = ?", nationalID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	var users []domain.User
	err := r.db.WithContext(ctx).Where("role = ?", role).Order("last_name, first_name").Find(&users).Error
	return users, err
}

// LinkPatient assigns a patient to a doctor. Linking twice is a no-op.
func (r *UserRepository) LinkPatient(ctx context.Context, doctorID, patientID uint) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.DoctorPatient{DoctorID: doctorID, PatientID: patientID}).Error
}

// PatientsOf lists the patients followed by a doctor
func (r *UserRepository) PatientsOf(ctx context.Context, doctorID uint) ([]domain.User, error) {
	var users []domain.User
	err := r.db.WithContext(ctx).
		Joins("JOIN doctor_patients dp ON dp.patient_id = users.id").
		Where("dp.doctor_id = ?", doctorID).
		Order("users.last_name, users.first_name").
		Find(&users).Error
	return users, err
}

// DoctorsOf lists the doctors following a patient
func (r *UserRepository) DoctorsOf(ctx context.Context, patientID uint) ([]domain.User, error) {
	var users []domain.User
	err := r.db.WithContext(ctx).
		Joins("JOIN doctor_patients dp ON dp.doctor_id = users.id").
		Where("dp.patient_id = ?", patientID).
		Order("users.id").
		Find(&users).Error
	return users, err
}

// UpdateTelegramChat stores the chat id notifications for the user are sent to
func (r *UserRepository) UpdateTelegramChat(ctx context.Context, userID uint, chatID int64) error {
	return r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", userID).Update("telegram_chat_id", chatID).Error
}
