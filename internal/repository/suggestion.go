package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vladimiradmaev/glucose-guide/internal/domain"
)

// SuggestionRepository handles the per-day insulin suggestions
type SuggestionRepository struct {
	db *gorm.DB
}

func NewSuggestionRepository(db *gorm.DB) *SuggestionRepository {
	return &SuggestionRepository{db: db}
}

// Upsert writes the suggestion for (patient, day), replacing the previous one.
func (r *SuggestionRepository) Upsert(ctx context.Context, s *domain.DailyInsulinSuggestion) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "patient_id"}, {Name: "day"}},
		DoUpdates: clause.AssignmentColumns([]string{"average", "dose", "reading_count", "updated_at"}),
	}).Create(s).Error
}

func (r *SuggestionRepository) Get(ctx context.Context, patientID uint, day string) (*domain.DailyInsulinSuggestion, error) {
	var s domain.DailyInsulinSuggestion
	err := r.db.WithContext(ctx).
		Where("patient_id = ? AND day = ?", patientID, day).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// List returns the patient's suggestions ordered by day; newest first unless ascending.
func (r *SuggestionRepository) List(ctx context.Context, patientID uint, ascending bool) ([]domain.DailyInsulinSuggestion, error) {
	order := "day DESC"
	if ascending {
		order = "day"
	}
	var out []domain.DailyInsulinSuggestion
	err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order(order).
		Find(&out).Error
	return out, err
}
