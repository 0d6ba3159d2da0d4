package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/vladimiradmaev/glucose-guide/internal/domain"
)

// MeasurementRepository handles glucose readings
type MeasurementRepository struct {
	db *gorm.DB
}

func NewMeasurementRepository(db *gorm.DB) *MeasurementRepository {
	return &MeasurementRepository{db: db}
}

func (r *MeasurementRepository) Create(ctx context.Context, m *domain.Measurement) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *MeasurementRepository) Get(ctx context.Context, id uint) (*domain.Measurement, error) {
	var m domain.Measurement
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MeasurementRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&domain.Measurement{}, id).Error
}

// SlotTaken reports whether the patient already has a reading in slot on day.
func (r *MeasurementRepository) SlotTaken(ctx context.Context, patientID uint, day string, slot domain.WindowSlot) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Measurement{}).
		Where("patient_id = ? AND day = ? AND slot = ?", patientID, day, slot).
		Count(&count).Error
	return count > 0, err
}

// ClassifiedLevels returns the levels of the day's readings that fall in a window.
func (r *MeasurementRepository) ClassifiedLevels(ctx context.Context, patientID uint, day string) ([]float64, error) {
	var levels []float64
	err := r.db.WithContext(ctx).Model(&domain.Measurement{}).
		Where("patient_id = ? AND day = ? AND slot <> ?", patientID, day, domain.SlotNone).
		Order("measured_at").
		Pluck("level", &levels).Error
	return levels, err
}

// ListByDay returns every reading of the day, classified or not, oldest first.
func (r *MeasurementRepository) ListByDay(ctx context.Context, patientID uint, day string) ([]domain.Measurement, error) {
	var out []domain.Measurement
	err := r.db.WithContext(ctx).
		Where("patient_id = ? AND day = ?", patientID, day).
		Order("measured_at, id").
		Find(&out).Error
	return out, err
}

// List returns the patient's readings newest first, optionally bounded to [from, to].
func (r *MeasurementRepository) List(ctx context.Context, patientID uint, from, to string) ([]domain.Measurement, error) {
	q := r.db.WithContext(ctx).Where("patient_id = ?", patientID)
	if from != "" {
		q = q.Where("day >= ?", from)
	}
	if to != "" {
		q = q.Where("day <= ?", to)
	}
	var out []domain.Measurement
	err := q.Order("measured_at DESC, id DESC").Find(&out).Error
	return out, err
}

// Days returns the distinct days the patient has readings on, oldest first.
func (r *MeasurementRepository) Days(ctx context.Context, patientID uint) ([]string, error) {
	var days []string
	err := r.db.WithContext(ctx).Model(&domain.Measurement{}).
		Where("patient_id = ?", patientID).
		Distinct("day").
		Order("day").
		Pluck("day", &days).Error
	return days, err
}

func (r *MeasurementRepository) CountByPatient(ctx context.Context, patientID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Measurement{}).
		Where("patient_id = ?", patientID).
		Count(&count).Error
	return count, err
}
