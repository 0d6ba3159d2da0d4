package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vladimiradmaev/glucose-guide/internal/domain"
)

// AdherenceRepository handles diet/exercise items and their tracking records
type AdherenceRepository struct {
	db *gorm.DB
}

func NewAdherenceRepository(db *gorm.DB) *AdherenceRepository {
	return &AdherenceRepository{db: db}
}

// EnsureItem returns the item with kind and name, creating it if absent.
func (r *AdherenceRepository) EnsureItem(ctx context.Context, kind domain.AdherenceKind, name string) (*domain.AdherenceItem, error) {
	db := r.db.WithContext(ctx)

	item := domain.AdherenceItem{Kind: kind, Name: name}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "kind"}, {Name: "name"}},
		DoNothing: true,
	}).Create(&item).Error
	if err != nil {
		return nil, err
	}

	var stored domain.AdherenceItem
	if err := db.Where("kind = ? AND name = ?", kind, name).First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *AdherenceRepository) ListItems(ctx context.Context, kind domain.AdherenceKind) ([]domain.AdherenceItem, error) {
	var out []domain.AdherenceItem
	err := r.db.WithContext(ctx).Where("kind = ?", kind).Order("name").Find(&out).Error
	return out, err
}

func (r *AdherenceRepository) CreateRecord(ctx context.Context, rec *domain.AdherenceRecord) error {
	return r.db.WithContext(ctx).Omit("Item").Create(rec).Error
}

func (r *AdherenceRepository) GetRecord(ctx context.Context, id uint) (*domain.AdherenceRecord, error) {
	var rec domain.AdherenceRecord
	if err := r.db.WithContext(ctx).Preload("Item").First(&rec, id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// AppliedExists reports whether the patient already applied an item of kind on day.
func (r *AdherenceRepository) AppliedExists(ctx context.Context, patientID uint, kind domain.AdherenceKind, day string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.AdherenceRecord{}).
		Where("patient_id = ? AND kind = ? AND day = ? AND applied = ?", patientID, kind, day, true).
		Count(&count).Error
	return count > 0, err
}

func (r *AdherenceRepository) MarkApplied(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.AdherenceRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"applied": true, "applied_at": at}).Error
}

// Counts returns how many of the patient's records of kind are applied, and how many exist.
func (r *AdherenceRepository) Counts(ctx context.Context, patientID uint, kind domain.AdherenceKind) (applied, total int64, err error) {
	base := r.db.WithContext(ctx).Model(&domain.AdherenceRecord{}).
		Where("patient_id = ? AND kind = ?", patientID, kind)

	if err = base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return 0, 0, err
	}
	if err = base.Session(&gorm.Session{}).Where("applied = ?", true).Count(&applied).Error; err != nil {
		return 0, 0, err
	}
	return applied, total, nil
}

// ListRecords returns the patient's records newest first, optionally only the pending ones.
func (r *AdherenceRepository) ListRecords(ctx context.Context, patientID uint, onlyPending bool) ([]domain.AdherenceRecord, error) {
	q := r.db.WithContext(ctx).Preload("Item").Where("patient_id = ?", patientID)
	if onlyPending {
		q = q.Where("applied = ?", false)
	}
	var out []domain.AdherenceRecord
	err := q.Order("day DESC, time DESC, id DESC").Find(&out).Error
	return out, err
}
