package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vladimiradmaev/glucose-guide/internal/domain"
)

// AlertFilter narrows alert queries. Zero fields do not filter.
type AlertFilter struct {
	PatientID       uint
	Categories      []domain.AlertCategory
	Day             string
	OnlyUndelivered bool
}

// AlertRepository handles the alert feed
type AlertRepository struct {
	db *gorm.DB
}

func NewAlertRepository(db *gorm.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

func (r *AlertRepository) Create(ctx context.Context, a *domain.Alert) error {
	return r.db.WithContext(ctx).Create(a).Error
}

// CreateIfAbsent inserts a unless an alert with the same dedup key exists.
// It reports whether a row was written.
func (r *AlertRepository) CreateIfAbsent(ctx context.Context, a *domain.Alert) (bool, error) {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dedup_key"}},
		DoNothing: true,
	}).Create(a)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ByDedupKeys returns the alerts holding any of keys.
func (r *AlertRepository) ByDedupKeys(ctx context.Context, keys []string) ([]domain.Alert, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	var out []domain.Alert
	err := r.db.WithContext(ctx).Where("dedup_key IN ?", keys).Find(&out).Error
	return out, err
}

// Rearm replaces the message of an alert and makes it undelivered again.
func (r *AlertRepository) Rearm(ctx context.Context, id uint, message string) error {
	return r.db.WithContext(ctx).Model(&domain.Alert{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"message": message, "delivered": false}).Error
}

func (r *AlertRepository) Delete(ctx context.Context, ids ...uint) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Delete(&domain.Alert{}, ids).Error
}

// List returns the alerts matching f, newest first.
func (r *AlertRepository) List(ctx context.Context, f AlertFilter) ([]domain.Alert, error) {
	q := r.db.WithContext(ctx).Model(&domain.Alert{})
	if f.PatientID != 0 {
		q = q.Where("patient_id = ?", f.PatientID)
	}
	if len(f.Categories) > 0 {
		q = q.Where("category IN ?", f.Categories)
	}
	if f.Day != "" {
		q = q.Where("day = ?", f.Day)
	}
	if f.OnlyUndelivered {
		q = q.Where("delivered = ?", false)
	}

	var out []domain.Alert
	err := q.Order("created_at DESC, id DESC").Find(&out).Error
	return out, err
}

func (r *AlertRepository) MarkDelivered(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&domain.Alert{}).
		Where("id IN ?", ids).
		Update("delivered", true).Error
}
