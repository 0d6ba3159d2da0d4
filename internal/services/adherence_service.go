package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/vladimiradmaev/glucose-guide/internal/domain"
	apperrors "github.com/vladimiradmaev/glucose-guide/internal/errors"
	"github.com/vladimiradmaev/glucose-guide/internal/logger"
	"github.com/vladimiradmaev/glucose-guide/internal/repository"
)

// Progress is the share of prescribed items the patient applied, in percent.
type Progress struct {
	PatientID       uint    `json:"patient_id"`
	DietPercent     float64 `json:"diet_percent"`
	ExercisePercent float64 `json:"exercise_percent"`
}

// AdherenceService tracks whether prescribed diets and exercises were applied.
type AdherenceService struct {
	store  repository.Store
	locker domain.Locker
}

func NewAdherenceService(store repository.Store, locker domain.Locker) *AdherenceService {
	return &AdherenceService{
		store:  store,
		locker: locker,
	}
}

// percent returns applied/total*100 rounded to one decimal, and 0 when total is 0.
func percent(applied, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(applied)/float64(total)*1000) / 10
}

func (s *AdherenceService) Progress(ctx context.Context, patientID uint) (*Progress, error) {
	repo := s.store.Adherence()
	out := &Progress{PatientID: patientID}

	applied, total, err := repo.Counts(ctx, patientID, domain.KindDiet)
	if err != nil {
		return nil, storageError(err)
	}
	out.DietPercent = percent(applied, total)

	applied, total, err = repo.Counts(ctx, patientID, domain.KindExercise)
	if err != nil {
		return nil, storageError(err)
	}
	out.ExercisePercent = percent(applied, total)

	return out, nil
}

// MarkApplied flips a pending record to applied. At most one item of each kind
// can be applied per patient and day.
func (s *AdherenceService) MarkApplied(ctx context.Context, recordID uint) (*domain.AdherenceRecord, error) {
	rec, err := s.store.Adherence().GetRecord(ctx, recordID)
	if repository.IsNotFound(err) {
		return nil, apperrors.NewNotFoundError("adherence record", recordID)
	}
	if err != nil {
		return nil, storageError(err)
	}

	unlock, err := s.locker.Lock(ctx, dayLockKey(rec.PatientID, rec.Day))
	if err != nil {
		return nil, err
	}
	defer unlock()

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		exists, err := tx.Adherence().AppliedExists(ctx, rec.PatientID, rec.Kind, rec.Day)
		if err != nil {
			return fmt.Errorf("failed to check applied records: %w", err)
		}
		if exists {
			return apperrors.NewConflictError(apperrors.ErrAlreadyApplied.Code,
				fmt.Sprintf("a %s item is already applied for %s", rec.Kind, rec.Day)).
				WithContext("record_id", rec.ID)
		}

		if err := tx.Adherence().MarkApplied(ctx, rec.ID, time.Now()); err != nil {
			return fmt.Errorf("failed to mark record applied: %w", err)
		}
		rec, err = tx.Adherence().GetRecord(ctx, rec.ID)
		return err
	})
	if err != nil {
		return nil, storageError(err)
	}

	logger.WithPatient(rec.PatientID, rec.Day).Info("Recommendation applied", "kind", rec.Kind, "item", rec.Item.Name)
	return rec, nil
}

// Pending lists the records still waiting to be applied, newest first.
func (s *AdherenceService) Pending(ctx context.Context, patientID uint) ([]domain.AdherenceRecord, error) {
	out, err := s.store.Adherence().ListRecords(ctx, patientID, true)
	if err != nil {
		return nil, storageError(err)
	}
	return out, nil
}

// History lists every record of the patient, newest first.
func (s *AdherenceService) History(ctx context.Context, patientID uint) ([]domain.AdherenceRecord, error) {
	out, err := s.store.Adherence().ListRecords(ctx, patientID, false)
	if err != nil {
		return nil, storageError(err)
	}
	return out, nil
}
