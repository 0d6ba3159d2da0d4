package services

import (
	"context"
	"fmt"
	"time"

	"github.com/vladimiradmaev/glucose-guide/internal/clinical"
	"github.com/vladimiradmaev/glucose-guide/internal/domain"
	apperrors "github.com/vladimiradmaev/glucose-guide/internal/errors"
	"github.com/vladimiradmaev/glucose-guide/internal/events"
	"github.com/vladimiradmaev/glucose-guide/internal/logger"
	"github.com/vladimiradmaev/glucose-guide/internal/repository"
	"github.com/vladimiradmaev/glucose-guide/internal/utils"
)

// UnclassifiedWarning is shown when a reading falls outside every window.
const UnclassifiedWarning = "Girilen saat tanımlı aralıkların dışında. Ölçüm kaydedildi fakat ortalama hesaplamasına katılmayacak."

type RecordInput struct {
	PatientID  uint      `json:"patient_id" validate:"required"`
	Level      float64   `json:"level" validate:"gte=0,lte=500"`
	MeasuredAt time.Time `json:"measured_at" validate:"required"`
}

// RecordResult is the stored reading plus anything the caller should show alongside it.
type RecordResult struct {
	Measurement domain.Measurement `json:"measurement"`
	Warnings    []string           `json:"warnings,omitempty"`
}

// BloodSugarService is the intake for glucose readings.
type BloodSugarService struct {
	store   repository.Store
	locker  domain.Locker
	windows *clinical.WindowTable
	bus     *events.Bus
	loc     *time.Location
}

func NewBloodSugarService(store repository.Store, locker domain.Locker, windows *clinical.WindowTable, bus *events.Bus, loc *time.Location) *BloodSugarService {
	if loc == nil {
		loc = time.UTC
	}
	return &BloodSugarService{
		store:   store,
		locker:  locker,
		windows: windows,
		bus:     bus,
		loc:     loc,
	}
}

// Record classifies and stores a reading, then lets every subscriber update
// the day's derived state. The write and the reactions commit together.
func (s *BloodSugarService) Record(ctx context.Context, in RecordInput) (*RecordResult, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	local := in.MeasuredAt.In(s.loc)
	m := domain.Measurement{
		PatientID:  in.PatientID,
		Day:        local.Format(utils.DayLayout),
		MeasuredAt: local,
		Level:      in.Level,
		Slot:       s.windows.Classify(local),
	}
	log := logger.WithPatient(m.PatientID, m.Day)

	unlock, err := s.locker.Lock(ctx, dayLockKey(m.PatientID, m.Day))
	if err != nil {
		return nil, err
	}
	defer unlock()

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if m.Slot.Classified() {
			taken, err := tx.Measurements().SlotTaken(ctx, m.PatientID, m.Day, m.Slot)
			if err != nil {
				return fmt.Errorf("failed to check window: %w", err)
			}
			if taken {
				return apperrors.NewConflictError(apperrors.ErrDuplicateSlot.Code,
					fmt.Sprintf("a %s measurement already exists for %s", m.Slot, m.Day)).
					WithContext("slot", m.Slot)
			}
		}

		if err := tx.Measurements().Create(ctx, &m); err != nil {
			return fmt.Errorf("failed to create measurement: %w", err)
		}
		return s.bus.Publish(ctx, tx, events.NewMeasurementEvent(events.MeasurementRecorded, m))
	})
	if err != nil {
		return nil, storageError(err)
	}

	result := &RecordResult{Measurement: m}
	if !m.Slot.Classified() {
		result.Warnings = append(result.Warnings, UnclassifiedWarning)
	}

	log.Info("Measurement recorded", "measurement_id", m.ID, "level", m.Level, "slot", m.Slot)
	return result, nil
}

// DeleteMeasurement removes a reading and recomputes what depended on it.
func (s *BloodSugarService) DeleteMeasurement(ctx context.Context, id uint) error {
	m, err := s.store.Measurements().Get(ctx, id)
	if repository.IsNotFound(err) {
		return apperrors.NewNotFoundError("measurement", id)
	}
	if err != nil {
		return storageError(err)
	}

	unlock, err := s.locker.Lock(ctx, dayLockKey(m.PatientID, m.Day))
	if err != nil {
		return err
	}
	defer unlock()

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Measurements().Delete(ctx, m.ID); err != nil {
			return fmt.Errorf("failed to delete measurement: %w", err)
		}
		return s.bus.Publish(ctx, tx, events.NewMeasurementEvent(events.MeasurementDeleted, *m))
	})
	if err != nil {
		return storageError(err)
	}

	logger.WithPatient(m.PatientID, m.Day).Info("Measurement deleted", "measurement_id", m.ID)
	return nil
}

// Measurements lists a patient's readings newest first. from and to are optional days.
func (s *BloodSugarService) Measurements(ctx context.Context, patientID uint, from, to string) ([]domain.Measurement, error) {
	var err error
	if from != "" {
		if from, err = utils.ParseDay(from); err != nil {
			return nil, apperrors.NewValidationError(err.Error())
		}
	}
	if to != "" {
		if to, err = utils.ParseDay(to); err != nil {
			return nil, apperrors.NewValidationError(err.Error())
		}
	}

	out, err := s.store.Measurements().List(ctx, patientID, from, to)
	if err != nil {
		return nil, storageError(err)
	}
	return out, nil
}
