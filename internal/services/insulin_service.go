package services

import (
	"context"
	"fmt"

	"github.com/vladimiradmaev/glucose-guide/internal/clinical"
	"github.com/vladimiradmaev/glucose-guide/internal/domain"
	apperrors "github.com/vladimiradmaev/glucose-guide/internal/errors"
	"github.com/vladimiradmaev/glucose-guide/internal/events"
	"github.com/vladimiradmaev/glucose-guide/internal/logger"
	"github.com/vladimiradmaev/glucose-guide/internal/repository"
	"github.com/vladimiradmaev/glucose-guide/internal/utils"
)

// DailyAverage is one point of the patient's daily chart.
type DailyAverage struct {
	Day          string  `json:"day"`
	Average      float64 `json:"average"`
	Dose         int     `json:"dose_ml"`
	ReadingCount int     `json:"reading_count"`
	Reliable     bool    `json:"reliable"`
	Hypoglycemia bool    `json:"hypoglycemia"`
}

// InsulinService derives the daily insulin suggestion from a day's classified readings.
type InsulinService struct {
	store  repository.Store
	locker domain.Locker
}

func NewInsulinService(store repository.Store, locker domain.Locker) *InsulinService {
	return &InsulinService{
		store:  store,
		locker: locker,
	}
}

// Recompute rebuilds the suggestion for (patient, day). It returns nil without
// touching storage when the day has no classified readings.
func (s *InsulinService) Recompute(ctx context.Context, patientID uint, day string) (*domain.DailyInsulinSuggestion, error) {
	day, err := utils.ParseDay(day)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	unlock, err := s.locker.Lock(ctx, dayLockKey(patientID, day))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var suggestion *domain.DailyInsulinSuggestion
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		suggestion, err = s.recompute(ctx, tx, patientID, day)
		return err
	})
	if err != nil {
		return nil, storageError(err)
	}
	return suggestion, nil
}

// OnMeasurement keeps the suggestion in step with the day a reading was added to or removed from.
func (s *InsulinService) OnMeasurement(ctx context.Context, tx repository.Store, ev events.MeasurementEvent) error {
	_, err := s.recompute(ctx, tx, ev.Measurement.PatientID, ev.Measurement.Day)
	return err
}

func (s *InsulinService) recompute(ctx context.Context, tx repository.Store, patientID uint, day string) (*domain.DailyInsulinSuggestion, error) {
	log := logger.WithPatient(patientID, day)

	levels, err := tx.Measurements().ClassifiedLevels(ctx, patientID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to load classified readings: %w", err)
	}

	mean, ok := clinical.Mean(levels)
	if !ok {
		log.Debug("No classified readings, suggestion left as is")
		return nil, nil
	}

	suggestion := &domain.DailyInsulinSuggestion{
		PatientID:    patientID,
		Day:          day,
		Average:      mean,
		Dose:         clinical.DoseFor(mean),
		ReadingCount: len(levels),
	}
	if err := tx.Suggestions().Upsert(ctx, suggestion); err != nil {
		return nil, fmt.Errorf("failed to upsert insulin suggestion: %w", err)
	}

	stored, err := tx.Suggestions().Get(ctx, patientID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to reload insulin suggestion: %w", err)
	}

	log.Info("Insulin suggestion updated",
		"average", stored.Average,
		"dose_ml", stored.Dose,
		"readings", stored.ReadingCount)
	return stored, nil
}

func (s *InsulinService) Suggestion(ctx context.Context, patientID uint, day string) (*domain.DailyInsulinSuggestion, error) {
	day, err := utils.ParseDay(day)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	suggestion, err := s.store.Suggestions().Get(ctx, patientID, day)
	if repository.IsNotFound(err) {
		return nil, apperrors.NewNotFoundError("insulin suggestion", fmt.Sprintf("%d/%s", patientID, day))
	}
	if err != nil {
		return nil, storageError(err)
	}
	return suggestion, nil
}

// Suggestions returns the patient's suggestion history, newest day first.
func (s *InsulinService) Suggestions(ctx context.Context, patientID uint) ([]domain.DailyInsulinSuggestion, error) {
	out, err := s.store.Suggestions().List(ctx, patientID, false)
	if err != nil {
		return nil, storageError(err)
	}
	return out, nil
}

// DailyAverages returns the chart feed, oldest day first.
func (s *InsulinService) DailyAverages(ctx context.Context, patientID uint) ([]DailyAverage, error) {
	suggestions, err := s.store.Suggestions().List(ctx, patientID, true)
	if err != nil {
		return nil, storageError(err)
	}

	out := make([]DailyAverage, 0, len(suggestions))
	for _, sg := range suggestions {
		out = append(out, DailyAverage{
			Day:          sg.Day,
			Average:      sg.Average,
			Dose:         sg.Dose,
			ReadingCount: sg.ReadingCount,
			Reliable:     sg.Reliable(),
			Hypoglycemia: clinical.Hypoglycemic(sg.Average),
		})
	}
	return out, nil
}
