package services

import (
	"context"
	"fmt"
	"time"

	"github.com/vladimiradmaev/glucose-guide/internal/clinical"
	"github.com/vladimiradmaev/glucose-guide/internal/domain"
	apperrors "github.com/vladimiradmaev/glucose-guide/internal/errors"
	"github.com/vladimiradmaev/glucose-guide/internal/logger"
	"github.com/vladimiradmaev/glucose-guide/internal/repository"
	"github.com/vladimiradmaev/glucose-guide/internal/utils"
)

const clockWithSeconds = "15:04:05"

type PrescriptionInput struct {
	PatientID uint     `json:"patient_id" validate:"required"`
	Level     float64  `json:"level" validate:"gte=0,lte=500"`
	Symptoms  []string `json:"symptoms" validate:"min=1,dive,required"`
	// Day defaults to today in the clinic time zone. Both 2006-01-02 and 02.01.2006 are accepted.
	Day string `json:"day,omitempty"`
	// At is the time of day stored on the records; defaults to now.
	At time.Time `json:"at,omitempty"`
}

// Prescription is the outcome of a recommendation request. Matched is false
// when no rule covers the level and symptoms; nothing is stored in that case.
type Prescription struct {
	Matched  bool                     `json:"matched"`
	Diet     string                   `json:"diet,omitempty"`
	Exercise string                   `json:"exercise,omitempty"`
	Records  []domain.AdherenceRecord `json:"records,omitempty"`
}

// RecommendationService turns a reading and a symptom selection into pending
// diet and exercise records.
type RecommendationService struct {
	store   repository.Store
	locker  domain.Locker
	catalog *clinical.Catalog
	loc     *time.Location
}

func NewRecommendationService(store repository.Store, locker domain.Locker, catalog *clinical.Catalog, loc *time.Location) *RecommendationService {
	if loc == nil {
		loc = time.UTC
	}
	return &RecommendationService{
		store:   store,
		locker:  locker,
		catalog: catalog,
		loc:     loc,
	}
}

func (s *RecommendationService) Prescribe(ctx context.Context, in PrescriptionInput) (*Prescription, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	now := time.Now().In(s.loc)
	at := now
	if !in.At.IsZero() {
		at = in.At.In(s.loc)
	}
	day := now.Format(utils.DayLayout)
	if in.Day != "" {
		var err error
		if day, err = utils.ParseDay(in.Day); err != nil {
			return nil, apperrors.NewValidationError(err.Error())
		}
	}
	log := logger.WithPatient(in.PatientID, day)

	rec, ok := s.catalog.Resolve(in.Level, in.Symptoms)
	if !ok {
		log.Info("No recommendation rule matched", "level", in.Level, "symptoms", in.Symptoms)
		return &Prescription{Matched: false}, nil
	}

	unlock, err := s.locker.Lock(ctx, dayLockKey(in.PatientID, day))
	if err != nil {
		return nil, err
	}
	defer unlock()

	out := &Prescription{Matched: true, Diet: rec.Diet, Exercise: rec.Exercise}
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		for _, item := range []struct {
			kind domain.AdherenceKind
			name string
		}{
			{domain.KindDiet, rec.Diet},
			{domain.KindExercise, rec.Exercise},
		} {
			stored, err := tx.Adherence().EnsureItem(ctx, item.kind, item.name)
			if err != nil {
				return fmt.Errorf("failed to ensure %s item: %w", item.kind, err)
			}

			record := domain.AdherenceRecord{
				PatientID: in.PatientID,
				Kind:      item.kind,
				ItemID:    stored.ID,
				Day:       day,
				Time:      at.Format(clockWithSeconds),
			}
			if err := tx.Adherence().CreateRecord(ctx, &record); err != nil {
				return fmt.Errorf("failed to create %s record: %w", item.kind, err)
			}
			record.Item = *stored
			out.Records = append(out.Records, record)
		}
		return nil
	})
	if err != nil {
		return nil, storageError(err)
	}

	log.Info("Recommendation prescribed", "diet", rec.Diet, "exercise", rec.Exercise)
	return out, nil
}

// Symptoms is the vocabulary a symptom picker should offer.
func (s *RecommendationService) Symptoms() []string {
	return s.catalog.Symptoms()
}

// Items lists the diets or exercises prescribed so far, by name.
func (s *RecommendationService) Items(ctx context.Context, kind domain.AdherenceKind) ([]domain.AdherenceItem, error) {
	if kind != domain.KindDiet && kind != domain.KindExercise {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown item kind %q", kind))
	}
	items, err := s.store.Adherence().ListItems(ctx, kind)
	if err != nil {
		return nil, storageError(err)
	}
	return items, nil
}
