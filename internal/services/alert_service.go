package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vladimiradmaev/glucose-guide/internal/clinical"
	"github.com/vladimiradmaev/glucose-guide/internal/domain"
	apperrors "github.com/vladimiradmaev/glucose-guide/internal/errors"
	"github.com/vladimiradmaev/glucose-guide/internal/events"
	"github.com/vladimiradmaev/glucose-guide/internal/logger"
	"github.com/vladimiradmaev/glucose-guide/internal/repository"
	"github.com/vladimiradmaev/glucose-guide/internal/utils"
)

// AlertFilter selects the feed of one patient for one audience.
type AlertFilter struct {
	PatientID uint            `json:"patient_id" validate:"required"`
	Audience  domain.Audience `json:"audience" validate:"required,oneof=patient physician"`
	Day       string          `json:"day,omitempty"`
}

// PhysicianPassOptions bounds the physician pass to [From, To]. When both are
// empty the pass covers every day the patient has readings on.
type PhysicianPassOptions struct {
	From string `json:"from,omitempty" validate:"required_with=To"`
	To   string `json:"to,omitempty" validate:"required_with=From"`
}

// PhysicianPassResult reports what a physician pass added.
type PhysicianPassResult struct {
	Days    int            `json:"days"`
	Created []domain.Alert `json:"created"`
	// Notified lists the doctors that received the urgent digest.
	Notified []uint `json:"notified,omitempty"`
}

// MaxPhysicianPassDays bounds an explicit physician pass range.
const MaxPhysicianPassDays = 366

var completenessCategories = []domain.AlertCategory{
	domain.AlertInsufficientMeasurement,
	domain.AlertMissingMeasurement,
}

func dayDedupKey(patientID uint, day string, category domain.AlertCategory) string {
	return fmt.Sprintf("day:%d:%s:%s", patientID, day, category)
}

func readingDedupKey(measurementID uint, category domain.AlertCategory) string {
	return fmt.Sprintf("reading:%d:%s", measurementID, category)
}

func firstMeasurementDedupKey(patientID uint) string {
	return fmt.Sprintf("first:%d", patientID)
}

// AlertService generates, deduplicates and serves the alert feed.
type AlertService struct {
	store    repository.Store
	locker   domain.Locker
	windows  *clinical.WindowTable
	notifier domain.Notifier
	loc      *time.Location
}

func NewAlertService(store repository.Store, locker domain.Locker, windows *clinical.WindowTable, notifier domain.Notifier, loc *time.Location) *AlertService {
	if loc == nil {
		loc = time.UTC
	}
	return &AlertService{
		store:    store,
		locker:   locker,
		windows:  windows,
		notifier: notifier,
		loc:      loc,
	}
}

// CheckCompleteness brings the day's completeness alerts in line with its
// classified readings and returns the alerts now in force.
func (s *AlertService) CheckCompleteness(ctx context.Context, patientID uint, day string) ([]domain.Alert, error) {
	day, err := utils.ParseDay(day)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	unlock, err := s.locker.Lock(ctx, dayLockKey(patientID, day))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var current []domain.Alert
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		current, err = s.syncCompleteness(ctx, tx, patientID, day)
		return err
	})
	if err != nil {
		return nil, storageError(err)
	}
	return current, nil
}

// OnMeasurementChanged re-evaluates completeness for the day of the event.
func (s *AlertService) OnMeasurementChanged(ctx context.Context, tx repository.Store, ev events.MeasurementEvent) error {
	_, err := s.syncCompleteness(ctx, tx, ev.Measurement.PatientID, ev.Measurement.Day)
	return err
}

// OnMeasurementRecorded runs the per-reading severity check.
func (s *AlertService) OnMeasurementRecorded(ctx context.Context, tx repository.Store, ev events.MeasurementEvent) error {
	_, err := s.checkReading(ctx, tx, ev.Measurement)
	return err
}

// syncCompleteness applies the desired completeness alerts with replace-on-write:
// an unchanged alert is left alone, a changed one is rewritten and re-armed,
// and one that is no longer wanted is removed.
func (s *AlertService) syncCompleteness(ctx context.Context, tx repository.Store, patientID uint, day string) ([]domain.Alert, error) {
	levels, err := tx.Measurements().ClassifiedLevels(ctx, patientID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to load classified readings: %w", err)
	}

	display := day
	if d, err := time.Parse(utils.DayLayout, day); err == nil {
		display = d.Format(utils.DisplayDayLayout)
	}
	desired := clinical.Completeness(len(levels), s.windows.Len(), display)

	keys := make([]string, 0, len(completenessCategories))
	for _, c := range completenessCategories {
		keys = append(keys, dayDedupKey(patientID, day, c))
	}
	existing, err := tx.Alerts().ByDedupKeys(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to load completeness alerts: %w", err)
	}
	byKey := make(map[string]domain.Alert, len(existing))
	for _, a := range existing {
		byKey[*a.DedupKey] = a
	}

	var created, rearmed int
	for _, want := range desired {
		key := dayDedupKey(patientID, day, want.Category)
		if have, ok := byKey[key]; ok {
			delete(byKey, key)
			if have.Message == want.Message {
				continue
			}
			if err := tx.Alerts().Rearm(ctx, have.ID, want.Message); err != nil {
				return nil, fmt.Errorf("failed to update alert: %w", err)
			}
			rearmed++
			continue
		}

		alert := &domain.Alert{
			PatientID: patientID,
			Day:       day,
			Category:  want.Category,
			Message:   want.Message,
			DedupKey:  &key,
		}
		if err := tx.Alerts().Create(ctx, alert); err != nil {
			return nil, fmt.Errorf("failed to create alert: %w", err)
		}
		created++
	}

	stale := make([]uint, 0, len(byKey))
	for _, a := range byKey {
		stale = append(stale, a.ID)
	}
	if err := tx.Alerts().Delete(ctx, stale...); err != nil {
		return nil, fmt.Errorf("failed to remove alerts: %w", err)
	}

	if created+rearmed+len(stale) > 0 {
		logger.WithPatient(patientID, day).Info("Completeness alerts synced",
			"classified", len(levels), "created", created, "updated", rearmed, "removed", len(stale))
	}

	current, err := tx.Alerts().ByDedupKeys(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to reload completeness alerts: %w", err)
	}
	return current, nil
}

// checkReading adds a low or high glucose alert for m. These accumulate, one per reading.
func (s *AlertService) checkReading(ctx context.Context, tx repository.Store, m domain.Measurement) (*domain.Alert, error) {
	category, ok := clinical.ReadingSeverity(m.Level)
	if !ok {
		return nil, nil
	}

	measurementID := m.ID
	alert := &domain.Alert{
		PatientID:     m.PatientID,
		Day:           m.Day,
		Category:      category,
		Message:       clinical.ReadingSeverityMessage(category, m.Level),
		MeasurementID: &measurementID,
	}
	if err := tx.Alerts().Create(ctx, alert); err != nil {
		return nil, fmt.Errorf("failed to create severity alert: %w", err)
	}

	logger.WithPatient(m.PatientID, m.Day).Info("Severity alert raised", "category", category, "level", m.Level)
	return alert, nil
}

// GeneratePhysicianAlerts runs the physician-facing daily severity pass.
// Alerts are keyed by day or by reading, so running the pass again only adds
// what is new. Urgent alerts are sent to the patient's doctors after commit;
// a delivery failure is returned together with the result.
func (s *AlertService) GeneratePhysicianAlerts(ctx context.Context, patientID uint, opts PhysicianPassOptions) (*PhysicianPassResult, error) {
	if patientID == 0 {
		return nil, apperrors.NewValidationError("patient id is required")
	}
	if err := validateInput(opts); err != nil {
		return nil, err
	}

	var explicitDays []string
	if opts.From != "" {
		from, err := utils.ParseDay(opts.From)
		if err != nil {
			return nil, apperrors.NewValidationError(err.Error())
		}
		to, err := utils.ParseDay(opts.To)
		if err != nil {
			return nil, apperrors.NewValidationError(err.Error())
		}
		if explicitDays, err = utils.DaysBetween(from, to, MaxPhysicianPassDays); err != nil {
			return nil, apperrors.NewValidationError(err.Error())
		}
	}

	result := &PhysicianPassResult{}
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		days := explicitDays
		if days == nil {
			var err error
			if days, err = tx.Measurements().Days(ctx, patientID); err != nil {
				return fmt.Errorf("failed to list measured days: %w", err)
			}
		}
		result.Days = len(days)

		for _, day := range days {
			created, err := s.physicianDay(ctx, tx, patientID, day)
			if err != nil {
				return err
			}
			result.Created = append(result.Created, created...)
		}
		return nil
	})
	if err != nil {
		return nil, storageError(err)
	}

	logger.WithPatient(patientID, "").Info("Physician pass completed", "days", result.Days, "created", len(result.Created))

	notified, err := s.notifyUrgent(ctx, patientID, result.Created)
	result.Notified = notified
	if err != nil {
		return result, err
	}
	return result, nil
}

func (s *AlertService) physicianDay(ctx context.Context, tx repository.Store, patientID uint, day string) ([]domain.Alert, error) {
	readings, err := tx.Measurements().ListByDay(ctx, patientID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to load readings: %w", err)
	}

	var created []domain.Alert
	add := func(category domain.AlertCategory, key string, measurementID *uint) error {
		alert := domain.Alert{
			PatientID:     patientID,
			Day:           day,
			Category:      category,
			Message:       clinical.PhysicianMessage(category),
			DedupKey:      &key,
			MeasurementID: measurementID,
		}
		ok, err := tx.Alerts().CreateIfAbsent(ctx, &alert)
		if err != nil {
			return fmt.Errorf("failed to create physician alert: %w", err)
		}
		if ok {
			created = append(created, alert)
		}
		return nil
	}

	if len(readings) == 0 {
		err := add(domain.AlertMeasurementMissing, dayDedupKey(patientID, day, domain.AlertMeasurementMissing), nil)
		return created, err
	}
	if len(readings) < domain.MinReliableReadings {
		if err := add(domain.AlertMeasurementInsufficient, dayDedupKey(patientID, day, domain.AlertMeasurementInsufficient), nil); err != nil {
			return nil, err
		}
	}

	for _, m := range readings {
		category, ok := clinical.PhysicianBand(m.Level)
		if !ok {
			continue
		}
		id := m.ID
		if err := add(category, readingDedupKey(m.ID, category), &id); err != nil {
			return nil, err
		}
	}
	return created, nil
}

func (s *AlertService) notifyUrgent(ctx context.Context, patientID uint, created []domain.Alert) ([]uint, error) {
	var urgent []domain.Alert
	for _, a := range created {
		if a.Category.Urgent() {
			urgent = append(urgent, a)
		}
	}
	if len(urgent) == 0 || s.notifier == nil {
		return nil, nil
	}

	users := s.store.Users()
	doctors, err := users.DoctorsOf(ctx, patientID)
	if err != nil {
		return nil, storageError(err)
	}

	patientName := fmt.Sprintf("Hasta #%d", patientID)
	if p, err := users.GetByID(ctx, patientID); err == nil {
		patientName = p.FullName()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s için %d acil uyarı:\n", patientName, len(urgent))
	for _, a := range urgent {
		day := a.Day
		if d, err := time.Parse(utils.DayLayout, a.Day); err == nil {
			day = d.Format(utils.DisplayDayLayout)
		}
		fmt.Fprintf(&b, "\n%s: %s", day, a.Message)
	}

	var notified []uint
	for _, doctor := range doctors {
		if doctor.TelegramChatID == nil {
			continue
		}
		recipient := strconv.FormatInt(*doctor.TelegramChatID, 10)
		if err := s.notifier.Send(ctx, recipient, "Acil hasta uyarısı", b.String()); err != nil {
			return notified, err
		}
		notified = append(notified, doctor.ID)
	}
	return notified, nil
}

// CheckFirstMeasurement raises the "never measured" alert for a patient with
// no readings at all. It reports whether a new alert was created.
func (s *AlertService) CheckFirstMeasurement(ctx context.Context, patientID uint) (bool, error) {
	if patientID == 0 {
		return false, apperrors.NewValidationError("patient id is required")
	}

	var created bool
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		count, err := tx.Measurements().CountByPatient(ctx, patientID)
		if err != nil {
			return fmt.Errorf("failed to count readings: %w", err)
		}
		if count > 0 {
			return nil
		}

		key := firstMeasurementDedupKey(patientID)
		created, err = tx.Alerts().CreateIfAbsent(ctx, &domain.Alert{
			PatientID: patientID,
			Day:       utils.DayKey(time.Now(), s.loc),
			Category:  domain.AlertFirstMeasurementMissing,
			Message:   clinical.PhysicianMessage(domain.AlertFirstMeasurementMissing),
			DedupKey:  &key,
		})
		return err
	})
	if err != nil {
		return false, storageError(err)
	}
	return created, nil
}

// FetchAlerts returns the undelivered alerts of the feed, newest first, and
// marks them delivered so they are shown only once.
func (s *AlertService) FetchAlerts(ctx context.Context, filter AlertFilter) ([]domain.Alert, error) {
	query, err := s.query(filter, true)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, fmt.Sprintf("patient:%d:alerts", filter.PatientID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var alerts []domain.Alert
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		if alerts, err = tx.Alerts().List(ctx, query); err != nil {
			return err
		}
		ids := make([]uint, len(alerts))
		for i := range alerts {
			ids[i] = alerts[i].ID
			alerts[i].Delivered = true
		}
		return tx.Alerts().MarkDelivered(ctx, ids)
	})
	if err != nil {
		return nil, storageError(err)
	}
	return alerts, nil
}

// AlertHistory lists every alert of the feed, delivered or not, without marking anything.
func (s *AlertService) AlertHistory(ctx context.Context, filter AlertFilter) ([]domain.Alert, error) {
	query, err := s.query(filter, false)
	if err != nil {
		return nil, err
	}
	alerts, err := s.store.Alerts().List(ctx, query)
	if err != nil {
		return nil, storageError(err)
	}
	return alerts, nil
}

func (s *AlertService) query(filter AlertFilter, onlyUndelivered bool) (repository.AlertFilter, error) {
	if err := validateInput(filter); err != nil {
		return repository.AlertFilter{}, err
	}
	day := ""
	if filter.Day != "" {
		var err error
		if day, err = utils.ParseDay(filter.Day); err != nil {
			return repository.AlertFilter{}, apperrors.NewValidationError(err.Error())
		}
	}
	return repository.AlertFilter{
		PatientID:       filter.PatientID,
		Categories:      filter.Audience.Categories(),
		Day:             day,
		OnlyUndelivered: onlyUndelivered,
	}, nil
}
