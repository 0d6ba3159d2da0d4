package services

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/vladimiradmaev/glucose-guide/internal/errors"
	"github.com/vladimiradmaev/glucose-guide/internal/events"
	"github.com/vladimiradmaev/glucose-guide/internal/repository"
)

var validate = validator.New()

func validateInput(v interface{}) error {
	if err := validate.Struct(v); err != nil {
		return apperrors.NewValidationErrorFrom(err)
	}
	return nil
}

// dayLockKey names the lock every writer of one patient-day holds.
func dayLockKey(patientID uint, day string) string {
	return fmt.Sprintf("patient:%d:day:%s", patientID, day)
}

// storageError maps repository failures onto the application error types.
// Errors that already carry a type pass through unchanged.
func storageError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if repository.IsNotFound(err) {
		return apperrors.Wrap(err, apperrors.ErrNotFound.Type, apperrors.ErrNotFound.Code, apperrors.ErrNotFound.Message)
	}
	return apperrors.NewDatabaseError(err)
}

// Subscribe wires the derived-state reactions to measurement events.
func Subscribe(bus *events.Bus, insulin *InsulinService, alerts *AlertService) {
	bus.Subscribe(events.MeasurementRecorded, "insulin.recompute", insulin.OnMeasurement)
	bus.Subscribe(events.MeasurementRecorded, "alerts.completeness", alerts.OnMeasurementChanged)
	bus.Subscribe(events.MeasurementRecorded, "alerts.severity", alerts.OnMeasurementRecorded)
	bus.Subscribe(events.MeasurementDeleted, "insulin.recompute", insulin.OnMeasurement)
	bus.Subscribe(events.MeasurementDeleted, "alerts.completeness", alerts.OnMeasurementChanged)
}
