package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
)

// ErrorType represents different types of errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeConflict   ErrorType = "conflict"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeDatabase   ErrorType = "database"
	ErrorTypeExternal   ErrorType = "external"
	ErrorTypeInternal   ErrorType = "internal"
	ErrorTypeTimeout    ErrorType = "timeout"
)

// AppError represents an application error with additional context
type AppError struct {
	Type     ErrorType
	Message  string
	Code     string
	Internal error
	Context  map[string]interface{}
	Source   string
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Type, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the internal error
func (e *AppError) Unwrap() error {
	return e.Internal
}

// Is checks if the error matches the target
func (e *AppError) Is(target error) bool {
	if t, ok := target.(*AppError); ok {
		return e.Type == t.Type && e.Code == t.Code
	}
	return errors.Is(e.Internal, target)
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// LogFields returns structured logging fields
func (e *AppError) LogFields() []interface{} {
	fields := []interface{}{
		"error_type", e.Type,
		"error_code", e.Code,
		"error_message", e.Message,
		"source", e.Source,
	}

	if e.Internal != nil {
		fields = append(fields, "internal_error", e.Internal.Error())
	}

	for k, v := range e.Context {
		fields = append(fields, k, v)
	}

	return fields
}

// New creates a new AppError
func New(errorType ErrorType, code, message string) *AppError {
	return newAt(2, errorType, code, message, nil)
}

// Wrap wraps an existing error into AppError
func Wrap(err error, errorType ErrorType, code, message string) *AppError {
	return newAt(2, errorType, code, message, err)
}

func newAt(skip int, errorType ErrorType, code, message string, internal error) *AppError {
	_, file, line, _ := runtime.Caller(skip)

	return &AppError{
		Type:     errorType,
		Code:     code,
		Message:  message,
		Internal: internal,
		Source:   fmt.Sprintf("%s:%d", file, line),
		Context:  make(map[string]interface{}),
	}
}

// IsType reports whether err is an AppError of the given type.
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == errorType
}

// Handler provides error handling strategies
type Handler struct {
	logger *slog.Logger
}

// NewHandler creates a new error handler
func NewHandler(logger *slog.Logger) *Handler {
	return &Handler{logger: logger}
}

// Handle processes an error according to its type
func (h *Handler) Handle(ctx context.Context, err error) {
	if err == nil {
		return
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		h.handleAppError(ctx, appErr)
	} else {
		h.logger.ErrorContext(ctx, "Unhandled error", "error", err.Error())
	}
}

func (h *Handler) handleAppError(ctx context.Context, err *AppError) {
	switch err.Type {
	case ErrorTypeValidation:
		h.logger.WarnContext(ctx, "Validation error", err.LogFields()...)
	case ErrorTypeConflict, ErrorTypeNotFound:
		h.logger.WarnContext(ctx, "Rejected request", err.LogFields()...)
	case ErrorTypeDatabase, ErrorTypeExternal, ErrorTypeInternal, ErrorTypeTimeout:
		h.logger.ErrorContext(ctx, "Critical error", err.LogFields()...)
	default:
		h.logger.ErrorContext(ctx, "Unknown error type", err.LogFields()...)
	}
}

// Predefined errors. Compare with errors.Is; Type and Code must match.
var (
	ErrNotFound       = New(ErrorTypeNotFound, "NOT_FOUND", "Record not found")
	ErrDuplicateSlot  = New(ErrorTypeConflict, "DUPLICATE_SLOT", "A measurement already exists for this time window")
	ErrAlreadyApplied = New(ErrorTypeConflict, "ALREADY_APPLIED", "An item of this kind is already applied for that day")
	ErrDuplicateUser  = New(ErrorTypeConflict, "DUPLICATE_USER", "A user with this national id already exists")
	ErrDatabaseError  = New(ErrorTypeDatabase, "DB_ERROR", "Database operation failed")
	ErrLockTimeout    = New(ErrorTypeTimeout, "LOCK_TIMEOUT", "Timed out waiting for the patient-day lock")
	ErrDelivery       = New(ErrorTypeExternal, "DELIVERY", "Notification delivery failed")
)

// Convenience functions for common errors
func NewValidationError(message string) *AppError {
	return newAt(2, ErrorTypeValidation, "VALIDATION", message, nil)
}

// NewValidationErrorFrom wraps a validator error so callers can show the field details.
func NewValidationErrorFrom(err error) *AppError {
	return newAt(2, ErrorTypeValidation, "VALIDATION", err.Error(), err)
}

func NewNotFoundError(entity string, id interface{}) *AppError {
	return newAt(2, ErrorTypeNotFound, "NOT_FOUND", fmt.Sprintf("%s not found", entity), nil).
		WithContext("entity", entity).
		WithContext("id", id)
}

func NewConflictError(code, message string) *AppError {
	return newAt(2, ErrorTypeConflict, code, message, nil)
}

func NewDatabaseError(err error) *AppError {
	return newAt(2, ErrorTypeDatabase, "DB_ERROR", "Database operation failed", err)
}

func NewDeliveryError(err error, channel string) *AppError {
	return newAt(2, ErrorTypeExternal, "DELIVERY", fmt.Sprintf("%s delivery failed", channel), err).
		WithContext("channel", channel)
}

func NewTimeoutError(operation string) *AppError {
	return newAt(2, ErrorTypeTimeout, "LOCK_TIMEOUT", fmt.Sprintf("%s operation timed out", operation), nil).
		WithContext("operation", operation)
}
