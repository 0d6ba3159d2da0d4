package interfaces

import (
	"context"

	"github.com/vladimiradmaev/glucose-guide/internal/domain"
	"github.com/vladimiradmaev/glucose-guide/internal/services"
)

// UserServiceInterface defines the contract for the doctor and patient registry
type UserServiceInterface interface {
	RegisterUser(ctx context.Context, in services.RegisterUserInput) (*domain.User, error)
	GetUser(ctx context.Context, id uint) (*domain.User, error)
	GetUserByNationalID(ctx context.Context, nationalID string) (*domain.User, error)
	Patients(ctx context.Context, doctorID uint) ([]domain.User, error)
	Doctors(ctx context.Context) ([]domain.User, error)
	LinkPatient(ctx context.Context, doctorID, patientID uint) error
	SetTelegramChat(ctx context.Context, userID uint, chatID int64) error
}

// BloodSugarServiceInterface defines the contract for measurement intake
type BloodSugarServiceInterface interface {
	Record(ctx context.Context, in services.RecordInput) (*services.RecordResult, error)
	DeleteMeasurement(ctx context.Context, id uint) error
	Measurements(ctx context.Context, patientID uint, from, to string) ([]domain.Measurement, error)
}

// InsulinServiceInterface defines the contract for the daily aggregator
type InsulinServiceInterface interface {
	Recompute(ctx context.Context, patientID uint, day string) (*domain.DailyInsulinSuggestion, error)
	Suggestion(ctx context.Context, patientID uint, day string) (*domain.DailyInsulinSuggestion, error)
	Suggestions(ctx context.Context, patientID uint) ([]domain.DailyInsulinSuggestion, error)
	DailyAverages(ctx context.Context, patientID uint) ([]services.DailyAverage, error)
}

// AlertServiceInterface defines the contract for the alert engine and feed
type AlertServiceInterface interface {
	CheckCompleteness(ctx context.Context, patientID uint, day string) ([]domain.Alert, error)
	GeneratePhysicianAlerts(ctx context.Context, patientID uint, opts services.PhysicianPassOptions) (*services.PhysicianPassResult, error)
	CheckFirstMeasurement(ctx context.Context, patientID uint) (bool, error)
	FetchAlerts(ctx context.Context, filter services.AlertFilter) ([]domain.Alert, error)
	AlertHistory(ctx context.Context, filter services.AlertFilter) ([]domain.Alert, error)
}

// RecommendationServiceInterface defines the contract for the recommendation resolver
type RecommendationServiceInterface interface {
	Prescribe(ctx context.Context, in services.PrescriptionInput) (*services.Prescription, error)
	Symptoms() []string
	Items(ctx context.Context, kind domain.AdherenceKind) ([]domain.AdherenceItem, error)
}

// AdherenceServiceInterface defines the contract for the adherence tracker
type AdherenceServiceInterface interface {
	Progress(ctx context.Context, patientID uint) (*services.Progress, error)
	MarkApplied(ctx context.Context, recordID uint) (*domain.AdherenceRecord, error)
	Pending(ctx context.Context, patientID uint) ([]domain.AdherenceRecord, error)
	History(ctx context.Context, patientID uint) ([]domain.AdherenceRecord, error)
}

var (
	_ UserServiceInterface           = (*services.UserService)(nil)
	_ BloodSugarServiceInterface     = (*services.BloodSugarService)(nil)
	_ InsulinServiceInterface        = (*services.InsulinService)(nil)
	_ AlertServiceInterface          = (*services.AlertService)(nil)
	_ RecommendationServiceInterface = (*services.RecommendationService)(nil)
	_ AdherenceServiceInterface      = (*services.AdherenceService)(nil)
)
