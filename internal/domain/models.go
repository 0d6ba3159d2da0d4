package domain

import (
	"time"
)

// WindowSlot is one of the fixed daily time windows a reading is counted in.
type WindowSlot string

const (
	SlotMorning   WindowSlot = "morning"
	SlotNoon      WindowSlot = "noon"
	SlotAfternoon WindowSlot = "afternoon"
	SlotEvening   WindowSlot = "evening"
	SlotNight     WindowSlot = "night"
	// SlotNone marks a reading taken outside every window. It is stored but
	// never counted in the daily average.
	SlotNone WindowSlot = "none"
)

func (s WindowSlot) Classified() bool {
	return s != "" && s != SlotNone
}

// Known reports whether s is one of the five daily windows.
func (s WindowSlot) Known() bool {
	switch s {
	case SlotMorning, SlotNoon, SlotAfternoon, SlotEvening, SlotNight:
		return true
	}
	return false
}

// Role distinguishes doctors from patients in the users table.
type Role string

const (
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// User is a doctor or a patient.
type User struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	NationalID     string     `gorm:"size:11;uniqueIndex;not null" json:"national_id"`
	FirstName      string     `gorm:"size:100;not null" json:"first_name"`
	LastName       string     `gorm:"size:100;not null" json:"last_name"`
	Email          string     `gorm:"size:255" json:"email"`
	Role           Role       `gorm:"size:16;index;not null" json:"role"`
	Gender         string     `gorm:"size:16" json:"gender,omitempty"`
	BirthDate      *time.Time `json:"birth_date,omitempty"`
	TelegramChatID *int64     `json:"telegram_chat_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// DoctorPatient links a patient to the doctor who follows them.
type DoctorPatient struct {
	DoctorID  uint `gorm:"primaryKey"`
	PatientID uint `gorm:"primaryKey;index"`
	CreatedAt time.Time
}

// Measurement is a single blood glucose reading in mg/dL.
type Measurement struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	PatientID  uint       `gorm:"not null;index:idx_measurement_patient_day" json:"patient_id"`
	Day        string     `gorm:"size:10;not null;index:idx_measurement_patient_day" json:"day"`
	MeasuredAt time.Time  `gorm:"not null" json:"measured_at"`
	Level      float64    `gorm:"not null" json:"level"`
	Slot       WindowSlot `gorm:"size:16;not null" json:"slot"`
	CreatedAt  time.Time  `json:"created_at"`
}

// DailyInsulinSuggestion is derived from the classified readings of one day.
type DailyInsulinSuggestion struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	PatientID    uint      `gorm:"not null;uniqueIndex:uidx_suggestion_patient_day" json:"patient_id"`
	Day          string    `gorm:"size:10;not null;uniqueIndex:uidx_suggestion_patient_day" json:"day"`
	Average      float64   `gorm:"not null" json:"average"`
	Dose         int       `gorm:"not null" json:"dose_ml"`
	ReadingCount int       `gorm:"not null" json:"reading_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Reliable reports whether enough windows were filled for the average to be trusted.
func (s DailyInsulinSuggestion) Reliable() bool {
	return s.ReadingCount >= MinReliableReadings
}

// MinReliableReadings is the classified reading count below which a day's average is flagged.
const MinReliableReadings = 3

// AlertCategory is the fixed alert taxonomy.
type AlertCategory string

const (
	// Patient-facing.
	AlertInsufficientMeasurement AlertCategory = "insufficient_measurement"
	AlertMissingMeasurement      AlertCategory = "missing_measurement"
	AlertLowGlucose              AlertCategory = "low_glucose"
	AlertHighGlucose             AlertCategory = "high_glucose"

	// Physician-facing.
	AlertMeasurementMissing      AlertCategory = "measurement_missing"
	AlertMeasurementInsufficient AlertCategory = "measurement_insufficient"
	AlertUrgent                  AlertCategory = "urgent_alert"
	AlertFollowUp                AlertCategory = "follow_up"
	AlertMonitoring              AlertCategory = "monitoring"
	AlertUrgentIntervention      AlertCategory = "urgent_intervention"
	AlertFirstMeasurementMissing AlertCategory = "first_measurement_missing"
)

// Audience selects which side of the feed an alert belongs to.
type Audience string

const (
	AudiencePatient   Audience = "patient"
	AudiencePhysician Audience = "physician"
)

// Categories returns the alert categories shown to the audience.
func (a Audience) Categories() []AlertCategory {
	switch a {
	case AudiencePatient:
		return []AlertCategory{
			AlertInsufficientMeasurement, AlertMissingMeasurement,
			AlertLowGlucose, AlertHighGlucose,
		}
	case AudiencePhysician:
		return []AlertCategory{
			AlertMeasurementMissing, AlertMeasurementInsufficient,
			AlertUrgent, AlertFollowUp, AlertMonitoring, AlertUrgentIntervention,
			AlertFirstMeasurementMissing,
		}
	}
	return nil
}

// Urgent reports whether the physician should be notified outside the feed.
func (c AlertCategory) Urgent() bool {
	switch c {
	case AlertUrgent, AlertUrgentIntervention, AlertMeasurementMissing:
		return true
	}
	return false
}

// Alert is one entry of the alert feed. DedupKey is set for alerts that must
// exist at most once (completeness state, physician pass, first measurement);
// per-reading severity alerts leave it nil and accumulate.
type Alert struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	PatientID     uint          `gorm:"not null;index:idx_alert_patient_day" json:"patient_id"`
	Day           string        `gorm:"size:10;not null;index:idx_alert_patient_day" json:"day"`
	Category      AlertCategory `gorm:"size:40;not null;index" json:"category"`
	Message       string        `gorm:"not null" json:"message"`
	Delivered     bool          `gorm:"not null;default:false" json:"delivered"`
	DedupKey      *string       `gorm:"size:120;uniqueIndex" json:"-"`
	MeasurementID *uint         `json:"measurement_id,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// AdherenceKind is the diet or exercise variant of a prescription.
type AdherenceKind string

const (
	KindDiet     AdherenceKind = "diet"
	KindExercise AdherenceKind = "exercise"
)

// AdherenceItem is a named diet or exercise type, created on first use.
type AdherenceItem struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	Kind        AdherenceKind `gorm:"size:16;not null;uniqueIndex:uidx_item_kind_name" json:"kind"`
	Name        string        `gorm:"size:120;not null;uniqueIndex:uidx_item_kind_name" json:"name"`
	Description string        `json:"description,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// AdherenceRecord tracks whether a prescribed item was applied by the patient.
type AdherenceRecord struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	PatientID uint          `gorm:"not null;index" json:"patient_id"`
	Kind      AdherenceKind `gorm:"size:16;not null;index" json:"kind"`
	ItemID    uint          `gorm:"not null" json:"item_id"`
	Item      AdherenceItem `gorm:"foreignKey:ItemID" json:"item"`
	Day       string        `gorm:"size:10;not null" json:"day"`
	Time      string        `gorm:"size:8;not null" json:"time"`
	Applied   bool          `gorm:"not null;default:false" json:"applied"`
	AppliedAt *time.Time    `json:"applied_at,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// Recommendation is the diet and exercise pair picked by a catalog rule.
type Recommendation struct {
	Diet     string `json:"diet"`
	Exercise string `json:"exercise"`
}
