package clinical

import (
	"fmt"

	"github.com/vladimiradmaev/glucose-guide/internal/domain"
)

const (
	LowGlucoseThreshold  = 70.0
	HighGlucoseThreshold = 180.0
)

// ReadingSeverity is the patient-facing check run once per new reading.
// The second result is false when the level is in range.
func ReadingSeverity(level float64) (domain.AlertCategory, bool) {
	switch {
	case level < LowGlucoseThreshold:
		return domain.AlertLowGlucose, true
	case level > HighGlucoseThreshold:
		return domain.AlertHighGlucose, true
	}
	return "", false
}

// ReadingSeverityMessage renders the patient-facing text for a severity alert.
func ReadingSeverityMessage(category domain.AlertCategory, level float64) string {
	if category == domain.AlertLowGlucose {
		return fmt.Sprintf("Kan şekeri seviyesi çok düşük: %s mg/dL", FormatLevel(level))
	}
	return fmt.Sprintf("Kan şekeri seviyesi çok yüksek: %s mg/dL", FormatLevel(level))
}

// PhysicianBand classifies a single reading for the physician pass.
// Readings in 70..110 produce no alert.
func PhysicianBand(level float64) (domain.AlertCategory, bool) {
	switch {
	case level < 70:
		return domain.AlertUrgent, true
	case level > 110 && level <= 150:
		return domain.AlertFollowUp, true
	case level > 150 && level <= 200:
		return domain.AlertMonitoring, true
	case level > 200:
		return domain.AlertUrgentIntervention, true
	}
	return "", false
}

var physicianMessages = map[domain.AlertCategory]string{
	domain.AlertMeasurementMissing:      "Hasta gün boyunca kan şekeri ölçümü yapmamıştır. Acil takip önerilir.",
	domain.AlertMeasurementInsufficient: "Hastanın günlük kan şekeri ölçüm sayısı yetersiz (<3). Durum izlenmelidir.",
	domain.AlertUrgent:                  "Hastanın kan şekeri seviyesi 70 mg/dL'nin altına düştü. Hipoglisemi riski! Hızlı müdahale gerekebilir.",
	domain.AlertFollowUp:                "Hastanın kan şekeri 111-150 mg/dL arasında. Durum izlenmeli.",
	domain.AlertMonitoring:              "Hastanın kan şekeri 151-200 mg/dL arasında. Diyabet kontrolü gereklidir.",
	domain.AlertUrgentIntervention:      "Hastanın kan şekeri 200 mg/dL'nin üzerinde. Hiperglisemi durumu. Acil müdahale gerekebilir.",
	domain.AlertFirstMeasurementMissing: "Hasta henüz hiç kan şekeri ölçümü yapmamıştır. Takip önerilir.",
}

// PhysicianMessage returns the fixed text of a physician-facing category.
func PhysicianMessage(category domain.AlertCategory) string {
	return physicianMessages[category]
}

// CompletenessAlert is one alert the completeness pass wants to exist for a day.
type CompletenessAlert struct {
	Category domain.AlertCategory
	Message  string
}

// Completeness returns the patient-facing alerts a day with count classified
// readings should carry, given expected slots per day. day is in display form.
func Completeness(count, expected int, day string) []CompletenessAlert {
	missing := expected - count
	switch {
	case count < domain.MinReliableReadings:
		return []CompletenessAlert{
			{
				Category: domain.AlertInsufficientMeasurement,
				Message:  fmt.Sprintf("%s tarihli ölçümler yetersiz! Ortalama güvenilir değil.", day),
			},
			{
				Category: domain.AlertMissingMeasurement,
				Message:  fmt.Sprintf("%s tarihinde %d ölçüm eksik. Ortalama eksik verilere göre hesaplandı.", day, missing),
			},
		}
	case missing > 0:
		return []CompletenessAlert{
			{
				Category: domain.AlertMissingMeasurement,
				Message:  fmt.Sprintf("Ölçüm eksik! %s tarihinde %d ölçüm ortalama alınırken hesaba katılmadı.", day, missing),
			},
		}
	}
	return nil
}

// FormatLevel prints whole levels without a fraction.
func FormatLevel(level float64) string {
	if level == float64(int64(level)) {
		return fmt.Sprintf("%d", int64(level))
	}
	return fmt.Sprintf("%.1f", level)
}
