package types

import (
	"time"

	"github.com/google/uuid"
)

// KpiObservation is one rated KPI event for a subject in a role. Rows are
// written by the ingestion API and are read-only to the analytics pipeline.
type KpiObservation struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SubjectID    uuid.UUID  `gorm:"type:uuid;index;not null" json:"subject_id"`
	RoleID       uuid.UUID  `gorm:"type:uuid;index" json:"role_id"`
	KpiName      string     `gorm:"column:kpi_name;not null;index" json:"kpi_name"`
	RatingValue  float64    `gorm:"column:rating_value;not null" json:"rating_value"`
	OutcomeValue *float64   `gorm:"column:outcome_value" json:"outcome_value,omitempty"`
	ObserverID   uuid.UUID  `gorm:"type:uuid" json:"observer_id"`
	Verified     bool       `gorm:"column:verified;not null;default:false" json:"verified"`
	CreatedAt    time.Time  `gorm:"not null;default:now()" json:"created_at"`
}

func (KpiObservation) TableName() string {
	return "kpi_observations"
}
