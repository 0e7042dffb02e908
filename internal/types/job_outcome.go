package types

import (
	"time"

	"github.com/google/uuid"
)

// JobOutcome holds the target variables: whether the subject was hired for the
// role and, if applicable, the performance score they earned in it. Only
// verified outcomes feed the analytic dataset.
type JobOutcome struct {
	ID               uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SubjectID        uuid.UUID  `gorm:"type:uuid;index;not null" json:"subject_id"`
	RoleID           uuid.UUID  `gorm:"type:uuid;index;not null" json:"role_id"`
	CompanyID        *uuid.UUID `gorm:"type:uuid" json:"company_id,omitempty"`
	Hired            bool       `gorm:"column:hired;not null" json:"hired"`
	PerformanceScore *float64   `gorm:"column:performance_score" json:"performance_score,omitempty"`
	MonthsInRole     *int       `gorm:"column:months_in_role" json:"months_in_role,omitempty"`
	Promoted         bool       `gorm:"column:promoted;not null;default:false" json:"promoted"`
	WouldRehire      *bool      `gorm:"column:would_rehire" json:"would_rehire,omitempty"`
	Verified         bool       `gorm:"column:verified;not null;default:false" json:"verified"`
	CreatedAt        time.Time  `gorm:"not null;default:now()" json:"created_at"`
}

func (JobOutcome) TableName() string {
	return "job_outcomes"
}

// Role is descriptive metadata about a role. It joins into the feature matrix
// as identifier/metadata columns, never as features.
type Role struct {
	ID             uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	RoleName       string    `gorm:"column:role_name;not null" json:"role_name"`
	Industry       string    `gorm:"column:industry" json:"industry"`
	SeniorityLevel string    `gorm:"column:seniority_level" json:"seniority_level"`
	CreatedAt      time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Role) TableName() string {
	return "roles"
}

// HRKeyScore is a previously computed composite score for a (subject, role).
// The latest score per pair joins into the dataset as the prior_score target.
type HRKeyScore struct {
	ID            uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SubjectID     uuid.UUID `gorm:"type:uuid;index;not null" json:"subject_id"`
	RoleID        uuid.UUID `gorm:"type:uuid;index;not null" json:"role_id"`
	Score         float64   `gorm:"column:score;not null" json:"score"`
	Confidence    *float64  `gorm:"column:confidence" json:"confidence,omitempty"`
	NObservations int       `gorm:"column:n_observations;not null;default:0" json:"n_observations"`
	ComputedAt    time.Time `gorm:"column:computed_at;not null;default:now()" json:"computed_at"`
}

func (HRKeyScore) TableName() string {
	return "hrkey_scores"
}
