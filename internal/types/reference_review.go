package types

import (
	"time"

	"github.com/google/uuid"
)

// ReferenceReview is one reference check for a subject in a role.
type ReferenceReview struct {
	ID            uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SubjectID     uuid.UUID `gorm:"type:uuid;index;not null" json:"subject_id"`
	RoleID        uuid.UUID `gorm:"type:uuid;index" json:"role_id"`
	OverallRating float64   `gorm:"column:overall_rating;not null" json:"overall_rating"`
	ReviewerID    uuid.UUID `gorm:"type:uuid" json:"reviewer_id"`
	Verified      bool      `gorm:"column:verified;not null;default:false" json:"verified"`
	CreatedAt     time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (ReferenceReview) TableName() string {
	return "reference_reviews"
}
