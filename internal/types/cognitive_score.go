package types

import (
	"time"

	"github.com/google/uuid"
)

// CognitiveScore is one cognitive-game result for a subject. Game scores are
// role-independent, so the pivot for this source keys on subject only.
type CognitiveScore struct {
	ID              uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SubjectID       uuid.UUID `gorm:"type:uuid;index;not null" json:"subject_id"`
	GameType        string    `gorm:"column:game_type;not null;index" json:"game_type"`
	NormalizedScore float64   `gorm:"column:normalized_score;not null" json:"normalized_score"`
	Percentile      *float64  `gorm:"column:percentile" json:"percentile,omitempty"`
	AccuracyPct     *float64  `gorm:"column:accuracy_pct" json:"accuracy_pct,omitempty"`
	CreatedAt       time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (CognitiveScore) TableName() string {
	return "cognitive_scores"
}
