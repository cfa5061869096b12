package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Solution struct {
	ID           uuid.UUID `gorm:"primaryKey;type:VARCHAR(255);"`
	CreatedAt    time.Time `gorm:"not null"`
	AssignmentID uuid.UUID `gorm:"not null;type:VARCHAR(255);uniqueIndex:solutions_assignment_idx"`
	Content      string    `gorm:"type:TEXT;not null"`
	Steps        []byte    `gorm:"type:jsonb"`
	Reasoning    *string   `gorm:"type:TEXT"`
	Confidence   float64
	ModelID      string `gorm:"type:VARCHAR(100)"`

	// Generation of the dispatch that produced this solution.
	Generation int64 `gorm:"not null;default:0"`

	Rating *int
}

// SolutionStep is the JSON shape stored in Solution.Steps.
type SolutionStep struct {
	Text   string `json:"text"`
	Detail string `json:"detail,omitempty"`
}

func (s Solution) String() string {
	val, _ := json.Marshal(s)
	return string(val)
}

// DecodeSteps unmarshals the stored step list. A nil Steps column yields an
// empty slice.
func (s *Solution) DecodeSteps() ([]SolutionStep, error) {
	if len(s.Steps) == 0 {
		return nil, nil
	}
	var steps []SolutionStep
	if err := json.Unmarshal(s.Steps, &steps); err != nil {
		return nil, err
	}
	return steps, nil
}
