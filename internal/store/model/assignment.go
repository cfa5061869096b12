package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Assignment lifecycle statuses. Exactly one holds at a time; transitions
// are guarded compare-and-set writes in the store.
const (
	AssignmentStatusPending    = "pending"
	AssignmentStatusProcessing = "processing"
	AssignmentStatusCompleted  = "completed"
	AssignmentStatusFailed     = "failed"
)

// Assignment provenance.
const (
	AssignmentSourceClassroom = "classroom"
	AssignmentSourceManual    = "manual"
)

// Assignment kinds.
const (
	AssignmentKindProblemSet     = "problem_set"
	AssignmentKindEssay          = "essay"
	AssignmentKindLabReport      = "lab_report"
	AssignmentKindShortAnswer    = "short_answer"
	AssignmentKindMultipleChoice = "multiple_choice"
	AssignmentKindProject        = "project"
	AssignmentKindGeneral        = "general"
)

type Assignment struct {
	ID          uuid.UUID `gorm:"primaryKey;type:VARCHAR(255);"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   *time.Time
	Title       string `gorm:"not null"`
	Description string `gorm:"type:TEXT;not null"`
	Subject     *string
	CourseName  string
	Instructor  *string
	DueDate     *time.Time
	Kind        string `gorm:"not null;type:VARCHAR(50)"`
	Source      string `gorm:"not null;type:VARCHAR(50)"`

	// ClassroomID is set only for imported assignments and guards against
	// importing the same coursework twice for one owner.
	ClassroomID *string `gorm:"uniqueIndex:assignments_owner_classroom_idx"`

	Username string `gorm:"not null;type:VARCHAR(255);uniqueIndex:assignments_owner_classroom_idx;index:assignments_owner_idx"`
	OrgID    string `gorm:"not null;uniqueIndex:assignments_owner_classroom_idx;index:assignments_owner_idx"`

	Status     string `gorm:"not null;type:VARCHAR(20)"`
	StatusInfo string

	// Generation increases on every dispatch. Completion writes carry the
	// generation of the dispatch that produced them and are discarded on
	// mismatch, so an invocation orphaned by a reset can never overwrite a
	// newer run's result.
	Generation int64 `gorm:"not null;default:0"`

	Attachments []Attachment `gorm:"foreignKey:AssignmentID;references:ID;constraint:OnDelete:CASCADE;"`
	Solution    *Solution    `gorm:"foreignKey:AssignmentID;references:ID;constraint:OnDelete:CASCADE;"`
}

type Attachment struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"`
	AssignmentID uuid.UUID `gorm:"not null;type:VARCHAR(255);"`
	Filename     string    `gorm:"not null"`
	ContentType  string
	ObjectKey    string `gorm:"not null"`
	SizeBytes    int64
}

type AssignmentList []Assignment

func (a Assignment) String() string {
	val, _ := json.Marshal(a)
	return string(val)
}

// SolveStats aggregates per-status counts for the stats endpoint and the
// prometheus collector.
type SolveStats struct {
	Total      int64
	ByStatus   map[string]int64
	BySubject  map[string]int64
	TotalUsers int64
}
