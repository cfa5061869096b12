// Package v1alpha1 holds the wire types of the assignment solver REST API.
package v1alpha1

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

type AssignmentForm struct {
	Title       string     `json:"title" validate:"required,max=500"`
	Description string     `json:"description" validate:"required"`
	Subject     *string    `json:"subject,omitempty" validate:"omitempty,max=100"`
	CourseName  string     `json:"course_name,omitempty" validate:"omitempty,max=255"`
	Instructor  *string    `json:"instructor,omitempty" validate:"omitempty,max=255"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Kind        string     `json:"kind,omitempty" validate:"omitempty,assignment_kind"`
}

func (f *AssignmentForm) Bind(_ *http.Request) error {
	return nil
}

// AssignmentUpdate carries a partial update; absent fields are untouched.
type AssignmentUpdate struct {
	Title       *string    `json:"title,omitempty" validate:"omitempty,min=1,max=500"`
	Description *string    `json:"description,omitempty" validate:"omitempty,min=1"`
	Subject     *string    `json:"subject,omitempty" validate:"omitempty,max=100"`
	CourseName  *string    `json:"course_name,omitempty" validate:"omitempty,max=255"`
	Instructor  *string    `json:"instructor,omitempty" validate:"omitempty,max=255"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Kind        *string    `json:"kind,omitempty" validate:"omitempty,assignment_kind"`
}

func (u *AssignmentUpdate) Bind(_ *http.Request) error {
	return nil
}

type RatingForm struct {
	Rating int `json:"rating" validate:"required,min=1,max=5"`
}

func (f *RatingForm) Bind(_ *http.Request) error {
	return nil
}

type ClassroomImportForm struct {
	CourseID string `json:"course_id" validate:"required"`
	// Token overrides the token stored for the user, when set.
	Token string `json:"token,omitempty"`
}

func (f *ClassroomImportForm) Bind(_ *http.Request) error {
	return nil
}

type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type,omitempty"`
	SizeBytes   int64  `json:"size_bytes,omitempty"`
}

type Assignment struct {
	ID          uuid.UUID    `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Subject     *string      `json:"subject,omitempty"`
	CourseName  string       `json:"course_name,omitempty"`
	Instructor  *string      `json:"instructor,omitempty"`
	DueDate     *time.Time   `json:"due_date,omitempty"`
	Kind        string       `json:"kind"`
	Source      string       `json:"source"`
	Status      string       `json:"status"`
	StatusInfo  string       `json:"status_info,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   *time.Time   `json:"updated_at,omitempty"`
}

type AssignmentList struct {
	Items []Assignment `json:"items"`
	Total int64        `json:"total"`
}

// SolveAck is the 202 body of solve, regenerate and reset-status.
type SolveAck struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

type SolutionStep struct {
	Text   string `json:"text"`
	Detail string `json:"detail,omitempty"`
}

type Solution struct {
	ID         uuid.UUID      `json:"id"`
	Content    string         `json:"content"`
	Steps      []SolutionStep `json:"steps,omitempty"`
	Reasoning  *string        `json:"reasoning,omitempty"`
	Confidence float64        `json:"confidence"`
	Model      string         `json:"model,omitempty"`
	Rating     *int           `json:"rating,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

type Stats struct {
	Total     int64            `json:"total"`
	ByStatus  map[string]int64 `json:"by_status"`
	BySubject map[string]int64 `json:"by_subject,omitempty"`
}

type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

type Health struct {
	Status string `json:"status"`
}

// Error is the envelope of every non-2xx response.
type Error struct {
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}
