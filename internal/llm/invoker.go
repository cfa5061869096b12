package llm

import (
	"context"
	"errors"
)

// ErrMalformedOutput marks responses the model produced but the parser
// could not turn into a solution. Callers treat it like any other
// invocation failure.
var ErrMalformedOutput = errors.New("malformed model output")

// Request carries the assignment content handed to the model.
type Request struct {
	Title       string
	Description string
	Subject     string
	Kind        string
	// Attachments holds extracted attachment text, one entry per file.
	Attachments []string
}

// Step is one entry of a step-by-step breakdown.
type Step struct {
	Text   string `json:"text"`
	Detail string `json:"detail,omitempty"`
}

// Solution is the structured output of a generation run.
type Solution struct {
	Content    string  `json:"content"`
	Steps      []Step  `json:"steps,omitempty"`
	Reasoning  string  `json:"reasoning,omitempty"`
	Confidence float64 `json:"confidence"`
	Model      string  `json:"model"`
}

// Invoker is the external AI collaborator. Implementations may block for
// tens of seconds; callers bound them with the context deadline.
type Invoker interface {
	Solve(ctx context.Context, req Request) (*Solution, error)
}
