package jobs

import (
	"context"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
)

const (
	DefaultQueue = "solve"

	// A failed invocation is terminal for that attempt; recovery is a new
	// solve or regenerate call, never an automatic retry.
	MaxJobAttempts = 1
)

// SolveArgs is stored in river_job.args as JSON. The generation ties the
// eventual completion write back to the dispatch that started it.
type SolveArgs struct {
	AssignmentID uuid.UUID `json:"assignment_id"`
	Username     string    `json:"username"`
	OrgID        string    `json:"org_id"`
	Generation   int64     `json:"generation"`
	Trigger      string    `json:"trigger"` // solve or regenerate
}

func (SolveArgs) Kind() string {
	return "assignment_solve"
}

func (SolveArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       DefaultQueue,
		MaxAttempts: MaxJobAttempts,
	}
}

// Enqueuer is the dispatcher's view of the queue. The service depends on
// this instead of the river client so tests can capture dispatches.
type Enqueuer interface {
	EnqueueSolve(ctx context.Context, args SolveArgs) (int64, error)
}
