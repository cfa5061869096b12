// Package poller implements the client-side status polling loop: poll the
// assignment at a fixed interval until it reaches a terminal status, the
// wall budget runs out or the context is cancelled.
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lthibault/jitterbug/v2"
	"go.uber.org/zap"

	api "github.com/studyhall/solver/api/v1alpha1"
	"github.com/studyhall/solver/internal/client"
	"github.com/studyhall/solver/internal/store/model"
)

const (
	DefaultInterval = 5 * time.Second
	DefaultBudget   = 5 * time.Minute
)

// ErrPollBudgetExceeded means the assignment was still not terminal when
// the wall budget ran out. The caller may offer a status reset.
var ErrPollBudgetExceeded = errors.New("poll budget exceeded before the assignment finished")

// ErrSolveFailed is returned when polling ends on a failed assignment.
type ErrSolveFailed struct {
	StatusInfo string
}

func (e *ErrSolveFailed) Error() string {
	if e.StatusInfo == "" {
		return "solve failed"
	}
	return fmt.Sprintf("solve failed: %s", e.StatusInfo)
}

// StatusClient is the part of the API client the poller needs.
type StatusClient interface {
	GetAssignment(ctx context.Context, id uuid.UUID) (*api.Assignment, error)
	GetSolution(ctx context.Context, id uuid.UUID) (*api.Solution, error)
}

// Ticker abstracts the poll clock so tests can drive it manually.
type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}

type TickerFactory func(interval time.Duration) Ticker

type jitterTicker struct {
	t *jitterbug.Ticker
}

func (j *jitterTicker) Chan() <-chan time.Time { return j.t.C }
func (j *jitterTicker) Stop()                  { j.t.Stop() }

// newJitterTicker spreads poll instants slightly so many concurrent
// watchers do not align on the server.
func newJitterTicker(interval time.Duration) Ticker {
	return &jitterTicker{t: jitterbug.New(interval, &jitterbug.Norm{Stdev: interval / 10})}
}

type Option func(*Poller)

func WithInterval(interval time.Duration) Option {
	return func(p *Poller) {
		p.interval = interval
	}
}

func WithBudget(budget time.Duration) Option {
	return func(p *Poller) {
		p.budget = budget
	}
}

func WithTickerFactory(factory TickerFactory) Option {
	return func(p *Poller) {
		p.newTicker = factory
	}
}

type Poller struct {
	client    StatusClient
	interval  time.Duration
	budget    time.Duration
	newTicker TickerFactory
}

func New(c StatusClient, opts ...Option) *Poller {
	p := &Poller{
		client:    c,
		interval:  DefaultInterval,
		budget:    DefaultBudget,
		newTicker: newJitterTicker,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Result is the terminal observation of one watch.
type Result struct {
	Assignment *api.Assignment
	Solution   *api.Solution
}

// Watch polls until the assignment completes or fails. Transport errors
// are retried on the next tick. Each call runs its own loop; cancelling
// the context stops it.
func (p *Poller) Watch(ctx context.Context, id uuid.UUID) (*Result, error) {
	ctx, cancel := context.WithTimeoutCause(ctx, p.budget, ErrPollBudgetExceeded)
	defer cancel()

	ticker := p.newTicker(p.interval)
	defer ticker.Stop()

	logger := zap.S().Named("poller").With("assignment_id", id)

	for {
		result, done := p.check(ctx, id, logger)
		if done != nil {
			return result, doneErr(done)
		}

		select {
		case <-ctx.Done():
			return nil, context.Cause(ctx)
		case <-ticker.Chan():
		}
	}
}

// errFinished marks a clean terminal observation.
var errFinished = errors.New("finished")

// check performs one poll round. A nil error means keep polling.
func (p *Poller) check(ctx context.Context, id uuid.UUID, logger *zap.SugaredLogger) (*Result, error) {
	assignment, err := p.client.GetAssignment(ctx, id)
	if err != nil {
		if client.IsNotFound(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, nil
		}
		logger.Debugw("poll attempt failed, retrying", "error", err)
		return nil, nil
	}

	switch assignment.Status {
	case model.AssignmentStatusCompleted:
		solution, err := p.client.GetSolution(ctx, id)
		if err != nil {
			// completed implies a solution; a 404 here means a regenerate
			// raced us, so keep polling
			if client.IsNotFound(err) {
				return nil, nil
			}
			if ctx.Err() != nil {
				return nil, nil
			}
			logger.Debugw("solution fetch failed, retrying", "error", err)
			return nil, nil
		}
		return &Result{Assignment: assignment, Solution: solution}, errFinished

	case model.AssignmentStatusFailed:
		return &Result{Assignment: assignment}, &ErrSolveFailed{StatusInfo: assignment.StatusInfo}

	default:
		return nil, nil
	}
}

func doneErr(err error) error {
	if errors.Is(err, errFinished) {
		return nil
	}
	return err
}
