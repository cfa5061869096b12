package jobs

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"

	"github.com/studyhall/solver/internal/attachments"
	"github.com/studyhall/solver/internal/events"
	"github.com/studyhall/solver/internal/llm"
	"github.com/studyhall/solver/internal/store"
)

// Client owns the river client and registers the solve worker.
type Client struct {
	*river.Client[pgx.Tx]
}

var _ Enqueuer = (*Client)(nil)

func NewClient(pool *pgxpool.Pool, s store.Store, invoker llm.Invoker, storage attachments.Storage, producer *events.EventProducer, maxWorkers int, invokeTimeout time.Duration) (*Client, error) {
	if maxWorkers <= 0 {
		maxWorkers = 4
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, NewSolveWorker(s, invoker, storage, producer, invokeTimeout))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			DefaultQueue: {MaxWorkers: maxWorkers},
		},
		Workers: workers,

		FetchCooldown:     50 * time.Millisecond,
		FetchPollInterval: 100 * time.Millisecond,

		CompletedJobRetentionPeriod: 24 * time.Hour,
		DiscardedJobRetentionPeriod: 7 * 24 * time.Hour,
	})
	if err != nil {
		return nil, err
	}

	return &Client{Client: riverClient}, nil
}

func (c *Client) EnqueueSolve(ctx context.Context, args SolveArgs) (int64, error) {
	result, err := c.Insert(ctx, args, &river.InsertOpts{
		Queue:       DefaultQueue,
		MaxAttempts: MaxJobAttempts,
	})
	if err != nil {
		return 0, err
	}
	return result.Job.ID, nil
}
