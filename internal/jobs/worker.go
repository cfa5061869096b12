package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"github.com/studyhall/solver/internal/attachments"
	"github.com/studyhall/solver/internal/events"
	"github.com/studyhall/solver/internal/llm"
	"github.com/studyhall/solver/internal/store"
	"github.com/studyhall/solver/internal/store/model"
	"github.com/studyhall/solver/pkg/metrics"
)

const defaultInvokeTimeout = 60 * time.Second

// SolveWorker runs one solution generation: it reads the assignment,
// calls the external model and persists the outcome. The status write and
// the solution insert happen in one transaction, guarded by the job's
// generation, so readers never observe completed without a solution and a
// stale invocation can never clobber a newer dispatch.
type SolveWorker struct {
	river.WorkerDefaults[SolveArgs]
	store       store.Store
	invoker     llm.Invoker
	storage     attachments.Storage
	producer    *events.EventProducer
	workTimeout time.Duration
}

func NewSolveWorker(s store.Store, invoker llm.Invoker, storage attachments.Storage, producer *events.EventProducer, timeout time.Duration) *SolveWorker {
	if timeout <= 0 {
		timeout = defaultInvokeTimeout
	}
	return &SolveWorker{
		store:       s,
		invoker:     invoker,
		storage:     storage,
		producer:    producer,
		workTimeout: timeout,
	}
}

func (w *SolveWorker) Timeout(job *river.Job[SolveArgs]) time.Duration {
	return w.workTimeout
}

func (w *SolveWorker) Work(ctx context.Context, job *river.Job[SolveArgs]) error {
	logger := zap.S().Named("solve_worker").With("assignment_id", job.Args.AssignmentID, "generation", job.Args.Generation)
	start := time.Now()

	assignment, err := w.store.Assignment().Get(ctx, job.Args.AssignmentID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			// deleted between dispatch and pickup; nothing to update
			logger.Info("assignment vanished before processing")
			return nil
		}
		return err
	}

	solution, invokeErr := w.invoker.Solve(ctx, w.buildRequest(ctx, assignment))
	if invokeErr != nil {
		// The work context may already be cancelled (timeout); the failure
		// must still be recorded or the assignment stays processing forever.
		w.recordFailure(context.WithoutCancel(ctx), job.Args, invokeErr, logger)
		return invokeErr
	}

	if err := w.recordSuccess(ctx, job.Args, solution); err != nil {
		if errors.Is(err, store.ErrPreconditionFailed) {
			logger.Infow("discarding stale solve result")
			metrics.IncreaseSolveOutcomesMetric("stale")
			return nil
		}
		return err
	}

	metrics.IncreaseSolveOutcomesMetric("completed")
	metrics.ObserveSolveDuration(time.Since(start).Seconds())
	w.emit(events.SolveCompletedKind, job.Args, model.AssignmentStatusCompleted, "")
	logger.Infow("solution generated", "duration", time.Since(start))
	return nil
}

func (w *SolveWorker) buildRequest(ctx context.Context, assignment *model.Assignment) llm.Request {
	req := llm.Request{
		Title:       assignment.Title,
		Description: assignment.Description,
		Kind:        assignment.Kind,
	}
	if assignment.Subject != nil {
		req.Subject = *assignment.Subject
	}

	if w.storage == nil {
		return req
	}
	for _, att := range assignment.Attachments {
		if !strings.HasPrefix(att.ContentType, "text/") {
			continue
		}
		obj, err := w.storage.Get(ctx, att.ObjectKey)
		if err != nil {
			zap.S().Named("solve_worker").Warnw("failed to fetch attachment", "key", att.ObjectKey, "error", err)
			continue
		}
		data, err := io.ReadAll(io.LimitReader(obj, 1<<20))
		obj.Close()
		if err != nil {
			continue
		}
		req.Attachments = append(req.Attachments, string(data))
	}
	return req
}

func (w *SolveWorker) recordSuccess(ctx context.Context, args SolveArgs, solution *llm.Solution) error {
	txCtx, err := w.store.NewTransactionContext(ctx)
	if err != nil {
		return err
	}

	steps, err := encodeSteps(solution.Steps)
	if err != nil {
		_, _ = store.Rollback(txCtx)
		return err
	}

	row := model.Solution{
		AssignmentID: args.AssignmentID,
		Content:      solution.Content,
		Steps:        steps,
		Confidence:   solution.Confidence,
		ModelID:      solution.Model,
		Generation:   args.Generation,
	}
	if solution.Reasoning != "" {
		row.Reasoning = &solution.Reasoning
	}

	if _, err := w.store.Solution().Create(txCtx, row); err != nil {
		_, _ = store.Rollback(txCtx)
		if errors.Is(err, store.ErrDuplicateKey) {
			// a newer dispatch already wrote its solution
			return store.ErrPreconditionFailed
		}
		return err
	}

	if err := w.store.Assignment().CompleteGeneration(txCtx, args.AssignmentID, args.Generation, model.AssignmentStatusCompleted, ""); err != nil {
		_, _ = store.Rollback(txCtx)
		return err
	}

	_, err = store.Commit(txCtx)
	return err
}

func (w *SolveWorker) recordFailure(ctx context.Context, args SolveArgs, invokeErr error, logger *zap.SugaredLogger) {
	err := w.store.Assignment().CompleteGeneration(ctx, args.AssignmentID, args.Generation, model.AssignmentStatusFailed, invokeErr.Error())
	switch {
	case err == nil:
		metrics.IncreaseSolveOutcomesMetric("failed")
		w.emit(events.SolveFailedKind, args, model.AssignmentStatusFailed, invokeErr.Error())
		logger.Warnw("solution generation failed", "error", invokeErr)
	case errors.Is(err, store.ErrPreconditionFailed):
		metrics.IncreaseSolveOutcomesMetric("stale")
		logger.Infow("discarding stale solve failure")
	case errors.Is(err, store.ErrRecordNotFound):
		logger.Info("assignment vanished before failure could be recorded")
	default:
		logger.Errorw("failed to record solve failure", "error", err)
	}
}

func (w *SolveWorker) emit(kind string, args SolveArgs, status, info string) {
	if w.producer == nil {
		return
	}
	payload, err := json.Marshal(events.AssignmentEvent{
		AssignmentID: args.AssignmentID.String(),
		OrgID:        args.OrgID,
		Status:       status,
		StatusInfo:   info,
		Generation:   args.Generation,
		Trigger:      args.Trigger,
	})
	if err != nil {
		return
	}
	_ = w.producer.Write(context.TODO(), kind, bytes.NewReader(payload))
}

func encodeSteps(steps []llm.Step) ([]byte, error) {
	if len(steps) == 0 {
		return nil, nil
	}
	out := make([]model.SolutionStep, 0, len(steps))
	for _, s := range steps {
		out = append(out, model.SolutionStep{Text: s.Text, Detail: s.Detail})
	}
	return json.Marshal(out)
}
