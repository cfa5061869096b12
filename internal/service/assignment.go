package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/studyhall/solver/internal/attachments"
	"github.com/studyhall/solver/internal/auth"
	"github.com/studyhall/solver/internal/events"
	"github.com/studyhall/solver/internal/jobs"
	"github.com/studyhall/solver/internal/store"
	"github.com/studyhall/solver/internal/store/model"
	"github.com/studyhall/solver/pkg/metrics"
)

// AssignmentFilter is the service-level view of the list query parameters.
type AssignmentFilter struct {
	Title   string
	Subject string
	Status  string
	Source  string
	Kind    string
	Sort    store.SortOrder
	Limit   int
	Offset  int
}

type AssignmentService struct {
	store       store.Store
	enqueuer    jobs.Enqueuer
	eventWriter *events.EventProducer
	storage     attachments.Storage
}

func NewAssignmentService(store store.Store, enqueuer jobs.Enqueuer, ew *events.EventProducer, storage attachments.Storage) *AssignmentService {
	return &AssignmentService{
		store:       store,
		enqueuer:    enqueuer,
		eventWriter: ew,
		storage:     storage,
	}
}

func (s *AssignmentService) ListAssignments(ctx context.Context, user auth.User, filter *AssignmentFilter) (model.AssignmentList, int64, error) {
	storeFilter := store.NewAssignmentQueryFilter().ByOwner(user.Username, user.Organization)
	opts := store.NewAssignmentQueryOptions()

	if filter != nil {
		if filter.Title != "" {
			storeFilter = storeFilter.ByTitleLike(filter.Title)
		}
		if filter.Subject != "" {
			storeFilter = storeFilter.BySubject(filter.Subject)
		}
		if filter.Status != "" {
			storeFilter = storeFilter.ByStatus(filter.Status)
		}
		if filter.Source != "" {
			storeFilter = storeFilter.BySource(filter.Source)
		}
		if filter.Kind != "" {
			storeFilter = storeFilter.ByKind(filter.Kind)
		}
		opts = opts.WithSortOrder(filter.Sort).WithPagination(filter.Limit, filter.Offset)
	}

	assignments, err := s.store.Assignment().List(ctx, storeFilter, opts)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.store.Assignment().Count(ctx, storeFilter)
	if err != nil {
		return nil, 0, err
	}

	return assignments, total, nil
}

func (s *AssignmentService) CreateAssignment(ctx context.Context, assignment model.Assignment) (*model.Assignment, error) {
	result, err := s.store.Assignment().Create(ctx, assignment)
	if err != nil {
		return nil, err
	}

	s.emit(events.AssignmentCreatedKind, result, "")
	return result, nil
}

func (s *AssignmentService) GetAssignment(ctx context.Context, id uuid.UUID, user auth.User) (*model.Assignment, error) {
	return s.getOwned(ctx, id, user)
}

func (s *AssignmentService) UpdateAssignment(ctx context.Context, id uuid.UUID, user auth.User, patch store.AssignmentUpdate) (*model.Assignment, error) {
	if _, err := s.getOwned(ctx, id, user); err != nil {
		return nil, err
	}

	updated, err := s.store.Assignment().Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrAssignmentNotFound(id)
		}
		return nil, err
	}
	return updated, nil
}

func (s *AssignmentService) DeleteAssignment(ctx context.Context, id uuid.UUID, user auth.User) error {
	assignment, err := s.getOwned(ctx, id, user)
	if err != nil {
		return err
	}

	// Object deletion is best effort; an orphaned object is preferable to a
	// row the user cannot remove.
	if s.storage != nil {
		for _, att := range assignment.Attachments {
			if err := s.storage.Delete(ctx, att.ObjectKey); err != nil {
				zap.S().Named("assignment_service").Warnw("failed to delete attachment object", "key", att.ObjectKey, "error", err)
			}
		}
	}

	return s.store.Assignment().Delete(ctx, id)
}

// AddAttachment stores the raw bytes and records the object key on the
// assignment.
func (s *AssignmentService) AddAttachment(ctx context.Context, id uuid.UUID, user auth.User, filename, contentType string, size int64, r io.Reader) (*model.Attachment, error) {
	if s.storage == nil {
		return nil, errors.New("attachment storage is not configured")
	}

	if _, err := s.getOwned(ctx, id, user); err != nil {
		return nil, err
	}

	key := attachments.NewObjectKey(id, filename)
	if err := s.storage.Put(ctx, key, r, size, contentType); err != nil {
		return nil, err
	}

	attachment, err := s.store.Assignment().CreateAttachment(ctx, model.Attachment{
		AssignmentID: id,
		Filename:     filename,
		ContentType:  contentType,
		ObjectKey:    key,
		SizeBytes:    size,
	})
	if err != nil {
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			zap.S().Named("assignment_service").Warnw("failed to clean up attachment object", "key", key, "error", delErr)
		}
		return nil, err
	}
	return attachment, nil
}

// Solve dispatches a solution generation. A solved assignment is
// acknowledged without re-dispatch; regeneration is the explicit path for
// replacing an existing solution.
func (s *AssignmentService) Solve(ctx context.Context, id uuid.UUID, user auth.User) (*model.Assignment, error) {
	assignment, err := s.getOwned(ctx, id, user)
	if err != nil {
		return nil, err
	}

	if assignment.Status == model.AssignmentStatusProcessing {
		return nil, NewErrSolveInProgress(id)
	}

	if _, err := s.store.Solution().GetByAssignment(ctx, id); err == nil {
		return assignment, nil
	} else if !errors.Is(err, store.ErrRecordNotFound) {
		return nil, err
	}

	dispatched, err := s.store.Assignment().MarkDispatched(ctx, id,
		model.AssignmentStatusPending, model.AssignmentStatusFailed, model.AssignmentStatusCompleted)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrRecordNotFound):
			return nil, NewErrAssignmentNotFound(id)
		case errors.Is(err, store.ErrPreconditionFailed):
			// a concurrent solve won the race
			return nil, NewErrSolveInProgress(id)
		}
		return nil, err
	}

	return s.enqueue(ctx, dispatched, user, "solve")
}

// Regenerate discards the current solution and dispatches a fresh run.
func (s *AssignmentService) Regenerate(ctx context.Context, id uuid.UUID, user auth.User) (*model.Assignment, error) {
	assignment, err := s.getOwned(ctx, id, user)
	if err != nil {
		return nil, err
	}

	if assignment.Status == model.AssignmentStatusProcessing {
		return nil, NewErrSolveInProgress(id)
	}

	if _, err := s.store.Solution().GetByAssignment(ctx, id); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrSolutionNotFound(id)
		}
		return nil, err
	}

	// The delete and the status flip commit together so a reader never
	// sees completed without a solution.
	txCtx, err := s.store.NewTransactionContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.store.Solution().DeleteByAssignment(txCtx, id); err != nil && !errors.Is(err, store.ErrRecordNotFound) {
		_, _ = store.Rollback(txCtx)
		return nil, err
	}

	dispatched, err := s.store.Assignment().MarkDispatched(txCtx, id,
		model.AssignmentStatusPending, model.AssignmentStatusFailed, model.AssignmentStatusCompleted)
	if err != nil {
		_, _ = store.Rollback(txCtx)
		switch {
		case errors.Is(err, store.ErrRecordNotFound):
			return nil, NewErrAssignmentNotFound(id)
		case errors.Is(err, store.ErrPreconditionFailed):
			return nil, NewErrSolveInProgress(id)
		}
		return nil, err
	}

	if _, err := store.Commit(txCtx); err != nil {
		return nil, err
	}

	return s.enqueue(ctx, dispatched, user, "regenerate")
}

// ResetStuck returns a processing assignment to pending without touching
// its solution. The in-flight job is not cancelled; its eventual write is
// rejected because the next dispatch bumps the generation.
func (s *AssignmentService) ResetStuck(ctx context.Context, id uuid.UUID, user auth.User) (*model.Assignment, error) {
	assignment, err := s.getOwned(ctx, id, user)
	if err != nil {
		return nil, err
	}

	if assignment.Status == model.AssignmentStatusPending {
		return assignment, nil
	}
	if assignment.Status != model.AssignmentStatusProcessing {
		return nil, NewErrInvalidTransition(id, assignment.Status, model.AssignmentStatusPending)
	}

	updated, err := s.store.Assignment().UpdateStatus(ctx, id,
		model.AssignmentStatusPending, "", model.AssignmentStatusProcessing)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrRecordNotFound):
			return nil, NewErrAssignmentNotFound(id)
		case errors.Is(err, store.ErrPreconditionFailed):
			// the worker finished between the read and the reset; report
			// the terminal state instead of resetting it
			return nil, NewErrInvalidTransition(id, "terminal", model.AssignmentStatusPending)
		}
		return nil, err
	}
	return updated, nil
}

func (s *AssignmentService) Stats(ctx context.Context, user auth.User) (model.SolveStats, error) {
	return s.store.Assignment().StatsByOwner(ctx, user.Username, user.Organization)
}

func (s *AssignmentService) enqueue(ctx context.Context, assignment *model.Assignment, user auth.User, trigger string) (*model.Assignment, error) {
	_, err := s.enqueuer.EnqueueSolve(ctx, jobs.SolveArgs{
		AssignmentID: assignment.ID,
		Username:     user.Username,
		OrgID:        user.Organization,
		Generation:   assignment.Generation,
		Trigger:      trigger,
	})
	if err != nil {
		// Leave the row recoverable; ResetStuck is not needed for a
		// dispatch that never reached the queue.
		if _, revertErr := s.store.Assignment().UpdateStatus(ctx, assignment.ID,
			model.AssignmentStatusFailed, "failed to enqueue solve job",
			model.AssignmentStatusProcessing); revertErr != nil {
			zap.S().Named("assignment_service").Errorw("failed to revert dispatch", "assignment_id", assignment.ID, "error", revertErr)
		}
		return nil, err
	}

	metrics.IncreaseSolveRequestsMetric(trigger)
	s.emit(events.SolveRequestedKind, assignment, trigger)

	zap.S().Named("assignment_service").Infow("solve dispatched",
		"assignment_id", assignment.ID, "generation", assignment.Generation, "trigger", trigger)
	return assignment, nil
}

// getOwned maps both a missing row and a row owned by someone else to
// not-found, so the API never leaks existence across owners.
func (s *AssignmentService) getOwned(ctx context.Context, id uuid.UUID, user auth.User) (*model.Assignment, error) {
	assignment, err := s.store.Assignment().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrAssignmentNotFound(id)
		}
		return nil, err
	}
	if assignment.Username != user.Username || assignment.OrgID != user.Organization {
		return nil, NewErrAssignmentNotFound(id)
	}
	return assignment, nil
}

func (s *AssignmentService) emit(kind string, assignment *model.Assignment, trigger string) {
	if s.eventWriter == nil {
		return
	}
	payload, err := json.Marshal(events.AssignmentEvent{
		AssignmentID: assignment.ID.String(),
		OrgID:        assignment.OrgID,
		Status:       assignment.Status,
		StatusInfo:   assignment.StatusInfo,
		Generation:   assignment.Generation,
		Trigger:      trigger,
	})
	if err != nil {
		return
	}

	writeCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.eventWriter.Write(writeCtx, kind, bytes.NewReader(payload)); err != nil {
		zap.S().Named("assignment_service").Warnw("failed to buffer event", "kind", kind, "error", err)
	}
}
