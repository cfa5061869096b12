package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/studyhall/solver/internal/auth"
	"github.com/studyhall/solver/internal/store"
	"github.com/studyhall/solver/internal/store/model"
)

type SolutionService struct {
	store store.Store
}

func NewSolutionService(store store.Store) *SolutionService {
	return &SolutionService{store: store}
}

// GetSolution returns not-found until the worker committed one, even while
// the assignment is processing.
func (s *SolutionService) GetSolution(ctx context.Context, assignmentID uuid.UUID, user auth.User) (*model.Solution, error) {
	if err := s.checkOwner(ctx, assignmentID, user); err != nil {
		return nil, err
	}

	solution, err := s.store.Solution().GetByAssignment(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrSolutionNotFound(assignmentID)
		}
		return nil, err
	}
	return solution, nil
}

func (s *SolutionService) RateSolution(ctx context.Context, assignmentID uuid.UUID, user auth.User, rating int) error {
	if err := s.checkOwner(ctx, assignmentID, user); err != nil {
		return err
	}

	if err := s.store.Solution().UpdateRating(ctx, assignmentID, rating); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return NewErrSolutionNotFound(assignmentID)
		}
		return err
	}
	return nil
}

func (s *SolutionService) checkOwner(ctx context.Context, assignmentID uuid.UUID, user auth.User) error {
	assignment, err := s.store.Assignment().Get(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return NewErrAssignmentNotFound(assignmentID)
		}
		return err
	}
	if assignment.Username != user.Username || assignment.OrgID != user.Organization {
		return NewErrAssignmentNotFound(assignmentID)
	}
	return nil
}
