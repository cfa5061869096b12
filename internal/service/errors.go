package service

import (
	"fmt"

	"github.com/google/uuid"
)

type ErrResourceNotFound struct {
	error
}

func NewErrResourceNotFound(id uuid.UUID, resourceType string) *ErrResourceNotFound {
	return &ErrResourceNotFound{fmt.Errorf("%s %s not found", resourceType, id)}
}

func NewErrAssignmentNotFound(id uuid.UUID) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "assignment")
}

func NewErrSolutionNotFound(id uuid.UUID) *ErrResourceNotFound {
	return &ErrResourceNotFound{fmt.Errorf("assignment %s has no solution", id)}
}

type ErrSolveInProgress struct {
	error
}

func NewErrSolveInProgress(id uuid.UUID) *ErrSolveInProgress {
	return &ErrSolveInProgress{fmt.Errorf("assignment %s is already being solved", id)}
}

type ErrInvalidTransition struct {
	error
}

func NewErrInvalidTransition(id uuid.UUID, from, to string) *ErrInvalidTransition {
	return &ErrInvalidTransition{fmt.Errorf("assignment %s cannot move from %s to %s", id, from, to)}
}

type ErrClassroomNotLinked struct {
	error
}

func NewErrClassroomNotLinked(username string) *ErrClassroomNotLinked {
	return &ErrClassroomNotLinked{fmt.Errorf("user %s has no classroom token; link an account or pass a token", username)}
}
