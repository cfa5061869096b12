package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/studyhall/solver/internal/auth"
	"github.com/studyhall/solver/internal/classroom"
	"github.com/studyhall/solver/internal/store"
	"github.com/studyhall/solver/internal/store/model"
)

type ClassroomService struct {
	store  store.Store
	client classroom.Client
}

func NewClassroomService(store store.Store, client classroom.Client) *ClassroomService {
	return &ClassroomService{store: store, client: client}
}

type ImportResult struct {
	Imported int
	Skipped  int
}

// Import upserts a course's coursework as assignments. Coursework already
// imported for this owner is skipped, keyed by its classroom id.
func (s *ClassroomService) Import(ctx context.Context, user auth.User, courseID, token string) (ImportResult, error) {
	result := ImportResult{}

	if token == "" {
		stored, err := s.store.User().Get(ctx, user.Username, user.Organization)
		if err != nil && !errors.Is(err, store.ErrRecordNotFound) {
			return result, err
		}
		if stored == nil || stored.ClassroomToken == nil || *stored.ClassroomToken == "" {
			return result, NewErrClassroomNotLinked(user.Username)
		}
		token = *stored.ClassroomToken
	}

	coursework, err := s.client.ListCoursework(ctx, token, courseID)
	if err != nil {
		return result, err
	}

	logger := zap.S().Named("classroom_service")
	for _, cw := range coursework {
		classroomID := cw.ID
		assignment := model.Assignment{
			ID:          uuid.New(),
			Username:    user.Username,
			OrgID:       user.Organization,
			Title:       cw.Title,
			Description: cw.Description,
			CourseName:  cw.CourseName,
			DueDate:     cw.DueDate,
			Kind:        model.AssignmentKindGeneral,
			Source:      model.AssignmentSourceClassroom,
			Status:      model.AssignmentStatusPending,
			ClassroomID: &classroomID,
		}

		if _, err := s.store.Assignment().Create(ctx, assignment); err != nil {
			if errors.Is(err, store.ErrDuplicateKey) {
				result.Skipped++
				continue
			}
			return result, err
		}
		result.Imported++
	}

	logger.Infow("classroom import finished",
		"course_id", courseID, "imported", result.Imported, "skipped", result.Skipped)
	return result, nil
}
