package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/studyhall/solver/internal/store/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AssignmentUpdate is a partial update; nil fields are left untouched.
type AssignmentUpdate struct {
	Title       *string
	Description *string
	Subject     *string
	CourseName  *string
	Instructor  *string
	DueDate     *time.Time
	Kind        *string
}

type Assignment interface {
	List(ctx context.Context, filter *AssignmentQueryFilter, opts *AssignmentQueryOptions) (model.AssignmentList, error)
	Count(ctx context.Context, filter *AssignmentQueryFilter) (int64, error)
	Create(ctx context.Context, assignment model.Assignment) (*model.Assignment, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Assignment, error)
	Update(ctx context.Context, id uuid.UUID, patch AssignmentUpdate) (*model.Assignment, error)
	Delete(ctx context.Context, id uuid.UUID) error
	CreateAttachment(ctx context.Context, attachment model.Attachment) (*model.Attachment, error)

	// MarkDispatched flips the row into processing and bumps the
	// generation counter, provided the current status is one of from.
	// The returned row carries the new generation.
	MarkDispatched(ctx context.Context, id uuid.UUID, from ...string) (*model.Assignment, error)

	// UpdateStatus is a guarded transition without a generation change,
	// used by ResetStuck.
	UpdateStatus(ctx context.Context, id uuid.UUID, to string, info string, from ...string) (*model.Assignment, error)

	// CompleteGeneration finishes the dispatch identified by generation.
	// The write is discarded (ErrPreconditionFailed) when the row moved on:
	// status left processing or a newer dispatch bumped the generation.
	CompleteGeneration(ctx context.Context, id uuid.UUID, generation int64, to string, info string) error

	StatsByOwner(ctx context.Context, username, orgID string) (model.SolveStats, error)
	InitialMigration(ctx context.Context) error
}

type AssignmentStore struct {
	db *gorm.DB
}

// Make sure we conform to Assignment interface
var _ Assignment = (*AssignmentStore)(nil)

func NewAssignmentStore(db *gorm.DB) Assignment {
	return &AssignmentStore{db: db}
}

func (a *AssignmentStore) InitialMigration(ctx context.Context) error {
	return a.getDB(ctx).AutoMigrate(&model.Assignment{}, &model.Attachment{})
}

func (a *AssignmentStore) List(ctx context.Context, filter *AssignmentQueryFilter, opts *AssignmentQueryOptions) (model.AssignmentList, error) {
	var assignments model.AssignmentList
	tx := a.getDB(ctx).Model(&assignments).Preload("Attachments")

	if filter != nil {
		for _, fn := range filter.QueryFn {
			tx = fn(tx)
		}
	}
	if opts != nil {
		for _, fn := range opts.QueryFn {
			tx = fn(tx)
		}
	}

	if result := tx.Find(&assignments); result.Error != nil {
		return nil, result.Error
	}
	return assignments, nil
}

func (a *AssignmentStore) Count(ctx context.Context, filter *AssignmentQueryFilter) (int64, error) {
	var count int64
	tx := a.getDB(ctx).Model(&model.Assignment{})
	if filter != nil {
		for _, fn := range filter.QueryFn {
			tx = fn(tx)
		}
	}
	if result := tx.Count(&count); result.Error != nil {
		return 0, result.Error
	}
	return count, nil
}

func (a *AssignmentStore) Create(ctx context.Context, assignment model.Assignment) (*model.Assignment, error) {
	if assignment.ID == (uuid.UUID{}) {
		assignment.ID = uuid.New()
	}
	if assignment.Status == "" {
		assignment.Status = model.AssignmentStatusPending
	}
	result := a.getDB(ctx).Clauses(clause.Returning{}).Create(&assignment)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, result.Error
	}
	return &assignment, nil
}

func (a *AssignmentStore) Get(ctx context.Context, id uuid.UUID) (*model.Assignment, error) {
	var assignment model.Assignment
	result := a.getDB(ctx).Preload("Attachments").First(&assignment, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &assignment, nil
}

func (a *AssignmentStore) Update(ctx context.Context, id uuid.UUID, patch AssignmentUpdate) (*model.Assignment, error) {
	assignment := model.Assignment{ID: id}
	selectFields := []string{"updated_at"}
	if patch.Title != nil {
		assignment.Title = *patch.Title
		selectFields = append(selectFields, "title")
	}
	if patch.Description != nil {
		assignment.Description = *patch.Description
		selectFields = append(selectFields, "description")
	}
	if patch.Subject != nil {
		assignment.Subject = patch.Subject
		selectFields = append(selectFields, "subject")
	}
	if patch.CourseName != nil {
		assignment.CourseName = *patch.CourseName
		selectFields = append(selectFields, "course_name")
	}
	if patch.Instructor != nil {
		assignment.Instructor = patch.Instructor
		selectFields = append(selectFields, "instructor")
	}
	if patch.DueDate != nil {
		assignment.DueDate = patch.DueDate
		selectFields = append(selectFields, "due_date")
	}
	if patch.Kind != nil {
		assignment.Kind = *patch.Kind
		selectFields = append(selectFields, "kind")
	}

	now := time.Now()
	assignment.UpdatedAt = &now

	result := a.getDB(ctx).Model(&assignment).Clauses(clause.Returning{}).Select(selectFields).Updates(&assignment)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrRecordNotFound
	}

	return a.Get(ctx, id)
}

func (a *AssignmentStore) Delete(ctx context.Context, id uuid.UUID) error {
	result := a.getDB(ctx).Unscoped().Select(clause.Associations).Delete(&model.Assignment{ID: id})
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return result.Error
	}
	return nil
}

func (a *AssignmentStore) CreateAttachment(ctx context.Context, attachment model.Attachment) (*model.Attachment, error) {
	result := a.getDB(ctx).Create(&attachment)
	if result.Error != nil {
		return nil, result.Error
	}
	return &attachment, nil
}

func (a *AssignmentStore) MarkDispatched(ctx context.Context, id uuid.UUID, from ...string) (*model.Assignment, error) {
	now := time.Now()
	result := a.getDB(ctx).Model(&model.Assignment{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]any{
			"status":      model.AssignmentStatusProcessing,
			"status_info": "",
			"generation":  gorm.Expr("generation + 1"),
			"updated_at":  now,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, a.preconditionError(ctx, id)
	}
	return a.Get(ctx, id)
}

func (a *AssignmentStore) UpdateStatus(ctx context.Context, id uuid.UUID, to string, info string, from ...string) (*model.Assignment, error) {
	now := time.Now()
	result := a.getDB(ctx).Model(&model.Assignment{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]any{
			"status":      to,
			"status_info": info,
			"updated_at":  now,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, a.preconditionError(ctx, id)
	}
	return a.Get(ctx, id)
}

func (a *AssignmentStore) CompleteGeneration(ctx context.Context, id uuid.UUID, generation int64, to string, info string) error {
	now := time.Now()
	result := a.getDB(ctx).Model(&model.Assignment{}).
		Where("id = ? AND status = ? AND generation = ?", id, model.AssignmentStatusProcessing, generation).
		Updates(map[string]any{
			"status":      to,
			"status_info": info,
			"updated_at":  now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return a.preconditionError(ctx, id)
	}
	return nil
}

func (a *AssignmentStore) StatsByOwner(ctx context.Context, username, orgID string) (model.SolveStats, error) {
	stats := model.SolveStats{ByStatus: map[string]int64{}, BySubject: map[string]int64{}}

	rows := []struct {
		Status string
		Count  int64
	}{}
	if err := a.getDB(ctx).Model(&model.Assignment{}).
		Select("status, count(*) as count").
		Where("username = ? AND org_id = ?", username, orgID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return stats, err
	}
	for _, r := range rows {
		stats.ByStatus[r.Status] = r.Count
		stats.Total += r.Count
	}

	subjects := []struct {
		Subject *string
		Count   int64
	}{}
	if err := a.getDB(ctx).Model(&model.Assignment{}).
		Select("subject, count(*) as count").
		Where("username = ? AND org_id = ? AND subject IS NOT NULL", username, orgID).
		Group("subject").
		Scan(&subjects).Error; err != nil {
		return stats, err
	}
	for _, r := range subjects {
		if r.Subject != nil {
			stats.BySubject[*r.Subject] = r.Count
		}
	}

	return stats, nil
}

// preconditionError decides between not-found and a failed status guard
// after a guarded update touched zero rows.
func (a *AssignmentStore) preconditionError(ctx context.Context, id uuid.UUID) error {
	var count int64
	if err := a.getDB(ctx).Model(&model.Assignment{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrRecordNotFound
	}
	return fmt.Errorf("assignment %s: %w", id, ErrPreconditionFailed)
}

func (a *AssignmentStore) getDB(ctx context.Context) *gorm.DB {
	if tx := FromContext(ctx); tx != nil {
		return tx
	}
	return a.db
}
