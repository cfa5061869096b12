package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/studyhall/solver/internal/store/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Solution interface {
	GetByAssignment(ctx context.Context, assignmentID uuid.UUID) (*model.Solution, error)
	Create(ctx context.Context, solution model.Solution) (*model.Solution, error)
	DeleteByAssignment(ctx context.Context, assignmentID uuid.UUID) error
	UpdateRating(ctx context.Context, assignmentID uuid.UUID, rating int) error
	InitialMigration(ctx context.Context) error
}

type SolutionStore struct {
	db *gorm.DB
}

// Make sure we conform to Solution interface
var _ Solution = (*SolutionStore)(nil)

func NewSolutionStore(db *gorm.DB) Solution {
	return &SolutionStore{db: db}
}

func (s *SolutionStore) InitialMigration(ctx context.Context) error {
	return s.getDB(ctx).AutoMigrate(&model.Solution{})
}

func (s *SolutionStore) GetByAssignment(ctx context.Context, assignmentID uuid.UUID) (*model.Solution, error) {
	var solution model.Solution
	result := s.getDB(ctx).First(&solution, "assignment_id = ?", assignmentID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &solution, nil
}

func (s *SolutionStore) Create(ctx context.Context, solution model.Solution) (*model.Solution, error) {
	if solution.ID == (uuid.UUID{}) {
		solution.ID = uuid.New()
	}
	result := s.getDB(ctx).Clauses(clause.Returning{}).Create(&solution)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, result.Error
	}
	return &solution, nil
}

func (s *SolutionStore) DeleteByAssignment(ctx context.Context, assignmentID uuid.UUID) error {
	result := s.getDB(ctx).Unscoped().Where("assignment_id = ?", assignmentID).Delete(&model.Solution{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *SolutionStore) UpdateRating(ctx context.Context, assignmentID uuid.UUID, rating int) error {
	result := s.getDB(ctx).Model(&model.Solution{}).
		Where("assignment_id = ?", assignmentID).
		Update("rating", rating)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *SolutionStore) getDB(ctx context.Context) *gorm.DB {
	if tx := FromContext(ctx); tx != nil {
		return tx
	}
	return s.db
}
