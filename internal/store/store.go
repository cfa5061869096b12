package store

import (
	"context"

	"github.com/studyhall/solver/internal/store/model"
	"gorm.io/gorm"
)

type Store interface {
	NewTransactionContext(ctx context.Context) (context.Context, error)
	Assignment() Assignment
	Solution() Solution
	User() User
	Statistics(ctx context.Context) (model.SolveStats, error)
	InitialMigration(ctx context.Context) error
	Close() error
}

type DataStore struct {
	db         *gorm.DB
	assignment Assignment
	solution   Solution
	user       User
}

func NewStore(db *gorm.DB) Store {
	return &DataStore{
		assignment: NewAssignmentStore(db),
		solution:   NewSolutionStore(db),
		user:       NewUserStore(db),
		db:         db,
	}
}

func (s *DataStore) NewTransactionContext(ctx context.Context) (context.Context, error) {
	return newTransactionContext(ctx, s.db)
}

func (s *DataStore) Assignment() Assignment {
	return s.assignment
}

func (s *DataStore) Solution() Solution {
	return s.solution
}

func (s *DataStore) User() User {
	return s.user
}

// Statistics aggregates service-wide counts for the prometheus collector.
func (s *DataStore) Statistics(ctx context.Context) (model.SolveStats, error) {
	stats := model.SolveStats{ByStatus: map[string]int64{}, BySubject: map[string]int64{}}

	rows := []struct {
		Status string
		Count  int64
	}{}
	if err := s.db.WithContext(ctx).Model(&model.Assignment{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return stats, err
	}
	for _, r := range rows {
		stats.ByStatus[r.Status] = r.Count
		stats.Total += r.Count
	}

	if err := s.db.WithContext(ctx).Model(&model.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return stats, err
	}

	return stats, nil
}

// InitialMigration is the sqlite/dev path; deployments run the goose
// migrations through the migrate subcommand instead.
func (s *DataStore) InitialMigration(ctx context.Context) error {
	if err := s.Assignment().InitialMigration(ctx); err != nil {
		return err
	}
	if err := s.Solution().InitialMigration(ctx); err != nil {
		return err
	}
	return s.User().InitialMigration(ctx)
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
