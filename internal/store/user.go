package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/studyhall/solver/internal/store/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type User interface {
	Get(ctx context.Context, username, orgID string) (*model.User, error)
	Upsert(ctx context.Context, user model.User) (*model.User, error)
	SetClassroomToken(ctx context.Context, username, orgID string, token *string) error
	InitialMigration(ctx context.Context) error
}

type UserStore struct {
	db *gorm.DB
}

// Make sure we conform to User interface
var _ User = (*UserStore)(nil)

func NewUserStore(db *gorm.DB) User {
	return &UserStore{db: db}
}

func (u *UserStore) InitialMigration(ctx context.Context) error {
	return u.getDB(ctx).AutoMigrate(&model.User{})
}

func (u *UserStore) Get(ctx context.Context, username, orgID string) (*model.User, error) {
	var user model.User
	result := u.getDB(ctx).First(&user, "username = ? AND org_id = ?", username, orgID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &user, nil
}

func (u *UserStore) Upsert(ctx context.Context, user model.User) (*model.User, error) {
	if user.ID == (uuid.UUID{}) {
		user.ID = uuid.New()
	}
	now := time.Now()
	user.LastLoginAt = &now

	result := u.getDB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}, {Name: "org_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "display_name", "last_login_at"}),
	}).Create(&user)
	if result.Error != nil {
		return nil, result.Error
	}
	return u.Get(ctx, user.Username, user.OrgID)
}

func (u *UserStore) SetClassroomToken(ctx context.Context, username, orgID string, token *string) error {
	result := u.getDB(ctx).Model(&model.User{}).
		Where("username = ? AND org_id = ?", username, orgID).
		Update("classroom_token", token)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (u *UserStore) getDB(ctx context.Context) *gorm.DB {
	if tx := FromContext(ctx); tx != nil {
		return tx
	}
	return u.db
}
