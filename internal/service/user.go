package service

import (
	"context"
	"errors"

	"github.com/studyhall/solver/internal/auth"
	"github.com/studyhall/solver/internal/service/mappers"
	"github.com/studyhall/solver/internal/store"
	"github.com/studyhall/solver/internal/store/model"
)

type UserService struct {
	store store.Store
}

func NewUserService(store store.Store) *UserService {
	return &UserService{store: store}
}

// EnsureUser records the authenticated identity on first contact and
// refreshes last-login afterwards.
func (s *UserService) EnsureUser(ctx context.Context, user auth.User) (*model.User, error) {
	return s.store.User().Upsert(ctx, mappers.UserFromAuth(user))
}

func (s *UserService) LinkClassroomToken(ctx context.Context, user auth.User, token string) error {
	err := s.store.User().SetClassroomToken(ctx, user.Username, user.Organization, &token)
	if errors.Is(err, store.ErrRecordNotFound) {
		if _, upsertErr := s.EnsureUser(ctx, user); upsertErr != nil {
			return upsertErr
		}
		return s.store.User().SetClassroomToken(ctx, user.Username, user.Organization, &token)
	}
	return err
}
