package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type tokenKeyType struct{}

var tokenKey tokenKeyType

type User struct {
	Username     string
	Organization string
	Email        string
	DisplayName  string
	Token        *jwt.Token
}

func UserFromContext(ctx context.Context) (User, bool) {
	val := ctx.Value(tokenKey)
	if val == nil {
		return User{}, false
	}
	return val.(User), true
}

func MustHaveUser(ctx context.Context) User {
	user, found := UserFromContext(ctx)
	if !found {
		zap.S().Named("auth").Panic("failed to find user in context")
	}
	return user
}

func NewUserContext(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, tokenKey, u)
}

// TokenExpiry reports the exp claim, if present.
func (u User) TokenExpiry() (time.Time, bool) {
	if u.Token == nil {
		return time.Time{}, false
	}
	exp, err := u.Token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
