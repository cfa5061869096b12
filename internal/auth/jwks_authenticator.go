package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	keyfunc "github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// JWKSAuthenticator validates bearer tokens issued by the OAuth provider
// against its published JWKS.
type JWKSAuthenticator struct {
	keyFn func(t *jwt.Token) (any, error)
}

func NewJWKSAuthenticatorWithKeyFn(keyFn func(t *jwt.Token) (any, error)) (*JWKSAuthenticator, error) {
	return &JWKSAuthenticator{keyFn: keyFn}, nil
}

func NewJWKSAuthenticator(jwkCertUrl string) (*JWKSAuthenticator, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	k, err := keyfunc.NewDefaultCtx(ctx, []string{jwkCertUrl})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch oauth provider public keys: %w", err)
	}

	return &JWKSAuthenticator{keyFn: k.Keyfunc}, nil
}

func (a *JWKSAuthenticator) Authenticate(token string) (User, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Name}), jwt.WithIssuedAt(), jwt.WithExpirationRequired())
	t, err := parser.Parse(token, a.keyFn)
	if err != nil {
		return User{}, fmt.Errorf("failed to authenticate token: %w", err)
	}

	if !t.Valid {
		return User{}, errors.New("failed to parse or validate token")
	}

	return a.parseToken(t)
}

func (a *JWKSAuthenticator) parseToken(userToken *jwt.Token) (User, error) {
	claims, ok := userToken.Claims.(jwt.MapClaims)
	if !ok {
		return User{}, errors.New("failed to parse jwt token claims")
	}

	user := User{Token: userToken}
	if v, ok := claims["preferred_username"].(string); ok {
		user.Username = v
	}
	if v, ok := claims["org_id"].(string); ok {
		user.Organization = v
	}
	if v, ok := claims["email"].(string); ok {
		user.Email = v
	}
	if v, ok := claims["name"].(string); ok {
		user.DisplayName = v
	}
	if user.Username == "" || user.Organization == "" {
		return User{}, errors.New("token is missing identity claims")
	}

	return user, nil
}

func (a *JWKSAuthenticator) Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accessToken := r.Header.Get("Authorization")
		if !strings.HasPrefix(accessToken, "Bearer ") {
			http.Error(w, "No token provided", http.StatusUnauthorized)
			return
		}

		accessToken = strings.TrimPrefix(accessToken, "Bearer ")
		user, err := a.Authenticate(accessToken)
		if err != nil {
			zap.S().Named("auth").Debugw("authentication failed", "error", err)
			http.Error(w, "authentication failed", http.StatusUnauthorized)
			return
		}

		ctx := NewUserContext(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
