package auth

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
)

// NoneAuthenticator is the dev authenticator: every request runs as a
// fixed local user.
type NoneAuthenticator struct{}

func NewNoneAuthenticator() (*NoneAuthenticator, error) {
	return &NoneAuthenticator{}, nil
}

func (n *NoneAuthenticator) Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := User{
			Username:     "student",
			Organization: "local",
			Email:        "student@localhost",
			DisplayName:  "Local Student",
		}
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"org_id": "local",
			"sub":    "student",
		})
		token.Raw = "fake-raw-token"
		user.Token = token

		ctx := NewUserContext(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
