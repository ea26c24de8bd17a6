package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/vasapolrittideah/identity-gateway/services/auth-service/internal/model"
	"github.com/vasapolrittideah/identity-gateway/services/auth-service/internal/usecase"
)

type userContextKey struct{}

// UserFromContext returns the user authenticated by the bearer token, if any.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userContextKey{}).(*model.User)
	return user, ok
}

// authenticate resolves the bearer token to a user. When required is false a
// request without an Authorization header passes through anonymously; a
// present but invalid token is always rejected.
func (h *AuthHTTPHandler) authenticate(required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" && !required {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(header)
			if !ok {
				h.writeError(w, r, "authenticate", usecase.ErrAuthenticationFailed)
				return
			}

			user, err := h.tokenUsecase.Authenticate(r.Context(), token)
			if err != nil {
				h.writeError(w, r, "authenticate", err)
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey{}, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
