package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/BearBump/PackBox/internal/models"
)

type ctxKey int

const identityKey ctxKey = 0

func identityFromContext(ctx context.Context) (*models.Identity, bool) {
	id, ok := ctx.Value(identityKey).(*models.Identity)
	return id, ok
}

func (a *API) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			a.writeErrorMessage(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		identity, err := a.users.ParseToken(token)
		if err != nil {
			a.writeErrorMessage(w, http.StatusUnauthorized, "invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, identity)))
	})
}
