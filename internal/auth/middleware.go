package auth

import (
	"context"
	"net/http"
)

type ctxKey int

const ownerKey ctxKey = 0

// WithOwner returns a context carrying an authenticated owner id.
func WithOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerKey, ownerID)
}

// OwnerFromContext returns the authenticated owner id, if any.
func OwnerFromContext(ctx context.Context) (string, bool) {
	ownerID, ok := ctx.Value(ownerKey).(string)
	return ownerID, ok && ownerID != ""
}

// RequireOwner rejects requests without a valid session and puts the owner
// id into the request context for handlers downstream.
func (s *Sessions) RequireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ownerID, err := s.OwnerFromRequest(r)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"unauthorized"}`))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), ownerID)))
	})
}
