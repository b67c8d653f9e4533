package handler

import (
	"context"
	"net/http"
)

// Identity headers set by the upstream authentication layer. The API trusts
// them; it never verifies credentials itself.
const (
	headerUserID = "X-User-ID"
	headerAdmin  = "X-Admin"
)

type userIDKey struct{}
type adminKey struct{}

// userID extracts the authenticated user id from the context.
func userID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}

// isAdmin reports whether the request carries the admin flag.
func isAdmin(ctx context.Context) bool {
	admin, _ := ctx.Value(adminKey{}).(bool)
	return admin
}

// RequireUser rejects requests without an X-User-ID header and stores the
// identity in the request context.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerUserID)
		if id == "" {
			respondError(w, r, http.StatusUnauthorized, "Authentication required")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey{}, id)
		if r.Header.Get(headerAdmin) == "true" {
			ctx = context.WithValue(ctx, adminKey{}, true)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects requests without the admin flag. Must run after
// RequireUser.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isAdmin(r.Context()) {
			respondError(w, r, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
