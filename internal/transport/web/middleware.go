// internal/transport/web/middleware.go
package web

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/RichKitibwa/BloodLink/internal/authz"
)

// CallerFromHeaders resolves the authenticated caller from identity
// headers set by the gateway in front of this service. Requests without
// a user identity are rejected; hospital affiliation and role checks
// stay with the workflows.
func CallerFromHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(r.Header.Get("X-User-ID"))
		if err != nil {
			writeError(w, http.StatusUnauthorized, codeForbidden, "missing or invalid X-User-ID")
			return
		}

		caller := authz.Caller{
			UserID: userID,
			Role:   authz.Role(r.Header.Get("X-Role")),
		}
		if raw := r.Header.Get("X-Hospital-ID"); raw != "" {
			hospitalID, err := uuid.Parse(raw)
			if err != nil {
				writeError(w, http.StatusUnauthorized, codeForbidden, "invalid X-Hospital-ID")
				return
			}
			caller.HospitalID = hospitalID
		}
		if caller.Role == "" {
			caller.Role = authz.RoleViewer
		}

		next.ServeHTTP(w, r.WithContext(authz.WithCaller(r.Context(), caller)))
	})
}
