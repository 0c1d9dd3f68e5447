package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"tenantcore/internal/apperr"
	"tenantcore/internal/metrics"
)

func (a *API) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy to transport status codes. Errors
// propagate here unmodified in kind; this is the only place that turns them
// into responses.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case apperr.IsValidation(err):
		metrics.AuthzDenials.WithLabelValues("validation").Inc()
		a.writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})

	case apperr.IsAuthorization(err):
		metrics.AuthzDenials.WithLabelValues("authorization").Inc()
		a.writeJSON(w, http.StatusForbidden, map[string]string{"detail": err.Error()})

	case errors.Is(err, apperr.ErrUnauthenticated):
		a.writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "unauthenticated"})

	case apperr.IsRLSViolation(err):
		// The database rejected a row the application let through. Either a
		// bug or an attack; log loudly and never retry.
		metrics.RLSViolations.WithLabelValues(r.URL.Path).Inc()
		a.Log.Warnw("row security violation", "path", r.URL.Path, "error", err)
		a.writeJSON(w, http.StatusForbidden, map[string]string{"detail": "forbidden"})

	default:
		a.Log.Errorw("internal error", "path", r.URL.Path, "error", err)
		a.writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "internal error"})
	}
}
