package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/conorholds/openclaw-control-plane/internal/domain"
)

// errorEnvelope is the JSON error shape every non-2xx response uses.
type errorEnvelope struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// statusForKind maps a domain.Kind to its HTTP status exactly once, per
// spec.md §6/§7 — no other package re-maps an error's Kind.
func statusForKind(kind domain.Kind) int {
	switch kind {
	case domain.KindQuota:
		return http.StatusForbidden
	case domain.KindTransientIaaS:
		return http.StatusTooManyRequests
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindVersionConflict:
		return http.StatusConflict
	case domain.KindInvalidState:
		return http.StatusBadRequest
	case domain.KindAuthFailed:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeError classifies err and writes the matching status code and JSON
// envelope. A *domain.ConfigVersionConflict carries its own status since it
// isn't a *domain.Error.
func writeError(w http.ResponseWriter, err error) {
	var conflict *domain.ConfigVersionConflict
	if errors.As(err, &conflict) {
		writeJSON(w, http.StatusConflict, errorEnvelope{Error: "config version conflict", Details: conflict.Error()})
		return
	}

	if derr, ok := domain.AsDomainError(err); ok {
		writeJSON(w, statusForKind(derr.Kind), errorEnvelope{Error: derr.Message})
		return
	}

	writeJSON(w, http.StatusInternalServerError, errorEnvelope{Error: "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorEnvelope{Error: message})
}

func unauthorized(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusUnauthorized, errorEnvelope{Error: message})
}
