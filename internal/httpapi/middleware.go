package httpapi

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/conorholds/openclaw-control-plane/internal/domain"
)

type contextKey string

const workerBotKey contextKey = "worker_bot"

// extractBearerToken mirrors volaticloud-volaticloud's internal/auth
// middleware: split on the first space, require a case-insensitive "Bearer"
// scheme, reject anything else.
func extractBearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// requireAdmin rejects every request unless it carries
// "Authorization: Bearer <AdminToken>", compared in constant time. Per
// spec.md §9, an empty configured token closes the door entirely rather than
// disabling auth.
func (a *API) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.cfg.AdminToken == "" {
			unauthorized(w, "admin endpoints are disabled: no admin token configured")
			return
		}
		token := extractBearerToken(r.Header.Get("Authorization"))
		if token == "" {
			unauthorized(w, "missing bearer token")
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(a.cfg.AdminToken)) != 1 {
			unauthorized(w, "invalid admin token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireWorkerToken looks up the bot named by the {id} path param, hashes
// the presented bearer token, and compares it to the bot's stored digest.
// The authenticated bot is stashed in the request context so handlers never
// re-fetch it.
func (a *API) requireWorkerToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		idParam := chi.URLParam(r, "id")
		botID, err := uuid.Parse(idParam)
		if err != nil {
			badRequest(w, "invalid bot id")
			return
		}

		token := extractBearerToken(r.Header.Get("Authorization"))
		if token == "" {
			unauthorized(w, "missing bearer token")
			return
		}
		digest := hashToken(token)

		bot, err := a.store.Bots.GetByIDWithTokenDigest(r.Context(), botID, digest)
		if err != nil {
			unauthorized(w, "invalid registration token")
			return
		}

		ctx := context.WithValue(r.Context(), workerBotKey, bot)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "sha256:" + hex.EncodeToString(sum[:])
}

func workerBotFromContext(ctx context.Context) *domain.Bot {
	bot, _ := ctx.Value(workerBotKey).(*domain.Bot)
	return bot
}
