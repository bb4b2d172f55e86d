package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

// registerBot validates a freshly spawned worker's bot_id + bearer token
// pair. Unlike the other worker routes, the bot id travels in the body, not
// the path, so it can't go through requireWorkerToken and authenticates
// inline instead.
func (a *API) registerBot(w http.ResponseWriter, r *http.Request) {
	var req registerBotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	token := extractBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		unauthorized(w, "missing bearer token")
		return
	}

	bot, err := a.store.Bots.GetByIDWithTokenDigest(r.Context(), req.BotID, hashToken(token))
	if err != nil {
		unauthorized(w, "invalid registration token")
		return
	}
	writeJSON(w, http.StatusOK, botToResponse(bot))
}

func (a *API) getDesiredConfig(w http.ResponseWriter, r *http.Request) {
	bot := workerBotFromContext(r.Context())
	cfg, err := a.lifecycle.GetDesiredConfig(r.Context(), bot.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if cfg == nil {
		writeJSON(w, http.StatusNotFound, errorEnvelope{Error: "no desired config"})
		return
	}
	writeJSON(w, http.StatusOK, configToResponse(cfg))
}

func (a *API) acknowledgeConfig(w http.ResponseWriter, r *http.Request) {
	bot := workerBotFromContext(r.Context())
	var req ackConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.ConfigID == uuid.Nil {
		badRequest(w, "config_id is required")
		return
	}

	if err := a.lifecycle.AcknowledgeConfig(r.Context(), bot.ID, req.ConfigID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) recordHeartbeat(w http.ResponseWriter, r *http.Request) {
	bot := workerBotFromContext(r.Context())
	if err := a.lifecycle.RecordHeartbeat(r.Context(), bot.ID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
