package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/conorholds/openclaw-control-plane/internal/domain"
	"github.com/conorholds/openclaw-control-plane/internal/store"
)

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unhealthy", Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy"})
}

func (a *API) createAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.ExternalID == "" {
		badRequest(w, "external_id is required")
		return
	}
	tier, ok := parseSubscriptionTier(req.Tier)
	if !ok {
		badRequest(w, "unknown subscription tier: "+req.Tier)
		return
	}

	now := time.Now().UTC()
	account := &domain.Account{
		ID:               uuid.New(),
		ExternalID:       req.ExternalID,
		SubscriptionTier: tier,
		MaxBots:          domain.MaxBotsForTier(tier),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := a.store.Accounts.Create(r.Context(), account); err != nil {
		writeError(w, domain.NewError(domain.KindTransientStore, "creating account", err))
		return
	}
	writeJSON(w, http.StatusCreated, accountToResponse(account))
}

func (a *API) getAccount(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid account id")
		return
	}
	account, err := a.store.Accounts.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, mapStoreErr(err, "account", id))
		return
	}
	writeJSON(w, http.StatusOK, accountToResponse(account))
}

func (a *API) listBots(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid account id")
		return
	}
	limit, offset := parsePagination(r.URL.Query().Get("limit"), r.URL.Query().Get("offset"))

	bots, err := a.store.Bots.ListByAccountPaginated(r.Context(), accountID, limit, offset)
	if err != nil {
		writeError(w, domain.NewError(domain.KindTransientStore, "listing bots", err))
		return
	}

	out := make([]botResponse, 0, len(bots))
	for _, b := range bots {
		out = append(out, botToResponse(b))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) createBot(w http.ResponseWriter, r *http.Request) {
	var req createBotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	persona, ok := parsePersona(req.Persona)
	if !ok {
		badRequest(w, "unknown persona: "+req.Persona)
		return
	}
	assetFocus, ok := parseAssetFocus(req.AssetFocus, req.AssetFocusSymbols)
	if !ok {
		badRequest(w, "unknown or invalid asset_focus: "+req.AssetFocus)
		return
	}
	algorithm, ok := parseAlgorithm(req.Algorithm)
	if !ok {
		badRequest(w, "unknown algorithm: "+req.Algorithm)
		return
	}
	strictness, ok := parseStrictness(req.Strictness)
	if !ok {
		badRequest(w, "unknown strictness: "+req.Strictness)
		return
	}
	if req.Name == "" {
		badRequest(w, "name is required")
		return
	}
	if req.LLMProvider == "" || req.LLMAPIKey == "" {
		badRequest(w, "llm_provider and llm_api_key are required")
		return
	}

	risk := domain.RiskConfig{
		MaxPositionSizePct: req.MaxPositionSizePct,
		MaxDailyLossPct:    req.MaxDailyLossPct,
		MaxDrawdownPct:     req.MaxDrawdownPct,
		MaxTradesPerDay:    req.MaxTradesPerDay,
	}
	if violations := risk.Validate(); len(violations) > 0 {
		writeJSON(w, http.StatusBadRequest, errorEnvelope{Error: "invalid risk config", Details: violations[0]})
		return
	}

	cfg := domain.Config{
		Trading: domain.TradingConfig{
			AssetFocus: assetFocus,
			Algorithm:  algorithm,
			Strictness: strictness,
			PaperMode:  req.PaperMode,
			SignalKnobs: &domain.SignalKnobs{
				VolumeConfirmation: req.VolumeConfirmation,
				VolatilityBrake:    req.VolatilityBrake,
				LiquidityFilter:    domain.StrictnessLevel(req.LiquidityFilter),
				CorrelationBrake:   req.CorrelationBrake,
			},
		},
		Risk: risk,
		Secrets: domain.BotSecrets{
			LLMProvider: req.LLMProvider,
			LLMAPIKey:   req.LLMAPIKey,
		},
	}

	bot, err := a.saga.CreateBot(r.Context(), req.AccountID, req.Name, persona, cfg)
	if err != nil {
		// A rate-limited spawn still returns the pending bot it created, so
		// the caller sees the partial result alongside the 429.
		if bot != nil {
			w.Header().Set("X-Bot-Id", bot.ID.String())
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, botToResponse(bot))
}

func (a *API) getBot(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid bot id")
		return
	}
	bot, err := a.store.Bots.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, mapStoreErr(err, "bot", id))
		return
	}
	writeJSON(w, http.StatusOK, botToResponse(bot))
}

func (a *API) getBotConfig(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid bot id")
		return
	}
	cfg, err := a.lifecycle.GetDesiredConfig(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if cfg == nil {
		writeJSON(w, http.StatusNotFound, errorEnvelope{Error: "bot has no desired config"})
		return
	}
	writeJSON(w, http.StatusOK, configToResponse(cfg))
}

func (a *API) botAction(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid bot id")
		return
	}
	var req botActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	ctx := r.Context()
	switch req.Action {
	case "pause":
		err = a.saga.PauseBot(ctx, id)
	case "resume":
		err = a.saga.ResumeBot(ctx, id)
	case "redeploy":
		err = a.saga.RedeployBot(ctx, id)
	case "destroy":
		err = a.saga.DestroyBot(ctx, id)
	default:
		badRequest(w, "unknown action: "+req.Action)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// mapStoreErr turns a bare store.ErrNotFound into the domain NotFound kind
// the edge's status-code map understands; anything else passes through as a
// transient store error.
func mapStoreErr(err error, entity string, id uuid.UUID) error {
	if errors.Is(err, store.ErrNotFound) {
		return domain.NotFound(entity, id)
	}
	return domain.NewError(domain.KindTransientStore, "fetching "+entity, err)
}
