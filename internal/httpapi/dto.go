package httpapi

import (
	"time"

	"github.com/google/uuid"

	"github.com/conorholds/openclaw-control-plane/internal/domain"
)

type healthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type createAccountRequest struct {
	ExternalID string `json:"external_id"`
	Tier       string `json:"tier"`
}

type accountResponse struct {
	ID               uuid.UUID `json:"id"`
	ExternalID       string    `json:"external_id"`
	SubscriptionTier string    `json:"subscription_tier"`
	MaxBots          int       `json:"max_bots"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func accountToResponse(a *domain.Account) accountResponse {
	return accountResponse{
		ID:               a.ID,
		ExternalID:       a.ExternalID,
		SubscriptionTier: string(a.SubscriptionTier),
		MaxBots:          a.MaxBots,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

// createBotRequest mirrors the original provisioning request shape
// (http_types.rs CreateBotRequest), with asset_focus_symbols added so the
// custom asset-focus variant is reachable over the wire too.
type createBotRequest struct {
	AccountID          uuid.UUID `json:"account_id"`
	Name               string    `json:"name"`
	Persona            string    `json:"persona"`
	AssetFocus         string    `json:"asset_focus"`
	AssetFocusSymbols  []string  `json:"asset_focus_symbols,omitempty"`
	Algorithm          string    `json:"algorithm"`
	Strictness         string    `json:"strictness"`
	PaperMode          bool      `json:"paper_mode"`
	VolumeConfirmation bool      `json:"volume_confirmation"`
	VolatilityBrake    bool      `json:"volatility_brake"`
	LiquidityFilter    string    `json:"liquidity_filter"`
	CorrelationBrake   bool      `json:"correlation_brake"`
	MaxPositionSizePct float64   `json:"max_position_size_pct"`
	MaxDailyLossPct    float64   `json:"max_daily_loss_pct"`
	MaxDrawdownPct     float64   `json:"max_drawdown_pct"`
	MaxTradesPerDay    int32     `json:"max_trades_per_day"`
	LLMProvider        string    `json:"llm_provider"`
	LLMAPIKey          string    `json:"llm_api_key"`
}

type botActionRequest struct {
	Action string `json:"action"`
}

type registerBotRequest struct {
	BotID uuid.UUID `json:"bot_id"`
}

type ackConfigRequest struct {
	ConfigID uuid.UUID `json:"config_id"`
}

type botResponse struct {
	ID                     uuid.UUID  `json:"id"`
	AccountID              uuid.UUID  `json:"account_id"`
	Name                   string     `json:"name"`
	Persona                string     `json:"persona"`
	Status                 string     `json:"status"`
	DropletID              *int64     `json:"droplet_id,omitempty"`
	DesiredConfigVersionID *uuid.UUID `json:"desired_config_version_id,omitempty"`
	AppliedConfigVersionID *uuid.UUID `json:"applied_config_version_id,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
	LastHeartbeatAt        *time.Time `json:"last_heartbeat_at,omitempty"`
}

func botToResponse(b *domain.Bot) botResponse {
	return botResponse{
		ID:                     b.ID,
		AccountID:              b.AccountID,
		Name:                   b.Name,
		Persona:                string(b.Persona),
		Status:                 string(b.Status),
		DropletID:              b.DropletID,
		DesiredConfigVersionID: b.DesiredConfigVersionID,
		AppliedConfigVersionID: b.AppliedConfigVersionID,
		CreatedAt:              b.CreatedAt,
		UpdatedAt:              b.UpdatedAt,
		LastHeartbeatAt:        b.LastHeartbeatAt,
	}
}

type storedConfigResponse struct {
	ID          uuid.UUID            `json:"id"`
	BotID       uuid.UUID            `json:"bot_id"`
	Version     int32                `json:"version"`
	Trading     domain.TradingConfig `json:"trading_config"`
	Risk        domain.RiskConfig    `json:"risk_config"`
	LLMProvider string               `json:"llm_provider"`
	CreatedAt   time.Time            `json:"created_at"`
}

func configToResponse(c *domain.StoredConfig) storedConfigResponse {
	return storedConfigResponse{
		ID:          c.ID,
		BotID:       c.BotID,
		Version:     c.Version,
		Trading:     c.Trading,
		Risk:        c.Risk,
		LLMProvider: c.Secrets.LLMProvider,
		CreatedAt:   c.CreatedAt,
	}
}
