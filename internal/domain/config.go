package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AssetFocusKind selects which variant of AssetFocus is populated.
type AssetFocusKind string

const (
	AssetFocusMajors AssetFocusKind = "majors"
	AssetFocusMemes  AssetFocusKind = "memes"
	AssetFocusCustom AssetFocusKind = "custom"
)

// AssetFocus mirrors the original Rust enum's Majors/Memes/Custom(Vec<String>)
// shape: Custom carries an explicit asset list, the other two are bare tags.
type AssetFocus struct {
	Kind          AssetFocusKind
	CustomSymbols []string // populated only when Kind == AssetFocusCustom
}

func (f AssetFocus) Valid() bool {
	switch f.Kind {
	case AssetFocusMajors, AssetFocusMemes:
		return true
	case AssetFocusCustom:
		return len(f.CustomSymbols) > 0
	default:
		return false
	}
}

// AlgorithmMode selects the trading strategy family.
type AlgorithmMode string

const (
	AlgorithmTrend         AlgorithmMode = "trend"
	AlgorithmMeanReversion AlgorithmMode = "mean_reversion"
	AlgorithmBreakout      AlgorithmMode = "breakout"
)

func (m AlgorithmMode) Valid() bool {
	switch m {
	case AlgorithmTrend, AlgorithmMeanReversion, AlgorithmBreakout:
		return true
	default:
		return false
	}
}

// StrictnessLevel tunes how conservatively signals are filtered.
type StrictnessLevel string

const (
	StrictnessLow    StrictnessLevel = "low"
	StrictnessMedium StrictnessLevel = "medium"
	StrictnessHigh   StrictnessLevel = "high"
)

func (l StrictnessLevel) Valid() bool {
	switch l {
	case StrictnessLow, StrictnessMedium, StrictnessHigh:
		return true
	default:
		return false
	}
}

// SignalKnobs are optional extra filters layered on top of the algorithm mode.
type SignalKnobs struct {
	VolumeConfirmation bool
	VolatilityBrake    bool
	LiquidityFilter    StrictnessLevel
	CorrelationBrake   bool
}

// TradingConfig is the opaque-to-the-control-plane trading behavior knobs.
type TradingConfig struct {
	AssetFocus  AssetFocus
	Algorithm   AlgorithmMode
	Strictness  StrictnessLevel
	PaperMode   bool
	SignalKnobs *SignalKnobs // nil when not set
}

// RiskConfig holds the four bounded numerics spec.md §3 requires.
type RiskConfig struct {
	MaxPositionSizePct float64
	MaxDailyLossPct    float64
	MaxDrawdownPct     float64
	MaxTradesPerDay    int32
}

// Validate checks the range invariants and collects every violation, matching
// the original Rust RiskConfig::validate (accumulate-all-errors, not fail-fast).
func (r RiskConfig) Validate() []string {
	var errs []string
	if r.MaxPositionSizePct < 0 || r.MaxPositionSizePct > 100 {
		errs = append(errs, fmt.Sprintf("max_position_size_pct must be between 0 and 100, got %v", r.MaxPositionSizePct))
	}
	if r.MaxDailyLossPct < 0 || r.MaxDailyLossPct > 100 {
		errs = append(errs, fmt.Sprintf("max_daily_loss_pct must be between 0 and 100, got %v", r.MaxDailyLossPct))
	}
	if r.MaxDrawdownPct < 0 || r.MaxDrawdownPct > 100 {
		errs = append(errs, fmt.Sprintf("max_drawdown_pct must be between 0 and 100, got %v", r.MaxDrawdownPct))
	}
	if r.MaxTradesPerDay < 0 {
		errs = append(errs, fmt.Sprintf("max_trades_per_day must be >= 0, got %d", r.MaxTradesPerDay))
	}
	return errs
}

// BotSecrets is the plaintext form accepted as API input; it never touches
// disk in this shape.
type BotSecrets struct {
	LLMProvider string
	LLMAPIKey   string
}

// EncryptedSecrets is the at-rest form: the provider name stays plaintext and
// queryable, the key is Secrets-Envelope ciphertext.
type EncryptedSecrets struct {
	LLMProvider        string
	LLMAPIKeyEncrypted []byte
}

// Config is the caller-facing shape for creating a new bot configuration:
// plaintext secrets in, to be encrypted by the saga before persistence.
type Config struct {
	Trading TradingConfig
	Risk    RiskConfig
	Secrets BotSecrets
}

// StoredConfig is a StoredConfig row: immutable once created, secrets already
// encrypted.
type StoredConfig struct {
	ID        uuid.UUID
	BotID     uuid.UUID
	Version   int32
	Trading   TradingConfig
	Risk      RiskConfig
	Secrets   EncryptedSecrets
	CreatedAt time.Time
}
