// Package lifecycle implements the Lifecycle Reconciler component: the
// desired/applied configuration channel a worker pulls and acknowledges, its
// heartbeat, and the stale-bot sweep.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/conorholds/openclaw-control-plane/internal/domain"
	"github.com/conorholds/openclaw-control-plane/internal/store"
)

// botRepo is the slice of BotStore the reconciler needs.
type botRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Bot, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.BotStatus) error
	UpdateConfigVersion(ctx context.Context, botID uuid.UUID, desired, applied *uuid.UUID) error
	UpdateHeartbeat(ctx context.Context, botID uuid.UUID) error
	ListStaleBots(ctx context.Context, threshold time.Time) ([]*domain.Bot, error)
	ListWithDroplet(ctx context.Context) ([]*domain.Bot, error)
}

// configRepo is the slice of ConfigStore the reconciler needs.
type configRepo interface {
	Create(ctx context.Context, c *domain.StoredConfig) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.StoredConfig, error)
	GetNextVersionAtomic(ctx context.Context, botID uuid.UUID) (int32, error)
}

// Service is the Lifecycle Reconciler.
type Service struct {
	bots    botRepo
	configs configRepo
}

// New builds a Service from its store.
func New(st *store.Store) *Service {
	return &Service{bots: st.Bots, configs: st.Configs}
}

// CreateBotConfig allocates and stores a new desired configuration version
// for bot, leaving the applied pointer untouched.
func (s *Service) CreateBotConfig(ctx context.Context, botID uuid.UUID, cfg domain.Config, encryptedKey []byte) (*domain.StoredConfig, error) {
	bot, err := s.bots.GetByID(ctx, botID)
	if err != nil {
		return nil, mapStoreErr(err, "bot", botID)
	}
	if bot.Status == domain.BotStatusDestroyed {
		return nil, domain.NewError(domain.KindInvalidState, "bot is destroyed", nil)
	}

	version, err := s.configs.GetNextVersionAtomic(ctx, botID)
	if err != nil {
		return nil, domain.NewError(domain.KindTransientStore, "allocating next config version", err)
	}

	stored := &domain.StoredConfig{
		ID:      uuid.New(),
		BotID:   botID,
		Version: version,
		Trading: cfg.Trading,
		Risk:    cfg.Risk,
		Secrets: domain.EncryptedSecrets{
			LLMProvider:        cfg.Secrets.LLMProvider,
			LLMAPIKeyEncrypted: encryptedKey,
		},
	}
	if err := s.configs.Create(ctx, stored); err != nil {
		return nil, domain.NewError(domain.KindTransientStore, "creating bot config", err)
	}

	if err := s.bots.UpdateConfigVersion(ctx, botID, &stored.ID, bot.AppliedConfigVersionID); err != nil {
		return nil, domain.NewError(domain.KindTransientStore, "updating desired config version", err)
	}

	return stored, nil
}

// GetDesiredConfig returns the StoredConfig the bot's desired pointer names,
// or nil if unset. A dangling pointer (config row gone) collapses to nil
// rather than an error.
func (s *Service) GetDesiredConfig(ctx context.Context, botID uuid.UUID) (*domain.StoredConfig, error) {
	bot, err := s.bots.GetByID(ctx, botID)
	if err != nil {
		return nil, mapStoreErr(err, "bot", botID)
	}
	if bot.DesiredConfigVersionID == nil {
		return nil, nil
	}

	cfg, err := s.configs.GetByID(ctx, *bot.DesiredConfigVersionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, domain.NewError(domain.KindTransientStore, "fetching desired config", err)
	}
	return cfg, nil
}

// AcknowledgeConfig records that a worker has applied configID. Fails
// ConfigNotFound if the config doesn't belong to this bot, and
// ConfigVersionConflict if the bot's desired pointer has since moved on.
func (s *Service) AcknowledgeConfig(ctx context.Context, botID, configID uuid.UUID) error {
	cfg, err := s.configs.GetByID(ctx, configID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.NotFound("config", configID)
		}
		return domain.NewError(domain.KindTransientStore, "fetching config", err)
	}
	if cfg.BotID != botID {
		return domain.NotFound("config", configID)
	}

	bot, err := s.bots.GetByID(ctx, botID)
	if err != nil {
		return mapStoreErr(err, "bot", botID)
	}
	if bot.DesiredConfigVersionID == nil || *bot.DesiredConfigVersionID != configID {
		desired := int32(0)
		if bot.DesiredConfigVersionID != nil {
			if d, err := s.configs.GetByID(ctx, *bot.DesiredConfigVersionID); err == nil {
				desired = d.Version
			}
		}
		return &domain.ConfigVersionConflict{Acknowledged: cfg.Version, Desired: desired}
	}

	if err := s.bots.UpdateConfigVersion(ctx, botID, &configID, &configID); err != nil {
		return domain.NewError(domain.KindTransientStore, "updating applied config version", err)
	}

	if bot.Status == domain.BotStatusProvisioning || bot.Status == domain.BotStatusPending {
		if err := s.bots.UpdateStatus(ctx, botID, domain.BotStatusOnline); err != nil {
			return domain.NewError(domain.KindTransientStore, "transitioning bot online", err)
		}
	}
	return nil
}

// RecordHeartbeat stamps the bot's last-seen time.
func (s *Service) RecordHeartbeat(ctx context.Context, botID uuid.UUID) error {
	if err := s.bots.UpdateHeartbeat(ctx, botID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.NotFound("bot", botID)
		}
		return domain.NewError(domain.KindTransientStore, "recording heartbeat", err)
	}
	return nil
}

// CheckStaleBots transitions every online bot whose heartbeat is older than
// now-timeout (or null) to error, and returns the transitioned bots.
// Re-running within the same threshold window returns an empty slice, since
// no online bots remain stale — the sweep is idempotent within one scan.
func (s *Service) CheckStaleBots(ctx context.Context, timeout time.Duration) ([]*domain.Bot, error) {
	threshold := time.Now().UTC().Add(-timeout)
	stale, err := s.bots.ListStaleBots(ctx, threshold)
	if err != nil {
		return nil, domain.NewError(domain.KindTransientStore, "listing stale bots", err)
	}

	transitioned := make([]*domain.Bot, 0, len(stale))
	for _, bot := range stale {
		if err := s.bots.UpdateStatus(ctx, bot.ID, domain.BotStatusError); err != nil {
			return transitioned, domain.NewError(domain.KindTransientStore, "marking stale bot error", err)
		}
		bot.Status = domain.BotStatusError
		transitioned = append(transitioned, bot)
	}
	return transitioned, nil
}

// ListBotsWithDroplet returns every non-destroyed bot that still has a
// droplet assigned, for the sweeper's periodic IaaS status sync.
func (s *Service) ListBotsWithDroplet(ctx context.Context) ([]*domain.Bot, error) {
	bots, err := s.bots.ListWithDroplet(ctx)
	if err != nil {
		return nil, domain.NewError(domain.KindTransientStore, "listing bots with droplets", err)
	}
	return bots, nil
}

func mapStoreErr(err error, entity string, id fmt.Stringer) error {
	if errors.Is(err, store.ErrNotFound) {
		return domain.NotFound(entity, id)
	}
	return domain.NewError(domain.KindTransientStore, fmt.Sprintf("fetching %s", entity), err)
}
