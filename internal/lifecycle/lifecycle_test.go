package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorholds/openclaw-control-plane/internal/domain"
	"github.com/conorholds/openclaw-control-plane/internal/store"
)

type fakeBots struct {
	bots map[uuid.UUID]*domain.Bot
}

func newFakeBots() *fakeBots {
	return &fakeBots{bots: make(map[uuid.UUID]*domain.Bot)}
}

func (f *fakeBots) GetByID(ctx context.Context, id uuid.UUID) (*domain.Bot, error) {
	b, ok := f.bots[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBots) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.BotStatus) error {
	b, ok := f.bots[id]
	if !ok {
		return store.ErrNotFound
	}
	b.Status = status
	return nil
}

func (f *fakeBots) UpdateConfigVersion(ctx context.Context, botID uuid.UUID, desired, applied *uuid.UUID) error {
	b, ok := f.bots[botID]
	if !ok {
		return store.ErrNotFound
	}
	b.DesiredConfigVersionID = desired
	b.AppliedConfigVersionID = applied
	return nil
}

func (f *fakeBots) UpdateHeartbeat(ctx context.Context, botID uuid.UUID) error {
	b, ok := f.bots[botID]
	if !ok {
		return store.ErrNotFound
	}
	now := time.Now().UTC()
	b.LastHeartbeatAt = &now
	return nil
}

func (f *fakeBots) ListStaleBots(ctx context.Context, threshold time.Time) ([]*domain.Bot, error) {
	var stale []*domain.Bot
	for _, b := range f.bots {
		if b.Status != domain.BotStatusOnline {
			continue
		}
		if b.LastHeartbeatAt == nil || b.LastHeartbeatAt.Before(threshold) {
			cp := *b
			stale = append(stale, &cp)
		}
	}
	return stale, nil
}

func (f *fakeBots) ListWithDroplet(ctx context.Context) ([]*domain.Bot, error) {
	var out []*domain.Bot
	for _, b := range f.bots {
		if b.DropletID != nil && b.Status != domain.BotStatusDestroyed {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeConfigs struct {
	configs     map[uuid.UUID]*domain.StoredConfig
	nextVersion map[uuid.UUID]int32
}

func newFakeConfigs() *fakeConfigs {
	return &fakeConfigs{
		configs:     make(map[uuid.UUID]*domain.StoredConfig),
		nextVersion: make(map[uuid.UUID]int32),
	}
}

func (f *fakeConfigs) Create(ctx context.Context, c *domain.StoredConfig) error {
	cp := *c
	f.configs[c.ID] = &cp
	return nil
}

func (f *fakeConfigs) GetByID(ctx context.Context, id uuid.UUID) (*domain.StoredConfig, error) {
	c, ok := f.configs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeConfigs) GetNextVersionAtomic(ctx context.Context, botID uuid.UUID) (int32, error) {
	f.nextVersion[botID]++
	return f.nextVersion[botID], nil
}

func testConfig() domain.Config {
	return domain.Config{
		Trading: domain.TradingConfig{
			AssetFocus: domain.AssetFocus{Kind: domain.AssetFocusMajors},
			Algorithm:  domain.AlgorithmTrend,
			Strictness: domain.StrictnessMedium,
		},
		Risk: domain.RiskConfig{
			MaxPositionSizePct: 10,
			MaxDailyLossPct:    5,
			MaxDrawdownPct:     20,
			MaxTradesPerDay:    50,
		},
		Secrets: domain.BotSecrets{LLMProvider: "anthropic", LLMAPIKey: "sk-test-key"},
	}
}

func TestAcknowledgeConfig_Conflict(t *testing.T) {
	bots := newFakeBots()
	configs := newFakeConfigs()
	svc := &Service{bots: bots, configs: configs}

	bot := domain.NewBot(uuid.New(), "bot-1", domain.PersonaBeginner)
	bot.Status = domain.BotStatusProvisioning
	bots.bots[bot.ID] = bot

	stored, err := svc.CreateBotConfig(context.Background(), bot.ID, testConfig(), []byte("ciphertext-v1"))
	require.NoError(t, err)
	require.Equal(t, int32(1), stored.Version)

	// A second desired version is pushed before the worker acknowledges the
	// first — the worker's ack of the stale version must report the conflict
	// with both version numbers, not silently apply.
	stored2, err := svc.CreateBotConfig(context.Background(), bot.ID, testConfig(), []byte("ciphertext-v2"))
	require.NoError(t, err)
	require.Equal(t, int32(2), stored2.Version)

	err = svc.AcknowledgeConfig(context.Background(), bot.ID, stored.ID)
	require.Error(t, err)

	var conflict *domain.ConfigVersionConflict
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, int32(1), conflict.Acknowledged)
	assert.Equal(t, int32(2), conflict.Desired)

	// Bot status is untouched by a failed acknowledge.
	assert.Equal(t, domain.BotStatusProvisioning, bots.bots[bot.ID].Status)
}

func TestAcknowledgeConfig_SuccessPromotesProvisioningToOnline(t *testing.T) {
	bots := newFakeBots()
	configs := newFakeConfigs()
	svc := &Service{bots: bots, configs: configs}

	bot := domain.NewBot(uuid.New(), "bot-1", domain.PersonaBeginner)
	bot.Status = domain.BotStatusProvisioning
	bots.bots[bot.ID] = bot

	stored, err := svc.CreateBotConfig(context.Background(), bot.ID, testConfig(), []byte("ciphertext-v1"))
	require.NoError(t, err)

	err = svc.AcknowledgeConfig(context.Background(), bot.ID, stored.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.BotStatusOnline, bots.bots[bot.ID].Status)
	assert.Equal(t, stored.ID, *bots.bots[bot.ID].AppliedConfigVersionID)
}

func TestCheckStaleBots_IdempotentWithinOneScan(t *testing.T) {
	bots := newFakeBots()
	svc := &Service{bots: bots, configs: newFakeConfigs()}

	bot := domain.NewBot(uuid.New(), "bot-1", domain.PersonaBeginner)
	bot.Status = domain.BotStatusOnline
	bot.LastHeartbeatAt = nil // a bot that has never sent a heartbeat counts as stale
	bots.bots[bot.ID] = bot

	stale, err := svc.CheckStaleBots(context.Background(), 2*time.Minute)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, domain.BotStatusError, bots.bots[bot.ID].Status)

	// Re-running the sweep within the same window finds nothing left to do:
	// the bot is no longer online, so it's no longer a stale-bot candidate.
	stale, err = svc.CheckStaleBots(context.Background(), 2*time.Minute)
	require.NoError(t, err)
	assert.Empty(t, stale)
}

func TestListBotsWithDroplet_ExcludesDestroyed(t *testing.T) {
	bots := newFakeBots()
	svc := &Service{bots: bots, configs: newFakeConfigs()}

	dropletID := int64(42)

	withDroplet := domain.NewBot(uuid.New(), "bot-1", domain.PersonaBeginner)
	withDroplet.Status = domain.BotStatusOnline
	withDroplet.DropletID = &dropletID
	bots.bots[withDroplet.ID] = withDroplet

	destroyed := domain.NewBot(uuid.New(), "bot-2", domain.PersonaBeginner)
	destroyed.Status = domain.BotStatusDestroyed
	destroyed.DropletID = &dropletID
	bots.bots[destroyed.ID] = destroyed

	noDroplet := domain.NewBot(uuid.New(), "bot-3", domain.PersonaBeginner)
	noDroplet.Status = domain.BotStatusPending
	bots.bots[noDroplet.ID] = noDroplet

	got, err := svc.ListBotsWithDroplet(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, withDroplet.ID, got[0].ID)
}

func TestCheckStaleBots_FreshHeartbeatSurvives(t *testing.T) {
	bots := newFakeBots()
	svc := &Service{bots: bots, configs: newFakeConfigs()}

	bot := domain.NewBot(uuid.New(), "bot-1", domain.PersonaBeginner)
	bot.Status = domain.BotStatusOnline
	now := time.Now().UTC()
	bot.LastHeartbeatAt = &now
	bots.bots[bot.ID] = bot

	stale, err := svc.CheckStaleBots(context.Background(), 2*time.Minute)
	require.NoError(t, err)
	assert.Empty(t, stale)
	assert.Equal(t, domain.BotStatusOnline, bots.bots[bot.ID].Status)
}
