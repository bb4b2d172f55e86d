package lifecycle

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/conorholds/openclaw-control-plane/internal/domain"
)

type fakeSyncer struct {
	synced []uuid.UUID
	err    error
}

func (f *fakeSyncer) SyncDropletStatus(ctx context.Context, botID uuid.UUID) error {
	f.synced = append(f.synced, botID)
	return f.err
}

func TestSweepOnce_SyncsDropletsWhenSyncerAttached(t *testing.T) {
	bots := newFakeBots()
	svc := &Service{bots: bots, configs: newFakeConfigs()}

	dropletID := int64(7)
	bot := domain.NewBot(uuid.New(), "bot-1", domain.PersonaBeginner)
	bot.Status = domain.BotStatusOnline
	bot.DropletID = &dropletID
	bots.bots[bot.ID] = bot

	syncer := &fakeSyncer{}
	sw := NewSweeper(svc, 0, zap.NewNop())
	sw.SetDropletSyncer(syncer)

	sw.sweepOnce(context.Background())

	require.Len(t, syncer.synced, 1)
	assert.Equal(t, bot.ID, syncer.synced[0])
}

func TestSweepOnce_SkipsDropletSyncWithoutSyncer(t *testing.T) {
	bots := newFakeBots()
	svc := &Service{bots: bots, configs: newFakeConfigs()}

	dropletID := int64(7)
	bot := domain.NewBot(uuid.New(), "bot-1", domain.PersonaBeginner)
	bot.Status = domain.BotStatusOnline
	bot.DropletID = &dropletID
	bots.bots[bot.ID] = bot

	sw := NewSweeper(svc, 0, zap.NewNop())

	assert.NotPanics(t, func() {
		sw.sweepOnce(context.Background())
	})
}
