package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/conorholds/openclaw-control-plane/internal/domain"
)

const botColumns = `id, account_id, name, persona, status, droplet_id,
	desired_config_version_id, applied_config_version_id,
	registration_token_digest, created_at, updated_at, last_heartbeat_at`

// BotStore provides database operations for bots.
type BotStore struct {
	pool *pgxpool.Pool
}

func scanBot(row pgx.Row) (*domain.Bot, error) {
	var b domain.Bot
	var persona, status string
	if err := row.Scan(
		&b.ID, &b.AccountID, &b.Name, &persona, &status, &b.DropletID,
		&b.DesiredConfigVersionID, &b.AppliedConfigVersionID,
		&b.RegistrationTokenDigest, &b.CreatedAt, &b.UpdatedAt, &b.LastHeartbeatAt,
	); err != nil {
		return nil, err
	}
	b.Persona = domain.Persona(persona)
	b.Status = domain.BotStatus(status)
	return &b, nil
}

func scanBots(rows pgx.Rows) ([]*domain.Bot, error) {
	defer rows.Close()
	var out []*domain.Bot
	for rows.Next() {
		b, err := scanBot(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scanning bot row: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterating bot rows: %w", err)
	}
	return out, nil
}

// Create inserts a new bot row.
func (s *BotStore) Create(ctx context.Context, b *domain.Bot) error {
	query := `INSERT INTO bots (` + botColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := s.pool.Exec(ctx, query,
		b.ID, b.AccountID, b.Name, string(b.Persona), string(b.Status), b.DropletID,
		b.DesiredConfigVersionID, b.AppliedConfigVersionID,
		b.RegistrationTokenDigest, b.CreatedAt, b.UpdatedAt, b.LastHeartbeatAt,
	)
	if err != nil {
		return fmt.Errorf("store: creating bot: %w", err)
	}
	return nil
}

// GetByID fetches a bot by primary key.
func (s *BotStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Bot, error) {
	query := `SELECT ` + botColumns + ` FROM bots WHERE id = $1`
	b, err := scanBot(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapRowErr(err)
	}
	return b, nil
}

// GetByIDWithTokenDigest fetches a bot only if digest matches its stored
// registration token digest, used by the worker-facing auth middleware.
func (s *BotStore) GetByIDWithTokenDigest(ctx context.Context, id uuid.UUID, digest string) (*domain.Bot, error) {
	query := `SELECT ` + botColumns + ` FROM bots WHERE id = $1 AND registration_token_digest = $2`
	b, err := scanBot(s.pool.QueryRow(ctx, query, id, digest))
	if err != nil {
		return nil, mapRowErr(err)
	}
	return b, nil
}

// ListByAccount returns every bot belonging to account, newest first.
func (s *BotStore) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*domain.Bot, error) {
	query := `SELECT ` + botColumns + ` FROM bots WHERE account_id = $1 ORDER BY created_at DESC`
	rows, err := s.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("store: listing bots: %w", err)
	}
	return scanBots(rows)
}

// ListByAccountPaginated is the bounded variant of ListByAccount.
func (s *BotStore) ListByAccountPaginated(ctx context.Context, accountID uuid.UUID, limit, offset int64) ([]*domain.Bot, error) {
	query := `SELECT ` + botColumns + ` FROM bots WHERE account_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := s.pool.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("store: listing bots paginated: %w", err)
	}
	return scanBots(rows)
}

// CountByAccount returns the bot count for account without fetching rows.
func (s *BotStore) CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM bots WHERE account_id = $1`
	if err := s.pool.QueryRow(ctx, query, accountID).Scan(&count); err != nil {
		return 0, fmt.Errorf("store: counting bots: %w", err)
	}
	return count, nil
}

// UpdateStatus transitions a bot to a new lifecycle status.
func (s *BotStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.BotStatus) error {
	query := `UPDATE bots SET status = $1, updated_at = now() WHERE id = $2`
	tag, err := s.pool.Exec(ctx, query, string(status), id)
	if err != nil {
		return fmt.Errorf("store: updating bot status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateDroplet sets or clears the bot's droplet assignment.
func (s *BotStore) UpdateDroplet(ctx context.Context, botID uuid.UUID, dropletID *int64) error {
	query := `UPDATE bots SET droplet_id = $1, updated_at = now() WHERE id = $2`
	_, err := s.pool.Exec(ctx, query, dropletID, botID)
	if err != nil {
		return fmt.Errorf("store: updating bot droplet: %w", err)
	}
	return nil
}

// UpdateConfigVersion writes both the desired and applied config version
// pointers. A nil pointer writes NULL, clearing any previous value.
func (s *BotStore) UpdateConfigVersion(ctx context.Context, botID uuid.UUID, desired, applied *uuid.UUID) error {
	query := `UPDATE bots SET desired_config_version_id = $1, applied_config_version_id = $2, updated_at = now() WHERE id = $3`
	_, err := s.pool.Exec(ctx, query, desired, applied, botID)
	if err != nil {
		return fmt.Errorf("store: updating bot config version: %w", err)
	}
	return nil
}

// UpdateHeartbeat stamps the bot's last-seen time to now.
func (s *BotStore) UpdateHeartbeat(ctx context.Context, botID uuid.UUID) error {
	query := `UPDATE bots SET last_heartbeat_at = now(), updated_at = now() WHERE id = $1`
	_, err := s.pool.Exec(ctx, query, botID)
	if err != nil {
		return fmt.Errorf("store: updating bot heartbeat: %w", err)
	}
	return nil
}

// UpdateRegistrationTokenDigest stores a freshly generated token's digest.
// The plaintext token itself is never passed to this layer.
func (s *BotStore) UpdateRegistrationTokenDigest(ctx context.Context, botID uuid.UUID, digest string) error {
	query := `UPDATE bots SET registration_token_digest = $1, updated_at = now() WHERE id = $2`
	_, err := s.pool.Exec(ctx, query, digest, botID)
	if err != nil {
		return fmt.Errorf("store: updating registration token digest: %w", err)
	}
	return nil
}

// SoftDelete marks a bot destroyed without removing its row, preserving
// history for the account's bot list.
func (s *BotStore) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE bots SET status = $1, updated_at = now() WHERE id = $2`
	_, err := s.pool.Exec(ctx, query, string(domain.BotStatusDestroyed), id)
	if err != nil {
		return fmt.Errorf("store: soft-deleting bot: %w", err)
	}
	return nil
}

// HardDelete removes a bot row outright. Only used by the create-time
// rollback path when a bot failed to provision after its quota was reserved.
func (s *BotStore) HardDelete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM bots WHERE id = $1`
	_, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("store: hard-deleting bot: %w", err)
	}
	return nil
}

// ListStaleBots returns every online bot whose last heartbeat is older than
// threshold, or that has never sent one. Used by the background sweeper.
func (s *BotStore) ListStaleBots(ctx context.Context, threshold time.Time) ([]*domain.Bot, error) {
	query := `SELECT ` + botColumns + ` FROM bots
		WHERE status = $1 AND (last_heartbeat_at < $2 OR last_heartbeat_at IS NULL)`
	rows, err := s.pool.Query(ctx, query, string(domain.BotStatusOnline), threshold)
	if err != nil {
		return nil, fmt.Errorf("store: listing stale bots: %w", err)
	}
	return scanBots(rows)
}

// ListWithDroplet returns every non-destroyed bot that still has a droplet
// assigned. Used by the background sweeper to periodically pull droplet
// state from the IaaS provider into the local cache.
func (s *BotStore) ListWithDroplet(ctx context.Context) ([]*domain.Bot, error) {
	query := `SELECT ` + botColumns + ` FROM bots
		WHERE droplet_id IS NOT NULL AND status != $1`
	rows, err := s.pool.Query(ctx, query, string(domain.BotStatusDestroyed))
	if err != nil {
		return nil, fmt.Errorf("store: listing bots with droplets: %w", err)
	}
	return scanBots(rows)
}
