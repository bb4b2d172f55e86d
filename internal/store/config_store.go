package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/conorholds/openclaw-control-plane/internal/domain"
)

const configColumns = `id, bot_id, version, trading_config, risk_config, llm_provider, llm_api_key_encrypted, created_at`

// ConfigStore provides database operations for stored bot configurations.
// Rows are immutable once created — config changes always insert a new
// version rather than update in place.
type ConfigStore struct {
	pool *pgxpool.Pool
}

func scanConfig(row pgx.Row) (*domain.StoredConfig, error) {
	var c domain.StoredConfig
	var tradingJSON, riskJSON []byte
	if err := row.Scan(
		&c.ID, &c.BotID, &c.Version, &tradingJSON, &riskJSON,
		&c.Secrets.LLMProvider, &c.Secrets.LLMAPIKeyEncrypted, &c.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(tradingJSON, &c.Trading); err != nil {
		return nil, fmt.Errorf("store: decoding trading_config: %w", err)
	}
	if err := json.Unmarshal(riskJSON, &c.Risk); err != nil {
		return nil, fmt.Errorf("store: decoding risk_config: %w", err)
	}
	return &c, nil
}

// Create inserts a new config version row.
func (s *ConfigStore) Create(ctx context.Context, c *domain.StoredConfig) error {
	tradingJSON, err := json.Marshal(c.Trading)
	if err != nil {
		return fmt.Errorf("store: encoding trading_config: %w", err)
	}
	riskJSON, err := json.Marshal(c.Risk)
	if err != nil {
		return fmt.Errorf("store: encoding risk_config: %w", err)
	}

	query := `INSERT INTO bot_configs (` + configColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err = s.pool.Exec(ctx, query,
		c.ID, c.BotID, c.Version, tradingJSON, riskJSON,
		c.Secrets.LLMProvider, c.Secrets.LLMAPIKeyEncrypted, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("store: creating bot config: %w", err)
	}
	return nil
}

// GetByID fetches a config version by primary key.
func (s *ConfigStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.StoredConfig, error) {
	query := `SELECT ` + configColumns + ` FROM bot_configs WHERE id = $1`
	c, err := scanConfig(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapRowErr(err)
	}
	return c, nil
}

// GetLatestForBot returns the highest-version config for botID, or
// ErrNotFound if the bot has none yet.
func (s *ConfigStore) GetLatestForBot(ctx context.Context, botID uuid.UUID) (*domain.StoredConfig, error) {
	query := `SELECT ` + configColumns + ` FROM bot_configs WHERE bot_id = $1 ORDER BY version DESC LIMIT 1`
	c, err := scanConfig(s.pool.QueryRow(ctx, query, botID))
	if err != nil {
		return nil, mapRowErr(err)
	}
	return c, nil
}

// ListByBot returns every config version for botID, oldest first.
func (s *ConfigStore) ListByBot(ctx context.Context, botID uuid.UUID) ([]*domain.StoredConfig, error) {
	query := `SELECT ` + configColumns + ` FROM bot_configs WHERE bot_id = $1 ORDER BY version ASC`
	rows, err := s.pool.Query(ctx, query, botID)
	if err != nil {
		return nil, fmt.Errorf("store: listing bot configs: %w", err)
	}
	defer rows.Close()

	var out []*domain.StoredConfig
	for rows.Next() {
		c, err := scanConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scanning bot config row: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterating bot config rows: %w", err)
	}
	return out, nil
}

// GetNextVersionAtomic allocates the next monotonic config version for
// botID via a stored function backed by a per-bot advisory lock, so
// concurrent config writes for the same bot never collide.
func (s *ConfigStore) GetNextVersionAtomic(ctx context.Context, botID uuid.UUID) (int32, error) {
	var version int32
	query := `SELECT get_next_config_version_atomic($1)`
	if err := s.pool.QueryRow(ctx, query, botID).Scan(&version); err != nil {
		return 0, fmt.Errorf("store: allocating next config version: %w", err)
	}
	return version, nil
}
