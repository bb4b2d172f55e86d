package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/conorholds/openclaw-control-plane/internal/domain"
)

const accountColumns = `id, external_id, subscription_tier, max_bots, created_at, updated_at`

// AccountStore provides database operations for accounts.
type AccountStore struct {
	pool *pgxpool.Pool
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	var tier string
	if err := row.Scan(&a.ID, &a.ExternalID, &tier, &a.MaxBots, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.SubscriptionTier = domain.SubscriptionTier(tier)
	return &a, nil
}

// Create inserts a new account.
func (s *AccountStore) Create(ctx context.Context, a *domain.Account) error {
	query := `INSERT INTO accounts (` + accountColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.pool.Exec(ctx, query, a.ID, a.ExternalID, string(a.SubscriptionTier), a.MaxBots, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: creating account: %w", err)
	}
	return nil
}

// GetByID fetches an account by primary key.
func (s *AccountStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	a, err := scanAccount(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapRowErr(err)
	}
	return a, nil
}

// GetByExternalID fetches an account by its caller-supplied external identifier.
func (s *AccountStore) GetByExternalID(ctx context.Context, externalID string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE external_id = $1`
	a, err := scanAccount(s.pool.QueryRow(ctx, query, externalID))
	if err != nil {
		return nil, mapRowErr(err)
	}
	return a, nil
}

// UpdateSubscription changes the tier and the MaxBots it implies together, so
// the two never drift out of sync.
func (s *AccountStore) UpdateSubscription(ctx context.Context, id uuid.UUID, tier domain.SubscriptionTier) error {
	query := `UPDATE accounts SET subscription_tier = $1, max_bots = $2, updated_at = now() WHERE id = $3`
	tag, err := s.pool.Exec(ctx, query, string(tier), domain.MaxBotsForTier(tier), id)
	if err != nil {
		return fmt.Errorf("store: updating subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// BotCounterResult is the result of the atomic increment_bot_counter call.
type BotCounterResult struct {
	Success      bool
	CurrentCount int32
	MaxCount     int32
}

// IncrementBotCounter atomically reserves one unit of bot quota for account,
// returning whether the reservation succeeded and the counter's new state.
// This must run before any IaaS call so a denied reservation never leaves a
// droplet stranded — see internal/provisioning.
func (s *AccountStore) IncrementBotCounter(ctx context.Context, accountID uuid.UUID) (BotCounterResult, error) {
	var r BotCounterResult
	query := `SELECT success, current_count, max_count FROM increment_bot_counter($1)`
	err := s.pool.QueryRow(ctx, query, accountID).Scan(&r.Success, &r.CurrentCount, &r.MaxCount)
	if err != nil {
		return BotCounterResult{}, fmt.Errorf("store: incrementing bot counter: %w", mapRowErr(err))
	}
	return r, nil
}

// DecrementBotCounter releases one unit of quota, used on bot destruction and
// as compensation when a reserved-but-unprovisioned bot is rolled back.
func (s *AccountStore) DecrementBotCounter(ctx context.Context, accountID uuid.UUID) error {
	query := `SELECT decrement_bot_counter($1)`
	if _, err := s.pool.Exec(ctx, query, accountID); err != nil {
		return fmt.Errorf("store: decrementing bot counter: %w", err)
	}
	return nil
}
