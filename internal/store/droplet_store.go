package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/conorholds/openclaw-control-plane/internal/domain"
)

const dropletColumns = `id, name, region, size, image, status, ip_address, bot_id, created_at, destroyed_at`

// DropletStore provides database operations for droplet cache rows. The IaaS
// is the true owner of each resource; these rows track last known state.
type DropletStore struct {
	pool *pgxpool.Pool
}

func scanDroplet(row pgx.Row) (*domain.Droplet, error) {
	var d domain.Droplet
	var status string
	if err := row.Scan(
		&d.ID, &d.Name, &d.Region, &d.Size, &d.Image, &status,
		&d.IPAddress, &d.BotID, &d.CreatedAt, &d.DestroyedAt,
	); err != nil {
		return nil, err
	}
	d.Status = domain.DropletStatus(status)
	return &d, nil
}

// Create inserts a new droplet row.
func (s *DropletStore) Create(ctx context.Context, d *domain.Droplet) error {
	query := `INSERT INTO droplets (` + dropletColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := s.pool.Exec(ctx, query,
		d.ID, d.Name, d.Region, d.Size, d.Image, string(d.Status),
		d.IPAddress, d.BotID, d.CreatedAt, d.DestroyedAt,
	)
	if err != nil {
		return fmt.Errorf("store: creating droplet: %w", err)
	}
	return nil
}

// GetByID fetches a droplet by its IaaS-assigned ID.
func (s *DropletStore) GetByID(ctx context.Context, id int64) (*domain.Droplet, error) {
	query := `SELECT ` + dropletColumns + ` FROM droplets WHERE id = $1`
	d, err := scanDroplet(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapRowErr(err)
	}
	return d, nil
}

// UpdateBotAssignment sets or clears which bot a droplet serves.
func (s *DropletStore) UpdateBotAssignment(ctx context.Context, dropletID int64, botID *uuid.UUID) error {
	query := `UPDATE droplets SET bot_id = $1 WHERE id = $2`
	_, err := s.pool.Exec(ctx, query, botID, dropletID)
	if err != nil {
		return fmt.Errorf("store: updating droplet bot assignment: %w", err)
	}
	return nil
}

// UpdateStatus records the droplet's last observed IaaS status.
func (s *DropletStore) UpdateStatus(ctx context.Context, dropletID int64, status domain.DropletStatus) error {
	query := `UPDATE droplets SET status = $1 WHERE id = $2`
	_, err := s.pool.Exec(ctx, query, string(status), dropletID)
	if err != nil {
		return fmt.Errorf("store: updating droplet status: %w", err)
	}
	return nil
}

// UpdateIP records the droplet's current public IP, or clears it.
func (s *DropletStore) UpdateIP(ctx context.Context, dropletID int64, ip *string) error {
	query := `UPDATE droplets SET ip_address = $1 WHERE id = $2`
	_, err := s.pool.Exec(ctx, query, ip, dropletID)
	if err != nil {
		return fmt.Errorf("store: updating droplet ip: %w", err)
	}
	return nil
}

// MarkDestroyed stamps destroyed_at and sets status to destroyed.
func (s *DropletStore) MarkDestroyed(ctx context.Context, dropletID int64) error {
	query := `UPDATE droplets SET status = $1, destroyed_at = now() WHERE id = $2`
	_, err := s.pool.Exec(ctx, query, string(domain.DropletDestroyed), dropletID)
	if err != nil {
		return fmt.Errorf("store: marking droplet destroyed: %w", err)
	}
	return nil
}
