package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
)

// ChannelRepository encapsulates channel persistence.
type ChannelRepository interface {
	Create(ctx context.Context, channel *domain.Channel) error
	Update(ctx context.Context, channel *domain.Channel) error
	UpdateStatus(ctx context.Context, id string, status domain.ChannelStatus) error
	GetByID(ctx context.Context, id string) (*domain.Channel, error)
	ListByCompany(ctx context.Context, companyID string) ([]domain.Channel, error)
	Delete(ctx context.Context, id string) error
}

type channelRepository struct {
	pool *pgxpool.Pool
}

// NewChannelRepository returns a Postgres-backed implementation.
func NewChannelRepository(pool *pgxpool.Pool) ChannelRepository {
	return &channelRepository{pool: pool}
}

func (r *channelRepository) Create(ctx context.Context, channel *domain.Channel) error {
	const query = `
        INSERT INTO channels (company_id, name, type, status, config)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		channel.CompanyID,
		channel.Name,
		channel.Type,
		channel.Status,
		channel.Config,
	).Scan(&channel.ID, &channel.CreatedAt, &channel.UpdatedAt)
}

func (r *channelRepository) Update(ctx context.Context, channel *domain.Channel) error {
	const query = `
        UPDATE channels SET name=$1, status=$2, config=$3, updated_at=NOW()
        WHERE id=$4`
	cmd, err := r.pool.Exec(ctx, query,
		channel.Name,
		channel.Status,
		channel.Config,
		channel.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *channelRepository) UpdateStatus(ctx context.Context, id string, status domain.ChannelStatus) error {
	const query = `UPDATE channels SET status=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *channelRepository) GetByID(ctx context.Context, id string) (*domain.Channel, error) {
	const query = `
        SELECT id, company_id, name, type, status, config, created_at, updated_at
        FROM channels WHERE id=$1`
	var channel domain.Channel
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&channel.ID,
		&channel.CompanyID,
		&channel.Name,
		&channel.Type,
		&channel.Status,
		&channel.Config,
		&channel.CreatedAt,
		&channel.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &channel, nil
}

func (r *channelRepository) ListByCompany(ctx context.Context, companyID string) ([]domain.Channel, error) {
	const query = `
        SELECT id, company_id, name, type, status, config, created_at, updated_at
        FROM channels WHERE company_id=$1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Channel
	for rows.Next() {
		var channel domain.Channel
		if err := rows.Scan(
			&channel.ID,
			&channel.CompanyID,
			&channel.Name,
			&channel.Type,
			&channel.Status,
			&channel.Config,
			&channel.CreatedAt,
			&channel.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, channel)
	}
	return result, rows.Err()
}

func (r *channelRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM channels WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
