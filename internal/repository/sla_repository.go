package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
)

// SLARepository manages SLA policy persistence.
type SLARepository interface {
	Create(ctx context.Context, policy *domain.SLAPolicy) error
	Update(ctx context.Context, policy *domain.SLAPolicy) error
	GetForPriority(ctx context.Context, companyID string, priority domain.TicketPriority) (*domain.SLAPolicy, error)
	ListByCompany(ctx context.Context, companyID string) ([]domain.SLAPolicy, error)
}

type slaRepository struct {
	pool *pgxpool.Pool
}

// NewSLARepository builds the repository.
func NewSLARepository(pool *pgxpool.Pool) SLARepository {
	return &slaRepository{pool: pool}
}

func (r *slaRepository) Create(ctx context.Context, policy *domain.SLAPolicy) error {
	const query = `
        INSERT INTO sla_policies (company_id, name, priority, response_hours, resolution_hours, is_active)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		policy.CompanyID,
		policy.Name,
		policy.Priority,
		policy.ResponseHours,
		policy.ResolutionHours,
		policy.IsActive,
	).Scan(&policy.ID, &policy.CreatedAt, &policy.UpdatedAt)
}

func (r *slaRepository) Update(ctx context.Context, policy *domain.SLAPolicy) error {
	const query = `
        UPDATE sla_policies SET name=$1, response_hours=$2, resolution_hours=$3, is_active=$4, updated_at=NOW()
        WHERE id=$5`
	cmd, err := r.pool.Exec(ctx, query,
		policy.Name,
		policy.ResponseHours,
		policy.ResolutionHours,
		policy.IsActive,
		policy.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *slaRepository) GetForPriority(ctx context.Context, companyID string, priority domain.TicketPriority) (*domain.SLAPolicy, error) {
	const query = `
        SELECT id, company_id, name, priority, response_hours, resolution_hours, is_active, created_at, updated_at
        FROM sla_policies WHERE company_id=$1 AND priority=$2 AND is_active = TRUE
        ORDER BY created_at DESC LIMIT 1`
	var policy domain.SLAPolicy
	if err := r.pool.QueryRow(ctx, query, companyID, priority).Scan(
		&policy.ID,
		&policy.CompanyID,
		&policy.Name,
		&policy.Priority,
		&policy.ResponseHours,
		&policy.ResolutionHours,
		&policy.IsActive,
		&policy.CreatedAt,
		&policy.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &policy, nil
}

func (r *slaRepository) ListByCompany(ctx context.Context, companyID string) ([]domain.SLAPolicy, error) {
	const query = `
        SELECT id, company_id, name, priority, response_hours, resolution_hours, is_active, created_at, updated_at
        FROM sla_policies WHERE company_id=$1 ORDER BY priority`
	rows, err := r.pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SLAPolicy
	for rows.Next() {
		var policy domain.SLAPolicy
		if err := rows.Scan(
			&policy.ID,
			&policy.CompanyID,
			&policy.Name,
			&policy.Priority,
			&policy.ResponseHours,
			&policy.ResolutionHours,
			&policy.IsActive,
			&policy.CreatedAt,
			&policy.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, policy)
	}
	return result, rows.Err()
}
