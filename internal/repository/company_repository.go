package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
)

// CompanyRepository manages tenant persistence.
type CompanyRepository interface {
	Create(ctx context.Context, company *domain.Company) error
	Update(ctx context.Context, company *domain.Company) error
	GetByID(ctx context.Context, id string) (*domain.Company, error)
	GetByCode(ctx context.Context, code string) (*domain.Company, error)
	ListActive(ctx context.Context) ([]domain.Company, error)
}

type companyRepository struct {
	pool *pgxpool.Pool
}

// NewCompanyRepository builds the repository.
func NewCompanyRepository(pool *pgxpool.Pool) CompanyRepository {
	return &companyRepository{pool: pool}
}

func (r *companyRepository) Create(ctx context.Context, company *domain.Company) error {
	const query = `
        INSERT INTO companies (name, code, email, phone, is_active)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		company.Name,
		company.Code,
		company.Email,
		company.Phone,
		company.IsActive,
	).Scan(&company.ID, &company.CreatedAt, &company.UpdatedAt)
}

func (r *companyRepository) Update(ctx context.Context, company *domain.Company) error {
	const query = `
        UPDATE companies SET name=$1, email=$2, phone=$3, is_active=$4, updated_at=NOW()
        WHERE id=$5`
	cmd, err := r.pool.Exec(ctx, query,
		company.Name,
		company.Email,
		company.Phone,
		company.IsActive,
		company.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *companyRepository) GetByID(ctx context.Context, id string) (*domain.Company, error) {
	const query = `
        SELECT id, name, code, email, phone, is_active, created_at, updated_at
        FROM companies WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *companyRepository) GetByCode(ctx context.Context, code string) (*domain.Company, error) {
	const query = `
        SELECT id, name, code, email, phone, is_active, created_at, updated_at
        FROM companies WHERE code=$1`
	return r.fetchSingle(ctx, query, code)
}

func (r *companyRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Company, error) {
	var company domain.Company
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&company.ID,
		&company.Name,
		&company.Code,
		&company.Email,
		&company.Phone,
		&company.IsActive,
		&company.CreatedAt,
		&company.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &company, nil
}

func (r *companyRepository) ListActive(ctx context.Context) ([]domain.Company, error) {
	const query = `
        SELECT id, name, code, email, phone, is_active, created_at, updated_at
        FROM companies WHERE is_active = TRUE ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Company
	for rows.Next() {
		var company domain.Company
		if err := rows.Scan(
			&company.ID,
			&company.Name,
			&company.Code,
			&company.Email,
			&company.Phone,
			&company.IsActive,
			&company.CreatedAt,
			&company.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, company)
	}
	return result, rows.Err()
}
