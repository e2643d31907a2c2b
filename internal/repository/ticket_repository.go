package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
)

const ticketColumns = `id, ticket_number, company_id, customer_id, channel_id, department_id, team_id,
               assignee_user_id, title, description, type, source, status, priority,
               response_due_at, resolution_due_at, first_responded_at, resolved_at, created_at, updated_at`

// TicketFilter captures search parameters for ticket listing.
type TicketFilter struct {
	CompanyID    *string
	CustomerID   *string
	ChannelID    *string
	DepartmentID *string
	TeamID       *string
	AssigneeID   *string
	Statuses     []domain.TicketStatus
	Priorities   []domain.TicketPriority
	Types        []domain.TicketType
	SearchTerm   *string
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	Limit        int
	Offset       int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByNumber(ctx context.Context, number string) (*domain.Ticket, error)
	FindOpenByCustomerChannel(ctx context.Context, customerID, channelID string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (ticket_number, company_id, customer_id, channel_id, department_id, team_id,
            assignee_user_id, title, description, type, source, status, priority, response_due_at, resolution_due_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.TicketNumber,
		ticket.CompanyID,
		ticket.CustomerID,
		ticket.ChannelID,
		ticket.DepartmentID,
		ticket.TeamID,
		ticket.AssigneeID,
		ticket.Title,
		ticket.Description,
		ticket.Type,
		ticket.Source,
		ticket.Status,
		ticket.Priority,
		ticket.ResponseDueAt,
		ticket.ResolutionDueAt,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET department_id=$1, team_id=$2, assignee_user_id=$3, title=$4, description=$5,
            type=$6, status=$7, priority=$8, response_due_at=$9, resolution_due_at=$10,
            first_responded_at=$11, resolved_at=$12, updated_at=NOW()
        WHERE id=$13`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.DepartmentID,
		ticket.TeamID,
		ticket.AssigneeID,
		ticket.Title,
		ticket.Description,
		ticket.Type,
		ticket.Status,
		ticket.Priority,
		ticket.ResponseDueAt,
		ticket.ResolutionDueAt,
		ticket.FirstRespondedAt,
		ticket.ResolvedAt,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByNumber(ctx context.Context, number string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE ticket_number=$1`, ticketColumns)
	return r.fetchSingle(ctx, query, number)
}

// FindOpenByCustomerChannel returns the most recent non-terminal ticket for a
// customer on a channel. Inbound messages append to this ticket instead of
// opening a new one.
func (r *ticketRepository) FindOpenByCustomerChannel(ctx context.Context, customerID, channelID string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM tickets
        WHERE customer_id=$1 AND channel_id=$2 AND status IN ($3,$4)
        ORDER BY created_at DESC LIMIT 1`, ticketColumns)
	return r.fetchSingle(ctx, query, customerID, channelID, domain.TicketStatusWait, domain.TicketStatusProcess)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, args...), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	addEq := func(column string, value *string) {
		if value != nil {
			args = append(args, *value)
			clauses = append(clauses, fmt.Sprintf("%s=$%d", column, len(args)))
		}
	}
	addEq("company_id", filter.CompanyID)
	addEq("customer_id", filter.CustomerID)
	addEq("channel_id", filter.ChannelID)
	addEq("department_id", filter.DepartmentID)
	addEq("team_id", filter.TeamID)
	addEq("assignee_user_id", filter.AssigneeID)

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Types) > 0 {
		placeholders := make([]string, len(filter.Types))
		for i, tp := range filter.Types {
			args = append(args, tp)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("type IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.TicketNumber,
		&ticket.CompanyID,
		&ticket.CustomerID,
		&ticket.ChannelID,
		&ticket.DepartmentID,
		&ticket.TeamID,
		&ticket.AssigneeID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Type,
		&ticket.Source,
		&ticket.Status,
		&ticket.Priority,
		&ticket.ResponseDueAt,
		&ticket.ResolutionDueAt,
		&ticket.FirstRespondedAt,
		&ticket.ResolvedAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
}
