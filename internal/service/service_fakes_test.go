package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
)

// In-memory repository fakes for service tests.

type fakeChannelRepo struct {
	channels map[string]*domain.Channel
}

func newFakeChannelRepo() *fakeChannelRepo {
	return &fakeChannelRepo{channels: make(map[string]*domain.Channel)}
}

func (r *fakeChannelRepo) Create(_ context.Context, channel *domain.Channel) error {
	channel.ID = uuid.NewString()
	channel.CreatedAt = time.Now()
	channel.UpdatedAt = channel.CreatedAt
	copied := *channel
	r.channels[channel.ID] = &copied
	return nil
}

func (r *fakeChannelRepo) Update(_ context.Context, channel *domain.Channel) error {
	if _, ok := r.channels[channel.ID]; !ok {
		return pgx.ErrNoRows
	}
	channel.UpdatedAt = time.Now()
	copied := *channel
	r.channels[channel.ID] = &copied
	return nil
}

func (r *fakeChannelRepo) UpdateStatus(_ context.Context, id string, status domain.ChannelStatus) error {
	channel, ok := r.channels[id]
	if !ok {
		return pgx.ErrNoRows
	}
	channel.Status = status
	return nil
}

func (r *fakeChannelRepo) GetByID(_ context.Context, id string) (*domain.Channel, error) {
	channel, ok := r.channels[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *channel
	return &copied, nil
}

func (r *fakeChannelRepo) ListByCompany(_ context.Context, companyID string) ([]domain.Channel, error) {
	var out []domain.Channel
	for _, channel := range r.channels {
		if channel.CompanyID == companyID {
			out = append(out, *channel)
		}
	}
	return out, nil
}

func (r *fakeChannelRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.channels[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.channels, id)
	return nil
}

type fakeMessageRepo struct {
	records []domain.ChannelMessage
}

func (r *fakeMessageRepo) Create(_ context.Context, msg *domain.ChannelMessage) error {
	msg.ID = uuid.NewString()
	msg.CreatedAt = time.Now()
	r.records = append(r.records, *msg)
	return nil
}

func (r *fakeMessageRepo) ListByChannel(_ context.Context, channelID string, limit, offset int) ([]domain.ChannelMessage, error) {
	var out []domain.ChannelMessage
	for _, rec := range r.records {
		if rec.ChannelID == channelID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) ExistsByExternalID(_ context.Context, channelID, externalID string) (bool, error) {
	for _, rec := range r.records {
		if rec.ChannelID == channelID && rec.ExternalID != nil && *rec.ExternalID == externalID {
			return true, nil
		}
	}
	return false, nil
}

type fakeCustomerRepo struct {
	customers map[string]*domain.Customer
}

func newFakeCustomerRepo() *fakeCustomerRepo {
	return &fakeCustomerRepo{customers: make(map[string]*domain.Customer)}
}

func (r *fakeCustomerRepo) Create(_ context.Context, customer *domain.Customer) error {
	customer.ID = uuid.NewString()
	customer.CreatedAt = time.Now()
	customer.UpdatedAt = customer.CreatedAt
	copied := *customer
	r.customers[customer.ID] = &copied
	return nil
}

func (r *fakeCustomerRepo) Update(_ context.Context, customer *domain.Customer) error {
	if _, ok := r.customers[customer.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *customer
	r.customers[customer.ID] = &copied
	return nil
}

func (r *fakeCustomerRepo) GetByID(_ context.Context, id string) (*domain.Customer, error) {
	customer, ok := r.customers[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *customer
	return &copied, nil
}

func (r *fakeCustomerRepo) GetByExternalID(_ context.Context, companyID, externalID string) (*domain.Customer, error) {
	for _, customer := range r.customers {
		if customer.CompanyID == companyID && customer.ExternalID == externalID {
			copied := *customer
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeCustomerRepo) ListByCompany(_ context.Context, companyID string, limit, offset int) ([]domain.Customer, error) {
	var out []domain.Customer
	for _, customer := range r.customers {
		if customer.CompanyID == companyID {
			out = append(out, *customer)
		}
	}
	return out, nil
}

type fakeTicketRepo struct {
	tickets map[string]*domain.Ticket
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[string]*domain.Ticket)}
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	ticket.ID = uuid.NewString()
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	copied := *ticket
	r.tickets[ticket.ID] = &copied
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	if _, ok := r.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = time.Now()
	copied := *ticket
	r.tickets[ticket.ID] = &copied
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (r *fakeTicketRepo) GetByNumber(_ context.Context, number string) (*domain.Ticket, error) {
	for _, ticket := range r.tickets {
		if ticket.TicketNumber == number {
			copied := *ticket
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeTicketRepo) FindOpenByCustomerChannel(_ context.Context, customerID, channelID string) (*domain.Ticket, error) {
	for _, ticket := range r.tickets {
		if ticket.CustomerID != customerID || ticket.ChannelID == nil || *ticket.ChannelID != channelID {
			continue
		}
		if ticket.Status == domain.TicketStatusWait || ticket.Status == domain.TicketStatusProcess {
			copied := *ticket
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	var out []domain.Ticket
	for _, ticket := range r.tickets {
		if filter.CompanyID != nil && ticket.CompanyID != *filter.CompanyID {
			continue
		}
		if filter.ChannelID != nil && (ticket.ChannelID == nil || *ticket.ChannelID != *filter.ChannelID) {
			continue
		}
		if len(filter.Statuses) > 0 {
			match := false
			for _, status := range filter.Statuses {
				if ticket.Status == status {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, *ticket)
	}
	return out, nil
}

type fakeCommentRepo struct {
	comments []domain.TicketComment
}

func (r *fakeCommentRepo) Create(_ context.Context, comment *domain.TicketComment) error {
	comment.ID = uuid.NewString()
	comment.CreatedAt = time.Now()
	r.comments = append(r.comments, *comment)
	return nil
}

func (r *fakeCommentRepo) ListByTicket(_ context.Context, ticketID string, includeInternal bool) ([]domain.TicketComment, error) {
	var out []domain.TicketComment
	for _, comment := range r.comments {
		if comment.TicketID != ticketID {
			continue
		}
		if comment.IsInternal && !includeInternal {
			continue
		}
		out = append(out, comment)
	}
	return out, nil
}

type fakeUserRepo struct {
	users map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*domain.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) ListByCompany(_ context.Context, companyID string) ([]domain.User, error) {
	var out []domain.User
	for _, user := range r.users {
		if user.CompanyID != nil && *user.CompanyID == companyID {
			out = append(out, *user)
		}
	}
	return out, nil
}

type fakeCompanyRepo struct {
	companies map[string]*domain.Company
}

func newFakeCompanyRepo() *fakeCompanyRepo {
	return &fakeCompanyRepo{companies: make(map[string]*domain.Company)}
}

func (r *fakeCompanyRepo) Create(_ context.Context, company *domain.Company) error {
	company.ID = uuid.NewString()
	company.CreatedAt = time.Now()
	company.UpdatedAt = company.CreatedAt
	copied := *company
	r.companies[company.ID] = &copied
	return nil
}

func (r *fakeCompanyRepo) Update(_ context.Context, company *domain.Company) error {
	if _, ok := r.companies[company.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *company
	r.companies[company.ID] = &copied
	return nil
}

func (r *fakeCompanyRepo) GetByID(_ context.Context, id string) (*domain.Company, error) {
	company, ok := r.companies[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *company
	return &copied, nil
}

func (r *fakeCompanyRepo) GetByCode(_ context.Context, code string) (*domain.Company, error) {
	for _, company := range r.companies {
		if company.Code == code {
			copied := *company
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeCompanyRepo) ListActive(_ context.Context) ([]domain.Company, error) {
	var out []domain.Company
	for _, company := range r.companies {
		if company.IsActive {
			out = append(out, *company)
		}
	}
	return out, nil
}

type fakeDepartmentRepo struct {
	departments map[string]*domain.Department
}

func newFakeDepartmentRepo() *fakeDepartmentRepo {
	return &fakeDepartmentRepo{departments: make(map[string]*domain.Department)}
}

func (r *fakeDepartmentRepo) Create(_ context.Context, dept *domain.Department) error {
	dept.ID = uuid.NewString()
	dept.CreatedAt = time.Now()
	dept.UpdatedAt = dept.CreatedAt
	copied := *dept
	r.departments[dept.ID] = &copied
	return nil
}

func (r *fakeDepartmentRepo) Update(_ context.Context, dept *domain.Department) error {
	if _, ok := r.departments[dept.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *dept
	r.departments[dept.ID] = &copied
	return nil
}

func (r *fakeDepartmentRepo) GetByID(_ context.Context, id string) (*domain.Department, error) {
	dept, ok := r.departments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *dept
	return &copied, nil
}

func (r *fakeDepartmentRepo) ListActiveByCompany(_ context.Context, companyID string) ([]domain.Department, error) {
	var out []domain.Department
	for _, dept := range r.departments {
		if dept.CompanyID == companyID && dept.IsActive {
			out = append(out, *dept)
		}
	}
	return out, nil
}

type fakeTeamRepo struct {
	teams map[string]*domain.Team
}

func newFakeTeamRepo() *fakeTeamRepo {
	return &fakeTeamRepo{teams: make(map[string]*domain.Team)}
}

func (r *fakeTeamRepo) Create(_ context.Context, team *domain.Team) error {
	team.ID = uuid.NewString()
	copied := *team
	r.teams[team.ID] = &copied
	return nil
}

func (r *fakeTeamRepo) Update(_ context.Context, team *domain.Team) error {
	if _, ok := r.teams[team.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *team
	r.teams[team.ID] = &copied
	return nil
}

func (r *fakeTeamRepo) GetByID(_ context.Context, id string) (*domain.Team, error) {
	team, ok := r.teams[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *team
	return &copied, nil
}

func (r *fakeTeamRepo) ListActiveByDepartment(_ context.Context, departmentID string) ([]domain.Team, error) {
	var out []domain.Team
	for _, team := range r.teams {
		if team.DepartmentID == departmentID && team.IsActive {
			out = append(out, *team)
		}
	}
	return out, nil
}

type fakeSLARepo struct {
	policies map[string]*domain.SLAPolicy
}

func newFakeSLARepo() *fakeSLARepo {
	return &fakeSLARepo{policies: make(map[string]*domain.SLAPolicy)}
}

func (r *fakeSLARepo) Create(_ context.Context, policy *domain.SLAPolicy) error {
	policy.ID = uuid.NewString()
	copied := *policy
	r.policies[policy.ID] = &copied
	return nil
}

func (r *fakeSLARepo) Update(_ context.Context, policy *domain.SLAPolicy) error {
	if _, ok := r.policies[policy.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *policy
	r.policies[policy.ID] = &copied
	return nil
}

func (r *fakeSLARepo) GetForPriority(_ context.Context, companyID string, priority domain.TicketPriority) (*domain.SLAPolicy, error) {
	for _, policy := range r.policies {
		if policy.CompanyID == companyID && policy.Priority == priority && policy.IsActive {
			copied := *policy
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeSLARepo) ListByCompany(_ context.Context, companyID string) ([]domain.SLAPolicy, error) {
	var out []domain.SLAPolicy
	for _, policy := range r.policies {
		if policy.CompanyID == companyID {
			out = append(out, *policy)
		}
	}
	return out, nil
}
