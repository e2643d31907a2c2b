package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/provider"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// TicketIntakeService converts inbound channel traffic into tickets. A sender
// with an open (WAIT or PROCESS) ticket on the channel gets their message
// appended to it; otherwise a new ticket is opened.
type TicketIntakeService struct {
	customers repository.CustomerRepository
	tickets   repository.TicketRepository
	ticketSvc *TicketService
	logger    *zap.Logger
}

// IntakeDependencies bundles requirements for the intake service.
type IntakeDependencies struct {
	CustomerRepo  repository.CustomerRepository
	TicketRepo    repository.TicketRepository
	TicketService *TicketService
	Logger        *zap.Logger
}

// NewTicketIntakeService creates the service.
func NewTicketIntakeService(deps IntakeDependencies) *TicketIntakeService {
	return &TicketIntakeService{
		customers: deps.CustomerRepo,
		tickets:   deps.TicketRepo,
		ticketSvc: deps.TicketService,
		logger:    deps.Logger,
	}
}

// IngestInboundMessage files one inbound messaging-channel message.
func (s *TicketIntakeService) IngestInboundMessage(ctx context.Context, channel *domain.Channel, msg provider.MessagingMessage, contact *provider.MessagingContact) (*domain.Ticket, error) {
	if msg.SenderID == "" {
		return nil, apperrors.NewValidationError("inbound message has no sender", nil)
	}

	firstName, lastName := contactName(contact, msg.SenderID)
	customer, err := s.findOrCreateCustomer(ctx, channel.CompanyID, msg.SenderID, firstName, lastName, nil)
	if err != nil {
		return nil, err
	}

	content := messageBody(msg)
	ticket, err := s.findOrCreateOpenTicket(ctx, channel, customer, content)
	if err != nil {
		return nil, err
	}

	actor := events.Actor{Type: domain.CommentAuthorCustomer, UserID: &customer.ID}
	if _, err := s.ticketSvc.AddComment(ctx, ticket.ID, actor, content, false); err != nil {
		return nil, err
	}
	return ticket, nil
}

// IngestInboundEmail files one inbound email into the channel's ticket flow.
// The sender address is the customer's external identity.
func (s *TicketIntakeService) IngestInboundEmail(ctx context.Context, channel *domain.Channel, email provider.EmailMessage) (*domain.Ticket, error) {
	sender := strings.TrimSpace(email.From)
	if sender == "" {
		return nil, apperrors.NewValidationError("inbound email has no sender", nil)
	}

	customer, err := s.findOrCreateCustomer(ctx, channel.CompanyID, sender, sender, "", &sender)
	if err != nil {
		return nil, err
	}

	content := email.Subject
	if email.Body != "" {
		content = email.Subject + "\n\n" + email.Body
	}
	ticket, err := s.findOrCreateOpenTicket(ctx, channel, customer, content)
	if err != nil {
		return nil, err
	}

	actor := events.Actor{Type: domain.CommentAuthorCustomer, UserID: &customer.ID}
	if _, err := s.ticketSvc.AddComment(ctx, ticket.ID, actor, content, false); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (s *TicketIntakeService) findOrCreateCustomer(ctx context.Context, companyID, externalID, firstName, lastName string, email *string) (*domain.Customer, error) {
	customer, err := s.customers.GetByExternalID(ctx, companyID, externalID)
	if err == nil {
		return customer, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	customer = &domain.Customer{
		CompanyID:  companyID,
		CIF:        newCustomerCIF(),
		ExternalID: externalID,
		FirstName:  firstName,
		LastName:   lastName,
		Email:      email,
	}
	if err := s.customers.Create(ctx, customer); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("customer created from channel",
		zap.String("customer_id", customer.ID),
		zap.String("company_id", companyID),
		zap.String("external_id", externalID))
	return customer, nil
}

func (s *TicketIntakeService) findOrCreateOpenTicket(ctx context.Context, channel *domain.Channel, customer *domain.Customer, content string) (*domain.Ticket, error) {
	ticket, err := s.tickets.FindOpenByCustomerChannel(ctx, customer.ID, channel.ID)
	if err == nil {
		return ticket, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	return s.ticketSvc.CreateTicket(ctx, CreateTicketInput{
		CompanyID:   channel.CompanyID,
		CustomerID:  customer.ID,
		ChannelID:   &channel.ID,
		Title:       stringPreview(content, 80),
		Description: content,
		Type:        domain.TicketTypeInquiry,
		Priority:    domain.TicketPriorityMedium,
		Source:      domain.TicketSourceChannel,
		Actor:       events.Actor{Type: domain.CommentAuthorCustomer, UserID: &customer.ID},
	})
}

func contactName(contact *provider.MessagingContact, fallback string) (string, string) {
	if contact == nil || strings.TrimSpace(contact.Name) == "" {
		return fallback, ""
	}
	parts := strings.SplitN(strings.TrimSpace(contact.Name), " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}

// messageBody renders a message into comment text. Media messages fall back
// to a kind placeholder plus the attachment URL.
func messageBody(msg provider.MessagingMessage) string {
	if strings.TrimSpace(msg.Content) != "" {
		return msg.Content
	}
	if len(msg.Attachments) > 0 {
		att := msg.Attachments[0]
		if att.URL != "" {
			return "[" + string(att.Type) + "] " + att.URL
		}
		return "[" + string(att.Type) + "]"
	}
	return "[" + string(msg.MessageType) + "]"
}

func newCustomerCIF() string {
	return "CIF" + strconv.FormatInt(time.Now().UnixMilli(), 10)
}
