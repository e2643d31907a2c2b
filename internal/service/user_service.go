package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// UserService manages internal operator accounts.
type UserService struct {
	users      repository.UserRepository
	bcryptCost int
}

// NewUserService builds the service.
func NewUserService(users repository.UserRepository, bcryptCost int) *UserService {
	return &UserService{users: users, bcryptCost: bcryptCost}
}

// CreateUserInput captures admin-driven account creation.
type CreateUserInput struct {
	CompanyID    *string
	DepartmentID *string
	TeamID       *string
	Email        string
	Password     string
	FirstName    string
	LastName     string
	Role         domain.UserRole
}

// CreateUser registers a new operator account.
func (s *UserService) CreateUser(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	if _, err := s.users.GetByEmail(ctx, input.Email); err == nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": input.Email})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if input.Role == "" {
		input.Role = domain.RoleAgent
	}

	user := &domain.User{
		CompanyID:    input.CompanyID,
		DepartmentID: input.DepartmentID,
		TeamID:       input.TeamID,
		Email:        input.Email,
		PasswordHash: hash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Role:         input.Role,
		Status:       domain.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// GetUser loads one account.
func (s *UserService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": userID})
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// ListUsers returns the company's accounts.
func (s *UserService) ListUsers(ctx context.Context, companyID string) ([]domain.User, error) {
	users, err := s.users.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

// UpdateUserInput captures mutable profile fields.
type UpdateUserInput struct {
	FirstName    *string
	LastName     *string
	DepartmentID *string
	TeamID       *string
	Role         *domain.UserRole
	Status       *domain.UserStatus
}

// UpdateUser applies a partial profile update.
func (s *UserService) UpdateUser(ctx context.Context, userID string, input UpdateUserInput) (*domain.User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if input.FirstName != nil {
		user.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		user.LastName = *input.LastName
	}
	if input.DepartmentID != nil {
		user.DepartmentID = input.DepartmentID
	}
	if input.TeamID != nil {
		user.TeamID = input.TeamID
	}
	if input.Role != nil {
		user.Role = *input.Role
	}
	if input.Status != nil {
		user.Status = *input.Status
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}
