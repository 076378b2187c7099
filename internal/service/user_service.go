package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/broadcast-ops/fault-tracker/internal/auth"
	"github.com/broadcast-ops/fault-tracker/internal/config"
	"github.com/broadcast-ops/fault-tracker/internal/domain"
	"github.com/broadcast-ops/fault-tracker/internal/repository"
	apperrors "github.com/broadcast-ops/fault-tracker/pkg/util"
)

// UserService is the user directory: registration, login, profile and role
// management. The issue lifecycle engine only ever reads from it.
type UserService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// NewUserService builds the service.
func NewUserService(cfg config.Config, users repository.UserRepository) *UserService {
	return &UserService{
		users:      users,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// TokenManager exposes the shared token manager for middleware wiring.
func (s *UserService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// UserCreateInput describes registration payload. Avatar is the URL produced
// by the upload adapter; the directory treats it as an opaque string.
type UserCreateInput struct {
	Email          *string
	EmployeeID     *string
	Password       string
	FirstName      *string
	LastName       *string
	PhoneNumber    *string
	Avatar         *string
	WorkExperience *string
	Role           string
}

// UserUpdateInput carries partial profile updates; nil fields are untouched.
type UserUpdateInput struct {
	Email          *string
	EmployeeID     *string
	Password       *string
	FirstName      *string
	LastName       *string
	PhoneNumber    *string
	Avatar         *string
	WorkExperience *string
	Role           *string
	Active         *bool
}

// Register creates a new user account. Role defaults to admin and is
// normalized to lower case before validation, matching the metadata the
// clients render.
func (s *UserService) Register(ctx context.Context, input UserCreateInput) (*domain.User, error) {
	if input.Password == "" {
		return nil, apperrors.NewValidationError("password is required", nil)
	}

	role := domain.RoleAdmin
	if input.Role != "" {
		role = domain.Role(strings.ToLower(input.Role))
		if !domain.ValidRole(role) {
			return nil, apperrors.NewValidationError("invalid role", map[string]any{"validRoles": domain.Roles()})
		}
	}

	if input.Email != nil && *input.Email != "" {
		if _, err := s.users.GetByEmail(ctx, *input.Email); err == nil {
			return nil, apperrors.NewConflict("email already registered", map[string]any{"email": *input.Email})
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.MapError(err)
		}
	}
	if input.EmployeeID != nil && *input.EmployeeID != "" {
		if _, err := s.users.GetByEmployeeID(ctx, *input.EmployeeID); err == nil {
			return nil, apperrors.NewConflict("employee id already registered", map[string]any{"employeeId": *input.EmployeeID})
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.MapError(err)
		}
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	user := &domain.User{
		Email:          input.Email,
		EmployeeID:     input.EmployeeID,
		PasswordHash:   hash,
		FirstName:      input.FirstName,
		LastName:       input.LastName,
		PhoneNumber:    input.PhoneNumber,
		Avatar:         input.Avatar,
		WorkExperience: input.WorkExperience,
		Role:           role,
		Active:         true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// Login authenticates by email or employee ID, stamps lastLogin and issues a
// bearer token.
func (s *UserService) Login(ctx context.Context, email, employeeID, password string) (*domain.User, string, time.Time, error) {
	if email == "" && employeeID == "" {
		return nil, "", time.Time{}, apperrors.NewValidationError("either email or employeeId is required", nil)
	}
	if password == "" {
		return nil, "", time.Time{}, apperrors.NewValidationError("password is required", nil)
	}

	var (
		user *domain.User
		err  error
	)
	if email != "" {
		user, err = s.users.GetByEmail(ctx, email)
	} else {
		user, err = s.users.GetByEmployeeID(ctx, employeeID)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	if !user.Active {
		return nil, "", time.Time{}, apperrors.NewForbidden("account is disabled, please contact an administrator")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}

	now := time.Now()
	user.LastLogin = &now
	if err := s.users.Update(ctx, user); err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	return user, token, exp, nil
}

// Get fetches one user by ID.
func (s *UserService) Get(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// List returns all users, newest first.
func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.List(ctx, repository.UserFilter{})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

// ListByRole returns users holding the given role.
func (s *UserService) ListByRole(ctx context.Context, role string) ([]domain.User, error) {
	normalized := domain.Role(strings.ToLower(role))
	if !domain.ValidRole(normalized) {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"validRoles": domain.Roles()})
	}
	users, err := s.users.List(ctx, repository.UserFilter{Role: &normalized})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

// Update applies a partial profile mutation.
func (s *UserService) Update(ctx context.Context, id int64, input UserUpdateInput) (*domain.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Role != nil {
		normalized := domain.Role(strings.ToLower(*input.Role))
		if !domain.ValidRole(normalized) {
			return nil, apperrors.NewValidationError("invalid role", map[string]any{"validRoles": domain.Roles()})
		}
		user.Role = normalized
	}
	if input.Email != nil {
		user.Email = input.Email
	}
	if input.EmployeeID != nil {
		user.EmployeeID = input.EmployeeID
	}
	if input.FirstName != nil {
		user.FirstName = input.FirstName
	}
	if input.LastName != nil {
		user.LastName = input.LastName
	}
	if input.PhoneNumber != nil {
		user.PhoneNumber = input.PhoneNumber
	}
	if input.Avatar != nil {
		user.Avatar = input.Avatar
	}
	if input.WorkExperience != nil {
		user.WorkExperience = input.WorkExperience
	}
	if input.Active != nil {
		user.Active = *input.Active
	}
	if input.Password != nil && *input.Password != "" {
		hash, err := auth.HashPassword(*input.Password, s.bcryptCost)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		user.PasswordHash = hash
	}

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// UpdateRole changes only the role of a user.
func (s *UserService) UpdateRole(ctx context.Context, id int64, role string) (*domain.User, error) {
	if role == "" {
		return nil, apperrors.NewValidationError("role is required", nil)
	}
	return s.Update(ctx, id, UserUpdateInput{Role: &role})
}

// Delete removes a user. Issues referencing the user keep their dangling IDs;
// deletion is neither cascaded nor blocked.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("user", map[string]any{"id": id})
		}
		return apperrors.MapError(err)
	}
	return nil
}
