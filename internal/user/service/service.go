package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"technovit/internal/user/models"
	"technovit/pkg/domain"
	dErrors "technovit/pkg/domain-errors"
	"technovit/pkg/email"
	"technovit/pkg/platform/sentinel"
	"technovit/pkg/requestcontext"
)

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id domain.UserID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// Service owns account creation, credential checks and principal resolution.
type Service struct {
	users      UserStore
	logger     *slog.Logger
	bcryptCost int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithBcryptCost overrides the hashing cost; tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		s.bcryptCost = cost
	}
}

func New(users UserStore, opts ...Option) *Service {
	s := &Service{users: users, logger: slog.Default(), bcryptCost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateUserRequest carries the fields needed to open an account.
type CreateUserRequest struct {
	Name               string
	Email              string
	Password           string
	Role               domain.Role
	IsVITian           bool
	RegistrationNumber string
	PhoneNumber        string
}

// CreateUser hashes the password and stores a new account.
func (s *Service) CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	address := models.NormalizeEmail(req.Email)
	if address == "" || !strings.Contains(address, "@") {
		return nil, dErrors.New(dErrors.CodeValidation, "a valid email is required")
	}
	if len(req.Password) < 8 {
		return nil, dErrors.New(dErrors.CodeValidation, "password must be at least 8 characters")
	}
	role := req.Role
	if role == "" {
		role = domain.RoleStudent
	}
	if _, err := domain.ParseRole(string(role)); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = email.DisplayName(address)
	}
	user := &models.User{
		ID:                 domain.NewUserID(),
		Name:               name,
		Email:              address,
		Role:               role,
		IsVITian:           req.IsVITian,
		RegistrationNumber: strings.TrimSpace(req.RegistrationNumber),
		PhoneNumber:        strings.TrimSpace(req.PhoneNumber),
		PasswordHash:       string(hash),
		CreatedAt:          requestcontext.Now(ctx),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Newf(dErrors.CodeConflict, "user with email %s already exists", address)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}
	s.logger.InfoContext(ctx, "user created",
		"user_id", user.ID.String(),
		"role", user.Role.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return user, nil
}

// Authenticate checks an email/password pair. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "incorrect email or password")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	if user.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "incorrect email or password")
	}
	return user, nil
}

// ResolvePrincipal loads the caller's current role and email.
func (s *Service) ResolvePrincipal(ctx context.Context, userID domain.UserID) (requestcontext.Caller, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return requestcontext.Caller{}, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return requestcontext.Caller{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return requestcontext.Caller{UserID: user.ID, Role: user.Role, Email: user.Email}, nil
}

// FindByEmail looks up a user for CLI tooling.
func (s *Service) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "user with email %s not found", email)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return user, nil
}
