package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"technovit/internal/user/models"
	"technovit/internal/user/service"
	"technovit/pkg/domain"
	dErrors "technovit/pkg/domain-errors"
	"technovit/pkg/platform/httputil"
	"technovit/pkg/platform/validation"
	"technovit/pkg/requestcontext"
)

// Service defines the account operations exposed over HTTP.
type Service interface {
	CreateUser(ctx context.Context, req service.CreateUserRequest) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
}

// TokenIssuer mints bearer tokens for authenticated users.
type TokenIssuer interface {
	GenerateAccessToken(userID domain.UserID, role domain.Role, expiresIn time.Duration) (string, error)
}

type Handler struct {
	users     Service
	tokens    TokenIssuer
	tokenTTL  time.Duration
	validator *validation.Validator
	logger    *slog.Logger
}

func New(users Service, tokens TokenIssuer, tokenTTL time.Duration, logger *slog.Logger) *Handler {
	return &Handler{users: users, tokens: tokens, tokenTTL: tokenTTL, validator: validation.New(), logger: logger}
}

// HandleRegister creates a student account.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.RegisterRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	user, err := h.users.CreateUser(ctx, service.CreateUserRequest{
		Name:               req.Name,
		Email:              req.Email,
		Password:           req.Password,
		Role:               domain.RoleStudent,
		IsVITian:           req.IsVITian,
		RegistrationNumber: req.RegistrationNumber,
		PhoneNumber:        req.PhoneNumber,
	})
	if err != nil {
		h.fail(ctx, w, "register", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, user)
}

// HandleLogin exchanges credentials for a bearer token.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.LoginRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	user, err := h.users.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		h.fail(ctx, w, "login", err)
		return
	}
	token, err := h.tokens.GenerateAccessToken(user.ID, user.Role, h.tokenTTL)
	if err != nil {
		h.fail(ctx, w, "login", dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token"))
		return
	}
	h.logger.InfoContext(ctx, "user logged in", "user_id", user.ID.String(), "request_id", requestcontext.RequestID(ctx))
	httputil.WriteJSON(w, http.StatusOK, models.TokenResponse{
		Token:     token,
		ExpiresIn: int64(h.tokenTTL.Seconds()),
		User:      user.Summary(),
		Role:      user.Role.String(),
	})
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, op+" failed", "error", err, "request_id", requestcontext.RequestID(ctx))
	} else {
		h.logger.WarnContext(ctx, op+" rejected", "error", err, "request_id", requestcontext.RequestID(ctx))
	}
	httputil.WriteError(w, err)
}
