package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks UserStore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"technovit/internal/user/models"
	"technovit/internal/user/service/mocks"
	"technovit/internal/user/store"
	"technovit/pkg/domain"
	dErrors "technovit/pkg/domain-errors"
	"technovit/pkg/platform/sentinel"
)

type ServiceSuite struct {
	suite.Suite
	ctrl          *gomock.Controller
	mockUserStore *mocks.MockUserStore
	service       *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockUserStore = mocks.NewMockUserStore(s.ctrl)
	s.service = New(s.mockUserStore, WithBcryptCost(bcrypt.MinCost))
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ServiceSuite) TestResolvePrincipal() {
	ctx := context.Background()
	userID := domain.NewUserID()

	s.Run("returns current role and email", func() {
		s.mockUserStore.EXPECT().FindByID(ctx, userID).Return(&models.User{
			ID: userID, Email: "coord@vit.ac.in", Role: domain.RoleCoordinator,
		}, nil)

		caller, err := s.service.ResolvePrincipal(ctx, userID)
		s.Require().NoError(err)
		s.Equal(userID, caller.UserID)
		s.Equal(domain.RoleCoordinator, caller.Role)
		s.Equal("coord@vit.ac.in", caller.Email)
	})

	s.Run("unknown user maps to not found", func() {
		s.mockUserStore.EXPECT().FindByID(ctx, userID).Return(nil, sentinel.ErrNotFound)

		_, err := s.service.ResolvePrincipal(ctx, userID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("store failure maps to internal", func() {
		s.mockUserStore.EXPECT().FindByID(ctx, userID).Return(nil, errors.New("db down"))

		_, err := s.service.ResolvePrincipal(ctx, userID)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *ServiceSuite) TestCreateUser_Validation() {
	ctx := context.Background()

	s.Run("rejects missing email", func() {
		_, err := s.service.CreateUser(ctx, CreateUserRequest{Password: "longenough"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects short password", func() {
		_, err := s.service.CreateUser(ctx, CreateUserRequest{Email: "a@b.c", Password: "short"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects unknown role", func() {
		_, err := s.service.CreateUser(ctx, CreateUserRequest{Email: "a@b.c", Password: "longenough", Role: "root"})
		s.Require().Error(err)
	})

	s.Run("duplicate email maps to conflict", func() {
		s.mockUserStore.EXPECT().Create(ctx, gomock.Any()).Return(sentinel.ErrConflict)

		_, err := s.service.CreateUser(ctx, CreateUserRequest{Email: "a@b.c", Password: "longenough"})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

// Exercises the real in-memory store so hashing and lookup round-trip.
func TestCreateAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := New(store.NewInMemory(), WithBcryptCost(bcrypt.MinCost))

	created, err := svc.CreateUser(ctx, CreateUserRequest{
		Name:     "Asha",
		Email:    "  Asha@VIT.ac.in ",
		Password: "correct horse",
		IsVITian: true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Role != domain.RoleStudent {
		t.Fatalf("expected default role student, got %s", created.Role)
	}
	if created.PasswordHash == "correct horse" {
		t.Fatal("password stored in plain text")
	}

	user, err := svc.Authenticate(ctx, "asha@vit.ac.in", "correct horse")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if user.ID != created.ID {
		t.Fatalf("authenticated wrong user")
	}

	_, err = svc.Authenticate(ctx, "asha@vit.ac.in", "wrong")
	if !dErrors.HasCode(err, dErrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	_, err = svc.Authenticate(ctx, "nobody@vit.ac.in", "correct horse")
	if !dErrors.HasCode(err, dErrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for unknown email, got %v", err)
	}
}

func TestCreateUser_DerivesMissingName(t *testing.T) {
	svc := New(store.NewInMemory(), WithBcryptCost(bcrypt.MinCost))
	created, err := svc.CreateUser(context.Background(), CreateUserRequest{
		Email:    "ravi.shankar@vit.ac.in",
		Password: "long enough",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Name != "Ravi Shankar" {
		t.Fatalf("expected derived name, got %q", created.Name)
	}
}
