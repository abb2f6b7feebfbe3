package users

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mealmesh/mealmesh-backend/pkg/config"
	"github.com/mealmesh/mealmesh-backend/pkg/db/models"
	"github.com/mealmesh/mealmesh-backend/pkg/enums"
	pkgerrors "github.com/mealmesh/mealmesh-backend/pkg/errors"
	"gorm.io/gorm"
)

type stubUsersRepo struct {
	byEmail map[string]*models.User
	byID    map[uuid.UUID]*models.User
	updates map[uuid.UUID]map[string]any

	create func(ctx context.Context, user *models.User) (*models.User, error)
}

func newStubUsersRepo() *stubUsersRepo {
	return &stubUsersRepo{
		byEmail: make(map[string]*models.User),
		byID:    make(map[uuid.UUID]*models.User),
		updates: make(map[uuid.UUID]map[string]any),
	}
}

func (s *stubUsersRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubUsersRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if s.create != nil {
		return s.create(ctx, user)
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	s.byEmail[user.Email] = user
	s.byID[user.ID] = user
	return user, nil
}

func (s *stubUsersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if user, ok := s.byID[id]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUsersRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := s.byEmail[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUsersRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	s.updates[id] = updates
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "mealmesh", ExpirationMinutes: 30}
}

func testPasswordCfg() config.PasswordConfig {
	return config.PasswordConfig{ArgonMemoryKB: 8, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 8, ArgonKeyLen: 16}
}

func newTestService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo, testJWTConfig(), testPasswordCfg())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestRegisterAndLogin(t *testing.T) {
	repo := newStubUsersRepo()
	svc := newTestService(t, repo)
	ctx := context.Background()

	result, err := svc.Register(ctx, RegisterInput{
		Email:     "Jo@Example.com",
		Password:  "pw123456",
		FirstName: "Jo",
		LastName:  "Smith",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if result.User.Email != "jo@example.com" {
		t.Fatalf("email not normalized: %q", result.User.Email)
	}
	if result.User.Role != enums.UserRoleCustomer {
		t.Fatalf("expected default customer role, got %s", result.User.Role)
	}
	if result.Token == "" {
		t.Fatal("expected token on register")
	}
	if result.User.PasswordHash == "pw123456" {
		t.Fatal("password stored in clear")
	}

	login, err := svc.Login(ctx, LoginInput{Email: "jo@example.com", Password: "pw123456"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if login.Token == "" {
		t.Fatal("expected token on login")
	}
	if _, ok := repo.updates[result.User.ID]["last_login_at"]; !ok {
		t.Fatal("expected last login to be recorded")
	}
}

func TestRegisterRejectsAdminRole(t *testing.T) {
	svc := newTestService(t, newStubUsersRepo())

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "a@b.com",
		Password: "pw",
		Role:     enums.UserRoleAdmin,
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newStubUsersRepo()
	svc := newTestService(t, repo)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Email: "a@b.com", Password: "right-pw"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := svc.Login(ctx, LoginInput{Email: "a@b.com", Password: "wrong-pw"})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestLoginSuspendedAccount(t *testing.T) {
	repo := newStubUsersRepo()
	svc := newTestService(t, repo)
	ctx := context.Background()

	result, err := svc.Register(ctx, RegisterInput{Email: "a@b.com", Password: "pw123"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	result.User.Status = enums.AccountStatusSuspended

	_, err = svc.Login(ctx, LoginInput{Email: "a@b.com", Password: "pw123"})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for suspended account, got %v", err)
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	svc := newTestService(t, newStubUsersRepo())
	_, err := svc.Login(context.Background(), LoginInput{Email: "nobody@b.com", Password: "pw"})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestSetAccountStatus(t *testing.T) {
	repo := newStubUsersRepo()
	svc := newTestService(t, repo)
	ctx := context.Background()

	result, err := svc.Register(ctx, RegisterInput{Email: "a@b.com", Password: "pw123"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := svc.SetAccountStatus(ctx, result.User.ID, enums.AccountStatusSuspended); err != nil {
		t.Fatalf("set status failed: %v", err)
	}
	if got := repo.updates[result.User.ID]["status"]; got != enums.AccountStatusSuspended {
		t.Fatalf("expected suspended update, got %v", got)
	}

	if err := svc.SetAccountStatus(ctx, uuid.New(), enums.AccountStatusSuspended); pkgerrors.CodeOf(err) != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for unknown user, got %v", err)
	}
}

func TestTokenCarriesRoleAndExpiry(t *testing.T) {
	repo := newStubUsersRepo()
	svc := newTestService(t, repo).(*service)
	fixed := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	result, err := svc.Register(context.Background(), RegisterInput{
		Email:    "owner@b.com",
		Password: "pw123",
		Role:     enums.UserRoleStoreOwner,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if result.Token == "" {
		t.Fatal("expected token")
	}
}
