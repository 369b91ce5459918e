// Package auth 认证服务单元测试
package auth

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/apexoai/careerchat/internal/model"
	"github.com/apexoai/careerchat/internal/service/types"
)

// ========== Mock Store ==========

type mockAuthStore struct {
	mu     sync.Mutex
	users  map[string]*model.User // by id
	emails map[string]*model.User // by email
	tokens map[string]*model.AuthToken
}

func newMockAuthStore() *mockAuthStore {
	return &mockAuthStore{
		users:  make(map[string]*model.User),
		emails: make(map[string]*model.User),
		tokens: make(map[string]*model.AuthToken),
	}
}

func (m *mockAuthStore) Create(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
	m.emails[user.Email] = user
	return nil
}

func (m *mockAuthStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, types.ErrNotFound
}

func (m *mockAuthStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.emails[email]; ok {
		return u, nil
	}
	return nil, types.ErrNotFound
}

func (m *mockAuthStore) Update(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return types.ErrNotFound
	}
	m.users[user.ID] = user
	m.emails[user.Email] = user
	return nil
}

func (m *mockAuthStore) SaveToken(ctx context.Context, token *model.AuthToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token.Token] = token
	return nil
}

func (m *mockAuthStore) GetTokenByValue(ctx context.Context, value string) (*model.AuthToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tokens[value]; ok {
		return t, nil
	}
	return nil, types.ErrNotFound
}

func (m *mockAuthStore) RevokeToken(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.ID == id {
			t.IsRevoked = true
			return nil
		}
	}
	return types.ErrNotFound
}

// ========== 注册 ==========

func TestRegister(t *testing.T) {
	store := newMockAuthStore()
	svc := NewService(store, 10)

	resp, err := svc.Register(context.Background(), &RegisterRequest{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "Ada@Example.COM",
		Password:  "secret123",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if resp.User.Email != "ada@example.com" {
		t.Errorf("email = %q, want lowercased", resp.User.Email)
	}
	if resp.User.Plan != model.PlanFree {
		t.Errorf("plan = %q, want free", resp.User.Plan)
	}
	if resp.User.Credits != 10 {
		t.Errorf("credits = %d, want initial grant of 10", resp.User.Credits)
	}
	if resp.Token == "" || resp.RefreshToken == "" {
		t.Errorf("tokens missing: access=%q refresh=%q", resp.Token, resp.RefreshToken)
	}

	stored, _ := store.GetByEmail(context.Background(), "ada@example.com")
	if stored.PasswordHash == "secret123" || stored.PasswordHash == "" {
		t.Errorf("password stored without hashing")
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	store := newMockAuthStore()
	svc := NewService(store, 10)
	ctx := context.Background()

	req := &RegisterRequest{FirstName: "Ada", Email: "ada@example.com", Password: "secret123"}
	if _, err := svc.Register(ctx, req); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}

	_, err := svc.Register(ctx, req)
	if !errors.Is(err, types.ErrValidation) {
		t.Errorf("duplicate register error = %v, want ErrValidation", err)
	}
}

func TestNewService_DefaultCredits(t *testing.T) {
	svc := NewService(newMockAuthStore(), 0)
	if svc.initialCredits != model.DefaultCredits {
		t.Errorf("initialCredits = %d, want %d", svc.initialCredits, model.DefaultCredits)
	}
}

// ========== 登录 ==========

func TestLogin(t *testing.T) {
	store := newMockAuthStore()
	svc := NewService(store, 10)
	ctx := context.Background()

	if _, err := svc.Register(ctx, &RegisterRequest{FirstName: "Ada", Email: "ada@example.com", Password: "secret123"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	resp, err := svc.Login(ctx, &LoginRequest{Email: "ADA@example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if resp.User.Email != "ada@example.com" {
		t.Errorf("user = %+v", resp.User)
	}
	if resp.Token == "" {
		t.Errorf("missing access token")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	store := newMockAuthStore()
	svc := NewService(store, 10)
	ctx := context.Background()

	svc.Register(ctx, &RegisterRequest{FirstName: "Ada", Email: "ada@example.com", Password: "secret123"})

	_, err := svc.Login(ctx, &LoginRequest{Email: "ada@example.com", Password: "wrong"})
	if !errors.Is(err, types.ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	svc := NewService(newMockAuthStore(), 10)

	_, err := svc.Login(context.Background(), &LoginRequest{Email: "nobody@example.com", Password: "x"})
	if !errors.Is(err, types.ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
}

func TestLogin_DisabledAccount(t *testing.T) {
	store := newMockAuthStore()
	svc := NewService(store, 10)
	ctx := context.Background()

	svc.Register(ctx, &RegisterRequest{FirstName: "Ada", Email: "ada@example.com", Password: "secret123"})
	user, _ := store.GetByEmail(ctx, "ada@example.com")
	user.IsActive = false

	_, err := svc.Login(ctx, &LoginRequest{Email: "ada@example.com", Password: "secret123"})
	if !errors.Is(err, types.ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
}

// ========== 令牌 ==========

func TestValidateToken_Roundtrip(t *testing.T) {
	store := newMockAuthStore()
	svc := NewService(store, 10)
	ctx := context.Background()

	resp, err := svc.Register(ctx, &RegisterRequest{FirstName: "Ada", Email: "ada@example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	user, err := svc.ValidateToken(ctx, resp.Token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if user.Email != "ada@example.com" {
		t.Errorf("validated user = %+v", user)
	}
}

func TestValidateToken_RejectsRefreshToken(t *testing.T) {
	store := newMockAuthStore()
	svc := NewService(store, 10)
	ctx := context.Background()

	resp, _ := svc.Register(ctx, &RegisterRequest{FirstName: "Ada", Email: "ada@example.com", Password: "secret123"})

	_, err := svc.ValidateToken(ctx, resp.RefreshToken)
	if !errors.Is(err, types.ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized for refresh token on access path", err)
	}
}

func TestValidateToken_Garbage(t *testing.T) {
	svc := NewService(newMockAuthStore(), 10)

	_, err := svc.ValidateToken(context.Background(), "not.a.jwt")
	if !errors.Is(err, types.ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
}

func TestRevokeToken(t *testing.T) {
	store := newMockAuthStore()
	svc := NewService(store, 10)
	ctx := context.Background()

	resp, _ := svc.Register(ctx, &RegisterRequest{FirstName: "Ada", Email: "ada@example.com", Password: "secret123"})

	if err := svc.RevokeToken(ctx, resp.Token); err != nil {
		t.Fatalf("RevokeToken() error = %v", err)
	}

	_, err := svc.ValidateToken(ctx, resp.Token)
	if !errors.Is(err, types.ErrUnauthorized) {
		t.Errorf("revoked token accepted: %v", err)
	}
}

// ========== 修改密码 ==========

func TestChangePassword(t *testing.T) {
	store := newMockAuthStore()
	svc := NewService(store, 10)
	ctx := context.Background()

	resp, _ := svc.Register(ctx, &RegisterRequest{FirstName: "Ada", Email: "ada@example.com", Password: "secret123"})

	if err := svc.ChangePassword(ctx, resp.User.ID, "secret123", "newsecret"); err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}

	if _, err := svc.Login(ctx, &LoginRequest{Email: "ada@example.com", Password: "secret123"}); err == nil {
		t.Errorf("old password still accepted")
	}
	if _, err := svc.Login(ctx, &LoginRequest{Email: "ada@example.com", Password: "newsecret"}); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
}

func TestChangePassword_WrongOldPassword(t *testing.T) {
	store := newMockAuthStore()
	svc := NewService(store, 10)
	ctx := context.Background()

	resp, _ := svc.Register(ctx, &RegisterRequest{FirstName: "Ada", Email: "ada@example.com", Password: "secret123"})

	if err := svc.ChangePassword(ctx, resp.User.ID, "wrong", "newsecret"); err == nil {
		t.Errorf("change accepted with wrong old password")
	}
}
