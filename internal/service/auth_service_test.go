package service

import (
	"context"
	"testing"
	"time"

	"nota/internal/domain"
	"nota/internal/repository"
	"nota/pkg/jwt"
)

type mockUserRepo struct {
	users map[string]*domain.User // keyed by ID
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*domain.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *domain.User) error {
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *mockUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockUserRepo) UsernameExists(_ context.Context, username string) (bool, error) {
	_, err := m.FindByUsername(context.Background(), username)
	return err == nil, nil
}

const testSecret = "test-secret-key-32-characters!"

func newAuthService() (*AuthService, *mockUserRepo) {
	repo := newMockUserRepo()
	return NewAuthService(repo, testSecret, time.Hour), repo
}

func TestAuthService_Register(t *testing.T) {
	svc, repo := newAuthService()

	err := svc.Register(context.Background(), &domain.RegisterRequest{
		Username: "alice",
		Password: "longenough",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if len(repo.users) != 1 {
		t.Fatalf("expected 1 stored user, got %d", len(repo.users))
	}
	for _, u := range repo.users {
		if u.Password == "longenough" {
			t.Error("password stored in plaintext")
		}
	}
}

func TestAuthService_Register_DuplicateUsername(t *testing.T) {
	svc, _ := newAuthService()

	if err := svc.Register(context.Background(), &domain.RegisterRequest{Username: "alice", Password: "longenough"}); err != nil {
		t.Fatalf("first register failed: %v", err)
	}

	err := svc.Register(context.Background(), &domain.RegisterRequest{Username: "alice", Password: "different1"})
	var svcErr *Error
	if !asServiceError(err, &svcErr) || svcErr.Code != CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestAuthService_Login(t *testing.T) {
	svc, _ := newAuthService()
	if err := svc.Register(context.Background(), &domain.RegisterRequest{Username: "alice", Password: "longenough"}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	t.Run("valid credentials", func(t *testing.T) {
		resp, err := svc.Login(context.Background(), &domain.LoginRequest{Username: "alice", Password: "longenough"})
		if err != nil {
			t.Fatalf("login failed: %v", err)
		}
		if resp.Username != "alice" {
			t.Errorf("username = %q, want %q", resp.Username, "alice")
		}
		if resp.AccessToken == "" || resp.CSRFToken == "" {
			t.Error("expected both access and CSRF tokens")
		}
		if resp.ExpiresIn != 3600 {
			t.Errorf("expires_in = %d, want 3600", resp.ExpiresIn)
		}

		claims, err := jwt.ValidateToken(resp.AccessToken, testSecret)
		if err != nil {
			t.Fatalf("issued token does not validate: %v", err)
		}
		if claims.UserID == "" {
			t.Error("token carries no user ID")
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		if _, err := svc.Login(context.Background(), &domain.LoginRequest{Username: "alice", Password: "wrongpass1"}); err == nil {
			t.Error("expected error for wrong password")
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		if _, err := svc.Login(context.Background(), &domain.LoginRequest{Username: "ghost", Password: "longenough"}); err == nil {
			t.Error("expected error for unknown user")
		}
	})
}

func TestAuthService_Session(t *testing.T) {
	svc, repo := newAuthService()
	if err := svc.Register(context.Background(), &domain.RegisterRequest{Username: "alice", Password: "longenough"}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	var userID string
	for id := range repo.users {
		userID = id
	}

	t.Run("anonymous", func(t *testing.T) {
		resp, err := svc.Session(context.Background(), "")
		if err != nil {
			t.Fatalf("session failed: %v", err)
		}
		if resp.Authenticated {
			t.Error("anonymous session should not be authenticated")
		}
		if resp.CSRFToken != "" {
			t.Error("anonymous session must not leak a CSRF token")
		}
	})

	t.Run("authenticated", func(t *testing.T) {
		resp, err := svc.Session(context.Background(), userID)
		if err != nil {
			t.Fatalf("session failed: %v", err)
		}
		if !resp.Authenticated || resp.Username != "alice" {
			t.Errorf("unexpected session response: %+v", resp)
		}
		if resp.CSRFToken == "" {
			t.Error("authenticated session must include the CSRF token")
		}
	})
}
