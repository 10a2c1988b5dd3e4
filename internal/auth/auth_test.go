package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"hausmate/internal/core"
)

// memoryUserStorage is a map-backed UserStorage for tests.
type memoryUserStorage struct {
	nextID  int64
	byEmail map[string]*core.User
	byID    map[int64]*core.User
}

func newMemoryUserStorage() *memoryUserStorage {
	return &memoryUserStorage{
		nextID:  1,
		byEmail: make(map[string]*core.User),
		byID:    make(map[int64]*core.User),
	}
}

func (s *memoryUserStorage) CreateUser(_ context.Context, user *core.User) error {
	user.ID = s.nextID
	s.nextID++
	s.byEmail[user.Email] = user
	s.byID[user.ID] = user
	return nil
}

func (s *memoryUserStorage) GetUserByEmail(_ context.Context, email string) (*core.User, error) {
	u, ok := s.byEmail[email]
	if !ok {
		return nil, core.ErrNotFound
	}
	return u, nil
}

func (s *memoryUserStorage) GetUserByID(_ context.Context, id int64) (*core.User, error) {
	u, ok := s.byID[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return u, nil
}

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	authn := NewPasswordAuthenticator(newMemoryUserStorage())

	user, err := authn.Register(ctx, "Alex", "alex@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.ID == 0 {
		t.Fatalf("user ID not assigned")
	}
	if user.PasswordHash == "correct horse battery" {
		t.Fatalf("password stored in clear")
	}

	got, err := authn.Authenticate(ctx, "alex@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("authenticated user ID = %d, want %d", got.ID, user.ID)
	}

	if _, err := authn.Authenticate(ctx, "alex@example.com", "wrong password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := authn.Authenticate(ctx, "nobody@example.com", "whatever!"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	authn := NewPasswordAuthenticator(newMemoryUserStorage())
	if _, err := authn.Register(context.Background(), "Alex", "alex@example.com", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	authn := NewPasswordAuthenticator(newMemoryUserStorage())

	if _, err := authn.Register(ctx, "Alex", "alex@example.com", "password123"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := authn.Register(ctx, "Other", "alex@example.com", "password456"); !errors.Is(err, ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
}

func TestJWTRoundTrip(t *testing.T) {
	m := NewJWTManager("0123456789abcdef0123456789abcdef", time.Hour)
	user := &core.User{ID: 42, Email: "alex@example.com"}

	token, err := m.Generate(user)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	id, err := claims.UserID()
	if err != nil {
		t.Fatalf("user id: %v", err)
	}
	if id != 42 {
		t.Fatalf("user ID = %d, want 42", id)
	}
	if claims.Email != "alex@example.com" {
		t.Fatalf("email = %q", claims.Email)
	}
}

func TestJWTRejectsTampering(t *testing.T) {
	m := NewJWTManager("0123456789abcdef0123456789abcdef", time.Hour)
	other := NewJWTManager("ffffffffffffffffffffffffffffffff", time.Hour)
	user := &core.User{ID: 42, Email: "alex@example.com"}

	token, err := other.Generate(user)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := m.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong key, got %v", err)
	}
	if _, err := m.Validate("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for garbage, got %v", err)
	}
}

func TestJWTRejectsExpired(t *testing.T) {
	m := NewJWTManager("0123456789abcdef0123456789abcdef", -time.Minute)
	token, err := m.Generate(&core.User{ID: 1, Email: "a@example.com"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := m.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}
