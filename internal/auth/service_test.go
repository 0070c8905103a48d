package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/motormarket/motorchat-server/internal/store/sqlite"
)

func testJWTConfig() *JWTConfig {
	return &JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "motorchat-test",
		Audience: "motorchat",
		TTL:      time.Hour,
	}
}

func newTestService(t *testing.T) *Service {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	return NewService(st, testJWTConfig())
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	token, err := svc.Register(ctx, "alice", "Alice", "alice@example.com", "secret123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate registered token: %v", err)
	}
	if claims.Username != "alice" {
		t.Fatalf("claims username = %q, want alice", claims.Username)
	}

	if _, err := svc.Login(ctx, "alice", "secret123"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := svc.Login(ctx, "alice", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody", "secret123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		email    string
		password string
		wantErr  error
	}{
		{"short username", "ab", "a@example.com", "secret123", ErrInvalidUsername},
		{"short password", "charlie", "c@example.com", "12345", ErrInvalidPassword},
		{"bad email", "charlie", "not-an-email", "secret123", ErrInvalidEmail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.username, "", tt.email, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "Alice", "alice@example.com", "secret123"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := svc.Register(ctx, "alice", "Alice", "other@example.com", "secret123"); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestVerifyHandshake(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	token, err := svc.Register(ctx, "alice", "Alice", "alice@example.com", "secret123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	identity, err := svc.VerifyHandshake(token)
	if err != nil {
		t.Fatalf("verify handshake: %v", err)
	}
	if identity.UserID == 0 || identity.Name != "alice" || identity.Email != "alice@example.com" {
		t.Fatalf("unexpected identity: %+v", identity)
	}
}

func TestVerifyHandshakeNoCredential(t *testing.T) {
	svc := newTestService(t)

	for _, token := range []string{"", "   "} {
		if _, err := svc.VerifyHandshake(token); !errors.Is(err, ErrNoCredential) {
			t.Fatalf("token %q: expected ErrNoCredential, got %v", token, err)
		}
	}
}

func TestVerifyHandshakeInvalidToken(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.VerifyHandshake("not.a.token"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}

	// A token signed with a different secret must be rejected the same way.
	other := testJWTConfig()
	other.Secret = []byte("another-secret")
	forged, err := GenerateToken(other, 1, "mallory", "m@example.com")
	if err != nil {
		t.Fatalf("generate forged token: %v", err)
	}
	if _, err := svc.VerifyHandshake(forged); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for forged token, got %v", err)
	}
}

func TestVerifyHandshakeExpiredToken(t *testing.T) {
	svc := newTestService(t)

	expired := testJWTConfig()
	expired.TTL = -time.Minute
	token, err := GenerateToken(expired, 1, "alice", "alice@example.com")
	if err != nil {
		t.Fatalf("generate expired token: %v", err)
	}

	if _, err := svc.VerifyHandshake(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerifyHandshakeMisconfigured(t *testing.T) {
	svc := NewService(nil, &JWTConfig{})

	if _, err := svc.VerifyHandshake("some-token"); !errors.Is(err, ErrMisconfigured) {
		t.Fatalf("expected ErrMisconfigured, got %v", err)
	}
}
