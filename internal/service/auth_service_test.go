package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/authguard/authguard/internal/lockout"
	"github.com/authguard/authguard/internal/password"
	"github.com/authguard/authguard/internal/repository"
	"github.com/authguard/authguard/internal/session"
)

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// newTestService builds a service over the in-memory store with a clock
// pinned to base; tests advance it by reassigning s.now.
func newTestService() *AuthService {
	store := repository.NewMemoryCredentialStore()
	tracker := lockout.NewTracker(5, 5*time.Minute, 15*time.Minute)
	s := NewAuthService(store, tracker, session.NewStore(), password.DefaultPolicy(), "test-secret")
	s.now = func() time.Time { return base }
	return s
}

func TestRegister(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
		wantWeak string
	}{
		{
			name:     "valid registration",
			username: "alice",
			password: "Secret123!",
		},
		{
			name:     "username too short",
			username: "al",
			password: "Secret123!",
			wantErr:  ErrUsernameTooShort,
		},
		{
			name:     "weak password",
			username: "bob",
			password: "weak",
			wantWeak: "Password must be at least 8 characters",
		},
		{
			name:     "duplicate username",
			username: "alice",
			password: "Secret123!",
			wantErr:  repository.ErrDuplicateUsername,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cred, err := s.Register(ctx, tt.username, tt.password, "")

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("got error %v, want %v", err, tt.wantErr)
				}
				return
			}
			if tt.wantWeak != "" {
				var weak *WeakPasswordError
				if !errors.As(err, &weak) {
					t.Fatalf("got error %v, want WeakPasswordError", err)
				}
				if weak.Reason != tt.wantWeak {
					t.Errorf("got reason %q, want %q", weak.Reason, tt.wantWeak)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cred.Username != tt.username {
				t.Errorf("got username %q, want %q", cred.Username, tt.username)
			}
			if cred.PasswordHash == tt.password {
				t.Error("password stored unhashed")
			}
		})
	}
}

func TestLoginSuccess(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	if _, err := s.Register(ctx, "alice", "Secret123!", "alice@example.com"); err != nil {
		t.Fatalf("failed to register: %v", err)
	}

	res, err := s.Login(ctx, "alice", "Secret123!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != LoginSuccess {
		t.Fatalf("got status %v, want LoginSuccess", res.Status)
	}
	if res.Token == "" {
		t.Error("expected session token on success")
	}

	username, err := s.Authenticate(ctx, res.Token)
	if err != nil {
		t.Fatalf("token did not authenticate: %v", err)
	}
	if username != "alice" {
		t.Errorf("got username %q, want alice", username)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	if _, err := s.Register(ctx, "alice", "Secret123!", ""); err != nil {
		t.Fatalf("failed to register: %v", err)
	}

	res, err := s.Login(ctx, "alice", "WrongPass1!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != LoginInvalidCredential {
		t.Fatalf("got status %v, want LoginInvalidCredential", res.Status)
	}
	if res.AttemptsRemaining != 4 {
		t.Errorf("got %d attempts remaining, want 4", res.AttemptsRemaining)
	}
}

func TestLoginUnknownIdentityRecordsFailure(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	res, err := s.Login(ctx, "ghost", "Whatever1!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != LoginInvalidIdentity {
		t.Fatalf("got status %v, want LoginInvalidIdentity", res.Status)
	}

	// Failure accounting is uniform across known and unknown identities.
	status := s.Status("ghost")
	if status.FailedAttempts != 1 {
		t.Errorf("got %d failed attempts for unknown identity, want 1", status.FailedAttempts)
	}

	// Enough failures lock the unknown identity too, but every attempt up to
	// and including the one that crosses the threshold still reports
	// InvalidIdentity; only the next attempt hits the locked path.
	for i := 0; i < 4; i++ {
		res, _ = s.Login(ctx, "ghost", "Whatever1!")
		if res.Status != LoginInvalidIdentity {
			t.Fatalf("attempt %d: got status %v, want LoginInvalidIdentity", i+2, res.Status)
		}
	}

	res, _ = s.Login(ctx, "ghost", "Whatever1!")
	if res.Status != LoginLocked {
		t.Errorf("got status %v, want LoginLocked", res.Status)
	}
}

func TestLoginLockoutScenario(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	if _, err := s.Register(ctx, "alice", "Secret123!", ""); err != nil {
		t.Fatalf("failed to register: %v", err)
	}

	// Five failures at t=0..4s; the 5th locks the account.
	for i := 0; i < 5; i++ {
		offset := time.Duration(i) * time.Second
		s.now = func() time.Time { return base.Add(offset) }

		res, err := s.Login(ctx, "alice", "WrongPass1!")
		if err != nil {
			t.Fatalf("unexpected error on attempt %d: %v", i+1, err)
		}

		if i < 4 {
			if res.Status != LoginInvalidCredential {
				t.Fatalf("attempt %d: got status %v, want LoginInvalidCredential", i+1, res.Status)
			}
			if want := 4 - i; res.AttemptsRemaining != want {
				t.Errorf("attempt %d: got %d attempts remaining, want %d", i+1, res.AttemptsRemaining, want)
			}
		} else if res.Status != LoginLockedJustNow {
			t.Fatalf("attempt 5: got status %v, want LoginLockedJustNow", res.Status)
		}
	}

	// While locked, even the correct password is rejected without a
	// credential check, and the remaining time is reported.
	s.now = func() time.Time { return base.Add(5 * time.Second) }
	res, err := s.Login(ctx, "alice", "Secret123!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != LoginLocked {
		t.Fatalf("got status %v, want LoginLocked", res.Status)
	}
	if want := 15*time.Minute - time.Second; res.RetryAfter != want {
		t.Errorf("got retry after %v, want %v", res.RetryAfter, want)
	}

	// Past expiry the account unlocks and the correct password succeeds.
	s.now = func() time.Time { return base.Add(4*time.Second + 15*time.Minute + time.Second) }
	res, err = s.Login(ctx, "alice", "Secret123!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != LoginSuccess {
		t.Fatalf("got status %v, want LoginSuccess", res.Status)
	}

	// Success cleared all attempt state.
	status := s.Status("alice")
	if status.Locked || status.FailedAttempts != 0 {
		t.Errorf("expected clean state after success, got locked=%v failures=%d", status.Locked, status.FailedAttempts)
	}
}

func TestLoginSuccessClearsAttempts(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	if _, err := s.Register(ctx, "alice", "Secret123!", ""); err != nil {
		t.Fatalf("failed to register: %v", err)
	}

	for i := 0; i < 3; i++ {
		s.Login(ctx, "alice", "WrongPass1!")
	}
	if status := s.Status("alice"); status.FailedAttempts != 3 {
		t.Fatalf("got %d failed attempts, want 3", status.FailedAttempts)
	}

	if res, _ := s.Login(ctx, "alice", "Secret123!"); res.Status != LoginSuccess {
		t.Fatalf("expected success, got %v", res.Status)
	}

	if status := s.Status("alice"); status.FailedAttempts != 0 {
		t.Errorf("got %d failed attempts after success, want 0", status.FailedAttempts)
	}
}

func TestLogout(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	if _, err := s.Register(ctx, "alice", "Secret123!", ""); err != nil {
		t.Fatalf("failed to register: %v", err)
	}
	res, err := s.Login(ctx, "alice", "Secret123!")
	if err != nil || res.Status != LoginSuccess {
		t.Fatalf("failed to login: %v (status %v)", err, res.Status)
	}

	if err := s.Logout(ctx, res.Token); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := s.Authenticate(ctx, res.Token); err == nil {
		t.Error("expected token to be invalid after logout")
	}
	if err := s.Logout(ctx, res.Token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("got error %v, want %v", err, ErrInvalidToken)
	}
}

func TestAuthenticateRejectsGarbage(t *testing.T) {
	s := newTestService()

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty token", token: ""},
		{name: "not a jwt", token: "not.a.token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Authenticate(context.Background(), tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("got error %v, want %v", err, ErrInvalidToken)
			}
		})
	}
}

func TestStatusReportsLockout(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	status := s.Status("alice")
	if status.Locked || status.FailedAttempts != 0 {
		t.Errorf("expected clean status for fresh identity, got %+v", status)
	}
	if status.MaxAttempts != 5 {
		t.Errorf("got max attempts %d, want 5", status.MaxAttempts)
	}
	if status.LockoutDuration != 15*time.Minute {
		t.Errorf("got lockout duration %v, want 15m", status.LockoutDuration)
	}

	for i := 0; i < 5; i++ {
		s.Login(ctx, "alice", "WrongPass1!")
	}

	status = s.Status("alice")
	if !status.Locked {
		t.Fatal("expected identity to be locked")
	}
	if status.RetryAfter != 15*time.Minute {
		t.Errorf("got retry after %v, want 15m", status.RetryAfter)
	}
}
