package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/authguard/authguard/internal/interfaces"
	"github.com/authguard/authguard/internal/lockout"
	"github.com/authguard/authguard/internal/model"
	"github.com/authguard/authguard/internal/password"
	"github.com/authguard/authguard/internal/repository"
	"github.com/authguard/authguard/internal/session"
	"github.com/golang-jwt/jwt/v5"
)

const minUsernameLength = 3

var (
	ErrUsernameTooShort = fmt.Errorf("username must be at least %d characters", minUsernameLength)
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token has expired")
)

// WeakPasswordError reports which strength rule a candidate password failed.
type WeakPasswordError struct {
	Reason string
}

func (e *WeakPasswordError) Error() string { return e.Reason }

// LoginStatus discriminates the possible outcomes of Login.
type LoginStatus int

const (
	// LoginSuccess: credentials verified; attempt state cleared, token issued.
	LoginSuccess LoginStatus = iota
	// LoginInvalidIdentity: unknown username. A failure is still recorded so
	// accounting stays uniform across known and unknown identities, but the
	// outcome never changes even on the attempt that crosses the threshold.
	LoginInvalidIdentity
	// LoginInvalidCredential: wrong password, below the lockout threshold.
	LoginInvalidCredential
	// LoginLockedJustNow: this failure crossed the threshold and locked the
	// identity.
	LoginLockedJustNow
	// LoginLocked: the identity was already locked; no credential check was
	// performed.
	LoginLocked
)

// LoginResult is the authentication decision returned by Login.
type LoginResult struct {
	Status   LoginStatus
	Username string
	Token    string

	// AttemptsRemaining is set for LoginInvalidCredential.
	AttemptsRemaining int

	// RetryAfter is set for LoginLocked and LoginLockedJustNow.
	RetryAfter time.Duration
}

// SecurityStatus is the observability snapshot served by /security-status.
type SecurityStatus struct {
	Locked          bool
	FailedAttempts  int
	MaxAttempts     int
	LockoutDuration time.Duration
	RetryAfter      time.Duration
}

// AuthService orchestrates registration and login. All lockout policy lives
// in the tracker; all credential verification lives in the password package.
type AuthService struct {
	store    interfaces.CredentialStore
	tracker  *lockout.Tracker
	sessions *session.Store
	policy   password.Policy

	jwtSecret   []byte
	tokenExpiry time.Duration

	// now is replaceable in tests so time-window behavior needs no sleeps.
	now func() time.Time
}

// NewAuthService creates a new authentication service.
func NewAuthService(store interfaces.CredentialStore, tracker *lockout.Tracker, sessions *session.Store, policy password.Policy, jwtSecret string) *AuthService {
	return &AuthService{
		store:       store,
		tracker:     tracker,
		sessions:    sessions,
		policy:      policy,
		jwtSecret:   []byte(jwtSecret),
		tokenExpiry: 24 * time.Hour,
		now:         time.Now,
	}
}

// Register validates the username and password, hashes the password, and
// stores the new credential. Hashing runs before any store call and outside
// every lock.
func (s *AuthService) Register(ctx context.Context, username, pw, email string) (*model.Credential, error) {
	if len(username) < minUsernameLength {
		return nil, ErrUsernameTooShort
	}

	if ok, reason := s.policy.Validate(pw); !ok {
		return nil, &WeakPasswordError{Reason: reason}
	}

	digest, err := password.Hash(pw)
	if err != nil {
		return nil, err
	}

	return s.store.Create(ctx, username, digest, email)
}

// Login produces an authentication decision for the supplied credentials.
// A locked identity short-circuits before any hashing work; an unknown
// identity records a failure like any other; a success clears the identity's
// attempt state and issues a session token.
func (s *AuthService) Login(ctx context.Context, username, pw string) (*LoginResult, error) {
	now := s.now()

	if locked, until := s.tracker.IsLocked(username, now); locked {
		return &LoginResult{Status: LoginLocked, RetryAfter: until.Sub(now)}, nil
	}

	cred, err := s.store.Get(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// Failure accounting stays uniform for unknown identities, but
			// the outcome is always InvalidIdentity; a lockout crossed here
			// surfaces on the next attempt.
			s.tracker.RecordFailure(username, now)
			return &LoginResult{Status: LoginInvalidIdentity}, nil
		}
		return nil, err
	}

	if !password.VerifyHash(cred.PasswordHash, pw) {
		if s.tracker.RecordFailure(username, now) {
			return &LoginResult{Status: LoginLockedJustNow, RetryAfter: s.tracker.LockoutDuration()}, nil
		}
		return &LoginResult{
			Status:            LoginInvalidCredential,
			AttemptsRemaining: s.tracker.RemainingAttempts(username, now),
		}, nil
	}

	s.tracker.Clear(username)

	token, err := s.issueToken(username, now)
	if err != nil {
		return nil, err
	}

	return &LoginResult{Status: LoginSuccess, Username: username, Token: token}, nil
}

// Authenticate validates a bearer token and returns the username it was
// issued to. Revoked and expired sessions are rejected.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (string, error) {
	claims, err := s.parseToken(tokenString)
	if err != nil {
		return "", err
	}

	jti, _ := claims["jti"].(string)
	username, _ := claims["sub"].(string)
	if jti == "" || username == "" {
		return "", ErrInvalidToken
	}

	if !s.sessions.IsValid(jti, s.now()) {
		return "", ErrInvalidToken
	}

	return username, nil
}

// Logout revokes the session behind the given token.
func (s *AuthService) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.parseToken(tokenString)
	if err != nil {
		return err
	}

	jti, _ := claims["jti"].(string)
	if jti == "" {
		return ErrInvalidToken
	}

	if err := s.sessions.Revoke(jti); err != nil {
		return ErrInvalidToken
	}
	return nil
}

// Profile returns the stored credential for an authenticated username.
func (s *AuthService) Profile(ctx context.Context, username string) (*model.Credential, error) {
	return s.store.Get(ctx, username)
}

// Status reports the lockout state for a username. Exposing this to
// unauthenticated callers leaks account-existence information; the endpoint
// is kept because the API contract requires it.
func (s *AuthService) Status(username string) SecurityStatus {
	now := s.now()
	locked, until := s.tracker.IsLocked(username, now)

	status := SecurityStatus{
		Locked:          locked,
		FailedAttempts:  s.tracker.FailedAttempts(username, now),
		MaxAttempts:     s.tracker.MaxAttempts(),
		LockoutDuration: s.tracker.LockoutDuration(),
	}
	if locked {
		status.RetryAfter = until.Sub(now)
	}
	return status
}

func (s *AuthService) issueToken(username string, now time.Time) (string, error) {
	jti, err := generateTokenID()
	if err != nil {
		return "", err
	}
	expiresAt := now.Add(s.tokenExpiry)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": username,
		"jti": jti,
		"exp": expiresAt.Unix(),
		"iat": now.Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", err
	}

	s.sessions.Create(jti, username, expiresAt)
	return tokenString, nil
}

func (s *AuthService) parseToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.jwtSecret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func generateTokenID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
