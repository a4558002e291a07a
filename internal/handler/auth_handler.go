package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/authguard/authguard/internal/middleware"
	"github.com/authguard/authguard/internal/repository"
	"github.com/authguard/authguard/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Index serves API information at the root route.
func (h *AuthHandler) Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Authentication Hardening System API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"/register":        "POST - Register new user",
			"/login":           "POST - Login user",
			"/logout":          "POST - Logout user",
			"/profile":         "GET - Get user profile (requires auth)",
			"/security-status": "GET - Check security status for username",
		},
	})
}

// Register handles user registration
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Username == "" || req.Password == "" {
		sendJSONError(w, "Username and password required", http.StatusBadRequest)
		return
	}

	cred, err := h.authService.Register(r.Context(), req.Username, req.Password, req.Email)
	if err != nil {
		var weak *service.WeakPasswordError
		switch {
		case errors.Is(err, service.ErrUsernameTooShort):
			sendJSONError(w, err.Error(), http.StatusBadRequest)
		case errors.As(err, &weak):
			sendJSONError(w, weak.Reason, http.StatusBadRequest)
		case errors.Is(err, repository.ErrDuplicateUsername):
			sendJSONError(w, "Username already exists", http.StatusConflict)
		default:
			sendJSONError(w, "Registration failed", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"message":  "User registered successfully",
		"username": cred.Username,
	})
}

// Login handles authentication. Lockout outcomes map to 429, credential
// failures to 401; the body never distinguishes unknown usernames from wrong
// passwords beyond the attempts counter.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Username == "" || req.Password == "" {
		sendJSONError(w, "Username and password required", http.StatusBadRequest)
		return
	}

	result, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		sendJSONError(w, "Login failed", http.StatusInternalServerError)
		return
	}

	switch result.Status {
	case service.LoginLocked:
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error":                     "Account temporarily locked due to too many failed attempts",
			"lockout_remaining_seconds": int(result.RetryAfter.Seconds()),
		})

	case service.LoginLockedJustNow:
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error":              "Too many failed attempts. Account locked.",
			"attempts_remaining": 0,
		})

	case service.LoginInvalidIdentity:
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"error": "Invalid credentials",
		})

	case service.LoginInvalidCredential:
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"error":              "Invalid credentials",
			"attempts_remaining": result.AttemptsRemaining,
		})

	case service.LoginSuccess:
		writeJSON(w, http.StatusOK, map[string]any{
			"message":  "Login successful",
			"username": result.Username,
			"token":    result.Token,
		})

	default:
		sendJSONError(w, "Login failed", http.StatusInternalServerError)
	}
}

// Logout revokes the current session (requires auth middleware).
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	username, _ := middleware.UsernameFromContext(r.Context())
	token, ok := middleware.TokenFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	if err := h.authService.Logout(r.Context(), token); err != nil {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message":  "Logout successful",
		"username": username,
	})
}

// Profile returns the authenticated user's profile (requires auth middleware).
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	username, ok := middleware.UsernameFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	cred, err := h.authService.Profile(r.Context(), username)
	if err != nil {
		sendJSONError(w, "Profile lookup failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"username":   cred.Username,
		"email":      cred.Email,
		"created_at": cred.CreatedAt.Format(time.RFC3339),
	})
}

// SecurityStatus reports lockout state for a username.
func (h *AuthHandler) SecurityStatus(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		sendJSONError(w, "Username parameter required", http.StatusBadRequest)
		return
	}

	status := h.authService.Status(username)

	body := map[string]any{
		"username":                 username,
		"is_locked":                status.Locked,
		"failed_attempts":          status.FailedAttempts,
		"max_attempts":             status.MaxAttempts,
		"lockout_duration_minutes": int(status.LockoutDuration.Minutes()),
	}
	if status.Locked {
		body["lockout_remaining_seconds"] = int(status.RetryAfter.Seconds())
	}

	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func sendJSONError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, map[string]string{"error": message})
}
