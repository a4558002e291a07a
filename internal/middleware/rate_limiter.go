package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimiter limits requests per IP address for regular endpoints
// (100 requests per minute).
func RateLimiter() func(http.Handler) http.Handler {
	return httprate.LimitByIP(100, time.Minute)
}

// StrictRateLimiter is the tighter per-IP limit applied to credential
// endpoints like /register and /login (10 requests per minute).
func StrictRateLimiter() func(http.Handler) http.Handler {
	return httprate.LimitByIP(10, time.Minute)
}
