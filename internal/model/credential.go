package model

import "time"

// Credential is a registered identity. PasswordHash is an opaque PBKDF2
// digest; the plaintext password is never stored.
type Credential struct {
	Username     string
	PasswordHash string
	Email        string
	CreatedAt    time.Time
}
