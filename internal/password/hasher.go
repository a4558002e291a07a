package password

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// Digest format: pbkdf2-sha256$<iterations>$<salt-b64>$<key-b64>.
// The salt is random per credential and embedded in the digest, so
// verification needs nothing beyond the digest itself.
const (
	hashScheme = "pbkdf2-sha256"
	iterations = 600000
	saltLen    = 16
	keyLen     = 32
)

// Hash derives a salted PBKDF2-SHA256 digest for password. The derivation is
// deliberately slow; never call it while holding a shared lock.
func Hash(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	key := pbkdf2.Key([]byte(password), salt, iterations, keyLen, sha256.New)

	return fmt.Sprintf("%s$%d$%s$%s",
		hashScheme,
		iterations,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key)), nil
}

// VerifyHash reports whether password matches the stored digest. The key
// comparison is constant-time. Malformed digests verify false, never true.
func VerifyHash(digest, password string) bool {
	parts := strings.Split(digest, "$")
	if len(parts) != 4 || parts[0] != hashScheme {
		return false
	}

	iter, err := strconv.Atoi(parts[1])
	if err != nil || iter < 1 {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil || len(salt) == 0 {
		return false
	}

	want, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil || len(want) == 0 {
		return false
	}

	got := pbkdf2.Key([]byte(password), salt, iter, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}
