package password

import (
	"strings"
	"testing"
)

func TestHashRoundTrip(t *testing.T) {
	digest, err := Hash("Secret123!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasPrefix(digest, "pbkdf2-sha256$") {
		t.Errorf("digest has unexpected format: %q", digest)
	}
	if strings.Contains(digest, "Secret123!") {
		t.Error("digest contains the plaintext password")
	}

	if !VerifyHash(digest, "Secret123!") {
		t.Error("correct password did not verify")
	}
	if VerifyHash(digest, "wrong") {
		t.Error("wrong password verified")
	}
}

func TestHashUsesRandomSalt(t *testing.T) {
	first, err := Hash("Secret123!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Hash("Secret123!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first == second {
		t.Error("two digests of the same password are identical; salt is not random")
	}
}

func TestVerifyHashFailsClosed(t *testing.T) {
	tests := []struct {
		name   string
		digest string
	}{
		{name: "empty digest", digest: ""},
		{name: "wrong scheme", digest: "bcrypt$12$c2FsdA$aGFzaA"},
		{name: "missing fields", digest: "pbkdf2-sha256$600000$c2FsdA"},
		{name: "non-numeric iterations", digest: "pbkdf2-sha256$lots$c2FsdA$aGFzaA"},
		{name: "zero iterations", digest: "pbkdf2-sha256$0$c2FsdA$aGFzaA"},
		{name: "invalid salt encoding", digest: "pbkdf2-sha256$600000$!!!$aGFzaA"},
		{name: "invalid key encoding", digest: "pbkdf2-sha256$600000$c2FsdA$!!!"},
		{name: "empty key", digest: "pbkdf2-sha256$600000$c2FsdA$"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if VerifyHash(tt.digest, "Secret123!") {
				t.Errorf("malformed digest %q verified as true", tt.digest)
			}
		})
	}
}
