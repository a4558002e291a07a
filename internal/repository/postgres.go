package repository

import (
	"context"

	"github.com/authguard/authguard/internal/database"
	"github.com/authguard/authguard/internal/interfaces"
	"github.com/authguard/authguard/internal/model"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
)

// PostgresCredentialStore persists credentials in Postgres, selected when
// DATABASE_URL is configured. Attempt and lockout state intentionally stay in
// memory; only credential records survive restarts.
//
// Expected schema:
//
//	CREATE TABLE credentials (
//	    username      TEXT PRIMARY KEY,
//	    password_hash TEXT NOT NULL,
//	    email         TEXT NOT NULL DEFAULT '',
//	    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
type PostgresCredentialStore struct {
	db *database.DB
}

// Verify that PostgresCredentialStore implements CredentialStore
var _ interfaces.CredentialStore = (*PostgresCredentialStore)(nil)

func NewPostgresCredentialStore(db *database.DB) *PostgresCredentialStore {
	return &PostgresCredentialStore{db: db}
}

// Create inserts a new credential. Atomicity of the existence check is
// delegated to the primary-key constraint; a unique violation maps to
// ErrDuplicateUsername.
func (s *PostgresCredentialStore) Create(ctx context.Context, username, passwordHash, email string) (*model.Credential, error) {
	var cred model.Credential
	err := s.db.Pool.QueryRow(ctx,
		`INSERT INTO credentials (username, password_hash, email)
		 VALUES ($1, $2, $3)
		 RETURNING username, password_hash, email, created_at`,
		username, passwordHash, email).Scan(&cred.Username, &cred.PasswordHash, &cred.Email, &cred.CreatedAt)

	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
			return nil, ErrDuplicateUsername
		}
		return nil, err
	}

	return &cred, nil
}

// Get retrieves a credential by username.
func (s *PostgresCredentialStore) Get(ctx context.Context, username string) (*model.Credential, error) {
	var cred model.Credential
	err := s.db.Pool.QueryRow(ctx,
		`SELECT username, password_hash, email, created_at
		 FROM credentials
		 WHERE username = $1`,
		username).Scan(&cred.Username, &cred.PasswordHash, &cred.Email, &cred.CreatedAt)

	if err == pgx.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	return &cred, nil
}
