// Package sqlite persists user records in an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

const userSchema = `
CREATE TABLE IF NOT EXISTS users (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL UNIQUE,
	hashed_password TEXT NOT NULL,
	session_id TEXT,
	reset_token TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_users_session_id ON users(session_id);
CREATE INDEX IF NOT EXISTS idx_users_reset_token ON users(reset_token);
`

const userColumns = "id, email, hashed_password, session_id, reset_token, created_at, updated_at"

// UserRepository implements ports.UserRepository on SQLite.
type UserRepository struct {
	db *sql.DB
}

// Open opens (or creates) the database at dsn and applies the schema.
func Open(dsn string) (*UserRepository, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("sqlite user repository: dsn is required")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite user repository open: %w", err)
	}
	if strings.Contains(dsn, ":memory:") {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite user repository set WAL mode: %w", err)
	}

	repo, err := NewUserRepository(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// NewUserRepository applies the schema to an existing connection.
func NewUserRepository(db *sql.DB) (*UserRepository, error) {
	if db == nil {
		return nil, errors.New("sqlite user repository: db is nil")
	}
	if _, err := db.Exec(userSchema); err != nil {
		return nil, fmt.Errorf("sqlite user repository create schema: %w", err)
	}
	return &UserRepository{db: db}, nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	created, updated := user.CreatedAt, user.UpdatedAt
	if created.IsZero() {
		created = now
	}
	if updated.IsZero() {
		updated = created
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO users (`+userColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.HashedPassword,
		nullable(user.SessionID),
		nullable(user.ResetToken),
		created.Format(time.RFC3339Nano),
		updated.Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrUserExists
		}
		return fmt.Errorf("sqlite user repository create: %w", err)
	}
	return nil
}

// Find returns the earliest inserted row matching q.
func (r *UserRepository) Find(ctx context.Context, q domain.Query) (*domain.User, error) {
	fields := q.Fields()
	where := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields))
	for _, f := range fields {
		where = append(where, string(f)+" = ?")
		args = append(args, q[f])
	}

	row := r.db.QueryRowContext(ctx, `
SELECT `+userColumns+`
FROM users
WHERE `+strings.Join(where, " AND ")+`
ORDER BY seq
LIMIT 1`, args...)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) Update(ctx context.Context, userID string, changes domain.Changes) error {
	fields := changes.Fields()
	set := make([]string, 0, len(fields)+1)
	args := make([]any, 0, len(fields)+2)
	for _, f := range fields {
		set = append(set, string(f)+" = ?")
		args = append(args, nullable(changes[f]))
	}
	set = append(set, "updated_at = ?")
	args = append(args, time.Now().UTC().Format(time.RFC3339Nano), userID)

	res, err := r.db.ExecContext(ctx, `
UPDATE users
SET `+strings.Join(set, ", ")+`
WHERE id = ?`, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrUserExists
		}
		return fmt.Errorf("sqlite user repository update: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite user repository update affected rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Ping verifies the connection.
func (r *UserRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *UserRepository) Close() error {
	return r.db.Close()
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var (
		u                     domain.User
		sessionID, resetToken sql.NullString
		createdAt, updatedAt  string
	)
	if err := row.Scan(&u.ID, &u.Email, &u.HashedPassword, &sessionID, &resetToken, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if u.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("sqlite user repository parse created_at: %w", err)
	}
	if u.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("sqlite user repository parse updated_at: %w", err)
	}
	if sessionID.Valid {
		u.SessionID = &sessionID.String
	}
	if resetToken.Valid {
		u.ResetToken = &resetToken.String
	}
	return &u, nil
}

func nullable(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed: users.id") ||
		strings.Contains(msg, "UNIQUE constraint failed: users.email")
}

var _ ports.UserRepository = (*UserRepository)(nil)
