package auth

import (
	"context"
	"database/sql"
	"fmt"
)

// EnsureAdmin upserts the bootstrap administrator so a fresh database is
// usable without manual seeding. The hash comes from config (bcrypt).
func EnsureAdmin(ctx context.Context, db *sql.DB, username, passHash string) error {
	if username == "" || passHash == "" {
		return nil
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, role)
		VALUES ($1, $1, $2, 'admin')
		ON CONFLICT (username) DO UPDATE SET password_hash=EXCLUDED.password_hash, role='admin'`,
		username, passHash)
	if err != nil {
		return fmt.Errorf("ensure admin user: %w", err)
	}
	return nil
}
