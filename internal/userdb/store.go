// Package userdb persists the flat registry of chat users (the broadcast
// audience) and an audit ledger of generated share links. Backed by an
// embedded SQLite database with WAL mode and goose-managed schema.
package userdb

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // Pure Go SQLite driver, registers as "sqlite".
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// busyTimeoutMS bounds how long a writer waits on a locked database.
const busyTimeoutMS = 5000

// Store is the SQLite-backed registry. Use ":memory:" as the path in tests.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	addUser       *sql.Stmt
	listUsers     *sql.Stmt
	listUsersFull *sql.Stmt
	countUsers    *sql.Stmt
	recordLink    *sql.Stmt
	recentLinks   *sql.Stmt
}

// User is one registered chat user.
type User struct {
	ID        int64
	Username  string
	FirstSeen time.Time
}

// LinkEvent is one audited share-link generation.
type LinkEvent struct {
	UserID    int64
	Username  string
	FileName  string
	CreatedAt time.Time
}

// New opens the database at dbPath, applies migrations, and prepares the
// repeated statements.
func New(dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("opening user database", slog.String("path", dbPath))

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("userdb: open sqlite: %w", err)
	}

	ctx := context.Background()

	if err := setPragmas(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db, logger: logger}
	if err := s.prepare(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// setPragmas configures WAL journaling and a busy timeout. WAL lets the
// serve loop read the registry while a broadcast insert is in flight.
func setPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeoutMS),
		"PRAGMA foreign_keys=ON",
	}

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("userdb: %s: %w", p, err)
		}
	}

	return nil
}

// runMigrations applies all pending schema migrations.
// Uses the goose v3 Provider API (no global state, context-aware).
func runMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	// Strip the "migrations/" prefix so goose sees files at the root of the FS.
	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("userdb: creating migration sub-filesystem: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, subFS)
	if err != nil {
		return fmt.Errorf("userdb: creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("userdb: running migrations: %w", err)
	}

	for _, r := range results {
		logger.Info("applied migration",
			slog.String("source", r.Source.Path),
			slog.Int64("duration_ms", r.Duration.Milliseconds()),
		)
	}

	return nil
}

func (s *Store) prepare(ctx context.Context) error {
	stmts := []struct {
		dst  **sql.Stmt
		text string
	}{
		{&s.addUser, `INSERT INTO users (user_id, username, first_seen) VALUES (?, ?, ?)
			ON CONFLICT(user_id) DO UPDATE SET username = excluded.username WHERE excluded.username != ''`},
		{&s.listUsers, `SELECT user_id FROM users ORDER BY user_id`},
		{&s.listUsersFull, `SELECT user_id, username, first_seen FROM users ORDER BY user_id`},
		{&s.countUsers, `SELECT COUNT(*) FROM users`},
		{&s.recordLink, `INSERT INTO link_events (user_id, username, file_name, created_at) VALUES (?, ?, ?, ?)`},
		{&s.recentLinks, `SELECT user_id, username, file_name, created_at FROM link_events
			ORDER BY id DESC LIMIT ?`},
	}

	for _, st := range stmts {
		prepared, err := s.db.PrepareContext(ctx, st.text)
		if err != nil {
			return fmt.Errorf("userdb: preparing statement: %w", err)
		}

		*st.dst = prepared
	}

	return nil
}

// AddUser records a chat user, keeping the newest non-empty username.
// Idempotent — re-adding an existing user is not an error.
func (s *Store) AddUser(ctx context.Context, userID int64, username string) error {
	_, err := s.addUser.ExecContext(ctx, userID, username, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("userdb: adding user %d: %w", userID, err)
	}

	return nil
}

// UserIDs returns every registered user, the broadcast audience.
func (s *Store) UserIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.listUsers.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("userdb: listing users: %w", err)
	}
	defer rows.Close()

	var ids []int64

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("userdb: scanning user row: %w", err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("userdb: iterating users: %w", err)
	}

	return ids, nil
}

// Users returns every registered user with username and first-seen time,
// ordered by ID. Used by the admin registry exports.
func (s *Store) Users(ctx context.Context) ([]User, error) {
	rows, err := s.listUsersFull.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("userdb: listing users: %w", err)
	}
	defer rows.Close()

	var users []User

	for rows.Next() {
		var (
			u   User
			raw string
		)

		if err := rows.Scan(&u.ID, &u.Username, &raw); err != nil {
			return nil, fmt.Errorf("userdb: scanning user row: %w", err)
		}

		if ts, parseErr := time.Parse(time.RFC3339, raw); parseErr == nil {
			u.FirstSeen = ts
		}

		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("userdb: iterating users: %w", err)
	}

	return users, nil
}

// CountUsers returns the registry size.
func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.countUsers.QueryRowContext(ctx).Scan(&n); err != nil {
		return 0, fmt.Errorf("userdb: counting users: %w", err)
	}

	return n, nil
}

// RecordLink appends one share-link generation to the audit ledger.
func (s *Store) RecordLink(ctx context.Context, userID int64, username, fileName string) error {
	_, err := s.recordLink.ExecContext(ctx, userID, username, fileName, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("userdb: recording link event: %w", err)
	}

	return nil
}

// RecentLinks returns up to limit audit entries, newest first.
func (s *Store) RecentLinks(ctx context.Context, limit int) ([]LinkEvent, error) {
	rows, err := s.recentLinks.QueryContext(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("userdb: listing link events: %w", err)
	}
	defer rows.Close()

	var events []LinkEvent

	for rows.Next() {
		var (
			ev  LinkEvent
			raw string
		)

		if err := rows.Scan(&ev.UserID, &ev.Username, &ev.FileName, &raw); err != nil {
			return nil, fmt.Errorf("userdb: scanning link event: %w", err)
		}

		ts, parseErr := time.Parse(time.RFC3339, raw)
		if parseErr != nil {
			s.logger.Warn("unparsable link event timestamp", slog.String("raw", raw))
		}

		ev.CreatedAt = ts
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("userdb: iterating link events: %w", err)
	}

	return events, nil
}

// Close finalizes prepared statements and closes the database.
func (s *Store) Close() error {
	for _, st := range []*sql.Stmt{s.addUser, s.listUsers, s.listUsersFull, s.countUsers, s.recordLink, s.recentLinks} {
		if st != nil {
			st.Close()
		}
	}

	return s.db.Close()
}
