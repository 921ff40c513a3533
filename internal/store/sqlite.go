package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/syncup/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Profiles and KV using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	writeMu sync.Mutex // serializes writes to avoid SQLITE_BUSY
}

// NewSQLite opens (and creates, if needed) the database at dbPath.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dbPath == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS profiles (
		uid TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		intro TEXT NOT NULL,
		tags_json TEXT NOT NULL,
		availability TEXT NOT NULL,
		location TEXT NOT NULL,
		photo_url TEXT NOT NULL,
		presence TEXT,
		goals_json TEXT NOT NULL,
		mode TEXT NOT NULL,
		role TEXT NOT NULL,
		kudos INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// Get retrieves a profile by uid.
func (s *SQLiteStore) Get(ctx context.Context, uid string) (*domain.UserProfile, error) {
	query := `
		SELECT uid, name, intro, tags_json, availability, location,
		       photo_url, presence, goals_json, mode, role, kudos
		FROM profiles WHERE uid = ?`

	var (
		p         domain.UserProfile
		presence  sql.NullString
		tagsJSON  string
		goalsJSON string
		mode      string
		role      string
	)
	err := s.db.QueryRowContext(ctx, query, uid).Scan(
		&p.UID, &p.Name, &p.Intro, &tagsJSON, &p.Availability, &p.Location,
		&p.PhotoURL, &presence, &goalsJSON, &mode, &role, &p.Kudos,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan profile row: %w", err)
	}

	if err := json.Unmarshal([]byte(tagsJSON), &p.Tags); err != nil {
		return nil, fmt.Errorf("decode profile tags: %w", err)
	}
	if err := json.Unmarshal([]byte(goalsJSON), &p.Goals); err != nil {
		return nil, fmt.Errorf("decode profile goals: %w", err)
	}
	p.Presence = presence.String
	p.Mode = domain.Mode(mode)
	p.Role = domain.Role(role)

	return &p, nil
}

// Create writes a new profile with default display attributes.
// It fails if a profile already exists for uid.
func (s *SQLiteStore) Create(ctx context.Context, uid, name string, mode domain.Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("create profile: invalid mode %q", mode)
	}
	existing, err := s.Get(ctx, uid)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("create profile: %s already exists", uid)
	}
	return s.Upsert(ctx, NewProfile(uid, name, mode))
}

// Upsert creates or replaces a profile.
func (s *SQLiteStore) Upsert(ctx context.Context, p domain.UserProfile) error {
	tagsJSON, err := json.Marshal(nonNil(p.Tags))
	if err != nil {
		return fmt.Errorf("encode profile tags: %w", err)
	}
	goalsJSON, err := json.Marshal(nonNil(p.Goals))
	if err != nil {
		return fmt.Errorf("encode profile goals: %w", err)
	}

	query := `
	INSERT INTO profiles (uid, name, intro, tags_json, availability, location,
		photo_url, presence, goals_json, mode, role, kudos, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(uid) DO UPDATE SET
		name = excluded.name,
		intro = excluded.intro,
		tags_json = excluded.tags_json,
		availability = excluded.availability,
		location = excluded.location,
		photo_url = excluded.photo_url,
		presence = excluded.presence,
		goals_json = excluded.goals_json,
		mode = excluded.mode,
		role = excluded.role,
		kudos = excluded.kudos,
		updated_at = excluded.updated_at`

	var presence interface{}
	if p.Presence != "" {
		presence = p.Presence
	}

	now := time.Now().Unix()
	return s.withWriteRetry(ctx, "upsert profile", func() error {
		_, err := s.db.ExecContext(ctx, query,
			p.UID, p.Name, p.Intro, string(tagsJSON), p.Availability, p.Location,
			p.PhotoURL, presence, string(goalsJSON), string(p.Mode), string(p.Role), p.Kudos,
			now, now,
		)
		return err
	})
}

// GetValue reads key from the kv table.
func (s *SQLiteStore) GetValue(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read kv %s: %w", key, err)
	}
	return value, true, nil
}

// SetValue writes key to the kv table.
func (s *SQLiteStore) SetValue(ctx context.Context, key, value string) error {
	query := `
	INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	return s.withWriteRetry(ctx, "write kv "+key, func() error {
		_, err := s.db.ExecContext(ctx, query, key, value, time.Now().Unix())
		return err
	})
}

// KV exposes the kv table through the KV interface.
func (s *SQLiteStore) KV() KV {
	return sqliteKV{s}
}

type sqliteKV struct{ s *SQLiteStore }

func (k sqliteKV) Get(ctx context.Context, key string) (string, bool, error) {
	return k.s.GetValue(ctx, key)
}

func (k sqliteKV) Set(ctx context.Context, key, value string) error {
	return k.s.SetValue(ctx, key, value)
}

// withWriteRetry runs write under the write mutex, retrying with exponential
// backoff while SQLite reports the database as busy or locked.
func (s *SQLiteStore) withWriteRetry(ctx context.Context, op string, write func() error) error {
	const maxRetries = 3
	baseDelay := 50 * time.Millisecond

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var err error
	for i := 0; i < maxRetries; i++ {
		err = write()
		if err == nil {
			return nil
		}
		if !isSQLiteConflictError(err) || i == maxRetries-1 {
			break
		}
		delay := baseDelay * time.Duration(1<<i) // 50ms, 100ms
		slog.Debug("SQLite write busy, retrying", "op", op, "attempt", i+1, "delay", delay)
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// isSQLiteConflictError reports SQLITE_BUSY and "database is locked" errors,
// both of which warrant a retry.
func isSQLiteConflictError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
