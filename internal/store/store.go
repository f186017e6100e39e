package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"time"

	"github.com/pkg/errors"
	"github.com/tiiuae/groundcontrol/internal/mission"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS preferences (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS snapshots (
	name     TEXT NOT NULL,
	kind     TEXT NOT NULL,
	saved_at INTEGER NOT NULL,
	items    TEXT NOT NULL,
	PRIMARY KEY (name, kind)
);`

// Store keeps connection preferences and saved collections in one SQLite file
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path. ":memory:" gives a private in-memory store.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.WithMessagef(err, "open %s", path)
	}
	// single connection, also keeps ":memory:" databases alive
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL;", "PRAGMA busy_timeout=5000;"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			log.Printf("Store: %s skipped: %v", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, errors.WithMessage(err, "create schema")
	}
	return &Store{db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Preferences returns every stored preference
func (s *Store) Preferences(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM preferences`)
	if err != nil {
		return nil, errors.WithMessage(err, "query preferences")
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, errors.WithMessage(err, "scan preference")
		}
		out[k] = v
	}
	return out, rows.Err()
}

// SavePreferences upserts all given keys in one transaction
func (s *Store) SavePreferences(ctx context.Context, prefs map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WithMessage(err, "begin")
	}
	defer tx.Rollback()

	for k, v := range prefs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO preferences (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, k, v)
		if err != nil {
			return errors.WithMessagef(err, "save preference %s", k)
		}
	}
	return errors.WithMessage(tx.Commit(), "commit preferences")
}

// Snapshot is a saved collection
type Snapshot struct {
	Name    string
	Kind    mission.Kind
	SavedAt time.Time
	Items   []mission.Item
}

// SaveSnapshot stores the collections under name, replacing an earlier save with the same name
func (s *Store) SaveSnapshot(ctx context.Context, name string, collections map[mission.Kind][]mission.Item, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WithMessage(err, "begin")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE name = ?`, name); err != nil {
		return errors.WithMessagef(err, "clear snapshot %s", name)
	}
	for kind, items := range collections {
		b, err := json.Marshal(items)
		if err != nil {
			return errors.WithMessagef(err, "encode %s items", kind)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO snapshots (name, kind, saved_at, items) VALUES (?, ?, ?, ?)`,
			name, string(kind), at.UnixMilli(), string(b))
		if err != nil {
			return errors.WithMessagef(err, "save snapshot %s/%s", name, kind)
		}
	}
	return errors.WithMessage(tx.Commit(), "commit snapshot")
}

// LoadSnapshot returns the collections saved under name
func (s *Store) LoadSnapshot(ctx context.Context, name string) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, saved_at, items FROM snapshots WHERE name = ? ORDER BY kind`, name)
	if err != nil {
		return nil, errors.WithMessagef(err, "query snapshot %s", name)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var kind, items string
		var savedAt int64
		if err := rows.Scan(&kind, &savedAt, &items); err != nil {
			return nil, errors.WithMessage(err, "scan snapshot")
		}
		snap := Snapshot{Name: name, Kind: mission.Kind(kind), SavedAt: time.UnixMilli(savedAt)}
		if err := json.Unmarshal([]byte(items), &snap.Items); err != nil {
			return nil, errors.WithMessagef(err, "decode snapshot %s/%s", name, kind)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errors.WithMessagef(ErrNotFound, "snapshot %s", name)
	}
	return out, nil
}

// SnapshotNames lists saved snapshots, most recent first
func (s *Store) SnapshotNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM snapshots GROUP BY name ORDER BY MAX(saved_at) DESC, name`)
	if err != nil {
		return nil, errors.WithMessage(err, "query snapshot names")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}
