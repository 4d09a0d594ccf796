// Copyright 2025 The luxd Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package statestore persists the daemon's last applied state across
// restarts. It holds exactly one current-state row; there is no history.
package statestore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultPath returns the state database location, honoring
// XDG_STATE_HOME.
func DefaultPath() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "luxd", "state.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "luxd-state.db")
	}
	return filepath.Join(home, ".local", "state", "luxd", "state.db")
}

// State is the persisted snapshot.
type State struct {
	Brightness   float64
	Manual       *float64
	ProtectionOn bool
	WakeHour     int
	WakeMinute   int
	UpdatedAt    time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS daemon_state (
	id           INTEGER PRIMARY KEY CHECK (id = 1),
	brightness   REAL    NOT NULL,
	manual       REAL,
	protection   INTEGER NOT NULL,
	wake_hour    INTEGER NOT NULL,
	wake_minute  INTEGER NOT NULL,
	updated_at   INTEGER NOT NULL
);`

// Store wraps the sqlite database.
type Store struct {
	db *sql.DB
}

// Open creates the database (and its directory) if needed and applies the
// schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("statestore: create dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("statestore: open %s: %w", path, err)
	}
	// A single writer, a single row.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("statestore: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Load reads the persisted state. found is false on a fresh database.
func (s *Store) Load(ctx context.Context) (st State, found bool, err error) {
	var manual sql.NullFloat64
	var protection int
	var updated int64

	row := s.db.QueryRowContext(ctx, `
		SELECT brightness, manual, protection, wake_hour, wake_minute, updated_at
		FROM daemon_state WHERE id = 1`)
	err = row.Scan(&st.Brightness, &manual, &protection, &st.WakeHour, &st.WakeMinute, &updated)
	if err == sql.ErrNoRows {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, fmt.Errorf("statestore: load: %w", err)
	}

	if manual.Valid {
		v := manual.Float64
		st.Manual = &v
	}
	st.ProtectionOn = protection != 0
	st.UpdatedAt = time.Unix(updated, 0)
	return st, true, nil
}

// Save upserts the single state row.
func (s *Store) Save(ctx context.Context, st State) error {
	var manual sql.NullFloat64
	if st.Manual != nil {
		manual = sql.NullFloat64{Float64: *st.Manual, Valid: true}
	}
	protection := 0
	if st.ProtectionOn {
		protection = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daemon_state (id, brightness, manual, protection, wake_hour, wake_minute, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			brightness  = excluded.brightness,
			manual      = excluded.manual,
			protection  = excluded.protection,
			wake_hour   = excluded.wake_hour,
			wake_minute = excluded.wake_minute,
			updated_at  = excluded.updated_at`,
		st.Brightness, manual, protection, st.WakeHour, st.WakeMinute, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("statestore: save: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
