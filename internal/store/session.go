package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"storyloom/internal/history"
	"storyloom/internal/model"
)

const sessionFileName = "session.sqlite"

const (
	stackUndo = "undo"
	stackRedo = "redo"
)

// SessionDB persists editor sessions (undo/redo stacks and selection) per story, so
// each CLI invocation can pick up the history left by the previous one.
type SessionDB struct {
	db *sql.DB
}

// SessionState is what a session needs to resume.
type SessionState struct {
	Undo       []history.Checkpoint
	Redo       []history.Checkpoint
	SelectedID string
}

func (s *Store) sessionPath() string {
	return filepath.Join(s.StateDir(), sessionFileName)
}

// OpenSessionDB opens (creating if needed) the session database under the state dir.
func (s *Store) OpenSessionDB(ctx context.Context) (*SessionDB, error) {
	if err := s.Ensure(); err != nil {
		return nil, err
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", s.sessionPath())
	if err != nil {
		return nil, err
	}
	// WAL lets the TUI and CLI processes share the file; busy_timeout absorbs brief locks.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := migrateSessionDB(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SessionDB{db: db}, nil
}

func migrateSessionDB(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			campaign TEXT NOT NULL,
			story TEXT NOT NULL,
			selected_id TEXT NOT NULL DEFAULT '',
			updated_at_unixms INTEGER NOT NULL,
			PRIMARY KEY (campaign, story)
		);`,
		`CREATE TABLE IF NOT EXISTS checkpoints (
			id TEXT PRIMARY KEY,
			campaign TEXT NOT NULL,
			story TEXT NOT NULL,
			stack TEXT NOT NULL,
			seq INTEGER NOT NULL,
			label TEXT NOT NULL,
			selected_id TEXT NOT NULL DEFAULT '',
			snapshot_json TEXT NOT NULL,
			at_unixms INTEGER NOT NULL,
			FOREIGN KEY (campaign, story) REFERENCES sessions(campaign, story) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS checkpoints_by_story ON checkpoints(campaign, story, stack, seq);`,
	}
	for _, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (d *SessionDB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

// Load returns the stored session for a story; a story never edited yields an empty state.
func (d *SessionDB) Load(ctx context.Context, campaign, story string) (SessionState, error) {
	var st SessionState
	err := d.db.QueryRowContext(ctx,
		`SELECT selected_id FROM sessions WHERE campaign = ? AND story = ?`, campaign, story,
	).Scan(&st.SelectedID)
	if err == sql.ErrNoRows {
		return st, nil
	}
	if err != nil {
		return st, wrapErr("load session", campaign, story, err)
	}

	rows, err := d.db.QueryContext(ctx, `SELECT id, stack, label, selected_id, snapshot_json, at_unixms
		FROM checkpoints WHERE campaign = ? AND story = ? ORDER BY stack, seq ASC`, campaign, story)
	if err != nil {
		return st, wrapErr("load session", campaign, story, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id, stack, label, sel, raw string
			atMs                       int64
		)
		if err := rows.Scan(&id, &stack, &label, &sel, &raw, &atMs); err != nil {
			return st, wrapErr("load session", campaign, story, err)
		}
		snap, err := model.ParseStory([]byte(raw))
		if err != nil {
			return st, wrapErr("load session", campaign, story, fmt.Errorf("checkpoint %s: %w", id, err))
		}
		cp := history.Checkpoint{
			ID:         id,
			Label:      label,
			Snapshot:   *snap,
			SelectedID: sel,
			At:         time.UnixMilli(atMs).UTC(),
		}
		switch stack {
		case stackUndo:
			st.Undo = append(st.Undo, cp)
		case stackRedo:
			st.Redo = append(st.Redo, cp)
		}
	}
	if err := rows.Err(); err != nil {
		return st, wrapErr("load session", campaign, story, err)
	}
	return st, nil
}

// Save replaces the stored session for a story in one transaction.
func (d *SessionDB) Save(ctx context.Context, campaign, story string, st SessionState) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapErr("save session", campaign, story, err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().UnixMilli()
	if _, err := tx.ExecContext(ctx, `INSERT INTO sessions(campaign, story, selected_id, updated_at_unixms)
		VALUES(?, ?, ?, ?)
		ON CONFLICT(campaign, story) DO UPDATE SET selected_id = excluded.selected_id, updated_at_unixms = excluded.updated_at_unixms`,
		campaign, story, st.SelectedID, now); err != nil {
		return wrapErr("save session", campaign, story, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM checkpoints WHERE campaign = ? AND story = ?`, campaign, story); err != nil {
		return wrapErr("save session", campaign, story, err)
	}
	insert := func(stack string, cps []history.Checkpoint) error {
		for i, cp := range cps {
			raw, err := json.Marshal(cp.Snapshot)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO checkpoints(id, campaign, story, stack, seq, label, selected_id, snapshot_json, at_unixms)
				VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				cp.ID, campaign, story, stack, i, cp.Label, cp.SelectedID, string(raw), cp.At.UTC().UnixMilli()); err != nil {
				return err
			}
		}
		return nil
	}
	if err := insert(stackUndo, st.Undo); err != nil {
		return wrapErr("save session", campaign, story, err)
	}
	if err := insert(stackRedo, st.Redo); err != nil {
		return wrapErr("save session", campaign, story, err)
	}
	if err := tx.Commit(); err != nil {
		return wrapErr("save session", campaign, story, err)
	}
	return nil
}

// Clear forgets a story's session (used after the story file is replaced wholesale).
func (d *SessionDB) Clear(ctx context.Context, campaign, story string) error {
	for _, q := range []string{
		`DELETE FROM checkpoints WHERE campaign = ? AND story = ?`,
		`DELETE FROM sessions WHERE campaign = ? AND story = ?`,
	} {
		if _, err := d.db.ExecContext(ctx, q, campaign, story); err != nil {
			return wrapErr("clear session", campaign, story, err)
		}
	}
	return nil
}
