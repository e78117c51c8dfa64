package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/agora-ai/agora/internal/domain"
)

// Store persists checkpoints in a local SQLite database. The latest snapshot
// per thread lives in the checkpoints table; every committed turn also appends
// a row to the writes table. Snapshot state is stored as a JSON blob so the
// schema survives additions to the conversation state.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS checkpoints (
	thread_id  TEXT PRIMARY KEY,
	state      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS writes (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	thread_id TEXT NOT NULL,
	turn      INTEGER NOT NULL,
	appended  TEXT NOT NULL,
	at        TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_writes_thread ON writes(thread_id);
`

func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// SQLite allows a single writer; serializing through one connection
	// avoids SQLITE_BUSY under concurrent commits.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating sqlite schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Load(ctx context.Context, threadID domain.ThreadID) (*domain.ConversationState, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM checkpoints WHERE thread_id = ?`, string(threadID)).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite load %s: %w", threadID, err)
	}

	var state domain.ConversationState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("sqlite decode %s: %w", threadID, err)
	}
	return &state, nil
}

func (s *Store) Commit(ctx context.Context, threadID domain.ThreadID, state *domain.ConversationState, entry domain.WriteEntry) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("sqlite encode %s: %w", threadID, err)
	}
	appended, err := json.Marshal(entry.Appended)
	if err != nil {
		return fmt.Errorf("sqlite encode write entry %s: %w", threadID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO checkpoints (thread_id, state, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(thread_id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		string(threadID), string(raw), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("sqlite commit %s: %w", threadID, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO writes (thread_id, turn, appended, at) VALUES (?, ?, ?, ?)`,
		string(threadID), entry.Turn, string(appended), entry.At)
	if err != nil {
		return fmt.Errorf("sqlite write log %s: %w", threadID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite commit tx: %w", err)
	}
	return nil
}

func (s *Store) DeleteByUserPrefix(ctx context.Context, userID domain.UserID) (int64, error) {
	pattern := escapeLike(domain.UserPrefix(userID)) + "%"

	var deleted int64
	for _, table := range []string{"checkpoints", "writes"} {
		res, err := s.db.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE thread_id LIKE ? ESCAPE '\'`, table), pattern)
		if err != nil {
			return deleted, fmt.Errorf("sqlite scoped delete in %s: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return deleted, fmt.Errorf("sqlite rows affected: %w", err)
		}
		deleted += n
	}
	return deleted, nil
}

func (s *Store) DeleteAll(ctx context.Context) ([]string, error) {
	var cleared []string
	for _, table := range []string{"checkpoints", "writes"} {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return cleared, fmt.Errorf("sqlite clear %s: %w", table, err)
		}
		cleared = append(cleared, table)
	}
	return cleared, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// escapeLike protects LIKE metacharacters in user-supplied identifiers so a
// user named "a%" cannot match other users' threads.
func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
