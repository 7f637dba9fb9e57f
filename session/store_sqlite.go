package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jrsteele09/go-entra-webapp/identity"
	errs "github.com/jrsteele09/go-entra-webapp/internal/errors"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	user_json  TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL,
	last_seen  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS sessions_expires_at ON sessions (expires_at);`

// SQLiteStore persists sessions so they survive a restart.
type SQLiteStore struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// OpenSQLite opens (creating if needed) the session database at path.
// ":memory:" gives a private in-memory database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("storage path is required")
	}

	dsn := path
	if path != ":memory:" {
		cleanPath := filepath.Clean(path)
		if dir := filepath.Dir(cleanPath); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, errors.Wrap(err, "create session directory")
			}
		}
		dsn = cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	}

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite db")
	}
	// One connection serialises writers. For :memory: it is also what keeps
	// every query on the same database.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrap(err, "ping sqlite db")
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrap(err, "create sessions table")
	}

	return &SQLiteStore{sqlDB: sqlDB, now: time.Now}, nil
}

// WithClock replaces the clock used to decide expiry on Get
func (s *SQLiteStore) WithClock(now func() time.Time) *SQLiteStore {
	s.now = now
	return s
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (Session, error) {
	if id == "" {
		return Session{}, errors.Wrap(errs.ErrSessionNotFound, "session id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, user_json, created_at, expires_at, last_seen FROM sessions WHERE id = ?`, id)

	var (
		out                            Session
		userJSON                       string
		createdAt, expiresAt, lastSeen int64
	)
	if err := row.Scan(&out.ID, &userJSON, &createdAt, &expiresAt, &lastSeen); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, errs.ErrSessionNotFound
		}
		return Session{}, errors.Wrap(err, "get session")
	}

	out.CreatedAt = unixMillisToTime(createdAt)
	out.ExpiresAt = unixMillisToTime(expiresAt)
	out.LastSeen = unixMillisToTime(lastSeen)
	if out.Expired(s.now()) {
		return Session{}, errs.ErrSessionExpired
	}

	var user identity.Claims
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
		return Session{}, errors.Wrapf(err, "decode claims of session %s", id)
	}
	out.User = user
	return out, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, sess Session) error {
	if sess.ID == "" {
		return errors.New("session id is required")
	}
	userJSON, err := json.Marshal(sess.User)
	if err != nil {
		return errors.Wrap(err, "encode claims")
	}

	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO sessions (id, user_json, created_at, expires_at, last_seen)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		    user_json = excluded.user_json,
		    created_at = excluded.created_at,
		    expires_at = excluded.expires_at,
		    last_seen = excluded.last_seen`,
		sess.ID,
		string(userJSON),
		timeToUnixMillis(sess.CreatedAt),
		timeToUnixMillis(sess.ExpiresAt),
		timeToUnixMillis(sess.LastSeen),
	)
	if err != nil {
		return errors.Wrap(err, "put session")
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return errors.Wrap(err, "delete session")
	}
	return nil
}

func (s *SQLiteStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at > 0 AND expires_at <= ?`, timeToUnixMillis(now))
	if err != nil {
		return 0, errors.Wrap(err, "delete expired sessions")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "count expired sessions")
	}
	return int(n), nil
}

func timeToUnixMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixMilli()
}

func unixMillisToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
