package stats

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	_ "modernc.org/sqlite"
)

const currentVersion = 1

// SQLiteStore keeps one row per session in SQLite.
type SQLiteStore struct {
	db     *sql.DB
	now    func() time.Time
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) the database at dbPath and runs migrations.
func NewSQLiteStore(dbPath string, opts ...Option) (*SQLiteStore, error) {
	o := buildOptions(opts)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create db directory")
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "failed to exec pragma %q", p)
		}
	}

	s := &SQLiteStore{db: db, now: o.now, logger: o.logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to migrate")
	}
	return s, nil
}

// NewMemorySQLiteStore creates an in-memory store for testing.
func NewMemorySQLiteStore(opts ...Option) (*SQLiteStore, error) {
	return NewSQLiteStore(":memory:", opts...)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return errors.Wrap(err, "failed to read user_version")
	}

	if version >= currentVersion {
		return nil
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}

	_, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion))
	return err
}

func (s *SQLiteStore) migrateV1() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS sessions (
		id          TEXT PRIMARY KEY,
		day         TEXT NOT NULL,
		timestamp   TEXT NOT NULL,
		duration    INTEGER NOT NULL,
		created_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_day ON sessions(day);
	`
	_, err := s.db.Exec(ddl)
	return err
}

func (s *SQLiteStore) RecordCompletedPomodoro(duration int) error {
	if err := validDuration(duration); err != nil {
		return err
	}
	now := s.now()
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, day, timestamp, duration) VALUES (?, ?, ?, ?)`,
		uuid.NewString(), now.Format(DayLayout), now.Format(TimestampLayout), duration,
	)
	if err != nil {
		return errors.Wrap(err, "failed to insert session")
	}
	return nil
}

// totals aggregates every well-formed day.
func (s *SQLiteStore) totals() (dayTotals, error) {
	rows, err := s.db.Query(
		`SELECT day, COUNT(*), COALESCE(SUM(duration), 0)
		 FROM sessions
		 WHERE duration > 0 AND date(day) = day
		 GROUP BY day`,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query day totals")
	}
	defer rows.Close()

	dt := make(dayTotals)
	for rows.Next() {
		var day string
		var t Totals
		if err := rows.Scan(&day, &t.CompletedPomodoros, &t.TotalWorkTime); err != nil {
			return nil, errors.Wrap(err, "failed to scan day totals")
		}
		dt[day] = t
	}
	return dt, errors.Wrap(rows.Err(), "failed to iterate day totals")
}

func (s *SQLiteStore) Summary() (Summary, error) {
	dt, err := s.totals()
	if err != nil {
		return Summary{}, err
	}
	return dt.summary(s.now()), nil
}

func (s *SQLiteStore) Days(n int) ([]DayTotal, error) {
	dt, err := s.totals()
	if err != nil {
		return nil, err
	}
	return dt.days(s.now(), n), nil
}

func (s *SQLiteStore) Weeks(n int) ([]WeekTotal, error) {
	dt, err := s.totals()
	if err != nil {
		return nil, err
	}
	return dt.weeks(n), nil
}

func (s *SQLiteStore) General() (General, error) {
	dt, err := s.totals()
	if err != nil {
		return General{}, err
	}
	return dt.general(), nil
}

func (s *SQLiteStore) All() (map[string]DayStats, error) {
	rows, err := s.db.Query(
		`SELECT id, day, timestamp, duration
		 FROM sessions
		 WHERE duration > 0 AND date(day) = day
		 ORDER BY day, rowid`,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query sessions")
	}
	defer rows.Close()

	days := make(map[string]DayStats)
	for rows.Next() {
		var day string
		var session Session
		if err := rows.Scan(&session.ID, &day, &session.Timestamp, &session.Duration); err != nil {
			return nil, errors.Wrap(err, "failed to scan session")
		}
		d := days[day]
		d.Sessions = append(d.Sessions, session)
		days[day] = d
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate sessions")
	}
	for key, d := range days {
		days[key] = recount(d)
	}
	return days, nil
}

func (s *SQLiteStore) ResetAll() error {
	if _, err := s.db.Exec(`DELETE FROM sessions`); err != nil {
		return errors.Wrap(err, "failed to clear sessions")
	}
	return nil
}

// Repair deletes sessions with an invalid day or a non-positive duration.
func (s *SQLiteStore) Repair() error {
	res, err := s.db.Exec(`DELETE FROM sessions WHERE duration <= 0 OR date(day) IS NULL OR date(day) != day`)
	if err != nil {
		return errors.Wrap(err, "failed to repair sessions")
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.logger.Info("removed malformed sessions", "count", n)
	}
	return nil
}
