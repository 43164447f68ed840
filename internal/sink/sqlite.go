package sink

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pkg/errors"
)

// ChatRow is one archived chat message, annotated with the scores the
// pipeline computed for it at ingest time.
type ChatRow struct {
	Ts             time.Time
	Username       string
	Text           string
	Sentiment      string
	SentimentScore float64
	BotScore       float64
	Classification string
}

const schema = `CREATE TABLE IF NOT EXISTS chat_log (
  ts TEXT NOT NULL,
  username TEXT NOT NULL,
  text TEXT NOT NULL,
  sentiment TEXT NOT NULL DEFAULT '',
  sentiment_score REAL NOT NULL DEFAULT 0,
  bot_score REAL NOT NULL DEFAULT 0,
  classification TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS chat_log_ts ON chat_log (ts);`

type SQLiteSink struct {
	db *sql.DB
}

const defaultListLimit = 100

func OpenSQLite(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "apply schema")
	}
	if _, err := db.Exec(`PRAGMA journal_mode=wal;`); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "set WAL")
	}
	ApplySQLitePragmas(context.Background(), db)
	return &SQLiteSink{db: db}, nil
}

func (s *SQLiteSink) Close() error { return s.db.Close() }

func (s *SQLiteSink) Write(row ChatRow) error {
	const q = `INSERT INTO chat_log (ts, username, text, sentiment, sentiment_score, bot_score, classification)
VALUES (?, ?, ?, ?, ?, ?, ?);`
	ts := row.Ts.UTC().Format(time.RFC3339Nano)
	_, err := s.db.Exec(q, ts, row.Username, row.Text, row.Sentiment,
		row.SentimentScore, row.BotScore, row.Classification)
	return errors.Wrap(err, "insert chat row")
}

func (s *SQLiteSink) Ping() error {
	return s.db.Ping()
}

func (s *SQLiteSink) String() string {
	return fmt.Sprintf("SQLiteSink{%p}", s.db)
}

func (s *SQLiteSink) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chat_log;`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "count")
	}
	return n, nil
}

// ListRecent returns the newest rows first.
func (s *SQLiteSink) ListRecent(ctx context.Context, limit int) ([]ChatRow, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, username, text, sentiment, sentiment_score, bot_score, classification
FROM chat_log ORDER BY ts DESC LIMIT ?;`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list chat rows")
	}
	defer rows.Close()

	var out []ChatRow
	for rows.Next() {
		var (
			row ChatRow
			ts  string
		)
		if err := rows.Scan(&ts, &row.Username, &row.Text, &row.Sentiment,
			&row.SentimentScore, &row.BotScore, &row.Classification); err != nil {
			return nil, errors.Wrap(err, "scan chat row")
		}
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			row.Ts = t
		}
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate chat rows")
	}
	return out, nil
}
