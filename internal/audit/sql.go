package audit

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/Fid-Deen/fiddeen-kiosk/internal/errs"
	_ "modernc.org/sqlite"
)

const createRendersSQL = `
CREATE TABLE IF NOT EXISTS renders (
	day         TEXT NOT NULL,
	at_ms       INTEGER NOT NULL,
	name        TEXT NOT NULL,
	theme       TEXT NOT NULL,
	color       TEXT NOT NULL,
	lang        TEXT NOT NULL,
	country     TEXT NOT NULL,
	time_of_day TEXT NOT NULL,
	bag_type    TEXT NOT NULL,
	bag_color   TEXT NOT NULL,
	email       TEXT,
	order_id    TEXT NOT NULL,
	job_id      TEXT NOT NULL,
	s3_key      TEXT NOT NULL,
	s3_url      TEXT NOT NULL,
	PRIMARY KEY (day, at_ms, s3_key)
);`

const insertRenderSQL = `
INSERT INTO renders (day, at_ms, name, theme, color, lang, country, time_of_day,
	bag_type, bag_color, email, order_id, job_id, s3_key, s3_url)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`

// SQLLogger keeps the audit trail in a local SQLite file for kiosks that
// run without AWS.
type SQLLogger struct {
	db *sql.DB
}

const sqlitePragmas = "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

// withPragmas appends the connection pragmas, keeping any query the dsn
// already carries.
func withPragmas(dsn string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&" + sqlitePragmas
	}
	return dsn + "?" + sqlitePragmas
}

func OpenSQLLogger(dsn string) (*SQLLogger, error) {
	db, err := sql.Open("sqlite", withPragmas(dsn))
	if err != nil {
		return nil, errs.Wrap(err, "open audit db")
	}
	if _, err := db.Exec(createRendersSQL); err != nil {
		_ = db.Close()
		return nil, errs.Wrap(err, "create renders table")
	}
	return &SQLLogger{db: db}, nil
}

func (l *SQLLogger) Append(ctx context.Context, r Record) error {
	var email sql.NullString
	if r.Email != "" {
		email = sql.NullString{String: r.Email, Valid: true}
	}
	_, err := l.db.ExecContext(ctx, insertRenderSQL,
		r.Day(), r.At.UnixMilli(), r.Name, r.Theme, r.Color, r.Lang, r.Country, r.TimeOfDay,
		r.BagType, r.BagColor, email, r.OrderID, r.JobID, r.S3Key, r.S3URL)
	return err
}

// Day lists the records written on day (YYYY-MM-DD) in write order.
func (l *SQLLogger) Day(ctx context.Context, day string) ([]Record, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT at_ms, name, theme, color, lang, country, time_of_day, bag_type, bag_color,
			email, order_id, job_id, s3_key, s3_url
		FROM renders WHERE day = ? ORDER BY at_ms`, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r     Record
			ms    int64
			email sql.NullString
		)
		if err := rows.Scan(&ms, &r.Name, &r.Theme, &r.Color, &r.Lang, &r.Country, &r.TimeOfDay,
			&r.BagType, &r.BagColor, &email, &r.OrderID, &r.JobID, &r.S3Key, &r.S3URL); err != nil {
			return nil, err
		}
		r.At = time.UnixMilli(ms).UTC()
		r.Email = email.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func (l *SQLLogger) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}

func (l *SQLLogger) Close() error {
	return l.db.Close()
}

// Shutdown lets the injector close the database.
func (l *SQLLogger) Shutdown() error {
	return l.Close()
}
