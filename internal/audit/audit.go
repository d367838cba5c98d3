// Package audit records every chosen render. Writes are best-effort: the
// caller logs a failed append and carries on.
package audit

import (
	"context"
	"time"
)

type Record struct {
	At        time.Time
	Name      string
	Theme     string
	Color     string
	Lang      string
	Country   string
	TimeOfDay string
	BagType   string
	BagColor  string
	Email     string
	OrderID   string
	JobID     string
	S3Key     string
	S3URL     string
}

// Day is the UTC date a record is partitioned under.
func (r Record) Day() string {
	return r.At.UTC().Format("2006-01-02")
}

type Logger interface {
	Append(context.Context, Record) error
}

type Pinger interface {
	Ping(context.Context) error
}

// Discard drops every record.
type Discard struct{}

func (Discard) Append(context.Context, Record) error { return nil }
