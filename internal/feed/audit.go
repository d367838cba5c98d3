package feed

import (
	"context"
	"time"

	"github.com/Fid-Deen/fiddeen-kiosk/internal/audit"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/log"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/render"
	"github.com/samber/lo"
)

// DayLister is an audit trail that can list one day's records.
type DayLister interface {
	Day(ctx context.Context, day string) ([]audit.Record, error)
}

// AuditSource lists renders from the audit trail. It serves kiosks that
// store renders outside S3.
type AuditSource struct {
	Log   DayLister
	Title string
}

func (a *AuditSource) Renders(ctx context.Context, day time.Time) ([]Render, error) {
	d := day.UTC().Format("2006-01-02")
	records, err := a.Log.Day(ctx, d)
	if err != nil {
		return nil, err
	}
	log.FromContextOrDiscard(ctx).WithGroup("feed").Info("renders listed", "day", d, "count", len(records))
	return lo.Map(records, func(r audit.Record, _ int) Render {
		return Render{
			Key:       r.S3Key,
			URL:       r.S3URL,
			Name:      r.Name,
			Theme:     r.Theme,
			Country:   r.Country,
			TimeOfDay: r.TimeOfDay,
			BagColor:  r.BagColor,
			BagType:   r.BagType,
			OrderID:   r.OrderID,
			Updated:   r.At,
		}
	}), nil
}

func (a *AuditSource) Generate(ctx context.Context, day time.Time) ([]byte, error) {
	renders, err := a.Renders(ctx, day)
	if err != nil {
		return nil, err
	}
	return toRSS(a.Title, render.DayPrefix(day), day, renders)
}
