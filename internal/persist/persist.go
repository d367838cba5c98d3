package persist

import (
	"context"

	"github.com/Fid-Deen/fiddeen-kiosk/internal/audit"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/clock"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/errs"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/log"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/render"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/store"
)

const (
	contentType = "image/png"
	kindRender  = "render"
	na          = "na"
)

type Outcome int

const (
	AuditSkipped Outcome = iota
	AuditWritten
	AuditFailed
)

func (o Outcome) String() string {
	switch o {
	case AuditWritten:
		return "written"
	case AuditFailed:
		return "failed"
	default:
		return "skipped"
	}
}

type Result struct {
	URL      string
	Key      string
	Audit    Outcome
	AuditErr error
}

type Persister struct {
	uploader store.Uploader
	audit    audit.Logger
	clock    clock.Clock
	app      string
}

// NewPersister wires an uploader and an audit log. A nil audit log skips
// auditing.
func NewPersister(uploader store.Uploader, auditLog audit.Logger, clk clock.Clock, app string) *Persister {
	return &Persister{uploader: uploader, audit: auditLog, clock: clk, app: app}
}

func orNA(v string) string {
	if v == "" {
		return na
	}
	return v
}

func (p *Persister) tags(m render.Metadata) map[string]string {
	tags := map[string]string{
		"app":       p.app,
		"kind":      kindRender,
		"name":      m.Name,
		"theme":     m.Theme,
		"color":     m.Color(),
		"lang":      m.Lang,
		"country":   m.Country,
		"timeOfDay": m.TimeOfDay,
		"bagType":   m.BagType,
	}
	for k, v := range tags {
		tags[k] = orNA(store.SanitizeTag(v))
	}
	return tags
}

func metadata(m render.Metadata) map[string]string {
	md := map[string]string{
		"name":      m.Name,
		"theme":     m.Theme,
		"color":     m.Color(),
		"lang":      m.Lang,
		"country":   m.Country,
		"timeofday": m.TimeOfDay,
		"bagtype":   m.BagType,
		"bagcolor":  m.BagColor,
		"orderid":   m.OrderID,
		"jobid":     m.JobID,
	}
	if m.Email != "" {
		md["email"] = m.Email
	}
	return md
}

// Store uploads img under key and then appends the audit record. Only the
// upload can fail the call; audit problems are reported in Result.
func (p *Persister) Store(ctx context.Context, img []byte, key string, meta render.Metadata) (Result, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("persist").With("key", key, "order_id", meta.OrderID)

	url, err := p.uploader.Upload(ctx, store.UploadParams{
		Key:         key,
		Data:        img,
		ContentType: contentType,
		Tags:        p.tags(meta),
		Metadata:    metadata(meta),
	})
	if err != nil {
		log.Error("upload failed", "error", err)
		if errs.Is(err, errs.KindConfiguration) || errs.Is(err, errs.KindPersistence) {
			return Result{}, err
		}
		return Result{}, errs.Persistence("Upload failed", err)
	}

	res := Result{URL: url, Key: key}
	if p.audit == nil {
		log.Info("stored render", "url", url, "audit", res.Audit.String())
		return res, nil
	}

	err = p.audit.Append(ctx, audit.Record{
		At:        p.clock.Now(),
		Name:      meta.Name,
		Theme:     meta.Theme,
		Color:     meta.Color(),
		Lang:      meta.Lang,
		Country:   meta.Country,
		TimeOfDay: meta.TimeOfDay,
		BagType:   meta.BagType,
		BagColor:  meta.BagColor,
		Email:     meta.Email,
		OrderID:   meta.OrderID,
		JobID:     meta.JobID,
		S3Key:     key,
		S3URL:     url,
	})
	if err != nil {
		res.Audit, res.AuditErr = AuditFailed, err
		log.Warn("audit append failed", "error", err)
	} else {
		res.Audit = AuditWritten
	}
	log.Info("stored render", "url", url, "audit", res.Audit.String())
	return res, nil
}
