package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/Fid-Deen/fiddeen-kiosk/internal/config"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

const (
	defaultPingTimeout = 5 * time.Second
	healthNotes        = "Add ?deep=1 to verify S3 bucket access and DynamoDB table visibility."
)

type Pinger interface {
	Ping(context.Context) error
}

// Health reports which settings are present and, on request, whether the
// bucket and table are reachable. It never reports values.
type Health struct {
	Env     map[string]bool
	Storage Pinger
	Bucket  string
	Audit   Pinger
	Table   string
	Timeout time.Duration
}

// EnvPresence reports the settings the kiosk needs. A key counts as present
// when it is set inline or as a parameter store name.
func EnvPresence(cfg config.Config) map[string]bool {
	p := cfg.Providers
	return map[string]bool{
		"AWS_REGION":            cfg.AWS.Region != "",
		"S3_BUCKET":             cfg.Storage.Bucket != "",
		"AUDIT_TABLE":           cfg.Audit.Table != "",
		"STABILITY_API_KEY":     p.StabilityKey != "" || p.StabilityKeyParam != "",
		"OPENAI_API_KEY":        p.OpenAIKey != "" || p.OpenAIKeyParam != "",
		"GEMINI_API_KEY":        p.GeminiKey != "" || p.GeminiKeyParam != "",
		"AWS_ACCESS_KEY_ID":     cfg.AWS.AccessKeyID != "",
		"AWS_SECRET_ACCESS_KEY": cfg.AWS.SecretAccessKey != "",
	}
}

type check struct {
	OK     bool   `json:"ok"`
	Bucket string `json:"bucket,omitempty"`
	Table  string `json:"table,omitempty"`
	Error  string `json:"error,omitempty"`
}

type deepChecks struct {
	Performed bool   `json:"performed"`
	S3        *check `json:"s3"`
	DynamoDB  *check `json:"dynamodb"`
}

type healthResponse struct {
	Env        map[string]bool `json:"env"`
	DeepChecks deepChecks      `json:"deepChecks"`
	Notes      string          `json:"notes"`
}

func ping(ctx context.Context, p Pinger, what string) *check {
	if p == nil {
		return &check{Error: what + " backend not configured"}
	}
	if err := p.Ping(ctx); err != nil {
		return &check{Error: err.Error()}
	}
	return &check{OK: true}
}

func (h *Health) report(ctx context.Context, deep bool) healthResponse {
	env := h.Env
	if env == nil {
		env = map[string]bool{}
	}
	resp := healthResponse{Env: env, DeepChecks: deepChecks{Performed: deep}, Notes: healthNotes}
	if !deep {
		return resp
	}

	timeout := h.Timeout
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var group errgroup.Group
	group.Go(func() error {
		resp.DeepChecks.S3 = ping(ctx, h.Storage, "storage")
		if resp.DeepChecks.S3.OK {
			resp.DeepChecks.S3.Bucket = h.Bucket
		}
		return nil
	})
	group.Go(func() error {
		resp.DeepChecks.DynamoDB = ping(ctx, h.Audit, "audit")
		if resp.DeepChecks.DynamoDB.OK {
			resp.DeepChecks.DynamoDB.Table = h.Table
		}
		return nil
	})
	_ = group.Wait()
	return resp
}

// Health always answers 200; failures are reported in the body.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, h.health.report(c.Request.Context(), c.Query("deep") == "1"))
}
