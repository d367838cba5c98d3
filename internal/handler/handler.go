package handler

import (
	"context"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/Fid-Deen/fiddeen-kiosk/internal/clock"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/errs"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/feed"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/generate"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/handler/httperr"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/log"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/page"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/persist"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/render"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

type Previewer interface {
	GeneratePreviews(context.Context, generate.Request) (generate.Result, error)
}

type Storer interface {
	Store(ctx context.Context, img []byte, key string, meta render.Metadata) (persist.Result, error)
}

type FeedGenerator interface {
	Generate(context.Context, time.Time) ([]byte, error)
	Renders(context.Context, time.Time) ([]feed.Render, error)
}

type Deps struct {
	Previews      Previewer
	Storer        Storer
	Feed          FeedGenerator
	Gallery       *page.Templator
	GalleryTitle  string
	Health        *Health
	Clock         clock.Clock
	OrderIDPrefix string
	// Timeout caps a whole /generate call, fallbacks included.
	Timeout time.Duration
}

type Handler struct {
	previews    Previewer
	storer      Storer
	feed        FeedGenerator
	gallery     *page.Templator
	title       string
	health      *Health
	clock       clock.Clock
	orderPrefix string
	timeout     time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

func New(d Deps) *Handler {
	clk := lo.Ternary[clock.Clock](d.Clock != nil, d.Clock, clock.NewRealClock())
	return &Handler{
		previews:    d.Previews,
		storer:      d.Storer,
		feed:        d.Feed,
		gallery:     lo.Ternary(d.Gallery != nil, d.Gallery, &page.Templator{}),
		title:       lo.Ternary(d.GalleryTitle != "", d.GalleryTitle, "renders"),
		health:      lo.Ternary(d.Health != nil, d.Health, &Health{}),
		clock:       clk,
		orderPrefix: lo.Ternary(d.OrderIDPrefix != "", d.OrderIDPrefix, "FD"),
		timeout:     d.Timeout,
		rnd:         rand.New(rand.NewSource(clk.Now().UnixNano())),
	}
}

type generateResponse struct {
	Images []string `json:"images"`
	JobID  string   `json:"jobId"`
}

func (h *Handler) Generate(c *gin.Context) {
	var req generate.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid JSON body")
		return
	}

	ctx := c.Request.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	res, err := h.previews.GeneratePreviews(ctx, req)
	if err != nil {
		log.FromContextOrDiscard(ctx).Error("generate failed", "error", err)
		httperr.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, generateResponse{
		Images: lo.Map(res.Images, func(img []byte, _ int) string { return render.EncodeDataURL(img) }),
		JobID:  res.JobID,
	})
}

type chooseRequest struct {
	ImageDataURL string          `json:"imageDataUrl"`
	Meta         render.Metadata `json:"meta"`
}

type chooseResponse struct {
	S3URL    string `json:"s3Url"`
	Filename string `json:"filename"`
	OrderID  string `json:"orderId"`
}

func (h *Handler) Choose(c *gin.Context) {
	var req chooseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid JSON body")
		return
	}
	if req.ImageDataURL == "" {
		httperr.Abort(c, errs.Validation("Missing imageDataUrl"))
		return
	}

	img, err := render.DecodeDataURL(req.ImageDataURL)
	if err != nil {
		httperr.Abort(c, err)
		return
	}

	now := h.clock.Now()
	meta := req.Meta.Trimmed()
	meta.OrderID = h.orderID(now)
	key := render.Key(meta, now)

	ctx := c.Request.Context()
	res, err := h.storer.Store(ctx, img, key, meta)
	if err != nil {
		log.FromContextOrDiscard(ctx).Error("choose failed", "error", err, "key", key)
		httperr.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, chooseResponse{S3URL: res.URL, Filename: res.Key, OrderID: meta.OrderID})
}

func (h *Handler) orderID(at time.Time) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return render.OrderID(h.orderPrefix, at, h.rnd)
}

const (
	feedContentType    = "application/rss+xml; charset=utf-8"
	galleryContentType = "text/html; charset=utf-8"
)

// day reads the optional ?date=YYYY-MM-DD, defaulting to today.
func (h *Handler) day(c *gin.Context) (time.Time, error) {
	v := c.Query("date")
	if v == "" {
		return h.clock.Now(), nil
	}
	day, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, errs.Validation("Invalid date, expected YYYY-MM-DD")
	}
	return day, nil
}

func (h *Handler) listing(c *gin.Context) (time.Time, bool) {
	if h.feed == nil {
		httperr.Abort(c, errs.Configuration("Render listing needs the s3 storage backend or the sqlite audit backend"))
		return time.Time{}, false
	}
	day, err := h.day(c)
	if err != nil {
		httperr.Abort(c, err)
		return time.Time{}, false
	}
	return day, true
}

func (h *Handler) Feed(c *gin.Context) {
	day, ok := h.listing(c)
	if !ok {
		return
	}

	rss, err := h.feed.Generate(c.Request.Context(), day)
	if err != nil {
		log.FromContextOrDiscard(c.Request.Context()).Error("feed failed", "error", err)
		httperr.Abort(c, err)
		return
	}
	c.Data(http.StatusOK, feedContentType, rss)
}

// Gallery is the staff page of a day's renders.
func (h *Handler) Gallery(c *gin.Context) {
	day, ok := h.listing(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	renders, err := h.feed.Renders(ctx, day)
	if err != nil {
		log.FromContextOrDiscard(ctx).Error("listing failed", "error", err)
		httperr.Abort(c, err)
		return
	}
	html, err := h.gallery.Template(ctx, page.Params{Title: h.title, Day: day, Renders: renders})
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	c.Data(http.StatusOK, galleryContentType, html)
}
