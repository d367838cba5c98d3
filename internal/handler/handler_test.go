package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Fid-Deen/fiddeen-kiosk/internal/clock"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/config"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/errs"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/feed"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/generate"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/log"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/persist"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/render"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
)

type fakePreviewer struct {
	req generate.Request
	res generate.Result
	err error
}

func (f *fakePreviewer) GeneratePreviews(_ context.Context, req generate.Request) (generate.Result, error) {
	f.req = req
	return f.res, f.err
}

type fakeStorer struct {
	calls int
	img   []byte
	key   string
	meta  render.Metadata
	err   error
}

func (f *fakeStorer) Store(_ context.Context, img []byte, key string, meta render.Metadata) (persist.Result, error) {
	f.calls++
	f.img, f.key, f.meta = img, key, meta
	if f.err != nil {
		return persist.Result{}, f.err
	}
	return persist.Result{URL: "https://kiosk.s3.eu-west-1.amazonaws.com/" + key, Key: key, Audit: persist.AuditWritten}, nil
}

type fakeFeed struct {
	day time.Time
	err error
}

func (f *fakeFeed) Generate(_ context.Context, day time.Time) ([]byte, error) {
	f.day = day
	return []byte("<rss></rss>"), f.err
}

func (f *fakeFeed) Renders(_ context.Context, day time.Time) ([]feed.Render, error) {
	f.day = day
	if f.err != nil {
		return nil, f.err
	}
	return []feed.Render{{Key: "renders/2025/10/30/sara_1.png", Name: "Sara", OrderID: "FD-2025-10-30-ZZZZZZ", Updated: day}}, nil
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

var png = []byte("\x89PNG\r\n\x1a\nfake")

type HandlerTestSuite struct {
	suite.Suite
	engine   *gin.Engine
	previews *fakePreviewer
	storer   *fakeStorer
	feed     *fakeFeed
	health   *Health
	now      time.Time
}

func (s *HandlerTestSuite) SetupTest() {
	s.now = time.Date(2025, 10, 30, 18, 30, 0, 0, time.UTC)
	s.previews = &fakePreviewer{res: generate.Result{Images: [][]byte{png, png}, JobID: "job_1761849000000_abc123"}}
	s.storer = &fakeStorer{}
	s.feed = &fakeFeed{}
	s.health = &Health{
		Env:     map[string]bool{"AWS_REGION": true, "S3_BUCKET": true, "STABILITY_API_KEY": true},
		Storage: fakePinger{},
		Bucket:  "kiosk",
		Audit:   fakePinger{err: errors.New("ResourceNotFoundException: table missing")},
		Table:   "fiddeen_renders",
	}

	cfg := config.NewTestConfig()
	h := New(Deps{
		Previews:      s.previews,
		Storer:        s.storer,
		Feed:          s.feed,
		GalleryTitle:  "fiddeen renders",
		Health:        s.health,
		Clock:         clock.NewMockClock(s.now),
		OrderIDPrefix: "FD",
		Timeout:       time.Second,
	})
	s.engine = NewEngine(cfg, log.New(io.Discard, log.Options{}), h)
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}

func (s *HandlerTestSuite) do(method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerTestSuite) decode(rec *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func dataURL() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}

// ================================================================================
// /generate
// ================================================================================

func (s *HandlerTestSuite) TestGenerate() {
	rec := s.do(http.MethodPost, "/generate", `{"name":"Bilal","country":"morocco","theme":"peaceful","timeOfDay":"daytime","previewCount":3}`)
	s.Equal(http.StatusOK, rec.Code)

	out := s.decode(rec)
	s.Equal("job_1761849000000_abc123", out["jobId"])
	images := out["images"].([]any)
	s.Len(images, 2)
	s.Equal(dataURL(), images[0])
	s.Equal("morocco", s.previews.req.Country)
	s.Equal(3, s.previews.req.PreviewCount)
}

func (s *HandlerTestSuite) TestGenerateUnderAPIPrefix() {
	rec := s.do(http.MethodPost, "/api/generate", `{"name":"Bilal"}`)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *HandlerTestSuite) TestGenerateErrors() {
	cases := []struct {
		name   string
		err    error
		body   string
		status int
		msg    string
	}{
		{name: "total provider failure", err: errs.Provider(`{"errors":["insufficient credits"]}`, nil), status: http.StatusBadGateway, msg: `{"errors":["insufficient credits"]}`},
		{name: "missing key", err: errs.Configuration("Missing STABILITY_API_KEY"), status: http.StatusInternalServerError, msg: "Missing STABILITY_API_KEY"},
		{name: "unexpected", err: errors.New("nil map"), status: http.StatusInternalServerError, msg: "Server error"},
		{name: "malformed json", body: `{"name":`, status: http.StatusBadRequest, msg: "Invalid JSON body"},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.previews.err = tc.err
			body := tc.body
			if body == "" {
				body = `{"name":"Bilal"}`
			}
			rec := s.do(http.MethodPost, "/generate", body)
			s.Equal(tc.status, rec.Code)
			s.Equal(tc.msg, s.decode(rec)["error"])
		})
	}
}

// ================================================================================
// /generate/choose
// ================================================================================

func (s *HandlerTestSuite) TestChoose() {
	body := `{"imageDataUrl":"` + dataURL() + `","meta":{"name":" Bilal ","country":"morocco","theme":"peaceful","timeOfDay":"daytime","bagColor":"beige","bagType":"tote","jobId":"job_1"}}`
	rec := s.do(http.MethodPost, "/generate/choose", body)
	s.Equal(http.StatusOK, rec.Code, rec.Body.String())

	out := s.decode(rec)
	key := "renders/2025/10/30/bilal_peaceful_daytime_morocco_1761849000000.png"
	s.Equal(key, out["filename"])
	s.Equal("https://kiosk.s3.eu-west-1.amazonaws.com/"+key, out["s3Url"])
	s.Regexp(`^FD-2025-10-30-[0-9A-Z]{6}$`, out["orderId"])

	s.Equal(1, s.storer.calls)
	s.Equal(png, s.storer.img)
	s.Equal("Bilal", s.storer.meta.Name)
	s.Equal("beige", s.storer.meta.Color())
	s.Equal(out["orderId"], s.storer.meta.OrderID)
}

func (s *HandlerTestSuite) TestChooseMissingImage() {
	rec := s.do(http.MethodPost, "/generate/choose", `{"meta":{"name":"Bilal"}}`)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("Missing imageDataUrl", s.decode(rec)["error"])
	s.Zero(s.storer.calls)
}

func (s *HandlerTestSuite) TestChooseInvalidDataURL() {
	rec := s.do(http.MethodPost, "/generate/choose", `{"imageDataUrl":"not-a-data-url"}`)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("Invalid imageDataUrl", s.decode(rec)["error"])
	s.Zero(s.storer.calls)
}

func (s *HandlerTestSuite) TestChooseStoreFailure() {
	s.storer.err = errs.Persistence("Upload failed", errors.New("AccessDenied"))
	rec := s.do(http.MethodPost, "/generate/choose", `{"imageDataUrl":"`+dataURL()+`"}`)
	s.Equal(http.StatusBadGateway, rec.Code)
	s.Equal("Upload failed", s.decode(rec)["error"])
	s.NotContains(rec.Body.String(), "AccessDenied")
}

func (s *HandlerTestSuite) TestChooseUnconfigured() {
	s.storer.err = errs.Configuration("Missing AWS_REGION or S3_BUCKET environment variables")
	rec := s.do(http.MethodPost, "/generate/choose", `{"imageDataUrl":"`+dataURL()+`"}`)
	s.Equal(http.StatusInternalServerError, rec.Code)
}

// ================================================================================
// /health
// ================================================================================

func (s *HandlerTestSuite) TestHealthShallow() {
	rec := s.do(http.MethodGet, "/health", "")
	s.Equal(http.StatusOK, rec.Code)

	out := s.decode(rec)
	env := out["env"].(map[string]any)
	s.Equal(true, env["S3_BUCKET"])
	checks := out["deepChecks"].(map[string]any)
	s.Equal(false, checks["performed"])
	s.Nil(checks["s3"])
	s.Nil(checks["dynamodb"])
}

func (s *HandlerTestSuite) TestHealthDeep() {
	rec := s.do(http.MethodGet, "/health?deep=1", "")
	s.Equal(http.StatusOK, rec.Code)

	checks := s.decode(rec)["deepChecks"].(map[string]any)
	s.Equal(true, checks["performed"])
	s3 := checks["s3"].(map[string]any)
	s.Equal(true, s3["ok"])
	s.Equal("kiosk", s3["bucket"])
	ddb := checks["dynamodb"].(map[string]any)
	s.Equal(false, ddb["ok"])
	s.Equal("ResourceNotFoundException: table missing", ddb["error"])
}

func (s *HandlerTestSuite) TestHealthNeverEchoesSecrets() {
	cfg := config.NewTestConfig()
	cfg.Providers.StabilityKey = "sk-very-secret"
	cfg.AWS.SecretAccessKey = "aws-very-secret"
	s.health.Env = EnvPresence(cfg)

	rec := s.do(http.MethodGet, "/health?deep=1", "")
	s.NotContains(rec.Body.String(), "very-secret")
	env := s.decode(rec)["env"].(map[string]any)
	s.Equal(true, env["STABILITY_API_KEY"])
	s.Equal(false, env["OPENAI_API_KEY"])
}

// ================================================================================
// /renders/feed
// ================================================================================

func (s *HandlerTestSuite) TestFeed() {
	rec := s.do(http.MethodGet, "/renders/feed?date=2025-10-29", "")
	s.Equal(http.StatusOK, rec.Code)
	s.Equal(feedContentType, rec.Header().Get("Content-Type"))
	s.Equal("<rss></rss>", rec.Body.String())
	s.Equal("2025-10-29", s.feed.day.Format("2006-01-02"))
}

func (s *HandlerTestSuite) TestFeedDefaultsToToday() {
	rec := s.do(http.MethodGet, "/renders/feed", "")
	s.Equal(http.StatusOK, rec.Code)
	s.True(s.now.Equal(s.feed.day))
}

func (s *HandlerTestSuite) TestFeedBadDate() {
	rec := s.do(http.MethodGet, "/renders/feed?date=30-10-2025", "")
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerTestSuite) TestFeedListingFailure() {
	s.feed.err = errors.New("AccessDenied")
	rec := s.do(http.MethodGet, "/renders/feed", "")
	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Equal("Server error", s.decode(rec)["error"])
}

func (s *HandlerTestSuite) TestGallery() {
	rec := s.do(http.MethodGet, "/renders?date=2025-10-30", "")
	s.Equal(http.StatusOK, rec.Code)
	s.Equal(galleryContentType, rec.Header().Get("Content-Type"))
	s.Contains(rec.Body.String(), "fiddeen renders · 2025-10-30")
	s.Contains(rec.Body.String(), "FD-2025-10-30-ZZZZZZ")
}

// ================================================================================
// lambda
// ================================================================================

func (s *HandlerTestSuite) TestLambdaAdapter() {
	adapter := NewLambdaAdapter(s.engine)
	resp, err := adapter.Handle(context.Background(), proxyEvent(http.MethodPost, "/generate/choose",
		`{"imageDataUrl":"`+dataURL()+`"}`, true))
	s.Require().NoError(err)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.False(resp.IsBase64Encoded)
	s.Contains(resp.Body, `"orderId":"FD-2025-10-30-`)
	s.Contains(resp.Headers["Content-Type"], "application/json")
}

func (s *HandlerTestSuite) TestLambdaAdapterQuery() {
	adapter := NewLambdaAdapter(s.engine)
	ev := proxyEvent(http.MethodGet, "/health", "", false)
	ev.QueryStringParameters = map[string]string{"deep": "1"}
	resp, err := adapter.Handle(context.Background(), ev)
	s.Require().NoError(err)

	var out map[string]any
	s.Require().NoError(json.NewDecoder(bytes.NewBufferString(resp.Body)).Decode(&out))
	s.Equal(true, out["deepChecks"].(map[string]any)["performed"])
}

func (s *HandlerTestSuite) TestLambdaAdapterBadBase64() {
	adapter := NewLambdaAdapter(s.engine)
	ev := proxyEvent(http.MethodPost, "/generate", "", false)
	ev.Body, ev.IsBase64Encoded = "@@@", true
	resp, err := adapter.Handle(context.Background(), ev)
	s.Require().NoError(err)
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}
