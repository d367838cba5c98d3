package image

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/Fid-Deen/fiddeen-kiosk/internal/errs"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/log"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/param"
	"github.com/samber/lo"
)

const stabilityURL = "https://api.stability.ai/v2beta/stable-image/generate/sd3"

type StabilityGenerator struct {
	Client   *http.Client
	Key      *param.Secret
	URL      string
	Model    string
	CFGScale int
}

func (g *StabilityGenerator) Generate(ctx context.Context, params Params) ([]byte, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("stability").With("model", g.Model)
	log.Info("generating image via api.stability.ai")

	key, err := g.Key.Get(ctx)
	if err != nil {
		return nil, err
	}

	body, contentType, err := g.form(params)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, lo.Ternary(g.URL != "", g.URL, stabilityURL), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Accept", "image/*")

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, errs.Provider("stability request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn("stability rejected request", "status", resp.StatusCode)
		return nil, readFailure("stability", resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Provider("reading stability response", err)
	}
	if len(data) == 0 {
		return nil, providerFailure("stability", resp.StatusCode, "empty image payload")
	}
	log.Info("received image via api.stability.ai", "bytes", len(data), "seed", resp.Header.Get("seed"))
	return data, nil
}

func (g *StabilityGenerator) cfgScale(params Params) int {
	switch {
	case params.CFGScale > 0:
		return params.CFGScale
	case g.CFGScale > 0:
		return g.CFGScale
	}
	return 7
}

func (g *StabilityGenerator) form(params Params) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"prompt", params.Prompt},
		{"negative_prompt", params.NegativePrompt},
		{"model", lo.Ternary(g.Model != "", g.Model, "sd3.5-large")},
		{"output_format", "png"},
		{"cfg_scale", strconv.Itoa(g.cfgScale(params))},
		{"aspect_ratio", lo.Ternary(params.AspectRatio != "", params.AspectRatio, "1:1")},
	}
	if params.Seed != "" {
		fields = append(fields, [2]string{"seed", params.Seed})
	}
	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
