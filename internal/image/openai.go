package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/Fid-Deen/fiddeen-kiosk/internal/errs"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/log"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/param"
	"github.com/samber/lo"
)

const openAIURL = "https://api.openai.com/v1/images/generations"

type openAIRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

type openAIResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

// OpenAIGenerator calls the images API. It has no negative prompt field, so
// the denylist rides along as an "Avoid:" clause.
type OpenAIGenerator struct {
	Client *http.Client
	Key    *param.Secret
	URL    string
	Model  string
}

func (g *OpenAIGenerator) Generate(ctx context.Context, params Params) ([]byte, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("openai").With("model", g.Model)
	log.Info("generating image via api.openai.com")

	key, err := g.Key.Get(ctx)
	if err != nil {
		return nil, err
	}

	prompt := params.Prompt
	if params.NegativePrompt != "" {
		prompt += ". Avoid: " + params.NegativePrompt
	}
	body, err := json.Marshal(openAIRequest{
		Model:  lo.Ternary(g.Model != "", g.Model, "gpt-image-1"),
		Prompt: prompt,
		N:      1,
		Size:   "1024x1024",
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, lo.Ternary(g.URL != "", g.URL, openAIURL), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, errs.Provider("openai request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn("openai rejected request", "status", resp.StatusCode)
		return nil, readFailure("openai", resp)
	}

	var out openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errs.Provider("malformed openai response", err)
	}
	if len(out.Data) == 0 || out.Data[0].B64JSON == "" {
		return nil, providerFailure("openai", resp.StatusCode, "no image in openai response")
	}
	data, err := base64.StdEncoding.DecodeString(out.Data[0].B64JSON)
	if err != nil {
		return nil, errs.Provider("malformed openai image payload", err)
	}
	log.Info("received image via api.openai.com", "bytes", len(data))
	return data, nil
}
