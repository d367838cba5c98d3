package image

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/Fid-Deen/fiddeen-kiosk/internal/errs"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/log"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/param"
	"github.com/samber/lo"
	"google.golang.org/genai"
)

// ImagenGenerator calls Google Imagen through the Gemini API.
type ImagenGenerator struct {
	HTTPClient *http.Client
	Key        *param.Secret
	Model      string

	mu     sync.Mutex
	client *genai.Client
}

func (g *ImagenGenerator) genaiClient(ctx context.Context) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client != nil {
		return g.client, nil
	}

	key, err := g.Key.Get(ctx)
	if err != nil {
		return nil, err
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     key,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: g.HTTPClient,
	})
	if err != nil {
		return nil, errs.Wrap(err, "creating genai client")
	}
	g.client = client
	return client, nil
}

func (g *ImagenGenerator) Generate(ctx context.Context, params Params) ([]byte, error) {
	model := lo.Ternary(g.Model != "", g.Model, "imagen-4.0-generate-001")
	log := log.FromContextOrDiscard(ctx).WithGroup("imagen").With("model", model)
	log.Info("generating image via imagen")

	client, err := g.genaiClient(ctx)
	if err != nil {
		return nil, err
	}

	prompt := params.Prompt
	if params.NegativePrompt != "" {
		prompt += ". Avoid: " + params.NegativePrompt
	}
	resp, err := client.Models.GenerateImages(ctx, model, prompt, &genai.GenerateImagesConfig{
		NumberOfImages:   1,
		AspectRatio:      lo.Ternary(params.AspectRatio != "", params.AspectRatio, "1:1"),
		PersonGeneration: genai.PersonGenerationDontAllow,
	})
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return nil, providerFailure("imagen", apiErr.Code, apiErr.Message)
		}
		return nil, errs.Provider("imagen request failed", err)
	}

	img, ok := lo.Find(resp.GeneratedImages, func(i *genai.GeneratedImage) bool {
		return i != nil && i.Image != nil && len(i.Image.ImageBytes) > 0
	})
	if !ok {
		return nil, providerFailure("imagen", http.StatusOK, "no image in imagen response")
	}
	log.Info("received image via imagen", "bytes", len(img.Image.ImageBytes))
	return img.Image.ImageBytes, nil
}
