package image

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/Fid-Deen/fiddeen-kiosk/internal/errs"
)

type Params struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	AspectRatio    string `json:"aspect_ratio,omitempty"`
	Seed           string `json:"seed,omitempty"`
	// CFGScale overrides the provider default where the provider has one.
	CFGScale int `json:"cfg_scale,omitempty"`
}

// Generator turns one prompt into one PNG. Implementations never retry.
type Generator interface {
	Generate(context.Context, Params) ([]byte, error)
}

// ProviderError is a non-success answer from a provider. Body is the raw
// response text and is what the caller ends up seeing.
type ProviderError struct {
	Provider string
	Status   int
	Body     string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.Provider, e.Status, e.Body)
}

func providerFailure(provider string, status int, body string) error {
	msg := strings.TrimSpace(body)
	if msg == "" {
		msg = provider + " API error"
	}
	return errs.Provider(msg, &ProviderError{Provider: provider, Status: status, Body: body})
}

// readFailure drains a non-2xx response into a provider error.
func readFailure(provider string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	return providerFailure(provider, resp.StatusCode, string(body))
}

type Registry struct {
	generators map[string]Generator
}

func NewRegistry() *Registry {
	return &Registry{generators: map[string]Generator{}}
}

func (r *Registry) Register(name string, g Generator) {
	r.generators[strings.ToLower(name)] = g
}

func (r *Registry) Lookup(name string) (Generator, error) {
	if g, ok := r.generators[strings.ToLower(strings.TrimSpace(name))]; ok {
		return g, nil
	}
	return nil, errs.Configuration(fmt.Sprintf("Unknown image provider %q", name))
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.generators))
	for n := range r.generators {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

type unavailable struct {
	err error
}

// Unavailable is a Generator that fails every call with err. It stands in
// for a provider that could not be set up, so the failure surfaces per
// request instead of at startup.
func Unavailable(err error) Generator {
	return unavailable{err}
}

func (u unavailable) Generate(context.Context, Params) ([]byte, error) {
	return nil, u.err
}
