package param

import (
	"context"
	"strings"
	"sync"

	"github.com/Fid-Deen/fiddeen-kiosk/internal/errs"
)

type Fetcher interface {
	Fetch(context.Context, string) (string, error)
}

// Secret is a credential given inline or as a parameter path. Parameters are
// fetched on first use and cached for the life of the process.
type Secret struct {
	Name    string
	Value   string
	Path    string
	Fetcher Fetcher

	mu     sync.Mutex
	cached string
}

func NewSecret(name, value, path string, fetcher Fetcher) *Secret {
	return &Secret{Name: name, Value: strings.TrimSpace(value), Path: strings.TrimSpace(path), Fetcher: fetcher}
}

func (s *Secret) Present() bool {
	return s != nil && (s.Value != "" || (s.Path != "" && s.Fetcher != nil))
}

func (s *Secret) Get(ctx context.Context) (string, error) {
	if s == nil || !s.Present() {
		name := "API key"
		if s != nil {
			name = s.Name
		}
		return "", errs.Configuration("Missing " + name)
	}
	if s.Value != "" {
		return s.Value, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != "" {
		return s.cached, nil
	}
	v, err := s.Fetcher.Fetch(ctx, s.Path)
	if err != nil {
		return "", errs.Wrap(err, "fetching "+s.Name)
	}
	if v == "" {
		return "", errs.Configuration("Missing " + s.Name)
	}
	s.cached = v
	return v, nil
}
