package generate

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/Fid-Deen/fiddeen-kiosk/internal/clock"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/errs"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/image"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/log"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/prompt"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

const (
	MaxPreviews     = 3
	defaultPreviews = 3
)

type Request struct {
	Name         string `json:"name"`
	Country      string `json:"country,omitempty"`
	Theme        string `json:"theme,omitempty"`
	TimeOfDay    string `json:"timeOfDay"`
	PreviewCount int    `json:"previewCount"`
}

// Count is the number of slots a request asks for: zero means the default,
// anything else is clamped to [1, MaxPreviews].
func (r Request) Count() int {
	if r.PreviewCount == 0 {
		return defaultPreviews
	}
	return lo.Clamp(r.PreviewCount, 1, MaxPreviews)
}

type Result struct {
	Images [][]byte
	JobID  string
}

// Orchestrator fans a request out over its slots. Slot 0 goes to the
// primary provider, the rest to the secondary when one is set. Failed slots
// get one more try on the primary.
type Orchestrator struct {
	randomizer     *prompt.Randomizer
	primary        provider
	secondary      provider
	attemptTimeout time.Duration
	clock          clock.Clock

	mu  sync.Mutex
	rnd *rand.Rand
}

type Providers struct {
	Primary       image.Generator
	PrimaryName   string
	Secondary     image.Generator
	SecondaryName string
	// AttemptTimeout bounds each provider call so a hung first attempt
	// leaves time for the retry. Zero leaves calls bounded by ctx alone.
	AttemptTimeout time.Duration
}

type provider struct {
	name string
	gen  image.Generator
}

func NewOrchestrator(randomizer *prompt.Randomizer, providers Providers, clk clock.Clock) *Orchestrator {
	return &Orchestrator{
		randomizer: randomizer,
		primary:    provider{lo.Ternary(providers.PrimaryName != "", providers.PrimaryName, "primary"), providers.Primary},
		secondary:  provider{lo.Ternary(providers.SecondaryName != "", providers.SecondaryName, "secondary"), providers.Secondary},
		clock:      clk,
		rnd:        rand.New(rand.NewSource(clk.Now().UnixNano())),

		attemptTimeout: providers.AttemptTimeout,
	}
}

func (o *Orchestrator) providerFor(slot int) provider {
	if slot > 0 && o.secondary.gen != nil {
		return o.secondary
	}
	return o.primary
}

type outcome struct {
	image []byte
	err   error
}

func (o *Orchestrator) GeneratePreviews(ctx context.Context, req Request) (Result, error) {
	jobID := o.jobID()
	n := req.Count()
	logger := log.FromContextOrDiscard(ctx).WithGroup("orchestrator").With("job_id", jobID)
	logger.Info("generating previews", "slots", n, "country", req.Country, "theme", req.Theme, "time_of_day", req.TimeOfDay)

	if o.primary.gen == nil {
		return Result{}, errs.Configuration("No image provider configured")
	}

	prompts := o.randomizer.Variants(ctx, req.Country, req.Theme, req.TimeOfDay, n)
	outcomes := make([]outcome, n)

	// Slots never fail the group; every call is allowed to settle.
	var group errgroup.Group
	for slot := 0; slot < n; slot++ {
		slot := slot
		group.Go(func() error {
			outcomes[slot] = o.attempt(ctx, logger, o.providerFor(slot), slot, 1, prompts[slot])
			return nil
		})
	}
	_ = group.Wait()

	var firstErr error
	for _, out := range outcomes {
		if out.err != nil {
			firstErr = out.err
			break
		}
	}

	if ctx.Err() == nil {
		var retries errgroup.Group
		for slot := range outcomes {
			if outcomes[slot].err == nil {
				continue
			}
			slot := slot
			retries.Go(func() error {
				if retry := o.attempt(ctx, logger, o.primary, slot, 2, prompts[slot]); retry.err == nil {
					outcomes[slot] = retry
				}
				return nil
			})
		}
		_ = retries.Wait()
	}

	images := make([][]byte, 0, n)
	for _, out := range outcomes {
		if out.err == nil {
			images = append(images, out.image)
		}
	}

	if len(images) == 0 {
		logger.Error("every slot failed", "error", firstErr)
		msg := errs.Message(firstErr)
		if msg == "" {
			msg = "Image generation failed"
		}
		if errs.Is(firstErr, errs.KindConfiguration) {
			return Result{}, firstErr
		}
		return Result{}, errs.Provider(msg, firstErr)
	}

	logger.Info("previews ready", "images", len(images), "failed", n-len(images))
	return Result{Images: images, JobID: jobID}, nil
}

func (o *Orchestrator) attempt(ctx context.Context, logger *slog.Logger, p provider, slot, attempt int, pr prompt.Prompt) outcome {
	if o.attemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.attemptTimeout)
		defer cancel()
	}

	start := o.clock.Now()
	img, err := p.gen.Generate(ctx, image.Params{Prompt: pr.Positive, NegativePrompt: pr.Negative})
	if err != nil {
		logger.Warn("slot failed", "slot", slot, "provider", p.name, "attempt", attempt, "error", err)
		return outcome{err: err}
	}
	logger.Info("slot succeeded", "slot", slot, "provider", p.name, "attempt", attempt,
		"bytes", len(img), "duration", o.clock.Now().Sub(start))
	return outcome{image: img}
}

// jobID tags a request for log and UI correlation only.
func (o *Orchestrator) jobID() string {
	o.mu.Lock()
	suffix := o.rnd.Int63()
	o.mu.Unlock()

	s := strconv.FormatInt(suffix, 36)
	for len(s) < 6 {
		s = "0" + s
	}
	return fmt.Sprintf("job_%d_%s", o.clock.Now().UnixMilli(), s[len(s)-6:])
}
