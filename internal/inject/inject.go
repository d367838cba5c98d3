package inject

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Fid-Deen/fiddeen-kiosk/internal/audit"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/clock"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/config"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/feed"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/generate"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/handler"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/image"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/log"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/param"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/persist"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/prompt"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/store"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/gin-gonic/gin"
	"github.com/samber/do"
	"github.com/samber/lo"
)

// requestSlack leaves room for encoding after the last provider call returns.
const requestSlack = 5 * time.Second

// Setup registers every service lazily. Nothing talks to AWS or a provider
// until a request needs it.
func Setup(ctx context.Context, cfg config.Config) *do.Injector {
	logger := log.FromContextOrDiscard(ctx)

	injector := do.NewWithOpts(&do.InjectorOpts{
		Logf: func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...))
		},
	})
	do.ProvideValue[config.Config](injector, cfg)
	do.ProvideValue[clock.Clock](injector, clock.NewRealClock())

	do.Provide[aws.Config](injector, func(i *do.Injector) (aws.Config, error) {
		var opts []func(*awsconfig.LoadOptions) error
		if cfg.AWS.Region != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.AWS.Region))
		}
		return awsconfig.LoadDefaultConfig(ctx, opts...)
	})
	do.Provide[*ssm.Client](injector, func(i *do.Injector) (*ssm.Client, error) {
		return ssm.NewFromConfig(do.MustInvoke[aws.Config](i)), nil
	})
	do.Provide[*s3.Client](injector, func(i *do.Injector) (*s3.Client, error) {
		return s3.NewFromConfig(do.MustInvoke[aws.Config](i)), nil
	})
	do.Provide[*dynamodb.Client](injector, func(i *do.Injector) (*dynamodb.Client, error) {
		return dynamodb.NewFromConfig(do.MustInvoke[aws.Config](i)), nil
	})
	do.ProvideValue[*http.Client](injector, &http.Client{Timeout: cfg.Providers.Timeout})

	do.Provide[param.Fetcher](injector, func(i *do.Injector) (param.Fetcher, error) {
		return param.NewParameterStoreFetcher(do.MustInvoke[*ssm.Client](i)), nil
	})
	do.Provide[*prompt.Randomizer](injector, func(i *do.Injector) (*prompt.Randomizer, error) {
		return prompt.NewRandomizer(prompt.Default()), nil
	})
	do.Provide[*image.Registry](injector, newRegistry)
	do.Provide[*generate.Orchestrator](injector, newOrchestrator)

	do.Provide[store.Uploader](injector, newUploader)
	do.Provide[audit.Logger](injector, newAuditLogger)
	do.Provide[*persist.Persister](injector, func(i *do.Injector) (*persist.Persister, error) {
		return persist.NewPersister(
			do.MustInvoke[store.Uploader](i),
			do.MustInvoke[audit.Logger](i),
			do.MustInvoke[clock.Clock](i),
			cfg.App.Name,
		), nil
	})

	do.Provide[*handler.Handler](injector, newHandler)
	do.Provide[*gin.Engine](injector, func(i *do.Injector) (*gin.Engine, error) {
		return handler.NewEngine(cfg, logger, do.MustInvoke[*handler.Handler](i)), nil
	})
	do.Provide[*handler.LambdaAdapter](injector, func(i *do.Injector) (*handler.LambdaAdapter, error) {
		return handler.NewLambdaAdapter(do.MustInvoke[*gin.Engine](i)), nil
	})

	return injector
}

// lazyFetcher builds the parameter store client on the first read of a
// secret path.
type lazyFetcher struct {
	i *do.Injector
}

func (f lazyFetcher) Fetch(ctx context.Context, path string) (string, error) {
	fetcher, err := do.Invoke[param.Fetcher](f.i)
	if err != nil {
		return "", err
	}
	return fetcher.Fetch(ctx, path)
}

func newRegistry(i *do.Injector) (*image.Registry, error) {
	cfg := do.MustInvoke[config.Config](i)
	client := do.MustInvoke[*http.Client](i)
	fetcher := lazyFetcher{i}
	p := cfg.Providers

	registry := image.NewRegistry()
	registry.Register("stability", &image.StabilityGenerator{
		Client:   client,
		Key:      param.NewSecret("STABILITY_API_KEY", p.StabilityKey, p.StabilityKeyParam, fetcher),
		Model:    p.StabilityModel,
		CFGScale: p.StabilityCFGScale,
	})
	registry.Register("openai", &image.OpenAIGenerator{
		Client: client,
		Key:    param.NewSecret("OPENAI_API_KEY", p.OpenAIKey, p.OpenAIKeyParam, fetcher),
		Model:  p.OpenAIModel,
	})
	registry.Register("imagen", &image.ImagenGenerator{
		HTTPClient: client,
		Key:        param.NewSecret("GEMINI_API_KEY", p.GeminiKey, p.GeminiKeyParam, fetcher),
		Model:      p.ImagenModel,
	})
	return registry, nil
}

func lookup(registry *image.Registry, name string) image.Generator {
	gen, err := registry.Lookup(name)
	if err != nil {
		return image.Unavailable(err)
	}
	return gen
}

func newOrchestrator(i *do.Injector) (*generate.Orchestrator, error) {
	cfg := do.MustInvoke[config.Config](i)
	registry := do.MustInvoke[*image.Registry](i)

	providers := generate.Providers{
		Primary:        lookup(registry, cfg.Providers.Primary),
		PrimaryName:    cfg.Providers.Primary,
		AttemptTimeout: cfg.Providers.Timeout,
	}
	if cfg.Providers.Secondary != "" {
		providers.Secondary = lookup(registry, cfg.Providers.Secondary)
		providers.SecondaryName = cfg.Providers.Secondary
	}
	return generate.NewOrchestrator(do.MustInvoke[*prompt.Randomizer](i), providers, do.MustInvoke[clock.Clock](i)), nil
}

// requestTimeout covers a first round of attempts plus one concurrent
// fallback round, each bounded by the per-call provider timeout.
func requestTimeout(attempt time.Duration) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return 2*attempt + requestSlack
}

func newUploader(i *do.Injector) (store.Uploader, error) {
	cfg := do.MustInvoke[config.Config](i)
	switch cfg.Storage.Backend {
	case "file":
		return &store.FileUploader{Dir: cfg.Storage.Dir}, nil
	case "s3", "":
		return &store.S3Uploader{
			Client: do.MustInvoke[*s3.Client](i),
			Bucket: cfg.Storage.Bucket,
			Region: cfg.AWS.Region,
		}, nil
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.Storage.Backend)
	}
}

func newAuditLogger(i *do.Injector) (audit.Logger, error) {
	cfg := do.MustInvoke[config.Config](i)
	switch cfg.Audit.Backend {
	case "none":
		return audit.Discard{}, nil
	case "sqlite":
		return audit.OpenSQLLogger(cfg.Audit.DSN)
	case "dynamodb", "":
		return &audit.DynamoLogger{Client: do.MustInvoke[*dynamodb.Client](i), Table: cfg.Audit.Table}, nil
	default:
		return nil, fmt.Errorf("unknown AUDIT_BACKEND %q", cfg.Audit.Backend)
	}
}

func newHandler(i *do.Injector) (*handler.Handler, error) {
	cfg := do.MustInvoke[config.Config](i)

	uploader, err := do.Invoke[store.Uploader](i)
	if err != nil {
		return nil, err
	}
	auditLog, err := do.Invoke[audit.Logger](i)
	if err != nil {
		return nil, err
	}
	persister, err := do.Invoke[*persist.Persister](i)
	if err != nil {
		return nil, err
	}

	health := &handler.Health{
		Env:    handler.EnvPresence(cfg),
		Bucket: lo.Ternary(cfg.Storage.Backend == "file", cfg.Storage.Dir, cfg.Storage.Bucket),
		Table:  lo.Ternary(cfg.Audit.Backend == "sqlite", cfg.Audit.DSN, cfg.Audit.Table),
	}
	if p, ok := uploader.(handler.Pinger); ok {
		health.Storage = p
	}
	if p, ok := auditLog.(handler.Pinger); ok {
		health.Audit = p
	}

	deps := handler.Deps{
		Previews:      do.MustInvoke[*generate.Orchestrator](i),
		Storer:        persister,
		Health:        health,
		Clock:         do.MustInvoke[clock.Clock](i),
		GalleryTitle:  cfg.App.Name + " renders",
		OrderIDPrefix: cfg.App.OrderIDPrefix,
		Timeout:       requestTimeout(cfg.Providers.Timeout),
	}
	if s3Uploader, ok := uploader.(*store.S3Uploader); ok {
		deps.Feed = &feed.Generator{
			Client: do.MustInvoke[*s3.Client](i),
			Bucket: s3Uploader.Bucket,
			Region: s3Uploader.Region,
			Title:  deps.GalleryTitle,
		}
	} else if lister, ok := auditLog.(feed.DayLister); ok {
		deps.Feed = &feed.AuditSource{Log: lister, Title: deps.GalleryTitle}
	}
	return handler.New(deps), nil
}
