package feed

import (
	"context"
	"fmt"
	"mime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Fid-Deen/fiddeen-kiosk/internal/errs"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/log"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/render"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gorilla/feeds"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// headConcurrency bounds the HeadObject calls in flight per listing.
const headConcurrency = 8

type S3API interface {
	s3.ListObjectsV2APIClient
	HeadObject(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Render is one stored render as staff see it.
type Render struct {
	Key       string
	URL       string
	Name      string
	Theme     string
	Country   string
	TimeOfDay string
	BagColor  string
	BagType   string
	OrderID   string
	Updated   time.Time
}

func (r Render) Title() string {
	title := strings.Join(lo.Compact([]string{r.Name, r.Theme, r.Country, r.TimeOfDay}), " · ")
	if title == "" {
		return r.Key
	}
	return title
}

// Generator lists a day's renders from the bucket.
type Generator struct {
	Client S3API
	Bucket string
	Region string
	Title  string
}

func (g *Generator) link(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", g.Bucket, g.Region, key)
}

// decodeMeta undoes the RFC 2047 encoding applied on upload. Values that
// fail to decode are kept as they are.
func decodeMeta(meta map[string]string) map[string]string {
	dec := new(mime.WordDecoder)
	return lo.MapValues(meta, func(v, _ string) string {
		if s, err := dec.DecodeHeader(v); err == nil {
			return s
		}
		return v
	})
}

func (g *Generator) render(meta map[string]string, key string, updated time.Time) Render {
	meta = decodeMeta(meta)
	return Render{
		Key:       key,
		URL:       g.link(key),
		Name:      meta["name"],
		Theme:     meta["theme"],
		Country:   meta["country"],
		TimeOfDay: meta["timeofday"],
		BagColor:  meta["bagcolor"],
		BagType:   meta["bagtype"],
		OrderID:   meta["orderid"],
		Updated:   updated,
	}
}

// Renders returns the renders stored on day, oldest first.
func (g *Generator) Renders(ctx context.Context, day time.Time) ([]Render, error) {
	if g.Bucket == "" || g.Region == "" {
		return nil, errs.Configuration("Missing AWS_REGION or S3_BUCKET environment variables")
	}

	prefix := render.DayPrefix(day)
	log := log.FromContextOrDiscard(ctx).WithGroup("feed").With("prefix", prefix)
	log.Info("listing renders")

	pager := s3.NewListObjectsV2Paginator(g.Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(g.Bucket),
		Prefix: aws.String(prefix),
	})

	var (
		mu      sync.Mutex
		renders []Render
	)
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(headConcurrency)
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			_ = group.Wait()
			return nil, err
		}

		objs := lo.Filter(page.Contents, func(o s3types.Object, _ int) bool {
			return strings.HasSuffix(aws.ToString(o.Key), ".png")
		})

		for _, obj := range objs {
			key := aws.ToString(obj.Key)
			group.Go(func() error {
				out, err := g.Client.HeadObject(ctx, &s3.HeadObjectInput{
					Bucket: aws.String(g.Bucket),
					Key:    aws.String(key),
				})
				if err != nil {
					return err
				}

				r := g.render(out.Metadata, key, aws.ToTime(out.LastModified))
				mu.Lock()
				renders = append(renders, r)
				mu.Unlock()
				return nil
			})
		}
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(renders, func(i, j int) bool {
		return renders[i].Updated.Before(renders[j].Updated)
	})
	log.Info("renders listed", "count", len(renders))
	return renders, nil
}

// Generate renders the day's renders as an RSS feed.
func (g *Generator) Generate(ctx context.Context, day time.Time) ([]byte, error) {
	renders, err := g.Renders(ctx, day)
	if err != nil {
		return nil, err
	}
	return toRSS(g.Title, g.link(render.DayPrefix(day)), day, renders)
}

func toRSS(title, link string, day time.Time, renders []Render) ([]byte, error) {
	feed := feeds.Feed{
		Title:       title,
		Description: "Renders chosen on " + day.UTC().Format("2006-01-02"),
		Link:        &feeds.Link{Href: link},
		Updated:     day,
	}
	for _, r := range renders {
		feed.Add(&feeds.Item{
			Id:          r.Key,
			Title:       r.Title(),
			Link:        &feeds.Link{Href: r.URL},
			Description: fmt.Sprintf("order %s, bag %s %s", r.OrderID, r.BagColor, r.BagType),
			Updated:     r.Updated,
		})
	}
	if n := len(renders); n > 0 {
		feed.Updated = renders[n-1].Updated
	}

	rss, err := feed.ToRss()
	return []byte(rss), err
}
