package page

import (
	"bytes"
	"context"
	_ "embed"
	"html/template"
	"sync"
	"time"

	"github.com/Fid-Deen/fiddeen-kiosk/internal/feed"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/log"
)

//go:embed assets/gallery.html
var galleryTmpl string

type Params struct {
	Title   string
	Day     time.Time
	Renders []feed.Render
}

type view struct {
	Title   string
	Day     string
	Renders []feed.Render
}

// Templator renders the staff gallery of a day's renders.
type Templator struct {
	tmpl *template.Template
	once sync.Once
}

func (g *Templator) Template(ctx context.Context, params Params) ([]byte, error) {
	g.once.Do(func() {
		g.tmpl = template.Must(template.New("gallery").Parse(galleryTmpl))
	})

	log := log.FromContextOrDiscard(ctx).WithGroup("templator")
	log.Info("generating page", "renders", len(params.Renders))

	var data bytes.Buffer
	err := g.tmpl.Execute(&data, view{
		Title:   params.Title,
		Day:     params.Day.UTC().Format("2006-01-02"),
		Renders: params.Renders,
	})
	if err != nil {
		return nil, err
	}
	return data.Bytes(), nil
}
