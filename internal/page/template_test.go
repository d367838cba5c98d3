package page

import (
	"context"
	"testing"
	"time"

	"github.com/Fid-Deen/fiddeen-kiosk/internal/feed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplate(t *testing.T) {
	var tmpl Templator
	html, err := tmpl.Template(context.Background(), Params{
		Title: "fiddeen renders",
		Day:   time.Date(2025, 10, 30, 0, 0, 0, 0, time.UTC),
		Renders: []feed.Render{{
			Key:      "renders/2025/10/30/bilal_1761849000000.png",
			URL:      "https://kiosk.s3.eu-west-1.amazonaws.com/renders/2025/10/30/bilal_1761849000000.png",
			Name:     "<Bilal>",
			Theme:    "peaceful",
			OrderID:  "FD-2025-10-30-ABC123",
			BagColor: "beige",
			BagType:  "tote",
			Updated:  time.Date(2025, 10, 30, 18, 30, 0, 0, time.UTC),
		}},
	})
	require.NoError(t, err)

	out := string(html)
	assert.Contains(t, out, "fiddeen renders · 2025-10-30")
	assert.Contains(t, out, "FD-2025-10-30-ABC123")
	assert.Contains(t, out, `src="https://kiosk.s3.eu-west-1.amazonaws.com/renders/2025/10/30/bilal_1761849000000.png"`)
	assert.Contains(t, out, "&lt;Bilal&gt; · peaceful")
	assert.Contains(t, out, "18:30 UTC")
	assert.NotContains(t, out, "No renders chosen")
}

func TestTemplateEmpty(t *testing.T) {
	var tmpl Templator
	html, err := tmpl.Template(context.Background(), Params{Title: "fiddeen renders", Day: time.Now()})
	require.NoError(t, err)
	assert.Contains(t, string(html), "No renders chosen on this day.")
}
