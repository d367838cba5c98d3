package render

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/Fid-Deen/fiddeen-kiosk/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"Bilal Khan":          "bilal-khan",
		"  Zoë & Amélie!! ":   "zoe-amelie",
		"city_vibrant":        "city-vibrant",
		"---":                 "",
		"Ça va? Très bien.":   "ca-va-tres-bien",
		"محمد":                "",
		"Name123 -- Mixed__X": "name123-mixed-x",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slug(in), "Slug(%q)", in)
	}
}

func TestSlugTruncates(t *testing.T) {
	s := Slug(strings.Repeat("ab ", 40))
	assert.LessOrEqual(t, len(s), 60)
	assert.False(t, strings.HasSuffix(s, "-"))
}

func TestKey(t *testing.T) {
	at := time.Date(2025, 10, 30, 23, 30, 0, 0, time.FixedZone("PKT", 5*3600))
	key := Key(Metadata{Name: "Bilal Khan", Theme: "peaceful", TimeOfDay: "daytime", Country: "morocco"}, at)
	assert.Equal(t, "renders/2025/10/30/bilal-khan_peaceful_daytime_morocco_1761849000000.png", key)
}

func TestKeyUsesUTCDate(t *testing.T) {
	at := time.Date(2025, 10, 31, 2, 0, 0, 0, time.FixedZone("PKT", 5*3600))
	key := Key(Metadata{Name: "a"}, at)
	assert.True(t, strings.HasPrefix(key, "renders/2025/10/30/"), key)
	assert.True(t, strings.HasPrefix(key, DayPrefix(at)))
}

func TestKeyOmitsBlanks(t *testing.T) {
	at := time.UnixMilli(1761857600000)
	assert.Equal(t, "renders/2025/10/30/sara_nighttime_1761857600000.png", Key(Metadata{Name: "Sara", TimeOfDay: "nighttime"}, at))
	assert.Equal(t, "renders/2025/10/30/design_1761857600000.png", Key(Metadata{}, at))
}

func TestKeyDistinctAcrossTimestamps(t *testing.T) {
	m := Metadata{Name: "Bilal", Theme: "peaceful"}
	at := time.UnixMilli(1761857600000)
	assert.NotEqual(t, Key(m, at), Key(m, at.Add(time.Millisecond)))
}

func TestOrderID(t *testing.T) {
	at := time.Date(2025, 10, 30, 8, 0, 0, 0, time.UTC)
	id := OrderID("FD", at, rand.New(rand.NewSource(1)))
	assert.Regexp(t, `^FD-2025-10-30-[0-9A-Z]{6}$`, id)
}

func TestOrderIDMatchesKeyDay(t *testing.T) {
	// 02:30 in Dubai is still the previous day in UTC.
	at := time.Date(2025, 10, 31, 2, 30, 0, 0, time.FixedZone("GST", 4*60*60))
	id := OrderID("FD", at, rand.New(rand.NewSource(1)))
	assert.True(t, strings.HasPrefix(id, "FD-2025-10-30-"), id)
	assert.True(t, strings.HasPrefix(Key(Metadata{Name: "Sara"}, at), "renders/2025/10/30/"))
}

func TestDataURLRoundTrip(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n")
	url := EncodeDataURL(png)
	assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"))

	got, err := DecodeDataURL(url)
	require.NoError(t, err)
	assert.Equal(t, png, got)
}

func TestDecodeDataURLRejects(t *testing.T) {
	for _, in := range []string{"iVBORw0KGgo=", "data:image/png;base64", "data:image/png;base64,@@@"} {
		_, err := DecodeDataURL(in)
		require.Error(t, err, in)
		assert.True(t, errs.Is(err, errs.KindValidation), in)
	}
}

func TestTrimmed(t *testing.T) {
	m := Metadata{Name: "  Bilal ", BagColor: " beige "}.Trimmed()
	assert.Equal(t, "Bilal", m.Name)
	assert.Equal(t, "beige", m.Color())
}
