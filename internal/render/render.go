package render

import (
	"encoding/base64"
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/Fid-Deen/fiddeen-kiosk/internal/errs"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	maxSlugLen   = 60
	dataURLPNG   = "data:image/png;base64,"
	fallbackBase = "design"
)

// Metadata is everything known about a chosen render. Bag options never
// influence the artwork; they are kept for staff.
type Metadata struct {
	Name        string `json:"name"`
	Country     string `json:"country"`
	Theme       string `json:"theme"`
	TimeOfDay   string `json:"timeOfDay"`
	BagColor    string `json:"bagColor"`
	BagType     string `json:"bagType"`
	Lang        string `json:"lang"`
	Email       string `json:"email"`
	JobID       string `json:"jobId"`
	ChosenIndex int    `json:"chosenIndex"`
	OrderID     string `json:"-"`
}

// Color is the tote colour under the name the tags and audit rows use.
func (m Metadata) Color() string {
	return m.BagColor
}

func (m Metadata) Trimmed() Metadata {
	m.Name = strings.TrimSpace(m.Name)
	m.Country = strings.TrimSpace(m.Country)
	m.Theme = strings.TrimSpace(m.Theme)
	m.TimeOfDay = strings.TrimSpace(m.TimeOfDay)
	m.BagColor = strings.TrimSpace(m.BagColor)
	m.BagType = strings.TrimSpace(m.BagType)
	m.Lang = strings.TrimSpace(m.Lang)
	m.Email = strings.TrimSpace(m.Email)
	m.JobID = strings.TrimSpace(m.JobID)
	return m
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Fold decomposes s and drops combining marks, so "Bilâl" becomes "Bilal".
func Fold(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func Slug(s string) string {
	s = strings.ToLower(Fold(s))
	s = nonAlnum.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > maxSlugLen {
		s = strings.TrimRight(s[:maxSlugLen], "-")
	}
	return s
}

// Key is renders/yyyy/mm/dd/<parts>_<epoch millis>.png in UTC, where parts
// are the slugs of name, theme, time of day and country with blanks left out.
func Key(m Metadata, at time.Time) string {
	at = at.UTC()
	parts := make([]string, 0, 4)
	for _, v := range []string{m.Name, m.Theme, m.TimeOfDay, m.Country} {
		if s := Slug(v); s != "" {
			parts = append(parts, s)
		}
	}
	base := strings.Join(parts, "_")
	if base == "" {
		base = fallbackBase
	}
	return fmt.Sprintf("renders/%s/%s_%d.png", at.Format("2006/01/02"), base, at.UnixMilli())
}

// DayPrefix is the key prefix shared by every render stored on day.
func DayPrefix(day time.Time) string {
	return "renders/" + day.UTC().Format("2006/01/02") + "/"
}

// OrderID is a short human-readable reference for staff, e.g.
// FD-2025-10-30-K3J9QZ.
func OrderID(prefix string, at time.Time, rnd *rand.Rand) string {
	s := strings.ToUpper(strconv.FormatInt(rnd.Int63(), 36))
	for len(s) < 6 {
		s = "0" + s
	}
	return fmt.Sprintf("%s-%s-%s", prefix, at.UTC().Format("2006-01-02"), s[len(s)-6:])
}

func DecodeDataURL(dataURL string) ([]byte, error) {
	if !strings.HasPrefix(dataURL, "data:") {
		return nil, errs.Validation("Invalid imageDataUrl")
	}
	_, payload, ok := strings.Cut(dataURL, ",")
	if !ok || payload == "" {
		return nil, errs.Validation("Malformed data URL")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, errs.Validation("Malformed data URL")
	}
	return data, nil
}

func EncodeDataURL(png []byte) string {
	return dataURLPNG + base64.StdEncoding.EncodeToString(png)
}
