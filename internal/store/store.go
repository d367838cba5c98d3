package store

import (
	"context"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/Fid-Deen/fiddeen-kiosk/internal/render"
)

const (
	// S3 allows at most ten tags per object and 256 characters per value.
	MaxTags        = 10
	MaxTagValueLen = 256
)

type UploadParams struct {
	Key         string
	Data        []byte
	ContentType string
	Tags        map[string]string
	Metadata    map[string]string
}

type Uploader interface {
	Upload(context.Context, UploadParams) (string, error)
}

var tagUnsafe = regexp.MustCompile(`[^A-Za-z0-9 _.:/=+@-]`)

// SanitizeTag folds diacritics, drops every character S3 tags reject and
// truncates to MaxTagValueLen.
func SanitizeTag(v string) string {
	v = tagUnsafe.ReplaceAllString(render.Fold(v), "")
	if len(v) > MaxTagValueLen {
		v = v[:MaxTagValueLen]
	}
	return strings.TrimSpace(v)
}

// Tagging encodes tags the way PutObject expects them. Keys are sorted so
// the encoding is stable; anything past MaxTags is dropped.
func Tagging(tags map[string]string) string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > MaxTags {
		keys = keys[:MaxTags]
	}

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, url.QueryEscape(k)+"="+url.QueryEscape(SanitizeTag(tags[k])))
	}
	return strings.Join(pairs, "&")
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
