package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/Fid-Deen/fiddeen-kiosk/internal/errs"
	"github.com/Fid-Deen/fiddeen-kiosk/internal/log"
)

// FileUploader writes renders under Dir for local development. Tags and
// metadata land next to the image as <key>.json.
type FileUploader struct {
	Dir string
}

type sidecar struct {
	ContentType string            `json:"contentType"`
	Tags        map[string]string `json:"tags"`
	Metadata    map[string]string `json:"metadata"`
}

func (u *FileUploader) Upload(ctx context.Context, params UploadParams) (string, error) {
	path := filepath.Join(u.Dir, filepath.FromSlash(params.Key))
	log := log.FromContextOrDiscard(ctx).WithGroup("file")
	log.Info("writing", "file", path)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", errs.Persistence("Upload failed", err)
	}
	if err := os.WriteFile(path, params.Data, 0o600); err != nil {
		return "", errs.Persistence("Upload failed", err)
	}

	side, err := json.MarshalIndent(sidecar{params.ContentType, params.Tags, params.Metadata}, "", "  ")
	if err != nil {
		return "", errs.Persistence("Upload failed", err)
	}
	if err := os.WriteFile(path+".json", side, 0o600); err != nil {
		return "", errs.Persistence("Upload failed", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return "file://" + filepath.ToSlash(abs), nil
}

func (u *FileUploader) Ping(context.Context) error {
	return os.MkdirAll(u.Dir, 0o755)
}
