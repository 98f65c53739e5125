package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Local writes files under dir. The HTTP server exposes dir at /uploads/,
// so publicBaseURL is the externally visible origin of this service.
type Local struct {
	dir           string
	publicBaseURL string
}

func NewLocal(dir, publicBaseURL string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("local: creating upload dir: %w", err)
	}
	return &Local{dir: dir, publicBaseURL: strings.TrimRight(publicBaseURL, "/")}, nil
}

func (l *Local) Name() string { return "local" }

// Dir is the directory served at /uploads/.
func (l *Local) Dir() string { return l.dir }

func (l *Local) Upload(ctx context.Context, f File) (*Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := objectKey("", f)
	dst := filepath.Join(l.dir, key)

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("local: creating %s: %w", key, err)
	}

	n, err := io.Copy(out, io.LimitReader(f.Body, MaxFileSize+1))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > MaxFileSize {
		err = fmt.Errorf("file exceeds %d bytes", MaxFileSize)
	}
	if err != nil {
		os.Remove(dst)
		return nil, fmt.Errorf("local: writing %s: %w", key, err)
	}

	return &Asset{
		URL:      l.publicBaseURL + "/uploads/" + key,
		PublicID: key,
		Bytes:    n,
		Format:   allowed[f.ContentType],
	}, nil
}
