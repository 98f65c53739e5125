// Package upload validates user files and pushes them to a file host.
//
// Three hosts are available: Cloudinary (unsigned preset uploads over HTTP),
// Amazon S3 and a local directory served by this process. All of them
// implement FileHost, and callers never see which one is configured.
package upload

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/linkify/internal/apperror"
)

// MaxFileSize is the largest accepted upload, in bytes.
const MaxFileSize int64 = 10 << 20

// DefaultFolder groups uploads on the remote host.
const DefaultFolder = "linkify"

// allowed maps accepted MIME types to the file extension stored on the host.
var allowed = map[string]string{
	"image/jpeg":      "jpg",
	"image/png":       "png",
	"image/gif":       "gif",
	"image/webp":      "webp",
	"application/pdf": "pdf",
}

// File is an upload in flight. Body is read once.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// IsPDF reports whether the file is a document rather than an image.
func (f File) IsPDF() bool {
	return f.ContentType == "application/pdf"
}

// Asset describes a stored file.
type Asset struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
	Bytes    int64  `json:"bytes"`
	Format   string `json:"format"`
}

type FileHost interface {
	// Name identifies the backend in logs and metrics.
	Name() string
	Upload(ctx context.Context, f File) (*Asset, error)
}

// Validate rejects files the hosts must never receive. It runs before any
// network or disk I/O.
func Validate(f File) error {
	if f.Body == nil || f.Size <= 0 {
		return apperror.ValidationFailed("file", "no file uploaded")
	}
	if f.Size > MaxFileSize {
		return apperror.ValidationFailed("file",
			fmt.Sprintf("file is too large (max %d MB)", MaxFileSize>>20))
	}
	if _, ok := allowed[f.ContentType]; !ok {
		return apperror.ValidationFailed("file",
			fmt.Sprintf("file type %q is not allowed; use JPEG, PNG, GIF, WebP or PDF", f.ContentType))
	}
	return nil
}

// AllowedTypes lists the accepted MIME types.
func AllowedTypes() []string {
	out := make([]string, 0, len(allowed))
	for t := range allowed {
		out = append(out, t)
	}
	return out
}

// objectKey builds a collision-free key such as "linkify/cs1q8v0r4.png".
func objectKey(folder string, f File) string {
	name := xid.New().String() + "." + allowed[f.ContentType]
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return name
	}
	return path.Join(folder, name)
}

// countingReader tracks how many bytes a host actually consumed.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
