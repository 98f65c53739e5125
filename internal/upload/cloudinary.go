package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const cloudinaryAPI = "https://api.cloudinary.com"

// Cloudinary uploads with an unsigned upload preset. PDFs go to the "raw"
// resource type, images to "image".
type Cloudinary struct {
	cloudName string
	preset    string
	folder    string
	baseURL   string
	client    *http.Client
}

type CloudinaryOption func(*Cloudinary)

// WithCloudinaryBaseURL points the client at another API root (tests).
func WithCloudinaryBaseURL(u string) CloudinaryOption {
	return func(c *Cloudinary) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(hc *http.Client) CloudinaryOption {
	return func(c *Cloudinary) { c.client = hc }
}

func NewCloudinary(cloudName, preset, folder string, opts ...CloudinaryOption) *Cloudinary {
	if folder == "" {
		folder = DefaultFolder
	}
	c := &Cloudinary{
		cloudName: cloudName,
		preset:    preset,
		folder:    folder,
		baseURL:   cloudinaryAPI,
		client:    &http.Client{Timeout: 60 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Cloudinary) Name() string { return "cloudinary" }

type cloudinaryResponse struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
	Bytes     int64  `json:"bytes"`
	Format    string `json:"format"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Cloudinary) Upload(ctx context.Context, f File) (*Asset, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", f.Name)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: creating form file: %w", err)
	}
	if _, err := io.Copy(part, io.LimitReader(f.Body, MaxFileSize+1)); err != nil {
		return nil, fmt.Errorf("cloudinary: reading upload: %w", err)
	}
	if err := mw.WriteField("upload_preset", c.preset); err != nil {
		return nil, fmt.Errorf("cloudinary: writing preset: %w", err)
	}
	if err := mw.WriteField("folder", c.folder); err != nil {
		return nil, fmt.Errorf("cloudinary: writing folder: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("cloudinary: closing form: %w", err)
	}

	resource := "image"
	if f.IsPDF() {
		resource = "raw"
	}
	endpoint := fmt.Sprintf("%s/v1_1/%s/%s/upload", c.baseURL, c.cloudName, resource)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: building request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: uploading: %w", err)
	}
	defer resp.Body.Close()

	var out cloudinaryResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return nil, fmt.Errorf("cloudinary: decoding response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := resp.Status
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		return nil, fmt.Errorf("cloudinary: upload rejected: %s", msg)
	}
	if out.SecureURL == "" {
		return nil, fmt.Errorf("cloudinary: response has no secure_url")
	}

	return &Asset{
		URL:      out.SecureURL,
		PublicID: out.PublicID,
		Bytes:    out.Bytes,
		Format:   out.Format,
	}, nil
}
