package upload

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/linkify/internal/apperror"
)

func pngFile(content string) File {
	return File{
		Name:        "avatar.png",
		ContentType: "image/png",
		Size:        int64(len(content)),
		Body:        strings.NewReader(content),
	}
}

// ===== VALIDATION =====

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		file    File
		wantErr bool
	}{
		{"png ok", pngFile("data"), false},
		{"pdf ok", File{ContentType: "application/pdf", Size: 10, Body: strings.NewReader("x")}, false},
		{"empty", File{ContentType: "image/png", Size: 0, Body: strings.NewReader("")}, true},
		{"no body", File{ContentType: "image/png", Size: 10}, true},
		{"too large", File{ContentType: "image/png", Size: MaxFileSize + 1, Body: strings.NewReader("x")}, true},
		{"exactly max", File{ContentType: "image/png", Size: MaxFileSize, Body: strings.NewReader("x")}, false},
		{"svg rejected", File{ContentType: "image/svg+xml", Size: 10, Body: strings.NewReader("x")}, true},
		{"zip rejected", File{ContentType: "application/zip", Size: 10, Body: strings.NewReader("x")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.file)
			if tt.wantErr {
				assert.True(t, errors.Is(err, apperror.ErrValidation), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// ===== CLOUDINARY =====

func TestCloudinaryUpload(t *testing.T) {
	var gotPath, gotPreset, gotFolder, gotFile string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, params, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		mr := multipart.NewReader(r.Body, params["boundary"])
		for {
			p, err := mr.NextPart()
			if err != nil {
				break
			}
			b, _ := io.ReadAll(p)
			switch p.FormName() {
			case "upload_preset":
				gotPreset = string(b)
			case "folder":
				gotFolder = string(b)
			case "file":
				gotFile = string(b)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"secure_url":"https://res.cloudinary.com/demo/image/upload/linkify/x.png","public_id":"linkify/x","bytes":4,"format":"png"}`))
	}))
	defer srv.Close()

	c := NewCloudinary("demo", "unsigned", "", WithCloudinaryBaseURL(srv.URL))
	asset, err := c.Upload(context.Background(), pngFile("data"))
	require.NoError(t, err)

	assert.Equal(t, "/v1_1/demo/image/upload", gotPath)
	assert.Equal(t, "unsigned", gotPreset)
	assert.Equal(t, DefaultFolder, gotFolder)
	assert.Equal(t, "data", gotFile)
	assert.Equal(t, "https://res.cloudinary.com/demo/image/upload/linkify/x.png", asset.URL)
	assert.Equal(t, int64(4), asset.Bytes)
}

func TestCloudinaryUpload_PDFUsesRaw(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"secure_url":"https://res.cloudinary.com/demo/raw/upload/cv.pdf","public_id":"cv","bytes":3,"format":"pdf"}`))
	}))
	defer srv.Close()

	c := NewCloudinary("demo", "unsigned", "docs", WithCloudinaryBaseURL(srv.URL))
	_, err := c.Upload(context.Background(), File{Name: "cv.pdf", ContentType: "application/pdf", Size: 3, Body: strings.NewReader("pdf")})
	require.NoError(t, err)
	assert.Equal(t, "/v1_1/demo/raw/upload", gotPath)
}

func TestCloudinaryUpload_ErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Upload preset not found"}}`))
	}))
	defer srv.Close()

	c := NewCloudinary("demo", "missing", "", WithCloudinaryBaseURL(srv.URL))
	_, err := c.Upload(context.Background(), pngFile("data"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Upload preset not found")
}

// ===== S3 =====

type fakeS3 struct {
	input *s3manager.UploadInput
	body  []byte
	err   error
}

func (f *fakeS3) UploadWithContext(_ aws.Context, in *s3manager.UploadInput, _ ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	f.body, _ = io.ReadAll(in.Body)
	return &s3manager.UploadOutput{Location: "s3://bucket/" + aws.StringValue(in.Key)}, nil
}

func TestS3Upload(t *testing.T) {
	fake := &fakeS3{}
	s := newS3("media", "", "https://cdn.example.com/", fake)

	asset, err := s.Upload(context.Background(), pngFile("data"))
	require.NoError(t, err)

	key := aws.StringValue(fake.input.Key)
	assert.Equal(t, "media", aws.StringValue(fake.input.Bucket))
	assert.Equal(t, "image/png", aws.StringValue(fake.input.ContentType))
	assert.True(t, strings.HasPrefix(key, DefaultFolder+"/"))
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.Equal(t, "https://cdn.example.com/"+key, asset.URL)
	assert.Equal(t, int64(4), asset.Bytes)
	assert.Equal(t, "data", string(fake.body))
}

func TestS3Upload_Error(t *testing.T) {
	s := newS3("media", "", "https://cdn.example.com", &fakeS3{err: errors.New("access denied")})

	_, err := s.Upload(context.Background(), pngFile("data"))
	assert.Error(t, err)
}

// ===== LOCAL =====

func TestLocalUpload(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLocal(dir, "http://localhost:8080/")
	require.NoError(t, err)

	asset, err := l.Upload(context.Background(), pngFile("data"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(asset.URL, "http://localhost:8080/uploads/"))
	stored, err := os.ReadFile(filepath.Join(dir, asset.PublicID))
	require.NoError(t, err)
	assert.Equal(t, "data", string(stored))
	assert.Equal(t, "png", asset.Format)
}

func TestLocalUpload_CancelledContext(t *testing.T) {
	l, err := NewLocal(t.TempDir(), "http://localhost:8080")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = l.Upload(ctx, pngFile("data"))
	assert.ErrorIs(t, err, context.Canceled)
}
