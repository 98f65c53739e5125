package handler

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/linkify/internal/apperror"
	"github.com/sakif/linkify/internal/upload"
)

// multipartOverhead leaves room for boundaries and headers on top of the
// file itself.
const multipartOverhead = 1 << 20

type uploadResponse struct {
	Link  linkResponse  `json:"link"`
	Asset *upload.Asset `json:"asset"`
}

// HandleUpload stores the "file" form field and points the link at it.
//
// HTTP: POST /api/links/{id}/upload (multipart/form-data)
//
// The client's Content-Type for the part is trusted only when it is
// specific; otherwise the type is sniffed from the first 512 bytes.
func (h *LinkHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	email, err := callerEmail(r)
	if err != nil {
		writeError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, upload.MaxFileSize+multipartOverhead)
	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, apperror.ValidationFailed("file",
				fmt.Sprintf("file is too large (max %d MB)", upload.MaxFileSize>>20)))
			return
		}
		writeError(w, apperror.ValidationFailed("file", "expected a multipart form with a file field"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, apperror.ValidationFailed("file", "no file uploaded"))
		return
	}
	defer file.Close()

	contentType, err := detectContentType(header.Header.Get("Content-Type"), file)
	if err != nil {
		writeError(w, err)
		return
	}

	link, asset, err := h.links.AttachFile(r.Context(), email, chi.URLParam(r, "id"), upload.File{
		Name:        header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{Link: newLinkResponse(*link), Asset: asset})
}

func detectContentType(declared string, f io.ReadSeeker) (string, error) {
	if mt, _, err := mime.ParseMediaType(declared); err == nil && mt != "application/octet-stream" {
		return mt, nil
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading upload: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewinding upload: %w", err)
	}

	mt, _, _ := mime.ParseMediaType(http.DetectContentType(head[:n]))
	return mt, nil
}
