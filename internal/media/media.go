package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	MaxUploadSize = 5 << 20
	// multipart framing and text fields on top of the file
	maxFormOverhead = 1 << 20

	ScreenshotFolder = "dholratri-screenshots"
	ConfigFolder     = "dholratri-config"
	PaymentQRID      = "payment-qr-code"
)

var (
	ErrNoFile            = errors.New("no file uploaded")
	ErrFileTooLarge      = errors.New("file too large")
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

// UserMessage renders upload errors for API clients.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrFileTooLarge):
		return fmt.Sprintf("File too large. Max size is %dKB.", MaxUploadSize/1024)
	case errors.Is(err, ErrUnsupportedFormat):
		return "Only jpg, jpeg and png images are allowed."
	case errors.Is(err, ErrNoFile):
		return "No file uploaded."
	default:
		return "File upload error."
	}
}

var allowedTypes = []string{"image/jpeg", "image/png"}

// AllowedFormats are the extensions accepted by the media host.
var AllowedFormats = []string{"jpg", "jpeg", "png"}

// Store uploads images and returns their public URL.
type Store interface {
	UploadScreenshot(ctx context.Context, file io.Reader, purchaseID string) (string, error)
	UploadPaymentQR(ctx context.Context, file io.Reader) (string, error)
}

// Upload is a validated image taken from a multipart form.
type Upload struct {
	File     multipart.File
	Filename string
	Size     int64
	MIME     string
}

func (u *Upload) Close() error { return u.File.Close() }

// ParseMultipart parses a size-limited multipart body.
func ParseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize+maxFormOverhead)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
			return ErrFileTooLarge
		}
		return fmt.Errorf("invalid multipart form: %w", err)
	}
	return nil
}

// FormImage returns the image in field, ErrNoFile when absent. The caller closes it.
func FormImage(r *http.Request, field string) (*Upload, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, ErrNoFile
	}
	if err != nil {
		return nil, err
	}

	if header.Size > MaxUploadSize {
		file.Close()
		return nil, ErrFileTooLarge
	}

	mtype, err := mimetype.DetectReader(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("detect file type: %w", err)
	}
	if !mimetype.EqualsAny(mtype.String(), allowedTypes...) {
		file.Close()
		return nil, ErrUnsupportedFormat
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, err
	}

	return &Upload{File: file, Filename: header.Filename, Size: header.Size, MIME: mtype.String()}, nil
}
