package media

import (
	"context"
	"errors"
	"fmt"
	"io"

	"dholratri-tickets/internal/config"
	"dholratri-tickets/internal/logger"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

type CloudinaryStore struct {
	cld *cloudinary.Cloudinary
	log *logger.Logger
}

func NewCloudinaryStore(cfg config.CloudinaryConfig, log *logger.Logger) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("init cloudinary: %w", err)
	}
	cld.Config.URL.Secure = true
	return &CloudinaryStore{cld: cld, log: log}, nil
}

func (s *CloudinaryStore) UploadScreenshot(ctx context.Context, file io.Reader, purchaseID string) (string, error) {
	return s.upload(ctx, file, uploader.UploadParams{
		Folder:         ScreenshotFolder,
		Context:        api.CldAPIMap{"purchase_id": purchaseID},
		AllowedFormats: api.CldAPIArray(AllowedFormats),
	})
}

func (s *CloudinaryStore) UploadPaymentQR(ctx context.Context, file io.Reader) (string, error) {
	return s.upload(ctx, file, uploader.UploadParams{
		Folder:         ConfigFolder,
		PublicID:       PaymentQRID,
		Overwrite:      api.Bool(true),
		Invalidate:     api.Bool(true),
		AllowedFormats: api.CldAPIArray(AllowedFormats),
	})
}

func (s *CloudinaryStore) upload(ctx context.Context, file io.Reader, params uploader.UploadParams) (string, error) {
	resp, err := s.cld.Upload.Upload(ctx, file, params)
	if err != nil {
		return "", fmt.Errorf("cloudinary upload to %s: %w", params.Folder, err)
	}
	if resp.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload to %s: %s", params.Folder, resp.Error.Message)
	}
	if resp.SecureURL == "" {
		return "", errors.New("cloudinary upload returned no url")
	}
	s.log.Info("MEDIA", fmt.Sprintf("Uploaded %s (%d bytes)", resp.PublicID, resp.Bytes))
	return resp.SecureURL, nil
}
