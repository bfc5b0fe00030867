package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultDownloadTimeout is the default timeout for image downloads
	DefaultDownloadTimeout = 30 * time.Second
	// DefaultMaxImageSize is the default maximum image size (10MB)
	DefaultMaxImageSize = 10 * 1024 * 1024

	photoContentType = "image/jpeg"
)

// DownloadedImage is the body and content type of a downloaded photo.
type DownloadedImage struct {
	Data        []byte
	ContentType string
}

// ImageDownloader fetches chat photos over HTTP.
type ImageDownloader struct {
	client  *resty.Client
	maxSize int64
}

func NewImageDownloader() *ImageDownloader {
	return &ImageDownloader{
		client:  resty.New().SetDebug(false).SetTimeout(DefaultDownloadTimeout),
		maxSize: DefaultMaxImageSize,
	}
}

// WithMaxSize sets a custom maximum file size.
func (d *ImageDownloader) WithMaxSize(maxSize int64) *ImageDownloader {
	d.maxSize = maxSize
	return d
}

// DownloadFromURL downloads an image and rejects non-image content types and
// bodies larger than the size limit.
func (d *ImageDownloader) DownloadFromURL(ctx context.Context, imageURL string) (DownloadedImage, error) {
	res, err := d.client.R().SetContext(ctx).Get(imageURL)
	if err != nil {
		return DownloadedImage{}, fmt.Errorf("failed to download image: %w", err)
	}
	if res.IsError() {
		return DownloadedImage{}, fmt.Errorf("download failed: status %d", res.StatusCode())
	}

	// The Telegram file server may answer with a generic binary type for
	// photos, which are always JPEG.
	contentType := res.Header().Get("Content-Type")
	switch {
	case contentType == "" || strings.HasPrefix(contentType, "application/octet-stream"):
		contentType = photoContentType
	case !strings.HasPrefix(contentType, "image/"):
		return DownloadedImage{}, fmt.Errorf("invalid content type: expected image/*, got %s", contentType)
	}

	body := res.Body()
	if int64(len(body)) > d.maxSize {
		return DownloadedImage{}, fmt.Errorf("image too large: %d bytes exceeds limit of %d bytes", len(body), d.maxSize)
	}

	return DownloadedImage{Data: body, ContentType: contentType}, nil
}

// DownloadFromTelegramFileID resolves a Telegram file ID to a direct URL and
// downloads it.
func (d *ImageDownloader) DownloadFromTelegramFileID(
	ctx context.Context,
	getFileDirectURL func(fileID string) (string, error),
	fileID string,
) (DownloadedImage, error) {
	log.Info().Str("fileID", fileID).Msg("downloading telegram file")

	url, err := getFileDirectURL(fileID)
	if err != nil {
		return DownloadedImage{}, fmt.Errorf("failed to get file URL: %w", err)
	}

	return d.DownloadFromURL(ctx, url)
}
