package settings

import (
	"context"
	"fmt"

	"github.com/caroduarte/lumina-backend/pkg/storage/cloudinary"
)

// CloudinaryUploader adapts the asset store to the background uploader
// surface: callers only need the delivery URL back.
type CloudinaryUploader struct {
	client *cloudinary.Client
}

func NewCloudinaryUploader(client *cloudinary.Client) *CloudinaryUploader {
	return &CloudinaryUploader{client: client}
}

func (u *CloudinaryUploader) Upload(ctx context.Context, publicID string, content []byte) (string, error) {
	if u.client == nil {
		return "", fmt.Errorf("cloudinary client is not configured")
	}
	result, err := u.client.Upload(ctx, publicID, content)
	if err != nil {
		return "", err
	}
	return result.SecureURL, nil
}
