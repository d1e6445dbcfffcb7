package media

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryStorage stores assets in Cloudinary, the same provider the
// frontend already serves media from.
type CloudinaryStorage struct {
	client *cloudinary.Cloudinary
}

// NewCloudinaryStorage builds a client from a cloudinary:// connection URL.
func NewCloudinaryStorage(connectionURL string) (*CloudinaryStorage, error) {
	client, err := cloudinary.NewFromURL(connectionURL)
	if err != nil {
		return nil, fmt.Errorf("cloudinary client: %w", err)
	}
	return &CloudinaryStorage{client: client}, nil
}

func (s *CloudinaryStorage) Upload(ctx context.Context, r io.Reader, filename, folder string) (string, error) {
	resp, err := s.client.Upload.Upload(ctx, r, uploader.UploadParams{
		Folder:   folder,
		PublicID: strings.TrimSuffix(filename, path.Ext(filename)),
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	return resp.SecureURL, nil
}

func (s *CloudinaryStorage) Delete(ctx context.Context, assetURL string) error {
	publicID, ok := publicIDFromURL(assetURL)
	if !ok {
		return nil
	}

	_, err := s.client.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("cloudinary destroy: %w", err)
	}
	return nil
}

// publicIDFromURL extracts the public id from a delivery URL of the form
// https://res.cloudinary.com/<cloud>/image/upload/v123/<folder>/<name>.<ext>.
func publicIDFromURL(assetURL string) (string, bool) {
	u, err := url.Parse(assetURL)
	if err != nil || u.Path == "" {
		return "", false
	}

	parts := strings.Split(strings.TrimPrefix(u.Path, "/"), "/")
	uploadIdx := -1
	for i, p := range parts {
		if p == "upload" {
			uploadIdx = i
			break
		}
	}
	if uploadIdx < 0 || uploadIdx+1 >= len(parts) {
		return "", false
	}

	rest := parts[uploadIdx+1:]
	// Skip the version segment (v123...).
	if len(rest) > 1 && strings.HasPrefix(rest[0], "v") {
		allDigits := len(rest[0]) > 1
		for _, c := range rest[0][1:] {
			if c < '0' || c > '9' {
				allDigits = false
				break
			}
		}
		if allDigits {
			rest = rest[1:]
		}
	}
	if len(rest) == 0 {
		return "", false
	}

	id := strings.Join(rest, "/")
	return strings.TrimSuffix(id, path.Ext(id)), true
}
