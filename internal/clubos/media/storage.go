// Package media stores user-uploaded images (avatars, club logos) in an
// external object store and hands back public URLs.
package media

import (
	"context"
	"io"
)

type Storage interface {
	// Upload stores the content under the given folder and returns its
	// public URL.
	Upload(ctx context.Context, r io.Reader, filename, folder string) (string, error)

	// Delete removes a previously uploaded asset by its public URL.
	// Deleting an unknown URL is not an error.
	Delete(ctx context.Context, url string) error
}
