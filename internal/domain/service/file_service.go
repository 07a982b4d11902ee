package service

import (
	"context"
	"io"
)

// FileStorage stores public objects such as listing photos and avatars.
type FileStorage interface {
	// Upload writes the object and returns its public URL.
	Upload(ctx context.Context, objectName string, file io.Reader, contentType string) (string, error)
	DeleteFile(ctx context.Context, fileURL string) error
}
