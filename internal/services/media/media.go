// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package media stores evidence images on the local disk or in S3.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"codeberg.org/oliverandrich/scamsentinel/internal/config"
	"github.com/google/uuid"
)

var (
	// ErrUnsupportedType is returned for files that are not JPEG, PNG, GIF or WebP images.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrTooLarge is returned for files above the configured size limit.
	ErrTooLarge = errors.New("file too large")
)

// Extensions by sniffed content type.
var imageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Storage persists objects and returns their public URL.
type Storage interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// Service validates and stores uploaded images.
type Service struct {
	store   Storage
	maxSize int64
	now     func() time.Time
}

// New creates the media service for the configured driver.
func New(ctx context.Context, cfg *config.MediaConfig) (*Service, error) {
	var (
		store Storage
		err   error
	)

	switch cfg.Driver {
	case "local", "":
		store, err = NewLocalStorage(cfg.LocalDir, cfg.PublicBaseURL)
	case "s3":
		store, err = NewS3Storage(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown media driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	return NewService(store, cfg.MaxImageSize), nil
}

// NewService wraps a storage backend.
func NewService(store Storage, maxSize int64) *Service {
	return &Service{store: store, maxSize: maxSize, now: time.Now}
}

// SaveImage stores an uploaded image and returns its public URL.
func (s *Service) SaveImage(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	if s.maxSize > 0 && fh.Size > s.maxSize {
		return "", ErrTooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("opening upload: %w", err)
	}
	defer f.Close()

	return s.Save(ctx, f)
}

// Save buffers the image, checks its size and sniffed content type, and
// stores it under a fresh key. Buffering gives S3 a seekable body.
func (s *Service) Save(ctx context.Context, r io.Reader) (string, error) {
	if s.maxSize > 0 {
		r = io.LimitReader(r, s.maxSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading upload: %w", err)
	}
	if s.maxSize > 0 && int64(len(data)) > s.maxSize {
		return "", ErrTooLarge
	}

	contentType := http.DetectContentType(data)
	ext, ok := imageTypes[contentType]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	key := s.objectKey(ext)
	url, err := s.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType)
	if err != nil {
		return "", fmt.Errorf("storing %s: %w", key, err)
	}
	return url, nil
}

// Delete removes a stored object by key.
func (s *Service) Delete(ctx context.Context, key string) error {
	return s.store.Delete(ctx, key)
}

func (s *Service) objectKey(ext string) string {
	d := s.now().UTC()
	return fmt.Sprintf("evidence/%d/%02d/%02d/%s%s", d.Year(), d.Month(), d.Day(), uuid.New(), ext)
}
