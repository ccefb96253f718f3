// Package service implements the game rules on top of the repositories.
// Services return *domain.AppError for every failure a client can act on;
// anything else is wrapped in ErrInternal.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/traitors/server/internal/domain"
	"github.com/traitors/server/internal/storage"
)

// Clock returns the current time. Tests substitute a fixed or advancing clock.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

// RandomSource picks uniform integers in [0, n).
type RandomSource interface {
	Intn(ctx context.Context, n int) (int, error)
}

// MediaNormalizer turns client-supplied media URLs into internal object paths.
type MediaNormalizer interface {
	NormalizePath(raw string) string
}

// mediaObjectPath normalizes an optional mediaUrl. Blank input yields nil;
// anything that does not resolve to an uploaded object is rejected.
func mediaObjectPath(media MediaNormalizer, raw *string) (*string, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	path := media.NormalizePath(strings.TrimSpace(*raw))
	if _, ok := storage.EntityPath(path); !ok {
		return nil, domain.ErrValidation("mediaUrl does not refer to an uploaded object")
	}
	return &path, nil
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
