package service

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/traitors/server/internal/domain"
	"github.com/traitors/server/internal/storage"
)

// MediaService fronts the object store for uploads and downloads.
type MediaService struct {
	store storage.ObjectStore
}

// NewMediaService creates a new MediaService.
func NewMediaService(store storage.ObjectStore) *MediaService {
	return &MediaService{store: store}
}

// AttachMediaInput is the body of a media attachment request.
type AttachMediaInput struct {
	MediaURL string `json:"mediaUrl" validate:"required,max=2048"`
}

// AttachMediaResult carries the internal path to store on a message.
type AttachMediaResult struct {
	ObjectPath string `json:"objectPath"`
}

// CreateUpload issues a time-limited upload URL for a new object.
func (s *MediaService) CreateUpload(ctx context.Context) (*storage.UploadTarget, error) {
	target, err := s.store.CreateUpload(ctx)
	if err != nil {
		return nil, domain.ErrInternal("create upload url", err)
	}
	return target, nil
}

// Attach normalizes the URL of an uploaded object into its "/objects/..." path.
func (s *MediaService) Attach(_ context.Context, in AttachMediaInput) (*AttachMediaResult, error) {
	in.MediaURL = strings.TrimSpace(in.MediaURL)
	if err := domain.Validate(in); err != nil {
		return nil, err
	}
	path := s.store.NormalizePath(in.MediaURL)
	if _, ok := storage.EntityPath(path); !ok {
		return nil, domain.ErrValidation("mediaUrl does not refer to an uploaded object")
	}
	return &AttachMediaResult{ObjectPath: path}, nil
}

// Open returns the object behind an internal "/objects/..." path.
func (s *MediaService) Open(ctx context.Context, objectPath string) (*storage.Object, error) {
	entity, ok := storage.EntityPath(objectPath)
	if !ok {
		return nil, domain.ErrNotFound("object", objectPath)
	}
	obj, err := s.store.Open(ctx, entity)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, domain.ErrNotFound("object", objectPath)
	}
	if err != nil {
		return nil, domain.ErrInternal("open object", err)
	}
	return obj, nil
}

// Upload accepts bytes for a path issued by CreateUpload when the store
// receives uploads through this server.
func (s *MediaService) Upload(ctx context.Context, objectPath, contentType string, body io.Reader) error {
	up, ok := s.store.(storage.Uploader)
	if !ok {
		return domain.ErrNotFound("object", objectPath)
	}
	entity, ok := storage.EntityPath(objectPath)
	if !ok {
		return domain.ErrNotFound("object", objectPath)
	}
	err := up.Put(ctx, entity, contentType, body)
	if errors.Is(err, storage.ErrObjectTooLarge) {
		return domain.ErrValidation("file is too large")
	}
	if errors.Is(err, storage.ErrUploadRejected) {
		return domain.ErrForbidden("upload not permitted for this path")
	}
	if err != nil {
		return domain.ErrInternal("store upload", err)
	}
	return nil
}
