// Package storage is the boundary to the media object store. Objects are
// addressed by an entity path such as "uploads/<uuid>"; clients see them as
// "/objects/<entity path>".
package storage

import (
	"context"
	"errors"
	"io"
	"strings"
)

// ObjectPathPrefix is the URL prefix under which stored objects are served.
const ObjectPathPrefix = "/objects/"

// ErrObjectNotFound is returned when no object exists for the requested path.
var ErrObjectNotFound = errors.New("storage: object not found")

// ErrUploadRejected is returned when an upload targets a path that was never
// issued or whose upload window has closed.
var ErrUploadRejected = errors.New("storage: upload not permitted")

// ErrObjectTooLarge is returned when an upload exceeds the store's size cap.
var ErrObjectTooLarge = errors.New("storage: object too large")

// UploadTarget is a time-limited location the client PUTs the file bytes to.
type UploadTarget struct {
	UploadURL  string `json:"uploadURL"`
	ObjectPath string `json:"objectPath"`
}

// Object is an open stored object. Callers must close Body.
type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// ObjectStore is implemented by every object storage backend.
type ObjectStore interface {
	// CreateUpload reserves a fresh entity path and returns where to upload it.
	CreateUpload(ctx context.Context) (*UploadTarget, error)

	// NormalizePath turns a URL pointing into this store into its internal
	// "/objects/..." path. Anything else is returned unchanged.
	NormalizePath(raw string) string

	// Open returns the object stored at entityPath or ErrObjectNotFound.
	Open(ctx context.Context, entityPath string) (*Object, error)
}

// Uploader is implemented by stores that receive upload bytes through this
// server rather than directly from the client.
type Uploader interface {
	Put(ctx context.Context, entityPath, contentType string, body io.Reader) error
}

// EntityPath strips the "/objects/" prefix from an internal object path. It
// reports false for paths outside the object namespace or containing dot
// segments.
func EntityPath(objectPath string) (string, bool) {
	if !strings.HasPrefix(objectPath, ObjectPathPrefix) {
		return "", false
	}
	entity := strings.TrimPrefix(objectPath, ObjectPathPrefix)
	if entity == "" {
		return "", false
	}
	for _, seg := range strings.Split(entity, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", false
		}
	}
	return entity, true
}
