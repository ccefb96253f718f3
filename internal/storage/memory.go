package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MaxMemoryObjectSize caps a single upload held by MemoryStore.
const MaxMemoryObjectSize = 10 << 20

type memoryObject struct {
	data        []byte
	contentType string
}

// MemoryStore keeps objects in process memory. Its upload URLs point back at
// this server, which accepts the bytes through Put.
type MemoryStore struct {
	mu      sync.RWMutex
	baseURL string
	ttl     time.Duration
	now     func() time.Time
	pending map[string]time.Time
	objects map[string]memoryObject
}

// NewMemoryStore creates a MemoryStore. baseURL may be empty, in which case
// upload URLs are relative to the serving host.
func NewMemoryStore(baseURL string, ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		ttl:     ttl,
		now:     time.Now,
		pending: make(map[string]time.Time),
		objects: make(map[string]memoryObject),
	}
}

func (s *MemoryStore) CreateUpload(_ context.Context) (*UploadTarget, error) {
	entity := "uploads/" + uuid.NewString()

	s.mu.Lock()
	s.pending[entity] = s.now().Add(s.ttl)
	s.mu.Unlock()

	objectPath := ObjectPathPrefix + entity
	return &UploadTarget{UploadURL: s.baseURL + objectPath, ObjectPath: objectPath}, nil
}

func (s *MemoryStore) NormalizePath(raw string) string {
	if strings.HasPrefix(raw, ObjectPathPrefix) {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || !strings.HasPrefix(u.Path, ObjectPathPrefix) {
		return raw
	}
	if s.baseURL != "" && !strings.HasPrefix(raw, s.baseURL+ObjectPathPrefix) {
		return raw
	}
	return u.Path
}

func (s *MemoryStore) Open(_ context.Context, entityPath string) (*Object, error) {
	s.mu.RLock()
	obj, ok := s.objects[entityPath]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrObjectNotFound
	}
	return &Object{
		Body:        io.NopCloser(bytes.NewReader(obj.data)),
		ContentType: obj.contentType,
		Size:        int64(len(obj.data)),
	}, nil
}

// Put stores the bytes for an entity path previously issued by CreateUpload.
// Each issued path accepts exactly one upload before its deadline.
func (s *MemoryStore) Put(_ context.Context, entityPath, contentType string, body io.Reader) error {
	s.mu.Lock()
	deadline, ok := s.pending[entityPath]
	if ok {
		delete(s.pending, entityPath)
	}
	s.mu.Unlock()
	if !ok || s.now().After(deadline) {
		return ErrUploadRejected
	}

	data, err := io.ReadAll(io.LimitReader(body, MaxMemoryObjectSize+1))
	if err != nil {
		return fmt.Errorf("read upload: %w", err)
	}
	if len(data) > MaxMemoryObjectSize {
		return fmt.Errorf("%w: limit is %d bytes", ErrObjectTooLarge, MaxMemoryObjectSize)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	s.mu.Lock()
	s.objects[entityPath] = memoryObject{data: data, contentType: contentType}
	s.mu.Unlock()
	return nil
}
