package memory

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/utafrali/CarCatalog/internal/storage"
)

type object struct {
	ContentType string
	Data        []byte
	URL         string
}

// Storage implements storage.Storage using an in-memory map. Objects are
// served back by Handler.
type Storage struct {
	mu      sync.RWMutex
	objects map[string]*object
	baseURL string
}

// New returns an empty store whose URLs start with baseURL.
func New(baseURL string) *Storage {
	return &Storage{
		objects: make(map[string]*object),
		baseURL: baseURL,
	}
}

func (s *Storage) Upload(_ context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	data, err := io.ReadAll(input.Data)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	url := fmt.Sprintf("%s/%s", s.baseURL, input.Key)
	s.objects[input.Key] = &object{ContentType: input.ContentType, Data: data, URL: url}
	return &storage.UploadResult{Key: input.Key, URL: url}, nil
}

func (s *Storage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.objects[key]; !exists {
		return fmt.Errorf("%w: %s", storage.ErrObjectNotFound, key)
	}
	delete(s.objects, key)
	return nil
}

func (s *Storage) GetURL(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, exists := s.objects[key]
	if !exists {
		return "", fmt.Errorf("%w: %s", storage.ErrObjectNotFound, key)
	}
	return obj.URL, nil
}

// Object returns the stored bytes and content type of key.
func (s *Storage) Object(key string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, exists := s.objects[key]
	if !exists {
		return nil, "", false
	}
	return obj.Data, obj.ContentType, true
}
