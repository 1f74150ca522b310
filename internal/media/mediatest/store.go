// Package mediatest provides an in-memory media.Store.
package mediatest

import (
	"context"
	"fmt"
	"sync"

	"clipfeed/internal/media"
	"clipfeed/internal/model"
)

var _ media.Store = (*Store)(nil)

// Store keeps files in a map. Setting FailStore or FailDelete makes the
// matching calls return that error.
type Store struct {
	mu      sync.Mutex
	files   map[string][]byte
	deleted []string
	seq     int

	FailStore  error
	FailDelete error
}

func NewStore() *Store {
	return &Store{files: make(map[string][]byte)}
}

func (s *Store) StoreVideo(_ context.Context, upload *media.Upload) (string, error) {
	return s.put(model.VideoFolder, model.VideoExt, upload)
}

func (s *Store) StorePhoto(_ context.Context, upload *media.Upload) (string, error) {
	return s.put(model.PhotoFolder, model.PhotoExt, upload)
}

func (s *Store) put(folder, ext string, upload *media.Upload) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailStore != nil {
		return "", s.FailStore
	}
	s.seq++
	key := fmt.Sprintf("%s/%d%s", folder, s.seq, ext)
	s.files[key] = append([]byte{}, upload.Data...)
	return key, nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	if key == "" || key == model.NoProfilePhoto {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailDelete != nil {
		return s.FailDelete
	}
	delete(s.files, key)
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *Store) URL(key string) string {
	if key == "" || key == model.NoProfilePhoto {
		return ""
	}
	return "https://media.test/" + key
}

// Has reports whether key is currently stored.
func (s *Store) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[key]
	return ok
}

// Len is the number of stored files.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

// Deleted lists deleted keys in call order.
func (s *Store) Deleted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.deleted...)
}
