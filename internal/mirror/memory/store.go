// Package memory is an in-process mirror store for development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/utafrali/CarCatalog/internal/mirror"
)

type Store struct {
	mu   sync.Mutex
	docs map[string]mirror.Document
	seq  int64
}

func NewStore() *Store {
	return &Store{docs: make(map[string]mirror.Document)}
}

func (s *Store) Create(_ context.Context, doc *mirror.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[doc.ID]; ok {
		return mirror.ErrDocumentExists
	}
	s.put(doc)
	return nil
}

func (s *Store) Get(_ context.Context, id string) (*mirror.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, mirror.ErrDocumentNotFound
	}
	return &doc, nil
}

func (s *Store) Replace(_ context.Context, doc *mirror.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.docs[doc.ID]
	if !ok {
		return mirror.ErrDocumentNotFound
	}
	if cur.Rev != doc.Rev {
		return mirror.ErrVersionConflict
	}
	s.put(doc)
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return mirror.ErrDocumentNotFound
	}
	delete(s.docs, id)
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

// Len reports how many documents are stored.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

// put stores a copy of doc under a fresh revision and reflects it back.
func (s *Store) put(doc *mirror.Document) {
	s.seq++
	doc.Rev = mirror.Revision{Seq: s.seq}
	s.docs[doc.ID] = *doc
}
