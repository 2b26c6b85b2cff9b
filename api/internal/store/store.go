package store

import (
	"context"
	"sync"
)

// ImageCacheKey is the one slot holding the last uploaded image as a data URI.
const ImageCacheKey = "areca-image-cache"

// Store is a minimal key-value store. Get reports ok=false for an absent key.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Slot binds a Store to one fixed key.
type Slot struct {
	store Store
	key   string
}

func NewSlot(s Store, key string) *Slot {
	return &Slot{store: s, key: key}
}

func (s *Slot) Key() string { return s.key }

func (s *Slot) Get(ctx context.Context) (string, bool, error) {
	return s.store.Get(ctx, s.key)
}

func (s *Slot) Set(ctx context.Context, value string) error {
	return s.store.Set(ctx, s.key, value)
}

func (s *Slot) Clear(ctx context.Context) error {
	return s.store.Remove(ctx, s.key)
}

type Memory struct {
	mu sync.RWMutex
	m  map[string]string
}

func NewMemory() *Memory {
	return &Memory{m: make(map[string]string)}
}

func (s *Memory) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *Memory) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	s.m[key] = value
	s.mu.Unlock()
	return nil
}

func (s *Memory) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.m, key)
	s.mu.Unlock()
	return nil
}
