// Package memory provides an in-memory storage.Store for tests and
// single-process deployments.
package memory

import (
	"context"
	"sort"
	"sync"

	"xdao.co/tokengate/storage"
)

// Store keeps everything in process memory. Safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	visibility map[string]storage.Visibility
	posts      []storage.Post
	creators   map[string]storage.Creator
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		visibility: make(map[string]storage.Visibility),
		creators:   make(map[string]storage.Creator),
	}
}

func (s *Store) SetVisibility(_ context.Context, uri string, v storage.Visibility) error {
	if !v.Valid() {
		return storage.ErrInvalidVisibility
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visibility[uri] = v
	return nil
}

func (s *Store) Visibility(_ context.Context, uri string) (storage.Visibility, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.visibility[uri]
	if !ok {
		return "", storage.ErrNotFound
	}
	return v, nil
}

func (s *Store) CreatePost(_ context.Context, p storage.Post) error {
	if !p.Visibility.Valid() {
		return storage.ErrInvalidVisibility
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p.FilePaths = append([]string(nil), p.FilePaths...)
	s.posts = append(s.posts, p)
	return nil
}

func (s *Store) PostsByCommunity(_ context.Context, community string) ([]storage.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []storage.Post
	for _, p := range s.posts {
		if p.Community == community {
			out = append(out, p)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *Store) LatestPublic(_ context.Context) ([]storage.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []storage.Post
	for _, p := range s.posts {
		if p.Visibility == storage.VisibilityPublic {
			out = append(out, p)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *Store) PutCreator(_ context.Context, c storage.Creator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creators[c.Address] = c
	return nil
}

func (s *Store) Creator(_ context.Context, address string) (storage.Creator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.creators[address]
	if !ok {
		return storage.Creator{}, storage.ErrNotFound
	}
	return c, nil
}

func (s *Store) Creators(_ context.Context) ([]storage.Creator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]storage.Creator, 0, len(s.creators))
	for _, c := range s.creators {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out, nil
}

func sortNewestFirst(posts []storage.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
}
