// Package feed serves community posts and creator profiles. Reading a
// community feed redacts gated posts down to their public envelope for
// callers whose entitlement does not cover the post's tier.
//
// Listing reads retry a bounded number of times on store failure. This
// path only affects display; authorization decisions never retry.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"xdao.co/tokengate/entitle"
	"xdao.co/tokengate/storage"
)

var (
	// ErrUnauthorized means the caller's entitlement does not permit the
	// operation.
	ErrUnauthorized = errors.New("feed: unauthorized")
	// ErrInvalidPost means the post body failed validation.
	ErrInvalidPost = errors.New("feed: invalid post")
)

// Entitlements resolves a resource key against the ledger.
type Entitlements interface {
	Resolve(ctx context.Context, identity, requestedKey string) (entitle.Entitlement, error)
	ResourceInfo(ctx context.Context, requestedKey string) (entitle.Resource, error)
}

// defaultListAttempts bounds retries on the listing path.
const defaultListAttempts = 3

// Service implements the feed operations over a storage backend.
type Service struct {
	store        storage.Store
	entitlements Entitlements
	logger       *slog.Logger
	attempts     int
	now          func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithListAttempts overrides the bounded retry count for listing reads.
func WithListAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.attempts = n
		}
	}
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store storage.Store, ents Entitlements, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		store:        store,
		entitlements: ents,
		logger:       logger,
		attempts:     defaultListAttempts,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PostView is the wire shape of one post. Content and FilePaths are
// omitted when the caller's entitlement does not cover the post's tier.
type PostView struct {
	Community    string             `json:"community,omitempty"`
	Author       string             `json:"author"`
	Visibility   storage.Visibility `json:"visibility"`
	CreationDate string             `json:"creationDate"`
	Content      string             `json:"content,omitempty"`
	FilePaths    []string           `json:"filePaths,omitempty"`
}

// CreatePostRequest is the body of a post creation call.
type CreatePostRequest struct {
	Content    string             `json:"content"`
	Visibility storage.Visibility `json:"visibility"`
	FilePaths  []string           `json:"filePaths"`
}

// LatestPosts returns the newest public posts across all communities.
func (s *Service) LatestPosts(ctx context.Context) ([]PostView, error) {
	posts, err := s.listWithRetry(ctx, func(ctx context.Context) ([]storage.Post, error) {
		return s.store.LatestPublic(ctx)
	})
	if err != nil {
		return nil, err
	}
	out := make([]PostView, 0, len(posts))
	for _, p := range posts {
		v := fullView(p)
		v.Community = p.Community
		out = append(out, v)
	}
	return out, nil
}

// CommunityPosts returns a community's feed for the given identity.
// Posts above the caller's entitlement keep only author, tier, and date.
func (s *Service) CommunityPosts(ctx context.Context, identity, requestedKey string) ([]PostView, error) {
	res, err := s.entitlements.ResourceInfo(ctx, requestedKey)
	if err != nil {
		return nil, err
	}
	ent, err := s.entitlements.Resolve(ctx, identity, requestedKey)
	if err != nil {
		return nil, err
	}

	posts, err := s.listWithRetry(ctx, func(ctx context.Context) ([]storage.Post, error) {
		return s.store.PostsByCommunity(ctx, res.Mint)
	})
	if err != nil {
		return nil, err
	}

	out := make([]PostView, 0, len(posts))
	for _, p := range posts {
		if readable(p.Visibility, ent) {
			out = append(out, fullView(p))
			continue
		}
		out = append(out, PostView{
			Author:       p.Author,
			Visibility:   p.Visibility,
			CreationDate: p.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out, nil
}

// CreatePost stores a post in the community behind requestedKey and
// records the visibility tier of every attached file under its canonical
// URI. Only the community's update authority may post.
func (s *Service) CreatePost(ctx context.Context, identity, requestedKey string, req CreatePostRequest) error {
	if !req.Visibility.Valid() {
		return fmt.Errorf("%w: unknown visibility %q", ErrInvalidPost, req.Visibility)
	}
	res, err := s.entitlements.ResourceInfo(ctx, requestedKey)
	if err != nil {
		return err
	}
	ent, err := s.entitlements.Resolve(ctx, identity, requestedKey)
	if err != nil {
		return err
	}
	if !ent.IsOwner || identity != ent.UpdateAuthority {
		return ErrUnauthorized
	}

	post := storage.Post{
		Community:  res.Mint,
		Author:     identity,
		Visibility: req.Visibility,
		CreatedAt:  s.now().UTC(),
		Content:    req.Content,
		FilePaths:  req.FilePaths,
	}
	if err := s.store.CreatePost(ctx, post); err != nil {
		return err
	}

	for _, filePath := range req.FilePaths {
		actualURI, err := canonicalFileURI(filePath, requestedKey, ent.UpdateAuthority, ent.CanonicalPath)
		if err != nil {
			s.logger.Warn("feed_file_uri_rejected", "path", filePath, "error", err.Error())
			continue
		}
		if err := s.store.SetVisibility(ctx, actualURI, req.Visibility); err != nil {
			s.logger.Warn("feed_file_visibility_failed", "uri", actualURI, "error", err.Error())
		}
	}
	return nil
}

// PutCreator writes the profile at address. Only the address holder may
// write their own profile.
func (s *Service) PutCreator(ctx context.Context, identity, address string, c storage.Creator) error {
	if identity != address {
		return ErrUnauthorized
	}
	if c.Username == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidPost)
	}
	c.Address = address
	return s.store.PutCreator(ctx, c)
}

// Creator returns a profile, or ErrNotFound from the store.
func (s *Service) Creator(ctx context.Context, address string) (storage.Creator, error) {
	return s.store.Creator(ctx, address)
}

// Creators lists every stored profile.
func (s *Service) Creators(ctx context.Context) ([]storage.Creator, error) {
	return s.store.Creators(ctx)
}

func (s *Service) listWithRetry(ctx context.Context, fetch func(context.Context) ([]storage.Post, error)) ([]storage.Post, error) {
	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		posts, err := fetch(ctx)
		if err == nil {
			return posts, nil
		}
		lastErr = err
		s.logger.Warn("feed_list_attempt_failed", "attempt", attempt, "error", err.Error())
	}
	return nil, lastErr
}

func readable(v storage.Visibility, ent entitle.Entitlement) bool {
	switch v {
	case storage.VisibilityPublic:
		return true
	case storage.VisibilityCommunity:
		return ent.IsOwner
	case storage.VisibilitySubscribers:
		return ent.IsOwner && ent.HasSubscriberAccess
	}
	return false
}

func fullView(p storage.Post) PostView {
	return PostView{
		Author:       p.Author,
		Visibility:   p.Visibility,
		CreationDate: p.CreatedAt.UTC().Format(time.RFC3339),
		Content:      p.Content,
		FilePaths:    p.FilePaths,
	}
}

// canonicalFileURI maps an attached file path (absolute URL or bare
// path) onto the canonical {updateAuthority}/{path} URI the edge
// rewrites reads to.
func canonicalFileURI(filePath, key, updateAuthority, canonicalPath string) (string, error) {
	u, err := url.Parse(filePath)
	if err != nil {
		return "", err
	}
	p := u.EscapedPath()
	prefix := "/" + key
	if len(p) < len(prefix) || !strings.EqualFold(p[:len(prefix)], prefix) {
		return "", fmt.Errorf("path %q does not start with /%s", p, key)
	}
	return "/" + updateAuthority + "/" + canonicalPath + p[len(prefix):], nil
}
