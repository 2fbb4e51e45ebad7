// Package storage defines the persistence interfaces behind the content
// gateway: visibility records for stored files, community posts, and
// creator profiles. Backends live in subpackages; callers program against
// the interfaces here.
package storage

import (
	"context"
	"time"
)

// Visibility is the access tier of a stored file or post.
type Visibility string

const (
	// VisibilityPublic is readable by anyone.
	VisibilityPublic Visibility = "public"
	// VisibilityCommunity is readable by token holders.
	VisibilityCommunity Visibility = "community"
	// VisibilitySubscribers is readable by token holders with an active
	// subscription.
	VisibilitySubscribers Visibility = "subscribers"
)

// Valid reports whether v is one of the known tiers.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityCommunity, VisibilitySubscribers:
		return true
	}
	return false
}

// VisibilityStore records the access tier of content paths.
//
// Contract:
// - Set MUST overwrite an existing record for the same URI.
// - Visibility MUST return ErrNotFound when the URI is absent.
// - URIs are stored verbatim; callers canonicalize before writing.
type VisibilityStore interface {
	SetVisibility(ctx context.Context, uri string, v Visibility) error
	Visibility(ctx context.Context, uri string) (Visibility, error)
}

// Post is one entry in a community feed.
type Post struct {
	// Community is the mint address of the community the post belongs to.
	Community  string
	Author     string
	Visibility Visibility
	CreatedAt  time.Time
	Content    string
	FilePaths  []string
}

// PostStore persists community posts.
//
// Contract:
// - Listings MUST be ordered newest first.
// - PostsByCommunity returns every tier; the caller filters by
//   entitlement before serving.
// - LatestPublic returns only public posts.
type PostStore interface {
	CreatePost(ctx context.Context, p Post) error
	PostsByCommunity(ctx context.Context, community string) ([]Post, error)
	LatestPublic(ctx context.Context) ([]Post, error)
}

// Creator is a public profile keyed by ledger address.
type Creator struct {
	Address     string `json:"address"`
	Username    string `json:"username"`
	Image       string `json:"image"`
	Description string `json:"description"`
	Banner      string `json:"banner,omitempty"`
}

// CreatorStore persists creator profiles.
//
// Contract:
// - PutCreator MUST overwrite an existing profile for the same address.
// - Creator MUST return ErrNotFound when the address is absent.
type CreatorStore interface {
	PutCreator(ctx context.Context, c Creator) error
	Creator(ctx context.Context, address string) (Creator, error)
	Creators(ctx context.Context) ([]Creator, error)
}

// Store is a backend implementing every persistence concern.
type Store interface {
	VisibilityStore
	PostStore
	CreatorStore
}
