package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"xdao.co/tokengate/entitle"
	"xdao.co/tokengate/storage"
	"xdao.co/tokengate/storage/memory"
)

const (
	testKey       = "4ZYsYrqSQDDoAdqKyCTv1EUXCcomhBV6RiCMqBHnbh9x"
	testMint      = "BrfAqmzbQ63cPcTKVrzkpcBateVJSLQgCAs6gBhnWmT9"
	authorityAddr = "8dXhtZLAhvMTRm4jnQhfGMdY9qpHkSqPDfkq2S65U5ij"
	memberAddr    = "6fmhhPwSNUFENTZBHoGoPQScqCTvbZJCiEVgCg5ySpam"
	strangerAddr  = "J2vUKvv4BEnCgjDQCJAkDLQfM4kduwwW7PCjGppdHis"
	testPath      = "my%20community"
)

type fakeEntitlements struct {
	grants map[string]entitle.Entitlement
}

func (f fakeEntitlements) Resolve(_ context.Context, identity, requestedKey string) (entitle.Entitlement, error) {
	if requestedKey != testKey {
		return entitle.Entitlement{}, entitle.ErrNotFound
	}
	ent, ok := f.grants[identity]
	if !ok {
		return entitle.Entitlement{UpdateAuthority: authorityAddr, CanonicalPath: testPath}, nil
	}
	return ent, nil
}

func (f fakeEntitlements) ResourceInfo(_ context.Context, requestedKey string) (entitle.Resource, error) {
	if requestedKey != testKey {
		return entitle.Resource{}, entitle.ErrNotFound
	}
	return entitle.Resource{Mint: testMint, UpdateAuthority: authorityAddr, CanonicalPath: testPath}, nil
}

func testEntitlements() fakeEntitlements {
	return fakeEntitlements{grants: map[string]entitle.Entitlement{
		authorityAddr: {IsOwner: true, UpdateAuthority: authorityAddr, HasSubscriberAccess: true, CanonicalPath: testPath},
		memberAddr:    {IsOwner: true, UpdateAuthority: authorityAddr, HasSubscriberAccess: false, CanonicalPath: testPath},
	}}
}

func newService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	svc := NewService(store, testEntitlements(), nil, WithClock(func() time.Time {
		return time.Date(2023, 4, 1, 12, 0, 0, 0, time.UTC)
	}))
	return svc, store
}

func createPost(t *testing.T, svc *Service, req CreatePostRequest) {
	t.Helper()
	if err := svc.CreatePost(context.Background(), authorityAddr, testKey, req); err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
}

func TestCreatePost_RecordsFileVisibility(t *testing.T) {
	svc, store := newService(t)
	createPost(t, svc, CreatePostRequest{
		Content:    "hello",
		Visibility: storage.VisibilitySubscribers,
		FilePaths:  []string{"https://cdn.example/" + testKey + "/teaser.png"},
	})

	uri := "/" + authorityAddr + "/" + testPath + "/teaser.png"
	v, err := store.Visibility(context.Background(), uri)
	if err != nil {
		t.Fatalf("Visibility(%q): %v", uri, err)
	}
	if v != storage.VisibilitySubscribers {
		t.Fatalf("visibility = %q", v)
	}
}

func TestCreatePost_RequiresUpdateAuthority(t *testing.T) {
	svc, _ := newService(t)
	err := svc.CreatePost(context.Background(), memberAddr, testKey, CreatePostRequest{
		Content:    "hi",
		Visibility: storage.VisibilityPublic,
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestCreatePost_RejectsUnknownVisibility(t *testing.T) {
	svc, _ := newService(t)
	err := svc.CreatePost(context.Background(), authorityAddr, testKey, CreatePostRequest{
		Content:    "hi",
		Visibility: storage.Visibility("friends"),
	})
	if !errors.Is(err, ErrInvalidPost) {
		t.Fatalf("expected ErrInvalidPost, got %v", err)
	}
}

func TestCommunityPosts_RedactsByTier(t *testing.T) {
	svc, _ := newService(t)
	createPost(t, svc, CreatePostRequest{Content: "open", Visibility: storage.VisibilityPublic})
	createPost(t, svc, CreatePostRequest{Content: "gated", Visibility: storage.VisibilityCommunity})
	createPost(t, svc, CreatePostRequest{Content: "paid", Visibility: storage.VisibilitySubscribers})

	cases := []struct {
		name     string
		identity string
		want     map[string]bool // content -> expect full view
	}{
		{"authority sees everything", authorityAddr, map[string]bool{"open": true, "gated": true, "paid": true}},
		{"lapsed member loses subscriber posts", memberAddr, map[string]bool{"open": true, "gated": true, "paid": false}},
		{"stranger sees only public", strangerAddr, map[string]bool{"open": true, "gated": false, "paid": false}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			posts, err := svc.CommunityPosts(context.Background(), tc.identity, testKey)
			if err != nil {
				t.Fatalf("CommunityPosts: %v", err)
			}
			if len(posts) != 3 {
				t.Fatalf("got %d posts, want 3", len(posts))
			}
			full := 0
			for _, p := range posts {
				if p.Content != "" {
					if !tc.want[p.Content] {
						t.Fatalf("content %q leaked to %s", p.Content, tc.identity)
					}
					full++
				}
				if p.Author != authorityAddr || p.CreationDate == "" {
					t.Fatalf("redacted view lost public fields: %+v", p)
				}
			}
			wantFull := 0
			for _, ok := range tc.want {
				if ok {
					wantFull++
				}
			}
			if full != wantFull {
				t.Fatalf("got %d full views, want %d", full, wantFull)
			}
		})
	}
}

func TestLatestPosts_PublicOnlyWithCommunity(t *testing.T) {
	svc, _ := newService(t)
	createPost(t, svc, CreatePostRequest{Content: "open", Visibility: storage.VisibilityPublic})
	createPost(t, svc, CreatePostRequest{Content: "gated", Visibility: storage.VisibilityCommunity})

	posts, err := svc.LatestPosts(context.Background())
	if err != nil {
		t.Fatalf("LatestPosts: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("got %d posts, want 1", len(posts))
	}
	if posts[0].Content != "open" || posts[0].Community != testMint {
		t.Fatalf("unexpected post: %+v", posts[0])
	}
}

type flakyStore struct {
	storage.Store
	failures int
	calls    int
}

func (f *flakyStore) LatestPublic(ctx context.Context) ([]storage.Post, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("transient store failure")
	}
	return f.Store.LatestPublic(ctx)
}

func TestLatestPosts_BoundedRetry(t *testing.T) {
	flaky := &flakyStore{Store: memory.New(), failures: 2}
	svc := NewService(flaky, testEntitlements(), nil, WithListAttempts(3))

	if _, err := svc.LatestPosts(context.Background()); err != nil {
		t.Fatalf("LatestPosts should succeed within the retry budget: %v", err)
	}
	if flaky.calls != 3 {
		t.Fatalf("calls = %d, want 3", flaky.calls)
	}
}

func TestLatestPosts_RetryBudgetExhausted(t *testing.T) {
	flaky := &flakyStore{Store: memory.New(), failures: 10}
	svc := NewService(flaky, testEntitlements(), nil, WithListAttempts(3))

	if _, err := svc.LatestPosts(context.Background()); err == nil {
		t.Fatal("expected failure after exhausting retries")
	}
	if flaky.calls != 3 {
		t.Fatalf("calls = %d, want 3", flaky.calls)
	}
}

func TestPutCreator_OnlySelf(t *testing.T) {
	svc, _ := newService(t)
	c := storage.Creator{Username: "alice", Image: "img", Description: "desc"}

	if err := svc.PutCreator(context.Background(), memberAddr, authorityAddr, c); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := svc.PutCreator(context.Background(), authorityAddr, authorityAddr, c); err != nil {
		t.Fatalf("PutCreator: %v", err)
	}
	got, err := svc.Creator(context.Background(), authorityAddr)
	if err != nil {
		t.Fatalf("Creator: %v", err)
	}
	if got.Address != authorityAddr || got.Username != "alice" {
		t.Fatalf("unexpected profile: %+v", got)
	}
}

func TestCanonicalFileURI(t *testing.T) {
	got, err := canonicalFileURI("https://cdn.example/"+testKey+"/dir/a.png", testKey, authorityAddr, testPath)
	if err != nil {
		t.Fatalf("canonicalFileURI: %v", err)
	}
	want := "/" + authorityAddr + "/" + testPath + "/dir/a.png"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	if _, err := canonicalFileURI("/otherKey/a.png", testKey, authorityAddr, testPath); err == nil {
		t.Fatal("foreign key path must be rejected")
	}
}
