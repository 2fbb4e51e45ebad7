package testkit

import (
	"context"
	"testing"
	"time"

	"xdao.co/tokengate/storage"
)

// NewStore constructs a fresh, empty Store instance for a test.
// The returned Store MUST be isolated from other tests.
type NewStore func(t *testing.T) storage.Store

// RunStoreConformance exercises the storage.Store contract against a
// backend constructor. Every backend test file should call it.
func RunStoreConformance(t *testing.T, newStore NewStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("VisibilitySetGet", func(t *testing.T) {
		s := newStore(t)
		if err := s.SetVisibility(ctx, "/auth/community/a.png", storage.VisibilityCommunity); err != nil {
			t.Fatalf("SetVisibility failed: %v", err)
		}
		v, err := s.Visibility(ctx, "/auth/community/a.png")
		if err != nil {
			t.Fatalf("Visibility failed: %v", err)
		}
		if v != storage.VisibilityCommunity {
			t.Fatalf("Visibility: got %q want %q", v, storage.VisibilityCommunity)
		}
	})

	t.Run("VisibilityOverwrite", func(t *testing.T) {
		s := newStore(t)
		uri := "/auth/community/a.png"
		if err := s.SetVisibility(ctx, uri, storage.VisibilityPublic); err != nil {
			t.Fatalf("SetVisibility(1) failed: %v", err)
		}
		if err := s.SetVisibility(ctx, uri, storage.VisibilitySubscribers); err != nil {
			t.Fatalf("SetVisibility(2) failed: %v", err)
		}
		v, err := s.Visibility(ctx, uri)
		if err != nil {
			t.Fatalf("Visibility failed: %v", err)
		}
		if v != storage.VisibilitySubscribers {
			t.Fatalf("Visibility after overwrite: got %q", v)
		}
	})

	t.Run("VisibilityNotFound", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Visibility(ctx, "/never/stored")
		if !storage.IsNotFound(err) {
			t.Fatalf("Visibility missing: got err=%v want ErrNotFound", err)
		}
	})

	t.Run("VisibilityRejectsUnknownTier", func(t *testing.T) {
		s := newStore(t)
		if err := s.SetVisibility(ctx, "/x", storage.Visibility("friends")); err == nil {
			t.Fatalf("SetVisibility accepted an unknown tier")
		}
	})

	t.Run("PostsNewestFirst", func(t *testing.T) {
		s := newStore(t)
		base := time.Date(2023, 4, 1, 12, 0, 0, 0, time.UTC)
		for i, content := range []string{"first", "second", "third"} {
			p := storage.Post{
				Community:  "mintA",
				Author:     "author",
				Visibility: storage.VisibilityCommunity,
				CreatedAt:  base.Add(time.Duration(i) * time.Minute),
				Content:    content,
			}
			if err := s.CreatePost(ctx, p); err != nil {
				t.Fatalf("CreatePost failed: %v", err)
			}
		}
		posts, err := s.PostsByCommunity(ctx, "mintA")
		if err != nil {
			t.Fatalf("PostsByCommunity failed: %v", err)
		}
		if len(posts) != 3 {
			t.Fatalf("got %d posts, want 3", len(posts))
		}
		for i, want := range []string{"third", "second", "first"} {
			if posts[i].Content != want {
				t.Fatalf("posts[%d].Content = %q, want %q", i, posts[i].Content, want)
			}
		}
	})

	t.Run("PostsScopedToCommunity", func(t *testing.T) {
		s := newStore(t)
		now := time.Now().UTC()
		mustCreate(t, s, storage.Post{Community: "mintA", Author: "a", Visibility: storage.VisibilityPublic, CreatedAt: now, Content: "mine"})
		mustCreate(t, s, storage.Post{Community: "mintB", Author: "b", Visibility: storage.VisibilityPublic, CreatedAt: now, Content: "other"})

		posts, err := s.PostsByCommunity(ctx, "mintA")
		if err != nil {
			t.Fatalf("PostsByCommunity failed: %v", err)
		}
		if len(posts) != 1 || posts[0].Content != "mine" {
			t.Fatalf("PostsByCommunity leaked across communities: %+v", posts)
		}
	})

	t.Run("LatestPublicFiltersTiers", func(t *testing.T) {
		s := newStore(t)
		now := time.Now().UTC()
		mustCreate(t, s, storage.Post{Community: "mintA", Author: "a", Visibility: storage.VisibilityPublic, CreatedAt: now, Content: "open"})
		mustCreate(t, s, storage.Post{Community: "mintA", Author: "a", Visibility: storage.VisibilityCommunity, CreatedAt: now, Content: "gated"})
		mustCreate(t, s, storage.Post{Community: "mintA", Author: "a", Visibility: storage.VisibilitySubscribers, CreatedAt: now, Content: "paid"})

		posts, err := s.LatestPublic(ctx)
		if err != nil {
			t.Fatalf("LatestPublic failed: %v", err)
		}
		if len(posts) != 1 || posts[0].Content != "open" {
			t.Fatalf("LatestPublic returned non-public posts: %+v", posts)
		}
	})

	t.Run("PostFilePathsRoundTrip", func(t *testing.T) {
		s := newStore(t)
		p := storage.Post{
			Community:  "mintA",
			Author:     "a",
			Visibility: storage.VisibilityCommunity,
			CreatedAt:  time.Now().UTC(),
			Content:    "with files",
			FilePaths:  []string{"/auth/comm/a.png", "/auth/comm/b.png"},
		}
		mustCreate(t, s, p)
		posts, err := s.PostsByCommunity(ctx, "mintA")
		if err != nil {
			t.Fatalf("PostsByCommunity failed: %v", err)
		}
		if len(posts) != 1 || len(posts[0].FilePaths) != 2 {
			t.Fatalf("file paths lost: %+v", posts)
		}
	})

	t.Run("CreatorPutGetOverwrite", func(t *testing.T) {
		s := newStore(t)
		c := storage.Creator{Address: "addr1", Username: "alice", Image: "img", Description: "desc"}
		if err := s.PutCreator(ctx, c); err != nil {
			t.Fatalf("PutCreator failed: %v", err)
		}
		c.Username = "alice2"
		c.Banner = "banner"
		if err := s.PutCreator(ctx, c); err != nil {
			t.Fatalf("PutCreator(2) failed: %v", err)
		}
		got, err := s.Creator(ctx, "addr1")
		if err != nil {
			t.Fatalf("Creator failed: %v", err)
		}
		if got != c {
			t.Fatalf("Creator: got %+v want %+v", got, c)
		}
	})

	t.Run("CreatorNotFound", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Creator(ctx, "missing")
		if !storage.IsNotFound(err) {
			t.Fatalf("Creator missing: got err=%v want ErrNotFound", err)
		}
	})

	t.Run("CreatorsListsAll", func(t *testing.T) {
		s := newStore(t)
		mustPutCreator(t, s, storage.Creator{Address: "addr1", Username: "alice"})
		mustPutCreator(t, s, storage.Creator{Address: "addr2", Username: "bob"})
		all, err := s.Creators(ctx)
		if err != nil {
			t.Fatalf("Creators failed: %v", err)
		}
		if len(all) != 2 {
			t.Fatalf("got %d creators, want 2", len(all))
		}
	})
}

func mustCreate(t *testing.T, s storage.PostStore, p storage.Post) {
	t.Helper()
	if err := s.CreatePost(context.Background(), p); err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
}

func mustPutCreator(t *testing.T, s storage.CreatorStore, c storage.Creator) {
	t.Helper()
	if err := s.PutCreator(context.Background(), c); err != nil {
		t.Fatalf("PutCreator failed: %v", err)
	}
}
