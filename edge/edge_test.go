package edge

import (
	"context"
	"testing"

	"xdao.co/tokengate/bearer"
	"xdao.co/tokengate/entitle"
	"xdao.co/tokengate/storage"
	"xdao.co/tokengate/storage/memory"
)

type fakeVerifier struct {
	// token value -> authenticated address
	identities map[string]string
}

func (f fakeVerifier) Verify(authorization string) (bearer.Identity, error) {
	if authorization == "" {
		return bearer.Identity{}, &bearer.AuthError{Reason: bearer.ReasonNoToken}
	}
	addr, ok := f.identities[authorization]
	if !ok {
		return bearer.Identity{}, &bearer.AuthError{Reason: bearer.ReasonTokenVerificationFailed}
	}
	return bearer.Identity{Address: addr}, nil
}

type fakeEntitlements struct {
	resources map[string]entitle.Resource
	// identity|key -> entitlement
	grants map[string]entitle.Entitlement
}

func (f fakeEntitlements) Resolve(_ context.Context, identity, requestedKey string) (entitle.Entitlement, error) {
	ent, ok := f.grants[identity+"|"+requestedKey]
	if !ok {
		return entitle.Entitlement{}, entitle.ErrNotFound
	}
	return ent, nil
}

func (f fakeEntitlements) ResourceInfo(_ context.Context, requestedKey string) (entitle.Resource, error) {
	res, ok := f.resources[requestedKey]
	if !ok {
		return entitle.Resource{}, entitle.ErrNotFound
	}
	return res, nil
}

const (
	resourceKey   = "4ZYsYrqSQDDoAdqKyCTv1EUXCcomhBV6RiCMqBHnbh9x"
	authorityAddr = "8dXhtZLAhvMTRm4jnQhfGMdY9qpHkSqPDfkq2S65U5ij"
	ownerAddr     = "6fmhhPwSNUFENTZBHoGoPQScqCTvbZJCiEVgCg5ySpam"
	canonicalPath = "my%20community"
)

func testAuthorizer(t *testing.T, ownerEnt entitle.Entitlement) (*Authorizer, *memory.Store) {
	t.Helper()
	store := memory.New()
	verifier := fakeVerifier{identities: map[string]string{
		"owner-token":     ownerAddr,
		"authority-token": authorityAddr,
	}}
	ents := fakeEntitlements{
		resources: map[string]entitle.Resource{
			resourceKey: {Mint: "mint1", UpdateAuthority: authorityAddr, CanonicalPath: canonicalPath},
		},
		grants: map[string]entitle.Entitlement{
			ownerAddr + "|" + resourceKey:     ownerEnt,
			authorityAddr + "|" + resourceKey: {IsOwner: true, UpdateAuthority: authorityAddr, HasSubscriberAccess: true, CanonicalPath: canonicalPath},
		},
	}
	return NewAuthorizer(verifier, ents, store, nil), store
}

func ownerEntitlement() entitle.Entitlement {
	return entitle.Entitlement{
		IsOwner:             true,
		UpdateAuthority:     authorityAddr,
		HasSubscriberAccess: true,
		CanonicalPath:       canonicalPath,
	}
}

func mustSetVisibility(t *testing.T, store *memory.Store, uri string, v storage.Visibility) {
	t.Helper()
	if err := store.SetVisibility(context.Background(), uri, v); err != nil {
		t.Fatalf("SetVisibility: %v", err)
	}
}

func requireDenied(t *testing.T, res Result) {
	t.Helper()
	if res.Allowed {
		t.Fatal("expected denial")
	}
	if res.Denial == nil || res.Denial.Status != "401" || res.Denial.StatusDescription != "Unauthorized" {
		t.Fatalf("denial not generic: %+v", res.Denial)
	}
}

func TestAuthorize_OptionsPassesThrough(t *testing.T) {
	a, _ := testAuthorizer(t, ownerEntitlement())
	req := &Request{Method: "OPTIONS", URI: "/" + resourceKey + "/file.png", Headers: map[string]string{}}

	res := a.Authorize(context.Background(), req)
	if !res.Allowed || res.Request.URI != req.URI {
		t.Fatalf("OPTIONS must pass through unchanged: %+v", res)
	}
}

func TestAuthorize_AnonymousAvatarGet(t *testing.T) {
	a, _ := testAuthorizer(t, ownerEntitlement())
	req := &Request{Method: "GET", URI: "/avatar/" + ownerAddr + ".png", Headers: map[string]string{}}

	res := a.Authorize(context.Background(), req)
	if !res.Allowed {
		t.Fatal("anonymous avatar GET must be allowed")
	}
	if res.Request.URI != req.URI {
		t.Fatalf("avatar GET must not be rewritten: %q", res.Request.URI)
	}
}

func TestAuthorize_AvatarPutByStrangerDenied(t *testing.T) {
	a, _ := testAuthorizer(t, ownerEntitlement())
	req := &Request{
		Method:  "PUT",
		URI:     "/avatar/" + authorityAddr,
		Headers: map[string]string{"authorization": "owner-token"},
	}
	requireDenied(t, a.Authorize(context.Background(), req))
}

func TestAuthorize_AvatarWriteByStrangerDenied(t *testing.T) {
	// Every mutating method on another address's image is rejected, not
	// just PUT.
	a, _ := testAuthorizer(t, ownerEntitlement())
	for _, method := range []string{"DELETE", "POST", "PATCH"} {
		req := &Request{
			Method:  method,
			URI:     "/avatar/" + authorityAddr,
			Headers: map[string]string{"authorization": "owner-token"},
		}
		res := a.Authorize(context.Background(), req)
		if res.Allowed {
			t.Fatalf("avatar %s by a stranger was allowed", method)
		}
	}
}

func TestAuthorize_AvatarDeleteByOwnerAllowed(t *testing.T) {
	a, _ := testAuthorizer(t, ownerEntitlement())
	req := &Request{
		Method:  "DELETE",
		URI:     "/avatar/" + ownerAddr,
		Headers: map[string]string{"authorization": "owner-token"},
	}
	res := a.Authorize(context.Background(), req)
	if !res.Allowed {
		t.Fatal("avatar DELETE by its owner must be allowed")
	}
	if _, ok := res.Request.Headers["authorization"]; ok {
		t.Fatal("authorization header must be stripped before forwarding")
	}
}

func TestAuthorize_AvatarPutByOwnerAllowed(t *testing.T) {
	a, _ := testAuthorizer(t, ownerEntitlement())
	req := &Request{
		Method:  "PUT",
		URI:     "/avatar/" + ownerAddr,
		Headers: map[string]string{"authorization": "owner-token"},
	}
	res := a.Authorize(context.Background(), req)
	if !res.Allowed {
		t.Fatal("avatar PUT by its owner must be allowed")
	}
	if _, ok := res.Request.Headers["authorization"]; ok {
		t.Fatal("authorization header must be stripped before forwarding")
	}
}

func TestAuthorize_AnonymousPublicObject(t *testing.T) {
	a, store := testAuthorizer(t, ownerEntitlement())
	rewritten := "/" + authorityAddr + "/" + canonicalPath + "/file.png"
	mustSetVisibility(t, store, rewritten, storage.VisibilityPublic)

	req := &Request{Method: "GET", URI: "/" + resourceKey + "/file.png", Headers: map[string]string{}}
	res := a.Authorize(context.Background(), req)
	if !res.Allowed {
		t.Fatal("anonymous GET on public object must be allowed")
	}
	if res.Request.URI != rewritten {
		t.Fatalf("uri = %q, want %q", res.Request.URI, rewritten)
	}
}

func TestAuthorize_AnonymousCommunityObjectDenied(t *testing.T) {
	a, store := testAuthorizer(t, ownerEntitlement())
	rewritten := "/" + authorityAddr + "/" + canonicalPath + "/file.png"
	mustSetVisibility(t, store, rewritten, storage.VisibilityCommunity)

	req := &Request{Method: "GET", URI: "/" + resourceKey + "/file.png", Headers: map[string]string{}}
	requireDenied(t, a.Authorize(context.Background(), req))
}

func TestAuthorize_OwnerGetCommunityObject(t *testing.T) {
	a, store := testAuthorizer(t, ownerEntitlement())
	rewritten := "/" + authorityAddr + "/" + canonicalPath + "/file.png"
	mustSetVisibility(t, store, rewritten, storage.VisibilityCommunity)

	req := &Request{
		Method:  "GET",
		URI:     "/" + resourceKey + "/file.png",
		Headers: map[string]string{"authorization": "owner-token"},
	}
	res := a.Authorize(context.Background(), req)
	if !res.Allowed {
		t.Fatal("owner GET on community object must be allowed")
	}
	if res.Request.URI != rewritten {
		t.Fatalf("uri = %q, want %q", res.Request.URI, rewritten)
	}
	if _, ok := res.Request.Headers["authorization"]; ok {
		t.Fatal("authorization header must be stripped before forwarding")
	}
}

func TestAuthorize_LapsedSubscriberDenied(t *testing.T) {
	ent := ownerEntitlement()
	ent.HasSubscriberAccess = false
	a, store := testAuthorizer(t, ent)
	rewritten := "/" + authorityAddr + "/" + canonicalPath + "/file.png"
	mustSetVisibility(t, store, rewritten, storage.VisibilitySubscribers)

	req := &Request{
		Method:  "GET",
		URI:     "/" + resourceKey + "/file.png",
		Headers: map[string]string{"authorization": "owner-token"},
	}
	requireDenied(t, a.Authorize(context.Background(), req))
}

func TestAuthorize_NonOwnerDenied(t *testing.T) {
	ent := ownerEntitlement()
	ent.IsOwner = false
	a, store := testAuthorizer(t, ent)
	rewritten := "/" + authorityAddr + "/" + canonicalPath + "/file.png"
	mustSetVisibility(t, store, rewritten, storage.VisibilityCommunity)

	req := &Request{
		Method:  "GET",
		URI:     "/" + resourceKey + "/file.png",
		Headers: map[string]string{"authorization": "owner-token"},
	}
	requireDenied(t, a.Authorize(context.Background(), req))
}

func TestAuthorize_WriteRequiresUpdateAuthority(t *testing.T) {
	a, store := testAuthorizer(t, ownerEntitlement())
	rewritten := "/" + authorityAddr + "/" + canonicalPath + "/file.png"
	mustSetVisibility(t, store, rewritten, storage.VisibilityCommunity)

	req := &Request{
		Method:  "PUT",
		URI:     "/" + resourceKey + "/file.png",
		Headers: map[string]string{"authorization": "owner-token"},
	}
	requireDenied(t, a.Authorize(context.Background(), req))

	req.Headers["authorization"] = "authority-token"
	res := a.Authorize(context.Background(), req)
	if !res.Allowed {
		t.Fatal("update authority PUT must be allowed")
	}
	if res.Request.URI != rewritten {
		t.Fatalf("uri = %q, want %q", res.Request.URI, rewritten)
	}
}

func TestAuthorize_ListPrefixRewritten(t *testing.T) {
	a, _ := testAuthorizer(t, ownerEntitlement())
	req := &Request{
		Method:      "GET",
		URI:         "/",
		Querystring: "list-type=2&prefix=" + resourceKey + "/",
		Headers:     map[string]string{"authorization": "owner-token"},
	}
	res := a.Authorize(context.Background(), req)
	if !res.Allowed {
		t.Fatal("owner list must be allowed")
	}
	want := "list-type=2&prefix=" + authorityAddr + "/" + canonicalPath + "/"
	if res.Request.Querystring != want {
		t.Fatalf("querystring = %q, want %q", res.Request.Querystring, want)
	}
}

func TestAuthorize_MissingTokenDenied(t *testing.T) {
	a, store := testAuthorizer(t, ownerEntitlement())
	rewritten := "/" + authorityAddr + "/" + canonicalPath + "/file.png"
	mustSetVisibility(t, store, rewritten, storage.VisibilityCommunity)

	req := &Request{Method: "GET", URI: "/" + resourceKey + "/file.png", Headers: map[string]string{}}
	requireDenied(t, a.Authorize(context.Background(), req))
}

func TestAuthorize_UnknownResourceDenied(t *testing.T) {
	a, _ := testAuthorizer(t, ownerEntitlement())
	req := &Request{
		Method:  "GET",
		URI:     "/unknownKey/file.png",
		Headers: map[string]string{"authorization": "owner-token"},
	}
	requireDenied(t, a.Authorize(context.Background(), req))
}

func TestAuthorize_MissingVisibilityRecordDenied(t *testing.T) {
	a, _ := testAuthorizer(t, ownerEntitlement())
	req := &Request{
		Method:  "GET",
		URI:     "/" + resourceKey + "/file.png",
		Headers: map[string]string{"authorization": "owner-token"},
	}
	requireDenied(t, a.Authorize(context.Background(), req))
}

func TestParseRequestKey(t *testing.T) {
	cases := []struct {
		name        string
		uri         string
		querystring string
		wantKind    requestKind
		wantKey     string
	}{
		{"object", "/someKey/file.png", "", kindObject, "someKey"},
		{"object nested", "/someKey/dir/file.png", "", kindObject, "someKey"},
		{"list", "/", "list-type=2&prefix=someKey/", kindList, "someKey"},
		{"list nested prefix", "/", "list-type=2&prefix=someKey/dir/", kindList, "someKey"},
		{"root without list params is object", "/", "", kindObject, ""},
		{"prefix without list-type is object", "/", "prefix=someKey/", kindObject, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			kind, key := parseRequestKey(tc.uri, tc.querystring)
			if kind != tc.wantKind || key != tc.wantKey {
				t.Fatalf("parseRequestKey(%q, %q) = (%v, %q), want (%v, %q)",
					tc.uri, tc.querystring, kind, key, tc.wantKind, tc.wantKey)
			}
		})
	}
}

func TestPublicImagePath(t *testing.T) {
	if addr, ok := publicImagePath("/avatar/someAddr.png"); !ok || addr != "someAddr" {
		t.Fatalf("avatar path: got (%q, %v)", addr, ok)
	}
	if addr, ok := publicImagePath("/banner/someAddr"); !ok || addr != "someAddr" {
		t.Fatalf("banner path: got (%q, %v)", addr, ok)
	}
	if _, ok := publicImagePath("/avatar/someAddr/extra"); ok {
		t.Fatal("four segments must not match")
	}
	if _, ok := publicImagePath("/profile/someAddr"); ok {
		t.Fatal("unknown prefix must not match")
	}
}
