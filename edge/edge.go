// Package edge decides whether a content request may reach the origin.
// It combines bearer-token verification, on-ledger entitlements, and
// stored visibility tiers, rewriting allowed requests to the canonical
// {updateAuthority}/{path} layout the origin serves from.
//
// Every failure mode collapses to the same generic 401. Internal detail
// is logged, never returned, so a caller cannot distinguish a bad
// signature from a missing resource or an upstream timeout.
package edge

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"xdao.co/tokengate/bearer"
	"xdao.co/tokengate/entitle"
	"xdao.co/tokengate/storage"
)

// Request is the inbound edge envelope.
type Request struct {
	Method      string            `json:"method"`
	URI         string            `json:"uri"`
	Querystring string            `json:"querystring"`
	Headers     map[string]string `json:"headers"`
}

// Denial replaces a rejected request.
type Denial struct {
	Status            string `json:"status"`
	StatusDescription string `json:"statusDescription"`
}

// Result is the authorization outcome: either the (possibly rewritten)
// request to forward, or a denial response.
type Result struct {
	Allowed bool     `json:"allowed"`
	Request *Request `json:"request,omitempty"`
	Denial  *Denial  `json:"denial,omitempty"`
}

// Entitlements resolves a resource key with or without an identity.
type Entitlements interface {
	Resolve(ctx context.Context, identity, requestedKey string) (entitle.Entitlement, error)
	ResourceInfo(ctx context.Context, requestedKey string) (entitle.Resource, error)
}

// TokenVerifier authenticates an Authorization header value.
type TokenVerifier interface {
	Verify(authorization string) (bearer.Identity, error)
}

// Authorizer makes edge decisions. Safe for concurrent use; it holds no
// per-request state.
type Authorizer struct {
	verifier     TokenVerifier
	entitlements Entitlements
	visibility   storage.VisibilityStore
	logger       *slog.Logger
}

func NewAuthorizer(verifier TokenVerifier, ent Entitlements, vis storage.VisibilityStore, logger *slog.Logger) *Authorizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authorizer{verifier: verifier, entitlements: ent, visibility: vis, logger: logger}
}

type requestKind int

const (
	kindObject requestKind = iota
	kindList
)

// parseRequestKey classifies the request as a bucket listing or a single
// object fetch and extracts the resource key. Listings target the root
// path with list-type=2 and a prefix of the form "{key}/"; object URIs
// have the form "/{key}/{filename}".
func parseRequestKey(uri, querystring string) (requestKind, string) {
	values, err := url.ParseQuery(querystring)
	if err != nil {
		values = url.Values{}
	}
	delimiter := values.Get("delimiter")
	if delimiter == "" {
		delimiter = "/"
	}
	if uri == "/" && values.Get("list-type") == "2" && values.Has("prefix") {
		return kindList, strings.Split(values.Get("prefix"), delimiter)[0]
	}
	parts := strings.Split(uri, delimiter)
	if len(parts) > 1 {
		return kindObject, parts[1]
	}
	return kindObject, ""
}

// publicImagePath matches /avatar/<addr> and /banner/<addr>, with an
// optional file extension on the address segment.
func publicImagePath(uri string) (address string, ok bool) {
	parts := strings.Split(uri, "/")
	if len(parts) != 3 {
		return "", false
	}
	if parts[1] != "avatar" && parts[1] != "banner" {
		return "", false
	}
	address, _, _ = strings.Cut(parts[2], ".")
	return address, true
}

// rewriteURI swaps the leading /{key} for /{updateAuthority}/{path},
// keeping the rest of the URI intact.
func rewriteURI(uri, key, updateAuthority, path string) string {
	prefix := "/" + key
	if len(uri) >= len(prefix) && strings.EqualFold(uri[:len(prefix)], prefix) {
		return "/" + updateAuthority + "/" + path + uri[len(prefix):]
	}
	return uri
}

// rewriteListPrefix swaps prefix={key}/ for prefix={updateAuthority}/{path}/
// in the raw query string, keeping any deeper prefix segments.
func rewriteListPrefix(qs, key, updateAuthority, path string) string {
	needle := "prefix=" + key + "/"
	i := strings.Index(strings.ToLower(qs), strings.ToLower(needle))
	if i < 0 {
		return qs
	}
	return qs[:i] + "prefix=" + updateAuthority + "/" + path + "/" + qs[i+len(needle):]
}

// Authorize applies the decision rules in order and returns the outcome.
func (a *Authorizer) Authorize(ctx context.Context, req *Request) Result {
	kind, key := parseRequestKey(req.URI, req.Querystring)

	if req.Method == http.MethodOptions {
		return allowed(req)
	}

	imageAddress, isImage := publicImagePath(req.URI)

	if req.Method == http.MethodGet {
		if isImage {
			return allowed(req)
		}
		if kind == kindObject && key != "" {
			if out, ok := a.tryPublicObject(ctx, req, key); ok {
				return allowed(out)
			}
		}
	}

	identity, err := a.verifier.Verify(req.Headers["authorization"])
	if err != nil {
		a.logger.Info("edge_token_rejected", "reason", string(bearer.ReasonOf(err)))
		return a.deny()
	}

	if isImage {
		if req.Method != http.MethodGet && identity.Address != imageAddress {
			a.logger.Info("edge_image_write_denied", "identity", identity.Address, "path_address", imageAddress)
			return a.deny()
		}
		return allowed(stripAuth(req))
	}

	ent, err := a.entitlements.Resolve(ctx, identity.Address, key)
	if err != nil {
		a.logger.Info("edge_resolution_failed", "key", key, "error", err.Error())
		return a.deny()
	}
	if !ent.IsOwner {
		a.logger.Info("edge_not_owner", "identity", identity.Address, "key", key)
		return a.deny()
	}
	if req.Method != http.MethodGet && identity.Address != ent.UpdateAuthority {
		a.logger.Info("edge_no_edit_rights", "identity", identity.Address, "key", key)
		return a.deny()
	}

	out := stripAuth(req)
	if kind == kindList {
		out.Querystring = rewriteListPrefix(out.Querystring, key, ent.UpdateAuthority, ent.CanonicalPath)
		return allowed(out)
	}

	actualURI := rewriteURI(req.URI, key, ent.UpdateAuthority, ent.CanonicalPath)
	if req.Method == http.MethodGet {
		v, err := a.visibility.Visibility(ctx, actualURI)
		if err != nil {
			a.logger.Info("edge_visibility_lookup_failed", "uri", actualURI, "error", err.Error())
			return a.deny()
		}
		if v == storage.VisibilitySubscribers && !ent.HasSubscriberAccess {
			a.logger.Info("edge_subscription_lapsed", "identity", identity.Address, "uri", actualURI)
			return a.deny()
		}
	}
	out.URI = actualURI
	return allowed(out)
}

// tryPublicObject is the anonymous fast path: a GET on an object whose
// stored tier is public is allowed without authentication, rewritten to
// its canonical URI. Any failure falls through to the authenticated path.
func (a *Authorizer) tryPublicObject(ctx context.Context, req *Request, key string) (*Request, bool) {
	res, err := a.entitlements.ResourceInfo(ctx, key)
	if err != nil {
		return nil, false
	}
	actualURI := rewriteURI(req.URI, key, res.UpdateAuthority, res.CanonicalPath)
	v, err := a.visibility.Visibility(ctx, actualURI)
	if err != nil || v != storage.VisibilityPublic {
		return nil, false
	}
	out := *req
	out.URI = actualURI
	return &out, true
}

func allowed(req *Request) Result {
	return Result{Allowed: true, Request: req}
}

func (a *Authorizer) deny() Result {
	return Result{Denial: &Denial{Status: "401", StatusDescription: "Unauthorized"}}
}

func stripAuth(req *Request) *Request {
	out := *req
	out.Headers = make(map[string]string, len(req.Headers))
	for k, v := range req.Headers {
		if strings.EqualFold(k, "authorization") {
			continue
		}
		out.Headers[k] = v
	}
	return &out
}
