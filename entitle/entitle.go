// Package entitle computes ownership, update-authority, and
// subscriber-access facts for an (identity, resource) pair.
//
// Everything is recomputed per request from fresh ledger state: no result
// is cached within or across resolutions. Any failure of a required fetch
// or decode collapses into ErrNotFound so the caller denies rather than
// partially authorizes.
package entitle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"xdao.co/tokengate/accounts"
	"xdao.co/tokengate/assets"
	"xdao.co/tokengate/ledger"
)

// ErrNotFound means entitlement resolution failed at some required step.
var ErrNotFound = errors.New("entitle: resolution failed")

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// Entitlement is the computed set of access rights of an identity against
// a resource. It is derived, never persisted.
type Entitlement struct {
	IsOwner             bool
	UpdateAuthority     string
	HasSubscriberAccess bool
	CanonicalPath       string
}

// Resource describes the requested asset without any ownership facts.
// The public-content fast path uses it to rewrite URIs.
type Resource struct {
	Mint            string
	UpdateAuthority string
	CanonicalPath   string
	SubscriptionRef string
}

// Resolver derives entitlements from ledger state.
type Resolver struct {
	ledger  ledger.Client
	decoder *accounts.Decoder
	assets  *assets.Resolver
	now     func() time.Time
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithDecoder substitutes the account decoder (and the program it trusts).
func WithDecoder(d *accounts.Decoder) Option {
	return func(r *Resolver) { r.decoder = d }
}

// WithClock substitutes the subscription-expiry clock.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

func NewResolver(client ledger.Client, opts ...Option) *Resolver {
	r := &Resolver{
		ledger: client,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.decoder == nil {
		r.decoder = accounts.DefaultDecoder()
	}
	r.assets = assets.NewResolver(client, r.decoder)
	return r
}

// ResourceInfo fetches and decodes the metadata account at requestedKey.
func (r *Resolver) ResourceInfo(ctx context.Context, requestedKey string) (Resource, error) {
	md, err := r.fetchMetadata(ctx, requestedKey)
	if err != nil {
		return Resource{}, err
	}
	return Resource{
		Mint:            md.Mint,
		UpdateAuthority: md.UpdateAuthority,
		CanonicalPath:   CanonicalPath(md.Name),
		SubscriptionRef: md.SubscriptionRef,
	}, nil
}

// Resolve computes the entitlement of identity against the resource whose
// metadata account is requestedKey.
func (r *Resolver) Resolve(ctx context.Context, identity, requestedKey string) (Entitlement, error) {
	balances, err := r.ledger.TokenAccountsByOwner(ctx, identity)
	if err != nil {
		return Entitlement{}, fmt.Errorf("list holdings of %s: %w", identity, err)
	}
	heldMints := make(map[string]bool, len(balances))
	var mints []string
	for _, b := range balances {
		if b.Amount > 0 && !heldMints[b.Mint] {
			heldMints[b.Mint] = true
			mints = append(mints, b.Mint)
		}
	}

	md, err := r.fetchMetadata(ctx, requestedKey)
	if err != nil {
		return Entitlement{}, err
	}

	requestedMaster, err := r.assets.CanonicalMaster(ctx, md.Mint)
	if err != nil {
		if ledger.IsUpstream(err) {
			return Entitlement{}, err
		}
		return Entitlement{}, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	md.MasterEditionRef = requestedMaster

	heldMasters, err := r.resolveHeldMasters(ctx, mints)
	if err != nil {
		return Entitlement{}, err
	}

	ent := Entitlement{
		IsOwner:             heldMints[md.Mint] || heldMasters[requestedMaster],
		UpdateAuthority:     md.UpdateAuthority,
		HasSubscriberAccess: true,
		CanonicalPath:       CanonicalPath(md.Name),
	}

	if md.SubscriptionRef != "" {
		sub, err := r.fetchSubscription(ctx, md.SubscriptionRef)
		if err != nil {
			return Entitlement{}, err
		}
		ent.HasSubscriberAccess = sub.ActiveAt(r.now().Unix())
	}
	return ent, nil
}

// resolveHeldMasters resolves every held mint to its canonical master
// concurrently. Ownership is a set-membership property over the complete
// held set, so all resolutions are awaited; there is no first-wins
// short-circuit. Held mints that are not editions of anything (resolution
// not-found) contribute nothing; upstream failures fail the whole
// resolution closed.
func (r *Resolver) resolveHeldMasters(ctx context.Context, mints []string) (map[string]bool, error) {
	masters := make([]string, len(mints))
	errs := make([]error, len(mints))

	var wg sync.WaitGroup
	for i, mint := range mints {
		wg.Add(1)
		go func(i int, mint string) {
			defer wg.Done()
			master, err := r.assets.CanonicalMaster(ctx, mint)
			if err != nil {
				if !assets.IsNotFound(err) {
					errs[i] = err
				}
				return
			}
			masters[i] = master
		}(i, mint)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("resolve held masters: %w", err)
		}
	}
	held := make(map[string]bool, len(masters))
	for _, m := range masters {
		if m != "" {
			held[m] = true
		}
	}
	return held, nil
}

func (r *Resolver) fetchMetadata(ctx context.Context, address string) (*accounts.MetadataRecord, error) {
	info, err := r.ledger.AccountInfo(ctx, address)
	if err != nil {
		if ledger.IsUpstream(err) {
			return nil, fmt.Errorf("fetch metadata %s: %w", address, err)
		}
		return nil, fmt.Errorf("%w: metadata %s: %v", ErrNotFound, address, err)
	}
	rec, err := r.decoder.Decode(info.Data, info.Owner)
	if err != nil {
		return nil, fmt.Errorf("%w: metadata %s: %v", ErrNotFound, address, err)
	}
	md, ok := rec.(*accounts.MetadataRecord)
	if !ok {
		return nil, fmt.Errorf("%w: %s is a %s account, not metadata", ErrNotFound, address, rec.RecordTag())
	}
	return md, nil
}

func (r *Resolver) fetchSubscription(ctx context.Context, address string) (*accounts.SubscriptionRecord, error) {
	info, err := r.ledger.AccountInfo(ctx, address)
	if err != nil {
		if ledger.IsUpstream(err) {
			return nil, fmt.Errorf("fetch subscription %s: %w", address, err)
		}
		return nil, fmt.Errorf("%w: subscription %s: %v", ErrNotFound, address, err)
	}
	sub, err := r.decoder.DecodeSubscription(info.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: subscription %s: %v", ErrNotFound, address, err)
	}
	return sub, nil
}

// CanonicalPath derives the URL path segment of a resource from its
// display name. Escaping matches encodeURIComponent, which the origin
// was provisioned with: everything outside the unreserved marks is
// percent-encoded, including & = + and :.
func CanonicalPath(name string) string {
	lower := strings.ToLower(name)
	var b strings.Builder
	b.Grow(len(lower))
	for i := 0; i < len(lower); i++ {
		c := lower[i]
		if componentSafe(c) {
			b.WriteByte(c)
			continue
		}
		const hex = "0123456789ABCDEF"
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0xF])
	}
	return b.String()
}

func componentSafe(c byte) bool {
	if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' {
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
