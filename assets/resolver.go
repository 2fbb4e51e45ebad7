// Package assets resolves the canonical master edition backing a mint.
package assets

import (
	"context"
	"errors"
	"fmt"

	"xdao.co/tokengate/accounts"
	"xdao.co/tokengate/ledger"
)

// ErrNotFound means the mint could not be resolved to a master edition.
// Missing accounts, decode failures, and unsupported chain shapes all
// collapse into it: the caller denies rather than partially authorizes.
var ErrNotFound = errors.New("assets: canonical master not found")

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// Resolver walks the edition graph through the ledger.
type Resolver struct {
	ledger  ledger.Client
	decoder *accounts.Decoder
}

func NewResolver(client ledger.Client, decoder *accounts.Decoder) *Resolver {
	if decoder == nil {
		decoder = accounts.DefaultDecoder()
	}
	return &Resolver{ledger: client, decoder: decoder}
}

// CanonicalMaster resolves the master edition ultimately backing mint.
//
// The mint's authority is the asset's edition account. When that account is
// itself a master edition, it is the canonical master. When it is a numbered
// edition, its parent must be a master edition one hop away; anything else
// is a resolution failure. The walk is an explicit bounded lookup, never a
// recursion: hostile chain data cannot extend it.
func (r *Resolver) CanonicalMaster(ctx context.Context, mint string) (string, error) {
	authority, err := r.ledger.MintAuthority(ctx, mint)
	if err != nil {
		return "", resolveErr(mint, err)
	}

	rec, err := r.fetchRecord(ctx, authority)
	if err != nil {
		return "", resolveErr(mint, err)
	}

	switch rec := rec.(type) {
	case *accounts.MasterEditionRecord:
		return authority, nil
	case *accounts.EditionRecord:
		parent, err := r.fetchRecord(ctx, rec.Parent)
		if err != nil {
			return "", resolveErr(mint, err)
		}
		if _, ok := parent.(*accounts.MasterEditionRecord); !ok {
			return "", fmt.Errorf("%w: %s: edition parent is not a master edition", ErrNotFound, mint)
		}
		return rec.Parent, nil
	}
	return "", fmt.Errorf("%w: %s: authority account is not an edition", ErrNotFound, mint)
}

func (r *Resolver) fetchRecord(ctx context.Context, address string) (accounts.Record, error) {
	info, err := r.ledger.AccountInfo(ctx, address)
	if err != nil {
		return nil, err
	}
	return r.decoder.Decode(info.Data, info.Owner)
}

// resolveErr collapses fetch/decode failures into ErrNotFound while keeping
// upstream transport failures distinguishable for fail-closed handling.
func resolveErr(mint string, cause error) error {
	if ledger.IsUpstream(cause) {
		return fmt.Errorf("resolve master of %s: %w", mint, cause)
	}
	return fmt.Errorf("%w: %s: %v", ErrNotFound, mint, cause)
}
