// Package ledger exposes the external ledger RPC as a small collaborator
// interface. The authorization core treats it as opaque: it returns raw
// account bytes and token-balance lists, and every failure is surfaced so
// the caller can fail closed.
package ledger

import "context"

// AccountInfo is one fetched account: the program that owns it and its raw
// data bytes. The bytes are untrusted until decoded.
type AccountInfo struct {
	Owner string
	Data  []byte
}

// TokenBalance is one token holding of an owner.
type TokenBalance struct {
	Mint   string
	Amount uint64
}

// Client is the ledger query surface the entitlement pipeline needs.
//
// Contract:
//   - AccountInfo MUST return ErrNotFound when the address has no account.
//   - Transport and node failures MUST be reported as upstream errors
//     (IsUpstream), never as an empty result.
//   - Implementations MUST NOT cache across calls; freshness is part of the
//     authorization contract. Callers wanting caching wrap the interface.
type Client interface {
	// AccountInfo fetches the raw account at address.
	AccountInfo(ctx context.Context, address string) (*AccountInfo, error)

	// MintAuthority returns the mint-authority address of a token mint.
	MintAuthority(ctx context.Context, mint string) (string, error)

	// TokenAccountsByOwner lists the owner's token-program holdings.
	TokenAccountsByOwner(ctx context.Context, owner string) ([]TokenBalance, error)
}
