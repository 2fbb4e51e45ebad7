// Package testkit provides an in-memory fake ledger for tests.
package testkit

import (
	"context"
	"fmt"
	"sync"

	"xdao.co/tokengate/accounts"
	"xdao.co/tokengate/ledger"
)

// Ledger is a seedable in-memory ledger.Client. It is safe for concurrent
// reads, matching the fan-out behavior of the entitlement resolver.
type Ledger struct {
	mu          sync.RWMutex
	accounts    map[string]ledger.AccountInfo
	authorities map[string]string
	holdings    map[string][]ledger.TokenBalance

	// FailAll simulates an unreachable node: every call reports an
	// upstream error.
	FailAll bool
}

func New() *Ledger {
	return &Ledger{
		accounts:    make(map[string]ledger.AccountInfo),
		authorities: make(map[string]string),
		holdings:    make(map[string][]ledger.TokenBalance),
	}
}

// SetAccount seeds a raw account blob at address.
func (l *Ledger) SetAccount(address, owner string, data []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts[address] = ledger.AccountInfo{Owner: owner, Data: data}
}

// SetMintAuthority seeds the mint-authority relation for a mint.
func (l *Ledger) SetMintAuthority(mint, authority string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.authorities[mint] = authority
}

// AddHolding appends a token balance to an owner's holdings.
func (l *Ledger) AddHolding(owner, mint string, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.holdings[owner] = append(l.holdings[owner], ledger.TokenBalance{Mint: mint, Amount: amount})
}

// SeedMasterAsset seeds a complete master asset: a metadata account at
// metadataKey, its mint, and the master-edition account the mint authority
// points at. It returns the master-edition address (the canonical master).
func (l *Ledger) SeedMasterAsset(metadataKey, masterEdition string, md *accounts.MetadataRecord) (string, error) {
	blob, err := accounts.EncodeMetadata(md)
	if err != nil {
		return "", err
	}
	l.SetAccount(metadataKey, accounts.MetadataProgram.String(), blob)
	l.SetMintAuthority(md.Mint, masterEdition)

	master, err := accounts.EncodeMasterEdition(accounts.TagMasterEditionV2, &accounts.MasterEditionRecord{Supply: 1})
	if err != nil {
		return "", err
	}
	l.SetAccount(masterEdition, accounts.MetadataProgram.String(), master)
	return masterEdition, nil
}

// SeedEditionMint seeds a print mint whose edition account references parent.
func (l *Ledger) SeedEditionMint(mint, editionAccount, parent string, editionNumber uint64) error {
	l.SetMintAuthority(mint, editionAccount)
	blob, err := accounts.EncodeEdition(&accounts.EditionRecord{Parent: parent, EditionNumber: editionNumber})
	if err != nil {
		return err
	}
	l.SetAccount(editionAccount, accounts.MetadataProgram.String(), blob)
	return nil
}

// SeedSubscription seeds a subscription account blob at address.
func (l *Ledger) SeedSubscription(address string, sub *accounts.SubscriptionRecord) error {
	blob, err := accounts.EncodeSubscription(sub)
	if err != nil {
		return err
	}
	l.SetAccount(address, accounts.MetadataProgram.String(), blob)
	return nil
}

func (l *Ledger) AccountInfo(_ context.Context, address string) (*ledger.AccountInfo, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.FailAll {
		return nil, fmt.Errorf("%w: fake node down", ledger.ErrUpstream)
	}
	info, ok := l.accounts[address]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ledger.ErrNotFound, address)
	}
	return &ledger.AccountInfo{Owner: info.Owner, Data: append([]byte(nil), info.Data...)}, nil
}

func (l *Ledger) MintAuthority(_ context.Context, mint string) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.FailAll {
		return "", fmt.Errorf("%w: fake node down", ledger.ErrUpstream)
	}
	auth, ok := l.authorities[mint]
	if !ok {
		return "", fmt.Errorf("%w: %s", ledger.ErrNotFound, mint)
	}
	return auth, nil
}

func (l *Ledger) TokenAccountsByOwner(_ context.Context, owner string) ([]ledger.TokenBalance, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.FailAll {
		return nil, fmt.Errorf("%w: fake node down", ledger.ErrUpstream)
	}
	return append([]ledger.TokenBalance(nil), l.holdings[owner]...), nil
}
