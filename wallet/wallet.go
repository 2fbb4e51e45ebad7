// Package wallet holds client-side keypairs for the gateway: generating
// and loading ed25519 wallets, rendering their base58 addresses, and
// signing login challenges.
package wallet

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/cloudflare/circl/sign/ed25519"
	"github.com/gagliardetto/solana-go"
)

// Keypair is an ed25519 wallet. The address is the base58 rendering of
// the public key, which doubles as the account's user name.
type Keypair struct {
	priv ed25519.PrivateKey
}

// Generate creates a fresh keypair. A nil reader uses crypto/rand.
func Generate(random io.Reader) (*Keypair, error) {
	if random == nil {
		random = rand.Reader
	}
	_, priv, err := ed25519.GenerateKey(random)
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}
	return &Keypair{priv: priv}, nil
}

// FromSeed rebuilds a keypair from its 32-byte seed.
func FromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return &Keypair{priv: ed25519.NewKeyFromSeed(seed)}, nil
}

// Address returns the wallet's base58 address.
func (k *Keypair) Address() string {
	pub := k.priv.Public().(ed25519.PublicKey)
	return solana.PublicKeyFromBytes(pub).String()
}

// Seed returns the 32-byte seed of the private key.
func (k *Keypair) Seed() []byte { return k.priv.Seed() }

// SignChallenge signs a login challenge nonce and returns the base64
// detached signature the verification handler expects.
func (k *Keypair) SignChallenge(nonce string) string {
	sig := ed25519.Sign(k.priv, []byte(nonce))
	return base64.StdEncoding.EncodeToString(sig)
}

// ParseSeedHex decodes a hex seed, tolerating surrounding whitespace and
// an 0x prefix.
func ParseSeedHex(seedHex string) ([]byte, error) {
	seedHex = strings.TrimSpace(seedHex)
	seedHex = strings.TrimPrefix(seedHex, "0x")
	data, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, err
	}
	if len(data) != ed25519.SeedSize {
		return nil, fmt.Errorf("expected seed length of %d bytes, got %d", ed25519.SeedSize, len(data))
	}
	return data, nil
}
