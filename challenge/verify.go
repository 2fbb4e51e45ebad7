package challenge

import (
	"encoding/base64"

	"github.com/cloudflare/circl/sign/ed25519"
	"github.com/gagliardetto/solana-go"
)

// Answer is the caller's response to a pending challenge: a detached
// ed25519 signature over the UTF-8 bytes of the challenge string,
// base64-encoded for transport.
type Answer struct {
	Signature string
}

// Verify checks answer against the pending challenge. It reports false
// for any malformed input; it never errors and never panics, so a hostile
// answer can only ever read as incorrect.
func Verify(pending *Issued, answer Answer) bool {
	if pending == nil || pending.Challenge == "" {
		return false
	}
	pub, err := solana.PublicKeyFromBase58(pending.PublicKey)
	if err != nil {
		return false
	}
	sig, err := base64.StdEncoding.DecodeString(answer.Signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub.Bytes()), []byte(pending.Challenge), sig)
}
