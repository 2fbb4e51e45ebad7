// Package challenge implements passwordless login by challenge-response:
// the caller proves control of a keypair by signing a server-issued nonce.
//
// The protocol runs in rounds. A round history ("session") accompanies
// every call; the authenticator inspects it to decide whether to issue a
// fresh challenge, accept the login, or fail it. A challenge lives for
// exactly one round and is never persisted or reused.
package challenge

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Name is the only challenge type this authenticator accepts.
const Name = "CUSTOM_CHALLENGE"

// nonceBytes is the entropy of a challenge nonce before hex encoding.
const nonceBytes = 64

// Round is one prior exchange of a login session.
type Round struct {
	ChallengeName   string `json:"challengeName"`
	ChallengeResult bool   `json:"challengeResult"`
}

// Issued binds a fresh nonce to the identity that claimed it.
// The challenge is shown to the caller; the pair is kept server-side for
// the verification round.
type Issued struct {
	Challenge string
	PublicKey string
}

// Issue starts a login round for claimedIdentity. A challenge is only
// created at the start of a session; later rounds reuse the pending one.
func Issue(session []Round, claimedIdentity string) (*Issued, error) {
	if len(session) != 0 {
		return nil, nil
	}
	nonce := make([]byte, nonceBytes)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("challenge: generate nonce: %w", err)
	}
	return &Issued{
		Challenge: hex.EncodeToString(nonce),
		PublicKey: claimedIdentity,
	}, nil
}

// Decision is the authenticator's verdict on a session.
type Decision struct {
	IssueTokens        bool
	FailAuthentication bool
	// NextChallengeName is set when another round must be presented.
	NextChallengeName string
}

// DecideNext inspects the round history and picks the next state.
//
// Any round of a foreign challenge type fails the session outright. A
// most-recent custom round answered correctly succeeds it. Anything else
// presents a fresh custom challenge.
func DecideNext(session []Round) Decision {
	for _, round := range session {
		if round.ChallengeName != Name {
			return Decision{FailAuthentication: true}
		}
	}
	if n := len(session); n > 0 && session[n-1].ChallengeName == Name && session[n-1].ChallengeResult {
		return Decision{IssueTokens: true}
	}
	return Decision{NextChallengeName: Name}
}
