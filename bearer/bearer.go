// Package bearer validates the access tokens minted after a successful
// challenge login. The verifier is constructed once, at startup, from a
// JWKS document; the key cache is immutable for the life of the process.
package bearer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v4"
)

// Reason classifies why a token was rejected.
type Reason string

const (
	ReasonNoToken                 Reason = "NoToken"
	ReasonInvalidJWT              Reason = "InvalidJWT"
	ReasonInvalidIssuer           Reason = "InvalidIssuer"
	ReasonIsNotAccessToken        Reason = "IsNotAccessToken"
	ReasonInvalidAccessToken      Reason = "InvalidAccessToken"
	ReasonTokenVerificationFailed Reason = "TokenVerificationFailed"
)

// AuthError is a rejected token. Reason is stable; Cause carries the
// underlying parse or signature failure, when there is one.
type AuthError struct {
	Reason Reason
	Cause  error
}

func (e *AuthError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("bearer: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("bearer: %s", e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Cause }

// ReasonOf extracts the rejection reason from err, or "" if err is not
// an AuthError.
func ReasonOf(err error) Reason {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Reason
	}
	return ""
}

// Identity is the authenticated principal a verified token names.
type Identity struct {
	// Address is the ledger address the subject logged in with.
	Address string
}

// Verifier checks access tokens against a fixed issuer and key set.
type Verifier struct {
	issuer string
	keys   jose.JSONWebKeySet
}

// NewVerifier builds a verifier from a raw JWKS document. Key rotation
// requires a restart; tokens signed by keys outside the document never
// verify.
func NewVerifier(issuer string, jwksJSON []byte) (*Verifier, error) {
	if issuer == "" {
		return nil, fmt.Errorf("bearer: issuer is required")
	}
	var keySet jose.JSONWebKeySet
	if err := json.Unmarshal(jwksJSON, &keySet); err != nil {
		return nil, fmt.Errorf("bearer: parse key set: %w", err)
	}
	if len(keySet.Keys) == 0 {
		return nil, fmt.Errorf("bearer: key set is empty")
	}
	return &Verifier{issuer: issuer, keys: keySet}, nil
}

// Verify checks the Authorization header value and returns the identity
// it names. The checks run in a fixed order so a caller always gets the
// earliest applicable reason: presence, well-formedness, issuer, token
// use, key id, then signature and expiry.
func (v *Verifier) Verify(authorization string) (Identity, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(authorization), "Bearer "))
	if raw == "" {
		return Identity{}, &AuthError{Reason: ReasonNoToken}
	}

	claims := jwt.MapClaims{}
	unverified, _, err := jwt.NewParser().ParseUnverified(raw, claims)
	if err != nil {
		return Identity{}, &AuthError{Reason: ReasonInvalidJWT, Cause: err}
	}
	if iss, _ := claims["iss"].(string); iss != v.issuer {
		return Identity{}, &AuthError{Reason: ReasonInvalidIssuer}
	}
	if use, _ := claims["token_use"].(string); use != "access" {
		return Identity{}, &AuthError{Reason: ReasonIsNotAccessToken}
	}
	kid, _ := unverified.Header["kid"].(string)
	if kid == "" || len(v.keys.Key(kid)) == 0 {
		return Identity{}, &AuthError{Reason: ReasonInvalidAccessToken, Cause: fmt.Errorf("no key for kid %q", kid)}
	}

	verified := jwt.MapClaims{}
	if _, err := jwt.ParseWithClaims(raw, verified, v.keyFor); err != nil {
		return Identity{}, &AuthError{Reason: ReasonTokenVerificationFailed, Cause: err}
	}
	username, _ := verified["username"].(string)
	if username == "" {
		return Identity{}, &AuthError{Reason: ReasonTokenVerificationFailed, Cause: fmt.Errorf("missing username claim")}
	}
	return Identity{Address: username}, nil
}

func (v *Verifier) keyFor(token *jwt.Token) (interface{}, error) {
	kid, _ := token.Header["kid"].(string)
	if kid == "" {
		return nil, fmt.Errorf("token has no kid header")
	}
	matches := v.keys.Key(kid)
	if len(matches) == 0 {
		return nil, fmt.Errorf("no key for kid %q", kid)
	}
	return matches[0].Key, nil
}
