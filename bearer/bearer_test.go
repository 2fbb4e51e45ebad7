package bearer

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"testing"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v4"
)

const testIssuer = "https://issuer.example/pool"

type signer struct {
	key *rsa.PrivateKey
	kid string
}

func newSigner(t *testing.T, kid string) signer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return signer{key: key, kid: kid}
}

func (s signer) jwks(t *testing.T) []byte {
	t.Helper()
	set := jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{
		Key:       &s.key.PublicKey,
		KeyID:     s.kid,
		Algorithm: "RS256",
		Use:       "sig",
	}}}
	data, err := json.Marshal(set)
	if err != nil {
		t.Fatalf("marshal jwks: %v", err)
	}
	return data
}

func (s signer) token(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = s.kid
	raw, err := tok.SignedString(s.key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return raw
}

func accessClaims(username string) jwt.MapClaims {
	return jwt.MapClaims{
		"iss":       testIssuer,
		"token_use": "access",
		"username":  username,
		"exp":       time.Now().Add(time.Hour).Unix(),
	}
}

func TestVerify_ValidToken(t *testing.T) {
	s := newSigner(t, "key-1")
	v, err := NewVerifier(testIssuer, s.jwks(t))
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	id, err := v.Verify("Bearer " + s.token(t, accessClaims("someAddress")))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id.Address != "someAddress" {
		t.Fatalf("address = %q, want someAddress", id.Address)
	}
}

func TestVerify_BareTokenWithoutScheme(t *testing.T) {
	s := newSigner(t, "key-1")
	v, err := NewVerifier(testIssuer, s.jwks(t))
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	if _, err := v.Verify(s.token(t, accessClaims("someAddress"))); err != nil {
		t.Fatalf("verify without Bearer prefix: %v", err)
	}
}

func TestVerify_Rejections(t *testing.T) {
	s := newSigner(t, "key-1")
	stranger := newSigner(t, "key-1")
	v, err := NewVerifier(testIssuer, s.jwks(t))
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	expired := accessClaims("someAddress")
	expired["exp"] = time.Now().Add(-time.Minute).Unix()

	wrongIssuer := accessClaims("someAddress")
	wrongIssuer["iss"] = "https://other.example/pool"

	idToken := accessClaims("someAddress")
	idToken["token_use"] = "id"

	noUsername := accessClaims("someAddress")
	delete(noUsername, "username")

	unknownKid := newSigner(t, "key-2")

	noKid := jwt.NewWithClaims(jwt.SigningMethodRS256, accessClaims("someAddress"))
	noKidRaw, err := noKid.SignedString(s.key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	cases := []struct {
		name   string
		header string
		want   Reason
	}{
		{"empty header", "", ReasonNoToken},
		{"scheme only", "Bearer ", ReasonNoToken},
		{"not a jwt", "Bearer garbage", ReasonInvalidJWT},
		{"wrong issuer", "Bearer " + s.token(t, wrongIssuer), ReasonInvalidIssuer},
		{"id token", "Bearer " + s.token(t, idToken), ReasonIsNotAccessToken},
		{"foreign signature", "Bearer " + stranger.token(t, accessClaims("someAddress")), ReasonTokenVerificationFailed},
		{"expired", "Bearer " + s.token(t, expired), ReasonTokenVerificationFailed},
		{"unknown kid", "Bearer " + unknownKid.token(t, accessClaims("someAddress")), ReasonInvalidAccessToken},
		{"missing kid", "Bearer " + noKidRaw, ReasonInvalidAccessToken},
		{"missing username", "Bearer " + s.token(t, noUsername), ReasonTokenVerificationFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := v.Verify(tc.header)
			if err == nil {
				t.Fatal("expected rejection")
			}
			if got := ReasonOf(err); got != tc.want {
				t.Fatalf("reason = %q, want %q (err %v)", got, tc.want, err)
			}
		})
	}
}

func TestNewVerifier_Invalid(t *testing.T) {
	s := newSigner(t, "key-1")
	if _, err := NewVerifier("", s.jwks(t)); err == nil {
		t.Fatal("empty issuer accepted")
	}
	if _, err := NewVerifier(testIssuer, []byte("{not json")); err == nil {
		t.Fatal("malformed jwks accepted")
	}
	if _, err := NewVerifier(testIssuer, []byte(`{"keys":[]}`)); err == nil {
		t.Fatal("empty jwks accepted")
	}
}
