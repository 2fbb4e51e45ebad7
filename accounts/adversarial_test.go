package accounts

import (
	"encoding/binary"
	"testing"
)

// Decoding hostile bytes must always yield a structured error, never a panic
// and never a partially-populated record.

func decodeAny(t *testing.T, blob []byte) error {
	t.Helper()
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("decoder panicked on %x: %v", blob, r)
		}
	}()
	_, err := DefaultDecoder().Decode(blob, MetadataProgram.String())
	return err
}

func TestDecode_TruncationAtEveryLength(t *testing.T) {
	nonce := uint8(7)
	fullBlob, fullErr := EncodeMetadata(&MetadataRecord{
		UpdateAuthority: testKey(1),
		Mint:            testKey(2),
		Name:            "name",
		Symbol:          "S",
		URI:             "uri",
		Creators:        []Creator{{Address: testKey(3), Verified: true, Share: 100}},
		EditionNonce:    &nonce,
		SubscriptionRef: testKey(4),
	})
	full := mustEncode(t, fullBlob, fullErr)

	for n := 0; n < len(full); n++ {
		if err := decodeAny(t, full[:n]); err == nil {
			t.Fatalf("truncation to %d bytes: expected error", n)
		} else if !IsKind(err, KindDecode) {
			t.Fatalf("truncation to %d bytes: err = %v, want KindDecode", n, err)
		}
	}
	if err := decodeAny(t, full); err != nil {
		t.Fatalf("full blob must decode: %v", err)
	}
}

func TestDecode_MalformedOptionFlag(t *testing.T) {
	encBlob, encErr := EncodeMetadata(&MetadataRecord{
		UpdateAuthority: testKey(1),
		Mint:            testKey(2),
		Name:            "n",
		Symbol:          "s",
		URI:             "u",
	})
	blob := mustEncode(t, encBlob, encErr)
	// The creators option flag sits right after the u16 seller fee.
	off := 1 + 32 + 32 + (4 + 1) + (4 + 1) + (4 + 1) + 2
	blob[off] = 0xCC

	err := decodeAny(t, blob)
	if err == nil {
		t.Fatalf("expected error for option flag 0xCC")
	}
	if RuleID(err) != "ACCT-DEC-013" {
		t.Fatalf("err = %v (rule %s), want malformed option flag", err, RuleID(err))
	}
}

func TestDecode_OversizedStringLength(t *testing.T) {
	blob := []byte{byte(TagMetadataV1)}
	blob = append(blob, make([]byte, 64)...) // updateAuthority + mint
	var lenPrefix [4]byte
	binary.LittleEndian.PutUint32(lenPrefix[:], 0xFFFFFFF0)
	blob = append(blob, lenPrefix[:]...)
	blob = append(blob, []byte("short")...)

	err := decodeAny(t, blob)
	if err == nil {
		t.Fatalf("expected error for oversized string length")
	}
	if !IsKind(err, KindDecode) {
		t.Fatalf("err = %v, want KindDecode", err)
	}
}

func TestDecode_OversizedListCount(t *testing.T) {
	subBlob, subErr := EncodeSubscription(&SubscriptionRecord{TokenMint: testKey(1)})
	sub := mustEncode(t, subBlob, subErr)
	// ownerAddresses count sits right after the 32-byte token mint.
	binary.LittleEndian.PutUint32(sub[32:36], 0xFFFFFFF0)

	_, err := DefaultDecoder().DecodeSubscription(sub)
	if err == nil {
		t.Fatalf("expected error for oversized list count")
	}
	if !IsKind(err, KindDecode) {
		t.Fatalf("err = %v, want KindDecode", err)
	}
}

func TestDecode_InvalidUTF8String(t *testing.T) {
	blob := []byte{byte(TagMetadataV1)}
	blob = append(blob, make([]byte, 64)...)
	blob = append(blob, 2, 0, 0, 0, 0xFF, 0xFE) // name: 2 bytes, invalid UTF-8

	err := decodeAny(t, blob)
	if err == nil {
		t.Fatalf("expected error for invalid UTF-8")
	}
	if RuleID(err) != "ACCT-DEC-012" {
		t.Fatalf("err = %v (rule %s), want invalid UTF-8", err, RuleID(err))
	}
}

func TestDecodeSubscription_NeverPanics(t *testing.T) {
	vectors := [][]byte{
		nil,
		{},
		{0x01},
		make([]byte, 31),
		make([]byte, 33),
		append(make([]byte, 32), 0xFF, 0xFF, 0xFF, 0xFF),
	}
	for i, v := range vectors {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("vector %d panicked: %v", i, r)
				}
			}()
			if _, err := DefaultDecoder().DecodeSubscription(v); err == nil {
				t.Fatalf("vector %d: expected error", i)
			}
		}()
	}
}
