package accounts

import (
	"encoding/binary"
	"unicode/utf8"

	"github.com/gagliardetto/solana-go"
)

// maxListLen bounds the declared element count of a list before any element
// is read, so a hostile 4-byte count cannot drive a huge allocation.
const maxListLen = 1 << 16

// reader is a bounds-checked cursor over untrusted account bytes.
// Every read either advances the cursor or returns a KindDecode error;
// it never panics on truncated input.
type reader struct {
	buf []byte
	off int
}

func (r *reader) remaining() int { return len(r.buf) - r.off }

func (r *reader) take(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, newError(KindDecode, "ACCT-DEC-010", "account data truncated")
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) u8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) u16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *reader) u32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) u64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// str reads a 4-byte length prefix followed by UTF-8 bytes.
func (r *reader) str() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	if int64(n) > int64(r.remaining()) {
		return "", newError(KindDecode, "ACCT-DEC-011", "string length exceeds account data")
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", newError(KindDecode, "ACCT-DEC-012", "string is not valid UTF-8")
	}
	return string(b), nil
}

// pubkey reads 32 key bytes and exposes them as base58 text.
func (r *reader) pubkey() (string, error) {
	b, err := r.take(solana.PublicKeyLength)
	if err != nil {
		return "", err
	}
	return solana.PublicKeyFromBytes(b).String(), nil
}

// option reads a 1-byte presence flag. Flags other than 0 or 1 are malformed.
func (r *reader) option() (bool, error) {
	f, err := r.u8()
	if err != nil {
		return false, err
	}
	switch f {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, newError(KindDecode, "ACCT-DEC-013", "malformed option flag")
	}
}

// listLen reads a 4-byte element count and rejects counts that could not
// possibly fit in the remaining bytes.
func (r *reader) listLen() (int, error) {
	n, err := r.u32()
	if err != nil {
		return 0, err
	}
	if n > maxListLen || int64(n) > int64(r.remaining()) {
		return 0, newError(KindDecode, "ACCT-DEC-014", "list length exceeds account data")
	}
	return int(n), nil
}
