package accounts

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Wire encoding of synthetic records, used by fixture tooling and tests.
// Production code only ever decodes; the ledger is the sole writer of real
// account data.

type writer struct {
	buf []byte
	err error
}

func (w *writer) u8(v uint8) { w.buf = append(w.buf, v) }

func (w *writer) u16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *writer) u32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *writer) u64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

func (w *writer) str(s string) {
	w.u32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *writer) pubkey(base58 string) {
	pk, err := solana.PublicKeyFromBase58(base58)
	if err != nil && w.err == nil {
		w.err = fmt.Errorf("encode pubkey %q: %w", base58, err)
		return
	}
	w.buf = append(w.buf, pk.Bytes()...)
}

func (w *writer) option(present bool) {
	if present {
		w.u8(1)
	} else {
		w.u8(0)
	}
}

// EncodeMetadata renders a metadata record in wire form.
func EncodeMetadata(md *MetadataRecord) ([]byte, error) {
	w := &writer{}
	w.u8(byte(TagMetadataV1))
	w.pubkey(md.UpdateAuthority)
	w.pubkey(md.Mint)
	w.str(md.Name)
	w.str(md.Symbol)
	w.str(md.URI)
	w.u16(md.SellerFeeBasisPoints)
	w.option(md.Creators != nil)
	if md.Creators != nil {
		w.u32(uint32(len(md.Creators)))
		for _, c := range md.Creators {
			w.pubkey(c.Address)
			if c.Verified {
				w.u8(1)
			} else {
				w.u8(0)
			}
			w.u8(c.Share)
		}
	}
	if md.PrimarySaleHappened {
		w.u8(1)
	} else {
		w.u8(0)
	}
	if md.IsMutable {
		w.u8(1)
	} else {
		w.u8(0)
	}
	w.option(md.EditionNonce != nil)
	if md.EditionNonce != nil {
		w.u8(*md.EditionNonce)
	}
	w.option(md.SubscriptionRef != "")
	if md.SubscriptionRef != "" {
		w.pubkey(md.SubscriptionRef)
	}
	return w.buf, w.err
}

// EncodeEdition renders an edition record in wire form.
func EncodeEdition(e *EditionRecord) ([]byte, error) {
	w := &writer{}
	w.u8(byte(TagEditionV1))
	w.pubkey(e.Parent)
	w.u64(e.EditionNumber)
	return w.buf, w.err
}

// EncodeMasterEdition renders a master-edition record in wire form. The
// variant is selected by tag; TagMasterEditionV1 additionally writes the
// legacy printing-mint fields.
func EncodeMasterEdition(tag Tag, m *MasterEditionRecord) ([]byte, error) {
	if tag != TagMasterEditionV1 && tag != TagMasterEditionV2 {
		return nil, fmt.Errorf("encode master edition: tag %d is not a master-edition tag", tag)
	}
	w := &writer{}
	w.u8(byte(tag))
	w.u64(m.Supply)
	w.option(m.MaxSupply != nil)
	if m.MaxSupply != nil {
		w.u64(*m.MaxSupply)
	}
	if tag == TagMasterEditionV1 {
		w.pubkey(m.PrintingMint)
		w.pubkey(m.OneTimePrintingAuthorizationMint)
	}
	return w.buf, w.err
}

// EncodeSubscription renders a subscription record in wire form.
func EncodeSubscription(s *SubscriptionRecord) ([]byte, error) {
	w := &writer{}
	w.pubkey(s.TokenMint)
	w.u32(uint32(len(s.OwnerAddresses)))
	for _, a := range s.OwnerAddresses {
		w.pubkey(a)
	}
	w.u32(uint32(len(s.OwnerShares)))
	for _, v := range s.OwnerShares {
		w.u8(v)
	}
	w.u32(uint32(len(s.WithdrawnAmounts)))
	for _, v := range s.WithdrawnAmounts {
		w.u64(v)
	}
	w.u64(s.TotalPaid)
	w.u64(s.Price)
	w.u64(s.PeriodDurationSeconds)
	w.u64(s.PaidUntilEpochSeconds)
	return w.buf, w.err
}
