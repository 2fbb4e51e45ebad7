package accounts

import "strings"

// Record is a decoded account blob, tagged by its wire discriminant.
type Record interface {
	RecordTag() Tag
}

// Creator is one royalty participant of a metadata record.
type Creator struct {
	Address  string
	Verified bool
	Share    uint8
}

// MetadataRecord describes an asset: its mint, its mutable authority, and
// display data. EditionRef and MasterEditionRef are not part of the wire
// format; graph resolution fills them in when the relationship is known.
type MetadataRecord struct {
	UpdateAuthority      string
	Mint                 string
	Name                 string
	Symbol               string
	URI                  string
	SellerFeeBasisPoints uint16
	Creators             []Creator
	PrimarySaleHappened  bool
	IsMutable            bool
	EditionNonce         *uint8

	// SubscriptionRef is the subscription account address, or "" when the
	// asset declares no subscription.
	SubscriptionRef string

	EditionRef       string
	MasterEditionRef string
}

func (*MetadataRecord) RecordTag() Tag { return TagMetadataV1 }

// EditionRecord is a numbered print referencing its master edition.
type EditionRecord struct {
	Parent        string
	EditionNumber uint64
}

func (*EditionRecord) RecordTag() Tag { return TagEditionV1 }

// MasterEditionRecord is the canonical original asset. The legacy variant
// additionally carries printing-mint fields; both variants expose
// supply/max-supply identically.
type MasterEditionRecord struct {
	tag       Tag
	Supply    uint64
	MaxSupply *uint64

	// Legacy printing-mint fields, set only for the V1 variant.
	PrintingMint                     string
	OneTimePrintingAuthorizationMint string
}

func (m *MasterEditionRecord) RecordTag() Tag { return m.tag }

// SubscriptionRecord is a recurring-payment account gating subscriber access.
type SubscriptionRecord struct {
	TokenMint             string
	OwnerAddresses        []string
	OwnerShares           []uint8
	WithdrawnAmounts      []uint64
	TotalPaid             uint64
	Price                 uint64
	PeriodDurationSeconds uint64
	PaidUntilEpochSeconds uint64
}

// ActiveAt reports whether the subscription still grants access at the given
// epoch second. Equality is expired.
func (s *SubscriptionRecord) ActiveAt(nowEpochSeconds int64) bool {
	return nowEpochSeconds >= 0 && uint64(nowEpochSeconds) < s.PaidUntilEpochSeconds
}

// stripPadding removes the trailing zero-byte padding of fixed-width
// on-chain string buffers.
func stripPadding(s string) string {
	return strings.TrimRight(s, "\x00")
}

// fields is the generic decode result: one value per schema field.
// Values are uint8/uint16/uint64/string for scalars, fields for structs,
// []any for lists, and nil for absent options.
type fields map[string]any

func (f fields) u8(name string) uint8 {
	v, _ := f[name].(uint8)
	return v
}

func (f fields) u16(name string) uint16 {
	v, _ := f[name].(uint16)
	return v
}

func (f fields) u64(name string) uint64 {
	v, _ := f[name].(uint64)
	return v
}

func (f fields) str(name string) string {
	v, _ := f[name].(string)
	return v
}

func (f fields) sub(name string) fields {
	v, _ := f[name].(fields)
	return v
}

func (f fields) list(name string) []any {
	v, _ := f[name].([]any)
	return v
}

func (f fields) optU8(name string) *uint8 {
	if v, ok := f[name].(uint8); ok {
		return &v
	}
	return nil
}

func (f fields) optU64(name string) *uint64 {
	if v, ok := f[name].(uint64); ok {
		return &v
	}
	return nil
}

func metadataFromFields(f fields) *MetadataRecord {
	data := f.sub("data")
	md := &MetadataRecord{
		UpdateAuthority:      f.str("updateAuthority"),
		Mint:                 f.str("mint"),
		Name:                 stripPadding(data.str("name")),
		Symbol:               stripPadding(data.str("symbol")),
		URI:                  stripPadding(data.str("uri")),
		SellerFeeBasisPoints: data.u16("sellerFeeBasisPoints"),
		PrimarySaleHappened:  f.u8("primarySaleHappened") != 0,
		IsMutable:            f.u8("isMutable") != 0,
		EditionNonce:         f.optU8("editionNonce"),
		SubscriptionRef:      f.str("subscription"),
	}
	for _, el := range data.list("creators") {
		c, ok := el.(fields)
		if !ok {
			continue
		}
		md.Creators = append(md.Creators, Creator{
			Address:  c.str("address"),
			Verified: c.u8("verified") != 0,
			Share:    c.u8("share"),
		})
	}
	return md
}

func editionFromFields(f fields) *EditionRecord {
	return &EditionRecord{
		Parent:        f.str("parent"),
		EditionNumber: f.u64("edition"),
	}
}

func masterEditionFromFields(tag Tag, f fields) *MasterEditionRecord {
	return &MasterEditionRecord{
		tag:                              tag,
		Supply:                           f.u64("supply"),
		MaxSupply:                        f.optU64("maxSupply"),
		PrintingMint:                     f.str("printingMint"),
		OneTimePrintingAuthorizationMint: f.str("oneTimePrintingAuthorizationMint"),
	}
}

func subscriptionFromFields(f fields) *SubscriptionRecord {
	s := &SubscriptionRecord{
		TokenMint:             f.str("tokenMint"),
		TotalPaid:             f.u64("totalPaid"),
		Price:                 f.u64("price"),
		PeriodDurationSeconds: f.u64("periodDuration"),
		PaidUntilEpochSeconds: f.u64("paidUntil"),
	}
	for _, el := range f.list("ownerAddresses") {
		if v, ok := el.(string); ok {
			s.OwnerAddresses = append(s.OwnerAddresses, v)
		}
	}
	for _, el := range f.list("ownerShares") {
		if v, ok := el.(uint8); ok {
			s.OwnerShares = append(s.OwnerShares, v)
		}
	}
	for _, el := range f.list("withdrawnAmounts") {
		if v, ok := el.(uint64); ok {
			s.WithdrawnAmounts = append(s.WithdrawnAmounts, v)
		}
	}
	return s
}
