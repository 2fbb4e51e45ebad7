// Package accounts decodes untrusted ledger account blobs into tagged
// asset and subscription records.
//
// The wire format is byte-for-byte compatible with the on-chain layout:
// little-endian fixed-width integers, length-prefixed UTF-8 strings,
// one-byte option flags, 32-byte public keys, and 4-byte-counted lists.
// Record layouts are declared as ordered field descriptors in a schema
// registry and interpreted by a single generic decode routine, so new
// record kinds are added by declaring a schema rather than by writing
// another decoder.
package accounts

// Tag is the one-byte record discriminant at offset 0 of an account blob.
type Tag byte

const (
	TagEditionV1       Tag = 1
	TagMasterEditionV1 Tag = 2
	TagMetadataV1      Tag = 4
	TagMasterEditionV2 Tag = 6
)

func (t Tag) String() string {
	switch t {
	case TagEditionV1:
		return "EditionV1"
	case TagMasterEditionV1:
		return "MasterEditionV1"
	case TagMetadataV1:
		return "MetadataV1"
	case TagMasterEditionV2:
		return "MasterEditionV2"
	default:
		return "Unknown"
	}
}

type typeKind int

const (
	kindU8 typeKind = iota
	kindU16
	kindU64
	kindString
	kindPubkey
	kindOption
	kindVec
	kindStruct
)

// FieldType describes one wire type. Option and Vec wrap an element type;
// Struct refers to a named schema in the registry.
type FieldType struct {
	kind   typeKind
	elem   *FieldType
	schema string
}

func U8() FieldType     { return FieldType{kind: kindU8} }
func U16() FieldType    { return FieldType{kind: kindU16} }
func U64() FieldType    { return FieldType{kind: kindU64} }
func Str() FieldType    { return FieldType{kind: kindString} }
func Pubkey() FieldType { return FieldType{kind: kindPubkey} }

func Option(elem FieldType) FieldType { return FieldType{kind: kindOption, elem: &elem} }
func Vec(elem FieldType) FieldType    { return FieldType{kind: kindVec, elem: &elem} }
func Struct(name string) FieldType    { return FieldType{kind: kindStruct, schema: name} }

// Field is one named slot in a record layout.
type Field struct {
	Name string
	Type FieldType
}

// Schema is an ordered field-descriptor list for one record layout.
type Schema struct {
	Name   string
	Fields []Field
}

// registry maps discriminant tags and struct names to their schemas.
type registry struct {
	byTag   map[Tag]string
	schemas map[string]Schema
}

func (r *registry) register(s Schema) {
	r.schemas[s.Name] = s
}

func (r *registry) registerTagged(tag Tag, s Schema) {
	r.register(s)
	r.byTag[tag] = s.Name
}

const (
	schemaCreator         = "Creator"
	schemaData            = "Data"
	schemaMetadata        = "Metadata"
	schemaEdition         = "Edition"
	schemaMasterEditionV1 = "MasterEditionV1"
	schemaMasterEditionV2 = "MasterEditionV2"
	schemaSubscription    = "Subscription"
)

// newRegistry declares the on-chain layouts. The leading "key" byte of each
// tagged record is the discriminant itself and is consumed before the schema
// is interpreted, so it does not appear as a field here.
func newRegistry() *registry {
	r := &registry{
		byTag:   make(map[Tag]string),
		schemas: make(map[string]Schema),
	}

	r.register(Schema{Name: schemaCreator, Fields: []Field{
		{Name: "address", Type: Pubkey()},
		{Name: "verified", Type: U8()},
		{Name: "share", Type: U8()},
	}})
	r.register(Schema{Name: schemaData, Fields: []Field{
		{Name: "name", Type: Str()},
		{Name: "symbol", Type: Str()},
		{Name: "uri", Type: Str()},
		{Name: "sellerFeeBasisPoints", Type: U16()},
		{Name: "creators", Type: Option(Vec(Struct(schemaCreator)))},
	}})
	r.registerTagged(TagMetadataV1, Schema{Name: schemaMetadata, Fields: []Field{
		{Name: "updateAuthority", Type: Pubkey()},
		{Name: "mint", Type: Pubkey()},
		{Name: "data", Type: Struct(schemaData)},
		{Name: "primarySaleHappened", Type: U8()},
		{Name: "isMutable", Type: U8()},
		{Name: "editionNonce", Type: Option(U8())},
		{Name: "subscription", Type: Option(Pubkey())},
	}})
	r.registerTagged(TagEditionV1, Schema{Name: schemaEdition, Fields: []Field{
		{Name: "parent", Type: Pubkey()},
		{Name: "edition", Type: U64()},
	}})
	r.registerTagged(TagMasterEditionV1, Schema{Name: schemaMasterEditionV1, Fields: []Field{
		{Name: "supply", Type: U64()},
		{Name: "maxSupply", Type: Option(U64())},
		{Name: "printingMint", Type: Pubkey()},
		{Name: "oneTimePrintingAuthorizationMint", Type: Pubkey()},
	}})
	r.registerTagged(TagMasterEditionV2, Schema{Name: schemaMasterEditionV2, Fields: []Field{
		{Name: "supply", Type: U64()},
		{Name: "maxSupply", Type: Option(U64())},
	}})

	// Subscription accounts carry no discriminant; they are decoded only when
	// a metadata record names one.
	r.register(Schema{Name: schemaSubscription, Fields: []Field{
		{Name: "tokenMint", Type: Pubkey()},
		{Name: "ownerAddresses", Type: Vec(Pubkey())},
		{Name: "ownerShares", Type: Vec(U8())},
		{Name: "withdrawnAmounts", Type: Vec(U64())},
		{Name: "totalPaid", Type: U64()},
		{Name: "price", Type: U64()},
		{Name: "periodDuration", Type: U64()},
		{Name: "paidUntil", Type: U64()},
	}})

	return r
}
