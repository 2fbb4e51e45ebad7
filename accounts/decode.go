package accounts

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// MetadataProgram is the asset-metadata program that owns every account this
// decoder accepts.
var MetadataProgram = solana.MustPublicKeyFromBase58("EYv8MSZb7aTmN5VByWPvGtLVGr4Hqm9bjAvTrSF4iscb")

// Decoder decodes account blobs owned by one asset-metadata program.
// The zero value is not usable; construct with NewDecoder.
type Decoder struct {
	program  string
	registry *registry
}

// NewDecoder returns a decoder bound to the given metadata program.
func NewDecoder(program solana.PublicKey) *Decoder {
	return &Decoder{
		program:  program.String(),
		registry: newRegistry(),
	}
}

// DefaultDecoder decodes accounts of the well-known metadata program.
func DefaultDecoder() *Decoder { return NewDecoder(MetadataProgram) }

// Decode decodes an account blob into its tagged record.
//
// It returns a KindProgram error when owningProgram is not the expected
// metadata program, and a KindDecode error for any malformed input. Callers
// must treat both as "resource absent", never as a hard fault.
func (d *Decoder) Decode(data []byte, owningProgram string) (Record, error) {
	if owningProgram != d.program {
		return nil, newError(KindProgram, "ACCT-PRG-001", "account not owned by the metadata program")
	}
	r := &reader{buf: data}
	tagByte, err := r.u8()
	if err != nil {
		return nil, err
	}
	tag := Tag(tagByte)
	name, ok := d.registry.byTag[tag]
	if !ok {
		return nil, newError(KindDecode, "ACCT-DEC-001", fmt.Sprintf("unknown record discriminant %d", tagByte))
	}
	f, err := d.decodeStruct(r, name, 0)
	if err != nil {
		return nil, err
	}

	switch tag {
	case TagMetadataV1:
		return metadataFromFields(f), nil
	case TagEditionV1:
		return editionFromFields(f), nil
	case TagMasterEditionV1, TagMasterEditionV2:
		return masterEditionFromFields(tag, f), nil
	}
	return nil, newError(KindSchema, "ACCT-SCH-001", "tag registered without a record binding")
}

// DecodeSubscription decodes a subscription account blob. Subscription
// accounts carry no discriminant byte; the caller vouches that a metadata
// record named this account as its subscription.
func (d *Decoder) DecodeSubscription(data []byte) (*SubscriptionRecord, error) {
	r := &reader{buf: data}
	f, err := d.decodeStruct(r, schemaSubscription, 0)
	if err != nil {
		return nil, err
	}
	return subscriptionFromFields(f), nil
}

// maxStructDepth bounds schema nesting. The registry is static and shallow;
// this guards against a future registration introducing a cycle.
const maxStructDepth = 8

func (d *Decoder) decodeStruct(r *reader, name string, depth int) (fields, error) {
	if depth > maxStructDepth {
		return nil, newError(KindSchema, "ACCT-SCH-002", "schema nesting too deep")
	}
	s, ok := d.registry.schemas[name]
	if !ok {
		return nil, newError(KindSchema, "ACCT-SCH-003", fmt.Sprintf("unknown schema %q", name))
	}
	out := make(fields, len(s.Fields))
	for _, field := range s.Fields {
		v, err := d.decodeValue(r, field.Type, depth)
		if err != nil {
			return nil, err
		}
		out[field.Name] = v
	}
	return out, nil
}

func (d *Decoder) decodeValue(r *reader, t FieldType, depth int) (any, error) {
	switch t.kind {
	case kindU8:
		return r.u8()
	case kindU16:
		return r.u16()
	case kindU64:
		return r.u64()
	case kindString:
		return r.str()
	case kindPubkey:
		return r.pubkey()
	case kindOption:
		present, err := r.option()
		if err != nil {
			return nil, err
		}
		if !present {
			return nil, nil
		}
		return d.decodeValue(r, *t.elem, depth)
	case kindVec:
		n, err := r.listLen()
		if err != nil {
			return nil, err
		}
		out := make([]any, 0, n)
		for i := 0; i < n; i++ {
			v, err := d.decodeValue(r, *t.elem, depth)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case kindStruct:
		return d.decodeStruct(r, t.schema, depth+1)
	}
	return nil, newError(KindSchema, "ACCT-SCH-004", "unknown field type")
}
