// Package pbutil holds the protowire helpers shared by the hand-written wire
// schemas. Messages are encoded proto2-style: required scalars are always written,
// repeated scalars unpacked; the decoder also accepts packed repeated scalars and
// skips unknown fields.
package pbutil

import (
	"fmt"
	"maps"
	"slices"

	"google.golang.org/protobuf/encoding/protowire"
)

func AppendInt64(b []byte, num protowire.Number, v int64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

// AppendInt32 sign-extends negative values to ten bytes, as protobuf int32 does.
func AppendInt32(b []byte, num protowire.Number, v int32) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(int64(v)))
}

func AppendUint32(b []byte, num protowire.Number, v uint32) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

func AppendBool(b []byte, num protowire.Number, v bool) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeBool(v))
}

func AppendString(b []byte, num protowire.Number, v string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

// AppendMessage writes a length-delimited sub-message produced by appendTo.
func AppendMessage(b []byte, num protowire.Number, appendTo func([]byte) []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, appendTo(nil))
}

// Field is one decoded field. Varint holds the value of varint fields, Bytes the
// payload of length-delimited fields.
type Field struct {
	Num    protowire.Number
	Type   protowire.Type
	Varint uint64
	Bytes  []byte
}

func (f Field) Int64() int64   { return int64(f.Varint) }
func (f Field) Int32() int32   { return int32(f.Varint) }
func (f Field) Uint32() uint32 { return uint32(f.Varint) }
func (f Field) Bool() bool     { return protowire.DecodeBool(f.Varint) }
func (f Field) Text() string   { return string(f.Bytes) }

// Int64s returns the values of a repeated int64 field occurrence, packed or not.
func (f Field) Int64s() ([]int64, error) {
	if f.Type == protowire.VarintType {
		return []int64{int64(f.Varint)}, nil
	}
	if f.Type != protowire.BytesType {
		return nil, fmt.Errorf("field %d: unexpected wire type %d", f.Num, f.Type)
	}
	var out []int64
	b := f.Bytes
	for len(b) > 0 {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, fmt.Errorf("field %d: %w", f.Num, protowire.ParseError(n))
		}
		out = append(out, int64(v))
		b = b[n:]
	}
	return out, nil
}

// Expect verifies the wire type of a field.
func (f Field) Expect(typ protowire.Type) error {
	if f.Type != typ {
		return fmt.Errorf("field %d: wire type %d, want %d", f.Num, f.Type, typ)
	}
	return nil
}

// Range decodes b field by field, calling fn for every varint and length-delimited
// field. Other wire types are skipped.
func Range(b []byte, fn func(f Field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		f := Field{Num: num, Type: typ}
		switch typ {
		case protowire.VarintType:
			f.Varint, n = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			f.Bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
			continue
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

// Required tracks which required fields of a message were seen.
type Required struct {
	message string
	missing map[protowire.Number]string
}

func NewRequired(message string, fields map[protowire.Number]string) *Required {
	missing := make(map[protowire.Number]string, len(fields))
	for k, v := range fields {
		missing[k] = v
	}
	return &Required{message: message, missing: missing}
}

func (r *Required) Seen(num protowire.Number) {
	delete(r.missing, num)
}

func (r *Required) Check() error {
	if len(r.missing) == 0 {
		return nil
	}
	first := slices.Min(slices.Collect(maps.Keys(r.missing)))
	return fmt.Errorf("%s: required field %s missing", r.message, r.missing[first])
}
