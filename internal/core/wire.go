// Copyright 2025-26 the original author or authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package core

import (
	"fmt"
	"iter"

	"golang.org/x/exp/constraints"
	"google.golang.org/protobuf/encoding/protowire"
)

// Field is a single top level field of a protobuf encoded message.  Only
// the varint and length delimited wire types carry a value; fixed width
// fields are skipped over.
type Field struct {
	Num    protowire.Number
	Type   protowire.Type
	Varint uint64
	Bytes  []byte
}

// Int64 interprets a varint field as an int64.
func (f Field) Int64() int64 { return int64(f.Varint) }

// Int32 interprets a varint field as an int32.
func (f Field) Int32() int32 { return int32(f.Varint) }

// Sint64 interprets a zig-zag encoded varint field.
func (f Field) Sint64() int64 { return protowire.DecodeZigZag(f.Varint) }

// String interprets a length delimited field as a string.
func (f Field) String() string { return string(f.Bytes) }

// Fields iterates over the fields of the protobuf message encoded in b.  The
// byte slices handed out alias b.
func Fields(b []byte) iter.Seq2[Field, error] {
	return func(yield func(Field, error) bool) {
		for len(b) > 0 {
			num, typ, n := protowire.ConsumeTag(b)
			if n < 0 {
				yield(Field{}, fmt.Errorf("malformed tag: %w", protowire.ParseError(n)))

				return
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
			}

			if n < 0 {
				yield(Field{}, fmt.Errorf("malformed field %d: %w", num, protowire.ParseError(n)))

				return
			}

			b = b[n:]

			if !yield(f, nil) {
				return
			}
		}
	}
}

// AppendRepeated appends the values of a repeated scalar field to dst.
// Both the packed and the unpacked encodings are accepted.
func AppendRepeated[T constraints.Integer](dst []T, f Field, conv func(uint64) T) ([]T, error) {
	switch f.Type {
	case protowire.VarintType:
		return append(dst, conv(f.Varint)), nil
	case protowire.BytesType:
		b := f.Bytes
		for len(b) > 0 {
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return dst, fmt.Errorf("malformed packed field %d: %w", f.Num, protowire.ParseError(n))
			}

			dst = append(dst, conv(v))
			b = b[n:]
		}

		return dst, nil
	default:
		return dst, fmt.Errorf("field %d: unexpected wire type %d", f.Num, f.Type)
	}
}

// Conversions for AppendRepeated.
func AsSint64(v uint64) int64 { return protowire.DecodeZigZag(v) }
func AsInt32(v uint64) int32 { return int32(v) }
func AsUint32(v uint64) uint32 { return uint32(v) }

// AppendPacked encodes values as a packed repeated field.
func AppendPacked[T constraints.Integer](b []byte, num protowire.Number, values []T, conv func(T) uint64) []byte {
	if len(values) == 0 {
		return b
	}

	var packed []byte
	for _, v := range values {
		packed = protowire.AppendVarint(packed, conv(v))
	}

	b = protowire.AppendTag(b, num, protowire.BytesType)

	return protowire.AppendBytes(b, packed)
}

// Conversions for AppendPacked.
func FromSint64(v int64) uint64 { return protowire.EncodeZigZag(v) }
func FromInt32(v int32) uint64 { return uint64(int64(v)) }
func FromUint32(v uint32) uint64 { return uint64(v) }

// AppendVarintField encodes a single varint field.
func AppendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)

	return protowire.AppendVarint(b, v)
}

// AppendBytesField encodes a single length delimited field.
func AppendBytesField(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)

	return protowire.AppendBytes(b, v)
}
