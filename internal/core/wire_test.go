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

package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"m4o.io/osmtile/internal/core"
)

func TestFieldsAndPacked(t *testing.T) {
	var b []byte
	b = core.AppendVarintField(b, 1, core.FromSint64(-42))
	b = core.AppendBytesField(b, 2, []byte("name"))
	b = protowire.AppendTag(b, 3, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, 7)
	b = core.AppendPacked(b, 8, []int64{-1, 0, 300}, core.FromSint64)
	b = core.AppendVarintField(b, 9, core.FromInt32(5))
	b = core.AppendVarintField(b, 9, core.FromInt32(6))

	var (
		id     int64
		name   string
		packed []int64
		single []int32
	)

	for f, err := range core.Fields(b) {
		require.NoError(t, err)

		switch f.Num {
		case 1:
			id = f.Sint64()
		case 2:
			name = f.String()
		case 8:
			packed, err = core.AppendRepeated(packed, f, core.AsSint64)
			require.NoError(t, err)
		case 9:
			single, err = core.AppendRepeated(single, f, core.AsInt32)
			require.NoError(t, err)
		}
	}

	assert.Equal(t, int64(-42), id)
	assert.Equal(t, "name", name)
	assert.Equal(t, []int64{-1, 0, 300}, packed)
	assert.Equal(t, []int32{5, 6}, single)
}

func TestFieldsMalformed(t *testing.T) {
	b := core.AppendBytesField(nil, 2, []byte("truncated"))

	var failed bool
	for _, err := range core.Fields(b[:len(b)-3]) {
		if err != nil {
			failed = true
		}
	}

	assert.True(t, failed)
}

func TestAppendPackedEmpty(t *testing.T) {
	assert.Empty(t, core.AppendPacked[uint32](nil, 2, nil, core.FromUint32))
}

func TestBlobRoundTrip(t *testing.T) {
	test_cases := []core.Compression{core.RAW, core.ZLIB, core.LZMA, core.LZ4, core.ZSTD}

	for _, c := range test_cases {
		t.Run(c.String(), func(t *testing.T) {
			blob := &core.Blob{RawSize: 11, Compression: c, Data: []byte("payload")}

			decoded, err := core.UnmarshalBlob(blob.Marshal())
			require.NoError(t, err)

			assert.Equal(t, c, decoded.Compression)
			assert.Equal(t, []byte("payload"), decoded.Data)

			if c != core.RAW {
				assert.Equal(t, int32(11), decoded.RawSize)
			}
		})
	}
}

func TestBlobHeaderRoundTrip(t *testing.T) {
	h := &core.BlobHeader{Type: core.OSMData, DataSize: 1234}

	decoded, err := core.UnmarshalBlobHeader(h.Marshal())
	require.NoError(t, err)
	assert.Equal(t, h, decoded)
}

func TestUnmarshalEmptyBlob(t *testing.T) {
	_, err := core.UnmarshalBlob(core.AppendVarintField(nil, 2, 10))
	assert.ErrorIs(t, err, core.ErrEmptyBlob)
}
