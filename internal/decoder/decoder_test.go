// Copyright 2017-26 the original author or authors.
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

package decoder

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"m4o.io/osmtile/internal/core"
	"m4o.io/osmtile/internal/encoder"
	"m4o.io/osmtile/model"
	"m4o.io/osmtile/tags"
)

func fixture(t *testing.T, c core.Compression, dense bool) *bytes.Buffer {
	t.Helper()

	hdr := model.Header{
		BoundingBox:                      &model.BoundingBox{Top: 51.7, Left: -0.5, Bottom: 51.3, Right: 0.3},
		RequiredFeatures:                 []string{"OsmSchema-V0.6", "DenseNodes"},
		WritingProgram:                   "osmtile-test",
		OsmosisReplicationTimestamp:      time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		OsmosisReplicationSequenceNumber: 42,
	}

	blocks := []encoder.Block{
		{
			Dense: dense,
			Nodes: []encoder.Node{
				{ID: 1, Lat: 51.5, Lon: -0.1, Tags: map[string]string{"amenity": "pub", "name": "The Crown"}},
				{ID: 2, Lat: 51.501, Lon: -0.1},
				{ID: 3, Lat: 51.501, Lon: -0.099, Tags: map[string]string{"natural": "tree"}},
			},
		},
		{
			Ways: []encoder.Way{
				{ID: 10, NodeIDs: []int64{1, 2, 3, 1}, Tags: map[string]string{"building": "yes"}},
			},
			Relations: []encoder.Relation{
				{
					ID:   100,
					Tags: map[string]string{"type": "multipolygon"},
					Members: []encoder.Member{
						{ID: 10, Type: model.WAY, Role: "outer"},
						{ID: 2, Type: model.NODE, Role: ""},
					},
				},
			},
		},
	}

	buf := &bytes.Buffer{}
	require.NoError(t, encoder.Encode(buf, hdr, blocks, c))

	return buf
}

func TestLoadHeader(t *testing.T) {
	buf := fixture(t, core.ZLIB, true)

	hdr, err := LoadHeader(buf)
	require.NoError(t, err)

	assert.Equal(t, []string{"OsmSchema-V0.6", "DenseNodes"}, hdr.RequiredFeatures)
	assert.Equal(t, "osmtile-test", hdr.WritingProgram)
	assert.Equal(t, int64(42), hdr.OsmosisReplicationSequenceNumber)
	assert.True(t, hdr.OsmosisReplicationTimestamp.Equal(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)))
	require.NotNil(t, hdr.BoundingBox)
	assert.True(t, hdr.BoundingBox.EqualWithin(&model.BoundingBox{Top: 51.7, Left: -0.5, Bottom: 51.3, Right: 0.3}, model.E9))
}

func TestLoadHeaderRejectsDataBlob(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, encoder.SaveBlocks(buf, []encoder.Block{{Ways: []encoder.Way{{ID: 1}}}}, core.RAW))

	_, err := LoadHeader(buf)
	assert.ErrorIs(t, err, ErrUnexpectedBlobType)
}

func TestDecodeCompressions(t *testing.T) {
	test_cases := []struct {
		compression core.Compression
		dense       bool
	}{
		{core.RAW, false},
		{core.ZLIB, true},
		{core.LZMA, true},
		{core.LZ4, false},
		{core.ZSTD, true},
	}

	for _, tc := range test_cases {
		t.Run(tc.compression.String(), func(t *testing.T) {
			buf := fixture(t, tc.compression, tc.dense)

			_, err := LoadHeader(buf)
			require.NoError(t, err)

			var blobs []*core.Blob
			for blob, err := range GenerateBlobReader(context.Background(), buf) {
				require.NoError(t, err)

				blobs = append(blobs, blob)
			}

			require.Len(t, blobs, 2)

			var blocks []*model.Block
			for b := range DecodeBatch(blobs) {
				require.NoError(t, b.Error)

				blocks = append(blocks, b.Value)
			}

			require.Len(t, blocks, 2)
			verifyNodes(t, blocks[0])
			verifyWaysAndRelations(t, blocks[1])
		})
	}
}

func verifyNodes(t *testing.T, b *model.Block) {
	t.Helper()

	require.Len(t, b.Nodes, 3)

	n := b.Nodes[0]
	assert.Equal(t, model.NodeID(1), n.ID)
	assert.True(t, n.Coord.Lat().EqualWithin(51.5, model.E6))
	assert.True(t, n.Coord.LonDegrees().EqualWithin(-0.1, model.E7))
	assert.Equal(t, map[string]string{"amenity": "pub", "name": "The Crown"}, tags.Map(b.Strings, n.Tags))

	name, ok := n.Tags.Find(b.Strings, "name")
	assert.True(t, ok)
	assert.Equal(t, "The Crown", name)

	assert.Equal(t, 0, b.Nodes[1].Tags.Len())
	assert.Equal(t, map[string]string{"natural": "tree"}, tags.Map(b.Strings, b.Nodes[2].Tags))
	assert.Equal(t, model.NodeID(3), b.Nodes[2].ID)
}

func verifyWaysAndRelations(t *testing.T, b *model.Block) {
	t.Helper()

	require.Len(t, b.Ways, 1)
	w := b.Ways[0]
	assert.Equal(t, model.WayID(10), w.ID)
	assert.Equal(t, []model.NodeID{1, 2, 3, 1}, w.NodeIDs)
	assert.Equal(t, map[string]string{"building": "yes"}, tags.Map(b.Strings, w.Tags))

	require.Len(t, b.Relations, 1)
	r := b.Relations[0]
	assert.Equal(t, model.RelationID(100), r.ID)
	assert.Equal(t, []model.Member{
		{ID: 10, Type: model.WAY, Role: "outer"},
		{ID: 2, Type: model.NODE, Role: ""},
	}, r.Members)

	v, ok := r.Tags.Find(b.Strings, "type")
	assert.True(t, ok)
	assert.Equal(t, "multipolygon", v)
}

func TestGenerateBlobReaderCancelled(t *testing.T) {
	buf := fixture(t, core.RAW, true)
	_, err := LoadHeader(buf)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, err := range GenerateBlobReader(ctx, buf) {
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestGenerateBlobReaderTruncated(t *testing.T) {
	buf := fixture(t, core.RAW, true)
	truncated := bytes.NewReader(buf.Bytes()[:buf.Len()-5])

	_, err := LoadHeader(truncated)
	require.NoError(t, err)

	var last error
	for _, err := range GenerateBlobReader(context.Background(), truncated) {
		last = err
	}

	require.Error(t, last)
	assert.True(t, errors.Is(last, io.ErrUnexpectedEOF))
}

func TestUnpackUnknownCompression(t *testing.T) {
	buf := core.NewPooledBuffer()
	defer buf.Close()

	_, err := unpack(buf, &core.Blob{Compression: core.UNKNOWN, Data: []byte{1}})
	assert.ErrorIs(t, err, ErrUnknownCompressionType)
}

func TestUnpackSizeMismatch(t *testing.T) {
	packed, err := encoder.Pack([]byte("some block content"), core.ZLIB)
	require.NoError(t, err)

	blob, err := core.UnmarshalBlob(packed)
	require.NoError(t, err)

	blob.RawSize++

	buf := core.NewPooledBuffer()
	defer buf.Close()

	_, err = unpack(buf, blob)
	assert.Error(t, err)
}

func TestAccumulate(t *testing.T) {
	assert.Equal(t, []int64{1, 1, 2, 3, 5, 7, 12}, accumulate([]int64{1, 0, 1, 1, 2, 2, 5}))
	assert.Empty(t, accumulate[int32](nil))
}

func TestDecodeMemberType(t *testing.T) {
	_, err := decodeMemberType(7)
	assert.ErrorIs(t, err, ErrMalformedBlock)
}
