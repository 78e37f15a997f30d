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

package osmtile_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"m4o.io/osmtile/internal/core"
	"m4o.io/osmtile/internal/encoder"
	"m4o.io/osmtile/model"
)

var fixtureHeader = model.Header{
	BoundingBox:    &model.BoundingBox{Left: -0.01, Right: 0.01, Top: 0.01, Bottom: -0.01},
	WritingProgram: "osmtile-test",
}

// fixtureBlocks is a small extract: four corners of a building, a cafe, a
// bakery, a few ways and two relations.
var fixtureBlocks = []encoder.Block{
	{
		Dense: true,
		Nodes: []encoder.Node{
			{ID: 1, Lat: 0, Lon: 0},
			{ID: 2, Lat: 0, Lon: 0.001},
			{ID: 3, Lat: 0.001, Lon: 0.001},
			{ID: 4, Lat: 0.001, Lon: 0},
			{ID: 5, Lat: 0.0005, Lon: 0.0005, Tags: map[string]string{"amenity": "cafe", "name": "Corner"}},
			{ID: 6, Lat: 0.002, Lon: 0.002, Tags: map[string]string{"shop": "bakery"}},
		},
	},
	{
		Ways: []encoder.Way{
			{ID: 10, NodeIDs: []int64{1, 2, 3, 4, 1}, Tags: map[string]string{"building": "yes"}},
			{ID: 11, NodeIDs: []int64{1, 3}, Tags: map[string]string{"highway": "primary", "name": "Diagonal"}},
			{ID: 12, NodeIDs: []int64{1, 99}, Tags: map[string]string{"highway": "primary"}},
			{ID: 13, NodeIDs: []int64{1, 2}},
		},
	},
	{
		Relations: []encoder.Relation{
			{
				ID: 20,
				Members: []encoder.Member{
					{ID: 10, Type: model.WAY},
					{ID: 5, Type: model.NODE, Role: "label"},
				},
				Tags: map[string]string{"type": "multipolygon", "natural": "water"},
			},
			{
				ID:      21,
				Members: []encoder.Member{{ID: 11, Type: model.WAY}},
				Tags:    map[string]string{"type": "route"},
			},
		},
	},
}

func fixture(t testing.TB, c core.Compression) []byte {
	t.Helper()

	buf := &bytes.Buffer{}
	require.NoError(t, encoder.Encode(buf, fixtureHeader, fixtureBlocks, c))

	return buf.Bytes()
}

func opener(data []byte) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
}
