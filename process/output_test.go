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

package process_test

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"m4o.io/osmtile/layers"
	"m4o.io/osmtile/model"
	"m4o.io/osmtile/process"
)

func TestBuildingEndToEnd(t *testing.T) {
	f := newFixture(t)
	f.nodes(map[model.NodeID]model.LatpLon{
		1: fixed(0, 0), 2: fixed(1, 0), 3: fixed(1, 1),
	})

	c := f.context()
	require.NoError(t, c.BindWay(42, []model.NodeID{1, 2, 3, 1}, refs(1, 2)))

	require.NoError(t, c.Layer("buildings", true))
	c.Attribute("type", "house")

	out := c.Drain()
	require.Len(t, out, 1)

	idx, _ := f.registry.Lookup("buildings")
	assert.Equal(t, idx, out[0].Layer)
	assert.Equal(t, process.Polygon, out[0].GeomType)
	assert.True(t, out[0].IsArea)
	assert.Equal(t, uint64(42), out[0].ObjectID)
	assert.IsType(t, orb.Polygon{}, out[0].Geometry)
	assert.Equal(t, map[string]process.Value{
		"type": {Type: layers.String, String: "house"},
	}, out[0].Attributes)
	assert.Equal(t, map[string]layers.FieldType{"type": layers.String}, f.registry.Fields(idx))

	assert.True(t, c.Empty())
}

func TestLayerGeometryTypes(t *testing.T) {
	f := relationFixture(t)

	tests := []struct {
		name   string
		bind   func(c *process.Context) error
		area   bool
		want   process.GeomType
		isArea bool
	}{
		{
			name: "node",
			bind: func(c *process.Context) error {
				c.BindNode(1, nil, fixed(0, 0))
				return nil
			},
			want: process.Point,
		},
		{
			name: "closed way as line",
			bind: func(c *process.Context) error {
				return c.BindWay(102, []model.NodeID{5, 6, 7, 8, 5}, nil)
			},
			want: process.LineString,
		},
		{
			name: "closed way as area",
			bind: func(c *process.Context) error {
				return c.BindWay(102, []model.NodeID{5, 6, 7, 8, 5}, nil)
			},
			area:   true,
			want:   process.Polygon,
			isArea: true,
		},
		{
			name: "unclosed way as area",
			bind: func(c *process.Context) error {
				return c.BindWay(100, []model.NodeID{1, 2, 3}, nil)
			},
			area: true,
			want: process.LineString,
		},
		{
			name: "relation",
			bind: func(c *process.Context) error {
				c.BindRelation([]model.WayID{100, 101}, []model.WayID{102}, nil)
				return nil
			},
			want:   process.Polygon,
			isArea: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := f.context()
			require.NoError(t, tt.bind(c))
			require.NoError(t, c.Layer("roads", tt.area))

			out := c.Outputs()
			require.Len(t, out, 1)
			assert.Equal(t, tt.want, out[0].GeomType)
			assert.Equal(t, tt.isArea, out[0].IsArea)
			assert.NotNil(t, out[0].Geometry)
		})
	}
}

func TestEmptyRelationHasNoGeometry(t *testing.T) {
	f := relationFixture(t)
	c := f.context()

	c.BindRelation([]model.WayID{103}, nil, nil)
	require.NoError(t, c.Layer("buildings", true))

	out := c.Outputs()
	require.Len(t, out, 1)
	assert.Nil(t, out[0].Geometry)
}

func TestUnknownLayer(t *testing.T) {
	f := newFixture(t)
	c := f.context()

	c.BindNode(1, nil, fixed(0, 0))

	err := c.Layer("nope", false)
	assert.ErrorIs(t, err, process.ErrUnknownLayer)

	var unknown *process.UnknownLayerError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "nope", unknown.Layer)

	assert.ErrorIs(t, c.LayerAsCentroid("nope"), process.ErrUnknownLayer)
	assert.True(t, c.Empty())
}

func TestRebindClearsOutputs(t *testing.T) {
	f := newFixture(t)
	c := f.context()

	c.BindNode(1, nil, fixed(0, 0))
	require.NoError(t, c.Layer("pois", false))
	assert.False(t, c.Empty())

	c.BindNode(2, nil, fixed(1, 1))
	assert.True(t, c.Empty())
}

func TestAttributes(t *testing.T) {
	f := newFixture(t)
	c := f.context()
	idx, _ := f.registry.Lookup("pois")

	c.BindNode(1, nil, fixed(0, 0))

	// no feature yet
	c.Attribute("name", "ignored")
	assert.Empty(t, f.registry.Fields(idx))

	require.NoError(t, c.Layer("pois", false))
	c.Attribute("name", "Cafe")
	c.Attribute("empty", "")
	c.AttributeNumeric("rank", 3)
	c.AttributeBoolean("open", true)

	out := c.Outputs()
	require.Len(t, out, 1)

	attrs := out[0].Attributes
	assert.Len(t, attrs, 3)
	assert.Equal(t, "Cafe", attrs["name"].Interface())
	assert.Equal(t, 3.0, attrs["rank"].Interface())
	assert.Equal(t, true, attrs["open"].Interface())
	assert.NotContains(t, attrs, "empty")

	assert.Equal(t, map[string]layers.FieldType{
		"name": layers.String,
		"rank": layers.Number,
		"open": layers.Boolean,
	}, f.registry.Fields(idx))
}

func TestAttributesGoToLatestFeature(t *testing.T) {
	f := newFixture(t)
	c := f.context()

	c.BindNode(1, nil, fixed(0, 0))
	require.NoError(t, c.Layer("pois", false))
	require.NoError(t, c.Layer("roads", false))
	c.Attribute("name", "x")

	out := c.Outputs()
	require.Len(t, out, 2)
	assert.Empty(t, out[0].Attributes)
	assert.Contains(t, out[1].Attributes, "name")
}

func TestLayerAsCentroid(t *testing.T) {
	f := relationFixture(t)
	c := f.context()

	require.NoError(t, c.BindWay(102, []model.NodeID{5, 6, 7, 8, 5}, nil))
	require.NoError(t, c.LayerAsCentroid("pois"))

	out := c.Outputs()
	require.Len(t, out, 1)
	assert.Equal(t, process.Point, out[0].GeomType)

	p, ok := out[0].Geometry.(orb.Point)
	require.True(t, ok)
	assert.InDelta(t, 2.0, p.X(), 1e-9)
	assert.InDelta(t, 2.0, p.Y(), 1e-9)

	c.BindRelation([]model.WayID{100, 101}, nil, nil)
	require.NoError(t, c.LayerAsCentroid("pois"))

	p, ok = c.Outputs()[0].Geometry.(orb.Point)
	require.True(t, ok)
	assert.InDelta(t, 2.0, p.X(), 1e-9)
	assert.InDelta(t, 2.0, p.Y(), 1e-9)
}
