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

	"m4o.io/osmtile/model"
	"m4o.io/osmtile/process"
)

func TestGeometryIsMemoized(t *testing.T) {
	f := newFixture(t)
	f.nodes(map[model.NodeID]model.LatpLon{
		1: fixed(0, 0), 2: fixed(1, 0), 3: fixed(1, 1),
	})

	c := f.context()

	require.NoError(t, c.BindWay(10, []model.NodeID{1, 2, 3, 1}, nil))

	bound := f.store.nodeLookups

	first, err := c.AsLineString()
	require.NoError(t, err)
	assert.Equal(t, bound+4, f.store.nodeLookups)

	second, err := c.AsLineString()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	_, err = c.AsPolygon()
	require.NoError(t, err)
	_ = c.Area()
	_ = c.Length()
	assert.Equal(t, bound+4, f.store.nodeLookups)

	// rebinding invalidates the cache
	require.NoError(t, c.BindWay(10, []model.NodeID{1, 2, 3, 1}, nil))
	rebound := f.store.nodeLookups

	_, err = c.AsLineString()
	require.NoError(t, err)
	assert.Equal(t, rebound+4, f.store.nodeLookups)
}

func TestPolygon(t *testing.T) {
	f := newFixture(t)
	f.nodes(map[model.NodeID]model.LatpLon{
		1: fixed(0, 0), 2: fixed(1, 0), 3: fixed(1, 1), 4: fixed(0, 1),
	})

	tests := []struct {
		name  string
		nodes []model.NodeID
	}{
		{"counter-clockwise", []model.NodeID{1, 2, 3, 4, 1}},
		{"clockwise", []model.NodeID{1, 4, 3, 2, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := f.context()
			require.NoError(t, c.BindWay(10, tt.nodes, nil))

			poly, err := c.AsPolygon()
			require.NoError(t, err)
			require.Len(t, poly, 1)
			assert.Equal(t, orb.CCW, poly[0].Orientation())
			assert.InDelta(t, 1.0, c.Area(), 1e-9)
			assert.InDelta(t, 4.0, c.Length(), 1e-9)

			mp, err := c.AsMultiPolygon()
			require.NoError(t, err)
			assert.Equal(t, orb.MultiPolygon{poly}, mp)
		})
	}
}

func TestUnclosedWay(t *testing.T) {
	f := newFixture(t)
	f.nodes(map[model.NodeID]model.LatpLon{
		1: fixed(0, 0), 2: fixed(1, 0), 3: fixed(1, 1),
	})

	c := f.context()
	require.NoError(t, c.BindWay(10, []model.NodeID{1, 2, 3}, nil))

	_, err := c.AsPolygon()
	assert.ErrorIs(t, err, process.ErrUnclosedWay)

	mp, err := c.AsMultiPolygon()
	require.NoError(t, err)
	assert.Empty(t, mp)
	assert.Zero(t, c.Area())
	assert.InDelta(t, 2.0, c.Length(), 1e-9)
}

func TestNodeGeometry(t *testing.T) {
	f := newFixture(t)
	c := f.context()

	c.BindNode(1, nil, fixed(1, 1))

	ls, err := c.AsLineString()
	require.NoError(t, err)
	assert.Nil(t, ls)

	poly, err := c.AsPolygon()
	require.NoError(t, err)
	assert.Nil(t, poly)

	assert.Zero(t, c.Area())
	assert.Zero(t, c.Length())
}

// relationFixture is a 4x4 outer square made of two ways, one of which
// must be reversed to close the ring, a 2x2 inner square and an outer way
// that cannot be closed.
func relationFixture(t *testing.T) *fixture {
	t.Helper()

	f := newFixture(t)
	f.nodes(map[model.NodeID]model.LatpLon{
		1: fixed(0, 0), 2: fixed(4, 0), 3: fixed(4, 4), 4: fixed(0, 4),
		5: fixed(1, 1), 6: fixed(3, 1), 7: fixed(3, 3), 8: fixed(1, 3),
		9: fixed(10, 10), 10: fixed(11, 11),
	})

	f.store.InsertWay(100, []model.NodeID{1, 2, 3})
	f.store.InsertWay(101, []model.NodeID{1, 4, 3})
	f.store.InsertWay(102, []model.NodeID{5, 6, 7, 8, 5})
	f.store.InsertWay(103, []model.NodeID{9, 10})

	return f
}

func TestRelationMultiPolygon(t *testing.T) {
	f := relationFixture(t)
	c := f.context()

	c.BindRelation([]model.WayID{100, 103, 101}, []model.WayID{102}, nil)

	mp, err := c.AsMultiPolygon()
	require.NoError(t, err)
	require.Len(t, mp, 1)
	require.Len(t, mp[0], 2)

	assert.Equal(t, orb.CCW, mp[0][0].Orientation())
	assert.Equal(t, orb.CW, mp[0][1].Orientation())
	assert.InDelta(t, 12.0, c.Area(), 1e-9)
	assert.True(t, c.IsClosed())

	ls, err := c.AsLineString()
	require.NoError(t, err)
	assert.Nil(t, ls)
	assert.Zero(t, c.Length())
}

func TestRelationMissingMembers(t *testing.T) {
	f := relationFixture(t)
	c := f.context()

	c.BindRelation([]model.WayID{100, 999}, []model.WayID{102}, nil)

	mp, err := c.AsMultiPolygon()
	require.NoError(t, err)
	assert.Empty(t, mp)
	assert.Zero(t, c.Area())
}

func TestInnerOutsideOuterIsDropped(t *testing.T) {
	f := relationFixture(t)
	f.nodes(map[model.NodeID]model.LatpLon{
		20: fixed(20, 20), 21: fixed(21, 20), 22: fixed(21, 21),
	})
	f.store.InsertWay(104, []model.NodeID{20, 21, 22, 20})

	c := f.context()
	c.BindRelation([]model.WayID{100, 101}, []model.WayID{104}, nil)

	mp, err := c.AsMultiPolygon()
	require.NoError(t, err)
	require.Len(t, mp, 1)
	assert.Len(t, mp[0], 1)
	assert.InDelta(t, 16.0, c.Area(), 1e-9)
}

func TestScaleToMeter(t *testing.T) {
	f := newFixture(t)
	f.nodes(map[model.NodeID]model.LatpLon{
		1: model.NewLatpLon(0, 0),
		2: model.NewLatpLon(0, 1),
		3: model.NewLatpLon(60, 0),
		4: model.NewLatpLon(60, 1),
	})

	c := f.context()

	require.NoError(t, c.BindWay(10, []model.NodeID{1, 2}, nil))
	equator := c.ScaleToMeter()
	assert.InDelta(t, 111319.49, equator, 0.01)
	assert.InDelta(t, 111.31949, c.ScaleToKilometer(), 1e-5)

	require.NoError(t, c.BindWay(11, []model.NodeID{3, 4}, nil))
	assert.InDelta(t, 2.0, equator/c.ScaleToMeter(), 1e-4)

	c.BindNode(3, nil, model.NewLatpLon(60, 0))
	assert.InDelta(t, 2.0, equator/c.ScaleToMeter(), 1e-4)
}

func TestRelationScaleUsesBoundCentre(t *testing.T) {
	f := relationFixture(t)
	c := f.context()

	c.BindRelation([]model.WayID{100, 101}, nil, nil)

	assert.InDelta(t, model.DegpToMeter(1, 2), c.ScaleToMeter(), 1e-6)
}
