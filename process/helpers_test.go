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
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"

	"m4o.io/osmtile/layers"
	"m4o.io/osmtile/model"
	"m4o.io/osmtile/process"
	"m4o.io/osmtile/shapes"
	"m4o.io/osmtile/store"
	"m4o.io/osmtile/tags"
)

// fixed builds a coordinate from exact lon/latp degrees.
func fixed(lon, latp float64) model.LatpLon {
	return model.LatpLon{Latp: int32(math.Round(latp * 1e7)), Lon: int32(math.Round(lon * 1e7))}
}

type countingStore struct {
	*store.Memory
	nodeLookups int
}

func (s *countingStore) Node(id model.NodeID) (model.LatpLon, error) {
	s.nodeLookups++

	return s.Memory.Node(id)
}

type spyIndex struct {
	*shapes.Set
	verified int
}

func (s *spyIndex) Geometry(id shapes.GeometryID) orb.Geometry {
	s.verified++

	return s.Set.Geometry(id)
}

type fixture struct {
	store    *countingStore
	index    *spyIndex
	registry *layers.Registry
	dict     *tags.Dictionary
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:    &countingStore{Memory: store.NewMemory()},
		index:    &spyIndex{Set: shapes.NewSet()},
		registry: layers.NewRegistry(),
		dict: tags.NewDictionary([]string{
			"", "building", "yes", "highway", "primary", "name", "Main Street", "type", "multipolygon",
		}),
	}

	for _, name := range []string{"buildings", "roads", "pois"} {
		_, err := f.registry.AddLayer(layers.Definition{Name: name, MaxZoom: 14}, "")
		require.NoError(t, err)
	}

	return f
}

func (f *fixture) context(opts ...process.Option) *process.Context {
	c := process.NewContext(f.store, f.index, f.registry, opts...)
	c.SetDictionary(f.dict)

	return c
}

func (f *fixture) nodes(coords map[model.NodeID]model.LatpLon) {
	for id, c := range coords {
		f.store.InsertNode(id, c)
	}
}

// refs builds tag references from key/value positions in the fixture
// dictionary.
func refs(kv ...uint32) tags.Refs {
	var r tags.Refs

	for i := 0; i+1 < len(kv); i += 2 {
		r.Keys = append(r.Keys, kv[i])
		r.Vals = append(r.Vals, kv[i+1])
	}

	return r
}

func square(minX, minY, maxX, maxY float64) orb.Ring {
	return orb.Ring{{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY}}
}
