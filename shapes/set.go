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

// Package shapes holds the auxiliary geometries, typically coastlines or
// administrative areas, that features are tested against while processing.
package shapes

import (
	"fmt"
	"maps"
	"slices"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
)

const (
	// Epsilon pads query and index rectangles, in projected degrees, so that
	// points and axis aligned lines have a non-zero extent.
	Epsilon = 1e-9

	minChildren = 25
	maxChildren = 50
)

// GeometryID identifies a geometry within a Set.
type GeometryID uint32

// Set is a collection of named R-tree indices over a shared geometry store.
// Geometries are in lon/latp degrees.  A Set is populated before processing
// starts and is read-only, and so safe for concurrent use, afterwards.
type Set struct {
	indices    map[string]*rtreego.Rtree
	geometries []orb.Geometry
	names      map[GeometryID]string
}

type entry struct {
	id   GeometryID
	rect rtreego.Rect
}

func (e *entry) Bounds() rtreego.Rect {
	return e.rect
}

func NewSet() *Set {
	return &Set{
		indices: make(map[string]*rtreego.Rtree),
		names:   make(map[GeometryID]string),
	}
}

// CreateIndex registers an empty index.  Adding to an index creates it
// implicitly.
func (s *Set) CreateIndex(index string) {
	if _, ok := s.indices[index]; !ok {
		s.indices[index] = rtreego.NewTree(2, minChildren, maxChildren)
	}
}

// Add stores g under index.  An empty name leaves the geometry unnamed.
func (s *Set) Add(index string, g orb.Geometry, name string) (GeometryID, error) {
	rect, err := Rect(g.Bound())
	if err != nil {
		return 0, fmt.Errorf("cannot index geometry in %s: %w", index, err)
	}

	s.CreateIndex(index)

	id := GeometryID(len(s.geometries))
	s.geometries = append(s.geometries, g)

	if name != "" {
		s.names[id] = name
	}

	s.indices[index].Insert(&entry{id: id, rect: rect})

	return id, nil
}

// Has reports whether index exists.
func (s *Set) Has(index string) bool {
	_, ok := s.indices[index]

	return ok
}

// Indices lists the index names in sorted order.
func (s *Set) Indices() []string {
	return slices.Sorted(maps.Keys(s.indices))
}

// Query returns the identifiers of the geometries in index whose bounding
// rectangle intersects b.  The boolean is false if the index does not exist.
func (s *Set) Query(index string, b orb.Bound) ([]GeometryID, bool) {
	tree, ok := s.indices[index]
	if !ok {
		return nil, false
	}

	rect, err := Rect(b)
	if err != nil {
		return nil, true
	}

	found := tree.SearchIntersect(rect)
	ids := make([]GeometryID, len(found))

	for i, f := range found {
		ids[i] = f.(*entry).id
	}

	slices.Sort(ids)

	return ids, true
}

// Geometry returns the stored geometry, or nil for an unknown id.
func (s *Set) Geometry(id GeometryID) orb.Geometry {
	if int(id) >= len(s.geometries) {
		return nil
	}

	return s.geometries[id]
}

// Name returns the display name of a geometry, or "".
func (s *Set) Name(id GeometryID) string {
	return s.names[id]
}

// Len is the number of stored geometries across all indices.
func (s *Set) Len() int {
	return len(s.geometries)
}

// Rect converts a bound to an R-tree rectangle padded by Epsilon.
func Rect(b orb.Bound) (rtreego.Rect, error) {
	point := rtreego.Point{b.Min.X() - Epsilon, b.Min.Y() - Epsilon}
	lengths := []float64{
		b.Max.X() - b.Min.X() + 2*Epsilon,
		b.Max.Y() - b.Min.Y() + 2*Epsilon,
	}

	return rtreego.NewRect(point, lengths)
}
