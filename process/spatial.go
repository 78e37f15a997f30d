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

package process

import (
	"log/slog"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"m4o.io/osmtile/shapes"
)

// FindIntersectingGeometries returns the geometries of index that the bound
// entity lies in.  Candidates from the R-tree are confirmed by probing the
// geometry's closed area with the node itself or, for a way, with the point
// halfway along it and its two end points.  Relations never intersect.
func (c *Context) FindIntersectingGeometries(index string) []shapes.GeometryID {
	if c.index == nil {
		slog.Warn("no spatial indices are loaded", "index", index)

		return nil
	}

	var (
		bound  orb.Bound
		probes []orb.Point
	)

	switch c.kind {
	case KindNode:
		p := c.start.Point()
		bound = p.Bound()
		probes = []orb.Point{p}
	case KindWay:
		ls, err := c.AsLineString()
		if err != nil || len(ls) == 0 {
			return nil
		}

		bound = ls.Bound()
		probes = wayProbes(ls)
	default:
		return nil
	}

	candidates, ok := c.index.Query(index, bound)
	if !ok {
		slog.Warn("unknown spatial index", "index", index)

		return nil
	}

	var found []shapes.GeometryID

	for _, id := range candidates {
		g := c.index.Geometry(id)

		for _, p := range probes {
			if shapes.Contains(g, p) {
				found = append(found, id)

				break
			}
		}
	}

	return found
}

// FindIntersecting returns the names of the geometries of index that the
// bound entity lies in.  Unnamed geometries are left out.
func (c *Context) FindIntersecting(index string) []string {
	return c.NamesOfGeometries(c.FindIntersectingGeometries(index))
}

// Intersects reports whether the bound entity lies in any geometry of index.
func (c *Context) Intersects(index string) bool {
	return len(c.FindIntersectingGeometries(index)) > 0
}

// NamesOfGeometries maps identifiers to display names, skipping unnamed
// geometries.
func (c *Context) NamesOfGeometries(ids []shapes.GeometryID) []string {
	if c.index == nil {
		return nil
	}

	var names []string

	for _, id := range ids {
		if name := c.index.Name(id); name != "" {
			names = append(names, name)
		}
	}

	return names
}

// wayProbes returns the halfway point of the line followed by its end
// points.  A line of zero length is probed at its end points only.
func wayProbes(ls orb.LineString) []orb.Point {
	start, end := ls[0], ls[len(ls)-1]

	length := planar.Length(ls)
	if length == 0 {
		return []orb.Point{start, end}
	}

	return []orb.Point{pointAlong(ls, length/2), start, end}
}

// pointAlong interpolates the point at distance d along the line.
func pointAlong(ls orb.LineString, d float64) orb.Point {
	for i := 1; i < len(ls); i++ {
		seg := planar.Distance(ls[i-1], ls[i])
		if seg > 0 && d <= seg {
			t := d / seg

			return orb.Point{
				ls[i-1][0] + t*(ls[i][0]-ls[i-1][0]),
				ls[i-1][1] + t*(ls[i][1]-ls[i-1][1]),
			}
		}

		d -= seg
	}

	return ls[len(ls)-1]
}
