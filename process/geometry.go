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
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"m4o.io/osmtile/model"
)

// slot memoizes a geometry for one generation of the context.
type slot[T any] struct {
	generation uint64
	value      T
	err        error
}

func (s *slot[T]) get(generation uint64, build func() (T, error)) (T, error) {
	if s.generation != generation {
		s.value, s.err = build()
		s.generation = generation
	}

	return s.value, s.err
}

// AsLineString returns the way as a line.  Nodes and relations have no
// line and yield nil.
func (c *Context) AsLineString() (orb.LineString, error) {
	return c.line.get(c.generation, c.buildLineString)
}

func (c *Context) buildLineString() (orb.LineString, error) {
	if c.kind != KindWay {
		return nil, nil
	}

	return c.points(model.WayID(c.id), c.nodeIDs)
}

// AsPolygon returns a closed way as a polygon with its ring oriented
// counter-clockwise.  An unclosed way yields ErrUnclosedWay; nodes and
// relations yield nil.
func (c *Context) AsPolygon() (orb.Polygon, error) {
	return c.poly.get(c.generation, c.buildPolygon)
}

func (c *Context) buildPolygon() (orb.Polygon, error) {
	if c.kind != KindWay {
		return nil, nil
	}

	if !c.IsClosed() {
		return nil, ErrUnclosedWay
	}

	ls, err := c.AsLineString()
	if err != nil {
		return nil, err
	}

	ring := orb.Ring(slices.Clone(ls))
	orient(ring, orb.CCW)

	return orb.Polygon{ring}, nil
}

// AsMultiPolygon returns the area of a relation, assembled from its member
// ways, or of a closed way.  Outer rings are counter-clockwise and inner
// rings clockwise.  Rings that cannot be closed are dropped.
func (c *Context) AsMultiPolygon() (orb.MultiPolygon, error) {
	return c.multi.get(c.generation, c.buildMultiPolygon)
}

func (c *Context) buildMultiPolygon() (orb.MultiPolygon, error) {
	switch c.kind {
	case KindWay:
		if !c.IsClosed() {
			return nil, nil
		}

		poly, err := c.AsPolygon()
		if err != nil {
			return nil, err
		}

		return orb.MultiPolygon{poly}, nil
	case KindRelation:
		outers := c.rings(c.outer, orb.CCW)
		inners := c.rings(c.inner, orb.CW)

		mp := make(orb.MultiPolygon, len(outers))
		for i, r := range outers {
			mp[i] = orb.Polygon{r}
		}

		for _, inner := range inners {
			attached := false

			for i := range mp {
				if planar.RingContains(mp[i][0], inner[0]) {
					mp[i] = append(mp[i], inner)
					attached = true

					break
				}
			}

			if !attached {
				slog.Debug("dropping inner ring outside every outer ring", "relation", c.id)
			}
		}

		return mp, nil
	default:
		return nil, nil
	}
}

// rings stitches the member ways into closed rings with the given
// orientation.
func (c *Context) rings(wayIDs []model.WayID, o orb.Orientation) []orb.Ring {
	var ways [][]model.NodeID

	for _, id := range wayIDs {
		nodeIDs, err := c.coords.Way(id)
		if err != nil {
			slog.Debug("skipping missing member way", "relation", c.id, "way", id)

			continue
		}

		if len(nodeIDs) > 1 {
			ways = append(ways, nodeIDs)
		}
	}

	var rings []orb.Ring

	for _, ids := range stitch(ways) {
		ls, err := c.points(0, ids)
		if err != nil {
			slog.Debug("dropping ring with missing node", "relation", c.id, "error", err)

			continue
		}

		ring := orb.Ring(ls)
		orient(ring, o)
		rings = append(rings, ring)
	}

	return rings
}

// stitch joins node sequences that share end points into closed rings.
// Sequences may be reversed to fit.  Sequences that do not end up closed
// are discarded.
func stitch(ways [][]model.NodeID) [][]model.NodeID {
	pending := slices.Clone(ways)

	var rings [][]model.NodeID

	for len(pending) > 0 {
		current := slices.Clone(pending[0])
		pending = pending[1:]

		for !closedSequence(current) {
			joined := false

			for i, w := range pending {
				first, last := current[0], current[len(current)-1]

				switch {
				case w[0] == last:
					current = append(current, w[1:]...)
				case w[len(w)-1] == last:
					current = append(current, reversed(w)[1:]...)
				case w[len(w)-1] == first:
					current = append(slices.Clone(w[:len(w)-1]), current...)
				case w[0] == first:
					current = append(reversed(w)[:len(w)-1], current...)
				default:
					continue
				}

				pending = slices.Delete(pending, i, i+1)
				joined = true

				break
			}

			if !joined {
				break
			}
		}

		if closedSequence(current) && len(current) >= 4 {
			rings = append(rings, current)
		}
	}

	return rings
}

func closedSequence(ids []model.NodeID) bool {
	return len(ids) > 1 && ids[0] == ids[len(ids)-1]
}

func reversed(ids []model.NodeID) []model.NodeID {
	r := slices.Clone(ids)
	slices.Reverse(r)

	return r
}

// points resolves node identifiers to lon/latp points.
func (c *Context) points(way model.WayID, ids []model.NodeID) (orb.LineString, error) {
	ls := make(orb.LineString, len(ids))

	for i, id := range ids {
		coord, err := c.coords.Node(id)
		if err != nil {
			return nil, &MissingNodeError{Way: way, Node: id, Err: err}
		}

		ls[i] = coord.Point()
	}

	return ls, nil
}

func orient(r orb.Ring, o orb.Orientation) {
	if r.Orientation() != o {
		r.Reverse()
	}
}

// Area is the planar area of the entity in square projected degrees.
// Inner rings are subtracted.  Nodes and unclosed ways have no area.
func (c *Context) Area() float64 {
	switch c.kind {
	case KindRelation:
		mp, err := c.AsMultiPolygon()
		if err != nil {
			return 0
		}

		return planar.Area(mp)
	case KindWay:
		if !c.IsClosed() {
			return 0
		}

		poly, err := c.AsPolygon()
		if err != nil {
			return 0
		}

		return planar.Area(poly)
	default:
		return 0
	}
}

// Length is the planar length of a way in projected degrees.
func (c *Context) Length() float64 {
	if c.kind != KindWay {
		return 0
	}

	ls, err := c.AsLineString()
	if err != nil {
		return 0
	}

	return planar.Length(ls)
}

// ScaleToMeter is the number of metres per projected degree at the
// entity's location: the mean of its end points, or the centre of a
// relation's bound.
func (c *Context) ScaleToMeter() float64 {
	var latp model.Degrees

	switch c.kind {
	case KindNode, KindWay:
		latp = (c.start.LatpDegrees() + c.end.LatpDegrees()) / 2
	case KindRelation:
		if mp, err := c.AsMultiPolygon(); err == nil && len(mp) > 0 {
			latp = model.Degrees(mp.Bound().Center().Y())
		}
	}

	return model.DegpToMeter(1, latp)
}

// ScaleToKilometer is ScaleToMeter in kilometres.
func (c *Context) ScaleToKilometer() float64 {
	return c.ScaleToMeter() / 1000
}
