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

package shapes

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Contains reports whether p lies in the closed area of g: points on any
// boundary, including the boundary of a hole, are inside.  Geometries
// without an area contain nothing.
func Contains(g orb.Geometry, p orb.Point) bool {
	switch g := g.(type) {
	case orb.Polygon:
		return polygonContains(g, p)
	case orb.MultiPolygon:
		for _, poly := range g {
			if polygonContains(poly, p) {
				return true
			}
		}

		return false
	case orb.Ring:
		return len(g) > 0 && planar.RingContains(g, p)
	case orb.Bound:
		return g.Contains(p)
	default:
		return false
	}
}

func polygonContains(poly orb.Polygon, p orb.Point) bool {
	if len(poly) == 0 || !planar.RingContains(poly[0], p) {
		return false
	}

	for _, hole := range poly[1:] {
		if planar.RingContains(hole, p) && !onBoundary(hole, p) {
			return false
		}
	}

	return true
}

func onBoundary(r orb.Ring, p orb.Point) bool {
	for i := 1; i < len(r); i++ {
		if planar.DistanceFromSegmentSquared(r[i-1], r[i], p) == 0 {
			return true
		}
	}

	return false
}
