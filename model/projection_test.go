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

package model_test

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"

	"m4o.io/osmtile/model"
)

func TestLatpRoundTrip(t *testing.T) {
	for _, lat := range []model.Degrees{-85, -60, -33.8688, 0, 12.5, 51.5073219, 85} {
		latp := model.LatToLatp(lat)
		assert.True(t, model.LatpToLat(latp).EqualWithin(lat, model.E9), "%v", lat)
	}

	assert.InDelta(t, 0.0, float64(model.LatToLatp(0)), 1e-12)
	assert.InDelta(t, 180.0, float64(model.LatToLatp(model.MaxMercatorLat)), 1e-6)
}

func TestNewLatpLon(t *testing.T) {
	c := model.NewLatpLon(51.5073219, -0.1276474)

	assert.True(t, c.Lat().EqualWithin(51.5073219, model.E6))
	assert.True(t, c.LonDegrees().EqualWithin(-0.1276474, model.E7))

	p := c.Point()
	assert.InDelta(t, -0.1276474, p.X(), 1e-7)
	assert.InDelta(t, float64(model.LatToLatp(51.5073219)), p.Y(), 1e-7)
}

func TestNewLatpLonClampsPoles(t *testing.T) {
	north := model.NewLatpLon(90, 0)
	south := model.NewLatpLon(-90, 0)

	assert.InDelta(t, 180.0, float64(north.LatpDegrees()), 1e-6)
	assert.InDelta(t, -180.0, float64(south.LatpDegrees()), 1e-6)
}

func TestDegpToMeter(t *testing.T) {
	// one degree of longitude at the equator
	assert.InDelta(t, 111319.49, model.DegpToMeter(1, 0), 0.01)

	// the projected scale halves at 60 degrees
	latp60 := model.LatToLatp(60)
	ratio := model.DegpToMeter(1, 0) / model.DegpToMeter(1, latp60)
	assert.InDelta(t, 2.0, ratio, 1e-9)

	assert.InDelta(t, 1.0, float64(model.MeterToDegp(model.DegpToMeter(1, latp60), latp60)), 1e-9)
}

func TestProjectUnproject(t *testing.T) {
	p := orb.Point{-0.1276474, 51.5073219}

	projected := model.Project(p)
	assert.InDelta(t, float64(model.LatToLatp(51.5073219)), projected.Y(), 1e-12)

	back := model.Unproject(projected)
	assert.InDelta(t, p.X(), back.X(), 1e-12)
	assert.InDelta(t, p.Y(), back.Y(), 1e-9)
}
