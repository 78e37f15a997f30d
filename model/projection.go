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

package model

import (
	"math"

	"github.com/golang/geo/s1"
	"github.com/paulmach/orb"
)

const (
	// EarthRadius is the spherical mercator radius, in metres.
	EarthRadius = 6378137.0

	// MaxMercatorLat is the latitude at which the projected latitude reaches 180.
	MaxMercatorLat Degrees = 85.0511287798

	fixedPointScale = 10_000_000
)

// LatpLon is a coordinate stored as projected latitude and longitude, both
// in ten millionths of a degree. The projected latitude is the spherical
// mercator latitude expressed in degrees so that the pair can be treated as
// planar.
type LatpLon struct {
	Latp int32
	Lon  int32
}

// NewLatpLon projects a WGS84 coordinate. Latitudes beyond the mercator
// limit are clamped.
func NewLatpLon(lat, lon Degrees) LatpLon {
	return LatpLon{
		Latp: toFixed(LatToLatp(clampLat(lat))),
		Lon:  toFixed(lon),
	}
}

// LatpDegrees returns the projected latitude in degrees.
func (c LatpLon) LatpDegrees() Degrees { return Degrees(c.Latp) / fixedPointScale }

// LonDegrees returns the longitude in degrees.
func (c LatpLon) LonDegrees() Degrees { return Degrees(c.Lon) / fixedPointScale }

// Lat returns the unprojected latitude.
func (c LatpLon) Lat() Degrees { return LatpToLat(c.LatpDegrees()) }

// Point returns the coordinate as a planar point, X being the longitude
// and Y the projected latitude.
func (c LatpLon) Point() orb.Point {
	return orb.Point{float64(c.LonDegrees()), float64(c.LatpDegrees())}
}

// LatToLatp projects a latitude.
func LatToLatp(lat Degrees) Degrees {
	return DegreesOf(s1.Angle(math.Log(math.Tan((lat + 90).Radians() / 2))))
}

// LatpToLat reverses LatToLatp.
func LatpToLat(latp Degrees) Degrees {
	return DegreesOf(s1.Angle(math.Atan(math.Exp(latp.Radians()))*2)) - 90
}

// DegpToMeter converts a distance in projected degrees, measured at the
// projected latitude latp, into metres.
func DegpToMeter(degp, latp Degrees) float64 {
	return EarthRadius * degp.Radians() * math.Cos(LatpToLat(latp).Radians())
}

// MeterToDegp converts metres into projected degrees at latp.
func MeterToDegp(meters float64, latp Degrees) Degrees {
	return DegreesOf(s1.Angle(meters / EarthRadius / math.Cos(LatpToLat(latp).Radians())))
}

func clampLat(lat Degrees) Degrees {
	return max(min(lat, MaxMercatorLat), -MaxMercatorLat)
}

func toFixed(d Degrees) int32 {
	return int32(math.Round(float64(d) * fixedPointScale))
}

// Project maps a lon/lat point to lon/latp.  It is an orb.Projection.
func Project(p orb.Point) orb.Point {
	return orb.Point{p[0], float64(LatToLatp(clampLat(Degrees(p[1]))))}
}

// Unproject maps a lon/latp point back to lon/lat.  It is an orb.Projection.
func Unproject(p orb.Point) orb.Point {
	return orb.Point{p[0], float64(LatpToLat(Degrees(p[1])))}
}
