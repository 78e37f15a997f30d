// Copyright 2017-26 the original author or authors.
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
	"fmt"
	"math"
	"strconv"

	"github.com/golang/geo/s1"
)

// coordinatesPerDegree is the unit of PBF coordinates before granularity
// and offset are applied.
const coordinatesPerDegree = 1e-9

// Degrees is the decimal degree representation of a longitude or latitude.
type Degrees float64

// Epsilon is an enumeration of precisions that can be used when comparing Degrees.
type Epsilon float64

// Degrees units.
const (
	MinutesPerDegree = 60
	SecondsPerDegree = 3600

	E5 Epsilon = 1e-5
	E6 Epsilon = 1e-6
	E7 Epsilon = 1e-7
	E9 Epsilon = 1e-9

	Half = 0.5
)

// Angle returns the equivalent s1.Angle.
func (d Degrees) Angle() s1.Angle { return s1.Angle(d) * s1.Degree }

// Radians returns the angle in radians.
func (d Degrees) Radians() float64 { return d.Angle().Radians() }

// DegreesOf converts an s1.Angle back into Degrees.
func DegreesOf(a s1.Angle) Degrees { return Degrees(a.Degrees()) }

func (d Degrees) String() string {
	var sign string
	if d < 0 {
		sign = "-"
	}

	val := math.Abs(float64(d))
	degrees := int(math.Floor(val))
	minutes := int(math.Floor(MinutesPerDegree * (val - float64(degrees))))
	seconds := SecondsPerDegree * (val - float64(degrees) - (float64(minutes) / MinutesPerDegree))

	return fmt.Sprintf("%s%d° %d' %s\"", sign, degrees, minutes, ftoa(seconds))
}

// MarshalJSON writes the degrees as a plain JSON number.
func (d Degrees) MarshalJSON() ([]byte, error) {
	return []byte(ftoa(float64(d))), nil
}

// EqualWithin checks if two degrees are within a specific epsilon.
func (d Degrees) EqualWithin(o Degrees, eps Epsilon) bool {
	return round(float64(d)/float64(eps))-round(float64(o)/float64(eps)) == 0
}

// ToDegrees converts a coordinate into Degrees, given the offset and
// granularity of the coordinate.
func ToDegrees(offset int64, granularity int32, coordinate int64) Degrees {
	return coordinatesPerDegree * Degrees(offset+(int64(granularity)*coordinate))
}

// ToCoordinate is the inverse of ToDegrees.
func ToCoordinate(offset int64, granularity int32, d Degrees) int64 {
	return (int64(math.Round(float64(d)/coordinatesPerDegree)) - offset) / int64(granularity)
}

// ParseDegrees converts a string to a Degrees instance.
func ParseDegrees(s string) (Degrees, error) {
	u, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}

	return Degrees(u), nil
}

// round returns the value rounded to nearest as an int64.
func round(val float64) int64 {
	if val < 0 {
		return int64(val - Half)
	}

	return int64(val + Half)
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
