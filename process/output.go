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

	"m4o.io/osmtile/layers"
)

// GeomType is the kind of geometry written for an output feature.
type GeomType int

const (
	Point GeomType = iota
	LineString
	Polygon
)

func (t GeomType) String() string {
	switch t {
	case LineString:
		return "linestring"
	case Polygon:
		return "polygon"
	default:
		return "point"
	}
}

// Value is a typed attribute value.
type Value struct {
	Type    layers.FieldType
	String  string
	Number  float64
	Boolean bool
}

// Interface returns the value as a string, float64 or bool.
func (v Value) Interface() any {
	switch v.Type {
	case layers.Number:
		return v.Number
	case layers.Boolean:
		return v.Boolean
	default:
		return v.String
	}
}

// OutputFeature is one entity written to one layer.  Geometry is in
// lon/latp degrees and is nil when the entity had no usable geometry.
type OutputFeature struct {
	Layer      int
	GeomType   GeomType
	ObjectID   uint64
	Geometry   orb.Geometry
	Attributes map[string]Value
	IsArea     bool
}

// Layer writes the bound entity to layer name.  Nodes are written as
// points and relations as multipolygons.  A way is written as a polygon
// when area is requested and the way is closed, otherwise as a line.
func (c *Context) Layer(name string, area bool) error {
	idx, ok := c.registry.Lookup(name)
	if !ok {
		return &UnknownLayerError{Layer: name}
	}

	f := OutputFeature{
		Layer:      idx,
		ObjectID:   c.id,
		Attributes: make(map[string]Value),
	}

	switch c.kind {
	case KindNode:
		f.GeomType = Point
		f.Geometry = c.start.Point()
	case KindRelation:
		mp, err := c.AsMultiPolygon()
		if err != nil {
			return err
		}

		f.GeomType = Polygon
		f.IsArea = true
		f.Geometry = nonEmpty(mp)
	case KindWay:
		if area && c.IsClosed() {
			poly, err := c.AsPolygon()
			if err != nil {
				return err
			}

			f.GeomType = Polygon
			f.IsArea = true
			f.Geometry = poly
		} else {
			ls, err := c.AsLineString()
			if err != nil {
				return err
			}

			f.GeomType = LineString
			f.Geometry = ls
		}
	default:
		return nil
	}

	c.outputs = append(c.outputs, f)

	return nil
}

// LayerAsCentroid writes the centroid of the bound entity to layer name.
// Areas use their area weighted centroid, open ways the centroid of the
// line.
func (c *Context) LayerAsCentroid(name string) error {
	idx, ok := c.registry.Lookup(name)
	if !ok {
		return &UnknownLayerError{Layer: name}
	}

	var g orb.Geometry

	switch c.kind {
	case KindNode:
		g = c.start.Point()
	case KindRelation:
		mp, err := c.AsMultiPolygon()
		if err != nil {
			return err
		}

		g = nonEmpty(mp)
	case KindWay:
		var err error

		if c.IsClosed() {
			g, err = c.AsPolygon()
		} else {
			g, err = c.AsLineString()
		}

		if err != nil {
			return err
		}
	default:
		return nil
	}

	f := OutputFeature{
		Layer:      idx,
		GeomType:   Point,
		ObjectID:   c.id,
		Attributes: make(map[string]Value),
	}

	if g != nil {
		p, _ := planar.CentroidArea(g)
		f.Geometry = p
	}

	c.outputs = append(c.outputs, f)

	return nil
}

func nonEmpty(mp orb.MultiPolygon) orb.Geometry {
	if len(mp) == 0 {
		return nil
	}

	return mp
}

// Attribute sets a string attribute on the most recent output feature.
// Empty values are not written.
func (c *Context) Attribute(key, value string) {
	if value == "" {
		return
	}

	c.setAttribute(key, Value{Type: layers.String, String: value})
}

// AttributeNumeric sets a numeric attribute on the most recent output
// feature.
func (c *Context) AttributeNumeric(key string, value float64) {
	c.setAttribute(key, Value{Type: layers.Number, Number: value})
}

// AttributeBoolean sets a boolean attribute on the most recent output
// feature.
func (c *Context) AttributeBoolean(key string, value bool) {
	c.setAttribute(key, Value{Type: layers.Boolean, Boolean: value})
}

func (c *Context) setAttribute(key string, v Value) {
	if len(c.outputs) == 0 {
		slog.Debug("attribute set without a layer", "key", key, "id", c.id)

		return
	}

	last := &c.outputs[len(c.outputs)-1]
	last.Attributes[key] = v

	c.registry.SetVectorLayerMetadata(last.Layer, key, v.Type)
}

// Empty reports whether the bound entity has produced no output.
func (c *Context) Empty() bool {
	return len(c.outputs) == 0
}

// Outputs returns the output features of the bound entity.  The slice is
// reused by the next bind.
func (c *Context) Outputs() []OutputFeature {
	return c.outputs
}

// Drain hands over the output features and clears the accumulator.
func (c *Context) Drain() []OutputFeature {
	out := c.outputs
	c.outputs = nil

	return out
}
