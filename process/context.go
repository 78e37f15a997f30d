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

// Package process binds one OpenStreetMap entity at a time and turns it
// into output features on behalf of a rule set.
//
// A Context is owned by a single goroutine.  It borrows the coordinate
// store, the spatial indices and the layer registry, all of which may be
// shared between contexts.  Geometries are built on first use and cached
// until the next bind.
package process

import (
	"strconv"

	"github.com/paulmach/orb"

	"m4o.io/osmtile/layers"
	"m4o.io/osmtile/model"
	"m4o.io/osmtile/shapes"
	"m4o.io/osmtile/store"
	"m4o.io/osmtile/tags"
)

// Kind is the type of the bound entity.
type Kind int

const (
	KindNone Kind = iota
	KindNode
	KindWay
	KindRelation
)

func (k Kind) String() string {
	switch k {
	case KindNode:
		return "node"
	case KindWay:
		return "way"
	case KindRelation:
		return "relation"
	default:
		return "none"
	}
}

// SpatialIndex is the read-only view of the auxiliary shapes.
type SpatialIndex interface {
	Query(index string, b orb.Bound) ([]shapes.GeometryID, bool)
	Geometry(id shapes.GeometryID) orb.Geometry
	Name(id shapes.GeometryID) string
}

var _ SpatialIndex = (*shapes.Set)(nil)

type options struct {
	relationIDs *RelationIDs
}

// Option configures a Context.
type Option func(*options)

// WithRelationIDs shares a relation identifier allocator between contexts.
// Without it every context counts down from model.MaxWayID on its own.
func WithRelationIDs(ids *RelationIDs) Option {
	return func(o *options) {
		o.relationIDs = ids
	}
}

// Context is the feature processing context.
type Context struct {
	coords   store.Coordinates
	index    SpatialIndex
	registry *layers.Registry
	relIDs   *RelationIDs

	dict *tags.Dictionary

	id    uint64
	kind  Kind
	tags  tags.Source
	start model.LatpLon
	end   model.LatpLon

	nodeIDs []model.NodeID
	outer   []model.WayID
	inner   []model.WayID

	generation uint64
	line       slot[orb.LineString]
	poly       slot[orb.Polygon]
	multi      slot[orb.MultiPolygon]

	outputs []OutputFeature
}

// NewContext creates a context.  index may be nil when no shapes are
// loaded.
func NewContext(coords store.Coordinates, index SpatialIndex, registry *layers.Registry, opts ...Option) *Context {
	var o options

	for _, opt := range opts {
		opt(&o)
	}

	if o.relationIDs == nil {
		o.relationIDs = NewRelationIDs()
	}

	return &Context{
		coords:   coords,
		index:    index,
		registry: registry,
		relIDs:   o.relationIDs,
	}
}

// SetDictionary installs the string table of the block whose entities are
// about to be bound.
func (c *Context) SetDictionary(d *tags.Dictionary) {
	c.dict = d
}

func (c *Context) reset(kind Kind, id uint64, t tags.Source) {
	c.generation++
	c.outputs = c.outputs[:0]

	c.kind = kind
	c.id = id
	c.tags = t
	c.start = model.LatpLon{}
	c.end = model.LatpLon{}
	c.nodeIDs = nil
	c.outer = nil
	c.inner = nil
}

// BindNode makes a node the current entity.
func (c *Context) BindNode(id model.NodeID, t tags.Source, coord model.LatpLon) {
	c.reset(KindNode, uint64(id), t)

	c.start = coord
	c.end = coord
}

// BindWay makes a way the current entity.  The first and last nodes must be
// in the coordinate store; if either is missing a *MissingNodeError is
// returned and the context is left unbound.
func (c *Context) BindWay(id model.WayID, nodeIDs []model.NodeID, t tags.Source) error {
	c.reset(KindNone, 0, nil)

	if len(nodeIDs) == 0 {
		return ErrEmptyWay
	}

	first := nodeIDs[0]
	last := nodeIDs[len(nodeIDs)-1]

	start, err := c.coords.Node(first)
	if err != nil {
		return &MissingNodeError{Way: id, Node: first, Err: err}
	}

	end, err := c.coords.Node(last)
	if err != nil {
		return &MissingNodeError{Way: id, Node: last, Err: err}
	}

	c.kind = KindWay
	c.id = uint64(id)
	c.tags = t
	c.nodeIDs = nodeIDs
	c.start = start
	c.end = end

	return nil
}

// BindRelation makes a multipolygon relation the current entity.  Relations
// are given a synthetic way identifier.
func (c *Context) BindRelation(outer, inner []model.WayID, t tags.Source) {
	c.reset(KindRelation, uint64(c.relIDs.Next()), t)

	c.outer = outer
	c.inner = inner
}

// Kind returns the type of the bound entity.
func (c *Context) Kind() Kind {
	return c.kind
}

// ID returns the decimal identifier of the bound entity.
func (c *Context) ID() string {
	return strconv.FormatUint(c.id, 10)
}

// HasTag reports whether the bound entity carries key.
func (c *Context) HasTag(key string) bool {
	if c.tags == nil {
		return false
	}

	_, ok := c.tags.Find(c.dict, key)

	return ok
}

// Tag returns the value of key, or "" when absent.
func (c *Context) Tag(key string) string {
	if c.tags == nil {
		return ""
	}

	v, _ := c.tags.Find(c.dict, key)

	return v
}

// Tags resolves every tag of the bound entity.
func (c *Context) Tags() map[string]string {
	return tags.Map(c.dict, c.tags)
}

// IsClosed reports whether the bound entity describes an area: relations
// always do, ways do when their first and last node are the same.
func (c *Context) IsClosed() bool {
	switch c.kind {
	case KindRelation:
		return true
	case KindWay:
		return len(c.nodeIDs) > 1 && c.nodeIDs[0] == c.nodeIDs[len(c.nodeIDs)-1]
	default:
		return false
	}
}
