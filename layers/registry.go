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

// Package layers keeps the output layer definitions and the attribute
// schema observed for each layer while processing.
package layers

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"sync"
)

// ErrDuplicateLayer is matched by every DuplicateLayerError.
var ErrDuplicateLayer = errors.New("duplicate layer")

// DuplicateLayerError is returned when a layer name is registered twice.
type DuplicateLayerError struct {
	Name string
}

func (e *DuplicateLayerError) Error() string {
	return fmt.Sprintf("layer %q is already defined", e.Name)
}

func (e *DuplicateLayerError) Is(target error) bool {
	return target == ErrDuplicateLayer
}

// FieldType is the type of an attribute value.
type FieldType int

const (
	String FieldType = iota
	Number
	Boolean
)

func (t FieldType) String() string {
	switch t {
	case Number:
		return "Number"
	case Boolean:
		return "Boolean"
	default:
		return "String"
	}
}

func (t FieldType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Definition describes an output layer.
type Definition struct {
	Name    string
	MinZoom uint
	MaxZoom uint

	// SimplifyBelow is the zoom below which geometries are simplified.
	SimplifyBelow uint

	// SimplifyLevel is the simplification tolerance, in projected degrees,
	// at zoom SimplifyBelow-1.
	SimplifyLevel float64

	// SimplifyLength is an alternative tolerance in kilometres; it is used
	// instead of SimplifyLevel when positive.
	SimplifyLength float64

	// SimplifyRatio scales the tolerance for each zoom further below.
	SimplifyRatio float64
}

type group struct {
	name   string
	layers []int
}

// Registry is the ordered set of layer definitions.  Definitions are added
// at startup; afterwards only the attribute schema changes, and that is
// safe for concurrent use.
type Registry struct {
	defs   []Definition
	byName map[string]int
	groups []group

	mu     sync.Mutex
	fields []map[string]FieldType
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]int)}
}

// AddLayer registers def and returns its index.  Layers written to the same
// group are encoded as one tile layer.  An empty writeTo starts a new group
// named after the layer; writeTo may name an existing group or any layer
// already in one, otherwise a new group named writeTo is created.
func (r *Registry) AddLayer(def Definition, writeTo string) (int, error) {
	if _, ok := r.byName[def.Name]; ok {
		return 0, &DuplicateLayerError{Name: def.Name}
	}

	idx := len(r.defs)
	r.defs = append(r.defs, def)
	r.byName[def.Name] = idx

	r.mu.Lock()
	r.fields = append(r.fields, make(map[string]FieldType))
	r.mu.Unlock()

	if writeTo == "" {
		writeTo = def.Name
	}

	if g, ok := r.findGroup(writeTo); ok {
		r.groups[g].layers = append(r.groups[g].layers, idx)
	} else {
		r.groups = append(r.groups, group{name: writeTo, layers: []int{idx}})
	}

	return idx, nil
}

func (r *Registry) findGroup(name string) (int, bool) {
	for i, g := range r.groups {
		if g.name == name {
			return i, true
		}
	}

	if layer, ok := r.byName[name]; ok {
		for i, g := range r.groups {
			for _, l := range g.layers {
				if l == layer {
					return i, true
				}
			}
		}
	}

	return 0, false
}

// Lookup finds a layer index by name.
func (r *Registry) Lookup(name string) (int, bool) {
	idx, ok := r.byName[name]

	return idx, ok
}

// Definition returns the definition of layer idx.
func (r *Registry) Definition(idx int) Definition {
	return r.defs[idx]
}

// Len is the number of layers.
func (r *Registry) Len() int {
	return len(r.defs)
}

// Order returns the layer indices grouped by output layer, in
// registration order, e.g. [[0], [1, 2, 3], [4]].
func (r *Registry) Order() [][]int {
	order := make([][]int, len(r.groups))

	for i, g := range r.groups {
		order[i] = append([]int(nil), g.layers...)
	}

	return order
}

// GroupName is the name of the tile layer that layer idx is written to.
func (r *Registry) GroupName(idx int) string {
	for _, g := range r.groups {
		for _, l := range g.layers {
			if l == idx {
				return g.name
			}
		}
	}

	return r.defs[idx].Name
}

// SetVectorLayerMetadata records that key appears on layer idx with type t.
// The most recent type wins.
func (r *Registry) SetVectorLayerMetadata(idx int, key string, t FieldType) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if idx < 0 || idx >= len(r.fields) {
		return
	}

	r.fields[idx][key] = t
}

// Fields returns a copy of the attribute schema of layer idx.
func (r *Registry) Fields(idx int) map[string]FieldType {
	r.mu.Lock()
	defer r.mu.Unlock()

	return maps.Clone(r.fields[idx])
}

type layerJSON struct {
	Name    string               `json:"name"`
	MinZoom uint                 `json:"minzoom"`
	MaxZoom uint                 `json:"maxzoom"`
	Fields  map[string]FieldType `json:"fields"`
}

// SerialiseLayerJSON describes every layer, in layer order, with its zoom
// range and attribute schema.  Field keys are sorted so the output is
// reproducible.
func (r *Registry) SerialiseLayerJSON() ([]byte, error) {
	var out []layerJSON

	for _, g := range r.groups {
		for _, idx := range g.layers {
			def := r.defs[idx]
			out = append(out, layerJSON{
				Name:    def.Name,
				MinZoom: def.MinZoom,
				MaxZoom: def.MaxZoom,
				Fields:  r.Fields(idx),
			})
		}
	}

	if out == nil {
		out = []layerJSON{}
	}

	return json.Marshal(out)
}
