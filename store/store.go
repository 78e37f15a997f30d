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

// Package store keeps the node coordinates and way node lists read during
// the first pass over an extract.
package store

import (
	"errors"
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"

	"m4o.io/osmtile/model"
)

// ErrNotFound is returned for an identifier that was never stored.
var ErrNotFound = errors.New("not found")

// Coordinates is the read-only view of the store used while processing.
type Coordinates interface {
	Node(id model.NodeID) (model.LatpLon, error)
	Way(id model.WayID) ([]model.NodeID, error)
}

// Memory is a concurrent in-memory store.  Inserts may run from many
// goroutines during the first pass; lookups are lock free.
type Memory struct {
	nodes *xsync.MapOf[model.NodeID, model.LatpLon]
	ways  *xsync.MapOf[model.WayID, []model.NodeID]
}

var _ Coordinates = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		nodes: xsync.NewMapOf[model.NodeID, model.LatpLon](),
		ways:  xsync.NewMapOf[model.WayID, []model.NodeID](),
	}
}

func (m *Memory) InsertNode(id model.NodeID, c model.LatpLon) {
	m.nodes.Store(id, c)
}

// InsertWay records the node list of a way.  The slice is retained.
func (m *Memory) InsertWay(id model.WayID, nodeIDs []model.NodeID) {
	m.ways.Store(id, nodeIDs)
}

func (m *Memory) Node(id model.NodeID) (model.LatpLon, error) {
	c, ok := m.nodes.Load(id)
	if !ok {
		return model.LatpLon{}, fmt.Errorf("node %d: %w", id, ErrNotFound)
	}

	return c, nil
}

func (m *Memory) Way(id model.WayID) ([]model.NodeID, error) {
	ids, ok := m.ways.Load(id)
	if !ok {
		return nil, fmt.Errorf("way %d: %w", id, ErrNotFound)
	}

	return ids, nil
}

// NodeCount is the number of stored nodes.
func (m *Memory) NodeCount() int {
	return m.nodes.Size()
}

// WayCount is the number of stored ways.
func (m *Memory) WayCount() int {
	return m.ways.Size()
}
