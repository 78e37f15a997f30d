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

// Package model contains the shared model for reading OpenStreetMap PBF data
// and turning it into tile features.
package model

import (
	"math"
)

// NodeID is the primary key of a node.
type NodeID uint64

// WayID is the primary key of a way. Relations that are processed as
// areas are given synthetic way IDs counting down from MaxWayID.
type WayID uint64

// RelationID is the primary key of a relation.
type RelationID uint64

// MaxWayID is the reserved upper bound for way identifiers. Real way IDs
// are far below it.
const MaxWayID WayID = math.MaxUint64

// EntityType is an enumeration of PBF entity types.
type EntityType int32

const (
	// NODE denotes that the member is a node.
	NODE EntityType = iota

	// WAY denotes that the member is a way.
	WAY

	// RELATION denotes that the member is a relation.
	RELATION
)

func (t EntityType) String() string {
	switch t {
	case NODE:
		return "node"
	case WAY:
		return "way"
	case RELATION:
		return "relation"
	default:
		return "unknown"
	}
}
