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
	"time"

	"m4o.io/osmtile/tags"
)

// Header is the contents of the OpenStreetMap PBF header blob.
type Header struct {
	BoundingBox                      *BoundingBox `json:"bounding_box,omitempty"`
	RequiredFeatures                 []string     `json:"required_features,omitempty"`
	OptionalFeatures                 []string     `json:"optional_features,omitempty"`
	WritingProgram                   string       `json:"writing_program,omitempty"`
	Source                           string       `json:"source,omitempty"`
	OsmosisReplicationTimestamp      time.Time    `json:"osmosis_replication_timestamp,omitempty"`
	OsmosisReplicationSequenceNumber int64        `json:"osmosis_replication_sequence_number,omitempty"`
	OsmosisReplicationBaseURL        string       `json:"osmosis_replication_base_url,omitempty"`
}

// Node is a point entity. Its tags reference the string table of the block
// it was read from.
type Node struct {
	ID    NodeID
	Coord LatpLon
	Tags  tags.Source
}

// Way is an ordered list of node references.
type Way struct {
	ID      WayID
	NodeIDs []NodeID
	Tags    tags.Source
}

// Member is one entry of a relation.
type Member struct {
	ID   uint64
	Type EntityType
	Role string
}

// Relation groups other entities.
type Relation struct {
	ID      RelationID
	Members []Member
	Tags    tags.Source
}

// Block is one decoded PBF primitive block. Every entity's tags are only
// meaningful together with Strings, which is immutable once the block has
// been decoded.
type Block struct {
	Strings   *tags.Dictionary
	Nodes     []Node
	Ways      []Way
	Relations []Relation
}

// Len is the number of entities in the block.
func (b *Block) Len() int {
	return len(b.Nodes) + len(b.Ways) + len(b.Relations)
}
