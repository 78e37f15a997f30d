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

package encoder

import (
	"maps"
	"slices"

	"golang.org/x/exp/constraints"

	"m4o.io/osmtile/internal/core"
	"m4o.io/osmtile/model"
)

const (
	DateGranularityMs = 1000
	Granularity       = 100
	LatOffset         = 0
	LonOffset         = 0

	// EntityLimit is the max number of entities in a primitive block.
	// Certain programs (e.g. osmosis 0.38) limit the number of entities in
	// each block to 8000 when writing PBF format.
	EntityLimit = 8000
)

type Node struct {
	ID   int64
	Lat  model.Degrees
	Lon  model.Degrees
	Tags map[string]string
}

type Way struct {
	ID      int64
	NodeIDs []int64
	Tags    map[string]string
}

type Member struct {
	ID   int64
	Type model.EntityType
	Role string
}

type Relation struct {
	ID      int64
	Members []Member
	Tags    map[string]string
}

// Block is the content of one primitive block.  Each non-empty entity list
// is written as its own primitive group.
type Block struct {
	Nodes     []Node
	Ways      []Way
	Relations []Relation

	// Dense selects the dense node encoding.
	Dense bool
}

// EncodeBlock marshals a primitive block.
func EncodeBlock(blk Block) ([]byte, error) {
	bc := newBlockContext(blk)

	var b []byte

	var st []byte
	for _, s := range bc.table.AsArray() {
		st = core.AppendBytesField(st, 1, []byte(s))
	}

	b = core.AppendBytesField(b, 1, st)

	if len(blk.Nodes) > 0 {
		if blk.Dense {
			g := core.AppendBytesField(nil, 2, bc.extractDenseNodes())
			b = core.AppendBytesField(b, 2, g)
		} else {
			var g []byte
			for _, n := range blk.Nodes {
				g = core.AppendBytesField(g, 1, bc.extractNode(n))
			}

			b = core.AppendBytesField(b, 2, g)
		}
	}

	if len(blk.Ways) > 0 {
		var g []byte
		for _, w := range blk.Ways {
			g = core.AppendBytesField(g, 3, bc.extractWay(w))
		}

		b = core.AppendBytesField(b, 2, g)
	}

	if len(blk.Relations) > 0 {
		var g []byte
		for _, r := range blk.Relations {
			g = core.AppendBytesField(g, 4, bc.extractRelation(r))
		}

		b = core.AppendBytesField(b, 2, g)
	}

	b = core.AppendVarintField(b, 17, Granularity)
	b = core.AppendVarintField(b, 18, DateGranularityMs)
	b = core.AppendVarintField(b, 19, LatOffset)
	b = core.AppendVarintField(b, 20, LonOffset)

	return b, nil
}

type blockContext struct {
	table *Table
	blk   Block
}

func newBlockContext(blk Block) *blockContext {
	table := NewTable()

	for _, n := range blk.Nodes {
		addTags(table, n.Tags)
	}

	for _, w := range blk.Ways {
		addTags(table, w.Tags)
	}

	for _, r := range blk.Relations {
		addTags(table, r.Tags)

		for _, m := range r.Members {
			table.Add(m.Role)
		}
	}

	return &blockContext{table: table, blk: blk}
}

func (bc *blockContext) extractNode(n Node) []byte {
	keyIDs, valIDs := calcTagIDs(n.Tags, bc.table)

	b := core.AppendVarintField(nil, 1, core.FromSint64(n.ID))
	b = core.AppendPacked(b, 2, keyIDs, core.FromUint32)
	b = core.AppendPacked(b, 3, valIDs, core.FromUint32)
	b = core.AppendVarintField(b, 8, core.FromSint64(model.ToCoordinate(LatOffset, Granularity, n.Lat)))

	return core.AppendVarintField(b, 9, core.FromSint64(model.ToCoordinate(LonOffset, Granularity, n.Lon)))
}

func (bc *blockContext) extractDenseNodes() []byte {
	nodes := bc.blk.Nodes

	ids := make([]int64, len(nodes))
	lats := make([]int64, len(nodes))
	lons := make([]int64, len(nodes))

	var (
		keyValIDs []int32
		tagged    bool
	)

	for i, n := range nodes {
		ids[i] = n.ID
		lats[i] = model.ToCoordinate(LatOffset, Granularity, n.Lat)
		lons[i] = model.ToCoordinate(LonOffset, Granularity, n.Lon)

		kIDs, vIDs := calcTagIDs(n.Tags, bc.table)
		for j, k := range kIDs {
			keyValIDs = append(keyValIDs, int32(k), int32(vIDs[j]))
		}

		keyValIDs = append(keyValIDs, 0)
		tagged = tagged || len(kIDs) > 0
	}

	b := core.AppendPacked(nil, 1, calcDeltas(ids), core.FromSint64)
	b = core.AppendPacked(b, 8, calcDeltas(lats), core.FromSint64)
	b = core.AppendPacked(b, 9, calcDeltas(lons), core.FromSint64)

	if tagged {
		b = core.AppendPacked(b, 10, keyValIDs, core.FromInt32)
	}

	return b
}

func (bc *blockContext) extractWay(w Way) []byte {
	keyIDs, valIDs := calcTagIDs(w.Tags, bc.table)

	b := core.AppendVarintField(nil, 1, uint64(w.ID))
	b = core.AppendPacked(b, 2, keyIDs, core.FromUint32)
	b = core.AppendPacked(b, 3, valIDs, core.FromUint32)

	return core.AppendPacked(b, 8, calcDeltas(w.NodeIDs), core.FromSint64)
}

func (bc *blockContext) extractRelation(r Relation) []byte {
	keyIDs, valIDs := calcTagIDs(r.Tags, bc.table)
	memids := make([]int64, len(r.Members))
	roleids := make([]int32, len(r.Members))
	types := make([]int32, len(r.Members))

	for i, m := range r.Members {
		memids[i] = m.ID
		roleids[i] = bc.table.IndexOf(m.Role)
		types[i] = int32(m.Type)
	}

	b := core.AppendVarintField(nil, 1, uint64(r.ID))
	b = core.AppendPacked(b, 2, keyIDs, core.FromUint32)
	b = core.AppendPacked(b, 3, valIDs, core.FromUint32)
	b = core.AppendPacked(b, 8, roleids, core.FromInt32)
	b = core.AppendPacked(b, 9, calcDeltas(memids), core.FromSint64)

	return core.AppendPacked(b, 10, types, core.FromInt32)
}

func addTags(table *Table, tags map[string]string) {
	for _, k := range sortedKeys(tags) {
		table.Add(k)
		table.Add(tags[k])
	}
}

func calcDeltas[T interface {
	constraints.Integer | constraints.Float
}](values []T) []T {
	prev := T(0)
	deltas := make([]T, len(values))

	for i, id := range values {
		deltas[i] = id - prev
		prev = id
	}

	return deltas
}

func calcTagIDs(tags map[string]string, table *Table) (keyIDs []uint32, valIDs []uint32) {
	for _, k := range sortedKeys(tags) {
		keyIDs = append(keyIDs, uint32(table.IndexOf(k)))
		valIDs = append(valIDs, uint32(table.IndexOf(tags[k])))
	}

	return keyIDs, valIDs
}

func sortedKeys(tags map[string]string) []string {
	return slices.Sorted(maps.Keys(tags))
}
