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

package decoder

import (
	"errors"
	"fmt"

	"golang.org/x/exp/constraints"

	"m4o.io/osmtile/internal/core"
	"m4o.io/osmtile/model"
	"m4o.io/osmtile/tags"
)

var ErrMalformedBlock = errors.New("malformed primitive block")

const (
	blockStringTable     = 1
	blockPrimitiveGroup  = 2
	blockGranularity     = 17
	blockDateGranularity = 18
	blockLatOffset       = 19
	blockLonOffset       = 20

	stringTableS = 1

	groupNodes     = 1
	groupDense     = 2
	groupWays      = 3
	groupRelations = 4

	entityID   = 1
	entityKeys = 2
	entityVals = 3

	nodeLat = 8
	nodeLon = 9

	denseID       = 1
	denseLat      = 8
	denseLon      = 9
	denseKeysVals = 10

	wayRefs = 8

	relationRolesSid = 8
	relationMemids   = 9
	relationTypes    = 10

	defaultGranularity = 100
)

type blockContext struct {
	strings     []string
	dict        *tags.Dictionary
	granularity int32
	latOffset   int64
	lonOffset   int64
}

func parsePrimitiveBlock(buf []byte) (*model.Block, error) {
	c := &blockContext{granularity: defaultGranularity}

	var groups [][]byte

	for f, err := range core.Fields(buf) {
		if err != nil {
			return nil, fmt.Errorf("unable to unmarshal primitive block: %w", err)
		}

		switch f.Num {
		case blockStringTable:
			if err := c.parseStringTable(f.Bytes); err != nil {
				return nil, err
			}
		case blockPrimitiveGroup:
			groups = append(groups, f.Bytes)
		case blockGranularity:
			c.granularity = f.Int32()
		case blockLatOffset:
			c.latOffset = f.Int64()
		case blockLonOffset:
			c.lonOffset = f.Int64()
		}
	}

	c.dict = tags.NewDictionary(c.strings)
	block := &model.Block{Strings: c.dict}

	for _, g := range groups {
		if err := c.parseGroup(block, g); err != nil {
			return nil, err
		}
	}

	return block, nil
}

func (c *blockContext) parseStringTable(b []byte) error {
	for f, err := range core.Fields(b) {
		if err != nil {
			return fmt.Errorf("unable to unmarshal string table: %w", err)
		}

		if f.Num == stringTableS {
			c.strings = append(c.strings, f.String())
		}
	}

	return nil
}

func (c *blockContext) parseGroup(block *model.Block, b []byte) error {
	for f, err := range core.Fields(b) {
		if err != nil {
			return fmt.Errorf("unable to unmarshal primitive group: %w", err)
		}

		switch f.Num {
		case groupNodes:
			n, err := c.decodeNode(f.Bytes)
			if err != nil {
				return err
			}

			block.Nodes = append(block.Nodes, n)
		case groupDense:
			nodes, err := c.decodeDenseNodes(f.Bytes)
			if err != nil {
				return err
			}

			block.Nodes = append(block.Nodes, nodes...)
		case groupWays:
			w, err := c.decodeWay(f.Bytes)
			if err != nil {
				return err
			}

			block.Ways = append(block.Ways, w)
		case groupRelations:
			r, err := c.decodeRelation(f.Bytes)
			if err != nil {
				return err
			}

			block.Relations = append(block.Relations, r)
		}
	}

	return nil
}

func (c *blockContext) decodeNode(b []byte) (model.Node, error) {
	var (
		node     model.Node
		refs     tags.Refs
		lat, lon int64
		err      error
	)

	for f, ferr := range core.Fields(b) {
		if ferr != nil {
			return model.Node{}, fmt.Errorf("unable to unmarshal node: %w", ferr)
		}

		switch f.Num {
		case entityID:
			node.ID = model.NodeID(f.Sint64())
		case entityKeys:
			refs.Keys, err = core.AppendRepeated(refs.Keys, f, core.AsUint32)
		case entityVals:
			refs.Vals, err = core.AppendRepeated(refs.Vals, f, core.AsUint32)
		case nodeLat:
			lat = f.Sint64()
		case nodeLon:
			lon = f.Sint64()
		}

		if err != nil {
			return model.Node{}, err
		}
	}

	if err := c.checkRefs(refs); err != nil {
		return model.Node{}, err
	}

	node.Tags = refs
	node.Coord = c.toLatpLon(lat, lon)

	return node, nil
}

func (c *blockContext) decodeDenseNodes(b []byte) ([]model.Node, error) {
	var (
		ids, lats, lons []int64
		keysVals        []int32
		err             error
	)

	for f, ferr := range core.Fields(b) {
		if ferr != nil {
			return nil, fmt.Errorf("unable to unmarshal dense nodes: %w", ferr)
		}

		switch f.Num {
		case denseID:
			ids, err = core.AppendRepeated(ids, f, core.AsSint64)
		case denseLat:
			lats, err = core.AppendRepeated(lats, f, core.AsSint64)
		case denseLon:
			lons, err = core.AppendRepeated(lons, f, core.AsSint64)
		case denseKeysVals:
			keysVals, err = core.AppendRepeated(keysVals, f, core.AsInt32)
		}

		if err != nil {
			return nil, err
		}
	}

	if len(lats) != len(ids) || len(lons) != len(ids) {
		return nil, fmt.Errorf("%w: %d dense ids but %d lats and %d lons", ErrMalformedBlock, len(ids), len(lats), len(lons))
	}

	ids = accumulate(ids)
	lats = accumulate(lats)
	lons = accumulate(lons)

	nodes := make([]model.Node, len(ids))
	kv := 0

	for i := range ids {
		r := tags.DenseRange{KeysVals: keysVals, Start: kv, End: kv}

		if len(keysVals) > 0 {
			for r.End < len(keysVals) && keysVals[r.End] != 0 {
				r.End += 2
			}

			if r.End > len(keysVals) {
				return nil, fmt.Errorf("%w: dangling dense key", ErrMalformedBlock)
			}

			kv = r.End + 1
		}

		nodes[i] = model.Node{
			ID:    model.NodeID(ids[i]),
			Coord: c.toLatpLon(lats[i], lons[i]),
			Tags:  r,
		}
	}

	return nodes, nil
}

func (c *blockContext) decodeWay(b []byte) (model.Way, error) {
	var (
		way  model.Way
		refs tags.Refs
		ids  []int64
		err  error
	)

	for f, ferr := range core.Fields(b) {
		if ferr != nil {
			return model.Way{}, fmt.Errorf("unable to unmarshal way: %w", ferr)
		}

		switch f.Num {
		case entityID:
			way.ID = model.WayID(f.Int64())
		case entityKeys:
			refs.Keys, err = core.AppendRepeated(refs.Keys, f, core.AsUint32)
		case entityVals:
			refs.Vals, err = core.AppendRepeated(refs.Vals, f, core.AsUint32)
		case wayRefs:
			ids, err = core.AppendRepeated(ids, f, core.AsSint64)
		}

		if err != nil {
			return model.Way{}, err
		}
	}

	if err := c.checkRefs(refs); err != nil {
		return model.Way{}, err
	}

	ids = accumulate(ids)
	way.NodeIDs = make([]model.NodeID, len(ids))

	for i, id := range ids {
		way.NodeIDs[i] = model.NodeID(id)
	}

	way.Tags = refs

	return way, nil
}

func (c *blockContext) decodeRelation(b []byte) (model.Relation, error) {
	var (
		rel    model.Relation
		refs   tags.Refs
		roles  []int32
		memids []int64
		types  []int32
		err    error
	)

	for f, ferr := range core.Fields(b) {
		if ferr != nil {
			return model.Relation{}, fmt.Errorf("unable to unmarshal relation: %w", ferr)
		}

		switch f.Num {
		case entityID:
			rel.ID = model.RelationID(f.Int64())
		case entityKeys:
			refs.Keys, err = core.AppendRepeated(refs.Keys, f, core.AsUint32)
		case entityVals:
			refs.Vals, err = core.AppendRepeated(refs.Vals, f, core.AsUint32)
		case relationRolesSid:
			roles, err = core.AppendRepeated(roles, f, core.AsInt32)
		case relationMemids:
			memids, err = core.AppendRepeated(memids, f, core.AsSint64)
		case relationTypes:
			types, err = core.AppendRepeated(types, f, core.AsInt32)
		}

		if err != nil {
			return model.Relation{}, err
		}
	}

	if err := c.checkRefs(refs); err != nil {
		return model.Relation{}, err
	}

	if len(roles) != len(memids) || len(types) != len(memids) {
		return model.Relation{}, fmt.Errorf("%w: relation %d has mismatched member lists", ErrMalformedBlock, rel.ID)
	}

	memids = accumulate(memids)
	rel.Members = make([]model.Member, len(memids))

	for i, id := range memids {
		t, err := decodeMemberType(types[i])
		if err != nil {
			return model.Relation{}, err
		}

		rel.Members[i] = model.Member{
			ID:   uint64(id),
			Type: t,
			Role: c.dict.At(uint32(roles[i])),
		}
	}

	rel.Tags = refs

	return rel, nil
}

func (c *blockContext) checkRefs(refs tags.Refs) error {
	if len(refs.Keys) != len(refs.Vals) {
		return fmt.Errorf("%w: %d keys but %d values", ErrMalformedBlock, len(refs.Keys), len(refs.Vals))
	}

	return nil
}

func (c *blockContext) toLatpLon(lat, lon int64) model.LatpLon {
	return model.NewLatpLon(
		model.ToDegrees(c.latOffset, c.granularity, lat),
		model.ToDegrees(c.lonOffset, c.granularity, lon))
}

// decodeMemberType converts the wire member type to an EntityType.
func decodeMemberType(mt int32) (model.EntityType, error) {
	switch mt {
	case 0:
		return model.NODE, nil
	case 1:
		return model.WAY, nil
	case 2:
		return model.RELATION, nil
	default:
		return 0, fmt.Errorf("%w: unrecognized member type %d", ErrMalformedBlock, mt)
	}
}

// accumulate turns a delta coded sequence into absolute values, in place.
func accumulate[T constraints.Integer](deltas []T) []T {
	var prev T

	for i, d := range deltas {
		prev += d
		deltas[i] = prev
	}

	return deltas
}
