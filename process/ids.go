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
	"sync/atomic"

	"m4o.io/osmtile/model"
)

// RelationIDs hands out the synthetic way identifiers given to relations.
// They count down from model.MaxWayID so they never collide with real way
// identifiers.  A single allocator is shared by every context of a run.
type RelationIDs struct {
	next atomic.Uint64
}

func NewRelationIDs() *RelationIDs {
	r := &RelationIDs{}
	r.next.Store(uint64(model.MaxWayID))

	return r
}

// Next returns the next unused identifier.
func (r *RelationIDs) Next() model.WayID {
	return model.WayID(r.next.Add(^uint64(0)))
}
