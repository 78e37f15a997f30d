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

package tags

// Source is the tag list of a single entity, expressed as positions in a
// Dictionary.
type Source interface {
	// Find returns the value for key, if the entity has it.
	Find(d *Dictionary, key string) (string, bool)

	// Len is the number of tags.
	Len() int

	// Each calls fn for every tag until fn returns false.
	Each(d *Dictionary, fn func(key, value string) bool)
}

// Refs are the parallel key and value position lists used by plain nodes,
// ways and relations.
type Refs struct {
	Keys []uint32
	Vals []uint32
}

var _ Source = Refs{}

func (r Refs) Find(d *Dictionary, key string) (string, bool) {
	pos, ok := d.Position(key)
	if !ok {
		return "", false
	}

	for i, k := range r.Keys {
		if k == pos && i < len(r.Vals) {
			return d.At(r.Vals[i]), true
		}
	}

	return "", false
}

func (r Refs) Len() int {
	return min(len(r.Keys), len(r.Vals))
}

func (r Refs) Each(d *Dictionary, fn func(key, value string) bool) {
	for i := 0; i < r.Len(); i++ {
		if !fn(d.At(r.Keys[i]), d.At(r.Vals[i])) {
			return
		}
	}
}

// DenseRange is the [Start, End) section of a dense node block's shared,
// interleaved key/value table that belongs to one node. End is exclusive
// and excludes the zero delimiter.
type DenseRange struct {
	KeysVals []int32
	Start    int
	End      int
}

var _ Source = DenseRange{}

func (r DenseRange) Find(d *Dictionary, key string) (string, bool) {
	pos, ok := d.Position(key)
	if !ok {
		return "", false
	}

	for i := r.Start; i+1 < r.End; i += 2 {
		if uint32(r.KeysVals[i]) == pos {
			return d.At(uint32(r.KeysVals[i+1])), true
		}
	}

	return "", false
}

func (r DenseRange) Len() int {
	return max(r.End-r.Start, 0) / 2
}

func (r DenseRange) Each(d *Dictionary, fn func(key, value string) bool) {
	for i := r.Start; i+1 < r.End; i += 2 {
		if !fn(d.At(uint32(r.KeysVals[i])), d.At(uint32(r.KeysVals[i+1]))) {
			return
		}
	}
}

// Map resolves every tag of s. Meant for diagnostics and tests; the hot
// path uses Find.
func Map(d *Dictionary, s Source) map[string]string {
	if s == nil {
		return map[string]string{}
	}

	m := make(map[string]string, s.Len())

	s.Each(d, func(k, v string) bool {
		m[k] = v

		return true
	})

	return m
}
