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

// Package tags resolves entity tags against the string table of the PBF
// block the entity was read from.
package tags

// Dictionary is the string table of one PBF primitive block together with
// the reverse string to position map. It is built once per block and never
// modified afterwards, so a Dictionary may be read from any goroutine but is
// normally owned by the worker processing its block.
type Dictionary struct {
	strings   []string
	positions map[string]uint32
}

// NewDictionary indexes a string table. When a string appears more than
// once, its first position is used.
func NewDictionary(strings []string) *Dictionary {
	positions := make(map[string]uint32, len(strings))

	for i, s := range strings {
		if _, ok := positions[s]; !ok {
			positions[s] = uint32(i)
		}
	}

	return &Dictionary{
		strings:   strings,
		positions: positions,
	}
}

// Position finds a string in the dictionary.
func (d *Dictionary) Position(s string) (uint32, bool) {
	if d == nil {
		return 0, false
	}

	pos, ok := d.positions[s]

	return pos, ok
}

// At returns the string at pos, or "" when pos is outside the table.
func (d *Dictionary) At(pos uint32) string {
	if d == nil || int(pos) >= len(d.strings) {
		return ""
	}

	return d.strings[pos]
}

// Len is the number of entries in the string table.
func (d *Dictionary) Len() int {
	if d == nil {
		return 0
	}

	return len(d.strings)
}
