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

// Table assigns string table positions in order of first use.  Position 0
// is reserved for the empty string since dense nodes use 0 as the end of
// tags marker.
type Table struct {
	index   map[string]int32
	strings []string
}

func NewTable() *Table {
	return &Table{
		index:   map[string]int32{"": 0},
		strings: []string{""},
	}
}

// Add interns s and returns its position.
func (t *Table) Add(s string) int32 {
	if i, ok := t.index[s]; ok {
		return i
	}

	i := int32(len(t.strings))
	t.index[s] = i
	t.strings = append(t.strings, s)

	return i
}

// IndexOf returns the position of a string previously added.
func (t *Table) IndexOf(s string) int32 {
	i, ok := t.index[s]
	if !ok {
		panic("Index does not exist")
	}

	return i
}

func (t *Table) AsArray() []string {
	return t.strings
}
