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

package packers

import (
	"bytes"

	"m4o.io/osmtile/internal/core"
)

type RawPacker struct {
	*base
}

func NewRawPacker() *RawPacker {
	buf := &bytes.Buffer{}

	return &RawPacker{base: newBasePacker(nopCloserWriter{buf}, buf)}
}

func (p *RawPacker) SaveTo(blob *core.Blob) {
	blob.Compression = core.RAW
	blob.Data = p.buf.Bytes()
}
