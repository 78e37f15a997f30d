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

	"github.com/klauspost/compress/zstd"

	"m4o.io/osmtile/internal/core"
)

type ZstdPacker struct {
	*base
}

func NewZstdPacker() (*ZstdPacker, error) {
	buf := &bytes.Buffer{}

	w, err := zstd.NewWriter(buf)
	if err != nil {
		return nil, err
	}

	return &ZstdPacker{base: newBasePacker(w, buf)}, nil
}

func (p *ZstdPacker) SaveTo(blob *core.Blob) {
	blob.Compression = core.ZSTD
	blob.Data = p.buf.Bytes()
}
