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
	"io"

	"github.com/destel/rill"

	"m4o.io/osmtile/internal/core"
	"m4o.io/osmtile/model"
)

// Encode writes a complete PBF stream: the header followed by one data blob
// per block.
func Encode(w io.Writer, hdr model.Header, blocks []Block, c core.Compression) error {
	if err := SaveHeader(w, hdr, c); err != nil {
		return err
	}

	return SaveBlocks(w, blocks, c)
}

// SaveBlocks encodes, packs and writes the blocks, preserving their order.
func SaveBlocks(w io.Writer, blocks []Block, c core.Compression) error {
	in := rill.FromSlice(blocks, nil)

	encoded := rill.OrderedMap(in, 1, EncodeBlock)
	packed := rill.OrderedMap(encoded, 1, GenerateBatchPacker(c))

	return rill.ForEach(packed, 1, func(bb []byte) error {
		return writeBlob(w, core.OSMData, bb)
	})
}

func GenerateBatchPacker(c core.Compression) func(block []byte) ([]byte, error) {
	return func(block []byte) ([]byte, error) {
		return Pack(block, c)
	}
}
