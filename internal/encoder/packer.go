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
	"fmt"
	"io"

	"m4o.io/osmtile/internal/core"
	"m4o.io/osmtile/internal/encoder/packers"
)

type Packer interface {
	// WriteCloser is used to write the contents of the blob to be packed.
	// Be sure to call the Close method to ensure that all the contents are
	// packed.
	io.WriteCloser

	// SaveTo will save the packed contents to the blob using the correct
	// compression.
	SaveTo(blob *core.Blob)
}

// Pack compresses a marshalled message and wraps it in a blob.
func Pack(msg []byte, c core.Compression) ([]byte, error) {
	p, err := newPacker(c)
	if err != nil {
		return nil, err
	}

	if _, err = p.Write(msg); err != nil {
		return nil, fmt.Errorf("could not compress message: %w", err)
	}

	if err = p.Close(); err != nil {
		return nil, fmt.Errorf("could not close writer: %w", err)
	}

	blob := &core.Blob{
		RawSize: int32(len(msg)),
	}

	p.SaveTo(blob)

	return blob.Marshal(), nil
}

func newPacker(c core.Compression) (Packer, error) {
	switch c {
	case core.RAW:
		return packers.NewRawPacker(), nil
	case core.ZLIB:
		return packers.NewZlibPacker(), nil
	case core.LZMA:
		return packers.NewLzmaPacker()
	case core.LZ4:
		return packers.NewLz4Packer(), nil
	case core.ZSTD:
		return packers.NewZstdPacker()
	default:
		return nil, fmt.Errorf("unknown compression type: %v", c)
	}
}
