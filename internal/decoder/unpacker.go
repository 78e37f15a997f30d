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
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4"
	"github.com/ulikunitz/xz/lzma"

	"m4o.io/osmtile/internal/core"
)

var ErrUnknownCompressionType = errors.New("unknown blob compression type")

// unpack uncompresses the blob into buf.
//
// This method is not "buried" within the readBlob function so that decompression
// of blobs can be performed concurrently.
func unpack(buf *core.PooledBuffer, blob *core.Blob) ([]byte, error) {
	var factory func(data []byte) (io.Reader, error)

	switch blob.Compression {
	case core.RAW:
		return blob.Data, nil
	case core.ZLIB:
		factory = func(data []byte) (io.Reader, error) {
			return zlib.NewReader(bytes.NewReader(data))
		}
	case core.LZMA:
		factory = func(data []byte) (io.Reader, error) {
			return lzma.NewReader(bytes.NewReader(data))
		}
	case core.LZ4:
		factory = func(data []byte) (io.Reader, error) {
			return lz4.NewReader(bytes.NewReader(data)), nil
		}
	case core.ZSTD:
		factory = func(data []byte) (io.Reader, error) {
			return zstd.NewReader(bytes.NewReader(data))
		}
	default:
		return nil, ErrUnknownCompressionType
	}

	rawBufferSize := int(blob.RawSize + bytes.MinRead)
	if rawBufferSize > buf.Cap() {
		buf.Grow(rawBufferSize)
	}

	rdr, err := factory(blob.Data)
	if err != nil {
		return nil, fmt.Errorf("unpacker factory error: %w", err)
	}

	switch r := rdr.(type) {
	case io.Closer:
		defer r.Close()
	case *zstd.Decoder:
		defer r.Close()
	}

	if n, err := buf.ReadFrom(rdr); err != nil {
		return nil, fmt.Errorf("unpacker read error: %w", err)
	} else if n != int64(blob.RawSize) {
		return nil, fmt.Errorf("raw blob data size %d but expected %d", n, blob.RawSize)
	}

	return buf.Bytes(), nil
}
