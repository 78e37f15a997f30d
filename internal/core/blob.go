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

package core

import (
	"bytes"
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

const (
	// OSMHeader is the blob type of the leading header block.
	OSMHeader = "OSMHeader"

	// OSMData is the blob type of primitive blocks.
	OSMData = "OSMData"
)

// ErrEmptyBlob is returned for a blob without any payload field.
var ErrEmptyBlob = errors.New("blob has no data")

// Compression is the encoding of a blob's payload.
type Compression int

const (
	UNKNOWN Compression = iota
	RAW
	ZLIB
	LZMA
	LZ4
	ZSTD
)

func (c Compression) String() string {
	switch c {
	case RAW:
		return "raw"
	case ZLIB:
		return "zlib"
	case LZMA:
		return "lzma"
	case LZ4:
		return "lz4"
	case ZSTD:
		return "zstd"
	default:
		return "unknown"
	}
}

// blob payload field numbers, indexed by compression
var blobDataFields = map[protowire.Number]Compression{
	1: RAW,
	3: ZLIB,
	4: LZMA,
	6: LZ4,
	7: ZSTD,
}

const (
	blobHeaderType     protowire.Number = 1
	blobHeaderDataSize protowire.Number = 3
	blobRawSize        protowire.Number = 2
	blobObsoleteBzip2  protowire.Number = 5
)

// BlobHeader precedes every blob in a PBF file.
type BlobHeader struct {
	Type     string
	DataSize int32
}

// UnmarshalBlobHeader decodes a BlobHeader message.
func UnmarshalBlobHeader(b []byte) (*BlobHeader, error) {
	h := &BlobHeader{}

	for f, err := range Fields(b) {
		if err != nil {
			return nil, err
		}

		switch f.Num {
		case blobHeaderType:
			h.Type = f.String()
		case blobHeaderDataSize:
			h.DataSize = f.Int32()
		}
	}

	return h, nil
}

// Marshal encodes the header.
func (h *BlobHeader) Marshal() []byte {
	b := AppendBytesField(nil, blobHeaderType, []byte(h.Type))

	return AppendVarintField(b, blobHeaderDataSize, uint64(h.DataSize))
}

// Blob is a possibly compressed block of PBF data.
type Blob struct {
	Type        string
	RawSize     int32
	Compression Compression
	Data        []byte
}

// UnmarshalBlob decodes a Blob message.  The payload is copied so b may be
// reused afterwards.
func UnmarshalBlob(b []byte) (*Blob, error) {
	blob := &Blob{}

	for f, err := range Fields(b) {
		if err != nil {
			return nil, err
		}

		switch {
		case f.Num == blobRawSize:
			blob.RawSize = f.Int32()
		case f.Num == blobObsoleteBzip2:
			blob.Compression = UNKNOWN
			blob.Data = bytes.Clone(f.Bytes)
		default:
			if c, ok := blobDataFields[f.Num]; ok {
				blob.Compression = c
				blob.Data = bytes.Clone(f.Bytes)
			}
		}
	}

	if blob.Data == nil && blob.Compression == UNKNOWN {
		return nil, ErrEmptyBlob
	}

	return blob, nil
}

// Marshal encodes the blob.  Type is not part of the message.
func (blob *Blob) Marshal() []byte {
	var num protowire.Number

	for n, c := range blobDataFields {
		if c == blob.Compression {
			num = n
		}
	}

	if num == 0 {
		panic(fmt.Errorf("unknown compression type: %v", blob.Compression))
	}

	var b []byte
	if blob.Compression != RAW {
		b = AppendVarintField(b, blobRawSize, uint64(blob.RawSize))
	}

	return AppendBytesField(b, num, blob.Data)
}
