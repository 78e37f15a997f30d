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
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"

	"m4o.io/osmtile/internal/core"
)

// ErrUnexpectedBlobType is returned when the header blob is not where it is
// expected.
var ErrUnexpectedBlobType = errors.New("unexpected blob type")

// GenerateBlobReader creates an iterator that returns the data blobs read
// off of the reader.  Blobs of types other than OSMData are skipped.
func GenerateBlobReader(ctx context.Context, reader io.Reader) iter.Seq2[*core.Blob, error] {
	return func(yield func(enc *core.Blob, err error) bool) {
		for {
			select {
			case <-ctx.Done():
				yield(nil, ctx.Err())

				return
			default:
			}

			blob, err := readBlob(reader)
			if err != nil {
				if !errors.Is(err, io.EOF) {
					slog.Error("unable to read blob", "error", err)
					yield(nil, err)
				}

				return
			}

			if blob.Type != core.OSMData {
				slog.Debug("skipping blob", "type", blob.Type)

				continue
			}

			if !yield(blob, nil) {
				return
			}
		}
	}
}

// readBlob reads a PBF blob from the rdr.  A clean end of input is reported
// as an unwrapped io.EOF.
func readBlob(rdr io.Reader) (*core.Blob, error) {
	h, err := readBlobHeader(rdr)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}

		return nil, fmt.Errorf("error reading blob header: %w", err)
	}

	b, err := readBlobData(rdr, int64(h.DataSize))
	if err != nil {
		return nil, fmt.Errorf("error reading blob: %w", err)
	}

	b.Type = h.Type

	return b, nil
}

// readBlobHeader unmarshals a header from an array of protobuf encoded bytes.
// The header is used when decoding blobs into OSM entities.
func readBlobHeader(rdr io.Reader) (*core.BlobHeader, error) {
	buf := core.NewPooledBuffer()
	defer buf.Close()

	var size uint32

	if err := binary.Read(rdr, binary.BigEndian, &size); err != nil {
		return nil, err
	}

	if n, err := io.CopyN(buf, rdr, int64(size)); err != nil {
		return nil, fmt.Errorf("error reading blob header: %w", io.ErrUnexpectedEOF)
	} else if n != int64(size) {
		return nil, fmt.Errorf("error reading blob header: expected %d bytes, got %d", size, n)
	}

	header, err := core.UnmarshalBlobHeader(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("error unmarshalling blob header: %w", err)
	}

	return header, nil
}

// readBlobData unmarshals a blob from an array of protobuf encoded bytes.  The
// blob still needs to be decoded into OSM entities.
func readBlobData(rdr io.Reader, size int64) (*core.Blob, error) {
	buf := core.NewPooledBuffer()
	defer buf.Close()

	if _, err := io.CopyN(buf, rdr, size); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}

		return nil, fmt.Errorf("error reading blob: %w", err)
	}

	blob, err := core.UnmarshalBlob(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("error unmarshalling blob: %w", err)
	}

	return blob, nil
}
