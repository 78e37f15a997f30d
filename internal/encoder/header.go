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
	"m4o.io/osmtile/model"
)

// SaveHeader writes the OSMHeader blob that must lead every PBF stream.
func SaveHeader(w io.Writer, hdr model.Header, compression core.Compression) error {
	var b []byte

	if bbox := hdr.BoundingBox; bbox != nil {
		var bb []byte
		bb = core.AppendVarintField(bb, 1, core.FromSint64(model.ToCoordinate(0, 1, bbox.Left)))
		bb = core.AppendVarintField(bb, 2, core.FromSint64(model.ToCoordinate(0, 1, bbox.Right)))
		bb = core.AppendVarintField(bb, 3, core.FromSint64(model.ToCoordinate(0, 1, bbox.Top)))
		bb = core.AppendVarintField(bb, 4, core.FromSint64(model.ToCoordinate(0, 1, bbox.Bottom)))
		b = core.AppendBytesField(b, 1, bb)
	}

	for _, f := range hdr.RequiredFeatures {
		b = core.AppendBytesField(b, 4, []byte(f))
	}

	for _, f := range hdr.OptionalFeatures {
		b = core.AppendBytesField(b, 5, []byte(f))
	}

	if hdr.WritingProgram != "" {
		b = core.AppendBytesField(b, 16, []byte(hdr.WritingProgram))
	}

	if hdr.Source != "" {
		b = core.AppendBytesField(b, 17, []byte(hdr.Source))
	}

	if !hdr.OsmosisReplicationTimestamp.IsZero() {
		b = core.AppendVarintField(b, 32, uint64(hdr.OsmosisReplicationTimestamp.Unix()))
	}

	if hdr.OsmosisReplicationSequenceNumber != 0 {
		b = core.AppendVarintField(b, 33, uint64(hdr.OsmosisReplicationSequenceNumber))
	}

	if hdr.OsmosisReplicationBaseURL != "" {
		b = core.AppendBytesField(b, 34, []byte(hdr.OsmosisReplicationBaseURL))
	}

	bb, err := Pack(b, compression)
	if err != nil {
		return fmt.Errorf("could not marshal header: %w", err)
	}

	if err := writeBlob(w, core.OSMHeader, bb); err != nil {
		return fmt.Errorf("could not write header: %w", err)
	}

	return nil
}
