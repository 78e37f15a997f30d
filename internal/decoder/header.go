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
	"fmt"
	"io"
	"time"

	"m4o.io/osmtile/internal/core"
	"m4o.io/osmtile/model"
)

const (
	headerBBox                             = 1
	headerRequiredFeatures                 = 4
	headerOptionalFeatures                 = 5
	headerWritingProgram                   = 16
	headerSource                           = 17
	headerOsmosisReplicationTimestamp      = 32
	headerOsmosisReplicationSequenceNumber = 33
	headerOsmosisReplicationBaseURL        = 34

	bboxLeft   = 1
	bboxRight  = 2
	bboxTop    = 3
	bboxBottom = 4
)

// LoadHeader reads the leading OSMHeader blob of a PBF stream.
func LoadHeader(reader io.Reader) (model.Header, error) {
	blob, err := readBlob(reader)
	if err != nil {
		return model.Header{}, err
	}

	if blob.Type != core.OSMHeader {
		return model.Header{}, fmt.Errorf("%w: expected %s but got %s", ErrUnexpectedBlobType, core.OSMHeader, blob.Type)
	}

	buf := core.NewPooledBuffer()
	defer buf.Close()

	unpacked, err := unpack(buf, blob)
	if err != nil {
		return model.Header{}, err
	}

	return parseHeaderBlock(unpacked)
}

func parseHeaderBlock(b []byte) (model.Header, error) {
	var hdr model.Header

	for f, err := range core.Fields(b) {
		if err != nil {
			return model.Header{}, fmt.Errorf("unable to unmarshal header block: %w", err)
		}

		switch f.Num {
		case headerBBox:
			bbox, err := parseHeaderBBox(f.Bytes)
			if err != nil {
				return model.Header{}, err
			}

			hdr.BoundingBox = bbox
		case headerRequiredFeatures:
			hdr.RequiredFeatures = append(hdr.RequiredFeatures, f.String())
		case headerOptionalFeatures:
			hdr.OptionalFeatures = append(hdr.OptionalFeatures, f.String())
		case headerWritingProgram:
			hdr.WritingProgram = f.String()
		case headerSource:
			hdr.Source = f.String()
		case headerOsmosisReplicationTimestamp:
			hdr.OsmosisReplicationTimestamp = time.Unix(f.Int64(), 0).UTC()
		case headerOsmosisReplicationSequenceNumber:
			hdr.OsmosisReplicationSequenceNumber = f.Int64()
		case headerOsmosisReplicationBaseURL:
			hdr.OsmosisReplicationBaseURL = f.String()
		}
	}

	return hdr, nil
}

// parseHeaderBBox decodes a bounding box stored in nanodegrees.
func parseHeaderBBox(b []byte) (*model.BoundingBox, error) {
	bbox := &model.BoundingBox{}

	for f, err := range core.Fields(b) {
		if err != nil {
			return nil, fmt.Errorf("unable to unmarshal header bbox: %w", err)
		}

		d := model.ToDegrees(0, 1, f.Sint64())

		switch f.Num {
		case bboxLeft:
			bbox.Left = d
		case bboxRight:
			bbox.Right = d
		case bboxTop:
			bbox.Top = d
		case bboxBottom:
			bbox.Bottom = d
		}
	}

	return bbox, nil
}
