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

// Package osmtile turns OpenStreetMap PBF extracts into vector tile
// features.
package osmtile

import (
	"context"
	"errors"
	"io"
	"iter"
	"sync"

	"github.com/destel/rill"

	"m4o.io/osmtile/internal/decoder"
	"m4o.io/osmtile/model"
)

// Decoder reads and decodes OpenStreetMap PBF data from an input stream.
// Blocks are decoded concurrently but handed out in file order.
type Decoder struct {
	Header model.Header

	blocks <-chan rill.Try[*model.Block]
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// NewDecoder returns a new decoder, configured with opts, that reads from
// rdr.  The decoder is initialized with the OSM header.
func NewDecoder(ctx context.Context, rdr io.Reader, opts ...DecoderOption) (*Decoder, error) {
	cfg := defaultDecoderConfig

	for _, opt := range opts {
		opt(&cfg)
	}

	hdr, err := decoder.LoadHeader(rdr)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)

	blobs := rill.FromSeq2(decoder.GenerateBlobReader(ctx, rdr))
	batches := rill.Batch(blobs, cfg.protoBatchSize, -1)
	blocks := rill.OrderedFlatMap(batches, int(cfg.nCPU), decoder.DecodeBatch)

	return &Decoder{
		Header: hdr,
		blocks: blocks,
		cancel: cancel,
	}, nil
}

// Decode returns the next block of entities.  When the stream is exhausted
// or the decoder has been closed, io.EOF is returned.
func (d *Decoder) Decode() (*model.Block, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, io.EOF
	}

	t, ok := <-d.blocks
	if !ok {
		return nil, io.EOF
	}

	if t.Error != nil {
		d.shutdown()

		return nil, t.Error
	}

	return t.Value, nil
}

// Blocks iterates over the remaining blocks.  Iteration stops at the end
// of the stream or after the first error, which is yielded.
func (d *Decoder) Blocks() iter.Seq2[*model.Block, error] {
	return func(yield func(*model.Block, error) bool) {
		for {
			b, err := d.Decode()
			if errors.Is(err, io.EOF) {
				return
			}

			if !yield(b, err) || err != nil {
				return
			}
		}
	}
}

// Close will cancel the background decoding pipeline.  It is safe to call
// Close more than once.
func (d *Decoder) Close() {
	d.cancel()

	d.mu.Lock()
	defer d.mu.Unlock()

	d.shutdown()
}

func (d *Decoder) shutdown() {
	if d.closed {
		return
	}

	d.closed = true
	d.cancel()

	rill.DrainNB(d.blocks)
}
