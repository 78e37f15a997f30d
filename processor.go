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

package osmtile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/destel/rill"

	"m4o.io/osmtile/layers"
	"m4o.io/osmtile/model"
	"m4o.io/osmtile/process"
	"m4o.io/osmtile/store"
	"m4o.io/osmtile/tags"
)

// Rules decides what a bound entity is written as.  The methods are called
// concurrently, each with its own context.
type Rules interface {
	ProcessNode(c *process.Context) error
	ProcessWay(c *process.Context) error
	ProcessRelation(c *process.Context) error
}

// Sink receives the output features of every entity.  Write is called
// concurrently and must not retain the slice past the call unless it owns
// it; the processor hands over each slice and never touches it again.
type Sink interface {
	Write(features []process.OutputFeature) error
}

// Stats summarizes a run.
type Stats struct {
	Header    model.Header
	Nodes     int64
	Ways      int64
	Relations int64
	Features  int64
	Skipped   int64
}

// Processor reads an extract twice: the first pass collects coordinates,
// the second binds every tagged entity and runs the rules on it.
type Processor struct {
	registry *layers.Registry
	index    process.SpatialIndex
	rules    Rules
	sink     Sink
	opts     processorOptions
}

// NewProcessor creates a processor.  index may be nil.
func NewProcessor(registry *layers.Registry, index process.SpatialIndex, rules Rules, sink Sink,
	opts ...ProcessorOption,
) *Processor {
	cfg := defaultProcessorConfig()

	for _, opt := range opts {
		opt(&cfg)
	}

	return &Processor{
		registry: registry,
		index:    index,
		rules:    rules,
		sink:     sink,
		opts:     cfg,
	}
}

type counters struct {
	nodes, ways, relations, features, skipped atomic.Int64
}

// Run processes the extract returned by open, which is called once per
// pass.
func (p *Processor) Run(ctx context.Context, open func() (io.ReadCloser, error)) (Stats, error) {
	coords := store.NewMemory()

	hdr, err := p.pass(ctx, open, func(b *model.Block) error {
		for _, n := range b.Nodes {
			coords.InsertNode(n.ID, n.Coord)
		}

		for _, w := range b.Ways {
			coords.InsertWay(w.ID, w.NodeIDs)
		}

		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("collecting coordinates: %w", err)
	}

	slog.Debug("collected coordinates", "nodes", coords.NodeCount(), "ways", coords.WayCount())

	ids := process.NewRelationIDs()
	pool := sync.Pool{
		New: func() any {
			return process.NewContext(coords, p.index, p.registry, process.WithRelationIDs(ids))
		},
	}

	var cnt counters

	_, err = p.pass(ctx, open, func(b *model.Block) error {
		c := pool.Get().(*process.Context)
		defer pool.Put(c)

		return p.processBlock(c, b, &cnt)
	})

	stats := Stats{
		Header:    hdr,
		Nodes:     cnt.nodes.Load(),
		Ways:      cnt.ways.Load(),
		Relations: cnt.relations.Load(),
		Features:  cnt.features.Load(),
		Skipped:   cnt.skipped.Load(),
	}

	if err != nil {
		return stats, fmt.Errorf("processing entities: %w", err)
	}

	return stats, nil
}

// pass decodes the extract and calls fn for every block on the worker
// goroutines.
func (p *Processor) pass(ctx context.Context, open func() (io.ReadCloser, error),
	fn func(b *model.Block) error,
) (model.Header, error) {
	rc, err := open()
	if err != nil {
		return model.Header{}, err
	}
	defer rc.Close()

	dec, err := NewDecoder(ctx, rc, p.opts.decoderOptions...)
	if err != nil {
		return model.Header{}, err
	}
	defer dec.Close()

	blocks := rill.FromSeq2(dec.Blocks())

	return dec.Header, rill.ForEach(blocks, p.opts.workers, fn)
}

func (p *Processor) processBlock(c *process.Context, b *model.Block, cnt *counters) error {
	c.SetDictionary(b.Strings)

	for i := range b.Nodes {
		n := &b.Nodes[i]
		if !tagged(n.Tags) {
			continue
		}

		c.BindNode(n.ID, n.Tags, n.Coord)
		cnt.nodes.Add(1)

		if err := p.emit(c, p.rules.ProcessNode(c), cnt); err != nil {
			return err
		}
	}

	for i := range b.Ways {
		w := &b.Ways[i]
		if !tagged(w.Tags) {
			continue
		}

		if err := c.BindWay(w.ID, w.NodeIDs, w.Tags); err != nil {
			if serr := skip(err, cnt); serr != nil {
				return serr
			}

			continue
		}

		cnt.ways.Add(1)

		if err := p.emit(c, p.rules.ProcessWay(c), cnt); err != nil {
			return err
		}
	}

	for i := range b.Relations {
		r := &b.Relations[i]

		outer, inner, ok := areaMembers(b, r)
		if !ok {
			continue
		}

		c.BindRelation(outer, inner, r.Tags)
		cnt.relations.Add(1)

		if err := p.emit(c, p.rules.ProcessRelation(c), cnt); err != nil {
			return err
		}
	}

	return nil
}

// emit hands the outputs of the bound entity to the sink, unless the rules
// failed for it.
func (p *Processor) emit(c *process.Context, ruleErr error, cnt *counters) error {
	if ruleErr != nil {
		return skip(ruleErr, cnt)
	}

	if c.Empty() {
		return nil
	}

	features := c.Drain()
	cnt.features.Add(int64(len(features)))

	return p.sink.Write(features)
}

// skip reports whether err only affects the current entity.  Such errors
// are logged and swallowed.
func skip(err error, cnt *counters) error {
	var missing *process.MissingNodeError

	switch {
	case errors.As(err, &missing):
		slog.Debug("skipping way", "way", missing.Way, "node", missing.Node)
	case errors.Is(err, process.ErrUnknownLayer):
		slog.Warn("skipping entity", "error", err)
	case errors.Is(err, process.ErrEmptyWay):
		slog.Debug("skipping way without nodes")
	default:
		return err
	}

	cnt.skipped.Add(1)

	return nil
}

func tagged(t tags.Source) bool {
	return t != nil && t.Len() > 0
}

// areaMembers splits the way members of a multipolygon or boundary
// relation into outer and inner ways.  Members without a role are outer.
func areaMembers(b *model.Block, r *model.Relation) (outer, inner []model.WayID, ok bool) {
	if r.Tags == nil {
		return nil, nil, false
	}

	switch t, _ := r.Tags.Find(b.Strings, "type"); t {
	case "multipolygon", "boundary":
	default:
		return nil, nil, false
	}

	for _, m := range r.Members {
		if m.Type != model.WAY {
			continue
		}

		switch m.Role {
		case "outer", "":
			outer = append(outer, model.WayID(m.ID))
		case "inner":
			inner = append(inner, model.WayID(m.ID))
		}
	}

	return outer, inner, true
}
