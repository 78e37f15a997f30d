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

// Package tiles assigns output features to map tiles and encodes them as
// gzipped Mapbox vector tiles.
package tiles

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/destel/rill"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/orb/project"
	"github.com/paulmach/orb/simplify"

	"m4o.io/osmtile/layers"
	"m4o.io/osmtile/model"
	"m4o.io/osmtile/process"
)

// Extension is the file extension of written tiles.
const Extension = ".pbf"

// feature is an output feature prepared for one zoom level: simplified
// and in lon/lat.
type feature struct {
	group      int
	id         uint64
	geometry   orb.Geometry
	properties geojson.Properties
}

// Option configures a Writer.
type Option func(*Writer)

// WithZoomRange limits the zoom levels tiles are written for.  Layer zoom
// ranges are clamped to it.
func WithZoomRange(minZoom, maxZoom uint) Option {
	return func(w *Writer) {
		w.minZoom = minZoom
		w.maxZoom = maxZoom
	}
}

// WithWorkers sets the number of goroutines encoding tiles in WriteDir.
func WithWorkers(n int) Option {
	return func(w *Writer) {
		w.workers = max(n, 1)
	}
}

// Writer collects output features by tile.  Write may be called from
// several goroutines.
type Writer struct {
	registry *layers.Registry
	groupOf  []int
	groups   []string

	minZoom uint
	maxZoom uint
	workers int

	mu    sync.RWMutex
	tiles map[maptile.Tile][]*feature
}

// NewWriter creates a writer for the layers of registry, which must not
// gain layers afterwards.
func NewWriter(registry *layers.Registry, opts ...Option) *Writer {
	w := &Writer{
		registry: registry,
		groupOf:  make([]int, registry.Len()),
		maxZoom:  14,
		workers:  1,
		tiles:    make(map[maptile.Tile][]*feature),
	}

	for _, opt := range opts {
		opt(w)
	}

	for g, members := range registry.Order() {
		w.groups = append(w.groups, registry.GroupName(members[0]))

		for _, idx := range members {
			w.groupOf[idx] = g
		}
	}

	return w
}

// Write assigns features to every tile they cover.  Features without a
// geometry are skipped.
func (w *Writer) Write(features []process.OutputFeature) error {
	for i := range features {
		if err := w.add(&features[i]); err != nil {
			return err
		}
	}

	return nil
}

func (w *Writer) add(f *process.OutputFeature) error {
	if f.Geometry == nil {
		return nil
	}

	if f.Layer < 0 || f.Layer >= len(w.groupOf) {
		return fmt.Errorf("feature %d: layer %d is not registered", f.ObjectID, f.Layer)
	}

	def := w.registry.Definition(f.Layer)
	props := properties(f.Attributes)
	latp := f.Geometry.Bound().Center().Y()

	for z := max(def.MinZoom, w.minZoom); z <= min(def.MaxZoom, w.maxZoom); z++ {
		g := orb.Clone(f.Geometry)

		if tol := tolerance(def, z, latp); tol > 0 {
			g = simplify.DouglasPeucker(tol).Simplify(g)
		}

		if g == nil {
			continue
		}

		g = project.Geometry(g, model.Unproject)

		prepared := &feature{
			group:      w.groupOf[f.Layer],
			id:         f.ObjectID,
			geometry:   g,
			properties: props,
		}

		covered := covering(g.Bound(), maptile.Zoom(z))

		w.mu.Lock()
		for _, t := range covered {
			w.tiles[t] = append(w.tiles[t], prepared)
		}
		w.mu.Unlock()
	}

	return nil
}

// tolerance is the Douglas-Peucker tolerance in projected degrees for zoom
// z, or 0 when the layer is not simplified at z.
func tolerance(def layers.Definition, z uint, latp float64) float64 {
	if z >= def.SimplifyBelow {
		return 0
	}

	if def.SimplifyLength > 0 {
		return float64(model.MeterToDegp(def.SimplifyLength*1000, model.Degrees(latp)))
	}

	return def.SimplifyLevel * math.Pow(def.SimplifyRatio, float64(def.SimplifyBelow-1-z))
}

func properties(attrs map[string]process.Value) geojson.Properties {
	props := make(geojson.Properties, len(attrs))

	for k, v := range attrs {
		props[k] = v.Interface()
	}

	return props
}

// covering lists the tiles at zoom z whose bounds intersect b.
func covering(b orb.Bound, z maptile.Zoom) []maptile.Tile {
	minTile := maptile.At(mercator(b.Min.X(), b.Max.Y()), z)
	maxTile := maptile.At(mercator(b.Max.X(), b.Min.Y()), z)

	last := uint32(1)<<z - 1
	minX, maxX := min(minTile.X, last), min(maxTile.X, last)
	minY, maxY := min(minTile.Y, last), min(maxTile.Y, last)

	if minX > maxX {
		minX, maxX = maxX, minX
	}

	if minY > maxY {
		minY, maxY = maxY, minY
	}

	tiles := make([]maptile.Tile, 0, (maxX-minX+1)*(maxY-minY+1))

	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			tiles = append(tiles, maptile.New(x, y, z))
		}
	}

	return tiles
}

// mercator clamps a lon/lat pair to the square covered by the tile grid.
func mercator(lon, lat float64) orb.Point {
	limit := float64(model.MaxMercatorLat)

	return orb.Point{max(min(lon, 180), -180), max(min(lat, limit), -limit)}
}

// Restrict drops every tile outside b, given in lon/latp, such as the
// bounds declared in an extract's header.
func (w *Writer) Restrict(b orb.Bound) {
	b = orb.Bound{Min: model.Unproject(b.Min), Max: model.Unproject(b.Max)}

	w.mu.Lock()
	defer w.mu.Unlock()

	keep := make(map[maptile.Tile]struct{})

	for z := w.minZoom; z <= w.maxZoom; z++ {
		for _, t := range covering(b, maptile.Zoom(z)) {
			keep[t] = struct{}{}
		}
	}

	for t := range w.tiles {
		if _, ok := keep[t]; !ok {
			delete(w.tiles, t)
		}
	}
}

// Tiles lists every tile holding at least one feature, ordered by zoom,
// column and row.
func (w *Writer) Tiles() []maptile.Tile {
	w.mu.RLock()
	defer w.mu.RUnlock()

	tiles := make([]maptile.Tile, 0, len(w.tiles))
	for t := range w.tiles {
		tiles = append(tiles, t)
	}

	slices.SortFunc(tiles, func(a, b maptile.Tile) int {
		return cmp.Or(cmp.Compare(a.Z, b.Z), cmp.Compare(a.X, b.X), cmp.Compare(a.Y, b.Y))
	})

	return tiles
}

// Encode returns the gzipped vector tile for t, or nil when nothing
// survives clipping.
func (w *Writer) Encode(t maptile.Tile) ([]byte, error) {
	w.mu.RLock()
	features := w.tiles[t]
	w.mu.RUnlock()

	collections := make([]*geojson.FeatureCollection, len(w.groups))

	for _, f := range features {
		fc := collections[f.group]
		if fc == nil {
			fc = geojson.NewFeatureCollection()
			collections[f.group] = fc
		}

		gf := geojson.NewFeature(orb.Clone(f.geometry))
		gf.ID = f.id
		gf.Properties = f.properties.Clone()
		fc.Append(gf)
	}

	var ls mvt.Layers

	for g, fc := range collections {
		if fc != nil {
			ls = append(ls, mvt.NewLayer(w.groups[g], fc))
		}
	}

	ls.ProjectToTile(t)
	ls.Clip(mvt.MapboxGLDefaultExtentBound)
	ls.RemoveEmpty(1.0, 1.0)

	ls = slices.DeleteFunc(ls, func(l *mvt.Layer) bool {
		return len(l.Features) == 0
	})

	if len(ls) == 0 {
		return nil, nil
	}

	return mvt.MarshalGzipped(ls)
}

// WriteDir encodes every tile and writes it to dir as z/x/y.pbf.  The
// number of tiles written is returned.
func (w *Writer) WriteDir(ctx context.Context, dir string) (int, error) {
	var written atomic.Int64

	tiles := rill.FromSlice(w.Tiles(), nil)

	err := rill.ForEach(tiles, w.workers, func(t maptile.Tile) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		data, err := w.Encode(t)
		if err != nil {
			return fmt.Errorf("tile %d/%d/%d: %w", t.Z, t.X, t.Y, err)
		}

		if data == nil {
			return nil
		}

		path := filepath.Join(dir, strconv.Itoa(int(t.Z)), strconv.FormatUint(uint64(t.X), 10))
		if err := os.MkdirAll(path, 0o755); err != nil {
			return err
		}

		name := filepath.Join(path, strconv.FormatUint(uint64(t.Y), 10)+Extension)
		if err := os.WriteFile(name, data, 0o644); err != nil {
			return err
		}

		written.Add(1)

		return nil
	})

	return int(written.Load()), err
}
