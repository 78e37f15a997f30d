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

package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"m4o.io/osmtile/config"
	"m4o.io/osmtile/layers"
)

const sample = `
settings:
  minzoom: 2
  maxzoom: 14
  name: Test
  metadata: layers.json
layers:
  water:
    minzoom: 6
    simplify_below: 12
    simplify_level: 0.0001
    simplify_ratio: 2.0
  roads:
    maxzoom: 12
  minor_roads:
    write_to: roads
  countries:
    source: countries.geojson
    index: true
    index_column: name
rules:
  - kinds: [way]
    match: {natural: water}
    layer: water
    area: true
  - match: {highway: "*"}
    layer: roads
    attributes: {name: name}
`

const countries = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"name": "Squareland"},
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[10,0],[10,10],[0,10],[0,0]]]}}
  ]
}`

func TestLoad(t *testing.T) {
	cfg, err := config.Load(strings.NewReader(sample))
	require.NoError(t, err)

	assert.Equal(t, config.Settings{MinZoom: 2, MaxZoom: 14, Name: "Test", Metadata: "layers.json"}, cfg.Settings)

	names := make([]string, len(cfg.Layers))
	for i, l := range cfg.Layers {
		names[i] = l.Name
	}

	assert.Equal(t, []string{"water", "roads", "minor_roads", "countries"}, names)
	assert.Len(t, cfg.Rules, 2)
	assert.Equal(t, "*", cfg.Rules[1].Match["highway"])

	set, err := cfg.RuleSet()
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len())
}

func TestDefinitionDefaults(t *testing.T) {
	cfg, err := config.Load(strings.NewReader(sample))
	require.NoError(t, err)

	water := cfg.Layers[0].Definition(cfg.Settings)
	assert.Equal(t, layers.Definition{
		Name:          "water",
		MinZoom:       6,
		MaxZoom:       14,
		SimplifyBelow: 12,
		SimplifyLevel: 0.0001,
		SimplifyRatio: 2,
	}, water)

	roads := cfg.Layers[1].Definition(cfg.Settings)
	assert.Equal(t, uint(12), roads.MaxZoom)
	assert.Equal(t, 1.0, roads.SimplifyRatio)
}

func TestRegistry(t *testing.T) {
	cfg, err := config.Load(strings.NewReader(sample))
	require.NoError(t, err)

	r, err := cfg.Registry()
	require.NoError(t, err)

	assert.Equal(t, 4, r.Len())
	assert.Equal(t, [][]int{{0}, {1, 2}, {3}}, r.Order())
	assert.Equal(t, "roads", r.GroupName(2))
}

func TestShapes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")

	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "countries.geojson"), []byte(countries), 0o600))

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)

	set, err := cfg.Shapes()
	require.NoError(t, err)

	assert.Equal(t, []string{"countries"}, set.Indices())
	assert.Equal(t, 1, set.Len())
	assert.Equal(t, "Squareland", set.Name(0))
}

func TestMissingShapeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)

	_, err = cfg.Shapes()
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestJSON(t *testing.T) {
	cfg, err := config.Load(strings.NewReader(`{
		"settings": {"minzoom": 0, "maxzoom": 10},
		"layers": {"b": {}, "a": {"write_to": "b"}},
		"rules": [{"layer": "a"}]
	}`))
	require.NoError(t, err)

	require.Len(t, cfg.Layers, 2)
	assert.Equal(t, "b", cfg.Layers[0].Name)
	assert.Equal(t, "a", cfg.Layers[1].Name)
	assert.Equal(t, uint(10), cfg.Layers[1].Definition(cfg.Settings).MaxZoom)
}

func TestInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"maxzoom too deep", "settings: {maxzoom: 15}"},
		{"inverted zooms", "settings: {minzoom: 8, maxzoom: 4}"},
		{"inverted layer zooms", "layers: {a: {minzoom: 9, maxzoom: 3}}"},
		{"negative simplification", "layers: {a: {simplify_level: -1}}"},
		{"index without source", "layers: {a: {index: true}}"},
		{"layers as list", "layers: [a, b]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(strings.NewReader(tt.yaml))
			assert.ErrorIs(t, err, config.ErrInvalidConfig)
		})
	}
}

func TestUnknownField(t *testing.T) {
	_, err := config.Load(strings.NewReader("setings: {}"))
	assert.Error(t, err)
}

func TestDuplicateLayerFromConfig(t *testing.T) {
	cfg := &config.Config{Layers: config.Layers{{Name: "a"}, {Name: "a"}}}

	_, err := cfg.Registry()
	assert.ErrorIs(t, err, layers.ErrDuplicateLayer)
}
