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

// Package config reads the layer and rule configuration of a run.  The
// file is YAML; JSON is accepted as well.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"m4o.io/osmtile/layers"
	"m4o.io/osmtile/rules"
	"m4o.io/osmtile/shapes"
)

// MaxZoom is the deepest zoom level tiles are written for.
const MaxZoom = 14

// ErrInvalidConfig is matched by every validation error.
var ErrInvalidConfig = errors.New("invalid configuration")

// Settings are the run wide options.
type Settings struct {
	MinZoom  uint   `yaml:"minzoom"`
	MaxZoom  uint   `yaml:"maxzoom"`
	Name     string `yaml:"name"`
	Metadata string `yaml:"metadata"`
}

// Layer is the configuration of one output layer.
type Layer struct {
	Name string `yaml:"-"`

	MinZoom        uint    `yaml:"minzoom"`
	MaxZoom        *uint   `yaml:"maxzoom"`
	SimplifyBelow  uint    `yaml:"simplify_below"`
	SimplifyLevel  float64 `yaml:"simplify_level"`
	SimplifyLength float64 `yaml:"simplify_length"`
	SimplifyRatio  float64 `yaml:"simplify_ratio"`
	WriteTo        string  `yaml:"write_to"`

	Source      string `yaml:"source"`
	Index       bool   `yaml:"index"`
	IndexColumn string `yaml:"index_column"`
}

// Layers keeps the layers in the order they appear in the file.
type Layers []Layer

// UnmarshalYAML reads a mapping of layer name to layer.
func (l *Layers) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: layers must be a mapping, line %d", ErrInvalidConfig, value.Line)
	}

	for i := 0; i+1 < len(value.Content); i += 2 {
		var layer Layer

		if err := value.Content[i+1].Decode(&layer); err != nil {
			return err
		}

		layer.Name = value.Content[i].Value
		*l = append(*l, layer)
	}

	return nil
}

// Config is a parsed configuration file.
type Config struct {
	Settings Settings     `yaml:"settings"`
	Layers   Layers       `yaml:"layers"`
	Rules    []rules.Rule `yaml:"rules"`

	// dir resolves relative shape file paths.
	dir string
}

// Load parses and validates a configuration.  Relative shape files are
// resolved against the working directory.
func Load(r io.Reader) (*Config, error) {
	cfg := &Config{Settings: Settings{MaxZoom: MaxZoom}}

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFile parses the configuration at path.  Shape files are resolved
// relative to the directory of path.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	cfg.dir = filepath.Dir(path)

	return cfg, nil
}

func (c *Config) validate() error {
	s := c.Settings

	if s.MaxZoom > MaxZoom {
		return fmt.Errorf("%w: maxzoom %d is above %d", ErrInvalidConfig, s.MaxZoom, MaxZoom)
	}

	if s.MinZoom > s.MaxZoom {
		return fmt.Errorf("%w: minzoom %d is above maxzoom %d", ErrInvalidConfig, s.MinZoom, s.MaxZoom)
	}

	for _, l := range c.Layers {
		if l.MaxZoom != nil && l.MinZoom > *l.MaxZoom {
			return fmt.Errorf("%w: layer %s: minzoom %d is above maxzoom %d",
				ErrInvalidConfig, l.Name, l.MinZoom, *l.MaxZoom)
		}

		if l.SimplifyRatio < 0 || l.SimplifyLevel < 0 || l.SimplifyLength < 0 {
			return fmt.Errorf("%w: layer %s: negative simplification", ErrInvalidConfig, l.Name)
		}

		if l.Index && l.Source == "" {
			return fmt.Errorf("%w: layer %s: index without source", ErrInvalidConfig, l.Name)
		}
	}

	return nil
}

// Definition returns the layer definition with defaults applied: the
// maximum zoom defaults to the run's and the simplify ratio to 1.
func (l Layer) Definition(s Settings) layers.Definition {
	maxZoom := s.MaxZoom
	if l.MaxZoom != nil {
		maxZoom = *l.MaxZoom
	}

	ratio := l.SimplifyRatio
	if ratio == 0 {
		ratio = 1
	}

	return layers.Definition{
		Name:           l.Name,
		MinZoom:        l.MinZoom,
		MaxZoom:        maxZoom,
		SimplifyBelow:  l.SimplifyBelow,
		SimplifyLevel:  l.SimplifyLevel,
		SimplifyLength: l.SimplifyLength,
		SimplifyRatio:  ratio,
	}
}

// Registry registers every layer in file order.
func (c *Config) Registry() (*layers.Registry, error) {
	r := layers.NewRegistry()

	for _, l := range c.Layers {
		if _, err := r.AddLayer(l.Definition(c.Settings), l.WriteTo); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Shapes loads the shape file of every indexed layer into an index named
// after the layer.
func (c *Config) Shapes() (*shapes.Set, error) {
	set := shapes.NewSet()

	for _, l := range c.Layers {
		if !l.Index {
			continue
		}

		n, err := c.loadShapes(set, l)
		if err != nil {
			return nil, err
		}

		slog.Info("loaded shapes", "layer", l.Name, "source", l.Source, "features", n)
	}

	return set, nil
}

func (c *Config) loadShapes(set *shapes.Set, l Layer) (int, error) {
	path := l.Source
	if !filepath.IsAbs(path) && c.dir != "" {
		path = filepath.Join(c.dir, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("layer %s: %w", l.Name, err)
	}
	defer f.Close()

	n, err := shapes.LoadGeoJSON(set, l.Name, f, l.IndexColumn)
	if err != nil {
		return 0, fmt.Errorf("layer %s: %w", l.Name, err)
	}

	return n, nil
}

// RuleSet compiles the rules.
func (c *Config) RuleSet() (*rules.Set, error) {
	return rules.New(c.Rules)
}
