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

// Package rules is a declarative rule set that decides which layers an
// entity is written to and which attributes it carries.
package rules

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"

	"m4o.io/osmtile/process"
)

// ErrInvalidRule is matched by every error returned by New.
var ErrInvalidRule = errors.New("invalid rule")

// Any as a Match value means the key only has to be present.
const Any = "*"

// Rule writes matching entities to a layer.  Match values may list
// alternatives separated by "|".
type Rule struct {
	Kinds []string          `yaml:"kinds,omitempty"`
	Match map[string]string `yaml:"match,omitempty"`

	Layer    string `yaml:"layer"`
	Area     bool   `yaml:"area,omitempty"`
	Centroid bool   `yaml:"centroid,omitempty"`

	// Attributes, Numeric and Booleans map an attribute name to the tag its
	// value is read from.
	Attributes map[string]string `yaml:"attributes,omitempty"`
	Numeric    map[string]string `yaml:"numeric,omitempty"`
	Booleans   map[string]string `yaml:"booleans,omitempty"`

	// MinArea is in square metres.
	MinArea float64 `yaml:"min_area,omitempty"`

	Within          string `yaml:"within,omitempty"`
	WithinAttribute string `yaml:"within_attribute,omitempty"`
}

type compiled struct {
	Rule

	kinds   [4]bool
	match   []matcher
	attrs   []string
	numeric []string
	bools   []string
}

type matcher struct {
	key    string
	values []string
}

func (m matcher) matches(c *process.Context) bool {
	if !c.HasTag(m.key) {
		return false
	}

	if m.values == nil {
		return true
	}

	return slices.Contains(m.values, c.Tag(m.key))
}

// Set evaluates rules in order.  Every matching rule emits a feature.
type Set struct {
	rules []compiled
}

// New validates rules and prepares them for evaluation.
func New(rules []Rule) (*Set, error) {
	s := &Set{rules: make([]compiled, 0, len(rules))}

	for i, r := range rules {
		c, err := compile(r)
		if err != nil {
			return nil, fmt.Errorf("%w %d: %w", ErrInvalidRule, i, err)
		}

		s.rules = append(s.rules, c)
	}

	return s, nil
}

func compile(r Rule) (compiled, error) {
	c := compiled{Rule: r}

	if r.Layer == "" {
		return c, errors.New("no layer")
	}

	if r.WithinAttribute != "" && r.Within == "" {
		return c, errors.New("within_attribute without within")
	}

	if len(r.Kinds) == 0 {
		c.kinds = [4]bool{false, true, true, true}
	}

	for _, k := range r.Kinds {
		switch strings.ToLower(k) {
		case "node":
			c.kinds[process.KindNode] = true
		case "way":
			c.kinds[process.KindWay] = true
		case "relation":
			c.kinds[process.KindRelation] = true
		default:
			return c, fmt.Errorf("unknown kind %q", k)
		}
	}

	for _, key := range slices.Sorted(maps.Keys(r.Match)) {
		m := matcher{key: key}
		if v := r.Match[key]; v != Any {
			m.values = strings.Split(v, "|")
		}

		c.match = append(c.match, m)
	}

	c.attrs = slices.Sorted(maps.Keys(r.Attributes))
	c.numeric = slices.Sorted(maps.Keys(r.Numeric))
	c.bools = slices.Sorted(maps.Keys(r.Booleans))

	return c, nil
}

// Len is the number of rules.
func (s *Set) Len() int {
	return len(s.rules)
}

func (s *Set) ProcessNode(c *process.Context) error {
	return s.apply(c)
}

func (s *Set) ProcessWay(c *process.Context) error {
	return s.apply(c)
}

func (s *Set) ProcessRelation(c *process.Context) error {
	return s.apply(c)
}

func (s *Set) apply(c *process.Context) error {
	for i := range s.rules {
		r := &s.rules[i]

		if !r.applies(c) {
			continue
		}

		if err := r.emit(c); err != nil {
			return err
		}
	}

	return nil
}

func (r *compiled) applies(c *process.Context) bool {
	if !r.kinds[c.Kind()] {
		return false
	}

	for _, m := range r.match {
		if !m.matches(c) {
			return false
		}
	}

	if r.MinArea > 0 {
		scale := c.ScaleToMeter()
		if c.Area()*scale*scale < r.MinArea {
			return false
		}
	}

	if r.Within != "" && !c.Intersects(r.Within) {
		return false
	}

	return true
}

func (r *compiled) emit(c *process.Context) error {
	var err error
	if r.Centroid {
		err = c.LayerAsCentroid(r.Layer)
	} else {
		err = c.Layer(r.Layer, r.Area)
	}

	if err != nil {
		return err
	}

	for _, name := range r.attrs {
		c.Attribute(name, c.Tag(r.Attributes[name]))
	}

	for _, name := range r.numeric {
		tag := r.Numeric[name]
		if !c.HasTag(tag) {
			continue
		}

		v, err := strconv.ParseFloat(c.Tag(tag), 64)
		if err != nil {
			slog.Debug("ignoring non-numeric tag", "id", c.ID(), "tag", tag, "error", err)

			continue
		}

		c.AttributeNumeric(name, v)
	}

	for _, name := range r.bools {
		tag := r.Booleans[name]
		if c.HasTag(tag) {
			c.AttributeBoolean(name, truthy(c.Tag(tag)))
		}
	}

	if r.WithinAttribute != "" {
		if names := c.FindIntersecting(r.Within); len(names) > 0 {
			c.Attribute(r.WithinAttribute, names[0])
		}
	}

	return nil
}

func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "no", "false", "0", "":
		return false
	default:
		return true
	}
}
