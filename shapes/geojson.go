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

package shapes

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/project"

	"m4o.io/osmtile/model"
)

// LoadGeoJSON reads a feature collection in lon/lat and adds every feature
// to index, reprojected to lon/latp.  nameProperty selects the property used
// as the display name; it may be empty.  The number of features added is
// returned.
func LoadGeoJSON(s *Set, index string, r io.Reader, nameProperty string) (int, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("reading geojson: %w", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return 0, fmt.Errorf("parsing geojson: %w", err)
	}

	s.CreateIndex(index)

	var n int

	for i, f := range fc.Features {
		if f.Geometry == nil {
			slog.Debug("skipping feature without geometry", "index", index, "feature", i)

			continue
		}

		var name string
		if nameProperty != "" {
			name = f.Properties.MustString(nameProperty, "")
		}

		g := project.Geometry(orb.Clone(f.Geometry), model.Project)

		if _, err := s.Add(index, g, name); err != nil {
			return n, err
		}

		n++
	}

	return n, nil
}
