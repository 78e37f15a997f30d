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

// Command osmtile converts OpenStreetMap PBF extracts into vector tiles.
package main

import (
	"m4o.io/osmtile/cmd/osmtile/cli"
	_ "m4o.io/osmtile/cmd/osmtile/info"
	_ "m4o.io/osmtile/cmd/osmtile/tile"
)

func main() {
	cli.Execute()
}
