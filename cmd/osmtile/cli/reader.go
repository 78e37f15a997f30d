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

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

// Stdin names standard input on the command line.
const Stdin = "-"

type readerValue struct {
	value    **os.File
	typename string
}

// NewReaderValue creates a pflag Value that opens the named OSM file for
// reading.  The value "-" selects stdin.
func NewReaderValue(def *os.File, p **os.File, typename string) pflag.Value {
	*p = def

	return &readerValue{value: p, typename: typename}
}

func (r *readerValue) Set(val string) error {
	if val == Stdin {
		*r.value = os.Stdin

		return nil
	}

	f, err := os.Open(val)
	if err != nil {
		return fmt.Errorf("unable to open %s: %w", val, err)
	}

	*r.value = f

	return nil
}

func (r *readerValue) Type() string {
	return r.typename
}

func (r *readerValue) String() string {
	switch *r.value {
	case nil:
		return ""
	case os.Stdin:
		return Stdin
	}

	return (*r.value).Name()
}
