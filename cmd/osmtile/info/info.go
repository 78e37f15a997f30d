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

// Package info implements the info subcommand.
package info

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"m4o.io/osmtile"
	"m4o.io/osmtile/cmd/osmtile/cli"
	"m4o.io/osmtile/model"
)

var out io.Writer = os.Stdout

type extendedHeader struct {
	model.Header

	NodeCount     int64              `json:"node_count"`
	WayCount      int64              `json:"way_count"`
	RelationCount int64              `json:"relation_count"`
	BlockCount    int64              `json:"block_count"`
	DataBounds    *model.BoundingBox `json:"data_bounds,omitempty"`
}

var input *os.File

func init() {
	cli.RootCmd.AddCommand(infoCmd)

	flags := infoCmd.Flags()
	flags.BoolP("json", "j", false, "format information in JSON")
	flags.Uint16P("cpu", "c", uint16(runtime.GOMAXPROCS(-1)), "number of CPUs to use for scanning")
	flags.BoolP("extended", "e", false, "provide extended information (scans entire file)")
	flags.VarP(cli.NewReaderValue(os.Stdin, &input, "file"), "input", "i", "OSM file to read, instead of stdin")
}

var infoCmd = &cobra.Command{
	Use:   "info [<OSM file>]",
	Short: "Print information about an OSM file",
	Long:  "Print information about an OSM file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := input
		if len(args) == 1 {
			var err error

			if f, err = os.Open(args[0]); err != nil {
				return err
			}
		}

		in, err := cli.WrapInputFile(f, "info ")
		if err != nil {
			return err
		}

		flags := cmd.Flags()

		ncpu, err := flags.GetUint16("cpu")
		if err != nil {
			return err
		}

		extended, err := flags.GetBool("extended")
		if err != nil {
			return err
		}

		info, err := runInfo(cmd.Context(), in, ncpu, extended)
		if cerr := in.Close(); err == nil {
			err = cerr
		}

		if err != nil {
			return err
		}

		jsonfmt, err := flags.GetBool("json")
		if err != nil {
			return err
		}

		if jsonfmt {
			return renderJSON(info, extended)
		}

		renderTxt(info, extended)

		return nil
	},
}

func runInfo(ctx context.Context, in io.Reader, ncpu uint16, extended bool) (*extendedHeader, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	d, err := osmtile.NewDecoder(ctx, in, osmtile.WithNCpus(ncpu))
	if err != nil {
		return nil, err
	}
	defer d.Close()

	info := &extendedHeader{Header: d.Header}

	if !extended {
		return info, nil
	}

	for b, err := range d.Blocks() {
		if err != nil {
			return nil, err
		}

		info.BlockCount++
		info.NodeCount += int64(len(b.Nodes))
		info.WayCount += int64(len(b.Ways))
		info.RelationCount += int64(len(b.Relations))

		for _, n := range b.Nodes {
			if info.DataBounds == nil {
				lat, lon := n.Coord.Lat(), n.Coord.LonDegrees()
				info.DataBounds = &model.BoundingBox{Top: lat, Bottom: lat, Left: lon, Right: lon}

				continue
			}

			info.DataBounds.ExpandWithLatpLon(n.Coord)
		}
	}

	return info, nil
}

func renderJSON(info *extendedHeader, extended bool) error {
	// marshall the smallest struct needed
	var v any
	if extended {
		v = info
	} else {
		v = info.Header
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	_, err = fmt.Fprint(out, string(b))

	return err
}

func renderTxt(info *extendedHeader, extended bool) {
	fmt.Fprintf(out, "BoundingBox: %s\n", info.BoundingBox)
	fmt.Fprintf(out, "RequiredFeatures: %s\n", strings.Join(info.RequiredFeatures, ", "))
	fmt.Fprintf(out, "OptionalFeatures: %v\n", strings.Join(info.OptionalFeatures, ", "))
	fmt.Fprintf(out, "WritingProgram: %s\n", info.WritingProgram)
	fmt.Fprintf(out, "Source: %s\n", info.Source)
	fmt.Fprintf(out, "OsmosisReplicationTimestamp: %s\n", info.OsmosisReplicationTimestamp.UTC().Format(time.RFC3339))
	fmt.Fprintf(out, "OsmosisReplicationSequenceNumber: %d\n", info.OsmosisReplicationSequenceNumber)
	fmt.Fprintf(out, "OsmosisReplicationBaseURL: %s\n", info.OsmosisReplicationBaseURL)

	if extended {
		fmt.Fprintf(out, "BlockCount: %s\n", humanize.Comma(info.BlockCount))
		fmt.Fprintf(out, "NodeCount: %s\n", humanize.Comma(info.NodeCount))
		fmt.Fprintf(out, "WayCount: %s\n", humanize.Comma(info.WayCount))
		fmt.Fprintf(out, "RelationCount: %s\n", humanize.Comma(info.RelationCount))

		if info.DataBounds != nil {
			fmt.Fprintf(out, "DataBounds: %s\n", info.DataBounds)
		}
	}
}
