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

// Package tile implements the process subcommand.
package tile

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"m4o.io/osmtile"
	"m4o.io/osmtile/cmd/osmtile/cli"
	"m4o.io/osmtile/config"
	"m4o.io/osmtile/tiles"
)

var out io.Writer = os.Stdout

func init() {
	cli.RootCmd.AddCommand(processCmd)

	flags := processCmd.Flags()
	flags.StringP("config", "f", "config.yml", "layer and rule configuration")
	flags.StringP("output", "o", "tiles", "directory tiles are written to")
	flags.Uint16P("cpu", "c", uint16(runtime.GOMAXPROCS(-1)), "number of CPUs to use")
	flags.BoolP("progress", "p", true, "show a progress bar while reading")
}

var processCmd = &cobra.Command{
	Use:   "process <OSM file>",
	Short: "Write the vector tiles of an OSM file",
	Long:  "Write the vector tiles of an OSM file, as described by a layer and rule configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()

		cfgPath, err := flags.GetString("config")
		if err != nil {
			return err
		}

		output, err := flags.GetString("output")
		if err != nil {
			return err
		}

		ncpu, err := flags.GetUint16("cpu")
		if err != nil {
			return err
		}

		progress, err := flags.GetBool("progress")
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		return run(ctx, job{
			input:    args[0],
			config:   cfgPath,
			output:   output,
			ncpu:     ncpu,
			progress: progress,
		})
	},
}

type job struct {
	input    string
	config   string
	output   string
	ncpu     uint16
	progress bool
}

func (j job) open() (io.ReadCloser, error) {
	f, err := os.Open(j.input)
	if err != nil {
		return nil, err
	}

	if !j.progress {
		return f, nil
	}

	return cli.WrapInputFile(f, filepath.Base(j.input)+" ")
}

func run(ctx context.Context, j job) error {
	start := time.Now()

	cfg, err := config.LoadFile(j.config)
	if err != nil {
		return err
	}

	registry, err := cfg.Registry()
	if err != nil {
		return err
	}

	index, err := cfg.Shapes()
	if err != nil {
		return err
	}

	ruleSet, err := cfg.RuleSet()
	if err != nil {
		return err
	}

	writer := tiles.NewWriter(registry,
		tiles.WithZoomRange(cfg.Settings.MinZoom, cfg.Settings.MaxZoom),
		tiles.WithWorkers(int(j.ncpu)))

	p := osmtile.NewProcessor(registry, index, ruleSet, writer,
		osmtile.WithWorkers(int(j.ncpu)),
		osmtile.WithDecoderOptions(osmtile.WithNCpus(j.ncpu)))

	stats, err := p.Run(ctx, j.open)
	if err != nil {
		return err
	}

	slog.Info("processed entities",
		"nodes", stats.Nodes, "ways", stats.Ways, "relations", stats.Relations, "skipped", stats.Skipped)

	if bbox := stats.Header.BoundingBox; bbox != nil && !bbox.IsEmpty() {
		writer.Restrict(bbox.Projected())
	}

	n, err := writer.WriteDir(ctx, j.output)
	if err != nil {
		return err
	}

	if cfg.Settings.Metadata != "" {
		if err := writeMetadata(registry.SerialiseLayerJSON, filepath.Join(j.output, cfg.Settings.Metadata)); err != nil {
			return err
		}
	}

	fmt.Fprintf(out, "Features: %s\n", humanize.Comma(stats.Features))
	fmt.Fprintf(out, "Tiles: %s\n", humanize.Comma(int64(n)))
	fmt.Fprintf(out, "Elapsed: %s\n", humanize.RelTime(start, time.Now(), "", ""))

	return nil
}

func writeMetadata(serialise func() ([]byte, error), path string) error {
	b, err := serialise()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, b, 0o644)
}
