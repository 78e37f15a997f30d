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
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// RootCmd is the osmtile command; subcommands register themselves on it.
var RootCmd = &cobra.Command{
	Use:   "osmtile",
	Short: "Turn OpenStreetMap extracts into vector tiles",
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		ConfigureLogging(verbose)
	},
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().BoolP("verbose", "v", false, "log debug output")
}

// ConfigureLogging installs a text logger on stderr.
func ConfigureLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
