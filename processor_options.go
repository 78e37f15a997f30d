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

package osmtile

// processorOptions provides optional configuration parameters for
// Processor construction.
type processorOptions struct {
	workers        int
	decoderOptions []DecoderOption
}

// ProcessorOption configures how we set up the processor.
type ProcessorOption func(*processorOptions)

// WithWorkers lets you set the number of goroutines processing blocks.
func WithWorkers(n int) ProcessorOption {
	return func(o *processorOptions) {
		o.workers = max(n, 1)
	}
}

// WithDecoderOptions passes options to the decoders of both passes.
func WithDecoderOptions(opts ...DecoderOption) ProcessorOption {
	return func(o *processorOptions) {
		o.decoderOptions = append(o.decoderOptions, opts...)
	}
}

func defaultProcessorConfig() processorOptions {
	return processorOptions{workers: int(DefaultNCpu())}
}
