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

package osmtile

import (
	"runtime"
)

const (
	// DefaultBatchSize is the default batch size for unprocessed blobs.
	DefaultBatchSize = 16
)

// DefaultNCpu provides the default number of CPUs.
func DefaultNCpu() uint16 {
	cpus := uint16(runtime.GOMAXPROCS(-1))

	return max(cpus-1, 1)
}

// decoderOptions provides optional configuration parameters for Decoder construction.
type decoderOptions struct {
	protoBatchSize int    // batch size for protobuf un-marshaling
	nCPU           uint16 // the number of CPUs to use for background processing
}

// DecoderOption configures how we set up the decoder.
type DecoderOption func(*decoderOptions)

// WithProtoBatchSize lets you set the number of blobs handed to a single
// decoding goroutine at a time.
func WithProtoBatchSize(s int) DecoderOption {
	return func(o *decoderOptions) {
		o.protoBatchSize = max(s, 1)
	}
}

// WithNCpus lets you set the number of CPUs to use for background processing.
func WithNCpus(n uint16) DecoderOption {
	return func(o *decoderOptions) {
		o.nCPU = max(n, 1)
	}
}

// defaultDecoderConfig provides a default configuration for decoders.
var defaultDecoderConfig = decoderOptions{
	protoBatchSize: DefaultBatchSize,
	nCPU:           DefaultNCpu(),
}
