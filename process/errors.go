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

package process

import (
	"errors"
	"fmt"

	"m4o.io/osmtile/model"
)

var (
	// ErrUnclosedWay is returned when a polygon is requested for a way whose
	// first and last nodes differ.
	ErrUnclosedWay = errors.New("way is not closed")

	// ErrEmptyWay is returned when binding a way without nodes.
	ErrEmptyWay = errors.New("way has no nodes")

	// ErrUnknownLayer is matched by every UnknownLayerError.
	ErrUnknownLayer = errors.New("unknown layer")
)

// MissingNodeError reports a way referencing a node that is not in the
// coordinate store.  The way cannot be processed.
type MissingNodeError struct {
	Way  model.WayID
	Node model.NodeID
	Err  error
}

func (e *MissingNodeError) Error() string {
	return fmt.Sprintf("way %d is missing node %d: %v", e.Way, e.Node, e.Err)
}

func (e *MissingNodeError) Unwrap() error {
	return e.Err
}

// UnknownLayerError reports an output request for an unregistered layer.
type UnknownLayerError struct {
	Layer string
}

func (e *UnknownLayerError) Error() string {
	return fmt.Sprintf("layer %q does not exist", e.Layer)
}

func (e *UnknownLayerError) Is(target error) bool {
	return target == ErrUnknownLayer
}
