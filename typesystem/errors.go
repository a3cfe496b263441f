// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package typesystem

import "errors"

// Errors returned by LoadModule and the component readers it drives.
var (
	// ErrNilModule is returned when LoadModule is given a nil metadata
	// source.
	ErrNilModule = errors.New("typesystem: nil metadata module")

	// ErrNilType is returned when a reader is asked to build a type
	// definition from a nil/zero type-def row reference.
	ErrNilType = errors.New("typesystem: nil type reference")

	// ErrUnsupportedCallingConvention is returned when a method signature
	// carries a calling convention this loader does not recognize.
	ErrUnsupportedCallingConvention = errors.New("typesystem: unsupported calling convention")

	// ErrCancelled is returned from LoadModule when the caller's
	// cancellation token fires at a top-level-type boundary.
	ErrCancelled = errors.New("typesystem: load cancelled")

	// ErrFrozen is returned by any mutator called on an entity after its
	// owning assembly has been frozen.
	ErrFrozen = errors.New("typesystem: entity is frozen")

	// ErrConcurrentLoad is returned when a loader instance detects reentrant
	// use from LoadModule while an earlier call on the same instance has
	// not returned.
	ErrConcurrentLoad = errors.New("typesystem: loader instance used concurrently")
)
