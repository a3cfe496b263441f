// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package typesystem

import "sync"

// lazyState holds the deferred half of a lazily-loaded type definition
// (§4.6): a sync.Once so exactly one goroutine runs fill, a module-wide
// lock shared by every lazy type in the same assembly so concurrent
// first-accesses of different types still serialize against the shared,
// non-synchronizing dummyPool interning layer, and the closure itself.
//
// fill's reader is built with dummyPool, never the real *interner: the
// interner's own mutex only protects one map operation at a time, but two
// lazy types finishing concurrently would otherwise race to decide which of
// two structurally-identical references is "the" canonical instance. The
// module lock below is the simpler fix — it serializes all lazy
// finalization in the module, trading a little concurrency for safety.
type lazyState struct {
	mu   *sync.Mutex
	once sync.Once
	fill func(*TypeDefinition) error
	err  error

	// opts lets EnsureLoaded fire OnEntityLoaded for members and nested
	// types once fill succeeds, without the TypeDefinition itself needing
	// to carry an Options field.
	opts Options
}

// newLazyTopLevelType builds a type definition whose cheap fields (name,
// namespace, kind, modifiers, type parameters) are already resolved, but
// whose nested types, attributes, base types, and members are deferred to
// the first call to EnsureLoaded. moduleLock is shared by every lazy type
// definition produced while loading one assembly (§4.6).
func newLazyTopLevelType(r *typeDefReader, typeDefIndex uint32, moduleLock *sync.Mutex) (*TypeDefinition, error) {
	t, td, isValueType, isEnum, err := r.readShallow(typeDefIndex, nil)
	if err != nil || t == nil {
		return t, err
	}

	// The finisher reuses the shallow reader's src/opts but swaps in a
	// dummyPool so its reference/attribute interning does not touch the
	// shared interner concurrently with other lazy types' finishers, or
	// with the eager readers still running for other top-level types.
	lazyReader := newTypeDefReader(r.opts, dummyPool{}, r.src)

	t.lazy = &lazyState{
		mu:   moduleLock,
		opts: r.opts,
		fill: func(target *TypeDefinition) error {
			return lazyReader.finish(target, td, typeDefIndex, isValueType, isEnum)
		},
	}
	return t, nil
}
