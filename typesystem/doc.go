// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package typesystem turns the flat CLI/ECMA-335 metadata graph exposed by
// github.com/saferwall/clrts (tables, heaps, decoded signatures) into a
// frozen, in-memory object graph: an UnresolvedAssembly made of type
// definitions, members, parameters, attributes, and type parameters.
//
// The loader deliberately does not bind references across assemblies — a
// named type reference to another assembly is recorded as-is, for a later
// resolution phase to bind. This keeps one loader instance scoped to one
// module, safe to run concurrently with other loader instances but never
// with itself.
package typesystem
