// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package typesystem

// EntityKind distinguishes the unresolved entities passed to OnEntityLoaded.
type EntityKind int

// Entity kinds reported to an Options.OnEntityLoaded callback.
const (
	EntityAssembly EntityKind = iota
	EntityTypeDefinition
	EntityMethod
	EntityField
	EntityProperty
	EntityEvent
)

// Options configures a Loader. The zero value is valid (public/family
// members only, eager loading) but every bool defaults to Go's false,
// which leaves dynamic translation, tuple translation, and interface-impl
// name shortening all off; it does not match the CLI's own defaults. Use
// NewOptions for the CLI-default configuration.
type Options struct {
	// IncludeInternalMembers loads assembly- and internal-visibility members
	// in addition to public/family ones. Default false.
	IncludeInternalMembers bool

	// LazyLoad defers base types, nested types, and members of each
	// top-level type to first access, behind a module-wide lock. Default
	// false (eager).
	LazyLoad bool

	// UseDynamicType translates System.Object slots flagged by a
	// DynamicAttribute into the dynamic sentinel reference. Default true.
	UseDynamicType bool

	// UseTupleTypes detects and flattens System.ValueTuple instantiations
	// into tuple references. Default true.
	UseTupleTypes bool

	// ShortenInterfaceImplNames truncates an explicit interface
	// implementation's short name to the substring after the final dot.
	// Default true.
	ShortenInterfaceImplNames bool

	// OnEntityLoaded, if set, is invoked once per unresolved entity
	// immediately after it is registered with its owning assembly. In lazy
	// mode this may be invoked from multiple goroutines.
	OnEntityLoaded func(kind EntityKind, entity interface{})

	// Cancel, if non-nil, is polled once per top-level type during eager
	// loading; when it reports done, LoadModule returns ErrCancelled. It has
	// no effect during lazy materialization (see package docs on why).
	Cancel <-chan struct{}
}

// NewOptions returns the CLI-default configuration: public/family members
// only, eager loading, dynamic and tuple translation on, explicit-interface-
// impl names shortened. A plain Options{} cannot express these defaults
// since Go zero values are false.
func NewOptions() Options {
	return Options{
		UseDynamicType:            true,
		UseTupleTypes:             true,
		ShortenInterfaceImplNames: true,
	}
}

func (o Options) cancelled() bool {
	if o.Cancel == nil {
		return false
	}
	select {
	case <-o.Cancel:
		return true
	default:
		return false
	}
}

func (o Options) notify(kind EntityKind, entity interface{}) {
	if o.OnEntityLoaded != nil {
		o.OnEntityLoaded(kind, entity)
	}
}
