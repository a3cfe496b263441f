// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package typesystem

// Accessibility mirrors the CLI's member/type visibility levels, already
// promoted to the C# surface vocabulary a consumer expects (§4.4's
// accessibility-union table operates on these).
type Accessibility int

const (
	Private Accessibility = iota
	PrivateProtected        // FamANDAssem
	Protected               // Family
	Internal                // Assembly
	ProtectedInternal       // FamORAssem
	Public
)

// promote returns the more permissive of two accessibilities under the
// standard C# promotion rules used by the property/event reader (§4.4).
func promote(a, b Accessibility) Accessibility {
	if a > b {
		return a
	}
	return b
}

// TypeKind distinguishes the six shapes a type definition can take (§4.5
// step 3).
type TypeKind int

const (
	KindClass TypeKind = iota
	KindInterface
	KindStruct
	KindEnum
	KindDelegate
	KindModule
)

// MemberKind discriminates the four unresolved-member shapes of §3.
type MemberKind int

const (
	MemberMethod MemberKind = iota
	MemberField
	MemberProperty
	MemberEvent
)

// TypeParameter is one entry of a type's or method's ordered generic
// parameter list (§3, §4.5 step 5). Position always equals its index in the
// owner's list (§8's quantified invariant).
type TypeParameter struct {
	Name        string
	Position    int
	Variance    int // 0 none, 1 covariant (out), 2 contravariant (in)
	Constraints []*TypeReference
	Attributes  []*Attribute

	ReferenceTypeConstraint        bool
	NotNullableValueTypeConstraint bool
	DefaultConstructorConstraint   bool
}

// Parameter is an unresolved parameter (§3).
type Parameter struct {
	Name       string
	Type       *TypeReference
	IsOut      bool
	IsRef      bool
	IsIn       bool
	IsParams   bool
	HasDefault bool
	Default    *ConstantValue
	Attributes []*Attribute
}

// Member is an unresolved method/field/property/event (§3, §4.4).
type Member struct {
	Kind          MemberKind
	Name          string
	ReturnType    *TypeReference
	Accessibility Accessibility
	Token         uint32
	Attributes    []*Attribute

	// DeclaringType points back to the owning type definition; excluded from
	// JSON output since it would otherwise make every member dump cyclic.
	DeclaringType *TypeDefinition `json:"-"`

	// Modifiers, shared vocabulary across all member kinds; not every flag
	// applies to every kind (e.g. only methods are ever Abstract+Override at
	// once per the table in §4.4).
	IsStatic   bool
	IsAbstract bool
	IsSealed   bool
	IsVirtual  bool
	IsOverride bool

	// Method-only.
	TypeParameters          []*TypeParameter
	Parameters              []*Parameter
	IsExtensionMethod       bool
	ExplicitInterfaceImpls  []*TypeReference
	IsExplicitInterfaceImpl bool
	HasVarArgs              bool

	// Field-only.
	IsReadOnly bool
	IsVolatile bool
	Constant   *ConstantValue

	// Property-only.
	Getter            *Member
	Setter            *Member
	IsIndexer         bool
	IndexerParameters []*Parameter

	// Event-only.
	AddAccessor    *Member
	RemoveAccessor *Member
	InvokeAccessor *Member
}

// TypeDefinition is an unresolved type definition (§3, §4.5).
type TypeDefinition struct {
	Namespace string
	Name      string
	Token     uint32
	Kind      TypeKind

	Accessibility Accessibility
	IsSealed      bool
	IsAbstract    bool
	IsStatic      bool

	TypeParameters []*TypeParameter
	BaseTypes      []*TypeReference
	NestedTypes    []*TypeDefinition
	Members        []*Member
	Attributes     []*Attribute

	HasExtensionMethods          bool
	AddDefaultConstructorIfRequired bool

	// DeclaringType is nil for a top-level type; set for a nested one.
	// Excluded from JSON output: a nested type's parent already lists it
	// under NestedTypes, so round-tripping this field too would be cyclic.
	DeclaringType *TypeDefinition `json:"-"`

	// lazy is non-nil only under Options.LazyLoad: NestedTypes, Attributes,
	// BaseTypes, and Members are deferred until EnsureLoaded is first called
	// (§4.6). nil for every type definition built eagerly.
	lazy *lazyState
}

// EnsureLoaded materializes a lazily-loaded type definition's nested types,
// attributes, base types, and members, if it was not already. It is a no-op
// on a type definition built with Options.LazyLoad false, or one already
// materialized. Safe for concurrent use (§4.6).
//
// On success it also fires Options.OnEntityLoaded for every member and
// nested type just materialized, the same extensibility hook an eager load
// fires from assemblyDriver.notifyTree — t itself was already reported when
// its stub was first registered, before this call.
func (t *TypeDefinition) EnsureLoaded() error {
	ls := t.lazy
	if ls == nil {
		return nil
	}
	ls.once.Do(func() {
		ls.mu.Lock()
		defer ls.mu.Unlock()
		ls.err = ls.fill(t)
		t.lazy = nil
		if ls.err == nil {
			notifyMembersAndNested(ls.opts, t)
		}
	})
	return ls.err
}

// notifyMembersAndNested walks every member and nested type of t, invoking
// opts.OnEntityLoaded for each — the depth-first order both an eager load
// (assemblyDriver.notifyTree) and a lazy EnsureLoaded use once t's nested
// types and members are filled in.
func notifyMembersAndNested(opts Options, t *TypeDefinition) {
	for _, m := range t.Members {
		notifyMember(opts, m)
	}
	for _, nested := range t.NestedTypes {
		opts.notify(EntityTypeDefinition, nested)
		notifyMembersAndNested(opts, nested)
	}
}

func notifyMember(opts Options, m *Member) {
	switch m.Kind {
	case MemberMethod:
		opts.notify(EntityMethod, m)
	case MemberField:
		opts.notify(EntityField, m)
	case MemberProperty:
		opts.notify(EntityProperty, m)
	case MemberEvent:
		opts.notify(EntityEvent, m)
	}
}

// Assembly is the frozen unresolved assembly produced by LoadModule (§3).
type Assembly struct {
	Name     string
	Location string

	AssemblyAttributes []*Attribute
	ModuleAttributes   []*Attribute

	TypeDefinitions []*TypeDefinition

	// TypeForwarders maps a forwarded top-level type's (namespace, name,
	// arity) to the reference naming where it now lives.
	TypeForwarders map[ForwarderKey]*TypeReference

	frozen bool
}

// ForwarderKey identifies a forwarded top-level type (§8 scenario 6).
type ForwarderKey struct {
	Namespace string
	Name      string
	Arity     int
}

// Frozen reports whether the assembly has completed loading. Every
// Assembly returned from LoadModule is frozen (§3, §4.7 step 4); the flag
// exists for entities to assert against accidental post-freeze mutation in
// tests.
func (a *Assembly) Frozen() bool { return a.frozen }
