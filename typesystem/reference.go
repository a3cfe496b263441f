// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package typesystem

import (
	"strconv"
	"strings"

	pe "github.com/saferwall/clrts"
)

// ReferenceKind discriminates the unresolved type reference shapes of §3.
type ReferenceKind int

const (
	RefUnknown ReferenceKind = iota
	RefPrimitive
	RefDynamic
	RefArgList
	RefPointer
	RefByRef
	RefArray
	RefGenericInstance
	RefTuple
	RefTypeParameter
	RefNested
	RefNamed
	RefToken
)

// Primitive enumerates the CLI's built-in element types, including the
// void/object shorthands that ride the same ELEMENT_TYPE_* byte space.
type Primitive int

const (
	PrimBoolean Primitive = iota
	PrimChar
	PrimSByte
	PrimByte
	PrimInt16
	PrimUInt16
	PrimInt32
	PrimUInt32
	PrimInt64
	PrimUInt64
	PrimSingle
	PrimDouble
	PrimString
	PrimIntPtr
	PrimUIntPtr
	PrimTypedReference
	PrimObject
	PrimVoid
)

// GenericParamKind distinguishes a type-parameter reference's owner kind.
type GenericParamKind int

const (
	ParamOfType GenericParamKind = iota
	ParamOfMethod
)

// TypeReference is one unresolved type reference (§3). Only the fields for
// Kind are meaningful; this mirrors the source's tagged-union shape without
// a Go sum type.
type TypeReference struct {
	Kind      ReferenceKind
	Primitive Primitive

	// RefPointer / RefByRef / RefArray element.
	Element   *TypeReference
	ArrayRank int

	// RefGenericInstance.
	OpenType    *TypeReference
	GenericArgs []*TypeReference

	// RefTuple.
	TupleElements []*TypeReference
	TupleNames    []string

	// RefTypeParameter.
	ParamKind GenericParamKind
	Position  int

	// RefNamed / RefNested.
	AssemblyRef     string // "" means CurrentAssembly
	Namespace       string // RefNamed only
	Name            string
	Arity           int
	DeclaringType   *TypeReference // RefNested only
	IsReferenceType *bool          // nil when indeterminate

	// RefToken: a TypeDef row index within the module being loaded.
	Token uint32
}

var primitiveSingletons = map[Primitive]*TypeReference{
	PrimBoolean:        {Kind: RefPrimitive, Primitive: PrimBoolean},
	PrimChar:           {Kind: RefPrimitive, Primitive: PrimChar},
	PrimSByte:          {Kind: RefPrimitive, Primitive: PrimSByte},
	PrimByte:           {Kind: RefPrimitive, Primitive: PrimByte},
	PrimInt16:          {Kind: RefPrimitive, Primitive: PrimInt16},
	PrimUInt16:         {Kind: RefPrimitive, Primitive: PrimUInt16},
	PrimInt32:          {Kind: RefPrimitive, Primitive: PrimInt32},
	PrimUInt32:         {Kind: RefPrimitive, Primitive: PrimUInt32},
	PrimInt64:          {Kind: RefPrimitive, Primitive: PrimInt64},
	PrimUInt64:         {Kind: RefPrimitive, Primitive: PrimUInt64},
	PrimSingle:         {Kind: RefPrimitive, Primitive: PrimSingle},
	PrimDouble:         {Kind: RefPrimitive, Primitive: PrimDouble},
	PrimString:         {Kind: RefPrimitive, Primitive: PrimString},
	PrimIntPtr:         {Kind: RefPrimitive, Primitive: PrimIntPtr},
	PrimUIntPtr:        {Kind: RefPrimitive, Primitive: PrimUIntPtr},
	PrimTypedReference: {Kind: RefPrimitive, Primitive: PrimTypedReference},
	PrimObject:         {Kind: RefPrimitive, Primitive: PrimObject},
	PrimVoid:           {Kind: RefPrimitive, Primitive: PrimVoid},
}

// Singleton sentinel references, the only global state this package keeps
// (§9): void/primitives live in primitiveSingletons above, the rest here.
var (
	Dynamic = &TypeReference{Kind: RefDynamic}
	ArgList = &TypeReference{Kind: RefArgList}
	Unknown = &TypeReference{Kind: RefUnknown}
)

func primitiveRef(p Primitive) *TypeReference { return primitiveSingletons[p] }

var elementToPrimitive = map[byte]Primitive{
	etBoolean: PrimBoolean,
	etChar:    PrimChar,
	etI1:      PrimSByte,
	etU1:      PrimByte,
	etI2:      PrimInt16,
	etU2:      PrimUInt16,
	etI4:      PrimInt32,
	etU4:      PrimUInt32,
	etI8:      PrimInt64,
	etU8:      PrimUInt64,
	etR4:      PrimSingle,
	etR8:      PrimDouble,
	etString:  PrimString,
	etI:       PrimIntPtr,
	etU:       PrimUIntPtr,
	etVoid:    PrimVoid,
	etTypedByRef: PrimTypedReference,
}

// dynamicTupleInfo carries the attribute-driven state the builder consults
// while walking a compound type: the flattened Dynamic bit array and the
// TupleElementNames array of the attribute provider that owns the type
// being translated (§4.2).
type dynamicTupleInfo struct {
	DynamicFlags []bool
	TupleNames   []string
}

func (d dynamicTupleInfo) isDynamicAt(i int) bool {
	if i < 0 || i >= len(d.DynamicFlags) {
		return false
	}
	return d.DynamicFlags[i]
}

// referenceBuilder translates decoded signature types into unresolved type
// references, threading the dynamicIndex/tupleIndex cursors described in
// §4.2.
type referenceBuilder struct {
	opts Options
	pool pool
	src  *source
}

func newReferenceBuilder(opts Options, p pool, src *source) *referenceBuilder {
	return &referenceBuilder{opts: opts, pool: p, src: src}
}

// Build translates one top-level signature type (a field type, a parameter
// type, or a method return type) with fresh cursors.
func (b *referenceBuilder) Build(t pe.SignatureType, info dynamicTupleInfo, isFromSignature bool) *TypeReference {
	dyn, tup := 0, 0
	return b.build(t, info, &dyn, &tup, isFromSignature)
}

func (b *referenceBuilder) build(t pe.SignatureType, info dynamicTupleInfo, dynamicIndex, tupleIndex *int, isFromSignature bool) *TypeReference {
	switch t.ElementType {
	case etObject:
		if b.opts.UseDynamicType && info.isDynamicAt(*dynamicIndex) {
			*dynamicIndex++
			return Dynamic
		}
		*dynamicIndex++
		return primitiveRef(PrimObject)

	case etPtr:
		*dynamicIndex++
		return &TypeReference{Kind: RefPointer, Element: b.build(*t.Element, info, dynamicIndex, tupleIndex, isFromSignature)}

	case etByRef:
		*dynamicIndex++
		return &TypeReference{Kind: RefByRef, Element: b.build(*t.Element, info, dynamicIndex, tupleIndex, isFromSignature)}

	case etPinned:
		// Transparently unwrap to the element type (§4.2 case 8); pinned
		// carries no representation of its own in this type system.
		return b.build(*t.Element, info, dynamicIndex, tupleIndex, isFromSignature)

	case etVar:
		return &TypeReference{Kind: RefTypeParameter, ParamKind: ParamOfType, Position: int(t.VarIndex)}

	case etMVar:
		return &TypeReference{Kind: RefTypeParameter, ParamKind: ParamOfMethod, Position: int(t.VarIndex)}

	case etArray:
		*dynamicIndex++
		return &TypeReference{
			Kind:      RefArray,
			Element:   b.build(*t.Element, info, dynamicIndex, tupleIndex, isFromSignature),
			ArrayRank: int(t.ArrayRank),
		}

	case etSZArray:
		*dynamicIndex++
		return &TypeReference{
			Kind:      RefArray,
			Element:   b.build(*t.Element, info, dynamicIndex, tupleIndex, isFromSignature),
			ArrayRank: 1,
		}

	case etGenericInst:
		return b.buildGenericInstance(t, info, dynamicIndex, tupleIndex, isFromSignature)

	case etFnPtr:
		// Unrepresentable in this type system; substitute native int.
		return primitiveRef(PrimIntPtr)

	case etClass:
		if len(t.GenericArgs) > 0 {
			return b.buildGenericInstance(t, info, dynamicIndex, tupleIndex, isFromSignature)
		}
		return b.buildTokenRef(t.Token, isFromSignature, true)

	case etValueType:
		if len(t.GenericArgs) > 0 {
			return b.buildGenericInstance(t, info, dynamicIndex, tupleIndex, isFromSignature)
		}
		return b.buildTokenRef(t.Token, isFromSignature, false)

	default:
		if p, ok := elementToPrimitive[t.ElementType]; ok {
			return primitiveRef(p)
		}
		return Unknown
	}
}

func (b *referenceBuilder) buildGenericInstance(t pe.SignatureType, info dynamicTupleInfo, dynamicIndex, tupleIndex *int, isFromSignature bool) *TypeReference {
	open := b.buildTokenRef(t.Token, isFromSignature, t.ElementType == etClass)

	if b.opts.UseTupleTypes && isValueTupleOpenType(open) {
		return b.buildTuple(t, info, dynamicIndex, tupleIndex, isFromSignature)
	}

	args := make([]*TypeReference, len(t.GenericArgs))
	for i := range t.GenericArgs {
		*dynamicIndex++
		args[i] = b.build(t.GenericArgs[i], info, dynamicIndex, tupleIndex, isFromSignature)
	}
	return &TypeReference{Kind: RefGenericInstance, OpenType: open, GenericArgs: args}
}

func isValueTupleOpenType(ref *TypeReference) bool {
	return ref != nil && ref.Kind == RefNamed && ref.Namespace == "System" && strings.HasPrefix(ref.Name, "ValueTuple`")
}

// buildTuple flattens a System.ValueTuple instantiation per §4.2.1,
// following the TRest chain for cardinality >= 8 and consuming names from
// the tuple-element-names array positionally.
func (b *referenceBuilder) buildTuple(t pe.SignatureType, info dynamicTupleInfo, dynamicIndex, tupleIndex *int, isFromSignature bool) *TypeReference {
	startTuple := *tupleIndex

	var elements []*TypeReference
	cur := t
	for {
		n := len(cur.GenericArgs)
		limit := n
		if n == 8 {
			limit = 7
		}
		for i := 0; i < limit; i++ {
			*dynamicIndex++
			elements = append(elements, b.build(cur.GenericArgs[i], info, dynamicIndex, tupleIndex, isFromSignature))
		}
		if n != 8 {
			break
		}
		*dynamicIndex++
		rest := cur.GenericArgs[7]
		if rest.ElementType != etGenericInst {
			// Internal assertion only (§9): TRest not itself a value-tuple.
			// Diagnostic, not fatal; stop flattening with what we have.
			break
		}
		cur = rest
	}

	total := len(elements)
	names := make([]string, total)
	for i := 0; i < total; i++ {
		idx := startTuple + i
		if idx < len(info.TupleNames) {
			names[i] = info.TupleNames[idx]
		}
	}
	*tupleIndex = startTuple + total

	if total == 1 {
		return elements[0]
	}
	return &TypeReference{Kind: RefTuple, TupleElements: elements, TupleNames: names}
}

// buildTokenRef resolves a TypeDefOrRef coded token into a reference: a raw
// token for a TypeDef in this module (case 10), a named/nested reference
// for a TypeRef (cases 11/12), or the decoded underlying Type for a
// TypeSpec.
func (b *referenceBuilder) buildTokenRef(tok pe.TypeToken, isFromSignature, isReferenceTypeHint bool) *TypeReference {
	switch tok.Table {
	case pe.TypeDef:
		return &TypeReference{Kind: RefToken, Token: tok.Index}

	case pe.TypeRef:
		return b.buildTypeRefChain(tok.Index, isFromSignature, isReferenceTypeHint)

	case pe.TypeSpec:
		sig, err := b.src.file.DecodeTypeSpecSignature(tok.Index)
		if err != nil {
			return Unknown
		}
		return b.Build(sig, dynamicTupleInfo{}, isFromSignature)

	default:
		return Unknown
	}
}

func (b *referenceBuilder) buildTypeRefChain(rowIdx uint32, isFromSignature, isReferenceTypeHint bool) *TypeReference {
	typeRef, ok := row(b.src.typeRefs, rowIdx)
	if !ok {
		return Unknown
	}

	name := internStr(b.pool, b.src, typeRef.TypeName)
	ns := internStr(b.pool, b.src, typeRef.TypeNamespace)
	scopeTable, scopeRow := pe.DecodeResolutionScope(typeRef.ResolutionScope)

	var hint *bool
	if isFromSignature {
		v := isReferenceTypeHint
		hint = &v
	}

	if scopeTable == pe.TypeRef && scopeRow != 0 {
		decl := b.buildTypeRefChain(scopeRow, isFromSignature, isReferenceTypeHint)
		ref := &TypeReference{
			Kind:            RefNested,
			Name:            stripArity(name),
			Arity:           arityFromName(name),
			DeclaringType:   decl,
			IsReferenceType: hint,
		}
		return b.pool.internRef("nested:"+declKey(decl)+"/"+name, ref)
	}

	scopeName := ""
	if scopeTable == pe.AssemblyRef {
		if asmRef, ok := row(b.src.assemblyRefs, scopeRow); ok {
			scopeName = internStr(b.pool, b.src, asmRef.Name)
		}
	}

	ref := &TypeReference{
		Kind:            RefNamed,
		Namespace:       ns,
		Name:            stripArity(name),
		Arity:           arityFromName(name),
		AssemblyRef:     scopeName,
		IsReferenceType: hint,
	}
	return b.pool.internRef("named:"+scopeName+"/"+ns+"."+name, ref)
}

func declKey(ref *TypeReference) string {
	if ref == nil {
		return ""
	}
	if ref.DeclaringType != nil {
		return declKey(ref.DeclaringType) + "/" + ref.Name
	}
	return ref.Namespace + "." + ref.Name
}

func arityFromName(name string) int {
	i := strings.LastIndexByte(name, '`')
	if i < 0 {
		return 0
	}
	n, err := strconv.Atoi(name[i+1:])
	if err != nil {
		return 0
	}
	return n
}

func stripArity(name string) string {
	i := strings.LastIndexByte(name, '`')
	if i < 0 {
		return name
	}
	return name[:i]
}
