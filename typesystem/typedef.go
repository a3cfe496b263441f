// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package typesystem

import (
	pe "github.com/saferwall/clrts"
)

// typeDefReader builds an unresolved type definition from a TypeDef row,
// in the mandatory initialization order of §4.5.
type typeDefReader struct {
	opts    Options
	pool    pool
	src     *source
	refs    *referenceBuilder
	attr    *attributeReader
	members *memberReader
}

func newTypeDefReader(opts Options, p pool, src *source) *typeDefReader {
	return &typeDefReader{
		opts:    opts,
		pool:    p,
		src:     src,
		refs:    newReferenceBuilder(opts, p, src),
		attr:    newAttributeReader(opts, p, src),
		members: newMemberReader(opts, p, src),
	}
}

func typeAccessibility(flags uint32) Accessibility {
	switch flags & tdVisibilityMask {
	case tdNotPublic, tdNestedPrivate:
		return Private
	case tdPublic, tdNestedPublic:
		return Public
	case tdNestedFamily:
		return Protected
	case tdNestedAssembly:
		return Internal
	case tdNestedFamANDAssem:
		return PrivateProtected
	case tdNestedFamORAssem:
		return ProtectedInternal
	default:
		return Private
	}
}

// typeVisible implements the type-visibility filter of §4.4 ("public,
// family, or fam-or-assem, or the loader is configured to include
// internals"), applied uniformly to nested and top-level TypeDef rows
// (§4.7 step 3, §4.5's nested-type branch).
func typeVisible(flags uint32, isNested, includeInternal bool) bool {
	if includeInternal {
		return true
	}
	acc := typeAccessibility(flags)
	if isNested {
		return acc == Protected || acc == ProtectedInternal || acc == Public
	}
	return acc == Public
}

// ReadTypeDefinition builds a complete, eagerly materialized type
// definition for the TypeDef at typeDefIndex (1-based): the full §4.5
// sequence runs to completion before returning. declaringType is nil for a
// top-level type.
func (r *typeDefReader) ReadTypeDefinition(typeDefIndex uint32, declaringType *TypeDefinition) (*TypeDefinition, error) {
	t, td, isValueType, isEnum, err := r.readShallow(typeDefIndex, declaringType)
	if err != nil || t == nil {
		return t, err
	}
	if err := r.finish(t, td, typeDefIndex, isValueType, isEnum); err != nil {
		return nil, err
	}
	return t, nil
}

// readShallow performs §4.5 steps 1-5 and 9: the cheap, self-contained part
// of building a type definition that does not require walking nested types,
// attributes, base types, or members. Callers needing lazy materialization
// (§4.6) use this directly and defer the rest to EnsureLoaded via finish.
func (r *typeDefReader) readShallow(typeDefIndex uint32, declaringType *TypeDefinition) (*TypeDefinition, pe.TypeDefTableRow, bool, bool, error) {
	td, ok := row(r.src.typeDefs, typeDefIndex)
	if !ok {
		return nil, pe.TypeDefTableRow{}, false, false, ErrNilType
	}

	// Step 1: short name, namespace, token.
	t := &TypeDefinition{
		Namespace:     internStr(r.pool, r.src, td.TypeNamespace),
		Name:          internStr(r.pool, r.src, td.TypeName),
		Token:         typeDefIndex,
		DeclaringType: declaringType,
	}

	// Visibility filter (§4.4, §4.7 step 3), applied to both nested and
	// top-level TypeDef rows.
	if !typeVisible(td.Flags, declaringType != nil, r.opts.IncludeInternalMembers) {
		return nil, td, false, false, nil
	}

	isValueType := r.isValueType(td)
	isEnum := r.isEnum(td)

	// Step 3: kind. HasStandardModule only needs a name match against the
	// attached custom attributes, not their full decode, so kind
	// classification stays part of the shallow phase.
	hasModuleMarker := r.attr.hasMarkerAttribute(pe.TypeDef, typeDefIndex, attrStandardModule, attrCompilerGlobalScope)
	t.Kind = r.typeKind(td, isEnum, hasModuleMarker)

	// Step 4: modifiers.
	if declaringType != nil {
		t.Accessibility = typeAccessibility(td.Flags)
	} else if td.Flags&tdVisibilityMask == tdPublic {
		t.Accessibility = Public
	} else {
		t.Accessibility = Internal
	}
	t.IsSealed = td.Flags&tdSealed != 0
	t.IsAbstract = td.Flags&tdAbstract != 0
	t.IsStatic = t.IsSealed && t.IsAbstract

	// Step 5: type-parameter constraints and attributes.
	t.TypeParameters = r.members.readTypeParams(pe.TypeDef, typeDefIndex)

	// Step 9: default-constructor flag, decided purely by kind.
	t.AddDefaultConstructorIfRequired = t.Kind == KindStruct || t.Kind == KindEnum

	return t, td, isValueType, isEnum, nil
}

// finish performs §4.5 steps 6-8 and 10: nested types, attributes, base
// types, and members, the parts deferred under Options.LazyLoad.
func (r *typeDefReader) finish(t *TypeDefinition, td pe.TypeDefTableRow, typeDefIndex uint32, isValueType, isEnum bool) error {
	// Step 6: nested types (recursive; each nested type is itself built
	// eagerly here — only top-level types are individually deferred by the
	// assembly driver, §4.6).
	for nestedIdx, parentIdx := range r.src.nestedClassParents {
		if parentIdx != typeDefIndex {
			continue
		}
		nested, err := r.ReadTypeDefinition(nestedIdx, t)
		if err != nil {
			return err
		}
		if nested != nil {
			t.NestedTypes = append(t.NestedTypes, nested)
		}
	}
	sortTypeDefsByToken(t.NestedTypes)

	// Step 7: attributes.
	decoded := r.attr.readCustomAttributes(pe.TypeDef, typeDefIndex)
	security := r.attr.readSecurityDeclarations(pe.TypeDef, typeDefIndex)
	attrs := append(decoded.Attributes, security...)
	attrs = r.appendTypeMarkerAttributes(attrs, td, typeDefIndex, isValueType, isEnum)
	t.Attributes = attrs
	if decoded.HasExtension {
		t.HasExtensionMethods = true
	}

	// Step 8: base types.
	t.BaseTypes = r.readBaseTypes(td, typeDefIndex, t.Kind)

	// Step 10: members.
	t.Members = r.members.readMembers(typeDefIndex, t, t.Kind == KindInterface, decoded.DefaultMemberName)

	return nil
}

func sortTypeDefsByToken(types []*TypeDefinition) {
	for i := 1; i < len(types); i++ {
		for j := i; j > 0 && types[j].Token < types[j-1].Token; j-- {
			types[j], types[j-1] = types[j-1], types[j]
		}
	}
}

func (r *typeDefReader) isValueType(td pe.TypeDefTableRow) bool {
	table, rowIdx := pe.DecodeTypeDefOrRef(td.Extends)
	return r.isSystemType(table, rowIdx, "System", "ValueType") || r.isSystemType(table, rowIdx, "System", "Enum")
}

func (r *typeDefReader) isEnum(td pe.TypeDefTableRow) bool {
	table, rowIdx := pe.DecodeTypeDefOrRef(td.Extends)
	return r.isSystemType(table, rowIdx, "System", "Enum")
}

// isSystemType reports whether the Extends coded index names a well-known
// framework type by namespace/name, resolving through both a TypeRef
// (normal case) and a TypeDef (only plausible inside mscorlib/System.
// Private.CoreLib itself).
func (r *typeDefReader) isSystemType(table int, rowIdx uint32, ns, name string) bool {
	switch table {
	case pe.TypeRef:
		tr, ok := row(r.src.typeRefs, rowIdx)
		if !ok {
			return false
		}
		return r.src.str(tr.TypeNamespace) == ns && r.src.str(tr.TypeName) == name
	case pe.TypeDef:
		t, ok := row(r.src.typeDefs, rowIdx)
		if !ok {
			return false
		}
		return r.src.str(t.TypeNamespace) == ns && r.src.str(t.TypeName) == name
	}
	return false
}

// typeKind applies the interface > enum > struct > delegate > module >
// class precedence of §4.5 step 3.
func (r *typeDefReader) typeKind(td pe.TypeDefTableRow, isEnum, hasModuleMarker bool) TypeKind {
	if td.Flags&tdClassSemanticsMask == tdInterface {
		return KindInterface
	}
	if isEnum {
		return KindEnum
	}
	if r.isValueType(td) {
		return KindStruct
	}
	if r.isDelegate(td) {
		return KindDelegate
	}
	if hasModuleMarker {
		return KindModule
	}
	return KindClass
}

// isDelegate reports whether td derives from System.MulticastDelegate, or
// from System.Delegate under a name other than "MulticastDelegate" itself
// (§4.5 step 3).
func (r *typeDefReader) isDelegate(td pe.TypeDefTableRow) bool {
	table, rowIdx := pe.DecodeTypeDefOrRef(td.Extends)
	if r.isSystemType(table, rowIdx, "System", "MulticastDelegate") {
		return true
	}
	if r.isSystemType(table, rowIdx, "System", "Delegate") {
		return r.src.str(td.TypeName) != "MulticastDelegate"
	}
	return false
}

// appendTypeMarkerAttributes adds Serializable/ComImport/StructLayout
// markers derived from type flags rather than CustomAttribute rows (§4.3).
func (r *typeDefReader) appendTypeMarkerAttributes(attrs []*Attribute, td pe.TypeDefTableRow, typeDefIndex uint32, isValueType, isEnum bool) []*Attribute {
	const tdSerializable = 0x00002000
	const tdImport = 0x00001000

	if td.Flags&tdSerializable != 0 {
		attrs = append(attrs, synthSerializable())
	}
	if td.Flags&tdImport != 0 {
		attrs = append(attrs, synthComImport())
	}

	pack, size := uint16(0), uint32(0)
	if cl, ok := r.src.classLayoutByParent[typeDefIndex]; ok {
		pack, size = cl.PackingSize, cl.ClassSize
	}
	if sl := synthStructLayout(td.Flags, isValueType, isEnum, pack, size); sl != nil {
		attrs = append(attrs, sl)
	}
	return attrs
}

// readBaseTypes implements §4.5 step 8: for an enum, the underlying type
// comes from its first instance field; otherwise the explicit Extends base
// plus every implemented interface.
func (r *typeDefReader) readBaseTypes(td pe.TypeDefTableRow, typeDefIndex uint32, kind TypeKind) []*TypeReference {
	if kind == KindEnum {
		start, end := r.src.file.FieldRange(int(typeDefIndex))
		for fr := start; fr < end; fr++ {
			f, ok := row2(r.src.fields, fr)
			if !ok || f.Flags&fdStatic != 0 {
				continue
			}
			sig, err := r.src.file.DecodeFieldSignature(f.Signature)
			if err != nil {
				continue
			}
			return []*TypeReference{r.refs.Build(sig, dynamicTupleInfo{}, true)}
		}
		return nil
	}

	var bases []*TypeReference
	if table, rowIdx := pe.DecodeTypeDefOrRef(td.Extends); rowIdx != 0 {
		bases = append(bases, r.refs.buildTokenRef(pe.TypeToken{Table: table, Index: rowIdx}, false, true))
	}
	for _, impl := range r.src.interfaceImpls {
		if impl.Class != typeDefIndex {
			continue
		}
		table, rowIdx := pe.DecodeTypeDefOrRef(impl.Interface)
		bases = append(bases, r.refs.buildTokenRef(pe.TypeToken{Table: table, Index: rowIdx}, false, true))
	}
	return bases
}
