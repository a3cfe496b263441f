// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package typesystem

import (
	"encoding/binary"
	"fmt"

	pe "github.com/saferwall/clrts"
)

// Attribute is an unresolved custom attribute, security declaration, or one
// of the synthesized attributes the reader derives from non-attribute
// metadata (§3, §4.3). For a user custom attribute, Blob carries the raw
// serialized fixed/named-argument bytes for deferred decoding; for a
// synthesized attribute, PositionalArgs/NamedArgs are already populated and
// Blob is nil.
type Attribute struct {
	Type                  *TypeReference
	ConstructorParamTypes []*TypeReference
	Blob                  []byte
	PositionalArgs        []interface{}
	NamedArgs             map[string]interface{}

	// SecurityAction is set (non-zero, see pe's DeclSecurity action codes)
	// only for a wrapped security declaration; RawPermissionSet then holds
	// its undecoded PermissionSet blob (§4.3, SPEC_FULL supplement 6).
	SecurityAction     uint16
	RawPermissionSet   []byte
	IsSecurityWrapper  bool
}

// filtered attribute type names never emitted because they are represented
// structurally elsewhere (§4.3, §8).
const (
	attrExtension           = "ExtensionAttribute"
	attrDecimalConstant     = "DecimalConstantAttribute"
	attrDynamic             = "DynamicAttribute"
	attrTupleElementNames   = "TupleElementNamesAttribute"
	attrParamArray          = "ParamArrayAttribute"
	attrDefaultMember       = "DefaultMemberAttribute"
	attrStandardModule      = "StandardModuleAttribute"
	attrCompilerGlobalScope = "CompilerGlobalScopeAttribute"
)

// attributeReader decodes the custom attributes, security declarations, and
// synthesized marker attributes attached to metadata entities (§4.3).
type attributeReader struct {
	opts Options
	pool pool
	src  *source
}

func newAttributeReader(opts Options, p pool, src *source) *attributeReader {
	return &attributeReader{opts: opts, pool: p, src: src}
}

// attributeTypeRef resolves a CustomAttribute.Type coded index (MethodDef
// or MemberRef, naming the attribute's constructor) to the attribute type's
// own reference, by walking the constructor's owning class.
func (r *attributeReader) attributeTypeRef(typeCoded uint32) (*TypeReference, []*TypeReference, string) {
	table, rowIdx := pe.DecodeCustomAttributeType(typeCoded)
	switch table {
	case pe.MethodDef:
		m, ok := row(r.src.methods, rowIdx)
		if !ok {
			return Unknown, nil, ""
		}
		td, ok := r.src.owningTypeDefOfMethod(rowIdx)
		if !ok {
			return Unknown, nil, ""
		}
		sig, err := r.src.file.DecodeMethodSignature(m.Signature)
		var ctorTypes []*TypeReference
		if err == nil {
			b := newReferenceBuilder(r.opts, r.pool, r.src)
			for _, p := range sig.Params {
				ctorTypes = append(ctorTypes, b.Build(p.Type, dynamicTupleInfo{}, true))
			}
		}
		return &TypeReference{Kind: RefToken, Token: td}, ctorTypes, r.src.str(m.Name)

	case pe.MemberRef:
		mr, ok := row(r.src.memberRefs, rowIdx)
		if !ok {
			return Unknown, nil, ""
		}
		b := newReferenceBuilder(r.opts, r.pool, r.src)
		parentTable, parentRow := pe.DecodeMemberRefParent(mr.Class)
		ref := b.buildTokenRef(pe.TypeToken{Table: parentTable, Index: parentRow}, false, false)

		var ctorTypes []*TypeReference
		sig, err := r.src.file.DecodeMethodSignature(mr.Signature)
		if err == nil {
			for _, p := range sig.Params {
				ctorTypes = append(ctorTypes, b.Build(p.Type, dynamicTupleInfo{}, true))
			}
		}
		return ref, ctorTypes, r.src.str(mr.Name)

	default:
		return Unknown, nil, ""
	}
}

// referenceShortName returns the leaf type name a TypeReference names,
// regardless of shape, so a filter check can compare it against a literal
// without caring whether the reference resolved to a token, named, or
// nested shape.
func (r *attributeReader) referenceShortName(ref *TypeReference) string {
	if ref == nil {
		return ""
	}
	switch ref.Kind {
	case RefNamed, RefNested:
		return ref.Name
	case RefToken:
		if td, ok := row(r.src.typeDefs, ref.Token); ok {
			return r.src.str(td.TypeName)
		}
	}
	return ""
}

// attrKey builds an interning key for a user custom attribute from its type
// reference and raw blob, the same string-keyed pattern
// referenceBuilder.buildTypeRefChain uses for internRef (§4.1): two rows
// naming the same attribute constructor with byte-identical argument blobs
// are value-equal and should share one record.
func attrKey(typeRef *TypeReference, blob []byte) string {
	return "attr:" + typeRefDescriptor(typeRef) + ":" + string(blob)
}

// readCustomAttributes decodes every CustomAttribute row attached to
// (table, rowIdx), filters out the kinds represented structurally
// elsewhere, and returns the preserved list plus a few auxiliary signals
// the member/type-definition readers need from attributes that ARE
// filtered out (dynamic flags, tuple names, default-member name).
type decodedAttributes struct {
	Attributes         []*Attribute
	DynamicFlags       []bool
	TupleNames         []string
	DefaultMemberName  string
	HasExtension       bool
	HasParamArray      bool
	HasDecimalConstant bool
	DecimalConstant    Decimal
	HasStandardModule  bool
}

func (r *attributeReader) readCustomAttributes(table int, rowIdx uint32) decodedAttributes {
	var out decodedAttributes
	rows := r.src.customAttributesOf(table, rowIdx)
	for _, ca := range rows {
		typeRef, ctorTypes, ctorName := r.attributeTypeRef(ca.Type)
		name := r.referenceShortName(typeRef)
		blob := r.src.blob(ca.Value)

		switch name {
		case attrExtension:
			out.HasExtension = true
			continue
		case attrDecimalConstant:
			if d, ok := decodeDecimalConstant(blob); ok {
				out.HasDecimalConstant = true
				out.DecimalConstant = d
			}
			continue
		case attrDynamic:
			if r.opts.UseDynamicType {
				out.DynamicFlags = decodeDynamicAttributeBlob(blob)
				continue
			}
		case attrTupleElementNames:
			if r.opts.UseTupleTypes {
				out.TupleNames = decodeTupleElementNamesBlob(blob)
				continue
			}
		case attrParamArray:
			out.HasParamArray = true
			continue
		case attrDefaultMember:
			if s, ok := decodeSingleStringArg(blob); ok {
				out.DefaultMemberName = s
			}
			continue
		case attrStandardModule, attrCompilerGlobalScope:
			out.HasStandardModule = true
			// Still preserved in the emitted list; these aren't filtered by
			// §4.3, only consumed as a signal by the type-kind step.
		}

		attr := &Attribute{
			Type:                  typeRef,
			ConstructorParamTypes: ctorTypes,
			Blob:                  blob,
		}
		_ = ctorName
		out.Attributes = append(out.Attributes, r.pool.internAttr(attrKey(typeRef, blob), attr))
	}
	return out
}

// hasMarkerAttribute reports whether any CustomAttribute row attached to
// (table, rowIdx) names one of the given attribute types, without building
// the full decoded attribute list — used for cheap kind-classification
// signals a lazy type definition needs before its full attribute decode
// (§4.5, §4.6).
func (r *attributeReader) hasMarkerAttribute(table int, rowIdx uint32, names ...string) bool {
	for _, ca := range r.src.customAttributesOf(table, rowIdx) {
		typeRef, _, _ := r.attributeTypeRef(ca.Type)
		name := r.referenceShortName(typeRef)
		for _, want := range names {
			if name == want {
				return true
			}
		}
	}
	return false
}

// readSecurityDeclarations wraps every DeclSecurity row attached to
// (table, rowIdx) without attempting to decode either PermissionSet wire
// format (§7, SPEC_FULL supplement 6); a blob read failure is simply
// skipped (§7).
func (r *attributeReader) readSecurityDeclarations(table int, rowIdx uint32) []*Attribute {
	var out []*Attribute
	for _, d := range r.src.declSecurityOf(table, rowIdx) {
		blob := r.src.blob(d.PermissionSet)
		if blob == nil && d.PermissionSet != 0 {
			continue
		}
		key := fmt.Sprintf("security:%d:%x", d.Action, blob)
		out = append(out, r.pool.internAttr(key, &Attribute{
			IsSecurityWrapper: true,
			SecurityAction:    d.Action,
			RawPermissionSet:  blob,
		}))
	}
	return out
}

// decodeDynamicAttributeBlob reads a DynamicAttribute(bool[]) constructor
// blob into a flattened bool slice, consulted positionally by dynamicIndex
// (§4.2). The no-argument DynamicAttribute() form (single true everywhere a
// System.Object slot appears) is represented as a one-element {true} slice;
// isDynamicAt treats an out-of-range index as false, which only matches
// the single-slot case correctly — callers needing the broadcast behavior
// must special-case a length-1 array themselves. Malformed blobs yield nil
// (§7).
func decodeDynamicAttributeBlob(blob []byte) []bool {
	// A bare prolog plus a zero named-argument count is the no-argument form.
	if len(blob) == 4 && blob[0] == 0x01 && blob[1] == 0x00 && blob[2] == 0 && blob[3] == 0 {
		return []bool{true}
	}
	args, ok := decodeBoolArrayBlob(blob)
	if !ok {
		return nil
	}
	return args
}

// decodeTupleElementNamesBlob reads a TupleElementNamesAttribute(string[])
// constructor blob into its element-name array; a null string entry (a
// 0xff length prefix, ECMA-335 §II.23.2.4) yields "" per the unnamed-
// element rule in §4.2.1.
func decodeTupleElementNamesBlob(blob []byte) []string {
	names, ok := decodeStringArrayBlob(blob)
	if !ok {
		return nil
	}
	return names
}

func decodeSingleStringArg(blob []byte) (string, bool) {
	r := &attrBlobReader{data: blob}
	if !r.prolog() {
		return "", false
	}
	return r.str()
}

// decodeCompressedUint decodes one ECMA-335 §II.23.2 compressed unsigned
// integer from the front of data, the same encoding clrts's own blob-heap
// reader uses (dotnet_heap.go) — duplicated here rather than exported
// across the package boundary, since attribute blobs are this package's
// own concern and the encoding is a stable, self-contained piece of the
// spec rather than something worth a cross-package dependency for.
func decodeCompressedUint(data []byte) (uint32, int, bool) {
	if len(data) == 0 {
		return 0, 0, false
	}
	b0 := data[0]
	switch {
	case b0&0x80 == 0:
		return uint32(b0), 1, true
	case b0&0xc0 == 0x80:
		if len(data) < 2 {
			return 0, 0, false
		}
		return (uint32(b0&0x3f) << 8) | uint32(data[1]), 2, true
	case b0&0xe0 == 0xc0:
		if len(data) < 4 {
			return 0, 0, false
		}
		v := (uint32(b0&0x1f) << 24) | (uint32(data[1]) << 16) |
			(uint32(data[2]) << 8) | uint32(data[3])
		return v, 4, true
	default:
		return 0, 0, false
	}
}

// attrBlobReader walks a custom-attribute blob per ECMA-335 §II.23.3:
// 2-byte prolog 0x0001, then fixed args in constructor-signature order,
// then (for us, unused) a named-arg count and named args.
type attrBlobReader struct {
	data []byte
	pos  int
}

func (r *attrBlobReader) prolog() bool {
	if len(r.data) < 2 {
		return false
	}
	ok := r.data[0] == 0x01 && r.data[1] == 0x00
	r.pos = 2
	return ok
}

func (r *attrBlobReader) u8() (byte, bool) {
	if r.pos >= len(r.data) {
		return 0, false
	}
	b := r.data[r.pos]
	r.pos++
	return b, true
}

func (r *attrBlobReader) u16() (uint16, bool) {
	if r.pos+2 > len(r.data) {
		return 0, false
	}
	v := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, true
}

func (r *attrBlobReader) u32() (uint32, bool) {
	if r.pos+4 > len(r.data) {
		return 0, false
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, true
}

// compressedLen reads a §II.23.2 packed length prefix, with the 0xff
// "null string" sentinel reported separately (used by UTF-8 packed strings
// inside attribute blobs, a different encoding than the #Blob heap's own
// compressed-uint prefix but the same bit layout for the 1/2/4-byte cases).
func (r *attrBlobReader) compressedLen() (int, bool, bool) {
	if r.pos >= len(r.data) {
		return 0, false, false
	}
	if r.data[r.pos] == 0xff {
		r.pos++
		return 0, true, true
	}
	v, n, ok := decodeCompressedUint(r.data[r.pos:])
	if !ok {
		return 0, false, false
	}
	r.pos += n
	return int(v), false, true
}

func (r *attrBlobReader) str() (string, bool) {
	n, isNull, ok := r.compressedLen()
	if !ok {
		return "", false
	}
	if isNull {
		return "", true
	}
	if r.pos+n > len(r.data) {
		return "", false
	}
	s := string(r.data[r.pos : r.pos+n])
	r.pos += n
	return s, true
}

func decodeBoolArrayBlob(blob []byte) ([]bool, bool) {
	r := &attrBlobReader{data: blob}
	if !r.prolog() {
		return nil, false
	}
	n, ok := r.u32()
	if !ok {
		return nil, false
	}
	if n == 0xffffffff {
		return nil, true
	}
	out := make([]bool, n)
	for i := range out {
		b, ok := r.u8()
		if !ok {
			return nil, false
		}
		out[i] = b != 0
	}
	return out, true
}

func decodeStringArrayBlob(blob []byte) ([]string, bool) {
	r := &attrBlobReader{data: blob}
	if !r.prolog() {
		return nil, false
	}
	n, ok := r.u32()
	if !ok {
		return nil, false
	}
	if n == 0xffffffff {
		return nil, true
	}
	out := make([]string, n)
	for i := range out {
		s, ok := r.str()
		if !ok {
			return nil, false
		}
		out[i] = s
	}
	return out, true
}

// owningTypeDefOfMethod finds the TypeDef row that owns methodRow via the
// MethodDef ranges already materialized in pe (dotnet_model.go), used when
// a custom attribute's constructor is itself a MethodDef (the attribute
// type is defined in this module).
func (s *source) owningTypeDefOfMethod(methodRow uint32) (uint32, bool) {
	for i := range s.typeDefs {
		start, end := s.file.MethodRange(i + 1)
		if methodRow >= start && methodRow < end {
			return uint32(i + 1), true
		}
	}
	return 0, false
}

// owningTypeDefOfField is the Field-table analog of owningTypeDefOfMethod.
func (s *source) owningTypeDefOfField(fieldRow uint32) (uint32, bool) {
	for i := range s.typeDefs {
		start, end := s.file.FieldRange(i + 1)
		if fieldRow >= start && fieldRow < end {
			return uint32(i + 1), true
		}
	}
	return 0, false
}
