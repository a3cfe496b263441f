// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import "errors"

// ErrTruncatedSignature is reported when a signature blob ends in the
// middle of an element the grammar requires more bytes for.
var ErrTruncatedSignature = errors.New("truncated signature blob")

// ErrUnsupportedSignature is reported when a signature blob's leading
// calling-convention byte, or an element type byte inside it, is not one
// this decoder recognizes.
var ErrUnsupportedSignature = errors.New("unsupported signature encoding")

// ECMA-335 §II.23.1.16 element types. Only the ones a signature grammar can
// actually contain are named; the others (class/valuetype carry a coded
// token the same way, so they share a branch below).
const (
	elementTypeEnd           = 0x00
	elementTypeVoid          = 0x01
	elementTypeBoolean       = 0x02
	elementTypeChar          = 0x03
	elementTypeI1            = 0x04
	elementTypeU1            = 0x05
	elementTypeI2            = 0x06
	elementTypeU2            = 0x07
	elementTypeI4            = 0x08
	elementTypeU4            = 0x09
	elementTypeI8            = 0x0a
	elementTypeU8            = 0x0b
	elementTypeR4            = 0x0c
	elementTypeR8            = 0x0d
	elementTypeString        = 0x0e
	elementTypePtr           = 0x0f
	elementTypeByRef         = 0x10
	elementTypeValueType     = 0x11
	elementTypeClass         = 0x12
	elementTypeVar           = 0x13
	elementTypeArray         = 0x14
	elementTypeGenericInst   = 0x15
	elementTypeTypedByRef    = 0x16
	elementTypeI             = 0x18
	elementTypeU             = 0x19
	elementTypeFnPtr         = 0x1b
	elementTypeObject        = 0x1c
	elementTypeSZArray       = 0x1d
	elementTypeMVar          = 0x1e
	elementTypeCModReqd      = 0x1f
	elementTypeCModOpt       = 0x20
	elementTypeInternal      = 0x21
	elementTypeModifier      = 0x40
	elementTypeSentinel      = 0x41
	elementTypePinned        = 0x45
)

// ECMA-335 §II.23.2.1 signature calling-convention/kind byte: the kind is the
// low nibble; sigGeneric, sigHasThis and sigExplicitThis are flag bits in the
// high nibble.
const (
	sigDefault      = 0x0
	sigVarArg       = 0x5
	sigGeneric      = 0x10
	sigHasThis      = 0x20
	sigExplicitThis = 0x40
	sigField        = 0x6
	sigLocalVar     = 0x7
	sigProperty     = 0x8
)

// TypeToken identifies a TypeDef/TypeRef/TypeSpec named by a coded index
// embedded in a signature (the class/valuetype element types).
type TypeToken struct {
	Table int    // TypeDef, TypeRef, or TypeSpec
	Index uint32 // row index (1-based) into that table
}

// CustomMod is one custom-modifier prefix (cmod_reqd or cmod_opt) attached
// to a signature type, per ECMA-335 §II.23.2.7.
type CustomMod struct {
	Required bool
	Type     TypeToken
}

// SignatureType is the decoded form of one ECMA-335 §II.23.2.12 `Type`
// production: a recursive tree mirroring the grammar (ptr/byref/pinned/array/
// szarray wrap an Element; a genericinst keeps its class/valuetype base in
// ElementType, the generic type in Token, and its arguments in GenericArgs).
type SignatureType struct {
	ElementType byte
	Mods        []CustomMod

	// Set when ElementType is class/valuetype/var/mvar.
	Token     TypeToken
	VarIndex  uint32

	// Set when ElementType is ptr/byref/szarray/pinned/array.
	Element *SignatureType

	// Set when ElementType is array.
	ArrayRank         uint32
	ArraySizes        []uint32
	ArrayLowerBounds  []int32

	// Set for a generic instantiation; ElementType then holds its
	// class/valuetype base.
	GenericArgs []SignatureType
}

// ParamSignature is one parameter or return type entry of a decoded method
// signature.
type ParamSignature struct {
	Mods    []CustomMod
	ByRef   bool
	Type    SignatureType
}

// MethodSignature is the decoded form of a MethodDefSig/MethodRefSig,
// ECMA-335 §II.23.2.1.
type MethodSignature struct {
	HasThis         bool
	ExplicitThis    bool
	IsVarArg        bool
	GenericParamCount uint32
	RetType         ParamSignature
	Params          []ParamSignature
	// VarArgParams holds the trailing parameters that follow the sentinel
	// in a vararg call-site signature; nil outside that case.
	VarArgParams []ParamSignature
}

// sigReader walks a signature blob left to right, consuming compressed
// integers and element-type bytes as the grammar dictates.
type sigReader struct {
	data []byte
	pos  int
}

func (r *sigReader) byte() (byte, bool) {
	if r.pos >= len(r.data) {
		return 0, false
	}
	b := r.data[r.pos]
	r.pos++
	return b, true
}

func (r *sigReader) compressedUint() (uint32, bool) {
	v, n, ok := decodeCompressedUint(r.data[r.pos:])
	if !ok {
		return 0, false
	}
	r.pos += n
	return v, true
}

func (r *sigReader) compressedInt() (int32, bool) {
	v, n, ok := decodeCompressedInt(r.data[r.pos:])
	if !ok {
		return 0, false
	}
	r.pos += n
	return v, true
}

// decodeTypeToken decodes a TypeDefOrRef coded index compressed the way
// ECMA-335 §II.23.2.8 packs it inside a signature: the 2-bit tag lives in
// the low bits of the single compressed integer, not as a separate coded
// index read via the table-stream-width rules in dotnet_helper.go.
func decodeTypeToken(r *sigReader) (TypeToken, bool) {
	v, ok := r.compressedUint()
	if !ok {
		return TypeToken{}, false
	}
	tables := []int{TypeDef, TypeRef, TypeSpec}
	tag := v & 0x3
	if int(tag) >= len(tables) {
		return TypeToken{}, false
	}
	return TypeToken{Table: tables[tag], Index: v >> 2}, true
}

func decodeCustomMods(r *sigReader) ([]CustomMod, error) {
	var mods []CustomMod
	for {
		if r.pos >= len(r.data) {
			return mods, nil
		}
		b := r.data[r.pos]
		if b != elementTypeCModReqd && b != elementTypeCModOpt {
			return mods, nil
		}
		r.pos++
		tok, ok := decodeTypeToken(r)
		if !ok {
			return nil, ErrTruncatedSignature
		}
		mods = append(mods, CustomMod{Required: b == elementTypeCModReqd, Type: tok})
	}
}

// decodeSignatureType decodes one `Type` production, recursing into
// pointer/array/generic element types as needed.
func decodeSignatureType(r *sigReader) (SignatureType, error) {
	mods, err := decodeCustomMods(r)
	if err != nil {
		return SignatureType{}, err
	}

	b, ok := r.byte()
	if !ok {
		return SignatureType{}, ErrTruncatedSignature
	}

	t := SignatureType{ElementType: b, Mods: mods}

	switch b {
	case elementTypeVoid, elementTypeBoolean, elementTypeChar,
		elementTypeI1, elementTypeU1, elementTypeI2, elementTypeU2,
		elementTypeI4, elementTypeU4, elementTypeI8, elementTypeU8,
		elementTypeR4, elementTypeR8, elementTypeString, elementTypeI,
		elementTypeU, elementTypeObject, elementTypeTypedByRef:
		return t, nil

	case elementTypeValueType, elementTypeClass:
		tok, ok := decodeTypeToken(r)
		if !ok {
			return t, ErrTruncatedSignature
		}
		t.Token = tok
		return t, nil

	case elementTypeVar, elementTypeMVar:
		idx, ok := r.compressedUint()
		if !ok {
			return t, ErrTruncatedSignature
		}
		t.VarIndex = idx
		return t, nil

	case elementTypePtr, elementTypePinned:
		inner, err := decodeSignatureType(r)
		if err != nil {
			return t, err
		}
		t.Element = &inner
		return t, nil

	case elementTypeByRef:
		inner, err := decodeSignatureType(r)
		if err != nil {
			return t, err
		}
		t.Element = &inner
		return t, nil

	case elementTypeSZArray:
		inner, err := decodeSignatureType(r)
		if err != nil {
			return t, err
		}
		t.Element = &inner
		return t, nil

	case elementTypeArray:
		inner, err := decodeSignatureType(r)
		if err != nil {
			return t, err
		}
		t.Element = &inner

		rank, ok := r.compressedUint()
		if !ok {
			return t, ErrTruncatedSignature
		}
		t.ArrayRank = rank

		numSizes, ok := r.compressedUint()
		if !ok {
			return t, ErrTruncatedSignature
		}
		for i := uint32(0); i < numSizes; i++ {
			sz, ok := r.compressedUint()
			if !ok {
				return t, ErrTruncatedSignature
			}
			t.ArraySizes = append(t.ArraySizes, sz)
		}

		numLoBounds, ok := r.compressedUint()
		if !ok {
			return t, ErrTruncatedSignature
		}
		for i := uint32(0); i < numLoBounds; i++ {
			lo, ok := r.compressedInt()
			if !ok {
				return t, ErrTruncatedSignature
			}
			t.ArrayLowerBounds = append(t.ArrayLowerBounds, lo)
		}
		return t, nil

	case elementTypeGenericInst:
		genBase, ok := r.byte()
		if !ok || (genBase != elementTypeClass && genBase != elementTypeValueType) {
			return t, ErrTruncatedSignature
		}
		tok, ok := decodeTypeToken(r)
		if !ok {
			return t, ErrTruncatedSignature
		}
		t.Token = tok
		t.ElementType = genBase

		argCount, ok := r.compressedUint()
		if !ok {
			return t, ErrTruncatedSignature
		}
		t.GenericArgs = make([]SignatureType, argCount)
		for i := uint32(0); i < argCount; i++ {
			arg, err := decodeSignatureType(r)
			if err != nil {
				return t, err
			}
			t.GenericArgs[i] = arg
		}
		return t, nil

	case elementTypeFnPtr:
		// A method signature unrepresentable in the type system this
		// decoder feeds; consume it so the reader stays in sync with the
		// bytes that follow, but keep no structured form of it.
		if _, err := decodeMethodSignatureInline(r); err != nil {
			return t, err
		}
		return t, nil

	default:
		return t, ErrUnsupportedSignature
	}
}

func decodeParam(r *sigReader) (ParamSignature, error) {
	mods, err := decodeCustomMods(r)
	if err != nil {
		return ParamSignature{}, err
	}

	if r.pos < len(r.data) && r.data[r.pos] == elementTypeByRef {
		r.pos++
		typ, err := decodeSignatureType(r)
		if err != nil {
			return ParamSignature{}, err
		}
		return ParamSignature{Mods: mods, ByRef: true, Type: typ}, nil
	}

	typ, err := decodeSignatureType(r)
	if err != nil {
		return ParamSignature{}, err
	}
	return ParamSignature{Mods: mods, Type: typ}, nil
}

// decodeMethodSignatureInline decodes a MethodDefSig or MethodRefSig,
// ECMA-335 §II.23.2.1-2, continuing from the given reader's current
// position (used both at the top level and for a FNPTR's embedded
// signature, ECMA-335 §II.23.2.12), including the vararg sentinel split a
// call-site signature can carry.
func decodeMethodSignatureInline(r *sigReader) (MethodSignature, error) {
	flags, ok := r.byte()
	if !ok {
		return MethodSignature{}, ErrTruncatedSignature
	}

	sig := MethodSignature{
		HasThis:      flags&sigHasThis != 0,
		ExplicitThis: flags&sigExplicitThis != 0,
		IsVarArg:     flags&0x0f == sigVarArg,
	}

	if flags&sigGeneric != 0 {
		count, ok := r.compressedUint()
		if !ok {
			return sig, ErrTruncatedSignature
		}
		sig.GenericParamCount = count
	}

	paramCount, ok := r.compressedUint()
	if !ok {
		return sig, ErrTruncatedSignature
	}

	ret, err := decodeParam(r)
	if err != nil {
		return sig, err
	}
	sig.RetType = ret

	for i := uint32(0); i < paramCount; i++ {
		if r.pos < len(r.data) && r.data[r.pos] == elementTypeSentinel {
			r.pos++
			sig.VarArgParams = make([]ParamSignature, 0, paramCount-i)
			for ; i < paramCount; i++ {
				p, err := decodeParam(r)
				if err != nil {
					return sig, err
				}
				sig.VarArgParams = append(sig.VarArgParams, p)
			}
			break
		}
		p, err := decodeParam(r)
		if err != nil {
			return sig, err
		}
		sig.Params = append(sig.Params, p)
	}

	return sig, nil
}

// decodeMethodSignature decodes a MethodDefSig or MethodRefSig from a
// standalone blob.
func decodeMethodSignature(data []byte) (MethodSignature, error) {
	return decodeMethodSignatureInline(&sigReader{data: data})
}

// decodeFieldSignature decodes a FieldSig, ECMA-335 §II.23.2.4: the 0x06
// tag byte followed by custom mods and one Type.
func decodeFieldSignature(data []byte) (SignatureType, error) {
	r := &sigReader{data: data}
	tag, ok := r.byte()
	if !ok {
		return SignatureType{}, ErrTruncatedSignature
	}
	if tag != sigField {
		return SignatureType{}, ErrUnsupportedSignature
	}
	return decodeSignatureType(r)
}

// decodePropertySignature decodes a PropertySig, ECMA-335 §II.23.2.5.
func decodePropertySignature(data []byte) (MethodSignature, error) {
	r := &sigReader{data: data}
	tag, ok := r.byte()
	if !ok {
		return MethodSignature{}, ErrTruncatedSignature
	}
	if tag&0x0f != sigProperty {
		return MethodSignature{}, ErrUnsupportedSignature
	}

	sig := MethodSignature{HasThis: tag&sigHasThis != 0}

	paramCount, ok := r.compressedUint()
	if !ok {
		return sig, ErrTruncatedSignature
	}

	typ, err := decodeSignatureType(r)
	if err != nil {
		return sig, err
	}
	sig.RetType = ParamSignature{Type: typ}

	for i := uint32(0); i < paramCount; i++ {
		p, err := decodeParam(r)
		if err != nil {
			return sig, err
		}
		sig.Params = append(sig.Params, p)
	}
	return sig, nil
}

// DecodeMethodSignature resolves a Blob-heap index to a decoded method
// signature, for MethodDef/MemberRef/StandAloneSig rows.
func (pe *File) DecodeMethodSignature(blobIndex uint32) (MethodSignature, error) {
	data, err := pe.BlobHeap(blobIndex)
	if err != nil {
		return MethodSignature{}, err
	}
	return decodeMethodSignature(data)
}

// DecodeFieldSignature resolves a Blob-heap index to a decoded field type,
// for Field rows.
func (pe *File) DecodeFieldSignature(blobIndex uint32) (SignatureType, error) {
	data, err := pe.BlobHeap(blobIndex)
	if err != nil {
		return SignatureType{}, err
	}
	return decodeFieldSignature(data)
}

// DecodePropertySignature resolves a Blob-heap index to a decoded property
// signature, for Property rows.
func (pe *File) DecodePropertySignature(blobIndex uint32) (MethodSignature, error) {
	data, err := pe.BlobHeap(blobIndex)
	if err != nil {
		return MethodSignature{}, err
	}
	return decodePropertySignature(data)
}

// DecodeTypeSpecSignature resolves a Blob-heap index to a decoded Type, for
// TypeSpec rows, whose blob is a bare Type production with no leading tag
// byte (ECMA-335 §II.23.2.14).
func (pe *File) DecodeTypeSpecSignature(blobIndex uint32) (SignatureType, error) {
	data, err := pe.BlobHeap(blobIndex)
	if err != nil {
		return SignatureType{}, err
	}
	return decodeSignatureType(&sigReader{data: data})
}

// FuzzSignature is a go-fuzz entry point exercising only the compressed-signature
// decoder, the one piece of new byte parsing that walks a recursive,
// attacker-controlled grammar.
func FuzzSignature(data []byte) int {
	if _, err := decodeMethodSignature(data); err != nil {
		return 0
	}
	return 1
}
