// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package typesystem

import pe "github.com/saferwall/clrts"

// This file derives the "synthesized" attributes of §4.3: markers the
// reader manufactures from non-attribute metadata columns (P/Invoke rows,
// struct-layout rows, method-impl flags) rather than from a CustomAttribute
// row, because the CLI represents these as dedicated table columns instead
// of a general attribute blob.

func namedAttrRef(ns, name string) *TypeReference {
	return &TypeReference{Kind: RefNamed, Namespace: ns, Name: name}
}

func interopAttr(name string) *TypeReference {
	return namedAttrRef("System.Runtime.InteropServices", name)
}

// ECMA-335 §II.23.1.8 PInvokeAttributes char-set values, reused as the
// DllImportAttribute.CharSet field's encoding.
const (
	charSetNone    = 0
	charSetAnsi    = 1
	charSetUnicode = 2
	charSetAuto    = 3
)

func pinvokeCharSet(flags uint16) int {
	switch flags & pmCharSetMask {
	case pmCharSetAnsi:
		return charSetAnsi
	case pmCharSetUnicode:
		return charSetUnicode
	case pmCharSetAuto:
		return charSetAuto
	default:
		return charSetNone
	}
}

func pinvokeCallingConvention(flags uint16) string {
	switch flags & pmCallConvMask {
	case pmCallConvCdecl:
		return "Cdecl"
	case pmCallConvStdcall:
		return "StdCall"
	case pmCallConvThiscall:
		return "ThisCall"
	case pmCallConvFastcall:
		return "FastCall"
	default:
		return "Winapi"
	}
}

// synthDllImport builds the DllImportAttribute for a P/Invoke method, per
// §4.3. It also reports whether PreserveSig was absorbed from implFlags so
// the caller does not re-emit it as a standalone marker.
func synthDllImport(methodName, importName string, im pe.ImplMapTableRow, moduleName string, implFlags uint16) (*Attribute, bool) {
	named := map[string]interface{}{}

	if im.MappingFlags&pmBestFitMask != pmBestFitUseAssem {
		named["BestFitMapping"] = im.MappingFlags&pmBestFitMask == pmBestFitEnabled
	}
	if cc := pinvokeCallingConvention(im.MappingFlags); cc != "Winapi" {
		named["CallingConvention"] = cc
	}
	if cs := pinvokeCharSet(im.MappingFlags); cs != charSetNone {
		named["CharSet"] = cs
	}
	if importName != "" && importName != methodName {
		named["EntryPoint"] = importName
	}

	preserveSig := implFlags&miPreserveSig != 0
	if preserveSig {
		named["PreserveSig"] = true
	}

	if im.MappingFlags&pmNoMangle != 0 {
		named["ExactSpelling"] = true
	}
	if im.MappingFlags&pmSupportsLastError != 0 {
		named["SetLastError"] = true
	}

	switch im.MappingFlags & pmThrowOnUnmappableMask {
	case pmThrowOnUnmappableOn:
		named["ThrowOnUnmappableChar"] = true
	case pmThrowOnUnmappableOff:
		named["ThrowOnUnmappableChar"] = false
	}

	return &Attribute{
		Type:           interopAttr("DllImportAttribute"),
		PositionalArgs: []interface{}{moduleName},
		NamedArgs:      named,
	}, preserveSig
}

func synthPreserveSig() *Attribute {
	return &Attribute{Type: interopAttr("PreserveSigAttribute")}
}

// synthMethodImpl emits the MethodImplAttribute for the residual impl
// flags once PreserveSig (if any) has been absorbed by DllImport/
// synthPreserveSig (§4.3).
func synthMethodImpl(residual uint16) *Attribute {
	if residual == 0 {
		return nil
	}
	return &Attribute{
		Type:           namedAttrRef("System.Runtime.CompilerServices", "MethodImplAttribute"),
		PositionalArgs: []interface{}{residual},
	}
}

func synthSerializable() *Attribute {
	return &Attribute{Type: namedAttrRef("System", "SerializableAttribute")}
}

func synthComImport() *Attribute {
	return &Attribute{Type: interopAttr("ComImportAttribute")}
}

// layoutKind mirrors System.Runtime.InteropServices.LayoutKind.
const (
	layoutSequential = 0
	layoutExplicit   = 2
	layoutAuto       = 3
)

// defaultLayoutKind is the kind-specific default StructLayout assumes when
// none is emitted: Sequential for a non-enum value type, Auto otherwise
// (§4.3, §8 scenario 4).
func defaultLayoutKind(isValueType, isEnum bool) int {
	if isValueType && !isEnum {
		return layoutSequential
	}
	return layoutAuto
}

// synthStructLayout emits StructLayoutAttribute only when layout kind,
// char set, packing size, or class size differ from the kind-specific
// default (§4.3, §8 scenario 4).
func synthStructLayout(typeFlags uint32, isValueType, isEnum bool, pack uint16, size uint32) *Attribute {
	var kind int
	switch typeFlags & tdLayoutMask {
	case tdSequentialLayout:
		kind = layoutSequential
	case tdExplicitLayout:
		kind = layoutExplicit
	default:
		kind = layoutAuto
	}

	charSet := pinvokeCharSet(uint16(typeFlags >> 16))
	if charSet == charSetNone {
		charSet = charSetAnsi
	}

	if kind == defaultLayoutKind(isValueType, isEnum) && charSet == charSetAnsi && pack == 0 && size == 0 {
		return nil
	}

	named := map[string]interface{}{}
	if charSet != charSetAnsi {
		named["CharSet"] = charSet
	}
	if pack != 0 {
		named["Pack"] = pack
	}
	if size != 0 {
		named["Size"] = size
	}

	return &Attribute{
		Type:           interopAttr("StructLayoutAttribute"),
		PositionalArgs: []interface{}{kind},
		NamedArgs:      named,
	}
}

func synthFieldOffset(offset uint32) *Attribute {
	return &Attribute{
		Type:           interopAttr("FieldOffsetAttribute"),
		PositionalArgs: []interface{}{offset},
	}
}

func synthNonSerialized() *Attribute {
	return &Attribute{Type: namedAttrRef("System", "NonSerializedAttribute")}
}

func synthAssemblyVersion(version string) *Attribute {
	return &Attribute{
		Type:           namedAttrRef("System.Reflection", "AssemblyVersionAttribute"),
		PositionalArgs: []interface{}{version},
	}
}

// ECMA-335 §II.23.4 UnmanagedType tags a MarshalAs native-type blob can
// start with. Only the commonly emitted subset is named; anything else
// is preserved only via its positional UnmanagedType arg.
const (
	ntBool           = 0x02
	ntI4             = 0x08
	ntCurrency       = 0x0f
	ntBStr           = 0x13
	ntLPStr          = 0x14
	ntLPWStr         = 0x15
	ntLPTStr         = 0x16
	ntByValTStr      = 0x17
	ntIUnknown       = 0x19
	ntIDispatch      = 0x1a
	ntStruct         = 0x1b
	ntInterface      = 0x1c
	ntSafeArray      = 0x1d
	ntByValArray     = 0x1e
	ntFunctionPtr    = 0x26
	ntCustomMarshaler = 0x2c
	ntError          = 0x2d
	ntArray          = 0x2a
)

// synthMarshalAs decodes a FieldMarshal.NativeType blob into a MarshalAs
// attribute, adding size/element-type/custom-marshaler fields only for the
// forms that carry them (§4.3).
func synthMarshalAs(blob []byte) *Attribute {
	if len(blob) == 0 {
		return nil
	}
	tag := blob[0]
	named := map[string]interface{}{}
	r := &attrBlobReader{data: blob[1:]}

	switch tag {
	case ntArray:
		if n, _, ok := r.compressedLen(); ok {
			named["ArraySubType"] = n
		}
		if n, _, ok := r.compressedLen(); ok {
			named["SizeParamIndex"] = n
		}
		if n, _, ok := r.compressedLen(); ok {
			named["SizeConst"] = n
		}
	case ntSafeArray:
		if n, _, ok := r.compressedLen(); ok {
			named["SafeArraySubType"] = n
		}
	case ntCustomMarshaler:
		if _, _, ok := r.compressedLen(); ok {
			// guid, unused
		}
		if s, ok := r.str(); ok {
			// unmanaged type name, unused
			_ = s
		}
		if s, ok := r.str(); ok {
			named["MarshalTypeRef"] = s
		}
		if s, ok := r.str(); ok {
			named["MarshalCookie"] = s
		}
	case ntByValArray:
		if n, _, ok := r.compressedLen(); ok {
			named["SizeConst"] = n
		}
	case ntByValTStr:
		if n, _, ok := r.compressedLen(); ok {
			named["SizeConst"] = n
		}
	}

	return &Attribute{
		Type:           interopAttr("MarshalAsAttribute"),
		PositionalArgs: []interface{}{int(tag)},
		NamedArgs:      named,
	}
}
