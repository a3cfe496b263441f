// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package typesystem

// TypeAttributes, ECMA-335 §II.23.1.15.
const (
	tdVisibilityMask      = 0x00000007
	tdNotPublic           = 0x00000000
	tdPublic              = 0x00000001
	tdNestedPublic        = 0x00000002
	tdNestedPrivate       = 0x00000003
	tdNestedFamily        = 0x00000004
	tdNestedAssembly      = 0x00000005
	tdNestedFamANDAssem   = 0x00000006
	tdNestedFamORAssem    = 0x00000007
	tdLayoutMask          = 0x00000018
	tdSequentialLayout    = 0x00000008
	tdExplicitLayout      = 0x00000010
	tdClassSemanticsMask  = 0x00000020
	tdInterface           = 0x00000020
	tdAbstract            = 0x00000080
	tdSealed              = 0x00000100
	tdSpecialName         = 0x00000400
	tdRTSpecialName       = 0x00000800
	tdStringFormatMask    = 0x00030000
	tdBeforeFieldInit     = 0x00100000
)

// MethodAttributes, ECMA-335 §II.23.1.10.
const (
	mdMemberAccessMask = 0x0007
	mdPrivate          = 0x0001
	mdFamANDAssem      = 0x0002
	mdAssem            = 0x0003
	mdFamily           = 0x0004
	mdFamORAssem       = 0x0005
	mdPublic           = 0x0006
	mdStatic           = 0x0010
	mdFinal            = 0x0020
	mdVirtual          = 0x0040
	mdHideBySig        = 0x0080
	mdVtableLayoutMask = 0x0100
	mdNewSlot          = 0x0100
	mdAbstract         = 0x0400
	mdSpecialName      = 0x0800
	mdPInvokeImpl      = 0x2000
	mdRTSpecialName    = 0x1000
)

// MethodImplAttributes, ECMA-335 §II.23.1.10.
const (
	miPreserveSig = 0x0080
)

// MethodSemanticsAttributes, ECMA-335 §II.23.1.12 — a non-zero value means
// the method is an accessor and must not be emitted as a top-level member.
const (
	msNone     = 0x0000
	msSetter   = 0x0001
	msGetter   = 0x0002
	msOther    = 0x0004
	msAddOn    = 0x0008
	msRemoveOn = 0x0010
	msFire     = 0x0020
)

// FieldAttributes, ECMA-335 §II.23.1.5.
const (
	fdFieldAccessMask = 0x0007
	fdPrivate         = 0x0001
	fdFamANDAssem     = 0x0002
	fdAssembly        = 0x0003
	fdFamily          = 0x0004
	fdFamORAssem      = 0x0005
	fdPublic          = 0x0006
	fdStatic          = 0x0010
	fdInitOnly        = 0x0020
	fdLiteral         = 0x0040
	fdNotSerialized   = 0x0080
	fdSpecialName     = 0x0200
	fdPInvokeImpl     = 0x2000
	fdRTSpecialName   = 0x0400
	fdHasFieldMarshal = 0x1000
	fdHasDefault      = 0x8000
	fdHasFieldRVA     = 0x0100
)

// ParamAttributes, ECMA-335 §II.23.1.13.
const (
	pdIn       = 0x0001
	pdOut      = 0x0002
	pdOptional = 0x0010
	pdHasDefault = 0x1000
)

// PropertyAttributes/EventAttributes, ECMA-335 §II.23.1.14/.4.
const (
	prSpecialName   = 0x0200
	prRTSpecialName = 0x0400
)

// GenericParamAttributes, ECMA-335 §II.23.1.7.
const (
	gpVarianceMask                    = 0x0003
	gpSpecialConstraintMask           = 0x001c
	gpReferenceTypeConstraint         = 0x0004
	gpNotNullableValueTypeConstraint  = 0x0008
	gpDefaultConstructorConstraint    = 0x0010
)

// PInvokeAttributes, ECMA-335 §II.23.1.8.
const (
	pmNoMangle              = 0x0001
	pmCharSetMask           = 0x0006
	pmCharSetNotSpec        = 0x0000
	pmCharSetAnsi           = 0x0002
	pmCharSetUnicode        = 0x0004
	pmCharSetAuto           = 0x0006
	pmSupportsLastError     = 0x0040
	pmCallConvMask          = 0x0700
	pmCallConvWinapi        = 0x0100
	pmCallConvCdecl         = 0x0200
	pmCallConvStdcall       = 0x0300
	pmCallConvThiscall      = 0x0400
	pmCallConvFastcall      = 0x0500
	pmBestFitMask           = 0x0030
	pmBestFitUseAssem       = 0x0000
	pmBestFitEnabled        = 0x0010
	pmBestFitDisabled       = 0x0020
	pmThrowOnUnmappableMask = 0x3000
	pmThrowOnUnmappableUse  = 0x0000
	pmThrowOnUnmappableOn   = 0x1000
	pmThrowOnUnmappableOff  = 0x2000
)

// ECMA-335 §II.23.1.16 element types, mirrored from clrts's unexported
// signature decoder so this package can classify a decoded SignatureType
// without reaching into clrts internals.
const (
	etVoid        = 0x01
	etBoolean     = 0x02
	etChar        = 0x03
	etI1          = 0x04
	etU1          = 0x05
	etI2          = 0x06
	etU2          = 0x07
	etI4          = 0x08
	etU4          = 0x09
	etI8          = 0x0a
	etU8          = 0x0b
	etR4          = 0x0c
	etR8          = 0x0d
	etString      = 0x0e
	etPtr         = 0x0f
	etByRef       = 0x10
	etValueType   = 0x11
	etClass       = 0x12
	etVar         = 0x13
	etArray       = 0x14
	etGenericInst = 0x15
	etTypedByRef  = 0x16
	etI           = 0x18
	etU           = 0x19
	etFnPtr       = 0x1b
	etObject      = 0x1c
	etSZArray     = 0x1d
	etMVar        = 0x1e
	etPinned      = 0x45
)
