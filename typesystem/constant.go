// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package typesystem

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/big"

	pe "github.com/saferwall/clrts"
)

// Decimal reconstructs a System.Decimal's 128-bit storage: sign, power-of-
// ten scale, and a 96-bit unsigned integer mantissa split across three
// 32-bit words, matching the layout DecimalConstantAttribute's constructor
// arguments encode (§4.4, scenario 5).
type Decimal struct {
	Negative bool
	Scale    byte
	Hi, Mid, Lo uint32
}

// Rat returns the exact value as a big.Rat, mantissa / 10^Scale.
func (d Decimal) Rat() *big.Rat {
	mantissa := new(big.Int).Lsh(big.NewInt(int64(d.Hi)), 64)
	mantissa.Or(mantissa, new(big.Int).Lsh(big.NewInt(int64(d.Mid)), 32))
	mantissa.Or(mantissa, big.NewInt(int64(d.Lo)))
	denom := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(d.Scale)), nil)
	r := new(big.Rat).SetFrac(mantissa, denom)
	if d.Negative {
		r.Neg(r)
	}
	return r
}

func (d Decimal) String() string {
	return d.Rat().FloatString(int(d.Scale))
}

// ConstantValue is a decoded constant: a type plus a boxed Go value whose
// dynamic type depends on Type (bool, rune, int8/uint8/.../float64, string,
// nil for a null reference constant, or Decimal).
type ConstantValue struct {
	Type  *TypeReference
	Value interface{}
}

// constKey builds an interning key for a constant value from its declared
// type and decoded payload, the same string-keyed pattern
// referenceBuilder.buildTypeRefChain already uses for internRef (§4.1).
func constKey(typ *TypeReference, value interface{}) string {
	return typeRefDescriptor(typ) + "=" + fmt.Sprintf("%v", value)
}

// typeRefDescriptor gives any TypeReference shape a stable string identity
// for use as an interning key, without requiring the reference itself to
// already be canonical. It recurses into compound shapes so two distinct
// array/pointer/generic-instance references never collapse to the same key.
func typeRefDescriptor(t *TypeReference) string {
	if t == nil {
		return ""
	}
	switch t.Kind {
	case RefPrimitive:
		return fmt.Sprintf("prim:%d", t.Primitive)
	case RefDynamic:
		return "dynamic"
	case RefArgList:
		return "arglist"
	case RefNamed:
		return fmt.Sprintf("named:%s/%s.%s`%d", t.AssemblyRef, t.Namespace, t.Name, t.Arity)
	case RefNested:
		return fmt.Sprintf("nested:%s/%s`%d", typeRefDescriptor(t.DeclaringType), t.Name, t.Arity)
	case RefToken:
		return fmt.Sprintf("token:%d", t.Token)
	case RefPointer:
		return "ptr:" + typeRefDescriptor(t.Element)
	case RefByRef:
		return "byref:" + typeRefDescriptor(t.Element)
	case RefArray:
		return fmt.Sprintf("array:%d:%s", t.ArrayRank, typeRefDescriptor(t.Element))
	case RefGenericInstance:
		s := "geninst:" + typeRefDescriptor(t.OpenType)
		for _, a := range t.GenericArgs {
			s += "," + typeRefDescriptor(a)
		}
		return s
	case RefTuple:
		s := "tuple:"
		for i, e := range t.TupleElements {
			if i > 0 {
				s += ","
			}
			s += typeRefDescriptor(e)
		}
		return s
	case RefTypeParameter:
		return fmt.Sprintf("tparam:%d:%d", t.ParamKind, t.Position)
	default:
		return "unknown"
	}
}

// decodeConstantBlob interprets a Constant-table blob per the ELEMENT_TYPE
// byte stored alongside it (ConstantTableRow.Type, ECMA-335 §II.22.9).
func decodeConstantBlob(elementType byte, blob []byte) (interface{}, bool) {
	switch elementType {
	case etBoolean:
		if len(blob) < 1 {
			return nil, false
		}
		return blob[0] != 0, true
	case etChar:
		if len(blob) < 2 {
			return nil, false
		}
		return rune(binary.LittleEndian.Uint16(blob)), true
	case etI1:
		if len(blob) < 1 {
			return nil, false
		}
		return int8(blob[0]), true
	case etU1:
		if len(blob) < 1 {
			return nil, false
		}
		return blob[0], true
	case etI2:
		if len(blob) < 2 {
			return nil, false
		}
		return int16(binary.LittleEndian.Uint16(blob)), true
	case etU2:
		if len(blob) < 2 {
			return nil, false
		}
		return binary.LittleEndian.Uint16(blob), true
	case etI4:
		if len(blob) < 4 {
			return nil, false
		}
		return int32(binary.LittleEndian.Uint32(blob)), true
	case etU4:
		if len(blob) < 4 {
			return nil, false
		}
		return binary.LittleEndian.Uint32(blob), true
	case etI8:
		if len(blob) < 8 {
			return nil, false
		}
		return int64(binary.LittleEndian.Uint64(blob)), true
	case etU8:
		if len(blob) < 8 {
			return nil, false
		}
		return binary.LittleEndian.Uint64(blob), true
	case etR4:
		if len(blob) < 4 {
			return nil, false
		}
		return math.Float32frombits(binary.LittleEndian.Uint32(blob)), true
	case etR8:
		if len(blob) < 8 {
			return nil, false
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(blob)), true
	case etString:
		s, err := pe.DecodeUTF16String(blob)
		if err != nil {
			return nil, false
		}
		return s, true
	case etClass:
		// The only legal CLASS constant is a null reference; its blob is a
		// single uint32 zero, which we discard.
		return nil, true
	default:
		return nil, false
	}
}

// decodeDecimalConstant reconstructs a 128-bit decimal from a
// DecimalConstantAttribute custom-attribute blob: the standard prolog
// 0x0001 followed by exactly five fixed-arg values of types {byte, byte,
// (int or uint), (int or uint), (int or uint)} (scale, sign, hi, mid, lo).
// Any deviation from this shape is not an error (§7): it silently yields no
// constant, because third-party tooling is known to emit malformed blobs
// here and aborting the whole load would be the wrong trade-off.
func decodeDecimalConstant(blob []byte) (Decimal, bool) {
	if len(blob) < 2+2+12 {
		return Decimal{}, false
	}
	if blob[0] != 0x01 || blob[1] != 0x00 {
		return Decimal{}, false
	}
	pos := 2
	scale := blob[pos]
	pos++
	sign := blob[pos]
	pos++
	if pos+12 > len(blob) {
		return Decimal{}, false
	}
	hi := binary.LittleEndian.Uint32(blob[pos:])
	pos += 4
	mid := binary.LittleEndian.Uint32(blob[pos:])
	pos += 4
	lo := binary.LittleEndian.Uint32(blob[pos:])

	return Decimal{Negative: sign != 0, Scale: scale, Hi: hi, Mid: mid, Lo: lo}, true
}
