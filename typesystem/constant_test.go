// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package typesystem

import (
	"encoding/binary"
	"testing"
)

func TestDecodeConstantBlobIntegers(t *testing.T) {
	tests := []struct {
		name        string
		elementType byte
		blob        []byte
		want        interface{}
	}{
		{"bool true", etBoolean, []byte{1}, true},
		{"bool false", etBoolean, []byte{0}, false},
		{"i1 negative", etI1, []byte{0xff}, int8(-1)},
		{"u1", etU1, []byte{0x2a}, byte(0x2a)},
		{"i4", etI4, le32(-42), int32(-42)},
		{"u4", etU4, le32u(42), uint32(42)},
		{"i8", etI8, le64(-1), int64(-1)},
		{"char", etChar, []byte{0x41, 0x00}, rune('A')},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := decodeConstantBlob(tt.elementType, tt.blob)
			if !ok {
				t.Fatalf("decodeConstantBlob returned ok=false")
			}
			if got != tt.want {
				t.Fatalf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestDecodeConstantBlobClassIsNil(t *testing.T) {
	got, ok := decodeConstantBlob(etClass, []byte{0, 0, 0, 0})
	if !ok || got != nil {
		t.Fatalf("a CLASS constant must decode to (nil, true), got (%v, %v)", got, ok)
	}
}

func TestDecodeConstantBlobTooShortFails(t *testing.T) {
	if _, ok := decodeConstantBlob(etI4, []byte{1, 2}); ok {
		t.Fatalf("a truncated blob must fail to decode")
	}
}

func TestDecodeDecimalConstantRoundTrips(t *testing.T) {
	blob := []byte{0x01, 0x00, 0x02, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	// scale=2, sign=1 (negative), lo=0
	dec, ok := decodeDecimalConstant(blob)
	if !ok {
		t.Fatalf("expected a well-formed decimal blob to decode")
	}
	if !dec.Negative || dec.Scale != 2 {
		t.Fatalf("got %+v", dec)
	}
}

func TestDecimalRatValue(t *testing.T) {
	d := Decimal{Negative: false, Scale: 2, Lo: 12345}
	got := d.Rat().FloatString(2)
	if got != "123.45" {
		t.Fatalf("got %s, want 123.45", got)
	}
}

func TestDecimalRatNegative(t *testing.T) {
	d := Decimal{Negative: true, Scale: 0, Lo: 7}
	got := d.Rat().FloatString(0)
	if got != "-7" {
		t.Fatalf("got %s, want -7", got)
	}
}

func le32(v int32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return b
}

func le32u(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func le64(v int64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(v))
	return b
}
