// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package typesystem

import (
	"reflect"
	"testing"
)

func TestDecodeBoolArrayBlob(t *testing.T) {
	// prolog 0x0001, count=3, then three bool bytes.
	blob := []byte{0x01, 0x00, 0x03, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01}
	got, ok := decodeBoolArrayBlob(blob)
	if !ok {
		t.Fatalf("expected ok=true")
	}
	want := []bool{true, false, true}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestDecodeBoolArrayBlobNullArray(t *testing.T) {
	blob := []byte{0x01, 0x00, 0xff, 0xff, 0xff, 0xff}
	got, ok := decodeBoolArrayBlob(blob)
	if !ok || got != nil {
		t.Fatalf("a -1 count must decode to (nil, true), got (%v, %v)", got, ok)
	}
}

func TestDecodeBoolArrayBlobBadPrologFails(t *testing.T) {
	if _, ok := decodeBoolArrayBlob([]byte{0x02, 0x00}); ok {
		t.Fatalf("a non-0x0001 prolog must fail to decode")
	}
}

func TestDecodeDynamicAttributeBlob(t *testing.T) {
	blob := []byte{0x01, 0x00, 0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	got := decodeDynamicAttributeBlob(blob)
	want := []bool{false, true}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestDecodeSingleStringArg(t *testing.T) {
	// prolog, then a packed length-prefixed UTF-8 string "Go".
	blob := []byte{0x01, 0x00, 0x02, 'G', 'o'}
	got, ok := decodeSingleStringArg(blob)
	if !ok || got != "Go" {
		t.Fatalf("got (%q, %v), want (\"Go\", true)", got, ok)
	}
}

func TestDecodeSingleStringArgNullString(t *testing.T) {
	blob := []byte{0x01, 0x00, 0xff}
	got, ok := decodeSingleStringArg(blob)
	if !ok || got != "" {
		t.Fatalf("a null string entry must decode to (\"\", true), got (%q, %v)", got, ok)
	}
}

func TestAttrBlobReaderCompressedLenOneByteForm(t *testing.T) {
	r := &attrBlobReader{data: []byte{0x05}}
	n, isNull, ok := r.compressedLen()
	if !ok || isNull || n != 5 {
		t.Fatalf("got (%d, %v, %v), want (5, false, true)", n, isNull, ok)
	}
}
