// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package typesystem

import (
	"testing"

	pe "github.com/saferwall/clrts"
)

func TestStripArityAndArityFromName(t *testing.T) {
	tests := []struct {
		name       string
		wantStrip  string
		wantArity  int
	}{
		{"List`1", "List", 1},
		{"Dictionary`2", "Dictionary", 2},
		{"String", "String", 0},
		{"Tuple`8", "Tuple", 8},
	}
	for _, tt := range tests {
		if got := stripArity(tt.name); got != tt.wantStrip {
			t.Errorf("stripArity(%q) = %q, want %q", tt.name, got, tt.wantStrip)
		}
		if got := arityFromName(tt.name); got != tt.wantArity {
			t.Errorf("arityFromName(%q) = %d, want %d", tt.name, got, tt.wantArity)
		}
	}
}

func TestIsValueTupleOpenType(t *testing.T) {
	vt := &TypeReference{Kind: RefNamed, Namespace: "System", Name: "ValueTuple`2"}
	if !isValueTupleOpenType(vt) {
		t.Fatalf("expected System.ValueTuple`N to be recognized as the tuple open type")
	}

	other := &TypeReference{Kind: RefNamed, Namespace: "System", Name: "Tuple`2"}
	if isValueTupleOpenType(other) {
		t.Fatalf("System.Tuple (the reference-type family) must not be mistaken for ValueTuple")
	}

	if isValueTupleOpenType(nil) {
		t.Fatalf("nil must never be treated as the tuple open type")
	}
}

func TestPrimitiveRefReturnsSingletons(t *testing.T) {
	a := primitiveRef(PrimInt32)
	b := primitiveRef(PrimInt32)
	if a != b {
		t.Fatalf("primitiveRef must return the same singleton for the same primitive")
	}
	if a.Kind != RefPrimitive || a.Primitive != PrimInt32 {
		t.Fatalf("got %+v", a)
	}
}

func TestDeclKeyNestedChain(t *testing.T) {
	outer := &TypeReference{Kind: RefNamed, Namespace: "NS", Name: "Outer"}
	inner := &TypeReference{Kind: RefNested, Name: "Inner", DeclaringType: outer}

	got := declKey(inner)
	want := "NS.Outer/Inner"
	if got != want {
		t.Fatalf("declKey() = %q, want %q", got, want)
	}
}

func TestBuildPinnedUnwrapsTransparently(t *testing.T) {
	// §4.2 case 8: pinned carries no representation of its own, it
	// transparently unwraps to its element and consumes no dynamicIndex slot.
	b := &referenceBuilder{opts: Options{UseDynamicType: true, UseTupleTypes: true}}
	inner := pe.SignatureType{ElementType: etI4}
	pinned := pe.SignatureType{ElementType: etPinned, Element: &inner}

	dyn, tup := 0, 0
	got := b.build(pinned, dynamicTupleInfo{}, &dyn, &tup, true)

	if got.Kind != RefPrimitive || got.Primitive != PrimInt32 {
		t.Fatalf("pinned int32 should unwrap to int32, got %+v", got)
	}
	if dyn != 0 {
		t.Fatalf("pinned must not advance dynamicIndex, got %d", dyn)
	}
}

func TestDeclKeyNil(t *testing.T) {
	if got := declKey(nil); got != "" {
		t.Fatalf("declKey(nil) = %q, want empty string", got)
	}
}
