// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package typesystem

import (
	"testing"

	pe "github.com/saferwall/clrts"
)

func TestSynthStructLayoutSuppressedAtDefault(t *testing.T) {
	// A non-enum value type with sequential layout, ANSI char set, no
	// explicit packing or size is exactly the implicit default: no
	// StructLayoutAttribute should be synthesized.
	got := synthStructLayout(tdSequentialLayout, true, false, 0, 0)
	if got != nil {
		t.Fatalf("expected nil for a type at its default layout, got %+v", got)
	}
}

func TestSynthStructLayoutEmittedWhenExplicit(t *testing.T) {
	got := synthStructLayout(tdExplicitLayout, true, false, 8, 16)
	if got == nil {
		t.Fatalf("expected an attribute for explicit layout with nonzero pack/size")
	}
	if got.NamedArgs["Pack"] != uint16(8) || got.NamedArgs["Size"] != uint32(16) {
		t.Fatalf("got named args %+v", got.NamedArgs)
	}
	if got.PositionalArgs[0] != layoutExplicit {
		t.Fatalf("got positional args %+v", got.PositionalArgs)
	}
}

func TestSynthMethodImplNilWhenNoResidualFlags(t *testing.T) {
	if got := synthMethodImpl(0); got != nil {
		t.Fatalf("synthMethodImpl(0) must be nil")
	}
}

func TestSynthMethodImplEmittedForResidualFlags(t *testing.T) {
	const synchronized = 0x0020 // MethodImplAttributes.Synchronized
	got := synthMethodImpl(synchronized)
	if got == nil {
		t.Fatalf("expected a MethodImplAttribute for a nonzero residual")
	}
	if got.PositionalArgs[0] != uint16(synchronized) {
		t.Fatalf("got %+v", got.PositionalArgs)
	}
}

func TestSynthMarshalAsArrayFields(t *testing.T) {
	// tag=ntArray, then three compressed integers: sub-type, size-param
	// index, size-const.
	blob := []byte{ntArray, 0x02, 0x00, 0x04}
	got := synthMarshalAs(blob)
	if got == nil {
		t.Fatalf("expected a MarshalAsAttribute")
	}
	if got.NamedArgs["ArraySubType"] != 2 {
		t.Fatalf("got %+v", got.NamedArgs)
	}
}

func TestSynthMarshalAsEmptyBlob(t *testing.T) {
	if got := synthMarshalAs(nil); got != nil {
		t.Fatalf("an empty blob must yield no attribute")
	}
}

func TestSynthDllImportOmitsDefaultsAndEntryPoint(t *testing.T) {
	im := pe.ImplMapTableRow{}
	got, absorbed := synthDllImport("Foo", "Foo", im, "kernel32.dll", 0)
	if absorbed {
		t.Fatalf("PreserveSig was not set on implFlags, must not be absorbed")
	}
	if _, ok := got.NamedArgs["EntryPoint"]; ok {
		t.Fatalf("EntryPoint must be omitted when it equals the method's short name")
	}
	if _, ok := got.NamedArgs["ExactSpelling"]; ok {
		t.Fatalf("ExactSpelling must be omitted at its CLI default (false)")
	}
	if _, ok := got.NamedArgs["SetLastError"]; ok {
		t.Fatalf("SetLastError must be omitted at its CLI default (false)")
	}
}

func TestSynthDllImportEmitsEntryPointWhenDifferent(t *testing.T) {
	im := pe.ImplMapTableRow{MappingFlags: pmNoMangle | pmSupportsLastError}
	got, _ := synthDllImport("Foo", "FooImpl", im, "kernel32.dll", 0)
	if got.NamedArgs["EntryPoint"] != "FooImpl" {
		t.Fatalf("got %+v", got.NamedArgs)
	}
	if got.NamedArgs["ExactSpelling"] != true {
		t.Fatalf("expected ExactSpelling=true for NoMangle, got %+v", got.NamedArgs)
	}
	if got.NamedArgs["SetLastError"] != true {
		t.Fatalf("expected SetLastError=true for SupportsLastError, got %+v", got.NamedArgs)
	}
}

func TestPinvokeCharSetAndCallingConvention(t *testing.T) {
	if cs := pinvokeCharSet(pmCharSetUnicode); cs != charSetUnicode {
		t.Fatalf("got %d, want charSetUnicode", cs)
	}
	if cc := pinvokeCallingConvention(pmCallConvStdcall); cc != "StdCall" {
		t.Fatalf("got %q, want StdCall", cc)
	}
	if cc := pinvokeCallingConvention(0); cc != "Winapi" {
		t.Fatalf("got %q, want the Winapi default", cc)
	}
}
