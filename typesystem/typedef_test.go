// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package typesystem

import "testing"

func TestTypeAccessibilityMapsVisibilityBits(t *testing.T) {
	tests := []struct {
		name  string
		flags uint32
		want  Accessibility
	}{
		{"not public (top-level)", tdNotPublic, Private},
		{"public (top-level)", tdPublic, Public},
		{"nested private", tdNestedPrivate, Private},
		{"nested public", tdNestedPublic, Public},
		{"nested family", tdNestedFamily, Protected},
		{"nested assembly", tdNestedAssembly, Internal},
		{"nested fam and assem", tdNestedFamANDAssem, PrivateProtected},
		{"nested fam or assem", tdNestedFamORAssem, ProtectedInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := typeAccessibility(tt.flags); got != tt.want {
				t.Errorf("typeAccessibility(0x%x) = %v, want %v", tt.flags, got, tt.want)
			}
		})
	}
}

func TestTypeVisibleTopLevel(t *testing.T) {
	tests := []struct {
		name           string
		flags          uint32
		includeInternal bool
		want           bool
	}{
		{"public, internals excluded", tdPublic, false, true},
		{"not public, internals excluded", tdNotPublic, false, false},
		{"not public, internals included", tdNotPublic, true, true},
		{"public, internals included", tdPublic, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := typeVisible(tt.flags, false, tt.includeInternal); got != tt.want {
				t.Errorf("typeVisible(0x%x, nested=false, includeInternal=%v) = %v, want %v",
					tt.flags, tt.includeInternal, got, tt.want)
			}
		})
	}
}

func TestTypeVisibleNested(t *testing.T) {
	tests := []struct {
		name           string
		flags          uint32
		includeInternal bool
		want           bool
	}{
		{"nested private, internals excluded", tdNestedPrivate, false, false},
		{"nested family, internals excluded", tdNestedFamily, false, true},
		{"nested assembly, internals excluded", tdNestedAssembly, false, false},
		{"nested assembly, internals included", tdNestedAssembly, true, true},
		{"nested public, internals excluded", tdNestedPublic, false, true},
		{"nested fam or assem, internals excluded", tdNestedFamORAssem, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := typeVisible(tt.flags, true, tt.includeInternal); got != tt.want {
				t.Errorf("typeVisible(0x%x, nested=true, includeInternal=%v) = %v, want %v",
					tt.flags, tt.includeInternal, got, tt.want)
			}
		})
	}
}

func TestSortTypeDefsByToken(t *testing.T) {
	types := []*TypeDefinition{
		{Name: "C", Token: 30},
		{Name: "A", Token: 10},
		{Name: "B", Token: 20},
	}
	sortTypeDefsByToken(types)

	want := []string{"A", "B", "C"}
	for i, name := range want {
		if types[i].Name != name {
			t.Fatalf("position %d: got %s, want %s", i, types[i].Name, name)
		}
	}
}

func TestSortTypeDefsByTokenEmptyAndSingle(t *testing.T) {
	sortTypeDefsByToken(nil) // must not panic

	single := []*TypeDefinition{{Name: "Only", Token: 1}}
	sortTypeDefsByToken(single)
	if single[0].Name != "Only" {
		t.Fatalf("single-element slice must be unaffected")
	}
}
