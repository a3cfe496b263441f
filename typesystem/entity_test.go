// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package typesystem

import (
	"sync"
	"testing"
)

func TestPromoteReturnsMorePermissive(t *testing.T) {
	tests := []struct {
		a, b, want Accessibility
	}{
		{Private, Public, Public},
		{Public, Private, Public},
		{Protected, Internal, Internal},
		{Internal, Protected, Internal},
		{PrivateProtected, ProtectedInternal, ProtectedInternal},
	}
	for _, tt := range tests {
		if got := promote(tt.a, tt.b); got != tt.want {
			t.Errorf("promote(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestEnsureLoadedNoopWhenNotLazy(t *testing.T) {
	td := &TypeDefinition{Name: "Eager"}
	if err := td.EnsureLoaded(); err != nil {
		t.Fatalf("EnsureLoaded on an eagerly-built type must be a no-op, got %v", err)
	}
}

func TestEnsureLoadedRunsFillExactlyOnce(t *testing.T) {
	calls := 0
	td := &TypeDefinition{Name: "Lazy"}
	td.lazy = &lazyState{
		mu: &sync.Mutex{},
		fill: func(target *TypeDefinition) error {
			calls++
			target.Members = append(target.Members, &Member{Name: "M"})
			return nil
		},
	}

	if err := td.EnsureLoaded(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := td.EnsureLoaded(); err != nil {
		t.Fatalf("unexpected error on second call: %v", err)
	}
	if calls != 1 {
		t.Fatalf("fill ran %d times, want exactly 1", calls)
	}
	if len(td.Members) != 1 {
		t.Fatalf("expected fill's side effect to be visible, got %d members", len(td.Members))
	}
	if td.lazy != nil {
		t.Fatalf("expected lazy to be cleared after materialization")
	}
}

func TestEnsureLoadedNotifiesMembersAndNestedTypes(t *testing.T) {
	var notified []EntityKind
	opts := Options{
		OnEntityLoaded: func(kind EntityKind, entity interface{}) {
			notified = append(notified, kind)
		},
	}

	td := &TypeDefinition{Name: "Outer"}
	td.lazy = &lazyState{
		mu:   &sync.Mutex{},
		opts: opts,
		fill: func(target *TypeDefinition) error {
			target.Members = append(target.Members, &Member{Name: "M", Kind: MemberMethod})
			target.NestedTypes = append(target.NestedTypes, &TypeDefinition{
				Name:    "Inner",
				Members: []*Member{{Name: "F", Kind: MemberField}},
			})
			return nil
		},
	}

	if err := td.EnsureLoaded(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []EntityKind{EntityMethod, EntityTypeDefinition, EntityField}
	if len(notified) != len(want) {
		t.Fatalf("notified %v, want %v", notified, want)
	}
	for i, k := range want {
		if notified[i] != k {
			t.Errorf("notified[%d] = %v, want %v", i, notified[i], k)
		}
	}
}

func TestEnsureLoadedSkipsNotifyOnFillError(t *testing.T) {
	called := false
	td := &TypeDefinition{Name: "Broken"}
	td.lazy = &lazyState{
		mu: &sync.Mutex{},
		opts: Options{
			OnEntityLoaded: func(kind EntityKind, entity interface{}) { called = true },
		},
		fill: func(*TypeDefinition) error { return ErrNilType },
	}

	if err := td.EnsureLoaded(); err != ErrNilType {
		t.Fatalf("EnsureLoaded() = %v, want %v", err, ErrNilType)
	}
	if called {
		t.Fatalf("OnEntityLoaded must not fire when fill fails")
	}
}

func TestEnsureLoadedPropagatesError(t *testing.T) {
	wantErr := ErrNilType
	td := &TypeDefinition{Name: "Broken"}
	td.lazy = &lazyState{
		mu:   &sync.Mutex{},
		fill: func(*TypeDefinition) error { return wantErr },
	}

	if err := td.EnsureLoaded(); err != wantErr {
		t.Fatalf("EnsureLoaded() = %v, want %v", err, wantErr)
	}
}

func TestAssemblyFrozenFlag(t *testing.T) {
	a := &Assembly{}
	if a.Frozen() {
		t.Fatalf("a freshly-constructed Assembly must not report Frozen")
	}
	a.frozen = true
	if !a.Frozen() {
		t.Fatalf("expected Frozen() to reflect the internal flag")
	}
}
