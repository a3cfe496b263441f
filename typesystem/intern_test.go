// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package typesystem

import "testing"

func TestInternerCanonicalizesByKey(t *testing.T) {
	p := newInterner()

	a := &TypeReference{Kind: RefNamed, Namespace: "System", Name: "String"}
	b := &TypeReference{Kind: RefNamed, Namespace: "System", Name: "String"}

	got1 := p.internRef("named:/System.String", a)
	got2 := p.internRef("named:/System.String", b)

	if got1 != got2 {
		t.Fatalf("expected the second intern to return the first value, got distinct pointers")
	}
	if got1 != a {
		t.Fatalf("expected the first intern to return its own argument")
	}
}

func TestInternerDistinctKeysStayDistinct(t *testing.T) {
	p := newInterner()

	a := &TypeReference{Kind: RefNamed, Name: "String"}
	b := &TypeReference{Kind: RefNamed, Name: "Int32"}

	got1 := p.internRef("named:/System.String", a)
	got2 := p.internRef("named:/System.Int32", b)

	if got1 == got2 {
		t.Fatalf("distinct keys must not collapse to the same value")
	}
}

func TestDummyPoolPassesThroughUnchanged(t *testing.T) {
	var p dummyPool

	ref := &TypeReference{Kind: RefNamed, Name: "Foo"}
	if got := p.internRef("anything", ref); got != ref {
		t.Fatalf("dummyPool.internRef must return its argument unchanged")
	}

	s := p.internString("hello")
	if s != "hello" {
		t.Fatalf("dummyPool.internString must return its argument unchanged, got %q", s)
	}
}

func TestNilInternerIsANoop(t *testing.T) {
	var p *interner

	ref := &TypeReference{Kind: RefNamed, Name: "Foo"}
	if got := p.internRef("k", ref); got != ref {
		t.Fatalf("nil *interner must behave like a no-op pool")
	}
	if got := p.internString("x"); got != "x" {
		t.Fatalf("nil *interner must behave like a no-op pool")
	}
}
