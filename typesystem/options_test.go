// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package typesystem

import "testing"

func TestNewOptionsDefaults(t *testing.T) {
	o := NewOptions()
	if !o.UseDynamicType || !o.UseTupleTypes || !o.ShortenInterfaceImplNames {
		t.Fatalf("got %+v, want the three translation defaults all true", o)
	}
	if o.IncludeInternalMembers || o.LazyLoad {
		t.Fatalf("got %+v, want IncludeInternalMembers and LazyLoad false by default", o)
	}
}

func TestCancelledNilChannelNeverCancels(t *testing.T) {
	var o Options
	if o.cancelled() {
		t.Fatalf("a nil Cancel channel must never report cancelled")
	}
}

func TestCancelledClosedChannelReportsTrue(t *testing.T) {
	ch := make(chan struct{})
	close(ch)
	o := Options{Cancel: ch}
	if !o.cancelled() {
		t.Fatalf("a closed Cancel channel must report cancelled")
	}
}

func TestCancelledOpenChannelReportsFalse(t *testing.T) {
	o := Options{Cancel: make(chan struct{})}
	if o.cancelled() {
		t.Fatalf("an open, empty Cancel channel must not report cancelled")
	}
}

func TestNotifyInvokesCallbackWithKindAndEntity(t *testing.T) {
	var gotKind EntityKind
	var gotEntity interface{}
	o := Options{
		OnEntityLoaded: func(kind EntityKind, entity interface{}) {
			gotKind = kind
			gotEntity = entity
		},
	}
	sentinel := &Assembly{Name: "Test"}
	o.notify(EntityAssembly, sentinel)

	if gotKind != EntityAssembly {
		t.Fatalf("got kind %v, want EntityAssembly", gotKind)
	}
	if gotEntity != interface{}(sentinel) {
		t.Fatalf("callback did not receive the same entity pointer")
	}
}

func TestNotifyNilCallbackIsANoop(t *testing.T) {
	var o Options
	o.notify(EntityAssembly, &Assembly{}) // must not panic
}
