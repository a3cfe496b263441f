// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package typesystem

import (
	"fmt"
	"sync"

	pe "github.com/saferwall/clrts"
)

// assemblyDriver walks one module's Assembly/Module/ExportedType rows and
// its top-level TypeDef rows into a frozen *Assembly (§4.7).
type assemblyDriver struct {
	opts Options
	pool pool
	src  *source
	attr *attributeReader
	defs *typeDefReader
}

func newAssemblyDriver(opts Options, p pool, src *source) *assemblyDriver {
	return &assemblyDriver{
		opts: opts,
		pool: p,
		src:  src,
		attr: newAttributeReader(opts, p, src),
		defs: newTypeDefReader(opts, p, src),
	}
}

// Load builds and freezes the Assembly described by src (§4.7 steps 1-4).
func (d *assemblyDriver) Load() (*Assembly, error) {
	asm := &Assembly{
		TypeForwarders: make(map[ForwarderKey]*TypeReference),
	}

	if a, ok := row(d.src.assemblies, 1); ok {
		asm.Name = internStr(d.pool, d.src, a.Name)
		decoded := d.attr.readCustomAttributes(pe.Assembly, 1)
		attrs := decoded.Attributes
		attrs = appendAssemblyVersion(attrs, a)
		asm.AssemblyAttributes = attrs
	}

	if m, ok := row(d.src.modules, 1); ok {
		asm.ModuleAttributes = d.attr.readCustomAttributes(pe.Module, 1).Attributes
		if asm.Name == "" {
			asm.Name = internStr(d.pool, d.src, m.Name)
		}
	}

	d.registerTypeForwarders(asm)

	if err := d.loadTopLevelTypes(asm); err != nil {
		return nil, err
	}

	asm.frozen = true
	return asm, nil
}

// appendAssemblyVersion synthesizes AssemblyVersionAttribute from the
// Assembly row's version columns, skipping it when a user-authored
// AssemblyVersionAttribute custom attribute is already present — the CLR
// only ever records one effective version, so emitting both would be a
// duplicate the source never had (§4.3, SPEC_FULL supplement 5).
func appendAssemblyVersion(attrs []*Attribute, a pe.AssemblyTableRow) []*Attribute {
	for _, at := range attrs {
		if at.Type != nil && at.Type.Name == "AssemblyVersionAttribute" {
			return attrs
		}
	}
	version := fmt.Sprintf("%d.%d.%d.%d", a.MajorVersion, a.MinorVersion, a.BuildNumber, a.RevisionNumber)
	return append(attrs, synthAssemblyVersion(version))
}

// registerTypeForwarders records every ExportedType row whose Implementation
// names an AssemblyRef (a forwarded type, as opposed to one implemented by
// a secondary module of a multi-file assembly) into Assembly.TypeForwarders
// (§4.7 step 2, §8 scenario 6).
func (d *assemblyDriver) registerTypeForwarders(asm *Assembly) {
	for _, et := range d.src.exportedTypes {
		table, _ := pe.DecodeImplementation(et.Implementation)
		if table != pe.AssemblyRef {
			continue
		}
		name := internStr(d.pool, d.src, et.TypeName)
		ns := internStr(d.pool, d.src, et.TypeNamespace)
		key := ForwarderKey{Namespace: ns, Name: stripArity(name), Arity: arityFromName(name)}
		asm.TypeForwarders[key] = namedAssemblyRef(d.pool, d.src, et)
	}
}

func namedAssemblyRef(p pool, src *source, et pe.ExportedTypeTableRow) *TypeReference {
	_, refRow := pe.DecodeImplementation(et.Implementation)
	scopeName := ""
	if ar, ok := row(src.assemblyRefs, refRow); ok {
		scopeName = internStr(p, src, ar.Name)
	}
	name := internStr(p, src, et.TypeName)
	ref := &TypeReference{
		Kind:        RefNamed,
		Namespace:   internStr(p, src, et.TypeNamespace),
		Name:        stripArity(name),
		Arity:       arityFromName(name),
		AssemblyRef: scopeName,
	}
	return p.internRef("named:"+scopeName+"/"+ref.Namespace+"."+name, ref)
}

// loadTopLevelTypes constructs every top-level TypeDef whose visibility
// passes the filter (§4.4 accessibility check, applied by readShallow) —
// eagerly or lazily per Options.LazyLoad — polling Options.Cancel once per
// type in eager mode (§4.7 step 3, §6).
func (d *assemblyDriver) loadTopLevelTypes(asm *Assembly) error {
	var moduleLock sync.Mutex

	for idx := range d.src.typeDefs {
		typeDefIndex := uint32(idx + 1)
		if _, nested := d.src.nestedClassParents[typeDefIndex]; nested {
			continue
		}
		// <Module> itself (row 1) is never a user-visible type.
		if typeDefIndex == 1 {
			continue
		}

		if d.opts.LazyLoad {
			t, err := newLazyTopLevelType(d.defs, typeDefIndex, &moduleLock)
			if err != nil {
				return err
			}
			if t == nil {
				continue
			}
			asm.TypeDefinitions = append(asm.TypeDefinitions, t)
			d.opts.notify(EntityTypeDefinition, t)
			continue
		}

		if d.opts.cancelled() {
			return ErrCancelled
		}
		t, err := d.defs.ReadTypeDefinition(typeDefIndex, nil)
		if err != nil {
			return err
		}
		if t == nil {
			continue
		}
		asm.TypeDefinitions = append(asm.TypeDefinitions, t)
		d.notifyTree(t)
	}

	return nil
}

// notifyTree calls Options.OnEntityLoaded for t and everything it owns, in
// the same depth-first order an eager load constructs them (§4.7's
// extensibility-hook wiring). The lazy-load path fires the same hooks from
// TypeDefinition.EnsureLoaded via notifyMembersAndNested (entity.go).
func (d *assemblyDriver) notifyTree(t *TypeDefinition) {
	d.opts.notify(EntityTypeDefinition, t)
	notifyMembersAndNested(d.opts, t)
}
