// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package typesystem

import (
	pe "github.com/saferwall/clrts"
)

// source is the loader's view of one metadata module: the already-parsed
// pe.File plus the memoized row slices every component reader needs. It
// owns no parsing logic of its own, only lookups over tables clrts already
// decoded.
type source struct {
	file *pe.File

	typeDefs                []pe.TypeDefTableRow
	typeRefs                []pe.TypeRefTableRow
	memberRefs              []pe.MemberRefTableRow
	fields                  []pe.FieldTableRow
	methods                 []pe.MethodDefTableRow
	params                  []pe.ParamTableRow
	events                  []pe.EventTableRow
	properties              []pe.PropertyTableRow
	interfaceImpls          []pe.InterfaceImplTableRow
	constants               []pe.ConstantTableRow
	customAttrs             []pe.CustomAttributeTableRow
	fieldMarshals           []pe.FieldMarshalTableRow
	declSecurities          []pe.DeclSecurityTableRow
	classLayouts            []pe.ClassLayoutTableRow
	fieldLayouts            []pe.FieldLayoutTableRow
	methodSemantics         []pe.MethodSemanticsTableRow
	methodImpls             []pe.MethodImplTableRow
	moduleRefs              []pe.ModuleRefTableRow
	implMaps                []pe.ImplMapTableRow
	assemblies              []pe.AssemblyTableRow
	assemblyRefs            []pe.AssemblyRefTableRow
	exportedTypes           []pe.ExportedTypeTableRow
	genericParams           []pe.GenericParamTableRow
	genericParamConstraints []pe.GenericParamConstraintTableRow
	modules                 []pe.ModuleTableRow

	nestedClassParents        map[uint32]uint32
	customAttrsByParent       map[uint32][]pe.CustomAttributeTableRow
	genericParamsByOwner      map[uint32][]pe.GenericParamTableRow
	genericParamConstraintsBy map[uint32][]pe.GenericParamConstraintTableRow
	constantByParent          map[uint32]pe.ConstantTableRow
	fieldMarshalByParent      map[uint32]pe.FieldMarshalTableRow
	declSecurityByParent      map[uint32][]pe.DeclSecurityTableRow
	methodSemanticsByAssoc    map[uint32][]pe.MethodSemanticsTableRow
	implMapByMember           map[uint32]pe.ImplMapTableRow
	methodImplsByClass        map[uint32][]pe.MethodImplTableRow
	classLayoutByParent       map[uint32]pe.ClassLayoutTableRow
	fieldLayoutByField        map[uint32]pe.FieldLayoutTableRow
	accessorMethods           map[uint32]bool
}

func tableRows[T any](file *pe.File, table int) []T {
	t, ok := file.CLR.MetadataTables[table]
	if !ok || t.Content == nil {
		return nil
	}
	rows, _ := t.Content.([]T)
	return rows
}

func newSource(file *pe.File) *source {
	s := &source{
		file:                      file,
		typeDefs:                  tableRows[pe.TypeDefTableRow](file, pe.TypeDef),
		typeRefs:                  tableRows[pe.TypeRefTableRow](file, pe.TypeRef),
		fields:                    tableRows[pe.FieldTableRow](file, pe.Field),
		methods:                   tableRows[pe.MethodDefTableRow](file, pe.MethodDef),
		params:                    tableRows[pe.ParamTableRow](file, pe.Param),
		events:                    tableRows[pe.EventTableRow](file, pe.Event),
		properties:                tableRows[pe.PropertyTableRow](file, pe.Property),
		interfaceImpls:            tableRows[pe.InterfaceImplTableRow](file, pe.InterfaceImpl),
		constants:                 tableRows[pe.ConstantTableRow](file, pe.Constant),
		customAttrs:               tableRows[pe.CustomAttributeTableRow](file, pe.CustomAttribute),
		fieldMarshals:             tableRows[pe.FieldMarshalTableRow](file, pe.FieldMarshal),
		declSecurities:            tableRows[pe.DeclSecurityTableRow](file, pe.DeclSecurity),
		classLayouts:              tableRows[pe.ClassLayoutTableRow](file, pe.ClassLayout),
		fieldLayouts:              tableRows[pe.FieldLayoutTableRow](file, pe.FieldLayout),
		methodSemantics:           tableRows[pe.MethodSemanticsTableRow](file, pe.MethodSemantics),
		methodImpls:               tableRows[pe.MethodImplTableRow](file, pe.MethodImpl),
		moduleRefs:                tableRows[pe.ModuleRefTableRow](file, pe.ModuleRef),
		implMaps:                  tableRows[pe.ImplMapTableRow](file, pe.ImplMap),
		assemblies:                tableRows[pe.AssemblyTableRow](file, pe.Assembly),
		assemblyRefs:              tableRows[pe.AssemblyRefTableRow](file, pe.AssemblyRef),
		exportedTypes:             tableRows[pe.ExportedTypeTableRow](file, pe.ExportedType),
		genericParams:             tableRows[pe.GenericParamTableRow](file, pe.GenericParam),
		genericParamConstraints:   tableRows[pe.GenericParamConstraintTableRow](file, pe.GenericParamConstraint),
		modules:                   tableRows[pe.ModuleTableRow](file, pe.Module),
		nestedClassParents:        file.NestedClassParents(),
		customAttrsByParent:       file.CustomAttributesByParent(),
		genericParamsByOwner:      file.GenericParamsByOwner(),
		genericParamConstraintsBy: file.GenericParamConstraintsByOwner(),
	}

	s.constantByParent = make(map[uint32]pe.ConstantTableRow, len(s.constants))
	for _, c := range s.constants {
		s.constantByParent[c.Parent] = c
	}

	s.fieldMarshalByParent = make(map[uint32]pe.FieldMarshalTableRow, len(s.fieldMarshals))
	for _, m := range s.fieldMarshals {
		s.fieldMarshalByParent[m.Parent] = m
	}

	s.declSecurityByParent = make(map[uint32][]pe.DeclSecurityTableRow, len(s.declSecurities))
	for _, d := range s.declSecurities {
		s.declSecurityByParent[d.Parent] = append(s.declSecurityByParent[d.Parent], d)
	}

	s.methodSemanticsByAssoc = make(map[uint32][]pe.MethodSemanticsTableRow, len(s.methodSemantics))
	for _, ms := range s.methodSemantics {
		s.methodSemanticsByAssoc[ms.Association] = append(s.methodSemanticsByAssoc[ms.Association], ms)
	}

	s.implMapByMember = make(map[uint32]pe.ImplMapTableRow, len(s.implMaps))
	for _, im := range s.implMaps {
		s.implMapByMember[im.MemberForwarded] = im
	}

	s.methodImplsByClass = make(map[uint32][]pe.MethodImplTableRow, len(s.methodImpls))
	for _, mi := range s.methodImpls {
		s.methodImplsByClass[mi.Class] = append(s.methodImplsByClass[mi.Class], mi)
	}

	s.classLayoutByParent = make(map[uint32]pe.ClassLayoutTableRow, len(s.classLayouts))
	for _, cl := range s.classLayouts {
		s.classLayoutByParent[cl.Parent] = cl
	}

	s.fieldLayoutByField = make(map[uint32]pe.FieldLayoutTableRow, len(s.fieldLayouts))
	for _, fl := range s.fieldLayouts {
		s.fieldLayoutByField[fl.Field] = fl
	}

	s.accessorMethods = make(map[uint32]bool, len(s.methodSemantics))
	for _, ms := range s.methodSemantics {
		s.accessorMethods[ms.Method] = true
	}

	return s
}

// customAttributesOf returns the custom-attribute rows attached to (table,
// row), in table order (ECMA-335 does not mandate an order here, but the
// parser already yields them in file order, which is what a decompiler
// would show).
func (s *source) customAttributesOf(table int, rowIdx uint32) []pe.CustomAttributeTableRow {
	key, ok := pe.EncodeHasCustomAttribute(table, rowIdx)
	if !ok {
		return nil
	}
	return s.customAttrsByParent[key]
}

func (s *source) constantOf(table int, rowIdx uint32) (pe.ConstantTableRow, bool) {
	key, ok := pe.EncodeHasConstant(table, rowIdx)
	if !ok {
		return pe.ConstantTableRow{}, false
	}
	c, ok := s.constantByParent[key]
	return c, ok
}

func (s *source) fieldMarshalOf(table int, rowIdx uint32) (pe.FieldMarshalTableRow, bool) {
	key, ok := pe.EncodeHasFieldMarshal(table, rowIdx)
	if !ok {
		return pe.FieldMarshalTableRow{}, false
	}
	m, ok := s.fieldMarshalByParent[key]
	return m, ok
}

func (s *source) declSecurityOf(table int, rowIdx uint32) []pe.DeclSecurityTableRow {
	key, ok := pe.EncodeHasDeclSecurity(table, rowIdx)
	if !ok {
		return nil
	}
	return s.declSecurityByParent[key]
}

func (s *source) methodSemanticsOf(table int, rowIdx uint32) []pe.MethodSemanticsTableRow {
	key, ok := pe.EncodeHasSemantics(table, rowIdx)
	if !ok {
		return nil
	}
	return s.methodSemanticsByAssoc[key]
}

// implMapOf returns the P/Invoke ImplMap row for a MethodDef, if any.
func (s *source) implMapOf(methodRow uint32) (pe.ImplMapTableRow, bool) {
	key, ok := pe.EncodeMemberForwarded(pe.MethodDef, methodRow)
	if !ok {
		return pe.ImplMapTableRow{}, false
	}
	m, ok := s.implMapByMember[key]
	return m, ok
}

// str resolves a #Strings heap index, treating any error as the empty
// string: a corrupt heap offset should degrade a name, not abort the load.
func (s *source) str(index uint32) string {
	v, err := s.file.StringHeap(index)
	if err != nil {
		return ""
	}
	return v
}

// internStr resolves a #Strings heap index through p, so repeated names
// (e.g. common member names like "ToString") share one backing string
// across the loaded graph, the same interning contract §4.1 requires for
// type references and attribute/constant records.
func internStr(p pool, s *source, index uint32) string {
	return p.internString(s.str(index))
}

func (s *source) blob(index uint32) []byte {
	v, err := s.file.BlobHeap(index)
	if err != nil {
		return nil
	}
	return v
}

// row returns a 1-based row, or the zero value when idx is out of range
// (idx 0 always means "none" in ECMA-335 table indices).
func row[T any](rows []T, idx uint32) (T, bool) {
	var zero T
	if idx == 0 || int(idx) > len(rows) {
		return zero, false
	}
	return rows[idx-1], true
}
