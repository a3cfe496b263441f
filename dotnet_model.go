// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

// This file turns the flat per-table row slices parsed by
// dotnet_metadata_tables.go into the small object graph a type-system
// loader actually wants to walk: owned Field/Method/Param/Event/Property
// ranges per TypeDef, nested-class parents, and custom attributes/generic
// parameters grouped by the row that owns them. None of this introduces new
// wire parsing; it is index arithmetic over tables that are already decoded.

func (pe *File) typeDefRows() []TypeDefTableRow {
	table, ok := pe.CLR.MetadataTables[TypeDef]
	if !ok || table.Content == nil {
		return nil
	}
	rows, _ := table.Content.([]TypeDefTableRow)
	return rows
}

func (pe *File) fieldRows() []FieldTableRow {
	table, ok := pe.CLR.MetadataTables[Field]
	if !ok || table.Content == nil {
		return nil
	}
	rows, _ := table.Content.([]FieldTableRow)
	return rows
}

func (pe *File) methodDefRows() []MethodDefTableRow {
	table, ok := pe.CLR.MetadataTables[MethodDef]
	if !ok || table.Content == nil {
		return nil
	}
	rows, _ := table.Content.([]MethodDefTableRow)
	return rows
}

func (pe *File) paramRows() []ParamTableRow {
	table, ok := pe.CLR.MetadataTables[Param]
	if !ok || table.Content == nil {
		return nil
	}
	rows, _ := table.Content.([]ParamTableRow)
	return rows
}

func (pe *File) eventMapRows() []EventMapTableRow {
	table, ok := pe.CLR.MetadataTables[EventMap]
	if !ok || table.Content == nil {
		return nil
	}
	rows, _ := table.Content.([]EventMapTableRow)
	return rows
}

func (pe *File) eventRows() []EventTableRow {
	table, ok := pe.CLR.MetadataTables[Event]
	if !ok || table.Content == nil {
		return nil
	}
	rows, _ := table.Content.([]EventTableRow)
	return rows
}

func (pe *File) propertyMapRows() []PropertyMapTableRow {
	table, ok := pe.CLR.MetadataTables[PropertyMap]
	if !ok || table.Content == nil {
		return nil
	}
	rows, _ := table.Content.([]PropertyMapTableRow)
	return rows
}

func (pe *File) propertyRows() []PropertyTableRow {
	table, ok := pe.CLR.MetadataTables[Property]
	if !ok || table.Content == nil {
		return nil
	}
	rows, _ := table.Content.([]PropertyTableRow)
	return rows
}

// ownedRange returns the [start,end) row-index range a "first of contiguous
// run" column describes: firsts holds the 1-based starting row index for
// every owner, in owner order, and total is the row count of the owned
// table. A zero firsts[i] (only ever legal at the end of the table, for a
// type that owns nothing) yields an empty range.
func ownedRange(firsts []uint32, ownerIndex int, total uint32) (start, end uint32) {
	if ownerIndex < 0 || ownerIndex >= len(firsts) {
		return 0, 0
	}
	start = firsts[ownerIndex]
	if start == 0 {
		return 0, 0
	}
	end = total + 1
	if ownerIndex+1 < len(firsts) {
		if next := firsts[ownerIndex+1]; next != 0 {
			end = next
		}
	}
	if end < start {
		end = start
	}
	return start, end
}

// FieldRange returns the 1-based [start,end) row range into the Field table
// owned by the TypeDef at typeDefIndex (1-based).
func (pe *File) FieldRange(typeDefIndex int) (start, end uint32) {
	typeDefs := pe.typeDefRows()
	firsts := make([]uint32, len(typeDefs))
	for i, row := range typeDefs {
		firsts[i] = row.FieldList
	}
	return ownedRange(firsts, typeDefIndex-1, uint32(len(pe.fieldRows())))
}

// MethodRange returns the 1-based [start,end) row range into the MethodDef
// table owned by the TypeDef at typeDefIndex (1-based).
func (pe *File) MethodRange(typeDefIndex int) (start, end uint32) {
	typeDefs := pe.typeDefRows()
	firsts := make([]uint32, len(typeDefs))
	for i, row := range typeDefs {
		firsts[i] = row.MethodList
	}
	return ownedRange(firsts, typeDefIndex-1, uint32(len(pe.methodDefRows())))
}

// ParamRange returns the 1-based [start,end) row range into the Param table
// owned by the MethodDef at methodDefIndex (1-based).
func (pe *File) ParamRange(methodDefIndex int) (start, end uint32) {
	methods := pe.methodDefRows()
	firsts := make([]uint32, len(methods))
	for i, row := range methods {
		firsts[i] = row.ParamList
	}
	return ownedRange(firsts, methodDefIndex-1, uint32(len(pe.paramRows())))
}

// EventsOfType resolves the TypeDef at typeDefIndex (1-based) to its owned
// Event row indices, via the one level of indirection the EventMap table
// adds: EventMap has no "next owner" column, so unlike Field/Method there is
// no owner-order walk — each TypeDef either has exactly one EventMap row or
// none.
func (pe *File) EventsOfType(typeDefIndex int) []uint32 {
	eventMaps := pe.eventMapRows()
	var mapRow *EventMapTableRow
	var mapIndex int
	for i, row := range eventMaps {
		if int(row.Parent) == typeDefIndex {
			mapRow = &eventMaps[i]
			mapIndex = i
			break
		}
	}
	if mapRow == nil {
		return nil
	}

	total := uint32(len(pe.eventRows()))
	start := mapRow.EventList
	end := total + 1
	if mapIndex+1 < len(eventMaps) {
		end = eventMaps[mapIndex+1].EventList
	}
	if start == 0 || end < start {
		return nil
	}

	indices := make([]uint32, 0, end-start)
	for i := start; i < end; i++ {
		indices = append(indices, i)
	}
	return indices
}

// PropertiesOfType resolves the TypeDef at typeDefIndex (1-based) to its
// owned Property row indices, through the PropertyMap indirection (the
// same shape as EventsOfType above).
func (pe *File) PropertiesOfType(typeDefIndex int) []uint32 {
	propMaps := pe.propertyMapRows()
	var mapRow *PropertyMapTableRow
	var mapIndex int
	for i, row := range propMaps {
		if int(row.Parent) == typeDefIndex {
			mapRow = &propMaps[i]
			mapIndex = i
			break
		}
	}
	if mapRow == nil {
		return nil
	}

	total := uint32(len(pe.propertyRows()))
	start := mapRow.PropertyList
	end := total + 1
	if mapIndex+1 < len(propMaps) {
		end = propMaps[mapIndex+1].PropertyList
	}
	if start == 0 || end < start {
		return nil
	}

	indices := make([]uint32, 0, end-start)
	for i := start; i < end; i++ {
		indices = append(indices, i)
	}
	return indices
}

// NestedClassParents maps a NestedClass TypeDef row index to the TypeDef row
// index of its enclosing type, per ECMA-335 §II.22.32.
func (pe *File) NestedClassParents() map[uint32]uint32 {
	table, ok := pe.CLR.MetadataTables[NestedClass]
	if !ok || table.Content == nil {
		return nil
	}
	rows, _ := table.Content.([]NestedClassTableRow)

	parents := make(map[uint32]uint32, len(rows))
	for _, row := range rows {
		parents[row.NestedClass] = row.EnclosingClass
	}
	return parents
}

// CustomAttributesByParent groups CustomAttribute rows by their resolved
// HasCustomAttribute parent coded-index value, so a caller can look up
// "every custom attribute attached to this token" without a linear scan per
// entity. The map key is the raw coded-index value as stored in the table
// (tag bits folded in, matching idxHasCustomAttributes's encoding); callers
// that need to match against a specific table's row index should fold their
// own index through the same coded-index rules.
func (pe *File) CustomAttributesByParent() map[uint32][]CustomAttributeTableRow {
	table, ok := pe.CLR.MetadataTables[CustomAttribute]
	if !ok || table.Content == nil {
		return nil
	}
	rows, _ := table.Content.([]CustomAttributeTableRow)

	byParent := make(map[uint32][]CustomAttributeTableRow, len(rows))
	for _, row := range rows {
		byParent[row.Parent] = append(byParent[row.Parent], row)
	}
	return byParent
}

// GenericParamsByOwner groups GenericParam rows by their TypeOrMethodDef
// owner coded-index value, preserving table order (which ECMA-335 requires
// to already be the declaration order, §II.22.20).
func (pe *File) GenericParamsByOwner() map[uint32][]GenericParamTableRow {
	table, ok := pe.CLR.MetadataTables[GenericParam]
	if !ok || table.Content == nil {
		return nil
	}
	rows, _ := table.Content.([]GenericParamTableRow)

	byOwner := make(map[uint32][]GenericParamTableRow, len(rows))
	for _, row := range rows {
		byOwner[row.Owner] = append(byOwner[row.Owner], row)
	}
	return byOwner
}

// GenericParamConstraintsByOwner groups GenericParamConstraint rows by the
// GenericParam row index that owns them.
func (pe *File) GenericParamConstraintsByOwner() map[uint32][]GenericParamConstraintTableRow {
	table, ok := pe.CLR.MetadataTables[GenericParamConstraint]
	if !ok || table.Content == nil {
		return nil
	}
	rows, _ := table.Content.([]GenericParamConstraintTableRow)

	byOwner := make(map[uint32][]GenericParamConstraintTableRow, len(rows))
	for _, row := range rows {
		byOwner[row.Owner] = append(byOwner[row.Owner], row)
	}
	return byOwner
}

// decodeCodedIndex splits a raw coded-index value (as stored verbatim in a
// table row by readFromMetadataStream) back into the table it names and the
// 1-based row within it, per ECMA-335 §II.24.2.6. tables must be given in
// the same tag order used when the value was read.
func decodeCodedIndex(tagbits uint8, tables []int, v uint32) (table int, row uint32) {
	mask := uint32(1)<<tagbits - 1
	tag := v & mask
	if int(tag) >= len(tables) {
		return -1, 0
	}
	return tables[tag], v >> tagbits
}

// encodeCodedIndex is decodeCodedIndex's inverse: given a table id (one of
// the values in tables) and a 1-based row, reconstruct the raw coded-index
// value that table.Row would have been stored as. Returns false if table
// does not appear in tables.
func encodeCodedIndex(tagbits uint8, tables []int, table int, row uint32) (uint32, bool) {
	for tag, t := range tables {
		if t == table {
			return (row << tagbits) | uint32(tag), true
		}
	}
	return 0, false
}

// EncodeHasCustomAttribute builds the coded-index value a CustomAttribute
// row's Parent column would carry for (table, row), the inverse of
// DecodeHasCustomAttribute. The typesystem package uses this to look up
// "every custom attribute attached to token X" in a map already grouped by
// raw Parent value (CustomAttributesByParent), without re-deriving the tag
// table for every lookup.
func EncodeHasCustomAttribute(table int, row uint32) (uint32, bool) {
	return encodeCodedIndex(5, []int{Field, TypeRef, TypeDef, Param, InterfaceImpl,
		MemberRef, Module, Property, Event, StandAloneSig, ModuleRef, TypeSpec,
		Assembly, AssemblyRef, FileMD, ExportedType, ManifestResource}, table, row)
}

// EncodeHasDeclSecurity is DecodeHasDeclSecurity's inverse.
func EncodeHasDeclSecurity(table int, row uint32) (uint32, bool) {
	return encodeCodedIndex(2, []int{TypeDef, MethodDef, Assembly}, table, row)
}

// EncodeHasFieldMarshal is DecodeHasFieldMarshal's inverse.
func EncodeHasFieldMarshal(table int, row uint32) (uint32, bool) {
	return encodeCodedIndex(1, []int{Field, Param}, table, row)
}

// EncodeHasConstant is DecodeHasConstant's inverse.
func EncodeHasConstant(table int, row uint32) (uint32, bool) {
	return encodeCodedIndex(2, []int{Field, Param, Property}, table, row)
}

// EncodeHasSemantics is DecodeHasSemantics's inverse.
func EncodeHasSemantics(table int, row uint32) (uint32, bool) {
	return encodeCodedIndex(1, []int{Event, Property}, table, row)
}

// EncodeMemberForwarded is DecodeMemberForwarded's inverse.
func EncodeMemberForwarded(table int, row uint32) (uint32, bool) {
	return encodeCodedIndex(1, []int{Field, MethodDef}, table, row)
}

// EncodeTypeOrMethodDef is DecodeTypeOrMethodDef's inverse.
func EncodeTypeOrMethodDef(table int, row uint32) (uint32, bool) {
	return encodeCodedIndex(1, []int{TypeDef, MethodDef}, table, row)
}

// DecodeTypeDefOrRef decodes a TypeDefTableRow.Extends, InterfaceImplTableRow.Interface,
// or similar TypeDefOrRef coded-index value.
func DecodeTypeDefOrRef(v uint32) (table int, row uint32) {
	return decodeCodedIndex(2, []int{TypeDef, TypeRef, TypeSpec}, v)
}

// DecodeResolutionScope decodes a TypeRefTableRow.ResolutionScope value.
func DecodeResolutionScope(v uint32) (table int, row uint32) {
	return decodeCodedIndex(2, []int{Module, ModuleRef, AssemblyRef, TypeRef}, v)
}

// DecodeHasConstant decodes a ConstantTableRow.Parent value.
func DecodeHasConstant(v uint32) (table int, row uint32) {
	return decodeCodedIndex(2, []int{Field, Param, Property}, v)
}

// DecodeHasCustomAttribute decodes a CustomAttributeTableRow.Parent value.
func DecodeHasCustomAttribute(v uint32) (table int, row uint32) {
	return decodeCodedIndex(5, []int{Field, TypeRef, TypeDef, Param, InterfaceImpl,
		MemberRef, Module, Property, Event, StandAloneSig, ModuleRef, TypeSpec,
		Assembly, AssemblyRef, FileMD, ExportedType, ManifestResource}, v)
}

// DecodeCustomAttributeType decodes a CustomAttributeTableRow.Type value.
func DecodeCustomAttributeType(v uint32) (table int, row uint32) {
	return decodeCodedIndex(3, []int{0, 0, MethodDef, MemberRef}, v)
}

// DecodeHasFieldMarshal decodes a FieldMarshalTableRow.Parent value.
func DecodeHasFieldMarshal(v uint32) (table int, row uint32) {
	return decodeCodedIndex(1, []int{Field, Param}, v)
}

// DecodeHasDeclSecurity decodes a DeclSecurityTableRow.Parent value.
func DecodeHasDeclSecurity(v uint32) (table int, row uint32) {
	return decodeCodedIndex(2, []int{TypeDef, MethodDef, Assembly}, v)
}

// DecodeHasSemantics decodes a MethodSemanticsTableRow.Association value.
func DecodeHasSemantics(v uint32) (table int, row uint32) {
	return decodeCodedIndex(1, []int{Event, Property}, v)
}

// DecodeMethodDefOrRef decodes a MethodImplTableRow.MethodBody/MethodDeclaration
// or MethodSpecTableRow.Method value.
func DecodeMethodDefOrRef(v uint32) (table int, row uint32) {
	return decodeCodedIndex(1, []int{MethodDef, MemberRef}, v)
}

// DecodeMemberForwarded decodes an ImplMapTableRow.MemberForwarded value.
func DecodeMemberForwarded(v uint32) (table int, row uint32) {
	return decodeCodedIndex(1, []int{Field, MethodDef}, v)
}

// DecodeImplementation decodes an ExportedTypeTableRow.Implementation value.
func DecodeImplementation(v uint32) (table int, row uint32) {
	return decodeCodedIndex(2, []int{AssemblyRef, ExportedType}, v)
}

// DecodeTypeOrMethodDef decodes a GenericParamTableRow.Owner value.
func DecodeTypeOrMethodDef(v uint32) (table int, row uint32) {
	return decodeCodedIndex(1, []int{TypeDef, MethodDef}, v)
}

// DecodeMemberRefParent decodes a MemberRefTableRow.Class value.
func DecodeMemberRefParent(v uint32) (table int, row uint32) {
	return decodeCodedIndex(3, []int{TypeDef, TypeRef, ModuleRef, MethodDef, TypeSpec}, v)
}
