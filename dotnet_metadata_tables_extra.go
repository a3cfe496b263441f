// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

// This file rounds out dotnet_metadata_tables.go with the handful of rarely
// populated tables (the lookup-pointer tables, which only appear in
// un-optimized "#-" metadata, the edit-and-continue tables, and the
// single/multi-column tables too small to have warranted their own file)
// so that every one of the 45 ECMA-335 tables has a row type and a parser,
// and the table-stream offset never drifts when a module happens to carry
// one of them.

// FieldPtr 0x03
type FieldPtrTableRow struct {
	Field uint32 `json:"field"` // an index into the Field table
}

// FieldPtr 0x03
func (pe *File) parseMetadataFieldPtrTable(off uint32) ([]FieldPtrTableRow, uint32, error) {
	var err error
	var indexSize, n uint32

	rowCount := int(pe.CLR.MetadataTables[FieldPtr].CountCols)
	rows := make([]FieldPtrTableRow, rowCount)
	for i := 0; i < rowCount; i++ {
		if indexSize, err = pe.readFromMetadataStream(idxField, off, &rows[i].Field); err != nil {
			return rows, n, err
		}
		off += indexSize
		n += indexSize
	}
	return rows, n, nil
}

// MethodPtr 0x05
type MethodPtrTableRow struct {
	Method uint32 `json:"method"` // an index into the MethodDef table
}

// MethodPtr 0x05
func (pe *File) parseMetadataMethodPtrTable(off uint32) ([]MethodPtrTableRow, uint32, error) {
	var err error
	var indexSize, n uint32

	rowCount := int(pe.CLR.MetadataTables[MethodPtr].CountCols)
	rows := make([]MethodPtrTableRow, rowCount)
	for i := 0; i < rowCount; i++ {
		if indexSize, err = pe.readFromMetadataStream(idxMethodDef, off, &rows[i].Method); err != nil {
			return rows, n, err
		}
		off += indexSize
		n += indexSize
	}
	return rows, n, nil
}

// ParamPtr 0x07
type ParamPtrTableRow struct {
	Param uint32 `json:"param"` // an index into the Param table
}

// ParamPtr 0x07
func (pe *File) parseMetadataParamPtrTable(off uint32) ([]ParamPtrTableRow, uint32, error) {
	var err error
	var indexSize, n uint32

	rowCount := int(pe.CLR.MetadataTables[ParamPtr].CountCols)
	rows := make([]ParamPtrTableRow, rowCount)
	for i := 0; i < rowCount; i++ {
		if indexSize, err = pe.readFromMetadataStream(idxParam, off, &rows[i].Param); err != nil {
			return rows, n, err
		}
		off += indexSize
		n += indexSize
	}
	return rows, n, nil
}

// EventPtr 0x13
type EventPtrTableRow struct {
	Event uint32 `json:"event"` // an index into the Event table
}

// EventPtr 0x13
func (pe *File) parseMetadataEventPtrTable(off uint32) ([]EventPtrTableRow, uint32, error) {
	var err error
	var indexSize, n uint32

	rowCount := int(pe.CLR.MetadataTables[EventPtr].CountCols)
	rows := make([]EventPtrTableRow, rowCount)
	for i := 0; i < rowCount; i++ {
		if indexSize, err = pe.readFromMetadataStream(idxEvent, off, &rows[i].Event); err != nil {
			return rows, n, err
		}
		off += indexSize
		n += indexSize
	}
	return rows, n, nil
}

// PropertyPtr 0x16
type PropertyPtrTableRow struct {
	Property uint32 `json:"property"` // an index into the Property table
}

// PropertyPtr 0x16
func (pe *File) parseMetadataPropertyPtrTable(off uint32) ([]PropertyPtrTableRow, uint32, error) {
	var err error
	var indexSize, n uint32

	rowCount := int(pe.CLR.MetadataTables[PropertyPtr].CountCols)
	rows := make([]PropertyPtrTableRow, rowCount)
	for i := 0; i < rowCount; i++ {
		if indexSize, err = pe.readFromMetadataStream(idxProperty, off, &rows[i].Property); err != nil {
			return rows, n, err
		}
		off += indexSize
		n += indexSize
	}
	return rows, n, nil
}

// ENCLog 0x1e
type ENCLogTableRow struct {
	Token    uint32 `json:"token"`
	FuncCode uint32 `json:"func_code"`
}

// ENCLog 0x1e
func (pe *File) parseMetadataENCLogTable(off uint32) ([]ENCLogTableRow, uint32, error) {
	var err error
	var n uint32

	rowCount := int(pe.CLR.MetadataTables[ENCLog].CountCols)
	rows := make([]ENCLogTableRow, rowCount)
	for i := 0; i < rowCount; i++ {
		if rows[i].Token, err = pe.ReadUint32(off); err != nil {
			return rows, n, err
		}
		off += 4
		n += 4
		if rows[i].FuncCode, err = pe.ReadUint32(off); err != nil {
			return rows, n, err
		}
		off += 4
		n += 4
	}
	return rows, n, nil
}

// ENCMap 0x1f
type ENCMapTableRow struct {
	Token uint32 `json:"token"`
}

// ENCMap 0x1f
func (pe *File) parseMetadataENCMapTable(off uint32) ([]ENCMapTableRow, uint32, error) {
	var err error
	var n uint32

	rowCount := int(pe.CLR.MetadataTables[ENCMap].CountCols)
	rows := make([]ENCMapTableRow, rowCount)
	for i := 0; i < rowCount; i++ {
		if rows[i].Token, err = pe.ReadUint32(off); err != nil {
			return rows, n, err
		}
		off += 4
		n += 4
	}
	return rows, n, nil
}

// AssemblyProcessor 0x21
func (pe *File) parseMetadataAssemblyProcessorTable(off uint32) ([]AssemblyProcessorTableRow, uint32, error) {
	var err error
	var n uint32

	rowCount := int(pe.CLR.MetadataTables[AssemblyProcessor].CountCols)
	rows := make([]AssemblyProcessorTableRow, rowCount)
	for i := 0; i < rowCount; i++ {
		if rows[i].Processor, err = pe.ReadUint32(off); err != nil {
			return rows, n, err
		}
		off += 4
		n += 4
	}
	return rows, n, nil
}

// AssemblyOS 0x22
func (pe *File) parseMetadataAssemblyOSTable(off uint32) ([]AssemblyOSTableRow, uint32, error) {
	var err error
	var n uint32

	rowCount := int(pe.CLR.MetadataTables[AssemblyOS].CountCols)
	rows := make([]AssemblyOSTableRow, rowCount)
	for i := 0; i < rowCount; i++ {
		if rows[i].OSPlatformID, err = pe.ReadUint32(off); err != nil {
			return rows, n, err
		}
		off += 4
		n += 4
		if rows[i].OSMajorVersion, err = pe.ReadUint32(off); err != nil {
			return rows, n, err
		}
		off += 4
		n += 4
		if rows[i].OSMinorVersion, err = pe.ReadUint32(off); err != nil {
			return rows, n, err
		}
		off += 4
		n += 4
	}
	return rows, n, nil
}

// AssemblyRefProcessor 0x24
func (pe *File) parseMetadataAssemblyRefProcessorTable(off uint32) ([]AssemblyRefProcessorTableRow, uint32, error) {
	var err error
	var indexSize, n uint32

	rowCount := int(pe.CLR.MetadataTables[AssemblyRefProcessor].CountCols)
	rows := make([]AssemblyRefProcessorTableRow, rowCount)
	for i := 0; i < rowCount; i++ {
		if rows[i].Processor, err = pe.ReadUint32(off); err != nil {
			return rows, n, err
		}
		off += 4
		n += 4
		if indexSize, err = pe.readFromMetadataStream(idxAssemblyRef, off, &rows[i].AssemblyRef); err != nil {
			return rows, n, err
		}
		off += indexSize
		n += indexSize
	}
	return rows, n, nil
}

// AssemblyRefOS 0x25
func (pe *File) parseMetadataAssemblyRefOSTable(off uint32) ([]AssemblyRefOSTableRow, uint32, error) {
	var err error
	var indexSize, n uint32

	rowCount := int(pe.CLR.MetadataTables[AssemblyRefOS].CountCols)
	rows := make([]AssemblyRefOSTableRow, rowCount)
	for i := 0; i < rowCount; i++ {
		if rows[i].OSPlatformID, err = pe.ReadUint32(off); err != nil {
			return rows, n, err
		}
		off += 4
		n += 4
		if rows[i].OSMajorVersion, err = pe.ReadUint32(off); err != nil {
			return rows, n, err
		}
		off += 4
		n += 4
		if rows[i].OSMinorVersion, err = pe.ReadUint32(off); err != nil {
			return rows, n, err
		}
		off += 4
		n += 4
		if indexSize, err = pe.readFromMetadataStream(idxAssemblyRef, off, &rows[i].AssemblyRef); err != nil {
			return rows, n, err
		}
		off += indexSize
		n += indexSize
	}
	return rows, n, nil
}

// File 0x26
func (pe *File) parseMetadataFileTable(off uint32) ([]FileTableRow, uint32, error) {
	var err error
	var indexSize, n uint32

	rowCount := int(pe.CLR.MetadataTables[FileMD].CountCols)
	rows := make([]FileTableRow, rowCount)
	for i := 0; i < rowCount; i++ {
		if rows[i].Flags, err = pe.ReadUint32(off); err != nil {
			return rows, n, err
		}
		off += 4
		n += 4
		if indexSize, err = pe.readFromMetadataStream(idxString, off, &rows[i].Name); err != nil {
			return rows, n, err
		}
		off += indexSize
		n += indexSize
		if indexSize, err = pe.readFromMetadataStream(idxBlob, off, &rows[i].HashValue); err != nil {
			return rows, n, err
		}
		off += indexSize
		n += indexSize
	}
	return rows, n, nil
}
