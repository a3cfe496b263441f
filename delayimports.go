// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import "encoding/binary"

// ImageDelayImportDescriptor represents the delay-load import descriptor,
// one per delay-loaded DLL, that the linker emits when a module is built
// with /DELAYLOAD. Unlike ImageImportDescriptor, its Name/table RVAs may be
// either real RVAs or (pre-VC7.1) raw virtual addresses, flagged by the
// Attributes field being zero; parseImports32/64 already handle that via
// isOldDelayImport.
type ImageDelayImportDescriptor struct {
	// Must be zero for the old (VC6) format, non-zero (bit 0 set) for the
	// RVA-based format.
	Attributes uint32 `json:"attributes"`

	// The RVA (or VA, in the old format) of the DLL name.
	Name uint32 `json:"name"`

	// The RVA of the module handle (in the DLL's data segment) that caches
	// the result of the first load.
	ModuleHandleRVA uint32 `json:"module_handle_rva"`

	// The RVA of the delay-load import address table.
	ImportAddressTableRVA uint32 `json:"import_address_table_rva"`

	// The RVA of the delay-load import name table, laid out identically to
	// an IAT/ILT entry.
	ImportNameTableRVA uint32 `json:"import_name_table_rva"`

	// The RVA of the optional bound delay-load import table.
	BoundImportAddressTableRVA uint32 `json:"bound_import_address_table_rva"`

	// The RVA of the optional unload delay-load import table, a duplicate
	// of the IAT that the runtime can use to restore the IAT to its
	// unbound state.
	UnloadInformationTableRVA uint32 `json:"unload_information_table_rva"`

	// The timestamp the image was bound, or zero if not bound.
	TimeDateStamp uint32 `json:"time_date_stamp"`
}

// DelayImport represents one delay-loaded DLL and the functions imported
// from it.
type DelayImport struct {
	Offset     uint32                      `json:"offset"`
	Name       string                      `json:"name"`
	Functions  []ImportFunction            `json:"functions"`
	Descriptor ImageDelayImportDescriptor  `json:"descriptor"`
}

// parseDelayImportDirectory parses the delay import directory, mirroring
// parseImportDirectory's walk of a NUL descriptor-terminated array.
func (pe *File) parseDelayImportDirectory(rva, size uint32) error {

	for {
		delayDesc := ImageDelayImportDescriptor{}
		fileOffset := pe.GetOffsetFromRva(rva)
		delayDescSize := uint32(binary.Size(delayDesc))
		err := pe.structUnpack(&delayDesc, fileOffset, delayDescSize)
		if err != nil {
			return err
		}

		if delayDesc == (ImageDelayImportDescriptor{}) {
			break
		}

		rva += delayDescSize

		maxLen := uint32(len(pe.data)) - fileOffset
		if rva > delayDesc.ImportNameTableRVA || rva > delayDesc.ImportAddressTableRVA {
			if rva < delayDesc.ImportNameTableRVA {
				maxLen = rva - delayDesc.ImportAddressTableRVA
			} else if rva < delayDesc.ImportAddressTableRVA {
				maxLen = rva - delayDesc.ImportNameTableRVA
			} else {
				maxLen = Max(rva-delayDesc.ImportNameTableRVA,
					rva-delayDesc.ImportAddressTableRVA)
			}
		}

		var importedFunctions []ImportFunction
		if pe.Is64 {
			importedFunctions, err = pe.parseImports64(&delayDesc, maxLen)
		} else {
			importedFunctions, err = pe.parseImports32(&delayDesc, maxLen)
		}
		if err != nil {
			return err
		}

		nameRVA := delayDesc.Name
		if delayDesc.Attributes == 0 {
			oh32 := pe.NtHeader.OptionalHeader.(ImageOptionalHeader32)
			nameRVA -= oh32.ImageBase
		}
		dllName := pe.getStringAtRVA(nameRVA, maxDllLength)
		if !IsValidDosFilename(dllName) {
			dllName = "*invalid*"
			continue
		}

		pe.DelayImports = append(pe.DelayImports, DelayImport{
			Offset:     fileOffset,
			Name:       string(dllName),
			Functions:  importedFunctions,
			Descriptor: delayDesc,
		})
	}

	return nil
}
