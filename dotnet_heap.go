// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import "errors"

// ErrHeapStreamMissing is reported when a module's metadata root does not
// carry one of the four well-known heap streams (#Strings, #US, #GUID,
// #Blob) that a table row index references.
var ErrHeapStreamMissing = errors.New("metadata heap stream not present")

// ErrBlobOutOfBounds is reported when a heap index, or a length prefix read
// from the blob heap itself, runs past the end of its backing stream.
var ErrBlobOutOfBounds = errors.New("metadata heap index out of bounds")

// decodeCompressedUint decodes one ECMA-335 §II.23.2 compressed unsigned
// integer from the front of data. It returns the decoded value, the number
// of bytes consumed, and false if data is too short or carries an invalid
// leading byte (0xff is reserved and never appears as a lead byte).
func decodeCompressedUint(data []byte) (uint32, int, bool) {
	if len(data) == 0 {
		return 0, 0, false
	}

	b0 := data[0]
	switch {
	case b0&0x80 == 0:
		// 0bbbbbbb, one byte, value 0-0x7f.
		return uint32(b0), 1, true
	case b0&0xc0 == 0x80:
		// 10bbbbbb bbbbbbbb, two bytes, value 0x80-0x3fff.
		if len(data) < 2 {
			return 0, 0, false
		}
		return (uint32(b0&0x3f) << 8) | uint32(data[1]), 2, true
	case b0&0xe0 == 0xc0:
		// 110bbbbb bbbbbbbb bbbbbbbb bbbbbbbb, four bytes, value
		// 0x4000-0x1fffffff.
		if len(data) < 4 {
			return 0, 0, false
		}
		v := (uint32(b0&0x1f) << 24) | (uint32(data[1]) << 16) |
			(uint32(data[2]) << 8) | uint32(data[3])
		return v, 4, true
	default:
		return 0, 0, false
	}
}

// decodeCompressedInt decodes one ECMA-335 §II.23.2 compressed signed
// integer. The sign bit is the low bit of the decoded unsigned value; the
// remaining bits are rotated right by one to recover the magnitude.
func decodeCompressedInt(data []byte) (int32, int, bool) {
	u, n, ok := decodeCompressedUint(data)
	if !ok {
		return 0, 0, false
	}

	negative := u&1 != 0
	var width uint32
	switch n {
	case 1:
		width = 7
	case 2:
		width = 14
	case 4:
		width = 29
	}

	v := u >> 1
	if negative {
		// Two's-complement sign-extend within the encoded width, then
		// negate per §II.23.2's rotate-and-complement rule.
		v = v - (1 << (width - 1))
	}
	return int32(v), n, true
}

// heapStream returns the raw bytes of one of the four well-known metadata
// heaps by their conventional stream names.
func (pe *File) heapStream(name string) ([]byte, error) {
	data, ok := pe.CLR.MetadataStreams[name]
	if !ok {
		return nil, ErrHeapStreamMissing
	}
	return data, nil
}

// StringHeap resolves an index into the #Strings heap to the NUL-terminated
// UTF-8 string stored there. A zero index is the empty string, per
// ECMA-335 §II.24.2.3.
func (pe *File) StringHeap(index uint32) (string, error) {
	if index == 0 {
		return "", nil
	}

	heap, err := pe.heapStream("#Strings")
	if err != nil {
		return "", err
	}
	if index >= uint32(len(heap)) {
		return "", ErrBlobOutOfBounds
	}

	end := index
	for end < uint32(len(heap)) && heap[end] != 0 {
		end++
	}
	return string(heap[index:end]), nil
}

// USHeap resolves an index into the #US ("user strings") heap to the UTF-16
// string stored there. Per ECMA-335 §II.24.2.4 each blob in this heap is a
// compressed-length-prefixed run of UTF-16 code units followed by one
// trailing byte that is non-zero only if the string contains characters
// requiring special handling on round-trip; that trailing byte carries no
// character data and is not part of the decoded text.
func (pe *File) USHeap(index uint32) (string, error) {
	if index == 0 {
		return "", nil
	}

	heap, err := pe.heapStream("#US")
	if err != nil {
		return "", err
	}
	if index >= uint32(len(heap)) {
		return "", ErrBlobOutOfBounds
	}

	length, n, ok := decodeCompressedUint(heap[index:])
	if !ok {
		return "", ErrBlobOutOfBounds
	}
	start := index + uint32(n)
	if length == 0 {
		return "", nil
	}

	// The final byte is the trailing marker, not UTF-16 data.
	utf16Len := length - 1
	if start+utf16Len > uint32(len(heap)) {
		return "", ErrBlobOutOfBounds
	}
	return DecodeUTF16String(heap[start : start+utf16Len])
}

// GUIDHeap resolves a 1-based index into the #GUID heap to the 16-byte GUID
// stored there, in the little-endian-per-field layout ECMA-335 §II.23.2.6
// describes. A zero index means "no GUID".
func (pe *File) GUIDHeap(index uint32) ([16]byte, error) {
	var guid [16]byte
	if index == 0 {
		return guid, nil
	}

	heap, err := pe.heapStream("#GUID")
	if err != nil {
		return guid, err
	}
	off := (index - 1) * 16
	if off+16 > uint32(len(heap)) {
		return guid, ErrBlobOutOfBounds
	}
	copy(guid[:], heap[off:off+16])
	return guid, nil
}

// BlobHeap resolves an index into the #Blob heap to the raw bytes of the
// blob stored there, stripping the compressed length prefix that precedes
// every blob per ECMA-335 §II.24.2.4. A zero index is the empty blob.
func (pe *File) BlobHeap(index uint32) ([]byte, error) {
	if index == 0 {
		return nil, nil
	}

	heap, err := pe.heapStream("#Blob")
	if err != nil {
		return nil, err
	}
	if index >= uint32(len(heap)) {
		return nil, ErrBlobOutOfBounds
	}

	length, n, ok := decodeCompressedUint(heap[index:])
	if !ok {
		return nil, ErrBlobOutOfBounds
	}
	start := index + uint32(n)
	if start+length > uint32(len(heap)) {
		return nil, ErrBlobOutOfBounds
	}
	return heap[start : start+length], nil
}
