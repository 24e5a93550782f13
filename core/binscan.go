package core

import (
	"encoding/binary"

	"github.com/inkwellpdf/pdfcore/core/pdferr"
)

// BinaryScanner reads fixed-width big-endian fields out of a byte
// slice, bounds-checking every read. It backs cross-reference stream
// field decoding (spec §4.4), where /W gives each row's three field
// widths in bytes and every field must be read as an unsigned
// big-endian integer regardless of width.
//
// Unlike the jbig2 bit-level reader in the wider unipdf codebase,
// xref streams only ever need byte-aligned big-endian integers, so
// BinaryScanner is built directly on encoding/binary rather than a bit
// reader: there is no sub-byte field in this data, and reimplementing
// bit-level shifting for whole-byte fields would just be pure
// boilerplate around what encoding/binary already does correctly.
type BinaryScanner struct {
	data []byte
	pos  int
}

// NewBinaryScanner wraps data for sequential big-endian reads.
func NewBinaryScanner(data []byte) *BinaryScanner {
	return &BinaryScanner{data: data}
}

// Pos returns the current read offset.
func (s *BinaryScanner) Pos() int { return s.pos }

// Remaining returns the number of unread bytes.
func (s *BinaryScanner) Remaining() int { return len(s.data) - s.pos }

// Uint reads a big-endian unsigned integer of width bytes (0..8).
// Width 0 is the xref-stream convention for "field absent, use the
// type's default" and returns (0, nil).
func (s *BinaryScanner) Uint(width int) (uint64, error) {
	if width == 0 {
		return 0, nil
	}
	if width < 0 || width > 8 {
		return 0, pdferr.Malformed(int64(s.pos), "unsupported field width %d", width)
	}
	if s.Remaining() < width {
		return 0, pdferr.Malformed(int64(s.pos), "binary scanner read past end of buffer")
	}
	var buf [8]byte
	copy(buf[8-width:], s.data[s.pos:s.pos+width])
	s.pos += width
	return binary.BigEndian.Uint64(buf[:]), nil
}

// Uint8 reads one byte as an unsigned integer.
func (s *BinaryScanner) Uint8() (uint8, error) {
	v, err := s.Uint(1)
	return uint8(v), err
}

// Uint16 reads two bytes big-endian.
func (s *BinaryScanner) Uint16() (uint16, error) {
	v, err := s.Uint(2)
	return uint16(v), err
}

// Uint32 reads four bytes big-endian.
func (s *BinaryScanner) Uint32() (uint32, error) {
	v, err := s.Uint(4)
	return uint32(v), err
}

// Bytes reads n raw bytes.
func (s *BinaryScanner) Bytes(n int) ([]byte, error) {
	if s.Remaining() < n {
		return nil, pdferr.Malformed(int64(s.pos), "binary scanner read past end of buffer")
	}
	b := s.data[s.pos : s.pos+n]
	s.pos += n
	return b, nil
}

// Skip advances the cursor by n bytes without reading them.
func (s *BinaryScanner) Skip(n int) { s.pos += n }
