package core

import "bytes"

// ByteReader is a cursor over an immutable byte slice. It never copies;
// Slice and Bytes return views into the underlying array. The zero value
// is not usable; construct with NewByteReader.
//
// ByteReader is restartable from any offset (MoveTo), which is what lets
// the xref recovery path (see repairs.go) reparse arbitrary regions of
// the buffer without tearing down and rebuilding a reader.
type ByteReader struct {
	data []byte
	pos  int
}

// NewByteReader wraps data for cursor-based reading. data is never
// mutated or copied; the caller must not mutate it for the lifetime of
// the reader.
func NewByteReader(data []byte) *ByteReader {
	return &ByteReader{data: data}
}

// Len returns the total length of the underlying buffer.
func (r *ByteReader) Len() int { return len(r.data) }

// Pos returns the current cursor position.
func (r *ByteReader) Pos() int { return r.pos }

// Remaining returns the number of unread bytes.
func (r *ByteReader) Remaining() int { return len(r.data) - r.pos }

// AtEOF reports whether the cursor has reached the end of the buffer.
func (r *ByteReader) AtEOF() bool { return r.pos >= len(r.data) }

// MoveTo repositions the cursor. Positions outside [0, len] are clamped.
func (r *ByteReader) MoveTo(pos int) {
	if pos < 0 {
		pos = 0
	}
	if pos > len(r.data) {
		pos = len(r.data)
	}
	r.pos = pos
}

// Peek returns the byte at the cursor without advancing it. The second
// return is false at EOF.
func (r *ByteReader) Peek() (byte, bool) {
	if r.pos >= len(r.data) {
		return 0, false
	}
	return r.data[r.pos], true
}

// PeekAt returns the byte `offset` positions ahead of the cursor without
// advancing it.
func (r *ByteReader) PeekAt(offset int) (byte, bool) {
	p := r.pos + offset
	if p < 0 || p >= len(r.data) {
		return 0, false
	}
	return r.data[p], true
}

// Advance reads and consumes one byte.
func (r *ByteReader) Advance() (byte, bool) {
	b, ok := r.Peek()
	if ok {
		r.pos++
	}
	return b, ok
}

// Skip advances the cursor by n bytes, clamped to the buffer length.
func (r *ByteReader) Skip(n int) {
	r.MoveTo(r.pos + n)
}

// Slice returns a view of the next n bytes without advancing the cursor.
// If fewer than n bytes remain, the short slice is returned.
func (r *ByteReader) Slice(n int) []byte {
	end := r.pos + n
	if end > len(r.data) {
		end = len(r.data)
	}
	return r.data[r.pos:end]
}

// Take reads and consumes the next n bytes, returning a view.
func (r *ByteReader) Take(n int) []byte {
	s := r.Slice(n)
	r.pos += len(s)
	return s
}

// Bytes returns the entire underlying buffer (not a copy).
func (r *ByteReader) Bytes() []byte { return r.data }

// IndexFrom returns the offset of the first occurrence of pat at or
// after the cursor, or -1 if not found. It does not move the cursor.
func (r *ByteReader) IndexFrom(pat []byte) int {
	idx := bytes.Index(r.data[r.pos:], pat)
	if idx < 0 {
		return -1
	}
	return r.pos + idx
}

// LastIndexBefore returns the offset of the last occurrence of pat that
// lies wholly within the first `before` bytes (so it ends at or before
// position `before`), or -1 if not found.
func (r *ByteReader) LastIndexBefore(pat []byte, before int) int {
	if before > len(r.data) {
		before = len(r.data)
	}
	return bytes.LastIndex(r.data[:before], pat)
}
