// Package sigplaceholder implements the fixed-width /ByteRange and
// /Contents placeholder bootstrap a PDF digital signature needs: both
// values live inside the bytes the signature itself covers, so their
// final offsets cannot be known before the file exists (spec §4.9).
package sigplaceholder

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/inkwellpdf/pdfcore/core/pdferr"
)

const (
	byteRangeFieldWidth = 10
	byteRangePrefix     = "/ByteRange [0 "
)

// byteRangePlaceholder is the literal text of an unpatched placeholder,
// exactly 47 bytes (spec §4.9 / §8 "Placeholder width").
var byteRangePlaceholder = []byte(byteRangePrefix +
	strings.Repeat(" ", byteRangeFieldWidth) + " " +
	strings.Repeat(" ", byteRangeFieldWidth) + " " +
	strings.Repeat(" ", byteRangeFieldWidth) + "]")

// CreateByteRangePlaceholder returns the 47-byte /ByteRange span to
// embed verbatim (e.g. via core.MakeRaw) in a signature dictionary.
func CreateByteRangePlaceholder() []byte {
	out := make([]byte, len(byteRangePlaceholder))
	copy(out, byteRangePlaceholder)
	return out
}

// CreateContentsPlaceholder returns the "<" + 2n zero hex digits + ">"
// span reserving room for an n-byte signature blob.
func CreateContentsPlaceholder(n int) []byte {
	return []byte("<" + strings.Repeat("0", 2*n) + ">")
}

// Span is a byte range within a buffer, End exclusive.
type Span struct {
	Start, End int
}

func (s Span) Len() int { return s.End - s.Start }

// FindByteRangePlaceholder locates the first unpatched /ByteRange
// placeholder in data.
func FindByteRangePlaceholder(data []byte) (Span, error) {
	return findByteRangePlaceholderFrom(data, 0)
}

func findByteRangePlaceholderFrom(data []byte, from int) (Span, error) {
	idx := bytes.Index(data[from:], byteRangePlaceholder)
	if idx < 0 {
		return Span{}, pdferr.Placeholder("no unpatched /ByteRange placeholder found")
	}
	idx += from
	return Span{Start: idx, End: idx + len(byteRangePlaceholder)}, nil
}

// FindAllByteRangePlaceholders returns every unpatched /ByteRange span
// in data, in file order, supporting documents with several
// independent signature fields.
func FindAllByteRangePlaceholders(data []byte) []Span {
	var spans []Span
	from := 0
	for {
		span, err := findByteRangePlaceholderFrom(data, from)
		if err != nil {
			break
		}
		spans = append(spans, span)
		from = span.End
	}
	return spans
}

// FindContentsPlaceholder locates the /Contents hex-string value that
// starts at or after `from`. It accepts both a still-all-zero
// placeholder and an already-patched value, since the caller
// (ApplyPlaceholders) only ever looks this up once per field.
func FindContentsPlaceholder(data []byte, from int) (Span, error) {
	const marker = "/Contents <"
	idx := bytes.Index(data[from:], []byte(marker))
	if idx < 0 {
		return Span{}, pdferr.Placeholder("no /Contents placeholder found")
	}
	start := from + idx + len("/Contents ")
	end := bytes.IndexByte(data[start:], '>')
	if end < 0 {
		return Span{}, pdferr.Placeholder("/Contents placeholder missing closing '>'")
	}
	return Span{Start: start, End: start + end + 1}, nil
}

// ComputeByteRange derives the {length1, offset2, length2} ByteRange
// tuple from the /Contents span and the total file length, per spec
// §4.9 step 2. offset1 is always 0 and is not patched — it is written
// literally by CreateByteRangePlaceholder.
func ComputeByteRange(totalLen int, contents Span) (length1, offset2, length2 int64) {
	length1 = int64(contents.Start)
	offset2 = int64(contents.End)
	length2 = int64(totalLen) - offset2
	return
}

// PatchByteRange overwrites br's three numeric fields in place with
// length1, offset2, length2, each right-aligned (left-padded with
// spaces) in its 10-character field, per spec §4.9 step 3.
func PatchByteRange(data []byte, br Span, length1, offset2, length2 int64) error {
	if br.Len() != len(byteRangePlaceholder) {
		return pdferr.Invariant("/ByteRange span has width %d, want %d", br.Len(), len(byteRangePlaceholder))
	}
	fields := []int64{length1, offset2, length2}
	pos := br.Start + len(byteRangePrefix)
	for i, v := range fields {
		field := fmt.Sprintf("%*d", byteRangeFieldWidth, v)
		if len(field) != byteRangeFieldWidth {
			return pdferr.Placeholder("ByteRange value %d does not fit in a %d-character field", v, byteRangeFieldWidth)
		}
		copy(data[pos:pos+byteRangeFieldWidth], field)
		pos += byteRangeFieldWidth + 1 // +1 for the separating space (or the closing ']' on the last field)
		_ = i
	}
	return nil
}

// PatchContents writes the uppercase hex of sig into contents, zero-
// padding out to the placeholder's reserved width. Returns
// PlaceholderTooSmall if sig does not fit, per spec §4.9 step 6.
func PatchContents(data []byte, contents Span, sig []byte) error {
	digitSpace := contents.Len() - 2 // minus the surrounding '<' '>'
	available := digitSpace / 2
	if len(sig) > available {
		return pdferr.PlaceholderTooSmall(len(sig), available)
	}
	hexStr := strings.ToUpper(fmt.Sprintf("%x", sig))
	hexStr += strings.Repeat("0", digitSpace-len(hexStr))
	copy(data[contents.Start+1:contents.End-1], hexStr)
	return nil
}
