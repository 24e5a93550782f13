package writer

import (
	"bytes"
	"fmt"

	"github.com/inkwellpdf/pdfcore/common"
	"github.com/inkwellpdf/pdfcore/core"
	"github.com/inkwellpdf/pdfcore/core/pdferr"
)

// IncrementalOptions configures WriteIncremental.
type IncrementalOptions struct {
	// CompressNewStreams Flate-encodes every written stream with no
	// /Filter entry, new and dirty preexisting streams alike; it does
	// not tell the two apart. A stream that already has a /Filter entry
	// is written with its existing filters regardless of this flag.
	CompressNewStreams bool
	// ID, if non-nil, is set as the trailer's /ID array (typically
	// [<unchanged file id> <new revision id>]). Left unset, no /ID
	// entry is emitted.
	ID *core.PdfObjectArray
}

// WriteIncremental appends the registry's dirty and new objects after
// original's final byte, leaving the existing bytes untouched, per
// spec §4.8.
func WriteIncremental(reg *core.Registry, original []byte, priorXrefOffset int64, catalog, info *core.PdfObjectReference, opts IncrementalOptions) (*Result, error) {
	dirty := reg.DirtyOrNewNumbers()
	if len(dirty) == 0 {
		common.Log.Trace("WriteIncremental: nothing dirty, returning original bytes unchanged")
		return &Result{Bytes: original, XrefOffset: priorXrefOffset}, nil
	}
	common.Log.Trace("WriteIncremental: appending %d dirty or new objects", len(dirty))

	var buf bytes.Buffer
	buf.Write(original)
	if len(original) > 0 && original[len(original)-1] != '\n' {
		buf.WriteByte('\n')
	}

	offsets := make(map[int64]int64, len(dirty))
	maxObjNum := int64(0)
	for _, num := range reg.AllNumbers() {
		if num > maxObjNum {
			maxObjNum = num
		}
	}

	for _, num := range dirty {
		ref := &core.PdfObjectReference{ObjectNumber: num, GenerationNumber: reg.Generation(num)}
		val := reg.Get(ref)
		if val == nil {
			return nil, pdferr.Invariant("dirty or new object %d has no resolvable value", num)
		}

		offsets[num] = int64(buf.Len())

		compress := opts.CompressNewStreams
		if stream, ok := val.(*core.PdfObjectStream); ok && stream.Get("Filter") != nil {
			compress = false
		}
		if err := writeIndirectObject(&buf, num, reg.Generation(num), val, compress); err != nil {
			return nil, err
		}
	}

	xrefOffset := int64(buf.Len())
	writeIncrementalXref(&buf, reg, dirty, offsets)

	trailer := core.MakeDict()
	trailer.Set("Size", core.MakeInteger(maxObjNum+1))
	trailer.Set("Root", core.MakeReference(catalog.ObjectNumber, catalog.GenerationNumber))
	if info != nil {
		trailer.Set("Info", core.MakeReference(info.ObjectNumber, info.GenerationNumber))
	}
	trailer.Set("Prev", core.MakeInteger(priorXrefOffset))
	if opts.ID != nil {
		trailer.Set("ID", opts.ID)
	}
	buf.WriteString("trailer\n")
	buf.WriteString(trailer.WriteString())
	buf.WriteByte('\n')

	fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", xrefOffset)

	result := buf.Bytes()
	if err := verifyIncrementalSave(original, result); err != nil {
		return nil, err
	}

	for _, num := range dirty {
		reg.MarkWrittenAt(num, offsets[num])
	}
	reg.ClearDirty()

	return &Result{Bytes: result, XrefOffset: xrefOffset}, nil
}

// writeIncrementalXref emits the free-list head subsection followed by
// one subsection per contiguous run of updated object numbers, per
// spec §4.8 step 4.
func writeIncrementalXref(buf *bytes.Buffer, reg *core.Registry, dirty []int64, offsets map[int64]int64) {
	buf.WriteString("xref\n")
	buf.WriteString("0 1\n")
	buf.WriteString("0000000000 65535 f\r\n")

	for i := 0; i < len(dirty); {
		start := dirty[i]
		j := i
		for j+1 < len(dirty) && dirty[j+1] == dirty[j]+1 {
			j++
		}
		fmt.Fprintf(buf, "%d %d\n", start, dirty[j]-start+1)
		for n := start; n <= dirty[j]; n++ {
			fmt.Fprintf(buf, "%010d %05d n\r\n", offsets[n], reg.Generation(n))
		}
		i = j + 1
	}
}

// verifyIncrementalSave checks the three post-conditions spec §4.8
// requires of WriteIncremental's output, given the original buffer it
// was derived from.
func verifyIncrementalSave(original, result []byte) error {
	if len(result) < len(original) {
		return pdferr.Invariant("incremental save shrank the file: %d < %d", len(result), len(original))
	}
	if !bytes.Equal(result[:len(original)], original) {
		return pdferr.Invariant("incremental save did not preserve the original byte prefix")
	}
	trimmed := bytes.TrimRight(result, "\r\n")
	if !bytes.HasSuffix(trimmed, []byte("%%EOF")) {
		return pdferr.Invariant("incremental save does not end with %%%%EOF")
	}
	return nil
}
