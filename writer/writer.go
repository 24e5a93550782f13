package writer

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/inkwellpdf/pdfcore/common"
	"github.com/inkwellpdf/pdfcore/core"
	"github.com/inkwellpdf/pdfcore/core/pdferr"
)

// Options configures WriteComplete. WriteIncremental takes
// IncrementalOptions instead.
type Options struct {
	// CompressStreams Flate-encodes any stream lacking an existing
	// /Filter entry (spec §4.7 step 4 / §4.8 step 3).
	CompressStreams bool
	// UseXrefStream selects a /Type /XRef stream over the classical
	// table (spec §4.7 step 5). WriteIncremental does not take Options
	// and always appends a classical xref table.
	UseXrefStream bool
	// PackObjectStreams, when UseXrefStream is also set, writes every
	// non-stream reachable object (other than the catalog, kept
	// directly addressable) into a single /Type /ObjStm object instead
	// of as its own indirect object, the write-side mirror of the
	// UnresolvedCompressed registry entry kind (spec §3.3).
	PackObjectStreams bool
	// Version is the header version, e.g. "1.7". Empty defaults to "1.7".
	Version string
}

// DefaultOptions matches the spec's stated defaults.
func DefaultOptions() Options {
	return Options{CompressStreams: true, UseXrefStream: false, Version: "1.7"}
}

// Result is the artefact of a write: the produced bytes and the byte
// offset of the xref section, which a subsequent incremental save
// needs as its /Prev value (spec §4.7 "Returned artefacts").
type Result struct {
	Bytes      []byte
	XrefOffset int64
}

// binaryCommentLine is four bytes >= 0x80 on their own comment line,
// signalling binary content to text-mode tools (spec §4.7 step 3).
var binaryCommentLine = []byte{'%', 0xE2, 0xE3, 0xCF, 0xD3, '\n'}

// WriteComplete serializes every object reachable from catalog (and,
// if non-nil, info) into a fresh PDF buffer, per spec §4.7.
func WriteComplete(reg *core.Registry, catalog, info *core.PdfObjectReference, opts Options) (*Result, error) {
	if opts.Version == "" {
		opts.Version = "1.7"
	}

	roots := []*core.PdfObjectReference{catalog}
	if info != nil {
		roots = append(roots, info)
	}
	keep, order := reachable(reg, roots...)
	common.Log.Trace("WriteComplete: %d objects reachable from catalog %d", len(order), catalog.ObjectNumber)

	numbers := make([]int64, 0, len(order))
	seen := map[int64]bool{}
	for _, n := range order {
		if !seen[n] {
			seen[n] = true
			numbers = append(numbers, n)
		}
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })

	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("%%PDF-%s\n", opts.Version))
	buf.Write(binaryCommentLine)

	offsets := make(map[int64]int64, len(numbers))
	compressed := map[int64][2]int64{} // objNum -> {objStmNum, index}
	maxObjNum := int64(0)
	for _, num := range numbers {
		if num > maxObjNum {
			maxObjNum = num
		}
	}

	packable := opts.UseXrefStream && opts.PackObjectStreams
	var objStmBody bytes.Buffer
	var packedNums []int64
	var packedOffsets []int64

	for _, num := range numbers {
		if !keep[num] {
			continue
		}
		ref := &core.PdfObjectReference{ObjectNumber: num, GenerationNumber: reg.Generation(num)}
		val := reg.Get(ref)
		if val == nil {
			continue
		}

		if _, isStream := val.(*core.PdfObjectStream); packable && !isStream && num != catalog.ObjectNumber {
			packedOffsets = append(packedOffsets, int64(objStmBody.Len()))
			objStmBody.WriteString(val.WriteString())
			objStmBody.WriteByte(' ')
			packedNums = append(packedNums, num)
			continue
		}

		offsets[num] = int64(buf.Len())
		if err := writeIndirectObject(&buf, num, reg.Generation(num), val, opts.CompressStreams); err != nil {
			return nil, err
		}
	}

	if len(packedNums) > 0 {
		objStmNum := maxObjNum + 1
		maxObjNum = objStmNum

		var header bytes.Buffer
		for i, num := range packedNums {
			fmt.Fprintf(&header, "%d %d ", num, packedOffsets[i])
			compressed[num] = [2]int64{objStmNum, int64(i)}
		}

		dict := core.MakeDict()
		dict.Set("Type", core.MakeName("ObjStm"))
		dict.Set("N", core.MakeInteger(int64(len(packedNums))))
		dict.Set("First", core.MakeInteger(int64(header.Len())))
		full := append(header.Bytes(), objStmBody.Bytes()...)
		stream := core.MakeStream(dict, full)

		offsets[objStmNum] = int64(buf.Len())
		if err := writeIndirectObject(&buf, objStmNum, 0, stream, opts.CompressStreams); err != nil {
			return nil, err
		}
	}

	xrefOffset := int64(buf.Len())

	trailerExtra := core.MakeDict()
	if info != nil {
		trailerExtra.Set("Info", core.MakeReference(info.ObjectNumber, info.GenerationNumber))
	}

	if opts.UseXrefStream {
		allNumbers := numbers
		if len(packedNums) > 0 {
			allNumbers = append(append([]int64(nil), numbers...), maxObjNum) // include the ObjStm container itself
		}
		if err := writeXrefStream(&buf, reg, allNumbers, offsets, compressed, maxObjNum, catalog, trailerExtra); err != nil {
			return nil, err
		}
	} else {
		writeClassicalXref(&buf, numbers, offsets, maxObjNum)
		writeTrailer(&buf, maxObjNum, catalog, trailerExtra)
	}

	buf.WriteString(fmt.Sprintf("startxref\n%d\n%%%%EOF\n", xrefOffset))

	return &Result{Bytes: buf.Bytes(), XrefOffset: xrefOffset}, nil
}

// writeIndirectObject emits "n g obj\n<value>\nendobj\n", compressing a
// stream's payload first if compress is set and it has no /Filter yet.
func writeIndirectObject(buf *bytes.Buffer, num, gen int64, val core.PdfObject, compress bool) error {
	fmt.Fprintf(buf, "%d %d obj\n", num, gen)

	stream, isStream := val.(*core.PdfObjectStream)
	if !isStream {
		buf.WriteString(val.WriteString())
		buf.WriteString("\nendobj\n")
		return nil
	}

	if compress && stream.Get("Filter") == nil {
		decoded, err := core.DecodeStream(stream)
		if err != nil {
			return err
		}
		stream.Set("Filter", core.MakeName(core.FilterFlate))
		if err := core.SetDecodedStream(stream, decoded); err != nil {
			return err
		}
	}
	stream.Set("Length", core.MakeInteger(int64(len(stream.Stream))))

	buf.WriteString(stream.PdfObjectDictionary.WriteString())
	buf.WriteString("\nstream\n")
	buf.Write(stream.Stream)
	buf.WriteString("\nendstream\nendobj\n")
	return nil
}

func writeClassicalXref(buf *bytes.Buffer, numbers []int64, offsets map[int64]int64, maxObjNum int64) {
	buf.WriteString("xref\n")

	rows := make([]int64, 0, len(numbers)+1)
	rows = append(rows, 0)
	rows = append(rows, numbers...)
	sort.Slice(rows, func(i, j int) bool { return rows[i] < rows[j] })

	for i := 0; i < len(rows); {
		start := rows[i]
		j := i
		for j+1 < len(rows) && rows[j+1] == rows[j]+1 {
			j++
		}
		count := rows[j] - start + 1
		fmt.Fprintf(buf, "%d %d\n", start, count)
		for n := start; n <= rows[j]; n++ {
			if n == 0 {
				buf.WriteString("0000000000 65535 f\r\n")
				continue
			}
			off, ok := offsets[n]
			if !ok {
				buf.WriteString("0000000000 00000 f\r\n")
				continue
			}
			fmt.Fprintf(buf, "%010d %05d n\r\n", off, 0)
		}
		i = j + 1
	}
}

func writeTrailer(buf *bytes.Buffer, maxObjNum int64, catalog *core.PdfObjectReference, extra *core.PdfObjectDictionary) {
	dict := core.MakeDict()
	dict.Set("Size", core.MakeInteger(maxObjNum+1))
	dict.Set("Root", core.MakeReference(catalog.ObjectNumber, catalog.GenerationNumber))
	for _, key := range extra.Keys() {
		dict.Set(key, extra.Get(key))
	}
	buf.WriteString("trailer\n")
	buf.WriteString(dict.WriteString())
	buf.WriteByte('\n')
}

// writeXrefStream builds a /Type /XRef stream object whose rows cover
// every written object plus the mandatory type-0 free entry at slot 0
// (spec §4.7 step 5).
func writeXrefStream(buf *bytes.Buffer, reg *core.Registry, numbers []int64, offsets map[int64]int64, compressed map[int64][2]int64, maxObjNum int64, catalog *core.PdfObjectReference, extra *core.PdfObjectDictionary) error {
	xrefObjNum := maxObjNum + 1

	rows := make([]int64, 0, len(numbers)+1)
	rows = append(rows, 0)
	rows = append(rows, numbers...)
	rows = append(rows, xrefObjNum)
	sort.Slice(rows, func(i, j int) bool { return rows[i] < rows[j] })

	offWidth := widthFor(int64(buf.Len()) + 1024)
	idxWidth := widthFor(int64(len(compressed)) + 1)
	field3Width := 2
	if idxWidth > field3Width {
		field3Width = idxWidth
	}

	var body bytes.Buffer
	for _, n := range rows {
		switch {
		case n == 0:
			writeXrefStreamRow(&body, 0, 0, 65535, offWidth, field3Width)
		case n == xrefObjNum:
			writeXrefStreamRow(&body, 1, int64(buf.Len()), 0, offWidth, field3Width)
		default:
			if cv, ok := compressed[n]; ok {
				writeXrefStreamRow(&body, 2, cv[0], cv[1], offWidth, field3Width)
				continue
			}
			off, ok := offsets[n]
			if !ok {
				return pdferr.Invariant("xref stream row for object %d has no recorded offset", n)
			}
			writeXrefStreamRow(&body, 1, off, reg.Generation(n), offWidth, field3Width)
		}
	}

	dict := core.MakeDict()
	dict.Set("Type", core.MakeName("XRef"))
	dict.Set("Size", core.MakeInteger(xrefObjNum+1))
	dict.Set("W", core.MakeArrayFromIntegers([]int{1, offWidth, field3Width}))
	dict.Set("Index", subsectionIndex(rows))
	dict.Set("Root", core.MakeReference(catalog.ObjectNumber, catalog.GenerationNumber))
	for _, key := range extra.Keys() {
		dict.Set(key, extra.Get(key))
	}

	stream := core.MakeStream(dict, body.Bytes())
	return writeIndirectObject(buf, xrefObjNum, 0, stream, false)
}

func subsectionIndex(rows []int64) *core.PdfObjectArray {
	arr := core.MakeArray()
	for i := 0; i < len(rows); {
		start := rows[i]
		j := i
		for j+1 < len(rows) && rows[j+1] == rows[j]+1 {
			j++
		}
		arr.Append(core.MakeInteger(start), core.MakeInteger(rows[j]-start+1))
		i = j + 1
	}
	return arr
}

func writeXrefStreamRow(buf *bytes.Buffer, typ int, field2, field3 int64, offWidth, field3Width int) {
	buf.WriteByte(byte(typ))
	writeBigEndian(buf, field2, offWidth)
	writeBigEndian(buf, field3, field3Width)
}

func writeBigEndian(buf *bytes.Buffer, v int64, width int) {
	b := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		b[i] = byte(v & 0xFF)
		v >>= 8
	}
	buf.Write(b)
}

func widthFor(maxVal int64) int {
	w := 1
	for (int64(1) << uint(8*w)) <= maxVal {
		w++
	}
	return w
}
