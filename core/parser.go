package core

import (
	"strings"

	"github.com/inkwellpdf/pdfcore/core/pdferr"
)

// DocumentSource is a fully-loaded PDF buffer: the raw bytes plus the
// Registry wired to resolve objects lazily against them. It is the
// return value of Load and the type the document facade (see
// document/document.go) builds on top of.
type DocumentSource struct {
	Data     []byte
	Registry *Registry
	Trailer  *PdfObjectDictionary

	// XrefOffset is the byte offset of the xref section findStartxref
	// located, for use as /Prev by a subsequent incremental save. It is
	// 0 when the document was only readable via RecoverXref.
	XrefOffset int64
}

// Load parses data's header and cross-reference structure (following
// /Prev, falling back to RecoverXref on failure) and returns a
// DocumentSource whose Registry lazily resolves individual objects on
// first access, per spec §4.2/§4.3's lazy-loading model.
func Load(data []byte) (*DocumentSource, error) {
	startOffset, err := findStartxref(data)
	var table *XrefTable
	if err == nil {
		table, err = LoadXref(data, startOffset)
	}
	recovered := false
	if err != nil || table.Trailer == nil || table.Trailer.Get("Root") == nil {
		table, err = RecoverXref(data)
		if err != nil {
			return nil, err
		}
		recovered = true
	}

	registry := NewRegistry()
	src := &DocumentSource{Data: data, Registry: registry, Trailer: table.Trailer}
	if !recovered {
		src.XrefOffset = startOffset
	} else {
		registry.Warn("xref table unreadable, recovered %d objects by linear scan", len(table.Entries))
	}

	registry.SetLoaders(
		func(offset int64) (PdfObject, error) { return loadObjectAt(src, offset) },
		func(streamObjNum int64, index int) (PdfObject, error) {
			return loadFromObjectStream(src, streamObjNum, index)
		},
	)

	for _, e := range table.Entries {
		switch e.Type {
		case XrefInUse:
			registry.SetUnresolved(e.ObjectNumber, e.Generation, e.Offset)
		case XrefCompressed:
			registry.SetUnresolvedCompressed(e.ObjectNumber, e.StreamObjNum, e.IndexInStream)
		case XrefFree:
			registry.SetFree(e.ObjectNumber, 0, e.Generation)
		}
	}

	return src, nil
}

// findStartxref locates the trailing "startxref\n<offset>\n%%EOF"
// marker, scanning backward from the end of the buffer (spec §4.2).
func findStartxref(data []byte) (int64, error) {
	br := NewByteReader(data)
	idx := br.LastIndexBefore([]byte("startxref"), len(data))
	if idx < 0 {
		return 0, pdferr.Malformed(int64(len(data)), "startxref marker not found")
	}
	lx := NewLexer(data)
	lx.Seek(int64(idx) + int64(len("startxref")))
	lx.SkipWhitespaceAndComments()
	tok, err := lx.Next()
	if err != nil || tok.Kind != TokenNumber {
		return 0, pdferr.Malformed(int64(idx), "startxref not followed by an offset")
	}
	v, ok := asInt(tok.Number)
	if !ok {
		return 0, pdferr.Malformed(int64(idx), "startxref offset not an integer")
	}
	return v, nil
}

// loadObjectAt parses the indirect object ("n g obj ... endobj") found
// at offset and returns its direct value: the dictionary/array/etc for
// a plain object, or a *PdfObjectStream if it is followed by a stream
// keyword.
func loadObjectAt(src *DocumentSource, offset int64) (PdfObject, error) {
	lx := NewLexer(src.Data)
	lx.Seek(offset)
	lx.SkipWhitespaceAndComments()

	save := lx.Offset()
	numTok, err := lx.Next()
	if err != nil {
		return nil, err
	}
	if numTok.Kind != TokenNumber {
		return nil, pdferr.Malformed(save, "expected object number at offset %d", offset)
	}
	genTok, err := lx.Next()
	if err != nil {
		return nil, err
	}
	objKw, err := lx.Next()
	if err != nil {
		return nil, err
	}
	if objKw.Kind != TokenKeyword || objKw.Text != "obj" {
		return nil, pdferr.Malformed(lx.Offset(), "expected 'obj' keyword at offset %d", offset)
	}

	lx.SkipWhitespaceAndComments()
	dictOrValueSave := lx.Offset()
	peek, err := lx.Next()
	if err != nil {
		return nil, err
	}

	if peek.Kind != TokenDictStart {
		lx.Seek(dictOrValueSave)
		return parseValue(lx)
	}

	dict, err := parseDictBody(lx)
	if err != nil {
		return nil, err
	}

	lx.SkipWhitespaceAndComments()
	streamSave := lx.Offset()
	streamKw, err := lx.Next()
	if err != nil || streamKw.Kind != TokenKeyword || streamKw.Text != "stream" {
		lx.Seek(streamSave)
		return dict, nil
	}

	r := lx.Reader()
	if b, ok := r.Peek(); ok && b == '\r' {
		r.Advance()
	}
	if b, ok := r.Peek(); ok && b == '\n' {
		r.Advance()
	}

	length, lengthIsIndirect, lengthRef := streamLengthRef(dict)
	if lengthIsIndirect {
		if v, err := src.Registry.Resolve(lengthRef); err == nil {
			if i, ok := asInt(v); ok {
				length = i
			} else {
				length = -1
			}
		} else {
			length = -1
		}
	}

	start := r.Pos()
	if length < 0 || start+int(length) > r.Len() {
		src.Registry.Warn("stream at offset %d has an unusable /Length, scanning for endstream", offset)
		end := findEndstream(src.Data, start)
		if end < 0 {
			return nil, pdferr.Malformed(int64(start), "could not locate endstream for object at %d", offset)
		}
		length = int64(end - start)
	}
	raw := r.Take(int(length))

	lx.SkipWhitespaceAndComments()
	endKw, _ := lx.Next()
	if endKw.Kind != TokenKeyword || endKw.Text != "endstream" {
		src.Registry.Warn("stream at offset %d not followed by endstream after its declared /Length, rescanning", offset)
		end := findEndstream(src.Data, start)
		if end >= 0 {
			raw = src.Data[start:end]
		}
	}

	return MakeStream(dict, raw), nil
}

func streamLengthRef(dict *PdfObjectDictionary) (value int64, isIndirect bool, ref *PdfObjectReference) {
	v := dict.Get("Length")
	if v == nil {
		return -1, false, nil
	}
	if i, ok := v.(*PdfObjectInteger); ok {
		return int64(*i), false, nil
	}
	if r, ok := v.(*PdfObjectReference); ok {
		return -1, true, r
	}
	return -1, false, nil
}

// loadFromObjectStream decodes compressed object streamObjNum (a
// /Type /ObjStm stream) and returns the object stored at logical index
// within it, per spec §4.3's compressed-object resolution path.
func loadFromObjectStream(src *DocumentSource, streamObjNum int64, index int) (PdfObject, error) {
	streamVal, err := src.Registry.Resolve(&PdfObjectReference{ObjectNumber: streamObjNum})
	if err != nil {
		return nil, err
	}
	stream, ok := streamVal.(*PdfObjectStream)
	if !ok {
		return nil, pdferr.Broken("object %d referenced as an object stream is not a stream", streamObjNum)
	}

	typeName, ok := GetName(stream.Get("Type"))
	if !ok || strings.ToLower(string(*typeName)) != "objstm" {
		return nil, pdferr.Broken("object %d is not an /ObjStm", streamObjNum)
	}

	n, ok := GetInt(stream.Get("N"))
	if !ok {
		return nil, pdferr.Malformed(0, "object stream %d missing /N", streamObjNum)
	}
	first, ok := GetInt(stream.Get("First"))
	if !ok {
		return nil, pdferr.Malformed(0, "object stream %d missing /First", streamObjNum)
	}

	decoded, err := decodeFilters(stream.PdfObjectDictionary, stream.Stream)
	if err != nil {
		return nil, err
	}

	headerLx := NewLexer(decoded)
	type objRef struct {
		num    int64
		offset int64
	}
	refs := make([]objRef, 0, int(n))
	for i := int64(0); i < n; i++ {
		headerLx.SkipWhitespaceAndComments()
		numTok, err := headerLx.Next()
		if err != nil || numTok.Kind != TokenNumber {
			return nil, pdferr.Malformed(headerLx.Offset(), "object stream %d has a malformed offset table", streamObjNum)
		}
		headerLx.SkipWhitespaceAndComments()
		offTok, err := headerLx.Next()
		if err != nil || offTok.Kind != TokenNumber {
			return nil, pdferr.Malformed(headerLx.Offset(), "object stream %d has a malformed offset table", streamObjNum)
		}
		objNum, _ := asInt(numTok.Number)
		off, _ := asInt(offTok.Number)
		refs = append(refs, objRef{num: objNum, offset: off})
	}

	if index < 0 || index >= len(refs) {
		return nil, pdferr.Broken("index %d out of range in object stream %d", index, streamObjNum)
	}

	bodyLx := NewLexer(decoded)
	bodyLx.Seek(first + refs[index].offset)
	return parseValue(bodyLx)
}
