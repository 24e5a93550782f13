package core

import (
	"github.com/inkwellpdf/pdfcore/core/pdferr"
)

// XrefEntryType distinguishes the three kinds of row an xref section
// can contribute for an object number (spec §4.4).
type XrefEntryType int

const (
	XrefFree XrefEntryType = iota
	XrefInUse
	XrefCompressed
)

// XrefEntry is one row of the combined cross-reference table built up
// while walking a document's /Prev chain. Offset is valid for
// XrefInUse; StreamObjNum/IndexInStream are valid for XrefCompressed.
type XrefEntry struct {
	ObjectNumber   int64
	Generation     int64
	Type           XrefEntryType
	Offset         int64
	StreamObjNum   int64
	IndexInStream  int
}

// XrefTable is the object-number-keyed merge of every xref section
// visited while following /Prev, per spec §4.4. The walk starts at the
// newest section and the first entry recorded for an object number
// wins: an older section further down the /Prev chain never
// overwrites it.
type XrefTable struct {
	Entries map[int64]XrefEntry
	Trailer *PdfObjectDictionary
}

func newXrefTable() *XrefTable {
	return &XrefTable{Entries: map[int64]XrefEntry{}}
}

func (t *XrefTable) setIfAbsent(e XrefEntry) {
	if _, ok := t.Entries[e.ObjectNumber]; !ok {
		t.Entries[e.ObjectNumber] = e
	}
}

// mergeTrailer keeps the first trailer dictionary seen (the most
// recent one, since chain-following starts at the newest xref
// section), filling in keys a later (older) trailer lacks only if the
// newer one never set them at all.
func (t *XrefTable) mergeTrailer(d *PdfObjectDictionary) {
	if t.Trailer == nil {
		t.Trailer = d
		return
	}
	for _, k := range d.Keys() {
		if t.Trailer.Get(k) == nil {
			t.Trailer.Set(k, d.Get(k))
		}
	}
}

// LoadXref walks the /Prev chain starting at startOffset, merging
// classical xref tables and cross-reference streams into one
// XrefTable. A visited-offset set guards against a cyclic /Prev chain
// (spec §4.4's cycle-safety requirement).
func LoadXref(data []byte, startOffset int64) (*XrefTable, error) {
	table := newXrefTable()
	visited := map[int64]bool{}

	offset := startOffset
	for offset != 0 {
		if visited[offset] {
			break
		}
		visited[offset] = true

		trailer, prev, hybridXRefStm, err := parseXrefSectionAt(data, offset, table)
		if err != nil {
			return nil, err
		}
		if trailer != nil {
			table.mergeTrailer(trailer)
		}

		if hybridXRefStm != 0 && !visited[hybridXRefStm] {
			// Hybrid-reference file (spec §4.4): a classical table's
			// trailer points at a companion xref stream via /XRefStm
			// carrying compressed-object entries the table cannot
			// express. Fold it in before moving to /Prev.
			visited[hybridXRefStm] = true
			if _, _, _, err := parseXrefSectionAt(data, hybridXRefStm, table); err != nil {
				return nil, err
			}
		}

		offset = prev
	}

	return table, nil
}

// parseXrefSectionAt dispatches to the classical-table or xref-stream
// reader depending on what is found at offset, and returns that
// section's trailer dictionary, its /Prev offset (0 if absent), and
// its /XRefStm offset (0 if absent, classical tables only).
func parseXrefSectionAt(data []byte, offset int64, table *XrefTable) (*PdfObjectDictionary, int64, int64, error) {
	lx := NewLexer(data)
	lx.Seek(offset)
	lx.SkipWhitespaceAndComments()

	save := lx.Offset()
	tok, err := lx.Next()
	if err != nil {
		return nil, 0, 0, err
	}

	if tok.Kind == TokenKeyword && tok.Text == "xref" {
		return parseClassicalXrefTable(lx, table)
	}

	lx.Seek(save)
	return parseXrefStreamSection(data, lx, table)
}

// parseClassicalXrefTable reads the spec §4.4 textual format:
// zero or more subsections, each a "start count" header line followed
// by `count` 20-byte fixed entries "OOOOOOOOOO GGGGG X\r\n", terminated
// by the `trailer` keyword and a dictionary.
func parseClassicalXrefTable(lx *Lexer, table *XrefTable) (*PdfObjectDictionary, int64, int64, error) {
	for {
		lx.SkipWhitespaceAndComments()
		save := lx.Offset()
		tok, err := lx.Next()
		if err != nil {
			return nil, 0, 0, err
		}

		if tok.Kind == TokenKeyword && tok.Text == "trailer" {
			lx.SkipWhitespaceAndComments()
			dictTok, err := lx.Next()
			if err != nil || dictTok.Kind != TokenDictStart {
				return nil, 0, 0, pdferr.Malformed(lx.Offset(), "expected trailer dictionary")
			}
			dict, err := parseDictBody(lx)
			if err != nil {
				return nil, 0, 0, err
			}
			prev, xrefStm := trailerChainOffsets(dict)
			return dict, prev, xrefStm, nil
		}

		if tok.Kind != TokenNumber {
			// Lenient skip of unrecognised lines between subsections,
			// matching lenient readers that tolerate stray content.
			continue
		}
		startNum, ok1 := tok.Number.(*PdfObjectInteger)
		countTok, err := lx.Next()
		if err != nil {
			return nil, 0, 0, err
		}
		count, ok2 := countTok.Number.(*PdfObjectInteger)
		if !ok1 || !ok2 {
			lx.Seek(save)
			continue
		}

		for i := int64(0); i < int64(*count); i++ {
			entry, err := readClassicalEntry(lx, int64(*startNum)+i)
			if err != nil {
				return nil, 0, 0, err
			}
			if entry.Type != XrefFree {
				table.setIfAbsent(entry)
			}
		}
	}
}

// readClassicalEntry reads one 20-byte entry. Offsets and generations
// are re-lexed as ordinary number tokens rather than fixed columns, so
// that minor whitespace deviations from the 20-byte layout (which some
// writers introduce) do not break parsing, per spec §7's leniency
// requirements.
func readClassicalEntry(lx *Lexer, objNum int64) (XrefEntry, error) {
	lx.SkipWhitespaceAndComments()
	offTok, err := lx.Next()
	if err != nil {
		return XrefEntry{}, err
	}
	genTok, err := lx.Next()
	if err != nil {
		return XrefEntry{}, err
	}
	flagTok, err := lx.Next()
	if err != nil {
		return XrefEntry{}, err
	}

	offVal, _ := asInt(offTok.Number)
	genVal, _ := asInt(genTok.Number)
	flag := flagTok.Text

	if flag == "f" {
		return XrefEntry{ObjectNumber: objNum, Type: XrefFree}, nil
	}
	// Some malformed writers mark offset 0 as in-use; treat as free
	// since object 0 is always the head of the free list (spec §7).
	if offVal == 0 {
		return XrefEntry{ObjectNumber: objNum, Type: XrefFree}, nil
	}
	return XrefEntry{
		ObjectNumber: objNum,
		Generation:   genVal,
		Type:         XrefInUse,
		Offset:       offVal,
	}, nil
}

func asInt(obj PdfObject) (int64, bool) {
	if i, ok := obj.(*PdfObjectInteger); ok {
		return int64(*i), true
	}
	if f, ok := obj.(*PdfObjectFloat); ok {
		return int64(*f), true
	}
	return 0, false
}

func trailerChainOffsets(dict *PdfObjectDictionary) (prev int64, xrefStm int64) {
	if p := dict.Get("Prev"); p != nil {
		if v, ok := asInt(p); ok {
			prev = v
		}
	}
	if x := dict.Get("XRefStm"); x != nil {
		if v, ok := asInt(x); ok {
			xrefStm = v
		}
	}
	return prev, xrefStm
}

// parseXrefStreamSection reads an "n g obj << ... >> stream ... endstream"
// object whose dictionary has /Type /XRef, decoding its rows per /W and
// /Index (spec §4.4's binary cross-reference stream format).
func parseXrefStreamSection(data []byte, lx *Lexer, table *XrefTable) (*PdfObjectDictionary, int64, int64, error) {
	objNum, gen, dict, streamBytes, _, err := parseIndirectStreamHeader(data, lx)
	if err != nil {
		return nil, 0, 0, err
	}
	_ = objNum
	_ = gen

	wArr, ok := GetArray(dict.Get("W"))
	if !ok || wArr.Len() != 3 {
		return nil, 0, 0, pdferr.Malformed(lx.Offset(), "xref stream missing valid /W")
	}
	var widths [3]int
	for i := 0; i < 3; i++ {
		v, ok := asInt(wArr.Get(i))
		if !ok {
			return nil, 0, 0, pdferr.Malformed(lx.Offset(), "xref stream /W entry not an integer")
		}
		widths[i] = int(v)
	}

	sizeInt, ok := GetInt(dict.Get("Size"))
	if !ok {
		return nil, 0, 0, pdferr.Malformed(lx.Offset(), "xref stream missing /Size")
	}

	var subsections [][2]int64
	if idxArr, ok := GetArray(dict.Get("Index")); ok {
		for i := 0; i+1 < idxArr.Len(); i += 2 {
			start, _ := asInt(idxArr.Get(i))
			count, _ := asInt(idxArr.Get(i + 1))
			subsections = append(subsections, [2]int64{start, count})
		}
	} else {
		subsections = append(subsections, [2]int64{0, sizeInt})
	}

	payload, err := decodeFilters(dict, streamBytes)
	if err != nil {
		return nil, 0, 0, err
	}

	rowWidth := widths[0] + widths[1] + widths[2]
	if rowWidth == 0 {
		return dict, prevOf(dict), 0, nil
	}

	scanner := NewBinaryScanner(payload)
	for _, sub := range subsections {
		for i := int64(0); i < sub[1]; i++ {
			if scanner.Remaining() < rowWidth {
				break
			}
			f1, err := scanner.Uint(widths[0])
			if err != nil {
				return nil, 0, 0, err
			}
			f2, err := scanner.Uint(widths[1])
			if err != nil {
				return nil, 0, 0, err
			}
			f3, err := scanner.Uint(widths[2])
			if err != nil {
				return nil, 0, 0, err
			}
			if widths[0] == 0 {
				f1 = 1 // default type per spec §4.4
			}

			objN := sub[0] + i
			switch f1 {
			case 0:
				table.setIfAbsent(XrefEntry{ObjectNumber: objN, Type: XrefFree})
			case 1:
				table.setIfAbsent(XrefEntry{
					ObjectNumber: objN,
					Type:         XrefInUse,
					Offset:       int64(f2),
					Generation:   int64(f3),
				})
			case 2:
				table.setIfAbsent(XrefEntry{
					ObjectNumber:  objN,
					Type:          XrefCompressed,
					StreamObjNum:  int64(f2),
					IndexInStream: int(f3),
				})
			default:
				// Unknown type: reserved for future PDF versions.
				// No entry is recorded for the object number.
			}
		}
	}

	return dict, prevOf(dict), 0, nil
}

func prevOf(dict *PdfObjectDictionary) int64 {
	if p := dict.Get("Prev"); p != nil {
		if v, ok := asInt(p); ok {
			return v
		}
	}
	return 0
}

// parseIndirectStreamHeader reads "n g obj << dict >> stream\r\n<bytes>endstream"
// starting at the lexer's current position and returns the parsed
// object number, generation, dictionary, and raw (still-encoded)
// stream bytes. Its caller is the xref-stream loader here
// (parseXrefStreamSection).
func parseIndirectStreamHeader(data []byte, lx *Lexer) (objNum, gen int64, dict *PdfObjectDictionary, streamBytes []byte, endOffset int64, err error) {
	numTok, err := lx.Next()
	if err != nil {
		return 0, 0, nil, nil, 0, err
	}
	genTok, err := lx.Next()
	if err != nil {
		return 0, 0, nil, nil, 0, err
	}
	objKw, err := lx.Next()
	if err != nil {
		return 0, 0, nil, nil, 0, err
	}
	if objKw.Kind != TokenKeyword || objKw.Text != "obj" {
		return 0, 0, nil, nil, 0, pdferr.Malformed(lx.Offset(), "expected 'obj' keyword")
	}
	n, _ := asInt(numTok.Number)
	g, _ := asInt(genTok.Number)

	lx.SkipWhitespaceAndComments()
	dictStart, err := lx.Next()
	if err != nil || dictStart.Kind != TokenDictStart {
		return 0, 0, nil, nil, 0, pdferr.Malformed(lx.Offset(), "expected object dictionary")
	}
	d, err := parseDictBody(lx)
	if err != nil {
		return 0, 0, nil, nil, 0, err
	}

	lx.SkipWhitespaceAndComments()
	save := lx.Offset()
	streamKw, err := lx.Next()
	if err != nil || streamKw.Kind != TokenKeyword || streamKw.Text != "stream" {
		lx.Seek(save)
		return n, g, d, nil, lx.Offset(), nil
	}

	r := lx.Reader()
	// The `stream` keyword is followed by CRLF or LF (never bare CR)
	// and then exactly the raw bytes (spec §4.5).
	if b, ok := r.Peek(); ok && b == '\r' {
		r.Advance()
	}
	if b, ok := r.Peek(); ok && b == '\n' {
		r.Advance()
	}

	length := streamLength(d)
	start := r.Pos()
	if length < 0 || start+int(length) > r.Len() {
		length = int64(findEndstream(data, start) - start)
		if length < 0 {
			return 0, 0, nil, nil, 0, pdferr.Malformed(int64(start), "could not locate endstream")
		}
	}
	raw := r.Take(int(length))

	lx.SkipWhitespaceAndComments()
	endKw, _ := lx.Next()
	if endKw.Kind != TokenKeyword || endKw.Text != "endstream" {
		// Lenient recovery: the declared/guessed length put us in the
		// wrong place. Re-locate endstream by scanning (spec §9 open
		// question, resolved toward structural recovery).
		actualLen := findEndstream(data, start) - start
		if actualLen >= 0 {
			raw = data[start : start+actualLen]
			lx.Seek(int64(start + actualLen))
			lx.SkipWhitespaceAndComments()
			lx.Next() // consume endstream
		}
	}

	return n, g, d, raw, lx.Offset(), nil
}

func streamLength(dict *PdfObjectDictionary) int64 {
	v := dict.Get("Length")
	if v == nil {
		return -1
	}
	if i, ok := v.(*PdfObjectInteger); ok {
		return int64(*i)
	}
	// An indirect /Length cannot be resolved here (the registry may not
	// exist yet, as for the xref stream itself); callers fall back to
	// endstream scanning in that case.
	return -1
}

func findEndstream(data []byte, from int) int {
	marker := []byte("endstream")
	idx := indexBytesFrom(data, marker, from)
	if idx < 0 {
		return -1
	}
	return idx
}

func indexBytesFrom(data, pat []byte, from int) int {
	if from > len(data) {
		return -1
	}
	rel := NewByteReader(data[from:]).IndexFrom(pat)
	if rel < 0 {
		return -1
	}
	return from + rel
}

// parseDictBody reads dictionary key/value pairs until the matching
// TokenDictEnd, assuming the opening TokenDictStart was already
// consumed.
func parseDictBody(lx *Lexer) (*PdfObjectDictionary, error) {
	dict := MakeDict()
	for {
		lx.SkipWhitespaceAndComments()
		save := lx.Offset()
		tok, err := lx.Next()
		if err != nil {
			return nil, err
		}
		if tok.Kind == TokenDictEnd {
			return dict, nil
		}
		if tok.Kind != TokenName {
			return nil, pdferr.Malformed(save, "expected dictionary key, got token kind %d", tok.Kind)
		}
		val, err := parseValue(lx)
		if err != nil {
			return nil, err
		}
		dict.Set(PdfObjectName(tok.Text), val)
	}
}

// parseValue reads one direct (or reference) value starting at the
// lexer's current position, recursing into arrays and dictionaries.
func parseValue(lx *Lexer) (PdfObject, error) {
	tok, err := lx.Next()
	if err != nil {
		return nil, err
	}
	switch tok.Kind {
	case TokenNumber:
		return tok.Number, nil
	case TokenName:
		return MakeName(tok.Text), nil
	case TokenLiteralString, TokenHexString:
		return tok.String, nil
	case TokenReference:
		return MakeReference(tok.RefNum, tok.RefGen), nil
	case TokenDictStart:
		return parseDictBody(lx)
	case TokenArrayStart:
		arr := MakeArray()
		for {
			lx.SkipWhitespaceAndComments()
			save := lx.Offset()
			peek, err := lx.Next()
			if err != nil {
				return nil, err
			}
			if peek.Kind == TokenArrayEnd {
				return arr, nil
			}
			lx.Seek(save)
			v, err := parseValue(lx)
			if err != nil {
				return nil, err
			}
			arr.Append(v)
		}
	case TokenKeyword:
		switch tok.Text {
		case "true":
			return MakeBool(true), nil
		case "false":
			return MakeBool(false), nil
		case "null":
			return MakeNull(), nil
		default:
			return MakeNull(), nil
		}
	default:
		return nil, pdferr.Malformed(tok.Offset, "unexpected token while parsing value")
	}
}
