package core

import (
	"github.com/inkwellpdf/pdfcore/core/pdferr"
)

// RecoverXref rebuilds a cross-reference table from scratch by
// scanning the entire buffer byte-by-byte for "<n> <g> obj" patterns,
// for use when no usable xref section can be located at all (spec
// §4.4's recovery path; §7's "malformed or missing xref" case).
//
// Unlike LoadXref, RecoverXref never trusts declared offsets: the
// offset recorded for each object is simply where its "obj" pattern
// was found while scanning forward, so a later occurrence of the same
// object number always wins, matching how real PDF producers append
// newer revisions of an object further into the file.
func RecoverXref(data []byte) (*XrefTable, error) {
	table := newXrefTable()

	lx := NewLexer(data)
	pos := 0
	for pos < len(data) {
		lx.Seek(int64(pos))
		save := lx.Offset()

		first, err := lx.Next()
		if err != nil || first.Kind != TokenNumber {
			pos++
			continue
		}
		firstInt, ok := first.Number.(*PdfObjectInteger)
		if !ok || int64(*firstInt) < 0 {
			pos++
			continue
		}

		second, err := lx.Next()
		if err != nil || second.Kind != TokenNumber {
			pos++
			continue
		}
		secondInt, ok := second.Number.(*PdfObjectInteger)
		if !ok || int64(*secondInt) < 0 {
			pos++
			continue
		}

		third, err := lx.Next()
		if err != nil || third.Kind != TokenKeyword || third.Text != "obj" {
			pos++
			continue
		}

		objNum := int64(*firstInt)
		gen := int64(*secondInt)
		table.Entries[objNum] = XrefEntry{
			ObjectNumber: objNum,
			Generation:   gen,
			Type:         XrefInUse,
			Offset:       save,
		}

		// Resume scanning right after the "obj" keyword: objects never
		// nest, so there is nothing useful between here and the next
		// candidate pattern.
		pos = int(lx.Offset())
	}

	if len(table.Entries) == 0 {
		return nil, pdferr.Malformed(0, "recovery scan found no indirect objects")
	}

	trailer, err := recoverTrailer(data, table)
	if err != nil {
		// A missing trailer is non-fatal during recovery: fall back to
		// scanning the recovered objects for one with /Type /Catalog and
		// synthesize a trailer pointing /Root at it.
		table.Trailer = MakeDict()
		if ref, ok := scanForCatalog(data, table); ok {
			table.Trailer.Set("Root", ref)
		}
	} else {
		table.Trailer = trailer
	}

	return table, nil
}

// scanForCatalog looks through every in-use entry recovered so far for
// an object whose direct value is a dictionary with /Type /Catalog, for
// use when recoverTrailer cannot find a trailer keyword at all.
func scanForCatalog(data []byte, table *XrefTable) (*PdfObjectReference, bool) {
	for num, e := range table.Entries {
		if e.Type != XrefInUse {
			continue
		}
		lx := NewLexer(data)
		lx.Seek(e.Offset)
		if _, err := lx.Next(); err != nil { // object number
			continue
		}
		if _, err := lx.Next(); err != nil { // generation number
			continue
		}
		objKw, err := lx.Next()
		if err != nil || objKw.Kind != TokenKeyword || objKw.Text != "obj" {
			continue
		}
		lx.SkipWhitespaceAndComments()
		val, err := parseValue(lx)
		if err != nil {
			continue
		}
		dict, ok := val.(*PdfObjectDictionary)
		if !ok {
			continue
		}
		name, ok := GetName(dict.Get("Type"))
		if !ok || string(*name) != "Catalog" {
			continue
		}
		return MakeReference(num, e.Generation), true
	}
	return nil, false
}

// recoverTrailer looks for the last "trailer" keyword in the buffer
// and parses the dictionary that follows it. Files recovered this way
// commonly still have an intact trailer even though their xref table
// or offsets are corrupt.
func recoverTrailer(data []byte, table *XrefTable) (*PdfObjectDictionary, error) {
	br := NewByteReader(data)
	idx := -1
	for {
		next := br.IndexFrom([]byte("trailer"))
		if next < 0 {
			break
		}
		idx = next
		br.MoveTo(next + len("trailer"))
	}
	if idx < 0 {
		return nil, pdferr.Malformed(0, "no trailer keyword found during recovery")
	}

	lx := NewLexer(data)
	lx.Seek(int64(idx) + int64(len("trailer")))
	lx.SkipWhitespaceAndComments()
	tok, err := lx.Next()
	if err != nil || tok.Kind != TokenDictStart {
		return nil, pdferr.Malformed(int64(idx), "trailer keyword not followed by a dictionary")
	}
	return parseDictBody(lx)
}
