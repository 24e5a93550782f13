package contentstream

import (
	"bytes"
	"fmt"

	"github.com/inkwellpdf/pdfcore/core"
)

// InlineImage is everything between BI and EI: a dictionary of abbreviated
// image keys (BPC, CS, D, DP, F, H, IM, Intent, I, W) plus the raw,
// still-encoded sample data. It satisfies core.PdfObject so it can sit
// directly in an Operator's Params, even though it is never an indirect
// object in its own right.
type InlineImage struct {
	Dict *core.PdfObjectDictionary
	Data []byte
}

// inlineAbbrevToFull maps an inline image's short dictionary keys to the
// long-form keys used by an XObject image's /Filter, /ColorSpace, etc.
var inlineAbbrevToFull = map[core.PdfObjectName]core.PdfObjectName{
	"BPC": "BitsPerComponent",
	"CS":  "ColorSpace",
	"D":   "Decode",
	"DP":  "DecodeParms",
	"F":   "Filter",
	"H":   "Height",
	"IM":  "ImageMask",
	"I":   "Interpolate",
	"W":   "Width",
}

var inlineFullToAbbrev = func() map[core.PdfObjectName]core.PdfObjectName {
	m := make(map[core.PdfObjectName]core.PdfObjectName, len(inlineAbbrevToFull))
	for k, v := range inlineAbbrevToFull {
		m[v] = k
	}
	return m
}()

func (img *InlineImage) String() string {
	return fmt.Sprintf("InlineImage(%d bytes)", len(img.Data))
}

// WriteString emits the dictionary entries (abbreviated form) followed
// by "ID", a single whitespace byte, the raw data and "EI" — callers
// that need the BI prefix add it themselves (Operator.writeTo does).
func (img *InlineImage) WriteString() string {
	var buf bytes.Buffer
	for _, key := range img.Dict.Keys() {
		abbrev, ok := inlineFullToAbbrev[key]
		if !ok {
			abbrev = key
		}
		buf.WriteByte('/')
		buf.WriteString(string(abbrev))
		buf.WriteByte(' ')
		buf.WriteString(img.Dict.Get(key).WriteString())
		buf.WriteByte('\n')
	}
	buf.WriteString("ID ")
	buf.Write(img.Data)
	buf.WriteString("\nEI")
	return buf.String()
}

// normalizeInlineKey expands an inline image dictionary key to its long
// form, so callers of img.Dict never have to know the abbreviation.
func normalizeInlineKey(key core.PdfObjectName) core.PdfObjectName {
	if full, ok := inlineAbbrevToFull[key]; ok {
		return full
	}
	return key
}
