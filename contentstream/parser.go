package contentstream

import (
	"github.com/inkwellpdf/pdfcore/core"
	"github.com/inkwellpdf/pdfcore/core/pdferr"
)

// Parser tokenizes a decoded content stream. It reuses core.Lexer's
// generic keyword tokenizing — an operator mnemonic like Tj or re is
// lexed the same way a PDF-file keyword like obj is — and only departs
// from it to read an inline image's raw sample bytes, which do not
// tokenize at all.
type Parser struct {
	data []byte
	lx   *core.Lexer
}

// NewParser wraps a decoded content stream (the bytes already pulled
// through its /Filter chain, e.g. via core.DecodeStream).
func NewParser(data []byte) *Parser {
	return &Parser{data: data, lx: core.NewLexer(data)}
}

// Parse reads data to the end and returns its operators in order.
func Parse(data []byte) (Operations, error) {
	return NewParser(data).Parse()
}

// Parse runs the parser to completion.
func (p *Parser) Parse() (Operations, error) {
	var ops Operations
	var params []core.PdfObject

	for {
		tok, err := p.lx.Next()
		if err != nil {
			return ops, err
		}

		if tok.Kind == core.TokenEOF {
			return ops, nil
		}

		if tok.Kind == core.TokenKeyword {
			switch tok.Text {
			case "true":
				params = append(params, core.MakeBool(true))
				continue
			case "false":
				params = append(params, core.MakeBool(false))
				continue
			case "null":
				params = append(params, core.MakeNull())
				continue
			case OpBeginInline:
				img, err := p.parseInlineImage()
				if err != nil {
					return ops, err
				}
				ops = append(ops, &Operator{Operand: OpBeginInline, Params: []core.PdfObject{img}})
				params = nil
				continue
			}
			ops = append(ops, &Operator{Operand: tok.Text, Params: params})
			params = nil
			continue
		}

		val, err := p.valueFromToken(tok)
		if err != nil {
			return ops, err
		}
		params = append(params, val)
	}
}

func (p *Parser) valueFromToken(tok core.Token) (core.PdfObject, error) {
	switch tok.Kind {
	case core.TokenNumber:
		return tok.Number, nil
	case core.TokenName:
		return core.MakeName(tok.Text), nil
	case core.TokenLiteralString, core.TokenHexString:
		return tok.String, nil
	case core.TokenArrayStart:
		return p.parseArray()
	case core.TokenDictStart:
		return p.parseDict()
	case core.TokenReference:
		return core.MakeReference(tok.RefNum, tok.RefGen), nil
	case core.TokenKeyword:
		switch tok.Text {
		case "true":
			return core.MakeBool(true), nil
		case "false":
			return core.MakeBool(false), nil
		case "null":
			return core.MakeNull(), nil
		}
	}
	return nil, pdferr.Malformed(tok.Offset, "unexpected token %q in content stream operand", tok.Text)
}

func (p *Parser) parseArray() (*core.PdfObjectArray, error) {
	arr := core.MakeArray()
	for {
		tok, err := p.lx.Next()
		if err != nil {
			return nil, err
		}
		if tok.Kind == core.TokenArrayEnd {
			return arr, nil
		}
		val, err := p.valueFromToken(tok)
		if err != nil {
			return nil, err
		}
		arr.Append(val)
	}
}

func (p *Parser) parseDict() (*core.PdfObjectDictionary, error) {
	dict := core.MakeDict()
	for {
		tok, err := p.lx.Next()
		if err != nil {
			return nil, err
		}
		if tok.Kind == core.TokenDictEnd {
			return dict, nil
		}
		if tok.Kind != core.TokenName {
			return nil, pdferr.Malformed(tok.Offset, "expected dictionary key in content stream operand")
		}
		key := core.PdfObjectName(tok.Text)
		valTok, err := p.lx.Next()
		if err != nil {
			return nil, err
		}
		val, err := p.valueFromToken(valTok)
		if err != nil {
			return nil, err
		}
		dict.Set(key, val)
	}
}

// parseInlineImage reads the abbreviated key/value pairs between BI
// and ID, then drops out of tokenizing entirely to slice the raw
// sample bytes between ID and EI directly off the buffer.
func (p *Parser) parseInlineImage() (*InlineImage, error) {
	dict := core.MakeDict()
	for {
		tok, err := p.lx.Next()
		if err != nil {
			return nil, err
		}
		if tok.Kind == core.TokenKeyword && tok.Text == "ID" {
			break
		}
		if tok.Kind != core.TokenName {
			return nil, pdferr.Malformed(tok.Offset, "expected inline image key")
		}
		key := normalizeInlineKey(core.PdfObjectName(tok.Text))
		valTok, err := p.lx.Next()
		if err != nil {
			return nil, err
		}
		val, err := p.valueFromToken(valTok)
		if err != nil {
			return nil, err
		}
		dict.Set(key, val)
	}

	r := p.lx.Reader()
	if b, ok := r.Peek(); ok && core.IsWhiteSpace(b) {
		r.Advance()
	}

	start := r.Pos()
	eiStart := findInlineImageEnd(p.data, start)
	if eiStart < 0 {
		return nil, pdferr.Malformed(int64(start), "inline image missing EI terminator")
	}
	dataEnd := eiStart
	if dataEnd > start && core.IsWhiteSpace(p.data[dataEnd-1]) {
		dataEnd--
	}
	data := p.data[start:dataEnd]
	p.lx.Seek(int64(eiStart) + int64(len(OpEndInline)))
	return &InlineImage{Dict: dict, Data: data}, nil
}

// findInlineImageEnd locates the "EI" that ends an inline image's raw
// data, requiring it to be preceded by whitespace (unless it sits at
// `start`) and followed by whitespace, a delimiter or the end of the
// data, so a coincidental "EI" byte pair inside the image data is not
// mistaken for the terminator. It returns the offset of the 'E' itself; the
// caller trims the single whitespace byte separating the data from it.
func findInlineImageEnd(data []byte, start int) int {
	for i := start; i+1 < len(data); i++ {
		if data[i] != 'E' || data[i+1] != 'I' {
			continue
		}
		if i > start && !core.IsWhiteSpace(data[i-1]) {
			continue
		}
		after := i + 2
		if after < len(data) && !core.IsWhiteSpace(data[after]) && !core.IsDelimiter(data[after]) {
			continue
		}
		return i
	}
	return -1
}
