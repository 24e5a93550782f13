package core

import (
	"strconv"
	"strings"

	"github.com/inkwellpdf/pdfcore/core/pdferr"
)

// TokenKind classifies a lexical token produced by the Lexer.
type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenNumber
	TokenName
	TokenLiteralString
	TokenHexString
	TokenArrayStart
	TokenArrayEnd
	TokenDictStart
	TokenDictEnd
	TokenKeyword // true, false, null, obj, endobj, stream, endstream, xref, trailer, startxref, R
	TokenReference
)

// Token is one lexical unit, with the byte offset it started at so
// callers can restart the Lexer from exactly that point (e.g. the
// object parser re-lexing a stream's dictionary in isolation).
type Token struct {
	Kind     TokenKind
	Offset   int64
	Text     string // raw text for Keyword/Name
	Number   PdfObject // for TokenNumber: *PdfObjectInteger or *PdfObjectFloat
	String   *PdfObjectString
	RefNum   int64 // for TokenReference
	RefGen   int64
}

// Lexer tokenises the textual portions of a PDF file: everything
// except raw stream payload bytes, which the object parser slices out
// directly via the ByteReader once it has located `stream`/`endstream`.
// A Lexer is restartable from any offset via Seek, which lets the xref
// recovery scan (see repairs.go) and object-stream decoding (see
// parser.go) reuse one Lexer type over different regions of the same
// or different buffers.
type Lexer struct {
	r *ByteReader
}

// NewLexer wraps data for tokenising from offset 0.
func NewLexer(data []byte) *Lexer {
	return &Lexer{r: NewByteReader(data)}
}

// Seek repositions the Lexer to read from byte offset pos next.
func (lx *Lexer) Seek(pos int64) { lx.r.MoveTo(int(pos)) }

// Offset returns the Lexer's current byte offset.
func (lx *Lexer) Offset() int64 { return int64(lx.r.Pos()) }

// Reader exposes the underlying ByteReader, for callers (the object
// parser) that need to drop out of tokenisation to read raw stream
// bytes directly.
func (lx *Lexer) Reader() *ByteReader { return lx.r }

// SkipWhitespaceAndComments advances past runs of whitespace and `%`
// comments (which extend to end-of-line), per spec §4.1.
func (lx *Lexer) SkipWhitespaceAndComments() {
	for {
		b, ok := lx.r.Peek()
		if !ok {
			return
		}
		if IsWhiteSpace(b) {
			lx.r.Advance()
			continue
		}
		if b == '%' {
			lx.skipComment()
			continue
		}
		return
	}
}

func (lx *Lexer) skipComment() {
	for {
		b, ok := lx.r.Advance()
		if !ok || b == '\n' || b == '\r' {
			return
		}
	}
}

// Next reads and returns the next token, advancing the cursor past it.
// At end of input it returns a TokenEOF token rather than an error.
func (lx *Lexer) Next() (Token, error) {
	lx.SkipWhitespaceAndComments()

	start := int64(lx.r.Pos())
	b, ok := lx.r.Peek()
	if !ok {
		return Token{Kind: TokenEOF, Offset: start}, nil
	}

	switch {
	case b == '/':
		name, err := lx.lexName()
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: TokenName, Offset: start, Text: name}, nil

	case b == '(':
		s, err := lx.lexLiteralString()
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: TokenLiteralString, Offset: start, String: s}, nil

	case b == '<':
		next, _ := lx.r.PeekAt(1)
		if next == '<' {
			lx.r.Skip(2)
			return Token{Kind: TokenDictStart, Offset: start}, nil
		}
		s, err := lx.lexHexString()
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: TokenHexString, Offset: start, String: s}, nil

	case b == '>':
		next, _ := lx.r.PeekAt(1)
		if next == '>' {
			lx.r.Skip(2)
			return Token{Kind: TokenDictEnd, Offset: start}, nil
		}
		return Token{}, pdferr.Malformed(start, "stray '>' outside dictionary")

	case b == '[':
		lx.r.Advance()
		return Token{Kind: TokenArrayStart, Offset: start}, nil

	case b == ']':
		lx.r.Advance()
		return Token{Kind: TokenArrayEnd, Offset: start}, nil

	case b == '+' || b == '-' || b == '.' || IsDecimalDigit(b):
		return lx.lexNumberOrReference(start)

	default:
		return lx.lexKeyword(start)
	}
}

func (lx *Lexer) lexName() (string, error) {
	lx.r.Advance() // consume '/'
	var sb strings.Builder
	for {
		b, ok := lx.r.Peek()
		if !ok || IsWhiteSpace(b) || IsDelimiter(b) {
			break
		}
		if b == '#' {
			h1, ok1 := lx.r.PeekAt(1)
			h2, ok2 := lx.r.PeekAt(2)
			if ok1 && ok2 && IsHexDigit(h1) && IsHexDigit(h2) {
				sb.WriteByte(byte(hexVal(h1)<<4 | hexVal(h2)))
				lx.r.Skip(3)
				continue
			}
			// Malformed escape: treat '#' literally (lenient per spec §7).
			sb.WriteByte('#')
			lx.r.Advance()
			continue
		}
		sb.WriteByte(b)
		lx.r.Advance()
	}
	return sb.String(), nil
}

func (lx *Lexer) lexLiteralString() (*PdfObjectString, error) {
	lx.r.Advance() // consume '('
	var sb strings.Builder
	depth := 1
	for {
		b, ok := lx.r.Advance()
		if !ok {
			return nil, pdferr.Malformed(int64(lx.r.Pos()), "unterminated literal string")
		}
		switch b {
		case '\\':
			if err := lx.lexStringEscape(&sb); err != nil {
				return nil, err
			}
		case '(':
			depth++
			sb.WriteByte(b)
		case ')':
			depth--
			if depth == 0 {
				return MakeString(sb.String()), nil
			}
			sb.WriteByte(b)
		default:
			sb.WriteByte(b)
		}
	}
}

func (lx *Lexer) lexStringEscape(sb *strings.Builder) error {
	b, ok := lx.r.Advance()
	if !ok {
		return pdferr.Malformed(int64(lx.r.Pos()), "unterminated escape in literal string")
	}
	switch {
	case IsOctalDigit(b):
		digits := []byte{b}
		for len(digits) < 3 {
			d, ok := lx.r.Peek()
			if !ok || !IsOctalDigit(d) {
				break
			}
			digits = append(digits, d)
			lx.r.Advance()
		}
		code, _ := strconv.ParseUint(string(digits), 8, 32)
		sb.WriteByte(byte(code))
	case b == 'n':
		sb.WriteByte('\n')
	case b == 'r':
		sb.WriteByte('\r')
	case b == 't':
		sb.WriteByte('\t')
	case b == 'b':
		sb.WriteByte('\b')
	case b == 'f':
		sb.WriteByte('\f')
	case b == '(':
		sb.WriteByte('(')
	case b == ')':
		sb.WriteByte(')')
	case b == '\\':
		sb.WriteByte('\\')
	case b == '\r':
		// Line continuation: \<CR>, \<CR><LF> both absorb, no output.
		if n, ok := lx.r.Peek(); ok && n == '\n' {
			lx.r.Advance()
		}
	case b == '\n':
		// Line continuation: \<LF> absorbs, no output.
	default:
		sb.WriteByte(b)
	}
	return nil
}

func (lx *Lexer) lexHexString() (*PdfObjectString, error) {
	lx.r.Advance() // consume '<'
	var digits []byte
	for {
		b, ok := lx.r.Advance()
		if !ok {
			return nil, pdferr.Malformed(int64(lx.r.Pos()), "unterminated hex string")
		}
		if b == '>' {
			break
		}
		if IsWhiteSpace(b) {
			continue
		}
		if !IsHexDigit(b) {
			// Lenient: skip non-hex noise rather than failing the file
			// (spec §7 favours structural recovery over strict rejection).
			continue
		}
		digits = append(digits, b)
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, len(digits)/2)
	for i := 0; i < len(out); i++ {
		out[i] = byte(hexVal(digits[2*i])<<4 | hexVal(digits[2*i+1]))
	}
	return MakeHexString(string(out)), nil
}

// lexNumberOrReference reads a numeric literal, then looks ahead to
// see whether it is in fact the first of a three-token "n g R"
// indirect reference, per spec §4.1's token-class note that numbers
// and references share a lexical prefix.
func (lx *Lexer) lexNumberOrReference(start int64) (Token, error) {
	num, err := lx.lexNumberLiteral()
	if err != nil {
		return Token{}, err
	}

	intVal, isInt := num.(*PdfObjectInteger)
	if !isInt || int64(*intVal) < 0 {
		return Token{Kind: TokenNumber, Offset: start, Number: num}, nil
	}

	save := lx.r.Pos()
	lx.SkipWhitespaceAndComments()
	genStart := lx.r.Pos()
	genTok, genErr := lx.tryLexUnsignedInt()
	if genErr != nil {
		lx.r.MoveTo(save)
		return Token{Kind: TokenNumber, Offset: start, Number: num}, nil
	}
	lx.SkipWhitespaceAndComments()
	if rb, ok := lx.r.Peek(); ok && rb == 'R' {
		afterR, hasAfter := lx.r.PeekAt(1)
		if !hasAfter || IsWhiteSpace(afterR) || IsDelimiter(afterR) {
			lx.r.Advance()
			return Token{
				Kind:   TokenReference,
				Offset: start,
				RefNum: int64(*intVal),
				RefGen: genTok,
			}, nil
		}
	}
	_ = genStart
	lx.r.MoveTo(save)
	return Token{Kind: TokenNumber, Offset: start, Number: num}, nil
}

func (lx *Lexer) tryLexUnsignedInt() (int64, error) {
	start := lx.r.Pos()
	var digits []byte
	for {
		b, ok := lx.r.Peek()
		if !ok || !IsDecimalDigit(b) {
			break
		}
		digits = append(digits, b)
		lx.r.Advance()
	}
	if len(digits) == 0 {
		lx.r.MoveTo(start)
		return 0, pdferr.Malformed(int64(start), "expected digits")
	}
	v, _ := strconv.ParseInt(string(digits), 10, 64)
	return v, nil
}

func (lx *Lexer) lexNumberLiteral() (PdfObject, error) {
	var sb strings.Builder
	if b, ok := lx.r.Peek(); ok && (b == '+' || b == '-') {
		sb.WriteByte(b)
		lx.r.Advance()
	}
	isFloat := false
	for {
		b, ok := lx.r.Peek()
		if !ok {
			break
		}
		if IsDecimalDigit(b) {
			sb.WriteByte(b)
			lx.r.Advance()
			continue
		}
		if b == '.' {
			isFloat = true
			sb.WriteByte(b)
			lx.r.Advance()
			continue
		}
		if (b == '-' || b == '+') && sb.Len() > 0 {
			// Malformed writers sometimes embed a stray extra sign;
			// PDF numbers never do, so this ends the token.
			break
		}
		break
	}
	text := sb.String()
	if text == "" || text == "-" || text == "+" || text == "." {
		return nil, pdferr.Malformed(int64(lx.r.Pos()), "invalid numeric token %q", text)
	}
	if isFloat {
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			v = 0
		}
		return MakeFloat(v), nil
	}
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		// Overflow: fall back to float, matching lenient readers that
		// accept out-of-range integers written by buggy producers.
		f, _ := strconv.ParseFloat(text, 64)
		return MakeFloat(f), nil
	}
	return MakeInteger(v), nil
}

// lexKeyword reads a bareword: true, false, null, obj, endobj, stream,
// endstream, xref, trailer, startxref, or an unrecognised run of
// regular characters (returned as-is so callers can decide whether it
// is an error).
func (lx *Lexer) lexKeyword(start int64) (Token, error) {
	var sb strings.Builder
	for {
		b, ok := lx.r.Peek()
		if !ok || IsWhiteSpace(b) || IsDelimiter(b) {
			break
		}
		sb.WriteByte(b)
		lx.r.Advance()
	}
	text := sb.String()
	if text == "" {
		b, _ := lx.r.Peek()
		return Token{}, pdferr.Malformed(start, "unexpected byte %q", b)
	}
	return Token{Kind: TokenKeyword, Offset: start, Text: text}, nil
}
