package core

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/inkwellpdf/pdfcore/internal/strutils"
)

// PdfObject is implemented by every primitive PDF value: null, bool,
// number, name, string, array, dictionary, stream, reference and the
// raw escape hatch. Direct objects and indirect objects share this
// interface; an indirect object is simply a PdfObject a Registry has
// assigned a number to.
type PdfObject interface {
	// String returns a debugging representation; not necessarily valid
	// PDF syntax.
	String() string
	// WriteString returns the canonical PDF byte representation used
	// when this value is serialised into a file.
	WriteString() string
}

// PdfObjectNull is the PDF null object. There is exactly one value.
type PdfObjectNull struct{}

func (*PdfObjectNull) String() string     { return "null" }
func (*PdfObjectNull) WriteString() string { return "null" }

var nullInstance = &PdfObjectNull{}

// MakeNull returns the interned null value.
func MakeNull() *PdfObjectNull { return nullInstance }

// PdfObjectBool is the PDF boolean object.
type PdfObjectBool bool

func (b *PdfObjectBool) String() string { return b.WriteString() }
func (b *PdfObjectBool) WriteString() string {
	if *b {
		return "true"
	}
	return "false"
}

var (
	trueInstance  = newBool(true)
	falseInstance = newBool(false)
)

func newBool(v bool) *PdfObjectBool {
	b := PdfObjectBool(v)
	return &b
}

// MakeBool returns the interned boolean value for v.
func MakeBool(v bool) *PdfObjectBool {
	if v {
		return trueInstance
	}
	return falseInstance
}

// PdfObjectInteger is a PDF integer numeric object.
type PdfObjectInteger int64

func (n *PdfObjectInteger) String() string     { return strconv.FormatInt(int64(*n), 10) }
func (n *PdfObjectInteger) WriteString() string { return n.String() }

// MakeInteger creates a PdfObjectInteger.
func MakeInteger(v int64) *PdfObjectInteger {
	n := PdfObjectInteger(v)
	return &n
}

// PdfObjectFloat is a PDF real numeric object. It is always rendered
// without an exponent, with up to 6 fractional digits and trailing
// zeros trimmed, per the canonical number format.
type PdfObjectFloat float64

func (f *PdfObjectFloat) String() string { return f.WriteString() }

func (f *PdfObjectFloat) WriteString() string {
	s := strconv.FormatFloat(float64(*f), 'f', 6, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "" || s == "-" {
		s = "0"
	}
	return s
}

// MakeFloat creates a PdfObjectFloat.
func MakeFloat(v float64) *PdfObjectFloat {
	f := PdfObjectFloat(v)
	return &f
}

// MakeNumber creates the narrowest numeric object representing v: an
// integer when v has no fractional part, otherwise a float.
func MakeNumber(v float64) PdfObject {
	if v == float64(int64(v)) {
		return MakeInteger(int64(v))
	}
	return MakeFloat(v)
}

// PdfObjectName is an interned PDF name object (the bytes after the
// leading '/'). Two names with equal bytes obtained from the same
// Registry are the same *PdfObjectName, satisfying the name-interning
// invariant; see Registry.Name.
type PdfObjectName string

func (n *PdfObjectName) String() string { return string(*n) }

func (n *PdfObjectName) WriteString() string {
	var buf bytes.Buffer
	buf.WriteByte('/')
	for _, ch := range []byte(*n) {
		if IsPrintable(ch) && !IsDelimiter(ch) && ch != '#' {
			buf.WriteByte(ch)
		} else {
			fmt.Fprintf(&buf, "#%02x", ch)
		}
	}
	return buf.String()
}

// MakeName creates a standalone PdfObjectName not tied to any
// Registry's intern table. Use Registry.Name when parsing or when
// identity comparisons with parsed names matter.
func MakeName(s string) *PdfObjectName {
	n := PdfObjectName(s)
	return &n
}

// PdfObjectString is a PDF string object: a literal "(...)" or hex
// "<...>" wrapping opaque bytes. Text semantics (UTF-16BE or
// PDFDocEncoding) are layered on via Decoded/MakeEncodedString.
type PdfObjectString struct {
	val   string
	isHex bool
}

// MakeString wraps raw bytes (given as a Go string, which need not be
// UTF-8) as a literal PDF string.
func MakeString(s string) *PdfObjectString { return &PdfObjectString{val: s} }

// MakeStringFromBytes wraps data as a literal PDF string.
func MakeStringFromBytes(data []byte) *PdfObjectString { return MakeString(string(data)) }

// MakeHexString wraps raw bytes as a hex PDF string.
func MakeHexString(s string) *PdfObjectString { return &PdfObjectString{val: s, isHex: true} }

// MakeEncodedString encodes s as UTF-16BE (with a leading BOM, as a hex
// string) or PDFDocEncoding (as a literal string), matching how text
// strings such as /T or /Contents values are conventionally stored.
func MakeEncodedString(s string, utf16BE bool) *PdfObjectString {
	if utf16BE {
		var buf bytes.Buffer
		buf.Write([]byte{0xFE, 0xFF})
		buf.WriteString(strutils.StringToUTF16(s))
		return &PdfObjectString{val: buf.String(), isHex: true}
	}
	return &PdfObjectString{val: string(strutils.StringToPDFDocEncoding(s)), isHex: false}
}

// Bytes returns the string's raw bytes.
func (s *PdfObjectString) Bytes() []byte { return []byte(s.val) }

// Str returns the string's raw bytes as a Go string (not necessarily
// UTF-8 or any particular text encoding).
func (s *PdfObjectString) Str() string { return s.val }

// IsHex reports whether this string should serialise in hex form.
func (s *PdfObjectString) IsHex() bool { return s.isHex }

// Decoded decodes the string per its text semantics: UTF-16BE if a BOM
// is present, PDFDocEncoding otherwise.
func (s *PdfObjectString) Decoded() string {
	b := []byte(s.val)
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		return strutils.UTF16ToString(b[2:])
	}
	return strutils.PDFDocEncodingToString(b)
}

func (s *PdfObjectString) String() string { return s.val }

func (s *PdfObjectString) WriteString() string {
	if s.isHex {
		return "<" + strings.ToUpper(hex.EncodeToString([]byte(s.val))) + ">"
	}
	var buf bytes.Buffer
	buf.WriteByte('(')
	for i := 0; i < len(s.val); i++ {
		ch := s.val[i]
		switch ch {
		case '(', ')', '\\':
			buf.WriteByte('\\')
			buf.WriteByte(ch)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		default:
			buf.WriteByte(ch)
		}
	}
	buf.WriteByte(')')
	return buf.String()
}

// PdfObjectArray is an ordered sequence of direct or indirect values.
type PdfObjectArray struct {
	elements []PdfObject
}

// MakeArray builds an array from the given elements.
func MakeArray(objects ...PdfObject) *PdfObjectArray {
	a := &PdfObjectArray{}
	a.elements = append(a.elements, objects...)
	return a
}

// MakeArrayFromIntegers builds an integer array.
func MakeArrayFromIntegers(vals []int) *PdfObjectArray {
	a := MakeArray()
	for _, v := range vals {
		a.Append(MakeInteger(int64(v)))
	}
	return a
}

// MakeArrayFromFloats builds a float array.
func MakeArrayFromFloats(vals []float64) *PdfObjectArray {
	a := MakeArray()
	for _, v := range vals {
		a.Append(MakeFloat(v))
	}
	return a
}

// Len returns the number of elements.
func (a *PdfObjectArray) Len() int { return len(a.elements) }

// Get returns the element at i, or nil if out of range.
func (a *PdfObjectArray) Get(i int) PdfObject {
	if i < 0 || i >= len(a.elements) {
		return nil
	}
	return a.elements[i]
}

// Set replaces the element at i.
func (a *PdfObjectArray) Set(i int, obj PdfObject) {
	if i >= 0 && i < len(a.elements) {
		a.elements[i] = obj
	}
}

// Append adds one or more elements to the end of the array.
func (a *PdfObjectArray) Append(objs ...PdfObject) {
	a.elements = append(a.elements, objs...)
}

// Elements returns the underlying slice. Callers must not retain it
// across a mutation of the array.
func (a *PdfObjectArray) Elements() []PdfObject { return a.elements }

func (a *PdfObjectArray) String() string {
	parts := make([]string, len(a.elements))
	for i, e := range a.elements {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (a *PdfObjectArray) WriteString() string {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, e := range a.elements {
		if i > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(e.WriteString())
	}
	buf.WriteByte(']')
	return buf.String()
}

// PdfObjectDictionary is an insertion-ordered name -> value mapping.
// Duplicate keys are forbidden; Set on an existing key overwrites the
// value in place without disturbing key order.
type PdfObjectDictionary struct {
	entries map[PdfObjectName]PdfObject
	keys    []PdfObjectName
}

// MakeDict creates an empty dictionary.
func MakeDict() *PdfObjectDictionary {
	return &PdfObjectDictionary{entries: map[PdfObjectName]PdfObject{}}
}

// Set stores value under key, preserving the original position if key
// already existed.
func (d *PdfObjectDictionary) Set(key PdfObjectName, value PdfObject) {
	if _, exists := d.entries[key]; !exists {
		d.keys = append(d.keys, key)
	}
	d.entries[key] = value
}

// SetIfNotNil calls Set only when value is non-nil, matching the
// teacher corpus's convention for optional dictionary fields.
func (d *PdfObjectDictionary) SetIfNotNil(key PdfObjectName, value PdfObject) {
	if value != nil {
		d.Set(key, value)
	}
}

// Get returns the value for key, or nil if absent.
func (d *PdfObjectDictionary) Get(key PdfObjectName) PdfObject {
	return d.entries[key]
}

// Delete removes key from the dictionary.
func (d *PdfObjectDictionary) Delete(key PdfObjectName) {
	if _, exists := d.entries[key]; !exists {
		return
	}
	delete(d.entries, key)
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the dictionary's keys in insertion order.
func (d *PdfObjectDictionary) Keys() []PdfObjectName {
	out := make([]PdfObjectName, len(d.keys))
	copy(out, d.keys)
	return out
}

// Len returns the number of entries.
func (d *PdfObjectDictionary) Len() int { return len(d.keys) }

func (d *PdfObjectDictionary) String() string {
	var sb strings.Builder
	sb.WriteString("Dict(")
	for i, k := range d.keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(string(k))
		sb.WriteString(": ")
		sb.WriteString(d.entries[k].String())
	}
	sb.WriteString(")")
	return sb.String()
}

func (d *PdfObjectDictionary) WriteString() string {
	var buf bytes.Buffer
	buf.WriteString("<<")
	for _, k := range d.keys {
		buf.WriteByte(' ')
		name := k
		buf.WriteString((&name).WriteString())
		buf.WriteByte(' ')
		buf.WriteString(d.entries[k].WriteString())
	}
	buf.WriteString(" >>")
	return buf.String()
}

// PdfObjectReference is an indirect pointer `objectNumber generation R`.
// Two references are equal only if both fields match.
type PdfObjectReference struct {
	ObjectNumber     int64
	GenerationNumber int64
}

func (r *PdfObjectReference) String() string {
	return fmt.Sprintf("Ref(%d %d)", r.ObjectNumber, r.GenerationNumber)
}

func (r *PdfObjectReference) WriteString() string {
	return fmt.Sprintf("%d %d R", r.ObjectNumber, r.GenerationNumber)
}

// MakeReference builds a reference value. It does not consult any
// Registry; the registry is what resolves it later.
func MakeReference(objNum, gen int64) *PdfObjectReference {
	return &PdfObjectReference{ObjectNumber: objNum, GenerationNumber: gen}
}

// PdfObjectStream is a dictionary plus an (encoded, on-disk-form) byte
// payload. Decoding through the filter chain named by /Filter happens
// on demand via DecodeStream; see stream.go.
type PdfObjectStream struct {
	PdfObjectReference
	*PdfObjectDictionary
	Stream []byte // encoded bytes, as they appear (or will appear) on disk

	decodedCache []byte
	decodedValid bool
}

// MakeStream wraps encoded payload bytes with a dictionary. The caller
// is responsible for the dictionary carrying a correct /Filter entry
// matching how payload was encoded.
func MakeStream(dict *PdfObjectDictionary, payload []byte) *PdfObjectStream {
	return &PdfObjectStream{PdfObjectDictionary: dict, Stream: payload}
}

func (s *PdfObjectStream) String() string {
	return fmt.Sprintf("Stream(%s, %d bytes)", s.PdfObjectDictionary.String(), len(s.Stream))
}

func (s *PdfObjectStream) WriteString() string {
	var buf bytes.Buffer
	buf.WriteString(s.PdfObjectDictionary.WriteString())
	buf.WriteString("\nstream\n")
	buf.Write(s.Stream)
	buf.WriteString("\nendstream")
	return buf.String()
}

// invalidateCache drops any cached decoded payload. SetRawStream is its
// only caller: replacing the raw bytes clears the cache, while changing
// /Filter or /DecodeParms through the stream's dictionary does not.
func (s *PdfObjectStream) invalidateCache() {
	s.decodedCache = nil
	s.decodedValid = false
}

// SetRawStream replaces the encoded payload and invalidates the decoded
// cache (see stream.go's DecodeStream for the cache itself).
func (s *PdfObjectStream) SetRawStream(payload []byte) {
	s.Stream = payload
	s.invalidateCache()
}

// PdfIndirectObject wraps a direct value with the object number and
// generation the Registry assigned it.
type PdfIndirectObject struct {
	PdfObjectReference
	PdfObject
}

func (o *PdfIndirectObject) String() string {
	return fmt.Sprintf("IndObj(%d %d, %s)", o.ObjectNumber, o.GenerationNumber, o.PdfObject.String())
}

// PdfObjectRaw holds pre-encoded bytes that serialise verbatim, with no
// canonical reformatting. It exists for signature placeholders, which
// must retain an exact, pre-computed byte width; see sigplaceholder.
type PdfObjectRaw struct {
	Bytes []byte
}

// MakeRaw wraps data for verbatim serialisation.
func MakeRaw(data []byte) *PdfObjectRaw { return &PdfObjectRaw{Bytes: data} }

func (r *PdfObjectRaw) String() string     { return fmt.Sprintf("Raw(%d bytes)", len(r.Bytes)) }
func (r *PdfObjectRaw) WriteString() string { return string(r.Bytes) }

// Type-assertion helpers, mirroring the common corpus idiom of small
// GetX functions rather than forcing call sites to repeat the type
// switch on both PdfObject and *PdfIndirectObject-wrapped direct values.

// GetDict resolves obj (following through a *PdfIndirectObject wrapper
// or a *PdfObjectStream) to its *PdfObjectDictionary, if any.
func GetDict(obj PdfObject) (*PdfObjectDictionary, bool) {
	switch t := obj.(type) {
	case *PdfObjectDictionary:
		return t, true
	case *PdfObjectStream:
		return t.PdfObjectDictionary, true
	case *PdfIndirectObject:
		return GetDict(t.PdfObject)
	default:
		return nil, false
	}
}

// GetArray resolves obj to a *PdfObjectArray, if any.
func GetArray(obj PdfObject) (*PdfObjectArray, bool) {
	switch t := obj.(type) {
	case *PdfObjectArray:
		return t, true
	case *PdfIndirectObject:
		return GetArray(t.PdfObject)
	default:
		return nil, false
	}
}

// GetStream resolves obj to a *PdfObjectStream, if any.
func GetStream(obj PdfObject) (*PdfObjectStream, bool) {
	switch t := obj.(type) {
	case *PdfObjectStream:
		return t, true
	case *PdfIndirectObject:
		return GetStream(t.PdfObject)
	default:
		return nil, false
	}
}

// GetIndirect reports whether obj is a *PdfIndirectObject.
func GetIndirect(obj PdfObject) (*PdfIndirectObject, bool) {
	t, ok := obj.(*PdfIndirectObject)
	return t, ok
}

// GetName resolves obj to a *PdfObjectName, if any.
func GetName(obj PdfObject) (*PdfObjectName, bool) {
	switch t := obj.(type) {
	case *PdfObjectName:
		return t, true
	case *PdfIndirectObject:
		return GetName(t.PdfObject)
	default:
		return nil, false
	}
}

// GetInt resolves obj to an int64, accepting only a PdfObjectInteger.
func GetInt(obj PdfObject) (int64, bool) {
	switch t := obj.(type) {
	case *PdfObjectInteger:
		return int64(*t), true
	case *PdfIndirectObject:
		return GetInt(t.PdfObject)
	default:
		return 0, false
	}
}

// GetNumberAsFloat resolves obj to a float64, accepting both integer
// and float numeric objects.
func GetNumberAsFloat(obj PdfObject) (float64, bool) {
	switch t := obj.(type) {
	case *PdfObjectInteger:
		return float64(*t), true
	case *PdfObjectFloat:
		return float64(*t), true
	case *PdfIndirectObject:
		return GetNumberAsFloat(t.PdfObject)
	default:
		return 0, false
	}
}

// GetString resolves obj to a *PdfObjectString, if any.
func GetString(obj PdfObject) (*PdfObjectString, bool) {
	switch t := obj.(type) {
	case *PdfObjectString:
		return t, true
	case *PdfIndirectObject:
		return GetString(t.PdfObject)
	default:
		return nil, false
	}
}

// GetBool resolves obj to a bool, if any.
func GetBool(obj PdfObject) (bool, bool) {
	switch t := obj.(type) {
	case *PdfObjectBool:
		return bool(*t), true
	case *PdfIndirectObject:
		return GetBool(t.PdfObject)
	default:
		return false, false
	}
}
