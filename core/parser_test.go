package core_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inkwellpdf/pdfcore/core"
)

// buildMinimalPDF assembles a four-object PDF (catalog, pages, a page
// and its content stream) with a classical xref table, computing every
// offset as it writes rather than hand-counting bytes.
func buildMinimalPDF(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n")

	offsets := make([]int64, 4) // index by object number, 1-based used

	offsets[1] = int64(buf.Len())
	buf.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	offsets[2] = int64(buf.Len())
	buf.WriteString("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")

	offsets[3] = int64(buf.Len())
	buf.WriteString("3 0 obj\n<< /Type /Page /Parent 2 0 R /Contents 4 0 R >>\nendobj\n")

	content := "BT /F1 12 Tf (Hi) Tj ET"
	obj4Offset := int64(buf.Len())
	fmt.Fprintf(&buf, "4 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", len(content), content)

	xrefOffset := int64(buf.Len())
	buf.WriteString("xref\n")
	buf.WriteString("0 5\n")
	buf.WriteString("0000000000 65535 f \n")
	fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[1])
	fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[2])
	fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[3])
	fmt.Fprintf(&buf, "%010d 00000 n \n", obj4Offset)
	buf.WriteString("trailer\n<< /Size 5 /Root 1 0 R >>\n")
	fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", xrefOffset)

	return buf.Bytes()
}

func TestLoadMinimalPDFRoundTrip(t *testing.T) {
	data := buildMinimalPDF(t)

	src, err := core.Load(data)
	require.NoError(t, err)
	require.NotZero(t, src.XrefOffset)

	rootRef, ok := src.Trailer.Get("Root").(*core.PdfObjectReference)
	require.True(t, ok)

	catalog, err := src.Registry.Resolve(rootRef)
	require.NoError(t, err)
	dict, ok := catalog.(*core.PdfObjectDictionary)
	require.True(t, ok)

	name, ok := core.GetName(dict.Get("Type"))
	require.True(t, ok)
	require.Equal(t, "Catalog", string(*name))

	pagesRef, ok := dict.Get("Pages").(*core.PdfObjectReference)
	require.True(t, ok)
	pages, err := src.Registry.Resolve(pagesRef)
	require.NoError(t, err)
	pagesDict := pages.(*core.PdfObjectDictionary)
	count, ok := core.GetInt(pagesDict.Get("Count"))
	require.True(t, ok)
	require.EqualValues(t, 1, count)
}

func TestLoadFallsBackToRecoverXrefOnBrokenStartxref(t *testing.T) {
	data := buildMinimalPDF(t)

	// Corrupt the startxref offset so the classical table can't be
	// found at the stated location, forcing the linear-scan recovery
	// path.
	corrupted := bytes.Replace(data, []byte("startxref\n"), []byte("startxref\n999999\n"), 1)

	src, err := core.Load(corrupted)
	require.NoError(t, err)
	require.Zero(t, src.XrefOffset, "recovered documents carry no xref offset")

	rootRef, ok := src.Trailer.Get("Root").(*core.PdfObjectReference)
	require.True(t, ok)
	_, err = src.Registry.Resolve(rootRef)
	require.NoError(t, err)

	require.NotEmpty(t, src.Registry.Warnings(), "recovery should surface a warning")
}

func TestRecoverXrefScansForCatalogWhenTrailerKeywordMissing(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n")
	buf.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	buf.WriteString("2 0 obj\n<< /Type /Pages /Kids [] /Count 0 >>\nendobj\n")
	// No trailer keyword and no startxref marker at all.

	table, err := core.RecoverXref(buf.Bytes())
	require.NoError(t, err)
	require.NotNil(t, table.Trailer)

	rootRef, ok := table.Trailer.Get("Root").(*core.PdfObjectReference)
	require.True(t, ok, "catalog scan should have synthesized /Root")
	require.EqualValues(t, 1, rootRef.ObjectNumber)
}

func TestStreamDecodeASCIIHex(t *testing.T) {
	dict := core.MakeDict()
	dict.Set("Filter", core.MakeName(core.FilterASCIIHex))
	encoded := []byte("48656C6C6F>")
	stream := core.MakeStream(dict, encoded)

	decoded, err := core.DecodeStream(stream)
	require.NoError(t, err)
	require.Equal(t, "Hello", string(decoded))
}

func TestStreamEncodeFlateThenDecode(t *testing.T) {
	dict := core.MakeDict()
	stream := core.MakeStream(dict, nil)

	original := []byte("repeated repeated repeated data")
	dict.Set("Filter", core.MakeName(core.FilterFlate))
	require.NoError(t, core.SetDecodedStream(stream, original))
	require.NotEqual(t, original, stream.Stream)

	decoded, err := core.DecodeStream(stream)
	require.NoError(t, err)
	require.Equal(t, original, decoded)
}

func TestRegistryRegisterNewAndDirtyTracking(t *testing.T) {
	reg := core.NewRegistry()
	ref := reg.RegisterNew(core.MakeInteger(42))
	require.True(t, reg.IsDirtyOrNew(ref.ObjectNumber))

	val, err := reg.Resolve(ref)
	require.NoError(t, err)
	i, ok := val.(*core.PdfObjectInteger)
	require.True(t, ok)
	require.EqualValues(t, 42, *i)

	reg.ClearDirty()
	require.False(t, reg.IsDirtyOrNew(ref.ObjectNumber))
}
