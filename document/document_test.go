package document_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inkwellpdf/pdfcore/core"
	"github.com/inkwellpdf/pdfcore/document"
	"github.com/inkwellpdf/pdfcore/writer"
)

func newDocument(t *testing.T) *document.Document {
	t.Helper()
	reg := core.NewRegistry()
	catalog := core.MakeDict()
	catalog.Set("Type", core.MakeName("Catalog"))
	catalogRef := reg.RegisterNew(catalog)
	return document.New(reg, catalogRef, nil)
}

func TestDocumentRegisterAndGetObject(t *testing.T) {
	doc := newDocument(t)
	ref := doc.Register(core.MakeInteger(7))

	got, err := doc.GetObject(ref)
	require.NoError(t, err)
	i, ok := got.(*core.PdfObjectInteger)
	require.True(t, ok)
	require.EqualValues(t, 7, *i)
}

func TestDocumentSaveCompleteThenLoad(t *testing.T) {
	doc := newDocument(t)
	result, err := doc.SaveComplete(writer.DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, result.Bytes, doc.OriginalBytes())
	require.Equal(t, result.XrefOffset, doc.XrefOffset())

	loaded, err := document.Load(result.Bytes)
	require.NoError(t, err)
	catalog, err := loaded.GetObject(loaded.Catalog)
	require.NoError(t, err)
	dict, ok := catalog.(*core.PdfObjectDictionary)
	require.True(t, ok)
	name, _ := core.GetName(dict.Get("Type"))
	require.Equal(t, "Catalog", string(*name))
}

func TestDocumentSaveIncrementalWithoutPriorSaveFails(t *testing.T) {
	doc := newDocument(t)
	_, err := doc.SaveIncremental(writer.IncrementalOptions{})
	require.Error(t, err)
}

func TestDocumentSaveIncrementalAfterLoad(t *testing.T) {
	doc := newDocument(t)
	first, err := doc.SaveComplete(writer.DefaultOptions())
	require.NoError(t, err)

	loaded, err := document.Load(first.Bytes)
	require.NoError(t, err)

	info := core.MakeDict()
	info.Set("Title", core.MakeString("t"))
	infoRef := loaded.Register(info)
	loaded.Info = infoRef

	second, err := loaded.SaveIncremental(writer.IncrementalOptions{})
	require.NoError(t, err)
	require.Greater(t, len(second.Bytes), len(first.Bytes))
}

func TestDocumentWarningsSurfaceXrefRecovery(t *testing.T) {
	doc := newDocument(t)
	saved, err := doc.SaveComplete(writer.DefaultOptions())
	require.NoError(t, err)

	corrupted := bytes.Replace(saved.Bytes, []byte("startxref\n"), []byte("startxref\n999999\n"), 1)

	loaded, err := document.Load(corrupted)
	require.NoError(t, err)
	require.NotEmpty(t, loaded.Warnings())
	require.Contains(t, loaded.Warnings()[0].Message, "recovered")
}
