package writer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inkwellpdf/pdfcore/core"
	"github.com/inkwellpdf/pdfcore/writer"
)

func buildRegistry(t *testing.T) (*core.Registry, *core.PdfObjectReference) {
	t.Helper()
	reg := core.NewRegistry()

	pagesRef := reg.RegisterNew(core.MakeDict())
	contentRef := reg.RegisterNew(core.MakeStream(core.MakeDict(), []byte("BT ET")))

	pageDict := core.MakeDict()
	pageDict.Set("Type", core.MakeName("Page"))
	pageDict.Set("Parent", pagesRef)
	pageDict.Set("Contents", contentRef)
	pageRef := reg.RegisterNew(pageDict)

	pages := reg.Get(pagesRef).(*core.PdfObjectDictionary)
	pages.Set("Type", core.MakeName("Pages"))
	kids := core.MakeArray(pageRef)
	pages.Set("Kids", kids)
	pages.Set("Count", core.MakeInteger(1))

	catalog := core.MakeDict()
	catalog.Set("Type", core.MakeName("Catalog"))
	catalog.Set("Pages", pagesRef)
	catalogRef := reg.RegisterNew(catalog)

	// An unreferenced stray object: written only if GC fails to prune it.
	reg.RegisterNew(core.MakeInteger(999))

	return reg, catalogRef
}

func TestWriteCompleteRoundTripsThroughLoad(t *testing.T) {
	reg, catalogRef := buildRegistry(t)

	result, err := writer.WriteComplete(reg, catalogRef, nil, writer.DefaultOptions())
	require.NoError(t, err)
	require.NotZero(t, result.XrefOffset)

	src, err := core.Load(result.Bytes)
	require.NoError(t, err)

	rootRef, ok := src.Trailer.Get("Root").(*core.PdfObjectReference)
	require.True(t, ok)
	require.Equal(t, catalogRef.ObjectNumber, rootRef.ObjectNumber)

	catalog, err := src.Registry.Resolve(rootRef)
	require.NoError(t, err)
	dict := catalog.(*core.PdfObjectDictionary)
	name, _ := core.GetName(dict.Get("Type"))
	require.Equal(t, "Catalog", string(*name))
}

func TestWriteCompleteExcludesUnreachableObjects(t *testing.T) {
	reg, catalogRef := buildRegistry(t)

	result, err := writer.WriteComplete(reg, catalogRef, nil, writer.DefaultOptions())
	require.NoError(t, err)
	require.NotContains(t, string(result.Bytes), "999", "orphan object reachable from no root must not be written")
}

func TestWriteCompleteWithXrefStreamAndObjectStreamPacking(t *testing.T) {
	reg, catalogRef := buildRegistry(t)

	opts := writer.Options{CompressStreams: true, UseXrefStream: true, PackObjectStreams: true, Version: "1.7"}
	result, err := writer.WriteComplete(reg, catalogRef, nil, opts)
	require.NoError(t, err)

	src, err := core.Load(result.Bytes)
	require.NoError(t, err)

	rootRef, ok := src.Trailer.Get("Root").(*core.PdfObjectReference)
	require.True(t, ok)
	catalog, err := src.Registry.Resolve(rootRef)
	require.NoError(t, err)
	dict := catalog.(*core.PdfObjectDictionary)

	pagesRef, ok := dict.Get("Pages").(*core.PdfObjectReference)
	require.True(t, ok)
	pages, err := src.Registry.Resolve(pagesRef)
	require.NoError(t, err, "pages dict must resolve even though it was packed into an ObjStm")
	pagesDict := pages.(*core.PdfObjectDictionary)
	count, _ := core.GetInt(pagesDict.Get("Count"))
	require.EqualValues(t, 1, count)
}

func TestWriteIncrementalAppendsAfterOriginalAndPreservesPrefix(t *testing.T) {
	reg, catalogRef := buildRegistry(t)

	first, err := writer.WriteComplete(reg, catalogRef, nil, writer.DefaultOptions())
	require.NoError(t, err)
	reg.ClearDirty()

	catalog := reg.Get(catalogRef).(*core.PdfObjectDictionary)
	catalog.Set("Lang", core.MakeString("en"))
	reg.MarkDirty(catalogRef.ObjectNumber)

	second, err := writer.WriteIncremental(reg, first.Bytes, first.XrefOffset, catalogRef, nil, writer.IncrementalOptions{})
	require.NoError(t, err)

	require.Greater(t, len(second.Bytes), len(first.Bytes))
	require.Equal(t, first.Bytes, second.Bytes[:len(first.Bytes)])

	src, err := core.Load(second.Bytes)
	require.NoError(t, err)
	rootRef, _ := src.Trailer.Get("Root").(*core.PdfObjectReference)
	got, err := src.Registry.Resolve(rootRef)
	require.NoError(t, err)
	lang, ok := got.(*core.PdfObjectDictionary).Get("Lang").(*core.PdfObjectString)
	require.True(t, ok)
	require.Equal(t, "en", lang.Str())
}

func TestWriteIncrementalNoopWhenNothingDirty(t *testing.T) {
	reg, catalogRef := buildRegistry(t)

	first, err := writer.WriteComplete(reg, catalogRef, nil, writer.DefaultOptions())
	require.NoError(t, err)
	reg.ClearDirty()

	second, err := writer.WriteIncremental(reg, first.Bytes, first.XrefOffset, catalogRef, nil, writer.IncrementalOptions{})
	require.NoError(t, err)
	require.Equal(t, first.Bytes, second.Bytes)
}
