// Package document is the public facade wiring the registry, xref
// parser and writer packages together into the five operations spec
// §6 names: load, getObject, register, save (complete), save
// (incremental).
package document

import (
	"github.com/inkwellpdf/pdfcore/core"
	"github.com/inkwellpdf/pdfcore/core/pdferr"
	"github.com/inkwellpdf/pdfcore/writer"
)

// Document is a loaded (or freshly built) PDF ready for further
// mutation and saving.
type Document struct {
	Registry *core.Registry

	// Catalog and Info are the roots a save walks from. Info may be nil.
	Catalog *core.PdfObjectReference
	Info    *core.PdfObjectReference

	original   []byte
	xrefOffset int64
}

// Load parses data's xref/trailer structure and returns a Document
// whose objects resolve lazily against it (spec §6 `load`).
func Load(data []byte) (*Document, error) {
	src, err := core.Load(data)
	if err != nil {
		return nil, err
	}

	catalogRef, ok := src.Trailer.Get("Root").(*core.PdfObjectReference)
	if !ok {
		return nil, pdferr.Malformed(0, "trailer /Root is not a reference")
	}
	var infoRef *core.PdfObjectReference
	if ref, ok := src.Trailer.Get("Info").(*core.PdfObjectReference); ok {
		infoRef = ref
	}

	return &Document{
		Registry:   src.Registry,
		Catalog:    catalogRef,
		Info:       infoRef,
		original:   data,
		xrefOffset: src.XrefOffset,
	}, nil
}

// New starts a from-scratch document around an already-registered
// catalog reference (and optional info reference), for callers
// building a PDF rather than loading one.
func New(reg *core.Registry, catalog, info *core.PdfObjectReference) *Document {
	return &Document{Registry: reg, Catalog: catalog, Info: info}
}

// GetObject resolves ref against the document's registry (spec §6
// `getObject`).
func (d *Document) GetObject(ref *core.PdfObjectReference) (core.PdfObject, error) {
	return d.Registry.Resolve(ref)
}

// Register installs value as a new indirect object and returns the
// reference other objects should use to point at it (spec §6
// `register`).
func (d *Document) Register(value core.PdfObject) *core.PdfObjectReference {
	return d.Registry.RegisterNew(value)
}

// SaveComplete serializes the whole reachable object graph into a
// fresh buffer (spec §6 `save` complete / §4.7).
func (d *Document) SaveComplete(opts writer.Options) (*writer.Result, error) {
	result, err := writer.WriteComplete(d.Registry, d.Catalog, d.Info, opts)
	if err != nil {
		return nil, err
	}
	d.original = result.Bytes
	d.xrefOffset = result.XrefOffset
	return result, nil
}

// SaveIncremental appends the registry's dirty/new objects after the
// document's previously saved bytes (spec §6 `save` incremental /
// §4.8). The document must have been produced by Load or a prior
// SaveComplete/SaveIncremental call.
func (d *Document) SaveIncremental(opts writer.IncrementalOptions) (*writer.Result, error) {
	if d.original == nil {
		return nil, pdferr.Invariant("SaveIncremental requires a document with a prior save or load")
	}
	result, err := writer.WriteIncremental(d.Registry, d.original, d.xrefOffset, d.Catalog, d.Info, opts)
	if err != nil {
		return nil, err
	}
	d.original = result.Bytes
	d.xrefOffset = result.XrefOffset
	return result, nil
}

// OriginalBytes returns the bytes the next incremental save would
// append after, i.e. the last saved (or loaded) revision.
func (d *Document) OriginalBytes() []byte { return d.original }

// XrefOffset returns the offset of the most recently written or
// loaded xref section, the value a further incremental save's /Prev
// would chain from.
func (d *Document) XrefOffset() int64 { return d.xrefOffset }

// Warnings returns the non-fatal observations the registry has
// recorded so far — e.g. xref recovery or lenient stream-length
// handling during Load — in addition to whatever the active
// common.Logger already reported them to.
func (d *Document) Warnings() []core.Warning { return d.Registry.Warnings() }
