// Package model holds document-level constructs layered on top of the
// core object model: today, the Document Security Store writer that
// backs long-term-validation signatures.
package model

import (
	"github.com/inkwellpdf/pdfcore/core"
)

// DSSBuilder accumulates certificates, OCSP responses and CRLs for a
// document security store and the per-signature /VRI entries that
// point at the subset each signature actually needs, then builds the
// /DSS dictionary a catalog hangs its validation data off of.
type DSSBuilder struct {
	reg *core.Registry

	certs []*core.PdfObjectReference
	ocsps []*core.PdfObjectReference
	crls  []*core.PdfObjectReference

	vri map[string]*vriEntry
}

type vriEntry struct {
	certs []*core.PdfObjectReference
	ocsps []*core.PdfObjectReference
	crls  []*core.PdfObjectReference
}

// NewDSSBuilder starts an empty store backed by reg; every added blob
// becomes its own registered stream object.
func NewDSSBuilder(reg *core.Registry) *DSSBuilder {
	return &DSSBuilder{reg: reg, vri: map[string]*vriEntry{}}
}

func (b *DSSBuilder) addStream(raw []byte) *core.PdfObjectReference {
	stream := core.MakeStream(core.MakeDict(), raw)
	return b.reg.RegisterNew(stream)
}

// AddCert registers a DER certificate into the store's top-level /Certs.
func (b *DSSBuilder) AddCert(der []byte) *core.PdfObjectReference {
	ref := b.addStream(der)
	b.certs = append(b.certs, ref)
	return ref
}

// AddOCSP registers a DER OCSP response into the store's top-level /OCSPs.
func (b *DSSBuilder) AddOCSP(der []byte) *core.PdfObjectReference {
	ref := b.addStream(der)
	b.ocsps = append(b.ocsps, ref)
	return ref
}

// AddCRL registers a DER CRL into the store's top-level /CRLs.
func (b *DSSBuilder) AddCRL(der []byte) *core.PdfObjectReference {
	ref := b.addStream(der)
	b.crls = append(b.crls, ref)
	return ref
}

// AddVRI attaches validation material for one signature, keyed by the
// uppercase hex SHA-1 of its /Contents value, per the VRI naming
// convention. Each blob also becomes its own registered stream, kept
// separate from the top-level /Certs, /OCSPs and /CRLs lists.
func (b *DSSBuilder) AddVRI(signatureHash string, certs, ocsps, crls [][]byte) {
	e := &vriEntry{}
	for _, c := range certs {
		e.certs = append(e.certs, b.addStream(c))
	}
	for _, o := range ocsps {
		e.ocsps = append(e.ocsps, b.addStream(o))
	}
	for _, r := range crls {
		e.crls = append(e.crls, b.addStream(r))
	}
	b.vri[signatureHash] = e
}

// Build registers and returns the reference to the completed /DSS
// dictionary, ready to be set as the catalog's /DSS entry.
func (b *DSSBuilder) Build() *core.PdfObjectReference {
	dss := core.MakeDict()
	if len(b.certs) > 0 {
		dss.Set("Certs", refArray(b.certs))
	}
	if len(b.ocsps) > 0 {
		dss.Set("OCSPs", refArray(b.ocsps))
	}
	if len(b.crls) > 0 {
		dss.Set("CRLs", refArray(b.crls))
	}
	if len(b.vri) > 0 {
		vriDict := core.MakeDict()
		for hash, e := range b.vri {
			entry := core.MakeDict()
			if len(e.certs) > 0 {
				entry.Set("Cert", refArray(e.certs))
			}
			if len(e.ocsps) > 0 {
				entry.Set("OCSP", refArray(e.ocsps))
			}
			if len(e.crls) > 0 {
				entry.Set("CRL", refArray(e.crls))
			}
			vriDict.Set(core.PdfObjectName(hash), entry)
		}
		dss.Set("VRI", vriDict)
	}
	return b.reg.RegisterNew(dss)
}

func refArray(refs []*core.PdfObjectReference) *core.PdfObjectArray {
	arr := core.MakeArray()
	for _, r := range refs {
		arr.Append(r)
	}
	return arr
}
