package model_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inkwellpdf/pdfcore/core"
	"github.com/inkwellpdf/pdfcore/model"
)

func TestDSSBuilderBuildsCertsOCSPsCRLs(t *testing.T) {
	reg := core.NewRegistry()
	b := model.NewDSSBuilder(reg)

	certRef := b.AddCert([]byte("der-cert"))
	ocspRef := b.AddOCSP([]byte("der-ocsp"))
	crlRef := b.AddCRL([]byte("der-crl"))

	dssRef := b.Build()
	dssVal, err := reg.Resolve(dssRef)
	require.NoError(t, err)
	dss, ok := dssVal.(*core.PdfObjectDictionary)
	require.True(t, ok)

	certs, ok := dss.Get("Certs").(*core.PdfObjectArray)
	require.True(t, ok)
	require.Equal(t, 1, certs.Len())
	require.Equal(t, certRef.ObjectNumber, certs.Get(0).(*core.PdfObjectReference).ObjectNumber)

	ocsps, ok := dss.Get("OCSPs").(*core.PdfObjectArray)
	require.True(t, ok)
	require.Equal(t, ocspRef.ObjectNumber, ocsps.Get(0).(*core.PdfObjectReference).ObjectNumber)

	crls, ok := dss.Get("CRLs").(*core.PdfObjectArray)
	require.True(t, ok)
	require.Equal(t, crlRef.ObjectNumber, crls.Get(0).(*core.PdfObjectReference).ObjectNumber)
}

func TestDSSBuilderVRIEntriesAreKeyedBySignatureHash(t *testing.T) {
	reg := core.NewRegistry()
	b := model.NewDSSBuilder(reg)

	b.AddVRI("ABCDEF0123456789", [][]byte{[]byte("cert")}, [][]byte{[]byte("ocsp")}, nil)

	dssRef := b.Build()
	dssVal, err := reg.Resolve(dssRef)
	require.NoError(t, err)
	dss := dssVal.(*core.PdfObjectDictionary)

	vri, ok := dss.Get("VRI").(*core.PdfObjectDictionary)
	require.True(t, ok)
	entry, ok := vri.Get("ABCDEF0123456789").(*core.PdfObjectDictionary)
	require.True(t, ok)

	certs, ok := entry.Get("Cert").(*core.PdfObjectArray)
	require.True(t, ok)
	require.Equal(t, 1, certs.Len())
	require.Nil(t, entry.Get("CRL"), "no CRLs were attached to this VRI entry")
}

func TestDSSBuilderOmitsEmptySections(t *testing.T) {
	reg := core.NewRegistry()
	b := model.NewDSSBuilder(reg)
	dssRef := b.Build()

	dssVal, err := reg.Resolve(dssRef)
	require.NoError(t, err)
	dss := dssVal.(*core.PdfObjectDictionary)
	require.Nil(t, dss.Get("Certs"))
	require.Nil(t, dss.Get("VRI"))
}
