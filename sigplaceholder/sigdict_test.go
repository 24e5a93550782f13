package sigplaceholder_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/inkwellpdf/pdfcore/core"
	"github.com/inkwellpdf/pdfcore/sigplaceholder"
)

func TestBuildSignatureDictDefaultsAndPlaceholders(t *testing.T) {
	signedAt := time.Date(2024, time.March, 5, 10, 30, 0, 0, time.FixedZone("UTC-05:00", -5*60*60))
	dict := sigplaceholder.BuildSignatureDict(sigplaceholder.DictOptions{
		ContentsWidth: 4,
		SignedAt:      signedAt,
	})

	typeName, ok := core.GetName(dict.Get("Type"))
	require.True(t, ok)
	require.Equal(t, "Sig", string(*typeName))

	filter, ok := core.GetName(dict.Get("Filter"))
	require.True(t, ok)
	require.Equal(t, "Adobe.PPKLite", string(*filter))

	subFilter, ok := core.GetName(dict.Get("SubFilter"))
	require.True(t, ok)
	require.Equal(t, "adbe.pkcs7.detached", string(*subFilter))

	m, ok := dict.Get("M").(*core.PdfObjectString)
	require.True(t, ok)
	require.Equal(t, "D:20240305103000-05'00'", m.Str())

	raw, ok := dict.Get("ByteRange").(*core.PdfObjectRaw)
	require.True(t, ok)
	require.Len(t, raw.Bytes, 47)

	contentsRaw, ok := dict.Get("Contents").(*core.PdfObjectRaw)
	require.True(t, ok)
	require.Equal(t, "<00000000>", string(contentsRaw.Bytes))

	require.Nil(t, dict.Get("Name"))
	require.Nil(t, dict.Get("Location"))
	require.Nil(t, dict.Get("Reason"))
}

func TestBuildSignatureDictOptionalFields(t *testing.T) {
	dict := sigplaceholder.BuildSignatureDict(sigplaceholder.DictOptions{
		Filter:        "Adobe.PPKMS",
		SubFilter:     "ETSI.CAdES.detached",
		Name:          "Jane Signer",
		Location:      "Remote",
		Reason:        "Approval",
		ContentsWidth: 2,
	})

	filter, ok := core.GetName(dict.Get("Filter"))
	require.True(t, ok)
	require.Equal(t, "Adobe.PPKMS", string(*filter))

	name, ok := dict.Get("Name").(*core.PdfObjectString)
	require.True(t, ok)
	require.Equal(t, "Jane Signer", name.Str())

	location, ok := dict.Get("Location").(*core.PdfObjectString)
	require.True(t, ok)
	require.Equal(t, "Remote", location.Str())

	reason, ok := dict.Get("Reason").(*core.PdfObjectString)
	require.True(t, ok)
	require.Equal(t, "Approval", reason.Str())
}
