package sigplaceholder_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inkwellpdf/pdfcore/sigplaceholder"
)

type fakeSigner struct {
	lastInput []byte
	blob      []byte
}

func (f *fakeSigner) Sign(signedData []byte) ([]byte, error) {
	f.lastInput = append([]byte(nil), signedData...)
	return f.blob, nil
}

func buildDocumentWithPlaceholder(t *testing.T, contentsWidth int) []byte {
	t.Helper()
	br := sigplaceholder.CreateByteRangePlaceholder()
	require.Len(t, br, 47)
	contents := sigplaceholder.CreateContentsPlaceholder(contentsWidth)

	var buf bytes.Buffer
	buf.WriteString("1 0 obj\n<< /Type /Sig ")
	buf.Write(br)
	buf.WriteString(" /Contents ")
	buf.Write(contents)
	buf.WriteString(" >>\nendobj\n%%EOF\n")
	return buf.Bytes()
}

func TestFindByteRangeAndContentsPlaceholders(t *testing.T) {
	data := buildDocumentWithPlaceholder(t, 4)

	br, err := sigplaceholder.FindByteRangePlaceholder(data)
	require.NoError(t, err)
	require.Equal(t, 47, br.Len())

	contents, err := sigplaceholder.FindContentsPlaceholder(data, br.End)
	require.NoError(t, err)
	require.Equal(t, "<00000000>", string(data[contents.Start:contents.End]))
}

func TestComputeAndPatchByteRange(t *testing.T) {
	data := buildDocumentWithPlaceholder(t, 4)
	br, err := sigplaceholder.FindByteRangePlaceholder(data)
	require.NoError(t, err)
	contents, err := sigplaceholder.FindContentsPlaceholder(data, br.End)
	require.NoError(t, err)

	length1, offset2, length2 := sigplaceholder.ComputeByteRange(len(data), contents)
	require.Equal(t, int64(contents.Start), length1)
	require.Equal(t, int64(contents.End), offset2)
	require.Equal(t, int64(len(data))-offset2, length2)

	require.NoError(t, sigplaceholder.PatchByteRange(data, br, length1, offset2, length2))
	want := fmt.Sprintf("/ByteRange [0 %10d %10d %10d]", length1, offset2, length2)
	require.Equal(t, want, string(data[br.Start:br.End]))
}

func TestPatchContentsHexEncodesAndZeroPads(t *testing.T) {
	data := buildDocumentWithPlaceholder(t, 4)
	br, _ := sigplaceholder.FindByteRangePlaceholder(data)
	contents, err := sigplaceholder.FindContentsPlaceholder(data, br.End)
	require.NoError(t, err)

	require.NoError(t, sigplaceholder.PatchContents(data, contents, []byte{0xAB, 0xCD}))
	require.Equal(t, "<ABCD0000>", string(data[contents.Start:contents.End]))
}

func TestPatchContentsTooSmallReturnsError(t *testing.T) {
	data := buildDocumentWithPlaceholder(t, 1)
	br, _ := sigplaceholder.FindByteRangePlaceholder(data)
	contents, err := sigplaceholder.FindContentsPlaceholder(data, br.End)
	require.NoError(t, err)

	err = sigplaceholder.PatchContents(data, contents, []byte{1, 2, 3})
	require.Error(t, err)
}

func TestApplyPlaceholdersSignsAndPatchesInPlace(t *testing.T) {
	data := buildDocumentWithPlaceholder(t, 8)
	signer := &fakeSigner{blob: []byte{0xDE, 0xAD, 0xBE, 0xEF}}

	require.NoError(t, sigplaceholder.ApplyPlaceholders(data, signer))

	require.NotContains(t, string(data), "/ByteRange [0           ")
	require.Contains(t, string(data), "DEADBEEF")
	require.NotNil(t, signer.lastInput)
	require.NotContains(t, string(signer.lastInput), "DEADBEEF", "the signed range must exclude the /Contents digest region")
}

func TestApplyPlaceholderFieldSupportsMultipleSignatures(t *testing.T) {
	one := buildDocumentWithPlaceholder(t, 4)
	two := buildDocumentWithPlaceholder(t, 4)
	data := append(one, two...)

	spans := sigplaceholder.FindAllByteRangePlaceholders(data)
	require.Len(t, spans, 2)

	signer := &fakeSigner{blob: []byte{0x01}}
	require.NoError(t, sigplaceholder.ApplyPlaceholderField(data, 1, signer))

	remaining := sigplaceholder.FindAllByteRangePlaceholders(data)
	require.Len(t, remaining, 1, "only the untouched field's placeholder should remain")
}
