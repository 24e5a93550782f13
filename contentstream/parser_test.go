package contentstream_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inkwellpdf/pdfcore/contentstream"
	"github.com/inkwellpdf/pdfcore/core"
)

func TestParseOperatorsWithOperands(t *testing.T) {
	data := []byte("q 1 0 0 1 10 20 cm /F1 12 Tf (Hello) Tj Q\n")

	ops, err := contentstream.Parse(data)
	require.NoError(t, err)
	require.Len(t, ops, 5)

	require.Equal(t, contentstream.OpSaveState, ops[0].Operand)
	require.Empty(t, ops[0].Params)

	require.Equal(t, contentstream.OpConcat, ops[1].Operand)
	require.Len(t, ops[1].Params, 6)

	require.Equal(t, contentstream.OpSetFont, ops[2].Operand)
	name, ok := ops[2].Params[0].(*core.PdfObjectName)
	require.True(t, ok)
	require.Equal(t, "F1", string(*name))

	require.Equal(t, contentstream.OpShowText, ops[3].Operand)
	str, ok := ops[3].Params[0].(*core.PdfObjectString)
	require.True(t, ok)
	require.Equal(t, "Hello", str.Str())

	require.Equal(t, contentstream.OpRestoreState, ops[4].Operand)
}

func TestOperationsBytesRoundTrip(t *testing.T) {
	data := []byte("1 0 0 1 0 0 cm\n")
	ops, err := contentstream.Parse(data)
	require.NoError(t, err)

	out, err := contentstream.Parse(ops.Bytes())
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, contentstream.OpConcat, out[0].Operand)
}

func TestWrapWithStateAddsSaveRestoreOnce(t *testing.T) {
	inner := contentstream.Operations{{Operand: contentstream.OpFill}}
	wrapped := contentstream.WrapWithState(inner)
	require.Len(t, wrapped, 3)
	require.Equal(t, contentstream.OpSaveState, wrapped[0].Operand)
	require.Equal(t, contentstream.OpRestoreState, wrapped[2].Operand)

	alreadyWrapped := contentstream.WrapWithState(wrapped)
	require.Len(t, alreadyWrapped, 3, "already-wrapped operations are not wrapped twice")
}

func TestParseInlineImage(t *testing.T) {
	data := []byte("BI /W 2 /H 1 /BPC 8 /CS /G ID \x00\xFF EI Q\n")

	ops, err := contentstream.Parse(data)
	require.NoError(t, err)
	require.Len(t, ops, 2)

	require.Equal(t, contentstream.OpBeginInline, ops[0].Operand)
	require.Len(t, ops[0].Params, 1)
	img, ok := ops[0].Params[0].(*contentstream.InlineImage)
	require.True(t, ok)
	require.Equal(t, []byte{0x00, 0xFF}, img.Data)

	width, ok := core.GetInt(img.Dict.Get("Width"))
	require.True(t, ok)
	require.EqualValues(t, 2, width)

	require.Equal(t, contentstream.OpRestoreState, ops[1].Operand)
}

func TestInlineImageWriteStringEmitsAbbreviatedKeys(t *testing.T) {
	dict := core.MakeDict()
	dict.Set("Width", core.MakeInteger(2))
	img := &contentstream.InlineImage{Dict: dict, Data: []byte{1, 2}}

	out := img.WriteString()
	require.Contains(t, out, "/W 2")
	require.Contains(t, out, "ID ")
	require.Contains(t, out, "EI")
}
