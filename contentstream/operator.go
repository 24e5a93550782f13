// Package contentstream parses and serializes the operator stream
// found in a page's /Contents: the sequence of operands-then-operator
// instructions that paint, position text and manage graphics state.
package contentstream

import (
	"bytes"
	"fmt"

	"github.com/inkwellpdf/pdfcore/core"
)

// Operator mnemonics, grouped the way they are described by the
// graphics state / path / painting / clipping / text / colour /
// XObject / marked-content / shading / inline-image operator classes.
const (
	OpSaveState      = "q"
	OpRestoreState   = "Q"
	OpConcat         = "cm"
	OpLineWidth      = "w"
	OpLineCap        = "J"
	OpLineJoin       = "j"
	OpMiterLimit     = "M"
	OpDash           = "d"
	OpRenderIntent   = "ri"
	OpFlatness       = "i"
	OpExtGState      = "gs"
	OpMoveTo         = "m"
	OpLineTo         = "l"
	OpCurveTo        = "c"
	OpCurveToV       = "v"
	OpCurveToY       = "y"
	OpClosePath      = "h"
	OpRectangle      = "re"
	OpStroke         = "S"
	OpCloseStroke    = "s"
	OpFill           = "f"
	OpFillCompat     = "F"
	OpFillEvenOdd    = "f*"
	OpFillStroke     = "B"
	OpFillStrokeEO   = "B*"
	OpCloseFillStrok = "b"
	OpCloseFillStrEO = "b*"
	OpNoPaint        = "n"
	OpClip           = "W"
	OpClipEvenOdd    = "W*"
	OpCharSpace      = "Tc"
	OpWordSpace      = "Tw"
	OpHScale         = "Tz"
	OpLeading        = "TL"
	OpSetFont        = "Tf"
	OpRenderMode     = "Tr"
	OpTextRise       = "Ts"
	OpBeginText      = "BT"
	OpEndText        = "ET"
	OpTextMove       = "Td"
	OpTextMoveSet    = "TD"
	OpTextMatrix     = "Tm"
	OpTextNextLine   = "T*"
	OpShowText       = "Tj"
	OpShowTextArr    = "TJ"
	OpNextLineShow   = "'"
	OpNextLineShowSp = "\""
	OpSetCSStroke    = "CS"
	OpSetCSFill      = "cs"
	OpSetColorStrk   = "SC"
	OpSetColorStrkN  = "SCN"
	OpSetColorFill   = "sc"
	OpSetColorFillN  = "scn"
	OpSetGray        = "G"
	OpSetGrayFill    = "g"
	OpSetRGB         = "RG"
	OpSetRGBFill     = "rg"
	OpSetCMYK        = "K"
	OpSetCMYKFill    = "k"
	OpPaintXObject   = "Do"
	OpMarkedPoint    = "MP"
	OpMarkedPointPr  = "DP"
	OpBeginMarked    = "BMC"
	OpBeginMarkedPr  = "BDC"
	OpEndMarked      = "EMC"
	OpShading        = "sh"
	OpBeginInline    = "BI"
	OpInlineData    = "ID"
	OpEndInline      = "EI"
)

// Operator is one instruction: its operand list followed by its
// mnemonic, exactly as it appears (or will be written) in the stream.
// An inline image is represented by a single Operator whose Operand is
// OpBeginInline and whose Params holds one *InlineImage.
type Operator struct {
	Operand string
	Params  []core.PdfObject
}

// Operations is a decoded content stream: the operators in the order
// they were parsed, which is also the order they paint in.
type Operations []*Operator

// Bytes serializes the operations back into wire form, one operator
// per line, params space-separated ahead of the mnemonic.
func (ops Operations) Bytes() []byte {
	var buf bytes.Buffer
	for _, op := range ops {
		op.writeTo(&buf)
	}
	return buf.Bytes()
}

func (op *Operator) writeTo(buf *bytes.Buffer) {
	if op.Operand == OpBeginInline {
		if len(op.Params) == 1 {
			if img, ok := op.Params[0].(*InlineImage); ok {
				buf.WriteString(OpBeginInline)
				buf.WriteByte('\n')
				buf.WriteString(img.WriteString())
				buf.WriteByte('\n')
				return
			}
		}
	}
	for _, p := range op.Params {
		buf.WriteString(p.WriteString())
		buf.WriteByte(' ')
	}
	buf.WriteString(op.Operand)
	buf.WriteByte('\n')
}

func (op *Operator) String() string {
	parts := make([]string, 0, len(op.Params)+1)
	for _, p := range op.Params {
		parts = append(parts, p.String())
	}
	return fmt.Sprintf("%s %s", parts, op.Operand)
}

// WrapWithState prefixes ops with q and appends Q, so the effects of
// ops (colour, CTM, clipping) never leak into the caller's graphics
// state. Used when splicing a generated sequence into an existing
// content stream.
func WrapWithState(ops Operations) Operations {
	if len(ops) > 0 && ops[0].Operand == OpSaveState && ops[len(ops)-1].Operand == OpRestoreState {
		return ops
	}
	wrapped := make(Operations, 0, len(ops)+2)
	wrapped = append(wrapped, &Operator{Operand: OpSaveState})
	wrapped = append(wrapped, ops...)
	wrapped = append(wrapped, &Operator{Operand: OpRestoreState})
	return wrapped
}
