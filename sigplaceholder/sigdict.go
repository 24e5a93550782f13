package sigplaceholder

import (
	"time"

	"github.com/inkwellpdf/pdfcore/core"
	"github.com/inkwellpdf/pdfcore/internal/timeutils"
)

// DictOptions configures BuildSignatureDict.
type DictOptions struct {
	// Filter and SubFilter name the signature handler and encoding; left
	// empty they default to /Adobe.PPKLite and /adbe.pkcs7.detached.
	Filter, SubFilter string
	Name              string
	Location          string
	Reason            string
	// ContentsWidth is the number of bytes to reserve for the signature
	// blob; see CreateContentsPlaceholder.
	ContentsWidth int
	// SignedAt is stamped into /M via timeutils.FormatPdfTime. The zero
	// value uses time.Now().
	SignedAt time.Time
}

// BuildSignatureDict returns a /Type /Sig dictionary carrying the
// placeholder /ByteRange and /Contents spans a subsequent call to
// ApplyPlaceholderField fills in, per spec §4.9.
func BuildSignatureDict(opts DictOptions) *core.PdfObjectDictionary {
	filter := opts.Filter
	if filter == "" {
		filter = "Adobe.PPKLite"
	}
	subFilter := opts.SubFilter
	if subFilter == "" {
		subFilter = "adbe.pkcs7.detached"
	}
	signedAt := opts.SignedAt
	if signedAt.IsZero() {
		signedAt = time.Now()
	}

	dict := core.MakeDict()
	dict.Set("Type", core.MakeName("Sig"))
	dict.Set("Filter", core.MakeName(filter))
	dict.Set("SubFilter", core.MakeName(subFilter))
	dict.Set("M", core.MakeString(timeutils.FormatPdfTime(signedAt)))
	if opts.Name != "" {
		dict.Set("Name", core.MakeString(opts.Name))
	}
	if opts.Location != "" {
		dict.Set("Location", core.MakeString(opts.Location))
	}
	if opts.Reason != "" {
		dict.Set("Reason", core.MakeString(opts.Reason))
	}
	dict.Set("ByteRange", core.MakeRaw(CreateByteRangePlaceholder()))
	dict.Set("Contents", core.MakeRaw(CreateContentsPlaceholder(opts.ContentsWidth)))
	return dict
}
