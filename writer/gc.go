// Package writer serializes a core.Registry back to PDF bytes, both as
// a fresh file (WriteComplete) and as an appended revision
// (WriteIncremental).
package writer

import (
	"github.com/inkwellpdf/pdfcore/core"
)

// reachable runs a breadth-first walk from roots (the catalog and, if
// given, the info dictionary) through every reference found in
// dictionaries, arrays and stream dictionaries, per spec §4.7 step 1.
// It returns the set of object numbers to keep and the order they were
// first discovered in. WriteComplete does not renumber: every kept
// object is written under its existing object number.
func reachable(reg *core.Registry, roots ...*core.PdfObjectReference) (map[int64]bool, []int64) {
	seen := map[int64]bool{}
	var order []int64
	queue := make([]*core.PdfObjectReference, 0, len(roots))
	for _, r := range roots {
		if r != nil {
			queue = append(queue, r)
		}
	}

	for len(queue) > 0 {
		ref := queue[0]
		queue = queue[1:]
		if seen[ref.ObjectNumber] {
			continue
		}
		seen[ref.ObjectNumber] = true
		order = append(order, ref.ObjectNumber)

		val := reg.Get(ref)
		if val == nil {
			continue
		}
		walkRefs(val, func(child *core.PdfObjectReference) {
			if !seen[child.ObjectNumber] {
				queue = append(queue, child)
			}
		})
	}

	return seen, order
}

// walkRefs calls visit for every *core.PdfObjectReference directly
// reachable from obj's dictionary/array/stream-dictionary structure,
// without resolving them.
func walkRefs(obj core.PdfObject, visit func(*core.PdfObjectReference)) {
	switch v := obj.(type) {
	case *core.PdfObjectReference:
		visit(v)
	case *core.PdfObjectArray:
		for _, elem := range v.Elements() {
			walkRefs(elem, visit)
		}
	case *core.PdfObjectDictionary:
		for _, key := range v.Keys() {
			walkRefs(v.Get(key), visit)
		}
	case *core.PdfObjectStream:
		for _, key := range v.Keys() {
			walkRefs(v.Get(key), visit)
		}
	case *core.PdfIndirectObject:
		walkRefs(v.PdfObject, visit)
	}
}
