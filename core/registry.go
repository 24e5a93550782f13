package core

import (
	"fmt"

	"github.com/inkwellpdf/pdfcore/common"
	"github.com/inkwellpdf/pdfcore/core/pdferr"
)

// entryState tags which of the six states below (the five of spec §3.3
// plus the transient stateLoading) a Registry slot is currently in.
type entryState int

const (
	stateUnresolved entryState = iota
	stateUnresolvedCompressed
	stateLoading
	stateLoaded
	stateNew
	stateFree
)

// entry is one Registry slot, keyed by object number.
type entry struct {
	state entryState

	generation int64

	// stateUnresolved
	offset int64

	// stateUnresolvedCompressed
	streamObjNum int64
	indexInOS    int

	// stateLoaded / stateNew / stateLoading
	value PdfObject
	dirty bool // mutated since load (stateLoaded only; stateNew is always dirty)

	// stateFree
	nextFree int64
}

// ObjectResolver is the capability a Registry hands to parsing code that
// needs to dereference indirect references while building an object
// graph, without exposing the whole Registry.
type ObjectResolver interface {
	Resolve(ref *PdfObjectReference) (PdfObject, error)
}

// ObjectStreamLoader parses object stream `streamObjNum` and returns
// the object at `index` within it. The Registry calls back into this
// when resolving a stateUnresolvedCompressed slot; it is implemented
// by the core object parser (see parser.go) to avoid an import cycle
// between registry and parser internals.
type ObjectStreamLoader func(streamObjNum int64, index int) (PdfObject, error)

// UnresolvedLoader parses the object located at a byte offset in the
// source buffer and returns its direct value (without the `n g obj`
// wrapper). It is implemented by the core object parser.
type UnresolvedLoader func(offset int64) (PdfObject, error)

// Registry is the in-memory PDF object graph: a table from object
// number to entry state, global (per-registry) name interning, dirty
// tracking for incremental saves, and a side list of non-fatal
// warnings accumulated while parsing. All methods assume single-
// threaded use (see spec §5); parallel pipelines must use one Registry
// per document.
type Registry struct {
	entries map[int64]*entry
	nextNum int64

	names map[string]*PdfObjectName

	// reverse lookup: direct value identity -> the reference that was
	// minted for it when it was registered as a new indirect object.
	reverse map[PdfObject]*PdfObjectReference

	loadUnresolved     UnresolvedLoader
	loadFromObjStream  ObjectStreamLoader

	warnings []Warning
}

// Warning is a structured non-fatal observation recorded while loading
// or repairing a document, e.g. "xref table unreadable, recovered by
// linear scan". Callers that only want the text can use Message
// directly; Warnings() preserves emission order.
type Warning struct {
	Message string
}

func (w Warning) String() string { return w.Message }

// NewRegistry creates an empty Registry. loadUnresolved and
// loadFromObjStream may be nil until the parser wires them (core.Load
// does so via SetLoaders), but must be set before any
// Unresolved/UnresolvedCompressed slot is resolved.
func NewRegistry() *Registry {
	return &Registry{
		entries: map[int64]*entry{},
		nextNum: 1,
		names:   map[string]*PdfObjectName{},
		reverse: map[PdfObject]*PdfObjectReference{},
	}
}

// SetLoaders wires the callbacks used to materialise Unresolved and
// UnresolvedCompressed slots on first access.
func (r *Registry) SetLoaders(unresolved UnresolvedLoader, objStream ObjectStreamLoader) {
	r.loadUnresolved = unresolved
	r.loadFromObjStream = objStream
}

// Name interns s within this Registry: two calls with equal bytes
// return the same *PdfObjectName. Interning is per-Registry (per the
// design notes: a global table would let unrelated documents loaded
// concurrently interfere with each other).
func (r *Registry) Name(s string) *PdfObjectName {
	if n, ok := r.names[s]; ok {
		return n
	}
	n := MakeName(s)
	r.names[s] = n
	return n
}

// NextObjectNumber previews the number RegisterNew would assign next,
// without allocating it.
func (r *Registry) NextObjectNumber() int64 { return r.nextNum }

// SetUnresolved installs a slot known to live at byte offset `offset`
// in the source, not yet parsed. Used by the xref loader.
func (r *Registry) SetUnresolved(objNum, generation int64, offset int64) {
	r.entries[objNum] = &entry{state: stateUnresolved, generation: generation, offset: offset}
	r.bumpNext(objNum)
}

// SetUnresolvedCompressed installs a slot known to live at `index`
// within object stream `streamObjNum`. Used by xref-stream type-2
// entries.
func (r *Registry) SetUnresolvedCompressed(objNum int64, streamObjNum int64, index int) {
	r.entries[objNum] = &entry{
		state:        stateUnresolvedCompressed,
		streamObjNum: streamObjNum,
		indexInOS:    index,
	}
	r.bumpNext(objNum)
}

// SetFree marks objNum as part of the free list, pointing at the next
// free object number (0 terminates the chain).
func (r *Registry) SetFree(objNum, nextFree, generation int64) {
	r.entries[objNum] = &entry{state: stateFree, nextFree: nextFree, generation: generation}
	r.bumpNext(objNum)
}

func (r *Registry) bumpNext(objNum int64) {
	if objNum >= r.nextNum {
		r.nextNum = objNum + 1
	}
}

// RegisterNew assigns the first free object number to value and
// installs it as a dirty New entry. It returns the reference the
// caller should embed wherever value needs to be pointed at.
func (r *Registry) RegisterNew(value PdfObject) *PdfObjectReference {
	objNum := r.allocateFreeOrNext()
	r.entries[objNum] = &entry{state: stateNew, value: value, dirty: true}
	ref := &PdfObjectReference{ObjectNumber: objNum, GenerationNumber: 0}
	r.reverse[value] = ref
	return ref
}

// allocateFreeOrNext reuses a free-listed object number (whichever
// non-zero free slot the map iteration reaches first, not necessarily
// the head of the free list) or else allocates the next monotonic
// object number. The reused slot's generation is not bumped:
// RegisterNew installs the new entry with generation 0.
func (r *Registry) allocateFreeOrNext() int64 {
	for num, e := range r.entries {
		if e.state == stateFree && num != 0 {
			return num
		}
	}
	n := r.nextNum
	r.nextNum++
	return n
}

// ReferenceFor returns the reference previously minted for value by
// RegisterNew, if any. Used when embedding a newly registered child
// object by reference into its parent.
func (r *Registry) ReferenceFor(value PdfObject) (*PdfObjectReference, bool) {
	ref, ok := r.reverse[value]
	return ref, ok
}

// Resolve dereferences ref, materialising it from the source buffer or
// an object stream on first access. Resolution is idempotent: once
// Loaded, subsequent calls return the cached value. Resolving a slot
// that is already mid-resolution (a reference cycle) does not recurse;
// the slot holds no value until its loader returns, so that call
// returns nil with no error.
func (r *Registry) Resolve(ref *PdfObjectReference) (PdfObject, error) {
	e, ok := r.entries[ref.ObjectNumber]
	if !ok {
		return nil, pdferr.Broken("object %d not present in registry", ref.ObjectNumber)
	}

	switch e.state {
	case stateLoaded, stateNew, stateLoading:
		return e.value, nil

	case stateFree:
		return nil, pdferr.Broken("object %d is free", ref.ObjectNumber)

	case stateUnresolved:
		if r.loadUnresolved == nil {
			return nil, pdferr.Invariant("registry has no unresolved-object loader wired")
		}
		e.state = stateLoading
		val, err := r.loadUnresolved(e.offset)
		if err != nil {
			e.state = stateUnresolved
			return nil, err
		}
		e.value = val
		e.state = stateLoaded
		return val, nil

	case stateUnresolvedCompressed:
		if r.loadFromObjStream == nil {
			return nil, pdferr.Invariant("registry has no object-stream loader wired")
		}
		e.state = stateLoading
		val, err := r.loadFromObjStream(e.streamObjNum, e.indexInOS)
		if err != nil {
			e.state = stateUnresolvedCompressed
			return nil, err
		}
		e.value = val
		e.state = stateLoaded
		return val, nil

	default:
		return nil, pdferr.Invariant("unreachable entry state %d", e.state)
	}
}

// Get resolves ref and panics-free-reports broken references as nil,
// swallowing the error. Most callers should prefer Resolve; Get exists
// for call sites, like GC traversal, that only want a best-effort walk.
func (r *Registry) Get(ref *PdfObjectReference) PdfObject {
	v, err := r.Resolve(ref)
	if err != nil {
		return nil
	}
	return v
}

// MarkDirty flags the object at objNum as modified, so it participates
// in the next incremental save. It is a no-op (not an error) if objNum
// is New, since New objects are already implicitly dirty.
func (r *Registry) MarkDirty(objNum int64) {
	e, ok := r.entries[objNum]
	if !ok {
		return
	}
	if e.state == stateLoaded {
		e.dirty = true
	}
}

// IsDirtyOrNew reports whether objNum would be written by an
// incremental save.
func (r *Registry) IsDirtyOrNew(objNum int64) bool {
	e, ok := r.entries[objNum]
	if !ok {
		return false
	}
	return e.state == stateNew || (e.state == stateLoaded && e.dirty)
}

// DirtyOrNewNumbers returns, in ascending order, every object number
// that would be written by an incremental save.
func (r *Registry) DirtyOrNewNumbers() []int64 {
	var nums []int64
	for num, e := range r.entries {
		if e.state == stateNew || (e.state == stateLoaded && e.dirty) {
			nums = append(nums, num)
		}
	}
	sortInt64s(nums)
	return nums
}

// AllNumbers returns every object number the registry currently knows
// about (any non-free state), in ascending order.
func (r *Registry) AllNumbers() []int64 {
	var nums []int64
	for num, e := range r.entries {
		if e.state != stateFree {
			nums = append(nums, num)
		}
	}
	sortInt64s(nums)
	return nums
}

// Generation returns the generation number recorded for objNum.
func (r *Registry) Generation(objNum int64) int64 {
	if e, ok := r.entries[objNum]; ok {
		return e.generation
	}
	return 0
}

// MarkWrittenAt transitions objNum to a clean Loaded entry recording
// the byte offset an incremental (or complete) save just wrote it at,
// per spec §4.8 step 5 ("new entries transition to loaded with their
// recorded offsets").
func (r *Registry) MarkWrittenAt(objNum int64, offset int64) {
	e, ok := r.entries[objNum]
	if !ok {
		return
	}
	e.state = stateLoaded
	e.dirty = false
	e.offset = offset
}

// ClearDirty resets every dirty/new flag, e.g. after a successful
// incremental save whose offsets have already been recorded via
// MarkWrittenAt for each object.
func (r *Registry) ClearDirty() {
	for _, e := range r.entries {
		if e.state == stateNew {
			e.state = stateLoaded
		}
		if e.state == stateLoaded {
			e.dirty = false
		}
	}
}

// Warn appends a non-fatal observation to the registry's warning list,
// e.g. from xref recovery or lenient entry parsing (spec §7).
func (r *Registry) Warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	r.warnings = append(r.warnings, Warning{Message: msg})
	common.Log.Warning("%s", msg)
}

// Warnings returns the accumulated non-fatal observations, in emission order.
func (r *Registry) Warnings() []Warning { return append([]Warning(nil), r.warnings...) }

func sortInt64s(s []int64) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
