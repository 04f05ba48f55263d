package completion

import (
	"sort"

	"github.com/dshills/ksense/internal/signal"
)

// ItemsChanged describes a structural change to a list: Removed items
// starting at Position were replaced by Added items.
type ItemsChanged struct {
	Position int
	Removed  int
	Added    int
}

// ListModel is an ordered, observable collection of proposals.
//
// Implementations must be pointer types: the Context compares models by
// identity. They may be mutated after being handed to the Context, which
// follows along through Changed.
type ListModel interface {
	Len() int
	At(i int) Proposal
	Changed() *signal.Signal[ItemsChanged]
}

// Results is a mutable ListModel.
type Results struct {
	items   []Proposal
	changed signal.Signal[ItemsChanged]
}

// NewResults creates a list holding items.
func NewResults(items ...Proposal) *Results {
	return &Results{items: append([]Proposal(nil), items...)}
}

// Len returns the number of items.
func (r *Results) Len() int { return len(r.items) }

// At returns the item at i.
func (r *Results) At(i int) Proposal { return r.items[i] }

// Changed returns the change signal.
func (r *Results) Changed() *signal.Signal[ItemsChanged] { return &r.changed }

// Items returns a copy of the items.
func (r *Results) Items() []Proposal {
	return append([]Proposal(nil), r.items...)
}

// Splice removes n items at pos and inserts added in their place.
func (r *Results) Splice(pos, n int, added ...Proposal) {
	if n == 0 && len(added) == 0 {
		return
	}
	tail := append([]Proposal(nil), r.items[pos+n:]...)
	r.items = append(append(r.items[:pos], added...), tail...)
	r.changed.Emit(ItemsChanged{Position: pos, Removed: n, Added: len(added)})
}

// Append adds items at the end.
func (r *Results) Append(items ...Proposal) {
	r.Splice(len(r.items), 0, items...)
}

// Replace swaps the whole contents.
func (r *Results) Replace(items []Proposal) {
	r.Splice(0, len(r.items), items...)
}

// Clear removes every item.
func (r *Results) Clear() {
	r.Splice(0, len(r.items))
}

// FilteredResults is a ListModel exposing the subset of a fixed candidate
// set accepted by a filter. Providers keep the full set from one populate
// and narrow it on refilter without requerying.
type FilteredResults struct {
	Results
	all  []Proposal
	keep func(Proposal) bool
	less func(a, b Proposal) bool
}

// NewFilteredResults creates a filtered view of all. A nil keep accepts
// everything; a nil less keeps candidate order.
func NewFilteredResults(all []Proposal, keep func(Proposal) bool, less func(a, b Proposal) bool) *FilteredResults {
	f := &FilteredResults{all: append([]Proposal(nil), all...), keep: keep, less: less}
	f.items = f.visible()
	return f
}

// All returns the unfiltered candidates.
func (f *FilteredResults) All() []Proposal {
	return append([]Proposal(nil), f.all...)
}

// SetFilter replaces the filter and recomputes the visible items.
func (f *FilteredResults) SetFilter(keep func(Proposal) bool) {
	f.keep = keep
	f.Replace(f.visible())
}

// Add appends candidates, recomputing the visible items.
func (f *FilteredResults) Add(items ...Proposal) {
	if len(items) == 0 {
		return
	}
	f.all = append(f.all, items...)
	f.Replace(f.visible())
}

func (f *FilteredResults) visible() []Proposal {
	out := make([]Proposal, 0, len(f.all))
	for _, p := range f.all {
		if f.keep == nil || f.keep(p) {
			out = append(out, p)
		}
	}
	if f.less != nil {
		sort.SliceStable(out, func(i, j int) bool { return f.less(out[i], out[j]) })
	}
	return out
}
