package metadata

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/stratadb/strata/value"
)

// InvertedIndex accelerates metadata filtering for equality-style predicates.
//
// Supported operators: OpEqual and OpIn. Other operators fall back to
// scanning candidates and evaluating the FilterSet directly.
//
// Postings are Roaring bitmaps over collection-local row ids.
type InvertedIndex struct {
	mu sync.RWMutex

	// field -> value key -> row ids
	fields map[string]map[string]*roaring.Bitmap
}

// NewInvertedIndex creates an empty inverted index.
func NewInvertedIndex() *InvertedIndex {
	return &InvertedIndex{fields: make(map[string]map[string]*roaring.Bitmap)}
}

// Add indexes every top-level field of doc under the given row id.
func (ix *InvertedIndex) Add(id uint32, doc value.Value) {
	obj, ok := doc.AsObject()
	if !ok {
		return
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for field, v := range obj {
		vm, ok := ix.fields[field]
		if !ok {
			vm = make(map[string]*roaring.Bitmap)
			ix.fields[field] = vm
		}
		vk := v.Key()
		bm, ok := vm[vk]
		if !ok {
			bm = roaring.New()
			vm[vk] = bm
		}
		bm.Add(id)
	}
}

// Remove drops the row id from every posting of doc's fields.
func (ix *InvertedIndex) Remove(id uint32, doc value.Value) {
	obj, ok := doc.AsObject()
	if !ok {
		return
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for field, v := range obj {
		vm, ok := ix.fields[field]
		if !ok {
			continue
		}
		vk := v.Key()
		bm, ok := vm[vk]
		if !ok {
			continue
		}
		bm.Remove(id)
		if bm.IsEmpty() {
			delete(vm, vk)
			if len(vm) == 0 {
				delete(ix.fields, field)
			}
		}
	}
}

// Update reindexes a row whose metadata changed.
func (ix *InvertedIndex) Update(id uint32, oldDoc, newDoc value.Value) {
	ix.Remove(id, oldDoc)
	ix.Add(id, newDoc)
}

// Candidates returns the row ids that may satisfy fs, or (nil, false) when
// the set contains no index-accelerable predicate. The returned bitmap is an
// over-approximation: callers still evaluate the full FilterSet per row.
func (ix *InvertedIndex) Candidates(fs *FilterSet) (*roaring.Bitmap, bool) {
	if fs == nil || len(fs.Filters) == 0 {
		return nil, false
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var acc *roaring.Bitmap
	for _, f := range fs.Filters {
		var bm *roaring.Bitmap
		switch f.Operator {
		case OpEqual:
			bm = ix.postingLocked(f.Field, f.Value)
		case OpIn:
			items, ok := f.Value.AsArray()
			if !ok {
				return roaring.New(), true
			}
			bm = roaring.New()
			for _, item := range items {
				bm.Or(ix.postingLocked(f.Field, item))
			}
		default:
			continue
		}
		if acc == nil {
			acc = bm.Clone()
		} else {
			acc.And(bm)
		}
		if acc.IsEmpty() {
			return acc, true
		}
	}
	if acc == nil {
		return nil, false
	}
	return acc, true
}

func (ix *InvertedIndex) postingLocked(field string, v value.Value) *roaring.Bitmap {
	vm, ok := ix.fields[field]
	if !ok {
		return roaring.New()
	}
	bm, ok := vm[v.Key()]
	if !ok {
		return roaring.New()
	}
	return bm
}
