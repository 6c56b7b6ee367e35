package store

import "strings"

// KeyPage is one page of a prefix scan.
type KeyPage struct {
	Keys []string
	// Cursor resumes the scan after the last returned key. Empty when the
	// scan is exhausted.
	Cursor string
}

// Keys lists live keys in lexicographic order. prefix narrows the range,
// limit caps the page size (0 for unlimited), cursor resumes a prior page,
// and asOf scopes liveness to a point in time. Keys already returned under a
// cursor never reappear, even when unrelated writes land between pages.
func (s *Store[T]) Keys(prefix string, limit int, cursor string, asOf uint64) KeyPage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := prefix
	if cursor != "" && cursor >= prefix {
		// Resume strictly after the cursor key.
		start = cursor + "\x00"
	}

	var page KeyPage
	for el := s.keys.Find(start); el != nil; el = el.Next() {
		key := el.Key().(string)
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			break
		}
		ent := el.Value.(*entry[T])
		if !ent.liveAt(asOf) {
			continue
		}
		page.Keys = append(page.Keys, key)
		if limit > 0 && len(page.Keys) == limit {
			if next := el.Next(); next != nil {
				if nk := next.Key().(string); prefix == "" || strings.HasPrefix(nk, prefix) {
					page.Cursor = key
				}
			}
			break
		}
	}
	return page
}

// Range calls fn for every key in lexicographic order with its full history
// slice, stopping early when fn returns false. The slice headers are safe to
// retain: histories are append-only and pruning replaces slices wholesale.
// Record values are not cloned; callers must not mutate them.
func (s *Store[T]) Range(fn func(key string, recs []Record[T]) bool) {
	s.mu.RLock()
	type kv struct {
		key  string
		recs []Record[T]
	}
	all := make([]kv, 0, s.keys.Len())
	for el := s.keys.Front(); el != nil; el = el.Next() {
		all = append(all, kv{el.Key().(string), el.Value.(*entry[T]).records})
	}
	s.mu.RUnlock()

	for _, e := range all {
		if !fn(e.key, e.recs) {
			return
		}
	}
}

// CopyCurrentInto writes this store's live records into dst, preserving
// their stamps, and returns the number of keys copied. History and
// tombstones are not carried over.
func (s *Store[T]) CopyCurrentInto(dst *Store[T]) int {
	copied := 0
	s.Range(func(key string, recs []Record[T]) bool {
		if len(recs) == 0 {
			return true
		}
		last := recs[len(recs)-1]
		if last.Tombstone {
			return true
		}
		last.Value = s.cloneVal(last.Value)
		dst.PutRecord(key, last)
		copied++
		return true
	})
	return copied
}
