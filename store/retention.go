package store

// RetentionPolicy bounds how much history a store keeps.
// Zero fields disable the corresponding limit.
type RetentionPolicy struct {
	// MaxVersions caps the number of records kept per key.
	MaxVersions int
	// MaxAgeMicros prunes records older than now-MaxAgeMicros, except the
	// newest record at or below the threshold, which stays so as-of reads
	// at the threshold still resolve.
	MaxAgeMicros uint64
}

// Enabled reports whether the policy prunes anything.
func (p RetentionPolicy) Enabled() bool {
	return p.MaxVersions > 0 || p.MaxAgeMicros > 0
}

// Prune applies the retention policy and returns the number of records
// dropped. The newest record of every key always survives, so current reads
// are unaffected; only deep history is trimmed.
//
// The key set is snapshotted under the read lock and each key is then pruned
// under its own short write section, so concurrent reads and writes are
// never stalled behind a whole-store sweep.
func (s *Store[T]) Prune(policy RetentionPolicy, now uint64) int {
	if !policy.Enabled() {
		return 0
	}

	s.mu.RLock()
	keys := make([]string, 0, s.keys.Len())
	for el := s.keys.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Key().(string))
	}
	s.mu.RUnlock()

	dropped := 0
	for _, key := range keys {
		dropped += s.pruneKey(key, policy, now)
	}
	return dropped
}

func (s *Store[T]) pruneKey(key string, policy RetentionPolicy, now uint64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entryOf(key)
	if !ok {
		return 0
	}
	recs := ent.records
	keepFrom := 0

	if policy.MaxAgeMicros > 0 && now > policy.MaxAgeMicros {
		threshold := now - policy.MaxAgeMicros
		// Keep the latest record at or before the threshold; everything
		// older than that record is prunable.
		for i := len(recs) - 1; i >= 0; i-- {
			if recs[i].Timestamp <= threshold {
				keepFrom = i
				break
			}
		}
	}
	if policy.MaxVersions > 0 && len(recs)-keepFrom > policy.MaxVersions {
		keepFrom = len(recs) - policy.MaxVersions
	}
	if keepFrom == 0 {
		return 0
	}
	kept := make([]Record[T], len(recs)-keepFrom)
	copy(kept, recs[keepFrom:])
	ent.records = kept
	return keepFrom
}
