package main

import (
	"github.com/mappydb/mappy/pkg/persist"
	"github.com/mappydb/mappy/pkg/rpcserver"
)

// persistentStore wraps rpcserver.EngineStore with a persist.Hybrid
// backend: every successful mutating operation is appended to the AOF
// segment before returning, matching spec §6's persistence hook ("for
// every successful mutating operation" the engine emits a record in
// linearization order).
type persistentStore struct {
	rpcserver.EngineStore
	hybrid *persist.Hybrid
}

func (s persistentStore) checkpointEntries(yield func(fingerprint uint64, value []byte) error) error {
	snap := s.Engine.Snapshot()
	for _, e := range snap.Entries {
		if err := yield(e.Fingerprint, e.Value); err != nil {
			return err
		}
	}
	return nil
}

func (s persistentStore) Insert(key string, value []byte) error {
	if err := s.EngineStore.Insert(key, value); err != nil {
		return err
	}
	fingerprint := s.Engine.FingerprintOf(key)
	return s.hybrid.Append(persist.OpInsert, fingerprint, []byte(key), value, true, s.checkpointEntries)
}

func (s persistentStore) Delete(key string) bool {
	fingerprint := s.Engine.FingerprintOf(key)
	present := s.Engine.Contains(key)
	removed := s.EngineStore.Delete(key)
	// log every delete of a present key, including one that only
	// decrements a duplicate's count and so reports removed=false.
	if present {
		s.hybrid.Append(persist.OpDelete, fingerprint, []byte(key), nil, false, s.checkpointEntries)
	}
	return removed
}
