package rpcserver

import "github.com/mappydb/mappy"

// Store is the subset of Engine's API the RPC server needs. It is defined
// narrowly here, rather than importing Engine[K, V] directly, so this
// package stays decoupled from the core's generic type parameters — the
// same collaborator-decoupling approach pkg/persist and pkg/ttlx use (spec
// §5: collaborators observe the engine only through its API). A server
// binary wires a concrete *mappy.Engine[string, []byte] (or any K=string
// instantiation) into this interface.
type Store interface {
	Insert(key string, value []byte) error
	Query(key string) ([]byte, bool)
	Delete(key string) bool
	Len() uint64
	Stats() mappy.Stats
}

// EngineStore adapts a *mappy.Engine[string, []byte] to Store. Engine's
// Delete takes a value argument reserved for merge operators with an
// inverse (engine.go); none are shipped, so EngineStore always passes the
// zero value.
type EngineStore struct {
	Engine *mappy.Engine[string, []byte]
}

func (s EngineStore) Insert(key string, value []byte) error { return s.Engine.Insert(key, value) }
func (s EngineStore) Query(key string) ([]byte, bool)        { return s.Engine.Query(key) }
func (s EngineStore) Delete(key string) bool                 { return s.Engine.Delete(key, nil) }
func (s EngineStore) Len() uint64                            { return s.Engine.Len() }
func (s EngineStore) Stats() mappy.Stats                     { return s.Engine.Stats() }
