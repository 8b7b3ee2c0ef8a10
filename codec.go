package mappy

import (
	"bytes"
	"encoding/gob"

	"gopkg.in/yaml.v3"
)

// ValueCodec encodes and decodes a value table's V for persistence
// collaborators (pkg/persist). The in-memory core never serializes V
// directly — Engine.Snapshot hands values back as Go values, not bytes —
// so ValueCodec only matters once a collaborator writes them to a log,
// tree, or mmap file.
type ValueCodec[V any] interface {
	Encode(v V) ([]byte, error)
	Decode(b []byte) (V, error)
}

// GobCodec encodes values with encoding/gob: a compact binary format.
// Justified as a stdlib choice in DESIGN.md — no dependency in the
// example pack offers a general-purpose codec for arbitrary Go values,
// and gob is the idiomatic stdlib answer for that gap.
type GobCodec[V any] struct{}

func (GobCodec[V]) Encode(v V) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (GobCodec[V]) Decode(b []byte) (V, error) {
	var v V
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&v); err != nil {
		var zero V
		return zero, err
	}
	return v, nil
}

// YAMLCodec encodes values as human-inspectable YAML, reusing the same
// gopkg.in/yaml.v3 dependency already wired for configuration loading
// (pkg/rpcserver's config.go).
type YAMLCodec[V any] struct{}

func (YAMLCodec[V]) Encode(v V) ([]byte, error) {
	return yaml.Marshal(v)
}

func (YAMLCodec[V]) Decode(b []byte) (V, error) {
	var v V
	if err := yaml.Unmarshal(b, &v); err != nil {
		var zero V
		return zero, err
	}
	return v, nil
}
