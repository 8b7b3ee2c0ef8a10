package main

import (
	"fmt"

	"github.com/mappydb/mappy"
)

func main() {
	fmt.Printf("Example of analyzing size requirements:\n")
	cfg := mappy.DefaultConfig()
	cfg.Capacity = 1_000_000_000
	cfg.Explain()

	fmt.Printf("\nExample of loading and using a small counting maplet:\n")
	engine, err := mappy.NewEngine[string, int64](mappy.DefaultConfig(), mappy.CounterOperator{}, nil)
	if err != nil {
		panic(err)
	}

	colors := []string{"red", "yellow", "orange", "blue", "red", "blue", "red"}
	for _, color := range colors {
		if err := engine.Insert(color, 1); err != nil {
			panic(err)
		}
	}

	for _, color := range []string{
		"red", "orange", "yellow", "green", "blue", "indigo", "violet",
	} {
		v, ok := engine.Query(color)
		fmt.Printf("%s: present=%t count=%d\n", color, ok, v)
	}

	engine.DebugDump(true)

	snap := engine.Snapshot()
	fmt.Printf("maplet holds %d distinct fingerprints\n", len(snap.Entries))

	removed := engine.Delete("red", 0)
	fmt.Printf("delete \"red\" fully removed slot: %t\n", removed)
}
