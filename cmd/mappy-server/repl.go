package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/peterh/liner"

	"github.com/mappydb/mappy"
	"github.com/mappydb/mappy/pkg/ttlx"
)

// runREPL drives an interactive line-editor session over the engine,
// an operational convenience named in SPEC_FULL.md §9, grounded on
// peterh/liner's intended use for line-edited interactive sessions.
func runREPL(engine *mappy.Engine[string, []byte], tracker *ttlx.Tracker[string], logger hclog.Logger) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	fmt.Println("mappy-server REPL. Type 'help' for available commands.")
	fmt.Println()

	for {
		input, err := line.Prompt("mappy> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println("\nBye!")
				return
			}
			logger.Error("repl read error", "error", err)
			return
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help":
			printREPLHelp()
		case "insert":
			replInsert(engine, tracker, args)
		case "query":
			replQuery(engine, args)
		case "delete":
			replDelete(engine, tracker, args)
		case "stats":
			fmt.Printf("%+v\n", engine.Stats())
		case "len":
			fmt.Println(engine.Len())
		case "exit", "quit", "q":
			fmt.Println("Bye!")
			return
		default:
			fmt.Printf("unknown command %q, type 'help'\n", cmd)
		}
	}
}

func printREPLHelp() {
	fmt.Println(`commands:
  insert <key> <value> [ttl_seconds]   insert a key, optionally with an expiry
  query <key>                          look up a key
  delete <key>                         delete a key
  stats                                print engine Stats
  len                                  print live entry count
  exit / quit / q                      leave the REPL`)
}

func replInsert(engine *mappy.Engine[string, []byte], tracker *ttlx.Tracker[string], args []string) {
	if len(args) < 2 {
		fmt.Println("usage: insert <key> <value> [ttl_seconds]")
		return
	}
	key, value := args[0], args[1]
	if err := engine.Insert(key, []byte(value)); err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	if len(args) >= 3 {
		seconds, err := strconv.Atoi(args[2])
		if err != nil {
			fmt.Printf("invalid ttl_seconds %q: %v\n", args[2], err)
			return
		}
		tracker.Observe(key, time.Duration(seconds)*time.Second)
	}
	fmt.Println("ok")
}

func replQuery(engine *mappy.Engine[string, []byte], args []string) {
	if len(args) != 1 {
		fmt.Println("usage: query <key>")
		return
	}
	value, ok := engine.Query(args[0])
	fmt.Printf("exists=%t value=%q\n", ok, string(value))
}

func replDelete(engine *mappy.Engine[string, []byte], tracker *ttlx.Tracker[string], args []string) {
	if len(args) != 1 {
		fmt.Println("usage: delete <key>")
		return
	}
	removed := engine.Delete(args[0], nil)
	tracker.Forget(args[0])
	fmt.Printf("removed=%t\n", removed)
}
