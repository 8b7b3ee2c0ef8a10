package main

import (
	"bufio"
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mappydb/mappy"
	"github.com/mappydb/mappy/pkg/persist"
)

// engineMeta carries the reconstruction parameters a fingerprint-keyed
// persist.Tree cannot recover on its own: its entries are keyed by
// fingerprint, never by key, per the maplet's one-sided error design.
type engineMeta struct {
	Capacity          uint64
	FalsePositiveRate float64
	HasherFamily      mappy.HasherFamily
	HasherSeed        uint64
	BitPacked         bool
	EnableDeletion    bool
}

func encodeMeta(cfg *cliConfig) ([]byte, error) {
	var buf bytes.Buffer
	meta := engineMeta{
		Capacity:          cfg.Capacity,
		FalsePositiveRate: cfg.FalsePositiveRate,
		HasherFamily:      cfg.hasherFamily(),
		HasherSeed:        cfg.HasherSeed,
		BitPacked:         cfg.BitPacked,
		EnableDeletion:    cfg.EnableDeletion,
	}
	if err := gob.NewEncoder(&buf).Encode(meta); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeMeta(raw []byte) (mappy.Config, error) {
	var meta engineMeta
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&meta); err != nil {
		return mappy.Config{}, err
	}
	cfg := mappy.DefaultConfig()
	cfg.Capacity = meta.Capacity
	cfg.FalsePositiveRate = meta.FalsePositiveRate
	cfg.HasherFamily = meta.HasherFamily
	cfg.HasherSeed = meta.HasherSeed
	cfg.BitPacked = meta.BitPacked
	cfg.EnableDeletion = meta.EnableDeletion
	return cfg, nil
}

// newEngine builds the Engine[string, string] instantiation every
// subcommand below operates on. Values are plain strings so the CLI's
// input format stays a simple "key\tvalue" (or bare "key") line format,
// matching the teacher's string-oriented compile/lookup commands.
func newEngine(cfg mappy.Config) (*mappy.Engine[string, string], error) {
	return mappy.NewEngine[string, string](cfg, mappy.NewLatestWinsOperator[string](""), nil)
}

func main() {
	app := &cli.App{
		Name:  "mappy",
		Usage: "build and query maplet databases",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "JSONC config file (see cliConfig)",
			},
		},
		Commands: []*cli.Command{
			compileCommand,
			lookupCommand,
			describeCommand,
			insertCommand,
			deleteCommand,
			statsCommand,
			snapshotCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

var compileCommand = &cli.Command{
	Name:  "compile",
	Usage: "compile a list of key[\\tvalue] lines into a maplet database",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "output", Aliases: []string{"out", "o"}, Value: "mappy.db"},
		&cli.StringFlag{Name: "input", Aliases: []string{"in", "i"}, Usage: "file to read from (default is stdin)"},
	},
	Action: func(c *cli.Context) error {
		output := c.String("output")
		if _, err := os.Stat(output); !os.IsNotExist(err) {
			return fmt.Errorf("refusing to over-write existing file: %s", output)
		}

		var reader io.Reader = os.Stdin
		if c.IsSet("input") {
			f, err := os.Open(c.String("input"))
			if err != nil {
				return err
			}
			defer f.Close()
			reader = f
		}

		cliCfg, err := loadCLIConfig(c.String("config"))
		if err != nil {
			return err
		}
		engine, err := newEngine(cliCfg.engineConfig())
		if err != nil {
			return err
		}

		rdr := bufio.NewReader(reader)
		start := time.Now()
		count := 0
		for {
			l, _, err := rdr.ReadLine()
			if err != nil {
				if err == io.EOF {
					break
				}
				return err
			}
			line := strings.TrimSpace(string(l))
			if line == "" {
				continue
			}
			key, value, _ := strings.Cut(line, "\t")
			if err := engine.Insert(key, value); err != nil {
				return fmt.Errorf("insert %q: %w", key, err)
			}
			count++
		}
		log.Printf("built in-memory maplet of %d entries in %s", count, time.Since(start))

		if err := saveEngine(output, cliCfg, engine); err != nil {
			return fmt.Errorf("error writing database: %w", err)
		}
		log.Printf("wrote database to %s", output)
		engine.DebugDump(false)
		return nil
	},
}

var lookupCommand = &cli.Command{
	Name:  "lookup",
	Usage: "check whether a key is present in a maplet database",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "input", Aliases: []string{"in", "i"}},
	},
	Action: func(c *cli.Context) error {
		tree, cfg, err := openTreeWithMeta(c.String("input"))
		if err != nil {
			return fmt.Errorf("lookup: %w", err)
		}
		defer tree.Close()

		key := strings.Join(c.Args().Slice(), " ")
		engine, err := newEngine(cfg)
		if err != nil {
			return err
		}
		fingerprint := engine.FingerprintOf(key)
		raw, ok, err := tree.Get(fingerprint)
		if err != nil {
			return err
		}
		fmt.Printf("lookup %q: %t", key, ok)
		if ok {
			codec := mappy.GobCodec[string]{}
			v, err := codec.Decode(raw)
			if err != nil {
				return err
			}
			fmt.Printf(" - value: %q", v)
		}
		fmt.Printf("\n")
		return nil
	},
}

var describeCommand = &cli.Command{
	Name:  "describe",
	Usage: "print a maplet database's sizing summary",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "input", Aliases: []string{"in", "i"}},
	},
	Action: func(c *cli.Context) error {
		tree, cfg, err := openTreeWithMeta(c.String("input"))
		if err != nil {
			return fmt.Errorf("describe: %w", err)
		}
		defer tree.Close()
		cfg.Explain()
		count := 0
		if err := tree.Each(func(fingerprint uint64, value []byte) error {
			count++
			return nil
		}); err != nil {
			return err
		}
		fmt.Printf("%d entries on disk\n", count)
		return nil
	},
}

var insertCommand = &cli.Command{
	Name:      "insert",
	Usage:     "insert key value into a maplet database, rewriting it",
	ArgsUsage: "<key> <value>",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "input", Aliases: []string{"in", "i"}},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() != 2 {
			return fmt.Errorf("insert requires exactly <key> <value>")
		}
		return mutate(c.String("input"), func(engine *mappy.Engine[string, string]) error {
			return engine.Insert(c.Args().Get(0), c.Args().Get(1))
		})
	},
}

var deleteCommand = &cli.Command{
	Name:      "delete",
	Usage:     "delete key from a maplet database, rewriting it",
	ArgsUsage: "<key>",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "input", Aliases: []string{"in", "i"}},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return fmt.Errorf("delete requires exactly <key>")
		}
		return mutate(c.String("input"), func(engine *mappy.Engine[string, string]) error {
			engine.Delete(c.Args().Get(0), "")
			return nil
		})
	},
}

var statsCommand = &cli.Command{
	Name:  "stats",
	Usage: "print Stats for a maplet database",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "input", Aliases: []string{"in", "i"}},
	},
	Action: func(c *cli.Context) error {
		engine, tree, err := loadEngine(c.String("input"))
		if err != nil {
			return err
		}
		defer tree.Close()
		fmt.Printf("%+v\n", engine.Stats())
		return nil
	},
}

var snapshotCommand = &cli.Command{
	Name:  "snapshot",
	Usage: "export a maplet database to a read-only mmap-friendly snapshot file",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "input", Aliases: []string{"in", "i"}},
		&cli.StringFlag{Name: "output", Aliases: []string{"out", "o"}},
	},
	Action: func(c *cli.Context) error {
		tree, _, err := openTreeWithMeta(c.String("input"))
		if err != nil {
			return err
		}
		defer tree.Close()
		err = persist.WriteSnapshotFile(c.String("output"), func(yield func(fingerprint uint64, value []byte) error) error {
			return tree.Each(yield)
		})
		if err != nil {
			return err
		}
		log.Printf("wrote snapshot to %s", c.String("output"))
		return nil
	},
}

func saveEngine(path string, cliCfg *cliConfig, engine *mappy.Engine[string, string]) error {
	tree, err := persist.OpenTree(path)
	if err != nil {
		return err
	}
	defer tree.Close()

	meta, err := encodeMeta(cliCfg)
	if err != nil {
		return err
	}
	if err := tree.PutMeta(meta); err != nil {
		return err
	}

	snap := engine.Snapshot()
	codec := mappy.GobCodec[string]{}
	return tree.Checkpoint(func(yield func(fingerprint uint64, value []byte) error) error {
		for _, e := range snap.Entries {
			encoded, err := codec.Encode(e.Value)
			if err != nil {
				return err
			}
			if err := yield(e.Fingerprint, encoded); err != nil {
				return err
			}
		}
		return nil
	})
}

func openTreeWithMeta(path string) (*persist.Tree, mappy.Config, error) {
	tree, err := persist.OpenTree(path)
	if err != nil {
		return nil, mappy.Config{}, err
	}
	raw, ok, err := tree.GetMeta()
	if err != nil {
		tree.Close()
		return nil, mappy.Config{}, err
	}
	if !ok {
		tree.Close()
		return nil, mappy.Config{}, fmt.Errorf("%s has no stored engine metadata", path)
	}
	cfg, err := decodeMeta(raw)
	if err != nil {
		tree.Close()
		return nil, mappy.Config{}, err
	}
	return tree, cfg, nil
}

func loadEngine(path string) (*mappy.Engine[string, string], *persist.Tree, error) {
	tree, cfg, err := openTreeWithMeta(path)
	if err != nil {
		return nil, nil, err
	}
	engine, err := newEngine(cfg)
	if err != nil {
		tree.Close()
		return nil, nil, err
	}
	codec := mappy.GobCodec[string]{}
	err = tree.Each(func(fingerprint uint64, raw []byte) error {
		v, err := codec.Decode(raw)
		if err != nil {
			return err
		}
		return engine.InsertByFingerprint(fingerprint, v)
	})
	if err != nil {
		tree.Close()
		return nil, nil, err
	}
	return engine, tree, nil
}

func mutate(path string, fn func(engine *mappy.Engine[string, string]) error) error {
	engine, tree, err := loadEngine(path)
	if err != nil {
		return err
	}
	if err := fn(engine); err != nil {
		tree.Close()
		return err
	}
	snap := engine.Snapshot()
	codec := mappy.GobCodec[string]{}
	err = tree.Checkpoint(func(yield func(fingerprint uint64, value []byte) error) error {
		for _, e := range snap.Entries {
			encoded, err := codec.Encode(e.Value)
			if err != nil {
				return err
			}
			if err := yield(e.Fingerprint, encoded); err != nil {
				return err
			}
		}
		return nil
	})
	tree.Close()
	return err
}
