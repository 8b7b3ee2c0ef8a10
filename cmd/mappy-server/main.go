// mappy-server wires the RPC server, persistence, and TTL collaborators
// around a single in-memory maplet, matching the teacher's combination of
// an HTTP transport with a config file, minus the Raft clustering layer
// (spec's Non-goals explicitly exclude strict-consistency replication).
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	flag "github.com/spf13/pflag"

	"github.com/mappydb/mappy"
	"github.com/mappydb/mappy/pkg/persist"
	"github.com/mappydb/mappy/pkg/rpcserver"
	"github.com/mappydb/mappy/pkg/ttlx"
)

func main() {
	var (
		configPath = flag.StringP("config", "c", "", "YAML config file (see rpcserver.Config)")
		addr       = flag.StringP("addr", "a", "", "listen address, overrides config/default port")
		aofPath    = flag.String("aof", "mappy-server.aof", "append-only log path")
		treePath   = flag.String("tree", "mappy-server.db", "on-disk tree checkpoint path")
		checkEvery = flag.Int("checkpoint-every", 1000, "AOF records between tree checkpoints")
		repl       = flag.Bool("repl", false, "drop into an interactive REPL instead of serving HTTP")
	)
	flag.Parse()

	logger := hclog.New(&hclog.LoggerOptions{Name: "mappy-server", Level: hclog.Info})

	cfg, err := rpcserver.LoadConfigFile(*configPath)
	if err != nil && *configPath != "" {
		logger.Error("failed to load config, using defaults", "error", err)
		cfg = rpcserver.DefaultConfig()
	} else if err != nil {
		cfg = rpcserver.DefaultConfig()
	}
	if *addr == "" {
		*addr = fmt.Sprintf("0.0.0.0:%d", cfg.Server.Port)
	}

	engine, err := mappy.NewEngine[string, []byte](mappy.DefaultConfig(), mappy.NewLatestWinsOperator[[]byte](nil), nil)
	if err != nil {
		logger.Error("failed to construct engine", "error", err)
		os.Exit(1)
	}

	hybrid, err := persist.NewHybrid(*aofPath, *treePath, *checkEvery, logger.Named("persist"))
	if err != nil {
		logger.Error("failed to open persistence backend", "error", err)
		os.Exit(1)
	}
	defer hybrid.Close()

	recovered, err := hybrid.Recover(func(op persist.Op, keyBytes []byte, value []byte, hasValue bool) error {
		key := string(keyBytes)
		if op == persist.OpDelete {
			engine.Delete(key, nil)
			return nil
		}
		if hasValue {
			return engine.Insert(key, value)
		}
		return nil
	})
	if err != nil {
		logger.Error("failed to recover from AOF", "error", err)
		os.Exit(1)
	}
	logger.Info("recovered from persistence backend", "records", recovered)

	store := persistentStore{EngineStore: rpcserver.EngineStore{Engine: engine}, hybrid: hybrid}

	tracker := ttlx.NewTracker[string](func(key string) bool {
		return engine.Delete(key, nil)
	})
	stop := make(chan struct{})
	go tracker.Run(30*time.Second, stop)
	defer close(stop)

	if *repl {
		runREPL(engine, tracker, logger)
		return
	}

	srv := rpcserver.NewServer(store, cfg, logger)
	go func() {
		if err := srv.ListenAndServe(*addr); err != nil {
			logger.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()
	logger.Info("mappy-server listening", "addr", *addr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")
}
