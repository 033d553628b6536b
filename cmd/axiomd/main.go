// Command axiomd runs the consensus core standalone: it parses
// configuration, opens the block store, and serves SubmitBlock over
// nothing but this process's lifetime (no P2P/RPC transport is wired
// in — the Non-goals in spec.md put networking out of this core's
// scope; a host embedding this core owns that layer). Grounded on
// daglabs-btcd's cmd/*/main.go shape: parse flags, init the log
// rotator, build the core, wait for a shutdown signal.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/axiomchain/axiomd/config"
	"github.com/axiomchain/axiomd/domain/consensus"
	"github.com/axiomchain/axiomd/domain/consensus/model/externalapi"
	"github.com/axiomchain/axiomd/internal/logs"
	"github.com/axiomchain/axiomd/internal/testexecutor"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		return err
	}

	if err := logs.InitLogRotator(cfg.LogFile); err != nil {
		return fmt.Errorf("initializing log rotator: %w", err)
	}
	level := cfg.LogLevelValue()
	for _, logger := range []*logs.Logger{
		logs.Consensus, logs.DagTopology, logs.Ghostdag, logs.TipSelector,
		logs.TotalOrdering, logs.Finality, logs.ChainSelector, logs.Store,
	} {
		logger.SetLevel(level)
	}

	// No real Executor is in scope for this core (spec §4.8: surface
	// only). testexecutor's deterministic fake stands in so the binary
	// is runnable on its own; an embedding host replaces this with a
	// real implementation via consensus.Factory directly.
	executor := testexecutor.New()
	genesis := &externalapi.BlockHeader{Hash: genesisHash()}

	core, err := consensus.NewFactory().NewConsensus(cfg.Params(), cfg.DataDir, genesis, executor, prometheus.NewRegistry())
	if err != nil {
		return fmt.Errorf("initializing consensus core: %w", err)
	}

	tip, err := core.Tip()
	if err != nil {
		return fmt.Errorf("reading initial tip: %w", err)
	}
	logs.Consensus.Infof("axiomd started, data dir %s, tip %s", cfg.DataDir, tip)

	waitForShutdown()
	logs.Consensus.Infof("axiomd shutting down")
	return nil
}

// genesisHash is the fixed hash of this network's genesis block. A real
// deployment derives it from the genesis header's serialized content;
// this core treats block hashes as an opaque field supplied by the
// caller (spec §4.1 scopes hashing out), so it is hardcoded here rather
// than computed.
func genesisHash() externalapi.DomainHash {
	return externalapi.DomainHash{}
}

func waitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
}
