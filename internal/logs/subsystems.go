package logs

import (
	"os"
	"path/filepath"

	"github.com/jrick/logrotate/rotator"
)

// Per-subsystem tags, mirroring daglabs-btcd's logger.SubsystemTags enum.
// One Logger per core component keeps log lines greppable by the
// component that emitted them.
const (
	TagConsensus     = "CONS" // ConsensusCore / top-level wiring
	TagDagTopology   = "TOPO" // DAGTopologyManager (DagGraph)
	TagGhostdag      = "GDAG" // GHOSTDAGManager
	TagTipSelector   = "TIPS" // TipSelector
	TagTotalOrdering = "ORDR" // TotalOrdering
	TagFinality      = "FINL" // FinalityManager
	TagChainSelector = "CHSL" // ChainSelector
	TagStore         = "STOR" // BlockStore
)

var (
	backend *Backend

	logRotator *rotator.Rotator

	Consensus     *Logger
	DagTopology   *Logger
	Ghostdag      *Logger
	TipSelector   *Logger
	TotalOrdering *Logger
	Finality      *Logger
	ChainSelector *Logger
	Store         *Logger
)

func init() {
	// Until InitLogRotator is called (by cmd/axiomd's config step),
	// loggers write to stdout only. This keeps tests and library users
	// who never call InitLogRotator functional.
	backend = NewBackend(os.Stdout)
	bindSubsystemLoggers()
}

func bindSubsystemLoggers() {
	Consensus = backend.Logger(TagConsensus)
	DagTopology = backend.Logger(TagDagTopology)
	Ghostdag = backend.Logger(TagGhostdag)
	TipSelector = backend.Logger(TagTipSelector)
	TotalOrdering = backend.Logger(TagTotalOrdering)
	Finality = backend.Logger(TagFinality)
	ChainSelector = backend.Logger(TagChainSelector)
	Store = backend.Logger(TagStore)
}

// InitLogRotator creates a rotating log file at logFile and wires it
// into the shared backend alongside stdout, mirroring
// daglabs-btcd/logger.InitLogRotators.
func InitLogRotator(logFile string) error {
	logDir := filepath.Dir(logFile)
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return err
	}
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		return err
	}
	logRotator = r
	backend = NewBackend(os.Stdout, r)
	bindSubsystemLoggers()
	return nil
}
