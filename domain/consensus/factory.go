package consensus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/axiomchain/axiomd/domain/consensus/datastructures/blockstore"
	"github.com/axiomchain/axiomd/domain/consensus/model"
	"github.com/axiomchain/axiomd/domain/consensus/model/externalapi"
	"github.com/axiomchain/axiomd/domain/consensus/processes/chainselector"
	"github.com/axiomchain/axiomd/domain/consensus/processes/dagtopologymanager"
	"github.com/axiomchain/axiomd/domain/consensus/processes/finalitymanager"
	"github.com/axiomchain/axiomd/domain/consensus/processes/ghostdagmanager"
	"github.com/axiomchain/axiomd/domain/consensus/processes/tipselector"
	"github.com/axiomchain/axiomd/domain/consensus/processes/totalordering"
	"github.com/axiomchain/axiomd/internal/metrics"
)

// Factory instantiates new Consensus instances, grounded on
// daglabs-btcd's domain/consensus/factory.go: one function wiring every
// datastructure and process package together from scratch per call, so
// that (as the teacher's own doc comment puts it) multiple instances
// never share state.
type Factory interface {
	NewConsensus(params *model.Params, dataDir string, genesis *externalapi.BlockHeader, executor model.Executor, registry *prometheus.Registry) (Consensus, error)
}

type factory struct{}

// NewFactory returns a Factory.
func NewFactory() Factory {
	return &factory{}
}

// NewConsensus builds a Consensus over store backend selected by
// dataDir: a LevelDB store rooted at dataDir if non-empty, or an
// in-memory store for embedding/tests. genesis is staged into every
// collaborator that needs to see it before the factory returns.
func (f *factory) NewConsensus(
	params *model.Params,
	dataDir string,
	genesis *externalapi.BlockHeader,
	executor model.Executor,
	registry *prometheus.Registry,
) (Consensus, error) {
	store, err := newStore(dataDir, &genesis.Hash)
	if err != nil {
		return nil, err
	}

	collector := metrics.NewCollector(registry)
	topology := dagtopologymanager.New(store, params)
	ghostdag := ghostdagmanager.New(store, topology, params, collector)
	tips := tipselector.New()
	ordering := totalordering.New(store)
	finality := finalitymanager.New(store, topology, params, &genesis.Hash)

	genesisMetadata, err := ghostdag.GHOSTDAG(genesis)
	if err != nil {
		return nil, err
	}
	if err := store.Put(&genesis.Hash, genesis, genesisMetadata); err != nil {
		return nil, err
	}
	if err := topology.Add(genesis, genesisMetadata); err != nil {
		return nil, err
	}
	if err := tips.AddTip(&genesis.Hash, genesisMetadata.BlueScore); err != nil {
		return nil, err
	}

	selector := chainselector.New(store, topology, ghostdag, tips, ordering, finality, executor, params, &genesis.Hash, collector)

	return &consensus{chainSelector: selector}, nil
}

func newStore(dataDir string, genesis *externalapi.DomainHash) (model.BlockStore, error) {
	if dataDir == "" {
		return blockstore.NewMemory(genesis), nil
	}
	return blockstore.NewLevelDB(dataDir, genesis)
}
