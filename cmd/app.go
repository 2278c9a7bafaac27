package cmd

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"hemdealer/config"
	"hemdealer/pkg/ledger"
	"hemdealer/pkg/quote"
	"hemdealer/pkg/transfer"
)

// app bundles the wired settlement core behind the CLI commands.
type app struct {
	cfg         *config.Config
	manager     *ledger.Manager
	store       *transfer.Store
	coordinator *transfer.Coordinator
	monitor     *transfer.Monitor
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	endpoints := make(map[uint64]ledger.Endpoint)
	for chainID, cc := range cfg.Chains {
		if cc.Marketplace == "" {
			continue
		}
		endpoints[chainID] = ledger.Endpoint{
			ChainID:            chainID,
			RPCURL:             cc.RPCURL,
			MarketplaceAddress: common.HexToAddress(cc.Marketplace),
			BridgeAddress:      common.HexToAddress(cc.Bridge),
		}
	}
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("no chains configured. Add contract addresses to .hemdealer.yaml")
	}

	manager := ledger.NewManager(endpoints, cfg.PrivateKey)

	store, err := transfer.NewStore(cfg.StoragePath)
	if err != nil {
		manager.Close()
		return nil, err
	}

	sessions := func(chainID uint64) (transfer.Ledger, error) {
		return manager.Session(chainID)
	}

	coordinator := transfer.NewCoordinator(quote.NewClient(cfg.QuoteBaseURL), sessions, store)
	if cfg.TimeoutWindow > 0 {
		coordinator.SetTimeoutWindow(cfg.TimeoutWindow)
	}

	return &app{
		cfg:         cfg,
		manager:     manager,
		store:       store,
		coordinator: coordinator,
		monitor:     transfer.NewMonitor(store, coordinator.TimeoutWindow()),
	}, nil
}

// startMonitor runs the timeout sweep in the background for the lifetime of
// a settlement command.
func (a *app) startMonitor() {
	interval := a.cfg.SweepInterval
	if interval <= 0 {
		interval = transfer.DefaultSweepInterval
	}
	_ = a.monitor.Start(interval)
}

func (a *app) close() {
	a.monitor.Stop()
	a.manager.Close()
}

// session resolves the ledger session for a configured chain, with a
// friendlier error for chains missing from the config.
func (a *app) session(chainID uint64) (*ledger.Session, error) {
	if _, ok := a.cfg.Chains[chainID]; !ok {
		return nil, fmt.Errorf("chain %d is not configured", chainID)
	}
	sess, err := a.manager.Session(chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to chain %d: %w", chainID, err)
	}
	return sess, nil
}
