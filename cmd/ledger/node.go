package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"AnchorLedger/internal/ledger"
	"AnchorLedger/internal/logger"
	"AnchorLedger/internal/network"
	"AnchorLedger/internal/node"
	"AnchorLedger/internal/storage"
)

// Node represents a running ledger node.
type Node struct {
	cfg    *Config
	store  *storage.Store
	ledger *ledger.Ledger
	server *network.Server
	admin  *node.AdminServer
}

// NewNode creates and initializes a new node.
func NewNode(cfg *Config) (*Node, error) {
	n := &Node{cfg: cfg}

	if err := n.initStorage(); err != nil {
		return nil, err
	}

	if err := n.initLedger(); err != nil {
		n.Close()
		return nil, err
	}

	if err := n.initNetwork(); err != nil {
		n.Close()
		return nil, err
	}

	return n, nil
}

// initStorage initializes the Pebble storage.
func (n *Node) initStorage() error {
	if err := os.MkdirAll(n.cfg.DataPath, 0755); err != nil {
		return fmt.Errorf("create data directory:\n%w", err)
	}

	store, err := storage.Open(n.cfg.DataPath + "/db")
	if err != nil {
		return fmt.Errorf("init storage:\n%w", err)
	}

	n.store = store

	return nil
}

// initLedger opens the ledger over the store and starts its commit loop.
func (n *Node) initLedger() error {
	sealKey, err := ledger.DeriveSealKey(n.cfg.PrivateKey)
	if err != nil {
		return fmt.Errorf("derive seal key:\n%w", err)
	}

	l, err := ledger.Open(n.store, sealKey)
	if err != nil {
		return fmt.Errorf("open ledger:\n%w", err)
	}

	n.ledger = l

	return nil
}

// initNetwork creates the QUIC server serving ledger operations.
func (n *Node) initNetwork() error {
	server, err := network.NewServer(n.cfg.PrivateKey, n.cfg.QUICAddress, node.Handler(n.ledger))
	if err != nil {
		return fmt.Errorf("init network:\n%w", err)
	}

	n.server = server

	return nil
}

// Run starts the node and blocks until shutdown.
func (n *Node) Run() error {
	if err := n.server.Start(); err != nil {
		return fmt.Errorf("start network:\n%w", err)
	}

	n.admin = node.NewAdminServer(n.cfg.AdminAddress, n.ledger)
	if err := n.admin.Start(); err != nil {
		return fmt.Errorf("start admin api:\n%w", err)
	}

	logger.Info("ledger node running",
		"height", n.ledger.Height(),
		"addr", n.server.Addr(),
	)

	return n.waitForShutdown()
}

// waitForShutdown blocks until SIGINT or SIGTERM, then closes the node.
func (n *Node) waitForShutdown() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", "signal", sig.String())

	return n.Close()
}

// Close shuts down all subsystems in reverse init order.
func (n *Node) Close() error {
	if n.admin != nil {
		n.admin.Stop()
	}

	if n.server != nil {
		n.server.Stop()
	}

	if n.ledger != nil {
		n.ledger.Close()
	}

	if n.store != nil {
		n.store.Close()
	}

	return nil
}
