package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"AnchorLedger/internal/gateway"
	"AnchorLedger/internal/logger"
	"AnchorLedger/internal/wallet"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main entry point with error handling.
func run() error {
	cfg := parseFlags()
	logger.Init(logger.ParseLevel(cfg.LogLevel))

	w, err := wallet.Open(cfg.WalletPath)
	if err != nil {
		return fmt.Errorf("open wallet:\n%w", err)
	}
	defer w.Close()

	if cfg.Enroll {
		return enroll(w, cfg.IdentityLabel)
	}

	warnIfNotEnrolled(w, cfg.IdentityLabel)

	connector := &gateway.ProfileConnector{
		ProfilePath:   cfg.ProfilePath,
		Wallet:        w,
		IdentityLabel: cfg.IdentityLabel,
	}

	server := gateway.New(cfg.HTTPAddress, connector, cfg.Timeout)
	if err := server.Start(); err != nil {
		return fmt.Errorf("start gateway:\n%w", err)
	}

	logger.Info("anchor gateway running",
		"http", cfg.HTTPAddress,
		"profile", cfg.ProfilePath,
		"identity", cfg.IdentityLabel,
	)

	waitForShutdown()

	return server.Stop()
}

// enroll creates a new identity under the configured label and prints
// its public key. Enrolling an existing label is reported as such.
func enroll(w *wallet.Wallet, label string) error {
	pubKey, err := w.Enroll(label)
	if errors.Is(err, wallet.ErrIdentityExists) {
		return fmt.Errorf("identity %q already enrolled", label)
	}
	if err != nil {
		return fmt.Errorf("enroll:\n%w", err)
	}

	fmt.Printf("enrolled %q with public key %s\n", label, hex.EncodeToString(pubKey))

	return nil
}

// warnIfNotEnrolled flags a misconfigured identity at startup, before
// the first request fails with 401.
func warnIfNotEnrolled(w *wallet.Wallet, label string) {
	labels, err := w.Labels()
	if err != nil {
		logger.Warn("failed to list wallet identities", "error", err)
		return
	}

	if !slices.Contains(labels, label) {
		logger.Warn("configured identity is not enrolled, requests will be rejected",
			"identity", label,
			"enrolled", labels,
		)
	}
}

// waitForShutdown blocks until SIGINT or SIGTERM.
func waitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", "signal", sig.String())
}
