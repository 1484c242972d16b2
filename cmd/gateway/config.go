package main

import (
	"flag"
	"time"
)

// Config holds the gateway configuration.
type Config struct {
	// HTTPAddress is the HTTP API listen address.
	HTTPAddress string

	// ProfilePath is the path to the connection profile JSON.
	ProfilePath string

	// WalletPath is the path to the identity wallet database.
	WalletPath string

	// IdentityLabel names the wallet identity used for ledger connections.
	IdentityLabel string

	// Timeout bounds each request's ledger interaction.
	Timeout time.Duration

	// LogLevel is the minimum log level name.
	LogLevel string

	// Enroll creates the identity in the wallet and exits.
	Enroll bool
}

// parseFlags parses command-line flags into Config.
func parseFlags() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.HTTPAddress, "http", ":8080", "HTTP API address")
	flag.StringVar(&cfg.ProfilePath, "profile", "./connection.json", "Connection profile path")
	flag.StringVar(&cfg.WalletPath, "wallet", "./wallet.db", "Identity wallet path")
	flag.StringVar(&cfg.IdentityLabel, "identity", "appUser", "Wallet identity label")
	flag.DurationVar(&cfg.Timeout, "timeout", 0, "Per-request ledger timeout (0 for default)")
	flag.StringVar(&cfg.LogLevel, "log-level", "info", "Minimum log level (debug, info, warn, error)")
	flag.BoolVar(&cfg.Enroll, "enroll", false, "Enroll the identity and exit")
	flag.Parse()

	return cfg
}
