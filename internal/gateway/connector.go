package gateway

import (
	"context"
	"fmt"

	"AnchorLedger/internal/network"
	"AnchorLedger/internal/wallet"
)

// Conn is a scoped ledger connection owned by exactly one in-flight
// request. It must be released once on every exit path.
type Conn interface {
	Request(ctx context.Context, req network.Request) (network.Response, error)
	Close() error
}

// Connector opens a single-use ledger connection for one request.
type Connector interface {
	Connect(ctx context.Context) (Conn, error)
}

// ProfileConnector connects using a connection profile file and an
// identity from the wallet, loaded fresh for every request.
type ProfileConnector struct {
	ProfilePath   string         // ProfilePath locates the connection profile JSON
	Wallet        *wallet.Wallet // Wallet holds the enrolled identities
	IdentityLabel string         // IdentityLabel names the identity to authenticate with
}

// Connect loads the profile and identity, then dials the ledger node.
// A missing profile surfaces ErrProfile; a missing identity surfaces
// wallet.ErrIdentityNotFound; both abort the request without a ledger
// interaction.
func (c *ProfileConnector) Connect(ctx context.Context) (Conn, error) {
	profile, err := LoadProfile(c.ProfilePath)
	if err != nil {
		return nil, err
	}

	identity, err := c.Wallet.Identity(c.IdentityLabel)
	if err != nil {
		return nil, err
	}

	pin, err := profile.serverKey()
	if err != nil {
		return nil, err
	}

	conn, err := network.Dial(ctx, profile.Address, identity, pin)
	if err != nil {
		return nil, fmt.Errorf("connect to ledger at %s:\n%w", profile.Address, err)
	}

	return conn, nil
}
