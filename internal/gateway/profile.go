package gateway

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
)

// Profile is the connection profile describing the ledger endpoint.
// It is the JSON file the gateway loads for every request; absence or
// malformation is a configuration error, not a caller error.
type Profile struct {
	// Address is the ledger node's QUIC address (host:port).
	Address string `json:"address"`

	// ServerKey optionally pins the node's ed25519 public key, hex encoded.
	ServerKey string `json:"serverKey,omitempty"`
}

// LoadProfile reads and validates the connection profile at path.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrProfile, path, err)
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrProfile, path, err)
	}

	if p.Address == "" {
		return nil, fmt.Errorf("%w: %s: address is required", ErrProfile, path)
	}

	return &p, nil
}

// serverKey decodes the pinned server key, or returns nil when no pin
// is configured.
func (p *Profile) serverKey() (ed25519.PublicKey, error) {
	if p.ServerKey == "" {
		return nil, nil
	}

	key, err := hex.DecodeString(p.ServerKey)
	if err != nil || len(key) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: invalid serverKey", ErrProfile)
	}

	return ed25519.PublicKey(key), nil
}
