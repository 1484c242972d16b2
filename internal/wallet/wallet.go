// Package wallet stores the gateway's enrolled identities: the ed25519
// keys it authenticates to the ledger node with. The wallet is written
// once at enrollment and read-only at request time, so concurrent
// requests share it without synchronization beyond bbolt's own.
package wallet

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
)

var bucketIdentities = []byte("identities")

// Wallet is a bbolt-backed identity store.
type Wallet struct {
	db *bbolt.DB
}

// Open opens or creates the wallet at dbPath.
// The parent directory is created if it does not exist.
func Open(dbPath string) (*Wallet, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("wallet: create directory: %w", err)
	}

	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("wallet: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketIdentities)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("wallet: create bucket: %w", err)
	}

	return &Wallet{db: db}, nil
}

// Close closes the underlying database.
func (w *Wallet) Close() error { return w.db.Close() }

// Enroll generates a new ed25519 identity under the label and persists
// it. Fails with ErrIdentityExists if the label is taken.
func (w *Wallet) Enroll(label string) (ed25519.PublicKey, error) {
	if label == "" {
		return nil, fmt.Errorf("wallet: label must not be empty")
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("wallet: generate key: %w", err)
	}

	err = w.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketIdentities)

		if b.Get([]byte(label)) != nil {
			return fmt.Errorf("%w: %s", ErrIdentityExists, label)
		}

		return b.Put([]byte(label), priv)
	})
	if err != nil {
		return nil, err
	}

	return pub, nil
}

// Identity loads the private key enrolled under the label.
// Fails with ErrIdentityNotFound if no identity is enrolled.
func (w *Wallet) Identity(label string) (ed25519.PrivateKey, error) {
	var key ed25519.PrivateKey

	err := w.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketIdentities).Get([]byte(label))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrIdentityNotFound, label)
		}

		if len(data) != ed25519.PrivateKeySize {
			return fmt.Errorf("wallet: corrupt identity %q: %d bytes", label, len(data))
		}

		key = make(ed25519.PrivateKey, ed25519.PrivateKeySize)
		copy(key, data)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return key, nil
}

// Labels returns the enrolled identity labels in lexicographic order.
func (w *Wallet) Labels() ([]string, error) {
	var labels []string

	err := w.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketIdentities).ForEach(func(k, _ []byte) error {
			labels = append(labels, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return labels, nil
}
