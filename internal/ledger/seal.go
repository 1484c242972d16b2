package ledger

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"

	blst "github.com/supranational/blst/bindings/go"
	"github.com/zeebo/blake3"
)

const (
	// SealPublicKeySize is the size of a BLS public key in bytes.
	SealPublicKeySize = 48

	// SealSignatureSize is the size of a BLS signature in bytes.
	SealSignatureSize = 96
)

// sealDST is the domain separation tag for seal signatures.
var sealDST = []byte("BLS_SIG_BLS12381G2_XMD:SHA-256_SSWU_RO_NUL_")

// SealKey holds the BLS key pair the node seals committed batches with.
type SealKey struct {
	secret *blst.SecretKey // secret is the private key
	public *blst.P1Affine  // public is the public key
}

// Seal attests that a batch of anchor transactions committed at a height.
type Seal struct {
	Height    uint64 `json:"height"`
	Root      []byte `json:"root"`      // Root is the blake3 batch root
	Signature []byte `json:"signature"` // Signature is the BLS signature over Root
}

// DeriveSealKey derives a deterministic BLS key pair from the node's
// ed25519 identity, bound via BLAKE3("anchorledger-seal-keygen" || seed).
func DeriveSealKey(privKey ed25519.PrivateKey) (*SealKey, error) {
	seed := privKey.Seed()
	h := blake3.New()
	h.Write([]byte("anchorledger-seal-keygen"))
	h.Write(seed)

	var derived [32]byte
	h.Sum(derived[:0])

	secret := blst.KeyGen(derived[:])
	if secret == nil {
		return nil, fmt.Errorf("failed to derive seal key")
	}

	public := new(blst.P1Affine).From(secret)

	return &SealKey{
		secret: secret,
		public: public,
	}, nil
}

// Sign creates a BLS signature over the message.
func (k *SealKey) Sign(message []byte) []byte {
	sig := new(blst.P2Affine).Sign(k.secret, message, sealDST)
	return sig.Compress()
}

// PublicKeyBytes returns the compressed public key bytes.
func (k *SealKey) PublicKeyBytes() []byte {
	return k.public.Compress()
}

// VerifySeal checks a seal's signature against its root and the sealer's
// public key.
func VerifySeal(seal *Seal, publicKey []byte) bool {
	if len(seal.Signature) != SealSignatureSize || len(publicKey) != SealPublicKeySize {
		return false
	}

	sig := new(blst.P2Affine).Uncompress(seal.Signature)
	if sig == nil {
		return false
	}

	pk := new(blst.P1Affine).Uncompress(publicKey)
	if pk == nil {
		return false
	}

	return sig.Verify(true, pk, true, seal.Root, sealDST)
}

// encodeSeal serializes a seal for storage.
func encodeSeal(s Seal) ([]byte, error) {
	return json.Marshal(s)
}

// decodeSeal deserializes a stored seal.
func decodeSeal(data []byte) (Seal, error) {
	var s Seal
	err := json.Unmarshal(data, &s)
	return s, err
}
