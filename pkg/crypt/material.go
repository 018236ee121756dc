package crypt

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/ambientlabs/permitory/pkg/errors"
	"github.com/ambientlabs/permitory/pkg/permit"
)

// GenerateKey creates a fresh random private key of the given algorithm
func GenerateKey(kt permit.KeyType) (PrivateKey, error) {
	switch kt {
	case permit.KeyTypeEd25519:
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, err
		}
		return Ed25519PrivateKey(priv), nil
	case permit.KeyTypeSecp256k1:
		priv, err := secp256k1.GeneratePrivateKey()
		if err != nil {
			return nil, err
		}
		return (*Secp256k1PrivateKey)(priv), nil
	default:
		return nil, errors.Wrap(fmt.Errorf("crypt: unknown key type: %v", kt), errors.CodeKeyAlgorithmMismatch)
	}
}

// ParsePrivateKey interprets 32 raw secret bytes under the given
// algorithm: an ed25519 seed or a secp256k1 scalar.
func ParsePrivateKey(kt permit.KeyType, raw []byte) (PrivateKey, error) {
	switch kt {
	case permit.KeyTypeEd25519:
		return NewEd25519PrivateKey(raw)
	case permit.KeyTypeSecp256k1:
		return NewSecp256k1PrivateKey(raw)
	default:
		return nil, errors.Wrap(fmt.Errorf("crypt: unknown key type: %v", kt), errors.CodeKeyAlgorithmMismatch)
	}
}

// PrivateKeyBytes returns the 32 secret bytes ParsePrivateKey accepts
func PrivateKeyBytes(priv PrivateKey) []byte {
	switch k := priv.(type) {
	case Ed25519PrivateKey:
		return k.Seed()
	case *Secp256k1PrivateKey:
		return (*secp256k1.PrivateKey)(k).Serialize()
	default:
		return nil
	}
}

// PublicKeyBytes returns the canonical public encoding: 32 raw bytes
// for ed25519, the 33-byte compressed point for secp256k1.
func PublicKeyBytes(pub PublicKey) []byte {
	switch k := pub.(type) {
	case Ed25519PublicKey:
		return []byte(k)
	case *Secp256k1PublicKey:
		return (*secp256k1.PublicKey)(k).SerializeCompressed()
	default:
		return nil
	}
}
