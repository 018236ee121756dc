package crypt

import (
	"crypto"
	"crypto/ed25519"
	"fmt"

	"github.com/ambientlabs/permitory/pkg/permit"
)

type Ed25519PrivateKey ed25519.PrivateKey

// NewEd25519PrivateKey expands a 32-byte seed into a private key
func NewEd25519PrivateKey(seed []byte) (Ed25519PrivateKey, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("crypt: invalid ed25519 seed length %d", len(seed))
	}
	return Ed25519PrivateKey(ed25519.NewKeyFromSeed(seed)), nil
}

func (Ed25519PrivateKey) KeyType() permit.KeyType { return permit.KeyTypeEd25519 }

func (priv Ed25519PrivateKey) Public() PublicKey {
	return Ed25519PublicKey(ed25519.PrivateKey(priv).Public().(ed25519.PublicKey))
}

// Sign signs the raw message bytes. No pre-hash: the on-chain verifier
// checks the signature over the serialized envelope as transmitted.
func (priv Ed25519PrivateKey) Sign(message []byte) (Signature, error) {
	var sig [SignatureSize]byte
	copy(sig[:], ed25519.Sign(ed25519.PrivateKey(priv), message))
	return Ed25519Signature(sig), nil
}

func (priv Ed25519PrivateKey) Equal(other PrivateKey) bool {
	x, ok := other.(Ed25519PrivateKey)
	return ok && ed25519.PrivateKey(priv).Equal(ed25519.PrivateKey(x))
}

func (priv Ed25519PrivateKey) Unwrap() crypto.PrivateKey {
	return ed25519.PrivateKey(priv)
}

func (priv Ed25519PrivateKey) Seed() []byte {
	return ed25519.PrivateKey(priv).Seed()
}

type Ed25519PublicKey ed25519.PublicKey

func (Ed25519PublicKey) KeyType() permit.KeyType { return permit.KeyTypeEd25519 }

func (pub Ed25519PublicKey) VerifySignature(sig Signature, message []byte) bool {
	s, ok := sig.(Ed25519Signature)
	if !ok {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), message, s[:])
}

func (pub Ed25519PublicKey) Equal(other PublicKey) bool {
	x, ok := other.(Ed25519PublicKey)
	return ok && ed25519.PublicKey(pub).Equal(ed25519.PublicKey(x))
}

func (pub Ed25519PublicKey) Unwrap() crypto.PublicKey {
	return ed25519.PublicKey(pub)
}

// Identifier returns the 32-byte on-chain form used in envelope fields
func (pub Ed25519PublicKey) Identifier() (out permit.PubKey) {
	copy(out[:], pub)
	return
}

type Ed25519Signature [SignatureSize]byte

func (Ed25519Signature) KeyType() permit.KeyType        { return permit.KeyTypeEd25519 }
func (sig Ed25519Signature) Bytes() [SignatureSize]byte { return sig }

var (
	_ PrivateKey = Ed25519PrivateKey{}
	_ PublicKey  = Ed25519PublicKey{}
	_ Signature  = Ed25519Signature{}
)
