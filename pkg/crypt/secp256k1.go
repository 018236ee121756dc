package crypt

import (
	"crypto"
	"crypto/sha256"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	secpecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/ambientlabs/permitory/pkg/permit"
)

// Secp256k1 signatures are ECDSA over the SHA-256 digest of the
// serialized envelope, transmitted as a 64-byte compact r||s pair.
// The key type tag is reserved in the wire schema; the reference
// verifier deployment accepts Ed25519 only.

type Secp256k1PrivateKey secp256k1.PrivateKey

func NewSecp256k1PrivateKey(raw []byte) (*Secp256k1PrivateKey, error) {
	if len(raw) != 32 {
		return nil, fmt.Errorf("crypt: invalid secp256k1 private key length %d", len(raw))
	}
	return (*Secp256k1PrivateKey)(secp256k1.PrivKeyFromBytes(raw)), nil
}

func (*Secp256k1PrivateKey) KeyType() permit.KeyType { return permit.KeyTypeSecp256k1 }

func (priv *Secp256k1PrivateKey) Public() PublicKey {
	return (*Secp256k1PublicKey)((*secp256k1.PrivateKey)(priv).PubKey())
}

func (priv *Secp256k1PrivateKey) Sign(message []byte) (Signature, error) {
	digest := sha256.Sum256(message)
	compact := secpecdsa.SignCompact((*secp256k1.PrivateKey)(priv), digest[:], true)
	var sig [SignatureSize]byte
	copy(sig[:], compact[1:]) // drop the recovery byte, keep r||s
	return Secp256k1Signature(sig), nil
}

func (priv *Secp256k1PrivateKey) Equal(other PrivateKey) bool {
	x, ok := other.(*Secp256k1PrivateKey)
	return ok && (*secp256k1.PrivateKey)(priv).Key.Equals(&(*secp256k1.PrivateKey)(x).Key)
}

func (priv *Secp256k1PrivateKey) Unwrap() crypto.PrivateKey {
	return (*secp256k1.PrivateKey)(priv)
}

type Secp256k1PublicKey secp256k1.PublicKey

func ParseSecp256k1PublicKey(raw []byte) (*Secp256k1PublicKey, error) {
	pub, err := secp256k1.ParsePubKey(raw)
	if err != nil {
		return nil, err
	}
	return (*Secp256k1PublicKey)(pub), nil
}

func (*Secp256k1PublicKey) KeyType() permit.KeyType { return permit.KeyTypeSecp256k1 }

func (pub *Secp256k1PublicKey) VerifySignature(sig Signature, message []byte) bool {
	s, ok := sig.(Secp256k1Signature)
	if !ok {
		return false
	}
	var r, ss secp256k1.ModNScalar
	if r.SetByteSlice(s[:32]) || ss.SetByteSlice(s[32:]) {
		return false
	}
	digest := sha256.Sum256(message)
	return secpecdsa.NewSignature(&r, &ss).Verify(digest[:], (*secp256k1.PublicKey)(pub))
}

func (pub *Secp256k1PublicKey) Equal(other PublicKey) bool {
	x, ok := other.(*Secp256k1PublicKey)
	return ok && (*secp256k1.PublicKey)(pub).IsEqual((*secp256k1.PublicKey)(x))
}

func (pub *Secp256k1PublicKey) Unwrap() crypto.PublicKey {
	return (*secp256k1.PublicKey)(pub)
}

type Secp256k1Signature [SignatureSize]byte

func (Secp256k1Signature) KeyType() permit.KeyType        { return permit.KeyTypeSecp256k1 }
func (sig Secp256k1Signature) Bytes() [SignatureSize]byte { return sig }

var (
	_ PrivateKey = (*Secp256k1PrivateKey)(nil)
	_ PublicKey  = (*Secp256k1PublicKey)(nil)
	_ Signature  = Secp256k1Signature{}
)
