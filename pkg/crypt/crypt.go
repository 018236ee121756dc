// Package crypt implements the signature algorithms selectable by an
// envelope key type. Signing covers the raw canonical envelope bytes;
// the signature travels alongside them and is never embedded inside.
package crypt

import (
	"crypto"
	"fmt"

	"github.com/ambientlabs/permitory/pkg/errors"
	"github.com/ambientlabs/permitory/pkg/permit"
)

// SignatureSize is the fixed wire size of every supported signature
const SignatureSize = 64

type PrivateKey interface {
	KeyType() permit.KeyType
	Sign(message []byte) (Signature, error)
	Public() PublicKey
	Equal(PrivateKey) bool
	Unwrap() crypto.PrivateKey
}

type PublicKey interface {
	KeyType() permit.KeyType
	VerifySignature(sig Signature, message []byte) bool
	Equal(PublicKey) bool
	Unwrap() crypto.PublicKey
}

// Signature is a fixed-size detached signature
type Signature interface {
	KeyType() permit.KeyType
	Bytes() [SignatureSize]byte
}

// ParseSignature interprets 64 raw signature bytes under the algorithm
// the envelope declares. The key type is never inferred from the bytes.
func ParseSignature(kt permit.KeyType, raw []byte) (Signature, error) {
	if len(raw) != SignatureSize {
		return nil, fmt.Errorf("crypt: invalid signature length %d", len(raw))
	}
	var fixed [SignatureSize]byte
	copy(fixed[:], raw)
	switch kt {
	case permit.KeyTypeEd25519:
		return Ed25519Signature(fixed), nil
	case permit.KeyTypeSecp256k1:
		return Secp256k1Signature(fixed), nil
	default:
		return nil, errors.Wrap(fmt.Errorf("crypt: unknown key type: %v", kt), errors.CodeKeyAlgorithmMismatch)
	}
}

// SignedPermit is the immutable output of signing: the canonical bytes
// and the detached signature over exactly those bytes. Any change to
// the envelope invalidates the pair.
type SignedPermit struct {
	Bytes     []byte
	Signature [SignatureSize]byte
}

// SignEnvelope serializes the envelope and signs the bytes with the
// supplied key. The key algorithm must match the declared key type;
// disagreement is a hard error, not a fallback.
func SignEnvelope(env *permit.Envelope, priv PrivateKey) (*SignedPermit, error) {
	if priv.KeyType() != env.KeyType {
		return nil, errors.Wrap(
			fmt.Errorf("crypt: envelope declares %v but the private key is %v", env.KeyType, priv.KeyType()),
			errors.CodeKeyAlgorithmMismatch)
	}
	msg, err := env.MarshalBinary()
	if err != nil {
		return nil, err
	}
	sig, err := priv.Sign(msg)
	if err != nil {
		return nil, err
	}
	return &SignedPermit{Bytes: msg, Signature: sig.Bytes()}, nil
}
