package permit

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// PubKey is a raw 32-byte public key identifier as used on chain for
// program ids, authorizers and relayers.
type PubKey [32]byte

func (p PubKey) String() string { return base58.Encode(p[:]) }

// ParsePubKey decodes a base58 encoded 32-byte key
func ParsePubKey(s string) (PubKey, error) {
	var out PubKey
	b, err := base58.Decode(s)
	if err != nil {
		return out, fmt.Errorf("permit: invalid key %q: %w", s, err)
	}
	if len(b) != len(out) {
		return out, fmt.Errorf("permit: invalid key length %d for %q", len(b), s)
	}
	copy(out[:], b)
	return out, nil
}

// Cluster identifies the network an envelope is bound to
type Cluster uint8

const (
	ClusterMainnet Cluster = iota
	ClusterTestnet
	ClusterDevnet
	ClusterLocalnet
)

func (c Cluster) String() string {
	switch c {
	case ClusterMainnet:
		return "mainnet"
	case ClusterTestnet:
		return "testnet"
	case ClusterDevnet:
		return "devnet"
	case ClusterLocalnet:
		return "localnet"
	default:
		return fmt.Sprintf("cluster(%d)", uint8(c))
	}
}

// ParseCluster is the inverse of Cluster.String for configuration values
func ParseCluster(s string) (Cluster, error) {
	switch s {
	case "mainnet":
		return ClusterMainnet, nil
	case "testnet":
		return ClusterTestnet, nil
	case "devnet":
		return ClusterDevnet, nil
	case "localnet":
		return ClusterLocalnet, nil
	default:
		return 0, fmt.Errorf("permit: unknown cluster: %s", s)
	}
}

// KeyType selects the signature algorithm and public key format of an
// envelope. The set is closed: decoding an unknown tag is an error and
// the type is never inferred from key material.
type KeyType uint8

const (
	KeyTypeEd25519 KeyType = iota
	KeyTypeSecp256k1
)

func (t KeyType) String() string {
	switch t {
	case KeyTypeEd25519:
		return "ed25519"
	case KeyTypeSecp256k1:
		return "secp256k1"
	default:
		return fmt.Sprintf("keytype(%d)", uint8(t))
	}
}

func ParseKeyType(s string) (KeyType, error) {
	switch s {
	case "ed25519":
		return KeyTypeEd25519, nil
	case "secp256k1":
		return KeyTypeSecp256k1, nil
	default:
		return 0, fmt.Errorf("permit: unknown key type: %s", s)
	}
}

// Domain binds an envelope to one program on one network under one
// protocol version. A permit with a mismatched domain must fail closed:
// none of the fields fall back to a deployment default.
type Domain struct {
	ProgramID PubKey
	Cluster   Cluster
	Version   uint8
}

// Equal reports field-wise equality
func (d Domain) Equal(other Domain) bool {
	return d == other
}

func (d Domain) marshal(e *encoder) {
	e.bytes32(d.ProgramID)
	e.u8(uint8(d.Cluster))
	e.u8(d.Version)
}

func (d *Domain) unmarshal(dec *decoder) {
	d.ProgramID = dec.bytes32()
	cluster := dec.u8()
	if dec.err == nil && cluster > uint8(ClusterLocalnet) {
		dec.fail(decodeErrorf("unknown cluster tag %d", cluster))
	}
	d.Cluster = Cluster(cluster)
	d.Version = dec.u8()
}
