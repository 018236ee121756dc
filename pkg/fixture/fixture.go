// Package fixture produces and checks signing vectors: hex encoded
// canonical envelope bytes with an ed25519 signature over exactly those
// bytes. A vector file lets another implementation confirm byte
// compatibility without sharing code.
package fixture

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ambientlabs/permitory/pkg/crypt"
	"github.com/ambientlabs/permitory/pkg/permit"
)

// Vector is one externally checkable signing example. The seed is
// included so a reader can reproduce the signature, not only verify it.
type Vector struct {
	Name      string `json:"name"`
	Seed      string `json:"seed"`
	Envelope  string `json:"envelope"`
	Signature string `json:"signature"`
}

// Case is a vector before serialization. The envelope authorizer is
// overwritten with the key derived from the seed.
type Case struct {
	Name     string
	Seed     []byte
	Envelope *permit.Envelope
}

// Generate derives a key per case, signs the canonical bytes and
// returns the encoded vectors. Generation is deterministic: ed25519
// signatures carry no randomness, so regenerating a corpus is a no-op
// diff.
func Generate(cases []Case) ([]Vector, error) {
	out := make([]Vector, len(cases))
	for i, c := range cases {
		priv, err := crypt.NewEd25519PrivateKey(c.Seed)
		if err != nil {
			return nil, fmt.Errorf("fixture %q: %w", c.Name, err)
		}
		env := *c.Envelope
		env.Authorizer = priv.Public().(crypt.Ed25519PublicKey).Identifier()
		env.KeyType = permit.KeyTypeEd25519

		signed, err := crypt.SignEnvelope(&env, priv)
		if err != nil {
			return nil, fmt.Errorf("fixture %q: %w", c.Name, err)
		}
		out[i] = Vector{
			Name:      c.Name,
			Seed:      hex.EncodeToString(c.Seed),
			Envelope:  hex.EncodeToString(signed.Bytes),
			Signature: hex.EncodeToString(signed.Signature[:]),
		}
	}
	return out, nil
}

// Check confirms every vector is internally consistent: the envelope
// bytes survive a decode and re-encode unchanged, the authorizer is the
// key the seed derives, and re-signing reproduces the recorded
// signature byte for byte.
func Check(vectors []Vector) error {
	for _, vec := range vectors {
		if err := checkOne(&vec); err != nil {
			return fmt.Errorf("fixture %q: %w", vec.Name, err)
		}
	}
	return nil
}

func checkOne(vec *Vector) error {
	seed, err := hex.DecodeString(vec.Seed)
	if err != nil {
		return err
	}
	raw, err := hex.DecodeString(vec.Envelope)
	if err != nil {
		return err
	}
	sig, err := hex.DecodeString(vec.Signature)
	if err != nil {
		return err
	}

	priv, err := crypt.NewEd25519PrivateKey(seed)
	if err != nil {
		return err
	}

	var env permit.Envelope
	if err := env.UnmarshalBinary(raw); err != nil {
		return err
	}
	reencoded, err := env.MarshalBinary()
	if err != nil {
		return err
	}
	if !bytes.Equal(raw, reencoded) {
		return fmt.Errorf("envelope bytes are not canonical")
	}

	pub := priv.Public().(crypt.Ed25519PublicKey)
	if env.Authorizer != pub.Identifier() {
		return fmt.Errorf("authorizer does not match the seed key")
	}

	parsed, err := crypt.ParseSignature(permit.KeyTypeEd25519, sig)
	if err != nil {
		return err
	}
	if !pub.VerifySignature(parsed, raw) {
		return fmt.Errorf("signature does not verify")
	}

	resigned, err := priv.Sign(raw)
	if err != nil {
		return err
	}
	if resigned.Bytes() != parsed.Bytes() {
		return fmt.Errorf("signature is not the deterministic signature of the envelope")
	}
	return nil
}

// Write stores vectors as an indented JSON array
func Write(path string, vectors []Vector) error {
	buf, err := json.MarshalIndent(vectors, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(buf, '\n'), 0644)
}

// Read loads a vector file written by Write
func Read(path string) ([]Vector, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var vectors []Vector
	if err := json.Unmarshal(buf, &vectors); err != nil {
		return nil, err
	}
	return vectors, nil
}

func u64(v uint64) *uint64 { return &v }

// Corpus returns the built-in cases covering every action and replay
// mode variant at least once
func Corpus() []Case {
	seed := func(fill byte) []byte {
		b := make([]byte, 32)
		for i := range b {
			b[i] = fill
		}
		return b
	}
	domain := permit.Domain{
		ProgramID: permit.PubKey{0x50},
		Cluster:   permit.ClusterTestnet,
		Version:   1,
	}
	relayer := permit.PubKey{0x99}

	return []Case{
		{
			Name: "noop_nonce",
			Seed: seed(1),
			Envelope: &permit.Envelope{
				Domain:      domain,
				Action:      permit.Noop{},
				Mode:        permit.Nonce(42),
				ExpiresUnix: 1700000000,
				Nonce:       42,
			},
		},
		{
			Name: "place_limit_sequence",
			Seed: seed(2),
			Envelope: &permit.Envelope{
				Domain: domain,
				Action: permit.Place{
					MarketID: 7,
					ClientID: permit.Uint128{Lo: 1},
					Side:     1,
					Qty:      1_000_000,
					Price:    u64(42_500),
					TIF:      permit.TimeInForce{Mode: permit.TIFGoodTillTime, Deadline: 1700001000},
				},
				Mode:        permit.Sequence(9),
				ExpiresUnix: 1700000000,
				MaxFeeQuote: 250,
				Nonce:       9,
			},
		},
		{
			Name: "cancel_all_window",
			Seed: seed(3),
			Envelope: &permit.Envelope{
				Domain:      domain,
				Action:      permit.CancelAll{MarketID: u64(7)},
				Mode:        permit.Window{K: 16},
				ExpiresUnix: 1700000000,
				Nonce:       1699999000123,
			},
		},
		{
			Name: "withdraw_allowance_relayed",
			Seed: seed(4),
			Envelope: &permit.Envelope{
				Domain: domain,
				Action: permit.Withdraw{
					Amount:      5_000_000,
					ToOwner:     permit.PubKey{0x22},
					HealthFloor: &permit.HealthFloor{Metric: permit.HealthMaintenance, Min: 100},
				},
				Mode:        permit.Allowance{0xA1, 0xA2},
				ExpiresUnix: 1700000000,
				MaxFeeQuote: 10,
				Relayer:     &relayer,
				Nonce:       4,
			},
		},
		{
			Name: "modify_nonce",
			Seed: seed(5),
			Envelope: &permit.Envelope{
				Domain: domain,
				Action: permit.Modify{
					MarketID:      7,
					CancelOrderID: 31337,
					NewClientID:   permit.Uint128{Lo: 2, Hi: 1},
					Side:          0,
					Qty:           500_000,
					Price:         u64(42_400),
					TIF:           permit.TimeInForce{Mode: permit.TIFAddLiquidityOnly},
					ReduceOnly:    true,
					TriggerPrice:  u64(42_000),
					TriggerType:   1,
				},
				Mode:        permit.Nonce(77),
				ExpiresUnix: 1700000000,
				Nonce:       77,
			},
		},
		{
			Name: "set_leverage_sequence",
			Seed: seed(6),
			Envelope: &permit.Envelope{
				Domain: domain,
				Action: permit.SetLeverage{
					MarketID:          7,
					TargetLeverageBps: 50_000,
					HealthFloor:       &permit.HealthFloor{Metric: permit.HealthRatioBps, Min: 500},
				},
				Mode:        permit.Sequence(1),
				ExpiresUnix: 1700000000,
				Nonce:       1,
			},
		},
		{
			Name: "faucet_nonce_devnet",
			Seed: seed(7),
			Envelope: &permit.Envelope{
				Domain: permit.Domain{
					ProgramID: domain.ProgramID,
					Cluster:   permit.ClusterDevnet,
					Version:   1,
				},
				Action: permit.Faucet{
					MarketID:  7,
					Amount:    1_000_000_000,
					Recipient: permit.PubKey{0x33},
				},
				Mode:        permit.Nonce(8),
				ExpiresUnix: 1700000000,
				Nonce:       8,
			},
		},
		{
			Name: "cancel_by_client_id_nonce",
			Seed: seed(8),
			Envelope: &permit.Envelope{
				Domain:      domain,
				Action:      permit.CancelByClientID{MarketID: 7, ClientID: permit.Uint128{Lo: 0xDEAD, Hi: 0xBEEF}},
				Mode:        permit.Nonce(12),
				ExpiresUnix: 1700000000,
				Nonce:       12,
			},
		},
	}
}
