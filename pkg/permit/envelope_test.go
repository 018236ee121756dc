package permit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func u64p(v uint64) *uint64 { return &v }

func testDomain() Domain {
	return Domain{
		ProgramID: PubKey{0x50},
		Cluster:   ClusterTestnet,
		Version:   1,
	}
}

func sampleEnvelopes() map[string]*Envelope {
	relayer := PubKey{0x99}
	return map[string]*Envelope{
		"noop_nonce": {
			Domain:      testDomain(),
			Authorizer:  PubKey{0x41},
			Action:      Noop{},
			Mode:        Nonce(42),
			ExpiresUnix: 1700000000,
			Nonce:       42,
		},
		"place_full": {
			Domain:     testDomain(),
			Authorizer: PubKey{0x41},
			Action: Place{
				MarketID:     7,
				ClientID:     Uint128{Lo: 0xDEAD, Hi: 0xBEEF},
				Side:         1,
				Qty:          1_000_000,
				Price:        u64p(42_500),
				TIF:          TimeInForce{Mode: TIFGoodTillTime, Deadline: 1700001000},
				ReduceOnly:   true,
				TriggerPrice: u64p(42_000),
				TriggerType:  2,
				HealthFloor:  &HealthFloor{Metric: HealthRatioBps, Min: -5},
			},
			Mode:        Sequence(3),
			ExpiresUnix: 1700000000,
			MaxFeeQuote: 250,
			Relayer:     &relayer,
			Nonce:       3,
		},
		"place_minimal": {
			Domain:      testDomain(),
			Authorizer:  PubKey{0x41},
			Action:      Place{MarketID: 7, Qty: 5, TIF: TimeInForce{Mode: TIFImmediateOrCancel}},
			Mode:        Window{K: 32},
			ExpiresUnix: 1700000000,
			Nonce:       1699999000123,
		},
		"cancel_by_id": {
			Domain:      testDomain(),
			Authorizer:  PubKey{0x41},
			Action:      CancelByID{MarketID: 7, OrderID: 31337},
			Mode:        Nonce(1),
			ExpiresUnix: 1700000000,
			Nonce:       1,
		},
		"cancel_by_client_id": {
			Domain:      testDomain(),
			Authorizer:  PubKey{0x41},
			Action:      CancelByClientID{MarketID: 7, ClientID: Uint128{Lo: 1, Hi: 2}},
			Mode:        Nonce(2),
			ExpiresUnix: 1700000000,
			Nonce:       2,
		},
		"cancel_all_scoped": {
			Domain:      testDomain(),
			Authorizer:  PubKey{0x41},
			Action:      CancelAll{MarketID: u64p(7)},
			Mode:        Allowance{0xA1},
			ExpiresUnix: 1700000000,
			Nonce:       4,
		},
		"cancel_all_global": {
			Domain:      testDomain(),
			Authorizer:  PubKey{0x41},
			Action:      CancelAll{},
			Mode:        Nonce(5),
			ExpiresUnix: 1700000000,
			Nonce:       5,
		},
		"modify": {
			Domain:     testDomain(),
			Authorizer: PubKey{0x41},
			Action: Modify{
				MarketID:      7,
				CancelOrderID: 8,
				NewClientID:   Uint128{Lo: 9},
				Qty:           100,
				TIF:           TimeInForce{Mode: TIFGoodTillCancelled},
			},
			Mode:        Sequence(6),
			ExpiresUnix: 1700000000,
			Nonce:       6,
		},
		"withdraw": {
			Domain:      testDomain(),
			Authorizer:  PubKey{0x41},
			Action:      Withdraw{Amount: 1000, ToOwner: PubKey{0x22}, HealthFloor: &HealthFloor{Metric: HealthInitial, Min: 1}},
			Mode:        Nonce(7),
			ExpiresUnix: 1700000000,
			Nonce:       7,
		},
		"set_leverage": {
			Domain:      testDomain(),
			Authorizer:  PubKey{0x41},
			Action:      SetLeverage{MarketID: 7, TargetLeverageBps: 20_000},
			Mode:        Nonce(8),
			ExpiresUnix: 1700000000,
			Nonce:       8,
		},
		"faucet": {
			Domain:      Domain{ProgramID: PubKey{0x50}, Cluster: ClusterDevnet, Version: 1},
			Authorizer:  PubKey{0x41},
			Action:      Faucet{MarketID: 7, Amount: 10, Recipient: PubKey{0x33}},
			Mode:        Nonce(9),
			ExpiresUnix: 1700000000,
			Nonce:       9,
		},
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	for name, env := range sampleEnvelopes() {
		t.Run(name, func(t *testing.T) {
			raw, err := env.MarshalBinary()
			require.NoError(t, err)

			var decoded Envelope
			require.NoError(t, decoded.UnmarshalBinary(raw))
			assert.Equal(t, env, &decoded)

			// re-encoding the decoded value is byte identical
			again, err := decoded.MarshalBinary()
			require.NoError(t, err)
			assert.Equal(t, raw, again)
		})
	}
}

func TestEnvelopeDeterminism(t *testing.T) {
	env := sampleEnvelopes()["place_full"]
	first, err := env.MarshalBinary()
	require.NoError(t, err)
	for i := 0; i < 16; i++ {
		next, err := env.MarshalBinary()
		require.NoError(t, err)
		assert.Equal(t, first, next)
	}
}

// The serialized form is fixed by schema position: 32-byte program id,
// cluster and version bytes, 32-byte authorizer, key type byte, tagged
// action, tagged replay mode, little endian expiry and fee, optional
// relayer, little endian nonce.
func TestEnvelopeGoldenBytes(t *testing.T) {
	env := Envelope{
		Domain:      testDomain(),
		Authorizer:  PubKey{0x41},
		KeyType:     KeyTypeEd25519,
		Action:      Noop{},
		Mode:        Nonce(42),
		ExpiresUnix: 1700000000,
		MaxFeeQuote: 0,
		Relayer:     nil,
		Nonce:       42,
	}

	var expected []byte
	program := make([]byte, 32)
	program[0] = 0x50
	expected = append(expected, program...)
	expected = append(expected, 1) // testnet
	expected = append(expected, 1) // version
	authorizer := make([]byte, 32)
	authorizer[0] = 0x41
	expected = append(expected, authorizer...)
	expected = append(expected, 0)                                  // ed25519
	expected = append(expected, 7)                                  // noop
	expected = append(expected, 1)                                  // nonce mode
	expected = append(expected, 42, 0, 0, 0, 0, 0, 0, 0)            // nonce payload
	expected = append(expected, 0x00, 0xF1, 0x53, 0x65, 0, 0, 0, 0) // expiry 1700000000
	expected = append(expected, 0, 0, 0, 0, 0, 0, 0, 0)             // max fee
	expected = append(expected, 0)                                  // no relayer
	expected = append(expected, 42, 0, 0, 0, 0, 0, 0, 0)            // envelope nonce

	raw, err := env.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, 102, len(raw))
	assert.Equal(t, expected, raw)
}

func TestEnvelopeTruncation(t *testing.T) {
	env := sampleEnvelopes()["place_full"]
	raw, err := env.MarshalBinary()
	require.NoError(t, err)

	for i := 0; i < len(raw); i++ {
		var decoded Envelope
		err := decoded.UnmarshalBinary(raw[:i])
		assert.Errorf(t, err, "prefix of %d bytes must not decode", i)
	}
}

func TestEnvelopeTrailingBytes(t *testing.T) {
	env := sampleEnvelopes()["noop_nonce"]
	raw, err := env.MarshalBinary()
	require.NoError(t, err)

	var decoded Envelope
	err = decoded.UnmarshalBinary(append(raw, 0))
	require.Error(t, err)
	var de *DecodeError
	assert.ErrorAs(t, err, &de)
}

func TestEnvelopeUnknownTags(t *testing.T) {
	env := sampleEnvelopes()["noop_nonce"]
	raw, err := env.MarshalBinary()
	require.NoError(t, err)

	mutate := func(idx int, val byte) []byte {
		out := make([]byte, len(raw))
		copy(out, raw)
		out[idx] = val
		return out
	}

	cases := map[string][]byte{
		"cluster":     mutate(32, 4),
		"version":     mutate(33, 2),
		"key type":    mutate(66, 2),
		"action tag":  mutate(67, 9),
		"mode tag":    mutate(68, 4),
		"option flag": mutate(93, 2),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			var decoded Envelope
			assert.Error(t, decoded.UnmarshalBinary(data))
		})
	}
}

func TestEnvelopeRejectsMissingParts(t *testing.T) {
	env := Envelope{Domain: testDomain(), Mode: Nonce(1)}
	_, err := env.MarshalBinary()
	assert.Error(t, err)

	env = Envelope{Domain: testDomain(), Action: Noop{}}
	_, err = env.MarshalBinary()
	assert.Error(t, err)
}

func TestReplayValue(t *testing.T) {
	env := sampleEnvelopes()["noop_nonce"]
	assert.Equal(t, uint64(42), env.ReplayValue())

	env.Mode = Sequence(17)
	assert.Equal(t, uint64(17), env.ReplayValue())

	env.Mode = Window{K: 4}
	env.Nonce = 12345
	assert.Equal(t, uint64(12345), env.ReplayValue())

	env.Mode = Allowance{1}
	assert.Equal(t, uint64(12345), env.ReplayValue())
}

func TestUint128Layout(t *testing.T) {
	env := Envelope{
		Domain:      testDomain(),
		Authorizer:  PubKey{0x41},
		Action:      CancelByClientID{MarketID: 1, ClientID: Uint128{Lo: 0x0102030405060708, Hi: 0x1112131415161718}},
		Mode:        Nonce(1),
		ExpiresUnix: 1,
		Nonce:       1,
	}
	raw, err := env.MarshalBinary()
	require.NoError(t, err)

	// action payload starts after the action tag at offset 68:
	// market id (8), then the 128-bit client id, low half first
	client := raw[76:92]
	assert.Equal(t, []byte{8, 7, 6, 5, 4, 3, 2, 1}, client[:8])
	assert.Equal(t, []byte{0x18, 0x17, 0x16, 0x15, 0x14, 0x13, 0x12, 0x11}, client[8:])
}

func TestParsePubKey(t *testing.T) {
	key := PubKey{0x41, 0x42}
	parsed, err := ParsePubKey(key.String())
	require.NoError(t, err)
	assert.Equal(t, key, parsed)

	_, err = ParsePubKey("not base58 0OIl")
	assert.Error(t, err)

	_, err = ParsePubKey("abc")
	assert.Error(t, err)
}

func TestParseNames(t *testing.T) {
	for _, c := range []Cluster{ClusterMainnet, ClusterTestnet, ClusterDevnet, ClusterLocalnet} {
		parsed, err := ParseCluster(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, parsed)
	}
	_, err := ParseCluster("singlenet")
	assert.Error(t, err)

	for _, kt := range []KeyType{KeyTypeEd25519, KeyTypeSecp256k1} {
		parsed, err := ParseKeyType(kt.String())
		require.NoError(t, err)
		assert.Equal(t, kt, parsed)
	}
	_, err = ParseKeyType("rsa")
	assert.Error(t, err)
}
