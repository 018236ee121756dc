package permit

// VersionV1 is the only envelope layout this package knows how to
// decode. A future layout change gets a new version value; old bytes
// keep decoding under old semantics.
const VersionV1 uint8 = 1

// Envelope is the canonical authorization record. Field order is fixed
// by schema position; construction, marshalling and unmarshalling are
// pure so equal values always produce equal bytes in every process.
type Envelope struct {
	Domain      Domain
	Authorizer  PubKey
	KeyType     KeyType
	Action      Action
	Mode        ReplayMode
	ExpiresUnix int64
	MaxFeeQuote uint64
	Relayer     *PubKey
	Nonce       uint64
}

// MarshalBinary returns the canonical byte serialization. The result is
// deterministic: identical field values always yield identical bytes.
func (env *Envelope) MarshalBinary() ([]byte, error) {
	if env.Action == nil {
		return nil, decodeErrorf("envelope has no action")
	}
	if env.Mode == nil {
		return nil, decodeErrorf("envelope has no replay mode")
	}
	var e encoder
	env.Domain.marshal(&e)
	e.bytes32(env.Authorizer)
	e.u8(uint8(env.KeyType))
	e.u8(env.Action.tag())
	env.Action.marshal(&e)
	e.u8(env.Mode.tag())
	env.Mode.marshal(&e)
	e.i64(env.ExpiresUnix)
	e.u64(env.MaxFeeQuote)
	if env.Relayer != nil {
		e.u8(1)
		e.bytes32(*env.Relayer)
	} else {
		e.u8(0)
	}
	e.u64(env.Nonce)
	return e.buf, nil
}

// UnmarshalBinary decodes a canonical serialization. It fails with a
// DecodeError on truncated input, trailing bytes, an unknown envelope
// version or any unknown enum tag; it never falls back to a default
// variant.
func (env *Envelope) UnmarshalBinary(data []byte) error {
	d := decoder{data: data}

	var out Envelope
	out.Domain.unmarshal(&d)
	if d.err == nil && out.Domain.Version != VersionV1 {
		return decodeErrorf("unknown envelope version %d", out.Domain.Version)
	}
	out.Authorizer = d.bytes32()
	keyType := d.u8()
	if d.err == nil && keyType > uint8(KeyTypeSecp256k1) {
		return decodeErrorf("unknown key type tag %d", keyType)
	}
	out.KeyType = KeyType(keyType)
	out.Action = decodeAction(&d)
	out.Mode = decodeReplayMode(&d)
	out.ExpiresUnix = d.i64()
	out.MaxFeeQuote = d.u64()
	if d.option() {
		relayer := PubKey(d.bytes32())
		out.Relayer = &relayer
	}
	out.Nonce = d.u64()

	if err := d.finish(); err != nil {
		return err
	}
	*env = out
	return nil
}

// ReplayValue returns the value the replay protection store tracks for
// this envelope: the mode payload for sequence, nonce and allowance
// modes, the envelope nonce for window mode.
func (env *Envelope) ReplayValue() uint64 {
	switch m := env.Mode.(type) {
	case Sequence:
		return uint64(m)
	case Nonce:
		return uint64(m)
	default:
		return env.Nonce
	}
}
