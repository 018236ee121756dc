package permit

// Replay mode tags in schema order
const (
	tagSequence uint8 = iota
	tagNonce
	tagAllowance
	tagWindow
)

// ReplayMode is the closed union of replay protection strategies.
// Exactly one variant is active per envelope and the choice is part of
// the signed bytes, so a permit cannot be reinterpreted under another
// strategy after signing.
type ReplayMode interface {
	// Mode returns the stable strategy name used in logs and metrics
	Mode() string
	tag() uint8
	marshal(e *encoder)
}

func decodeReplayMode(d *decoder) ReplayMode {
	tag := d.u8()
	if d.err != nil {
		return nil
	}
	switch tag {
	case tagSequence:
		return Sequence(d.u64())
	case tagNonce:
		return Nonce(d.u64())
	case tagAllowance:
		return Allowance(d.bytes32())
	case tagWindow:
		return Window{K: d.u8()}
	default:
		d.fail(decodeErrorf("unknown replay mode tag %d", tag))
		return nil
	}
}

// Sequence is a strictly increasing per-authorizer counter. A permit is
// valid while its value has not been reached yet; consuming it advances
// the watermark past the value.
type Sequence uint64

func (Sequence) Mode() string { return "sequence" }
func (Sequence) tag() uint8   { return tagSequence }
func (s Sequence) marshal(e *encoder) {
	e.u64(uint64(s))
}

// Nonce is a unique per-authorizer integer consumable exactly once
type Nonce uint64

func (Nonce) Mode() string { return "nonce" }
func (Nonce) tag() uint8   { return tagNonce }
func (n Nonce) marshal(e *encoder) {
	e.u64(uint64(n))
}

// Allowance references a pre-provisioned allowance id. The id is part
// of the wire schema for on-chain compatibility; the off-chain store
// treats each id as consumable once.
type Allowance [32]byte

func (Allowance) Mode() string { return "allowance" }
func (Allowance) tag() uint8   { return tagAllowance }
func (a Allowance) marshal(e *encoder) {
	e.bytes32([32]byte(a))
}

// Window admits the envelope nonce while it stays inside a sliding
// window of the K highest nonces seen for the authorizer.
type Window struct {
	K uint8
}

func (Window) Mode() string { return "window" }
func (Window) tag() uint8   { return tagWindow }
func (w Window) marshal(e *encoder) {
	e.u8(w.K)
}
