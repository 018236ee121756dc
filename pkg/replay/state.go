package replay

import (
	"encoding/hex"
	"sort"

	"github.com/ambientlabs/permitory/pkg/permit"
)

// MaxWindowK bounds the sliding window size; mirrors the on-chain
// account allocation.
const MaxWindowK = 128

// authorizerState is the per-authorizer consumed-permit record shared
// by the local backends. JSON tags shape the file snapshot, CBOR tags
// the leveldb records.
type authorizerState struct {
	NextSequence uint64          `json:"next_sequence,omitempty" cbor:"1,keyasint,omitempty"`
	UsedNonces   map[uint64]bool `json:"used_nonces,omitempty" cbor:"2,keyasint,omitempty"`
	Allowances   map[string]bool `json:"allowances,omitempty" cbor:"3,keyasint,omitempty"`
	// Window holds the highest consumed nonces, ascending
	Window []uint64 `json:"window,omitempty" cbor:"4,keyasint,omitempty"`
}

// check reports whether the envelope would be a replay. It never
// mutates the state.
func (s *authorizerState) check(env *permit.Envelope) error {
	switch m := env.Mode.(type) {
	case permit.Sequence:
		if uint64(m) < s.NextSequence {
			return rejected("sequence %d below watermark %d", uint64(m), s.NextSequence)
		}
	case permit.Nonce:
		if s.UsedNonces[uint64(m)] {
			return rejected("nonce %d already used", uint64(m))
		}
	case permit.Allowance:
		id := hex.EncodeToString(m[:])
		if s.Allowances[id] {
			return rejected("allowance %s already consumed", id)
		}
	case permit.Window:
		if m.K == 0 || m.K > MaxWindowK {
			return rejected("window size %d out of range", m.K)
		}
		nonce := env.Nonce
		for _, used := range s.Window {
			if used == nonce {
				return rejected("nonce %d already in window", nonce)
			}
		}
		if len(s.Window) >= int(m.K) && nonce <= s.Window[0] {
			return rejected("nonce %d below window floor %d", nonce, s.Window[0])
		}
	default:
		return rejected("unsupported replay mode %s", env.Mode.Mode())
	}
	return nil
}

// commit records the envelope as consumed. Callers run check first
// under the same lock or transaction.
func (s *authorizerState) commit(env *permit.Envelope) {
	switch m := env.Mode.(type) {
	case permit.Sequence:
		s.NextSequence = uint64(m) + 1
	case permit.Nonce:
		if s.UsedNonces == nil {
			s.UsedNonces = make(map[uint64]bool)
		}
		s.UsedNonces[uint64(m)] = true
	case permit.Allowance:
		if s.Allowances == nil {
			s.Allowances = make(map[string]bool)
		}
		s.Allowances[hex.EncodeToString(m[:])] = true
	case permit.Window:
		s.Window = append(s.Window, env.Nonce)
		sort.Slice(s.Window, func(i, j int) bool { return s.Window[i] < s.Window[j] })
		if k := int(m.K); len(s.Window) > k {
			s.Window = s.Window[len(s.Window)-k:]
		}
	}
}

func (s *authorizerState) checkCommit(env *permit.Envelope) error {
	if err := s.check(env); err != nil {
		return err
	}
	s.commit(env)
	return nil
}
