package verifier

import (
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/ambientlabs/permitory/pkg/permit"
)

// ConsumedEvent is emitted once per accepted permit, after the replay
// state is committed. PermitHash identifies the exact canonical bytes
// that were authorized; equal envelopes always hash equally.
type ConsumedEvent struct {
	PermitHash  [32]byte
	Domain      permit.Domain
	Authorizer  permit.PubKey
	Action      string
	Mode        string
	ReplayValue uint64
	ExpiresUnix int64
	Relayer     *permit.PubKey
	ConsumedAt  time.Time
}

func newConsumedEvent(raw []byte, env *permit.Envelope, at time.Time) *ConsumedEvent {
	return &ConsumedEvent{
		PermitHash:  blake2b.Sum256(raw),
		Domain:      env.Domain,
		Authorizer:  env.Authorizer,
		Action:      env.Action.Kind(),
		Mode:        env.Mode.Mode(),
		ReplayValue: env.ReplayValue(),
		ExpiresUnix: env.ExpiresUnix,
		Relayer:     env.Relayer,
		ConsumedAt:  at,
	}
}
