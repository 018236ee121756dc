// Package verifier runs the full acceptance pipeline for a signed
// permit: decode, domain and version binding, expiry, relayer binding,
// scope policy, signature and finally replay protection. Replay state
// is committed last, so a permit failing any earlier check consumes
// nothing.
package verifier

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ambientlabs/permitory/pkg/config"
	"github.com/ambientlabs/permitory/pkg/crypt"
	"github.com/ambientlabs/permitory/pkg/errors"
	"github.com/ambientlabs/permitory/pkg/metrics"
	"github.com/ambientlabs/permitory/pkg/permit"
	"github.com/ambientlabs/permitory/pkg/replay"
)

// Window mode nonces are millisecond timestamps; anything outside this
// range around the verifier clock is rejected before it can occupy a
// window slot.
const (
	windowPastBound   = 48 * time.Hour
	windowFutureBound = 24 * time.Hour
)

const logAuthorizer = "authorizer"

// Config pins a verifier to one deployment
type Config struct {
	ProgramID permit.PubKey
	Cluster   permit.Cluster
	// Versions lists the accepted envelope versions
	Versions []uint8
	// Policy restricts listed authorizers to a scope set. An
	// authorizer absent from the map is unrestricted.
	Policy map[permit.PubKey]permit.Scopes
	Store  replay.Store
	Logger log.FieldLogger
	// Now overrides the clock
	Now func() time.Time
}

// Verifier accepts or rejects signed permits
type Verifier struct {
	config Config
}

// Request is one signed permit submission
type Request struct {
	// Envelope holds the canonical serialized bytes as transmitted
	Envelope []byte
	// Signature is the 64-byte detached signature over Envelope
	Signature []byte
	// Submitter identifies the relaying party, if any
	Submitter *permit.PubKey
	// FeeQuote is the fee the submitter intends to debit. When set it
	// is checked against the envelope fee bound; nil skips the check
	// for callers that settle fees elsewhere.
	FeeQuote *uint64
}

func New(c *Config) (*Verifier, error) {
	cfg := *c
	if cfg.Store == nil {
		cfg.Store = replay.Ignore{}
	}
	if len(cfg.Versions) == 0 {
		cfg.Versions = []uint8{permit.VersionV1}
	}
	return &Verifier{config: cfg}, nil
}

// PolicyFromConfig resolves the file configuration policy section into
// key based scope sets
func PolicyFromConfig(conf map[string][]string) (map[permit.PubKey]permit.Scopes, error) {
	if conf == nil {
		return nil, nil
	}
	out := make(map[permit.PubKey]permit.Scopes, len(conf))
	for key, names := range conf {
		pk, err := permit.ParsePubKey(key)
		if err != nil {
			return nil, err
		}
		var scopes permit.Scopes
		for _, name := range names {
			bit, err := permit.ParseScope(name)
			if err != nil {
				return nil, err
			}
			scopes |= bit
		}
		out[pk] = scopes
	}
	return out, nil
}

// FromGlobalConfig builds a verifier from the file configuration and an
// initialized replay store
func FromGlobalConfig(c *config.Config, store replay.Store) (*Verifier, error) {
	programID, err := permit.ParsePubKey(c.Domain.ProgramID)
	if err != nil {
		return nil, err
	}
	cluster, err := permit.ParseCluster(c.Domain.Cluster)
	if err != nil {
		return nil, err
	}
	policy, err := PolicyFromConfig(c.Policy)
	if err != nil {
		return nil, err
	}
	return New(&Config{
		ProgramID: programID,
		Cluster:   cluster,
		Versions:  c.Domain.Versions,
		Policy:    policy,
		Store:     store,
	})
}

func (v *Verifier) logger() log.FieldLogger {
	if v.config.Logger != nil {
		return v.config.Logger
	}
	return log.StandardLogger()
}

func (v *Verifier) now() time.Time {
	if v.config.Now != nil {
		return v.config.Now()
	}
	return time.Now()
}

func reject(code errors.Code, format string, a ...any) error {
	return errors.Wrap(fmt.Errorf(format, a...), code)
}

// Verify runs every acceptance check in order and commits the replay
// state only after all of them pass. The returned event describes the
// consumed permit.
func (v *Verifier) Verify(ctx context.Context, req *Request) (*ConsumedEvent, error) {
	var env permit.Envelope
	if err := env.UnmarshalBinary(req.Envelope); err != nil {
		wrapped := errors.Wrap(err, errors.CodeDecode)
		metrics.RecordVerification(resultOf(wrapped), "unknown", "unknown")
		return nil, wrapped
	}

	var event *ConsumedEvent
	opts := metrics.VerifyInterceptorOptions{
		Action:   env.Action.Kind(),
		Mode:     env.Mode.Mode(),
		ResultOf: resultOf,
		TargetFunc: func() (bool, error) {
			var err error
			event, err = v.verifyDecoded(ctx, req, &env)
			return err == nil, err
		},
	}
	if _, err := metrics.VerifyInterceptor(&opts); err != nil {
		return nil, err
	}
	return event, nil
}

func resultOf(err error) string {
	if code := errors.CodeOf(err); code != "" {
		return string(code)
	}
	return "error"
}

func (v *Verifier) verifyDecoded(ctx context.Context, req *Request, env *permit.Envelope) (*ConsumedEvent, error) {
	l := v.logger().WithFields(log.Fields{
		logAuthorizer: env.Authorizer,
		"action":      env.Action.Kind(),
		"mode":        env.Mode.Mode(),
	})

	if env.Domain.ProgramID != v.config.ProgramID || env.Domain.Cluster != v.config.Cluster {
		return nil, reject(errors.CodeDomainMismatch,
			"permit is bound to %s on %s, this verifier serves %s on %s",
			env.Domain.ProgramID, env.Domain.Cluster, v.config.ProgramID, v.config.Cluster)
	}

	if !v.versionAccepted(env.Domain.Version) {
		return nil, reject(errors.CodeVersionUnsupported, "envelope version %d not accepted", env.Domain.Version)
	}

	// this deployment authenticates ed25519 authorizers only; the
	// secp256k1 tag stays reserved in the wire schema
	if env.KeyType != permit.KeyTypeEd25519 {
		return nil, reject(errors.CodeKeyAlgorithmMismatch, "unsupported key type %v", env.KeyType)
	}

	now := v.now()
	if now.Unix() > env.ExpiresUnix {
		return nil, reject(errors.CodeExpired, "permit expired at %d, now %d", env.ExpiresUnix, now.Unix())
	}

	if req.FeeQuote != nil && *req.FeeQuote > env.MaxFeeQuote {
		return nil, reject(errors.CodeFeeExceeded, "fee %d exceeds the authorized bound %d", *req.FeeQuote, env.MaxFeeQuote)
	}

	if env.Relayer != nil {
		if req.Submitter == nil || *req.Submitter != *env.Relayer {
			return nil, reject(errors.CodeRelayerNotAuthorized, "permit is bound to relayer %s", env.Relayer)
		}
	}

	if scopes, restricted := v.config.Policy[env.Authorizer]; restricted && !scopes.Allows(env.Action) {
		return nil, reject(errors.CodeScopeDenied, "action %s not covered by scopes [%s]", env.Action.Kind(), scopes)
	}

	sig, err := crypt.ParseSignature(env.KeyType, req.Signature)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeSignatureInvalid)
	}
	pub := crypt.Ed25519PublicKey(env.Authorizer[:])
	if !pub.VerifySignature(sig, req.Envelope) {
		return nil, reject(errors.CodeSignatureInvalid, "signature does not verify against authorizer key")
	}

	if _, ok := env.Mode.(permit.Window); ok {
		if err := checkWindowFreshness(env.Nonce, now); err != nil {
			return nil, err
		}
	}

	if err := v.config.Store.CheckCommit(ctx, env); err != nil {
		return nil, err
	}

	l.Info("Permit consumed")
	return newConsumedEvent(req.Envelope, env, now), nil
}

func (v *Verifier) versionAccepted(version uint8) bool {
	for _, accepted := range v.config.Versions {
		if version == accepted {
			return true
		}
	}
	return false
}

// checkWindowFreshness bounds a window mode nonce, interpreted as a
// millisecond timestamp, to the verifier clock
func checkWindowFreshness(nonce uint64, now time.Time) error {
	ms := now.UnixMilli()
	if int64(nonce) < ms-windowPastBound.Milliseconds() {
		return reject(errors.CodeReplayRejected, "window nonce %d too far in the past", nonce)
	}
	if int64(nonce) > ms+windowFutureBound.Milliseconds() {
		return reject(errors.CodeReplayRejected, "window nonce %d too far in the future", nonce)
	}
	return nil
}
