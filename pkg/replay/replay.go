// Package replay tracks which permits have been consumed. The stores
// implement check-and-commit as one atomic operation per authorizer:
// two concurrent submissions of the same nonce can never both pass, and
// a failed check leaves the stored state untouched.
package replay

import (
	"context"
	stderr "errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/ambientlabs/permitory/pkg/config"
	"github.com/ambientlabs/permitory/pkg/errors"
	"github.com/ambientlabs/permitory/pkg/metrics"
	"github.com/ambientlabs/permitory/pkg/permit"
)

// ErrReplay is wrapped by every rejection a store produces
var ErrReplay = stderr.New("replay protection check failed")

func rejected(format string, a ...any) error {
	return errors.Wrap(fmt.Errorf("%w: %s", ErrReplay, fmt.Sprintf(format, a...)), errors.CodeReplayRejected)
}

// Store tests an envelope against the consumed-permit state for its
// authorizer and records it in the same atomic step.
type Store interface {
	CheckCommit(ctx context.Context, env *permit.Envelope) error
	Backend() string
}

// storeImpl is the interface that backends implement (without Backend())
type storeImpl interface {
	CheckCommit(ctx context.Context, env *permit.Envelope) error
}

// namedStore wraps a storeImpl with its registered name and records
// per-backend operation metrics around every check.
type namedStore struct {
	storeImpl
	name string
}

func (n *namedStore) Backend() string { return n.name }

func (n *namedStore) CheckCommit(ctx context.Context, env *permit.Envelope) error {
	opts := metrics.ReplayInterceptorOptions{
		Backend: n.name,
		Mode:    env.Mode.Mode(),
		TargetFunc: func() (bool, error) {
			err := n.storeImpl.CheckCommit(ctx, env)
			return err == nil, err
		},
	}
	_, err := metrics.ReplayInterceptor(&opts)
	return err
}

// Ignore performs no replay protection and accepts everything
type Ignore struct{}

func (Ignore) CheckCommit(context.Context, *permit.Envelope) error { return nil }

// Backend returns the backend name
func (Ignore) Backend() string { return "none" }

var _ Store = (*Ignore)(nil)

type Factory interface {
	New(ctx context.Context, name string, conf *yaml.Node, global config.GlobalContext) (Store, error)
}

type newStoreFunc func(ctx context.Context, conf *yaml.Node, global config.GlobalContext) (storeImpl, error)

type registry map[string]newStoreFunc

func (r registry) New(ctx context.Context, name string, conf *yaml.Node, global config.GlobalContext) (Store, error) {
	if name == "none" {
		return Ignore{}, nil
	}
	if newFunc, ok := r[name]; ok {
		log.WithField("backend", name).Info("Initializing replay protection backend")
		impl, err := newFunc(ctx, conf, global)
		if err != nil {
			return nil, err
		}
		return &namedStore{storeImpl: impl, name: name}, nil
	}
	return nil, fmt.Errorf("unknown replay protection backend: %s", name)
}

var storeRegistry = make(registry)

func RegisterStore(name string, newFunc newStoreFunc) {
	storeRegistry[name] = newFunc
}

func Registry() Factory {
	return storeRegistry
}
