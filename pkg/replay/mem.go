package replay

import (
	"context"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/ambientlabs/permitory/pkg/config"
	"github.com/ambientlabs/permitory/pkg/permit"
)

// cluster -> authorizer -> consumed-permit state
type authorizerMap = map[permit.PubKey]*authorizerState

// InMemory keeps consumed-permit state in memory only. Suitable for
// tests and single-process deployments that may forget state across
// restarts.
type InMemory struct {
	clusters map[permit.Cluster]authorizerMap
	mtx      sync.Mutex
}

// Backend returns the backend name
func (w *InMemory) Backend() string { return "mem" }

func (w *InMemory) CheckCommit(ctx context.Context, env *permit.Envelope) error {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	return w.checkCommitUnlocked(env)
}

func (w *InMemory) checkCommitUnlocked(env *permit.Envelope) error {
	return w.stateFor(env).checkCommit(env)
}

func (w *InMemory) stateFor(env *permit.Envelope) *authorizerState {
	if w.clusters == nil {
		w.clusters = make(map[permit.Cluster]authorizerMap)
	}
	authorizers, ok := w.clusters[env.Domain.Cluster]
	if !ok {
		authorizers = make(authorizerMap)
		w.clusters[env.Domain.Cluster] = authorizers
	}
	state, ok := authorizers[env.Authorizer]
	if !ok {
		state = &authorizerState{}
		authorizers[env.Authorizer] = state
	}
	return state
}

var _ Store = (*InMemory)(nil)

func init() {
	RegisterStore("mem", func(ctx context.Context, node *yaml.Node, global config.GlobalContext) (storeImpl, error) {
		return &InMemory{}, nil
	})
}
