// Package keyring stores the private keys envelopes are signed with
// and exposes them as sign-only references. Backends register
// themselves by driver name; key material never leaves the backend.
package keyring

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/ambientlabs/permitory/pkg/config"
	"github.com/ambientlabs/permitory/pkg/crypt"
	"github.com/ambientlabs/permitory/pkg/permit"
)

// KeyReference represents a public key whose private counterpart is
// held by a backend
type KeyReference interface {
	ID() string
	PublicKey() crypt.PublicKey
	Sign(ctx context.Context, message []byte) (crypt.Signature, error)
	Keyring() Keyring
}

// KeyIterator is used to iterate over stored keys
type KeyIterator interface {
	Next() (KeyReference, error)
}

type IteratorFunc func() (KeyReference, error)

func (i IteratorFunc) Next() (KeyReference, error) { return i() }

// Keyring is a store of signing keys
type Keyring interface {
	List(ctx context.Context) KeyIterator
	Get(ctx context.Context, id string) (KeyReference, error)
	Close(ctx context.Context) error
	Name() string
}

// Importer is a backend that accepts externally created keys
type Importer interface {
	Keyring
	Import(ctx context.Context, priv crypt.PrivateKey, name string) (KeyReference, error)
}

// Generator is a backend that can create keys on its own
type Generator interface {
	Keyring
	Generate(ctx context.Context, kt permit.KeyType, name string) (KeyReference, error)
}

var (
	// ErrDone is returned by an iterator when the iteration is over
	ErrDone = errors.New("done")
	// ErrKeyNotFound is returned by Get for an unknown id
	ErrKeyNotFound = errors.New("key not found")
)

type newKeyringFunc func(ctx context.Context, conf *yaml.Node, global config.GlobalContext) (Keyring, error)

type Factory interface {
	New(ctx context.Context, name string, conf *yaml.Node, global config.GlobalContext) (Keyring, error)
}

type registry map[string]newKeyringFunc

func (r registry) New(ctx context.Context, name string, conf *yaml.Node, global config.GlobalContext) (Keyring, error) {
	if newFunc, ok := r[name]; ok {
		log.WithField("driver", name).Info("Initializing keyring")
		return newFunc(ctx, conf, global)
	}
	return nil, fmt.Errorf("unknown keyring driver: %s", name)
}

var keyringRegistry = make(registry)

func RegisterKeyring(name string, newFunc newKeyringFunc) {
	keyringRegistry[name] = newFunc
}

func Registry() Factory {
	return keyringRegistry
}

var _ Factory = (registry)(nil)

// Collect drains an iterator into a slice
func Collect(it KeyIterator) ([]KeyReference, error) {
	var keys []KeyReference
	for {
		key, err := it.Next()
		if err != nil {
			if errors.Is(err, ErrDone) {
				return keys, nil
			}
			return nil, err
		}
		keys = append(keys, key)
	}
}
