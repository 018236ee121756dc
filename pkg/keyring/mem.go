package keyring

import (
	"context"
	"fmt"
	"sync"

	"github.com/mr-tron/base58"
	"github.com/segmentio/ksuid"
	"gopkg.in/yaml.v3"

	"github.com/ambientlabs/permitory/pkg/config"
	"github.com/ambientlabs/permitory/pkg/crypt"
	"github.com/ambientlabs/permitory/pkg/permit"
)

type memKey struct {
	priv crypt.PrivateKey
	id   string
	kr   Keyring
}

func (k *memKey) ID() string                 { return k.id }
func (k *memKey) PublicKey() crypt.PublicKey { return k.priv.Public() }
func (k *memKey) Keyring() Keyring           { return k.kr }

func (k *memKey) Sign(ctx context.Context, message []byte) (crypt.Signature, error) {
	return k.priv.Sign(message)
}

// Memory holds keys in process memory only. It backs the file keyring
// and is registered on its own for tests and ephemeral use.
type Memory struct {
	name  string
	keys  []*memKey
	index map[string]*memKey
	mtx   sync.Mutex
}

func NewMemoryKeyring(name string) *Memory {
	if name == "" {
		name = "Mem"
	}
	return &Memory{
		name:  name,
		index: make(map[string]*memKey),
	}
}

func (m *Memory) Name() string                    { return m.name }
func (m *Memory) Close(ctx context.Context) error { return nil }

func (m *Memory) List(ctx context.Context) KeyIterator {
	m.mtx.Lock()
	keys := make([]*memKey, len(m.keys))
	copy(keys, m.keys)
	m.mtx.Unlock()

	idx := 0
	return IteratorFunc(func() (KeyReference, error) {
		if idx == len(keys) {
			return nil, ErrDone
		}
		key := keys[idx]
		idx++
		return key, nil
	})
}

func (m *Memory) Get(ctx context.Context, id string) (KeyReference, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	key, ok := m.index[id]
	if !ok {
		return nil, fmt.Errorf("(%s): %w: %s", m.name, ErrKeyNotFound, id)
	}
	return key, nil
}

// defaultKeyID is the base58 form of the public key bytes
func defaultKeyID(priv crypt.PrivateKey) string {
	return base58.Encode(crypt.PublicKeyBytes(priv.Public()))
}

func (m *Memory) add(priv crypt.PrivateKey, name string) (KeyReference, error) {
	id := name
	if id == "" {
		id = defaultKeyID(priv)
	}

	m.mtx.Lock()
	defer m.mtx.Unlock()
	if _, ok := m.index[id]; ok {
		return nil, fmt.Errorf("(%s): duplicate key id: %s", m.name, id)
	}
	key := memKey{priv: priv, id: id, kr: m}
	m.keys = append(m.keys, &key)
	m.index[id] = &key
	return &key, nil
}

func (m *Memory) Import(ctx context.Context, priv crypt.PrivateKey, name string) (KeyReference, error) {
	return m.add(priv, name)
}

func (m *Memory) Generate(ctx context.Context, kt permit.KeyType, name string) (KeyReference, error) {
	priv, err := crypt.GenerateKey(kt)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = ksuid.New().String()
	}
	return m.add(priv, name)
}

func init() {
	RegisterKeyring("mem", func(ctx context.Context, node *yaml.Node, global config.GlobalContext) (Keyring, error) {
		return NewMemoryKeyring("Mem"), nil
	})
}

var (
	_ Importer  = (*Memory)(nil)
	_ Generator = (*Memory)(nil)
)
