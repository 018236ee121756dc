package replay

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"gopkg.in/yaml.v3"

	"github.com/ambientlabs/permitory/pkg/config"
	"github.com/ambientlabs/permitory/pkg/permit"
)

type LevelDBConfig struct {
	Path string `yaml:"path"`
}

// LevelDB keeps consumed-permit state in a local leveldb database, one
// CBOR encoded record per authorizer. Writes are synchronous so an
// acknowledged commit survives a crash.
type LevelDB struct {
	db  *leveldb.DB
	mtx sync.Mutex
}

func NewLevelDBStore(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("(LevelDB): %w", err)
	}
	return &LevelDB{db: db}, nil
}

func (l *LevelDB) Close() error { return l.db.Close() }

func stateKey(env *permit.Envelope) []byte {
	return []byte(fmt.Sprintf("replay/%s/%s", env.Domain.Cluster, env.Authorizer))
}

func (l *LevelDB) CheckCommit(ctx context.Context, env *permit.Envelope) error {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	key := stateKey(env)
	var state authorizerState
	raw, err := l.db.Get(key, nil)
	switch {
	case err == nil:
		if err = cbor.Unmarshal(raw, &state); err != nil {
			return fmt.Errorf("(LevelDB): corrupt state record: %w", err)
		}
	case errors.Is(err, leveldb.ErrNotFound):
		// first permit for this authorizer
	default:
		return fmt.Errorf("(LevelDB): %w", err)
	}

	if err = state.checkCommit(env); err != nil {
		return err
	}

	raw, err = cbor.Marshal(&state)
	if err != nil {
		return fmt.Errorf("(LevelDB): %w", err)
	}
	return l.db.Put(key, raw, &opt.WriteOptions{Sync: true})
}

func init() {
	RegisterStore("leveldb", func(ctx context.Context, node *yaml.Node, global config.GlobalContext) (storeImpl, error) {
		var conf LevelDBConfig
		if node != nil && node.Kind != 0 {
			if err := node.Decode(&conf); err != nil {
				return nil, err
			}
		}
		path := conf.Path
		if path == "" {
			path = filepath.Join(global.GetBaseDir(), "replay_db")
		}
		return NewLevelDBStore(path)
	})
}
