package replay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ambientlabs/permitory/pkg/config"
	"github.com/ambientlabs/permitory/pkg/metrics"
	"github.com/ambientlabs/permitory/pkg/permit"
	"github.com/ambientlabs/permitory/pkg/utils"
)

const replayDir = "replay_v1"

// File keeps consumed-permit state in memory and snapshots it to one
// JSON file per cluster after every successful commit.
type File struct {
	baseDir string
	mem     InMemory
}

// snapshot is the on-disk form: authorizers keyed by base58
type snapshot map[string]*authorizerState

func tryLoad(baseDir string) (map[permit.Cluster]authorizerMap, error) {
	dir := filepath.Join(baseDir, replayDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil // Not an error, just no data
		}
		return nil, err
	}

	out := make(map[permit.Cluster]authorizerMap)
	for _, ent := range entries {
		if !ent.Type().IsRegular() || !strings.HasSuffix(ent.Name(), ".json") {
			continue
		}
		name := ent.Name()
		cluster, err := permit.ParseCluster(name[:len(name)-5])
		if err != nil {
			return nil, err
		}

		filename := filepath.Join(dir, name)
		fd, err := os.Open(filename)
		if err != nil {
			return nil, err
		}
		var snap snapshot
		decodeErr := json.NewDecoder(fd).Decode(&snap)
		if closeErr := fd.Close(); closeErr != nil && decodeErr == nil {
			return nil, closeErr
		}
		if decodeErr != nil {
			return nil, decodeErr
		}

		authorizers := make(authorizerMap, len(snap))
		for key, state := range snap {
			pk, err := permit.ParsePubKey(key)
			if err != nil {
				return nil, err
			}
			authorizers[pk] = state
		}
		out[cluster] = authorizers
	}

	return out, nil
}

func NewFileStore(baseDir string) (*File, error) {
	st := File{
		baseDir: baseDir,
	}

	var err error
	opts := metrics.FileOperationInterceptorOptions[map[permit.Cluster]authorizerMap]{
		Operation: "read",
		TargetFunc: func() (map[permit.Cluster]authorizerMap, error) {
			return tryLoad(baseDir)
		},
	}
	st.mem.clusters, err = metrics.FileOperationInterceptor(&opts)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func write(baseDir string, authorizers authorizerMap, cluster permit.Cluster) error {
	dir := filepath.Join(baseDir, replayDir)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	snap := make(snapshot, len(authorizers))
	for pk, state := range authorizers {
		snap[pk.String()] = state
	}
	buf, err := json.MarshalIndent(snap, "", "    ")
	if err != nil {
		return err
	}

	path := filepath.Join(dir, fmt.Sprintf("%s.json", cluster.String()))
	return utils.WriteRename(path, "replay", buf)
}

func writeReplayData(baseDir string, authorizers authorizerMap, cluster permit.Cluster) error {
	opts := metrics.FileOperationInterceptorOptions[bool]{
		Operation: "write",
		TargetFunc: func() (bool, error) {
			err := write(baseDir, authorizers, cluster)
			return err == nil, err
		},
	}
	_, err := metrics.FileOperationInterceptor(&opts)
	return err
}

func (f *File) CheckCommit(ctx context.Context, env *permit.Envelope) error {
	f.mem.mtx.Lock()
	defer f.mem.mtx.Unlock()

	if err := f.mem.checkCommitUnlocked(env); err != nil {
		return err
	}
	cluster := env.Domain.Cluster
	return writeReplayData(f.baseDir, f.mem.clusters[cluster], cluster)
}

func init() {
	RegisterStore("file", func(ctx context.Context, node *yaml.Node, global config.GlobalContext) (storeImpl, error) {
		return NewFileStore(global.GetBaseDir())
	})
}
