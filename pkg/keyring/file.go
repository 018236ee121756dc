package keyring

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ambientlabs/permitory/pkg/config"
	"github.com/ambientlabs/permitory/pkg/crypt"
	"github.com/ambientlabs/permitory/pkg/permit"
	"github.com/ambientlabs/permitory/pkg/utils"
)

type FileConfig struct {
	File string `yaml:"file"`
}

type secretEntry struct {
	Name    string `json:"name"`
	KeyType string `json:"key_type"`
	Secret  string `json:"secret"`
}

// File is a keyring persisted as a JSON file of hex encoded secrets.
// All reads are served from memory; every mutation rewrites the file
// atomically.
type File struct {
	path string
	mem  *Memory
}

func NewFileKeyring(path string) (*File, error) {
	f := File{
		path: path,
		mem:  NewMemoryKeyring("File"),
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &f, nil
		}
		return nil, fmt.Errorf("(File): %w", err)
	}

	var entries []*secretEntry
	if err := json.Unmarshal(content, &entries); err != nil {
		return nil, fmt.Errorf("(File): %w", err)
	}
	for _, ent := range entries {
		kt, err := permit.ParseKeyType(ent.KeyType)
		if err != nil {
			return nil, fmt.Errorf("(File): key `%s': %w", ent.Name, err)
		}
		raw, err := hex.DecodeString(ent.Secret)
		if err != nil {
			return nil, fmt.Errorf("(File): key `%s': %w", ent.Name, err)
		}
		priv, err := crypt.ParsePrivateKey(kt, raw)
		if err != nil {
			return nil, fmt.Errorf("(File): key `%s': %w", ent.Name, err)
		}
		if _, err := f.mem.add(priv, ent.Name); err != nil {
			return nil, err
		}
	}
	return &f, nil
}

func (f *File) Name() string                         { return "File" }
func (f *File) Close(ctx context.Context) error      { return nil }
func (f *File) List(ctx context.Context) KeyIterator { return f.mem.List(ctx) }
func (f *File) Get(ctx context.Context, id string) (KeyReference, error) {
	key, err := f.mem.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &fileKey{KeyReference: key, kr: f}, nil
}

// fileKey rebinds a memory reference to the file keyring
type fileKey struct {
	KeyReference
	kr *File
}

func (k *fileKey) Keyring() Keyring { return k.kr }

func (f *File) save() error {
	f.mem.mtx.Lock()
	entries := make([]*secretEntry, len(f.mem.keys))
	for i, key := range f.mem.keys {
		entries[i] = &secretEntry{
			Name:    key.id,
			KeyType: key.priv.KeyType().String(),
			Secret:  hex.EncodeToString(crypt.PrivateKeyBytes(key.priv)),
		}
	}
	f.mem.mtx.Unlock()

	buf, err := json.MarshalIndent(entries, "", "    ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0750); err != nil {
		return err
	}
	return utils.WriteRename(f.path, "keyring", buf)
}

func (f *File) Import(ctx context.Context, priv crypt.PrivateKey, name string) (KeyReference, error) {
	key, err := f.mem.Import(ctx, priv, name)
	if err != nil {
		return nil, err
	}
	if err := f.save(); err != nil {
		return nil, fmt.Errorf("(File): %w", err)
	}
	return &fileKey{KeyReference: key, kr: f}, nil
}

func (f *File) Generate(ctx context.Context, kt permit.KeyType, name string) (KeyReference, error) {
	key, err := f.mem.Generate(ctx, kt, name)
	if err != nil {
		return nil, err
	}
	if err := f.save(); err != nil {
		return nil, fmt.Errorf("(File): %w", err)
	}
	return &fileKey{KeyReference: key, kr: f}, nil
}

func init() {
	RegisterKeyring("file", func(ctx context.Context, node *yaml.Node, global config.GlobalContext) (Keyring, error) {
		var conf FileConfig
		if node != nil && node.Kind != 0 {
			if err := node.Decode(&conf); err != nil {
				return nil, err
			}
		}
		path := conf.File
		if path == "" {
			path = filepath.Join(global.GetBaseDir(), "keyring.json")
		}
		return NewFileKeyring(path)
	})
}

var (
	_ Importer  = (*File)(nil)
	_ Generator = (*File)(nil)
)
