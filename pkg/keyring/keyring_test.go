package keyring

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ambientlabs/permitory/pkg/crypt"
	"github.com/ambientlabs/permitory/pkg/permit"
)

func TestMemoryKeyring(t *testing.T) {
	ctx := context.Background()
	kr := NewMemoryKeyring("")

	key, err := kr.Generate(ctx, permit.KeyTypeEd25519, "trader")
	require.NoError(t, err)
	assert.Equal(t, "trader", key.ID())
	assert.Equal(t, permit.KeyTypeEd25519, key.PublicKey().KeyType())

	// signatures verify against the stored key
	msg := []byte("canonical bytes")
	sig, err := key.Sign(ctx, msg)
	require.NoError(t, err)
	assert.True(t, key.PublicKey().VerifySignature(sig, msg))

	got, err := kr.Get(ctx, "trader")
	require.NoError(t, err)
	assert.True(t, got.PublicKey().Equal(key.PublicKey()))

	_, err = kr.Get(ctx, "nobody")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	_, err = kr.Generate(ctx, permit.KeyTypeEd25519, "trader")
	assert.Error(t, err, "duplicate id")
}

func TestMemoryKeyringDefaultID(t *testing.T) {
	ctx := context.Background()
	kr := NewMemoryKeyring("")

	seed := make([]byte, 32)
	seed[0] = 1
	priv, err := crypt.NewEd25519PrivateKey(seed)
	require.NoError(t, err)

	key, err := kr.Import(ctx, priv, "")
	require.NoError(t, err)
	assert.NotEmpty(t, key.ID())

	got, err := kr.Get(ctx, key.ID())
	require.NoError(t, err)
	assert.True(t, got.PublicKey().Equal(priv.Public()))
}

func TestFileKeyringPersistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "keyring.json")

	kr, err := NewFileKeyring(path)
	require.NoError(t, err)

	ed, err := kr.Generate(ctx, permit.KeyTypeEd25519, "primary")
	require.NoError(t, err)
	_, err = kr.Generate(ctx, permit.KeyTypeSecp256k1, "secondary")
	require.NoError(t, err)

	reopened, err := NewFileKeyring(path)
	require.NoError(t, err)

	keys, err := Collect(reopened.List(ctx))
	require.NoError(t, err)
	assert.Len(t, keys, 2)

	got, err := reopened.Get(ctx, "primary")
	require.NoError(t, err)
	assert.True(t, got.PublicKey().Equal(ed.PublicKey()))

	msg := []byte("still signs after reload")
	sig, err := got.Sign(ctx, msg)
	require.NoError(t, err)
	assert.True(t, got.PublicKey().VerifySignature(sig, msg))
}

func TestRegistry(t *testing.T) {
	ctx := context.Background()

	kr, err := Registry().New(ctx, "mem", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Mem", kr.Name())

	_, err = Registry().New(ctx, "bogus", nil, nil)
	assert.Error(t, err)
}
