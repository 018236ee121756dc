package fixture

import (
	"encoding/hex"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ambientlabs/permitory/pkg/permit"
)

func TestCorpusRoundTrip(t *testing.T) {
	vectors, err := Generate(Corpus())
	require.NoError(t, err)
	require.Len(t, vectors, len(Corpus()))
	require.NoError(t, Check(vectors))

	// regeneration is byte identical
	again, err := Generate(Corpus())
	require.NoError(t, err)
	assert.Equal(t, vectors, again)
}

func TestCheckDetectsTampering(t *testing.T) {
	vectors, err := Generate(Corpus())
	require.NoError(t, err)

	tampered := make([]Vector, len(vectors))
	copy(tampered, vectors)
	sig := []byte(tampered[0].Signature)
	if sig[0] == 'f' {
		sig[0] = '0'
	} else {
		sig[0] = 'f'
	}
	tampered[0].Signature = string(sig)
	assert.Error(t, Check(tampered))
}

func TestCheckRejectsWrongAuthorizer(t *testing.T) {
	cases := Corpus()[:1]
	vectors, err := Generate(cases)
	require.NoError(t, err)

	// swap the seed for another key; the envelope authorizer no longer matches
	vectors[0].Seed = "ff" + vectors[0].Seed[2:]
	assert.Error(t, Check(vectors))
}

func mustHex(t *testing.T, s string) []byte {
	raw, err := hex.DecodeString(s)
	require.NoError(t, err)
	return raw
}

func TestWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.json")

	vectors, err := Generate(Corpus())
	require.NoError(t, err)
	require.NoError(t, Write(path, vectors))

	loaded, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, vectors, loaded)
	assert.NoError(t, Check(loaded))
}

func TestGenerateSetsAuthorizer(t *testing.T) {
	cases := Corpus()[:1]
	vectors, err := Generate(cases)
	require.NoError(t, err)

	var env permit.Envelope
	raw := mustHex(t, vectors[0].Envelope)
	require.NoError(t, env.UnmarshalBinary(raw))
	assert.NotEqual(t, permit.PubKey{}, env.Authorizer)
	assert.Equal(t, permit.KeyTypeEd25519, env.KeyType)
}
