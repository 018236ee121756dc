package replay

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ambientlabs/permitory/pkg/errors"
	"github.com/ambientlabs/permitory/pkg/permit"
)

func testEnvelope(authorizer byte, cluster permit.Cluster, mode permit.ReplayMode, nonce uint64) *permit.Envelope {
	return &permit.Envelope{
		Domain: permit.Domain{
			ProgramID: permit.PubKey{0xAA},
			Cluster:   cluster,
			Version:   1,
		},
		Authorizer:  permit.PubKey{authorizer},
		KeyType:     permit.KeyTypeEd25519,
		Action:      permit.Noop{},
		Mode:        mode,
		ExpiresUnix: 1700000000,
		Nonce:       nonce,
	}
}

func TestSequenceWatermark(t *testing.T) {
	var state authorizerState

	assert.NoError(t, state.checkCommit(testEnvelope(1, permit.ClusterTestnet, permit.Sequence(5), 0)))
	assert.Error(t, state.checkCommit(testEnvelope(1, permit.ClusterTestnet, permit.Sequence(5), 0)))
	assert.Error(t, state.checkCommit(testEnvelope(1, permit.ClusterTestnet, permit.Sequence(4), 0)))
	assert.NoError(t, state.checkCommit(testEnvelope(1, permit.ClusterTestnet, permit.Sequence(6), 0)))
	// gaps are allowed, the watermark only moves forward
	assert.NoError(t, state.checkCommit(testEnvelope(1, permit.ClusterTestnet, permit.Sequence(100), 0)))
	assert.Equal(t, uint64(101), state.NextSequence)
}

func TestNonceOneShot(t *testing.T) {
	var state authorizerState

	assert.NoError(t, state.checkCommit(testEnvelope(1, permit.ClusterTestnet, permit.Nonce(42), 42)))
	assert.Error(t, state.checkCommit(testEnvelope(1, permit.ClusterTestnet, permit.Nonce(42), 42)))
	assert.NoError(t, state.checkCommit(testEnvelope(1, permit.ClusterTestnet, permit.Nonce(43), 43)))
}

func TestFailedCheckLeavesStateUntouched(t *testing.T) {
	var state authorizerState
	require.NoError(t, state.checkCommit(testEnvelope(1, permit.ClusterTestnet, permit.Sequence(10), 0)))

	before := state.NextSequence
	require.Error(t, state.checkCommit(testEnvelope(1, permit.ClusterTestnet, permit.Sequence(3), 0)))
	assert.Equal(t, before, state.NextSequence)
}

func TestAllowanceConsumedOnce(t *testing.T) {
	var state authorizerState
	id := permit.Allowance{9, 9, 9}

	assert.NoError(t, state.checkCommit(testEnvelope(1, permit.ClusterTestnet, id, 0)))
	assert.Error(t, state.checkCommit(testEnvelope(1, permit.ClusterTestnet, id, 0)))

	other := permit.Allowance{8}
	assert.NoError(t, state.checkCommit(testEnvelope(1, permit.ClusterTestnet, other, 0)))
}

func TestWindowTopK(t *testing.T) {
	var state authorizerState
	mode := permit.Window{K: 3}

	for _, nonce := range []uint64{100, 200, 150, 300} {
		assert.NoError(t, state.checkCommit(testEnvelope(1, permit.ClusterTestnet, mode, nonce)))
	}
	// 100 fell out of the window
	assert.Equal(t, []uint64{150, 200, 300}, state.Window)

	assert.Error(t, state.checkCommit(testEnvelope(1, permit.ClusterTestnet, mode, 140)), "below window floor")
	assert.Error(t, state.checkCommit(testEnvelope(1, permit.ClusterTestnet, mode, 150)), "the floor itself")
	assert.NoError(t, state.checkCommit(testEnvelope(1, permit.ClusterTestnet, mode, 151)), "one above the floor")
	assert.Error(t, state.checkCommit(testEnvelope(1, permit.ClusterTestnet, mode, 200)), "duplicate")
	assert.NoError(t, state.checkCommit(testEnvelope(1, permit.ClusterTestnet, mode, 175)))
	assert.Equal(t, []uint64{175, 200, 300}, state.Window)
}

func TestWindowSizeBounds(t *testing.T) {
	var state authorizerState

	assert.Error(t, state.checkCommit(testEnvelope(1, permit.ClusterTestnet, permit.Window{K: 0}, 1)))
	assert.Error(t, state.checkCommit(testEnvelope(1, permit.ClusterTestnet, permit.Window{K: MaxWindowK + 1}, 1)))
	assert.NoError(t, state.checkCommit(testEnvelope(1, permit.ClusterTestnet, permit.Window{K: MaxWindowK}, 1)))
}

func TestInMemoryIsolation(t *testing.T) {
	var store InMemory
	ctx := context.Background()

	require.NoError(t, store.CheckCommit(ctx, testEnvelope(1, permit.ClusterTestnet, permit.Nonce(42), 42)))
	assert.Error(t, store.CheckCommit(ctx, testEnvelope(1, permit.ClusterTestnet, permit.Nonce(42), 42)))

	// another authorizer and another cluster are independent
	assert.NoError(t, store.CheckCommit(ctx, testEnvelope(2, permit.ClusterTestnet, permit.Nonce(42), 42)))
	assert.NoError(t, store.CheckCommit(ctx, testEnvelope(1, permit.ClusterDevnet, permit.Nonce(42), 42)))
}

func TestConcurrentSameNonce(t *testing.T) {
	var store InMemory
	ctx := context.Background()

	const workers = 32
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- store.CheckCommit(ctx, testEnvelope(1, permit.ClusterMainnet, permit.Nonce(7), 7))
		}()
	}
	wg.Wait()
	close(results)

	var accepted int
	for err := range results {
		if err == nil {
			accepted++
		}
	}
	assert.Equal(t, 1, accepted)
}

func TestFileStorePersistence(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.CheckCommit(ctx, testEnvelope(1, permit.ClusterTestnet, permit.Nonce(42), 42)))
	require.NoError(t, store.CheckCommit(ctx, testEnvelope(1, permit.ClusterTestnet, permit.Sequence(9), 0)))

	// a fresh instance over the same directory remembers what was consumed
	reopened, err := NewFileStore(dir)
	require.NoError(t, err)

	assert.Error(t, reopened.CheckCommit(ctx, testEnvelope(1, permit.ClusterTestnet, permit.Nonce(42), 42)))
	assert.Error(t, reopened.CheckCommit(ctx, testEnvelope(1, permit.ClusterTestnet, permit.Sequence(9), 0)))
	assert.NoError(t, reopened.CheckCommit(ctx, testEnvelope(1, permit.ClusterTestnet, permit.Nonce(43), 43)))
}

func TestLevelDBStorePersistence(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewLevelDBStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.CheckCommit(ctx, testEnvelope(1, permit.ClusterLocalnet, permit.Window{K: 2}, 100)))
	require.NoError(t, store.CheckCommit(ctx, testEnvelope(1, permit.ClusterLocalnet, permit.Window{K: 2}, 200)))
	assert.Error(t, store.CheckCommit(ctx, testEnvelope(1, permit.ClusterLocalnet, permit.Window{K: 2}, 50)))
	require.NoError(t, store.Close())

	reopened, err := NewLevelDBStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	assert.Error(t, reopened.CheckCommit(ctx, testEnvelope(1, permit.ClusterLocalnet, permit.Window{K: 2}, 200)))
	assert.NoError(t, reopened.CheckCommit(ctx, testEnvelope(1, permit.ClusterLocalnet, permit.Window{K: 2}, 300)))
}

func TestRejectionCode(t *testing.T) {
	var state authorizerState
	require.NoError(t, state.checkCommit(testEnvelope(1, permit.ClusterTestnet, permit.Nonce(1), 1)))

	err := state.checkCommit(testEnvelope(1, permit.ClusterTestnet, permit.Nonce(1), 1))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReplay)
	assert.Equal(t, errors.CodeReplayRejected, errors.CodeOf(err))
}

func TestRegistry(t *testing.T) {
	ctx := context.Background()

	store, err := Registry().New(ctx, "none", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "none", store.Backend())

	store, err = Registry().New(ctx, "mem", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "mem", store.Backend())
	assert.NoError(t, store.CheckCommit(ctx, testEnvelope(1, permit.ClusterTestnet, permit.Nonce(1), 1)))
	assert.Error(t, store.CheckCommit(ctx, testEnvelope(1, permit.ClusterTestnet, permit.Nonce(1), 1)))

	_, err = Registry().New(ctx, "bogus", nil, nil)
	assert.Error(t, err)
}
