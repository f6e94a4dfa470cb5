package linkage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateCreatesOnce(t *testing.T) {
	store := NewMemoryStore()
	r := NewResolver(store, nil)
	ctx := context.Background()

	var calls int32
	create := func(ctx context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "cus_1", nil
	}

	id, created, err := r.GetOrCreate(ctx, KindCustomer, "42", create)
	require.NoError(t, err)
	assert.Equal(t, "cus_1", id)
	assert.True(t, created)

	id, created, err = r.GetOrCreate(ctx, KindCustomer, "42", create)
	require.NoError(t, err)
	assert.Equal(t, "cus_1", id)
	assert.False(t, created)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGetOrCreateConcurrentCallersShareOneCreation(t *testing.T) {
	store := NewMemoryStore()
	r := NewResolver(store, nil)

	var calls int32
	create := func(ctx context.Context) (string, error) {
		n := atomic.AddInt32(&calls, 1)
		time.Sleep(20 * time.Millisecond)
		return fmt.Sprintf("cus_%d", n), nil
	}

	const callers = 16
	var wg sync.WaitGroup
	ids := make([]string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, _, err := r.GetOrCreate(context.Background(), KindCustomer, "7", create)
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, 1, store.Len(KindCustomer))
	for _, id := range ids {
		assert.Equal(t, "cus_1", id)
	}
}

func TestGetOrCreateCreateErrorStoresNothing(t *testing.T) {
	store := NewMemoryStore()
	r := NewResolver(store, nil)

	_, _, err := r.GetOrCreate(context.Background(), KindPlan, "9", func(ctx context.Context) (string, error) {
		return "", errors.New("processor down")
	})
	require.Error(t, err)
	assert.Equal(t, 0, store.Len(KindPlan))
}

// racingStore simulates another instance writing the linkage between our
// second read and our write.
type racingStore struct {
	*MemoryStore
	once sync.Once
}

func (s *racingStore) PutLinkageIfAbsent(ctx context.Context, kind Kind, localID, remoteID string) (string, error) {
	s.once.Do(func() {
		_, _ = s.MemoryStore.PutLinkageIfAbsent(ctx, kind, localID, "cus_other")
	})
	return s.MemoryStore.PutLinkageIfAbsent(ctx, kind, localID, remoteID)
}

func TestGetOrCreateLosingWriterReturnsWinner(t *testing.T) {
	store := &racingStore{MemoryStore: NewMemoryStore()}
	r := NewResolver(store, nil)

	id, created, err := r.GetOrCreate(context.Background(), KindCustomer, "5", func(ctx context.Context) (string, error) {
		return "cus_mine", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "cus_other", id)
	assert.False(t, created)
	assert.Equal(t, 1, store.Len(KindCustomer))
}

type failingLocker struct{}

func (failingLocker) Lock(ctx context.Context, key string) (func(), error) {
	return nil, errors.New("lock busy")
}

func TestGetOrCreateLockErrorSkipsCreate(t *testing.T) {
	r := NewResolver(NewMemoryStore(), failingLocker{})

	called := false
	_, _, err := r.GetOrCreate(context.Background(), KindSubscription, "3", func(ctx context.Context) (string, error) {
		called = true
		return "sub_1", nil
	})
	require.Error(t, err)
	assert.False(t, called)
}

func TestLookupResolvesRemoteID(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.PutLinkageIfAbsent(context.Background(), KindSubscription, "11", "sub_abc")
	require.NoError(t, err)

	r := NewResolver(store, nil)
	local, found, err := r.Lookup(context.Background(), KindSubscription, "sub_abc")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "11", local)

	_, found, err = r.Lookup(context.Background(), KindSubscription, "sub_missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetOrCreateSurvivesCancelledFirstCaller(t *testing.T) {
	store := NewMemoryStore()
	r := NewResolver(store, nil)

	started := make(chan struct{})
	release := make(chan struct{})
	var calls int32
	var createCtxErr error
	create := func(ctx context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		close(started)
		<-release
		createCtxErr = ctx.Err()
		return "cus_1", nil
	}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, _, err := r.GetOrCreate(firstCtx, KindCustomer, "7", create)
		firstErr <- err
	}()
	<-started

	type result struct {
		id      string
		created bool
		err     error
	}
	second := make(chan result, 1)
	go func() {
		id, created, err := r.GetOrCreate(context.Background(), KindCustomer, "7", create)
		second <- result{id, created, err}
	}()

	cancelFirst()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(release)
	select {
	case res := <-second:
		require.NoError(t, res.err)
		assert.Equal(t, "cus_1", res.id)
	case <-time.After(2 * time.Second):
		t.Fatal("second caller did not return")
	}

	assert.NoError(t, createCtxErr)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	remote, found, _ := store.GetLinkage(context.Background(), KindCustomer, "7")
	assert.True(t, found)
	assert.Equal(t, "cus_1", remote)
}
