package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetMissingKeyLeavesZeroValue(t *testing.T) {
	m := NewMemory()
	var out []string
	require.NoError(t, m.Get(context.Background(), Assets, &out))
	assert.Nil(t, out)
}

func TestMemoryUpdateRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	err := m.Update(ctx, []string{Assets}, func(tx Tx) error {
		return tx.Put(Assets, []string{"a1", "a2"})
	})
	require.NoError(t, err)

	var out []string
	require.NoError(t, m.Get(ctx, Assets, &out))
	assert.Equal(t, []string{"a1", "a2"}, out)
}

func TestMemoryUpdateErrorDiscardsStagedWrites(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Update(ctx, []string{Assets}, func(tx Tx) error {
		return tx.Put(Assets, []string{"before"})
	}))

	boom := errors.New("boom")
	err := m.Update(ctx, []string{Assets, Requests}, func(tx Tx) error {
		if err := tx.Put(Assets, []string{"after"}); err != nil {
			return err
		}
		if err := tx.Put(Requests, []string{"r1"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var assets []string
	require.NoError(t, m.Get(ctx, Assets, &assets))
	assert.Equal(t, []string{"before"}, assets)

	var requests []string
	require.NoError(t, m.Get(ctx, Requests, &requests))
	assert.Nil(t, requests)
}

func TestMemoryTxReadsItsOwnWrites(t *testing.T) {
	m := NewMemory()
	err := m.Update(context.Background(), []string{Sequences}, func(tx Tx) error {
		counters := map[string]int{}
		if err := tx.Get(Sequences, &counters); err != nil {
			return err
		}
		counters["x"]++
		if err := tx.Put(Sequences, counters); err != nil {
			return err
		}

		var again map[string]int
		if err := tx.Get(Sequences, &again); err != nil {
			return err
		}
		assert.Equal(t, 1, again["x"])
		return nil
	})
	require.NoError(t, err)
}

func TestMemoryTxRejectsUnlistedKeys(t *testing.T) {
	m := NewMemory()
	err := m.Update(context.Background(), []string{Assets}, func(tx Tx) error {
		var out []string
		return tx.Get(Requests, &out)
	})
	assert.Error(t, err)

	err = m.Update(context.Background(), []string{Assets}, func(tx Tx) error {
		return tx.Put(Requests, []string{"r1"})
	})
	assert.Error(t, err)
}

func TestMemoryUpdateRespectsCancelledContext(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.Update(ctx, []string{Assets}, func(tx Tx) error {
		t.Fatal("fn should not run")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

// Concurrent counter increments across overlapping key sets must not lose
// updates or deadlock, whatever order the keys are passed in.
func TestMemoryConcurrentOverlappingUpdates(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	const perWorker = 50
	keyPairs := [][]string{
		{Assets, LoanRequests},
		{LoanRequests, Assets},
		{Assets, LoanRequests, Sequences},
	}

	var wg sync.WaitGroup
	for _, keys := range keyPairs {
		wg.Add(1)
		go func(keys []string) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				err := m.Update(ctx, keys, func(tx Tx) error {
					counters := map[string]int{}
					if err := tx.Get(Assets, &counters); err != nil {
						return err
					}
					counters["n"]++
					return tx.Put(Assets, counters)
				})
				if err != nil {
					t.Error(err)
					return
				}
			}
		}(keys)
	}
	wg.Wait()

	counters := map[string]int{}
	require.NoError(t, m.Get(ctx, Assets, &counters))
	assert.Equal(t, len(keyPairs)*perWorker, counters["n"])
}
