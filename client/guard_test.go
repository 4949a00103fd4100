package client

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardSingleCallerRuns(t *testing.T) {
	g := NewGuard()

	tok, err := g.Do(context.Background(), func() (string, error) { return "tok-1", nil })
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)
}

func TestGuardConcurrentCallersShareOneRefresh(t *testing.T) {
	g := NewGuard()

	var calls atomic.Int64
	started := make(chan struct{})
	release := make(chan struct{})
	refresh := func() (string, error) {
		calls.Add(1)
		close(started)
		<-release
		return "fresh-token", nil
	}

	leaderDone := make(chan struct{})
	go func() {
		defer close(leaderDone)
		tok, err := g.Do(context.Background(), refresh)
		assert.NoError(t, err)
		assert.Equal(t, "fresh-token", tok)
	}()
	<-started

	// Everyone arriving while the leader is in flight waits for its result.
	const n = 16
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := g.Do(context.Background(), func() (string, error) {
				t.Error("waiter must not run its own refresh")
				return "", nil
			})
			assert.NoError(t, err)
			assert.Equal(t, "fresh-token", tok)
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	<-leaderDone

	assert.Equal(t, int64(1), calls.Load())
}

func TestGuardFailurePropagatesToAllWaiters(t *testing.T) {
	g := NewGuard()
	refreshErr := errors.New("refresh rejected")

	started := make(chan struct{})
	release := make(chan struct{})
	leaderDone := make(chan struct{})
	go func() {
		defer close(leaderDone)
		_, err := g.Do(context.Background(), func() (string, error) {
			close(started)
			<-release
			return "", refreshErr
		})
		assert.ErrorIs(t, err, refreshErr)
	}()
	<-started

	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := g.Do(context.Background(), func() (string, error) { return "", nil })
			// Waiters are rejected with the leader's error, never left hanging.
			assert.ErrorIs(t, err, refreshErr)
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	<-leaderDone
}

func TestGuardRecoversAfterFailure(t *testing.T) {
	g := NewGuard()

	_, err := g.Do(context.Background(), func() (string, error) { return "", errors.New("boom") })
	require.Error(t, err)

	tok, err := g.Do(context.Background(), func() (string, error) { return "tok-2", nil })
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok)
}

func TestGuardWaiterHonorsContext(t *testing.T) {
	g := NewGuard()

	started := make(chan struct{})
	release := make(chan struct{})
	leaderDone := make(chan struct{})
	go func() {
		defer close(leaderDone)
		_, _ = g.Do(context.Background(), func() (string, error) {
			close(started)
			<-release
			return "tok", nil
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	waiterDone := make(chan error, 1)
	go func() {
		_, err := g.Do(ctx, func() (string, error) { return "", nil })
		waiterDone <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-waiterDone:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled waiter did not return")
	}

	close(release)
	<-leaderDone
}
