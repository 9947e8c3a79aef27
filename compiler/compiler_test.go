package compiler

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWorkerServicesCriticalBeforeActiveBeforeCache(t *testing.T) {
	w := New(nil)
	w.Start()
	defer w.Stop()

	var mu sync.Mutex
	var order []string
	block := make(chan struct{})

	// Hold the worker busy on a first request so all three priorities
	// queue up before any of them is serviced.
	blocker := w.Submit(Critical, func() error { <-block; return nil })
	_ = blocker

	cache := w.Submit(Cache, func() error {
		mu.Lock()
		order = append(order, "cache")
		mu.Unlock()
		return nil
	})
	active := w.Submit(Active, func() error {
		mu.Lock()
		order = append(order, "active")
		mu.Unlock()
		return nil
	})
	critical := w.Submit(Critical, func() error {
		mu.Lock()
		order = append(order, "critical")
		mu.Unlock()
		return nil
	})

	close(block)
	critical.Wait()
	active.Wait()
	cache.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"critical", "active", "cache"}, order)
}

func TestRequestResolvesToFailureOnCompileError(t *testing.T) {
	w := New(nil)
	w.Start()
	defer w.Stop()

	req := w.Submit(Active, func() error { return errors.New("boom") })
	req.Wait()

	assert.Equal(t, Failure, req.State())
	assert.ErrorContains(t, req.Err(), "boom")
}

func TestCancelPendingRemovesFromQueue(t *testing.T) {
	w := New(nil)
	// Worker not started: requests stay PENDING.
	req := w.Submit(Active, func() error { return nil })
	_, activeLen, _ := w.QueueLengths()
	assert.Equal(t, 1, activeLen)

	w.Cancel(req, time.Millisecond)
	_, activeLen, _ = w.QueueLengths()
	assert.Equal(t, 0, activeLen)
}

func TestCancelExecutionWaitsForCompletion(t *testing.T) {
	w := New(nil)
	w.Start()
	defer w.Stop()

	release := make(chan struct{})
	req := w.Submit(Critical, func() error {
		<-release
		return nil
	})

	// Give the worker a moment to pick the request up into EXECUTION.
	for req.State() == Pending {
		time.Sleep(time.Millisecond)
	}

	done := make(chan struct{})
	go func() {
		w.Cancel(req, 2*time.Millisecond)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Cancel must not return while the request is still EXECUTION")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	<-done
	assert.Equal(t, Success, req.State())
}
