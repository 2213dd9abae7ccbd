package runtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// FakeDriver is an in-memory Driver for unit tests, grounded in the
// constructor-injected-collaborator design so nodemgr can be tested
// without a Docker daemon.
type FakeDriver struct {
	mu       sync.Mutex
	alive    map[string]bool
	FailNext bool
}

// NewFakeDriver returns an empty FakeDriver.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{alive: make(map[string]bool)}
}

func (f *FakeDriver) CreateContainer(_ context.Context, cpuCount int, _ int64) (string, string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailNext {
		f.FailNext = false
		return "", "", "", fmt.Errorf("runtime: fake create failure")
	}
	id := uuid.New().String()
	f.alive[id] = true
	return id, "fake-" + id[:8], "10.0.0.1", nil
}

func (f *FakeDriver) Stop(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alive[id] = false
	return nil
}

func (f *FakeDriver) Restart(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alive[id] = true
	return nil
}

func (f *FakeDriver) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailNext {
		f.FailNext = false
		return fmt.Errorf("runtime: fake delete failure")
	}
	delete(f.alive, id)
	return nil
}
