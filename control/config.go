// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Thread-safe runtime settings store. Listeners run on the writer's goroutine,
// after the store lock is released, in registration order.

package control

import (
	"sync"
)

// ConfigStore is a key/value map with snapshot reads and reload listeners.
type ConfigStore struct {
	mu        sync.RWMutex
	config    map[string]any
	listeners []func()
}

// NewConfigStore initializes a new config store with empty data.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		config: make(map[string]any),
	}
}

// GetSnapshot returns a copy of all config values.
func (cs *ConfigStore) GetSnapshot() map[string]any {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	snap := make(map[string]any, len(cs.config))
	for k, v := range cs.config {
		snap[k] = v
	}
	return snap
}

// SetConfig merges newCfg and runs the listeners before returning.
func (cs *ConfigStore) SetConfig(newCfg map[string]any) {
	cs.mu.Lock()
	for k, v := range newCfg {
		cs.config[k] = v
	}
	ls := cs.listeners
	cs.mu.Unlock()
	dispatch(ls)
}

// Update applies fn to a copy of the settings and commits the copy only if
// fn succeeds. Concurrent updates are serialized, so read-modify-write
// sequences such as counters never lose a step.
func (cs *ConfigStore) Update(fn func(cfg map[string]any) error) error {
	cs.mu.Lock()
	next := make(map[string]any, len(cs.config))
	for k, v := range cs.config {
		next[k] = v
	}
	if err := fn(next); err != nil {
		cs.mu.Unlock()
		return err
	}
	cs.config = next
	ls := cs.listeners
	cs.mu.Unlock()
	dispatch(ls)
	return nil
}

// OnReload registers a listener called after every change.
func (cs *ConfigStore) OnReload(fn func()) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	// Copy on write: dispatch iterates a slice taken under the lock.
	ls := make([]func(), len(cs.listeners), len(cs.listeners)+1)
	copy(ls, cs.listeners)
	cs.listeners = append(ls, fn)
}

func dispatch(ls []func()) {
	for _, fn := range ls {
		fn()
	}
}
