// control/hotreload.go
// Manages process-wide hot-reload hooks, e.g. fired from a signal handler.
// Adds a TriggerHotReloadSync for deterministic test notification.

package control

import "sync"

type reloadHook struct {
	id uint64
	fn func()
}

var (
	reloadMu    sync.Mutex
	reloadSeq   uint64
	reloadHooks []reloadHook
)

// RegisterReloadHook adds a process-wide reload listener. The returned func
// removes it; calling it more than once is harmless.
func RegisterReloadHook(fn func()) (unregister func()) {
	reloadMu.Lock()
	defer reloadMu.Unlock()
	reloadSeq++
	id := reloadSeq
	reloadHooks = append(reloadHooks, reloadHook{id: id, fn: fn})
	return func() {
		reloadMu.Lock()
		defer reloadMu.Unlock()
		for i, h := range reloadHooks {
			if h.id == id {
				reloadHooks = append(reloadHooks[:i:i], reloadHooks[i+1:]...)
				return
			}
		}
	}
}

func hooks() []func() {
	reloadMu.Lock()
	defer reloadMu.Unlock()
	out := make([]func(), len(reloadHooks))
	for i, h := range reloadHooks {
		out[i] = h.fn
	}
	return out
}

// TriggerHotReload dispatches all reload hooks asynchronously.
func TriggerHotReload() {
	for _, fn := range hooks() {
		go fn()
	}
}

// TriggerHotReloadSync invokes all reload hooks synchronously (for test determinism).
func TriggerHotReloadSync() {
	for _, fn := range hooks() {
		fn()
	}
}
