package relay

import (
	"context"
	"sync"
)

// Registry tracks live sessions so shutdown can cancel and drain them. It holds
// no conversation state.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*trackedSession
	wg       sync.WaitGroup
}

type trackedSession struct {
	cancel func()
	once   sync.Once
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*trackedSession),
	}
}

func (r *Registry) Register(sessionID string, cancel func()) (unregister func()) {
	entry := &trackedSession{cancel: cancel}

	r.mu.Lock()
	old := r.sessions[sessionID]
	r.sessions[sessionID] = entry
	r.wg.Add(1)
	r.mu.Unlock()

	if old != nil {
		r.unregister(sessionID, old)
	}

	return func() { r.unregister(sessionID, entry) }
}

func (r *Registry) unregister(sessionID string, entry *trackedSession) {
	entry.once.Do(func() {
		r.mu.Lock()
		if r.sessions[sessionID] == entry {
			delete(r.sessions, sessionID)
		}
		r.mu.Unlock()
		r.wg.Done()
	})
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) CancelAll() (canceled int) {
	var cancels []func()
	r.mu.Lock()
	for _, entry := range r.sessions {
		if entry.cancel != nil {
			cancels = append(cancels, entry.cancel)
		}
	}
	r.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
		canceled++
	}
	return canceled
}

// Wait blocks until every registered session has unregistered or ctx is done.
func (r *Registry) Wait(ctx context.Context) bool {
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.wg.Wait()
	}()

	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}
