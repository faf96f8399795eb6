package session

import (
	"context"
	"sync"
	"time"
)

const watchBuffer = 16

// MemoryKV is an in-process KV. With a positive quota, a Set that would grow
// the stored keys and values beyond quota bytes fails with ErrQuotaExceeded.
type MemoryKV struct {
	mu       sync.Mutex
	data     map[string]string
	size     int
	quota    int
	watchers map[chan Change]struct{}
}

func NewMemoryKV(quota int) *MemoryKV {
	return &MemoryKV{
		data:     make(map[string]string),
		quota:    quota,
		watchers: make(map[chan Change]struct{}),
	}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	size := m.size + len(key) + len(value)
	if old, ok := m.data[key]; ok {
		size -= len(key) + len(old)
	}
	if m.quota > 0 && size > m.quota {
		return ErrQuotaExceeded
	}
	m.data[key] = value
	m.size = size
	m.notify(Change{Key: key, At: time.Now()})
	return nil
}

func (m *MemoryKV) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.data[key]
	if !ok {
		return nil
	}
	delete(m.data, key)
	m.size -= len(key) + len(old)
	m.notify(Change{Key: key, Removed: true, At: time.Now()})
	return nil
}

func (m *MemoryKV) Watch(ctx context.Context) (<-chan Change, error) {
	ch := make(chan Change, watchBuffer)
	m.mu.Lock()
	m.watchers[ch] = struct{}{}
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.watchers, ch)
		close(ch)
		m.mu.Unlock()
	}()
	return ch, nil
}

// notify must be called with mu held. Slow watchers miss changes rather than
// block writers.
func (m *MemoryKV) notify(c Change) {
	for ch := range m.watchers {
		select {
		case ch <- c:
		default:
		}
	}
}

// MemoryProvider keeps one MemoryKV per session for the life of the process.
type MemoryProvider struct {
	mu     sync.Mutex
	quota  int
	scopes map[string]*MemoryKV
}

func NewMemoryProvider(quota int) *MemoryProvider {
	return &MemoryProvider{quota: quota, scopes: make(map[string]*MemoryKV)}
}

func (p *MemoryProvider) Scope(sessionID string) KV {
	p.mu.Lock()
	defer p.mu.Unlock()
	kv, ok := p.scopes[sessionID]
	if !ok {
		kv = NewMemoryKV(p.quota)
		p.scopes[sessionID] = kv
	}
	return kv
}
