package tts

import (
	"context"
	"errors"
	"sync"
)

var errEngine = errors.New("engine failed")

type fakeEngine struct {
	provider   Provider
	configured bool
	data       []byte
	err        error
	block      bool

	mu    sync.Mutex
	calls []string
}

func (f *fakeEngine) Provider() Provider { return f.provider }

func (f *fakeEngine) Configured() bool { return f.configured }

func (f *fakeEngine) Synthesize(ctx context.Context, text string, _ Options) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.data, nil
}

func (f *fakeEngine) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type memoryStore struct {
	p     Provider
	users map[string]Provider
	err   error
}

func (m *memoryStore) ProviderFor(user string) Provider {
	if p, ok := m.users[user]; ok {
		return p
	}
	return m.p
}

func (m *memoryStore) SetProviderFor(user string, p Provider) error {
	if m.err != nil {
		return m.err
	}
	if user == "" {
		m.p = p
		return nil
	}
	if m.users == nil {
		m.users = make(map[string]Provider)
	}
	m.users[user] = p
	return nil
}
