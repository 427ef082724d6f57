package tokenstore

import (
	"context"
	"sync"
)

// Memory is a process-local Store. It does not survive restarts and is meant
// for tests and ephemeral sessions.
type Memory struct {
	mu    sync.RWMutex
	token string
	set   bool

	gets    int
	sets    int
	removes int
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// NewMemoryWithToken returns an in-memory store pre-seeded with token.
func NewMemoryWithToken(token string) *Memory {
	return &Memory{token: token, set: token != ""}
}

func (m *Memory) Get(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if !m.set {
		return "", ErrNotFound
	}
	return m.token, nil
}

func (m *Memory) Set(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if token == "" {
		return ErrEmptyToken
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	m.token = token
	m.set = true
	return nil
}

func (m *Memory) Remove(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removes++
	m.token = ""
	m.set = false
	return nil
}

// Calls returns how many Get, Set and Remove calls the store has served.
func (m *Memory) Calls() (gets, sets, removes int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gets, m.sets, m.removes
}
