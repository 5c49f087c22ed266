package app

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"skywardportal/pkg/store"
)

// memObjects is an in-memory ObjectStore fake recording puts and removes.
type memObjects struct {
	mu         sync.Mutex
	objects    map[string][]byte
	failPut    bool
	failRemove bool
}

func newMemObjects() *memObjects {
	return &memObjects{objects: make(map[string][]byte)}
}

func (m *memObjects) Put(_ context.Context, key string, r io.Reader, size int64, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPut {
		return errors.New("storage unavailable")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = data
	return nil
}

func (m *memObjects) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return "", errors.New("object not found")
	}
	return "https://objects.test/" + key, nil
}

func (m *memObjects) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failRemove {
		return errors.New("storage unavailable")
	}
	delete(m.objects, key)
	return nil
}

func (m *memObjects) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.objects))
	for k := range m.objects {
		out = append(out, k)
	}
	return out
}

// memPublisher records published routing keys.
type memPublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *memPublisher) Publish(_ context.Context, routingKey string, _ any) error {
	p.mu.Lock()
	p.keys = append(p.keys, routingKey)
	p.mu.Unlock()
	return nil
}

func (p *memPublisher) Close() error { return nil }

func (p *memPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

// fakeClock lets tests march time forward deterministically.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestApp(clock *fakeClock) (*App, *store.MemoryStore, *memObjects, *memPublisher) {
	st := store.NewMemoryStore()
	objects := newMemObjects()
	publisher := &memPublisher{}
	a := New(st, objects, publisher, Options{Now: clock.Now})
	return a, st, objects, publisher
}
