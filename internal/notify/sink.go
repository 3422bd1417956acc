package notify

import (
	"context"
	"sort"
	"sync"
)

// Permission is the notification capability state of a Sink.
type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
	PermissionDefault Permission = "default"
)

// Sink is the pending-notification facility triggers are handed to. It owns
// scheduled triggers from the moment Schedule returns: they persist until
// fired or cancelled. Implementations: the web-push backed store sink
// (internal/push) and MemorySink for tests.
type Sink interface {
	Schedule(ctx context.Context, triggers []Trigger) error
	Cancel(ctx context.Context, ids []int) error
	Pending(ctx context.Context) ([]Trigger, error)
	Permission(ctx context.Context) (Permission, error)
	RequestPermission(ctx context.Context) (bool, error)
}

// MemorySink is an in-memory Sink. It backs tests and push-less deployments
// where scheduling should be a structured no-op.
type MemorySink struct {
	mu      sync.Mutex
	pending map[int]Trigger
	perm    Permission
}

// NewMemorySink returns a MemorySink with the given permission state.
func NewMemorySink(perm Permission) *MemorySink {
	return &MemorySink{
		pending: make(map[int]Trigger),
		perm:    perm,
	}
}

func (m *MemorySink) Schedule(_ context.Context, triggers []Trigger) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range triggers {
		m.pending[t.ID] = t
	}
	return nil
}

func (m *MemorySink) Cancel(_ context.Context, ids []int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.pending, id)
	}
	return nil
}

func (m *MemorySink) Pending(context.Context) ([]Trigger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Trigger, 0, len(m.pending))
	for _, t := range m.pending {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemorySink) Permission(context.Context) (Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.perm, nil
}

func (m *MemorySink) RequestPermission(context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.perm == PermissionDefault {
		m.perm = PermissionGranted
	}
	return m.perm == PermissionGranted, nil
}

// SetPermission changes the sink's permission state.
func (m *MemorySink) SetPermission(p Permission) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.perm = p
}
