package store

import (
	"maps"
	"sync"
)

// Modal is the open state and payload registered under one name.
type Modal struct {
	Open    bool           `json:"open"`
	Payload map[string]any `json:"payload"`
}

// Modals is a registry of named overlays shared by independent UI surfaces.
// Unknown names read as closed with an empty payload.
type Modals struct {
	mu     sync.RWMutex
	modals map[string]Modal
}

// NewModals creates an empty registry.
func NewModals() *Modals {
	return &Modals{modals: make(map[string]Modal)}
}

// Open marks name as open with payload. A nil payload is stored as empty.
func (m *Modals) Open(name string, payload map[string]any) {
	m.set(name, Modal{Open: true, Payload: maps.Clone(payload)})
}

// Close marks name as closed and drops its payload.
func (m *Modals) Close(name string) {
	m.set(name, Modal{Open: false})
}

// IsOpen reports whether name is open.
func (m *Modals) IsOpen(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.modals[name].Open
}

// Payload returns a copy of the payload registered under name.
func (m *Modals) Payload(name string) map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p := maps.Clone(m.modals[name].Payload)
	if p == nil {
		p = map[string]any{}
	}
	return p
}

// Snapshot returns every registration.
func (m *Modals) Snapshot() map[string]Modal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Modal, len(m.modals))
	for name, modal := range m.modals {
		out[name] = Modal{Open: modal.Open, Payload: nonNil(maps.Clone(modal.Payload))}
	}
	return out
}

// set swaps in a new map so snapshots taken earlier stay untouched.
func (m *Modals) set(name string, modal Modal) {
	modal.Payload = nonNil(modal.Payload)
	m.mu.Lock()
	next := maps.Clone(m.modals)
	next[name] = modal
	m.modals = next
	m.mu.Unlock()
}

func nonNil(p map[string]any) map[string]any {
	if p == nil {
		return map[string]any{}
	}
	return p
}
