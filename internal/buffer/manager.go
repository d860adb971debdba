package buffer

import (
	"fmt"

	"github.com/1broseidon/winsrv/internal/window"
)

// Stats summarizes the memory held by a Manager.
type Stats struct {
	Buffers int `json:"buffers"`
	Bytes   int `json:"bytes"`
}

// Manager maps windows to their buffers. A buffer returned by Get is loaned
// to the caller; the manager never copies it on write.
//
// Manager is not safe for concurrent use; the server serializes access.
type Manager struct {
	bufs  map[window.ID]*Buffer
	bytes int
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{bufs: make(map[window.ID]*Buffer)}
}

// Allocate creates the buffer for a new window. Fresh memory is zero, which
// is fully transparent for blended windows.
func (m *Manager) Allocate(id window.ID, width, height int) (*Buffer, error) {
	if err := window.CheckSize(width, height); err != nil {
		return nil, err
	}
	if _, ok := m.bufs[id]; ok {
		return nil, fmt.Errorf("buffer for window %d already allocated", id)
	}
	b := New(width, height)
	m.bufs[id] = b
	m.bytes += b.Bytes()
	return b, nil
}

// Get returns the window's current buffer.
func (m *Manager) Get(id window.ID) (*Buffer, error) {
	b, ok := m.bufs[id]
	if !ok {
		return nil, fmt.Errorf("%w: no buffer for window %d", window.ErrInvalidHandle, id)
	}
	return b, nil
}

// Resize replaces the window's buffer with one of the new size. Prior
// content is not preserved.
func (m *Manager) Resize(id window.ID, width, height int) (*Buffer, error) {
	old, ok := m.bufs[id]
	if !ok {
		return nil, fmt.Errorf("%w: no buffer for window %d", window.ErrInvalidHandle, id)
	}
	if err := window.CheckSize(width, height); err != nil {
		return nil, err
	}
	b := New(width, height)
	m.bufs[id] = b
	m.bytes += b.Bytes() - old.Bytes()
	return b, nil
}

// Free releases the window's buffer. Freeing an unknown window is a no-op.
func (m *Manager) Free(id window.ID) {
	if b, ok := m.bufs[id]; ok {
		m.bytes -= b.Bytes()
		delete(m.bufs, id)
	}
}

// Stats reports the number of buffers and bytes held.
func (m *Manager) Stats() Stats {
	return Stats{Buffers: len(m.bufs), Bytes: m.bytes}
}
