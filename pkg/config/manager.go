package config

import (
	"errors"
	"fmt"
	"sync"
)

// ErrSectionNotFound is returned when a section ID is not registered.
var ErrSectionNotFound = errors.New("config section not found")

// Manager coordinates registered sections with a Store.
type Manager struct {
	store    Store
	sections map[string]Section
	order    []string
	mu       sync.RWMutex

	listenersMu sync.Mutex
	listeners   []func()
}

// NewManager creates a manager backed by store.
func NewManager(store Store) *Manager {
	return &Manager{
		store:    store,
		sections: make(map[string]Section),
	}
}

// Store returns the backing store.
func (m *Manager) Store() Store {
	return m.store
}

// RegisterSection adds a section. IDs must be unique.
func (m *Manager) RegisterSection(section Section) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := section.ID()
	if _, exists := m.sections[id]; exists {
		return fmt.Errorf("section %q already registered", id)
	}
	m.sections[id] = section
	m.order = append(m.order, id)
	return nil
}

// GetSection returns the section registered under id.
func (m *Manager) GetSection(id string) (Section, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	section, ok := m.sections[id]
	return section, ok
}

// GetSections returns all sections in registration order.
func (m *Manager) GetSections() []Section {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sections := make([]Section, 0, len(m.order))
	for _, id := range m.order {
		sections = append(sections, m.sections[id])
	}
	return sections
}

// LoadAll reads the store and replaces every section's values with it.
// Keys missing from the store fall back to defaults. If any section fails
// to apply, all sections keep the values they had before the call.
func (m *Manager) LoadAll() error {
	if err := m.store.Load(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	loaded := make(map[string]map[string]interface{}, len(m.order))
	for _, id := range m.order {
		data, err := m.store.GetSection(id)
		if err != nil {
			return fmt.Errorf("failed to read section %s: %w", id, err)
		}
		loaded[id] = data
	}

	previous := make(map[string]map[string]interface{}, len(m.order))
	for _, id := range m.order {
		previous[id] = m.sections[id].Data()
	}

	for _, id := range m.order {
		section := m.sections[id]
		section.Reset()
		if len(loaded[id]) == 0 {
			continue
		}
		if err := section.SetData(loaded[id]); err != nil {
			m.restore(previous)
			return fmt.Errorf("failed to apply section %s: %w", id, err)
		}
	}
	return nil
}

// restore puts back values captured by Data. Callers hold m.mu.
func (m *Manager) restore(previous map[string]map[string]interface{}) {
	for _, id := range m.order {
		section := m.sections[id]
		section.Reset()
		_ = section.SetData(previous[id])
	}
}

// SaveAll validates every section and writes them to the store.
func (m *Manager) SaveAll() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, id := range m.order {
		section := m.sections[id]
		if err := section.Validate(); err != nil {
			return fmt.Errorf("invalid section %s: %w", id, err)
		}
		if err := m.store.SetSection(id, section.Data()); err != nil {
			return fmt.Errorf("failed to store section %s: %w", id, err)
		}
	}
	if err := m.store.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// ResetAll restores defaults in every section without saving.
func (m *Manager) ResetAll() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range m.order {
		m.sections[id].Reset()
	}
}

// OnReload registers fn to run after the file changed and was reloaded.
func (m *Manager) OnReload(fn func()) {
	m.listenersMu.Lock()
	m.listeners = append(m.listeners, fn)
	m.listenersMu.Unlock()
}

func (m *Manager) notifyReload() {
	m.listenersMu.Lock()
	listeners := append([]func(){}, m.listeners...)
	m.listenersMu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}
