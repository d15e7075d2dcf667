// Package config loads pagechat settings from a sectioned config file.
package config

// NewDefaultManager creates a manager over the file at path with the
// settings and context sections registered and loaded.
func NewDefaultManager(path string) (*Manager, error) {
	store, err := NewFileStore(path)
	if err != nil {
		return nil, err
	}

	manager := NewManager(store)
	if err := manager.RegisterSection(NewSettingsSection()); err != nil {
		return nil, err
	}
	if err := manager.RegisterSection(NewContextSection()); err != nil {
		return nil, err
	}
	if err := manager.LoadAll(); err != nil {
		return nil, err
	}
	return manager, nil
}

// SettingsSection returns the registered settings section, or nil.
func (m *Manager) SettingsSection() *SettingsSection {
	section, ok := m.GetSection(SectionIDSettings)
	if !ok {
		return nil
	}
	settings, _ := section.(*SettingsSection)
	return settings
}

// ContextSection returns the registered context section, or nil.
func (m *Manager) ContextSection() *ContextSection {
	section, ok := m.GetSection(SectionIDContext)
	if !ok {
		return nil
	}
	ctxSection, _ := section.(*ContextSection)
	return ctxSection
}
