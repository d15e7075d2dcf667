package config

// Section is one named block of configuration. Sections convert to and from
// the generic map form the Store persists.
type Section interface {
	// ID returns the key the section is stored under.
	ID() string

	// Title returns a human-readable name.
	Title() string

	// Description explains what the section configures.
	Description() string

	// Data returns the current values.
	Data() map[string]interface{}

	// SetData applies values. Unknown keys are ignored.
	SetData(data map[string]interface{}) error

	// Validate checks the current values.
	Validate() error

	// Reset restores defaults.
	Reset()
}
