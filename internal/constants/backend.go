package constants

// Backend identifies where the scenario library keeps its catalog.
type Backend string

const (
	// BackendMemory keeps scenarios in process memory, seeded with defaults.
	BackendMemory Backend = "memory"

	// BackendFile stores scenarios in a YAML file.
	BackendFile Backend = "file"

	// BackendSQLite stores scenarios in a SQLite database.
	BackendSQLite Backend = "sqlite"
)

// Valid returns true if the backend is a recognized value.
func (b Backend) Valid() bool {
	switch b {
	case BackendMemory, BackendFile, BackendSQLite:
		return true
	}
	return false
}

// String returns the string representation of the backend.
func (b Backend) String() string {
	return string(b)
}
