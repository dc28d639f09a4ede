package ir

// Version constants for the data model and the harness.
const (
	// IRVersion is the data model version recorded with persisted runs.
	IRVersion = "1"

	// EngineVersion is the fixrun version.
	EngineVersion = "0.1.0"
)
