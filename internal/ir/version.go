package ir

// Version constants for the graph encoding and the engine.
const (
	// IRVersion is the snapshot encoding and rewrite-rule version. Bumping
	// it invalidates every cached kernel.
	IRVersion = "1"

	// EngineVersion is the irjit engine version.
	EngineVersion = "0.1.0"
)
