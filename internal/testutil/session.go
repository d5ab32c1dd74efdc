package testutil

// FixedSessionGenerator generates the same session id every time.
//
// The harness runs every scenario with this generator, so a scenario's
// kernel records carry the same session id on every run and golden traces
// stay byte-identical.
//
// Unlike engine.FixedGenerator which returns ids in sequence and panics
// when exhausted, this generator can start any number of engines.
//
// Thread-safety: FixedSessionGenerator is stateless and safe for concurrent use.
type FixedSessionGenerator struct {
	id string
}

// NewFixedSessionGenerator creates a new fixed session id generator.
//
// If id is empty, Generate() returns "test-session-default".
func NewFixedSessionGenerator(id string) *FixedSessionGenerator {
	if id == "" {
		id = "test-session-default"
	}
	return &FixedSessionGenerator{id: id}
}

// Generate returns the fixed session id.
//
// Implements engine.SessionIDGenerator interface.
func (g *FixedSessionGenerator) Generate() string {
	return g.id
}
