package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionIDGenerator names compilation sessions.
type SessionIDGenerator interface {
	Generate() string
}

// UUIDv7Generator issues UUIDv7 session ids. The millisecond timestamp in
// their leading bits makes the cache list sessions in creation order.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// SessionTime returns the creation time embedded in a UUIDv7 session id.
// It reports false for any other id, such as the fixed ids used in tests.
func SessionTime(id string) (time.Time, bool) {
	u, err := uuid.Parse(id)
	if err != nil || u.Version() != 7 {
		return time.Time{}, false
	}
	var ms int64
	for _, b := range u[:6] {
		ms = ms<<8 | int64(b)
	}
	return time.UnixMilli(ms).UTC(), true
}

// FixedGenerator hands out predetermined session ids in order and panics
// once they run out, catching tests that start more sessions than planned.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
}

// NewFixedGenerator creates a generator over ids.
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next id.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.ids) == 0 {
		panic("FixedGenerator: all ids exhausted")
	}
	id := g.ids[0]
	g.ids = g.ids[1:]
	return id
}
