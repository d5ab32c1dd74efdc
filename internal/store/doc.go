// Package store provides the SQLite-backed kernel cache.
//
// The cache holds:
//   - Sessions: one row per compilation session (UUIDv7 id)
//   - Kernels: compiled kernels keyed by the content hash of their definition
//
// # Patterns
//
// Content addressing
//   - kernels.source_hash is UNIQUE; writes use ON CONFLICT DO NOTHING
//   - rewriting a cached definition is a no-op, the first record wins
//
// Logical time
//   - Ordering uses seq INTEGER (the engine's logical clock), never timestamps
//   - Listing queries use ORDER BY seq ASC, source_hash ASC COLLATE BINARY
//
// Verified loads
//   - LoadKernel decodes the stored graph snapshot and checks it against the
//     stored graph hash before returning it
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Hashes are computed by internal/ir using RFC 8785 canonical JSON and
// SHA-256 with domain separation.
package store
