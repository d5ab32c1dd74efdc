package store

import (
	"context"
	"fmt"

	"github.com/roach88/irjit/internal/ir"
)

// WriteSession inserts a session record into the store.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
func (s *Store) WriteSession(ctx context.Context, sess ir.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, engine_version, ir_version)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, sess.ID, sess.EngineVersion, sess.IRVersion)
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// WriteKernel inserts a compiled kernel keyed by its source hash.
// Returns whether a new record was inserted.
//
// Uses ON CONFLICT(source_hash) DO NOTHING: a definition that is already
// cached keeps its first record, so rewriting the same kernel is a no-op.
//
// Note: The session referenced by SessionID must exist (foreign key constraint).
func (s *Store) WriteKernel(ctx context.Context, rec ir.KernelRecord) (inserted bool, err error) {
	bindJSON, err := marshalBind(rec.Bind)
	if err != nil {
		return false, fmt.Errorf("write kernel: %w", err)
	}
	specJSON, err := marshalSpecialize(rec.Specialize)
	if err != nil {
		return false, fmt.Errorf("write kernel: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO kernels
		(source_hash, graph_hash, name, session_id, seq, expr, bind, specialize,
		 rendered, graph, node_count, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_hash) DO NOTHING
	`,
		rec.SourceHash,
		rec.GraphHash,
		rec.Name,
		rec.SessionID,
		rec.Seq,
		rec.Expr,
		bindJSON,
		specJSON,
		rec.Rendered,
		rec.Graph,
		rec.NodeCount,
		rec.EngineVersion,
		rec.IRVersion,
	)
	if err != nil {
		return false, fmt.Errorf("write kernel: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write kernel: rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// HasKernel checks if a kernel with the given source hash is cached.
func (s *Store) HasKernel(ctx context.Context, sourceHash string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM kernels WHERE source_hash = ?
	`, sourceHash).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check kernel: %w", err)
	}
	return count > 0, nil
}
