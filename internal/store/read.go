package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/irjit/internal/ir"
)

const kernelColumns = `source_hash, graph_hash, name, session_id, seq, expr, bind, specialize,
	rendered, graph, node_count, engine_version, ir_version`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// ReadKernel retrieves a single kernel by source hash.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadKernel(ctx context.Context, sourceHash string) (ir.KernelRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+kernelColumns+`
		FROM kernels
		WHERE source_hash = ?
	`, sourceHash)

	return scanKernel(row)
}

// LatestKernel retrieves the most recently cached kernel with the given name.
// Returns sql.ErrNoRows if no kernel has that name.
func (s *Store) LatestKernel(ctx context.Context, name string) (ir.KernelRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+kernelColumns+`
		FROM kernels
		WHERE name = ?
		ORDER BY id DESC
		LIMIT 1
	`, name)

	return scanKernel(row)
}

// ListKernels returns every cached kernel.
// Results ordered by seq ASC, source_hash ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if the cache is empty.
func (s *Store) ListKernels(ctx context.Context) ([]ir.KernelRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+kernelColumns+`
		FROM kernels
		ORDER BY seq ASC, source_hash COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query kernels: %w", err)
	}
	return collectKernels(rows)
}

// ReadSessionKernels returns the kernels compiled in one session, in
// compilation order.
func (s *Store) ReadSessionKernels(ctx context.Context, sessionID string) ([]ir.KernelRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+kernelColumns+`
		FROM kernels
		WHERE session_id = ?
		ORDER BY seq ASC, source_hash COLLATE BINARY ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query session kernels: %w", err)
	}
	return collectKernels(rows)
}

// ReadSession retrieves a single session by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadSession(ctx context.Context, id string) (ir.Session, error) {
	var sess ir.Session
	err := s.db.QueryRowContext(ctx, `
		SELECT id, engine_version, ir_version
		FROM sessions
		WHERE id = ?
	`, id).Scan(&sess.ID, &sess.EngineVersion, &sess.IRVersion)
	if err != nil {
		return ir.Session{}, fmt.Errorf("read session: %w", err)
	}
	return sess, nil
}

// ListSessionIDs returns the id of every recorded session, sorted.
// UUIDv7 ids sort in creation order.
func (s *Store) ListSessionIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM sessions ORDER BY id COLLATE BINARY ASC`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func collectKernels(rows *sql.Rows) ([]ir.KernelRecord, error) {
	defer rows.Close()

	recs := []ir.KernelRecord{}
	for rows.Next() {
		rec, err := scanKernel(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate kernels: %w", err)
	}
	return recs, nil
}

// scanKernel scans a row into a KernelRecord.
func scanKernel(row rowScanner) (ir.KernelRecord, error) {
	var rec ir.KernelRecord
	var bindJSON, specJSON string

	if err := row.Scan(
		&rec.SourceHash, &rec.GraphHash, &rec.Name, &rec.SessionID, &rec.Seq,
		&rec.Expr, &bindJSON, &specJSON, &rec.Rendered, &rec.Graph,
		&rec.NodeCount, &rec.EngineVersion, &rec.IRVersion,
	); err != nil {
		return ir.KernelRecord{}, fmt.Errorf("scan kernel: %w", err)
	}

	bind, err := unmarshalBind(bindJSON)
	if err != nil {
		return ir.KernelRecord{}, err
	}
	rec.Bind = bind

	spec, err := unmarshalSpecialize(specJSON)
	if err != nil {
		return ir.KernelRecord{}, err
	}
	rec.Specialize = spec

	return rec, nil
}
