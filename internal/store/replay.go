package store

import (
	"context"
	"fmt"

	"github.com/roach88/irjit/internal/ir"
)

// SessionState summarizes one compilation session.
type SessionState struct {
	Session ir.Session
	Kernels []ir.KernelRecord
	LastSeq int64
}

// GetSessionState retrieves a session together with its kernels.
func (s *Store) GetSessionState(ctx context.Context, sessionID string) (SessionState, error) {
	sess, err := s.ReadSession(ctx, sessionID)
	if err != nil {
		return SessionState{}, fmt.Errorf("get session state: %w", err)
	}

	kernels, err := s.ReadSessionKernels(ctx, sessionID)
	if err != nil {
		return SessionState{}, fmt.Errorf("get session state: %w", err)
	}

	state := SessionState{Session: sess, Kernels: kernels}
	for _, k := range kernels {
		state.LastSeq = max(state.LastSeq, k.Seq)
	}
	return state, nil
}

// LoadKernel decodes a cached kernel's graph into g.
//
// The decoded root is hashed again and checked against the stored graph
// hash, so a corrupt or hand-edited cache entry is an error rather than a
// wrong kernel.
func (s *Store) LoadKernel(ctx context.Context, g *ir.Graph, sourceHash string) (*ir.Node, ir.KernelRecord, error) {
	rec, err := s.ReadKernel(ctx, sourceHash)
	if err != nil {
		return nil, ir.KernelRecord{}, fmt.Errorf("load kernel: %w", err)
	}

	root, err := ir.Decode(g, rec.Graph)
	if err != nil {
		return nil, ir.KernelRecord{}, fmt.Errorf("load kernel %s: %w", rec.Name, err)
	}

	hash, err := ir.KernelHash(root)
	if err != nil {
		return nil, ir.KernelRecord{}, fmt.Errorf("load kernel %s: %w", rec.Name, err)
	}
	if hash != rec.GraphHash {
		return nil, ir.KernelRecord{}, fmt.Errorf("load kernel %s: graph hash mismatch: stored %s, decoded %s", rec.Name, rec.GraphHash, hash)
	}
	return root, rec, nil
}

// ReplaySession decodes every kernel of a session into g, in compilation
// order, and returns their roots keyed by kernel name.
func (s *Store) ReplaySession(ctx context.Context, g *ir.Graph, sessionID string) (map[string]*ir.Node, error) {
	kernels, err := s.ReadSessionKernels(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("replay session: %w", err)
	}

	roots := make(map[string]*ir.Node, len(kernels))
	for _, k := range kernels {
		root, _, err := s.LoadKernel(ctx, g, k.SourceHash)
		if err != nil {
			return nil, fmt.Errorf("replay session: %w", err)
		}
		roots[k.Name] = root
	}
	return roots, nil
}

// GetLastSeq returns the highest seq in the cache, or 0 if it is empty.
func (s *Store) GetLastSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM kernels`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("get last seq: %w", err)
	}
	return seq, nil
}
