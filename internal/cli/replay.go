package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/irjit/internal/engine"
	"github.com/roach88/irjit/internal/ir"
	"github.com/roach88/irjit/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Session  string // optional - specific session only
}

// ReplaySessionResult holds the replay result for a single session.
type ReplaySessionResult struct {
	Session       string   `json:"session"`
	Started       string   `json:"started,omitempty"` // RFC 3339, for UUIDv7 session ids
	Kernels       int      `json:"kernels"`
	LastSeq       int64    `json:"last_seq"`
	Live          int      `json:"live"` // nodes in the replay graph
	Deterministic bool     `json:"deterministic"`
	Mismatches    []string `json:"mismatches,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Sessions         []ReplaySessionResult `json:"sessions"`
	TotalSessions    int                   `json:"total_sessions"`
	AllDeterministic bool                  `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay cached sessions and verify determinism",
		Long: `Rebuild every kernel of a cached session into fresh graphs and verify
that the result matches what was recorded.

Each session is replayed twice. A session is deterministic when both
replays produce the recorded graph hash and rendering for every kernel,
and the two replay graphs hold the same number of nodes.

Exit codes:
  0 - All sessions are deterministic
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not found, etc.)

Examples:
  irjit replay --db ./irjit.db
  irjit replay --db ./irjit.db --session 0192f0c4-...
  irjit replay --db ./irjit.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite kernel cache (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "replay specific session only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	var sessions []string
	if opts.Session != "" {
		sessions = []string{opts.Session}
	} else {
		sessions, err = st.ListSessionIDs(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
	}

	result := ReplayResult{
		Sessions:         make([]ReplaySessionResult, 0, len(sessions)),
		TotalSessions:    len(sessions),
		AllDeterministic: true,
	}

	if len(sessions) == 0 {
		if opts.Format == "json" {
			return outputReplayJSON(cmd, result)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No sessions found in database.")
		return nil
	}

	for _, id := range sessions {
		sessionResult, err := replayAndVerifySession(ctx, st, id)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay session %s", id), err)
		}

		result.Sessions = append(result.Sessions, sessionResult)
		if !sessionResult.Deterministic {
			result.AllDeterministic = false
		}
	}

	if opts.Format == "json" {
		return outputReplayJSON(cmd, result)
	}

	return outputReplayText(cmd, result, opts.Verbose)
}

// replayAndVerifySession replays one session twice and checks every kernel
// against its recorded hash and rendering.
func replayAndVerifySession(ctx context.Context, st *store.Store, sessionID string) (ReplaySessionResult, error) {
	state, err := st.GetSessionState(ctx, sessionID)
	if err != nil {
		return ReplaySessionResult{}, err
	}

	first := ir.NewGraph()
	roots1, err := st.ReplaySession(ctx, first, sessionID)
	if err != nil {
		return ReplaySessionResult{}, fmt.Errorf("first replay failed: %w", err)
	}

	second := ir.NewGraph()
	roots2, err := st.ReplaySession(ctx, second, sessionID)
	if err != nil {
		return ReplaySessionResult{}, fmt.Errorf("second replay failed: %w", err)
	}

	var mismatches []string
	for _, rec := range state.Kernels {
		for i, roots := range []map[string]*ir.Node{roots1, roots2} {
			root := roots[rec.Name]
			hash, err := ir.KernelHash(root)
			if err != nil {
				return ReplaySessionResult{}, err
			}
			if hash != rec.GraphHash {
				mismatches = append(mismatches, fmt.Sprintf("replay %d: %s: graph hash %s, recorded %s", i+1, rec.Name, hash, rec.GraphHash))
			}
			if got := ir.Render(root); got != rec.Rendered {
				mismatches = append(mismatches, fmt.Sprintf("replay %d: %s: renders %s, recorded %s", i+1, rec.Name, got, rec.Rendered))
			}
		}
	}
	if first.Len() != second.Len() {
		mismatches = append(mismatches, fmt.Sprintf("replay graphs hold %d and %d nodes", first.Len(), second.Len()))
	}

	var started string
	if t, ok := engine.SessionTime(sessionID); ok {
		started = t.Format(time.RFC3339)
	}

	return ReplaySessionResult{
		Session:       sessionID,
		Started:       started,
		Kernels:       len(state.Kernels),
		LastSeq:       state.LastSeq,
		Live:          first.Len(),
		Deterministic: len(mismatches) == 0,
		Mismatches:    mismatches,
	}, nil
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	if result.AllDeterministic {
		return writeReport(cmd.OutOrStdout(), result, nil)
	}
	failure := &CLIError{Code: ErrCodeDeterminism, Message: "determinism verification failed"}
	if err := writeReport(cmd.OutOrStdout(), result, failure); err != nil {
		return err
	}
	return NewExitError(ExitFailure, failure.Message)
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Replay Summary: %d session(s)\n", result.TotalSessions)
	fmt.Fprintln(w)

	for _, sess := range result.Sessions {
		status := "✓"
		if !sess.Deterministic {
			status = "✗"
		}

		fmt.Fprintf(w, "%s Session: %s\n", status, sess.Session)
		fmt.Fprintf(w, "  Kernels: %d (last seq %d)\n", sess.Kernels, sess.LastSeq)
		if verbose {
			if sess.Started != "" {
				fmt.Fprintf(w, "  Started: %s\n", sess.Started)
			}
			fmt.Fprintf(w, "  Replay graph: %d node(s)\n", sess.Live)
		}
		for _, m := range sess.Mismatches {
			fmt.Fprintf(w, "  %s\n", m)
		}
		fmt.Fprintln(w)
	}

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All sessions verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	return NewExitError(ExitFailure, "determinism verification failed")
}
