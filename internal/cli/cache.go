package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/irjit/internal/ir"
	"github.com/roach88/irjit/internal/store"
)

// CacheOptions holds flags for the cache command.
type CacheOptions struct {
	*RootOptions
	Database string
	Kernel   string // optional - latest entry for one name
}

// CacheEntry is one cached kernel as listed by the cache command.
type CacheEntry struct {
	Name       string            `json:"name"`
	Session    string            `json:"session"`
	Seq        int64             `json:"seq"`
	Expr       string            `json:"expr"`
	Bind       map[string]string `json:"bind,omitempty"`
	Specialize map[string]int32  `json:"specialize,omitempty"`
	Rendered   string            `json:"rendered"`
	Nodes      int               `json:"nodes"`
	SourceHash string            `json:"source_hash"`
	GraphHash  string            `json:"graph_hash"`
}

// CacheResult lists cache entries.
type CacheResult struct {
	Entries  []CacheEntry `json:"entries"`
	Total    int          `json:"total"`
	Sessions int          `json:"sessions"`
	Nodes    int          `json:"nodes"` // stored graph nodes over the whole cache
}

// NewCacheCommand creates the cache command.
func NewCacheCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CacheOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "List the kernel cache",
		Long: `List the kernels stored in a kernel cache database.

Entries are keyed by the content hash of their definition and listed in
compilation order. With --kernel, only the most recent entry for that
name is shown.

Examples:
  irjit cache --db ./irjit.db
  irjit cache --db ./irjit.db --kernel blur
  irjit cache --db ./irjit.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCache(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite kernel cache (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Kernel, "kernel", "", "show the latest entry for one kernel")

	return cmd
}

func runCache(opts *CacheOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	var records []ir.KernelRecord
	if opts.Kernel != "" {
		rec, err := st.LatestKernel(ctx, opts.Kernel)
		if errors.Is(err, sql.ErrNoRows) {
			_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("kernel %s is not cached", opts.Kernel), nil)
			return NewExitError(ExitFailure, fmt.Sprintf("kernel %s is not cached", opts.Kernel))
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read kernel", err)
		}
		records = append(records, rec)
	} else {
		records, err = st.ListKernels(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list kernels", err)
		}
	}

	stats, err := st.Stats(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read cache stats", err)
	}

	result := CacheResult{
		Entries:  make([]CacheEntry, 0, len(records)),
		Total:    len(records),
		Sessions: stats.Sessions,
		Nodes:    stats.Nodes,
	}
	for _, rec := range records {
		result.Entries = append(result.Entries, CacheEntry{
			Name:       rec.Name,
			Session:    rec.SessionID,
			Seq:        rec.Seq,
			Expr:       rec.Expr,
			Bind:       rec.Bind,
			Specialize: rec.Specialize,
			Rendered:   rec.Rendered,
			Nodes:      rec.NodeCount,
			SourceHash: rec.SourceHash,
			GraphHash:  rec.GraphHash,
		})
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	return outputCacheText(formatter, result)
}

func outputCacheText(formatter *OutputFormatter, result CacheResult) error {
	w := formatter.Writer
	if result.Total == 0 {
		fmt.Fprintln(w, "Kernel cache is empty.")
		return nil
	}

	fmt.Fprintf(w, "Kernel cache: %d entry(s)\n", result.Total)
	fmt.Fprintf(w, "Sessions: %d, stored nodes: %d\n\n", result.Sessions, result.Nodes)
	for _, e := range result.Entries {
		fmt.Fprintf(w, "  [%d] %s = %s\n", e.Seq, e.Name, e.Rendered)
		fmt.Fprintf(w, "       expr: %s\n", e.Expr)
		if formatter.Verbose {
			fmt.Fprintf(w, "       nodes: %d\n", e.Nodes)
			fmt.Fprintf(w, "       session: %s\n", e.Session)
			fmt.Fprintf(w, "       source: %s\n", truncateHash(e.SourceHash))
			fmt.Fprintf(w, "       graph: %s\n", truncateHash(e.GraphHash))
		}
	}
	return nil
}

// truncateHash truncates a long hash for display.
func truncateHash(h string) string {
	if len(h) <= 16 {
		return h
	}
	return h[:8] + "..." + h[len(h)-8:]
}
