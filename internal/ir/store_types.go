package ir

// NOTE: These are store-layer records, not part of the graph model.

// KernelRecord is one compiled kernel as persisted in the cache.
type KernelRecord struct {
	SourceHash    string            `json:"source_hash"` // SourceHash of the definition (cache key)
	GraphHash     string            `json:"graph_hash"`  // KernelHash of the compiled root
	Name          string            `json:"name"`
	SessionID     string            `json:"session_id"` // UUIDv7 of the compiling session
	Seq           int64             `json:"seq"`        // Logical clock within the session
	Expr          string            `json:"expr"`
	Bind          map[string]string `json:"bind,omitempty"`
	Specialize    map[string]int32  `json:"specialize,omitempty"`
	Rendered      string            `json:"rendered"` // Render of the compiled root
	Graph         []byte            `json:"graph"`    // Encode of the compiled root
	NodeCount     int               `json:"node_count"`
	EngineVersion string            `json:"engine_version"`
	IRVersion     string            `json:"ir_version"`
}

// Session is one compilation session: a graph context and the kernels
// compiled into it.
type Session struct {
	ID            string `json:"id"` // UUIDv7
	EngineVersion string `json:"engine_version"`
	IRVersion     string `json:"ir_version"`
}
