package ir

// KernelSpec is a kernel definition as read by the front end.
type KernelSpec struct {
	// Name is the kernel identifier, unique within a compilation session.
	Name string `json:"name"`

	// Expr is the kernel body in expression syntax.
	Expr string `json:"expr"`

	// Bind maps parameter names to the axis ("x", "y", "t", "c") each
	// parameter's placeholder resolves to.
	Bind map[string]string `json:"bind,omitempty"`

	// Specialize fixes axes to concrete values after binding.
	Specialize map[string]int32 `json:"specialize,omitempty"`
}

// canonical is the hashing form. IRVersion is included so a change to the
// builder's rewrite rules invalidates cached kernels.
func (s KernelSpec) canonical() map[string]any {
	bind := make(map[string]any, len(s.Bind))
	for k, v := range s.Bind {
		bind[k] = v
	}
	spec := make(map[string]any, len(s.Specialize))
	for k, v := range s.Specialize {
		spec[k] = v
	}
	return map[string]any{
		"ir_version": IRVersion,
		"name":       s.Name,
		"expr":       s.Expr,
		"bind":       bind,
		"specialize": spec,
	}
}
