package ir

import "strings"

// Type is the scalar result type of a node.
type Type uint8

const (
	Int Type = iota
	Float
	Bool
)

var typeNames = [...]string{
	Int:   "Int",
	Float: "Float",
	Bool:  "Bool",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Type(?)"
}

// ParseType returns the Type named s.
func ParseType(s string) (Type, bool) {
	for i, name := range typeNames {
		if name == s {
			return Type(i), true
		}
	}
	return 0, false
}

// Deps is a bitmask of everything a node's value depends on.
type Deps uint8

const (
	DepX Deps = 1 << iota
	DepY
	DepT
	DepC
	DepMem
	DepUnbound
)

var depNames = []struct {
	bit  Deps
	name string
}{
	{DepX, "x"},
	{DepY, "y"},
	{DepT, "t"},
	{DepC, "c"},
	{DepMem, "mem"},
	{DepUnbound, "unbound"},
}

// Has reports whether every bit in d2 is set in d.
func (d Deps) Has(d2 Deps) bool {
	return d&d2 == d2
}

// String renders the mask as "x|mem", or "none" for an empty mask.
func (d Deps) String() string {
	if d == 0 {
		return "none"
	}
	var parts []string
	for _, dn := range depNames {
		if d&dn.bit != 0 {
			parts = append(parts, dn.name)
		}
	}
	return strings.Join(parts, "|")
}

// Level values. Higher means more specific.
const (
	LevelConst   = 0
	LevelT       = 1
	LevelY       = 2
	LevelX       = 3
	LevelC       = 4 // also memory
	LevelUnbound = 99
)

// levelOf derives the canonicalization level from a dependency mask.
func levelOf(d Deps) int {
	switch {
	case d&DepUnbound != 0:
		return LevelUnbound
	case d&(DepC|DepMem) != 0:
		return LevelC
	case d&DepX != 0:
		return LevelX
	case d&DepY != 0:
		return LevelY
	case d&DepT != 0:
		return LevelT
	default:
		return LevelConst
	}
}
