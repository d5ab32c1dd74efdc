package ir

// OpCode identifies the operator of a node.
type OpCode uint8

const (
	Const OpCode = iota
	VarX
	VarY
	VarT
	VarC
	UnboundVar
	Plus
	Minus
	Times
	Divide
	Power
	Mod
	PlusImm
	TimesImm
	Sin
	Cos
	Tan
	ASin
	ACos
	ATan
	ATan2
	Exp
	Log
	Abs
	Floor
	Ceil
	Round
	LT
	GT
	LTE
	GTE
	EQ
	NEQ
	And
	Or
	Nand
	IntToFloat
	FloatToInt
	Load
	LoadImm
	NoOp

	numOpCodes
)

// opInfo is the static description of an operator.
type opInfo struct {
	name  string
	arity int
}

var opTable = [numOpCodes]opInfo{
	Const:      {"Const", 0},
	VarX:       {"VarX", 0},
	VarY:       {"VarY", 0},
	VarT:       {"VarT", 0},
	VarC:       {"VarC", 0},
	UnboundVar: {"UnboundVar", 0},
	Plus:       {"Plus", 2},
	Minus:      {"Minus", 2},
	Times:      {"Times", 2},
	Divide:     {"Divide", 2},
	Power:      {"Power", 2},
	Mod:        {"Mod", 2},
	PlusImm:    {"PlusImm", 1},
	TimesImm:   {"TimesImm", 1},
	Sin:        {"Sin", 1},
	Cos:        {"Cos", 1},
	Tan:        {"Tan", 1},
	ASin:       {"ASin", 1},
	ACos:       {"ACos", 1},
	ATan:       {"ATan", 1},
	ATan2:      {"ATan2", 2},
	Exp:        {"Exp", 1},
	Log:        {"Log", 1},
	Abs:        {"Abs", 1},
	Floor:      {"Floor", 1},
	Ceil:       {"Ceil", 1},
	Round:      {"Round", 1},
	LT:         {"LT", 2},
	GT:         {"GT", 2},
	LTE:        {"LTE", 2},
	GTE:        {"GTE", 2},
	EQ:         {"EQ", 2},
	NEQ:        {"NEQ", 2},
	And:        {"And", 2},
	Or:         {"Or", 2},
	Nand:       {"Nand", 2},
	IntToFloat: {"IntToFloat", 1},
	FloatToInt: {"FloatToInt", 1},
	Load:       {"Load", 1},
	LoadImm:    {"LoadImm", 1},
	NoOp:       {"NoOp", 1},
}

func (op OpCode) String() string {
	if op < numOpCodes {
		return opTable[op].name
	}
	return "OpCode(?)"
}

// Arity is the number of inputs the operator requires.
func (op OpCode) Arity() int {
	if op < numOpCodes {
		return opTable[op].arity
	}
	return -1
}

// Valid reports whether op is a known operator.
func (op OpCode) Valid() bool {
	return op < numOpCodes
}

// ParseOpCode returns the operator named s.
func ParseOpCode(s string) (OpCode, bool) {
	for i := range opTable {
		if opTable[i].name == s {
			return OpCode(i), true
		}
	}
	return 0, false
}

// IsAxisVar reports whether op is one of the four iteration variables.
func (op OpCode) IsAxisVar() bool {
	return op == VarX || op == VarY || op == VarT || op == VarC
}

// IsAdditive reports whether op participates in sum canonicalization.
func (op OpCode) IsAdditive() bool {
	return op == Plus || op == Minus || op == PlusImm
}

// IsComparison reports whether op is a comparison producing Bool.
func (op OpCode) IsComparison() bool {
	return op >= LT && op <= NEQ
}

// IsTranscendental reports whether op is a unary float function.
func (op OpCode) IsTranscendental() bool {
	switch op {
	case Sin, Cos, Tan, ASin, ACos, ATan, Exp, Log:
		return true
	}
	return false
}

// IsRounding reports whether op is Floor, Ceil or Round.
func (op OpCode) IsRounding() bool {
	return op == Floor || op == Ceil || op == Round
}

// IsImmediate reports whether op carries an int immediate operand.
func (op OpCode) IsImmediate() bool {
	return op == PlusImm || op == TimesImm || op == LoadImm
}

// IsLoad reports whether op reads memory.
func (op OpCode) IsLoad() bool {
	return op == Load || op == LoadImm
}

// Dep is the dependency bit introduced by the axis variable op, or 0.
func (op OpCode) Dep() Deps {
	switch op {
	case VarX:
		return DepX
	case VarY:
		return DepY
	case VarT:
		return DepT
	case VarC:
		return DepC
	}
	return 0
}

// ownDeps is the dependency an operator introduces by itself.
func (op OpCode) ownDeps() Deps {
	switch {
	case op.IsAxisVar():
		return op.Dep()
	case op.IsLoad():
		return DepMem
	case op == UnboundVar:
		return DepUnbound
	}
	return 0
}

// AxisVar returns the axis variable named "x", "y", "t" or "c".
func AxisVar(name string) (OpCode, bool) {
	switch name {
	case "x":
		return VarX, true
	case "y":
		return VarY, true
	case "t":
		return VarT, true
	case "c":
		return VarC, true
	}
	return 0, false
}

// AxisName is the inverse of AxisVar.
func AxisName(op OpCode) string {
	switch op {
	case VarX:
		return "x"
	case VarY:
		return "y"
	case VarT:
		return "t"
	case VarC:
		return "c"
	}
	return ""
}
