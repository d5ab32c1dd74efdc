package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Render returns the expression rooted at n in infix form, for example
// "((x*4)+[y+3])". Placeholders render as "<id>". Shared subexpressions are
// expanded at every use.
func Render(n *Node) string {
	var b strings.Builder
	renderExpr(&b, n)
	return b.String()
}

// String implements fmt.Stringer.
func (n *Node) String() string {
	return Render(n)
}

func renderExpr(b *strings.Builder, n *Node) {
	if n == nil {
		b.WriteString("<nil>")
		return
	}
	if n.graph == nil {
		b.WriteString("<freed>")
		return
	}

	switch n.op {
	case Const:
		b.WriteString(literalText(n))
	case VarX, VarY, VarT, VarC:
		b.WriteString(AxisName(n.op))
	case UnboundVar:
		fmt.Fprintf(b, "<%d>", n.id)
	case Plus, Minus, Times, Divide:
		b.WriteByte('(')
		renderExpr(b, n.inputs[0])
		b.WriteString(infixSymbol(n.op))
		renderExpr(b, n.inputs[1])
		b.WriteByte(')')
	case PlusImm, TimesImm:
		b.WriteByte('(')
		renderExpr(b, n.inputs[0])
		fmt.Fprintf(b, "%s%d)", infixSymbol(n.op), n.ival)
	case LoadImm:
		b.WriteByte('[')
		renderExpr(b, n.inputs[0])
		fmt.Fprintf(b, "+%d]", n.ival)
	case Load:
		b.WriteByte('[')
		renderExpr(b, n.inputs[0])
		b.WriteByte(']')
	default:
		b.WriteString(n.op.String())
		if len(n.inputs) == 0 {
			return
		}
		b.WriteByte('(')
		for i, in := range n.inputs {
			if i > 0 {
				b.WriteString(", ")
			}
			renderExpr(b, in)
		}
		b.WriteByte(')')
	}
}

// RenderInstruction returns n as a single register-style instruction, such
// as "r2 = r0 + 3". Operands are named by their register hint when they have
// one, by value when they are literals, and by "v<id>" otherwise.
func RenderInstruction(n *Node) string {
	args := make([]string, len(n.inputs))
	for i, in := range n.inputs {
		args[i] = operandName(in)
	}

	var b strings.Builder
	b.WriteString(destName(n))
	b.WriteString(" = ")

	switch n.op {
	case Const:
		b.WriteString(literalText(n))
	case Plus, Minus, Times, Divide:
		fmt.Fprintf(&b, "%s %s %s", args[0], infixSymbol(n.op), args[1])
	case PlusImm, TimesImm:
		fmt.Fprintf(&b, "%s %s %d", args[0], infixSymbol(n.op), n.ival)
	case LoadImm:
		fmt.Fprintf(&b, "Load %s + %d", args[0], n.ival)
	default:
		b.WriteString(n.op.String())
		for _, a := range args {
			b.WriteByte(' ')
			b.WriteString(a)
		}
	}
	return b.String()
}

func infixSymbol(op OpCode) string {
	switch op {
	case Plus, PlusImm:
		return "+"
	case Minus:
		return "-"
	case Times, TimesImm:
		return "*"
	case Divide:
		return "/"
	}
	return "?"
}

// regName maps a register hint to a name: 0-15 are general purpose, the
// rest are vector registers.
func regName(r int) string {
	if r < 16 {
		return "r" + strconv.Itoa(r)
	}
	return "xmm" + strconv.Itoa(r-16)
}

func destName(n *Node) string {
	if n.reg >= 0 {
		return regName(n.reg)
	}
	return "v" + strconv.FormatUint(n.id, 10)
}

func operandName(n *Node) string {
	switch {
	case n.reg >= 0:
		return regName(n.reg)
	case n.op == Const:
		return literalText(n)
	default:
		return "v" + strconv.FormatUint(n.id, 10)
	}
}

// literalText formats a constant. Floats always carry a decimal point or an
// exponent so they never read as ints.
func literalText(n *Node) string {
	switch n.typ {
	case Float:
		s := strconv.FormatFloat(float64(n.fval), 'g', -1, 32)
		if !strings.ContainsAny(s, ".eIN") {
			s += ".0"
		}
		return s
	case Bool:
		return strconv.FormatBool(n.ival != 0)
	}
	return strconv.FormatInt(int64(n.ival), 10)
}
