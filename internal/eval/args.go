package eval

import (
	"fmt"
)

// ArgError reports a kernel invocation whose arguments do not match the
// declared parameters.
type ArgError struct {
	Param   string
	Message string
}

func (e *ArgError) Error() string {
	if e.Param == "" {
		return fmt.Sprintf("arguments: %s", e.Message)
	}
	return fmt.Sprintf("argument %q: %s", e.Param, e.Message)
}

// ResolveArgs matches supplied arguments against declared params and
// returns one value per param, in declaration order.
//
// Positional arguments fill params from the left; named arguments fill the
// rest. Every param must be supplied exactly once, by position or by name
// but not both, and no argument may name an undeclared param.
func ResolveArgs(params []string, positional []int32, named map[string]int32) ([]int32, error) {
	if len(positional) > len(params) {
		return nil, &ArgError{Message: fmt.Sprintf("%d positional arguments for %d parameters", len(positional), len(params))}
	}

	declared := make(map[string]int, len(params))
	for i, p := range params {
		if _, dup := declared[p]; dup {
			return nil, &ArgError{Param: p, Message: "declared twice"}
		}
		declared[p] = i
	}

	out := make([]int32, len(params))
	supplied := make([]bool, len(params))
	for i, v := range positional {
		out[i] = v
		supplied[i] = true
	}

	for name, v := range named {
		i, ok := declared[name]
		if !ok {
			return nil, &ArgError{Param: name, Message: "no such parameter"}
		}
		if supplied[i] {
			return nil, &ArgError{Param: name, Message: "supplied both by position and by name"}
		}
		out[i] = v
		supplied[i] = true
	}

	for i, ok := range supplied {
		if !ok {
			return nil, &ArgError{Param: params[i], Message: "missing"}
		}
	}
	return out, nil
}
