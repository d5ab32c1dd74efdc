package eval

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveArgs(t *testing.T) {
	params := []string{"w", "h", "k"}

	tests := []struct {
		name       string
		positional []int32
		named      map[string]int32
		want       []int32
		errParam   string
	}{
		{name: "all positional", positional: []int32{1, 2, 3}, want: []int32{1, 2, 3}},
		{name: "all named", named: map[string]int32{"k": 3, "w": 1, "h": 2}, want: []int32{1, 2, 3}},
		{name: "mixed", positional: []int32{1}, named: map[string]int32{"k": 3, "h": 2}, want: []int32{1, 2, 3}},
		{name: "missing", positional: []int32{1, 2}, errParam: "k"},
		{name: "both ways", positional: []int32{1, 2, 3}, named: map[string]int32{"w": 1}, errParam: "w"},
		{name: "unknown name", positional: []int32{1, 2, 3}, named: map[string]int32{"z": 0}, errParam: "z"},
		{name: "too many positional", positional: []int32{1, 2, 3, 4}, errParam: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveArgs(params, tt.positional, tt.named)
			if tt.want != nil {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
				return
			}
			require.Error(t, err)
			var argErr *ArgError
			require.True(t, errors.As(err, &argErr))
			assert.Equal(t, tt.errParam, argErr.Param)
		})
	}

	t.Run("no params", func(t *testing.T) {
		got, err := ResolveArgs(nil, nil, nil)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("duplicate declaration", func(t *testing.T) {
		_, err := ResolveArgs([]string{"a", "a"}, nil, nil)
		assert.ErrorContains(t, err, "declared twice")
	})
}
