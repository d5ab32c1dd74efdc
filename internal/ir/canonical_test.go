package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"int32 immediate", int32(-100), "-100"},
		{"seq", int64(9223372036854775807), "9223372036854775807"},
		{"float bits", uint32(0x80000000), "2147483648"},
		{"bool", true, "true"},
		{"empty inputs", []any{}, "[]"},
		{"node", []any{"LoadImm", 3, []any{0}}, `["LoadImm",3,[0]]`},
		{"quote and backslash", `a"b\c`, `"a\"b\\c"`},
		{"control", "a\nb\x01", `"a\nb\u0001"`},
		{"html is not escaped", "x<y&z", `"x<y&z"`},
		{"line separator passes through", "a\u2028b", "\"a\u2028b\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestMarshalCanonicalKeyOrder(t *testing.T) {
	t.Run("sorted at every depth", func(t *testing.T) {
		got, err := MarshalCanonical(map[string]any{
			"specialize": map[string]any{"y": 2, "x": 1},
			"expr":       "load(x + y)",
			"bind":       map[string]any{},
		})
		require.NoError(t, err)
		assert.Equal(t, `{"bind":{},"expr":"load(x + y)","specialize":{"x":1,"y":2}}`, string(got))
	})

	// U+1F600 encodes as the surrogate pair D83D DE00, which sorts before
	// U+FF61 in UTF-16 but after it in UTF-8.
	t.Run("utf-16 code units", func(t *testing.T) {
		got, err := MarshalCanonical(map[string]any{"\uff61": 1, "\U0001F600": 2})
		require.NoError(t, err)
		assert.Equal(t, "{\"\U0001F600\":2,\"\uff61\":1}", string(got))
	})
}

// Kernel names that differ only in Unicode normalization form are the same
// definition.
func TestMarshalCanonicalNFC(t *testing.T) {
	decomposed := KernelSpec{Name: "cafe\u0301", Expr: "x"}
	composed := KernelSpec{Name: "caf\u00e9", Expr: "x"}

	assert.Equal(t, MustSourceHash(composed), MustSourceHash(decomposed))
}

func TestMarshalCanonicalRejects(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		wantErr string
	}{
		{"null", nil, "null"},
		{"float32", float32(1.5), "float"},
		{"nested float", map[string]any{"inputs": []any{1, 2.5}}, "[1]"},
		{"unsupported", struct{}{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MarshalCanonical(tt.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
