// ABOUTME: Tests for the Python dict literal parser used by context listings
// ABOUTME: Covers quoting styles, escapes, scalar keywords, nesting, and malformed input

package backend

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDictLiteral(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []literalPair
	}{
		{
			name: "empty",
			src:  "{}",
			want: []literalPair{},
		},
		{
			name: "single quoted",
			src:  "{'a': 'Trip planning'}",
			want: []literalPair{{Key: "a", Value: "Trip planning"}},
		},
		{
			name: "mixed quotes keep order",
			src:  `{"b": 'second', 'a': "first"}`,
			want: []literalPair{{Key: "b", Value: "second"}, {Key: "a", Value: "first"}},
		},
		{
			name: "embedded quote escapes",
			src:  `{'id-1': "Bob's trip", 'id-2': 'say \'hi\''}`,
			want: []literalPair{{Key: "id-1", Value: "Bob's trip"}, {Key: "id-2", Value: "say 'hi'"}},
		},
		{
			name: "unicode and control escapes",
			src:  `{'x': 'caf\xe9\n\u2603'}`,
			want: []literalPair{{Key: "x", Value: "café\n☃"}},
		},
		{
			name: "unknown escape kept verbatim",
			src:  `{'p': 'C:\d'}`,
			want: []literalPair{{Key: "p", Value: `C:\d`}},
		},
		{
			name: "keywords and numbers",
			src:  "{'t': True, 'f': False, 'n': None, 'i': -12, 'r': 1.5e3}",
			want: []literalPair{
				{Key: "t", Value: true},
				{Key: "f", Value: false},
				{Key: "n", Value: nil},
				{Key: "i", Value: literalNumber("-12")},
				{Key: "r", Value: literalNumber("1.5e3")},
			},
		},
		{
			name: "nested containers and trailing comma",
			src:  "{'a': [1, 'two', (3,)], 'b': {'c': 'd'},}",
			want: []literalPair{
				{Key: "a", Value: []any{literalNumber("1"), "two", []any{literalNumber("3")}}},
				{Key: "b", Value: []literalPair{{Key: "c", Value: "d"}}},
			},
		},
		{
			name: "numeric keys",
			src:  "{1: 'one'}",
			want: []literalPair{{Key: "1", Value: "one"}},
		},
		{
			name: "surrounding whitespace",
			src:  "  {\n  'a' : 'b'\n}  ",
			want: []literalPair{{Key: "a", Value: "b"}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseDictLiteral(tc.src)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseDictLiteral_Malformed(t *testing.T) {
	for _, src := range []string{
		"",
		"[1, 2]",
		"{'a' 'b'}",
		"{'a': 'b'",
		"{'a': 'unterminated}",
		"{'a': 'b'} extra",
		"{'a': datetime(2020)}",
		"{'a': 'b' 'c': 'd'}",
		"{['k']: 'v'}",
		`{'a': '\x4'}`,
		"{'a': -}",
	} {
		t.Run(src, func(t *testing.T) {
			_, err := parseDictLiteral(src)
			assert.Error(t, err)
		})
	}
}

func TestNormalizeContexts_SkipsContainerValues(t *testing.T) {
	got, err := normalizeContexts(json.RawMessage(`"{'a': 'Trip', 'b': ['x'], 'c': None}"`))

	require.NoError(t, err)
	assert.Equal(t, []ContextDescriptor{
		{ID: "a", Title: "Trip"},
		{ID: "c", Title: ""},
	}, got)
}

func TestNormalizeContexts_JSONStringEncoded(t *testing.T) {
	got, err := normalizeContexts(json.RawMessage(`"{\"k1\": \"Research\", \"k2\": \"News\"}"`))

	require.NoError(t, err)
	assert.Equal(t, []ContextDescriptor{
		{ID: "k1", Title: "Research"},
		{ID: "k2", Title: "News"},
	}, got)
}
