package config

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeJSONCRemovesCommentsAndTrailingCommas(t *testing.T) {
	input := `
{
  // line comment
  "timeouts": {
    "query": { "interval_ms": 10, /* block comment */ },
  },
  "items": [
    "one",
    "two",
  ],
}
`

	normalized, err := normalizeJSONC(input)
	require.NoError(t, err)
	require.NotContains(t, normalized, "//")
	require.NotContains(t, normalized, "/*")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(normalized), &decoded))
	require.Equal(t, []any{"one", "two"}, decoded["items"])
}

func TestNormalizeJSONCPreservesOffsets(t *testing.T) {
	input := "{\n  /* a\n  b */ \"x\": 1, // tail\n}"

	normalized, err := normalizeJSONC(input)
	require.NoError(t, err)
	require.Len(t, normalized, len(input))
	require.Equal(t, strings.Count(input, "\n"), strings.Count(normalized, "\n"))
	require.Equal(t, strings.Index(input, `"x"`), strings.Index(normalized, `"x"`))
}

func TestNormalizeJSONCRetainsCommentLikeTextInsideStrings(t *testing.T) {
	input := `{"value":"contains // and /* comment-like */ text, ]",}`

	normalized, err := normalizeJSONC(input)
	require.NoError(t, err)
	require.Contains(t, normalized, "// and /* comment-like */ text, ]")
}

func TestNormalizeJSONCHandlesEscapedQuotes(t *testing.T) {
	input := `{"value":"say \"hi\" // not a comment"}`

	normalized, err := normalizeJSONC(input)
	require.NoError(t, err)
	require.Equal(t, input, normalized)
}

func TestNormalizeJSONCUnterminatedBlockCommentFails(t *testing.T) {
	_, err := normalizeJSONC("{ /* unterminated ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unterminated block comment")
}

func TestEnsureSingleJSONValueRejectsExtraPayload(t *testing.T) {
	decoder := json.NewDecoder(strings.NewReader(`{"one":1}{"two":2}`))
	var payload map[string]any
	require.NoError(t, decoder.Decode(&payload))

	err := ensureSingleJSONValue(decoder)
	require.Error(t, err)
	require.Contains(t, err.Error(), "multiple JSON values")
}

func TestOffsetToLineCol(t *testing.T) {
	content := "line1\nline2\nline3"

	line, col := offsetToLineCol(content, 1)
	require.Equal(t, 1, line)
	require.Equal(t, 1, col)

	line, col = offsetToLineCol(content, 8)
	require.Equal(t, 2, line)
	require.Equal(t, 2, col)

	line, col = offsetToLineCol(content, 999)
	require.Equal(t, 3, line)
	require.Equal(t, 6, col)
}

func TestJSONCSnowflakeAcceptsNumberAndString(t *testing.T) {
	var id jsoncSnowflake
	require.NoError(t, id.UnmarshalJSON([]byte(`1234567890123456789`)))
	require.Equal(t, jsoncSnowflake(1234567890123456789), id)

	require.NoError(t, id.UnmarshalJSON([]byte(`" 42 "`)))
	require.Equal(t, jsoncSnowflake(42), id)

	err := id.UnmarshalJSON([]byte(`"abc"`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsigned integer")

	require.Error(t, id.UnmarshalJSON([]byte(`-1`)))
}
