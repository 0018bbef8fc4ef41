package jsonls

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSimpleObject(t *testing.T) {
	doc := Parse([]byte(`{"name": "Ada", "age": 36}`))
	require.Empty(t, doc.Diagnostics)
	obj, ok := doc.Root.(*ObjectNode)
	require.True(t, ok)
	require.Len(t, obj.Properties, 2)

	name := obj.Get("name")
	require.NotNil(t, name)
	str, ok := name.Value.(*StringNode)
	require.True(t, ok)
	assert.Equal(t, "Ada", str.Value)

	age := obj.Get("age")
	require.NotNil(t, age)
	num, ok := age.Value.(*NumberNode)
	require.True(t, ok)
	assert.Equal(t, float64(36), num.Value)
	assert.True(t, num.IsInteger)
}

func TestParseNestedArray(t *testing.T) {
	doc := Parse([]byte(`[1, [2, 3], {"a": null}]`))
	require.Empty(t, doc.Diagnostics)
	arr, ok := doc.Root.(*ArrayNode)
	require.True(t, ok)
	require.Len(t, arr.Items, 3)

	inner, ok := arr.Items[1].(*ArrayNode)
	require.True(t, ok)
	assert.Len(t, inner.Items, 2)
}

func TestParseTrailingCommaRecovers(t *testing.T) {
	doc := Parse([]byte(`{"a": 1,}`))
	obj, ok := doc.Root.(*ObjectNode)
	require.True(t, ok)
	require.Len(t, obj.Properties, 1)

	var sawTrailingComma bool
	for _, d := range doc.Diagnostics {
		if d.Code == DiagTrailingComma {
			sawTrailingComma = true
		}
	}
	assert.True(t, sawTrailingComma)
}

// TestParseTrailingCommaOffsetIsTheComma is spec.md §8 scenario E3: the
// diagnostic must point at the comma itself, not at whatever whitespace or
// closing bracket happens to follow it.
func TestParseTrailingCommaOffsetIsTheComma(t *testing.T) {
	doc := Parse([]byte(`[ 1, 2, ]`))
	arr, ok := doc.Root.(*ArrayNode)
	require.True(t, ok)
	require.Len(t, arr.Items, 2)

	require.Len(t, doc.Diagnostics, 1)
	assert.Equal(t, DiagTrailingComma, doc.Diagnostics[0].Code)
	assert.Equal(t, 6, doc.Diagnostics[0].Offset)
}

func TestParseMissingCommaRecovers(t *testing.T) {
	doc := Parse([]byte(`{"a": 1 "b": 2}`))
	obj, ok := doc.Root.(*ObjectNode)
	require.True(t, ok)
	// Error recovery should still produce both properties despite the
	// missing comma between them.
	assert.Len(t, obj.Properties, 2)
	assert.NotEmpty(t, doc.Diagnostics)
}

func TestParseDuplicateKeysRetained(t *testing.T) {
	doc := Parse([]byte(`{"a": 1, "a": 2}`))
	obj, ok := doc.Root.(*ObjectNode)
	require.True(t, ok)
	require.Len(t, obj.Properties, 2)

	var sawDuplicate bool
	for _, d := range doc.Diagnostics {
		if d.Code == DiagDuplicateKey {
			sawDuplicate = true
		}
	}
	assert.True(t, sawDuplicate)

	// The first occurrence is the semantically winning one.
	winner := obj.Get("a")
	num := winner.Value.(*NumberNode)
	assert.Equal(t, float64(1), num.Value)
}

func TestParseCommentsCollected(t *testing.T) {
	doc := Parse([]byte("// leading\n{\"a\": /* inline */ 1}"), ParseOptions{CollectComments: true})
	require.Len(t, doc.Comments, 2)
	assert.False(t, doc.Comments[0].Block)
	assert.True(t, doc.Comments[1].Block)
	require.Empty(t, doc.Diagnostics)
}

func TestParseWithoutCommentCollection(t *testing.T) {
	doc := Parse([]byte("// leading\n{\"a\": 1}"))
	assert.Empty(t, doc.Comments)
}

func TestParseUnterminatedObjectRecovers(t *testing.T) {
	doc := Parse([]byte(`{"a": 1`))
	require.NotNil(t, doc.Root)
	assert.NotEmpty(t, doc.Diagnostics)
}

func TestPositionOf(t *testing.T) {
	doc := &Document{Source: []byte("ab\ncd\nef")}
	line, char := doc.PositionOf(0)
	assert.Equal(t, 0, line)
	assert.Equal(t, 0, char)

	line, char = doc.PositionOf(4)
	assert.Equal(t, 1, line)
	assert.Equal(t, 1, char)
}
