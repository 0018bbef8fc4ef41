package jsonls

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONPointerNested(t *testing.T) {
	doc := Parse([]byte(`{"a": {"b": [1, 2, {"c~d/e": true}]}}`))
	obj := doc.Root.(*ObjectNode)
	a := obj.Get("a").Value.(*ObjectNode)
	b := a.Get("b").Value.(*ArrayNode)
	third := b.Items[2].(*ObjectNode)
	value := third.Get("c~d/e").Value

	assert.Equal(t, "/a/b/2/c~0d~1e", JSONPointer(value))
}

func TestJSONPointerRoot(t *testing.T) {
	doc := Parse([]byte(`{"a": 1}`))
	assert.Equal(t, "", JSONPointer(doc.Root))
}

func TestObjectGetReturnsFirstOccurrence(t *testing.T) {
	doc := Parse([]byte(`{"a": 1, "a": 2}`))
	obj := doc.Root.(*ObjectNode)
	require.NotNil(t, obj.Get("a"))
	num := obj.Get("a").Value.(*NumberNode)
	assert.Equal(t, float64(1), num.Value)
}

func TestEndHelper(t *testing.T) {
	doc := Parse([]byte(`{"a": 123}`))
	obj := doc.Root.(*ObjectNode)
	num := obj.Get("a").Value.(*NumberNode)
	assert.Equal(t, num.Offset()+num.Length(), End(num))
}
