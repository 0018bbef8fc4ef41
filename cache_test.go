package jsonls

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheCompileAndLookup(t *testing.T) {
	cache := NewCache()
	schema, err := cache.Compile([]byte(`{"$id": "http://example.com/a.json", "type": "string"}`))
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/a.json", schema.ID)

	got, err := cache.GetSchema("http://example.com/a.json")
	require.NoError(t, err)
	assert.Same(t, schema, got)
}

func TestCacheCompileIsIdempotent(t *testing.T) {
	cache := NewCache()
	first, err := cache.Compile([]byte(`{"$id": "http://example.com/b.json", "type": "number"}`))
	require.NoError(t, err)

	second, err := cache.Compile([]byte(`{"$id": "http://example.com/b.json", "type": "string"}`))
	require.NoError(t, err)
	assert.Same(t, first, second, "recompiling the same $id should return the already-registered schema")
}

func TestNormalizeURIDriveLetterCaseFold(t *testing.T) {
	assert.Equal(t, NormalizeURI("file:///c:/foo/bar.json"), NormalizeURI("file:///C:/foo/bar.json"))
}

func TestNormalizeURITrailingHash(t *testing.T) {
	assert.Equal(t, NormalizeURI("http://example.com/schema#"), NormalizeURI("http://example.com/schema"))
}

func TestGetSchemaForResourceNoAssociation(t *testing.T) {
	cache := NewCache()
	_, err := cache.getSchemaForResource("file:///unassociated.json", "")
	assert.ErrorIs(t, err, ErrNoSchemaAssociated)
}

func TestGetSchemaForResourceUsesAssociation(t *testing.T) {
	cache := NewCache()
	_, err := cache.Compile([]byte(`{"type": "object"}`), "http://example.com/c.json")
	require.NoError(t, err)
	cache.RegisterAssociation(Association{URI: "http://example.com/c.json", Patterns: []string{"**/*.person.json"}})

	schema, err := cache.getSchemaForResource("file:///bob.person.json", "")
	require.NoError(t, err)
	require.NotNil(t, schema)
}

// TestOnResourceChangeUpdatesRefTarget is spec.md §8 scenario E6: a schema A
// references schema B by $ref; validating a document under A sees B's
// current content, and replacing B's content (and notifying the cache of
// the change) is reflected on the very next validation without recompiling
// A at all.
func TestOnResourceChangeUpdatesRefTarget(t *testing.T) {
	cache := NewCache()
	_, err := cache.Compile([]byte(`{"type":"number"}`), "http://s/b")
	require.NoError(t, err)
	a, err := cache.Compile([]byte(`{"type":"object","properties":{"x":{"$ref":"http://s/b"}}}`), "http://s/a")
	require.NoError(t, err)

	doc := Parse([]byte(`{"x":"hi"}`))
	diags := Validate(doc, FacadeOptions{Schema: a})
	require.Len(t, diags, 1)
	assert.Contains(t, diags[0].Message, "number")

	_, err = cache.ReplaceSchema("http://s/b", []byte(`{"type":"string"}`))
	require.NoError(t, err)

	diags = Validate(doc, FacadeOptions{Schema: a})
	assert.Empty(t, diags)
}

func TestReplaceSchemaPreservesPointerIdentity(t *testing.T) {
	cache := NewCache()
	first, err := cache.Compile([]byte(`{"type":"number"}`), "http://s/replace-me")
	require.NoError(t, err)

	second, err := cache.ReplaceSchema("http://s/replace-me", []byte(`{"type":"string"}`))
	require.NoError(t, err)
	assert.Same(t, first, second, "ReplaceSchema must mutate the existing *Schema in place")

	got, err := cache.GetSchema("http://s/replace-me")
	require.NoError(t, err)
	assert.Same(t, first, got)
}

func TestSetSchemaOverridesResource(t *testing.T) {
	cache := NewCache()
	schema, err := cache.Compile([]byte(`{"type": "object"}`))
	require.NoError(t, err)
	cache.SetSchema("inmemory://override.json", schema)

	got, err := cache.GetSchema("inmemory://override.json")
	require.NoError(t, err)
	assert.Same(t, schema, got)
}
