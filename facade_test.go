package jsonls

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCompile(t *testing.T, cache *Cache, schemaJSON string) *Schema {
	t.Helper()
	schema, err := cache.Compile([]byte(schemaJSON))
	require.NoError(t, err)
	return schema
}

func TestValidateSemanticDiagnostics(t *testing.T) {
	cache := NewCache()
	schema := mustCompile(t, cache, `{
		"type": "object",
		"properties": {"name": {"type": "string", "minLength": 2}},
		"required": ["name"]
	}`)

	doc := Parse([]byte(`{"name": "X"}`))
	diags := Validate(doc, FacadeOptions{Schema: schema})
	require.Len(t, diags, 1)
	assert.Equal(t, SeverityError, diags[0].Severity)
	assert.Contains(t, diags[0].Message, "at least")
}

func TestValidateMissingRequiredTargetsObject(t *testing.T) {
	cache := NewCache()
	schema := mustCompile(t, cache, `{
		"type": "object",
		"required": ["name"]
	}`)

	doc := Parse([]byte(`{}`))
	diags := Validate(doc, FacadeOptions{Schema: schema})
	require.Len(t, diags, 1)
	assert.Equal(t, doc.Root.Offset(), diags[0].Offset)
}

// TestValidateTypeMismatchMessage is spec.md §8 scenario E4: the rendered
// message names the expected type, quoted, not the received one.
func TestValidateTypeMismatchMessage(t *testing.T) {
	cache := NewCache()
	schema := mustCompile(t, cache, `{"type":"string"}`)
	doc := Parse([]byte(`42`))
	diags := Validate(doc, FacadeOptions{Schema: schema})
	require.Len(t, diags, 1)
	assert.Equal(t, `Incorrect type. Expected "string".`, diags[0].Message)
}

// TestValidateMissingPropertyMessage is spec.md §8 scenario E5.
func TestValidateMissingPropertyMessage(t *testing.T) {
	cache := NewCache()
	schema := mustCompile(t, cache, `{"type":"object","required":["b"]}`)
	doc := Parse([]byte(`{"a":1}`))
	diags := Validate(doc, FacadeOptions{Schema: schema})
	require.Len(t, diags, 1)
	assert.Equal(t, `Missing property "b".`, diags[0].Message)
}

func TestValidateDeprecatedIsWarning(t *testing.T) {
	cache := NewCache()
	schema := mustCompile(t, cache, `{
		"type": "object",
		"properties": {
			"old": {"deprecated": true, "deprecationMessage": "use 'new' instead"}
		}
	}`)

	doc := Parse([]byte(`{"old": 1}`))
	diags := Validate(doc, FacadeOptions{Schema: schema})
	require.Len(t, diags, 1)
	assert.Equal(t, SeverityWarning, diags[0].Severity)
	assert.Equal(t, DiagDeprecated, diags[0].Code)
	assert.Contains(t, diags[0].Message, "use 'new' instead")
}

func TestValidateTrailingCommaSeverity(t *testing.T) {
	doc := Parse([]byte(`{"a": 1,}`))
	diags := Validate(doc, FacadeOptions{TrailingCommas: SeverityWarning})
	require.Len(t, diags, 1)
	assert.Equal(t, DiagTrailingComma, diags[0].Code)
	assert.Equal(t, SeverityWarning, diags[0].Severity)
}

func TestValidateTrailingCommaIgnored(t *testing.T) {
	doc := Parse([]byte(`{"a": 1,}`))
	diags := Validate(doc, FacadeOptions{TrailingCommas: SeverityIgnore})
	assert.Empty(t, diags)
}

func TestValidateCommentDiagnostics(t *testing.T) {
	doc := Parse([]byte("// hi\n{\"a\": 1}"), ParseOptions{CollectComments: true})
	diags := Validate(doc, FacadeOptions{Comments: SeverityWarning})
	require.Len(t, diags, 1)
	assert.Equal(t, DiagCommentNotPermitted, diags[0].Code)
	assert.Equal(t, SeverityWarning, diags[0].Severity)
}

func TestValidateCommentsAllowedBySchema(t *testing.T) {
	cache := NewCache()
	schema := mustCompile(t, cache, `{"type": "object", "allowComments": true}`)

	doc := Parse([]byte("// hi\n{\"a\": 1}"), ParseOptions{CollectComments: true})
	diags := Validate(doc, FacadeOptions{Schema: schema, Comments: SeverityWarning})
	assert.Empty(t, diags)
}

func TestValidateOrderingSyntaxSemanticComment(t *testing.T) {
	cache := NewCache()
	schema := mustCompile(t, cache, `{"type": "object", "required": ["name"]}`)

	doc := Parse([]byte("// hi\n{\"a\": 1,}"), ParseOptions{CollectComments: true})
	diags := Validate(doc, FacadeOptions{
		Schema:         schema,
		TrailingCommas: SeverityWarning,
		Comments:       SeverityWarning,
	})
	require.Len(t, diags, 3)
	assert.Equal(t, DiagTrailingComma, diags[0].Code)
	assert.Equal(t, DiagUndefined, diags[1].Code)
	assert.Equal(t, DiagCommentNotPermitted, diags[2].Code)
}

func TestValidateSchemaResolveFailure(t *testing.T) {
	cache := NewCache()
	doc := Parse([]byte(`{"a": 1}`))
	diags := Validate(doc, FacadeOptions{
		Cache:                  cache,
		ResourceURI:            "file:///unassociated.json",
		SchemaResolveSeverity:  SeverityWarning,
	})
	require.Len(t, diags, 1)
	assert.Equal(t, DiagSchemaResolveError, diags[0].Code)
	assert.Equal(t, SeverityWarning, diags[0].Severity)
}

func TestValidateNoSchemaNoCache(t *testing.T) {
	doc := Parse([]byte(`{"a": 1}`))
	diags := Validate(doc, FacadeOptions{})
	assert.Empty(t, diags)
}

func TestValidateUsesDeclaredSchema(t *testing.T) {
	cache := NewCache()
	_, err := cache.Compile([]byte(`{"type": "object", "required": ["name"]}`), "http://example.com/person.json")
	require.NoError(t, err)

	doc := Parse([]byte(`{"$schema": "http://example.com/person.json"}`))
	diags := Validate(doc, FacadeOptions{Cache: cache, ResourceURI: "file:///person.json"})
	require.Len(t, diags, 1)
	assert.Equal(t, DiagUndefined, diags[0].Code)
}
