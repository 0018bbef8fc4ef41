package jsonls

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTypeMismatch(t *testing.T) {
	cache := NewCache()
	schema := mustCompile(t, cache, `{"type": "string"}`)
	doc := Parse([]byte(`42`))
	problems := schema.Validate(doc.Root)
	require.Len(t, problems, 1)
	assert.Equal(t, "type", problems[0].Keyword)
	assert.Same(t, doc.Root, problems[0].Node)
}

func TestValidateEnumMismatch(t *testing.T) {
	cache := NewCache()
	schema := mustCompile(t, cache, `{"enum": ["red", "green", "blue"]}`)
	doc := Parse([]byte(`"purple"`))
	problems := schema.Validate(doc.Root)
	require.Len(t, problems, 1)
	assert.Equal(t, "enum", problems[0].Keyword)
}

func TestValidateAnyOfOneBranchValid(t *testing.T) {
	cache := NewCache()
	schema := mustCompile(t, cache, `{"anyOf": [{"type": "string"}, {"type": "number"}]}`)
	doc := Parse([]byte(`"ok"`))
	problems := schema.Validate(doc.Root)
	assert.Empty(t, problems)
}

func TestValidateAnyOfNoBranchValid(t *testing.T) {
	cache := NewCache()
	schema := mustCompile(t, cache, `{"anyOf": [{"type": "string"}, {"type": "number"}]}`)
	doc := Parse([]byte(`true`))
	problems := schema.Validate(doc.Root)
	require.Len(t, problems, 1)
	assert.Equal(t, "anyOf", problems[0].Keyword)
}

func TestValidateRefToLocalDef(t *testing.T) {
	cache := NewCache()
	schema := mustCompile(t, cache, `{
		"$defs": {"positive": {"type": "number", "exclusiveMinimum": 0}},
		"$ref": "#/$defs/positive"
	}`)
	doc := Parse([]byte(`-1`))
	problems := schema.Validate(doc.Root)
	assert.NotEmpty(t, problems)
}

func TestValidateDraft4BooleanExclusiveMinimum(t *testing.T) {
	cache := NewCache()
	schema := mustCompile(t, cache, `{
		"$schema": "http://json-schema.org/draft-04/schema#",
		"minimum": 0,
		"exclusiveMinimum": true
	}`)
	doc := Parse([]byte(`0`))
	problems := schema.Validate(doc.Root)
	require.Len(t, problems, 1)
	assert.Equal(t, "exclusiveMinimum", problems[0].Keyword)
}

func TestValidateIfThenElseIgnoredPreDraft07(t *testing.T) {
	cache := NewCache()
	schema := mustCompile(t, cache, `{
		"$schema": "http://json-schema.org/draft-06/schema#",
		"if": {"type": "string"},
		"then": {"minLength": 10}
	}`)
	doc := Parse([]byte(`"short"`))
	problems := schema.Validate(doc.Root)
	assert.Empty(t, problems, "if/then is a draft-07+ keyword and must be inert under draft-06")
}

func TestValidateIfThenElseAppliesAtDraft07(t *testing.T) {
	cache := NewCache()
	schema := mustCompile(t, cache, `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"if": {"type": "string"},
		"then": {"minLength": 10}
	}`)
	doc := Parse([]byte(`"short"`))
	problems := schema.Validate(doc.Root)
	assert.NotEmpty(t, problems)
}

func TestDetectDraftDefaultsToLatest(t *testing.T) {
	assert.Equal(t, Draft2020_12, DetectDraft(nil))

	cache := NewCache()
	schema := mustCompile(t, cache, `{"$schema": "http://json-schema.org/draft-04/schema#"}`)
	assert.Equal(t, Draft4, DetectDraft(schema))
}

func TestValidateFormatColorHex(t *testing.T) {
	cache := NewCache()
	schema := mustCompile(t, cache, `{"type": "string", "format": "color-hex"}`)
	cache.SetAssertFormat(true)

	valid := Parse([]byte(`"#ff00aa"`))
	assert.Empty(t, schema.Validate(valid.Root))

	invalid := Parse([]byte(`"not-a-color"`))
	assert.NotEmpty(t, schema.Validate(invalid.Root))
}
