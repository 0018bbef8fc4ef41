package jsonls

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/kaptinlin/jsonls/pattern"
)

// evaluateStringKeywords groups maxLength/minLength/pattern, the teacher's
// maxlength.go/minlength.go/pattern.go, against a parsed StringNode.
func evaluateStringKeywords(schema *Schema, node *StringNode, result *evalResult) {
	value := node.Value
	length := utf8.RuneCountInString(value)

	if schema.MaxLength != nil && length > int(*schema.MaxLength) {
		result.add(newProblem("maxLength", "string_too_long", "Value should be at most {max_length} characters", map[string]interface{}{
			"max_length": fmt.Sprintf("%.0f", *schema.MaxLength),
			"length":     length,
		}), "", "", "")
	}

	if schema.MinLength != nil && length < int(*schema.MinLength) {
		result.add(newProblem("minLength", "string_too_short", "Value should be at least {min_length} characters", map[string]interface{}{
			"min_length": *schema.MinLength,
			"length":     length,
		}), "", "", "")
	}

	if schema.Pattern != nil {
		regExp, err := getCompiledPattern(schema)
		if err != nil {
			result.add(newProblem("pattern", "invalid_pattern", "Invalid regular expression pattern {pattern}", map[string]interface{}{
				"pattern": *schema.Pattern,
			}), "", "", "")
		} else if !regExp.MatchString(value) {
			result.add(newProblem("pattern", "pattern_mismatch", "Value does not match the required pattern {pattern}", map[string]interface{}{
				"pattern": *schema.Pattern,
				"value":   value,
			}), "", "", "")
		}
	}

	if schema.Format != nil {
		evaluateFormat(schema, node, result)
	}
}

// getCompiledPattern compiles and caches schema.Pattern through the shared
// extended-regex adapter, so `pattern` and `patternProperties` compile
// through the same entry point.
func getCompiledPattern(schema *Schema) (*regexp.Regexp, error) {
	if schema.compiledStringPattern == nil {
		regExp, err := pattern.CompileExtended(*schema.Pattern)
		if err != nil {
			return nil, err
		}
		schema.compiledStringPattern = regExp
	}
	return schema.compiledStringPattern, nil
}

// evaluateFormat checks the "format" keyword, preferring a cache-registered
// custom format before falling back to the global Formats table; whether a
// mismatch is an error at all is gated by schema.cache.AssertFormat, exactly
// as the teacher's format.go leaves format an annotation-only keyword by
// default.
func evaluateFormat(schema *Schema, node *StringNode, result *evalResult) {
	formatName := *schema.Format
	var formatDef *FormatDef
	if schema.cache != nil {
		schema.cache.customFormatsRW.RLock()
		formatDef = schema.cache.customFormats[formatName]
		schema.cache.customFormatsRW.RUnlock()
	}

	var validator func(interface{}) bool
	if formatDef != nil {
		if formatDef.Type != "" && !matchesType(nodeType(node), formatDef.Type) {
			return
		}
		validator = formatDef.Validate
	} else if global, ok := Formats[formatName]; ok {
		validator = global
	}

	assert := schema.cache != nil && schema.cache.AssertFormat

	if validator != nil {
		if !validator(node.Value) && assert {
			result.add(newProblem("format", "format_mismatch", "Value does not match format '{format}'", map[string]interface{}{"format": formatName}), "", "", "")
		}
		return
	}

	if assert {
		result.add(newProblem("format", "unknown_format", "Unknown format '{format}'", map[string]interface{}{"format": formatName}), "", "", "")
	}
}

func matchesType(valueType, requiredType string) bool {
	if requiredType == "" {
		return true
	}
	if requiredType == "number" && valueType == "integer" {
		return true
	}
	return valueType == requiredType
}
