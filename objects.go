package jsonls

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	gojson "github.com/goccy/go-json"

	"github.com/kaptinlin/jsonls/pattern"
)

// compilePatterns populates schema.compiledPatterns from schema.PatternProperties,
// the patternProperties counterpart to getCompiledPattern's single-pattern
// keyword cache (strings.go). Grounded on the teacher's own
// patternProperties.go compilePatterns, using this module's extended-regex
// adapter (pattern.CompileExtended) instead of a bare regexp.Compile so
// patternProperties keys get the same Unicode-class/inline-flag support
// `pattern`/`format` already get. An invalid regex is simply omitted: the
// lookup miss it causes is exactly what evaluatePatternProperties reports
// as an invalid_pattern problem.
func (s *Schema) compilePatterns() {
	if s.PatternProperties == nil {
		return
	}
	s.compiledPatterns = make(map[string]*regexp.Regexp, len(*s.PatternProperties))
	for patternKey := range *s.PatternProperties {
		if regex, err := pattern.CompileExtended(patternKey); err == nil {
			s.compiledPatterns[patternKey] = regex
		}
	}
}

// evaluateObject groups the teacher's object keyword files (properties.go,
// patternProperties.go, additionalProperties.go, propertyNames.go,
// required.go, dependentRequired.go, maxProperties.go, minProperties.go)
// into one ObjectNode evaluator. dependentSchemas and unevaluatedProperties
// stay in their own functions, called from validate.go, since they need to
// run after this one has finished marking properties evaluated.
func evaluateObject(schema *Schema, node *ObjectNode, ctx *evalContext, result *evalResult, evaluatedProps map[string]bool, evaluatedItems map[int]bool) {
	byName := make(map[string]Node, len(node.Properties))
	for _, p := range node.Properties {
		if p.Key != nil {
			byName[p.Key.Value] = p.Value
		}
	}

	if schema.Properties != nil {
		var invalid []string
		for propName, propSchema := range *schema.Properties {
			evaluatedProps[propName] = true
			value, exists := byName[propName]
			if !exists {
				if !isRequired(schema, propName) || defaultIsSpecified(propSchema) {
					continue
				}
				value = &NullNode{}
			}
			subResult, _, _ := propSchema.evaluate(value, ctx)
			path := fmt.Sprintf("/properties/%s", propName)
			result.merge(subResult, path, schema.GetSchemaLocation(path), fmt.Sprintf("/%s", propName))
			if !subResult.valid() {
				invalid = append(invalid, propName)
			}
		}
		switch len(invalid) {
		case 0:
		case 1:
			result.add(newProblem("properties", "property_mismatch", "Property {property} does not match the schema", map[string]any{
				"property": fmt.Sprintf("'%s'", invalid[0]),
			}), "", "", "")
		default:
			slices.Sort(invalid)
			result.add(newProblem("properties", "properties_mismatch", "Properties {properties} do not match their schemas", map[string]any{
				"properties": quoteJoin(invalid),
			}), "", "", "")
		}
	}

	if schema.PatternProperties != nil {
		evaluatePatternProperties(schema, node, byName, ctx, result, evaluatedProps)
	}

	if schema.AdditionalProperties != nil {
		evaluateAdditionalProperties(schema, byName, ctx, result, evaluatedProps)
	}

	if schema.PropertyNames != nil {
		evaluatePropertyNames(schema, node, ctx, result)
	}

	if schema.MaxProperties != nil && float64(len(node.Properties)) > *schema.MaxProperties {
		result.add(newProblem("maxProperties", "too_many_properties", "Value should have at most {max_properties} properties", map[string]interface{}{
			"max_properties": *schema.MaxProperties,
		}), "", "", "")
	}

	minProperties := float64(0)
	if schema.MinProperties != nil {
		minProperties = *schema.MinProperties
	}
	if float64(len(node.Properties)) < minProperties && schema.MinProperties != nil {
		result.add(newProblem("minProperties", "too_few_properties", "Value should have at least {min_properties} properties", map[string]interface{}{
			"min_properties": minProperties,
		}), "", "", "")
	}

	if len(schema.Required) > 0 {
		var missing []string
		for _, propName := range schema.Required {
			if _, exists := byName[propName]; !exists {
				missing = append(missing, propName)
			}
		}
		switch len(missing) {
		case 0:
		case 1:
			p := newProblem("required", "missing_required_property", `Missing property "{property}".`, map[string]interface{}{
				"property": missing[0],
			})
			p.Node = requiredProblemTarget(node)
			result.add(p, "", "", "")
		default:
			p := newProblem("required", "missing_required_properties", "Missing properties {properties}.", map[string]interface{}{
				"properties": quoteJoin(missing),
			})
			p.Node = requiredProblemTarget(node)
			result.add(p, "", "", "")
		}
	}

	if len(schema.DependentRequired) > 0 {
		evaluateDependentRequired(schema, byName, result)
	}
}

// requiredProblemTarget is the node a "required" violation should point at:
// the containing property's key, per spec.md §4.4, when obj is itself a
// property's value, otherwise the object's own opening brace.
func requiredProblemTarget(obj *ObjectNode) Node {
	if prop, ok := obj.Parent().(*PropertyNode); ok && prop.Key != nil {
		return prop.Key
	}
	return obj
}

func isRequired(schema *Schema, propName string) bool {
	for _, reqProp := range schema.Required {
		if reqProp == propName {
			return true
		}
	}
	return false
}

func defaultIsSpecified(propSchema *Schema) bool {
	return propSchema != nil && propSchema.Default != nil
}

func quoteJoin(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = fmt.Sprintf("'%s'", n)
	}
	return strings.Join(quoted, ", ")
}

func evaluatePatternProperties(schema *Schema, node *ObjectNode, byName map[string]Node, ctx *evalContext, result *evalResult, evaluatedProps map[string]bool) {
	var invalidPatterns, invalidProperties []string

	for patternKey, patternSchema := range *schema.PatternProperties {
		regex, ok := schema.compiledPatterns[patternKey]
		if !ok {
			if !slices.Contains(invalidPatterns, patternKey) {
				invalidPatterns = append(invalidPatterns, patternKey)
			}
			continue
		}
		for propName, value := range byName {
			if !regex.MatchString(propName) {
				continue
			}
			evaluatedProps[propName] = true
			subResult, _, _ := patternSchema.evaluate(value, ctx)
			path := fmt.Sprintf("/patternProperties/%s", propName)
			result.merge(subResult, path, schema.GetSchemaLocation(path), fmt.Sprintf("/%s", propName))
			if !subResult.valid() && !slices.Contains(invalidProperties, propName) {
				invalidProperties = append(invalidProperties, propName)
			}
		}
	}

	if len(invalidPatterns) > 0 {
		result.add(newProblem("patternProperties", "invalid_pattern", "Invalid regular expression pattern {pattern}", map[string]any{
			"pattern": quoteJoin(invalidPatterns),
		}), "", "", "")
	}
	switch len(invalidProperties) {
	case 0:
	case 1:
		result.add(newProblem("properties", "pattern_property_mismatch", "Property {property} does not match the pattern schema", map[string]any{
			"property": fmt.Sprintf("'%s'", invalidProperties[0]),
		}), "", "", "")
	default:
		result.add(newProblem("properties", "pattern_properties_mismatch", "Properties {properties} do not match their pattern schemas", map[string]any{
			"properties": quoteJoin(invalidProperties),
		}), "", "", "")
	}
}

func evaluateAdditionalProperties(schema *Schema, byName map[string]Node, ctx *evalContext, result *evalResult, evaluatedProps map[string]bool) {
	known := make(map[string]bool)
	if schema.Properties != nil {
		for propName := range *schema.Properties {
			known[propName] = true
		}
	}
	if schema.PatternProperties != nil {
		for _, regex := range schema.compiledPatterns {
			for propName := range byName {
				if regex.MatchString(propName) {
					known[propName] = true
				}
			}
		}
	}

	var invalid []string
	for propName, value := range byName {
		if known[propName] {
			continue
		}
		subResult, _, _ := schema.AdditionalProperties.evaluate(value, ctx)
		path := fmt.Sprintf("/additionalProperties/%s", propName)
		result.merge(subResult, path, schema.GetSchemaLocation(path), fmt.Sprintf("/%s", propName))
		if !subResult.valid() {
			invalid = append(invalid, propName)
		}
		evaluatedProps[propName] = true
	}

	switch len(invalid) {
	case 0:
	case 1:
		result.add(newProblem("additionalProperties", "additional_property_mismatch", "Additional property {property} does not match the schema", map[string]interface{}{
			"property": fmt.Sprintf("'%s'", invalid[0]),
		}), "", "", "")
	default:
		result.add(newProblem("additionalProperties", "additional_properties_mismatch", "Additional properties {properties} do not match the schema", map[string]interface{}{
			"properties": quoteJoin(invalid),
		}), "", "", "")
	}
}

func evaluatePropertyNames(schema *Schema, node *ObjectNode, ctx *evalContext, result *evalResult) {
	var invalid []string
	for _, p := range node.Properties {
		if p.Key == nil {
			continue
		}
		propName := p.Key.Value
		subResult, _, _ := schema.PropertyNames.evaluate(p.Key, ctx)
		path := fmt.Sprintf("/propertyNames/%s", propName)
		result.merge(subResult, path, schema.GetSchemaLocation(path), fmt.Sprintf("/%s", propName))
		if !subResult.valid() {
			invalid = append(invalid, propName)
		}
	}
	switch len(invalid) {
	case 0:
	case 1:
		result.add(newProblem("propertyNames", "property_name_mismatch", "Property name {property} does not match the schema", map[string]any{
			"property": fmt.Sprintf("'%s'", invalid[0]),
		}), "", "", "")
	default:
		result.add(newProblem("propertyNames", "property_names_mismatch", "Property names {properties} do not match the schema", map[string]any{
			"properties": quoteJoin(invalid),
		}), "", "", "")
	}
}

func evaluateDependentRequired(schema *Schema, byName map[string]Node, result *evalResult) {
	missing := make(map[string][]string)
	for key, requiredProps := range schema.DependentRequired {
		if _, exists := byName[key]; !exists {
			continue
		}
		var miss []string
		for _, reqProp := range requiredProps {
			if _, exists := byName[reqProp]; !exists {
				miss = append(miss, reqProp)
			}
		}
		if len(miss) > 0 {
			missing[key] = miss
		}
	}
	if len(missing) == 0 {
		return
	}
	encoded, _ := gojson.Marshal(missing)
	result.add(newProblem("dependentRequired", "dependent_property_required", "Some required property dependencies are missing: {missing_properties}", map[string]interface{}{
		"missing_properties": string(encoded),
	}), "", "", "")
}

func evaluateDependentSchemas(schema *Schema, node *ObjectNode, ctx *evalContext, result *evalResult, evaluatedProps map[string]bool, evaluatedItems map[int]bool) {
	byName := make(map[string]bool, len(node.Properties))
	for _, p := range node.Properties {
		if p.Key != nil {
			byName[p.Key.Value] = true
		}
	}

	var invalid []string
	for propName, depSchema := range schema.DependentSchemas {
		if !byName[propName] || depSchema == nil {
			continue
		}
		subResult, props, items := depSchema.evaluate(node, ctx)
		path := fmt.Sprintf("/dependentSchemas/%s", propName)
		result.merge(subResult, path, schema.GetSchemaLocation(path), fmt.Sprintf("/%s", propName))
		if subResult.valid() {
			mergeStringMaps(evaluatedProps, props)
			mergeIntMaps(evaluatedItems, items)
		} else {
			invalid = append(invalid, propName)
		}
	}

	switch len(invalid) {
	case 0:
	case 1:
		result.add(newProblem("dependentSchemas", "dependent_schema_mismatch", "Property {property} does not meet the schema requirements dependent on it", map[string]interface{}{
			"property": fmt.Sprintf("'%s'", invalid[0]),
		}), "", "", "")
	default:
		result.add(newProblem("dependentSchemas", "dependent_schemas_mismatch", "Properties {properties} do not meet the schema requirements dependent on them", map[string]interface{}{
			"properties": quoteJoin(invalid),
		}), "", "", "")
	}
}

func evaluateUnevaluatedProperties(schema *Schema, node *ObjectNode, ctx *evalContext, result *evalResult, evaluatedProps map[string]bool) {
	var invalid []string
	for _, p := range node.Properties {
		if p.Key == nil {
			continue
		}
		propName := p.Key.Value
		if evaluatedProps[propName] {
			continue
		}
		subResult, _, _ := schema.UnevaluatedProperties.evaluate(p.Value, ctx)
		result.merge(subResult, "/unevaluatedProperties", schema.GetSchemaLocation("/unevaluatedProperties"), fmt.Sprintf("/%s", propName))
		if !subResult.valid() {
			invalid = append(invalid, propName)
		}
		evaluatedProps[propName] = true
	}
	switch len(invalid) {
	case 0:
	case 1:
		result.add(newProblem("properties", "unevaluated_property_mismatch", "Property {property} does not match the unevaluatedProperties schema", map[string]any{
			"property": fmt.Sprintf("'%s'", invalid[0]),
		}), "", "", "")
	default:
		result.add(newProblem("properties", "unevaluated_properties_mismatch", "Properties {properties} do not match the unevaluatedProperties schema", map[string]any{
			"properties": quoteJoin(invalid),
		}), "", "", "")
	}
}
