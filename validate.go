package jsonls

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// evalContext carries the state a single Validate call threads through every
// recursive evaluate: the $dynamicRef scope stack (unchanged from the
// teacher) plus wherever applicability observations should land. Passing it
// as one struct, instead of the teacher's separate dynamicScope parameter,
// gives noopCollector a place to live without touching every call site when
// a caller adds a second piece of shared state later.
type evalContext struct {
	scope      *DynamicScope
	collector  applicabilityCollector
	underNot   bool
	draft      Draft
}

// Validate runs the schema against a parsed document node and returns every
// keyword failure found. Callers that also want the applicability trail
// (which schema matched which node, used by hover/completion-style
// consumers) should call evaluate directly with a *realCollector.
//
// The active draft is detected once, from the outermost schema's $schema,
// per Design Note §9 ("nested schemas do not re-evaluate drafts") and used
// to gate keywords that didn't exist yet in older drafts (if/then/else was
// introduced in draft-07; a draft-04 or draft-06 schema that happens to
// carry those property names is not opting into conditional validation).
func (s *Schema) Validate(node Node) []Problem {
	ctx := &evalContext{scope: NewDynamicScope(), collector: noopCollector, draft: DetectDraft(s)}
	result, _, _ := s.evaluate(node, ctx)
	return result.Problems
}

// evaluate is the Node-based counterpart of the teacher's
// Schema.evaluate(instance any, ...): same dispatch shape and same
// evaluatedProps/evaluatedItems bookkeeping for unevaluatedProperties/Items,
// but operating on the syntax tree so every Problem can carry the node that
// produced it (and, from there, a byte range) instead of a bare Go value.
func (s *Schema) evaluate(node Node, ctx *evalContext) (evalResult, map[string]bool, map[int]bool) {
	ctx.scope.Push(s)
	defer ctx.scope.Pop()

	var result evalResult
	evaluatedProps := make(map[string]bool)
	evaluatedItems := make(map[int]bool)

	ctx.collector.record(node, s, "", ctx.underNot)

	if s.Boolean != nil {
		if !*s.Boolean {
			result.add(newProblem("schema", "false_schema_mismatch",
				"No values are allowed because the schema is set to 'false'"), "", "", "")
		} else if obj, ok := node.(*ObjectNode); ok {
			for _, p := range obj.Properties {
				if p.Key != nil {
					evaluatedProps[p.Key.Value] = true
				}
			}
		} else if arr, ok := node.(*ArrayNode); ok {
			for i := range arr.Items {
				evaluatedItems[i] = true
			}
		}
		return result, evaluatedProps, evaluatedItems
	}

	if s.PatternProperties != nil {
		s.compilePatterns()
	}

	if s.ResolvedRef != nil {
		refResult, props, items := s.ResolvedRef.evaluate(node, ctx)
		result.merge(refResult, "", "", "")
		if !refResult.valid() {
			result.add(newProblem("$ref", "ref_mismatch", "Value does not match the reference schema"), "", "", "")
		}
		mergeStringMaps(evaluatedProps, props)
		mergeIntMaps(evaluatedItems, items)
	}

	if s.ResolvedDynamicRef != nil {
		anchorSchema := s.ResolvedDynamicRef
		_, anchor := splitRef(s.DynamicRef)
		if !isJSONPointer(anchor) {
			if dynAnchor := s.ResolvedDynamicRef.DynamicAnchor; dynAnchor != "" {
				if schema := ctx.scope.LookupDynamicAnchor(dynAnchor); schema != nil {
					anchorSchema = schema
				}
			}
		}
		dynResult, props, items := anchorSchema.evaluate(node, ctx)
		result.merge(dynResult, "", "", "")
		if !dynResult.valid() {
			result.add(newProblem("$dynamicRef", "dynamic_ref_mismatch", "Value does not match the dynamic reference schema"), "", "", "")
		}
		mergeStringMaps(evaluatedProps, props)
		mergeIntMaps(evaluatedItems, items)
	}

	if len(s.Type) > 0 {
		if p := evaluateType(s, node); p != nil {
			result.add(*p, "", "", "")
		}
	}

	if len(s.Enum) > 0 {
		if p := evaluateEnum(s, node); p != nil {
			result.add(*p, "", "", "")
		}
	}

	if s.Const != nil {
		if p := evaluateConst(s, node); p != nil {
			result.add(*p, "", "", "")
		}
	}

	if s.AllOf != nil {
		evaluateAllOf(s, node, ctx, &result, evaluatedProps, evaluatedItems)
	}

	if s.AnyOf != nil {
		evaluateAnyOf(s, node, ctx, &result, evaluatedProps, evaluatedItems)
	}

	if s.OneOf != nil {
		evaluateOneOf(s, node, ctx, &result, evaluatedProps, evaluatedItems)
	}

	if s.Not != nil {
		evaluateNot(s, node, ctx, &result)
	}

	if (s.If != nil || s.Then != nil || s.Else != nil) && ctx.draft != Draft4 && ctx.draft != Draft6 {
		evaluateConditional(s, node, ctx, &result, evaluatedProps, evaluatedItems)
	}

	switch v := node.(type) {
	case *ArrayNode:
		evaluateArray(s, v, ctx, &result, evaluatedProps, evaluatedItems)
	case *NumberNode:
		evaluateNumeric(s, v, &result)
	case *StringNode:
		evaluateStringKeywords(s, v, &result)
		evaluateContent(s, v, ctx, &result)
	case *ObjectNode:
		evaluateObject(s, v, ctx, &result, evaluatedProps, evaluatedItems)
	}

	if s.DependentSchemas != nil {
		if obj, ok := node.(*ObjectNode); ok {
			evaluateDependentSchemas(s, obj, ctx, &result, evaluatedProps, evaluatedItems)
		}
	}

	if s.UnevaluatedProperties != nil {
		if obj, ok := node.(*ObjectNode); ok {
			evaluateUnevaluatedProperties(s, obj, ctx, &result, evaluatedProps)
		}
	}

	if s.UnevaluatedItems != nil {
		if arr, ok := node.(*ArrayNode); ok {
			evaluateUnevaluatedItems(s, arr, ctx, &result, evaluatedItems)
		}
	}

	if s.Deprecated != nil && *s.Deprecated {
		result.add(newDeprecatedProblem(s, node), "", "", "")
	}

	// Every Problem added directly at this nesting level (as opposed to one
	// merged in from a child subSchema.evaluate() call, which already carries
	// its own node) still has a nil Node here: stamp it with the node this
	// level evaluated against, so the façade can always recover a byte range.
	for i := range result.Problems {
		if result.Problems[i].Node == nil {
			result.Problems[i].Node = node
		}
	}

	return result, evaluatedProps, evaluatedItems
}

// newDeprecatedProblem builds the warning-severity diagnostic spec.md §4.4
// describes for `deprecated`/`deprecationMessage`: targeting the containing
// property (not the value) when node is a property's value, since that is
// what a host would want to strike through or grey out.
func newDeprecatedProblem(schema *Schema, node Node) Problem {
	message := "This value is deprecated"
	if schema.DeprecationMessage != nil && *schema.DeprecationMessage != "" {
		message = *schema.DeprecationMessage
	}
	p := newProblem("deprecated", "deprecated", message)
	p.Severity = SeverityWarning
	if prop, ok := node.Parent().(*PropertyNode); ok && prop.Key != nil {
		p.Node = prop
	}
	return p
}

// nodeType reports the JSON Schema type name for a syntax-tree node,
// the Node-based counterpart of the teacher's getDataType(interface{}).
func nodeType(n Node) string {
	if n == nil {
		return "null"
	}
	switch v := n.(type) {
	case *NullNode:
		return "null"
	case *BooleanNode:
		return "boolean"
	case *NumberNode:
		if v.IsInteger {
			return "integer"
		}
		return "number"
	case *StringNode:
		return "string"
	case *ArrayNode:
		return "array"
	case *ObjectNode:
		return "object"
	default:
		return "unknown"
	}
}

func evaluateType(schema *Schema, node Node) *Problem {
	instanceType := nodeType(node)
	for _, schemaType := range schema.Type {
		if schemaType == "number" && instanceType == "integer" {
			return nil
		}
		if instanceType == schemaType {
			return nil
		}
	}
	p := newProblem("type", "type_mismatch", `Incorrect type. Expected "{expected}".`, map[string]interface{}{
		"expected": strings.Join(schema.Type, ", "),
		"received": instanceType,
	})
	return &p
}

func evaluateEnum(schema *Schema, node Node) *Problem {
	value := nodeValue(node)
	for _, enumValue := range schema.Enum {
		if reflect.DeepEqual(value, enumValue) {
			return nil
		}
	}
	p := newProblem("enum", "value_not_in_enum", "Value should match one of the values specified by the enum")
	return &p
}

func evaluateConst(schema *Schema, node Node) *Problem {
	if schema.Const == nil {
		return nil
	}
	value := nodeValue(node)
	if schema.Const.Value == nil {
		if value != nil {
			p := newProblem("const", "const_mismatch_null", "Value does not match constant null value")
			return &p
		}
		return nil
	}
	if !reflect.DeepEqual(value, schema.Const.Value) {
		p := newProblem("const", "const_mismatch", "Value does not match the constant value")
		return &p
	}
	return nil
}

// nodeValue materializes a syntax-tree node into a plain Go value so const
// and enum can keep using reflect.DeepEqual the way the teacher does against
// decoded JSON, without the validator having to carry two comparison paths.
func nodeValue(n Node) interface{} {
	switch v := n.(type) {
	case nil:
		return nil
	case *NullNode:
		return nil
	case *BooleanNode:
		return v.Value
	case *NumberNode:
		return v.Value
	case *StringNode:
		return v.Value
	case *ArrayNode:
		out := make([]interface{}, len(v.Items))
		for i, item := range v.Items {
			out[i] = nodeValue(item)
		}
		return out
	case *ObjectNode:
		out := make(map[string]interface{}, len(v.Properties))
		for _, p := range v.Properties {
			if p.Key == nil {
				continue
			}
			out[p.Key.Value] = nodeValue(p.Value)
		}
		return out
	default:
		return nil
	}
}

func evaluateAllOf(schema *Schema, node Node, ctx *evalContext, result *evalResult, evaluatedProps map[string]bool, evaluatedItems map[int]bool) {
	var invalidIndexes []string
	for i, subSchema := range schema.AllOf {
		if subSchema == nil {
			continue
		}
		skipEval := subSchema.Boolean != nil && *subSchema.Boolean
		subResult, props, items := subSchema.evaluate(node, ctx)
		if !skipEval {
			mergeStringMaps(evaluatedProps, props)
			mergeIntMaps(evaluatedItems, items)
		}
		path := fmt.Sprintf("/allOf/%d", i)
		result.merge(subResult, path, schema.GetSchemaLocation(path), "")
		if !subResult.valid() {
			invalidIndexes = append(invalidIndexes, strconv.Itoa(i))
		}
	}
	if len(invalidIndexes) > 0 {
		result.add(newProblem("allOf", "all_of_item_mismatch", "Value does not match the allOf schema at index {indexs}", map[string]interface{}{
			"indexs": strings.Join(invalidIndexes, ", "),
		}), "", "", "")
	}
}

// evaluateAnyOf merges a failing branch's own problems into result only when
// anyOf ends up failing overall: a branch that didn't match is not itself a
// defect in the instance once some other branch did, so its problems must
// not leak into the flat Problems list a passing anyOf returns. The
// teacher's tree-shaped EvaluationResult gets this for free (AddDetail never
// flips the parent's Valid bit); the flat Problems list here has to
// recreate that by buffering until the verdict is known.
func evaluateAnyOf(schema *Schema, node Node, ctx *evalContext, result *evalResult, evaluatedProps map[string]bool, evaluatedItems map[int]bool) {
	valid := false
	var branchResults []evalResult
	var branchPaths []string
	for i, subSchema := range schema.AnyOf {
		if subSchema == nil {
			continue
		}
		skipEval := subSchema.Boolean != nil && *subSchema.Boolean
		subResult, props, items := subSchema.evaluate(node, ctx)
		branchResults = append(branchResults, subResult)
		branchPaths = append(branchPaths, fmt.Sprintf("/anyOf/%d", i))
		if subResult.valid() {
			valid = true
			if !skipEval {
				mergeStringMaps(evaluatedProps, props)
				mergeIntMaps(evaluatedItems, items)
			}
		}
	}
	if !valid {
		for i, subResult := range branchResults {
			result.merge(subResult, branchPaths[i], schema.GetSchemaLocation(branchPaths[i]), "")
		}
		result.add(newProblem("anyOf", "any_of_item_mismatch", "Value does not match anyOf schema"), "", "", "")
	}
}

// evaluateOneOf applies the same buffer-until-the-verdict-is-known rule as
// evaluateAnyOf: a single matching branch's siblings are not instance
// defects, so their problems are discarded once exactly one match is found.
func evaluateOneOf(schema *Schema, node Node, ctx *evalContext, result *evalResult, evaluatedProps map[string]bool, evaluatedItems map[int]bool) {
	var validIndexes []string
	var keptProps map[string]bool
	var keptItems map[int]bool
	var branchResults []evalResult
	var branchPaths []string
	for i, subSchema := range schema.OneOf {
		if subSchema == nil {
			continue
		}
		subResult, props, items := subSchema.evaluate(node, ctx)
		branchResults = append(branchResults, subResult)
		branchPaths = append(branchPaths, fmt.Sprintf("/oneOf/%d", i))
		if subResult.valid() {
			validIndexes = append(validIndexes, strconv.Itoa(i))
			keptProps, keptItems = props, items
		}
	}
	switch {
	case len(validIndexes) == 1:
		mergeStringMaps(evaluatedProps, keptProps)
		mergeIntMaps(evaluatedItems, keptItems)
	case len(validIndexes) > 1:
		result.add(newProblem("oneOf", "one_of_multiple_matches", "Value should match exactly one schema but matches multiple at indexes {matches}", map[string]interface{}{
			"matches": strings.Join(validIndexes, ", "),
		}), "", "", "")
	default:
		for i, subResult := range branchResults {
			result.merge(subResult, branchPaths[i], schema.GetSchemaLocation(branchPaths[i]), "")
		}
		result.add(newProblem("oneOf", "one_of_item_mismatch", "Value does not match the oneOf schema"), "", "", "")
	}
}

// evaluateNot deliberately does not merge schema.Not's own Problems into
// result: a `not` subschema that fails to validate is exactly what makes the
// outer schema valid, so its problems describe a non-failure and must not
// surface as diagnostics. Only the inverted verdict (and, via ctx.underNot,
// the applicability trail) escapes this call.
func evaluateNot(schema *Schema, node Node, ctx *evalContext, result *evalResult) {
	innerCtx := &evalContext{scope: ctx.scope, collector: ctx.collector, underNot: true, draft: ctx.draft}
	subResult, _, _ := schema.Not.evaluate(node, innerCtx)
	if subResult.valid() {
		result.add(newProblem("not", "not_schema_mismatch", "Value should not match the not schema"), "", "", "")
	}
}

func evaluateConditional(schema *Schema, node Node, ctx *evalContext, result *evalResult, evaluatedProps map[string]bool, evaluatedItems map[int]bool) {
	if schema.If == nil {
		return
	}
	ifResult, ifProps, ifItems := schema.If.evaluate(node, ctx)
	result.merge(ifResult, "/if", schema.GetSchemaLocation("/if"), "")

	if ifResult.valid() {
		mergeStringMaps(evaluatedProps, ifProps)
		mergeIntMaps(evaluatedItems, ifItems)
		if schema.Then != nil {
			thenResult, thenProps, thenItems := schema.Then.evaluate(node, ctx)
			result.merge(thenResult, "/then", schema.GetSchemaLocation("/then"), "")
			if !thenResult.valid() {
				result.add(newProblem("then", "if_then_mismatch", "Value meets the 'if' condition but does not match the 'then' schema"), "", "", "")
			} else {
				mergeStringMaps(evaluatedProps, thenProps)
				mergeIntMaps(evaluatedItems, thenItems)
			}
		}
	} else if schema.Else != nil {
		elseResult, elseProps, elseItems := schema.Else.evaluate(node, ctx)
		result.merge(elseResult, "/else", schema.GetSchemaLocation("/else"), "")
		if !elseResult.valid() {
			result.add(newProblem("else", "if_else_mismatch", "Value fails the 'if' condition and does not match the 'else' schema"), "", "", "")
		} else {
			mergeStringMaps(evaluatedProps, elseProps)
			mergeIntMaps(evaluatedItems, elseItems)
		}
	}
}

// DynamicScope is unchanged from the teacher: a stack of the schemas
// currently being evaluated, searched innermost-first so a $dynamicRef can
// find the outermost matching $dynamicAnchor in scope.
type DynamicScope struct {
	schemas []*Schema
}

func NewDynamicScope() *DynamicScope { return &DynamicScope{} }

func (ds *DynamicScope) Push(schema *Schema) { ds.schemas = append(ds.schemas, schema) }

func (ds *DynamicScope) Pop() *Schema {
	if len(ds.schemas) == 0 {
		return nil
	}
	last := len(ds.schemas) - 1
	schema := ds.schemas[last]
	ds.schemas = ds.schemas[:last]
	return schema
}

func (ds *DynamicScope) Peek() *Schema {
	if len(ds.schemas) == 0 {
		return nil
	}
	return ds.schemas[len(ds.schemas)-1]
}

func (ds *DynamicScope) IsEmpty() bool { return len(ds.schemas) == 0 }

func (ds *DynamicScope) Size() int { return len(ds.schemas) }

func (ds *DynamicScope) LookupDynamicAnchor(anchor string) *Schema {
	for i := 0; i < len(ds.schemas); i++ {
		schema := ds.schemas[i]
		if schema.dynamicAnchors != nil && schema.dynamicAnchors[anchor] != nil {
			return schema.dynamicAnchors[anchor]
		}
	}
	return nil
}
