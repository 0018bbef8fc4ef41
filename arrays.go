package jsonls

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/go-json-experiment/json"
)

// evaluateArray groups the array keyword evaluators the teacher spread
// across prefixItems.go/items.go/contains.go/maxItems.go/minItems.go/
// uniqueItems.go into one ArrayNode evaluator. unevaluatedItems is handled
// separately (evaluateUnevaluatedItems below) since it must run after every
// other array keyword has had a chance to mark an index evaluated.
func evaluateArray(schema *Schema, node *ArrayNode, ctx *evalContext, result *evalResult, evaluatedProps map[string]bool, evaluatedItems map[int]bool) {
	items := node.Items

	if len(schema.PrefixItems) > 0 {
		var invalidIndexes []string
		for i, itemSchema := range schema.PrefixItems {
			if i >= len(items) {
				break
			}
			subResult, _, _ := itemSchema.evaluate(items[i], ctx)
			path := fmt.Sprintf("/prefixItems/%d", i)
			result.merge(subResult, path, schema.GetSchemaLocation(path), fmt.Sprintf("/%d", i))
			if subResult.valid() {
				evaluatedItems[i] = true
			} else {
				invalidIndexes = append(invalidIndexes, strconv.Itoa(i))
			}
		}
		switch len(invalidIndexes) {
		case 0:
		case 1:
			result.add(newProblem("prefixItems", "prefix_item_mismatch", "Item at index {index} does not match the prefixItems schema", map[string]interface{}{
				"index": invalidIndexes[0],
			}), "", "", "")
		default:
			result.add(newProblem("prefixItems", "prefix_items_mismatch", "Items at index {indexs} do not match the prefixItems schemas", map[string]interface{}{
				"indexs": strings.Join(invalidIndexes, ", "),
			}), "", "", "")
		}
	}

	if schema.Items != nil {
		startIndex := len(schema.PrefixItems)
		var invalidIndexes []string
		for i := startIndex; i < len(items); i++ {
			subResult, _, _ := schema.Items.evaluate(items[i], ctx)
			path := fmt.Sprintf("/items/%d", i)
			result.merge(subResult, path, schema.GetSchemaLocation(path), fmt.Sprintf("/%d", i))
			if subResult.valid() {
				evaluatedItems[i] = true
			} else {
				invalidIndexes = append(invalidIndexes, strconv.Itoa(i))
			}
		}
		switch len(invalidIndexes) {
		case 0:
		case 1:
			result.add(newProblem("items", "item_mismatch", "Item at index {index} does not match the schema", map[string]interface{}{
				"index": invalidIndexes[0],
			}), "", "", "")
		default:
			result.add(newProblem("items", "items_mismatch", "Items at index {indexs} do not match the schema", map[string]interface{}{
				"indexs": strings.Join(invalidIndexes, ", "),
			}), "", "", "")
		}
	}

	if schema.Contains != nil || (schema.MaxContains != nil && schema.MinContains != nil) {
		evaluateContains(schema, items, ctx, result, evaluatedItems)
	}

	if schema.MaxItems != nil && float64(len(items)) > *schema.MaxItems {
		result.add(newProblem("maxItems", "items_too_long", "Value should have at most {max_items} items", map[string]interface{}{
			"max_items": fmt.Sprintf("%.0f", *schema.MaxItems),
			"count":     len(items),
		}), "", "", "")
	}

	if schema.MinItems != nil && float64(len(items)) < *schema.MinItems {
		result.add(newProblem("minItems", "items_too_short", "Value should have at least {min_items} items", map[string]interface{}{
			"min_items": *schema.MinItems,
			"count":     len(items),
		}), "", "", "")
	}

	if schema.UniqueItems != nil && *schema.UniqueItems {
		evaluateUniqueItems(schema, items, result)
	}
}

func evaluateContains(schema *Schema, items []Node, ctx *evalContext, result *evalResult, evaluatedItems map[int]bool) {
	if schema.Contains == nil {
		return
	}
	var validCount int
	for i, item := range items {
		subResult, _, _ := schema.Contains.evaluate(item, ctx)
		if subResult.valid() {
			validCount++
			evaluatedItems[i] = true
		}
	}

	minContains := 1
	if schema.MinContains != nil {
		minContains = int(*schema.MinContains)
	}
	if !(minContains == 0 && validCount == 0) && validCount < minContains {
		result.add(newProblem("minContains", "contains_too_few_items", "Value should contain at least {min_contains} matching items", map[string]interface{}{
			"min_contains": minContains,
			"count":        validCount,
		}), "", "", "")
	}

	if schema.MaxContains != nil && validCount > int(*schema.MaxContains) {
		result.add(newProblem("maxContains", "contains_too_many_items", "Value should contain no more than {max_contains} matching items", map[string]interface{}{
			"max_contains": *schema.MaxContains,
			"count":        validCount,
		}), "", "", "")
	}
}

func evaluateUniqueItems(schema *Schema, items []Node, result *evalResult) {
	maxLength := len(items)
	if schema.Items != nil && schema.Items.Boolean != nil && !*schema.Items.Boolean {
		if len(schema.PrefixItems) > 0 {
			maxLength = len(schema.PrefixItems)
			if maxLength > len(items) {
				maxLength = len(items)
			}
		} else {
			maxLength = 0
		}
	}
	if maxLength == 0 {
		return
	}

	seen := make(map[string][]int)
	for index, item := range items[:maxLength] {
		key, err := normalizeValue(nodeValue(item))
		if err != nil {
			result.add(newProblem("uniqueItems", "item_normalization_error", "Error normalizing item at index {index}", map[string]any{
				"index": fmt.Sprint(index),
			}), "", "", "")
			return
		}
		seen[key] = append(seen[key], index)
	}

	var duplicates []string
	for _, indexes := range seen {
		if len(indexes) > 1 {
			for i := range indexes {
				indexes[i]++
			}
			duplicates = append(duplicates, fmt.Sprintf("(%s)", strings.Trim(strings.Join(strings.Fields(fmt.Sprint(indexes)), ", "), "[]")))
		}
	}
	if len(duplicates) > 0 {
		result.add(newProblem("uniqueItems", "unique_items_mismatch", "Found duplicates at the following index groups: {duplicates}", map[string]any{
			"duplicates": strings.Join(duplicates, ", "),
		}), "", "", "")
	}
}

func evaluateUnevaluatedItems(schema *Schema, node *ArrayNode, ctx *evalContext, result *evalResult, evaluatedItems map[int]bool) {
	items := node.Items
	if schema.UnevaluatedItems.Boolean != nil {
		if *schema.UnevaluatedItems.Boolean {
			for i := range items {
				evaluatedItems[i] = true
			}
			return
		}
		var unevaluated []string
		for i := range items {
			if !evaluatedItems[i] {
				unevaluated = append(unevaluated, strconv.Itoa(i))
			}
		}
		if len(unevaluated) > 0 {
			result.add(newProblem("unevaluatedItems", "unevaluated_items_not_allowed", "Unevaluated items are not allowed at indexes: {indexes}", map[string]interface{}{
				"indexes": strings.Join(unevaluated, ", "),
			}), "", "", "")
		}
		return
	}

	var invalid []string
	for i, item := range items {
		if evaluatedItems[i] {
			continue
		}
		subResult, _, subItems := schema.UnevaluatedItems.evaluate(item, ctx)
		path := fmt.Sprintf("/unevaluatedItems/%d", i)
		result.merge(subResult, path, schema.GetSchemaLocation(path), fmt.Sprintf("/%d", i))
		if subResult.valid() {
			evaluatedItems[i] = true
		} else {
			invalid = append(invalid, strconv.Itoa(i))
		}
		for k, v := range subItems {
			evaluatedItems[k] = v
		}
	}
	switch len(invalid) {
	case 0:
	case 1:
		result.add(newProblem("unevaluatedItems", "unevaluated_item_mismatch", "Item at index {index} does not match the unevaluatedItems schema", map[string]interface{}{
			"index": invalid[0],
		}), "", "", "")
	default:
		result.add(newProblem("unevaluatedItems", "unevaluated_items_mismatch", "Items at indexes {indexes} do not match the unevaluatedItems schema", map[string]interface{}{
			"indexes": strings.Join(invalid, ", "),
		}), "", "", "")
	}
}

// normalizeValue recursively normalizes a decoded value for uniqueItems
// comparison so objects with identically-valued properties in a different
// order still compare equal. Kept verbatim from the teacher's
// uniqueItems.go: fast-path type assertions for the common JSON shapes,
// reflection for everything else.
func normalizeValue(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "null", nil
	case string:
		return fmt.Sprintf(`"%s"`, v), nil
	case bool:
		return fmt.Sprintf("%t", v), nil
	case float64:
		return fmt.Sprintf("%g", v), nil
	case int:
		return fmt.Sprintf("%d", v), nil
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		var sb strings.Builder
		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(fmt.Sprintf(`"%s":`, k))
			normalized, err := normalizeValue(v[k])
			if err != nil {
				return "", err
			}
			sb.WriteString(normalized)
		}
		sb.WriteByte('}')
		return sb.String(), nil
	case []any:
		var sb strings.Builder
		sb.WriteByte('[')
		for i, elem := range v {
			if i > 0 {
				sb.WriteByte(',')
			}
			normalized, err := normalizeValue(elem)
			if err != nil {
				return "", err
			}
			sb.WriteString(normalized)
		}
		sb.WriteByte(']')
		return sb.String(), nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Map:
		keys := rv.MapKeys()
		slices.SortFunc(keys, func(a, b reflect.Value) int {
			return cmp.Compare(fmt.Sprintf("%v", a.Interface()), fmt.Sprintf("%v", b.Interface()))
		})
		var pairs []string
		for _, key := range keys {
			keyStr, err := normalizeValue(key.Interface())
			if err != nil {
				return "", err
			}
			valueStr, err := normalizeValue(rv.MapIndex(key).Interface())
			if err != nil {
				return "", err
			}
			pairs = append(pairs, fmt.Sprintf("%s:%s", keyStr, valueStr))
		}
		return fmt.Sprintf("{%s}", strings.Join(pairs, ",")), nil
	case reflect.Slice, reflect.Array:
		var elements []string
		for i := 0; i < rv.Len(); i++ {
			elemStr, err := normalizeValue(rv.Index(i).Interface())
			if err != nil {
				return "", err
			}
			elements = append(elements, elemStr)
		}
		return fmt.Sprintf("[%s]", strings.Join(elements, ",")), nil
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return "null", nil
		}
		return normalizeValue(rv.Elem().Interface())
	default:
		bytes, err := json.Marshal(value)
		if err != nil {
			return "", err
		}
		return string(bytes), nil
	}
}
