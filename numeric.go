package jsonls

import "math/big"

// evaluateNumeric groups the five numeric keywords the teacher kept in
// separate files (multipleOf.go, maximum.go, minimum.go,
// exclusiveMaximum.go, exclusiveMinimum.go) into one NumberNode evaluator,
// unchanged in arithmetic: exact rational comparison via Rat so floating
// point never produces a false multipleOf/boundary mismatch.
func evaluateNumeric(schema *Schema, node *NumberNode, result *evalResult) {
	value := NewRat(node.Value)
	if value == nil {
		return
	}

	if schema.MultipleOf != nil {
		if schema.MultipleOf.Sign() <= 0 {
			result.add(newProblem("multipleOf", "invalid_multiple_of", "Multiple of {multiple_of} should be greater than 0", map[string]interface{}{
				"multiple_of": FormatRat(schema.MultipleOf),
			}), "", "", "")
		} else {
			quotient := new(big.Rat).Quo(value.Rat, schema.MultipleOf.Rat)
			if !quotient.IsInt() {
				result.add(newProblem("multipleOf", "not_multiple_of", "{value} should be a multiple of {multiple_of}", map[string]interface{}{
					"multiple_of": FormatRat(schema.MultipleOf),
					"value":       FormatRat(value),
				}), "", "", "")
			}
		}
	}

	if schema.Maximum != nil && schema.Maximum.Rat != nil && value.Cmp(schema.Maximum.Rat) > 0 {
		result.add(newProblem("maximum", "value_above_maximum", "{value} should be at most {maximum}", map[string]interface{}{
			"value":   FormatRat(value),
			"maximum": FormatRat(schema.Maximum),
		}), "", "", "")
	}

	if schema.Minimum != nil && value.Cmp(schema.Minimum.Rat) < 0 {
		result.add(newProblem("minimum", "value_below_minimum", "{value} should be at least {minimum}", map[string]interface{}{
			"value":   FormatRat(value),
			"minimum": FormatRat(schema.Minimum),
		}), "", "", "")
	}

	if schema.ExclusiveMaximum != nil && value.Cmp(schema.ExclusiveMaximum.Rat) >= 0 {
		result.add(newProblem("exclusiveMaximum", "exclusive_maximum_mismatch", "{value} should be less than {exclusive_maximum}", map[string]interface{}{
			"exclusive_maximum": FormatRat(schema.ExclusiveMaximum),
			"value":             FormatRat(value),
		}), "", "", "")
	}

	if schema.ExclusiveMinimum != nil && value.Cmp(schema.ExclusiveMinimum.Rat) <= 0 {
		result.add(newProblem("exclusiveMinimum", "exclusive_minimum_mismatch", "{value} should be greater than {exclusive_minimum}", map[string]interface{}{
			"exclusive_minimum": FormatRat(schema.ExclusiveMinimum),
			"value":             FormatRat(value),
		}), "", "", "")
	}
}
