package jsonls

// evaluateContent checks the contentEncoding/contentMediaType/contentSchema
// trio against a StringNode. The decoded payload is re-parsed through this
// module's own JSONC parser (when contentMediaType says it's JSON) so
// contentSchema validation happens against a real Node and can still report
// precise locations, instead of the teacher's plain-interface{} detour.
func evaluateContent(schema *Schema, node *StringNode, ctx *evalContext, result *evalResult) {
	var content []byte
	var err error

	if schema.ContentEncoding != nil {
		decoder, exists := schema.cache.Decoders[*schema.ContentEncoding]
		if !exists {
			result.add(newProblem("contentEncoding", "unsupported_encoding", "Unsupported encoding '{encoding}' specified.", map[string]interface{}{"encoding": *schema.ContentEncoding}), "", "", "")
			return
		}
		content, err = decoder(node.Value)
		if err != nil {
			result.add(newProblem("contentEncoding", "invalid_encoding", "Error decoding data with '{encoding}'", map[string]interface{}{"error": err.Error(), "encoding": *schema.ContentEncoding}), "", "", "")
			return
		}
	} else {
		content = []byte(node.Value)
	}

	var parsedValue interface{} = string(content)
	var contentNode Node
	if schema.ContentMediaType != nil {
		unmarshal, exists := schema.cache.MediaTypes[*schema.ContentMediaType]
		if !exists {
			result.add(newProblem("contentMediaType", "unsupported_media_type", "Unsupported media type '{mediaType}' specified.", map[string]interface{}{"mediaType": *schema.ContentMediaType}), "", "", "")
			return
		}
		parsedValue, err = unmarshal(content)
		if err != nil {
			result.add(newProblem("contentMediaType", "invalid_media_type", "Error unmarshalling data with media type '{mediaType}'", map[string]interface{}{"error": err.Error(), "mediaType": *schema.ContentMediaType}), "", "", "")
			return
		}
		if *schema.ContentMediaType == "application/json" {
			doc := Parse(content)
			if len(doc.Diagnostics) == 0 {
				contentNode = doc.Root
			}
		}
	}

	if schema.ContentSchema == nil {
		return
	}
	if contentNode == nil {
		// No JSON tree to evaluate against (binary media type, or the
		// decoded JSON had syntax errors already reported above); fall
		// back to a synthetic leaf so contentSchema keywords that only
		// need the Go value (const/enum against decoded scalars) still run.
		contentNode = syntheticNodeFor(parsedValue)
	}

	subResult, _, _ := schema.ContentSchema.evaluate(contentNode, ctx)
	result.merge(subResult, "/contentSchema", schema.GetSchemaLocation("/contentSchema"), "")
	if !subResult.valid() {
		result.add(newProblem("contentSchema", "content_schema_mismatch", "Content does not match the schema"), "", "", "")
	}
}

// syntheticNodeFor wraps a plain decoded value (no source positions
// available) in the matching Node variant purely so evaluate's type switch
// still dispatches correctly.
func syntheticNodeFor(v interface{}) Node {
	switch val := v.(type) {
	case nil:
		return &NullNode{}
	case bool:
		return &BooleanNode{Value: val}
	case float64:
		return &NumberNode{Value: val, IsInteger: val == float64(int64(val))}
	case string:
		return &StringNode{Value: val}
	case []interface{}:
		items := make([]Node, len(val))
		for i, item := range val {
			items[i] = syntheticNodeFor(item)
		}
		return &ArrayNode{Items: items}
	case map[string]interface{}:
		obj := &ObjectNode{}
		for k, pv := range val {
			obj.Properties = append(obj.Properties, &PropertyNode{
				Key:   &StringNode{Value: k},
				Value: syntheticNodeFor(pv),
			})
		}
		return obj
	default:
		return &NullNode{}
	}
}
