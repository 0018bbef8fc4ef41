package jsonls

import "strings"

// Draft identifies one numbered revision of the JSON Schema specification.
// spec.md §4.5 step 4 requires the façade to auto-detect which draft a
// schema targets from its `$schema` URI, falling back to the newest draft
// this engine understands.
type Draft int

const (
	DraftUnknown Draft = iota
	Draft4
	Draft6
	Draft7
	Draft2019_09
	Draft2020_12
)

func (d Draft) String() string {
	switch d {
	case Draft4:
		return "draft-04"
	case Draft6:
		return "draft-06"
	case Draft7:
		return "draft-07"
	case Draft2019_09:
		return "2019-09"
	case Draft2020_12:
		return "2020-12"
	default:
		return "unknown"
	}
}

// draftTable maps every `$schema` URI this engine recognises (with and
// without a trailing `#`) to its Draft, grounded on the version/url table
// shape visible across the example pack's meta-schema-aware validators
// (a flat map keyed by spec URI rather than a parsed-version struct, since
// the URIs themselves are the only stable identifier a caller ever supplies).
var draftTable = map[string]Draft{
	"http://json-schema.org/draft-04/schema":  Draft4,
	"https://json-schema.org/draft-04/schema": Draft4,
	"http://json-schema.org/draft-06/schema":  Draft6,
	"https://json-schema.org/draft-06/schema": Draft6,
	"http://json-schema.org/draft-07/schema":  Draft7,
	"https://json-schema.org/draft-07/schema": Draft7,
	"https://json-schema.org/draft/2019-09/schema": Draft2019_09,
	"https://json-schema.org/draft/2020-12/schema": Draft2020_12,
}

// DetectDraft implements spec.md §4.5 step 4 and Design Note §9's "the
// active draft is taken from the outermost schema's $schema; nested schemas
// do not re-evaluate drafts": look up schema's own `$schema` in the table,
// defaulting to the newest draft, 2020-12, when absent or unrecognised.
func DetectDraft(schema *Schema) Draft {
	if schema == nil {
		return Draft2020_12
	}
	key := strings.TrimSuffix(schema.Schema, "#")
	if d, ok := draftTable[key]; ok {
		return d
	}
	return Draft2020_12
}
