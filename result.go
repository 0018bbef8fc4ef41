package jsonls

import "github.com/kaptinlin/go-i18n"

// Problem is one keyword-level validation failure, carrying enough context
// (keyword, message-catalog code, substitution params, and the three JSON
// Schema location strings) to be localized and then converted into a
// Diagnostic once the caller knows the node's byte range. It replaces the
// teacher's EvaluationError: same keyword/code/message/params shape, minus
// the tree-of-EvaluationResult plumbing around it.
type Problem struct {
	Keyword          string
	Code             string
	Message          string
	Params           map[string]any
	EvaluationPath   string
	SchemaLocation   string
	InstanceLocation string
	Node             Node
	Severity         Severity // defaults to SeverityError; deprecated/deprecationMessage use SeverityWarning
}

func newProblem(keyword, code, message string, params ...map[string]any) Problem {
	p := Problem{Keyword: keyword, Code: code, Message: message}
	if len(params) > 0 {
		p.Params = params[0]
	}
	return p
}

// Localize renders the problem's message, preferring the message catalog
// (keyed by Code) when a localizer is supplied and falls back to the
// English template with its own params substituted otherwise.
func (p Problem) Localize(localizer *i18n.Localizer) string {
	if localizer != nil {
		if msg := localizer.Get(p.Code, i18n.Vars(p.Params)); msg != "" {
			return msg
		}
	}
	return replace(p.Message, p.Params)
}

// ApplicabilityRecord notes that schema was applied to node during
// evaluation, win or lose. Inverted is true when the application happened
// underneath a `not`, so a record's presence doesn't by itself mean the
// node matched — callers (e.g. completion/hover collaborators) combine it
// with the corresponding Problem set to know which. Design Note (spec.md
// §9) calls for "one real collector, one no-op singleton"; noopCollector
// below is that singleton, used whenever a caller has no use for the trail.
type ApplicabilityRecord struct {
	Node           Node
	Schema         *Schema
	EvaluationPath string
	Inverted       bool
}

// applicabilityCollector accumulates ApplicabilityRecords during an
// evaluation pass. The real collector appends; noopCollector (below)
// discards, so Validate can skip the bookkeeping entirely when the caller
// only wants diagnostics.
type applicabilityCollector interface {
	record(node Node, schema *Schema, path string, inverted bool)
	records() []ApplicabilityRecord
}

type realCollector struct {
	recs []ApplicabilityRecord
}

func (c *realCollector) record(node Node, schema *Schema, path string, inverted bool) {
	c.recs = append(c.recs, ApplicabilityRecord{Node: node, Schema: schema, EvaluationPath: path, Inverted: inverted})
}
func (c *realCollector) records() []ApplicabilityRecord { return c.recs }

type noopCollectorT struct{}

func (noopCollectorT) record(Node, *Schema, string, bool)       {}
func (noopCollectorT) records() []ApplicabilityRecord           { return nil }

var noopCollector applicabilityCollector = noopCollectorT{}

// evalResult is the monoid validation result threaded through evaluate:
// the teacher's EvaluationResult.AddDetail/AddError tree flattened to one
// slice of Problems, merged by simple append instead of nested Details.
type evalResult struct {
	Problems []Problem
}

func (r *evalResult) valid() bool { return len(r.Problems) == 0 }

// merge appends other's problems into r, qualifying each one's
// EvaluationPath/SchemaLocation/InstanceLocation with the prefixes the
// caller is applying at this nesting level (mirrors the teacher's
// SetEvaluationPath/SetSchemaLocation/SetInstanceLocation calls made on a
// child EvaluationResult before folding it into the parent).
func (r *evalResult) merge(other evalResult, evalPath, schemaLoc, instLoc string) {
	for _, p := range other.Problems {
		p.EvaluationPath = evalPath + p.EvaluationPath
		p.SchemaLocation = schemaLoc + p.SchemaLocation
		p.InstanceLocation = instLoc + p.InstanceLocation
		r.Problems = append(r.Problems, p)
	}
}

func (r *evalResult) add(p Problem, evalPath, schemaLoc, instLoc string) {
	p.EvaluationPath = evalPath
	p.SchemaLocation = schemaLoc
	p.InstanceLocation = instLoc
	r.Problems = append(r.Problems, p)
}
