package jsonls

import "github.com/kaptinlin/go-i18n"

// FacadeOptions configures one call to Validate: where to resolve a schema
// from when the caller doesn't already have one in hand, how severely to
// treat the document-engine's own comment/trailing-comma conveniences, and
// which locale to render messages in. Grounded on the teacher's Compiler/
// Schema split (compile once, evaluate many) collapsed into a single entry
// point per spec.md §4.5's Validation Façade.
type FacadeOptions struct {
	// ResourceURI identifies the document being validated (a file path or
	// URI), used to look up a schema association when Schema is nil.
	ResourceURI string

	// DeclaredSchemaURI overrides whatever $schema keyword (if any) the
	// document's root object carries, taking precedence over it exactly as
	// getSchemaForResource already prefers an explicit declaredSchema.
	DeclaredSchemaURI string

	// Cache resolves ResourceURI/DeclaredSchemaURI into a *Schema. Required
	// unless Schema is set directly.
	Cache *Cache

	// Schema, when non-nil, is used as-is and Cache/ResourceURI are never
	// consulted.
	Schema *Schema

	// Comments and TrailingCommas set the severity the façade reports its
	// own syntax conveniences at (SeverityIgnore suppresses them entirely).
	// Zero value (SeverityError) is almost never what a caller wants for
	// these two; most callers should set SeverityWarning or SeverityIgnore
	// explicitly.
	Comments       Severity
	TrailingCommas Severity

	// SchemaResolveSeverity is the severity of the diagnostic emitted when
	// schema resolution fails (spec.md §4.5 step 2). The value is used as
	// given: left at the zero value it is SeverityError; there is no
	// separate default.
	SchemaResolveSeverity Severity

	// Localizer renders Problem/Diagnostic messages in a specific locale.
	// Nil falls back to the English template text baked into each Problem.
	Localizer *i18n.Localizer
}

// Validate runs the full document-engine pipeline's semantic stage: resolve
// a schema (unless one was supplied directly), run it against the parsed
// document, fold in the document's own syntax diagnostics with the severity
// this call configures for comments and trailing commas, and return one
// ordered, deduplicated Diagnostic slice. This is spec.md §4.5's thin
// dispatcher: the resolver and validator packages it composes do all the
// real work, this just wires them together the way the teacher's
// jsonschema.Compiler.Compile + Schema.Validate pair would be wired by an
// editor-integration caller.
func Validate(doc *Document, opts FacadeOptions) []Diagnostic {
	schema, resolveErr := resolveFacadeSchema(doc, opts)

	// spec.md §4.5 step 6's ordering guarantee: syntax errors, then semantic
	// errors, then comment-permission errors; offset order within each.
	var diags []Diagnostic
	diags = append(diags, syntaxDiagnostics(doc, schema, opts)...)

	if resolveErr != nil {
		if doc.Root != nil {
			diags = append(diags, schemaResolveDiagnostic(doc, resolveErr, opts))
		}
	} else if schema != nil && doc.Root != nil {
		diags = append(diags, semanticDiagnostics(schema, doc.Root, opts)...)
	}

	diags = append(diags, commentDiagnostics(doc, schema, opts)...)

	return dedupeBySignature(doc, diags)
}

// resolveFacadeSchema implements spec.md §4.5 step 1: use opts.Schema
// directly if given, otherwise consult opts.Cache using the document's own
// `$schema` declaration (or opts.DeclaredSchemaURI, which wins when set).
func resolveFacadeSchema(doc *Document, opts FacadeOptions) (*Schema, error) {
	if opts.Schema != nil {
		return opts.Schema, nil
	}
	if opts.Cache == nil {
		return nil, nil
	}
	declared := opts.DeclaredSchemaURI
	if declared == "" {
		declared = declaredSchemaURI(doc)
	}
	return opts.Cache.getSchemaForResource(opts.ResourceURI, declared)
}

// declaredSchemaURI reads the `$schema` property off the document root when
// it is an object, per spec.md §4.3 item 1.
func declaredSchemaURI(doc *Document) string {
	obj, ok := doc.Root.(*ObjectNode)
	if !ok {
		return ""
	}
	prop := obj.Get("$schema")
	if prop == nil || prop.Value == nil {
		return ""
	}
	str, ok := prop.Value.(*StringNode)
	if !ok {
		return ""
	}
	return str.Value
}

// schemaResolveDiagnostic builds spec.md §4.5 step 2's single diagnostic for
// a failed schema lookup, targeting the root object's `$schema` property
// when present and the root's first byte otherwise.
func schemaResolveDiagnostic(doc *Document, resolveErr error, opts FacadeOptions) Diagnostic {
	offset, length := doc.Root.Offset(), 0
	if obj, ok := doc.Root.(*ObjectNode); ok {
		if prop := obj.Get("$schema"); prop != nil {
			offset, length = prop.Offset(), prop.Length()
		}
	}
	return Diagnostic{
		Offset:   offset,
		Length:   length,
		Severity: opts.SchemaResolveSeverity,
		Code:     DiagSchemaResolveError,
		Message:  resolveErr.Error(),
	}
}

// semanticDiagnostics runs the validator and converts every Problem into a
// Diagnostic using the byte range validate.go now stamps onto Problem.Node.
func semanticDiagnostics(schema *Schema, root Node, opts FacadeOptions) []Diagnostic {
	problems := schema.Validate(root)
	diags := make([]Diagnostic, 0, len(problems))
	for _, p := range problems {
		diags = append(diags, problemToDiagnostic(p, opts.Localizer))
	}
	return diags
}

func problemToDiagnostic(p Problem, localizer *i18n.Localizer) Diagnostic {
	var offset, length int
	if p.Node != nil {
		offset, length = p.Node.Offset(), p.Node.Length()
	}
	code := DiagUndefined
	switch p.Keyword {
	case "enum", "const":
		code = DiagEnumValueMismatch
	case "deprecated":
		code = DiagDeprecated
	}
	return Diagnostic{
		Offset:   offset,
		Length:   length,
		Severity: p.Severity,
		Code:     code,
		Message:  p.Localize(localizer),
	}
}

// syntaxDiagnostics folds the document's own parse-time diagnostics in,
// rewriting the severity of trailing-comma diagnostics per opts (spec.md
// §4.5 step 5) and dropping them entirely when the resolved schema opts
// into allowing trailing commas via the non-standard allowTrailingCommas
// flag (walking allOf, since that flag is as inheritable as any other
// schema keyword here).
func syntaxDiagnostics(doc *Document, schema *Schema, opts FacadeOptions) []Diagnostic {
	allowTrailingCommas := schemaAllows(schema, func(s *Schema) *bool { return s.AllowTrailingCommas })

	out := make([]Diagnostic, 0, len(doc.Diagnostics))
	for _, d := range doc.Diagnostics {
		if d.Code == DiagTrailingComma {
			if allowTrailingCommas || opts.TrailingCommas == SeverityIgnore {
				continue
			}
			d.Severity = opts.TrailingCommas
		}
		out = append(out, d)
	}
	return out
}

// commentDiagnostics implements spec.md §4.5 step 5's other half: one
// "Comments are not permitted in JSON" diagnostic per comment range the
// parser collected (the parser itself only records ranges; whether a
// comment is actually a problem is a document-engine policy decision, made
// here, not a parse-time fact), skipped entirely when comments are ignored
// or the resolved schema opts in via allowComments.
func commentDiagnostics(doc *Document, schema *Schema, opts FacadeOptions) []Diagnostic {
	if opts.Comments == SeverityIgnore || len(doc.Comments) == 0 {
		return nil
	}
	if schemaAllows(schema, func(s *Schema) *bool { return s.AllowComments }) {
		return nil
	}
	out := make([]Diagnostic, 0, len(doc.Comments))
	for _, c := range doc.Comments {
		out = append(out, Diagnostic{
			Offset:   c.Offset,
			Length:   c.Length,
			Severity: opts.Comments,
			Code:     DiagCommentNotPermitted,
			Message:  "Comments are not permitted in JSON.",
		})
	}
	return out
}

// schemaAllows walks schema and its allOf members (recursively, depth-first)
// looking for the first non-nil flag a selector returns, mirroring how a
// schema's allOf branches are expected to compose rather than override one
// another for this kind of document-level setting.
func schemaAllows(schema *Schema, flag func(*Schema) *bool) bool {
	if schema == nil {
		return false
	}
	if f := flag(schema); f != nil {
		return *f
	}
	for _, sub := range schema.AllOf {
		if schemaAllows(sub, flag) {
			return true
		}
	}
	return false
}
