// Package jsonls implements the document engine behind JSON/JSON-with-
// comments editor tooling: a fault-tolerant scanner and parser that builds a
// position-preserving syntax tree, a JSON Schema resolver that loads,
// de-references and caches schemas across drafts 4 through 2020-12, and a
// validator that walks the syntax tree against a resolved schema collecting
// diagnostics and per-node schema applicability.
//
// Credit to https://github.com/kaptinlin/jsonschema, whose schema model,
// keyword evaluators and i18n wiring this package's Schema and Validator are
// grounded on.
package jsonls
