package jsonls

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the cache/resolver when a schema cannot be
// loaded or resolved, and by schema decoding, number conversion and the
// URI format checks. Grounded on the teacher's compiler.go error set,
// trimmed to the subset this engine's resolver actually returns (the
// teacher's struct-tag/codegen/reflection error families have no analogue
// in a document-tooling engine and were dropped rather than carried as
// dead weight).
var (
	// ErrNoLoaderRegistered is returned when a URI has to be loaded and the
	// Cache has no Fetch callback set.
	ErrNoLoaderRegistered = errors.New("no loader registered for scheme")

	// ErrDataRead is returned when the caller-supplied fetch callback fails.
	ErrDataRead = errors.New("data read failed")

	// ErrJSONUnmarshal is returned by the application/json media-type
	// handler when content cannot be parsed as JSON.
	ErrJSONUnmarshal = errors.New("json unmarshal failed")

	// ErrXMLUnmarshal is returned by the XML media-type handler when content
	// cannot be parsed as XML.
	ErrXMLUnmarshal = errors.New("xml unmarshal failed")

	// ErrYAMLUnmarshal is returned by the YAML media-type handler when
	// content cannot be parsed as YAML.
	ErrYAMLUnmarshal = errors.New("yaml unmarshal failed")

	// ErrNoSchemaAssociated is returned when a resource has no declared
	// $schema and no fileMatch association names a schema for it.
	ErrNoSchemaAssociated = errors.New("no schema associated with resource")

	// ErrGlobalReferenceResolution is returned when a $ref naming another
	// schema resource cannot be resolved at all (the named handle has no
	// loader and no inline content).
	ErrGlobalReferenceResolution = errors.New("global reference resolution failed")

	// ErrJSONPointerSegmentDecode is returned when a JSON Pointer fragment
	// contains an invalid percent-escape or ~ escape sequence.
	ErrJSONPointerSegmentDecode = errors.New("json pointer segment decode failed")

	// ErrJSONPointerSegmentNotFound is returned when a JSON Pointer fragment
	// walks past the end of the target document.
	ErrJSONPointerSegmentNotFound = errors.New("json pointer segment not found")

	// ErrNilConstValue is returned when trying to unmarshal into a nil
	// ConstValue.
	ErrNilConstValue = errors.New("cannot unmarshal into nil ConstValue")

	// ErrIPv6AddressNotEnclosed is returned by URI format checks when a host
	// holds an IPv6 address that is not enclosed in square brackets.
	ErrIPv6AddressNotEnclosed = errors.New("ipv6 address is not enclosed in brackets")

	// ErrInvalidIPv6Address is returned by URI format checks when a host's
	// IPv6 address is not valid.
	ErrInvalidIPv6Address = errors.New("invalid ipv6 address")

	// ErrUnsupportedTypeForRat is returned when a value of an unsupported Go
	// type is converted to a rational number.
	ErrUnsupportedTypeForRat = errors.New("unsupported type for rat conversion")

	// ErrFailedToConvertToRat is returned when a value's text form is not a
	// valid rational number.
	ErrFailedToConvertToRat = errors.New("failed to convert to rat")

	// ErrRegexValidation heads the joined error returned when a schema holds
	// patterns that do not compile as regular expressions.
	ErrRegexValidation = errors.New("schema contains invalid regular expressions")

	// ErrReferenceResolution is returned when a schema lookup names a URI
	// that is not registered on the schema.
	ErrReferenceResolution = errors.New("reference resolution failed")

	// ErrInvalidJSONSchemaType is returned when a schema's "type" is neither
	// a string nor an array of strings.
	ErrInvalidJSONSchemaType = errors.New("invalid json schema type")
)

// RegexPatternError describes one pattern in a schema that does not compile
// as a regular expression: the keyword holding it and its JSON Pointer
// location within the schema.
type RegexPatternError struct {
	Keyword  string
	Location string
	Pattern  string
	Err      error
}

func (e *RegexPatternError) Error() string {
	return fmt.Sprintf("%s at %s: invalid pattern %q: %v", e.Keyword, e.Location, e.Pattern, e.Err)
}

func (e *RegexPatternError) Unwrap() error { return e.Err }
