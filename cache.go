package jsonls

import (
	"encoding/base64"
	"encoding/xml"
	"sync"

	"github.com/go-json-experiment/json"

	"github.com/goccy/go-yaml"

	"github.com/kaptinlin/jsonls/pattern"
)

// FormatDef defines a custom format validation rule
type FormatDef struct {
	// Type specifies which JSON Schema type this format applies to (optional)
	// Supported values: "string", "number", "integer", "boolean", "array", "object"
	// Empty string means applies to all types
	Type string

	// Validate is the validation function
	Validate func(any) bool
}

// FetchFunc retrieves the raw bytes of a schema resource named by uri.
// Network transport is out of scope for this module (see Non-goals); callers
// that want $ref to reach across files or over the network supply their own
// FetchFunc (reading from a workspace, a bundled fileset, an HTTP client,
// whatever fits their host). Cache never dials out on its own.
type FetchFunc func(uri string) ([]byte, error)

// Association binds a glob-style fileMatch pattern to a schema URI, the unit
// the resolver consults when a resource carries no `$schema` of its own.
type Association struct {
	URI       string
	Patterns  []string // `!`-prefixed entries are anti-patterns, per pattern.MatchAssociation
}

// Handle is the Cache's per-URI bookkeeping unit: the lazy unresolved and
// resolved forms of one schema resource, the set of other URIs it depends on
// (so invalidation can propagate), and its local anchor index. The teacher's
// Compiler inlined all of this directly into one *Schema pointer kept in
// Compiler.schemas[uri]; Handle gives the cache somewhere to hang the extra
// bookkeeping the resolver's dependency model needs without Schema itself
// growing cache-shaped fields.
type Handle struct {
	URI        string
	unresolved *Schema // as parsed, before $ref/$dynamicRef are followed
	resolved   *Schema // after resolveReferences; nil until first resolved
	resolveErr error
	deps       map[string]bool // URIs this handle's resolution walked through
	anchors    map[string]*Schema
}

// Cache is a JSON Schema cache and resolver: it loads, de-references and
// memoises schemas across drafts 4 through 2020-12, tracking which handles
// depend on which others so that registering or changing one resource can
// invalidate exactly the handles whose resolution passed through it.
type Cache struct {
	mu      sync.RWMutex
	handles map[string]*Handle

	// schemas mirrors handle.resolved by URI for the teacher's original
	// "flat map of compiled schemas" callers (GetSchema/SetSchema), kept so
	// resolveRefWithFullURL's cache lookup in ref.go needs no changes.
	schemas map[string]*Schema

	contributed map[string]bool // URIs registered as part of the ambient/contributed set, not external

	combined map[string]*Schema // memoised synthetic combinedSchema per resource URI, per getSchemaForResource

	associations []Association // fileMatch table consulted by getSchemaForResource

	Decoders   map[string]func(string) ([]byte, error)            // Decoders for various encoding formats.
	MediaTypes map[string]func([]byte) (any, error)               // Media type handlers for unmarshalling data.

	Fetch          FetchFunc // caller-supplied resource loader; nil means $ref never crosses a resource boundary
	DefaultBaseURI string    // Base URI used to resolve relative references.
	AssertFormat   bool      // Flag to enforce format validation.
	PreserveExtra  bool      // keep unrecognised schema keywords on round-trip, per Schema.MarshalJSON/UnmarshalJSON

	// JSON encoder/decoder configuration
	jsonEncoder func(v any) ([]byte, error)
	jsonDecoder func(data []byte, v any) error

	// Custom format registry
	customFormats   map[string]*FormatDef // Registry for custom format definitions
	customFormatsRW sync.RWMutex          // Protects concurrent access to custom formats
}

// NewCache creates a new Cache instance and initializes it with default settings.
func NewCache() *Cache {
	cache := &Cache{
		handles:       make(map[string]*Handle),
		schemas:       make(map[string]*Schema),
		contributed:   make(map[string]bool),
		combined:      make(map[string]*Schema),
		Decoders:      make(map[string]func(string) ([]byte, error)),
		MediaTypes:    make(map[string]func([]byte) (any, error)),
		customFormats: make(map[string]*FormatDef),

		// Default to go-json-experiment JSON implementation
		jsonEncoder: func(v any) ([]byte, error) { return json.Marshal(v) },
		jsonDecoder: func(data []byte, v any) error { return json.Unmarshal(data, v) },
	}
	cache.initDefaults()
	return cache
}

// WithEncoderJSON configures custom JSON encoder implementation
func (c *Cache) WithEncoderJSON(encoder func(v any) ([]byte, error)) *Cache {
	c.jsonEncoder = encoder
	return c
}

// WithDecoderJSON configures custom JSON decoder implementation
func (c *Cache) WithDecoderJSON(decoder func(data []byte, v any) error) *Cache {
	c.jsonDecoder = decoder
	return c
}

// SetFetch installs the resource loader $ref resolution uses once a URI
// isn't already registered or cached. Leaving it nil is a valid, common
// configuration: schemas that only ever $ref "#" or an already-contributed
// URI never need one.
func (c *Cache) SetFetch(fn FetchFunc) *Cache {
	c.Fetch = fn
	return c
}

// RegisterAssociation adds a fileMatch rule consulted by getSchemaForResource
// when a resource has no `$schema` of its own. No rule takes precedence over
// another: when several rules match one resource, getSchemaForResource
// combines all of their schemas with `allOf`.
func (c *Cache) RegisterAssociation(a Association) *Cache {
	c.mu.Lock()
	c.associations = append(c.associations, a)
	c.mu.Unlock()
	return c
}

// Compile parses and registers jsonSchema as an externally-contributed
// resource (the caller's own schema, as opposed to one pulled in only
// because another schema referenced it). The schema's own $id is the cache
// key; when it has none, the first URI provided is used (and set as $id).
func (c *Cache) Compile(jsonSchema []byte, uris ...string) (*Schema, error) {
	return c.compile(jsonSchema, true, uris...)
}

func (c *Cache) compile(jsonSchema []byte, external bool, uris ...string) (*Schema, error) {
	schema, err := newSchema(jsonSchema)
	if err != nil {
		return nil, err
	}

	if schema.ID == "" && len(uris) > 0 {
		schema.ID = uris[0]
	}

	uri := NormalizeURI(schema.ID)
	if uri != "" && isValidURI(uri) {
		schema.uri = uri

		c.mu.RLock()
		existing, exists := c.schemas[uri]
		c.mu.RUnlock()
		if exists {
			return existing, nil
		}
	}

	h := &Handle{URI: uri, unresolved: schema, deps: make(map[string]bool), anchors: make(map[string]*Schema)}

	schema.initializeSchema(c, nil)
	if err := schema.validateRegexSyntax(); err != nil {
		return nil, err
	}
	h.resolved = schema

	c.mu.Lock()
	if uri != "" && isValidURI(uri) {
		c.handles[uri] = h
		c.schemas[uri] = schema
		if external {
			c.contributed[uri] = true
		}
		delete(c.combined, uri) // a freshly (re)compiled resource invalidates any stale synthesis
	}
	c.mu.Unlock()

	if uri != "" {
		c.onResourceChange(uri)
	}

	return schema, nil
}

// ReplaceSchema re-parses jsonSchema over the resource already registered at
// uri, mutating the existing *Schema in place rather than swapping in a new
// pointer. This is what lets a host signal "this schema file's content just
// changed" (spec.md §5's resource-change notification) without invalidating
// every other schema that reached this one through a $ref: those schemas
// hold the same *Schema pointer in their ResolvedRef field, so the mutation
// is visible to them on their very next evaluate() call, no re-resolution
// pass required. If uri was never registered this degrades to Compile.
func (c *Cache) ReplaceSchema(uri string, jsonSchema []byte) (*Schema, error) {
	uri = NormalizeURI(uri)

	c.mu.RLock()
	existing, ok := c.schemas[uri]
	c.mu.RUnlock()
	if !ok {
		return c.compile(jsonSchema, true, uri)
	}

	*existing = Schema{}
	if err := c.jsonDecoder(jsonSchema, existing); err != nil {
		return nil, err
	}
	if existing.ID == "" {
		existing.ID = uri
	}
	existing.uri = uri
	existing.initializeSchema(c, nil)
	if err := existing.validateRegexSyntax(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if h, ok := c.handles[uri]; ok {
		h.unresolved = existing
		h.resolved = existing
		h.resolveErr = nil
		h.deps = make(map[string]bool)
		h.anchors = make(map[string]*Schema)
	}
	c.mu.Unlock()

	c.OnResourceChange(uri)
	return existing, nil
}

// getUnresolvedSchema returns the schema as parsed, before $ref/$dynamicRef
// have been followed, registering it first via Fetch if it is not already
// known.
func (c *Cache) getUnresolvedSchema(uri string) (*Schema, error) {
	uri = NormalizeURI(uri)
	c.mu.RLock()
	h, ok := c.handles[uri]
	c.mu.RUnlock()
	if ok {
		return h.unresolved, nil
	}

	schema, err := c.fetchAndRegister(uri)
	if err != nil {
		return nil, err
	}
	return schema, nil
}

// getResolvedSchema returns the fully dereferenced schema for uri, fetching
// and registering it on first use. Resolution is idempotent: a handle whose
// resolved form is already cached is returned without re-walking $ref.
func (c *Cache) getResolvedSchema(uri string) (*Schema, error) {
	uri = NormalizeURI(uri)
	c.mu.RLock()
	h, ok := c.handles[uri]
	c.mu.RUnlock()
	if ok && h.resolved != nil {
		return h.resolved, nil
	}
	if ok && h.unresolved != nil {
		// onResourceChange cleared the resolved form: re-walk the $refs and
		// cache the result again.
		h.unresolved.ResolveUnresolvedReferences()
		c.mu.Lock()
		h.resolved = h.unresolved
		c.mu.Unlock()
		return h.resolved, nil
	}
	if ok {
		return nil, h.resolveErr
	}
	return c.fetchAndRegister(uri)
}

func (c *Cache) fetchAndRegister(uri string) (*Schema, error) {
	id, anchor := splitRef(NormalizeURI(uri))

	c.mu.RLock()
	existing, ok := c.schemas[id]
	c.mu.RUnlock()
	if ok {
		if anchor != "" {
			return existing.resolveAnchor(anchor)
		}
		return existing, nil
	}

	if c.Fetch == nil {
		return nil, ErrNoLoaderRegistered
	}
	data, err := c.Fetch(id)
	if err != nil {
		return nil, ErrDataRead
	}

	// Schemas pulled in only to satisfy someone else's $ref are registered
	// as implicit (non-contributed), so UnregisterExternal below leaves
	// them untouched.
	schema, err := c.compile(data, false, id)
	if err != nil {
		return nil, err
	}
	if anchor != "" {
		return schema.resolveAnchor(anchor)
	}
	return schema, nil
}

// OnResourceChange notifies the cache that the resource named by uri has
// changed on disk (or in whatever store the host's Fetch reads from). A
// host that edits a schema file out-of-band must call this so the next
// validation re-fetches and re-resolves instead of serving stale content
// pulled in by an earlier $ref. Safe to call for a uri the cache has never
// seen; that is simply a no-op.
func (c *Cache) OnResourceChange(uri string) {
	c.onResourceChange(NormalizeURI(uri))
}

// onResourceChange invalidates every handle whose resolution transitively
// depended on uri, so the next getResolvedSchema call re-walks its $refs
// instead of returning stale data. The teacher tracked only "who is still
// waiting on an unresolved ref" (trackUnresolvedReferences); this widens
// that into the full dependency graph invalidation spec.md §4.3 calls for.
func (c *Cache) onResourceChange(uri string) {
	uri = NormalizeURI(uri)
	c.mu.Lock()
	defer c.mu.Unlock()

	changed := map[string]bool{uri: true}
	for {
		grew := false
		for id, h := range c.handles {
			if changed[id] {
				continue
			}
			for dep := range h.deps {
				if changed[dep] {
					changed[id] = true
					grew = true
					break
				}
			}
		}
		if !grew {
			break
		}
	}

	for id := range changed {
		h, ok := c.handles[id]
		if id != uri {
			// the resource itself was just (re)compiled/replaced; don't blow
			// away what compile()/ReplaceSchema just set on its own handle.
			if ok {
				h.resolved = nil
				h.resolveErr = nil
				h.deps = make(map[string]bool)
			}
			delete(c.combined, id)
		}
		// Retry any $ref/$dynamicRef this handle's schema couldn't resolve
		// the first time (spec.md §4.3's "implicit registration triggered by
		// an unresolved $ref"): the resource that changed may be exactly the
		// one a prior resolution attempt was missing. Wired up via the
		// teacher's own ResolveUnresolvedReferences, previously only called
		// recursively on itself and never from the cache.
		if ok && h.unresolved != nil {
			h.unresolved.ResolveUnresolvedReferences()
		}
	}

	// A handle whose $ref target wasn't registered yet never got a
	// recordDependency call, so it's absent from the deps-based closure
	// above even though uri's arrival might be exactly what it was waiting
	// on. GetUnresolvedReferenceURIs (teacher's trackUnresolvedReferences
	// helper, ref.go) is used here as a cheap pre-check so retrying skips
	// handles with nothing pending.
	for id, h := range c.handles {
		if changed[id] || h.unresolved == nil {
			continue
		}
		if len(h.unresolved.GetUnresolvedReferenceURIs()) > 0 {
			h.unresolved.ResolveUnresolvedReferences()
			delete(c.combined, id)
		}
	}
}

// recordDependency marks that resolving fromURI walked through onURI, so a
// future onResourceChange(onURI) invalidates fromURI's cached resolution too.
func (c *Cache) recordDependency(fromURI, onURI string) {
	if fromURI == "" || onURI == "" || fromURI == onURI {
		return
	}
	c.mu.Lock()
	if h, ok := c.handles[fromURI]; ok {
		h.deps[onURI] = true
	}
	c.mu.Unlock()
}

// getSchemaForResource returns the schema that governs resourceURI: the
// schema named by the document's own `$schema` property when present,
// otherwise the combination of every fileMatch association whose glob
// matches resourceURI, synthesized into one `allOf` schema and memoised
// until the next onResourceChange invalidates it.
func (c *Cache) getSchemaForResource(resourceURI string, declaredSchema string) (*Schema, error) {
	resourceURI = NormalizeURI(resourceURI)
	if declaredSchema != "" {
		return c.getResolvedSchema(declaredSchema)
	}

	c.mu.RLock()
	if s, ok := c.combined[resourceURI]; ok {
		c.mu.RUnlock()
		return s, nil
	}
	assocs := append([]Association(nil), c.associations...)
	c.mu.RUnlock()

	var matches []string
	for _, a := range assocs {
		if pattern.MatchAssociation(a.Patterns, resourceURI) {
			matches = append(matches, a.URI)
		}
	}
	if len(matches) == 0 {
		return nil, ErrNoSchemaAssociated
	}
	if len(matches) == 1 {
		return c.getResolvedSchema(matches[0])
	}

	refs := make([]*Schema, 0, len(matches))
	for _, m := range matches {
		s, err := c.getResolvedSchema(m)
		if err != nil {
			return nil, err
		}
		refs = append(refs, s)
	}
	combinedURI := "schemaservice://combinedSchema/" + encodeResourceURI(resourceURI)
	combined := &Schema{uri: combinedURI, AllOf: refs, cache: c}

	c.mu.Lock()
	c.combined[resourceURI] = combined
	c.mu.Unlock()
	return combined, nil
}

// SetSchema associates a specific schema with a URI, as a contributed
// (externally-registered) resource.
func (c *Cache) SetSchema(uri string, schema *Schema) *Cache {
	uri = NormalizeURI(uri)
	c.mu.Lock()
	c.schemas[uri] = schema
	c.contributed[uri] = true
	c.handles[uri] = &Handle{URI: uri, unresolved: schema, resolved: schema, deps: make(map[string]bool), anchors: make(map[string]*Schema)}
	delete(c.combined, uri)
	c.mu.Unlock()
	return c
}

// GetSchema retrieves a schema by reference, fetching and registering it on
// first use if the ref names a URI that is not yet cached.
func (c *Cache) GetSchema(ref string) (*Schema, error) {
	return c.getResolvedSchema(ref)
}

// UnregisterExternal clears every contributed (externally-registered)
// schema, restoring the cache to whatever was registered as the ambient
// contributed set (e.g. by a host embedding well-known schemas at startup).
// Implicitly-fetched dependency schemas are left alone, matching spec.md
// §4.3's "clearing external schemas restores only the contributed set".
func (c *Cache) UnregisterExternal(keepContributed map[string]bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for uri := range c.handles {
		if c.contributed[uri] && !keepContributed[uri] {
			delete(c.handles, uri)
			delete(c.schemas, uri)
			delete(c.contributed, uri)
		}
	}
	c.combined = make(map[string]*Schema)
}

func encodeResourceURI(uri string) string {
	out := make([]byte, 0, len(uri))
	for i := 0; i < len(uri); i++ {
		b := uri[i]
		switch {
		case b == '/' || b == ':':
			out = append(out, '%', hex(b>>4), hex(b&0xf))
		default:
			out = append(out, b)
		}
	}
	return string(out)
}

func hex(b byte) byte {
	if b < 10 {
		return '0' + b
	}
	return 'a' + (b - 10)
}

// SetDefaultBaseURI sets the default base URL for resolving relative references.
func (c *Cache) SetDefaultBaseURI(baseURI string) *Cache {
	c.DefaultBaseURI = baseURI
	return c
}

// SetAssertFormat enables or disables format assertion.
func (c *Cache) SetAssertFormat(assert bool) *Cache {
	c.AssertFormat = assert
	return c
}

// SetPreserveExtra enables or disables round-tripping of unrecognised schema
// keywords through MarshalJSON/UnmarshalJSON.
func (c *Cache) SetPreserveExtra(preserve bool) *Cache {
	c.PreserveExtra = preserve
	return c
}

// RegisterDecoder adds a new decoder function for a specific encoding.
func (c *Cache) RegisterDecoder(encodingName string, decoderFunc func(string) ([]byte, error)) *Cache {
	c.Decoders[encodingName] = decoderFunc
	return c
}

// RegisterMediaType adds a new unmarshal function for a specific media type.
func (c *Cache) RegisterMediaType(mediaTypeName string, unmarshalFunc func([]byte) (any, error)) *Cache {
	c.MediaTypes[mediaTypeName] = unmarshalFunc
	return c
}

// initDefaults initializes default values for decoders and media types.
// Unlike the teacher's Compiler, Cache registers no network loaders: schema
// retrieval beyond "#" and already-registered URIs is the caller's Fetch.
func (c *Cache) initDefaults() {
	c.Decoders["base64"] = base64.StdEncoding.DecodeString
	c.setupMediaTypes()
}

// setupMediaTypes configures default media type handlers.
func (c *Cache) setupMediaTypes() {
	c.MediaTypes["application/json"] = func(data []byte) (any, error) {
		var temp any
		if err := c.jsonDecoder(data, &temp); err != nil {
			return nil, ErrJSONUnmarshal
		}
		return temp, nil
	}

	c.MediaTypes["application/xml"] = func(data []byte) (any, error) {
		var temp any
		if err := xml.Unmarshal(data, &temp); err != nil {
			return nil, ErrXMLUnmarshal
		}
		return temp, nil
	}

	c.MediaTypes["application/yaml"] = func(data []byte) (any, error) {
		var temp any
		if err := yaml.Unmarshal(data, &temp); err != nil {
			return nil, ErrYAMLUnmarshal
		}
		return temp, nil
	}
}

// RegisterFormat registers a custom format.
// The optional typeName parameter specifies which JSON Schema type the format applies to
// (e.g., "string", "number"). If omitted, the format applies to all types.
func (c *Cache) RegisterFormat(name string, validator func(any) bool, typeName ...string) *Cache {
	c.customFormatsRW.Lock()
	defer c.customFormatsRW.Unlock()

	var t string
	if len(typeName) > 0 {
		t = typeName[0]
	}

	c.customFormats[name] = &FormatDef{
		Type:     t,
		Validate: validator,
	}
	return c
}

// UnregisterFormat removes a custom format.
func (c *Cache) UnregisterFormat(name string) *Cache {
	c.customFormatsRW.Lock()
	defer c.customFormatsRW.Unlock()

	delete(c.customFormats, name)
	return c
}
