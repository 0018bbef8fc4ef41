package jsonls

import "strconv"

// NodeKind identifies which of the seven syntax-tree variants a Node is.
type NodeKind int

const (
	KindObject NodeKind = iota
	KindArray
	KindProperty
	KindString
	KindNumber
	KindBoolean
	KindNull
)

func (k NodeKind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindProperty:
		return "property"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindNull:
		return "null"
	default:
		return "unknown"
	}
}

// Node is the common interface implemented by every syntax-tree variant.
// Offsets and lengths are byte offsets into the original UTF-8 source text.
type Node interface {
	Kind() NodeKind
	Offset() int
	Length() int
	Parent() Node

	setParent(Node)
}

// NodeBase carries the attributes shared by every node variant: its byte
// range and a non-owning back-reference to its parent. The root node of a
// document has a nil parent.
type NodeBase struct {
	offset int
	length int
	parent Node
}

func (b *NodeBase) Offset() int      { return b.offset }
func (b *NodeBase) Length() int      { return b.length }
func (b *NodeBase) Parent() Node     { return b.parent }
func (b *NodeBase) setParent(p Node) { b.parent = p }

// End returns the exclusive end offset of the node (offset+length).
func End(n Node) int { return n.Offset() + n.Length() }

// ObjectNode is a `{ ... }` value; its children are an ordered list of
// properties in source order.
type ObjectNode struct {
	NodeBase
	Properties []*PropertyNode
}

func (n *ObjectNode) Kind() NodeKind { return KindObject }

// Get returns the first property with the given key, or nil. Because
// duplicate keys are retained in the tree (see Parser), this returns the
// first (semantically winning) occurrence.
func (n *ObjectNode) Get(key string) *PropertyNode {
	for _, p := range n.Properties {
		if p.Key != nil && p.Key.Value == key {
			return p
		}
	}
	return nil
}

// PropertyNode is a single `"key": value` pair inside an object. Value may
// be nil when the parser recovered from a missing value (e.g. `{"a":}`) or
// a missing colon.
type PropertyNode struct {
	NodeBase
	Key        *StringNode
	Value      Node
	ColonOffset int // -1 if no colon token was consumed
}

func (n *PropertyNode) Kind() NodeKind { return KindProperty }

// ArrayNode is a `[ ... ]` value; Items holds its elements in source order.
type ArrayNode struct {
	NodeBase
	Items []Node
}

func (n *ArrayNode) Kind() NodeKind { return KindArray }

// StringNode holds a string literal's decoded value (escapes resolved).
type StringNode struct {
	NodeBase
	Value string
}

func (n *StringNode) Kind() NodeKind { return KindString }

// NumberNode holds a numeric literal's decoded double value plus whether
// the literal itself was syntactically an integer (no `.` and no negative
// exponent) per spec.md's integer-flag rule.
type NumberNode struct {
	NodeBase
	Value     float64
	IsInteger bool
}

func (n *NumberNode) Kind() NodeKind { return KindNumber }

// BooleanNode holds a `true`/`false` literal.
type BooleanNode struct {
	NodeBase
	Value bool
}

func (n *BooleanNode) Kind() NodeKind { return KindBoolean }

// NullNode represents a `null` literal. It carries no payload beyond its
// position.
type NullNode struct {
	NodeBase
}

func (n *NullNode) Kind() NodeKind { return KindNull }

// setChildParent attaches child to parent and records the relationship.
func setChildParent(parent Node, child Node) {
	if child == nil {
		return
	}
	child.setParent(parent)
}

// JSONPointer computes the JSON Pointer (RFC 6901) path from the document
// root down to n, using `~0`/`~1` escaping for `~` and `/` in object keys.
func JSONPointer(n Node) string {
	var segments []string
	for cur := n; cur != nil; {
		switch p := cur.Parent().(type) {
		case *ObjectNode:
			// cur is a PropertyNode passed in directly; its key is the segment.
			for _, prop := range p.Properties {
				if prop == cur {
					segments = append(segments, escapePointerSegment(keyOf(prop)))
					break
				}
			}
		case *PropertyNode:
			// cur is the property's value: the property's key is its segment.
			// A key node contributes no segment of its own.
			if p.Value == cur {
				segments = append(segments, escapePointerSegment(keyOf(p)))
			}
		case *ArrayNode:
			for i, item := range p.Items {
				if item == cur {
					segments = append(segments, strconv.Itoa(i))
					break
				}
			}
		}
		if cur.Parent() == nil {
			break
		}
		cur = parentOrPropertyParent(cur)
	}
	// reverse
	out := ""
	for i := len(segments) - 1; i >= 0; i-- {
		out += "/" + segments[i]
	}
	return out
}

func keyOf(p *PropertyNode) string {
	if p.Key == nil {
		return ""
	}
	return p.Key.Value
}

// parentOrPropertyParent skips over the synthetic PropertyNode layer so
// JSONPointer walks Object -> Property -> value as a single pointer segment.
func parentOrPropertyParent(n Node) Node {
	switch n.Parent().(type) {
	case *PropertyNode:
		return n.Parent().Parent()
	default:
		return n.Parent()
	}
}

func escapePointerSegment(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '~':
			out = append(out, '~', '0')
		case '/':
			out = append(out, '~', '1')
		default:
			out = append(out, s[i])
		}
	}
	return string(out)
}
