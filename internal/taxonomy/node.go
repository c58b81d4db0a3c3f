// Package taxonomy holds the nested index taxonomy (category -> entry -> reference
// list) and converts it to and from the path-encoded form used by the
// translation store.
package taxonomy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Node is either a leaf reference list or an ordered mapping of sub-keys
type Node struct {
	leaf     bool
	value    string
	keys     []string
	children map[string]*Node
}

// Leaf creates a leaf node
func Leaf(value string) *Node {
	return &Node{leaf: true, value: value}
}

// NewMapping creates an empty mapping node
func NewMapping() *Node {
	return &Node{children: make(map[string]*Node)}
}

// IsLeaf reports whether n is a leaf
func (n *Node) IsLeaf() bool {
	return n.leaf
}

// Value returns the leaf value; it is empty for a mapping
func (n *Node) Value() string {
	return n.value
}

// Keys returns a mapping's keys in order
func (n *Node) Keys() []string {
	return n.keys
}

// Len returns the number of children of a mapping
func (n *Node) Len() int {
	return len(n.keys)
}

// Child returns the child stored under key
func (n *Node) Child(key string) (*Node, bool) {
	c, ok := n.children[key]
	return c, ok
}

// Set stores child under key, keeping the key's position if it already exists.
// Set on a leaf panics.
func (n *Node) Set(key string, child *Node) {
	if n.leaf {
		panic("taxonomy: Set on leaf node")
	}
	if n.children == nil {
		n.children = make(map[string]*Node)
	}
	if _, ok := n.children[key]; !ok {
		n.keys = append(n.keys, key)
	}
	n.children[key] = child
}

// Sort orders every mapping level by key
func (n *Node) Sort(less Less) {
	if n.leaf {
		return
	}
	if less == nil {
		less = ByteOrder
	}
	sort.SliceStable(n.keys, func(i, j int) bool {
		return less(n.keys[i], n.keys[j])
	})
	for _, k := range n.keys {
		n.children[k].Sort(less)
	}
}

// Equal reports whether two trees hold the same keys, order and values
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}
	if n.leaf != other.leaf {
		return false
	}
	if n.leaf {
		return n.value == other.value
	}
	if len(n.keys) != len(other.keys) {
		return false
	}
	for i, k := range n.keys {
		if other.keys[i] != k {
			return false
		}
		if !n.children[k].Equal(other.children[k]) {
			return false
		}
	}
	return true
}

// Walk visits every leaf with its key path
func (n *Node) Walk(fn func(path []string, value string)) {
	n.walk(nil, fn)
}

func (n *Node) walk(prefix []string, fn func(path []string, value string)) {
	if n.leaf {
		fn(prefix, n.value)
		return
	}
	for _, k := range n.keys {
		path := append(append([]string(nil), prefix...), k)
		n.children[k].walk(path, fn)
	}
}

// MarshalJSON encodes a leaf as a string and a mapping as an object in key order
func (n *Node) MarshalJSON() ([]byte, error) {
	if n.leaf {
		return json.Marshal(n.value)
	}

	var b bytes.Buffer
	b.WriteByte('{')
	for i, k := range n.keys {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		child, err := n.children[k].MarshalJSON()
		if err != nil {
			return nil, err
		}
		b.Write(key)
		b.WriteByte(':')
		b.Write(child)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// UnmarshalJSON decodes strings as leaves and objects as mappings, keeping
// document order
func (n *Node) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	node, err := decodeNode(dec)
	if err != nil {
		return err
	}
	*n = *node
	return nil
}

func decodeNode(dec *json.Decoder) (*Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case string:
		return Leaf(t), nil
	case json.Delim:
		if t != '{' {
			return nil, fmt.Errorf("taxonomy: unexpected %v", t)
		}
		node := NewMapping()
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("taxonomy: expected key, found %v", keyTok)
			}
			child, err := decodeNode(dec)
			if err != nil {
				return nil, fmt.Errorf("taxonomy: key %q: %w", key, err)
			}
			node.Set(key, child)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return node, nil
	default:
		return nil, fmt.Errorf("taxonomy: unsupported value %v", tok)
	}
}
