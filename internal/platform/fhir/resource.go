package fhir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Node is a read-only view over a decoded JSON value (object, array or
// scalar). Every accessor is total: asking for a key, index or type that is
// not there yields the zero Node or the zero value instead of panicking, so
// extraction code can chain lookups without checking each step.
type Node struct {
	v interface{}
}

// NewNode wraps an already-decoded JSON value.
func NewNode(v interface{}) Node {
	return Node{v: v}
}

// DecodeNode decodes raw JSON into a Node. Numbers are kept as json.Number
// so decimal values survive without float rounding.
func DecodeNode(data []byte) (Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return Node{}, fmt.Errorf("decode json: %w", err)
	}
	return Node{v: v}, nil
}

// Exists reports whether the node holds a non-null value.
func (n Node) Exists() bool { return n.v != nil }

// IsObject reports whether the node is a JSON object.
func (n Node) IsObject() bool {
	_, ok := n.v.(map[string]interface{})
	return ok
}

// IsArray reports whether the node is a JSON array.
func (n Node) IsArray() bool {
	_, ok := n.v.([]interface{})
	return ok
}

// Has reports whether an object node carries key, even when its value is null.
func (n Node) Has(key string) bool {
	m, ok := n.v.(map[string]interface{})
	if !ok {
		return false
	}
	_, ok = m[key]
	return ok
}

// Get returns the value stored under key, or the zero Node.
func (n Node) Get(key string) Node {
	m, ok := n.v.(map[string]interface{})
	if !ok {
		return Node{}
	}
	return Node{v: m[key]}
}

// Path follows a sequence of object keys.
func (n Node) Path(keys ...string) Node {
	cur := n
	for _, k := range keys {
		cur = cur.Get(k)
	}
	return cur
}

// Index returns the i-th element of an array node, or the zero Node.
func (n Node) Index(i int) Node {
	a, ok := n.v.([]interface{})
	if !ok || i < 0 || i >= len(a) {
		return Node{}
	}
	return Node{v: a[i]}
}

// First returns the first element of the array stored under key.
func (n Node) First(key string) Node {
	return n.Get(key).Index(0)
}

// Len returns the number of elements of an array or keys of an object.
func (n Node) Len() int {
	switch v := n.v.(type) {
	case []interface{}:
		return len(v)
	case map[string]interface{}:
		return len(v)
	}
	return 0
}

// Items returns the elements of an array node. Non-arrays yield nil.
func (n Node) Items() []Node {
	a, ok := n.v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]Node, len(a))
	for i, v := range a {
		out[i] = Node{v: v}
	}
	return out
}

// Str returns the node as a string, or "" when it is not a JSON string.
func (n Node) Str() string {
	s, _ := n.v.(string)
	return s
}

// StrOr returns the string value, or def when it is missing or empty.
func (n Node) StrOr(def string) string {
	if s := n.Str(); s != "" {
		return s
	}
	return def
}

// Number returns the numeric literal of a number node.
func (n Node) Number() (json.Number, bool) {
	switch v := n.v.(type) {
	case json.Number:
		return v, true
	case float64:
		return json.Number(strconv.FormatFloat(v, 'f', -1, 64)), true
	}
	return "", false
}

// Int returns the node as an integer when it is an integral number.
func (n Node) Int() (int, bool) {
	num, ok := n.Number()
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(num.String())
	if err != nil {
		return 0, false
	}
	return i, true
}

// Text renders a scalar node as text: strings verbatim, numbers in their
// literal form, booleans as "true"/"false". Objects, arrays and null give "".
func (n Node) Text() string {
	switch v := n.v.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	}
	if num, ok := n.Number(); ok {
		return num.String()
	}
	return ""
}
