package fhir

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/buger/jsonparser"
)

// ErrMalformedBundle is returned when the bundle is not an object with an
// array of entries, or when an entry's resource is not an object.
var ErrMalformedBundle = errors.New("malformed bundle")

// BundleEntry is one resource carried by a bundle.
type BundleEntry struct {
	Index        int
	ResourceType string
	Resource     Node
}

// EntryError describes the entry that made a bundle unreadable.
type EntryError struct {
	Index  int // -1 for the bundle container itself
	Reason string
}

func (e *EntryError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %s", ErrMalformedBundle, e.Reason)
	}
	return fmt.Sprintf("%s: entry[%d]: %s", ErrMalformedBundle, e.Index, e.Reason)
}

func (e *EntryError) Unwrap() error { return ErrMalformedBundle }

// EachEntry calls fn for every entry of a bundle, in order. The payload must
// be valid JSON as a whole, but only the entry resources are decoded; the
// surrounding bundle is scanned in place. A bundle
// without an "entry" key has no entries. Entries without a resource are
// skipped. The first structural problem stops the iteration and is returned
// as an *EntryError.
func EachEntry(data []byte, fn func(BundleEntry)) error {
	if !json.Valid(data) {
		return &EntryError{Index: -1, Reason: "bundle is not valid JSON"}
	}
	_, typ, _, err := jsonparser.Get(data)
	if err != nil {
		return &EntryError{Index: -1, Reason: err.Error()}
	}
	if typ != jsonparser.Object {
		return &EntryError{Index: -1, Reason: "bundle is not a JSON object"}
	}

	entries, typ, _, err := jsonparser.Get(data, "entry")
	if errors.Is(err, jsonparser.KeyPathNotFoundError) || typ == jsonparser.Null {
		return nil
	}
	if err != nil {
		return &EntryError{Index: -1, Reason: err.Error()}
	}
	if typ != jsonparser.Array {
		return &EntryError{Index: -1, Reason: "entry is not an array"}
	}

	var walkErr *EntryError
	idx := 0
	_, err = jsonparser.ArrayEach(entries, func(value []byte, vt jsonparser.ValueType, _ int, cbErr error) {
		i := idx
		idx++
		if walkErr != nil {
			return
		}
		if cbErr != nil {
			walkErr = &EntryError{Index: i, Reason: cbErr.Error()}
			return
		}
		if vt != jsonparser.Object {
			walkErr = &EntryError{Index: i, Reason: "entry is not a JSON object"}
			return
		}

		res, rt, _, gerr := jsonparser.Get(value, "resource")
		if errors.Is(gerr, jsonparser.KeyPathNotFoundError) || rt == jsonparser.Null {
			return
		}
		if gerr != nil {
			walkErr = &EntryError{Index: i, Reason: gerr.Error()}
			return
		}
		if rt != jsonparser.Object {
			walkErr = &EntryError{Index: i, Reason: "resource is not a JSON object"}
			return
		}

		node, derr := DecodeNode(res)
		if derr != nil {
			walkErr = &EntryError{Index: i, Reason: derr.Error()}
			return
		}
		fn(BundleEntry{
			Index:        i,
			ResourceType: node.Get("resourceType").Str(),
			Resource:     node,
		})
	})
	if walkErr != nil {
		return walkErr
	}
	if err != nil {
		return &EntryError{Index: -1, Reason: err.Error()}
	}
	return nil
}

// ReferenceID returns the trailing identifier segment of a reference:
// "Encounter/123" and "urn:uuid:123" both give "123". A version suffix
// ("Encounter/123/_history/2") is dropped first.
func ReferenceID(ref string) string {
	ref = strings.TrimSpace(ref)
	if i := strings.Index(ref, "/_history/"); i >= 0 {
		ref = ref[:i]
	}
	if i := strings.LastIndexAny(ref, "/:"); i >= 0 {
		return ref[i+1:]
	}
	return ref
}

// DateKeyLen is the length of a calendar date in YYYY-MM-DD form.
const DateKeyLen = 10

// DateKey reduces a date or date-time string to its first ten characters,
// counted in runes. It is the only normalization applied before dates are
// indexed or compared; anything joining against indexed dates must use it on
// both sides.
func DateKey(s string) string {
	n := 0
	for i := range s {
		if n == DateKeyLen {
			return s[:i]
		}
		n++
	}
	return s
}
