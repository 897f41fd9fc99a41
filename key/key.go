/*
Package key builds cache keys for server-resource queries.

A Key is an ordered list of parts: a resource type followed by identifiers
and filter objects. Every part is stored in a canonical JSON form, with
object fields sorted at every nesting level, so two keys describing the
same logical request compare equal no matter how their filter maps or
structs were put together.
*/
package key

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Key addresses one cache entry. The zero Key is the empty prefix and matches everything.
type Key struct {
	parts []string
}

// New builds a key from the given parts.
func New(parts ...any) Key {
	k := Key{parts: make([]string, 0, len(parts))}
	for _, p := range parts {
		k.parts = append(k.parts, canonical(p))
	}
	return k
}

// Append returns a new key with extra parts added after k's parts.
// k itself is not modified.
func (k Key) Append(parts ...any) Key {
	n := Key{parts: make([]string, len(k.parts), len(k.parts)+len(parts))}
	copy(n.parts, k.parts)
	for _, p := range parts {
		n.parts = append(n.parts, canonical(p))
	}
	return n
}

// Len returns the number of parts.
func (k Key) Len() int { return len(k.parts) }

// String returns the canonical serialization, e.g. ["merchants",{"page":1}].
// Two keys are equal iff their strings are equal.
func (k Key) String() string {
	return "[" + strings.Join(k.parts, ",") + "]"
}

// Equal reports structural equality.
func (k Key) Equal(o Key) bool {
	if len(k.parts) != len(o.parts) {
		return false
	}
	for i := range k.parts {
		if k.parts[i] != o.parts[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether the first parts of k equal all parts of prefix.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix.parts) > len(k.parts) {
		return false
	}
	for i := range prefix.parts {
		if k.parts[i] != prefix.parts[i] {
			return false
		}
	}
	return true
}

// canonical encodes one part. Values are marshalled, decoded back into
// generic JSON values and marshalled again: encoding/json writes map keys
// in sorted order, which removes any dependence on struct field or map
// insertion order.
func canonical(p any) string {
	if s, ok := p.(string); ok {
		b, _ := json.Marshal(s)
		return string(b)
	}
	raw, err := json.Marshal(p)
	if err != nil {
		// unencodable parts (funcs, channels) still need a stable form
		b, _ := json.Marshal(fmt.Sprintf("%#v", p))
		return string(b)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return string(raw)
	}
	out, err := json.Marshal(generic)
	if err != nil {
		return string(raw)
	}
	return string(out)
}
