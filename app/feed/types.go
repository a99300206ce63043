package feed

import (
	"errors"
	"fmt"
)

var ErrMissingAttribute = errors.New("missing entry attribute")

type Metadata struct {
	Title string
	Link  string
}

// Entry is one feed item as a flat attribute map. Standard fields use their
// lowercase names ("title", "link", "guid"); namespaced extension elements are
// keyed as "<prefix>_<element>", e.g. "nyaa_infohash".
type Entry map[string]string

// Get returns the named attribute or an error wrapping ErrMissingAttribute
func (e Entry) Get(name string) (string, error) {
	v, ok := e[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingAttribute, name)
	}
	return v, nil
}

func (e Entry) Title() string {
	return e["title"]
}
