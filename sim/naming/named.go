// Package naming holds the naming rules shared by routers, links and
// networks.
package naming

import (
	"fmt"
	"strings"
	"unicode"
)

// Named describes an object that has a name.
type Named interface {
	// Name returns the name of the object.
	Name() string
}

// NamedBase is a base implementation of Named.
type NamedBase struct {
	name string
}

// Name returns the name.
func (b *NamedBase) Name() string {
	return b.name
}

// MakeNamedBase creates a new NamedBase
func MakeNamedBase(name string) NamedBase {
	return NamedBase{name: name}
}

// IDMustBeValid panics if a node id cannot be used. Node ids appear in link
// names ("A->B"), log fields and SQL rows, so they must be non-empty, must
// not contain white space and must not contain the link separator.
func IDMustBeValid(id string) {
	if err := ValidateID(id); err != nil {
		panic(err.Error())
	}
}

// ValidateID reports why an id is invalid, or nil.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("naming: id must not be empty")
	}

	if strings.Contains(id, LinkSeparator) {
		return fmt.Errorf("naming: id %q must not contain %q", id, LinkSeparator)
	}

	for _, r := range id {
		if unicode.IsSpace(r) {
			return fmt.Errorf("naming: id %q must not contain white space", id)
		}
	}

	return nil
}

// LinkSeparator separates the two endpoints in a link name.
const LinkSeparator = "->"

// BuildLinkName builds the name of the directed link from one node to
// another.
func BuildLinkName(from, to string) string {
	return from + LinkSeparator + to
}
