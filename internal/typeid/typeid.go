// Package typeid issues the prefixed, sortable ids of stored records.
package typeid

import (
	"errors"
	"fmt"

	"go.jetify.com/typeid/v2"
)

const (
	PrefixUser   = "user"
	PrefixCanvas = "canvas"
)

var ErrWrongPrefix = errors.New("wrong id prefix")

func New(prefix string) string {
	return typeid.MustGenerate(prefix).String()
}

func NewUserID() string   { return New(PrefixUser) }
func NewCanvasID() string { return New(PrefixCanvas) }

// Validate checks that id parses and carries the expected prefix.
func Validate(id, expectedPrefix string) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid typeid %q: %w", id, err)
	}
	if parsed.Prefix() != expectedPrefix {
		return fmt.Errorf("id %q has prefix %q, want %q: %w", id, parsed.Prefix(), expectedPrefix, ErrWrongPrefix)
	}
	return nil
}

// IsCanvasID reports whether s looks like a canvas id rather than a name.
func IsCanvasID(s string) bool {
	return Validate(s, PrefixCanvas) == nil
}
