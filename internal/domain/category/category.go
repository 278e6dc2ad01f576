package category

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// MaxNameLength bounds a custom category name.
const MaxNameLength = 50

// Defaults are always available and cannot be removed.
var Defaults = []string{"Important", "Review", "Difficult"}

// obsolete is a placeholder category written by early releases.
const obsolete = "custom"

var (
	ErrEmptyName   = errors.New("category name is empty")
	ErrNameTooLong = errors.New("category name is too long")
	ErrReserved    = errors.New("category name is reserved")
)

type Category struct {
	Name   string `json:"name"`
	Custom bool   `json:"custom"`
}

// New validates a user-supplied name for a custom category.
func New(name string) (*Category, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return nil, ErrEmptyName
	case utf8.RuneCountInString(name) > MaxNameLength:
		return nil, ErrNameTooLong
	case IsDefault(name) || strings.EqualFold(name, obsolete):
		return nil, ErrReserved
	}
	return &Category{Name: name, Custom: true}, nil
}

// IsDefault reports whether name is one of the default categories,
// ignoring case.
func IsDefault(name string) bool {
	for _, d := range Defaults {
		if strings.EqualFold(d, name) {
			return true
		}
	}
	return false
}

// Normalize maps names written by older releases to the current ones:
// lowercase defaults are capitalized and the obsolete placeholder becomes
// the empty string (no category).
func Normalize(name string) string {
	if name == obsolete {
		return ""
	}
	for _, d := range Defaults {
		if name == strings.ToLower(d) {
			return d
		}
	}
	return name
}

// All lists the defaults followed by the custom names.
func All(custom []string) []*Category {
	out := make([]*Category, 0, len(Defaults)+len(custom))
	for _, d := range Defaults {
		out = append(out, &Category{Name: d})
	}
	for _, c := range custom {
		out = append(out, &Category{Name: c, Custom: true})
	}
	return out
}
