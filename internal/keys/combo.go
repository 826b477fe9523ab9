package keys

import (
	"errors"
	"sort"
	"strings"
)

// Separator joins key names inside a combo string.
const Separator = "+"

// ErrEmptyCombo is returned when a combo string names no keys.
var ErrEmptyCombo = errors.New("empty key combination")

// ComboString returns the canonical combo for a set of held keys. Modifiers
// sort before other keys, each class by display name, and side variants of
// the same key collapse to one entry. An empty set yields "".
func ComboString(pressed []Key) string {
	if len(pressed) == 0 {
		return ""
	}

	seen := make(map[string]bool, len(pressed))
	type entry struct {
		name     string
		modifier bool
	}
	entries := make([]entry, 0, len(pressed))
	for _, k := range pressed {
		name := Name(k)
		if seen[name] {
			continue
		}
		seen[name] = true
		entries = append(entries, entry{name: name, modifier: IsModifier(k)})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].modifier != entries[j].modifier {
			return entries[i].modifier
		}
		return entries[i].name < entries[j].name
	})

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	return strings.Join(names, Separator)
}

// ParseCombo normalizes a typed combo such as "ctrl+a" into its canonical
// form ("Ctrl+A"). Unknown multi-character names are kept verbatim so that
// bindings written by other tools still round-trip.
func ParseCombo(s string) (string, error) {
	parts := strings.Split(s, Separator)
	pressed := make([]Key, 0, len(parts))
	var unknown []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		k, ok := Lookup(p)
		if !ok {
			unknown = append(unknown, p)
			continue
		}
		pressed = append(pressed, k)
	}
	if len(pressed) == 0 && len(unknown) == 0 {
		return "", ErrEmptyCombo
	}

	combo := ComboString(pressed)
	if len(unknown) > 0 {
		sort.Strings(unknown)
		rest := strings.Join(unknown, Separator)
		if combo == "" {
			return rest, nil
		}
		combo += Separator + rest
	}
	return combo, nil
}
