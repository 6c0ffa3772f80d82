package shortcut

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmpty    = errors.New("shortcut is empty")
	ErrInvalid  = errors.New("invalid shortcut format")
	ErrReserved = errors.New("shortcut is reserved by the system")
)

// Shortcut is a parsed key combination.
type Shortcut struct {
	Mods Modifier
	Key  string
}

// String returns the canonical form: modifiers in Ctrl, Alt, Shift, Meta
// order, then the key, joined by "+".
func (s Shortcut) String() string {
	if s.Mods.IsEmpty() {
		return s.Key
	}
	return s.Mods.String() + "+" + s.Key
}

// Parse parses a combination such as "ctrl+alt+s" or "Alt+Ctrl+S".
// Modifier names are case-insensitive and may appear in any order; a
// single-letter key is upper-cased. At least one modifier and exactly one
// non-modifier key are required.
func Parse(input string) (Shortcut, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Shortcut{}, ErrEmpty
	}

	parts := strings.Split(input, "+")
	var sc Shortcut
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return Shortcut{}, fmt.Errorf("%w: empty segment in %q", ErrInvalid, input)
		}
		last := i == len(parts)-1
		mod := ModifierFromName(part)
		if !last {
			if mod == ModNone {
				return Shortcut{}, fmt.Errorf("%w: unknown modifier %q", ErrInvalid, part)
			}
			if sc.Mods.Has(mod) {
				return Shortcut{}, fmt.Errorf("%w: duplicate modifier %q", ErrInvalid, part)
			}
			sc.Mods = sc.Mods.With(mod)
			continue
		}
		if mod != ModNone {
			return Shortcut{}, fmt.Errorf("%w: missing key after %q", ErrInvalid, part)
		}
		if strings.ContainsAny(part, " \t") {
			return Shortcut{}, fmt.Errorf("%w: key %q contains whitespace", ErrInvalid, part)
		}
		sc.Key = normalizeKey(part)
	}

	if sc.Mods.IsEmpty() {
		return Shortcut{}, fmt.Errorf("%w: %q needs at least one modifier", ErrInvalid, input)
	}
	return sc, nil
}

// Canonical parses input and returns its canonical string.
func Canonical(input string) (string, error) {
	sc, err := Parse(input)
	if err != nil {
		return "", err
	}
	return sc.String(), nil
}

func normalizeKey(k string) string {
	if len(k) == 1 && k[0] >= 'a' && k[0] <= 'z' {
		return strings.ToUpper(k)
	}
	for _, name := range namedKeys {
		if strings.EqualFold(k, name) {
			return name
		}
	}
	return k
}

// Rules checks a shortcut for format and reserved-combination conflicts.
type Rules struct {
	reserved map[string]bool
}

// DefaultReserved lists combinations owned by the operating system or by
// terminal clipboard handling.
var DefaultReserved = []string{
	"Ctrl+C",
	"Ctrl+V",
	"Ctrl+X",
	"Ctrl+Z",
	"Alt+Tab",
	"Alt+F4",
	"Ctrl+Alt+Delete",
	"Meta+L",
	"Meta+Q",
	"Meta+Tab",
}

// NewRules builds rules from a list of reserved combinations. Entries that
// do not parse are ignored.
func NewRules(reserved []string) Rules {
	r := Rules{reserved: make(map[string]bool, len(reserved))}
	for _, s := range reserved {
		if c, err := Canonical(s); err == nil {
			r.reserved[c] = true
		}
	}
	return r
}

// Check returns nil for a canonical, unreserved shortcut.
func (r Rules) Check(s string) error {
	sc, err := Parse(s)
	if err != nil {
		return err
	}
	if sc.String() != s {
		return fmt.Errorf("%w: expected %q", ErrInvalid, sc.String())
	}
	if r.reserved[s] {
		return fmt.Errorf("%w: %s", ErrReserved, s)
	}
	return nil
}
