package shortcut

import "strings"

// Modifier is a set of held modifier keys.
type Modifier uint8

const (
	ModNone Modifier = 0

	ModCtrl Modifier = 1 << iota
	ModAlt
	ModShift
	ModMeta
)

// canonicalOrder is the order modifiers appear in a shortcut string.
var canonicalOrder = []struct {
	mod  Modifier
	name string
}{
	{ModCtrl, "Ctrl"},
	{ModAlt, "Alt"},
	{ModShift, "Shift"},
	{ModMeta, "Meta"},
}

// Has returns true if m contains mod.
func (m Modifier) Has(mod Modifier) bool {
	return m&mod != 0
}

// With returns m with mod added.
func (m Modifier) With(mod Modifier) Modifier {
	return m | mod
}

func (m Modifier) IsEmpty() bool {
	return m == ModNone
}

// Names returns the held modifiers in canonical order.
func (m Modifier) Names() []string {
	var names []string
	for _, c := range canonicalOrder {
		if m.Has(c.mod) {
			names = append(names, c.name)
		}
	}
	return names
}

// String returns "Ctrl+Alt" style text, or "" when nothing is held.
func (m Modifier) String() string {
	return strings.Join(m.Names(), "+")
}

// modifierNames maps lowercase modifier spellings accepted by Parse.
var modifierNames = map[string]Modifier{
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"alt":     ModAlt,
	"option":  ModAlt,
	"shift":   ModShift,
	"meta":    ModMeta,
	"cmd":     ModMeta,
	"command": ModMeta,
	"super":   ModMeta,
	"win":     ModMeta,
}

// ModifierFromName returns the modifier for name (case-insensitive), or ModNone.
func ModifierFromName(name string) Modifier {
	return modifierNames[strings.ToLower(strings.TrimSpace(name))]
}
