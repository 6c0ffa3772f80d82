package shortcut

import "strings"

// modifierCodes maps physical modifier key codes to the modifier they represent.
// Left and right variants collapse to one modifier.
var modifierCodes = map[string]Modifier{
	"ControlLeft":  ModCtrl,
	"ControlRight": ModCtrl,
	"Control":      ModCtrl,
	"AltLeft":      ModAlt,
	"AltRight":     ModAlt,
	"Alt":          ModAlt,
	"ShiftLeft":    ModShift,
	"ShiftRight":   ModShift,
	"Shift":        ModShift,
	"MetaLeft":     ModMeta,
	"MetaRight":    ModMeta,
	"Meta":         ModMeta,
	"OSLeft":       ModMeta,
	"OSRight":      ModMeta,
}

var namedKeys = map[string]string{
	"Space":      "Space",
	"Enter":      "Enter",
	"Escape":     "Escape",
	"Backspace":  "Backspace",
	"Tab":        "Tab",
	"Delete":     "Delete",
	"Insert":     "Insert",
	"Home":       "Home",
	"End":        "End",
	"PageUp":     "PageUp",
	"PageDown":   "PageDown",
	"ArrowUp":    "Up",
	"ArrowDown":  "Down",
	"ArrowLeft":  "Left",
	"ArrowRight": "Right",
	"F1":         "F1",
	"F2":         "F2",
	"F3":         "F3",
	"F4":         "F4",
	"F5":         "F5",
	"F6":         "F6",
	"F7":         "F7",
	"F8":         "F8",
	"F9":         "F9",
	"F10":        "F10",
	"F11":        "F11",
	"F12":        "F12",
}

var punctuationKeys = map[string]string{
	"Minus":        "-",
	"Equal":        "=",
	"BracketLeft":  "[",
	"BracketRight": "]",
	"Backslash":    `\`,
	"Semicolon":    ";",
	"Quote":        "'",
	"Comma":        ",",
	"Period":       ".",
	"Slash":        "/",
	"Backquote":    "`",
}

// ModifierForCode reports whether code is a pure modifier key and which one.
func ModifierForCode(code string) (Modifier, bool) {
	m, ok := modifierCodes[code]
	return m, ok
}

// KeyName maps a physical key code to the key name used in shortcut strings.
// Unknown codes are returned unchanged.
//
//	Digit8  -> 8
//	KeyS    -> S
//	Numpad8 -> Numpad8
//	Minus   -> -
func KeyName(code string) string {
	if rest, ok := strings.CutPrefix(code, "Digit"); ok && isSingle(rest, '0', '9') {
		return rest
	}
	if rest, ok := strings.CutPrefix(code, "Key"); ok && isSingle(rest, 'A', 'Z') {
		return rest
	}
	// Numpad codes keep their prefix so Numpad8 never collides with Digit8.
	if strings.HasPrefix(code, "Numpad") {
		return code
	}
	if name, ok := namedKeys[code]; ok {
		return name
	}
	if sym, ok := punctuationKeys[code]; ok {
		return sym
	}
	return code
}

func isSingle(s string, lo, hi byte) bool {
	return len(s) == 1 && s[0] >= lo && s[0] <= hi
}
