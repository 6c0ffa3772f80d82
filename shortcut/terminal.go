package shortcut

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// Terminals deliver whole combinations rather than physical key-downs, so
// pure modifier presses and Meta are never observed here.

var terminalNamed = map[string]string{
	"enter":     "Enter",
	"esc":       "Escape",
	"tab":       "Tab",
	"backspace": "Backspace",
	"delete":    "Delete",
	"insert":    "Insert",
	"home":      "Home",
	"end":       "End",
	"pgup":      "PageUp",
	"pgdown":    "PageDown",
	"up":        "ArrowUp",
	"down":      "ArrowDown",
	"left":      "ArrowLeft",
	"right":     "ArrowRight",
	" ":         "Space",
	"space":     "Space",
}

var terminalPunct = map[string]string{
	"-": "Minus",
	"=": "Equal",
	"[": "BracketLeft",
	"]": "BracketRight",
	`\`: "Backslash",
	";": "Semicolon",
	"'": "Quote",
	",": "Comma",
	".": "Period",
	"/": "Slash",
	"`": "Backquote",
}

// FromKeyMsg converts a bubbletea key message into a KeyEvent with a
// physical key code. It returns false for input that has no key code, such
// as pastes or multi-rune sequences.
func FromKeyMsg(msg tea.KeyMsg) (KeyEvent, bool) {
	if msg.Paste {
		return KeyEvent{}, false
	}

	var ev KeyEvent
	s := msg.String()
	for {
		switch {
		case strings.HasPrefix(s, "ctrl+") && len(s) > len("ctrl+"):
			ev.Ctrl = true
			s = s[len("ctrl+"):]
			continue
		case strings.HasPrefix(s, "alt+") && len(s) > len("alt+"):
			ev.Alt = true
			s = s[len("alt+"):]
			continue
		case strings.HasPrefix(s, "shift+") && len(s) > len("shift+"):
			ev.Shift = true
			s = s[len("shift+"):]
			continue
		}
		break
	}

	code, shift, ok := terminalCode(s)
	if !ok {
		return KeyEvent{}, false
	}
	ev.Code = code
	ev.Shift = ev.Shift || shift
	return ev, true
}

func terminalCode(s string) (code string, shift bool, ok bool) {
	if s == "" {
		return "", false, false
	}
	if c, found := terminalNamed[s]; found {
		return c, false, true
	}
	if fn := "F" + strings.TrimPrefix(s, "f"); s[0] == 'f' {
		if _, found := namedKeys[fn]; found {
			return fn, false, true
		}
	}
	if len(s) != 1 {
		return "", false, false
	}
	ch := s[0]
	switch {
	case ch >= 'a' && ch <= 'z':
		return "Key" + strings.ToUpper(s), false, true
	case ch >= 'A' && ch <= 'Z':
		return "Key" + s, true, true
	case ch >= '0' && ch <= '9':
		return "Digit" + s, false, true
	}
	if c, found := terminalPunct[s]; found {
		return c, false, true
	}
	return "", false, false
}
