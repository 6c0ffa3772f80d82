package model

import "time"

// SavedCommand is a named device method call. Name is the identity key.
type SavedCommand struct {
	ID         int64
	Name       string
	Method     string
	Params     string // raw, possibly empty
	Shortcut   string // canonical shortcut, empty when unset
	CreatedAt  time.Time
	LastUsedAt *time.Time
}

// FindCommand returns the command whose name equals name exactly.
func FindCommand(cmds []SavedCommand, name string) (SavedCommand, bool) {
	if name == "" {
		return SavedCommand{}, false
	}
	for _, c := range cmds {
		if c.Name == name {
			return c, true
		}
	}
	return SavedCommand{}, false
}
