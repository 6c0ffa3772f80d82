// Package hotkey dispatches captured key combinations to the saved commands
// bound to them.
package hotkey

import (
	"fmt"
	"sort"

	"micmd/model"
	"micmd/shortcut"
)

// Registry maps canonical shortcuts to saved commands.
type Registry struct {
	bindings map[string]model.SavedCommand
}

// NewRegistry binds every command that has a shortcut. Commands whose
// shortcut does not parse, or collides with an earlier binding, are skipped
// and reported.
func NewRegistry(cmds []model.SavedCommand) (*Registry, []error) {
	r := &Registry{bindings: make(map[string]model.SavedCommand)}
	var errs []error
	for _, c := range cmds {
		if c.Shortcut == "" {
			continue
		}
		key, err := shortcut.Canonical(c.Shortcut)
		if err != nil {
			errs = append(errs, fmt.Errorf("command %q: %w", c.Name, err))
			continue
		}
		if prev, ok := r.bindings[key]; ok {
			errs = append(errs, fmt.Errorf("command %q: %s already bound to %q", c.Name, key, prev.Name))
			continue
		}
		r.bindings[key] = c
	}
	return r, errs
}

// Lookup finds the command bound to s, which may be in any accepted spelling.
func (r *Registry) Lookup(s string) (model.SavedCommand, bool) {
	key, err := shortcut.Canonical(s)
	if err != nil {
		return model.SavedCommand{}, false
	}
	c, ok := r.bindings[key]
	return c, ok
}

// Match finds the command bound to a key-down. Pure modifier presses never
// match.
func (r *Registry) Match(ev shortcut.KeyEvent) (model.SavedCommand, bool) {
	if _, ok := shortcut.ModifierForCode(ev.Code); ok {
		return model.SavedCommand{}, false
	}
	key := shortcut.Shortcut{Mods: ev.Mods(), Key: shortcut.KeyName(ev.Code)}.String()
	c, ok := r.bindings[key]
	return c, ok
}

// Shortcuts lists the bound combinations in sorted order.
func (r *Registry) Shortcuts() []string {
	keys := make([]string, 0, len(r.bindings))
	for k := range r.bindings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (r *Registry) Len() int {
	return len(r.bindings)
}
