package dialog

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"micmd/model"
	"micmd/shortcut"

	tea "github.com/charmbracelet/bubbletea"
)

type fakeStore struct {
	commands  []model.SavedCommand
	listErr   error
	createErr error
	updateErr error
	deleteErr error

	listCalls int
	creates   []model.SavedCommand
	updates   []model.SavedCommand
	deletes   []string
	used      []string
}

func (s *fakeStore) List() ([]model.SavedCommand, error) {
	s.listCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]model.SavedCommand(nil), s.commands...), nil
}

func (s *fakeStore) Create(c model.SavedCommand) error {
	s.creates = append(s.creates, c)
	if s.createErr != nil {
		return s.createErr
	}
	if _, ok := model.FindCommand(s.commands, c.Name); ok {
		return errors.New("exists")
	}
	s.commands = append(s.commands, c)
	return nil
}

func (s *fakeStore) Update(c model.SavedCommand) error {
	s.updates = append(s.updates, c)
	if s.updateErr != nil {
		return s.updateErr
	}
	for i := range s.commands {
		if s.commands[i].Name == c.Name {
			s.commands[i] = c
			return nil
		}
	}
	return errors.New("not found")
}

func (s *fakeStore) Delete(name string) error {
	s.deletes = append(s.deletes, name)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	for i := range s.commands {
		if s.commands[i].Name == name {
			s.commands = append(s.commands[:i], s.commands[i+1:]...)
			return nil
		}
	}
	return errors.New("not found")
}

func (s *fakeStore) MarkUsed(name string) error {
	s.used = append(s.used, name)
	return nil
}

type call struct {
	did, method, params string
}

type fakeInvoker struct {
	payload json.RawMessage
	err     error
	calls   []call
}

func (f *fakeInvoker) Invoke(ctx context.Context, did, method, params string) (json.RawMessage, error) {
	f.calls = append(f.calls, call{did, method, params})
	return f.payload, f.err
}

type fakeChecker struct {
	err   error
	calls []string
}

func (c *fakeChecker) CheckShortcut(sc, owner string) error {
	c.calls = append(c.calls, sc)
	return c.err
}

type harness struct {
	s       *Session
	store   *fakeStore
	invoker *fakeInvoker
	checker *fakeChecker
	timers  []tea.Msg
}

func newHarness(t *testing.T, existing ...model.SavedCommand) *harness {
	t.Helper()
	h := &harness{
		store:   &fakeStore{commands: existing},
		invoker: &fakeInvoker{payload: json.RawMessage(`{"result":["ok"]}`)},
		checker: &fakeChecker{},
	}
	h.s = New(h.store, h.invoker, h.checker, WithInvokeTimeout(time.Second))
	h.s.form.after = func(d time.Duration, msg tea.Msg) tea.Cmd {
		if d != DefaultBannerTTL {
			t.Errorf("banner scheduled for %v, want %v", d, DefaultBannerTTL)
		}
		h.timers = append(h.timers, msg)
		return nil
	}
	return h
}

// run executes cmd, feeds every resulting message back into the session and
// returns the messages the session did not consume itself.
func (h *harness) run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	var out []tea.Msg
	switch msg := cmd().(type) {
	case nil:
	case tea.BatchMsg:
		for _, c := range msg {
			out = append(out, h.run(c)...)
		}
	case ExecutedMsg:
		out = append(out, msg)
	default:
		out = append(out, h.run(h.s.Update(msg))...)
	}
	return out
}

func (h *harness) open(dev model.Device) {
	h.run(h.s.Open(dev))
}

// expireBanners delivers every scheduled banner expiry.
func (h *harness) expireBanners() {
	timers := h.timers
	h.timers = nil
	for _, m := range timers {
		h.s.Update(m)
	}
}

var lamp = model.Device{DID: "123", Name: "Desk Lamp"}

func keyDown(code string, mods shortcut.Modifier) shortcut.KeyEvent {
	return shortcut.KeyEvent{
		Code:  code,
		Ctrl:  mods.Has(shortcut.ModCtrl),
		Alt:   mods.Has(shortcut.ModAlt),
		Shift: mods.Has(shortcut.ModShift),
		Meta:  mods.Has(shortcut.ModMeta),
	}
}
