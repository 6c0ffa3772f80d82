package ui

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"micmd/db"
	"micmd/dialog"
	"micmd/model"
	"micmd/shortcut"

	"github.com/charmbracelet/bubbles/cursor"
	tea "github.com/charmbracelet/bubbletea"
)

var testDevices = []model.Device{
	{DID: "123", Name: "Lamp", Model: "yeelink.light.lamp1"},
	{DID: "456", Name: "Kitchen Plug", Model: "chuangmi.plug.v3"},
}

type invocation struct {
	did, method, params string
}

type fakeInvoker struct {
	payload json.RawMessage
	err     error
	calls   []invocation
}

func (f *fakeInvoker) Invoke(_ context.Context, did, method, params string) (json.RawMessage, error) {
	f.calls = append(f.calls, invocation{did, method, params})
	return f.payload, f.err
}

type testApp struct {
	*App
	store   *db.DB
	invoker *fakeInvoker
	copied  string
}

func newTestApp(t *testing.T, cmds ...model.SavedCommand) *testApp {
	t.Helper()

	store, err := db.New(filepath.Join(t.TempDir(), "commands.db"), shortcut.DefaultReserved)
	if err != nil {
		t.Fatalf("db.New() error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	for _, c := range cmds {
		if err := store.Create(c); err != nil {
			t.Fatalf("Create(%q) error: %v", c.Name, err)
		}
	}

	inv := &fakeInvoker{payload: json.RawMessage(`{"power":"on"}`)}
	session := dialog.New(store, inv, store, dialog.WithBannerTTL(time.Millisecond))
	app, err := NewApp(Config{Devices: testDevices, Store: store, Invoker: inv, Session: session})
	if err != nil {
		t.Fatalf("NewApp() error: %v", err)
	}

	ta := &testApp{App: app, store: store, invoker: inv}
	app.copyText = func(s string) error {
		ta.copied = s
		return nil
	}
	// Static cursors keep focus changes from scheduling blink timers.
	app.searchInput.Cursor.SetMode(cursor.CursorStatic)
	app.filterInput.Cursor.SetMode(cursor.CursorStatic)
	for i := range app.inputs {
		app.inputs[i].Cursor.SetMode(cursor.CursorStatic)
	}
	app.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return ta
}

// send delivers a key and runs every command it produces to completion.
func (ta *testApp) send(msgs ...tea.KeyMsg) {
	for _, m := range msgs {
		_, cmd := ta.Update(m)
		ta.pump(cmd)
	}
}

func (ta *testApp) pump(cmd tea.Cmd) {
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		msg := c()
		if batch, ok := msg.(tea.BatchMsg); ok {
			queue = append(queue, batch...)
			continue
		}
		if _, ok := msg.(tea.QuitMsg); ok {
			continue
		}
		_, next := ta.Update(msg)
		queue = append(queue, next)
	}
}

func keyOf(t tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: t}
}

func typed(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewApp_ListError(t *testing.T) {
	store, err := db.New(filepath.Join(t.TempDir(), "commands.db"), nil)
	if err != nil {
		t.Fatalf("db.New() error: %v", err)
	}
	store.Close()

	if _, err := NewApp(Config{Store: store}); err == nil {
		t.Error("NewApp() on a closed store succeeded")
	}
}

func TestFilterDevices(t *testing.T) {
	ta := newTestApp(t)

	ta.send(typed("plug"))
	if len(ta.filtered) != 1 || ta.filtered[0].DID != "456" {
		t.Fatalf("filtered = %+v, want the kitchen plug", ta.filtered)
	}

	ta.send(keyOf(tea.KeyEsc))
	if len(ta.filtered) != len(testDevices) {
		t.Errorf("filtered after esc = %d devices, want %d", len(ta.filtered), len(testDevices))
	}
}

func TestDialog_Execute(t *testing.T) {
	ta := newTestApp(t)

	ta.send(keyOf(tea.KeyEnter))
	if ta.mode != modeDialog {
		t.Fatal("enter did not open the dialog")
	}
	if dev, ok := ta.session.Device(); !ok || dev.DID != "123" {
		t.Fatalf("dialog device = %+v, %v", dev, ok)
	}

	ta.send(keyOf(tea.KeyTab), typed("get_prop"), keyOf(tea.KeyTab), typed(`["power"]`), keyOf(tea.KeyEnter))

	want := invocation{did: "123", method: "get_prop", params: `["power"]`}
	if len(ta.invoker.calls) != 1 || ta.invoker.calls[0] != want {
		t.Fatalf("invoker calls = %+v, want [%+v]", ta.invoker.calls, want)
	}
	if got := ta.session.Draft().Result; got != `{"power":"on"}` {
		t.Errorf("Result = %q", got)
	}
	if ta.status != "Executed on Lamp" {
		t.Errorf("status = %q", ta.status)
	}
	if !strings.Contains(ta.shownResult, "power") {
		t.Errorf("result pane = %q", ta.shownResult)
	}

	ta.send(keyOf(tea.KeyCtrlY))
	if ta.copied != `{"power":"on"}` {
		t.Errorf("copied = %q", ta.copied)
	}
}

func TestDialog_ExecuteFailure(t *testing.T) {
	ta := newTestApp(t)
	ta.invoker.err = errors.New("device offline")

	ta.send(keyOf(tea.KeyEnter), keyOf(tea.KeyTab), typed("toggle"), keyOf(tea.KeyEnter))

	if got := ta.session.Draft().Result; got != "device offline" {
		t.Errorf("Result = %q, want the error text", got)
	}
	if ta.session.InvokeStatus() != dialog.StatusError {
		t.Errorf("InvokeStatus() = %v", ta.session.InvokeStatus())
	}
	if ta.status != "" {
		t.Errorf("status = %q, want none after a failure", ta.status)
	}
}

func TestDialog_SaveWithShortcutThenDispatch(t *testing.T) {
	ta := newTestApp(t)

	// Method, skip params, name, then capture Ctrl+Alt+L.
	ta.send(
		keyOf(tea.KeyEnter),
		keyOf(tea.KeyTab), typed("toggle"),
		keyOf(tea.KeyTab), keyOf(tea.KeyTab), typed("Lamp toggle"),
		keyOf(tea.KeyTab),
		tea.KeyMsg{Type: tea.KeyCtrlL, Alt: true},
	)
	if got := ta.session.Draft().Shortcut; got != "Ctrl+Alt+L" {
		t.Fatalf("Shortcut = %q, want Ctrl+Alt+L", got)
	}

	ta.send(keyOf(tea.KeyCtrlS))
	saved, err := ta.store.Get("Lamp toggle")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if saved.Method != "toggle" || saved.Shortcut != "Ctrl+Alt+L" {
		t.Errorf("saved = %+v", saved)
	}

	ta.send(keyOf(tea.KeyEsc))
	if ta.mode != modeDevices || ta.session.Visible() {
		t.Fatal("esc did not close the dialog")
	}
	if _, ok := ta.registry.Lookup("Ctrl+Alt+L"); !ok {
		t.Fatal("registry was not rebuilt after closing the dialog")
	}

	ta.send(keyOf(tea.KeyDown), tea.KeyMsg{Type: tea.KeyCtrlL, Alt: true})

	want := invocation{did: "456", method: "toggle"}
	if len(ta.invoker.calls) != 1 || ta.invoker.calls[0] != want {
		t.Fatalf("invoker calls = %+v, want [%+v]", ta.invoker.calls, want)
	}
	if ta.status != "Ran Lamp toggle on Kitchen Plug" {
		t.Errorf("status = %q", ta.status)
	}
	if ta.running {
		t.Error("running still set after the call finished")
	}
	used, err := ta.store.Get("Lamp toggle")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if used.LastUsedAt == nil {
		t.Error("bound command was not marked used")
	}
}

func TestDialog_PickAndUpdate(t *testing.T) {
	ta := newTestApp(t,
		model.SavedCommand{Name: "Power", Method: "get_prop", Params: `["power"]`},
	)

	ta.send(keyOf(tea.KeyEnter), keyOf(tea.KeyDown))
	if ta.session.Selected() != "Power" {
		t.Fatalf("Selected() = %q, want Power", ta.session.Selected())
	}
	if ta.inputs[0].Value() != "get_prop" || ta.inputs[2].Value() != "Power" {
		t.Errorf("inputs not synced: method=%q name=%q", ta.inputs[0].Value(), ta.inputs[2].Value())
	}
	if !ta.session.IsUpdate() {
		t.Error("IsUpdate() = false for a loaded command")
	}

	// Params field: clear and retype.
	ta.send(keyOf(tea.KeyTab), keyOf(tea.KeyTab), keyOf(tea.KeyCtrlU), typed(`["bright"]`), keyOf(tea.KeyCtrlS))
	got, err := ta.store.Get("Power")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Params != `["bright"]` {
		t.Errorf("Params = %q, want updated", got.Params)
	}

	ta.send(keyOf(tea.KeyShiftTab), keyOf(tea.KeyShiftTab), keyOf(tea.KeyUp))
	if ta.session.Selected() != "" {
		t.Errorf("Selected() = %q after moving to the placeholder", ta.session.Selected())
	}
}

func TestDialog_DeleteSelected(t *testing.T) {
	ta := newTestApp(t, model.SavedCommand{Name: "Power", Method: "get_prop"})

	ta.send(keyOf(tea.KeyEnter), keyOf(tea.KeyDown), keyOf(tea.KeyCtrlD))

	if _, err := ta.store.Get("Power"); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
	if len(ta.session.Commands()) != 0 {
		t.Errorf("Commands() = %+v after delete", ta.session.Commands())
	}
}

func TestDialog_ShortcutRejectedOnLeave(t *testing.T) {
	ta := newTestApp(t)

	ta.send(keyOf(tea.KeyEnter), keyOf(tea.KeyShiftTab))
	if ta.focus != fieldShortcut || !ta.session.Capturing() {
		t.Fatalf("focus = %v capturing = %v, want shortcut capture", ta.focus, ta.session.Capturing())
	}

	ta.send(keyOf(tea.KeyCtrlZ), keyOf(tea.KeyShiftTab))
	if !strings.Contains(ta.session.ShortcutError(), "reserved") {
		t.Errorf("ShortcutError() = %q, want reserved", ta.session.ShortcutError())
	}

	ta.send(keyOf(tea.KeyTab), keyOf(tea.KeyBackspace))
	if ta.session.Draft().Shortcut != "" || ta.session.ShortcutError() != "" {
		t.Errorf("after clear: shortcut=%q error=%q", ta.session.Draft().Shortcut, ta.session.ShortcutError())
	}
	if !ta.session.Capturing() {
		t.Error("clearing should restart capture")
	}
}

func TestHotkey_IgnoresPlainTyping(t *testing.T) {
	ta := newTestApp(t, model.SavedCommand{Name: "Power", Method: "get_prop", Shortcut: "Ctrl+P"})

	ta.send(typed("p"))
	if len(ta.invoker.calls) != 0 {
		t.Errorf("plain key ran a command: %+v", ta.invoker.calls)
	}
	if ta.searchInput.Value() != "p" {
		t.Errorf("search = %q, want typed text", ta.searchInput.Value())
	}

	ta.send(keyOf(tea.KeyEsc), keyOf(tea.KeyCtrlP))
	if len(ta.invoker.calls) != 1 || ta.invoker.calls[0].method != "get_prop" {
		t.Errorf("ctrl+p calls = %+v", ta.invoker.calls)
	}
}

func TestHotkey_IgnoresShiftedTyping(t *testing.T) {
	ta := newTestApp(t, model.SavedCommand{Name: "Power", Method: "get_prop", Shortcut: "Shift+L"})

	ta.send(typed("L"))
	if len(ta.invoker.calls) != 0 {
		t.Errorf("shifted letter ran a command: %+v", ta.invoker.calls)
	}
	if ta.searchInput.Value() != "L" {
		t.Errorf("search = %q, want typed text", ta.searchInput.Value())
	}
}

func TestIsTyping(t *testing.T) {
	tests := []struct {
		ev   shortcut.KeyEvent
		want bool
	}{
		{shortcut.KeyEvent{Code: "KeyL"}, true},
		{shortcut.KeyEvent{Code: "KeyL", Shift: true}, true},
		{shortcut.KeyEvent{Code: "Digit1", Shift: true}, true},
		{shortcut.KeyEvent{Code: "Slash", Shift: true}, true},
		{shortcut.KeyEvent{Code: "F5", Shift: true}, false},
		{shortcut.KeyEvent{Code: "KeyL", Ctrl: true}, false},
		{shortcut.KeyEvent{Code: "KeyL", Alt: true, Shift: true}, false},
	}
	for _, tt := range tests {
		if got := isTyping(tt.ev); got != tt.want {
			t.Errorf("isTyping(%+v) = %v, want %v", tt.ev, got, tt.want)
		}
	}
}

func TestFormatPayload(t *testing.T) {
	if got := formatPayload(`{"a":1}`); got != "{\n  \"a\": 1\n}" {
		t.Errorf("formatPayload(json) = %q", got)
	}
	if got := formatPayload("device offline"); got != "device offline" {
		t.Errorf("formatPayload(text) = %q", got)
	}
}
