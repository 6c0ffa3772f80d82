package ui

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"micmd/dialog"
	"micmd/hotkey"
	"micmd/model"
	"micmd/shortcut"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"
	"github.com/tidwall/pretty"
)

type mode int

const (
	modeDevices mode = iota
	modeDialog
)

// Config wires the App to its collaborators. Session must be built on the
// same Store and Invoker.
type Config struct {
	Devices       []model.Device
	Store         dialog.Store
	Invoker       dialog.Invoker
	Session       *dialog.Session
	Logger        *slog.Logger
	InvokeTimeout time.Duration
}

type App struct {
	session  *dialog.Session
	store    dialog.Store
	invoker  dialog.Invoker
	logger   *slog.Logger
	timeout  time.Duration
	keys     keyMap
	copyText func(string) error

	devices  []model.Device
	filtered []model.Device
	registry *hotkey.Registry

	// UI state
	mode    mode
	cursor  int
	width   int
	height  int
	err     string
	status  string
	running bool

	searchInput textinput.Model
	output      viewport.Model
	spinner     spinner.Model

	// Dialog
	focus       field
	filterInput textinput.Model
	inputs      [3]textinput.Model
	result      viewport.Model
	shownResult string
}

type registryMsg struct {
	commands []model.SavedCommand
	err      error
}

type hotkeyRanMsg struct {
	device  model.Device
	command string
	payload json.RawMessage
	err     error
}

func NewApp(cfg Config) (*App, error) {
	commands, err := cfg.Store.List()
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	timeout := cfg.InvokeTimeout
	if timeout <= 0 {
		timeout = dialog.DefaultInvokeTimeout
	}

	search := textinput.New()
	search.Placeholder = "Search devices..."
	search.Focus()

	filter := textinput.New()
	filter.Placeholder = "Filter saved commands..."

	var inputs [3]textinput.Model
	for i, placeholder := range []string{"Method (e.g. get_prop)", `Params (e.g. ["power"])`, "Command name"} {
		inputs[i] = textinput.New()
		inputs[i].Placeholder = placeholder
	}

	app := &App{
		session:     cfg.Session,
		store:       cfg.Store,
		invoker:     cfg.Invoker,
		logger:      logger,
		timeout:     timeout,
		keys:        defaultKeyMap(),
		copyText:    clipboard.WriteAll,
		devices:     cfg.Devices,
		filtered:    cfg.Devices,
		searchInput: search,
		output:      viewport.New(80, 10),
		spinner:     spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(warningStyle)),
		filterInput: filter,
		inputs:      inputs,
		result:      viewport.New(80, 8),
	}
	app.applyRegistry(commands)

	return app, nil
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, a.spinner.Tick)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width - 4   // account for app padding
		a.height = msg.Height - 2 // account for app padding
		a.output.Width = a.width - 4
		a.output.Height = a.height / 3
		a.result.Width = a.width - 8
		a.result.Height = a.height / 4
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case registryMsg:
		if msg.err != nil {
			a.err = "Failed to load shortcuts: " + msg.err.Error()
			return a, nil
		}
		a.applyRegistry(msg.commands)
		return a, nil

	case hotkeyRanMsg:
		a.running = false
		if msg.err != nil {
			a.err = fmt.Sprintf("%s on %s: %v", msg.command, msg.device.Title(), msg.err)
			return a, nil
		}
		a.status = fmt.Sprintf("Ran %s on %s", msg.command, msg.device.Title())
		a.showOutput(msg.payload)
		return a, nil

	case dialog.ExecutedMsg:
		a.status = "Executed on " + msg.Device.Title()
		a.showOutput(msg.Payload)
		return a, nil

	case tea.KeyMsg:
		a.err = ""
		if a.mode == modeDialog {
			return a.updateDialog(msg)
		}
		a.status = ""
		return a.updateDevices(msg)
	}

	// Completions of dialog requests, then cursor blinks.
	cmds := []tea.Cmd{a.session.Update(msg)}
	a.syncInputs()

	var cmd tea.Cmd
	a.searchInput, cmd = a.searchInput.Update(msg)
	cmds = append(cmds, cmd)
	a.filterInput, cmd = a.filterInput.Update(msg)
	cmds = append(cmds, cmd)
	for i := range a.inputs {
		a.inputs[i], cmd = a.inputs[i].Update(msg)
		cmds = append(cmds, cmd)
	}
	return a, tea.Batch(cmds...)
}

func (a *App) updateDevices(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit

	case key.Matches(msg, a.keys.Up):
		if a.cursor > 0 {
			a.cursor--
		}

	case key.Matches(msg, a.keys.Down):
		if a.cursor < len(a.filtered)-1 {
			a.cursor++
		}

	case key.Matches(msg, a.keys.Open):
		if len(a.filtered) > 0 {
			return a.openDialog(a.filtered[a.cursor])
		}

	case key.Matches(msg, a.keys.Clear):
		a.searchInput.SetValue("")
		a.filterDevices()

	default:
		if cmd, ok := a.dispatchHotkey(msg); ok {
			return a, cmd
		}
		var cmd tea.Cmd
		a.searchInput, cmd = a.searchInput.Update(msg)
		a.filterDevices()
		return a, cmd
	}

	return a, nil
}

// dispatchHotkey runs the saved command bound to msg on the highlighted
// device. Plain and shifted typing is left to the search box.
func (a *App) dispatchHotkey(msg tea.KeyMsg) (tea.Cmd, bool) {
	ev, ok := shortcut.FromKeyMsg(msg)
	if !ok || isTyping(ev) || len(a.filtered) == 0 {
		return nil, false
	}
	c, ok := a.registry.Match(ev)
	if !ok {
		return nil, false
	}
	if a.running {
		a.err = "A command is already running"
		return nil, true
	}

	dev := a.filtered[a.cursor]
	a.running = true
	a.status = fmt.Sprintf("Running %s on %s...", c.Name, dev.Title())
	a.logger.Info("running bound command", "name", c.Name, "shortcut", c.Shortcut, "did", dev.DID)

	invoker, store, timeout, logger := a.invoker, a.store, a.timeout, a.logger
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		payload, err := invoker.Invoke(ctx, dev.DID, c.Method, c.Params)
		if err == nil {
			if err := store.MarkUsed(c.Name); err != nil {
				logger.Warn("failed to record command use", "name", c.Name, "error", err)
			}
		}
		return hotkeyRanMsg{device: dev, command: c.Name, payload: payload, err: err}
	}, true
}

// isTyping reports whether ev would insert text: no modifiers, or only
// Shift on a printable key.
func isTyping(ev shortcut.KeyEvent) bool {
	mods := ev.Mods()
	if mods.IsEmpty() {
		return true
	}
	return mods == shortcut.ModShift && len([]rune(shortcut.KeyName(ev.Code))) == 1
}

func (a *App) applyRegistry(commands []model.SavedCommand) {
	registry, errs := hotkey.NewRegistry(commands)
	for _, err := range errs {
		a.logger.Warn("skipping shortcut", "error", err)
	}
	a.registry = registry
}

func loadRegistry(store dialog.Store) tea.Cmd {
	return func() tea.Msg {
		commands, err := store.List()
		return registryMsg{commands: commands, err: err}
	}
}

func (a *App) filterDevices() {
	query := a.searchInput.Value()
	if query == "" {
		a.filtered = a.devices
		a.clampCursor()
		return
	}

	var targets []string
	for _, d := range a.devices {
		targets = append(targets, d.Title()+" "+d.DID+" "+d.Model)
	}

	matches := fuzzy.Find(query, targets)
	a.filtered = make([]model.Device, len(matches))
	for i, m := range matches {
		a.filtered[i] = a.devices[m.Index]
	}
	a.clampCursor()
}

func (a *App) clampCursor() {
	if a.cursor >= len(a.filtered) {
		a.cursor = max(0, len(a.filtered)-1)
	}
}

func (a *App) showOutput(payload json.RawMessage) {
	a.output.SetContent(formatPayload(string(payload)))
	a.output.GotoTop()
}

// formatPayload indents JSON results. Anything else, such as an error
// message, is shown as is.
func formatPayload(s string) string {
	if s == "" || !json.Valid([]byte(s)) {
		return s
	}
	return strings.TrimRight(string(pretty.Pretty([]byte(s))), "\n")
}

func (a *App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("micmd"))
	b.WriteString("\n\n")

	if a.mode == modeDialog {
		b.WriteString(a.renderDialog())
	} else {
		b.WriteString(a.searchInput.View())
		b.WriteString("\n\n")

		listHeight := a.height - a.output.Height - 10
		if listHeight < 3 {
			listHeight = 3
		}
		b.WriteString(a.renderDevices(listHeight))

		b.WriteString("\n")
		title := "OUTPUT"
		if a.running {
			title += " " + a.spinner.View()
		}
		b.WriteString(outputTitleStyle.Render(title))
		b.WriteString("\n")
		b.WriteString(borderStyle.Width(a.width - 4).Render(a.output.View()))
		b.WriteString("\n")
	}

	if a.err != "" {
		b.WriteString(errorStyle.Render("Error: " + a.err))
		b.WriteString("\n")
	}
	if a.status != "" {
		b.WriteString(successStyle.Render(a.status))
		b.WriteString("\n")
	}

	b.WriteString(a.renderHelp())

	return appStyle.Render(b.String())
}

func (a *App) renderDevices(height int) string {
	if len(a.devices) == 0 {
		return mutedStyle.Render("No devices configured. Add them under devices: in the config file.\n")
	}
	if len(a.filtered) == 0 {
		return mutedStyle.Render("No devices match.\n")
	}

	var lines []string
	start := 0
	if a.cursor >= height {
		start = a.cursor - height + 1
	}
	end := min(start+height, len(a.filtered))

	for i := start; i < end; i++ {
		d := a.filtered[i]
		prefix := "  "
		style := normalStyle
		if i == a.cursor {
			prefix = "▸ "
			style = selectedStyle
		}

		detail := d.DID
		if d.Model != "" {
			detail += " · " + d.Model
		}
		lines = append(lines, style.Render(prefix+d.Title()), didStyle.Render("  "+truncate(detail, a.width-10)))
	}

	return strings.Join(lines, "\n") + "\n"
}

func (a *App) renderHelp() string {
	if a.mode == modeDialog {
		save := a.keys.Save
		if a.session.IsUpdate() {
			save.SetHelp("ctrl+s", "update")
		}
		save.SetEnabled(a.session.Form().CanSave())
		del := a.keys.Delete
		del.SetEnabled(a.session.Selected() != "")
		bindings := []key.Binding{a.keys.Execute, save, del, a.keys.Next, a.keys.Copy, a.keys.Close}
		switch a.focus {
		case fieldCommand:
			pick := a.keys.Down
			pick.SetHelp("↑/↓", "pick command")
			bindings = append(bindings, pick)
		case fieldShortcut:
			bindings = append(bindings, a.keys.Unbind)
		}
		return help(bindings...)
	}

	bound := ""
	if n := a.registry.Len(); n > 0 {
		bound = "  " + mutedStyle.Render(fmt.Sprintf("%d shortcuts bound", n))
	}
	return help(a.keys.Open, a.keys.Up, a.keys.Down, a.keys.Clear, a.keys.Quit) + bound
}

func truncate(s string, n int) string {
	if n < 4 || len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
