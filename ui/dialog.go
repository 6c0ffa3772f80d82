package ui

import (
	"fmt"
	"strings"

	"micmd/dialog"
	"micmd/model"
	"micmd/shortcut"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"
)

type field int

const (
	fieldCommand field = iota
	fieldMethod
	fieldParams
	fieldName
	fieldShortcut
	fieldCount
)

var fieldLabels = [fieldCount]string{"Command", "Method", "Params", "Name", "Shortcut"}

const (
	pickerPlaceholder = "(new command)"
	pickerRows        = 5
)

func (a *App) openDialog(dev model.Device) (tea.Model, tea.Cmd) {
	a.mode = modeDialog
	a.filterInput.SetValue("")
	for i := range a.inputs {
		a.inputs[i].SetValue("")
	}
	a.shownResult = ""
	a.result.SetContent("")

	cmd := a.session.Open(dev)
	a.focus = fieldCommand
	return a, tea.Batch(cmd, a.focusInputs())
}

func (a *App) closeDialog() (tea.Model, tea.Cmd) {
	a.session.Close()
	a.mode = modeDevices
	return a, loadRegistry(a.store)
}

func (a *App) updateDialog(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit
	case key.Matches(msg, a.keys.Close):
		return a.closeDialog()
	case key.Matches(msg, a.keys.Next):
		return a, a.setFocus((a.focus + 1) % fieldCount)
	case key.Matches(msg, a.keys.Prev):
		return a, a.setFocus((a.focus + fieldCount - 1) % fieldCount)
	}

	if a.focus == fieldShortcut {
		if key.Matches(msg, a.keys.Unbind) {
			// The capture has to end before the field can be cleared.
			a.session.EndShortcutCapture()
			a.session.ClearShortcut()
			a.session.BeginShortcutCapture()
			return a, nil
		}
		if a.session.Capturing() {
			if ev, ok := shortcut.FromKeyMsg(msg); ok {
				a.session.KeyDown(ev)
			}
			return a, nil
		}
	}

	var cmd tea.Cmd
	switch {
	case key.Matches(msg, a.keys.Execute):
		cmd = a.session.Execute()
	case key.Matches(msg, a.keys.Save):
		cmd = a.session.Save()
	case key.Matches(msg, a.keys.Delete):
		cmd = a.session.Delete()
	case key.Matches(msg, a.keys.Copy):
		a.copyResult()
	case a.focus == fieldShortcut:
		// Committed; keys wait for a clear or a refocus.
	case a.focus == fieldCommand:
		cmd = a.updatePicker(msg)
	default:
		cmd = a.updateInput(msg)
	}
	a.syncInputs()
	return a, cmd
}

// setFocus moves between dialog fields. Leaving the shortcut field ends
// capture and validates what was captured.
func (a *App) setFocus(f field) tea.Cmd {
	var cmds []tea.Cmd
	if a.focus == fieldShortcut && f != fieldShortcut {
		cmds = append(cmds, a.session.EndShortcutCapture())
	}
	a.focus = f
	if f == fieldShortcut {
		a.session.BeginShortcutCapture()
	}
	cmds = append(cmds, a.focusInputs())
	return tea.Batch(cmds...)
}

func (a *App) focusInputs() tea.Cmd {
	a.filterInput.Blur()
	for i := range a.inputs {
		a.inputs[i].Blur()
	}
	switch a.focus {
	case fieldCommand:
		return a.filterInput.Focus()
	case fieldMethod, fieldParams, fieldName:
		return a.inputs[a.focus-fieldMethod].Focus()
	}
	return nil
}

func (a *App) updateInput(msg tea.KeyMsg) tea.Cmd {
	i := a.focus - fieldMethod
	var cmd tea.Cmd
	a.inputs[i], cmd = a.inputs[i].Update(msg)

	v := a.inputs[i].Value()
	switch a.focus {
	case fieldMethod:
		a.session.SetMethod(v)
	case fieldParams:
		a.session.SetParams(v)
	case fieldName:
		a.session.SetCommandName(v)
	}
	return cmd
}

// updatePicker moves the saved-command selection with up/down and sends
// everything else to the picker's filter.
func (a *App) updatePicker(msg tea.KeyMsg) tea.Cmd {
	names := a.pickerOptions()
	idx := indexOf(names, a.session.Selected())

	switch {
	case key.Matches(msg, a.keys.Up):
		if idx >= 0 {
			idx--
		}
		a.pick(names, idx)
		return nil
	case key.Matches(msg, a.keys.Down):
		if idx < len(names)-1 {
			idx++
		}
		a.pick(names, idx)
		return nil
	}

	var cmd tea.Cmd
	a.filterInput, cmd = a.filterInput.Update(msg)
	return cmd
}

func (a *App) pick(names []string, idx int) {
	if idx < 0 {
		a.session.LoadCommand("")
		return
	}
	a.session.LoadCommand(names[idx])
}

// pickerOptions lists saved command names, fuzzy-filtered and best match
// first when the filter is set.
func (a *App) pickerOptions() []string {
	cmds := a.session.Commands()
	names := make([]string, len(cmds))
	for i, c := range cmds {
		names[i] = c.Name
	}

	query := a.filterInput.Value()
	if query == "" {
		return names
	}
	matches := fuzzy.Find(query, names)
	filtered := make([]string, len(matches))
	for i, m := range matches {
		filtered[i] = m.Str
	}
	return filtered
}

func indexOf(names []string, name string) int {
	if name == "" {
		return -1
	}
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

// syncInputs copies the draft into the text inputs and result pane, since
// loading, saving and executing all change the draft outside the inputs.
func (a *App) syncInputs() {
	d := a.session.Draft()
	for i, v := range []string{d.Method, d.Params, d.CommandName} {
		if a.inputs[i].Value() != v {
			a.inputs[i].SetValue(v)
		}
	}
	if d.Result != a.shownResult {
		a.shownResult = d.Result
		a.result.SetContent(formatPayload(d.Result))
		a.result.GotoTop()
	}
}

func (a *App) copyResult() {
	r := a.session.Draft().Result
	if r == "" || r == dialog.LoadingText {
		return
	}
	if err := a.copyText(r); err != nil {
		a.err = "Copy failed: " + err.Error()
		return
	}
	a.status = "Result copied to clipboard"
}

func (a *App) renderDialog() string {
	var b strings.Builder

	dev, _ := a.session.Device()
	b.WriteString(labelStyle.UnsetWidth().Render("Execute on " + dev.Title()))
	b.WriteString(" " + didStyle.Render(dev.DID))
	b.WriteString("\n\n")

	width := max(a.width-24, 10)
	for f := fieldCommand; f < fieldCount; f++ {
		style := inputStyle
		if f == a.focus {
			style = focusedInputStyle
		}

		var content string
		switch f {
		case fieldCommand:
			content = a.renderPicker()
		case fieldMethod, fieldParams, fieldName:
			content = a.inputs[f-fieldMethod].View()
		case fieldShortcut:
			content = a.session.ShortcutDisplay()
			if a.session.Capturing() {
				style = capturingInputStyle
				if content == "" {
					content = mutedStyle.Render("Press a key combination...")
				}
			} else if content == "" {
				content = mutedStyle.Render("None")
			}
			if a.session.ShortcutDirty() {
				content += " " + mutedStyle.Render("(new)")
			}
		}

		b.WriteString(labelStyle.Render(fieldLabels[f]))
		b.WriteString(style.Width(width).Render(content))
		b.WriteString("\n")

		if f == fieldShortcut && a.session.ShortcutError() != "" {
			b.WriteString(errorStyle.Render(a.session.ShortcutError()))
			b.WriteString("\n")
		}
	}

	form := a.session.Form()
	if form.SaveStatus() == dialog.StatusPending || form.DeleteStatus() == dialog.StatusPending {
		b.WriteString(a.spinner.View() + " " + mutedStyle.Render("Saving..."))
		b.WriteString("\n")
	}
	if banner, ok := a.session.Banner(); ok {
		style := successStyle
		if banner.Kind == dialog.BannerError {
			style = errorStyle
		}
		b.WriteString(style.Render(banner.Text))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	title := "RESULT"
	if a.session.InvokeStatus() == dialog.StatusPending {
		title += " " + a.spinner.View()
	}
	b.WriteString(outputTitleStyle.Render(title))
	b.WriteString("\n")
	resultStyle := borderStyle
	if a.session.InvokeStatus() == dialog.StatusError {
		resultStyle = resultStyle.BorderForeground(danger)
	}
	b.WriteString(resultStyle.Width(a.width - 8).Render(a.result.View()))

	return dialogStyle.Render(b.String()) + "\n"
}

func (a *App) renderPicker() string {
	var b strings.Builder
	b.WriteString(a.filterInput.View())

	form := a.session.Form()
	switch {
	case form.ListPending():
		b.WriteString("\n" + a.spinner.View() + " " + mutedStyle.Render("Loading commands..."))
		return b.String()
	case form.ListError() != nil:
		b.WriteString("\n" + errorStyle.Render("Failed to load commands: "+form.ListError().Error()))
		return b.String()
	}

	names := a.pickerOptions()
	selected := indexOf(names, a.session.Selected())
	rows := append([]string{pickerPlaceholder}, names...)
	cursor := selected + 1

	start := 0
	if cursor >= pickerRows {
		start = cursor - pickerRows + 1
	}
	end := min(start+pickerRows, len(rows))
	for i := start; i < end; i++ {
		prefix, style := "  ", normalStyle
		if i == cursor {
			prefix, style = "▸ ", selectedStyle
		}
		line := prefix + rows[i]
		if i > 0 {
			if c, ok := model.FindCommand(a.session.Commands(), rows[i]); ok && c.Shortcut != "" {
				line += " " + didStyle.Render(c.Shortcut)
			}
		}
		b.WriteString("\n" + style.Render(line))
	}
	if n := len(rows) - end; n > 0 {
		b.WriteString("\n" + mutedStyle.Render(fmt.Sprintf("  %d more", n)))
	}
	return b.String()
}
