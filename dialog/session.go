// Package dialog implements the execute-command dialog: a draft bound to one
// device, saved-command management, shortcut capture and device calls.
//
// A Session must be driven from a single goroutine, normally the bubbletea
// program loop. Collaborator calls run as tea.Cmds and report back through
// Update; completions that belong to an earlier open of the dialog, or that
// were superseded, are discarded.
package dialog

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"micmd/model"
	"micmd/shortcut"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	// LoadingText fills the result field while a call is in flight.
	LoadingText = "Loading..."

	DefaultInvokeTimeout = 30 * time.Second

	fallbackErrorText = "Error"
)

// Invoker calls a method on a device. params is raw and may be empty.
type Invoker interface {
	Invoke(ctx context.Context, did, method, params string) (json.RawMessage, error)
}

type Session struct {
	form      *Form
	capture   *shortcut.Capture
	validator *shortcut.Validator
	invoker   Invoker
	logger    *slog.Logger
	timeout   time.Duration

	device *model.Device
	epoch  uint64

	invokeStatus Status
	invokeSeq    uint64

	shortcutErr string
}

type Option func(*Session)

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.logger = l
		s.form.logger = l
	}
}

func WithBannerTTL(d time.Duration) Option {
	return func(s *Session) { s.form.ttl = d }
}

func WithInvokeTimeout(d time.Duration) Option {
	return func(s *Session) { s.timeout = d }
}

func New(store Store, invoker Invoker, checker shortcut.Checker, opts ...Option) *Session {
	logger := slog.New(slog.DiscardHandler)
	s := &Session{
		form:      NewForm(store, logger),
		capture:   shortcut.NewCapture(),
		validator: shortcut.NewValidator(checker),
		invoker:   invoker,
		logger:    logger,
		timeout:   DefaultInvokeTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Form exposes the saved-command controller.
func (s *Session) Form() *Form {
	return s.form
}

// Open binds the dialog to dev and starts from a blank state. The returned
// command refetches the saved-command list.
func (s *Session) Open(dev model.Device) tea.Cmd {
	s.reset()
	s.device = &dev
	s.logger.Debug("dialog opened", "did", dev.DID)
	return s.form.Refresh()
}

// Close unbinds the device and discards all dialog state.
func (s *Session) Close() {
	if s.device != nil {
		s.logger.Debug("dialog closed", "did", s.device.DID)
	}
	s.reset()
	s.device = nil
}

func (s *Session) reset() {
	s.epoch++
	s.form.reset()
	s.capture.Reset()
	s.invokeStatus = StatusIdle
	s.shortcutErr = ""
}

// Device returns the target device while the dialog is open.
func (s *Session) Device() (model.Device, bool) {
	if s.device == nil {
		return model.Device{}, false
	}
	return *s.device, true
}

func (s *Session) Visible() bool {
	return s.device != nil
}

func (s *Session) Draft() Draft                   { return s.form.Draft() }
func (s *Session) SetMethod(v string)             { s.form.SetMethod(v) }
func (s *Session) SetParams(v string)             { s.form.SetParams(v) }
func (s *Session) SetCommandName(v string)        { s.form.SetCommandName(v) }
func (s *Session) Commands() []model.SavedCommand { return s.form.Commands() }
func (s *Session) Selected() string               { return s.form.Selected() }
func (s *Session) IsUpdate() bool                 { return s.form.IsUpdate() }
func (s *Session) Banner() (Banner, bool)         { return s.form.Banner() }
func (s *Session) InvokeStatus() Status           { return s.invokeStatus }

// LoadCommand loads a saved command into the draft. Once the shortcut
// changes, the capture display and the previous warning no longer apply.
func (s *Session) LoadCommand(name string) {
	prev := s.form.draft.Shortcut
	s.form.Load(name)
	if s.form.draft.Shortcut != prev {
		s.shortcutErr = ""
		s.capture.Reset()
	}
}

func (s *Session) Save() tea.Cmd {
	return s.form.Save()
}

func (s *Session) Delete() tea.Cmd {
	return s.form.Delete()
}

// Execute calls the draft method on the target device.
func (s *Session) Execute() tea.Cmd {
	if s.invokeStatus == StatusPending || s.device == nil || s.device.DID == "" {
		return nil
	}
	d := s.form.draft
	if d.Method == "" {
		return nil
	}

	s.invokeStatus = StatusPending
	s.invokeSeq++
	s.form.draft.Result = LoadingText

	epoch, seq := s.epoch, s.invokeSeq
	did := s.device.DID
	touch := s.unchangedSelection()
	invoker, store, timeout, logger := s.invoker, s.form.store, s.timeout, s.logger

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		payload, err := invoker.Invoke(ctx, did, d.Method, d.Params)
		touched := false
		if err == nil && touch != "" {
			if err := store.MarkUsed(touch); err != nil {
				logger.Warn("failed to record command use", "name", touch, "error", err)
			} else {
				touched = true
			}
		}
		return invokedMsg{epoch: epoch, seq: seq, payload: payload, touched: touched, err: err}
	}
}

// unchangedSelection returns the selected command's name when the draft
// still calls exactly what was saved.
func (s *Session) unchangedSelection() string {
	c, ok := model.FindCommand(s.form.commands, s.form.selected)
	if !ok || c.Method != s.form.draft.Method || c.Params != s.form.draft.Params {
		return ""
	}
	return c.Name
}

// BeginShortcutCapture starts capturing key-downs into the shortcut field.
func (s *Session) BeginShortcutCapture() {
	s.capture.Focus(s.form.draft.Shortcut)
}

// KeyDown feeds a key-down to the capture session. It returns true when the
// key was consumed and its default action must be suppressed.
func (s *Session) KeyDown(ev shortcut.KeyEvent) bool {
	res := s.capture.KeyDown(ev)
	if res.Committed {
		s.form.draft.Shortcut = res.Value
	}
	return res.Handled
}

// EndShortcutCapture stops capturing and validates the stored shortcut.
func (s *Session) EndShortcutCapture() tea.Cmd {
	s.capture.Blur()

	value := s.form.draft.Shortcut
	if value == "" {
		s.shortcutErr = ""
		return nil
	}

	epoch, owner := s.epoch, s.form.draft.CommandName
	v := s.validator
	return func() tea.Msg {
		return shortcutCheckedMsg{epoch: epoch, value: value, err: v.Validate(value, owner)}
	}
}

// ClearShortcut unsets the draft shortcut. It is ignored while capturing.
func (s *Session) ClearShortcut() {
	if s.Capturing() {
		return
	}
	s.form.draft.Shortcut = ""
	s.shortcutErr = ""
	s.capture.Reset()
}

func (s *Session) Capturing() bool {
	return s.capture.State() == shortcut.StateCapturing
}

// ShortcutDisplay is the text the shortcut field shows.
func (s *Session) ShortcutDisplay() string {
	if s.capture.State() == shortcut.StateIdle {
		return s.form.draft.Shortcut
	}
	return s.capture.Display()
}

// ShortcutDirty reports whether a combination was captured in the current
// capture session.
func (s *Session) ShortcutDirty() bool {
	return s.capture.Dirty()
}

// ShortcutError is the validator's message for the current shortcut.
func (s *Session) ShortcutError() string {
	return s.shortcutErr
}

// Update applies completed requests. Messages it does not recognise are
// ignored.
func (s *Session) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case invokedMsg:
		return s.applyInvoke(msg)
	case shortcutCheckedMsg:
		s.applyShortcutCheck(msg)
		return nil
	}
	return s.form.Update(msg)
}

func (s *Session) applyInvoke(msg invokedMsg) tea.Cmd {
	var refresh tea.Cmd
	if msg.touched {
		refresh = s.form.Refresh()
	}
	if msg.epoch != s.epoch || msg.seq != s.invokeSeq || s.device == nil {
		return refresh
	}

	if msg.err != nil {
		s.invokeStatus = StatusError
		s.form.draft.Result = errorText(msg.err)
		s.logger.Warn("device call failed", "did", s.device.DID, "method", s.form.draft.Method, "error", msg.err)
		return refresh
	}

	s.invokeStatus = StatusSuccess
	payload := msg.payload
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	s.form.draft.Result = string(payload)
	s.logger.Info("device call succeeded", "did", s.device.DID, "method", s.form.draft.Method)

	executed := ExecutedMsg{Device: *s.device, Payload: payload}
	return tea.Batch(refresh, func() tea.Msg { return executed })
}

func (s *Session) applyShortcutCheck(msg shortcutCheckedMsg) {
	if msg.epoch != s.epoch || msg.value != s.form.draft.Shortcut {
		return
	}
	if msg.err != nil {
		s.shortcutErr = msg.err.Error()
		s.logger.Debug("shortcut rejected", "shortcut", msg.value, "error", msg.err)
		return
	}
	s.shortcutErr = ""
}

func errorText(err error) string {
	if err == nil || err.Error() == "" {
		return fallbackErrorText
	}
	return err.Error()
}
