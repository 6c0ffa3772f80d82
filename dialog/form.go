package dialog

import (
	"log/slog"
	"time"

	"micmd/model"

	tea "github.com/charmbracelet/bubbletea"
)

// DefaultBannerTTL is how long save and delete banners stay visible.
const DefaultBannerTTL = 5 * time.Second

// Store is the saved-command persistence the form depends on.
type Store interface {
	List() ([]model.SavedCommand, error)
	Create(c model.SavedCommand) error
	Update(c model.SavedCommand) error
	Delete(name string) error
	MarkUsed(name string) error
}

// Draft is the editable state of one open dialog. Result is written only by
// device calls.
type Draft struct {
	Method      string
	Params      string
	CommandName string
	Shortcut    string
	Result      string
}

// IsExisting reports whether name exactly matches a command in cmds.
func IsExisting(name string, cmds []model.SavedCommand) bool {
	_, ok := model.FindCommand(cmds, name)
	return ok
}

// Form owns the draft and the saved-command list, and resolves whether a
// save creates a new command or updates the one with the same name.
type Form struct {
	store  Store
	logger *slog.Logger
	ttl    time.Duration
	after  func(time.Duration, tea.Msg) tea.Cmd

	epoch    uint64
	draft    Draft
	selected string

	commands    []model.SavedCommand
	listErr     error
	listSeq     uint64
	listApplied uint64

	saveStatus   Status
	saveSeq      uint64
	deleteStatus Status
	deleteSeq    uint64

	banner    Banner
	bannerSeq uint64
}

func NewForm(store Store, logger *slog.Logger) *Form {
	return &Form{
		store:  store,
		logger: logger,
		ttl:    DefaultBannerTTL,
		after:  tick,
	}
}

func tick(d time.Duration, msg tea.Msg) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return msg })
}

func (f *Form) Draft() Draft {
	return f.draft
}

func (f *Form) SetMethod(v string)      { f.draft.Method = v }
func (f *Form) SetParams(v string)      { f.draft.Params = v }
func (f *Form) SetCommandName(v string) { f.draft.CommandName = v }

// Commands returns the last fetched list.
func (f *Form) Commands() []model.SavedCommand {
	return f.commands
}

// ListError is the error of the most recent failed refetch, if the list
// has not been fetched successfully since.
func (f *Form) ListError() error {
	return f.listErr
}

// ListPending reports whether a refetch is outstanding.
func (f *Form) ListPending() bool {
	return f.listSeq > f.listApplied
}

// Selected is the name of the loaded saved command, or "".
func (f *Form) Selected() string {
	return f.selected
}

// IsUpdate reports whether saving now would update an existing command.
// It only consults the last fetched list.
func (f *Form) IsUpdate() bool {
	return IsExisting(f.draft.CommandName, f.commands)
}

// CanSave reports whether Save would start a request.
func (f *Form) CanSave() bool {
	return f.draft.Method != "" && f.draft.CommandName != "" && f.saveStatus != StatusPending
}

func (f *Form) SaveStatus() Status   { return f.saveStatus }
func (f *Form) DeleteStatus() Status { return f.deleteStatus }

// Banner returns the visible banner, if any.
func (f *Form) Banner() (Banner, bool) {
	return f.banner, f.banner.Kind != BannerNone
}

// Refresh refetches the saved-command list. Responses older than one
// already applied are dropped.
func (f *Form) Refresh() tea.Cmd {
	f.listSeq++
	seq := f.listSeq
	store := f.store
	return func() tea.Msg {
		cmds, err := store.List()
		return listedMsg{seq: seq, commands: cmds, err: err}
	}
}

// Load copies the named saved command into the draft and selects it. An
// empty name only clears the selection.
func (f *Form) Load(name string) {
	if name == "" {
		f.selected = ""
		return
	}
	c, ok := model.FindCommand(f.commands, name)
	if !ok {
		return
	}
	f.draft.Method = c.Method
	f.draft.Params = c.Params
	f.draft.CommandName = c.Name
	f.draft.Shortcut = c.Shortcut
	f.selected = c.Name
}

// Save stores the draft under its command name, creating the command if no
// command with that exact name exists and updating it otherwise.
func (f *Form) Save() tea.Cmd {
	if !f.CanSave() {
		return nil
	}

	f.saveStatus = StatusPending
	f.saveSeq++
	epoch, seq := f.epoch, f.saveSeq
	store := f.store
	cmd := model.SavedCommand{
		Name:     f.draft.CommandName,
		Method:   f.draft.Method,
		Params:   f.draft.Params,
		Shortcut: f.draft.Shortcut,
	}

	return func() tea.Msg {
		created, err := saveCommand(store, cmd)
		return savedMsg{epoch: epoch, seq: seq, name: cmd.Name, created: created, err: err}
	}
}

func saveCommand(store Store, cmd model.SavedCommand) (created bool, err error) {
	cmds, err := store.List()
	if err != nil {
		return false, err
	}
	if IsExisting(cmd.Name, cmds) {
		return false, store.Update(cmd)
	}
	return true, store.Create(cmd)
}

// Delete removes the selected saved command.
func (f *Form) Delete() tea.Cmd {
	if f.selected == "" || f.deleteStatus == StatusPending {
		return nil
	}

	f.deleteStatus = StatusPending
	f.deleteSeq++
	epoch, seq, name := f.epoch, f.deleteSeq, f.selected
	store := f.store

	return func() tea.Msg {
		return deletedMsg{epoch: epoch, seq: seq, name: name, err: store.Delete(name)}
	}
}

// Update applies completed form requests.
func (f *Form) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case listedMsg:
		f.applyList(msg)
	case savedMsg:
		return f.applySave(msg)
	case deletedMsg:
		return f.applyDelete(msg)
	case bannerExpiredMsg:
		if msg.seq == f.bannerSeq {
			f.banner = Banner{}
		}
	}
	return nil
}

func (f *Form) applyList(msg listedMsg) {
	if msg.seq <= f.listApplied {
		return
	}
	f.listApplied = msg.seq
	if msg.err != nil {
		f.listErr = msg.err
		f.logger.Warn("failed to list saved commands", "error", msg.err)
		return
	}
	f.commands = msg.commands
	f.listErr = nil
}

func (f *Form) applySave(msg savedMsg) tea.Cmd {
	var refresh tea.Cmd
	if msg.err == nil {
		f.logger.Info("saved command", "name", msg.name, "created", msg.created)
		refresh = f.Refresh()
	} else {
		f.logger.Warn("failed to save command", "name", msg.name, "error", msg.err)
	}

	if msg.epoch != f.epoch || msg.seq != f.saveSeq {
		return refresh
	}

	if msg.err != nil {
		f.saveStatus = StatusError
		return f.showBanner(BannerError, msg.err.Error())
	}

	f.saveStatus = StatusSuccess
	text := updatedText
	if msg.created {
		text = savedText
		f.draft.CommandName = ""
		f.selected = ""
	}
	return tea.Batch(refresh, f.showBanner(BannerSuccess, text))
}

func (f *Form) applyDelete(msg deletedMsg) tea.Cmd {
	var refresh tea.Cmd
	if msg.err == nil {
		f.logger.Info("deleted command", "name", msg.name)
		refresh = f.Refresh()
	} else {
		f.logger.Warn("failed to delete command", "name", msg.name, "error", msg.err)
	}

	if msg.epoch != f.epoch || msg.seq != f.deleteSeq {
		return refresh
	}

	if msg.err != nil {
		f.deleteStatus = StatusError
		return f.showBanner(BannerError, msg.err.Error())
	}

	f.deleteStatus = StatusSuccess
	f.selected = ""
	f.draft.CommandName = ""
	return refresh
}

func (f *Form) showBanner(kind BannerKind, text string) tea.Cmd {
	f.bannerSeq++
	f.banner = Banner{Kind: kind, Text: text}
	return f.after(f.ttl, bannerExpiredMsg{seq: f.bannerSeq})
}

// reset returns the form to a blank, non-pending state. Requests still in
// flight are ignored when they complete, apart from list refetches.
func (f *Form) reset() {
	f.epoch++
	f.draft = Draft{}
	f.selected = ""
	f.saveStatus = StatusIdle
	f.deleteStatus = StatusIdle
	f.banner = Banner{}
	f.bannerSeq++
}
