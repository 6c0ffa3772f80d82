package shortcut

// State is the phase of a capture session.
type State int

const (
	StateIdle State = iota
	StateCapturing
	StateCommitted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturing:
		return "capturing"
	case StateCommitted:
		return "committed"
	}
	return "unknown"
}

// KeyEvent is a raw key-down: the physical key code plus the modifier flags
// reported with the event.
type KeyEvent struct {
	Code  string
	Ctrl  bool
	Alt   bool
	Shift bool
	Meta  bool
}

// Mods returns the modifiers held according to the event's own flags.
func (e KeyEvent) Mods() Modifier {
	var m Modifier
	if e.Ctrl {
		m = m.With(ModCtrl)
	}
	if e.Alt {
		m = m.With(ModAlt)
	}
	if e.Shift {
		m = m.With(ModShift)
	}
	if e.Meta {
		m = m.With(ModMeta)
	}
	return m
}

// Result describes what a key-down did to the capture session.
type Result struct {
	// Handled means the key was consumed and its default action must be
	// suppressed.
	Handled bool
	// Committed is set when a non-modifier key finished the combination.
	Committed bool
	Value     string
}

// Capture turns key-downs into a canonical shortcut string while the
// shortcut input has focus.
type Capture struct {
	state   State
	pending Modifier
	display string
	stored  string
	dirty   bool
}

func NewCapture() *Capture {
	return &Capture{}
}

func (c *Capture) State() State {
	return c.state
}

// Display is the text the shortcut input should show.
func (c *Capture) Display() string {
	return c.display
}

// Pending returns the modifiers shown by the last modifier-only key-down.
func (c *Capture) Pending() Modifier {
	return c.pending
}

// Dirty reports whether a combination was committed since the last Focus.
func (c *Capture) Dirty() bool {
	return c.dirty
}

// Focus starts a capture session. stored is the draft's current shortcut,
// shown again if the session ends without a commit.
func (c *Capture) Focus(stored string) {
	c.state = StateCapturing
	c.pending = ModNone
	c.display = ""
	c.stored = stored
	c.dirty = false
}

// KeyDown feeds one key-down to the session.
func (c *Capture) KeyDown(ev KeyEvent) Result {
	if c.state != StateCapturing {
		return Result{}
	}

	if _, ok := ModifierForCode(ev.Code); ok {
		c.pending = ev.Mods()
		c.display = ""
		if !c.pending.IsEmpty() {
			c.display = c.pending.String() + "+"
		}
		return Result{Handled: true}
	}

	value := Shortcut{Mods: ev.Mods(), Key: KeyName(ev.Code)}.String()
	c.stored = value
	c.display = value
	c.pending = ModNone
	c.dirty = true
	c.state = StateCommitted
	return Result{Handled: true, Committed: true, Value: value}
}

// Blur ends the session and returns the value that should be validated.
// A half-built combination is discarded.
func (c *Capture) Blur() string {
	if c.state == StateCapturing {
		c.display = c.stored
	}
	c.state = StateIdle
	c.pending = ModNone
	return c.stored
}

// Reset drops all session state, including the displayed value.
func (c *Capture) Reset() {
	*c = Capture{}
}
