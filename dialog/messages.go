package dialog

import (
	"encoding/json"

	"micmd/model"
)

// ExecutedMsg is emitted after a device call succeeds.
type ExecutedMsg struct {
	Device  model.Device
	Payload json.RawMessage
}

type listedMsg struct {
	seq      uint64
	commands []model.SavedCommand
	err      error
}

type savedMsg struct {
	epoch   uint64
	seq     uint64
	name    string
	created bool
	err     error
}

type deletedMsg struct {
	epoch uint64
	seq   uint64
	name  string
	err   error
}

type bannerExpiredMsg struct {
	seq uint64
}

type invokedMsg struct {
	epoch   uint64
	seq     uint64
	payload json.RawMessage
	touched bool
	err     error
}

type shortcutCheckedMsg struct {
	epoch uint64
	value string
	err   error
}
