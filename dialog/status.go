package dialog

// Status tracks one kind of asynchronous operation.
type Status int

const (
	StatusIdle Status = iota
	StatusPending
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPending:
		return "pending"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	}
	return "unknown"
}

type BannerKind int

const (
	BannerNone BannerKind = iota
	BannerSuccess
	BannerError
)

// Banner is a transient persistence notice that clears itself after the
// configured TTL.
type Banner struct {
	Kind BannerKind
	Text string
}

const (
	savedText   = "Command saved successfully!"
	updatedText = "Command updated successfully!"
)
