package shortcut

// Checker is the external collaborator that decides whether a shortcut may
// be bound. owner names the saved command the shortcut would belong to.
type Checker interface {
	CheckShortcut(shortcut, owner string) error
}

// Validator gates calls to a Checker. The empty string means "unset" and is
// always valid.
type Validator struct {
	checker Checker
}

func NewValidator(checker Checker) *Validator {
	return &Validator{checker: checker}
}

// Validate returns the checker's verdict for a non-empty shortcut.
func (v *Validator) Validate(shortcut, owner string) error {
	if shortcut == "" || v.checker == nil {
		return nil
	}
	return v.checker.CheckShortcut(shortcut, owner)
}
