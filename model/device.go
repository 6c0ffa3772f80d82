package model

type Device struct {
	DID   string `yaml:"did"`
	Name  string `yaml:"name"`
	Model string `yaml:"model,omitempty"`
}

// Title is the label shown in lists and dialog headers.
func (d Device) Title() string {
	if d.Name == "" {
		return d.DID
	}
	return d.Name
}
