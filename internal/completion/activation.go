package completion

// Activation records why a completion request started.
type Activation int

const (
	// ActivationNone is the zero value, used before a Context populates.
	ActivationNone Activation = iota
	// Interactive requests come from typing a symbol character.
	Interactive
	// UserRequested requests come from an explicit shortcut.
	UserRequested
	// Triggered requests come from a provider trigger character.
	Triggered
)

// String returns the activation name.
func (a Activation) String() string {
	switch a {
	case ActivationNone:
		return "none"
	case Interactive:
		return "interactive"
	case UserRequested:
		return "user-requested"
	case Triggered:
		return "triggered"
	default:
		return "unknown"
	}
}
