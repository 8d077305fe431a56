package tts

import "fmt"

// SwitchedMessage is the confirmation shown after the provider changes.
func SwitchedMessage(p Provider) string {
	return fmt.Sprintf("Voice switched to %s", p.Label())
}

// UnchangedMessage is shown when the requested provider is already active.
func UnchangedMessage(p Provider) string {
	return fmt.Sprintf("Already using %s", p.Label())
}

// UnavailableMessage is shown when a provider cannot be selected.
func UnavailableMessage(p Provider) string {
	return fmt.Sprintf("%s is currently unavailable", p.Label())
}
