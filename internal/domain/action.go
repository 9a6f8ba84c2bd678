package domain

// Action trading signal emitted for ETH.
type Action string

const (
	ActionLong  Action = "long"
	ActionShort Action = "short"
	ActionNone  Action = "none"
)

// IsValid checks if the action is one of long, short or none.
func (a Action) IsValid() bool {
	switch a {
	case ActionLong, ActionShort, ActionNone:
		return true
	}
	return false
}

// String returns the string representation of the action
func (a Action) String() string {
	return string(a)
}

// ParseAction maps a free-form action string to an Action.
// Unknown values map to ActionNone.
func ParseAction(s string) Action {
	a := Action(s)
	if a.IsValid() {
		return a
	}
	return ActionNone
}
