package conversation

import (
	"errors"
	"fmt"
)

// ActionKind is the closed set of button actions.
type ActionKind int

const (
	ActionLanguage ActionKind = iota + 1
	ActionCountry
	ActionService
	ActionOption
	ActionSkipSketch
	ActionConfirm
	ActionEdit
	ActionCancel
)

// ActionKinds lists every action. Callback handlers are registered from it.
var ActionKinds = []ActionKind{
	ActionLanguage, ActionCountry, ActionService, ActionOption,
	ActionSkipSketch, ActionConfirm, ActionEdit, ActionCancel,
}

// Unique is the telebot button unique that carries the action.
func (k ActionKind) Unique() string {
	switch k {
	case ActionLanguage:
		return "lang"
	case ActionCountry:
		return "country"
	case ActionService:
		return "service"
	case ActionOption:
		return "option"
	case ActionSkipSketch:
		return "skip"
	case ActionConfirm:
		return "confirm"
	case ActionEdit:
		return "edit"
	case ActionCancel:
		return "cancel"
	}
	return ""
}

func (k ActionKind) String() string { return k.Unique() }

// needsValue reports whether the action carries a payload.
func (k ActionKind) needsValue() bool {
	switch k {
	case ActionLanguage, ActionCountry, ActionService, ActionOption:
		return true
	}
	return false
}

// Action is a decoded button press.
type Action struct {
	Kind  ActionKind
	Value string
}

// ErrUnknownAction is returned for callback data outside the action set.
var ErrUnknownAction = errors.New("conversation: unknown action")

// DecodeAction turns a button unique and payload into an Action.
func DecodeAction(unique, payload string) (Action, error) {
	for _, k := range ActionKinds {
		if k.Unique() != unique {
			continue
		}
		if k.needsValue() && payload == "" {
			return Action{}, fmt.Errorf("%w: %s without value", ErrUnknownAction, unique)
		}
		return Action{Kind: k, Value: payload}, nil
	}
	return Action{}, fmt.Errorf("%w: %q", ErrUnknownAction, unique)
}
