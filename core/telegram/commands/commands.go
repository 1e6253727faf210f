package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Command is a slash command with its menu metadata.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// OperatorOnly restricts the command to configured operator accounts and hides it from the menu.
	OperatorOnly bool
	Hidden       bool
	Aliases      []string
}
