package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/heatbot/core/telegram/commands"
)

func noop(tele.Context) error { return nil }

func TestRegisterCommandValidates(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "Start"}))

	assert.Error(t, reg.RegisterCommand("start", commands.Command{Handler: noop, Description: "x"}))
	assert.Error(t, reg.RegisterCommand("/nohandler", commands.Command{Description: "x"}))
	assert.Error(t, reg.RegisterCommand("/nodesc", commands.Command{Handler: noop}))
	assert.Error(t, reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "again"}))
	assert.Len(t, reg.Commands(), 1)
}

func TestListCommandsHidesOperatorAndHidden(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "Start"}))
	require.NoError(t, reg.RegisterCommand("/cancel", commands.Command{Handler: noop, Description: "Cancel"}))
	require.NoError(t, reg.RegisterCommand("/stats", commands.Command{Handler: noop, Description: "Stats", OperatorOnly: true}))
	require.NoError(t, reg.RegisterCommand("/debug", commands.Command{Handler: noop, Description: "Debug", Hidden: true}))

	visible := reg.ListCommands(true)
	require.Len(t, visible, 2)
	assert.Equal(t, "/cancel", visible[0].Text)
	assert.Equal(t, "/start", visible[1].Text)
	assert.Len(t, reg.ListCommands(false), 4)
}

func TestLookupCommandResolvesMentionsAndAliases(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCommand("/cancel", commands.Command{Handler: noop, Description: "Cancel", Aliases: []string{"stop"}}))

	name, _, ok := reg.LookupCommand("/cancel@heat_bot")
	require.True(t, ok)
	assert.Equal(t, "/cancel", name)

	name, _, ok = reg.LookupCommand("/stop")
	require.True(t, ok)
	assert.Equal(t, "/cancel", name)

	_, _, ok = reg.LookupCommand("/unknown")
	assert.False(t, ok)
}

func TestCallbacks(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCallback("country", noop))
	require.NoError(t, reg.RegisterCallback("lang", noop))
	assert.Error(t, reg.RegisterCallback("lang", noop))
	assert.Error(t, reg.RegisterCallback("", noop))

	_, ok := reg.GetCallback("country")
	assert.True(t, ok)
	_, ok = reg.GetCallback("missing")
	assert.False(t, ok)
	assert.Equal(t, []string{"country", "lang"}, reg.ListCallbacks())

	assert.NotNil(t, reg.CallbackNotFound())
	called := false
	reg.SetCallbackNotFound(func(tele.Context) error { called = true; return nil })
	require.NoError(t, reg.CallbackNotFound()(nil))
	assert.True(t, called)
}
