package middleware

import (
	tele "gopkg.in/telebot.v4"
)

const (
	keyMessages = "messages"
	keyKeyboard = "kb"
)

// countingContext counts outgoing messages so handler summaries can report them.
type countingContext struct{ tele.Context }

func (m countingContext) count(opts []any, err error) error {
	if err != nil {
		return err
	}
	n, _ := m.Get(keyMessages).(int)
	m.Set(keyMessages, n+1)
	if hasKeyboard(opts) {
		m.Set(keyKeyboard, true)
	}
	return nil
}

func hasKeyboard(opts []any) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return true
			}
		case *tele.ReplyMarkup:
			if v != nil {
				return true
			}
		}
	}
	return false
}

func (m countingContext) Send(what any, opts ...any) error {
	return m.count(opts, m.Context.Send(what, opts...))
}

func (m countingContext) Reply(what any, opts ...any) error {
	return m.count(opts, m.Context.Reply(what, opts...))
}

func (m countingContext) Edit(what any, opts ...any) error {
	return m.count(opts, m.Context.Edit(what, opts...))
}

func (m countingContext) EditOrSend(what any, opts ...any) error {
	return m.count(opts, m.Context.EditOrSend(what, opts...))
}

// MessageMetricsMiddleware wraps the context so sends, replies and edits are counted.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		c.Set(keyMessages, 0)
		c.Set(keyKeyboard, false)
		return next(countingContext{Context: c})
	}
}

// GetCounters returns how many messages the handler sent and whether any carried a keyboard.
func GetCounters(c tele.Context) (int, bool) {
	msgs, _ := c.Get(keyMessages).(int)
	kb, _ := c.Get(keyKeyboard).(bool)
	return msgs, kb
}
