// Package conversation is the inquiry form as a pure state machine.
//
// The engine never talks to Telegram. Handle takes the user's session and one
// event and returns the messages to show. When the user confirms, the reply
// carries the finished inquiry for delivery. Callers must serialize calls per
// session.
package conversation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/heatbot/core/telegram/format"
	"github.com/m3rciful/heatbot/internal/inquiry"
	"github.com/m3rciful/heatbot/internal/routing"
)

// Catalog is the message catalog the engine renders with. *i18n.Catalog implements it.
type Catalog interface {
	T(lang, key string, kv ...string) string
	Match(code string) string
	Languages() []string
	Has(lang string) bool
	Default() string
}

// Session is one user's progress through the form.
type Session struct {
	Step    Step
	Inquiry inquiry.Inquiry
}

// EventKind tells what the user did.
type EventKind int

const (
	EventStart EventKind = iota + 1
	EventCancel
	EventText
	EventPhoto
	EventAction
)

// Event is one user input.
type Event struct {
	Kind   EventKind
	Text   string
	Photo  *inquiry.Sketch
	Action Action
	User   inquiry.Submitter
	// LanguageCode is the platform locale, used before the user picks a language.
	LanguageCode string
}

// Button is an inline button bound to an action.
type Button struct {
	Text   string
	Action Action
}

// Message is one outgoing message.
type Message struct {
	Text    string
	Buttons [][]Button
	// Edit replaces the message whose button was pressed instead of sending a new one.
	Edit bool
	// HTML selects Telegram's HTML parse mode.
	HTML bool
}

// Reply is the engine's answer to one event.
type Reply struct {
	Messages []Message
	// Answer is a short alert for the pressed button.
	Answer string
	// Submit holds the confirmed inquiry. The session is already reset.
	Submit *inquiry.Inquiry
	// Reached lists steps entered while handling the event.
	Reached []Step
	// Reprompted is set when input was rejected and the step asked again.
	Reprompted bool
	// Step is the session step after the event.
	Step Step
}

var (
	// ErrStaleAction means a button from an earlier step was pressed.
	ErrStaleAction = errors.New("conversation: action does not match current step")
	// ErrInvalidChoice means a button payload names an unknown language, country, service or option.
	ErrInvalidChoice = errors.New("conversation: invalid choice")
)

// Engine drives sessions through the form.
type Engine struct {
	table *routing.Table
	cat   Catalog
	now   func() time.Time
	newID func() uuid.UUID
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithIDs overrides inquiry id generation.
func WithIDs(newID func() uuid.UUID) Option { return func(e *Engine) { e.newID = newID } }

// NewEngine builds an engine over a validated routing table.
func NewEngine(table *routing.Table, cat Catalog, opts ...Option) *Engine {
	e := &Engine{table: table, cat: cat, now: time.Now, newID: uuid.New}
	for _, o := range opts {
		o(e)
	}
	return e
}

type replier struct {
	e     *Engine
	s     *Session
	reply Reply
}

func (r *replier) lang() string { return r.s.Inquiry.Language }

func (r *replier) t(key string, kv ...string) string { return r.e.cat.T(r.lang(), key, kv...) }

func (r *replier) say(text string, buttons ...[]Button) {
	r.reply.Messages = append(r.reply.Messages, Message{Text: text, Buttons: buttons})
}

func (r *replier) edit(text string) {
	r.reply.Messages = append(r.reply.Messages, Message{Text: text, Edit: true})
}

func (r *replier) enter(step Step) {
	r.s.Step = step
	r.reply.Reached = append(r.reply.Reached, step)
}

func (r *replier) reprompt(key string, buttons ...[]Button) {
	r.reply.Reprompted = true
	r.say(r.t(key), buttons...)
}

// Handle applies ev to s and returns what to show.
func (e *Engine) Handle(s *Session, ev Event) (Reply, error) {
	r := &replier{e: e, s: s}
	if ev.User.ID != 0 {
		s.Inquiry.Submitter = ev.User
	}
	if s.Inquiry.Language == "" || !e.cat.Has(s.Inquiry.Language) {
		s.Inquiry.Language = e.cat.Match(ev.LanguageCode)
	}

	var err error
	switch ev.Kind {
	case EventStart:
		e.start(r, ev)
	case EventCancel:
		e.cancel(r, false)
	case EventText:
		err = e.text(r, ev.Text)
	case EventPhoto:
		e.photo(r, ev.Photo)
	case EventAction:
		err = e.action(r, ev.Action)
	default:
		err = fmt.Errorf("conversation: unknown event kind %d", ev.Kind)
	}
	r.reply.Step = s.Step
	return r.reply, err
}

func (e *Engine) start(r *replier, ev Event) {
	*r.s = Session{Inquiry: inquiry.Inquiry{
		Language:  e.cat.Match(ev.LanguageCode),
		Submitter: ev.User,
	}}
	r.enter(StepLanguage)

	var buttons []Button
	for _, l := range e.cat.Languages() {
		buttons = append(buttons, Button{
			Text:   e.cat.T(l, "language_name"),
			Action: Action{Kind: ActionLanguage, Value: l},
		})
	}
	r.say(r.t("welcome"), chunk(buttons, 2)...)
}

func (e *Engine) cancel(r *replier, fromButton bool) {
	lang, user := r.s.Inquiry.Language, r.s.Inquiry.Submitter
	*r.s = Session{Inquiry: inquiry.Inquiry{Language: lang, Submitter: user}}
	if fromButton {
		r.edit(r.t("cancelled"))
		return
	}
	r.say(r.t("cancelled"))
}

func (e *Engine) text(r *replier, text string) error {
	s := r.s
	switch {
	case s.Step == StepIdle:
		r.say(r.t("unknown"))
		return nil
	case s.Step.expectsButton():
		r.reprompt("use_buttons")
		return nil
	}

	switch s.Step {
	case StepObjectType:
		v, err := inquiry.ParseObjectType(text)
		if err != nil {
			return r.rejected(err)
		}
		s.Inquiry.ObjectType = v
		r.enter(StepArea)
		r.say(r.t("ask_area"))
	case StepArea:
		v, err := inquiry.ParseArea(text)
		if err != nil {
			return r.rejected(err)
		}
		s.Inquiry.Area = v
		r.enter(StepFloors)
		r.say(r.t("ask_floors"))
	case StepFloors:
		v, err := inquiry.ParseFloors(text)
		if err != nil {
			return r.rejected(err)
		}
		s.Inquiry.Floors = v
		r.enter(StepSketch)
		r.say(r.t("ask_sketch"), r.skipRow())
	case StepSketch:
		if !e.isSkipWord(r.lang(), text) {
			r.reprompt("sketch_invalid", r.skipRow())
			return nil
		}
		s.Inquiry.Sketch = nil
		r.say(r.t("sketch_skipped"))
		r.askContact()
	case StepContact:
		phone, email, err := inquiry.ParseContact(text)
		if err != nil {
			return r.rejected(err)
		}
		s.Inquiry.Phone, s.Inquiry.Email = phone, email
		return e.summarize(r)
	}
	return nil
}

// rejected re-prompts for a FieldError. Any other error is returned.
func (r *replier) rejected(err error) error {
	var fe *inquiry.FieldError
	if !errors.As(err, &fe) {
		return err
	}
	if r.s.Step == StepSketch {
		r.reprompt(fe.Key, r.skipRow())
	} else {
		r.reprompt(fe.Key)
	}
	return nil
}

func (e *Engine) photo(r *replier, sketch *inquiry.Sketch) {
	s := r.s
	switch s.Step {
	case StepIdle:
		r.say(r.t("unknown"))
	case StepSketch:
		if sketch == nil || sketch.FileID == "" {
			r.reprompt("sketch_invalid", r.skipRow())
			return
		}
		cp := *sketch
		s.Inquiry.Sketch = &cp
		r.say(r.t("sketch_received"))
		r.askContact()
	case StepObjectType:
		r.reprompt("object_type_invalid")
	case StepArea:
		r.reprompt("area_invalid")
	case StepFloors:
		r.reprompt("floors_invalid")
	case StepContact:
		r.reprompt("contact_invalid")
	default:
		r.reprompt("use_buttons")
	}
}

func (e *Engine) action(r *replier, a Action) error {
	s := r.s
	stale := func() error {
		r.reply.Answer = r.t("stale_action")
		return fmt.Errorf("%w: %s at %s", ErrStaleAction, a.Kind, s.Step)
	}
	invalid := func() error {
		r.reply.Answer = r.t("stale_action")
		return fmt.Errorf("%w: %s=%q", ErrInvalidChoice, a.Kind, a.Value)
	}

	switch a.Kind {
	case ActionCancel:
		if s.Step == StepIdle {
			return stale()
		}
		e.cancel(r, true)
		return nil

	case ActionLanguage:
		if s.Step != StepLanguage {
			return stale()
		}
		if !e.cat.Has(a.Value) {
			return invalid()
		}
		s.Inquiry.Language = a.Value
		r.edit(r.t("language_set"))
		r.enter(StepCountry)
		r.say(r.t("choose_country"), e.countryButtons(r.lang())...)
		return nil

	case ActionCountry:
		if s.Step != StepCountry {
			return stale()
		}
		c, ok := routing.ParseCountry(a.Value)
		if !ok {
			return invalid()
		}
		s.Inquiry.Country = c
		r.edit(r.t("country_set", "country", r.t("country."+string(c))))
		r.enter(StepService)
		r.say(r.t("choose_service"), e.serviceButtons(r.lang())...)
		return nil

	case ActionService:
		if s.Step != StepService {
			return stale()
		}
		svc, ok := routing.ParseService(a.Value)
		if !ok {
			return invalid()
		}
		entry, err := e.table.Resolve(s.Inquiry.Country, svc)
		if err != nil {
			e.fail(r)
			return err
		}
		s.Inquiry.Service = svc
		r.edit(r.t("service_set", "service", r.t("service."+string(svc))))
		r.reply.Messages = append(r.reply.Messages, Message{
			Text: inquiry.Message{Sections: []inquiry.Section{
				inquiry.ContactSection(entry.Contact, r.t(entry.Contact.HeadingKey()), e.cat, r.lang()),
			}}.TelegramHTML(),
			HTML: true,
		})
		if len(entry.SubOptions) == 1 {
			only := entry.SubOptions[0]
			s.Inquiry.SubOption = only.ID
			r.say(r.t("option_auto", "option", r.t(only.LabelKey)))
			r.askObjectType()
			return nil
		}
		r.enter(StepOption)
		var buttons [][]Button
		for _, o := range entry.SubOptions {
			buttons = append(buttons, []Button{{Text: r.t(o.LabelKey), Action: Action{Kind: ActionOption, Value: o.ID}}})
		}
		r.say(r.t("choose_option"), buttons...)
		return nil

	case ActionOption:
		if s.Step != StepOption {
			return stale()
		}
		entry, err := e.table.Resolve(s.Inquiry.Country, s.Inquiry.Service)
		if err != nil {
			e.fail(r)
			return err
		}
		o, ok := entry.Option(a.Value)
		if !ok {
			return invalid()
		}
		s.Inquiry.SubOption = o.ID
		r.edit(r.t("option_set", "option", r.t(o.LabelKey)))
		r.askObjectType()
		return nil

	case ActionSkipSketch:
		if s.Step != StepSketch {
			return stale()
		}
		s.Inquiry.Sketch = nil
		r.edit(r.t("sketch_skipped"))
		r.askContact()
		return nil

	case ActionConfirm:
		if s.Step != StepConfirm {
			return stale()
		}
		submitted := s.Inquiry
		r.edit(r.t("sending"))
		r.reply.Submit = &submitted
		r.reply.Reached = append(r.reply.Reached, StepSent)
		*s = Session{Inquiry: inquiry.Inquiry{Language: submitted.Language, Submitter: submitted.Submitter}}
		return nil

	case ActionEdit:
		if s.Step != StepConfirm {
			return stale()
		}
		s.Inquiry.ResetDetails()
		r.edit(r.t("edit_restart"))
		r.askObjectType()
		return nil
	}
	return fmt.Errorf("%w: kind %d", ErrUnknownAction, a.Kind)
}

// fail resets the session after an internal error and tells the user.
func (e *Engine) fail(r *replier) {
	lang, user := r.s.Inquiry.Language, r.s.Inquiry.Submitter
	*r.s = Session{Inquiry: inquiry.Inquiry{Language: lang, Submitter: user}}
	r.say(r.t("internal_error"))
}

func (e *Engine) summarize(r *replier) error {
	q := &r.s.Inquiry
	entry, err := e.table.Resolve(q.Country, q.Service)
	if err != nil {
		e.fail(r)
		return err
	}
	q.ID = e.newID()
	q.CreatedAt = e.now()
	r.enter(StepConfirm)

	msg := inquiry.Compose(q, entry, e.cat)
	r.reply.Messages = append(r.reply.Messages, Message{
		Text: format.Bold(r.t("summary_intro")) + "\n\n" + msg.TelegramHTML(),
		HTML: true,
		Buttons: [][]Button{
			{
				{Text: r.t("button_confirm"), Action: Action{Kind: ActionConfirm}},
				{Text: r.t("button_edit"), Action: Action{Kind: ActionEdit}},
			},
			{{Text: r.t("button_cancel"), Action: Action{Kind: ActionCancel}}},
		},
	})
	return nil
}

func (r *replier) askObjectType() {
	r.enter(StepObjectType)
	r.say(r.t("ask_object_type"))
}

func (r *replier) askContact() {
	r.enter(StepContact)
	r.say(r.t("ask_contact"))
}

func (r *replier) skipRow() []Button {
	return []Button{{Text: r.t("button_skip"), Action: Action{Kind: ActionSkipSketch}}}
}

func (e *Engine) isSkipWord(lang, text string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return false
	}
	for _, l := range []string{lang, e.cat.Default()} {
		for _, w := range strings.Split(e.cat.T(l, "skip_words"), ",") {
			if strings.ToLower(strings.TrimSpace(w)) == text {
				return true
			}
		}
	}
	return false
}

var countryFlags = map[routing.Country]string{
	routing.Serbia:     "🇷🇸",
	routing.Montenegro: "🇲🇪",
}

func (e *Engine) countryButtons(lang string) [][]Button {
	rows := make([][]Button, 0, len(routing.Countries))
	for _, c := range routing.Countries {
		rows = append(rows, []Button{{
			Text:   strings.TrimSpace(countryFlags[c] + " " + e.cat.T(lang, "country."+string(c))),
			Action: Action{Kind: ActionCountry, Value: string(c)},
		}})
	}
	return rows
}

func (e *Engine) serviceButtons(lang string) [][]Button {
	rows := make([][]Button, 0, len(routing.Services))
	for _, s := range routing.Services {
		rows = append(rows, []Button{{
			Text:   e.cat.T(lang, "service."+string(s)),
			Action: Action{Kind: ActionService, Value: string(s)},
		}})
	}
	return rows
}

func chunk(buttons []Button, n int) [][]Button {
	var rows [][]Button
	for i := 0; i < len(buttons); i += n {
		rows = append(rows, buttons[i:min(i+n, len(buttons))])
	}
	return rows
}
