package conversation

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/heatbot/internal/i18n"
	"github.com/m3rciful/heatbot/internal/inquiry"
	"github.com/m3rciful/heatbot/internal/routing"
)

var (
	fixedID   = uuid.MustParse("0a1b2c3d-0000-4000-8000-000000000001")
	fixedTime = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	user      = inquiry.Submitter{ID: 1001, FirstName: "Marko", Username: "marko"}
)

type harness struct {
	t   *testing.T
	eng *Engine
	s   Session
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cat, err := i18n.Load("sr", "")
	require.NoError(t, err)
	eng := NewEngine(routing.Default(), cat,
		WithClock(func() time.Time { return fixedTime }),
		WithIDs(func() uuid.UUID { return fixedID }),
	)
	return &harness{t: t, eng: eng}
}

func (h *harness) send(ev Event) Reply {
	h.t.Helper()
	ev.User = user
	r, err := h.eng.Handle(&h.s, ev)
	require.NoError(h.t, err)
	return r
}

func (h *harness) start(code string) Reply {
	return h.send(Event{Kind: EventStart, LanguageCode: code})
}

func (h *harness) press(kind ActionKind, value string) Reply {
	return h.send(Event{Kind: EventAction, Action: Action{Kind: kind, Value: value}})
}

func (h *harness) text(s string) Reply {
	return h.send(Event{Kind: EventText, Text: s})
}

func lastText(r Reply) string {
	if len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[len(r.Messages)-1].Text
}

func TestFullInquiryScenario(t *testing.T) {
	h := newHarness(t)

	r := h.start("en-GB")
	assert.Equal(t, StepLanguage, r.Step)
	assert.Equal(t, "Welcome! Please choose your language:", lastText(r))

	h.press(ActionLanguage, "en")
	r = h.press(ActionCountry, "serbia")
	assert.True(t, r.Messages[0].Edit)
	assert.Equal(t, "Country: Serbia.", r.Messages[0].Text)

	r = h.press(ActionService, "heating")
	assert.Equal(t, StepOption, r.Step)
	require.Len(t, r.Messages, 3)
	assert.True(t, r.Messages[1].HTML)
	assert.Contains(t, r.Messages[1].Text, "boskovicigor83@gmail.com")
	assert.Len(t, r.Messages[2].Buttons, 5)

	h.press(ActionOption, routing.OptRadiators)
	h.text("house")
	h.text("120")
	r = h.text("2")
	assert.Equal(t, StepSketch, r.Step)
	require.Len(t, r.Messages[0].Buttons, 1)
	assert.Equal(t, ActionSkipSketch, r.Messages[0].Buttons[0][0].Action.Kind)

	r = h.text("skip")
	assert.Equal(t, StepContact, r.Step)

	r = h.text("+38160000000, test@example.com")
	assert.Equal(t, StepConfirm, r.Step)
	summary := lastText(r)
	for _, want := range []string{"Serbia", "Radiators", "house", "120", "2", "+38160000000", "test@example.com"} {
		assert.Contains(t, summary, want)
	}

	r = h.press(ActionConfirm, "")
	require.NotNil(t, r.Submit)
	q := r.Submit
	assert.Equal(t, fixedID, q.ID)
	assert.Equal(t, fixedTime, q.CreatedAt)
	assert.Equal(t, "en", q.Language)
	assert.Equal(t, routing.Serbia, q.Country)
	assert.Equal(t, routing.Heating, q.Service)
	assert.Equal(t, routing.OptRadiators, q.SubOption)
	assert.Equal(t, "house", q.ObjectType)
	assert.Equal(t, 120.0, q.Area)
	assert.Equal(t, 2, q.Floors)
	assert.Nil(t, q.Sketch)
	assert.Equal(t, "+38160000000", q.Phone)
	assert.Equal(t, "test@example.com", q.Email)
	assert.Equal(t, user, q.Submitter)
	assert.Contains(t, r.Reached, StepSent)

	assert.Equal(t, StepIdle, h.s.Step)
	assert.Empty(t, h.s.Inquiry.ObjectType)
}

func TestMontenegroHeatPumpSkipsOptionStep(t *testing.T) {
	h := newHarness(t)
	h.start("sr")
	h.press(ActionLanguage, "sr")
	h.press(ActionCountry, "montenegro")

	r := h.press(ActionService, "heat_pump")
	assert.Equal(t, StepObjectType, r.Step)
	assert.NotContains(t, r.Reached, StepOption)
	assert.Equal(t, routing.OptAirWater, h.s.Inquiry.SubOption)
	assert.Contains(t, r.Messages[1].Text, "office@instalm.me")
	assert.NotContains(t, r.Messages[1].Text, "microma")
}

func TestInvalidAreaRepromptsWithoutAdvancing(t *testing.T) {
	h := newHarness(t)
	h.start("en")
	h.press(ActionLanguage, "en")
	h.press(ActionCountry, "serbia")
	h.press(ActionService, "heat_pump")
	h.press(ActionOption, routing.OptWaterWater)
	h.text("office")

	first := h.text("abc")
	assert.True(t, first.Reprompted)
	assert.Equal(t, StepArea, first.Step)
	assert.Zero(t, h.s.Inquiry.Area)

	second := h.text("-5")
	assert.Equal(t, lastText(first), lastText(second))
	assert.Equal(t, StepArea, second.Step)

	ok := h.text("85,5")
	assert.Equal(t, StepFloors, ok.Step)
	assert.Equal(t, 85.5, h.s.Inquiry.Area)

	bad := h.text("1.5")
	assert.True(t, bad.Reprompted)
	assert.Zero(t, h.s.Inquiry.Floors)
	assert.Equal(t, StepFloors, bad.Step)
}

func reachSketch(h *harness) {
	h.start("en")
	h.press(ActionLanguage, "en")
	h.press(ActionCountry, "serbia")
	h.press(ActionService, "heating")
	h.press(ActionOption, routing.OptCompleteWithHeatPump)
	h.text("house")
	h.text("200")
	h.text("3")
}

func TestSketchStep(t *testing.T) {
	h := newHarness(t)
	reachSketch(h)

	r := h.text("here is my plan")
	assert.True(t, r.Reprompted)
	assert.Equal(t, StepSketch, r.Step)

	r = h.send(Event{Kind: EventPhoto, Photo: &inquiry.Sketch{FileID: "AgAD", UniqueID: "u1"}})
	assert.Equal(t, StepContact, r.Step)
	require.True(t, h.s.Inquiry.HasSketch())
	assert.Equal(t, "AgAD", h.s.Inquiry.Sketch.FileID)
}

func TestSkipSketchByButtonAndDefaultLanguageWord(t *testing.T) {
	h := newHarness(t)
	reachSketch(h)
	r := h.press(ActionSkipSketch, "")
	assert.True(t, r.Messages[0].Edit)
	assert.Equal(t, StepContact, r.Step)

	h = newHarness(t)
	reachSketch(h)
	r = h.text("Preskoči")
	assert.Equal(t, StepContact, r.Step)
}

func TestEditKeepsRouteAndRestartsDetails(t *testing.T) {
	h := newHarness(t)
	reachSketch(h)
	h.press(ActionSkipSketch, "")
	h.text("a@b.rs")

	r := h.press(ActionEdit, "")
	assert.Equal(t, StepObjectType, r.Step)
	assert.Equal(t, routing.OptCompleteWithHeatPump, h.s.Inquiry.SubOption)
	assert.Equal(t, routing.Serbia, h.s.Inquiry.Country)
	assert.Empty(t, h.s.Inquiry.Email)
	assert.Zero(t, h.s.Inquiry.Area)
	assert.Equal(t, uuid.Nil, h.s.Inquiry.ID)
}

func TestCancelAtEveryStepClearsInquiry(t *testing.T) {
	steps := []func(h *harness){
		func(h *harness) { h.start("en") },
		func(h *harness) { h.press(ActionLanguage, "en") },
		func(h *harness) { h.press(ActionCountry, "serbia") },
		func(h *harness) { h.press(ActionService, "heating") },
		func(h *harness) { h.press(ActionOption, routing.OptFancoils) },
		func(h *harness) { h.text("flat") },
		func(h *harness) { h.text("60") },
		func(h *harness) { h.text("1") },
		func(h *harness) { h.send(Event{Kind: EventPhoto, Photo: &inquiry.Sketch{FileID: "f"}}) },
		func(h *harness) { h.text("+381641234567") },
	}
	for n := 1; n <= len(steps); n++ {
		h := newHarness(t)
		for _, step := range steps[:n] {
			step(h)
		}
		r := h.send(Event{Kind: EventCancel})
		assert.Equal(t, StepIdle, r.Step, "after %d steps", n)
		assert.Equal(t, inquiry.Inquiry{Language: "en", Submitter: user}, h.s.Inquiry, "after %d steps", n)

		r = h.start("en")
		assert.Equal(t, StepLanguage, r.Step)
		assert.Equal(t, inquiry.Inquiry{Language: "en", Submitter: user}, h.s.Inquiry)
	}
}

func TestCancelButtonEditsSummary(t *testing.T) {
	h := newHarness(t)
	reachSketch(h)
	h.press(ActionSkipSketch, "")
	h.text("a@b.rs")
	r := h.press(ActionCancel, "")
	require.Len(t, r.Messages, 1)
	assert.True(t, r.Messages[0].Edit)
	assert.Equal(t, StepIdle, r.Step)
}

func TestStaleAndInvalidActions(t *testing.T) {
	h := newHarness(t)
	h.start("en")

	r, err := h.eng.Handle(&h.s, Event{Kind: EventAction, Action: Action{Kind: ActionConfirm}})
	assert.True(t, errors.Is(err, ErrStaleAction))
	assert.Equal(t, "This button is no longer active.", r.Answer)
	assert.Equal(t, StepLanguage, h.s.Step)

	_, err = h.eng.Handle(&h.s, Event{Kind: EventAction, Action: Action{Kind: ActionLanguage, Value: "it"}})
	assert.True(t, errors.Is(err, ErrInvalidChoice))
	assert.Equal(t, StepLanguage, h.s.Step)

	h.press(ActionLanguage, "en")
	_, err = h.eng.Handle(&h.s, Event{Kind: EventAction, Action: Action{Kind: ActionCountry, Value: "croatia"}})
	assert.True(t, errors.Is(err, ErrInvalidChoice))

	idle := Session{}
	_, err = h.eng.Handle(&idle, Event{Kind: EventAction, Action: Action{Kind: ActionCancel}})
	assert.True(t, errors.Is(err, ErrStaleAction))
}

func TestTextOutsideFormAndOnButtonSteps(t *testing.T) {
	h := newHarness(t)
	r := h.text("hello")
	assert.Equal(t, StepIdle, r.Step)
	assert.Equal(t, "Nisam razumeo. Pošaljite /start za novi upit.", lastText(r))

	h.start("de")
	r = h.text("Deutsch")
	assert.True(t, r.Reprompted)
	assert.Equal(t, StepLanguage, r.Step)
	assert.Equal(t, "Bitte verwenden Sie die Schaltflächen oben.", lastText(r))
}

func TestUnsupportedLanguageFallsBackToDefault(t *testing.T) {
	h := newHarness(t)
	r := h.start("fr-FR")
	assert.Equal(t, "sr", h.s.Inquiry.Language)
	assert.Equal(t, "Dobrodošli! Molimo izaberite jezik:", lastText(r))
	require.NotEmpty(t, r.Messages[0].Buttons)
}

func TestDecodeAction(t *testing.T) {
	a, err := DecodeAction("country", "serbia")
	require.NoError(t, err)
	assert.Equal(t, Action{Kind: ActionCountry, Value: "serbia"}, a)

	a, err = DecodeAction("confirm", "")
	require.NoError(t, err)
	assert.Equal(t, ActionConfirm, a.Kind)

	_, err = DecodeAction("country", "")
	assert.ErrorIs(t, err, ErrUnknownAction)
	_, err = DecodeAction("select_lang:en", "")
	assert.ErrorIs(t, err, ErrUnknownAction)

	for _, k := range ActionKinds {
		assert.NotEmpty(t, k.Unique())
	}
}

func TestStepNames(t *testing.T) {
	assert.Equal(t, "object_type", StepObjectType.String())
	assert.Equal(t, "sent", StepSent.String())
	assert.Equal(t, "unknown", Step(99).String())
}
