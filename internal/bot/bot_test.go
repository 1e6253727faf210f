package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/heatbot/core/telegram"
	"github.com/m3rciful/heatbot/internal/conversation"
	"github.com/m3rciful/heatbot/internal/i18n"
	"github.com/m3rciful/heatbot/internal/inquiry"
	"github.com/m3rciful/heatbot/internal/notify"
	"github.com/m3rciful/heatbot/internal/routing"
	"github.com/m3rciful/heatbot/internal/stats"
)

var inquiryID = uuid.MustParse("0a1b2c3d-0000-4000-8000-000000000001")

type outMsg struct {
	text   string
	edit   bool
	html   bool
	markup *tele.ReplyMarkup
}

type transcript struct {
	msgs    []outMsg
	answers []*tele.CallbackResponse
}

func (t *transcript) last() outMsg {
	if len(t.msgs) == 0 {
		return outMsg{}
	}
	return t.msgs[len(t.msgs)-1]
}

// fakeContext implements the parts of tele.Context the handlers use.
type fakeContext struct {
	tele.Context
	user  *tele.User
	text  string
	msg   *tele.Message
	cb    *tele.Callback
	store map[string]any
	out   *transcript
	// editErr fails every EditOrSend.
	editErr error
}

func (f *fakeContext) Sender() *tele.User       { return f.user }
func (f *fakeContext) Chat() *tele.Chat         { return &tele.Chat{ID: f.user.ID} }
func (f *fakeContext) Text() string             { return f.text }
func (f *fakeContext) Message() *tele.Message   { return f.msg }
func (f *fakeContext) Callback() *tele.Callback { return f.cb }
func (f *fakeContext) Update() tele.Update      { return tele.Update{ID: 1} }
func (f *fakeContext) Get(key string) any       { return f.store[key] }
func (f *fakeContext) Set(key string, v any)    { f.store[key] = v }

func (f *fakeContext) record(what any, edit bool, opts []any) error {
	m := outMsg{text: what.(string), edit: edit}
	for _, o := range opts {
		if so, ok := o.(*tele.SendOptions); ok {
			m.html = so.ParseMode == tele.ModeHTML
			m.markup = so.ReplyMarkup
		}
	}
	f.out.msgs = append(f.out.msgs, m)
	return nil
}

func (f *fakeContext) Send(what any, opts ...any) error       { return f.record(what, false, opts) }
func (f *fakeContext) EditOrSend(what any, opts ...any) error {
	if f.editErr != nil {
		return f.editErr
	}
	return f.record(what, true, opts)
}

func (f *fakeContext) Respond(resp ...*tele.CallbackResponse) error {
	if len(resp) > 0 {
		f.out.answers = append(f.out.answers, resp[0])
	}
	return nil
}

type fakeDeliverer struct {
	got []*inquiry.Inquiry
	res notify.Result
	err error
}

func (d *fakeDeliverer) Deliver(_ context.Context, q *inquiry.Inquiry) (notify.Result, error) {
	d.got = append(d.got, q)
	return d.res, d.err
}

type harness struct {
	t    *testing.T
	bot  *Bot
	del  *fakeDeliverer
	repo *stats.MemoryRepo
	out  *transcript
	user *tele.User
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cat, err := i18n.Load("sr", "")
	require.NoError(t, err)
	repo := stats.NewMemoryRepo()
	del := &fakeDeliverer{}
	b, err := New(Options{
		Engine: conversation.NewEngine(routing.Default(), cat,
			conversation.WithIDs(func() uuid.UUID { return inquiryID }),
		),
		Catalog:   cat,
		Deliverer: del,
		Funnel:    stats.NewFunnel(repo, FunnelOrder()),
	})
	require.NoError(t, err)
	return &harness{
		t:    t,
		bot:  b,
		del:  del,
		repo: repo,
		out:  &transcript{},
		user: &tele.User{ID: 4242, FirstName: "Ana", Username: "ana", LanguageCode: "en"},
	}
}

func (h *harness) ctx() *fakeContext {
	return &fakeContext{user: h.user, store: map[string]any{}, out: h.out}
}

func (h *harness) start() {
	require.NoError(h.t, h.bot.onStart(h.ctx()))
}

func (h *harness) say(text string) {
	c := h.ctx()
	c.text = text
	require.NoError(h.t, h.bot.OnText(c))
}

func (h *harness) press(kind conversation.ActionKind, value string) {
	c := h.ctx()
	c.cb = &tele.Callback{Unique: kind.Unique(), Data: value}
	require.NoError(h.t, h.bot.onAction(c))
}

func (h *harness) fillForm() {
	h.start()
	h.press(conversation.ActionLanguage, "en")
	h.press(conversation.ActionCountry, "serbia")
	h.press(conversation.ActionService, "heating")
	h.press(conversation.ActionOption, routing.OptRadiators)
	h.say("house")
	h.say("120")
	h.say("2")
	h.press(conversation.ActionSkipSketch, "")
	h.say("+38160000000, test@example.com")
}

func TestInquiryIsDeliveredAfterConfirm(t *testing.T) {
	h := newHarness(t)
	h.fillForm()
	summary := h.out.last()
	assert.True(t, summary.html)
	require.NotNil(t, summary.markup)
	require.Len(t, summary.markup.InlineKeyboard, 2)
	assert.Equal(t, "confirm", summary.markup.InlineKeyboard[0][0].Unique)

	h.press(conversation.ActionConfirm, "")
	require.Len(t, h.del.got, 1)
	q := h.del.got[0]
	assert.Equal(t, routing.Serbia, q.Country)
	assert.Equal(t, routing.OptRadiators, q.SubOption)
	assert.Equal(t, int64(4242), q.Submitter.ID)
	assert.Equal(t, "ana", q.Submitter.Username)
	assert.Contains(t, h.out.last().text, "0a1b2c3d")
	assert.Contains(t, h.out.last().text, "has been sent")

	counts, err := h.repo.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, counts["language"])
	assert.Equal(t, 1, counts["confirm"])
	assert.Equal(t, 1, counts["sent"])
}

func TestEmailFailureShowsFailureMessage(t *testing.T) {
	h := newHarness(t)
	h.del.res = notify.Result{EmailErr: errors.New("smtp down")}
	h.fillForm()
	h.press(conversation.ActionConfirm, "")

	require.Len(t, h.del.got, 1)
	assert.Contains(t, h.out.last().text, "could not send")
}

func TestConfirmDeliversEvenWhenEditFails(t *testing.T) {
	h := newHarness(t)
	h.fillForm()

	c := h.ctx()
	c.cb = &tele.Callback{Unique: conversation.ActionConfirm.Unique()}
	c.editErr = errors.New("telegram: bad request")
	require.NoError(t, h.bot.onAction(c))

	require.Len(t, h.del.got, 1)
	assert.Equal(t, inquiryID, h.del.got[0].ID)
	assert.Contains(t, h.out.last().text, "has been sent")

	h.press(conversation.ActionConfirm, "")
	assert.Len(t, h.del.got, 1)
}

func TestTelegramFailureStillReportsSuccess(t *testing.T) {
	h := newHarness(t)
	h.del.res = notify.Result{TelegramErr: errors.New("chat not found")}
	h.fillForm()
	h.press(conversation.ActionConfirm, "")
	assert.Contains(t, h.out.last().text, "has been sent")
}

func TestPhotoBecomesSketch(t *testing.T) {
	h := newHarness(t)
	h.start()
	h.press(conversation.ActionLanguage, "en")
	h.press(conversation.ActionCountry, "serbia")
	h.press(conversation.ActionService, "heat_pump")
	h.press(conversation.ActionOption, routing.OptAirWater)
	h.say("flat")
	h.say("80")
	h.say("1")

	c := h.ctx()
	c.msg = &tele.Message{Photo: &tele.Photo{File: tele.File{FileID: "AgAD-big", UniqueID: "u1"}}}
	require.NoError(t, h.bot.OnPhoto(c))
	h.say("+381 60 1234567")
	h.press(conversation.ActionConfirm, "")

	require.Len(t, h.del.got, 1)
	require.NotNil(t, h.del.got[0].Sketch)
	assert.Equal(t, "AgAD-big", h.del.got[0].Sketch.FileID)
}

func TestImageFileBecomesSketch(t *testing.T) {
	h := newHarness(t)
	h.start()
	h.press(conversation.ActionLanguage, "en")
	h.press(conversation.ActionCountry, "montenegro")
	h.press(conversation.ActionService, "heating")
	h.press(conversation.ActionOption, routing.OptUnderfloor)
	h.say("house")
	h.say("150")
	h.say("2")

	c := h.ctx()
	c.msg = &tele.Message{Document: &tele.Document{
		File:     tele.File{FileID: "BQAD-plan", UniqueID: "d1"},
		FileName: "floor-plan.png",
		MIME:     "image/PNG",
	}}
	require.NoError(t, h.bot.OnDocument(c))
	assert.NotContains(t, h.out.last().text, "only accept")
	h.say("+382 67 111 222")
	h.press(conversation.ActionConfirm, "")

	require.Len(t, h.del.got, 1)
	sk := h.del.got[0].Sketch
	require.NotNil(t, sk)
	assert.Equal(t, "BQAD-plan", sk.FileID)
	assert.True(t, sk.IsDocument())
	assert.Equal(t, "image/png", sk.MIME)
}

func TestNonImageFileIsUnsupported(t *testing.T) {
	h := newHarness(t)
	h.start()
	h.press(conversation.ActionLanguage, "en")

	c := h.ctx()
	c.msg = &tele.Message{Document: &tele.Document{File: tele.File{FileID: "BQAD-pdf"}, MIME: "application/pdf"}}
	require.NoError(t, h.bot.OnDocument(c))
	assert.Equal(t, "I can only accept text and images here.", h.out.last().text)
	assert.Empty(t, h.del.got)
}

func TestStaleButtonIsAnsweredWithAlert(t *testing.T) {
	h := newHarness(t)
	h.start()
	h.press(conversation.ActionConfirm, "")

	require.NotEmpty(t, h.out.answers)
	a := h.out.answers[len(h.out.answers)-1]
	assert.True(t, a.ShowAlert)
	assert.NotEmpty(t, a.Text)
	assert.Empty(t, h.del.got)
}

func TestUndecodableButtonIsAnswered(t *testing.T) {
	h := newHarness(t)
	c := h.ctx()
	c.cb = &tele.Callback{Unique: "lang", Data: ""}
	require.NoError(t, h.bot.onAction(c))
	require.Len(t, h.out.answers, 1)
	assert.True(t, h.out.answers[0].ShowAlert)
}

func TestButtonsCarryActionPayload(t *testing.T) {
	h := newHarness(t)
	h.start()
	markup := h.out.last().markup
	require.NotNil(t, markup)
	btn := markup.InlineKeyboard[0][0]
	assert.Equal(t, "lang", btn.Unique)
	assert.NotEmpty(t, btn.Data)
}

func TestCancelCommandEndsForm(t *testing.T) {
	h := newHarness(t)
	h.start()
	h.press(conversation.ActionLanguage, "en")
	require.NoError(t, h.bot.onCancel(h.ctx()))
	assert.False(t, h.out.last().edit)

	h.say("hello")
	assert.Contains(t, h.out.last().text, "/start")
}

func TestStatsRendersChart(t *testing.T) {
	h := newHarness(t)
	h.fillForm()
	require.NoError(t, h.bot.onStats(h.ctx()))
	last := h.out.last()
	assert.True(t, last.html)
	assert.Contains(t, last.text, "<pre>")
	assert.Contains(t, last.text, "Funnel")
}

func TestFallbacksUseUserLanguage(t *testing.T) {
	h := newHarness(t)
	h.start()
	h.press(conversation.ActionLanguage, "en")

	require.NoError(t, h.bot.UnsupportedMedia()(h.ctx()))
	assert.Equal(t, "I can only accept text and images here.", h.out.last().text)

	require.NoError(t, h.bot.UnknownCommand()(h.ctx()))
	assert.Contains(t, h.out.last().text, "did not understand")
}

func TestRegisterAddsCommandsAndCallbacks(t *testing.T) {
	h := newHarness(t)
	reg := tg.NewRegistry()
	require.NoError(t, h.bot.Register(reg))

	visible := reg.ListCommands(true)
	require.Len(t, visible, 2)
	assert.Equal(t, "/cancel", visible[0].Text)
	assert.Equal(t, "/start", visible[1].Text)
	_, stats, ok := reg.LookupCommand("/stats")
	require.True(t, ok)
	assert.True(t, stats.OperatorOnly)
	assert.Len(t, reg.ListCallbacks(), len(conversation.ActionKinds))
}

func TestFunnelOrderFollowsForm(t *testing.T) {
	order := FunnelOrder()
	assert.Equal(t, "language", order[0])
	assert.Equal(t, "sent", order[len(order)-1])
}
