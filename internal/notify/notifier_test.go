package notify

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/heatbot/internal/i18n"
	"github.com/m3rciful/heatbot/internal/inquiry"
	"github.com/m3rciful/heatbot/internal/routing"
)

type fakeMailer struct {
	mu       sync.Mutex
	sent     []Mail
	attached []bool
	err      error
}

func (m *fakeMailer) Send(_ context.Context, mail Mail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, mail)
	for _, p := range mail.Attachments {
		_, err := os.Stat(p)
		m.attached = append(m.attached, err == nil)
	}
	return m.err
}

type sent struct {
	chatID int64
	text   string
	sketch *inquiry.Sketch
}

type fakeForwarder struct {
	mu        sync.Mutex
	msgs      []sent
	htmlErr   error
	sketchErr error
}

func (f *fakeForwarder) SendHTML(_ context.Context, chatID int64, html string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, sent{chatID: chatID, text: html})
	return f.htmlErr
}

func (f *fakeForwarder) SendSketch(_ context.Context, chatID int64, sketch inquiry.Sketch, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, sent{chatID: chatID, sketch: &sketch})
	return f.sketchErr
}

type fakeDownloader struct {
	paths []string
	err   error
}

func (d *fakeDownloader) Download(_ context.Context, _ string, dst string) error {
	d.paths = append(d.paths, dst)
	if d.err != nil {
		return d.err
	}
	return os.WriteFile(dst, []byte("jpeg"), 0o600)
}

type fixture struct {
	mailer *fakeMailer
	fwd    *fakeForwarder
	dl     *fakeDownloader
	n      *Notifier
}

func newFixture(t *testing.T, operators ...int64) *fixture {
	t.Helper()
	cat, err := i18n.Load("sr", "")
	require.NoError(t, err)
	f := &fixture{mailer: &fakeMailer{}, fwd: &fakeForwarder{}, dl: &fakeDownloader{}}
	f.n, err = New(Options{
		Mailer:           f.mailer,
		Forwarder:        f.fwd,
		Downloader:       f.dl,
		Routes:           routing.Default(),
		Catalog:          cat,
		Operators:        operators,
		OperatorLanguage: "en",
		BCC:              "operator@example.com",
		SubjectPrefix:    "[heatbot]",
		TempDir:          t.TempDir(),
	})
	require.NoError(t, err)
	return f
}

func sampleInquiry(withSketch bool) *inquiry.Inquiry {
	q := &inquiry.Inquiry{
		ID:         uuid.MustParse("9f1e2d3c-aaaa-4bbb-8ccc-000000000042"),
		Language:   "en",
		Country:    routing.Serbia,
		Service:    routing.Heating,
		SubOption:  routing.OptRadiators,
		ObjectType: "house",
		Area:       120,
		Floors:     2,
		Phone:      "+38160000000",
		Email:      "test@example.com",
		Submitter:  inquiry.Submitter{ID: 55, Username: "client"},
	}
	if withSketch {
		q.Sketch = &inquiry.Sketch{FileID: "AgADsketch"}
	}
	return q
}

func TestDeliverBothPaths(t *testing.T) {
	f := newFixture(t, 11, 22)
	res, err := f.n.Deliver(context.Background(), sampleInquiry(true))
	require.NoError(t, err)
	assert.NoError(t, res.EmailErr)
	assert.NoError(t, res.TelegramErr)
	assert.NoError(t, res.AttachmentErr)

	require.Len(t, f.mailer.sent, 1)
	mail := f.mailer.sent[0]
	assert.Equal(t, []string{"boskovicigor83@gmail.com"}, mail.To)
	assert.Equal(t, []string{"operator@example.com"}, mail.BCC)
	assert.Equal(t, "[heatbot] Inquiry: Heating installation, Serbia #9f1e2d3c", mail.Subject)
	for _, want := range []string{"Serbia", "Radiators", "house", "120", "+38160000000", "test@example.com", "@client",
		"Igor Bošković", "boskovicigor83@gmail.com"} {
		assert.Contains(t, mail.Text, want)
	}
	assert.Contains(t, mail.HTML, "<html>")
	assert.Equal(t, []bool{true}, f.mailer.attached, "attachment must exist while sending")

	require.Len(t, f.dl.paths, 1)
	_, statErr := os.Stat(f.dl.paths[0])
	assert.True(t, os.IsNotExist(statErr), "temp file must be removed")

	// text and photo for each operator
	require.Len(t, f.fwd.msgs, 4)
	assert.Equal(t, int64(11), f.fwd.msgs[0].chatID)
	assert.Contains(t, f.fwd.msgs[0].text, "Radiators")
	require.NotNil(t, f.fwd.msgs[1].sketch)
	assert.Equal(t, "AgADsketch", f.fwd.msgs[1].sketch.FileID)
	assert.Contains(t, f.fwd.msgs[2].text, "boskovicigor83@gmail.com")
}

func TestSketchIsForwardedWhenTextFails(t *testing.T) {
	f := newFixture(t, 11, 22)
	f.fwd.htmlErr = errors.New("message is too long")

	res, err := f.n.Deliver(context.Background(), sampleInquiry(true))
	require.NoError(t, err)
	assert.Error(t, res.TelegramErr)
	assert.NoError(t, res.EmailErr)

	var sketches []int64
	for _, m := range f.fwd.msgs {
		if m.sketch != nil {
			sketches = append(sketches, m.chatID)
		}
	}
	assert.Equal(t, []int64{11, 22}, sketches)
}

func TestDocumentSketchKeepsItsExtension(t *testing.T) {
	f := newFixture(t, 11)
	q := sampleInquiry(true)
	q.Sketch = &inquiry.Sketch{FileID: "BQADplan", FileName: "Plan.PNG", MIME: "image/png"}

	res, err := f.n.Deliver(context.Background(), q)
	require.NoError(t, err)
	assert.NoError(t, res.AttachmentErr)

	require.Len(t, f.dl.paths, 1)
	assert.Equal(t, ".png", filepath.Ext(f.dl.paths[0]))
	require.Len(t, f.fwd.msgs, 2)
	require.NotNil(t, f.fwd.msgs[1].sketch)
	assert.True(t, f.fwd.msgs[1].sketch.IsDocument())
	assert.Equal(t, "Plan.PNG", f.fwd.msgs[1].sketch.FileName)
}

func TestEmailFailureStillForwardsAndNotifiesOperators(t *testing.T) {
	f := newFixture(t, 11)
	f.mailer.err = errors.New("535 auth failed")

	res, err := f.n.Deliver(context.Background(), sampleInquiry(false))
	require.NoError(t, err)
	assert.Error(t, res.EmailErr)
	assert.NoError(t, res.TelegramErr)

	require.Len(t, f.fwd.msgs, 2)
	assert.Contains(t, f.fwd.msgs[1].text, "Email delivery failed for inquiry 9f1e2d3c")
}

func TestTelegramFailureDoesNotBlockEmail(t *testing.T) {
	f := newFixture(t, 11)
	f.fwd.htmlErr = errors.New("chat not found")

	res, err := f.n.Deliver(context.Background(), sampleInquiry(false))
	require.NoError(t, err)
	assert.NoError(t, res.EmailErr)
	assert.Error(t, res.TelegramErr)
	assert.Len(t, f.mailer.sent, 1)
}

func TestDownloadFailureSendsEmailWithoutAttachment(t *testing.T) {
	f := newFixture(t)
	f.dl.err = errors.New("file is too big")

	res, err := f.n.Deliver(context.Background(), sampleInquiry(true))
	require.NoError(t, err)
	assert.Error(t, res.AttachmentErr)
	assert.NoError(t, res.EmailErr)
	assert.NoError(t, res.TelegramErr)

	require.Len(t, f.mailer.sent, 1)
	assert.Empty(t, f.mailer.sent[0].Attachments)
	_, statErr := os.Stat(f.dl.paths[0])
	assert.True(t, os.IsNotExist(statErr))
}

func TestDeliverRejectsUnroutedInquiry(t *testing.T) {
	f := newFixture(t)
	q := sampleInquiry(false)
	q.Country = "croatia"
	_, err := f.n.Deliver(context.Background(), q)
	assert.ErrorIs(t, err, routing.ErrUnrouted)
	assert.Empty(t, f.mailer.sent)
}

func TestMontenegroHeatPumpGoesToInstalM(t *testing.T) {
	f := newFixture(t)
	q := sampleInquiry(false)
	q.Country, q.Service, q.SubOption = routing.Montenegro, routing.HeatPump, routing.OptAirWater
	_, err := f.n.Deliver(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, []string{"office@instalm.me"}, f.mailer.sent[0].To)
}
