package feedback

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DominiquePaul/thisiscrispin/internal/apperr"
)

type fakeMailer struct {
	transport string
	err       error
	sent      []Mail
}

func (f *fakeMailer) Transport() string { return f.transport }

func (f *fakeMailer) Send(_ context.Context, m Mail) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m)
	return nil
}

type fakeNotifier struct {
	err  error
	seen []Submission
}

func (f *fakeNotifier) Notify(_ context.Context, s Submission) error {
	f.seen = append(f.seen, s)
	return f.err
}

type countingRecorder map[string]int

func (c countingRecorder) FeedbackDelivered(transport, outcome string) {
	c[transport+"/"+outcome]++
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(m Mailer, opts ...Option) *Service {
	opts = append([]Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return fixedNow }),
	}, opts...)
	return New(Config{To: "me@example.com", From: "blog@example.com"}, m, opts...)
}

func TestSubmit_Delivers(t *testing.T) {
	m := &fakeMailer{transport: TransportSMTP}
	rec := countingRecorder{}
	svc := newTestService(m, WithRecorder(rec))

	r, err := svc.Submit(context.Background(), "  great post \n", "Firefox")
	require.NoError(t, err)
	require.Equal(t, Receipt{Received: true, DeliveredToInbox: true, Transport: TransportSMTP}, r)

	require.Len(t, m.sent, 1)
	mail := m.sent[0]
	require.Equal(t, "blog@example.com", mail.From)
	require.Equal(t, []string{"me@example.com"}, mail.To)
	require.Equal(t, Subject, mail.Subject)
	require.True(t, strings.HasPrefix(mail.Text, "great post\n\n--\n"))
	require.Contains(t, mail.Text, "User agent: Firefox")
	require.Equal(t, 1, rec["smtp/ok"])
}

func TestSubmit_RequiresMessage(t *testing.T) {
	svc := newTestService(&fakeMailer{transport: TransportSMTP})
	for _, msg := range []string{"", "   ", "\n\t"} {
		_, err := svc.Submit(context.Background(), msg, "")
		require.ErrorIs(t, err, apperr.ErrValidation)
	}
}

func TestSubmit_LengthLimitCountsCharacters(t *testing.T) {
	m := &fakeMailer{transport: TransportSMTP}
	svc := newTestService(m)

	_, err := svc.Submit(context.Background(), strings.Repeat("é", MaxLength), "")
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), strings.Repeat("a", MaxLength+1), "")
	require.ErrorIs(t, err, ErrTooLong)
	require.Len(t, m.sent, 1)
}

func TestSubmit_WebhookFailureStillMails(t *testing.T) {
	m := &fakeMailer{transport: TransportSMTP}
	hook := &fakeNotifier{err: errors.New("hook down")}
	svc := newTestService(m, WithNotifier(hook))

	_, err := svc.Submit(context.Background(), "hi", "curl")
	require.NoError(t, err)
	require.Len(t, hook.seen, 1)
	require.Equal(t, Submission{CreatedAt: fixedNow, Message: "hi", UserAgent: "curl"}, hook.seen[0])
	require.Len(t, m.sent, 1)
}

func TestSubmit_Misconfigured(t *testing.T) {
	_, err := newTestService(nil).Submit(context.Background(), "hi", "")
	require.ErrorIs(t, err, apperr.ErrMisconfigured)

	noFrom := New(Config{To: "me@example.com"}, &fakeMailer{transport: TransportSMTP})
	_, err = noFrom.Submit(context.Background(), "hi", "")
	require.ErrorIs(t, err, apperr.ErrMisconfigured)
}

func TestSubmit_ResendFallsBackToOnboardingSender(t *testing.T) {
	m := &fakeMailer{transport: TransportResend}
	svc := New(Config{To: "me@example.com"}, m)

	_, err := svc.Submit(context.Background(), "hi", "")
	require.NoError(t, err)
	require.Equal(t, ResendFallbackFrom, m.sent[0].From)
}

func TestSubmit_SendFailure(t *testing.T) {
	rec := countingRecorder{}
	svc := newTestService(&fakeMailer{transport: TransportResend, err: errors.New("boom")}, WithRecorder(rec))

	_, err := svc.Submit(context.Background(), "hi", "")
	require.ErrorContains(t, err, "send feedback via resend")
	require.Equal(t, 1, rec["resend/error"])
}

func TestCompose_EscapesHTML(t *testing.T) {
	m := Compose(Submission{CreatedAt: fixedNow, Message: "<script>x</script>\nline two"}, "a@b.c", "d@e.f")

	require.NotContains(t, m.HTML, "<script>")
	require.Contains(t, m.HTML, "&lt;script&gt;x&lt;/script&gt;<br />line two")
	require.Contains(t, m.HTML, "<strong>User agent:</strong> unknown")
	require.Contains(t, m.Text, "Sent at: 2026-03-01T12:00:00Z")
}
