package mail

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type captureTransport struct {
	sent []Message
	err  error
}

func (c *captureTransport) Deliver(_ context.Context, msg Message) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, msg)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDispatcher(t *testing.T, transport Transport) *Dispatcher {
	t.Helper()
	renderer, err := NewRenderer()
	require.NoError(t, err)
	return NewDispatcher(renderer, transport, "no-reply@example.com", "Satta King Team", discardLogger())
}

func TestRenderer_AllTemplates(t *testing.T) {
	renderer, err := NewRenderer()
	require.NoError(t, err)

	cases := map[string]map[string]any{
		TemplateOTP:           {"title": "Login Verification", "otp": "123456"},
		TemplateWelcome:       {"name": "Asha Rao", "dashboard_url": "https://app.example.com/dashboard"},
		TemplateResetPassword: {"name": "Asha Rao", "action_url": "https://app.example.com/reset-password/abc"},
	}

	for key, data := range cases {
		t.Run(key, func(t *testing.T) {
			html, text, err := renderer.Render(key, data)
			require.NoError(t, err)
			assert.Contains(t, html, "<!DOCTYPE html>")
			for _, v := range data {
				assert.Contains(t, text, v.(string))
			}
		})
	}
}

func TestRenderer_EscapesHTML(t *testing.T) {
	renderer, err := NewRenderer()
	require.NoError(t, err)

	html, _, err := renderer.Render(TemplateWelcome, map[string]any{
		"name":          "<script>x</script>",
		"dashboard_url": "https://app.example.com/dashboard",
	})
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
}

func TestRenderer_MissingDataFails(t *testing.T) {
	renderer, err := NewRenderer()
	require.NoError(t, err)

	_, _, err = renderer.Render(TemplateOTP, map[string]any{"title": "x"})
	assert.Error(t, err)

	_, _, err = renderer.Render("unknown", map[string]any{})
	assert.Error(t, err)
}

func TestDispatcher_Send(t *testing.T) {
	transport := &captureTransport{}
	d := newTestDispatcher(t, transport)

	err := d.Send(context.Background(), "asha@example.com", "Login OTP", TemplateOTP,
		map[string]any{"title": "Login Verification", "otp": "654321"})
	require.NoError(t, err)

	require.Len(t, transport.sent, 1)
	msg := transport.sent[0]
	assert.Equal(t, "asha@example.com", msg.To)
	assert.Equal(t, "Login OTP", msg.Subject)
	assert.Equal(t, "no-reply@example.com", msg.From)
	assert.Contains(t, msg.HTMLBody, "654321")
	assert.Contains(t, msg.TextBody, "654321")
}

func TestDispatcher_SendPropagatesTransportError(t *testing.T) {
	d := newTestDispatcher(t, &captureTransport{err: errors.New("relay down")})

	err := d.Send(context.Background(), "asha@example.com", "Login OTP", TemplateOTP,
		map[string]any{"title": "t", "otp": "111111"})
	assert.ErrorContains(t, err, "relay down")
}

func TestDispatcher_RejectsBadRecipient(t *testing.T) {
	transport := &captureTransport{}
	d := newTestDispatcher(t, transport)

	err := d.Send(context.Background(), "not an address", "s", TemplateOTP,
		map[string]any{"title": "t", "otp": "111111"})
	assert.Error(t, err)
	assert.Empty(t, transport.sent)
}

type fakeSES struct {
	input *ses.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{}, nil
}

func TestSESTransport_BuildsRequest(t *testing.T) {
	client := &fakeSES{}
	transport := &SESTransport{client: client}

	err := transport.Deliver(context.Background(), Message{
		From: "no-reply@example.com", FromName: "Team", To: "asha@example.com",
		Subject: "Hello", HTMLBody: "<p>hi</p>", TextBody: "hi",
	})
	require.NoError(t, err)

	require.NotNil(t, client.input)
	assert.Equal(t, `"Team" <no-reply@example.com>`, *client.input.Source)
	assert.Equal(t, []string{"asha@example.com"}, client.input.Destination.ToAddresses)
	assert.Equal(t, "Hello", *client.input.Message.Subject.Data)
	assert.Equal(t, "<p>hi</p>", *client.input.Message.Body.Html.Data)
}

type fakeSMTP struct {
	sent []*gomail.Message
}

func (f *fakeSMTP) DialAndSend(m ...*gomail.Message) error {
	f.sent = append(f.sent, m...)
	return nil
}

func TestSMTPTransport_BuildsMessage(t *testing.T) {
	dialer := &fakeSMTP{}
	transport := &SMTPTransport{dialer: dialer}

	err := transport.Deliver(context.Background(), Message{
		From: "no-reply@example.com", To: "asha@example.com",
		Subject: "Hello", HTMLBody: "<p>hi</p>", TextBody: "hi",
	})
	require.NoError(t, err)
	require.Len(t, dialer.sent, 1)

	var buf bytes.Buffer
	_, err = dialer.sent[0].WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()
	assert.Contains(t, raw, "Subject: Hello")
	assert.True(t, strings.Contains(raw, "To: asha@example.com"))
	assert.Contains(t, raw, "text/html")
}

func TestSMTPTransport_CancelledContext(t *testing.T) {
	dialer := &fakeSMTP{}
	transport := &SMTPTransport{dialer: dialer}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, transport.Deliver(ctx, Message{To: "a@b.c"}), context.Canceled)
	assert.Empty(t, dialer.sent)
}
