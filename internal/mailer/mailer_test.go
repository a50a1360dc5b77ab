package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/crm-backend/internal/config"
)

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"alice@example.com", "alice@example.com", false},
		{"  bob@example.com ", "bob@example.com", false},
		{`"Carol" <carol@example.com>`, "carol@example.com", false},
		{"", "", true},
		{"not-an-address", "", true},
	}
	for _, tt := range tests {
		got, err := ValidateAddress(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestFromHeader(t *testing.T) {
	assert.Equal(t, `"Acme CRM" <noreply@acme.io>`, fromHeader("Acme CRM", "noreply@acme.io"))
	assert.Equal(t, "noreply@acme.io", fromHeader("", "noreply@acme.io"))
}

func TestSMTPSender_Send(t *testing.T) {
	s := NewSMTPSender(config.MailConfig{
		SMTPHost: "smtp.acme.io", SMTPPort: 2525, SMTPUser: "u", SMTPPass: "p",
		FromName: "Acme CRM", FromEmail: "noreply@acme.io",
	})

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg string
	var gotAuth smtp.Auth
	s.sendMail = func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotFrom, gotTo, gotMsg = addr, auth, from, to, string(msg)
		return nil
	}

	err := s.Send(context.Background(), "alice@example.com", "Hi Alice", "<p>Hello</p>")
	require.NoError(t, err)
	assert.Equal(t, "smtp.acme.io:2525", gotAddr)
	assert.NotNil(t, gotAuth)
	assert.Equal(t, "noreply@acme.io", gotFrom)
	assert.Equal(t, []string{"alice@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "From: \"Acme CRM\" <noreply@acme.io>\r\n")
	assert.Contains(t, gotMsg, "Subject: Hi Alice\r\n")
	assert.Contains(t, gotMsg, "Content-Type: text/html; charset=UTF-8\r\n")
	assert.True(t, strings.HasSuffix(gotMsg, "\r\n\r\n<p>Hello</p>"))
}

func TestSMTPSender_PropagatesTransportError(t *testing.T) {
	s := NewSMTPSender(config.MailConfig{SMTPHost: "smtp.acme.io", SMTPPort: 25, FromEmail: "n@acme.io"})
	s.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("550 mailbox unavailable")
	}

	err := s.Send(context.Background(), "alice@example.com", "s", "b")
	assert.EqualError(t, err, "550 mailbox unavailable")
}

func TestSMTPSender_RejectsBadAddressAndCancelledContext(t *testing.T) {
	s := NewSMTPSender(config.MailConfig{SMTPHost: "h", SMTPPort: 25, FromEmail: "n@acme.io"})
	called := false
	s.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		called = true
		return nil
	}

	assert.Error(t, s.Send(context.Background(), "", "s", "b"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Send(ctx, "a@b.io", "s", "b"), context.Canceled)
	assert.False(t, called)
}

func TestBuildMessage_EncodesNonASCIISubject(t *testing.T) {
	s := &SMTPSender{FromEmail: "n@acme.io"}
	msg := s.buildMessage("a@b.io", "Olá", "x", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Contains(t, msg, "Subject: =?utf-8?q?Ol=C3=A1?=\r\n")
	assert.Contains(t, msg, "From: n@acme.io\r\n")
}

type fakeSES struct {
	input *ses.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("m-1")}, nil
}

func TestSESSender_Send(t *testing.T) {
	client := &fakeSES{}
	s := &SESSender{Client: client, From: `"Acme CRM" <noreply@acme.io>`}

	require.NoError(t, s.Send(context.Background(), "bob@example.com", "Hi Bob", "<p>Hey</p>"))
	require.NotNil(t, client.input)
	assert.Equal(t, `"Acme CRM" <noreply@acme.io>`, aws.ToString(client.input.Source))
	assert.Equal(t, []string{"bob@example.com"}, client.input.Destination.ToAddresses)
	assert.Equal(t, "Hi Bob", aws.ToString(client.input.Message.Subject.Data))
	assert.Equal(t, "<p>Hey</p>", aws.ToString(client.input.Message.Body.Html.Data))
}

func TestSESSender_WrapsError(t *testing.T) {
	boom := errors.New("throttled")
	s := &SESSender{Client: &fakeSES{err: boom}, From: "n@acme.io"}

	err := s.Send(context.Background(), "bob@example.com", "s", "b")
	assert.ErrorIs(t, err, boom)
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := New(context.Background(), config.MailConfig{Driver: "pigeon"})
	assert.Error(t, err)

	s, err := New(context.Background(), config.MailConfig{Driver: "smtp", SMTPHost: "h"})
	require.NoError(t, err)
	assert.IsType(t, &SMTPSender{}, s)
}
