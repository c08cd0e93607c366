package mailer_test

import (
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"printshop/pkg/mailer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMTPSender_Send(t *testing.T) {
	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotMsg  []byte
		gotAuth smtp.Auth
	)
	sender := mailer.NewSMTPSender(mailer.Config{
		Host:     "smtp.example.com",
		Username: "mailer",
		Password: "secret",
		From:     "shop@example.com",
	}, func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotFrom, gotTo, gotMsg = addr, a, from, to, msg
		return nil
	})

	err := sender.Send(mailer.Message{To: "ada@example.com", Subject: "Order Confirmation", HTML: "<p>Hi</p>\n<p>Thanks</p>"})
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.NotNil(t, gotAuth)
	assert.Equal(t, "shop@example.com", gotFrom)
	assert.Equal(t, []string{"ada@example.com"}, gotTo)

	raw := string(gotMsg)
	assert.Contains(t, raw, "To: ada@example.com\r\n")
	assert.Contains(t, raw, "Subject: Order Confirmation\r\n")
	assert.Contains(t, raw, "Content-Type: text/html")
	assert.True(t, strings.HasSuffix(raw, "\r\n\r\n<p>Hi</p>\r\n<p>Thanks</p>"))
}

func TestSMTPSender_Errors(t *testing.T) {
	unconfigured := mailer.NewSMTPSender(mailer.Config{}, nil)
	assert.ErrorIs(t, unconfigured.Send(mailer.Message{To: "a@example.com"}), mailer.ErrNotConfigured)

	failing := mailer.NewSMTPSender(mailer.Config{Host: "localhost", Port: 2525}, func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	})
	err := failing.Send(mailer.Message{To: "a@example.com"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "a@example.com")

	assert.Error(t, failing.Send(mailer.Message{}))
}

func TestBuildEncodesNonASCIISubject(t *testing.T) {
	raw := string(mailer.Build("shop@example.com", mailer.Message{To: "b@example.com", Subject: "Bestätigung"}, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)))
	assert.Contains(t, raw, "Subject: =?utf-8?q?")
	assert.Contains(t, raw, "Date: Sun, 01 Mar 2026 09:00:00 +0000")
}
