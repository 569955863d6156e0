package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"stitchdesk/internal/broker"
	"stitchdesk/internal/config"
	"stitchdesk/internal/logger"
)

func TestSMTPSenderBuildsMessage(t *testing.T) {
	s := NewSMTPSender(config.SMTP{Host: "mail.local", Port: 2525, From: "desk@shop.in"})
	var raw bytes.Buffer
	s.send = func(_ context.Context, m *mail.Msg) error {
		_, err := m.WriteTo(&raw)
		return err
	}

	require.NoError(t, s.Send(context.Background(), OTPEmail("owner@shop.in", "login", "123456")))
	msg := raw.String()
	assert.Contains(t, msg, "From: <desk@shop.in>")
	assert.Contains(t, msg, "To: <owner@shop.in>")
	assert.Contains(t, msg, "Subject: Your StitchDesk verification code")
	assert.Contains(t, msg, "text/plain")
	assert.Contains(t, msg, "123456")
}

func TestSMTPSenderRejectsBadSender(t *testing.T) {
	s := NewSMTPSender(config.SMTP{Host: "mail.local", Port: 2525, From: "not an address"})
	s.send = func(context.Context, *mail.Msg) error {
		t.Fatal("nothing is sent")
		return nil
	}
	assert.Error(t, s.Send(context.Background(), OTPEmail("owner@shop.in", "login", "123456")))
}

func TestSendRejectsBadRecipient(t *testing.T) {
	s := LogSender{Log: logger.NewWriter("test", &bytes.Buffer{})}
	assert.Error(t, s.Send(context.Background(), Email{To: "nobody", Subject: "x"}))
}

type capture struct {
	exchange, key string
	body          []byte
}

func (c *capture) Publish(_ context.Context, exchange, key string, body []byte) error {
	c.exchange, c.key, c.body = exchange, key, body
	return nil
}

func TestQueueSender(t *testing.T) {
	pub := &capture{}
	require.NoError(t, NewQueueSender(pub).Send(context.Background(), OTPEmail("a@b.in", "reset", "000111")))
	assert.Equal(t, broker.NotificationsExchange, pub.exchange)
	assert.Equal(t, broker.EmailRoutingKey, pub.key)

	var e Email
	require.NoError(t, json.Unmarshal(pub.body, &e))
	assert.Equal(t, "Reset your StitchDesk password", e.Subject)
}
