package notify

import (
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/jordan-wright/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GregMSThompson/utilization-pilot/internal/utilization"
	"github.com/GregMSThompson/utilization-pilot/pkg/helpers"
)

type captured struct {
	mail *email.Email
	addr string
	auth smtp.Auth
}

func newTestSender(err error) (*Sender, *captured) {
	c := &captured{}
	s := NewSender(SMTPConfig{Host: "smtp.example.com", Port: "587", Username: "u", Password: "p", From: "alerts@example.com"})
	s.send = func(e *email.Email, addr string, a smtp.Auth) error {
		c.mail, c.addr, c.auth = e, addr, a
		return err
	}
	return s, c
}

func sampleRec() utilization.Recommendation {
	return utilization.Recommendation{
		CardID:             "acc-1",
		CardName:           "Visa",
		Amount:             7600,
		CurrentUtilization: 85,
		TargetUtilization:  9,
		CloseDate:          time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC),
		DaysUntilClose:     2,
		Priority:           utilization.PriorityHigh,
	}
}

func TestSendPaydownReminder(t *testing.T) {
	s, c := newTestSender(nil)

	err := s.SendPaydownReminder(helpers.TestCtx(), "jane@example.com", "Jane", []utilization.Recommendation{sampleRec()})
	require.NoError(t, err)

	require.NotNil(t, c.mail)
	assert.Equal(t, "smtp.example.com:587", c.addr)
	assert.NotNil(t, c.auth)
	assert.Equal(t, []string{"jane@example.com"}, c.mail.To)
	assert.Equal(t, "alerts@example.com", c.mail.From)
	assert.Equal(t, "Pay down Visa before its statement closes", c.mail.Subject)

	body := string(c.mail.Text)
	assert.True(t, strings.HasPrefix(body, "Hi Jane,"))
	assert.Contains(t, body, "- Visa: pay $7600.00 by 2025-02-10 (2 days) to go from 85% to 9%")
}

func TestSendPaydownReminderNoRecommendations(t *testing.T) {
	s, c := newTestSender(nil)

	require.NoError(t, s.SendPaydownReminder(helpers.TestCtx(), "jane@example.com", "Jane", nil))
	assert.Nil(t, c.mail)
}

func TestSendPaydownReminderError(t *testing.T) {
	s, _ := newTestSender(errors.New("connection refused"))

	err := s.SendPaydownReminder(helpers.TestCtx(), "jane@example.com", "", []utilization.Recommendation{sampleRec(), sampleRec()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestReminderSubjectPlural(t *testing.T) {
	assert.Equal(t, "Pay down 2 cards before their statements close", reminderSubject([]utilization.Recommendation{sampleRec(), sampleRec()}))
	assert.True(t, strings.HasPrefix(reminderBody("", []utilization.Recommendation{sampleRec()}), "Hi there,"))
}
