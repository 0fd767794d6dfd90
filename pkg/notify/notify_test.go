package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := &Log{Logger: zerolog.New(&buf)}

	err := n.Send(context.Background(), "user@example.com", "Reminder: lunch", "body")
	require.NoError(t, err)

	var event map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &event))
	assert.Equal(t, "user@example.com", event["recipient"])
	assert.Equal(t, "Reminder: lunch", event["subject"])
}

func TestSMTPMessageFormat(t *testing.T) {
	n := &SMTP{From: "remindd@example.com"}

	msg := string(n.message("user@example.com", "Reminder: lunch", "Lunch is due."))

	assert.Contains(t, msg, "From: remindd@example.com\r\n")
	assert.Contains(t, msg, "To: user@example.com\r\n")
	assert.Contains(t, msg, "Subject: Reminder: lunch\r\n")
	assert.Contains(t, msg, "\r\n\r\nLunch is due.\r\n")
}
