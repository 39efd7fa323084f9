package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizedEmail(t *testing.T) {
	assert.Equal(t, "j***@*******.com", SanitizedEmail("john@example.com"))
	assert.Equal(t, "[invalid-email]", SanitizedEmail("not-an-email"))
}

func TestSanitizedIdentifier(t *testing.T) {
	assert.Equal(t, "jo****", SanitizedIdentifier("john_1"))
	assert.Equal(t, "**", SanitizedIdentifier("ab"))
	assert.Equal(t, "a***@*.io", SanitizedIdentifier("anna@x.io"))
}

func TestSanitizeQueryString(t *testing.T) {
	assert.True(t, SanitizeQueryString("token=abc"))
	assert.True(t, SanitizeQueryString("OTP=123456"))
	assert.False(t, SanitizeQueryString("page=2"))
}

func TestAuditLogger_IncludesRequestInfoAndMasksIdentifier(t *testing.T) {
	var buf bytes.Buffer
	audit := NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	ctx := WithRequestInfo(context.Background(), RequestInfo{IPAddress: "10.0.0.1", UserAgent: "curl"})
	audit.LogAuthAttempt(ctx, AuditEvent{
		EventType:     EventLoginPassword,
		Identifier:    "john@example.com",
		FailureReason: "invalid_password",
	})

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "WARN", record["level"])
	assert.Equal(t, "auth", record["audit_type"])
	assert.Equal(t, "10.0.0.1", record["ip_address"])
	assert.Equal(t, "j***@*******.com", record["identifier"])
	assert.NotContains(t, buf.String(), "john@example.com")
}
