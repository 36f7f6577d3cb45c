package webhook

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envelope(message map[string]any, contacts ...any) map[string]any {
	value := map[string]any{"messages": []any{message}}
	if len(contacts) > 0 {
		value["contacts"] = contacts
	}
	return map[string]any{
		"object": "whatsapp_business_account",
		"entry": []any{map[string]any{
			"changes": []any{map[string]any{"value": value}},
		}},
	}
}

func TestNormalizeEnvelopeMatchesFlatShape(t *testing.T) {
	vendor, err := Normalize(envelope(map[string]any{
		"from": "919812345678",
		"type": "text",
		"text": map[string]any{"body": "toilet overflowing near Gate 5"},
	}))
	require.NoError(t, err)

	flat, err := Normalize(map[string]any{"phoneNumber": "919812345678", "message": "toilet overflowing near Gate 5"})
	require.NoError(t, err)

	assert.Equal(t, flat, vendor)
}

func TestNormalizeEnvelopeContentTypes(t *testing.T) {
	cases := []struct {
		name string
		msg  map[string]any
		want string
	}{
		{"location", map[string]any{"from": "1", "type": "location", "location": map[string]any{"latitude": 23.1765, "longitude": 75.7885}}, "geo:23.1765,75.7885"},
		{"button", map[string]any{"from": "1", "type": "button", "button": map[string]any{"text": "Yes"}}, "Yes"},
		{"button reply", map[string]any{"from": "1", "type": "interactive", "interactive": map[string]any{"type": "button_reply", "button_reply": map[string]any{"title": "Main Ghat"}}}, "Main Ghat"},
		{"list reply", map[string]any{"from": "1", "type": "interactive", "interactive": map[string]any{"type": "list_reply", "list_reply": map[string]any{"title": "Gate 2"}}}, "Gate 2"},
		{"image caption", map[string]any{"from": "1", "type": "image", "caption": "look at this"}, "look at this"},
		{"sticker", map[string]any{"from": "1", "type": "sticker"}, "sticker"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize(envelope(tc.msg))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Body)
			assert.Equal(t, "1", got.Sender)
		})
	}
}

func TestNormalizeEnvelopeSenderFallbackAndTimestamp(t *testing.T) {
	got, err := Normalize(envelope(
		map[string]any{"type": "text", "text": map[string]any{"body": "hi"}, "timestamp": "1700000000"},
		map[string]any{"wa_id": "9190000"},
	))
	require.NoError(t, err)
	assert.Equal(t, "9190000", got.Sender)
	require.NotNil(t, got.Timestamp)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), *got.Timestamp)

	got, err = Normalize(envelope(map[string]any{"from": "1", "type": "text", "text": map[string]any{"body": "hi"}, "timestamp": "yesterday"}))
	require.NoError(t, err)
	assert.Nil(t, got.Timestamp)
}

func TestNormalizeBrokenEnvelopeFallsBackToAliases(t *testing.T) {
	raw := map[string]any{
		"object": "whatsapp_business_account",
		"entry":  "not-a-list",
		"from":   "555",
		"text":   "hello",
	}
	got, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, "555", got.Sender)
	assert.Equal(t, "hello", got.Body)
}

func TestNormalizeAliasesCaseInsensitive(t *testing.T) {
	got, err := Normalize(map[string]any{"MSISDN": "777", "Content": "need water", "SentAt": "2025-01-02T03:04:05Z"})
	require.NoError(t, err)
	assert.Equal(t, "777", got.Sender)
	assert.Equal(t, "need water", got.Body)
	require.NotNil(t, got.Timestamp)
	assert.Equal(t, 2025, got.Timestamp.Year())
}

func TestNormalizeAliasOrder(t *testing.T) {
	got, err := Normalize(map[string]any{"phone": "plain", "PHONE_NUMBER": "folded", "body": "x"})
	require.NoError(t, err)
	assert.Equal(t, "folded", got.Sender, "phone_number is earlier in the alias list than phone")

	got, err = Normalize(map[string]any{"Phone": "upper", "phone": "exact", "body": "x"})
	require.NoError(t, err)
	assert.Equal(t, "exact", got.Sender)
}

func TestNormalizeMissingFields(t *testing.T) {
	_, err := Normalize(map[string]any{"foo": 1, "bar": "x"})
	var nerr *NormalizationError
	require.True(t, errors.As(err, &nerr))
	assert.Equal(t, []string{"phone_number", "body"}, nerr.Required)
	assert.Equal(t, []string{"bar", "foo"}, nerr.ReceivedKeys)

	_, err = Normalize(map[string]any{"phone": "1", "body": "   "})
	require.True(t, errors.As(err, &nerr))
}

func TestDecodeBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"phone":"1","body":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	got, err := DecodeBody(req)
	require.NoError(t, err)
	assert.Equal(t, "hi", got["body"])

	req = httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("phone=1&body=namaste"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	got, err = DecodeBody(req)
	require.NoError(t, err)
	assert.Equal(t, "namaste", got["body"])

	req = httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("phone=2&body=untyped"))
	got, err = DecodeBody(req)
	require.NoError(t, err)
	assert.Equal(t, "untyped", got["body"])

	req = httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"phone":`))
	req.Header.Set("Content-Type", "application/json")
	_, err = DecodeBody(req)
	assert.ErrorIs(t, err, ErrInvalidPayload)

	req = httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(""))
	_, err = DecodeBody(req)
	assert.ErrorIs(t, err, ErrInvalidPayload)
}
