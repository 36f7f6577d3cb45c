package webhook

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/simhastha_samwad/backend/internal/models"
)

var (
	senderAliases    = []string{"phone_number", "phoneNumber", "phone", "from", "sender", "mobile", "msisdn"}
	bodyAliases      = []string{"body", "message", "text", "content", "msg"}
	timestampAliases = []string{"timestamp", "time", "created_at", "createdAt", "date", "sentAt"}
)

// NormalizationError reports a payload from which no sender or body could
// be recovered.
type NormalizationError struct {
	Required     []string `json:"required"`
	ReceivedKeys []string `json:"received_keys"`
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("missing_fields: required %v, received %v", e.Required, e.ReceivedKeys)
}

// Normalize maps a raw webhook payload into an InboundMessage. The vendor
// envelope is tried first; anything it cannot handle falls through to the
// generic alias scan.
func Normalize(raw map[string]any) (models.InboundMessage, error) {
	if msg, ok := fromEnvelope(raw); ok {
		return msg, nil
	}
	return fromAliases(raw)
}

func fromEnvelope(raw map[string]any) (models.InboundMessage, bool) {
	if s, _ := raw["object"].(string); s != "whatsapp_business_account" {
		return models.InboundMessage{}, false
	}
	value := path(raw, "entry", 0, "changes", 0, "value")
	m := path(value, "messages", 0)
	if m == nil {
		return models.InboundMessage{}, false
	}

	sender := str(m["from"])
	if sender == "" {
		sender = str(path(value, "contacts", 0)["wa_id"])
	}

	var body string
	kind := str(m["type"])
	switch kind {
	case "text":
		body = str(obj(m["text"])["body"])
	case "location":
		loc := obj(m["location"])
		lat, lng := str(loc["latitude"]), str(loc["longitude"])
		if lat != "" && lng != "" {
			body = "geo:" + lat + "," + lng
		}
	case "button":
		body = str(obj(m["button"])["text"])
	case "interactive":
		inter := obj(m["interactive"])
		switch str(inter["type"]) {
		case "button_reply":
			body = str(obj(inter["button_reply"])["title"])
		case "list_reply":
			body = str(obj(inter["list_reply"])["title"])
		}
	}
	if body == "" {
		body = firstNonEmpty(str(obj(m["text"])["body"]), str(m["caption"]), kind)
	}
	if sender == "" || body == "" {
		return models.InboundMessage{}, false
	}

	msg := models.InboundMessage{Sender: sender, Body: body}
	if secs, err := strconv.ParseInt(str(m["timestamp"]), 10, 64); err == nil && secs > 0 {
		ts := time.Unix(secs, 0).UTC()
		msg.Timestamp = &ts
	}
	return msg, true
}

func fromAliases(raw map[string]any) (models.InboundMessage, error) {
	sender := str(lookup(raw, senderAliases))
	body := str(lookup(raw, bodyAliases))
	if strings.TrimSpace(sender) == "" || strings.TrimSpace(body) == "" {
		keys := make([]string, 0, len(raw))
		for k := range raw {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return models.InboundMessage{}, &NormalizationError{
			Required:     []string{"phone_number", "body"},
			ReceivedKeys: keys,
		}
	}
	msg := models.InboundMessage{Sender: sender, Body: body}
	if ts, ok := parseTimestamp(lookup(raw, timestampAliases)); ok {
		msg.Timestamp = &ts
	}
	return msg, nil
}

// lookup tries each alias as an exact key, then case-insensitively.
func lookup(raw map[string]any, aliases []string) any {
	lower := make(map[string]any, len(raw))
	for k, v := range raw {
		lower[strings.ToLower(k)] = v
	}
	for _, name := range aliases {
		if v, ok := raw[name]; ok && v != nil {
			return v
		}
		if v, ok := lower[strings.ToLower(name)]; ok && v != nil {
			return v
		}
	}
	return nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTimestamp accepts epoch seconds (number or digit string) and a few
// ISO-8601 layouts. Anything else leaves the timestamp unset.
func parseTimestamp(v any) (time.Time, bool) {
	s := str(v)
	if s == "" {
		return time.Time{}, false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return time.Unix(int64(f), 0).UTC(), true
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func path(v any, steps ...any) map[string]any {
	cur := v
	for _, step := range steps {
		switch s := step.(type) {
		case string:
			cur = obj(cur)[s]
		case int:
			arr, _ := cur.([]any)
			if s >= len(arr) {
				return nil
			}
			cur = arr[s]
		}
	}
	return obj(cur)
}

func obj(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// str renders scalar payload values the way they appeared on the wire.
func str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case map[string]any, []any:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
