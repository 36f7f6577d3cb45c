package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Samwad is the HTTP client for the Samwad WhatsApp gateway.
type Samwad struct {
	SendURL            string
	LocationURL        string
	LocationRequestURL string
	Token              string
	Timeout            time.Duration
	Client             *http.Client
}

func (s *Samwad) client() *http.Client {
	if s.Client != nil {
		return s.Client
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	s.Client = &http.Client{Timeout: timeout}
	return s.Client
}

func (s *Samwad) SendText(ctx context.Context, phone, body string) error {
	return s.SendImage(ctx, phone, body, nil, "")
}

// SendImage posts a multipart form; image is optional.
func (s *Samwad) SendImage(ctx context.Context, phone, body string, image []byte, filename string) error {
	if s.SendURL == "" {
		return fmt.Errorf("SAMWAD_SEND_URL is not set")
	}
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := map[string]string{
		"phone":   phone,
		"token":   s.Token,
		"message": body,
		"text":    body,
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return err
		}
	}
	if len(image) > 0 {
		if filename == "" {
			filename = "image.jpg"
		}
		part, err := w.CreateFormFile("image", filename)
		if err != nil {
			return err
		}
		if _, err := part.Write(image); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.SendURL, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return s.do(req, "send")
}

func (s *Samwad) SendLocation(ctx context.Context, phone string, pin Location) error {
	if s.LocationURL == "" {
		return fmt.Errorf("SAMWAD_LOCATION_URL is not set")
	}
	form := url.Values{}
	form.Set("phone", phone)
	form.Set("token", s.Token)
	form.Set("latitude", strconv.FormatFloat(pin.Latitude, 'f', -1, 64))
	form.Set("longitude", strconv.FormatFloat(pin.Longitude, 'f', -1, 64))
	form.Set("name", pin.Name)
	form.Set("address", pin.Address)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.LocationURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req, "send_location")
}

func (s *Samwad) RequestLocation(ctx context.Context, phone, body string) error {
	if s.LocationRequestURL == "" {
		return fmt.Errorf("SAMWAD_LOCATION_REQUEST_URL is not set")
	}
	b, _ := json.Marshal(map[string]string{"token": s.Token, "phone": phone, "body": body})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.LocationRequestURL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return s.do(req, "request_location")
}

func (s *Samwad) do(req *http.Request, op string) error {
	resp, err := s.client().Do(req)
	if err != nil {
		return fmt.Errorf("gateway %s: %w", op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Op: op, Status: resp.StatusCode, Body: string(snippet)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// LogOnly stands in for the gateway when no Samwad URLs are configured. It
// records every send in the log and always succeeds.
type LogOnly struct {
	Logger zerolog.Logger
}

func (l LogOnly) SendText(ctx context.Context, phone, body string) error {
	l.Logger.Info().Str("phone", phone).Str("body", body).Msg("gateway send (log only)")
	return nil
}

func (l LogOnly) SendImage(ctx context.Context, phone, body string, image []byte, filename string) error {
	l.Logger.Info().Str("phone", phone).Str("file", filename).Int("bytes", len(image)).Msg("gateway send image (log only)")
	return nil
}

func (l LogOnly) SendLocation(ctx context.Context, phone string, pin Location) error {
	l.Logger.Info().Str("phone", phone).Float64("lat", pin.Latitude).Float64("lng", pin.Longitude).Msg("gateway send location (log only)")
	return nil
}

func (l LogOnly) RequestLocation(ctx context.Context, phone, body string) error {
	l.Logger.Info().Str("phone", phone).Msg("gateway location request (log only)")
	return nil
}
