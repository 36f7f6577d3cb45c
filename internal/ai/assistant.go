package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/simhastha_samwad/backend/internal/utils"
)

// OpenAICompatClient talks to any /chat/completions endpoint (Ollama,
// vLLM, OpenAI). Responses to identical low-temperature requests are cached
// for CacheTTL.
type OpenAICompatClient struct {
	BaseURL     string
	Model       string
	APIKey      string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	CacheTTL    time.Duration
	Client      *http.Client

	mu    sync.Mutex
	cache map[uint64]cacheEntry
}

type cacheEntry struct {
	value string
	exp   time.Time
}

type RateLimitError struct {
	RetryAfter time.Duration
}

func (r RateLimitError) Error() string {
	if r.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %s", r.RetryAfter)
	}
	return "rate limited"
}

type completionRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Messages    []ChatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
}

func (a *OpenAICompatClient) Complete(ctx context.Context, messages []ChatMessage, opts Options) (string, error) {
	if strings.TrimSpace(a.BaseURL) == "" {
		return "", fmt.Errorf("AI_BASE_URL is not set")
	}

	payload := completionRequest{
		Model:       firstNonEmpty(opts.Model, a.Model),
		Temperature: a.Temperature,
		MaxTokens:   a.MaxTokens,
		Messages:    messages,
	}
	if opts.Temperature > 0 {
		payload.Temperature = opts.Temperature
	}
	if opts.MaxTokens > 0 {
		payload.MaxTokens = opts.MaxTokens
	}
	if strings.TrimSpace(payload.Model) == "" {
		return "", fmt.Errorf("AI_MODEL is not set")
	}

	b, _ := json.Marshal(payload)
	key := utils.HashKey(string(b))
	cacheable := a.CacheTTL > 0 && payload.Temperature <= 0.2
	if cacheable {
		if v, ok := a.cacheGet(key); ok {
			return v, nil
		}
	}

	url := strings.TrimRight(a.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(a.APIKey) != "" {
		req.Header.Set("Authorization", "Bearer "+a.APIKey)
	}

	timeout := a.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining > 0 && remaining < timeout {
			timeout = remaining
		}
	}
	client := a.Client
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("completion request timed out")
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return "", fmt.Errorf("completion request timed out")
		}
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errBody map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		if resp.StatusCode == http.StatusTooManyRequests {
			return "", RateLimitError{RetryAfter: extractRetryAfter(errBody)}
		}
		return "", fmt.Errorf("completion http error: %s: %v", resp.Status, errBody)
	}

	var res struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", err
	}
	if len(res.Choices) == 0 {
		return "", nil
	}
	answer := strings.TrimSpace(res.Choices[0].Message.Content)
	if cacheable {
		a.cacheSet(key, answer)
	}
	return answer, nil
}

func (a *OpenAICompatClient) cacheGet(key uint64) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if e, ok := a.cache[key]; ok {
		if time.Now().Before(e.exp) {
			return e.value, true
		}
		delete(a.cache, key)
	}
	return "", false
}

func (a *OpenAICompatClient) cacheSet(key uint64, value string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cache == nil {
		a.cache = map[uint64]cacheEntry{}
	}
	a.cache[key] = cacheEntry{
		value: value,
		exp:   time.Now().Add(a.CacheTTL),
	}
}

func extractRetryAfter(errBody map[string]any) time.Duration {
	errObj, ok := errBody["error"].(map[string]any)
	if !ok {
		return 0
	}
	details, ok := errObj["details"].([]any)
	if !ok {
		return 0
	}
	for _, d := range details {
		m, ok := d.(map[string]any)
		if !ok {
			continue
		}
		if t, ok := m["@type"].(string); ok && strings.Contains(t, "RetryInfo") {
			if s, ok := m["retryDelay"].(string); ok {
				if dur, err := time.ParseDuration(s); err == nil {
					return dur
				}
			}
		}
	}
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
