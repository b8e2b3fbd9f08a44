package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxErrorBody bounds how much of a provider error body ends up in messages
const maxErrorBody = 2048

// postJSON sends body as JSON and returns the status code and raw response body
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body interface{}) (int, []byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, data, nil
}

// apiError formats a non-200 provider answer
func apiError(label string, status int, body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody] + "..."
	}
	return fmt.Sprintf("%s API error: %d - %s", label, status, text)
}

// transportError formats a network failure
func transportError(label string, err error) string {
	return fmt.Sprintf("%s request failed: %v", label, err)
}

// decodeError formats a body that could not be parsed
func decodeError(label string, err error) string {
	return fmt.Sprintf("%s returned an invalid response: %v", label, err)
}

// chatMessage is the OpenAI style message shape shared by several backends
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
