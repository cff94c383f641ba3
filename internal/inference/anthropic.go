package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	Temperature float64            `json:"temperature"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type anthropicError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *HTTPClient) doAnthropic(ctx context.Context, role, instructions, input string) (string, error) {
	req := anthropicRequest{
		Model:       c.cfg.Model,
		MaxTokens:   maxResponseTokens,
		Temperature: requestTemperature,
		System:      instructions,
		Messages:    []anthropicMessage{{Role: "user", Content: input}},
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return "", &Error{Role: role, Retryable: false, Cause: fmt.Errorf("marshal request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/messages", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", &Error{Role: role, Retryable: false, Cause: fmt.Errorf("create request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-Key", c.cfg.APIKey)
	httpReq.Header.Set("Anthropic-Version", "2023-06-01")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// Network failures and client timeouts are transient.
		return "", &Error{Role: role, Retryable: true, Cause: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{Role: role, Retryable: true, Cause: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		cause := fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
		var errResp anthropicError
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
			cause = fmt.Errorf("API error (%d): %s", resp.StatusCode, errResp.Error.Message)
		}
		return "", &Error{Role: role, Status: resp.StatusCode, Retryable: classifyStatus(resp.StatusCode), Cause: cause}
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &Error{Role: role, Retryable: false, Cause: fmt.Errorf("parse response: %w", err)}
	}
	if len(parsed.Content) == 0 || parsed.Content[0].Text == "" {
		return "", &Error{Role: role, Retryable: true, Cause: fmt.Errorf("empty response from API")}
	}

	return parsed.Content[0].Text, nil
}
