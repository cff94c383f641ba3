package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

type openAIError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *HTTPClient) doOpenAI(ctx context.Context, role, instructions, input string) (string, error) {
	messages := make([]openAIMessage, 0, 2)
	if instructions != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: instructions})
	}
	messages = append(messages, openAIMessage{Role: "user", Content: input})

	req := openAIRequest{
		Model:       c.cfg.Model,
		MaxTokens:   maxResponseTokens,
		Temperature: requestTemperature,
		Messages:    messages,
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return "", &Error{Role: role, Retryable: false, Cause: fmt.Errorf("marshal request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", &Error{Role: role, Retryable: false, Cause: fmt.Errorf("create request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &Error{Role: role, Retryable: true, Cause: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{Role: role, Retryable: true, Cause: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		cause := fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
		var errResp openAIError
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
			cause = fmt.Errorf("API error (%d): %s", resp.StatusCode, errResp.Error.Message)
		}
		return "", &Error{Role: role, Status: resp.StatusCode, Retryable: classifyStatus(resp.StatusCode), Cause: cause}
	}

	var parsed openAIResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &Error{Role: role, Retryable: false, Cause: fmt.Errorf("parse response: %w", err)}
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", &Error{Role: role, Retryable: true, Cause: fmt.Errorf("empty response from API")}
	}

	return parsed.Choices[0].Message.Content, nil
}
