// Copyright (C) 2026 Headway Tools (dev@headway.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/awnumar/memguard"

	"github.com/headway-tools/headway/pkg/logging"
)

// ===== Anthropic Client =====

const (
	anthropicAPIVersion = "2023-06-01"
	anthropicBaseURL    = "https://api.anthropic.com/v1/messages"

	// DefaultAnthropicModel is the API default when config names none.
	DefaultAnthropicModel = "claude-3-haiku-20240307"
)

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type anthropicResponse struct {
	Content []anthropicContent `json:"content"`
	Error   *anthropicError    `json:"error,omitempty"`
}

// AnthropicCompleter talks to the Anthropic messages API directly.
type AnthropicCompleter struct {
	httpClient *http.Client
	key        *memguard.Enclave
	model      string
	maxTokens  int
	baseURL    string
	logger     *logging.Logger
}

func NewAnthropicCompleter(key *memguard.Enclave, model string, maxTokens int, logger *logging.Logger) *AnthropicCompleter {
	if model == "" {
		model = DefaultAnthropicModel
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AnthropicCompleter{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		key:        key,
		model:      model,
		maxTokens:  maxTokens,
		baseURL:    anthropicBaseURL,
		logger:     logger,
	}
}

func (a *AnthropicCompleter) Model() string { return a.model }

// Complete sends one user message and returns the concatenated text
// blocks of the reply.
func (a *AnthropicCompleter) Complete(ctx context.Context, method, prompt string) (string, error) {
	body, err := json.Marshal(anthropicRequest{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		Messages:  []anthropicMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal anthropic request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create anthropic request: %w", err)
	}

	// The enclave is opened only long enough to copy the key for this
	// one request; string([]byte) copies, so the locked buffer can be
	// wiped before the request goes out.
	keyBuf, err := a.key.Open()
	if err != nil {
		return "", fmt.Errorf("open anthropic api key: %w", err)
	}
	apiKey := string(keyBuf.Bytes())
	keyBuf.Destroy()

	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", anthropicAPIVersion)
	req.Header.Set("content-type", "application/json")

	a.logger.Debug("calling anthropic", "model", a.model, "method", method)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", gatewayErr(ProviderAnthropic, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", gatewayErr(ProviderAnthropic, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &GatewayError{
			Provider: ProviderAnthropic,
			Err:      fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody)),
		}
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", &GatewayError{
			Provider: ProviderAnthropic,
			Err:      fmt.Errorf("parse response: %w", err),
		}
	}
	if parsed.Error != nil {
		return "", &GatewayError{
			Provider: ProviderAnthropic,
			Err:      fmt.Errorf("%s: %s", parsed.Error.Type, parsed.Error.Message),
		}
	}

	var text strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", &GatewayError{
			Provider: ProviderAnthropic,
			Err:      fmt.Errorf("reply carried no text content"),
		}
	}
	return text.String(), nil
}

var _ Completer = (*AnthropicCompleter)(nil)
