// Copyright (C) 2026 Headway Tools (dev@headway.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package advisor

import (
	"context"
	"fmt"

	"github.com/awnumar/memguard"
	openai "github.com/sashabaranov/go-openai"

	"github.com/headway-tools/headway/pkg/logging"
)

// ===== OpenAI Client =====

// DefaultOpenAIModel is used when config names no OpenAI model.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAICompleter calls the OpenAI chat completion API.
type OpenAICompleter struct {
	key       *memguard.Enclave
	model     string
	maxTokens int
	logger    *logging.Logger
}

func NewOpenAICompleter(key *memguard.Enclave, model string, maxTokens int, logger *logging.Logger) *OpenAICompleter {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &OpenAICompleter{key: key, model: model, maxTokens: maxTokens, logger: logger}
}

func (o *OpenAICompleter) Model() string { return o.model }

func (o *OpenAICompleter) Complete(ctx context.Context, method, prompt string) (string, error) {
	keyBuf, err := o.key.Open()
	if err != nil {
		return "", fmt.Errorf("open openai api key: %w", err)
	}
	apiKey := string(keyBuf.Bytes())
	keyBuf.Destroy()

	// The client is a thin struct around the key; building it per
	// request keeps the plain key short-lived.
	client := openai.NewClient(apiKey)

	o.logger.Debug("calling openai", "model", o.model, "method", method)

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:               o.model,
		MaxCompletionTokens: o.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", gatewayErr(ProviderOpenAI, err)
	}
	if len(resp.Choices) == 0 {
		return "", &GatewayError{Provider: ProviderOpenAI, Err: fmt.Errorf("reply carried no choices")}
	}
	return resp.Choices[0].Message.Content, nil
}

var _ Completer = (*OpenAICompleter)(nil)
