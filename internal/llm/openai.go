// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements Provider against the OpenAI chat
// completions API via sashabaranov/go-openai.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates an OpenAIProvider. model defaults to
// "gpt-4o-mini" if empty.
func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIProvider{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// Name returns "openai".
func (p *OpenAIProvider) Name() string { return "openai" }

// Translate sends a translation prompt and returns the raw response.
func (p *OpenAIProvider) Translate(ctx context.Context, prompt string) (string, error) {
	return p.complete(ctx, translationSystemPrompt, prompt)
}

// Reflect sends a reflection prompt and returns the raw response.
func (p *OpenAIProvider) Reflect(ctx context.Context, prompt string) (string, error) {
	return p.complete(ctx, reflectionSystemPrompt, prompt)
}

func (p *OpenAIProvider) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		slog.Error("openai completion failed", "model", p.model, "error", err)
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
