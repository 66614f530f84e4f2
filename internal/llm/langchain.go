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

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
)

// LangchainProvider adapts any langchaingo llms.Model (Anthropic
// Claude, local Ollama, etc.) to the Provider interface, so the
// resilience.Chain can fall back between them uniformly.
type LangchainProvider struct {
	name      string
	model     llms.Model
	maxTokens int
}

// NewAnthropicProvider creates a LangchainProvider backed by Claude
// via tmc/langchaingo/llms/anthropic.
func NewAnthropicProvider(apiKey, modelName string) (*LangchainProvider, error) {
	opts := []anthropic.Option{anthropic.WithToken(apiKey)}
	if modelName != "" {
		opts = append(opts, anthropic.WithModel(modelName))
	}
	model, err := anthropic.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("anthropic provider: %w", err)
	}
	return &LangchainProvider{name: "anthropic", model: model, maxTokens: 4096}, nil
}

// NewOllamaProvider creates a LangchainProvider backed by a local
// Ollama server via tmc/langchaingo/llms/ollama.
func NewOllamaProvider(modelName string) (*LangchainProvider, error) {
	if modelName == "" {
		modelName = "llama3"
	}
	model, err := ollama.New(ollama.WithModel(modelName))
	if err != nil {
		return nil, fmt.Errorf("ollama provider: %w", err)
	}
	return &LangchainProvider{name: "ollama", model: model, maxTokens: 4096}, nil
}

// Name returns the provider identifier ("anthropic" or "ollama").
func (p *LangchainProvider) Name() string { return p.name }

// Translate sends a translation prompt through the underlying model.
func (p *LangchainProvider) Translate(ctx context.Context, prompt string) (string, error) {
	return p.generate(ctx, translationSystemPrompt, prompt)
}

// Reflect sends a reflection prompt through the underlying model.
func (p *LangchainProvider) Reflect(ctx context.Context, prompt string) (string, error) {
	return p.generate(ctx, reflectionSystemPrompt, prompt)
}

func (p *LangchainProvider) generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextContent{Text: systemPrompt}},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextContent{Text: userPrompt}},
		},
	}

	resp, err := p.model.GenerateContent(ctx, messages,
		llms.WithTemperature(0.1),
		llms.WithMaxTokens(p.maxTokens))
	if err != nil {
		return "", fmt.Errorf("%s generation: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s returned no choices", p.name)
	}
	return resp.Choices[0].Content, nil
}
