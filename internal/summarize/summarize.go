package summarize

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"

	"github.com/vidmeta/backend/internal/config"
	"github.com/vidmeta/backend/internal/platform/logger"
)

// Summarizer turns extracted media metadata into a short human-readable
// summary for the job status page.
type Summarizer interface {
	Summarize(ctx context.Context, metadata map[string]any) (string, error)
}

func New(ctx context.Context, settings config.Settings, log *logger.Logger) Summarizer {
	if settings.BedrockMode == "bedrock" || settings.BedrockMode == "aws" {
		client := anthropic.NewClient(bedrock.WithLoadDefaultConfig(ctx))
		return &bedrockSummarizer{
			client:  client,
			modelID: settings.BedrockModelID,
			log:     log.With("component", "BedrockSummarizer"),
		}
	}
	return &mockSummarizer{}
}

// mockSummarizer is deterministic and mirrors the shape of real model output,
// so the rest of the pipeline behaves identically in both modes.
type mockSummarizer struct{}

func (m *mockSummarizer) Summarize(_ context.Context, metadata map[string]any) (string, error) {
	var duration, codec, width, height any
	if format, ok := metadata["format"].(map[string]any); ok {
		duration = format["duration"]
	}
	if streams, ok := metadata["streams"].([]any); ok && len(streams) > 0 {
		if first, ok := streams[0].(map[string]any); ok {
			codec = first["codec_name"]
			width = first["width"]
			height = first["height"]
		}
	}
	return fmt.Sprintf(
		"Mock Bedrock Summary: video codec=%v, resolution=%vx%v, duration_s=%v.",
		codec, width, height, duration,
	), nil
}

type bedrockSummarizer struct {
	client  anthropic.Client
	modelID string
	log     *logger.Logger
}

func (b *bedrockSummarizer) Summarize(ctx context.Context, metadata map[string]any) (string, error) {
	raw, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}
	prompt := "Summarize the following extracted video metadata in 1-2 sentences for a job status page.\n\n" + string(raw)

	msg, err := b.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(b.modelID),
		MaxTokens: 200,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("bedrock invoke: %w", err)
	}
	if len(msg.Content) == 0 {
		return "", fmt.Errorf("bedrock returned empty content")
	}
	return msg.Content[0].Text, nil
}
