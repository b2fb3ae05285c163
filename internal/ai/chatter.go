package ai

import (
	"context"
	"fmt"
	"strings"

	appErr "github.com/xxxsen/eacrag/internal/pkg/errors"
)

type IChatter interface {
	Chat(ctx context.Context, system string, user string) (string, error)
}

type chatter struct {
	provider    IChatProvider
	model       string
	temperature float32
}

func NewChatter(p IChatProvider, model string, temperature float32) IChatter {
	return &chatter{provider: p, model: model, temperature: temperature}
}

func (c *chatter) Chat(ctx context.Context, system string, user string) (string, error) {
	req := &ChatRequest{
		Model: c.model,
		Messages: []Message{
			{Role: RoleSystem, Content: system},
			{Role: RoleUser, Content: user},
		},
		Temperature: c.temperature,
	}
	resp, err := c.provider.Chat(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat via %s: %w: %w", c.provider.Name(), appErr.ErrUpstream, err)
	}
	text := strings.TrimSpace(resp)
	if text == "" {
		return "", fmt.Errorf("chat via %s: %w: empty ai response", c.provider.Name(), appErr.ErrUpstream)
	}
	return text, nil
}
