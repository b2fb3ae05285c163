package ai

import (
	"context"
	"fmt"
	"strings"

	appErr "github.com/xxxsen/eacrag/internal/pkg/errors"
)

type IEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	ModelName() string
}

type embedder struct {
	provider IEmbedProvider
	model    string
}

// NewEmbedder binds a provider to a fixed model. Every failure it returns wraps ErrUpstream.
func NewEmbedder(p IEmbedProvider, model string) IEmbedder {
	return &embedder{provider: p, model: model}
}

func (e *embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.ReplaceAll(text, "\n", " ")
	vec, err := e.provider.Embed(ctx, e.model, text)
	if err != nil {
		return nil, fmt.Errorf("embed via %s: %w: %w", e.provider.Name(), appErr.ErrUpstream, err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("embed via %s: %w: no embedding returned", e.provider.Name(), appErr.ErrUpstream)
	}
	return vec, nil
}

func (e *embedder) ModelName() string {
	return e.model
}
