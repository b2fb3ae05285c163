package ai

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/xxxsen/eacrag/internal/pkg/errors"
)

type ChatterEntry struct {
	Name    string
	Chatter IChatter
}

type groupChatter struct {
	items []ChatterEntry
}

// NewGroupChatter tries each chatter in order and returns the first success.
func NewGroupChatter(items []ChatterEntry) IChatter {
	if len(items) == 0 {
		return nil
	}
	if len(items) == 1 {
		return items[0].Chatter
	}
	return &groupChatter{items: items}
}

func (g *groupChatter) Chat(ctx context.Context, system string, user string) (string, error) {
	var lastErr error
	for i, item := range g.items {
		if item.Chatter == nil {
			continue
		}
		res, err := item.Chatter.Chat(ctx, system, user)
		if err == nil {
			return res, nil
		}
		lastErr = err
		logutil.GetLogger(ctx).Warn("chatter failed", zap.Int("index", i), zap.String("name", item.Name), zap.Error(err))
	}
	if lastErr == nil {
		return "", fmt.Errorf("%w: %w", appErr.ErrUpstream, ErrUnavailable)
	}
	return "", lastErr
}
