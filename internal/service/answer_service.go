package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/eacrag/internal/ai"
	"github.com/xxxsen/eacrag/internal/factsheet"
	"github.com/xxxsen/eacrag/internal/model"
	appErr "github.com/xxxsen/eacrag/internal/pkg/errors"
	"github.com/xxxsen/eacrag/internal/vectorindex"
)

const (
	AnswerTopK        = 3
	AnswerTemperature = 0.3

	answerSystemPrompt   = "You are an expert on the East African Community. Use the context to answer accurately."
	answerNoContext      = "No specific documents found."
	answerDynamicSource  = "Dynamic Knowledge Base (eac.int)"
	answerFallbackText   = "I am unable to process that request right now."
	answerFallbackSource = "System Error"
	contextPreviewRunes  = 100
)

// AnswerService resolves a question from the fact table first and falls back to
// retrieval over the vector index plus a chat completion.
type AnswerService struct {
	facts    *factsheet.Table
	embedder ai.IEmbedder
	index    vectorindex.Index
	chatter  ai.IChatter
	topK     int
}

func NewAnswerService(facts *factsheet.Table, embedder ai.IEmbedder, index vectorindex.Index, chatter ai.IChatter) *AnswerService {
	return &AnswerService{
		facts:    facts,
		embedder: embedder,
		index:    index,
		chatter:  chatter,
		topK:     AnswerTopK,
	}
}

// Answer never fails on upstream trouble: embedding, search and chat errors
// collapse into the fixed fallback answer. Any other error is returned.
func (s *AnswerService) Answer(ctx context.Context, query string) (*model.Answer, error) {
	if fact, ok := s.facts.Lookup(query); ok {
		return &model.Answer{
			Answer:      fact.Answer,
			Source:      fact.Source,
			ContextUsed: factsheet.LookupLabel,
		}, nil
	}
	res, err := s.generate(ctx, query)
	if err != nil {
		if appErr.IsUpstream(err) {
			logutil.GetLogger(ctx).Error("answer pipeline failed", zap.String("query", query), zap.Error(err))
			return &model.Answer{Answer: answerFallbackText, Source: answerFallbackSource}, nil
		}
		return nil, err
	}
	return res, nil
}

func (s *AnswerService) generate(ctx context.Context, query string) (*model.Answer, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	matches, err := s.index.Query(ctx, vec, s.topK, true)
	if err != nil {
		return nil, err
	}
	contextText := buildContext(matches)
	logutil.GetLogger(ctx).Debug("retrieved context", zap.Int("matches", len(matches)))
	completion, err := s.chatter.Chat(ctx, answerSystemPrompt, fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextText, query))
	if err != nil {
		return nil, err
	}
	return &model.Answer{
		Answer:      completion,
		Source:      answerDynamicSource,
		ContextUsed: previewContext(contextText),
	}, nil
}

func buildContext(matches []model.Match) string {
	if len(matches) == 0 {
		return answerNoContext
	}
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		parts = append(parts, fmt.Sprintf("%s (Source: %s)", m.Text, m.SourceURL))
	}
	return strings.Join(parts, "\n\n")
}

func previewContext(text string) string {
	runes := []rune(text)
	if len(runes) > contextPreviewRunes {
		runes = runes[:contextPreviewRunes]
	}
	return string(runes) + "..."
}
