package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/xxxsen/eacrag/internal/model"
	appErr "github.com/xxxsen/eacrag/internal/pkg/errors"
)

type fakeEmbedder struct {
	mu     sync.Mutex
	calls  []string
	failOn map[string]error
	err    error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, text)
	if err, ok := f.failOn[text]; ok {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return []float32{float32(len(text)), 1, 0}, nil
}

func (f *fakeEmbedder) ModelName() string { return "fake-embed" }

type queryCall struct {
	vector          []float32
	topK            int
	includeMetadata bool
}

type fakeIndex struct {
	mu        sync.Mutex
	matches   []model.Match
	queryErr  error
	queries   []queryCall
	batches   [][]model.VectorRecord
	failBatch int // 1-based; 0 never fails
}

func (f *fakeIndex) Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]model.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, queryCall{vector: vector, topK: topK, includeMetadata: includeMetadata})
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.matches, nil
}

func (f *fakeIndex) Upsert(ctx context.Context, records []model.VectorRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failBatch > 0 && len(f.batches)+1 == f.failBatch {
		f.batches = append(f.batches, nil)
		return fmt.Errorf("%w: index rejected batch", appErr.ErrUpstream)
	}
	f.batches = append(f.batches, append([]model.VectorRecord(nil), records...))
	return nil
}

type chatCall struct {
	system string
	user   string
}

type fakeChatter struct {
	mu    sync.Mutex
	reply string
	err   error
	calls []chatCall
}

func (f *fakeChatter) Chat(ctx context.Context, system string, user string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, chatCall{system: system, user: user})
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	errs  map[string]error
	calls []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	page, ok := f.pages[url]
	if !ok {
		return nil, fmt.Errorf("%w: http 404", appErr.ErrUpstream)
	}
	return []byte(page), nil
}
