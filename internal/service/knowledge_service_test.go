package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/eacrag/internal/config"
	"github.com/xxxsen/eacrag/internal/filestore"
	"github.com/xxxsen/eacrag/internal/model"
	appErr "github.com/xxxsen/eacrag/internal/pkg/errors"
)

const (
	overviewURL     = "https://www.eac.int/overview"
	institutionsURL = "https://www.eac.int/institutions"
)

func paragraph(i int) string {
	return fmt.Sprintf("Paragraph %03d describes the East African Community in sufficient detail.", i)
}

func page(n int) string {
	var sb strings.Builder
	sb.WriteString("<html><body><p>short</p>")
	for i := 0; i < n; i++ {
		sb.WriteString("<p>" + paragraph(i) + "</p>")
	}
	sb.WriteString("</body></html>")
	return sb.String()
}

func newTestKnowledgeService(fetcher *fakeFetcher, emb *fakeEmbedder, idx *fakeIndex, urls ...string) *KnowledgeService {
	return NewKnowledgeService(fetcher, emb, idx, nil, KnowledgeConfig{URLs: urls, MinParagraphLen: 60, BatchSize: 50})
}

func TestBuildStagesStableChunkIDs(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{overviewURL: page(3)}}
	idx := &fakeIndex{}
	svc := newTestKnowledgeService(fetcher, &fakeEmbedder{}, idx, overviewURL)

	for run := 0; run < 2; run++ {
		report, err := svc.Build(context.Background())
		require.NoError(t, err)
		require.Equal(t, 3, report.Staged)
		require.Equal(t, 1, report.Batches)
	}
	require.Len(t, idx.batches, 2)
	for _, batch := range idx.batches {
		require.Len(t, batch, 3)
		for i, r := range batch {
			require.Equal(t, overviewURL+"-"+fmt.Sprint(i), r.ID)
			require.Equal(t, paragraph(i), r.Metadata.Text)
			require.Equal(t, overviewURL, r.Metadata.URL)
		}
	}
}

func TestBuildUpsertsInBatchesOfFifty(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{overviewURL: page(120)}}
	idx := &fakeIndex{}
	report, err := newTestKnowledgeService(fetcher, &fakeEmbedder{}, idx, overviewURL).Build(context.Background())
	require.NoError(t, err)
	require.Equal(t, 120, report.Staged)
	require.Equal(t, 3, report.Batches)
	require.Len(t, idx.batches, 3)
	require.Len(t, idx.batches[0], 50)
	require.Len(t, idx.batches[1], 50)
	require.Len(t, idx.batches[2], 20)
	require.Equal(t, model.ChunkID(overviewURL, 0), idx.batches[0][0].ID)
	require.Equal(t, model.ChunkID(overviewURL, 50), idx.batches[1][0].ID)
	require.Equal(t, model.ChunkID(overviewURL, 119), idx.batches[2][19].ID)
}

func TestBuildFailedURLDoesNotBlockOthers(t *testing.T) {
	fetcher := &fakeFetcher{
		pages: map[string]string{institutionsURL: page(2)},
		errs:  map[string]error{overviewURL: fmt.Errorf("%w: timeout", appErr.ErrUpstream)},
	}
	idx := &fakeIndex{}
	report, err := newTestKnowledgeService(fetcher, &fakeEmbedder{}, idx, overviewURL, institutionsURL).Build(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{overviewURL, institutionsURL}, fetcher.calls)
	require.Equal(t, []string{overviewURL}, report.Failed)
	require.Equal(t, 2, report.Staged)
	require.Equal(t, model.ChunkID(institutionsURL, 0), idx.batches[0][0].ID)
}

func TestBuildEmbedFailureKeepsEarlierChunks(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{overviewURL: page(4), institutionsURL: page(1)}}
	emb := &fakeEmbedder{failOn: map[string]error{paragraph(2): appErr.ErrUpstream}}
	idx := &fakeIndex{}
	report, err := newTestKnowledgeService(fetcher, emb, idx, overviewURL, institutionsURL).Build(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{overviewURL}, report.Failed)
	require.Equal(t, 3, report.Staged)
	ids := make([]string, 0, 3)
	for _, r := range idx.batches[0] {
		ids = append(ids, r.ID)
	}
	require.Equal(t, []string{
		model.ChunkID(overviewURL, 0),
		model.ChunkID(overviewURL, 1),
		model.ChunkID(institutionsURL, 0),
	}, ids)
	// paragraph 3 of the failed url is never embedded
	require.NotContains(t, emb.calls, paragraph(3))
}

func TestBuildUpsertFailureAbortsRemainingBatches(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{overviewURL: page(120)}}
	idx := &fakeIndex{failBatch: 2}
	report, err := newTestKnowledgeService(fetcher, &fakeEmbedder{}, idx, overviewURL).Build(context.Background())
	require.ErrorIs(t, err, appErr.ErrBuild)
	require.ErrorIs(t, err, appErr.ErrUpstream)
	require.NotNil(t, report)
	require.Equal(t, 1, report.Batches)
	require.Len(t, idx.batches, 2)
}

func TestBuildNothingStaged(t *testing.T) {
	fetcher := &fakeFetcher{}
	idx := &fakeIndex{}
	report, err := newTestKnowledgeService(fetcher, &fakeEmbedder{}, idx, overviewURL).Build(context.Background())
	require.NoError(t, err)
	require.Zero(t, report.Staged)
	require.Zero(t, report.Batches)
	require.Empty(t, idx.batches)
}

func TestBuildArchivesFetchedPages(t *testing.T) {
	dir := t.TempDir()
	store, err := filestore.New(config.FileStoreConfig{Type: "local", Data: map[string]interface{}{"dir": dir}})
	require.NoError(t, err)
	fetcher := &fakeFetcher{pages: map[string]string{overviewURL: page(1)}}
	svc := NewKnowledgeService(fetcher, &fakeEmbedder{}, &fakeIndex{}, filestore.NewArchive(store),
		KnowledgeConfig{URLs: []string{overviewURL, institutionsURL}})
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return at }

	report, err := svc.Build(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{institutionsURL}, report.Failed)

	rc, err := store.Open(context.Background(), filestore.PageKey(overviewURL, at))
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, page(1), string(data))

	_, err = store.Open(context.Background(), filestore.PageKey(institutionsURL, at))
	require.Error(t, err)
}
