package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/eacrag/internal/app"
)

// RefreshJob rebuilds the knowledge base with whatever engine is ready when it runs.
type RefreshJob struct {
	state *app.State
}

func NewRefreshJob(state *app.State) *RefreshJob {
	return &RefreshJob{state: state}
}

func (j *RefreshJob) Name() string {
	return "knowledge_refresh"
}

func (j *RefreshJob) Run(ctx context.Context) error {
	engine, err := j.state.Engine()
	if err != nil {
		return err
	}
	report, err := engine.Knowledge.Build(ctx)
	if report != nil {
		logutil.GetLogger(ctx).Info("refresh report",
			zap.Int("staged", report.Staged),
			zap.Int("batches", report.Batches),
			zap.Strings("failed", report.Failed),
		)
	}
	return err
}
