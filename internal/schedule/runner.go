package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// Status is a snapshot of the jobs that went through a Runner.
type Status struct {
	Running      int
	LastStarted  time.Time
	LastFinished time.Time
	LastError    string
}

// Runner executes jobs outside the caller's lifetime and keeps a status record.
// Overlapping submissions are allowed.
type Runner struct {
	ctx context.Context
	wg  sync.WaitGroup

	mu     sync.Mutex
	status Status
	now    func() time.Time
}

// NewRunner binds submitted jobs to ctx instead of the submitter's context.
func NewRunner(ctx context.Context) *Runner {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Runner{ctx: ctx, now: time.Now}
}

// Submit starts job in the background and returns immediately. A job from
// Tracked on the same runner is recorded once.
func (r *Runner) Submit(job Job) {
	if t, ok := job.(*trackedJob); ok && t.runner == r {
		job = t.job
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		_ = r.run(r.ctx, job)
	}()
}

// Tracked returns a job that records its runs in the runner status, for use
// with a Scheduler.
func (r *Runner) Tracked(job Job) Job {
	return &trackedJob{runner: r, job: job}
}

// Wait blocks until every submitted job has returned.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Runner) run(ctx context.Context, job Job) error {
	logger := logutil.GetLogger(ctx).With(zap.String("job", job.Name()))
	r.mu.Lock()
	r.status.Running++
	r.status.LastStarted = r.now()
	r.mu.Unlock()

	logger.Info("background job started")
	err := job.Run(ctx)

	r.mu.Lock()
	r.status.Running--
	r.status.LastFinished = r.now()
	r.status.LastError = ""
	if err != nil {
		r.status.LastError = err.Error()
	}
	r.mu.Unlock()

	if err != nil {
		logger.Error("background job failed", zap.Error(err))
		return err
	}
	logger.Info("background job finished")
	return nil
}

type trackedJob struct {
	runner *Runner
	job    Job
}

func (t *trackedJob) Name() string {
	return t.job.Name()
}

func (t *trackedJob) Run(ctx context.Context) error {
	return t.runner.run(ctx, t.job)
}
