package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/brickyard/toolbox/pkg/config"
	"github.com/brickyard/toolbox/pkg/headless"
	"github.com/brickyard/toolbox/pkg/manager"
	"github.com/brickyard/toolbox/pkg/normalizer"
	"github.com/brickyard/toolbox/pkg/telemetry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultMaxParallel is the number of concurrent passes when none is configured.
const DefaultMaxParallel = 4

// Scheduler renders pages concurrently, one render pass per page.
type Scheduler struct {
	cfg      *config.Config
	registry *normalizer.Registry
	logger   zerolog.Logger

	// maxParallel is the maximum number of concurrent passes
	maxParallel int

	// recorder journals the passes, may be nil
	recorder PassRecorder
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithMaxParallel bounds the number of concurrent passes.
func WithMaxParallel(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.maxParallel = n
		}
	}
}

// WithRecorder journals every pass.
func WithRecorder(r PassRecorder) Option {
	return func(s *Scheduler) {
		s.recorder = r
	}
}

// NewScheduler creates a scheduler rendering against cfg.
func NewScheduler(cfg *config.Config, registry *normalizer.Registry, logger zerolog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		cfg:         cfg,
		registry:    registry,
		logger:      logger.With().Str("component", "scheduler").Logger(),
		maxParallel: DefaultMaxParallel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run renders every job and returns the outcomes in job order. Jobs that
// never started because ctx was cancelled, or because FailFast tripped, are
// reported as cancelled.
func (s *Scheduler) Run(ctx context.Context, jobs []Job, opts ScheduleOptions) ([]*Outcome, Summary) {
	startTime := time.Now()

	outcomes := make([]*Outcome, len(jobs))
	for i, job := range jobs {
		outcomes[i] = &Outcome{Job: job.Name, Status: PassStatusPending}
	}

	workerCount := s.maxParallel
	if opts.MaxParallel > 0 && opts.MaxParallel < workerCount {
		workerCount = opts.MaxParallel
	}
	if len(jobs) < workerCount {
		workerCount = len(jobs)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	workQueue := make(chan int, len(jobs))
	for i := range jobs {
		workQueue <- i
	}
	close(workQueue)

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for idx := range workQueue {
				select {
				case <-runCtx.Done():
					outcomes[idx].Status = PassStatusCancelled
					outcomes[idx].Err = runCtx.Err()
					continue
				default:
				}

				s.runJob(runCtx, jobs[idx], outcomes[idx])
				if opts.FailFast && outcomes[idx].Status != PassStatusSucceeded {
					cancel()
				}
			}
		}()
	}
	wg.Wait()

	summary := summarize(outcomes)
	summary.Duration = time.Since(startTime)

	s.logger.Info().
		Int("total", summary.Total).
		Int("succeeded", summary.Succeeded).
		Int("partial", summary.Partial).
		Int("failed", summary.Failed).
		Int("cancelled", summary.Cancelled).
		Dur("duration", summary.Duration).
		Msg("Batch finished")

	return outcomes, summary
}

// runJob walks one page on a fresh worker and fills in out.
func (s *Scheduler) runJob(ctx context.Context, job Job, out *Outcome) {
	out.Status = PassStatusRunning
	if job.Page == nil {
		out.Status = PassStatusFailed
		out.Err = fmt.Errorf("job %s has no page", job.Name)
		return
	}
	out.Context = job.Page.Context

	stack := headless.NewStack()
	sinks := headless.MultiSink{stack}

	out.PassID = uuid.New().String()
	if s.recorder != nil {
		passID, sink, err := s.recorder.StartPass(ctx, job.Page.Context)
		if err != nil {
			out.Status = PassStatusFailed
			out.Err = fmt.Errorf("failed to start pass: %w", err)
			return
		}
		out.PassID = passID
		sinks = append(sinks, sink)
	}
	if tel := telemetry.FromTelemetryContext(ctx); tel != nil {
		sinks = append(sinks, headless.NewEventSink(tel.Events, job.Page.Context, out.PassID))
	}

	worker := headless.NewWorker(manager.New(s.cfg, s.logger), s.registry, sinks, s.logger)
	result, err := headless.NewWalker(worker, s.logger).Walk(ctx, out.PassID, job.Page)

	out.Result = result
	out.Err = err
	out.Payloads = stack.Payloads()
	out.Status = statusOf(result, err)

	if s.recorder != nil {
		// The batch may have been cancelled; the outcome is still recorded.
		if ferr := s.recorder.FinishPass(context.WithoutCancel(ctx), out.PassID, result, err); ferr != nil {
			s.logger.Warn().Err(ferr).Str("pass_id", out.PassID).Msg("Failed to record pass outcome")
		}
	}

	s.logger.Debug().
		Str("job", job.Name).
		Str("pass_id", out.PassID).
		Str("status", string(out.Status)).
		Msg("Pass finished")
}

func statusOf(result *headless.WalkResult, err error) PassStatus {
	switch {
	case err != nil || result == nil:
		return PassStatusFailed
	case len(result.Failures) == 0:
		return PassStatusSucceeded
	case result.Dispatched > 0:
		return PassStatusPartial
	default:
		return PassStatusFailed
	}
}

func summarize(outcomes []*Outcome) Summary {
	summary := Summary{Total: len(outcomes)}
	for _, o := range outcomes {
		switch o.Status {
		case PassStatusSucceeded:
			summary.Succeeded++
		case PassStatusPartial:
			summary.Partial++
		case PassStatusFailed:
			summary.Failed++
		case PassStatusCancelled:
			summary.Cancelled++
		}
		if o.Result != nil {
			summary.Dispatched += o.Result.Dispatched
		}
	}
	return summary
}
