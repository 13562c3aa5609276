package jobs

import (
	"context"
	"fmt"
	"time"

	"stablehub/pkg/logger"

	"github.com/robfig/cron/v3"
)

// DefaultCompletionSchedule runs the completion sweep every fifteen minutes.
const DefaultCompletionSchedule = "@every 15m"

const runTimeout = 2 * time.Minute

// Completer moves confirmed reservations whose end time has passed to completed.
type Completer interface {
	CompleteFinished(ctx context.Context) (int, error)
}

type Scheduler struct {
	cron      *cron.Cron
	completer Completer
	log       *logger.Logger
}

// NewScheduler registers the completion sweep under spec. Overlapping runs
// are skipped and panics are recovered and logged.
func NewScheduler(spec string, completer Completer, log *logger.Logger) (*Scheduler, error) {
	if log == nil {
		log = logger.NewNop()
	}
	if spec == "" {
		spec = DefaultCompletionSchedule
	}

	cl := cronLogger{log: log}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		completer: completer,
		log:       log,
	}
	if _, err := s.cron.AddFunc(spec, func() { _ = s.RunCompletion(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid completion schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("Job scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop prevents new runs and waits for a running sweep, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
		s.log.Warn("Job scheduler stop timed out")
	}
}

// RunCompletion runs one completion sweep.
func (s *Scheduler) RunCompletion(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	start := time.Now()
	n, err := s.completer.CompleteFinished(ctx)
	if err != nil {
		s.log.ErrorWithContext(ctx, "Completion sweep failed", err, map[string]interface{}{
			"completed": n,
		})
		return err
	}
	if n > 0 {
		s.log.InfoWithContext(ctx, "Completion sweep finished", map[string]interface{}{
			"completed": n,
			"duration":  time.Since(start).String(),
		})
	}
	return nil
}

// cronLogger adapts the structured logger to cron.Logger.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.WithError(err).Error("cron: "+msg, keysAndValues...)
}
