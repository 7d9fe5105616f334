package control

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler triggers runs on a cron schedule.
type Scheduler struct {
	cron *cron.Cron
	log  *slog.Logger
}

// cronLogger routes cron's own messages to slog.
type cronLogger struct{ log *slog.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}

// NewScheduler creates a scheduler. Overlapping ticks are skipped.
func NewScheduler() *Scheduler {
	log := slog.Default().With("component", "scheduler")
	logger := cronLogger{log: log}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		log: log,
	}
}

// ValidateSchedule checks spec with the parser Add uses.
func ValidateSchedule(spec string) error {
	_, err := cron.ParseStandard(spec)
	return err
}

// Add registers fn under a standard cron spec or descriptor such as "@hourly".
func (s *Scheduler) Add(spec, name string, fn func(ctx context.Context)) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.log.Debug("Running job", "job", name)
		fn(context.Background())
	})
	if err != nil {
		return err
	}
	s.log.Info("Job registered", "schedule", spec, "job", name)
	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("Scheduler started")
}

// Stop waits for a running job to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
	s.log.Info("Scheduler stopped")
}

// Entries reports how many jobs are registered.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
