package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/i474232898/air-quality-dashboard/internal/airquality"
)

// Reloader starts a fresh load sequence and returns its final state.
type Reloader interface {
	Reload(ctx context.Context) airquality.LoadState
}

// Scheduler periodically starts a new load sequence. Each tick is an
// independent sequence; a failed load is not retried until the next tick.
type Scheduler struct {
	scheduler *gocron.Scheduler
	loader    Reloader
	interval  time.Duration
	timeout   time.Duration
}

// New creates a new Scheduler. timeout bounds each tick's load.
func New(interval, timeout time.Duration, loader Reloader) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		loader:    loader,
		interval:  interval,
		timeout:   timeout,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
// The first run happens one interval from now; the initial load belongs to
// the caller.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		zap.L().Info("scheduler: refresh disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).WaitForSchedule().SingletonMode().Do(s.run)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	zap.L().Info("scheduler: started", zap.Duration("interval", s.interval))
	return nil
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	st := s.loader.Reload(ctx)
	zap.L().Info("scheduler: refresh finished",
		zap.String("phase", st.Phase.String()),
		zap.Uint64("generation", st.Generation),
	)
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
