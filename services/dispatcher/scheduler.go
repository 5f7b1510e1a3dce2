package dispatcher

import (
	"context"
	"time"

	"workorder-autopilot/pkg/config"
	"workorder-autopilot/pkg/task"
	"workorder-autopilot/services/cron"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Scheduler wakes on a fixed interval, selects the crons whose working
// window is open, and enqueues one run task per cron. Execution happens
// in the queue workers; the tick itself only enqueues.
type Scheduler struct {
	crons    *cron.Service
	enqueuer task.Enqueuer
	interval time.Duration
	loc      *time.Location
	limit    int
}

type SchedulerParams struct {
	fx.In
	Crons    *cron.Service
	Enqueuer task.Enqueuer
	Config   *config.Config
}

func NewScheduler(p SchedulerParams) *Scheduler {
	return &Scheduler{
		crons:    p.Crons,
		enqueuer: p.Enqueuer,
		interval: p.Config.Scheduler.TickInterval,
		loc:      p.Config.SchedulerLocation(),
		limit:    p.Config.Scheduler.Concurrency,
	}
}

func StartScheduler(lc fx.Lifecycle, s *Scheduler) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go s.run(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

func (s *Scheduler) run(ctx context.Context) {
	zap.L().Info("scheduler started", zap.Duration("tick_interval", s.interval))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick enqueues a run for every eligible cron. An enqueue failure for one
// cron does not abort the rest; the next tick retries it anyway.
func (s *Scheduler) tick(ctx context.Context) {
	now := time.Now()

	active, err := s.crons.ActiveCrons(ctx, now)
	if err != nil {
		zap.L().Error("failed to load active crons", zap.Error(err))
		return
	}

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(s.limit)

	var eligible int
	for _, c := range active {
		if !c.EligibleAt(now, s.loc) {
			continue
		}
		eligible++
		c := c
		g.Go(func() error {
			if _, err := s.enqueuer.Enqueue(NewRunTask(c.CronID)); err != nil {
				zap.L().Error("failed to enqueue cron run",
					zap.Int64("cron_id", c.CronID), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	zap.L().Info("scheduler tick",
		zap.Int("active", len(active)),
		zap.Int("eligible", eligible),
	)
}
