// Package maintenance runs the standing background tasks that keep batch
// views up to date and the store tidy: periodic materialization, retention,
// and temp-file garbage collection. Grounded on friggdb.go's
// runBlockListPollLoop (one ticker driving a poll action, warnings logged
// rather than fatal) generalized from a single poll target to a named set of
// independently scheduled tasks.
package maintenance

import (
	"context"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricTaskRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lakehouse",
		Name:      "maintenance_task_runs_total",
		Help:      "Total number of times a maintenance task has run.",
	}, []string{"task"})
	metricTaskErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lakehouse",
		Name:      "maintenance_task_errors_total",
		Help:      "Total number of maintenance task failures.",
	}, []string{"task"})
	metricTaskDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lakehouse",
		Name:      "maintenance_task_duration_seconds",
		Help:      "Time spent running a maintenance task.",
		Buckets:   prometheus.ExponentialBuckets(.25, 2, 8),
	}, []string{"task"})
)

// Task is one scheduled action, keyed by (name, period, offset): its next
// run is always now truncated to period, plus period, plus offset.
type Task struct {
	Name   string
	Period time.Duration
	Offset time.Duration
	Action func(ctx context.Context) error
}

func (t Task) nextRun(now time.Time) time.Time {
	return now.Truncate(t.Period).Add(t.Period).Add(t.Offset)
}

type scheduledTask struct {
	Task
	next time.Time
}

// Scheduler runs a fixed set of Tasks against one shared ticker: every tick
// it checks each task's next-run time and fires any that are due, the same
// "check, don't block" shape friggdb.go's single poll loop uses, extended to
// more than one concurrently-scheduled action.
type Scheduler struct {
	tasks  []*scheduledTask
	tick   time.Duration
	logger log.Logger
}

// NewScheduler builds a Scheduler. tick should be small relative to the
// shortest task period (a minute-period task needs sub-minute ticks to fire
// close to its boundary); callers pick the granularity that matches their
// tightest task.
func NewScheduler(logger log.Logger, tick time.Duration, tasks ...Task) *Scheduler {
	s := &Scheduler{tick: tick, logger: logger}
	now := time.Now()
	for _, t := range tasks {
		s.tasks = append(s.tasks, &scheduledTask{Task: t, next: t.nextRun(now)})
	}
	return s
}

// Run blocks until ctx is canceled, firing due tasks on every tick. A task
// failure is logged with its name and never aborts the scheduler or the
// remaining tasks on that tick, matching the propagation policy that the
// maintenance daemon catches every task-level error and continues.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.runDue(ctx, now)
		}
	}
}

func (s *Scheduler) runDue(ctx context.Context, now time.Time) {
	for _, t := range s.tasks {
		if now.Before(t.next) {
			continue
		}
		t.next = t.nextRun(now)
		s.runOne(ctx, t.Task)
	}
}

func (s *Scheduler) runOne(ctx context.Context, t Task) {
	start := time.Now()
	err := t.Action(ctx)
	metricTaskDuration.WithLabelValues(t.Name).Observe(time.Since(start).Seconds())
	metricTaskRunsTotal.WithLabelValues(t.Name).Inc()
	if err != nil {
		metricTaskErrorsTotal.WithLabelValues(t.Name).Inc()
		level.Error(s.logger).Log("msg", "maintenance task failed", "task", t.Name, "err", err)
	}
}
