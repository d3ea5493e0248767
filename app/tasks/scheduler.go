package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const taskTimeout = 5 * time.Minute

type Scheduler struct {
	deps        AggregateDeps
	cron        *cron.Cron
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface
}

// NewScheduler validates schedule (standard cron syntax or descriptors such as "@every 30m")
// and prepares workerCount workers for aggregation tasks.
func NewScheduler(deps AggregateDeps, workerCount int, schedule string) (*Scheduler, error) {
	if workerCount <= 0 {
		return nil, fmt.Errorf("worker count must be positive, got %d", workerCount)
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		deps:        deps,
		cron:        cron.New(),
		workerCount: workerCount,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 16),
	}

	if _, err := s.cron.AddFunc(schedule, s.enqueueScheduledTasks); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	return s, nil
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.enqueueStartupTasks()
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	cronCtx := s.cron.Stop()
	s.cancel()
	<-cronCtx.Done()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// EnqueueAggregation queues a new aggregation run and returns its task ID
func (s *Scheduler) EnqueueAggregation(trigger string, reloadConfig bool) (string, error) {
	task := NewAggregateTask(trigger, reloadConfig, s.deps)
	if err := s.EnqueueTask(task); err != nil {
		return "", err
	}

	slog.Debug("Aggregation enqueued", "id", task.GetID(), "trigger", trigger)
	return task.GetID(), nil
}

func (s *Scheduler) enqueueStartupTasks() {
	if _, err := s.EnqueueAggregation(TriggerStartup, false); err != nil {
		slog.Warn("Failed to enqueue startup aggregation", "error", err)
	}
}

func (s *Scheduler) enqueueScheduledTasks() {
	if _, err := s.EnqueueAggregation(TriggerSchedule, true); err != nil {
		slog.Warn("Failed to enqueue scheduled aggregation", "error", err)
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

	if !task.CanRetry() {
		slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		return
	}

	task.IncrementRetryCount()
	delay := retryDelay(task.GetRetryCount())

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "trigger", task.GetTrigger(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", delay.String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
		case <-timer.C:
			if retryErr := s.EnqueueTask(task); retryErr != nil {
				slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
			}
		}
	}()
}
