package tasks

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application and the HTTP API to manage background aggregation.
// Example usage:
//
//	scheduler, err := NewScheduler(deps, workerCount, schedule)
//	scheduler.Start()
//	defer scheduler.Stop()
//	taskID, err := scheduler.EnqueueAggregation(TriggerAPI, true)
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	EnqueueAggregation(trigger string, reloadConfig bool) (string, error)
}
