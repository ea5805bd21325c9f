package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tasksConsumed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dagsync_tasks_consumed_total",
			Help: "The total number of dag tasks consumed from the queue",
		})
	staleTasks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dagsync_stale_tasks_total",
			Help: "The total number of apply tasks rejected because a newer version was already applied",
		})
	taskFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dagsync_task_failures_total",
			Help: "The total number of dag tasks dropped due to an unhandled failure",
		})
	fileWrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dagsync_file_writes_total",
			Help: "The total number of dag file writes",
		})
	fileDeletes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dagsync_file_deletes_total",
			Help: "The total number of dag file deletes",
		})
	pauseCommands = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dagsync_pause_commands_total",
			Help: "The total number of pause/unpause commands issued to the scheduler",
		})
)
