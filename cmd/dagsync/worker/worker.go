// Package worker contains the reconciler pool that drains the task queue and
// keeps the dag folder and the scheduler's paused flags in line with the
// producer's desired state.
package worker

import (
	"context"

	"dagsync/cmd/dagsync/cache"
	"dagsync/cmd/dagsync/postgresql"
	"dagsync/cmd/dagsync/shared"

	"github.com/EagleChen/mapmutex"
	"go.uber.org/zap"
)

// emptyPath is returned by upsert when no physical write happened this cycle.
const emptyPath = ""

// DagFiles resolves task file locations/content and performs the file primitives.
type DagFiles interface {
	FilePath(task *shared.DagTask) (string, string)
	FileContent(task *shared.DagTask) (string, error)
	WriteFile(dir string, fileName string, content string) (string, error)
	DeleteFile(fullPath string) error
	Exists(fullPath string) bool
}

// MetadataStore is the scheduler metadata database surface used for pause reconciliation.
type MetadataStore interface {
	GetDag(ctx context.Context, dagID string) (*postgresql.SchedulerDag, error)
	SetPaused(ctx context.Context, dagID string, paused bool) error
	HasImportError(ctx context.Context, fullPath string) (bool, error)
}

type Pool struct {
	queue        chan *shared.DagTask
	dags         *cache.DagCache
	unregistered *cache.UnregisteredDagCache
	files        DagFiles
	meta         MetadataStore
	locks        *mapmutex.Mutex
	supportPause bool
}

func NewPool(queueSize int, dags *cache.DagCache, unregistered *cache.UnregisteredDagCache, files DagFiles, meta MetadataStore, supportPause bool) *Pool {
	return &Pool{
		queue:        make(chan *shared.DagTask, queueSize),
		dags:         dags,
		unregistered: unregistered,
		files:        files,
		meta:         meta,
		locks: mapmutex.NewCustomizedMapMutex(
			800,
			100000000,
			10,
			1.1,
			0.2), // default configs: maxDelay:  100000000, // 0.1 second baseDelay: 10,        // 10 nanosecond
		supportPause: supportPause,
	}
}

// Start launches n consumers. They run for the lifetime of the process.
func (p *Pool) Start(n int) {
	for i := 0; i < n; i++ {
		go p.consume(i)
	}
}

// Enqueue hands a task to the pool, blocking while the queue is full.
func (p *Pool) Enqueue(task *shared.DagTask) {
	p.queue <- task
}

func (p *Pool) QueueLength() int {
	return len(p.queue)
}

func (p *Pool) consume(id int) {
	zap.S().Debugf("[%d] Starting dag consumer", id)
	for task := range p.queue {
		tasksConsumed.Inc()
		p.handleTask(id, task)
	}
}

// handleTask processes a single task. Every failure is terminal for the task:
// logged, dropped, never retried and never allowed to kill the consumer.
func (p *Pool) handleTask(id int, task *shared.DagTask) {
	defer func() {
		if r := recover(); r != nil {
			taskFailures.Inc()
			zap.S().Errorf("[%d] Failed to handle dag task %s: %v", id, task.Name, r)
		}
	}()

	// Serialize tasks for the same dag name. Two workers interleaving their
	// read-decide-write sequences on one name could regress the file state.
	if !p.locks.TryLock(task.Name) {
		zap.S().Warnf("[%d] Could not acquire lock for dag %s, dropping task version %d", id, task.Name, task.Version)
		return
	}
	defer p.locks.Unlock(task.Name)

	if task.Action == shared.ActionDelete {
		p.delete(task)
		return
	}

	// A rejected or failed apply is terminal for the task: its paused flag is
	// stale desired state and must not reach the scheduler.
	fullPath, applied := p.upsert(task)
	if applied && task.Spec.Kind.Generated() && p.supportPause {
		p.reconcilePause(task, fullPath)
	}
}
