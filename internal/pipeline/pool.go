package pipeline

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Task is one unit of matching work handed to the pool.
type Task func(workerID int)

// WorkerPool runs tasks on a fixed number of goroutines. The pool size is
// the hard bound on concurrent advisory lookups; nothing else in the
// pipeline issues network calls.
type WorkerPool struct {
	NumWorkers int
	tasks      chan Task

	wg          sync.WaitGroup // workers
	taskWG      sync.WaitGroup // in-flight tasks
	activeTasks int64
}

func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	bufferSize := numWorkers * 10
	if bufferSize < 100 {
		bufferSize = 100
	}
	return &WorkerPool{
		NumWorkers: numWorkers,
		tasks:      make(chan Task, bufferSize),
	}
}

// Start launches the worker goroutines.
func (p *WorkerPool) Start() {
	slog.Debug("starting worker pool", "workers", p.NumWorkers)
	for i := 0; i < p.NumWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()
	for task := range p.tasks {
		atomic.AddInt64(&p.activeTasks, 1)
		task(id)
		atomic.AddInt64(&p.activeTasks, -1)
		p.taskWG.Done()
	}
}

// Submit adds a task to the pool.
func (p *WorkerPool) Submit(t Task) {
	p.taskWG.Add(1)
	p.tasks <- t
}

// Wait blocks until every submitted task has completed.
func (p *WorkerPool) Wait() {
	p.taskWG.Wait()
}

// Stop closes the task channel and waits for the workers to drain.
func (p *WorkerPool) Stop() {
	close(p.tasks)
	p.wg.Wait()
}

// ActiveCount returns the number of currently executing tasks.
func (p *WorkerPool) ActiveCount() int {
	return int(atomic.LoadInt64(&p.activeTasks))
}
