// Package workerpool provides a bounded pool of background workers for
// stateless CPU-bound pixel-buffer transformations. The pool scales up to a
// hardware-concurrency-derived cap, scales down when idle, and replaces
// faulted workers without losing queued work.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/segmentio/ksuid"
)

// Executor runs one task of the given type. Implementations must be pure:
// same input, same output, no shared mutable state between tasks.
type Executor func(taskType string, input any) (any, error)

// Result is the asynchronous outcome of a task, matched back to its
// submitter by id.
type Result struct {
	ID     string
	Output any
	Err    error
}

// ErrDestroyed is returned for tasks outstanding or submitted after Destroy.
var ErrDestroyed = errors.New("worker pool destroyed")

const defaultIdleTimeout = 30 * time.Second

// Stats holds pool diagnostics.
type Stats struct {
	Workers   int
	Busy      int
	Queued    int
	Completed uint64
}

type task struct {
	id    string
	typ   string
	input any

	once sync.Once
	done chan Result
}

// settle resolves the task exactly once; later settles are ignored, so a
// worker finishing after Destroy already rejected the task is harmless.
func (t *task) settle(r Result) {
	t.once.Do(func() { t.done <- r })
}

type slot struct {
	id             string
	busy           bool
	currentTaskID  string
	current        *task
	tasksCompleted uint64
	lastUsed       time.Time
	ch             chan *task
}

// Pool is a bounded worker pool with FIFO task queuing.
type Pool struct {
	mu sync.Mutex

	exec        Executor
	maxWorkers  int
	idleTimeout time.Duration

	queue     []*task
	slots     map[string]*slot
	completed uint64
	destroyed bool
}

// DefaultMaxWorkers derives the worker cap from hardware concurrency,
// clamped to [2, 8].
func DefaultMaxWorkers() int {
	n := runtime.NumCPU()
	if n < 2 {
		return 2
	}
	if n > 8 {
		return 8
	}
	return n
}

// New creates a pool that runs tasks through the given executor with at most
// maxWorkers concurrent workers. maxWorkers <= 0 selects the default cap.
func New(exec Executor, maxWorkers int) *Pool {
	if maxWorkers <= 0 {
		maxWorkers = DefaultMaxWorkers()
	}
	return &Pool{
		exec:        exec,
		maxWorkers:  maxWorkers,
		idleTimeout: defaultIdleTimeout,
		slots:       make(map[string]*slot),
	}
}

// Process submits a task and blocks until its result arrives, the context is
// cancelled, or the pool is destroyed. The returned error is the task's own
// failure; the caller decides whether to retry.
func (p *Pool) Process(ctx context.Context, taskType string, input any) (any, error) {
	t := &task{
		id:    ksuid.New().String(),
		typ:   taskType,
		input: input,
		done:  make(chan Result, 1),
	}

	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return nil, ErrDestroyed
	}
	p.queue = append(p.queue, t)
	p.dispatchLocked()
	p.mu.Unlock()

	select {
	case res := <-t.done:
		return res.Output, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stats returns worker counts, queue depth, and the completed-task counter.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := Stats{
		Workers:   len(p.slots),
		Queued:    len(p.queue),
		Completed: p.completed,
	}
	for _, sl := range p.slots {
		if sl.busy {
			s.Busy++
		}
	}
	return s
}

// Destroy terminates all slots and rejects every outstanding task
// immediately. Submissions after Destroy reject immediately too.
func (p *Pool) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return
	}
	p.destroyed = true

	for _, t := range p.queue {
		t.settle(Result{ID: t.id, Err: ErrDestroyed})
	}
	p.queue = nil

	for id, sl := range p.slots {
		if sl.current != nil {
			sl.current.settle(Result{ID: sl.current.id, Err: ErrDestroyed})
		}
		close(sl.ch)
		delete(p.slots, id)
	}
}

// dispatchLocked drains the queue according to the pure scheduler's plan.
func (p *Pool) dispatchLocked() {
	views := make([]SlotView, 0, len(p.slots))
	for _, sl := range p.slots {
		views = append(views, SlotView{ID: sl.id, Busy: sl.busy})
	}
	plan := PlanAssignments(len(p.queue), views, p.maxWorkers)

	for i := 0; i < plan.Spawn; i++ {
		p.spawnLocked()
	}
	for _, id := range plan.AssignTo {
		if len(p.queue) == 0 {
			break
		}
		p.assignLocked(p.slots[id])
	}
	// Freshly spawned slots are idle; hand them work directly.
	for _, sl := range p.slots {
		if len(p.queue) == 0 {
			break
		}
		if !sl.busy {
			p.assignLocked(sl)
		}
	}
}

func (p *Pool) assignLocked(sl *slot) {
	if sl == nil || sl.busy || len(p.queue) == 0 {
		return
	}
	t := p.queue[0]
	p.queue = p.queue[1:]
	sl.busy = true
	sl.currentTaskID = t.id
	sl.current = t
	sl.ch <- t
}

func (p *Pool) spawnLocked() *slot {
	sl := &slot{
		id:       ksuid.New().String(),
		lastUsed: time.Now(),
		ch:       make(chan *task, 1),
	}
	p.slots[sl.id] = sl
	go p.work(sl)
	return sl
}

// work is a single worker's loop: run assigned tasks, retire after sitting
// idle past the timeout. A terminated slot never interrupts an assigned task
// because retirement only happens from the idle select arm.
func (p *Pool) work(sl *slot) {
	for {
		select {
		case t, ok := <-sl.ch:
			if !ok {
				return
			}
			p.run(sl, t)
		case <-time.After(p.idleTimeout):
			p.mu.Lock()
			if sl.busy {
				p.mu.Unlock()
				continue
			}
			if _, live := p.slots[sl.id]; live && time.Since(sl.lastUsed) >= p.idleTimeout {
				delete(p.slots, sl.id)
				p.mu.Unlock()
				return
			}
			p.mu.Unlock()
		}
	}
}

// run executes one task, converting a worker panic into a rejected task and
// a replaced slot. The submitter always settles, never hangs.
func (p *Pool) run(sl *slot, t *task) {
	defer func() {
		if r := recover(); r != nil {
			t.settle(Result{ID: t.id, Err: fmt.Errorf("worker fault: %v", r)})
			p.replaceFaulted(sl)
		}
	}()

	out, err := p.exec(t.typ, t.input)
	t.settle(Result{ID: t.id, Output: out, Err: err})

	p.mu.Lock()
	sl.busy = false
	sl.currentTaskID = ""
	sl.current = nil
	sl.tasksCompleted++
	sl.lastUsed = time.Now()
	p.completed++
	p.dispatchLocked()
	p.mu.Unlock()
}

// replaceFaulted removes a faulted slot and, if pending tasks remain, spawns
// a replacement and resumes queue processing. Other workers are unaffected.
func (p *Pool) replaceFaulted(sl *slot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, live := p.slots[sl.id]; live {
		delete(p.slots, sl.id)
		close(sl.ch)
	}
	if p.destroyed {
		return
	}
	if len(p.queue) > 0 {
		p.dispatchLocked()
	}
}
