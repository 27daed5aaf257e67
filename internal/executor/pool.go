package executor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/xdg/cmdgate/internal/clog"
)

// DefaultWorkers is the pool size used when none is configured.
const DefaultWorkers = 10

// ErrPoolClosed is returned by Submit after Close.
var ErrPoolClosed = errors.New("executor pool closed")

// Pool runs executions on a fixed set of worker goroutines, decoupling
// request concurrency from the number of child processes alive at once.
type Pool struct {
	exec  Executor
	size  int
	tasks chan *task
	busy  atomic.Int64

	wg     sync.WaitGroup
	mu     sync.RWMutex // protects closed and sends on tasks
	closed bool
}

type task struct {
	ctx context.Context
	req Request
	fut *Future
}

// Future is a handle to a submitted execution.
type Future struct {
	done chan struct{}
	res  Result
}

// Done is closed once the result is available.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the execution finishes and returns its result.
func (f *Future) Wait() Result {
	<-f.done
	return f.res
}

// NewPool starts size workers that run requests through exec.
// A size below 1 uses DefaultWorkers.
func NewPool(exec Executor, size int) *Pool {
	if size < 1 {
		size = DefaultWorkers
	}
	p := &Pool{
		exec:  exec,
		size:  size,
		tasks: make(chan *task),
	}
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.worker()
	}
	return p
}

// Submit hands req to the next free worker. It blocks while every worker is
// busy and gives up when ctx is done before a worker picks the task up.
// Once picked up, the execution is bounded only by req.Timeout.
func (p *Pool) Submit(ctx context.Context, req Request) (*Future, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, ErrPoolClosed
	}

	t := &task{ctx: ctx, req: req, fut: &Future{done: make(chan struct{})}}
	select {
	case p.tasks <- t:
		return t.fut, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Run submits req and waits for its result.
func (p *Pool) Run(ctx context.Context, req Request) (Result, error) {
	fut, err := p.Submit(ctx, req)
	if err != nil {
		return Result{}, err
	}
	return fut.Wait(), nil
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return p.size
}

// Busy returns the number of workers currently running a process.
func (p *Pool) Busy() int {
	return int(p.busy.Load())
}

// Close stops accepting work and waits for in-flight executions to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for t := range p.tasks {
		p.run(t)
	}
}

func (p *Pool) run(t *task) {
	p.busy.Add(1)
	defer p.busy.Add(-1)
	defer close(t.fut.done)
	defer func() {
		if r := recover(); r != nil {
			clog.Error("executor: panic running %q: %v", t.req.Command, r)
			t.fut.res = Failed("internal executor error")
		}
	}()

	// Caller cancellation must not kill a running child; only the timeout does.
	t.fut.res = p.exec.Execute(context.WithoutCancel(t.ctx), t.req)
}
