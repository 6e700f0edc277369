package worker

import (
	"log/slog"
	"sync"
	"time"

	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
)

// Dispatcher runs background jobs on a bounded goroutine pool.
//
// A panicking job is logged with its stack and does not take the process down.
type Dispatcher struct {
	pool *pool.Pool
	log  *slog.Logger

	mu       sync.Mutex
	draining bool
	delayed  map[*delayedJob]struct{}
	timers   sync.WaitGroup
}

type delayedJob struct {
	name  string
	fn    func()
	timer *time.Timer
}

func NewDispatcher(maxGoroutines int, log *slog.Logger) *Dispatcher {
	if maxGoroutines <= 0 {
		maxGoroutines = 8
	}
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		pool:    pool.New().WithMaxGoroutines(maxGoroutines),
		log:     log,
		delayed: map[*delayedJob]struct{}{},
	}
}

// Submit blocks while all workers are busy.
func (d *Dispatcher) Submit(name string, fn func()) {
	d.pool.Go(func() {
		var pc panics.Catcher
		pc.Try(fn)
		if r := pc.Recovered(); r != nil {
			d.log.Error("background job panicked", "job", name, "panic", r.Value, "stack", string(r.Stack))
		}
	})
}

// SubmitAfter submits fn once delay has passed. It does not hold a worker while waiting.
// Jobs still pending when Wait is called are submitted immediately.
func (d *Dispatcher) SubmitAfter(name string, delay time.Duration, fn func()) {
	d.mu.Lock()
	if d.draining || delay <= 0 {
		d.mu.Unlock()
		d.Submit(name, fn)
		return
	}
	j := &delayedJob{name: name, fn: fn}
	d.delayed[j] = struct{}{}
	d.timers.Add(1)
	j.timer = time.AfterFunc(delay, func() { d.fire(j) })
	d.mu.Unlock()
}

func (d *Dispatcher) fire(j *delayedJob) {
	defer d.timers.Done()
	d.mu.Lock()
	_, pending := d.delayed[j]
	delete(d.delayed, j)
	d.mu.Unlock()
	if pending {
		d.Submit(j.name, j.fn)
	}
}

// Wait flushes delayed jobs, then blocks until every submitted job has returned.
// No Submit may follow Wait.
func (d *Dispatcher) Wait() {
	d.mu.Lock()
	d.draining = true
	var early []*delayedJob
	for j := range d.delayed {
		if j.timer.Stop() {
			delete(d.delayed, j)
			early = append(early, j)
		}
	}
	d.mu.Unlock()

	for _, j := range early {
		d.Submit(j.name, j.fn)
		d.timers.Done()
	}
	d.timers.Wait()
	d.pool.Wait()
}
