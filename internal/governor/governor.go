// Package governor decides whether a new execution may start given the
// number of requests already in flight and the gateway's memory footprint.
//
// Admission never queues: Admit either grants a Slot immediately or returns
// a *Denied carrying the cause and an advisory retry delay. Every granted
// Slot must be released exactly once; Slot.Release is idempotent so a
// deferred release on every exit path is always safe.
package governor

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/xdg/cmdgate/internal/clog"
)

// Cause identifies which ceiling rejected an admission.
type Cause string

const (
	// CauseMemory means resident memory is above the configured ceiling.
	CauseMemory Cause = "memory"
	// CauseConcurrency means the in-flight request ceiling is reached.
	CauseConcurrency Cause = "concurrency"
)

// Advisory retry delays returned with a denial.
const (
	MemoryRetryAfter      = 30 * time.Second
	ConcurrencyRetryAfter = 15 * time.Second
)

// Defaults used when a Config field is zero.
const (
	DefaultMaxConcurrent = 10
	DefaultMaxMemoryMB   = 1024
)

// Denied is returned by Admit when a ceiling is hit.
type Denied struct {
	Cause      Cause
	RetryAfter time.Duration
}

func (d *Denied) Error() string {
	switch d.Cause {
	case CauseMemory:
		return "system busy: memory ceiling reached"
	case CauseConcurrency:
		return "too many requests: concurrency ceiling reached"
	default:
		return fmt.Sprintf("admission denied: %s", d.Cause)
	}
}

// IsDenied reports whether err is an admission denial and returns it.
func IsDenied(err error) (*Denied, bool) {
	var d *Denied
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}

// MemorySampler reports the resident memory of the gateway in megabytes.
type MemorySampler interface {
	ResidentMB() (uint64, error)
}

// MemorySamplerFunc adapts a function to MemorySampler.
type MemorySamplerFunc func() (uint64, error)

// ResidentMB calls f.
func (f MemorySamplerFunc) ResidentMB() (uint64, error) {
	return f()
}

// Config holds the admission ceilings.
type Config struct {
	MaxConcurrent int
	MaxMemoryMB   uint64
	// Sampler defaults to ProcessSampler.
	Sampler MemorySampler
}

// Stats is a point-in-time view of the governor for health reporting.
type Stats struct {
	Active        int    `json:"active_requests"`
	MaxConcurrent int    `json:"max_concurrent_requests"`
	MemoryMB      uint64 `json:"memory_mb"`
	MaxMemoryMB   uint64 `json:"max_memory_mb"`
}

// Governor tracks in-flight requests and admits or rejects new ones.
type Governor struct {
	maxConcurrent int
	maxMemoryMB   uint64
	sampler       MemorySampler

	slots     *semaphore.Weighted
	active    atomic.Int64
	lastMemMB atomic.Uint64
}

// New creates a Governor. Zero ceilings fall back to the defaults.
func New(cfg Config) *Governor {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.MaxMemoryMB == 0 {
		cfg.MaxMemoryMB = DefaultMaxMemoryMB
	}
	if cfg.Sampler == nil {
		cfg.Sampler = ProcessSampler{}
	}
	return &Governor{
		maxConcurrent: cfg.MaxConcurrent,
		maxMemoryMB:   cfg.MaxMemoryMB,
		sampler:       cfg.Sampler,
		slots:         semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
	}
}

// Admit checks memory first, then concurrency, and grants a Slot if both
// are below their ceilings. It never blocks.
func (g *Governor) Admit() (*Slot, error) {
	mem, err := g.sampler.ResidentMB()
	if err != nil {
		// An unreadable sample must not take the gateway down; fall through
		// to the concurrency ceiling.
		clog.Warn("governor: memory sample failed: %v", err)
	} else {
		g.lastMemMB.Store(mem)
		if mem > g.maxMemoryMB {
			return nil, &Denied{Cause: CauseMemory, RetryAfter: MemoryRetryAfter}
		}
	}

	if !g.slots.TryAcquire(1) {
		return nil, &Denied{Cause: CauseConcurrency, RetryAfter: ConcurrencyRetryAfter}
	}
	g.active.Add(1)
	return &Slot{g: g}, nil
}

// Active returns the number of admitted requests not yet released.
func (g *Governor) Active() int {
	return int(g.active.Load())
}

// Stats returns the current counters and ceilings.
func (g *Governor) Stats() Stats {
	return Stats{
		Active:        g.Active(),
		MaxConcurrent: g.maxConcurrent,
		MemoryMB:      g.lastMemMB.Load(),
		MaxMemoryMB:   g.maxMemoryMB,
	}
}

// LastMemoryMB returns the most recent memory sample.
func (g *Governor) LastMemoryMB() uint64 {
	return g.lastMemMB.Load()
}

func (g *Governor) release() {
	if g.active.Add(-1) < 0 {
		// Unreachable through Slot; restore and complain loudly.
		g.active.Add(1)
		clog.Error("governor: active counter would go negative")
		return
	}
	g.slots.Release(1)
}

// Slot is the unit of capacity held between Admit and Release.
type Slot struct {
	g    *Governor
	once sync.Once
}

// Release returns the slot to the governor. Calls after the first are no-ops.
func (s *Slot) Release() {
	if s == nil {
		return
	}
	s.once.Do(s.g.release)
}
