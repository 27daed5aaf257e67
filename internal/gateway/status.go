package gateway

import (
	"context"

	"github.com/xdg/cmdgate/internal/governor"
	"github.com/xdg/cmdgate/internal/policy"
	"github.com/xdg/cmdgate/internal/tools"
)

type contextKey int

const requestIDKey contextKey = iota

// WithRequestID attaches a request ID used to correlate audit events.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request ID attached to ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// Health status values.
const (
	HealthOK   = "ok"
	HealthBusy = "busy"
)

// Health is the unauthenticated liveness report.
type Health struct {
	Status string `json:"status"`
	governor.Stats
	Workers     int `json:"workers"`
	BusyWorkers int `json:"busy_workers"`
}

// Health reports governor and pool state. Status is "busy" while a new
// request would be refused admission.
func (g *Gateway) Health() Health {
	st := g.gov.Stats()
	status := HealthOK
	if st.Active >= st.MaxConcurrent || st.MemoryMB > st.MaxMemoryMB {
		status = HealthBusy
	}
	return Health{
		Status:      status,
		Stats:       st,
		Workers:     g.pool.Size(),
		BusyWorkers: g.pool.Busy(),
	}
}

// Limits are the request limits advertised to callers.
type Limits struct {
	MaxCommandLength      int    `json:"max_command_length"`
	MaxArgs               int    `json:"max_args"`
	MaxEnv                int    `json:"max_env"`
	MaxCwdLength          int    `json:"max_cwd_length"`
	DefaultTimeoutSeconds int    `json:"default_timeout_seconds"`
	MaxTimeoutSeconds     int    `json:"max_timeout_seconds"`
	MaxConcurrent         int    `json:"max_concurrent_requests"`
	MaxMemoryMB           uint64 `json:"max_memory_mb"`
}

// Capabilities describes what the gateway will accept.
type Capabilities struct {
	Tools  map[tools.Category][]string `json:"tools"`
	Limits Limits                      `json:"limits"`
	Policy policy.Mode                 `json:"policy"`
}

// Capabilities lists tools by category together with the active limits and
// policy mode.
func (g *Gateway) Capabilities() Capabilities {
	st := g.gov.Stats()
	return Capabilities{
		Tools: g.tools.ByCategory(),
		Limits: Limits{
			MaxCommandLength:      MaxCommandLength,
			MaxArgs:               MaxArgs,
			MaxEnv:                MaxEnv,
			MaxCwdLength:          MaxCwdLength,
			DefaultTimeoutSeconds: DefaultTimeoutSeconds,
			MaxTimeoutSeconds:     MaxTimeoutSeconds,
			MaxConcurrent:         st.MaxConcurrent,
			MaxMemoryMB:           st.MaxMemoryMB,
		},
		Policy: g.policy.Mode(),
	}
}
