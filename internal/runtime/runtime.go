package runtime

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/vinodismyname/mcpsheets/config"
)

// Limits captures the concurrency and payload guardrails configured for the server.
type Limits struct {
	// Concurrency caps
	MaxConcurrentRequests int
	MaxOpenFiles          int

	// Payload and row bounds
	MaxPayloadBytes int
	PreviewRowLimit int

	// Timeouts
	OperationTimeout      time.Duration
	AcquireRequestTimeout time.Duration
}

// NewLimits initializes Limits with fallbacks when values are unset.
func NewLimits(maxConcurrentRequests, maxOpenFiles int) Limits {
	if maxConcurrentRequests <= 0 {
		maxConcurrentRequests = config.DefaultMaxConcurrentRequests
	}
	if maxOpenFiles <= 0 {
		maxOpenFiles = config.DefaultMaxOpenFiles
	}

	return Limits{
		MaxConcurrentRequests: maxConcurrentRequests,
		MaxOpenFiles:          maxOpenFiles,
		MaxPayloadBytes:       config.DefaultMaxPayloadBytes,
		PreviewRowLimit:       config.DefaultPreviewRowLimit,
		OperationTimeout:      config.DefaultOperationTimeout,
		AcquireRequestTimeout: config.DefaultAcquireRequestTimeout,
	}
}

// LimitsFromSettings applies environment settings on top of NewLimits.
func LimitsFromSettings(s config.Settings) Limits {
	l := NewLimits(s.MaxConcurrent, s.MaxOpenFiles)
	if s.OperationTimeout > 0 {
		l.OperationTimeout = s.OperationTimeout
	}
	return l
}

// Controller coordinates runtime semaphores for request and open-file guardrails.
type Controller struct {
	limits      Limits
	requestSem  *semaphore.Weighted
	openFileSem *semaphore.Weighted
}

// NewController constructs a Controller backed by weighted semaphores.
func NewController(limits Limits) *Controller {
	return &Controller{
		limits:      limits,
		requestSem:  semaphore.NewWeighted(int64(limits.MaxConcurrentRequests)),
		openFileSem: semaphore.NewWeighted(int64(limits.MaxOpenFiles)),
	}
}

// AcquireRequest reserves capacity for an incoming request.
func (c *Controller) AcquireRequest(ctx context.Context) error {
	return c.requestSem.Acquire(ctx, 1)
}

// ReleaseRequest frees previously-acquired request capacity.
func (c *Controller) ReleaseRequest() {
	c.requestSem.Release(1)
}

// AcquireFile reserves an open-file slot.
func (c *Controller) AcquireFile(ctx context.Context) error {
	return c.openFileSem.Acquire(ctx, 1)
}

// ReleaseFile frees an open-file slot.
func (c *Controller) ReleaseFile() {
	c.openFileSem.Release(1)
}

// LimitsSnapshot exposes the configured guardrails for telemetry and discovery.
func (c *Controller) LimitsSnapshot() Limits {
	return c.limits
}
