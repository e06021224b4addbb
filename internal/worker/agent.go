// Package worker contains the view materializer and the polling agent that drives it.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Processor handles at most one queued job per call. It reports whether a job was
// found; an error after a claim still counts as found.
type Processor interface {
	ProcessNext(ctx context.Context) (bool, error)
}

// AgentConfig holds configuration for the worker agent.
type AgentConfig struct {
	ID           string
	Concurrency  int
	PollInterval time.Duration
	MaxBackoff   time.Duration // Maximum backoff when queue is empty (default: 30s)
	JobTimeout   time.Duration // Upper bound for one job (default: 5m)
}

// Agent is the main worker agent that runs the pull-loop for job processing.
type Agent struct {
	processor Processor
	config    AgentConfig
	log       *slog.Logger
	done      chan struct{}
}

// New creates a new worker agent.
func New(p Processor, config AgentConfig, log *slog.Logger) *Agent {
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}

	if config.PollInterval <= 0 {
		config.PollInterval = 1 * time.Second
	}

	if config.MaxBackoff <= 0 {
		config.MaxBackoff = 30 * time.Second
	}

	if config.JobTimeout <= 0 {
		config.JobTimeout = 5 * time.Minute
	}

	return &Agent{
		processor: p,
		config:    config,
		log:       log.With("worker_id", config.ID),
		done:      make(chan struct{}),
	}
}

// Run starts the main pull-loop. It blocks until the context is cancelled.
// On cancellation it stops claiming new work and lets in-flight jobs finish.
func (a *Agent) Run(ctx context.Context) error {
	a.log.Info("agent starting", "concurrency", a.config.Concurrency)

	// Semaphore to limit concurrency
	sem := make(chan struct{}, a.config.Concurrency)
	var wg sync.WaitGroup

	// Channel to signal when a slot becomes available (adaptive polling)
	pollNow := make(chan struct{}, 1)

	// Whether each finished attempt found a job
	results := make(chan bool, a.config.Concurrency)

	// Current backoff duration (increases on empty queue, resets on work found)
	currentBackoff := a.config.PollInterval

	// Helper to trigger immediate non-blocking re-poll
	triggerPoll := func() {
		select {
		case pollNow <- struct{}{}:
		default:
			// Already a poll pending
		}
	}

	// Initial poll
	triggerPoll()

	for {
		select {
		case <-ctx.Done():
			a.log.Info("context cancelled, waiting for running jobs to finish")
			wg.Wait()
			close(a.done)
			return ctx.Err()

		case <-time.After(currentBackoff):
			// Timer-based poll (with backoff)
			triggerPoll()

		case found := <-results:
			if !found {
				// Empty queue - increase backoff (exponential, capped at MaxBackoff)
				currentBackoff = currentBackoff * 2
				if currentBackoff > a.config.MaxBackoff {
					currentBackoff = a.config.MaxBackoff
				}
				continue
			}
			// Found work - reset backoff and look for more right away
			currentBackoff = a.config.PollInterval
			triggerPoll()

		case <-pollNow:
			if len(sem) >= a.config.Concurrency {
				continue
			}
			sem <- struct{}{}

			wg.Add(1)
			go func() {
				defer wg.Done()
				found := a.processOne(ctx)
				<-sem
				select {
				case results <- found:
				case <-ctx.Done():
				}
			}()

			// Fill the remaining slots once there is work
			if currentBackoff == a.config.PollInterval && len(sem) < a.config.Concurrency {
				triggerPoll()
			}
		}
	}
}

// Done returns a channel that is closed when the agent has fully stopped.
func (a *Agent) Done() <-chan struct{} {
	return a.done
}

// processOne runs one claim attempt. A claimed job runs to completion even when ctx is
// cancelled mid-way, bounded by JobTimeout.
func (a *Agent) processOne(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.config.JobTimeout)
	defer cancel()

	found, err := a.processor.ProcessNext(jobCtx)
	if err != nil {
		a.log.Warn("job processing failed", "error", err)
	}
	return found
}
