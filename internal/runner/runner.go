// Package runner coordinates the two concurrent loops of the service: the
// update loop that polls the messaging transport and dispatches activation
// traffic, and the cron-scheduled expiration sweep. The loops share no
// mutable state and neither ever blocks the other.
package runner

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/grupovip/gatekeeper/internal/activation"
	"github.com/grupovip/gatekeeper/internal/sweep"
	"github.com/grupovip/gatekeeper/pkg/telegram"
)

const (
	defaultPollDelay     = time.Second
	defaultSweepSchedule = "@every 6h"
)

// Options configures the runner's cadences
type Options struct {
	// PollDelay is the fixed pause between getUpdates iterations
	PollDelay time.Duration

	// SweepSchedule is a cron spec (e.g. "@every 6h") for the expiration sweep
	SweepSchedule string
}

// SweepStatus records the outcome of the most recent sweep pass
type SweepStatus struct {
	LastRun   time.Time `json:"last_run"`
	Processed int       `json:"processed"`
	Error     string    `json:"error,omitempty"`
}

// Runner owns the update cursor and the sweep timer
type Runner struct {
	gateway telegram.Gateway
	handler *activation.Handler
	sweeper *sweep.Sweeper

	pollDelay     time.Duration
	sweepSchedule string
	cron          *cron.Cron

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mutex     sync.RWMutex
	offset    int64
	lastSweep SweepStatus
}

// NewRunner creates a runner for the given gateway, handler, and sweeper
func NewRunner(gateway telegram.Gateway, handler *activation.Handler, sweeper *sweep.Sweeper, opts *Options) *Runner {
	pollDelay := defaultPollDelay
	sweepSchedule := defaultSweepSchedule
	if opts != nil {
		if opts.PollDelay > 0 {
			pollDelay = opts.PollDelay
		}
		if opts.SweepSchedule != "" {
			sweepSchedule = opts.SweepSchedule
		}
	}

	return &Runner{
		gateway:       gateway,
		handler:       handler,
		sweeper:       sweeper,
		pollDelay:     pollDelay,
		sweepSchedule: sweepSchedule,
		cron:          cron.New(),
	}
}

// Start launches the update loop and schedules the sweep. Both stop when ctx
// is cancelled or Stop is called.
func (r *Runner) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	if _, err := r.cron.AddFunc(r.sweepSchedule, r.scheduledSweep); err != nil {
		r.cancel()
		return err
	}
	r.cron.Start()

	r.wg.Add(1)
	go r.updateLoop()

	log.Printf("[RUNNER]: started (poll delay %s, sweep schedule %q)", r.pollDelay, r.sweepSchedule)
	return nil
}

// Stop cancels both loops and waits for them to finish
func (r *Runner) Stop() {
	r.cancel()
	<-r.cron.Stop().Done()
	r.wg.Wait()
	log.Printf("[RUNNER]: stopped")
}

// updateLoop polls the transport, dispatches updates, and pauses the fixed
// delay between iterations. Transport errors are logged and the loop retries
// after the same delay.
func (r *Runner) updateLoop() {
	defer r.wg.Done()

	for {
		updates, err := r.gateway.FetchUpdates(r.ctx, r.Offset())
		if err != nil {
			if r.ctx.Err() != nil {
				return
			}
			log.Printf("[RUNNER]: failed to fetch updates: %v", err)
		}

		for _, update := range updates {
			r.dispatch(update)
		}

		select {
		case <-r.ctx.Done():
			return
		case <-time.After(r.pollDelay):
		}
	}
}

// dispatch routes one update. The cursor advances past every update,
// matched or not, so nothing is ever reprocessed.
func (r *Runner) dispatch(update telegram.Update) {
	r.advance(update.UpdateID + 1)

	switch {
	case update.Message != nil && activation.IsStartCommand(update.Message.Text):
		if err := r.handler.HandleStart(r.ctx, update.Message); err != nil {
			log.Printf("[RUNNER]: start handler failed for update %d: %v", update.UpdateID, err)
		}
	case update.CallbackQuery != nil:
		if err := r.handler.HandleCallback(r.ctx, update.CallbackQuery); err != nil {
			log.Printf("[RUNNER]: callback handler failed for update %d: %v", update.UpdateID, err)
		}
	}
}

// scheduledSweep runs one sweep pass from the cron schedule. A failed pass
// is logged and the loop waits for the next scheduled interval.
func (r *Runner) scheduledSweep() {
	if _, err := r.RunSweep(r.ctx); err != nil {
		log.Printf("[RUNNER]: sweep pass failed: %v", err)
	}
}

// RunSweep executes one sweep pass now and records its outcome. It is called
// by the cron schedule and by the ops API's manual trigger.
func (r *Runner) RunSweep(ctx context.Context) (int, error) {
	processed, err := r.sweeper.Run(ctx)

	status := SweepStatus{
		LastRun:   time.Now().UTC(),
		Processed: processed,
	}
	if err != nil {
		status.Error = err.Error()
	}

	r.mutex.Lock()
	r.lastSweep = status
	r.mutex.Unlock()

	return processed, err
}

// Offset returns the current update cursor
func (r *Runner) Offset() int64 {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.offset
}

// advance moves the update cursor forward, never backward
func (r *Runner) advance(offset int64) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if offset > r.offset {
		r.offset = offset
	}
}

// LastSweep returns the outcome of the most recent sweep pass
func (r *Runner) LastSweep() SweepStatus {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.lastSweep
}
