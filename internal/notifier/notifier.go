// Package notifier polls the backend for vehicles over their parking time
// limit and drives the alert views. Polling slows down while the display is
// hidden and never stops on errors.
package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/andjpython/Estacionamento-Free/internal/clock"
	"github.com/andjpython/Estacionamento-Free/internal/logging"
	"github.com/andjpython/Estacionamento-Free/internal/transport"
	"github.com/andjpython/Estacionamento-Free/pkg/model"
)

// Default polling cadence.
const (
	DefaultActiveInterval     = 15 * time.Second
	DefaultBackgroundInterval = 60 * time.Second
	DefaultPath               = "/tempo-excedido"
)

// ErrPollFailed wraps a failed poll: transport error, non-2xx or bad JSON.
var ErrPollFailed = errors.New("poll failed")

// Poller makes a single unauthenticated request.
type Poller interface {
	Do(ctx context.Context, req transport.Request) (*transport.Response, error)
}

// Options configures a Notifier.
type Options struct {
	ActiveInterval     time.Duration
	BackgroundInterval time.Duration
	Path               string
	Cue                Cue
	Views              []View
	Logger             *slog.Logger
}

// Notifier is the STOPPED / RUNNING_ACTIVE / RUNNING_BACKGROUND state machine.
type Notifier struct {
	poller Poller
	clock  clock.Clock
	cue    Cue
	views  []View
	logger *slog.Logger
	active time.Duration
	bg     time.Duration
	path   string

	mu       sync.Mutex
	state    model.NotifierState
	hidden   bool
	ctx      context.Context
	timer    *clock.Timer
	timerSeq uint64
	run      uint64 // bumped by Start and Stop; stale poll results are dropped
	inflight int

	vehicles  []model.ExceededVehicle
	alert     model.AlertState
	lastCheck time.Time
	nextCheck time.Time
}

// New creates a stopped Notifier.
func New(poller Poller, clk clock.Clock, opts Options) *Notifier {
	if clk == nil {
		clk = clock.Real()
	}
	if opts.ActiveInterval <= 0 {
		opts.ActiveInterval = DefaultActiveInterval
	}
	if opts.BackgroundInterval <= 0 {
		opts.BackgroundInterval = DefaultBackgroundInterval
	}
	if opts.Path == "" {
		opts.Path = DefaultPath
	}
	if opts.Cue == nil {
		opts.Cue = NopCue{}
	}
	return &Notifier{
		poller: poller,
		clock:  clk,
		cue:    opts.Cue,
		views:  opts.Views,
		logger: logging.Component(opts.Logger, "notifier"),
		active: opts.ActiveInterval,
		bg:     opts.BackgroundInterval,
		path:   opts.Path,
		state:  model.NotifierStateStopped,
		alert:  model.AlertStateQuiet,
	}
}

// Start polls once immediately and then every active interval. It is a
// no-op unless the notifier is stopped. ctx bounds every poll until Stop.
func (n *Notifier) Start(ctx context.Context) {
	n.mu.Lock()
	if err := n.transitionLocked(model.NotifierStateRunningActive); err != nil {
		n.mu.Unlock()
		n.logger.Debug("start ignored", "error", err)
		return
	}
	n.ctx = ctx
	n.run++
	run := n.run
	n.scheduleLocked(n.active)
	n.mu.Unlock()

	n.logger.Info("notifier started", "interval", n.active)
	n.poll(ctx, run)
}

// Stop cancels the pending poll and clears the alert views. An in-flight
// poll finishes but its result is discarded. Stop is idempotent.
func (n *Notifier) Stop() {
	n.mu.Lock()
	if err := n.transitionLocked(model.NotifierStateStopped); err != nil {
		n.mu.Unlock()
		return
	}
	n.cancelTimerLocked()
	n.run++
	n.vehicles = nil
	n.alert = model.AlertStateQuiet
	n.nextCheck = time.Time{}
	n.mu.Unlock()

	for _, v := range n.views {
		v.Clear()
	}
	n.logger.Info("notifier stopped")
}

// SetVisibility adapts the cadence to the display: hidden polls every
// background interval, visible every active interval. The pending poll is
// rescheduled from now. A stopped notifier only records the flag.
func (n *Notifier) SetVisibility(hidden bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.hidden = hidden

	var next model.NotifierState
	var interval time.Duration
	switch {
	case hidden && n.state == model.NotifierStateRunningActive:
		next, interval = model.NotifierStateRunningBackground, n.bg
	case !hidden && n.state == model.NotifierStateRunningBackground:
		next, interval = model.NotifierStateRunningActive, n.active
	default:
		return
	}
	if err := n.transitionLocked(next); err != nil {
		n.logger.Warn("visibility change rejected", "error", err)
		return
	}
	n.cancelTimerLocked()
	n.scheduleLocked(interval)
	n.logger.Debug("visibility changed", "hidden", hidden, "state", next, "interval", interval)
}

// Poll fetches the exceeded-vehicle set once and updates the alert state.
// Failures leave the previous state untouched.
func (n *Notifier) Poll(ctx context.Context) error {
	n.mu.Lock()
	run := n.run
	n.mu.Unlock()
	return n.poll(ctx, run)
}

// Status reports the notifier's state and latest poll result.
func (n *Notifier) Status() Snapshot {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.snapshotLocked()
}

// Hidden reports the last visibility signal.
func (n *Notifier) Hidden() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.hidden
}

func (n *Notifier) snapshotLocked() Snapshot {
	return Snapshot{
		State:     n.state,
		Alert:     n.alert,
		Count:     len(n.vehicles),
		Vehicles:  append([]model.ExceededVehicle(nil), n.vehicles...),
		LastCheck: n.lastCheck,
		NextCheck: n.nextCheck,
	}
}

func (n *Notifier) transitionLocked(next model.NotifierState) error {
	if !n.state.CanTransitionTo(next) {
		return &model.InvalidTransitionError{Entity: "notifier", From: n.state.String(), To: next.String()}
	}
	n.state = next
	return nil
}

// scheduleLocked arms the next tick after d.
func (n *Notifier) scheduleLocked(d time.Duration) {
	n.timerSeq++
	seq := n.timerSeq
	n.timer = n.clock.AfterFunc(d, func() { n.tick(seq) })
	n.nextCheck = n.clock.Now().Add(d)
}

func (n *Notifier) cancelTimerLocked() {
	n.timer.Stop()
	n.timer = nil
	n.timerSeq++
}

// tick re-arms the timer, then polls unless a poll is still in flight.
func (n *Notifier) tick(seq uint64) {
	n.mu.Lock()
	if seq != n.timerSeq || !n.state.IsRunning() {
		n.mu.Unlock()
		return
	}
	interval := n.active
	if n.state == model.NotifierStateRunningBackground {
		interval = n.bg
	}
	n.scheduleLocked(interval)
	if n.inflight > 0 {
		n.mu.Unlock()
		n.logger.Debug("previous poll still running, skipping tick")
		return
	}
	ctx, run := n.ctx, n.run
	n.mu.Unlock()

	n.poll(ctx, run)
}

func (n *Notifier) poll(ctx context.Context, run uint64) error {
	n.mu.Lock()
	n.inflight++
	n.mu.Unlock()

	vehicles, err := n.fetch(ctx)

	n.mu.Lock()
	n.inflight--
	if run != n.run {
		n.mu.Unlock()
		n.logger.Debug("discarding result of a stopped run")
		return nil
	}
	if err != nil {
		n.mu.Unlock()
		n.logger.Warn("poll failed", "error", err)
		return err
	}
	prev := n.alert
	n.vehicles = vehicles
	n.alert = model.AlertStateFor(vehicles)
	n.lastCheck = n.clock.Now()
	snap := n.snapshotLocked()
	n.mu.Unlock()

	n.logger.Debug("poll complete", "exceeded", snap.Count, "alert", snap.Alert)
	for _, v := range n.views {
		v.Render(snap)
	}
	if prev == model.AlertStateQuiet && snap.Alert == model.AlertStateAlerting {
		if err := n.cue.Play(); err != nil {
			n.logger.Debug("alert cue unavailable", "error", err)
		}
	}
	return nil
}

func (n *Notifier) fetch(ctx context.Context) ([]model.ExceededVehicle, error) {
	resp, err := n.poller.Do(ctx, transport.Request{Method: http.MethodGet, Path: n.path})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPollFailed, err)
	}
	if !resp.OK() {
		var body model.MessageResponse
		_ = json.Unmarshal(resp.Body, &body)
		return nil, fmt.Errorf("%w: %w", ErrPollFailed, &transport.StatusError{StatusCode: resp.StatusCode, Body: body.Message})
	}
	var out model.ExceededVehiclesResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrPollFailed, err)
	}
	return out.Vehicles, nil
}
