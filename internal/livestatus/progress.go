// Package livestatus tracks the live progress of one running campaign,
// either over the backend's websocket push channel or by polling the
// status endpoint. Push and polling are mutually exclusive per
// campaign view; each mode is its own type and both share the same
// state machine: Idle -> Connecting -> Open -> Closed | Failed.
package livestatus

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pagereach/console/internal/backend"
	"github.com/pagereach/console/internal/config"
)

// ErrConnectionLost is the terminal failure: the consecutive-failure
// budget is spent and the channel gave up. The campaign itself may
// still be running; the user has to check its status manually.
var ErrConnectionLost = errors.New("live status: connection lost")

// ErrAlreadyStarted is returned by Start on a channel that is already
// running.
var ErrAlreadyStarted = errors.New("live status: already started")

// ErrChannelClosed is returned by Start after Close.
var ErrChannelClosed = errors.New("live status: channel closed")

// State of a live status channel. Closed and Failed are terminal:
// Closed is a clean end (caller closed it, or the campaign completed),
// Failed means the failure budget ran out.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Callbacks deliver channel activity to the consumer. All callbacks are
// invoked from the channel's own goroutine; they must not block for
// long and must not call Close (close from another goroutine instead).
// Nil callbacks are skipped. After the channel reaches a terminal state
// no further callbacks fire.
type Callbacks struct {
	// OnStatus receives every applied status update.
	OnStatus func(backend.CampaignStatus)
	// OnEvent receives server messages the channel does not interpret,
	// verbatim.
	OnEvent func(Message)
	// OnStateChange fires on every state transition.
	OnStateChange func(State)
	// OnError receives transient failures and, once the budget is
	// spent, ErrConnectionLost.
	OnError func(error)
}

// Options tune a channel. Zero values fall back to the defaults the
// product ships with: 30s probes, 2s polls, 10 consecutive failures,
// 1s..30s reconnect backoff.
type Options struct {
	ProbeInterval time.Duration
	PollInterval  time.Duration
	MaxFailures   int
	RetryBase     time.Duration
	RetryMax      time.Duration
}

// OptionsFromConfig lifts the file/env configuration into Options.
func OptionsFromConfig(cfg config.LiveStatusConfig) Options {
	return Options{
		ProbeInterval: cfg.ProbeInterval(),
		PollInterval:  cfg.PollInterval(),
		MaxFailures:   cfg.MaxFailures,
	}
}

func (o Options) withDefaults() Options {
	if o.ProbeInterval <= 0 {
		o.ProbeInterval = 30 * time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 2 * time.Second
	}
	if o.MaxFailures <= 0 {
		o.MaxFailures = 10
	}
	if o.RetryBase <= 0 {
		o.RetryBase = 1 * time.Second
	}
	if o.RetryMax <= 0 {
		o.RetryMax = 30 * time.Second
	}
	return o
}

// progress is the bookkeeping both modes share: current state, the last
// applied status, and the consecutive-failure counter. Callbacks fire
// outside the lock.
type progress struct {
	cb          Callbacks
	log         *zap.Logger
	maxFailures int

	mu       sync.Mutex
	state    State
	last     *backend.CampaignStatus
	failures int
}

// State returns the current channel state.
func (p *progress) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// LastStatus returns a copy of the most recently applied status, or
// nil if none arrived yet. Transient failures never wipe it.
func (p *progress) LastStatus() *backend.CampaignStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return nil
	}
	s := *p.last
	return &s
}

func (p *progress) terminal() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == StateClosed || p.state == StateFailed
}

// transition moves to s unless the state is already s or terminal.
func (p *progress) transition(s State) {
	p.mu.Lock()
	if p.state == s || p.state == StateClosed || p.state == StateFailed {
		p.mu.Unlock()
		return
	}
	p.state = s
	cb := p.cb.OnStateChange
	p.mu.Unlock()

	if cb != nil {
		cb(s)
	}
}

// apply stores a status update and hands it to the consumer. Updates
// are applied exactly as received; a payload that breaks the
// processed<=total contract is reported but never repaired here.
// Returns true when the update marks the campaign complete.
func (p *progress) apply(status backend.CampaignStatus) bool {
	if err := status.Validate(); err != nil {
		p.log.Warn("campaign status violates backend contract",
			zap.String("campaign_id", status.CampaignID),
			zap.Error(err),
		)
	}

	p.mu.Lock()
	if p.state == StateClosed || p.state == StateFailed {
		p.mu.Unlock()
		return true
	}
	s := status
	p.last = &s
	p.failures = 0
	cb := p.cb.OnStatus
	p.mu.Unlock()

	if cb != nil {
		cb(status)
	}
	return status.IsComplete
}

// recordFailure counts one consecutive failure. When the budget is
// spent it transitions to Failed, surfaces ErrConnectionLost, and
// returns true; the caller must stop without another attempt.
func (p *progress) recordFailure(err error) bool {
	p.mu.Lock()
	if p.state == StateClosed || p.state == StateFailed {
		p.mu.Unlock()
		return true
	}
	p.failures++
	failures := p.failures
	exhausted := failures >= p.maxFailures
	if exhausted {
		p.state = StateFailed
	}
	onState := p.cb.OnStateChange
	onError := p.cb.OnError
	p.mu.Unlock()

	if exhausted {
		p.log.Error("live status gave up",
			zap.Int("consecutive_failures", failures),
			zap.Error(err),
		)
		if onState != nil {
			onState(StateFailed)
		}
		if onError != nil {
			onError(ErrConnectionLost)
		}
		return true
	}

	p.log.Warn("live status check failed",
		zap.Int("consecutive_failures", failures),
		zap.Int("budget", p.maxFailures),
		zap.Error(err),
	)
	if onError != nil {
		onError(err)
	}
	return false
}

func (p *progress) resetFailures() {
	p.mu.Lock()
	p.failures = 0
	p.mu.Unlock()
}

// emit forwards an uninterpreted server message.
func (p *progress) emit(msg Message) {
	p.mu.Lock()
	cb := p.cb.OnEvent
	terminal := p.state == StateClosed || p.state == StateFailed
	p.mu.Unlock()

	if cb != nil && !terminal {
		cb(msg)
	}
}
