package livestatus

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pagereach/console/internal/backend"
)

// StatusFetcher fetches the current status of one campaign.
// *backend.Client satisfies it.
type StatusFetcher interface {
	CampaignStatus(ctx context.Context, id string) (*backend.CampaignStatus, error)
}

// Poller is the fallback delivery mode: it asks the status endpoint
// every PollInterval and feeds responses through the same apply path
// the push channel uses. Same state machine, same failure budget, same
// completion teardown.
type Poller struct {
	progress

	fetch      StatusFetcher
	campaignID string
	interval   time.Duration

	started bool
	closed  bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewPoller creates a polling channel for one campaign.
func NewPoller(fetch StatusFetcher, campaignID string, opts Options, cb Callbacks, log *zap.Logger) *Poller {
	if log == nil {
		log = zap.NewNop()
	}
	opts = opts.withDefaults()
	return &Poller{
		progress: progress{
			cb:          cb,
			log:         log,
			maxFailures: opts.MaxFailures,
			state:       StateIdle,
		},
		fetch:      fetch,
		campaignID: campaignID,
		interval:   opts.PollInterval,
		done:       make(chan struct{}),
	}
}

// CampaignID returns the campaign this poller follows.
func (p *Poller) CampaignID() string { return p.campaignID }

// Done is closed when the poll loop has fully stopped.
func (p *Poller) Done() <-chan struct{} { return p.done }

// Start begins polling. May be called once.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrChannelClosed
	}
	if p.started {
		p.mu.Unlock()
		return ErrAlreadyStarted
	}
	p.started = true
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.mu.Unlock()

	p.transition(StateConnecting)
	go func() {
		defer cancel()
		p.run(runCtx)
	}()
	return nil
}

// Close stops polling. Idempotent, safe from any state. Must not be
// called from inside a callback.
func (p *Poller) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	cancel := p.cancel
	started := p.started
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if !started {
		p.transition(StateClosed)
		close(p.done)
	}
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)

	// First check goes out immediately; the ticker covers the rest.
	if p.poll(ctx) {
		return
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.transition(StateClosed)
			return
		case <-ticker.C:
			if p.poll(ctx) {
				return
			}
		}
	}
}

// poll performs one status check. Returns true when the loop must stop:
// campaign complete, budget spent, or cancelled.
func (p *Poller) poll(ctx context.Context) bool {
	status, err := p.fetch.CampaignStatus(ctx, p.campaignID)
	if err != nil {
		if ctx.Err() != nil {
			p.transition(StateClosed)
			return true
		}
		return p.recordFailure(err)
	}

	p.transition(StateOpen)
	if p.apply(*status) {
		p.transition(StateClosed)
		return true
	}
	return false
}
