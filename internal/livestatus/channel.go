package livestatus

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/pagereach/console/internal/backend"
)

const writeTimeout = 5 * time.Second

// Channel follows one campaign over the push transport. It subscribes
// after connecting, probes every ProbeInterval to keep intermediaries
// from idling the connection out, reconnects with backoff on drops,
// and tears itself down once the campaign completes.
type Channel struct {
	progress

	dialer        Dialer
	campaignID    string
	probeInterval time.Duration
	retry         backoff

	started bool
	closed  bool
	cancel  context.CancelFunc
	conn    Conn
	done    chan struct{}
}

// NewChannel creates a push channel for one campaign. It does nothing
// until Start.
func NewChannel(dialer Dialer, campaignID string, opts Options, cb Callbacks, log *zap.Logger) *Channel {
	if log == nil {
		log = zap.NewNop()
	}
	opts = opts.withDefaults()
	return &Channel{
		progress: progress{
			cb:          cb,
			log:         log,
			maxFailures: opts.MaxFailures,
			state:       StateIdle,
		},
		dialer:        dialer,
		campaignID:    campaignID,
		probeInterval: opts.ProbeInterval,
		retry:         backoff{base: opts.RetryBase, max: opts.RetryMax},
		done:          make(chan struct{}),
	}
}

// CampaignID returns the campaign this channel follows.
func (c *Channel) CampaignID() string { return c.campaignID }

// Done is closed when the channel's goroutine has fully stopped.
func (c *Channel) Done() <-chan struct{} { return c.done }

// Start begins following the campaign. It fails synchronously when the
// dialer has no token to authenticate with; nothing is dialed in that
// case. Start may be called once.
func (c *Channel) Start(ctx context.Context) error {
	if err := c.dialer.Ready(); err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrChannelClosed
	}
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	c.transition(StateConnecting)
	go func() {
		// Cancelling on exit releases the read pump even when the loop
		// ends for its own reasons (completion, spent budget).
		defer cancel()
		c.run(runCtx)
	}()
	return nil
}

// Close tears the channel down: the probe ticker and reconnect loop are
// cancelled and any open connection is closed before Close returns.
// Safe to call from any state, any number of times. Must not be called
// from inside a callback.
func (c *Channel) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	cancel := c.cancel
	conn := c.conn
	started := c.started
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close()
	}
	if !started {
		c.transition(StateClosed)
		close(c.done)
	}
}

func (c *Channel) setConn(conn Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

func (c *Channel) run(ctx context.Context) {
	defer close(c.done)

	attempt := 0
	for {
		if ctx.Err() != nil {
			c.transition(StateClosed)
			return
		}
		c.transition(StateConnecting)

		conn, err := c.dialer.Dial(ctx, c.campaignID)
		if err != nil {
			if ctx.Err() != nil {
				c.transition(StateClosed)
				return
			}
			c.log.Warn("live connection failed",
				zap.String("campaign_id", c.campaignID),
				zap.Error(err),
			)
			attempt++
			if c.recordFailure(err) {
				return
			}
			c.wait(ctx, c.retry.delay(attempt))
			continue
		}

		c.setConn(conn)
		c.transition(StateOpen)
		attempt = 0

		err = c.serve(ctx, conn)
		c.setConn(nil)
		conn.Close()

		if err == nil {
			// Campaign complete; the channel's work is done.
			c.transition(StateClosed)
			return
		}
		if ctx.Err() != nil {
			c.transition(StateClosed)
			return
		}

		c.log.Warn("live connection dropped",
			zap.String("campaign_id", c.campaignID),
			zap.Error(err),
		)
		attempt++
		if c.recordFailure(err) {
			return
		}
		c.wait(ctx, c.retry.delay(attempt))
	}
}

// serve pumps one open connection. It returns nil when the campaign
// completed, ctx.Err() on cancellation, and the transport error
// otherwise.
func (c *Channel) serve(ctx context.Context, conn Conn) error {
	if err := c.write(ctx, conn, clientMessage{Type: typeSubscribe, CampaignID: c.campaignID}); err != nil {
		return err
	}
	// First probe goes out immediately; the ticker covers the rest.
	if err := c.write(ctx, conn, clientMessage{Type: typePing}); err != nil {
		return err
	}

	msgs := make(chan Message)
	readErr := make(chan error, 1)
	go func() {
		for {
			msg, err := conn.ReadMessage(ctx)
			if err != nil {
				readErr <- err
				return
			}
			select {
			case msgs <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	probes := time.NewTicker(c.probeInterval)
	defer probes.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			return err
		case <-probes.C:
			if err := c.write(ctx, conn, clientMessage{Type: typePing}); err != nil {
				return err
			}
		case msg := <-msgs:
			if c.dispatch(msg) {
				return nil
			}
		}
	}
}

func (c *Channel) write(ctx context.Context, conn Conn, msg clientMessage) error {
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.WriteMessage(writeCtx, msg)
}

// dispatch handles one server message. Any successfully received
// message counts as liveness. Returns true when the campaign is
// complete.
func (c *Channel) dispatch(msg Message) bool {
	c.resetFailures()

	switch msg.Type {
	case TypeConnection:
		c.log.Debug("live channel established",
			zap.String("campaign_id", c.campaignID),
			zap.String("message", msg.Message),
		)
	case TypePong, TypeKeepalive:
		// Liveness acks, nothing to apply.
	case TypeCampaignUpdate:
		var status backend.CampaignStatus
		if err := json.Unmarshal(msg.Data, &status); err != nil {
			c.log.Warn("dropping undecodable campaign update",
				zap.String("campaign_id", c.campaignID),
				zap.Error(err),
			)
			return false
		}
		if status.CampaignID == "" {
			status.CampaignID = msg.CampaignID
		}
		return c.apply(status)
	case TypeError:
		c.log.Warn("server reported an error on the live channel",
			zap.String("campaign_id", c.campaignID),
			zap.String("message", msg.Message),
		)
		c.emit(msg)
	default:
		// Unknown types flow to the consumer untouched so newer
		// servers can ship new message kinds without breaking us.
		c.emit(msg)
	}
	return false
}

func (c *Channel) wait(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
