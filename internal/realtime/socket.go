// Package realtime owns the two push feeds: the match-score broadcast and
// the per-user chat/notification stream. Each logical feed is a single
// Channel value; connecting a channel again supersedes the previous
// transport, so duplicate live sockets for one feed cannot exist by
// construction.
package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"footysync/internal/constants"
)

type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosed
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
	default:
		return "unknown"
	}
}

// Listener receives decoded events synchronously, in network arrival
// order. Keep-alive acks never reach listeners.
type Listener func(Event)

type Channel struct {
	name   string
	url    string
	logger zerolog.Logger

	// reconnectDelay is constants.ReconnectDelay outside of tests.
	reconnectDelay time.Duration

	mu        sync.Mutex
	state     State
	conn      *websocket.Conn
	cancelRun context.CancelFunc
	reconnect *time.Timer
	dialGen   uint64
	listeners []Listener
}

func newChannel(name, url string, logger zerolog.Logger) *Channel {
	return &Channel{
		name:           name,
		url:            url,
		logger:         logger.With().Str("channel", name).Logger(),
		reconnectDelay: constants.ReconnectDelay,
		state:          StateIdle,
	}
}

func (c *Channel) Name() string { return c.name }

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers a listener for all future events on this channel.
func (c *Channel) Subscribe(fn Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Connect establishes the transport, superseding any previous connection
// for this channel. Safe to call repeatedly.
func (c *Channel) Connect(ctx context.Context) error {
	c.mu.Lock()
	return c.connectLocked(ctx)
}

// connectLocked takes ownership of c.mu and releases it before dialing,
// so a supersede check and the supersede itself happen under one
// acquisition.
func (c *Channel) connectLocked(ctx context.Context) error {
	c.teardownLocked("superseded")
	c.state = StateConnecting
	c.dialGen++
	gen := c.dialGen
	c.mu.Unlock()

	dialCtx, cancel := context.WithTimeout(ctx, constants.DialTimeout)
	conn, _, err := websocket.Dial(dialCtx, c.url, nil)
	cancel()

	c.mu.Lock()
	if gen != c.dialGen {
		// A newer Connect or Disconnect won the race.
		c.mu.Unlock()
		if conn != nil {
			_ = conn.Close(websocket.StatusNormalClosure, "superseded")
		}
		return nil
	}
	if err != nil {
		c.state = StateClosed
		c.scheduleReconnectLocked()
		c.mu.Unlock()
		c.logger.Warn().Err(err).Msg("dial failed")
		return fmt.Errorf("dial %s feed: %w", c.name, err)
	}

	runCtx, cancelRun := context.WithCancel(context.Background())
	c.conn = conn
	c.cancelRun = cancelRun
	c.state = StateOpen
	c.mu.Unlock()

	c.logger.Info().Msg("feed connected")
	go c.heartbeat(runCtx, conn)
	go c.readLoop(runCtx, conn)
	return nil
}

// Disconnect is the intentional local teardown: idempotent, cancels any
// pending reconnect, stops the heartbeat and closes the transport with
// the normal-closure code so the auto-reconnect path never fires.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dialGen++
	c.teardownLocked("client disconnect")
	c.state = StateIdle
}

func (c *Channel) teardownLocked(reason string) {
	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}
	if c.cancelRun != nil {
		c.cancelRun()
		c.cancelRun = nil
	}
	if c.conn != nil {
		_ = c.conn.Close(websocket.StatusNormalClosure, reason)
		c.conn = nil
	}
}

func (c *Channel) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			c.handleClose(conn, err)
			return
		}

		ev, err := decodeEvent(data)
		if err != nil {
			c.logger.Warn().Err(err).Msg("dropping malformed event")
			continue
		}
		if ev == nil {
			// keep-alive ack
			continue
		}
		c.dispatch(ev)
	}
}

func (c *Channel) dispatch(ev Event) {
	c.mu.Lock()
	listeners := make([]Listener, len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(ev)
	}
}

func (c *Channel) handleClose(conn *websocket.Conn, err error) {
	c.mu.Lock()
	if c.conn != conn {
		// Already superseded or torn down locally; nothing to do.
		c.mu.Unlock()
		return
	}
	c.conn = nil
	if c.cancelRun != nil {
		c.cancelRun()
		c.cancelRun = nil
	}
	c.state = StateClosed

	status := websocket.CloseStatus(err)
	switch status {
	case websocket.StatusCode(constants.CloseNormal),
		websocket.StatusCode(constants.CloseUnauthorized),
		websocket.StatusCode(constants.CloseForbidden):
		// Intentional closure or terminal rejection: do not reconnect.
		c.state = StateIdle
		c.mu.Unlock()
		c.logger.Info().Int("code", int(status)).Msg("feed closed, reconnect suppressed")
		return
	}

	c.scheduleReconnectLocked()
	c.mu.Unlock()
	c.logger.Warn().Err(err).Msg("feed closed unexpectedly")
}

func (c *Channel) scheduleReconnectLocked() {
	if c.reconnect != nil {
		return
	}
	gen := c.dialGen
	c.logger.Info().Dur("delay", c.reconnectDelay).Msg("scheduling reconnect")
	c.reconnect = time.AfterFunc(c.reconnectDelay, func() {
		c.mu.Lock()
		c.reconnect = nil
		if c.dialGen != gen || c.state != StateClosed {
			// An explicit connect or disconnect got here first.
			c.mu.Unlock()
			return
		}
		// Errors reschedule internally; nothing more to do here.
		_ = c.connectLocked(context.Background())
	})
}

func (c *Channel) heartbeat(ctx context.Context, conn *websocket.Conn) {
	t := time.NewTicker(constants.HeartbeatInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			wctx, cancel := context.WithTimeout(ctx, constants.WriteTimeout)
			err := conn.Write(wctx, websocket.MessageText, []byte(constants.PingToken))
			cancel()
			if err != nil {
				// The read loop observes the same failure and drives the
				// close path; the heartbeat just stops.
				return
			}
		}
	}
}
