package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// State is the externally observable connection state of the stream client.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateSubscribed
	StateActive
	StateAwaitingPong
)

// String implements fmt.Stringer for log output.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateSubscribed:
		return "subscribed"
	case StateActive:
		return "active"
	case StateAwaitingPong:
		return "awaiting_pong"
	default:
		return "unknown"
	}
}

// Conn is the minimal transport surface the stream client needs. The default
// implementation is a gorilla/websocket connection; tests inject fakes to
// drive the state machine without a network.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer opens a transport connection to the given URL.
type Dialer func(ctx context.Context, url string) (Conn, error)

// GorillaDialer returns a Dialer backed by gorilla/websocket with the given
// handshake timeout.
func GorillaDialer(handshakeTimeout time.Duration) Dialer {
	return func(ctx context.Context, url string) (Conn, error) {
		dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
		conn, _, err := dialer.DialContext(ctx, url, nil)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}

// BookHandler receives the normalized top-of-book for every book snapshot.
type BookHandler func(tokenID string, tob domain.TopOfBook)

// TradeHandler receives every parsed trade event.
type TradeHandler func(trade domain.Trade)

// StreamConfig configures the stream client. Durations are explicit so tests
// can shrink them; zero values fall back to the documented defaults.
type StreamConfig struct {
	URL      string
	AssetIDs []string

	PingInterval      time.Duration // default 30s
	PongTimeout       time.Duration // default 10s
	DialTimeout       time.Duration // default 15s
	InitialBackoff    time.Duration // default 1s
	MaxBackoff        time.Duration // default 30s
	BackoffResetAfter time.Duration // default 60s of sustained active time

	Dialer Dialer
	Logger *slog.Logger
}

// Stats is a snapshot of the client's operational counters.
type Stats struct {
	Reconnects      int64
	DroppedMessages int64
	PongTimeouts    int64
	BooksReceived   int64
	TradesReceived  int64
}

// StreamClient maintains the Polymarket CLOB market-data connection. It runs
// an explicit state machine:
//
//	Disconnected -> Connecting -> Subscribed -> Active <-> AwaitingPong
//
// with any transport error or pong timeout returning to Disconnected and a
// backoff-delayed reconnect. Reconnection is unbounded; this is a long-running
// monitor.
type StreamClient struct {
	cfg     StreamConfig
	dial    Dialer
	onBook  BookHandler
	onTrade TradeHandler
	logger  *slog.Logger

	state atomic.Int32

	reconnects      atomic.Int64
	droppedMessages atomic.Int64
	pongTimeouts    atomic.Int64
	booksReceived   atomic.Int64
	tradesReceived  atomic.Int64
}

// NewStreamClient creates a stream client for the configured outcome tokens.
func NewStreamClient(cfg StreamConfig, onBook BookHandler, onTrade TradeHandler) (*StreamClient, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("polymarket: stream: url must not be empty")
	}
	if len(cfg.AssetIDs) == 0 {
		return nil, fmt.Errorf("polymarket: stream: at least one asset id is required")
	}

	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = 10 * time.Second
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 15 * time.Second
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	if cfg.BackoffResetAfter <= 0 {
		cfg.BackoffResetAfter = time.Minute
	}

	dial := cfg.Dialer
	if dial == nil {
		dial = GorillaDialer(cfg.DialTimeout)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &StreamClient{
		cfg:     cfg,
		dial:    dial,
		onBook:  onBook,
		onTrade: onTrade,
		logger:  logger.With(slog.String("component", "polymarket_stream")),
	}, nil
}

// State returns the current connection state.
func (c *StreamClient) State() State {
	return State(c.state.Load())
}

// Stats returns a snapshot of the operational counters.
func (c *StreamClient) Stats() Stats {
	return Stats{
		Reconnects:      c.reconnects.Load(),
		DroppedMessages: c.droppedMessages.Load(),
		PongTimeouts:    c.pongTimeouts.Load(),
		BooksReceived:   c.booksReceived.Load(),
		TradesReceived:  c.tradesReceived.Load(),
	}
}

// Run drives the connection until ctx is cancelled. It never returns a
// transport error; those feed the reconnect loop.
func (c *StreamClient) Run(ctx context.Context) error {
	c.logger.InfoContext(ctx, "stream client started",
		slog.String("url", c.cfg.URL),
		slog.Int("assets", len(c.cfg.AssetIDs)),
	)
	defer c.setState(StateDisconnected)
	defer c.logger.Info("stream client stopped")

	bo := newBackoff(c.cfg.InitialBackoff, c.cfg.MaxBackoff)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.setState(StateConnecting)
		conn, err := c.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.setState(StateDisconnected)
			c.reconnects.Add(1)
			delay := bo.Next()
			c.logger.WarnContext(ctx, "connect failed, backing off",
				slog.String("error", err.Error()),
				slog.Duration("retry_in", delay),
			)
			if err := sleepCtx(ctx, delay); err != nil {
				return err
			}
			continue
		}

		c.setState(StateSubscribed)
		activeFor, sessionErr := c.session(ctx, conn)
		_ = conn.Close()
		c.setState(StateDisconnected)

		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.reconnects.Add(1)
		// A link that stayed healthy for a while should not keep paying
		// for earlier flakiness.
		if activeFor >= c.cfg.BackoffResetAfter {
			bo.Reset()
		}
		delay := bo.Next()
		c.logger.WarnContext(ctx, "stream session ended, reconnecting",
			slog.String("error", sessionErr.Error()),
			slog.Duration("active_for", activeFor),
			slog.Duration("retry_in", delay),
		)
		if err := sleepCtx(ctx, delay); err != nil {
			return err
		}
	}
}

// --------------------------------------------------------------------------
// Internal methods
// --------------------------------------------------------------------------

func (c *StreamClient) setState(s State) {
	c.state.Store(int32(s))
}

// connect dials the transport and sends the subscription naming the outcome
// tokens of interest.
func (c *StreamClient) connect(ctx context.Context) (Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	defer cancel()

	conn, err := c.dial(dialCtx, c.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("polymarket: dial: %w", err)
	}

	cmd := SubscribeCommand{AssetIDs: c.cfg.AssetIDs, Type: "MARKET"}
	data, err := json.Marshal(cmd)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("polymarket: marshal subscribe: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("polymarket: send subscribe: %w", err)
	}

	return conn, nil
}

// session reads and dispatches messages on an established connection until a
// transport error, pong timeout, or cancellation. It returns how long the
// connection spent past the first data message (the sustained-active time used
// to reset backoff) along with the terminating error.
func (c *StreamClient) session(ctx context.Context, conn Conn) (time.Duration, error) {
	msgs := make(chan []byte, 64)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				select {
				case readErr <- err:
				case <-done:
				}
				return
			}
			select {
			case msgs <- data:
			case <-done:
				return
			}
		}
	}()

	ping := time.NewTicker(c.cfg.PingInterval)
	defer ping.Stop()

	var activeSince time.Time
	activeFor := func() time.Duration {
		if activeSince.IsZero() {
			return 0
		}
		return time.Since(activeSince)
	}

	var pongDeadline <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return activeFor(), ctx.Err()

		case err := <-readErr:
			return activeFor(), fmt.Errorf("polymarket: read: %v: %w", err, domain.ErrWSDisconnect)

		case <-ping.C:
			data, _ := json.Marshal(PingMessage{Type: "ping"})
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return activeFor(), fmt.Errorf("polymarket: write ping: %v: %w", err, domain.ErrWSDisconnect)
			}
			if c.State() == StateActive {
				c.setState(StateAwaitingPong)
			}
			pongDeadline = time.After(c.cfg.PongTimeout)

		case <-pongDeadline:
			c.pongTimeouts.Add(1)
			return activeFor(), fmt.Errorf("polymarket: no pong within %s: %w",
				c.cfg.PongTimeout, domain.ErrPongTimeout)

		case data := <-msgs:
			pong, dataMsg := c.handleFrame(ctx, data)
			if pong {
				// Any heartbeat acknowledgement resets the pong timer, but
				// only an outstanding ping moves the state back to active.
				pongDeadline = nil
				if c.State() == StateAwaitingPong {
					c.setState(StateActive)
				}
			}
			if dataMsg {
				if activeSince.IsZero() {
					activeSince = time.Now()
				}
				if c.State() == StateSubscribed {
					c.setState(StateActive)
				}
			}
		}
	}
}

// handleFrame parses one inbound frame and dispatches its messages. The feed
// delivers both single objects and arrays of objects. Malformed frames are
// dropped with a warning; they never terminate the connection.
func (c *StreamClient) handleFrame(ctx context.Context, raw []byte) (pong, dataMsg bool) {
	// The feed answers application-level pings with a bare PONG text frame.
	if string(raw) == "PONG" {
		return true, false
	}

	var batch []json.RawMessage
	if err := json.Unmarshal(raw, &batch); err != nil {
		batch = []json.RawMessage{json.RawMessage(raw)}
	}

	for _, item := range batch {
		var env Envelope
		if err := json.Unmarshal(item, &env); err != nil {
			c.dropMessage(ctx, item, err)
			continue
		}

		switch env.Kind() {
		case "pong":
			pong = true

		case "book":
			var book BookMessage
			if err := json.Unmarshal(item, &book); err != nil {
				c.dropMessage(ctx, item, err)
				continue
			}
			dataMsg = true
			c.booksReceived.Add(1)
			if c.onBook != nil {
				c.onBook(book.AssetID, book.TopOfBook(time.Now()))
			}

		case "trade", "last_trade_price":
			var tm TradeMessage
			if err := json.Unmarshal(item, &tm); err != nil {
				c.dropMessage(ctx, item, err)
				continue
			}
			trade, err := tm.Trade(time.Now())
			if err != nil {
				c.dropMessage(ctx, item, err)
				continue
			}
			dataMsg = true
			c.tradesReceived.Add(1)
			if c.onTrade != nil {
				c.onTrade(trade)
			}

		case "price_change", "subscribed", "tick_size_change":
			// Known but unused message types.
			dataMsg = true

		default:
			c.dropMessage(ctx, item, domain.ErrProtocol)
		}
	}

	return pong, dataMsg
}

func (c *StreamClient) dropMessage(ctx context.Context, raw []byte, err error) {
	c.droppedMessages.Add(1)
	if len(raw) > 256 {
		raw = raw[:256]
	}
	c.logger.WarnContext(ctx, "dropped unrecognized message",
		slog.String("error", err.Error()),
		slog.String("payload", string(raw)),
	)
}

// sleepCtx sleeps for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// --------------------------------------------------------------------------
// Reconnect backoff
// --------------------------------------------------------------------------

// backoff produces exponentially increasing delays capped at max. Reset
// returns it to the initial delay after a period of sustained healthy
// connection.
type backoff struct {
	initial time.Duration
	max     time.Duration
	next    time.Duration
}

func newBackoff(initial, max time.Duration) *backoff {
	return &backoff{initial: initial, max: max, next: initial}
}

// Next returns the current delay and doubles the next one, up to the cap.
func (b *backoff) Next() time.Duration {
	d := b.next
	b.next *= 2
	if b.next > b.max {
		b.next = b.max
	}
	return d
}

// Reset returns the backoff to its initial delay.
func (b *backoff) Reset() {
	b.next = b.initial
}
