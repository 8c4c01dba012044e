package forum

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Brace1000/forum-client-go/forum/internal"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// ownEchoWindow bounds how many of our own in-flight message ids we keep
// around for echo suppression.
const ownEchoWindow = 256

// Client owns the single live socket to the chat endpoint. It performs the
// application-level auth handshake after the transport connects, keeps the
// roster patched from presence events, queues messages composed while
// disconnected, and reconnects with exponential backoff after a non-normal
// close.
//
// All shared state is guarded by a mutex: callbacks fire on the read
// goroutine while sends arrive from whatever goroutine owns the UI.
type Client struct {
	cfg        Config
	logger     Logger
	dispatcher Dispatcher
	roster     *Roster
	queue      *messageQueue
	limiter    *rate.Limiter

	mu sync.Mutex

	// registered callbacks, guarded by mu: the UI goroutine may register
	// them while the dispatch goroutine is already delivering frames
	onMessage     func(MessageEvent)
	onUserStatus  func(UserStatusEvent)
	onUsersList   func(UsersListEvent)
	onAuthSuccess func()
	onAuthError   func(string)
	onError       func(error)
	onStateChange func(StateEvent)

	state    ConnState
	conn     *internal.Conn
	writeCh  chan any
	cancel   context.CancelFunc
	runCtx   context.Context
	baseCtx  context.Context
	attempts int
	running  bool
	closed   bool
	ownIDs   map[string]struct{}
	ownOrder []string
}

// NewClient constructs a client with the provided config. Use
// DefaultConfig() as a starting point and modify as needed.
func NewClient(cfg Config) *Client {
	c := &Client{
		cfg:     cfg,
		logger:  noopLogger{},
		roster:  NewRoster(),
		queue:   newMessageQueue(),
		writeCh: make(chan any, 16),
		baseCtx: context.Background(),
		ownIDs:  make(map[string]struct{}),
	}

	limit := rate.Inf
	if cfg.MessageRate > 0 {
		limit = rate.Limit(cfg.MessageRate)
	}
	burst := cfg.MessageBurst
	if burst <= 0 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(limit, burst)

	c.dispatcher.logger = c.logger
	c.dispatcher.SetOnMessage(c.handleMessage)
	c.dispatcher.SetOnUserStatus(c.handleUserStatus)
	c.dispatcher.SetOnUsersList(c.handleUsersList)
	c.dispatcher.SetOnAuthSuccess(c.handleAuthSuccess)
	c.dispatcher.SetOnAuthError(c.handleAuthError)
	c.dispatcher.SetOnError(c.handleError)
	return c
}

// SetLogger overrides the logger (optional).
func (c *Client) SetLogger(l Logger) {
	if l == nil {
		return
	}
	c.logger = l
	c.dispatcher.logger = l
}

// OnMessage registers a callback for incoming private messages. Echoes of
// the client's own messages are suppressed before this fires. Like all
// registrations it is safe while the client is running; the dispatch
// goroutine picks the new callback up on the next frame.
func (c *Client) OnMessage(fn func(MessageEvent)) {
	c.mu.Lock()
	c.onMessage = fn
	c.mu.Unlock()
}

// OnUserStatus registers a callback for single-user presence changes.
func (c *Client) OnUserStatus(fn func(UserStatusEvent)) {
	c.mu.Lock()
	c.onUserStatus = fn
	c.mu.Unlock()
}

// OnUsersList registers a callback for wholesale roster snapshots.
func (c *Client) OnUsersList(fn func(UsersListEvent)) {
	c.mu.Lock()
	c.onUsersList = fn
	c.mu.Unlock()
}

// OnAuthSuccess registers a callback fired once the server accepts the
// handshake. Presence and history loading should hang off this.
func (c *Client) OnAuthSuccess(fn func()) {
	c.mu.Lock()
	c.onAuthSuccess = fn
	c.mu.Unlock()
}

// OnAuthError registers a callback for a rejected handshake. The owner is
// expected to log the user out.
func (c *Client) OnAuthError(fn func(message string)) {
	c.mu.Lock()
	c.onAuthError = fn
	c.mu.Unlock()
}

// OnError registers a callback for errors.
func (c *Client) OnError(fn func(error)) {
	c.mu.Lock()
	c.onError = fn
	c.mu.Unlock()
}

// OnStateChange registers a callback for connection state transitions.
func (c *Client) OnStateChange(fn func(StateEvent)) {
	c.mu.Lock()
	c.onStateChange = fn
	c.mu.Unlock()
}

// Roster returns the live roster.
func (c *Client) Roster() *Roster { return c.roster }

// SetToken replaces the bearer token used for future dials and handshakes,
// e.g. after a refresh. The current connection is left alone.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.cfg.Token = token
	c.mu.Unlock()
}

// State returns the current connection state.
func (c *Client) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// QueuedMessages returns how many messages wait for the next successful
// authentication.
func (c *Client) QueuedMessages() int { return c.queue.Len() }

// Start dials the chat endpoint and keeps the connection alive in the
// background until Close is called, the context is done, or the retry budget
// runs out. It returns immediately; watch OnStateChange for progress.
//
// A missing token is a hard stop: no connection attempt is made.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.cfg.URL == "" {
		c.mu.Unlock()
		return NewError(ErrorInvalidConfig, "empty URL")
	}
	if c.cfg.Token == "" {
		c.mu.Unlock()
		return NewError(ErrorNoToken, "no authentication token, log in first")
	}
	if c.running {
		c.mu.Unlock()
		return errors.New("already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.baseCtx = ctx
	c.runCtx = runCtx
	c.cancel = cancel
	c.running = true
	c.closed = false
	c.mu.Unlock()

	go c.run(runCtx)
	return nil
}

// Reconnect resets an exhausted retry budget and dials again. This is the
// explicit user action required once the client has given up.
func (c *Client) Reconnect(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return errors.New("already running")
	}
	c.attempts = 0
	c.mu.Unlock()
	return c.Start(ctx)
}

// Close shuts the connection down with a normal close code (1000), which is
// never retried. Close needs nothing from session storage: everything it
// uses is cached on the client, so tearing down the socket after credentials
// are cleared still works.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	conn := c.conn
	cancel := c.cancel
	c.mu.Unlock()

	var err error
	if conn != nil {
		// close the socket before cancelling the loops so the close
		// handshake goes out with code 1000
		err = conn.Close(websocket.StatusNormalClosure, "client close")
	}
	if cancel != nil {
		cancel()
	}
	c.setState(StateClosed, nil)
	return err
}

// SendPrivateMessage sends a private text message. When the connection is
// authenticated the send is fire-and-forget and the method returns true: the
// caller renders its own optimistic copy without waiting for the server.
// Otherwise the message is queued FIFO, a connection attempt is kicked off if
// none is running, and the method returns false with a nil error. Queued
// messages are flushed in order right after the next successful
// authentication.
func (c *Client) SendPrivateMessage(ctx context.Context, to int, content string) (bool, error) {
	content = strings.TrimSpace(content)
	if to <= 0 || content == "" {
		return false, NewError(ErrorInvalidMessage, "recipient and content are required")
	}

	msg := PendingMessage{
		ClientID:  uuid.NewString(),
		To:        to,
		From:      c.cfg.UserID,
		Content:   content,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	c.mu.Lock()
	state := c.state
	running := c.running
	base := c.baseCtx
	c.mu.Unlock()

	if state != StateAuthenticated {
		c.queue.Push(msg)
		c.logger.Info("connection not ready, message queued",
			map[string]any{"to": to, "queued": c.queue.Len(), "state": state.String()})
		if !running && state != StateGaveUp && state != StateClosed {
			if err := c.Start(base); err != nil {
				c.logger.Warn("could not start connection", map[string]any{"error": err.Error()})
			}
		}
		return false, nil
	}

	if !c.limiter.Allow() {
		return false, NewError(ErrorRateLimited, "sending messages too fast")
	}

	c.rememberOwn(msg.ClientID)
	frame := MessageFrame{
		Type:      frameMessage,
		From:      msg.From,
		To:        msg.To,
		Content:   msg.Content,
		Timestamp: msg.Timestamp,
		ClientID:  msg.ClientID,
	}
	select {
	case c.writeCh <- frame:
		return true, nil
	case <-ctx.Done():
		c.queue.Push(msg)
		return false, ctx.Err()
	}
}

func (c *Client) run(ctx context.Context) {
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	for {
		normal, err := c.connectOnce(ctx)

		if ctx.Err() != nil || c.isClosed() {
			c.setState(StateClosed, nil)
			return
		}
		if normal {
			c.setState(StateDisconnected, err)
			return
		}

		c.mu.Lock()
		attempt := c.attempts
		c.mu.Unlock()
		if attempt >= c.cfg.MaxReconnectAttempts {
			c.logger.Warn("reconnect budget exhausted",
				map[string]any{"attempts": attempt})
			// stop running before the state callback fires so a
			// Reconnect issued from inside it is not rejected
			c.mu.Lock()
			c.running = false
			c.mu.Unlock()
			c.setState(StateGaveUp, err)
			return
		}

		delay := backoffDelay(attempt, c.cfg.BaseReconnectDelay, c.cfg.MaxReconnectDelay)
		c.mu.Lock()
		c.attempts++
		c.mu.Unlock()
		c.setState(StateDisconnected, err)
		c.logger.Info("scheduling reconnect",
			map[string]any{"attempt": attempt, "delay_ms": delay.Milliseconds()})

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			c.setState(StateClosed, nil)
			return
		}
	}
}

// connectOnce runs a single connection from dial to disconnect. It reports
// whether the connection ended intentionally (normal close, cancellation);
// anything else is a candidate for a retry.
func (c *Client) connectOnce(ctx context.Context) (normal bool, err error) {
	c.setState(StateConnecting, nil)

	c.mu.Lock()
	token := c.cfg.Token
	c.mu.Unlock()

	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return true, WrapError(ErrorInvalidConfig, "bad websocket URL", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	dialCtx := ctx
	if c.cfg.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
		defer cancel()
	}

	ws, _, err := websocket.Dial(dialCtx, u.String(), nil)
	if err != nil {
		return false, WrapError(ErrorConnection, "dial failed", err)
	}

	conn := internal.NewConn(ws, c.cfg.ReadTimeout, c.cfg.WriteTimeout)
	c.mu.Lock()
	c.conn = conn
	c.attempts = 0 // a successful open resets the retry budget
	c.mu.Unlock()
	c.setState(StateOpenUnauth, nil)

	auth := AuthFrame{Type: frameAuth, UserID: c.cfg.UserID, Token: token}
	if err := conn.Write(ctx, auth); err != nil {
		_ = conn.Close(websocket.StatusInternalError, "handshake error")
		return false, WrapError(ErrorConnection, "handshake write failed", err)
	}

	connCtx, cancelConn := context.WithCancel(ctx)
	go c.writeLoop(connCtx, conn)
	if c.cfg.PingInterval > 0 {
		go c.pingLoop(connCtx)
	}

	err = c.readLoop(ctx, conn)
	cancelConn()

	c.mu.Lock()
	c.conn = nil
	c.mu.Unlock()

	if c.isIntentionalDisconnect(ctx, err) {
		return true, nil
	}
	c.logger.Warn("connection lost", map[string]any{"error": err.Error()})
	return false, WrapError(ErrorDisconnected, "connection lost", err)
}

func (c *Client) readLoop(ctx context.Context, conn *internal.Conn) error {
	for {
		raw, err := conn.ReadRaw(ctx)
		if err != nil {
			return err
		}
		c.dispatcher.Dispatch(raw)
	}
}

func (c *Client) writeLoop(ctx context.Context, conn *internal.Conn) {
	for {
		select {
		case v := <-c.writeCh:
			if err := conn.Write(ctx, v); err != nil {
				// a message frame must not be dropped: put it back in
				// the queue for the next authenticated connection
				if mf, ok := v.(MessageFrame); ok {
					c.queue.Push(PendingMessage{
						ClientID:  mf.ClientID,
						To:        mf.To,
						From:      mf.From,
						Content:   mf.Content,
						Timestamp: mf.Timestamp,
					})
				}
				if ctx.Err() == nil {
					c.handleError(WrapError(ErrorConnection, "write failed", err))
				}
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			select {
			case c.writeCh <- PingFrame{Type: framePing}:
			default:
				// write channel backlogged, skip this keepalive
			}
		case <-ctx.Done():
			return
		}
	}
}

// flushQueue sends everything composed while disconnected, preserving the
// original order.
func (c *Client) flushQueue(ctx context.Context) {
	pending := c.queue.Drain()
	if len(pending) == 0 {
		return
	}
	c.logger.Info("flushing queued messages", map[string]any{"count": len(pending)})
	for i, m := range pending {
		c.rememberOwn(m.ClientID)
		frame := MessageFrame{
			Type:      frameMessage,
			From:      m.From,
			To:        m.To,
			Content:   m.Content,
			Timestamp: m.Timestamp,
			ClientID:  m.ClientID,
		}
		select {
		case c.writeCh <- frame:
		case <-ctx.Done():
			// connection went away mid-flush, keep the rest for next time
			for _, rest := range pending[i:] {
				c.queue.Push(rest)
			}
			return
		}
	}
}

func (c *Client) handleMessage(ev MessageEvent) {
	if c.isOwnEcho(ev) {
		c.logger.Debug("suppressing echo of own message", map[string]any{"client_id": ev.ClientID})
		return
	}
	c.roster.Touch(ev.From, ev.Timestamp)
	c.mu.Lock()
	fn := c.onMessage
	c.mu.Unlock()
	if fn != nil {
		fn(ev)
	}
}

func (c *Client) handleUserStatus(ev UserStatusEvent) {
	c.roster.SetStatus(ev.UserID, ev.IsOnline)
	c.mu.Lock()
	fn := c.onUserStatus
	c.mu.Unlock()
	if fn != nil {
		fn(ev)
	}
}

func (c *Client) handleUsersList(ev UsersListEvent) {
	c.roster.Replace(ev.Users)
	c.mu.Lock()
	fn := c.onUsersList
	c.mu.Unlock()
	if fn != nil {
		fn(ev)
	}
}

func (c *Client) handleAuthSuccess() {
	c.setState(StateAuthenticated, nil)

	c.mu.Lock()
	runCtx := c.runCtx
	fn := c.onAuthSuccess
	c.mu.Unlock()
	if runCtx == nil {
		runCtx = context.Background()
	}
	go c.flushQueue(runCtx)

	if fn != nil {
		fn()
	}
}

func (c *Client) handleAuthError(message string) {
	c.logger.Warn("authentication rejected", map[string]any{"message": message})
	c.mu.Lock()
	fn := c.onAuthError
	c.mu.Unlock()
	if fn != nil {
		fn(message)
	}

	// a rejected handshake would fail again on retry, so close normally
	c.mu.Lock()
	c.closed = true
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "auth rejected")
	}
}

func (c *Client) handleError(err error) {
	if err == nil {
		return
	}
	c.logger.Warn("client error", map[string]any{"error": err.Error()})
	c.mu.Lock()
	fn := c.onError
	c.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

func (c *Client) setState(s ConnState, err error) {
	c.mu.Lock()
	old := c.state
	if old == s {
		c.mu.Unlock()
		return
	}
	c.state = s
	fn := c.onStateChange
	c.mu.Unlock()

	c.logger.Debug("state change", map[string]any{"old": old.String(), "new": s.String()})
	if fn != nil {
		fn(StateEvent{Old: old, New: s, Err: err})
	}
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Client) rememberOwn(id string) {
	if id == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.ownIDs[id]; ok {
		return
	}
	c.ownIDs[id] = struct{}{}
	c.ownOrder = append(c.ownOrder, id)
	if len(c.ownOrder) > ownEchoWindow {
		delete(c.ownIDs, c.ownOrder[0])
		c.ownOrder = c.ownOrder[1:]
	}
}

// isOwnEcho reports whether an incoming message frame is the server echoing
// a message this client already rendered optimistically.
func (c *Client) isOwnEcho(ev MessageEvent) bool {
	if c.cfg.UserID != 0 && ev.From == c.cfg.UserID {
		return true
	}
	if ev.ClientID == "" {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.ownIDs[ev.ClientID]
	return ok
}

// isIntentionalDisconnect reports whether a read loop exit should end the
// reconnect cycle. Only a normal closure (1000) or an explicit shutdown
// counts; every other close code goes through backoff retry.
func (c *Client) isIntentionalDisconnect(ctx context.Context, err error) bool {
	if err == nil {
		return true
	}
	if ctx != nil && ctx.Err() != nil {
		return true
	}
	if c.isClosed() {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	return websocket.CloseStatus(err) == websocket.StatusNormalClosure
}

// backoffDelay returns the reconnect delay for the given attempt:
// min(base * 2^attempt, max).
func backoffDelay(attempt int, base, max time.Duration) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	if max <= 0 {
		max = 30 * time.Second
	}
	if attempt > 30 {
		return max
	}
	d := base << uint(attempt)
	if d <= 0 || d > max {
		return max
	}
	return d
}
