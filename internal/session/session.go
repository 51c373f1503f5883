// Package session owns the WebSocket connection to the pet platform.
//
// It performs connect, the bearer-token authentication handshake, liveness
// tracking, and reconnection with capped exponential backoff. The lifecycle
// is an explicit state machine so cancellation and testing stay simple.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pettai/pettkeeper/internal/models"
	"github.com/pettai/pettkeeper/internal/wire"
)

// Default timing configuration.
const (
	// DefaultAuthTimeout bounds the wait for the authentication
	// acknowledgement after the transport opens.
	DefaultAuthTimeout = 10 * time.Second
	// DefaultLivenessWindow declares the connection stale when no frame
	// (including protocol-level pings) arrives within it.
	DefaultLivenessWindow = 90 * time.Second
	// DefaultBackoffBase is the first reconnect delay.
	DefaultBackoffBase = 2 * time.Second
	// DefaultBackoffCap bounds the reconnect delay.
	DefaultBackoffCap = 5 * time.Minute
)

// Opts holds configuration for the session.
type Opts struct {
	URL            string
	Token          string
	AuthTimeout    time.Duration
	LivenessWindow time.Duration
	BackoffBase    time.Duration
	BackoffCap     time.Duration
}

// Option configures a Session.
type Option func(*Opts)

// WithURL sets the platform WebSocket endpoint.
func WithURL(url string) Option {
	return func(o *Opts) { o.URL = url }
}

// WithToken sets the initial bearer token.
func WithToken(token string) Option {
	return func(o *Opts) { o.Token = token }
}

// WithAuthTimeout overrides the authentication acknowledgement timeout.
func WithAuthTimeout(d time.Duration) Option {
	return func(o *Opts) { o.AuthTimeout = d }
}

// WithLivenessWindow overrides the inbound-activity staleness window.
func WithLivenessWindow(d time.Duration) Option {
	return func(o *Opts) { o.LivenessWindow = d }
}

// WithBackoff overrides the reconnect backoff base and cap.
func WithBackoff(base, cap time.Duration) Option {
	return func(o *Opts) { o.BackoffBase = base; o.BackoffCap = cap }
}

// Session is the single authenticated duplex connection instance.
type Session struct {
	cfg    Opts
	router *Router

	mu           sync.Mutex
	state        models.ConnState
	attempt      int
	lastErr      string
	lastActivity time.Time
	conn         *websocket.Conn

	writeMu sync.Mutex

	// rearm delivers a fresh token supplied by the external identity
	// collaborator while the session sits in the failed state.
	rearm chan string
}

// New creates a session. The router receives every inbound frame.
func New(router *Router, opts ...Option) (*Session, error) {
	cfg := Opts{
		AuthTimeout:    DefaultAuthTimeout,
		LivenessWindow: DefaultLivenessWindow,
		BackoffBase:    DefaultBackoffBase,
		BackoffCap:     DefaultBackoffCap,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("session URL not set")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("session auth token not set")
	}
	return &Session{
		cfg:    cfg,
		router: router,
		state:  models.ConnStateDisconnected,
		rearm:  make(chan string, 1),
	}, nil
}

// Run drives the connection lifecycle until ctx is cancelled. Transient
// failures reconnect with backoff; an authentication rejection parks the
// session until Rearm supplies a fresh token.
func (s *Session) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			s.setState(models.ConnStateDisconnected, "")
			return
		}

		err := s.connectAndServe(ctx)
		if ctx.Err() != nil {
			s.setState(models.ConnStateDisconnected, "")
			return
		}

		if isAuthFailure(err) {
			s.setState(models.ConnStateFailed, err.Error())
			slog.Error("session: authentication rejected; waiting for fresh token", "error", err)
			select {
			case token := <-s.rearm:
				s.mu.Lock()
				s.cfg.Token = token
				s.attempt = 0
				s.mu.Unlock()
				slog.Info("session: re-armed with fresh token")
				continue
			case <-ctx.Done():
				s.setState(models.ConnStateDisconnected, "")
				return
			}
		}

		// Transient network failure or staleness: back off and retry the
		// full connect+authenticate sequence with the last-known-good token.
		s.mu.Lock()
		attempt := s.attempt
		s.attempt++
		s.mu.Unlock()

		delay := withJitter(backoffFor(attempt, s.cfg.BackoffBase, s.cfg.BackoffCap), s.cfg.BackoffCap)
		s.setState(models.ConnStateReconnecting, errString(err))
		slog.Warn("session: connection lost; reconnecting", "error", err, "attempt", attempt, "backoff", delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			s.setState(models.ConnStateDisconnected, "")
			return
		}
	}
}

// connectAndServe performs one full connect+authenticate+read cycle. It
// returns when the connection drops, goes stale, or authentication fails.
func (s *Session) connectAndServe(ctx context.Context) error {
	s.setState(models.ConnStateConnecting, "")
	slog.Info("session: connecting", "url", s.cfg.URL)

	dialCtx, cancel := context.WithTimeout(ctx, s.cfg.AuthTimeout)
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, s.cfg.URL, nil)
	cancel()
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.cfg.URL, err)
	}

	s.mu.Lock()
	s.conn = conn
	s.lastActivity = time.Now()
	s.mu.Unlock()
	defer func() {
		conn.Close()
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
	}()

	// Any inbound traffic, control frames included, resets the liveness
	// deadline.
	conn.SetReadDeadline(time.Now().Add(s.cfg.LivenessWindow))
	pingHandler := conn.PingHandler()
	conn.SetPingHandler(func(appData string) error {
		s.touch()
		conn.SetReadDeadline(time.Now().Add(s.cfg.LivenessWindow))
		return pingHandler(appData)
	})
	conn.SetPongHandler(func(string) error {
		s.touch()
		conn.SetReadDeadline(time.Now().Add(s.cfg.LivenessWindow))
		return nil
	})

	readErr := make(chan error, 1)
	go s.readLoop(conn, readErr)

	if err := s.authenticate(ctx, readErr); err != nil {
		return err
	}

	s.mu.Lock()
	s.attempt = 0
	s.mu.Unlock()
	s.setState(models.ConnStateConnected, "")
	slog.Info("session: authenticated and connected")

	stopPing := make(chan struct{})
	defer close(stopPing)
	go s.keepAlive(conn, stopPing)

	select {
	case err := <-readErr:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// authenticate sends the bearer-token frame and waits for the
// acknowledgement. Timeout and explicit rejection are both terminal for the
// current token.
func (s *Session) authenticate(ctx context.Context, readErr <-chan error) error {
	s.setState(models.ConnStateAuthenticating, "")

	// Discard any buffered result from a previous connection so only this
	// connection's acknowledgement can complete the handshake.
drain:
	for {
		select {
		case <-s.router.AuthResults():
		default:
			break drain
		}
	}

	s.mu.Lock()
	token := s.cfg.Token
	s.mu.Unlock()

	frame, err := wire.AuthFrame(token)
	if err != nil {
		return fmt.Errorf("encode auth frame: %w", err)
	}
	if err := s.write(frame); err != nil {
		return fmt.Errorf("send auth frame: %w", err)
	}
	slog.Debug("session: authentication request sent")

	select {
	case result := <-s.router.AuthResults():
		if !result.Success {
			return fmt.Errorf("%w: %s", models.ErrAuthRejected, result.Error)
		}
		return nil
	case <-time.After(s.cfg.AuthTimeout):
		return models.ErrAuthTimeout
	case err := <-readErr:
		return fmt.Errorf("connection closed during authentication: %w", err)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// readLoop yields every inbound frame to the router until the connection
// errors out or goes stale.
func (s *Session) readLoop(conn *websocket.Conn, readErr chan<- error) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			readErr <- err
			return
		}
		s.touch()
		conn.SetReadDeadline(time.Now().Add(s.cfg.LivenessWindow))
		s.router.HandleFrame(raw)
	}
}

// keepAlive sends protocol pings at a third of the liveness window so an
// otherwise idle connection stays demonstrably alive.
func (s *Session) keepAlive(conn *websocket.Conn, stop <-chan struct{}) {
	interval := s.cfg.LivenessWindow / 3
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(interval))
			s.writeMu.Unlock()
			if err != nil {
				slog.Debug("session: keepalive ping failed", "error", err)
				return
			}
		case <-stop:
			return
		}
	}
}

// Send transmits one frame. It fails immediately when the session is not in
// the connected state.
func (s *Session) Send(frame []byte) error {
	s.mu.Lock()
	if s.state != models.ConnStateConnected || s.conn == nil {
		s.mu.Unlock()
		return models.ErrNotConnected
	}
	s.mu.Unlock()
	return s.write(frame)
}

func (s *Session) write(frame []byte) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return models.ErrNotConnected
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, frame)
}

// Rearm supplies a fresh bearer token. A session parked in the failed state
// resumes the connect sequence; otherwise the token is used on the next
// reconnect.
func (s *Session) Rearm(token string) error {
	if token == "" {
		return fmt.Errorf("token cannot be empty")
	}
	s.mu.Lock()
	s.cfg.Token = token
	parked := s.state == models.ConnStateFailed
	s.mu.Unlock()

	if parked {
		select {
		case s.rearm <- token:
		default:
			// A pending token is already queued; the newest one was stored
			// above and wins on the next authenticate.
		}
	}
	slog.Info("session: token updated", "rearmed", parked)
	return nil
}

// Close tears down the current transport; Run's caller cancels the context
// to stop the lifecycle for good.
func (s *Session) Close() {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// Connected reports whether the session is authenticated and connected.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == models.ConnStateConnected
}

// Status returns the externally visible connection status.
func (s *Session) Status() models.ConnectionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	status := models.ConnectionStatus{
		URL:               s.cfg.URL,
		State:             s.state,
		Connected:         s.state == models.ConnStateConnected,
		Authenticated:     s.state == models.ConnStateConnected,
		ReconnectAttempts: s.attempt,
		LastError:         s.lastErr,
	}
	if !s.lastActivity.IsZero() {
		status.SecondsSinceActivity = time.Since(s.lastActivity).Seconds()
	}
	return status
}

func (s *Session) setState(state models.ConnState, lastErr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != state {
		slog.Debug("session: state transition", "from", s.state, "to", state)
	}
	s.state = state
	if lastErr != "" {
		s.lastErr = lastErr
	} else if state == models.ConnStateConnected {
		s.lastErr = ""
	}
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// backoffFor computes min(base * 2^attempt, limit). The deterministic part
// is non-decreasing in the attempt counter.
func backoffFor(attempt int, base, limit time.Duration) time.Duration {
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= limit {
			return limit
		}
	}
	if d > limit {
		return limit
	}
	return d
}

// withJitter adds up to 25% random jitter, still bounded by the cap.
func withJitter(d, limit time.Duration) time.Duration {
	j := d + time.Duration(rand.Int63n(int64(d)/4+1))
	if j > limit {
		return limit
	}
	return j
}

func isAuthFailure(err error) bool {
	return errors.Is(err, models.ErrAuthRejected) || errors.Is(err, models.ErrAuthTimeout)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
