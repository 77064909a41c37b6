// Package session is the client side of the ledger protocol.
//
// A Session owns one connection and keeps the latest full account list the
// server sent. Every mutation's reply is the complete new account list, which
// replaces the previous one wholesale. Requests are strictly one at a time:
// a call made while another is outstanding fails with apperr.ErrBusy.
//
// Nothing is retried. Commands are not idempotent, so after a failure the
// caller builds a new command with a fresh id.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"monfari.org/internal/apperr"
	"monfari.org/internal/frame"
	"monfari.org/internal/ledger"
	"monfari.org/internal/obs"
	"monfari.org/internal/transport"
)

// State is the connection lifecycle: Disconnected -> Connecting -> Ready -> Disconnected.
type State int32

const (
	Disconnected State = iota
	Connecting
	Ready
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Ready:
		return "ready"
	}
	return "unknown"
}

// Dialer opens the byte stream. *transport.Dialer satisfies it.
type Dialer interface {
	Dial(ctx context.Context, target string) (transport.Conn, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, target string) (transport.Conn, error)

func (f DialerFunc) Dial(ctx context.Context, target string) (transport.Conn, error) {
	return f(ctx, target)
}

// Publisher is told about every new snapshot. *stream.Stream satisfies it.
type Publisher interface {
	Publish(accounts []ledger.Account)
}

// Option configures a Session.
type Option func(*Session)

func WithLogger(l zerolog.Logger) Option { return func(s *Session) { s.log = l } }
func WithDialer(d Dialer) Option         { return func(s *Session) { s.dialer = d } }
func WithPublisher(p Publisher) Option   { return func(s *Session) { s.pub = p } }

// WithRequestTimeout bounds every connect and round trip. On expiry the
// connection is closed and the session must be reconnected.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Session) { s.timeout = d }
}

// Session is safe for concurrent use, but only one request runs at a time.
type Session struct {
	dialer  Dialer
	log     zerolog.Logger
	pub     Publisher
	timeout time.Duration

	inflight chan struct{}

	mu    sync.Mutex
	state State
	conn  transport.Conn
	r     *frame.Reader
	w     *frame.Writer

	accounts atomic.Pointer[[]ledger.Account]
}

// New returns a disconnected session.
func New(opts ...Option) *Session {
	s := &Session{
		dialer:   &transport.Dialer{},
		log:      zerolog.Nop(),
		inflight: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State reports the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Accounts returns a copy of the latest snapshot, nil before the first connect.
func (s *Session) Accounts() []ledger.Account {
	p := s.accounts.Load()
	if p == nil {
		return nil
	}
	return ledger.CloneAccounts(*p)
}

// Account looks an account up in the latest snapshot.
func (s *Session) Account(id ledger.AccountID) (ledger.Account, bool) {
	p := s.accounts.Load()
	if p == nil {
		return ledger.Account{}, false
	}
	a, ok := ledger.Lookup(*p, id)
	if !ok {
		return ledger.Account{}, false
	}
	return a.Clone(), true
}

// Connect opens a connection to target and receives the initial account list.
// An existing connection is dropped first. On failure the session is left
// Disconnected and the previous snapshot is kept.
func (s *Session) Connect(ctx context.Context, target string) (accounts []ledger.Account, err error) {
	if !s.acquire() {
		return nil, apperr.ErrBusy
	}
	defer s.release()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	defer func() { obs.ObserveClientRequest("connect", err, time.Since(start)) }()

	s.closeCurrent()
	s.setState(Connecting)

	conn, err := s.dialer.Dial(ctx, target)
	if err != nil {
		s.setState(Disconnected)
		s.log.Warn().Err(err).Str("target", target).Msg("connect failed")
		if apperr.CodeOf(err) == "" {
			err = apperr.Wrap(apperr.CodeIO, "dial "+target, err)
		}
		return nil, err
	}
	s.mu.Lock()
	if s.state != Connecting {
		s.mu.Unlock()
		_ = conn.Close()
		return nil, apperr.New(apperr.CodeConnectionClosed, "disconnected while connecting")
	}
	s.conn = conn
	s.mu.Unlock()

	r, w := frame.NewReader(conn), frame.NewWriter(conn)
	reply, err := receive(ctx, conn, r)
	if err == nil {
		accounts, err = ledger.DecodeAccounts(reply)
	}
	if err != nil {
		s.drop(conn)
		s.log.Warn().Err(err).Str("target", target).Msg("connect failed")
		return nil, err
	}

	s.mu.Lock()
	if s.conn != conn {
		s.mu.Unlock()
		return nil, apperr.New(apperr.CodeConnectionClosed, "disconnected while connecting")
	}
	s.r, s.w, s.state = r, w, Ready
	s.mu.Unlock()
	s.swap(accounts)

	s.log.Info().Str("target", target).Int("accounts", len(accounts)).Msg("connected")
	return ledger.CloneAccounts(accounts), nil
}

// Run sends cmd and replaces the snapshot with the account list in the reply.
// If the reply cannot be decoded the previous snapshot stays in place.
func (s *Session) Run(ctx context.Context, cmd ledger.Command) ([]ledger.Account, error) {
	msg := ledger.CommandMessage{Command: cmd}
	reply, err := s.request(ctx, msg)
	if err != nil {
		return nil, err
	}
	accounts, err := ledger.DecodeAccounts(reply)
	if err != nil {
		s.log.Warn().Err(err).Str("kind", msg.Kind()).Msg("reply rejected")
		return nil, err
	}
	s.swap(accounts)
	return ledger.CloneAccounts(accounts), nil
}

// ListTransactions fetches the ordered history of one account. The snapshot is not touched.
func (s *Session) ListTransactions(ctx context.Context, id ledger.AccountID) ([]ledger.Transaction, error) {
	msg := ledger.TransactionsQuery{Account: id}
	reply, err := s.request(ctx, msg)
	if err != nil {
		return nil, err
	}
	txs, err := ledger.DecodeTransactions(reply)
	if err != nil {
		s.log.Warn().Err(err).Str("kind", msg.Kind()).Msg("reply rejected")
		return nil, err
	}
	return txs, nil
}

// Disconnect closes the connection from any state, aborting an outstanding
// receive. Calling it again is a no-op.
func (s *Session) Disconnect() error {
	conn := s.closeCurrent()
	if conn != nil {
		s.log.Info().Msg("disconnected")
	}
	return nil
}

// request performs one framed round trip and returns the non-empty reply payload.
func (s *Session) request(ctx context.Context, msg ledger.Message) (reply []byte, err error) {
	if !s.acquire() {
		return nil, apperr.ErrBusy
	}
	defer s.release()

	start := time.Now()
	defer func() {
		d := time.Since(start)
		obs.ObserveClientRequest(msg.Kind(), err, d)
		s.log.Debug().Str("kind", msg.Kind()).Dur("took", d).Int("bytes", len(reply)).Err(err).Msg("round trip")
	}()

	payload, err := ledger.EncodeMessage(msg)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	conn, r, w, state := s.conn, s.r, s.w, s.state
	s.mu.Unlock()
	if state != Ready || conn == nil {
		return nil, apperr.ErrNotReady
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	err = w.WriteFrame(payload)
	if err == nil {
		reply, err = r.ReadFrame()
	}
	if !stop() && err == nil {
		// Cancelled after the reply arrived; the connection is gone either way.
		err = ctx.Err()
	}
	if err != nil {
		s.drop(conn)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, apperr.Wrap(apperr.CodeConnectionClosed, "request aborted", ctxErr)
		}
		s.log.Warn().Err(err).Str("kind", msg.Kind()).Msg("connection lost")
		return nil, err
	}
	if len(reply) == 0 {
		return nil, apperr.Wrap(apperr.CodeEmptyMessage, "reply to "+msg.Kind(), nil)
	}
	return reply, nil
}

// receive reads one frame, closing conn if ctx ends first.
func receive(ctx context.Context, conn transport.Conn, r *frame.Reader) ([]byte, error) {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	reply, err := r.ReadFrame()
	if !stop() && err == nil {
		err = ctx.Err()
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, apperr.Wrap(apperr.CodeConnectionClosed, "receive aborted", ctxErr)
		}
		return nil, err
	}
	if len(reply) == 0 {
		return nil, apperr.Wrap(apperr.CodeEmptyMessage, "initial account list", nil)
	}
	return reply, nil
}

func (s *Session) swap(accounts []ledger.Account) {
	if accounts == nil {
		accounts = []ledger.Account{}
	}
	s.accounts.Store(&accounts)
	if s.pub != nil {
		s.pub.Publish(accounts)
	}
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// closeCurrent detaches and closes the current connection, if any.
func (s *Session) closeCurrent() transport.Conn {
	s.mu.Lock()
	conn := s.conn
	s.conn, s.r, s.w, s.state = nil, nil, nil, Disconnected
	s.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
	return conn
}

// drop closes conn and, if it is still current, moves the session to Disconnected.
func (s *Session) drop(conn transport.Conn) {
	s.mu.Lock()
	if s.conn == conn {
		s.conn, s.r, s.w, s.state = nil, nil, nil, Disconnected
	}
	s.mu.Unlock()
	_ = conn.Close()
}

func (s *Session) acquire() bool {
	select {
	case s.inflight <- struct{}{}:
		return true
	default:
		return false
	}
}

func (s *Session) release() { <-s.inflight }

func (s *Session) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return context.WithCancel(ctx)
}

// IsBusy reports whether err came from calling while another request was outstanding.
func IsBusy(err error) bool { return errors.Is(err, apperr.ErrBusy) }
