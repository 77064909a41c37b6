// Package server is a development ledger server speaking the client protocol:
// on connect it sends the full account list, then answers one frame per request.
// Commands are answered with the full account list (unchanged when the command
// is rejected) and transaction queries with the account's history.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"monfari.org/internal/audit"
	"monfari.org/internal/frame"
	"monfari.org/internal/ledger"
	"monfari.org/internal/obs"
	"monfari.org/internal/transport"
)

// Config holds listener addresses and per-connection limits.
type Config struct {
	TCPAddr     string
	WSAddr      string
	RatePerSec  int
	RateBurst   int
	MaxFrameLen int
	Logger      zerolog.Logger
}

// Server serves one Book to any number of connections.
type Server struct {
	cfg  Config
	book *Book
	log  zerolog.Logger

	wg sync.WaitGroup
}

// New returns a server over book. Zero limits fall back to 50/s, burst 100, 1 MiB frames.
func New(cfg Config, book *Book) *Server {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 50
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 100
	}
	if cfg.MaxFrameLen <= 0 {
		cfg.MaxFrameLen = 1 << 20
	}
	return &Server{cfg: cfg, book: book, log: cfg.Logger}
}

// Book exposes the served ledger.
func (s *Server) Book() *Book { return s.book }

// ListenAndServe runs the TCP listener and the WebSocket/metrics HTTP server
// until ctx ends. Either address may be empty to skip that listener.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 2)
	var running int

	if s.cfg.TCPAddr != "" {
		ln, err := net.Listen("tcp", s.cfg.TCPAddr)
		if err != nil {
			return err
		}
		running++
		go func() { errc <- s.Serve(ctx, ln) }()
	}

	var hs *http.Server
	if s.cfg.WSAddr != "" {
		hs = &http.Server{
			Addr:              s.cfg.WSAddr,
			Handler:           s.Handler(ctx),
			ReadHeaderTimeout: 15 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
		running++
		go func() {
			s.log.Info().Str("addr", hs.Addr).Msg("websocket listener started")
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- err
				return
			}
			errc <- nil
		}()
	}

	var first error
	select {
	case <-ctx.Done():
	case first = <-errc:
		running--
	}
	cancel()

	if hs != nil {
		shutdownCtx, release := context.WithTimeout(context.Background(), 10*time.Second)
		_ = hs.Shutdown(shutdownCtx)
		release()
	}
	for ; running > 0; running-- {
		if err := <-errc; err != nil && first == nil {
			first = err
		}
	}
	s.wg.Wait()
	return first
}

// Serve accepts TCP connections on ln until ctx ends or ln fails.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.log.Info().Str("addr", ln.Addr().String()).Msg("tcp listener started")
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.ServeConn(ctx, conn)
		}()
	}
}

// Handler upgrades any request to a WebSocket connection, except /metrics.
// Handshakes are rate limited per client IP.
func (s *Server) Handler(ctx context.Context) http.Handler {
	upgrade := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := transport.Upgrade(w, r)
		if err != nil {
			s.log.Warn().Err(err).Str("remote", clientIP(r)).Msg("websocket upgrade failed")
			return
		}
		s.ServeConn(ctx, conn)
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", obs.Handler())
	mux.Handle("/", RateLimit(upgrade, s.cfg.RateBurst, s.cfg.RatePerSec))
	return Logging(s.log, mux)
}

// ServeConn runs the protocol on one connection and closes it on return.
func (s *Server) ServeConn(ctx context.Context, conn transport.Conn) {
	connID := uuid.NewString()
	ctx, cancel := context.WithCancel(audit.WithConnID(ctx, connID))
	defer cancel()
	log := s.log.With().Str("conn_id", connID).Logger()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	defer conn.Close()

	obs.ServerConnectionOpened()
	defer obs.ServerConnectionClosed()
	log.Info().Msg("connection opened")

	r, w := frame.NewLimitedReader(conn, s.cfg.MaxFrameLen), frame.NewWriter(conn)
	lim := rate.NewLimiter(rate.Limit(s.cfg.RatePerSec), s.cfg.RateBurst)

	err := s.writeAccounts(w)
	for err == nil {
		var payload []byte
		payload, err = r.ReadFrame()
		if err != nil {
			break
		}
		if err = lim.Wait(ctx); err != nil {
			break
		}
		var reply []byte
		reply, err = s.handle(ctx, log, payload)
		if err == nil {
			err = w.WriteFrame(reply)
		}
	}
	log.Info().Err(err).Msg("connection closed")
}

func (s *Server) writeAccounts(w *frame.Writer) error {
	payload, err := ledger.EncodeAccounts(s.book.Accounts())
	if err != nil {
		return err
	}
	return w.WriteFrame(payload)
}

// handle produces the reply for one request. An error closes the connection;
// a rejected command does not.
func (s *Server) handle(ctx context.Context, log zerolog.Logger, payload []byte) ([]byte, error) {
	msg, err := ledger.DecodeMessage(payload)
	if err != nil {
		obs.ObserveServerFrame("invalid", err)
		log.Warn().Err(err).Int("bytes", len(payload)).Msg("undecodable request")
		return nil, err
	}

	switch m := msg.(type) {
	case ledger.TransactionsQuery:
		reply, err := ledger.EncodeTransactions(s.book.Transactions(m.Account))
		obs.ObserveServerFrame(m.Kind(), err)
		return reply, err
	case ledger.CommandMessage:
		fields, err := s.apply(m.Command)
		obs.ObserveServerFrame(m.Kind(), err)
		if err != nil {
			log.Warn().Err(err).Str("kind", m.Kind()).Fields(fields).Msg("command rejected")
		} else {
			_ = audit.LogEvent(ctx, log, m.Kind(), fields)
		}
		return ledger.EncodeAccounts(s.book.Accounts())
	}
	return nil, ErrInvalidTransaction
}

func (s *Server) apply(cmd ledger.Command) (map[string]any, error) {
	switch c := cmd.(type) {
	case ledger.AddTransaction:
		tx := c.Transaction
		fields := map[string]any{"tx_id": tx.ID.String(), "amount": tx.Amount.String()}
		if tx.Type != nil {
			fields["type"] = tx.Type.Kind()
		}
		return fields, s.book.Apply(tx)
	case ledger.CreateAccount:
		acc := c.Account
		fields := map[string]any{"account_id": acc.ID.String(), "name": acc.Name, "typ": string(acc.Type)}
		return fields, s.book.CreateAccount(acc)
	}
	return nil, ErrInvalidTransaction
}
