package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monfari.org/internal/frame"
	"monfari.org/internal/ledger"
	"monfari.org/internal/money"
	"monfari.org/internal/obs"
	"monfari.org/internal/session"
)

func startTCP(t *testing.T, srv *Server) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx, ln)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return "tcp://" + ln.Addr().String()
}

func startWS(t *testing.T, srv *Server) (target, base string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	ts := httptest.NewServer(srv.Handler(ctx))
	t.Cleanup(func() {
		cancel()
		ts.Close()
	})
	return "ws" + strings.TrimPrefix(ts.URL, "http"), ts.URL
}

// exercise runs a full client workflow against target and checks the snapshot after each step.
func exercise(t *testing.T, target string) {
	ctx := context.Background()
	s := session.New()
	defer s.Disconnect()

	accs, err := s.Connect(ctx, target)
	require.NoError(t, err)
	assert.Empty(t, accs)

	bank := ledger.NewAccount("Bank", "", ledger.Physical)
	food := ledger.NewAccount("Food", "groceries", ledger.Virtual)
	_, err = s.Run(ctx, ledger.CreateAccount{Account: bank})
	require.NoError(t, err)
	accs, err = s.Run(ctx, ledger.CreateAccount{Account: food})
	require.NoError(t, err)
	require.Len(t, accs, 2)
	assert.Equal(t, "groceries", accs[1].Notes)

	in := ledger.NewTransaction("salary", money.New(123456, money.EUR),
		ledger.Received{Src: "Employer", Dst: bank.ID, DstVirt: food.ID})
	accs, err = s.Run(ctx, ledger.AddTransaction{Transaction: in})
	require.NoError(t, err)
	assert.Equal(t, accs, s.Accounts())
	got, ok := s.Account(bank.ID)
	require.True(t, ok)
	assert.Equal(t, "1234.56 EUR", got.Balance(money.EUR).String())

	// Rejected: moving between a physical and a virtual account.
	bad := ledger.NewTransaction("", money.New(1, money.EUR), ledger.MovePhys{Src: bank.ID, Dst: food.ID})
	after, err := s.Run(ctx, ledger.AddTransaction{Transaction: bad})
	require.NoError(t, err)
	assert.Equal(t, accs, after)

	txs, err := s.ListTransactions(ctx, food.ID)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, in, txs[0])

	txs, err = s.ListTransactions(ctx, ledger.AccountID("missing"))
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestSessionOverTCP(t *testing.T) {
	srv := New(Config{}, NewBook())
	exercise(t, startTCP(t, srv))
}

func TestSessionOverWebSocket(t *testing.T) {
	srv := New(Config{}, NewBook())
	target, _ := startWS(t, srv)
	exercise(t, target)
}

func TestReconnectSeesServerState(t *testing.T) {
	book := NewBook()
	acc := ledger.NewAccount("Cash", "", ledger.Physical)
	require.NoError(t, book.CreateAccount(acc))
	target := startTCP(t, New(Config{}, book))

	s := session.New()
	accs, err := s.Connect(context.Background(), target)
	require.NoError(t, err)
	require.Len(t, accs, 1)
	require.NoError(t, s.Disconnect())

	require.NoError(t, book.CreateAccount(ledger.NewAccount("Later", "", ledger.Virtual)))
	accs, err = s.Connect(context.Background(), target)
	require.NoError(t, err)
	assert.Len(t, accs, 2)
	require.NoError(t, s.Disconnect())
}

func TestUndecodableRequestClosesConnection(t *testing.T) {
	target := startTCP(t, New(Config{}, NewBook()))
	conn, err := net.Dial("tcp", strings.TrimPrefix(target, "tcp://"))
	require.NoError(t, err)
	defer conn.Close()

	r, w := frame.NewReader(conn), frame.NewWriter(conn)
	initial, err := r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, "[]", string(initial))

	require.NoError(t, w.WriteFrame([]byte(`{"Bogus":1}`)))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err = r.ReadFrame()
	assert.Error(t, err)
}

func TestOversizedFrameClosesConnection(t *testing.T) {
	target := startTCP(t, New(Config{MaxFrameLen: 16}, NewBook()))
	conn, err := net.Dial("tcp", strings.TrimPrefix(target, "tcp://"))
	require.NoError(t, err)
	defer conn.Close()

	r, w := frame.NewReader(conn), frame.NewWriter(conn)
	_, err = r.ReadFrame()
	require.NoError(t, err)

	require.NoError(t, w.WriteFrame([]byte(`{"Transactions":"`+strings.Repeat("a", 32)+`"}`)))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err = r.ReadFrame()
	assert.Error(t, err)
}

func TestUnterminatedOversizedFrameClosesConnection(t *testing.T) {
	target := startTCP(t, New(Config{MaxFrameLen: 16}, NewBook()))
	conn, err := net.Dial("tcp", strings.TrimPrefix(target, "tcp://"))
	require.NoError(t, err)
	defer conn.Close()

	r := frame.NewReader(conn)
	_, err = r.ReadFrame()
	require.NoError(t, err)

	// No terminator follows, so only the length cap can end the read.
	_, err = conn.Write(bytes.Repeat([]byte("a"), 64))
	require.NoError(t, err)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err = r.ReadFrame()
	require.Error(t, err)
	var ne net.Error
	assert.False(t, errors.As(err, &ne) && ne.Timeout(), "server waited for a terminator: %v", err)
}

func TestRejectedCommandIsLogged(t *testing.T) {
	var buf safeBuffer
	srv := New(Config{Logger: obs.NewLoggerWithWriter("info", &buf)}, NewBook())
	target := startTCP(t, srv)

	s := session.New()
	_, err := s.Connect(context.Background(), target)
	require.NoError(t, err)
	defer s.Disconnect()

	acc := ledger.NewAccount("Cash", "", ledger.Physical)
	_, err = s.Run(context.Background(), ledger.CreateAccount{Account: acc})
	require.NoError(t, err)
	_, err = s.Run(context.Background(), ledger.CreateAccount{Account: acc})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"type":"audit"`)
	assert.Contains(t, out, `"event":"create_account"`)
	assert.Contains(t, out, `"message":"command rejected"`)
	assert.Contains(t, out, ErrDuplicate.Error())
}

func TestMetricsEndpoint(t *testing.T) {
	obs.Init()
	srv := New(Config{Logger: zerolog.Nop()}, NewBook())
	_, base := startWS(t, srv)

	resp, err := http.Get(base + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "monfari_server_connections")
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	srv := New(Config{TCPAddr: "127.0.0.1:0", WSAddr: "127.0.0.1:0"}, NewBook())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("ListenAndServe did not return")
	}
}

func TestListenAndServeBadAddress(t *testing.T) {
	srv := New(Config{TCPAddr: "256.0.0.1:bad"}, NewBook())
	err := srv.ListenAndServe(context.Background())
	var opErr *net.OpError
	assert.True(t, errors.As(err, &opErr), "got %v", err)
}
