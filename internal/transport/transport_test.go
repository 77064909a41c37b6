package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monfari.org/internal/apperr"
	"monfari.org/internal/frame"
)

func TestParseTarget(t *testing.T) {
	tests := []struct {
		in     string
		scheme string
		addr   string
		ok     bool
	}{
		{"localhost:7878", "tcp", "localhost:7878", true},
		{"tcp://10.0.0.1:7878", "tcp", "10.0.0.1:7878", true},
		{"ws://host:7879/ws", "ws", "ws://host:7879/ws", true},
		{"wss://ledger.example/ws", "wss", "wss://ledger.example/ws", true},
		{"http://host", "", "", false},
		{"tcp://", "", "", false},
		{"  ", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			scheme, addr, err := ParseTarget(tt.in)
			if !tt.ok {
				assert.True(t, errors.Is(err, apperr.ErrIO), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.scheme, scheme)
			assert.Equal(t, tt.addr, addr)
		})
	}
}

func TestDialTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		_, _ = io.Copy(c, c)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := Dial(ctx, "tcp://"+ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, frame.NewWriter(conn).WriteFrame([]byte("ping")))
	got, err := frame.NewReader(conn).ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, "ping", string(got))
}

func TestDialRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	_, err = Dial(context.Background(), addr)
	assert.True(t, errors.Is(err, apperr.ErrIO), "got %v", err)
}

func TestWebSocketStreamReassembly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := Upgrade(w, r)
		if err != nil {
			return
		}
		defer c.Close()
		// One frame split over two messages, then two frames in one message.
		_, _ = c.Write([]byte(`{"a"`))
		_, _ = c.Write([]byte(":1}\x00"))
		_, _ = c.Write([]byte("x\x00y\x00"))
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, err := Dial(context.Background(), url)
	require.NoError(t, err)
	defer conn.Close()

	r := frame.NewReader(conn)
	for _, want := range []string{`{"a":1}`, "x", "y"} {
		got, err := r.ReadFrame()
		require.NoError(t, err)
		assert.Equal(t, want, string(got))
	}
	_, err = r.ReadFrame()
	assert.True(t, errors.Is(err, apperr.ErrConnectionClosed), "got %v", err)
}

func TestWebSocketHandshakeFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := Dial(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"))
	assert.True(t, errors.Is(err, apperr.ErrIO), "got %v", err)
}

func TestWebSocketCloseTwice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := Upgrade(w, r)
		if err != nil {
			return
		}
		_, _ = io.Copy(io.Discard, c)
		c.Close()
	}))
	defer srv.Close()

	conn, err := Dial(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"))
	require.NoError(t, err)
	assert.NoError(t, conn.Close())
	assert.NotPanics(t, func() { _ = conn.Close() })
}
