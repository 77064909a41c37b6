// Package transport opens the persistent byte stream a session runs over.
//
// Targets are "host:port" or "tcp://host:port" for a raw TCP stream, and
// "ws://..." or "wss://..." for a WebSocket whose binary messages are
// concatenated into one stream.
package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"monfari.org/internal/apperr"
)

// Conn is an ordered, reliable, bidirectional byte stream.
type Conn interface {
	io.ReadWriteCloser
}

// Dialer opens connections. The zero value is ready to use.
type Dialer struct {
	Net       net.Dialer
	WebSocket *websocket.Dialer // nil means websocket.DefaultDialer
	Header    http.Header       // extra handshake headers for WebSocket targets
}

// Dial opens a connection to target with a zero Dialer.
func Dial(ctx context.Context, target string) (Conn, error) {
	var d Dialer
	return d.Dial(ctx, target)
}

// Dial connects and completes any transport handshake before returning.
func (d *Dialer) Dial(ctx context.Context, target string) (Conn, error) {
	scheme, addr, err := ParseTarget(target)
	if err != nil {
		return nil, err
	}
	switch scheme {
	case "tcp":
		c, err := d.Net.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeIO, "dial "+addr, err)
		}
		return c, nil
	case "ws", "wss":
		wd := d.WebSocket
		if wd == nil {
			wd = websocket.DefaultDialer
		}
		ws, resp, err := wd.DialContext(ctx, addr, d.Header)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeIO, "websocket handshake "+addr, err)
		}
		return NewWebSocketConn(ws), nil
	}
	return nil, apperr.New(apperr.CodeIO, fmt.Sprintf("unsupported transport %q", scheme))
}

// ParseTarget splits target into a scheme ("tcp", "ws" or "wss") and the
// address to dial: host:port for tcp, the full URL for WebSocket.
func ParseTarget(target string) (scheme, addr string, err error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return "", "", apperr.New(apperr.CodeIO, "empty target")
	}
	if !strings.Contains(target, "://") {
		return "tcp", target, nil
	}
	u, err := url.Parse(target)
	if err != nil {
		return "", "", apperr.Wrap(apperr.CodeIO, "parse target", err)
	}
	switch u.Scheme {
	case "tcp":
		if u.Host == "" {
			return "", "", apperr.New(apperr.CodeIO, fmt.Sprintf("target %q has no host", target))
		}
		return "tcp", u.Host, nil
	case "ws", "wss":
		return u.Scheme, u.String(), nil
	}
	return "", "", apperr.New(apperr.CodeIO, fmt.Sprintf("unsupported transport %q", u.Scheme))
}
