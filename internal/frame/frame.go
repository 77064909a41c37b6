// Package frame delimits messages on a byte stream with a single 0x00
// terminator after each payload. There is no length prefix; payloads are
// JSON text and never contain a NUL byte.
package frame

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"

	"monfari.org/internal/apperr"
)

// Terminator ends every frame.
const Terminator byte = 0x00

// ErrTooLarge is wrapped by ReadFrame when a payload exceeds the reader's limit.
var ErrTooLarge = errors.New("frame too large")

// Reader yields one payload per terminator. Payloads may span several
// underlying reads, and one read may carry several payloads.
type Reader struct {
	br  *bufio.Reader
	max int
}

func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReader(r)}
}

// NewLimitedReader is NewReader with payloads capped at max bytes. The cap is
// enforced while scanning, so an oversized frame is never buffered whole. After
// ErrTooLarge the stream is out of sync and must be closed.
func NewLimitedReader(r io.Reader, max int) *Reader {
	return &Reader{br: bufio.NewReader(r), max: max}
}

// ReadFrame returns the bytes before the next terminator. The terminator is
// consumed and not returned. An empty payload is returned as-is; callers decide
// whether that is an error.
func (r *Reader) ReadFrame() ([]byte, error) {
	if r.max <= 0 {
		b, err := r.br.ReadBytes(Terminator)
		if err != nil {
			return nil, classify(err, len(b) > 0)
		}
		return b[:len(b)-1], nil
	}

	// Each fill of the buffer is checked, so a stream without a terminator
	// fails as soon as it passes the cap.
	var payload []byte
	for {
		if _, err := r.br.Peek(1); err != nil {
			return nil, classify(err, len(payload) > 0)
		}
		buf, _ := r.br.Peek(r.br.Buffered())
		if i := bytes.IndexByte(buf, Terminator); i >= 0 {
			if len(payload)+i > r.max {
				return nil, r.tooLarge()
			}
			payload = append(payload, buf[:i]...)
			_, _ = r.br.Discard(i + 1)
			return payload, nil
		}
		if len(payload)+len(buf) > r.max {
			return nil, r.tooLarge()
		}
		payload = append(payload, buf...)
		_, _ = r.br.Discard(len(buf))
	}
}

func (r *Reader) tooLarge() error {
	return apperr.Wrap(apperr.CodeIO, fmt.Sprintf("frame exceeds %d bytes", r.max), ErrTooLarge)
}

// Writer appends the terminator to each payload and writes both in one call.
type Writer struct {
	w   io.Writer
	buf []byte
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteFrame sends payload followed by the terminator. A payload containing the
// terminator would corrupt the stream and is rejected.
func (w *Writer) WriteFrame(payload []byte) error {
	if bytes.IndexByte(payload, Terminator) >= 0 {
		return apperr.New(apperr.CodeIO, "payload contains frame terminator")
	}
	w.buf = append(append(w.buf[:0], payload...), Terminator)
	if _, err := w.w.Write(w.buf); err != nil {
		return classify(err, false)
	}
	return nil
}

// classify maps stream errors onto the error taxonomy. A clean EOF between
// frames means the peer closed the connection; EOF inside a frame is truncation.
func classify(err error, partial bool) error {
	switch {
	case errors.Is(err, io.EOF) && partial:
		return apperr.Wrap(apperr.CodeIO, "truncated frame", io.ErrUnexpectedEOF)
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed), errors.Is(err, io.ErrClosedPipe):
		return apperr.Wrap(apperr.CodeConnectionClosed, "stream closed", err)
	}
	return apperr.Wrap(apperr.CodeIO, "stream", err)
}
