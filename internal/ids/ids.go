// Package ids generates time-ordered identifiers rendered as proquints.
//
// An identifier is a 128-bit ULID (48-bit millisecond timestamp followed by
// 80 random bits) written as eight dash-separated five-letter blocks, one
// block per big-endian 16-bit group. Both alphabets are in ascending order, so
// the text form sorts the same way as the underlying ULID.
package ids

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ID names one entity of kind T. IDs of different kinds do not convert implicitly.
type ID[T any] string

func (id ID[T]) String() string { return string(id) }

// IsZero reports whether the identifier is empty.
func (id ID[T]) IsZero() bool { return id == "" }

// Less orders identifiers by text, which approximates creation order.
func (id ID[T]) Less(other ID[T]) bool { return id < other }

// Time returns the creation timestamp embedded in the identifier.
func (id ID[T]) Time() (time.Time, error) {
	u, err := Parse(string(id))
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(u.Time()), nil
}

// New returns a fresh identifier from the process-wide generator.
func New[T any]() ID[T] {
	return ID[T](Encode(defaultGenerator.Next()))
}

var defaultGenerator = NewGenerator(time.Now, cryptorand.Reader)

// Generator produces strictly increasing ULIDs for a non-decreasing clock.
// A clock that steps backwards is clamped to the last issued millisecond.
type Generator struct {
	mu      sync.Mutex
	now     func() time.Time
	entropy *ulid.MonotonicEntropy
	lastMS  uint64
}

// NewGenerator builds a generator reading time from now and randomness from r.
func NewGenerator(now func() time.Time, r io.Reader) *Generator {
	return &Generator{
		now:     now,
		entropy: ulid.Monotonic(r, 0),
	}
}

// Next returns the next ULID.
func (g *Generator) Next() ulid.ULID {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := ulid.Timestamp(g.now())
	if ms < g.lastMS {
		ms = g.lastMS
	}
	for {
		id, err := ulid.New(ms, g.entropy)
		if err == nil {
			g.lastMS = ms
			return id
		}
		// Random tail exhausted within this millisecond.
		ms++
	}
}

const (
	consonants = "bdfghjklmnprstvz"
	vowels     = "aiou"
	blockLen   = 5
	blockCount = len(ulid.ULID{}) / 2
)

// ErrInvalid is returned by Parse for text that is not an encoded identifier.
var ErrInvalid = errors.New("ids: invalid identifier")

// Encode renders a ULID as dash-separated proquint blocks.
func Encode(u ulid.ULID) string {
	var b strings.Builder
	b.Grow(blockCount*(blockLen+1) - 1)
	for i := 0; i < blockCount; i++ {
		if i > 0 {
			b.WriteByte('-')
		}
		writeQuint(&b, binary.BigEndian.Uint16(u[2*i:]))
	}
	return b.String()
}

func writeQuint(b *strings.Builder, q uint16) {
	b.WriteByte(consonants[q>>12&0xf])
	b.WriteByte(vowels[q>>10&0x3])
	b.WriteByte(consonants[q>>6&0xf])
	b.WriteByte(vowels[q>>4&0x3])
	b.WriteByte(consonants[q&0xf])
}

// Parse decodes text produced by Encode.
func Parse(s string) (ulid.ULID, error) {
	var u ulid.ULID
	blocks := strings.Split(s, "-")
	if len(blocks) != blockCount {
		return u, ErrInvalid
	}
	for i, blk := range blocks {
		q, ok := parseQuint(blk)
		if !ok {
			return u, ErrInvalid
		}
		binary.BigEndian.PutUint16(u[2*i:], q)
	}
	return u, nil
}

func parseQuint(blk string) (uint16, bool) {
	if len(blk) != blockLen {
		return 0, false
	}
	var q uint16
	for i := 0; i < blockLen; i++ {
		if i%2 == 0 {
			n := strings.IndexByte(consonants, blk[i])
			if n < 0 {
				return 0, false
			}
			q = q<<4 | uint16(n)
		} else {
			n := strings.IndexByte(vowels, blk[i])
			if n < 0 {
				return 0, false
			}
			q = q<<2 | uint16(n)
		}
	}
	return q, true
}
