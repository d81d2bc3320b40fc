// Package clock is the single source of "now" for the service.
// Every timestamp it returns is expressed in one canonical zone that is
// fixed when the clock is constructed, so issuance and resolution always
// compare instants in the same zone.
package clock

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	// Embedded zone database, the container image has no /usr/share/zoneinfo.
	_ "time/tzdata"
)

// Layout is the accepted format for zone-less expirations: date and minute
// precision, no seconds.
const Layout = "2006-01-02T15:04"

// ErrInvalidFormat is returned by ParseLocal when the input does not match Layout.
var ErrInvalidFormat = errors.New("invalid expiration format")

// Clock supplies the current instant in a canonical zone.
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

// Zoned is the production Clock backed by the system time.
type Zoned struct {
	loc *time.Location
}

// New returns a Zoned clock for loc. A nil loc means UTC.
func New(loc *time.Location) *Zoned {
	if loc == nil {
		loc = time.UTC
	}
	return &Zoned{loc: loc}
}

// Load returns a Zoned clock for the IANA zone name, e.g. "Asia/Kolkata".
func Load(name string) (*Zoned, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", name, err)
	}
	return New(loc), nil
}

// Now returns the current instant in the canonical zone.
func (z *Zoned) Now() time.Time {
	return time.Now().In(z.loc)
}

// Location returns the canonical zone.
func (z *Zoned) Location() *time.Location {
	return z.loc
}

// Normalize reads the wall clock of t as if it were recorded in assumed and
// returns that instant in the canonical zone of c. The zone attached to t
// is ignored. A nil assumed means the canonical zone itself.
func Normalize(c Clock, t time.Time, assumed *time.Location) time.Time {
	if assumed == nil {
		assumed = c.Location()
	}
	local := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), assumed)
	return local.In(c.Location())
}

// ParseLocal parses raw with Layout and normalizes it into the canonical zone.
// The hour may be written with a single digit ("T9:00").
func ParseLocal(c Clock, raw string, assumed *time.Location) (time.Time, error) {
	t, err := time.Parse(Layout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidFormat, raw)
	}
	return Normalize(c, t, assumed), nil
}

// Fixed is a Clock that only moves when told to. Safe for concurrent use.
type Fixed struct {
	mu  sync.Mutex
	now time.Time
	loc *time.Location
}

// NewFixed returns a Fixed clock reading t, reported in loc (UTC when nil).
func NewFixed(t time.Time, loc *time.Location) *Fixed {
	if loc == nil {
		loc = time.UTC
	}
	return &Fixed{now: t, loc: loc}
}

// Now returns the stored instant in the canonical zone.
func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now.In(f.loc)
}

// Location returns the canonical zone.
func (f *Fixed) Location() *time.Location {
	return f.loc
}

// Set moves the clock to t.
func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}

// Advance moves the clock forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}
