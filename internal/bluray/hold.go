package bluray

import (
	"fmt"
	"time"
)

// HoldState is the playback-blocking condition reported by the library.
type HoldState int

const (
	HoldNone HoldState = iota
	// HoldHeld stops reads until NextStream releases them.
	HoldHeld
	// HoldData means NextStream released the hold and data may flow.
	HoldData
	HoldStill
	// HoldError and HoldExit end the current title.
	HoldError
	HoldExit
)

var holdNames = [...]string{"none", "held", "data", "still", "error", "exit"}

func (h HoldState) String() string {
	if h >= 0 && int(h) < len(holdNames) {
		return holdNames[h]
	}
	return fmt.Sprintf("hold(%d)", int(h))
}

// terminal reports whether the state ends the current title.
func (h HoldState) terminal() bool {
	return h == HoldError || h == HoldExit
}

type PlaybackMode int

const (
	// PlaybackTitle plays the longest title or the playlist asked for.
	PlaybackTitle PlaybackMode = iota
	// PlaybackMenu starts the disc's menus when the whole disc is opened
	// and the library can navigate.
	PlaybackMenu
)

func (m PlaybackMode) String() string {
	if m == PlaybackMenu {
		return "menu"
	}
	return "title"
}

// session is the per-open navigation state.
type session struct {
	nav    bool
	hold   HoldState
	inMenu bool
	popup  bool
	// stillUntil is zero for an infinite still.
	stillUntil time.Time
	release    bool
	clip       int
	title      uint32
	eof        bool
	err        error
	idle       bool
}

func (s *session) setHold(h HoldState) {
	if s.hold.terminal() && !h.terminal() {
		return
	}
	if s.hold != h {
		log.Debugf("hold %s -> %s", s.hold, h)
	}
	s.hold = h
}

// fail ends the title with err. The first cause is kept.
func (s *session) fail(h HoldState, err error) {
	if s.hold == HoldExit {
		return
	}
	s.setHold(h)
	if s.err == nil {
		s.err = err
	}
}

// holdNav parks reads at a content change in navigation mode until
// NextStream hands control back.
func (s *session) holdNav() {
	if s.nav && s.hold != HoldData && s.hold != HoldStill {
		s.setHold(HoldHeld)
	}
}

func (s *session) enterStill(now time.Time, seconds uint32) {
	if s.hold == HoldStill || s.hold.terminal() {
		return
	}
	s.setHold(HoldStill)
	s.release = false
	s.stillUntil = time.Time{}
	if seconds > 0 {
		s.stillUntil = now.Add(time.Duration(seconds) * time.Second)
	}
}

// stillExpired reports whether a timed still has run out at now.
func (s *session) stillExpired(now time.Time) bool {
	return s.hold == HoldStill && !s.stillUntil.IsZero() && !now.Before(s.stillUntil)
}

func (s *session) leaveStill() {
	s.stillUntil = time.Time{}
	s.release = false
	s.setHold(HoldNone)
}
