package bluray

import (
	"time"

	"github.com/s0up4200/go-bdplay/internal/bdnav"
)

const idleDelay = 100 * time.Millisecond

// ProcessEvent releases a finished still, then handles the event returned
// by the last read and every event the library has queued since.
func (s *Stream) ProcessEvent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.a.isOpen() {
		return
	}
	s.pump()
}

// pump is ProcessEvent with the lock held.
func (s *Stream) pump() {
	s.releaseStill()
	if s.pending != nil {
		ev := *s.pending
		s.pending = nil
		s.handle(ev)
	}
	for {
		ev, ok := s.a.lib.GetEvent()
		if !ok {
			break
		}
		s.handle(ev)
	}
}

func (s *Stream) releaseStill() {
	if s.sess.hold != HoldStill {
		return
	}
	switch {
	case s.sess.release:
		log.Debugf("%s: still skipped", s.id)
	case s.sess.stillExpired(s.now()):
		log.Debugf("%s: still timer expired", s.id)
		if err := s.a.lib.SkipStill(); err != nil {
			log.Warningf("%s: skip still: %v", s.id, err)
		}
	default:
		return
	}
	s.sess.leaveStill()
}

func (s *Stream) handle(ev bdnav.Event) {
	if ev.Type == bdnav.EventNone {
		return
	}
	sess := &s.sess
	switch ev.Type {
	case bdnav.EventError:
		log.Errorf("%s: library error %d", s.id, ev.Param)
		sess.fail(HoldError, ErrDecode)
	case bdnav.EventReadError:
		log.Errorf("%s: read error", s.id)
		sess.fail(HoldError, ErrDecode)
	case bdnav.EventEncrypted:
		log.Errorf("%s: encrypted content cannot be decrypted", s.id)
		sess.fail(HoldError, ErrEncrypted)

	case bdnav.EventMenu:
		sess.inMenu = ev.Param != 0
		log.Debugf("%s: menu %v", s.id, sess.inMenu)
	case bdnav.EventPopup:
		sess.popup = ev.Param != 0

	case bdnav.EventStill, bdnav.EventStillTime:
		if !sess.nav {
			// Title playback runs through stills.
			if err := s.a.lib.SkipStill(); err != nil {
				log.Warningf("%s: skip still: %v", s.id, err)
			}
			break
		}
		if ev.Type == bdnav.EventStillTime {
			sess.enterStill(s.now(), ev.Param)
		} else if ev.Param != 0 {
			sess.enterStill(s.now(), 0)
		} else if sess.hold == HoldStill {
			sess.leaveStill()
		}

	case bdnav.EventTitle:
		sess.title = ev.Param
		sess.holdNav()
	case bdnav.EventPlaylist:
		s.a.reloadTitle()
		sess.clip = 0
		log.Debugf("%s: playlist %05d", s.id, ev.Param)
		sess.holdNav()
	case bdnav.EventPlayItem:
		sess.clip = int(ev.Param)
		sess.holdNav()
	case bdnav.EventAngle:
		s.a.reloadTitle()
		sess.holdNav()
	case bdnav.EventSeek:
		sess.holdNav()

	case bdnav.EventEndOfTitle:
		if sess.nav {
			log.Debugf("%s: end of title", s.id)
		} else {
			sess.eof = true
		}
	case bdnav.EventIdle:
		sess.idle = true
	default:
		log.Debugf("%s: event %s", s.id, ev)
	}
}
