package bluray

import (
	"github.com/s0up4200/go-bdplay/internal/bdnav"
)

// userInput forwards key in menu mode.
func (s *Stream) userInput(key bdnav.Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.a.isOpen() || !s.sess.nav {
		return false
	}
	return s.a.UserInput(key)
}

func (s *Stream) ActivateButton() { s.userInput(bdnav.KeyEnter) }

// SelectButton presses digit button 0-9. Other values are ignored.
func (s *Stream) SelectButton(button int) {
	if key, ok := bdnav.KeyDigit(button); ok {
		s.userInput(key)
	}
}

func (s *Stream) GetCurrentButton() int { return 0 }
func (s *Stream) GetTotalButtons() int  { return 0 }

func (s *Stream) OnUp()    { s.userInput(bdnav.KeyUp) }
func (s *Stream) OnDown()  { s.userInput(bdnav.KeyDown) }
func (s *Stream) OnLeft()  { s.userInput(bdnav.KeyLeft) }
func (s *Stream) OnRight() { s.userInput(bdnav.KeyRight) }

// OnMenu opens the popup menu, falling back to the top menu.
func (s *Stream) OnMenu() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.a.isOpen() || !s.sess.nav {
		return
	}
	if s.a.UserInput(bdnav.KeyPopup) {
		return
	}
	log.Debugf("%s: popup menu failed, trying top menu", s.id)
	if s.a.UserInput(bdnav.KeyRootMenu) {
		return
	}
	if err := s.a.lib.MenuCall(-1); err != nil {
		log.Warningf("%s: menu call: %v", s.id, err)
	}
}

// OnBack leaves a menu; it does nothing during playback.
func (s *Stream) OnBack() {
	if s.IsInMenu() {
		s.OnMenu()
	}
}

func (s *Stream) OnNext()     {}
func (s *Stream) OnPrevious() {}

func (s *Stream) OnMouseMove(x, y int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.a.isOpen() || !s.sess.nav {
		return false
	}
	return s.a.MouseMove(x, y)
}

func (s *Stream) OnMouseClick(x, y int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.a.isOpen() || !s.sess.nav {
		return false
	}
	return s.a.MouseClick(x, y)
}

// HasMenu reports whether the disc is played through its menus.
func (s *Stream) HasMenu() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess.nav
}

// IsInMenu reports whether a menu is showing: the library said so or the
// interactive graphics plane has content.
func (s *Stream) IsInMenu() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.sess.nav {
		return false
	}
	return s.sess.inMenu || s.overlays.Len(bdnav.PlaneIG) > 0
}

// SkipStill ends a still early. The hold is released by the next
// ProcessEvent.
func (s *Stream) SkipStill() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.a.isOpen() || s.sess.hold != HoldStill {
		return
	}
	if err := s.a.lib.SkipStill(); err != nil {
		log.Warningf("%s: skip still: %v", s.id, err)
	}
	s.sess.release = true
}

func (s *Stream) GetState() (string, bool)   { return "", false }
func (s *Stream) SetState(state string) bool { return false }
