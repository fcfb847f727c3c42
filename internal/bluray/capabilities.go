package bluray

import (
	"github.com/s0up4200/go-bdplay/internal/bdnav"
	"github.com/s0up4200/go-bdplay/internal/util"
)

// GetChapter returns the 1-based chapter being played, or 0.
func (s *Stream) GetChapter() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.a.isOpen() || s.a.title == nil {
		return 0
	}
	return s.a.lib.CurrentChapter() + 1
}

func (s *Stream) GetChapterCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.a.title == nil {
		return 0
	}
	return len(s.a.title.Chapters)
}

// GetChapterName is empty; discs carry no chapter names.
func (s *Stream) GetChapterName(ch int) string {
	return ""
}

// GetChapterPos returns the start of chapter ch in ms, or -1.
func (s *Stream) GetChapterPos(ch int) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chapter(ch)
	if !ok {
		return -1
	}
	return util.TicksToMillis(c.Start)
}

func (s *Stream) chapter(ch int) (bdnav.Chapter, bool) {
	if s.a.title == nil || ch < 1 || ch > len(s.a.title.Chapters) {
		return bdnav.Chapter{}, false
	}
	return s.a.title.Chapters[ch-1], true
}

func (s *Stream) SeekChapter(ch int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.a.isOpen() {
		return false
	}
	if _, ok := s.chapter(ch); !ok {
		return false
	}
	if _, err := s.a.lib.SeekChapter(ch - 1); err != nil {
		log.Warningf("%s: seek to chapter %d: %v", s.id, ch, err)
		return false
	}
	s.afterSeek()
	return true
}

// GetTotalTime is the title duration in ms.
func (s *Stream) GetTotalTime() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.a.title == nil {
		return 0
	}
	return util.TicksToMillis(s.a.title.Duration)
}

// GetTime is the title time in ms captured before the last read or seek.
func (s *Stream) GetTime() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dispTime
}

// PosTime seeks to ms into the title.
func (s *Stream) PosTime(ms int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.a.isOpen() || s.a.title == nil || ms < 0 {
		return false
	}
	if _, err := s.a.lib.SeekTime(util.MillisToTicks(ms)); err != nil {
		log.Warningf("%s: seek to %dms: %v", s.id, ms, err)
		return false
	}
	s.afterSeek()
	return true
}

func (s *Stream) GetAngleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.a.title == nil {
		return 0
	}
	return s.a.title.AngleCount
}

// GetActiveAngle returns the 1-based angle, or 0.
func (s *Stream) GetActiveAngle() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.a.isOpen() || s.a.title == nil {
		return 0
	}
	return s.a.lib.Angle() + 1
}

func (s *Stream) SetAngle(angle int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.a.isOpen() || s.a.title == nil || angle < 1 || angle > s.a.title.AngleCount {
		return false
	}
	if err := s.a.lib.SelectAngle(angle - 1); err != nil {
		log.Warningf("%s: angle %d: %v", s.id, angle, err)
		return false
	}
	s.pump()
	return true
}
