package bluray

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/op/go-logging"

	"github.com/s0up4200/go-bdplay/internal/bdnav"
	"github.com/s0up4200/go-bdplay/internal/inputstream"
	"github.com/s0up4200/go-bdplay/internal/overlay"
	"github.com/s0up4200/go-bdplay/internal/util"
)

var log = logging.MustGetLogger("bluray")

// BlockSize is the read granularity of a disc.
const BlockSize = bdnav.AlignedUnitSize

// Stream plays one disc. All methods are safe for concurrent use; Abort
// and Close make an in-flight Read return.
type Stream struct {
	mu      sync.Mutex
	aborted atomic.Bool
	id      string

	open     Opener
	settings bdnav.PlayerSettings
	mode     PlaybackMode
	now      func() time.Time
	sleep    func(time.Duration)

	a        adapter
	sess     session
	pending  *bdnav.Event
	overlays *overlay.Manager
	// dispTime is the title time in ms before the last read.
	dispTime int64
}

type Option func(*Stream)

// WithOpener replaces the native library.
func WithOpener(open Opener) Option {
	return func(s *Stream) { s.open = open }
}

func WithSettings(settings bdnav.PlayerSettings) Option {
	return func(s *Stream) { s.settings = settings }
}

func WithPlaybackMode(mode PlaybackMode) Option {
	return func(s *Stream) { s.mode = mode }
}

// WithMinTitleLength hides titles shorter than seconds from the default
// title choice.
func WithMinTitleLength(seconds int) Option {
	return func(s *Stream) { s.a.minTitle = max(seconds, 0) }
}

// WithOverlaySink receives graphics plane flushes.
func WithOverlaySink(sink overlay.Sink) Option {
	return func(s *Stream) { s.overlays = overlay.New(sink) }
}

// WithClock replaces the wall clock used for still timers and idle waits.
func WithClock(now func() time.Time, sleep func(time.Duration)) Option {
	return func(s *Stream) {
		s.now = now
		s.sleep = sleep
	}
}

func New(opts ...Option) *Stream {
	s := &Stream{
		id:    uuid.NewString()[:8],
		open:  OpenNative,
		now:   time.Now,
		sleep: time.Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.overlays == nil {
		s.overlays = overlay.New(nil)
	}
	return s
}

var (
	_ inputstream.Stream      = (*Stream)(nil)
	_ inputstream.DisplayTime = (*Stream)(nil)
	_ inputstream.Chapters    = (*Stream)(nil)
	_ inputstream.PosTime     = (*Stream)(nil)
	_ inputstream.Menus       = (*Stream)(nil)
	_ inputstream.Angles      = (*Stream)(nil)
)

// Open mounts the disc named by item and selects what to play: the
// playlist the item names, the disc menus, or the longest title.
func (s *Stream) Open(item inputstream.FileItem) error {
	t, err := resolve(item)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMount, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
	s.aborted.Store(false)
	s.sess = session{}
	s.pending = nil
	s.dispTime = 0

	if t.image {
		log.Debugf("%s: mounting disc image %s", s.id, t.root)
	}
	if err := s.a.mount(s.open, t.root, s.settings, s.overlays.Handle, s.overlays.HandleARGB); err != nil {
		log.Errorf("%s: %v", s.id, err)
		return err
	}
	info := s.a.lib.DiscInfo()
	if info.Encrypted() {
		log.Warningf("%s: %s is copy protected, reads may fail", s.id, t.root)
	}

	switch {
	case t.playlist >= 0:
		err = s.a.selectTitle(s.a.GetTitleFile(fmt.Sprintf("%05d.mpls", t.playlist)))
	case s.mode == PlaybackMenu && t.disc && info.NavigationSupported:
		err = s.startNavigation()
	case s.mode == PlaybackMenu && t.disc:
		log.Infof("%s: %s: no menu navigation, playing longest title", s.id, t.root)
		err = s.a.selectTitle(s.a.GetTitleLongest())
	default:
		err = s.a.selectTitle(s.a.GetTitleLongest())
	}
	if err != nil {
		s.closeLocked()
		log.Errorf("%s: %s: %v", s.id, t.root, err)
		return err
	}

	if s.sess.nav {
		log.Infof("%s: opened %s in menu mode", s.id, t.root)
	} else {
		log.Infof("%s: opened %s playlist %05d (%s)", s.id, t.root, s.a.title.Playlist, util.FormatTicks(s.a.title.Duration, false))
	}
	return nil
}

func (s *Stream) startNavigation() error {
	if err := s.a.lib.Play(); err != nil {
		log.Warningf("%s: menus failed to start, playing longest title: %v", s.id, err)
		return s.a.selectTitle(s.a.GetTitleLongest())
	}
	s.sess.nav = true
	return nil
}

// SelectPlaylist switches to playlist id in title mode. It also recovers a
// stream that ended with an error.
func (s *Stream) SelectPlaylist(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.a.isOpen() {
		return ErrNotOpen
	}
	if id < 0 || id > bdnav.MaxPlaylistID {
		return fmt.Errorf("playlist %d: %w", id, ErrNoPlayableTitle)
	}
	ti, err := s.a.lib.PlaylistInfo(id, 0)
	if err != nil {
		return fmt.Errorf("playlist %05d: %w: %w", id, ErrNoPlayableTitle, err)
	}
	if err := s.a.selectTitle(ti); err != nil {
		return err
	}
	s.sess = session{}
	s.pending = nil
	s.pump()
	s.dispTime = 0
	return nil
}

// Title returns the selected title, or nil in a menu without one.
func (s *Stream) Title() *bdnav.TitleInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.title
}

func (s *Stream) Close() error {
	s.aborted.Store(true)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *Stream) closeLocked() error {
	if !s.a.isOpen() {
		return nil
	}
	err := s.a.close()
	s.overlays.Close()
	s.sess = session{}
	s.pending = nil
	log.Debugf("%s: closed", s.id)
	return err
}

// Abort makes an in-flight Read return ErrAborted.
func (s *Stream) Abort() {
	s.aborted.Store(true)
}

// Read returns title bytes. At the end of the title, or once the stream
// failed, it returns 0 and io.EOF; Err gives the cause. In menu mode a
// read of 0 bytes with a nil error means playback is on hold and
// NextStream decides how to go on.
func (s *Stream) Read(p []byte) (int, error) {
	for {
		if s.aborted.Load() {
			return 0, ErrAborted
		}
		n, again, err := s.readStep(p)
		if !again {
			return n, err
		}
	}
}

func (s *Stream) readStep(p []byte) (n int, again bool, err error) {
	s.mu.Lock()
	idle := false
	defer func() {
		s.mu.Unlock()
		if idle {
			s.sleep(idleDelay)
		}
	}()

	if !s.a.isOpen() {
		return 0, false, ErrNotOpen
	}
	sess := &s.sess
	if sess.hold.terminal() {
		return 0, false, s.endOfStream()
	}
	if !sess.nav && sess.eof {
		return 0, false, io.EOF
	}
	lib := s.a.lib
	s.dispTime = util.TicksToMillis(lib.TellTime())

	if sess.nav {
		switch sess.hold {
		case HoldHeld:
			return 0, false, nil
		case HoldStill:
			s.pump()
			if sess.hold == HoldStill {
				return 0, false, nil
			}
		}
	}

	n, ev, err := lib.ReadExt(p)
	s.pending = &ev
	sess.idle = false
	s.pump()
	if err != nil {
		s.readFailed(err)
	}
	s.overlays.FlushPending(int64(lib.TellTime()))

	switch {
	case n > 0:
		if sess.hold == HoldData {
			sess.setHold(HoldNone)
		}
		return n, false, nil
	case sess.hold.terminal():
		return 0, false, s.endOfStream()
	case !sess.nav:
		if sess.eof {
			return 0, false, io.EOF
		}
		// A skipped still returns no bytes; read on.
		return 0, len(p) > 0, nil
	case sess.hold == HoldHeld, sess.hold == HoldStill:
		return 0, false, nil
	}
	idle = sess.idle || ev.Type == bdnav.EventNone
	return 0, true, nil
}

func (s *Stream) readFailed(err error) {
	sess := &s.sess
	switch {
	case errors.Is(err, io.EOF):
		if sess.nav {
			sess.fail(HoldExit, ErrExit)
		} else {
			sess.eof = true
		}
	case errors.Is(err, bdnav.ErrEjected):
		log.Errorf("%s: %v", s.id, err)
		sess.fail(HoldExit, fmt.Errorf("%w: %w", ErrExit, err))
	case errors.Is(err, bdnav.ErrEncrypted):
		sess.fail(HoldError, ErrEncrypted)
	default:
		log.Errorf("%s: read: %v", s.id, err)
		sess.fail(HoldError, fmt.Errorf("%w: %w", ErrDecode, err))
	}
}

func (s *Stream) endOfStream() error {
	s.sess.eof = true
	return io.EOF
}

func (s *Stream) IsEOF() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess.eof
}

// Err returns why the stream ended, or nil.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess.err
}

// HoldState returns the current hold state.
func (s *Stream) HoldState() HoldState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess.hold
}

// Seek moves to a title byte offset. The result is aligned down to a
// block boundary.
func (s *Stream) Seek(offset int64, whence int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.a.isOpen() {
		return -1, ErrNotOpen
	}
	lib := s.a.lib
	size := int64(lib.TitleSize())
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		offset += int64(lib.Tell())
	case io.SeekEnd:
		offset += size
	default:
		return -1, fmt.Errorf("whence %d: %w", whence, ErrSeekOutOfRange)
	}
	if offset < 0 || offset > size {
		return -1, fmt.Errorf("offset %d of %d: %w", offset, size, ErrSeekOutOfRange)
	}
	pos, err := lib.Seek(uint64(offset))
	if err != nil {
		return -1, fmt.Errorf("%w: %w", ErrSeekOutOfRange, err)
	}
	s.afterSeek()
	return int64(pos), nil
}

func (s *Stream) afterSeek() {
	s.sess.eof = false
	s.pump()
	s.dispTime = util.TicksToMillis(s.a.lib.TellTime())
}

// GetLength is the title size in bytes, or -1 without a title.
func (s *Stream) GetLength() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.a.isOpen() || s.a.title == nil {
		return -1
	}
	return int64(s.a.lib.TitleSize())
}

// NextStream reports how the demuxer continues after Read returned no
// data. Only menu playback has further streams.
func (s *Stream) NextStream() inputstream.NextStream {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.a.isOpen() || !s.sess.nav || s.sess.hold.terminal() {
		return inputstream.NextStreamNone
	}
	s.pump()
	if s.sess.hold == HoldStill {
		return inputstream.NextStreamRetry
	}
	if s.sess.hold.terminal() {
		return inputstream.NextStreamNone
	}
	s.sess.setHold(HoldData)
	return inputstream.NextStreamOpen
}

func (s *Stream) BlockSize() int { return BlockSize }

func (s *Stream) Pause(dTime float64) bool { return false }

// StreamLanguage returns the language code of stream pid in the clip being
// played.
func (s *Stream) StreamLanguage(pid uint16) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ti := s.a.title
	if ti == nil || s.sess.clip < 0 || s.sess.clip >= len(ti.Clips) {
		return "", false
	}
	for _, st := range ti.Clips[s.sess.clip].Streams {
		if st.PID == pid {
			return st.LanguageCode(), true
		}
	}
	return "", false
}

// Overlays exposes the graphics planes.
func (s *Stream) Overlays() *overlay.Manager {
	return s.overlays
}
