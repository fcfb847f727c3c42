package bluray

import (
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/s0up4200/go-bdplay/internal/bdnav"
)

// fakeRead is one scripted ReadExt result.
type fakeRead struct {
	n   int
	ev  bdnav.Event
	err error
}

// fakeLibrary plays in-memory titles. Scripted reads are returned first;
// after that reads serve the selected title.
type fakeLibrary struct {
	root     string
	info     bdnav.DiscInfo
	titles   []*bdnav.TitleInfo
	title    *bdnav.TitleInfo
	angle    int
	pos      uint64
	events   []bdnav.Event
	reads    []fakeRead
	readExts int

	playErr  error
	played   bool
	keys     []bdnav.Key
	keyErr   map[bdnav.Key]error
	mouse    int
	mouseErr error
	menus    int
	skips    int
	closes   int
	settings bdnav.PlayerSettings
	overlay  func(*bdnav.Overlay)
	argb     func(*bdnav.ARGBOverlay)
}

func newFake(titles ...*bdnav.TitleInfo) *fakeLibrary {
	return &fakeLibrary{
		info:   bdnav.DiscInfo{BlurayDetected: true},
		titles: titles,
	}
}

// fakeTitle builds a title of equal-sized clips with evenly spread
// chapters. Durations are whole seconds.
func fakeTitle(id, seconds, chapters int, clipSizes ...uint64) *bdnav.TitleInfo {
	ti := &bdnav.TitleInfo{
		Playlist:   id,
		Duration:   uint64(seconds) * bdnav.TicksPerSecond,
		AngleCount: 1,
	}
	if len(clipSizes) == 0 {
		clipSizes = []uint64{uint64(seconds) * bdnav.AlignedUnitSize}
	}
	per := ti.Duration / uint64(len(clipSizes))
	for i, size := range clipSizes {
		ti.Clips = append(ti.Clips, bdnav.Clip{
			Name:      fmt.Sprintf("%05d", id*10+i),
			OutTime:   per,
			StartTime: uint64(i) * per,
			Size:      size,
		})
	}
	chapters = max(chapters, 1)
	for i := range chapters {
		ch := bdnav.Chapter{Index: i, Start: ti.Duration / uint64(chapters) * uint64(i), Duration: ti.Duration / uint64(chapters)}
		ti.Chapters = append(ti.Chapters, ch)
	}
	return ti
}

func (f *fakeLibrary) opener() Opener {
	return func(root string) (Library, error) {
		f.root = root
		return f, nil
	}
}

func (f *fakeLibrary) queue(t bdnav.EventType, param uint32) {
	f.events = append(f.events, bdnav.Event{Type: t, Param: param})
}

func (f *fakeLibrary) DiscInfo() bdnav.DiscInfo { return f.info }

func (f *fakeLibrary) SetPlayerSettings(s bdnav.PlayerSettings) error {
	f.settings = s
	return nil
}

func (f *fakeLibrary) SetOverlayHandlers(overlay func(*bdnav.Overlay), argb func(*bdnav.ARGBOverlay)) {
	f.overlay = overlay
	f.argb = argb
}

func (f *fakeLibrary) Titles(minSeconds int) []*bdnav.TitleInfo {
	var out []*bdnav.TitleInfo
	for _, ti := range f.titles {
		if ti.Duration >= uint64(minSeconds)*bdnav.TicksPerSecond {
			out = append(out, ti)
		}
	}
	return out
}

func (f *fakeLibrary) PlaylistInfo(id, angle int) (*bdnav.TitleInfo, error) {
	for _, ti := range f.titles {
		if ti.Playlist == id {
			return ti, nil
		}
	}
	return nil, bdnav.ErrInvalidPlaylist
}

func (f *fakeLibrary) SelectPlaylist(id int) error {
	ti, err := f.PlaylistInfo(id, 0)
	if err != nil {
		return err
	}
	f.title = ti
	f.angle = 0
	f.pos = 0
	f.queue(bdnav.EventPlaylist, uint32(id))
	f.queue(bdnav.EventPlayItem, 0)
	return nil
}

func (f *fakeLibrary) SelectAngle(angle int) error {
	if f.title == nil || angle < 0 || angle >= f.title.AngleCount {
		return bdnav.ErrOutOfRange
	}
	f.angle = angle
	f.queue(bdnav.EventAngle, uint32(angle))
	return nil
}

func (f *fakeLibrary) Title() *bdnav.TitleInfo { return f.title }
func (f *fakeLibrary) Angle() int              { return f.angle }

func (f *fakeLibrary) Play() error {
	if f.playErr != nil {
		return f.playErr
	}
	f.played = true
	return nil
}

func (f *fakeLibrary) ReadExt(p []byte) (int, bdnav.Event, error) {
	f.readExts++
	if len(f.reads) > 0 {
		r := f.reads[0]
		f.reads = f.reads[1:]
		f.pos += uint64(r.n)
		return r.n, r.ev, r.err
	}
	if f.title == nil {
		ev, _ := f.GetEvent()
		return 0, ev, nil
	}
	left := f.TitleSize() - f.pos
	if left == 0 {
		return 0, bdnav.Event{Type: bdnav.EventEndOfTitle}, io.EOF
	}
	n := min(uint64(len(p)), left)
	f.pos += n
	ev, _ := f.GetEvent()
	return int(n), ev, nil
}

func (f *fakeLibrary) GetEvent() (bdnav.Event, bool) {
	if len(f.events) == 0 {
		return bdnav.Event{}, false
	}
	ev := f.events[0]
	f.events = f.events[1:]
	return ev, true
}

func (f *fakeLibrary) Seek(pos uint64) (uint64, error) {
	if pos > f.TitleSize() {
		return f.pos, bdnav.ErrOutOfRange
	}
	f.pos = pos - pos%bdnav.AlignedUnitSize
	f.queue(bdnav.EventSeek, 0)
	return f.pos, nil
}

func (f *fakeLibrary) SeekTime(tick uint64) (uint64, error) {
	if f.title == nil || tick >= f.title.Duration {
		return f.pos, bdnav.ErrOutOfRange
	}
	return f.Seek(tick * f.TitleSize() / f.title.Duration)
}

func (f *fakeLibrary) SeekChapter(chapter int) (uint64, error) {
	if f.title == nil || chapter < 0 || chapter >= len(f.title.Chapters) {
		return f.pos, bdnav.ErrOutOfRange
	}
	return f.SeekTime(f.title.Chapters[chapter].Start)
}

func (f *fakeLibrary) Tell() uint64 { return f.pos }

func (f *fakeLibrary) TellTime() uint64 {
	size := f.TitleSize()
	if size == 0 {
		return 0
	}
	return f.pos * f.title.Duration / size
}

func (f *fakeLibrary) TitleSize() uint64 {
	if f.title == nil {
		return 0
	}
	return f.title.Size()
}

func (f *fakeLibrary) CurrentChapter() int {
	if f.title == nil {
		return 0
	}
	now := f.TellTime()
	chapter := 0
	for i, ch := range f.title.Chapters {
		if ch.Start <= now {
			chapter = i
		}
	}
	return chapter
}

func (f *fakeLibrary) UserInput(pts int64, key bdnav.Key) error {
	f.keys = append(f.keys, key)
	return f.keyErr[key]
}

func (f *fakeLibrary) MouseSelect(pts int64, x, y int) error {
	f.mouse++
	return f.mouseErr
}

func (f *fakeLibrary) MenuCall(pts int64) error {
	f.menus++
	return nil
}

func (f *fakeLibrary) SkipStill() error {
	f.skips++
	return nil
}

func (f *fakeLibrary) Close() error {
	f.closes++
	if f.overlay != nil {
		f.overlay(nil)
	}
	return nil
}

// fakeClock is a manual clock for still timers.
type fakeClock struct {
	t     time.Time
	slept int
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newStream(t *testing.T, lib *fakeLibrary, opts ...Option) (*Stream, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	base := []Option{
		WithOpener(lib.opener()),
		WithClock(clock.now, func(time.Duration) { clock.slept++ }),
	}
	return New(append(base, opts...)...), clock
}
