package bdnav

import (
	"errors"
	"fmt"
	"math/bits"
	"strings"

	"github.com/op/go-logging"

	"github.com/s0up4200/go-bdplay/internal/bdrom"
	"github.com/s0up4200/go-bdplay/internal/fs"
)

var log = logging.MustGetLogger("bdnav")

// Disc is an opened BDMV tree. It is not safe for concurrent use.
type Disc struct {
	rom  *bdrom.BDROM
	info DiscInfo

	settings PlayerSettings
	overlay  func(*Overlay)
	argb     func(*ARGBOverlay)

	playlist *bdrom.PlaylistFile
	title    *TitleInfo
	angle    int
	segments []segment
	pos      uint64
	segIndex int
	chapter  int
	ended    bool
	// stillHeld parks reads at the end of segment segIndex; stillSkipped
	// is the segment whose still was last released, or -1.
	stillHeld    bool
	stillSkipped int
	file         fs.File
	fileSeg      int

	events []Event
}

// segment is one clip's bytes within the title.
type segment struct {
	clip  *bdrom.StreamClip
	start uint64
	size  uint64
	time  uint64
	dur   uint64
}

func (s segment) end() uint64 { return s.start + s.size }

// Open scans the BDMV tree below root.
func Open(root string) (*Disc, error) {
	rom, err := bdrom.New(root)
	if err != nil {
		if errors.Is(err, bdrom.ErrNoBDMV) {
			return nil, fmt.Errorf("%s: %w", root, ErrNotBluray)
		}
		return nil, err
	}
	scan := rom.Scan()
	for name, err := range scan.FileErrors {
		log.Warningf("%s: %v", name, err)
	}

	d := &Disc{rom: rom, fileSeg: -1, stillSkipped: -1}
	d.info = DiscInfo{
		BlurayDetected: true,
		AACSDetected:   rom.IsAACS,
		BDPlusDetected: rom.IsBDPlus,
		BDJDetected:    rom.IsBDJava,
		UHD:            rom.IsUHD,
		VolumeLabel:    rom.VolumeLabel,
		DiscName:       rom.DiscTitle,
		NumPlaylists:   len(rom.Playlists()),
	}
	if rom.Index != nil {
		d.info.FirstPlaySupported = rom.Index.FirstPlayback.Type != bdrom.ObjectNone
		d.info.TopMenuSupported = rom.Index.TopMenu.Type != bdrom.ObjectNone
		d.info.NumHDMVTitles = rom.Index.HDMVTitles()
		d.info.NumBDJTitles = rom.Index.BDJTitles()
	}
	log.Debugf("opened %s: %d playlists, aacs=%v bd+=%v", rom.DirectoryRoot, d.info.NumPlaylists, d.info.AACSDetected, d.info.BDPlusDetected)
	return d, nil
}

func (d *Disc) DiscInfo() DiscInfo {
	return d.info
}

// Root is the directory holding BDMV, or the image file it was read from.
func (d *Disc) Root() string {
	if d.rom.IsImage {
		return d.rom.Path
	}
	return d.rom.DirectoryRoot
}

func (d *Disc) SetPlayerSettings(s PlayerSettings) error {
	d.settings = s
	return nil
}

func (d *Disc) PlayerSettings() PlayerSettings {
	return d.settings
}

// SetOverlayHandlers registers the graphics callbacks. Either may be nil.
func (d *Disc) SetOverlayHandlers(overlay func(*Overlay), argb func(*ARGBOverlay)) {
	d.overlay = overlay
	d.argb = argb
}

// Titles lists playable titles of at least minSeconds, skipping looping
// playlists and playlists repeating an earlier clip sequence.
func (d *Disc) Titles(minSeconds int) []*TitleInfo {
	var titles []*TitleInfo
	seen := map[string]bool{}
	for _, pl := range d.rom.Playlists() {
		if !pl.Playable() || pl.HasLoops || pl.ID < 0 || pl.ID > MaxPlaylistID {
			continue
		}
		if pl.TotalLength() < uint64(minSeconds)*45000 {
			continue
		}
		key := clipSequence(pl)
		if seen[key] {
			continue
		}
		seen[key] = true
		titles = append(titles, buildTitleInfo(pl, 0))
	}
	return titles
}

func clipSequence(pl *bdrom.PlaylistFile) string {
	var b strings.Builder
	for _, clip := range pl.StreamClips {
		fmt.Fprintf(&b, "%s/%d/%d/%d;", clip.Name, clip.AngleIndex, clip.TimeIn, clip.TimeOut)
	}
	return b.String()
}

// PlaylistInfo describes playlist id through angle (0 = main).
func (d *Disc) PlaylistInfo(id, angle int) (*TitleInfo, error) {
	pl, err := d.lookup(id)
	if err != nil {
		return nil, err
	}
	if angle < 0 || angle > pl.AngleCount {
		angle = 0
	}
	return buildTitleInfo(pl, angle), nil
}

func (d *Disc) lookup(id int) (*bdrom.PlaylistFile, error) {
	if id < 0 || id > MaxPlaylistID {
		return nil, fmt.Errorf("playlist %d: %w", id, ErrOutOfRange)
	}
	pl, ok := d.rom.Playlist(id)
	if !ok {
		return nil, fmt.Errorf("playlist %d: %w", id, ErrInvalidPlaylist)
	}
	return pl, nil
}

func buildTitleInfo(pl *bdrom.PlaylistFile, angle int) *TitleInfo {
	ti := &TitleInfo{
		Playlist:   pl.ID,
		Duration:   pl.TotalLength() * 2,
		AngleCount: pl.AngleCount + 1,
	}
	clips := pl.AngleClips(angle)
	var offset uint64
	offsets := make([]uint64, len(clips))
	for i, c := range clips {
		offsets[i] = offset
		ti.Clips = append(ti.Clips, Clip{
			Name:      c.ClipName,
			InTime:    uint64(c.TimeIn) * 2,
			OutTime:   uint64(c.TimeOut) * 2,
			StartTime: c.RelativeTimeIn * 2,
			Size:      c.FileSize(),
			StillMode: c.StillMode,
			StillTime: c.StillTime,
			Streams:   c.Streams(),
		})
		offset += c.FileSize()
	}

	marks := pl.Chapters
	if len(marks) == 0 {
		marks = []uint64{0}
	}
	for i, m := range marks {
		ch := Chapter{Index: i, Start: m * 2}
		if i+1 < len(marks) {
			ch.Duration = (marks[i+1] - m) * 2
		} else if ti.Duration > ch.Start {
			ch.Duration = ti.Duration - ch.Start
		}
		for ci := range ti.Clips {
			c := ti.Clips[ci]
			if ch.Start >= c.StartTime && ch.Start < c.StartTime+(c.OutTime-c.InTime) {
				ch.ClipRef = ci
				ch.Offset = offsets[ci] + interpolate(ch.Start-c.StartTime, c.OutTime-c.InTime, c.Size)
				break
			}
		}
		ti.Chapters = append(ti.Chapters, ch)
	}
	return ti
}

// interpolate maps x in [0, from] onto [0, to].
func interpolate(x, from, to uint64) uint64 {
	if from == 0 {
		return 0
	}
	if x >= from {
		return to
	}
	hi, lo := bits.Mul64(x, to)
	q, _ := bits.Div64(hi, lo, from)
	return q
}

// interpolateUp is interpolate rounded up.
func interpolateUp(x, from, to uint64) uint64 {
	if from == 0 {
		return 0
	}
	if x >= from {
		return to
	}
	hi, lo := bits.Mul64(x, to)
	q, r := bits.Div64(hi, lo, from)
	if r > 0 {
		q++
	}
	return q
}

// SelectPlaylist makes playlist id the current title at angle 0.
func (d *Disc) SelectPlaylist(id int) error {
	pl, err := d.lookup(id)
	if err != nil {
		return err
	}
	if !pl.Playable() {
		return fmt.Errorf("playlist %d missing stream files: %w", id, ErrInvalidPlaylist)
	}
	d.closeFile()
	d.playlist = pl
	d.angle = 0
	d.build()
	d.pos = 0
	d.segIndex = 0
	d.chapter = 0
	d.ended = false
	d.resetStill()
	d.events = d.events[:0]
	d.queue(EventPlaylist, uint32(id))
	d.queue(EventPlayItem, 0)
	d.queue(EventChapter, 1)
	log.Debugf("selected playlist %05d: %d clips, %d bytes", id, len(d.segments), d.TitleSize())
	return nil
}

// SelectAngle switches the current title to angle (0 = main), keeping the
// byte position.
func (d *Disc) SelectAngle(angle int) error {
	if d.playlist == nil {
		return ErrNoTitle
	}
	if angle < 0 || angle > d.playlist.AngleCount {
		return fmt.Errorf("angle %d: %w", angle, ErrOutOfRange)
	}
	if angle == d.angle {
		return nil
	}
	d.closeFile()
	d.angle = angle
	d.build()
	if d.pos > d.TitleSize() {
		d.pos = d.TitleSize()
	}
	d.segIndex = d.segmentAt(d.pos)
	d.resetStill()
	d.queue(EventAngle, uint32(angle))
	return nil
}

func (d *Disc) Angle() int {
	return d.angle
}

func (d *Disc) build() {
	d.title = buildTitleInfo(d.playlist, d.angle)
	d.segments = d.segments[:0]
	var start uint64
	for i, clip := range d.playlist.AngleClips(d.angle) {
		c := d.title.Clips[i]
		d.segments = append(d.segments, segment{
			clip:  clip,
			start: start,
			size:  c.Size,
			time:  c.StartTime,
			dur:   c.OutTime - c.InTime,
		})
		start += c.Size
	}
}

// Title returns the current title, or nil.
func (d *Disc) Title() *TitleInfo {
	return d.title
}

func (d *Disc) queue(t EventType, param uint32) {
	d.events = append(d.events, Event{Type: t, Param: param})
}

// GetEvent pops the next queued event.
func (d *Disc) GetEvent() (Event, bool) {
	if len(d.events) == 0 {
		return Event{}, false
	}
	ev := d.events[0]
	d.events = d.events[1:]
	return ev, true
}

func (d *Disc) Play() error                           { return ErrNavigationUnsupported }
func (d *Disc) UserInput(pts int64, key Key) error    { return ErrNavigationUnsupported }
func (d *Disc) MouseSelect(pts int64, x, y int) error { return ErrNavigationUnsupported }
func (d *Disc) MenuCall(pts int64) error              { return ErrNavigationUnsupported }

// SkipStill releases a still held at the end of a play item. The next
// Read moves on to the following item.
func (d *Disc) SkipStill() error {
	if d.stillHeld {
		d.stillHeld = false
		d.stillSkipped = d.segIndex
	}
	return nil
}

func (d *Disc) resetStill() {
	d.stillHeld = false
	d.stillSkipped = -1
}

// Close releases open files and closes the graphics planes.
func (d *Disc) Close() error {
	err := d.closeFile()
	if d.overlay != nil {
		d.overlay(nil)
	}
	if d.argb != nil {
		d.argb(nil)
	}
	d.playlist = nil
	d.title = nil
	d.segments = nil
	if rerr := d.rom.Close(); err == nil {
		err = rerr
	}
	return err
}

func (d *Disc) closeFile() error {
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	d.fileSeg = -1
	return err
}
