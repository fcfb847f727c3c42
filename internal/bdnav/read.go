package bdnav

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/s0up4200/go-bdplay/internal/bdrom"
	"github.com/s0up4200/go-bdplay/internal/fs"
)

// Read reads title bytes from the current clip. It never crosses a clip
// boundary and returns io.EOF once the title is exhausted. At the end of
// a play item with a still it queues EventStillTime (0 for an infinite
// still) and returns 0 bytes until SkipStill.
func (d *Disc) Read(p []byte) (int, error) {
	if d.playlist == nil {
		return 0, ErrNoTitle
	}
	if len(p) == 0 {
		return 0, nil
	}
	for d.segIndex < len(d.segments) && d.pos >= d.segments[d.segIndex].end() {
		if d.holdStill() {
			return 0, nil
		}
		d.segIndex++
		if d.segIndex < len(d.segments) {
			d.queue(EventPlayItem, uint32(d.segIndex))
		}
	}
	if d.segIndex >= len(d.segments) {
		if !d.ended {
			d.ended = true
			d.queue(EventEndOfTitle, 0)
		}
		return 0, io.EOF
	}

	seg := d.segments[d.segIndex]
	f, err := d.openSegment(d.segIndex)
	if err != nil {
		d.queue(EventReadError, 0)
		return 0, err
	}
	want := min(uint64(len(p)), seg.end()-d.pos)
	fileOffset := d.pos - seg.start
	n, err := f.ReadAt(p[:want], int64(fileOffset))
	if err != nil && !errors.Is(err, io.EOF) {
		d.queue(EventReadError, 0)
		return 0, fmt.Errorf("read %s: %w", seg.clip.Name, err)
	}
	if n == 0 {
		// The file is shorter than when the disc was scanned.
		d.queue(EventReadError, 0)
		return 0, fmt.Errorf("read %s at %d: %w", seg.clip.Name, fileOffset, ErrEjected)
	}

	// The copy permission bits of the first packet of every aligned unit
	// are set on scrambled units.
	first := (AlignedUnitSize - fileOffset%AlignedUnitSize) % AlignedUnitSize
	for off := first; off < uint64(n); off += AlignedUnitSize {
		if p[off]&0xC0 != 0 {
			d.queue(EventEncrypted, 0)
			return 0, fmt.Errorf("%s at %d: %w", seg.clip.Name, fileOffset+off, ErrEncrypted)
		}
	}

	d.pos += uint64(n)
	d.updateChapter()
	return n, nil
}

func (d *Disc) holdStill() bool {
	clip := d.segments[d.segIndex].clip
	if clip.StillMode == bdrom.StillNone || d.stillSkipped == d.segIndex {
		return false
	}
	if !d.stillHeld {
		d.stillHeld = true
		var seconds uint32
		if clip.StillMode == bdrom.StillTime {
			seconds = uint32(clip.StillTime)
		}
		log.Debugf("still at end of %s: %ds", clip.Name, seconds)
		d.queue(EventStillTime, seconds)
	}
	return true
}

// ReadExt reads like Read and pops one pending event.
func (d *Disc) ReadExt(p []byte) (int, Event, error) {
	n, err := d.Read(p)
	ev, _ := d.GetEvent()
	return n, ev, err
}

func (d *Disc) openSegment(idx int) (fs.File, error) {
	if d.fileSeg == idx && d.file != nil {
		return d.file, nil
	}
	d.closeFile()
	clip := d.segments[idx].clip
	if clip.StreamFile == nil {
		return nil, fmt.Errorf("%s: %w", clip.Name, ErrEjected)
	}
	f, err := clip.StreamFile.FileInfo.Open()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", clip.Name, ErrEjected)
		}
		return nil, err
	}
	d.file = f
	d.fileSeg = idx
	return f, nil
}

// Seek moves to pos, aligned down to the aligned unit of its clip.
func (d *Disc) Seek(pos uint64) (uint64, error) {
	if d.playlist == nil {
		return 0, ErrNoTitle
	}
	if pos > d.TitleSize() {
		return d.pos, fmt.Errorf("seek to %d: %w", pos, ErrOutOfRange)
	}
	if idx := d.segmentAt(pos); idx < len(d.segments) {
		seg := d.segments[idx]
		fileOffset := pos - seg.start
		pos = seg.start + fileOffset - fileOffset%AlignedUnitSize
	}
	d.seekTo(pos)
	return d.pos, nil
}

func (d *Disc) seekTo(pos uint64) {
	d.pos = pos
	d.segIndex = d.segmentAt(pos)
	d.ended = false
	d.resetStill()
	d.queue(EventSeek, 0)
	d.updateChapter()
}

// SeekTime moves to the first aligned unit at or after tick (90 kHz).
func (d *Disc) SeekTime(tick uint64) (uint64, error) {
	if d.playlist == nil {
		return 0, ErrNoTitle
	}
	if tick >= d.title.Duration {
		return d.pos, fmt.Errorf("seek to tick %d: %w", tick, ErrOutOfRange)
	}
	for _, seg := range d.segments {
		if tick < seg.time || tick >= seg.time+seg.dur {
			continue
		}
		offset := interpolateUp(tick-seg.time, seg.dur, seg.size)
		offset = (offset + AlignedUnitSize - 1) / AlignedUnitSize * AlignedUnitSize
		offset = min(offset, seg.size)
		d.seekTo(seg.start + offset)
		return d.pos, nil
	}
	return d.pos, fmt.Errorf("seek to tick %d: %w", tick, ErrOutOfRange)
}

// SeekChapter moves to the start of chapter (0-based).
func (d *Disc) SeekChapter(chapter int) (uint64, error) {
	if d.playlist == nil {
		return 0, ErrNoTitle
	}
	if chapter < 0 || chapter >= len(d.title.Chapters) {
		return d.pos, fmt.Errorf("chapter %d: %w", chapter, ErrOutOfRange)
	}
	return d.SeekTime(d.title.Chapters[chapter].Start)
}

func (d *Disc) Tell() uint64 {
	return d.pos
}

// TellTime maps the byte position to a title time in 90 kHz ticks.
func (d *Disc) TellTime() uint64 {
	idx := d.segmentAt(d.pos)
	if idx >= len(d.segments) {
		if d.title == nil {
			return 0
		}
		return d.title.Duration
	}
	seg := d.segments[idx]
	return seg.time + interpolate(d.pos-seg.start, seg.size, seg.dur)
}

func (d *Disc) TitleSize() uint64 {
	if len(d.segments) == 0 {
		return 0
	}
	return d.segments[len(d.segments)-1].end()
}

// CurrentChapter returns the 0-based chapter at the read position.
func (d *Disc) CurrentChapter() int {
	return d.chapter
}

func (d *Disc) updateChapter() {
	if d.title == nil {
		return
	}
	now := d.TellTime()
	chapter := 0
	for i, ch := range d.title.Chapters {
		if ch.Start <= now {
			chapter = i
		}
	}
	if chapter != d.chapter {
		d.chapter = chapter
		d.queue(EventChapter, uint32(chapter+1))
	}
}

// segmentAt returns the index of the segment holding pos, or
// len(segments) at the end of the title.
func (d *Disc) segmentAt(pos uint64) int {
	for i, seg := range d.segments {
		if pos < seg.end() {
			return i
		}
	}
	return len(d.segments)
}
