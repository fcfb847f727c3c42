package bdnav

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/s0up4200/go-bdplay/internal/bdrom"
	"github.com/s0up4200/go-bdplay/internal/testsupport"
)

func openDisc(t *testing.T, disc testsupport.Disc) *Disc {
	t.Helper()
	root := testsupport.WriteDisc(t, t.TempDir(), disc)
	d, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func drainEvents(d *Disc) []Event {
	var events []Event
	for {
		ev, ok := d.GetEvent()
		if !ok {
			return events
		}
		events = append(events, ev)
	}
}

func TestOpenNotBluray(t *testing.T) {
	if _, err := Open(t.TempDir()); !errors.Is(err, ErrNotBluray) {
		t.Fatalf("Open() err = %v, want ErrNotBluray", err)
	}
}

func TestTitlesFiltering(t *testing.T) {
	long := testsupport.Clip{Name: "00001", Out: testsupport.Ticks(600)}
	d := openDisc(t, testsupport.Disc{
		HDMVTitles: 1,
		FirstPlay:  true,
		Playlists: []testsupport.Playlist{
			{ID: 1, Items: []testsupport.Clip{long}},
			{ID: 2, Items: []testsupport.Clip{{Name: "00002", Out: testsupport.Ticks(60)}}},
			{ID: 3, Items: []testsupport.Clip{long}},
			{ID: 4, Items: []testsupport.Clip{{Name: "00004", Out: testsupport.Ticks(300)}, {Name: "00004", Out: testsupport.Ticks(300)}}},
			{ID: 5, Items: []testsupport.Clip{{Name: "00005", Out: testsupport.Ticks(900), Missing: true}}},
		},
	})

	info := d.DiscInfo()
	if !info.BlurayDetected || !info.FirstPlaySupported || info.NumHDMVTitles != 1 || info.NavigationSupported {
		t.Fatalf("DiscInfo = %+v", info)
	}

	tests := []struct {
		min  int
		want []int
	}{
		{0, []int{1, 2}},
		{120, []int{1}},
		{3600, nil},
	}
	for _, tt := range tests {
		titles := d.Titles(tt.min)
		var got []int
		for _, ti := range titles {
			got = append(got, ti.Playlist)
		}
		if len(got) != len(tt.want) {
			t.Fatalf("Titles(%d) = %v, want %v", tt.min, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Fatalf("Titles(%d) = %v, want %v", tt.min, got, tt.want)
			}
		}
	}
}

func TestPlaylistInfo(t *testing.T) {
	d := openDisc(t, testsupport.Disc{
		Playlists: []testsupport.Playlist{{
			ID: 7,
			Items: []testsupport.Clip{
				{Name: "00001", Out: testsupport.Ticks(60), Size: 6144 * 10},
				{Name: "00002", Out: testsupport.Ticks(60), Size: 6144 * 30},
			},
			Marks: []testsupport.Mark{{Item: 0, Time: 0}, {Item: 1, Time: testsupport.Ticks(30)}},
		}},
	})

	ti, err := d.PlaylistInfo(7, 0)
	if err != nil {
		t.Fatal(err)
	}
	if ti.Duration != 120*TicksPerSecond || ti.AngleCount != 1 || ti.Size() != 6144*40 {
		t.Fatalf("TitleInfo = %+v size=%d", ti, ti.Size())
	}
	if len(ti.Chapters) != 2 {
		t.Fatalf("Chapters = %+v", ti.Chapters)
	}
	ch := ti.Chapters[1]
	if ch.Start != 90*TicksPerSecond || ch.Duration != 30*TicksPerSecond || ch.ClipRef != 1 {
		t.Fatalf("chapter 2 = %+v", ch)
	}
	if ch.Offset != 6144*10+6144*15 {
		t.Fatalf("chapter 2 offset = %d", ch.Offset)
	}
	if len(ti.Clips[0].Streams) != len(testsupport.DefaultStreams) {
		t.Fatalf("clip streams = %+v", ti.Clips[0].Streams)
	}

	if _, err := d.PlaylistInfo(MaxPlaylistID+1, 0); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("PlaylistInfo(100000) err = %v", err)
	}
	if _, err := d.PlaylistInfo(8, 0); !errors.Is(err, ErrInvalidPlaylist) {
		t.Fatalf("PlaylistInfo(8) err = %v", err)
	}
}

func TestReadWholeTitle(t *testing.T) {
	d := openDisc(t, testsupport.Disc{
		Playlists: []testsupport.Playlist{{
			ID: 1,
			Items: []testsupport.Clip{
				{Name: "00001", Out: testsupport.Ticks(10), Size: 6144 * 2},
				{Name: "00002", Out: testsupport.Ticks(10), Size: 6144 * 3},
			},
			Marks: []testsupport.Mark{{Item: 0, Time: 0}, {Item: 1, Time: 0}},
		}},
	})
	if _, err := d.Read(make([]byte, 10)); !errors.Is(err, ErrNoTitle) {
		t.Fatalf("Read before select err = %v", err)
	}
	if err := d.SelectPlaylist(1); err != nil {
		t.Fatal(err)
	}
	events := drainEvents(d)
	if len(events) != 3 || events[0] != (Event{EventPlaylist, 1}) || events[1] != (Event{EventPlayItem, 0}) || events[2] != (Event{EventChapter, 1}) {
		t.Fatalf("select events = %v", events)
	}

	buf := make([]byte, 6144*4)
	var total int
	var seen []Event
	for {
		n, err := d.Read(buf)
		seen = append(seen, drainEvents(d)...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		want := testsupport.FillByte("00001")
		if total >= 6144*2 {
			want = testsupport.FillByte("00002")
		}
		if buf[0] != want {
			t.Fatalf("byte at %d = %d, want %d", total, buf[0], want)
		}
		total += n
	}
	if uint64(total) != d.TitleSize() || total != 6144*5 {
		t.Fatalf("read %d bytes, TitleSize %d", total, d.TitleSize())
	}
	if d.TellTime() != 20*TicksPerSecond {
		t.Fatalf("TellTime at end = %d", d.TellTime())
	}

	var playItem, endOfTitle, chapter2 bool
	for _, ev := range seen {
		switch ev {
		case Event{EventPlayItem, 1}:
			playItem = true
		case Event{EventEndOfTitle, 0}:
			endOfTitle = true
		case Event{EventChapter, 2}:
			chapter2 = true
		}
	}
	if !playItem || !endOfTitle || !chapter2 {
		t.Fatalf("events = %v", seen)
	}

	// A second read at the end does not repeat the end of title.
	if _, err := d.Read(buf); !errors.Is(err, io.EOF) {
		t.Fatalf("Read after end err = %v", err)
	}
	if ev := drainEvents(d); len(ev) != 0 {
		t.Fatalf("unexpected events %v", ev)
	}
}

func TestReadStillPlayItem(t *testing.T) {
	tests := []struct {
		name    string
		mode    byte
		seconds uint16
		want    uint32
	}{
		{"timed", bdrom.StillTime, 5, 5},
		{"infinite", bdrom.StillInfinite, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := openDisc(t, testsupport.Disc{
				Playlists: []testsupport.Playlist{{
					ID: 1,
					Items: []testsupport.Clip{
						{Name: "00001", Out: testsupport.Ticks(10), Size: 6144, StillMode: tt.mode, StillTime: tt.seconds},
						{Name: "00002", Out: testsupport.Ticks(10), Size: 6144},
					},
				}},
			})
			if err := d.SelectPlaylist(1); err != nil {
				t.Fatal(err)
			}
			drainEvents(d)

			buf := make([]byte, 6144)
			if n, err := d.Read(buf); n != 6144 || err != nil {
				t.Fatalf("first Read = %d, %v", n, err)
			}
			if n, err := d.Read(buf); n != 0 || err != nil {
				t.Fatalf("Read at still = %d, %v", n, err)
			}
			if ev := drainEvents(d); len(ev) != 1 || ev[0] != (Event{EventStillTime, tt.want}) {
				t.Fatalf("still events = %v", ev)
			}
			// Held reads repeat no event.
			if n, err := d.Read(buf); n != 0 || err != nil {
				t.Fatalf("held Read = %d, %v", n, err)
			}
			if ev := drainEvents(d); len(ev) != 0 {
				t.Fatalf("held events = %v", ev)
			}

			if err := d.SkipStill(); err != nil {
				t.Fatal(err)
			}
			n, err := d.Read(buf)
			if n != 6144 || err != nil || buf[0] != testsupport.FillByte("00002") {
				t.Fatalf("Read after skip = %d, %v", n, err)
			}
			if ev := drainEvents(d); len(ev) == 0 || ev[0] != (Event{EventPlayItem, 1}) {
				t.Fatalf("events after skip = %v", ev)
			}

			// Seeking back arms the still again.
			if _, err := d.Seek(0); err != nil {
				t.Fatal(err)
			}
			d.Read(buf)
			drainEvents(d)
			if n, err := d.Read(buf); n != 0 || err != nil {
				t.Fatalf("Read at still after seek = %d, %v", n, err)
			}
			if ev := drainEvents(d); len(ev) != 1 || ev[0].Type != EventStillTime {
				t.Fatalf("events after seek = %v", ev)
			}
		})
	}
}

func TestSeekChapterAndTime(t *testing.T) {
	const units = 600
	d := openDisc(t, testsupport.Disc{
		Playlists: []testsupport.Playlist{{
			ID:    5,
			Items: []testsupport.Clip{{Name: "00001", Out: testsupport.Ticks(600), Size: 6144 * units}},
			Marks: []testsupport.Mark{{Time: 0}, {Time: testsupport.Ticks(200)}, {Time: testsupport.Ticks(400)}},
		}},
	})
	if err := d.SelectPlaylist(5); err != nil {
		t.Fatal(err)
	}
	pos, err := d.SeekChapter(1)
	if err != nil {
		t.Fatal(err)
	}
	if pos != 6144*200 || d.TellTime() != 200*TicksPerSecond || d.CurrentChapter() != 1 {
		t.Fatalf("pos=%d time=%d chapter=%d", pos, d.TellTime(), d.CurrentChapter())
	}

	// Times inside an aligned unit round up to the next one.
	if pos, _ = d.SeekTime(100*TicksPerSecond + 1); pos != 6144*101 {
		t.Fatalf("SeekTime pos = %d", pos)
	}
	if _, err := d.SeekTime(600 * TicksPerSecond); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("SeekTime(end) err = %v", err)
	}
	if _, err := d.SeekChapter(3); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("SeekChapter(3) err = %v", err)
	}

	if pos, _ = d.Seek(6144*3 + 100); pos != 6144*3 {
		t.Fatalf("Seek aligned = %d", pos)
	}
	if pos, err = d.Seek(6144*units + 1); !errors.Is(err, ErrOutOfRange) || pos != 6144*3 {
		t.Fatalf("Seek past end = %d, %v", pos, err)
	}
	if pos, err = d.Seek(6144 * units); err != nil || pos != 6144*units {
		t.Fatalf("Seek to end = %d, %v", pos, err)
	}
}

func TestSelectAngle(t *testing.T) {
	d := openDisc(t, testsupport.Disc{
		Playlists: []testsupport.Playlist{{
			ID:    9,
			Items: []testsupport.Clip{{Name: "00001", Out: testsupport.Ticks(10), Angles: []string{"00021"}}},
		}},
	})
	if err := d.SelectPlaylist(9); err != nil {
		t.Fatal(err)
	}
	if d.Title().AngleCount != 2 {
		t.Fatalf("AngleCount = %d", d.Title().AngleCount)
	}
	if err := d.SelectAngle(2); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("SelectAngle(2) err = %v", err)
	}
	if err := d.SelectAngle(1); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 16)
	if _, err := d.Read(buf); err != nil {
		t.Fatal(err)
	}
	if buf[0] != testsupport.FillByte("00021") {
		t.Fatalf("angle byte = %d", buf[0])
	}
	found := false
	for _, ev := range drainEvents(d) {
		if ev == (Event{EventAngle, 1}) {
			found = true
		}
	}
	if !found {
		t.Fatal("no angle event")
	}
}

func TestReadEncrypted(t *testing.T) {
	d := openDisc(t, testsupport.Disc{
		AACS:      true,
		Encrypted: true,
		Playlists: []testsupport.Playlist{{ID: 1, Items: []testsupport.Clip{{Name: "00001", Out: testsupport.Ticks(10)}}}},
	})
	if !d.DiscInfo().Encrypted() {
		t.Fatal("Encrypted() = false")
	}
	if err := d.SelectPlaylist(1); err != nil {
		t.Fatal(err)
	}
	drainEvents(d)
	n, ev, err := d.ReadExt(make([]byte, 6144))
	if n != 0 || !errors.Is(err, ErrEncrypted) || ev.Type != EventEncrypted {
		t.Fatalf("ReadExt = %d, %v, %v", n, ev, err)
	}
}

func TestReadMissingFile(t *testing.T) {
	root := testsupport.WriteDisc(t, t.TempDir(), testsupport.Disc{
		Playlists: []testsupport.Playlist{{ID: 1, Items: []testsupport.Clip{{Name: "00001", Out: testsupport.Ticks(10)}}}},
	})
	d, err := Open(root)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()
	if err := d.SelectPlaylist(1); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(root, "BDMV", "STREAM", "00001.m2ts")); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Read(make([]byte, 10)); !errors.Is(err, ErrEjected) {
		t.Fatalf("Read err = %v, want ErrEjected", err)
	}
}

func TestCloseClosesOverlays(t *testing.T) {
	d := openDisc(t, testsupport.Disc{
		Playlists: []testsupport.Playlist{{ID: 1, Items: []testsupport.Clip{{Name: "00001", Out: testsupport.Ticks(10)}}}},
	})
	var overlays, argb int
	d.SetOverlayHandlers(func(ov *Overlay) {
		if ov == nil {
			overlays++
		}
	}, func(ov *ARGBOverlay) {
		if ov == nil {
			argb++
		}
	})
	if err := d.UserInput(0, KeyEnter); !errors.Is(err, ErrNavigationUnsupported) {
		t.Fatalf("UserInput err = %v", err)
	}
	d.Close()
	if overlays != 1 || argb != 1 {
		t.Fatalf("close callbacks = %d, %d", overlays, argb)
	}
}

func TestKeyDigit(t *testing.T) {
	if k, ok := KeyDigit(7); !ok || k != Key7 {
		t.Fatalf("KeyDigit(7) = %v, %v", k, ok)
	}
	if _, ok := KeyDigit(10); ok {
		t.Fatal("KeyDigit(10) ok")
	}
	if EventStillTime.String() != "still-time" {
		t.Fatalf("String() = %q", EventStillTime.String())
	}
}
