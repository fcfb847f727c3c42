package bdrom

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/s0up4200/go-bdplay/internal/testsupport"
)

func TestNewAndScan(t *testing.T) {
	root := testsupport.WriteDisc(t, t.TempDir(), testsupport.Disc{
		Title:      "Test Disc",
		AACS:       true,
		FirstPlay:  true,
		HDMVTitles: 2,
		BDJTitles:  1,
		Playlists: []testsupport.Playlist{
			{ID: 2, Items: []testsupport.Clip{{Name: "00002", Out: testsupport.Ticks(60)}}},
			{ID: 1, Items: []testsupport.Clip{{Name: "00001", Out: testsupport.Ticks(600)}}},
		},
	})

	tests := []struct {
		name string
		path string
	}{
		{"disc root", root},
		{"bdmv folder", filepath.Join(root, "BDMV")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rom, err := New(tt.path)
			if err != nil {
				t.Fatalf("New(%s): %v", tt.path, err)
			}
			if rom.DirectoryRoot != root {
				t.Fatalf("DirectoryRoot = %s, want %s", rom.DirectoryRoot, root)
			}
			if scan := rom.Scan(); scan.Err() != nil {
				t.Fatalf("Scan: %v", scan.Err())
			}
			if rom.DiscTitle != "Test Disc" || !rom.IsAACS || rom.IsBDPlus {
				t.Fatalf("DiscTitle=%q IsAACS=%v IsBDPlus=%v", rom.DiscTitle, rom.IsAACS, rom.IsBDPlus)
			}
			if rom.Index == nil {
				t.Fatal("index.bdmv not parsed")
			}
			if rom.Index.FirstPlayback.Type != ObjectHDMV || rom.Index.HDMVTitles() != 2 || rom.Index.BDJTitles() != 1 {
				t.Fatalf("index = %+v", rom.Index)
			}
			if got := rom.Index.Titles[2].BDJOName; got != "00001" {
				t.Fatalf("BDJOName = %q", got)
			}
			playlists := rom.Playlists()
			if len(playlists) != 2 || playlists[0].Name != "00001.MPLS" || playlists[1].Name != "00002.MPLS" {
				t.Fatalf("Playlists() order = %v", rom.PlaylistOrder)
			}
			if rom.Size == 0 {
				t.Fatal("Size = 0")
			}
		})
	}
}

func TestNewWithoutBDMV(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "VIDEO_TS"), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := New(dir); !errors.Is(err, ErrNoBDMV) {
		t.Fatalf("New() err = %v, want ErrNoBDMV", err)
	}
}

func TestScanReportsMissingClip(t *testing.T) {
	root := testsupport.WriteDisc(t, t.TempDir(), testsupport.Disc{
		Playlists: []testsupport.Playlist{{ID: 3, Items: []testsupport.Clip{{Name: "00003", Out: testsupport.Ticks(5)}}}},
	})
	if err := os.Remove(filepath.Join(root, "BDMV", "CLIPINF", "00003.clpi")); err != nil {
		t.Fatal(err)
	}
	rom, err := New(root)
	if err != nil {
		t.Fatal(err)
	}
	scan := rom.Scan()
	if _, ok := scan.FileErrors["00003.MPLS"]; !ok {
		t.Fatalf("FileErrors = %v", scan.FileErrors)
	}
	if _, ok := rom.Playlist(3); ok {
		t.Fatal("unparsed playlist returned")
	}
}

func TestPlaylistMissingStreamIsUnplayable(t *testing.T) {
	root := testsupport.WriteDisc(t, t.TempDir(), testsupport.Disc{
		Playlists: []testsupport.Playlist{{ID: 4, Items: []testsupport.Clip{{Name: "00004", Out: testsupport.Ticks(5), Missing: true}}}},
	})
	rom, err := New(root)
	if err != nil {
		t.Fatal(err)
	}
	rom.Scan()
	pl, ok := rom.Playlist(4)
	if !ok {
		t.Fatal("playlist 4 missing")
	}
	if pl.Playable() {
		t.Fatal("Playable() = true without m2ts")
	}
}

func TestPlaylistName(t *testing.T) {
	if got := PlaylistName(800); got != "00800.MPLS" {
		t.Fatalf("PlaylistName(800) = %q", got)
	}
}
