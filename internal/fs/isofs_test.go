package fs

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/s0up4200/go-bdplay/internal/fs/udf"
	"github.com/s0up4200/go-bdplay/internal/testsupport"
)

func writeImage(t *testing.T) string {
	t.Helper()
	tree := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tree, "BDMV", "PLAYLIST"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tree, "BDMV", "PLAYLIST", "00001.mpls"), []byte("MPLS0200"), 0o644); err != nil {
		t.Fatal(err)
	}
	return testsupport.WriteImage(t, tree, filepath.Join(t.TempDir(), "disc.iso"), "DISC")
}

func TestIsImage(t *testing.T) {
	tests := map[string]bool{
		"/media/movie.iso": true,
		"MOVIE.ISO":        true,
		"/media/movie":     false,
		"/media/iso":       false,
		"00001.mpls":       false,
	}
	for p, want := range tests {
		if got := IsImage(p); got != want {
			t.Errorf("IsImage(%q)=%v want %v", p, got, want)
		}
	}
}

func TestISOFileSystem(t *testing.T) {
	isoFS := NewISOFileSystem()
	if err := isoFS.Mount(writeImage(t)); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	if got := isoFS.GetVolumeLabel(); got != "DISC" {
		t.Fatalf("volume label = %q", got)
	}

	root, err := isoFS.GetDirectoryInfo("/")
	if err != nil {
		t.Fatal(err)
	}
	if root.Name() != "" || root.FullName() != "/" {
		t.Fatalf("root = %q %q", root.Name(), root.FullName())
	}
	bdmv, err := root.GetDirectory("bdmv")
	if err != nil {
		t.Fatalf("GetDirectory(bdmv): %v", err)
	}
	pl, err := bdmv.GetDirectory("PLAYLIST")
	if err != nil {
		t.Fatalf("GetDirectory(PLAYLIST): %v", err)
	}
	if pl.FullName() != "/BDMV/PLAYLIST" {
		t.Fatalf("FullName = %q", pl.FullName())
	}
	files, err := pl.GetFilesPattern("*.MPLS")
	if err != nil || len(files) != 1 {
		t.Fatalf("GetFilesPattern = %d files, err %v", len(files), err)
	}
	if files[0].Extension() != ".mpls" || files[0].Length() != 8 {
		t.Fatalf("unexpected file info %s %d", files[0].Extension(), files[0].Length())
	}

	f, err := files[0].Open()
	if err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 4)
	if _, err := f.ReadAt(buf, 4); err != nil && !errors.Is(err, io.EOF) {
		t.Fatal(err)
	}
	if string(buf) != "0200" {
		t.Fatalf("ReadAt = %q", buf)
	}
	f.Close()

	info, err := isoFS.GetFileInfo("BDMV/PLAYLIST/00001.MPLS")
	if err != nil {
		t.Fatalf("GetFileInfo: %v", err)
	}
	if info.FullName() != "/BDMV/PLAYLIST/00001.mpls" {
		t.Fatalf("FullName = %q", info.FullName())
	}
	r, err := info.OpenRead()
	if err != nil {
		t.Fatal(err)
	}
	data, err := io.ReadAll(r)
	if err != nil || string(data) != "MPLS0200" {
		t.Fatalf("ReadAll = %q, %v", data, err)
	}

	if _, err := pl.GetFile("00002.MPLS"); err == nil {
		t.Fatal("GetFile found a missing file")
	}

	if err := isoFS.Unmount(); err != nil {
		t.Fatal(err)
	}
	if _, err := isoFS.GetDirectoryInfo("/"); err == nil {
		t.Fatal("GetDirectoryInfo after Unmount succeeded")
	}
	if err := isoFS.Unmount(); err != nil {
		t.Fatalf("second Unmount: %v", err)
	}
}

func TestISOMountErrors(t *testing.T) {
	blank := filepath.Join(t.TempDir(), "blank.iso")
	if err := os.WriteFile(blank, make([]byte, 300*udf.SectorSize), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := NewISOFileSystem().Mount(blank); !errors.Is(err, udf.ErrNotUDF) {
		t.Fatalf("Mount(blank) = %v, want ErrNotUDF", err)
	}

	isoFS := NewISOFileSystem()
	image := writeImage(t)
	if err := isoFS.Mount(image); err != nil {
		t.Fatal(err)
	}
	defer isoFS.Unmount()
	if err := isoFS.Mount(image); err == nil {
		t.Fatal("second Mount succeeded")
	}
}
