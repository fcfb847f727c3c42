package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/s0up4200/go-bdplay/internal/testsupport"
)

func TestParsePlaylist(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{name: "number", input: "800", want: 800},
		{name: "padded", input: "00800", want: 800},
		{name: "with extension", input: "00800.mpls", want: 800},
		{name: "upper extension", input: "00001.MPLS", want: 1},
		{name: "path like", input: "BDMV/PLAYLIST/00002.mpls", want: 2},
		{name: "whitespace", input: "  00003  ", want: 3},
		{name: "empty", input: "", wantErr: true},
		{name: "not a number", input: "main", wantErr: true},
		{name: "too large", input: "100000", wantErr: true},
		{name: "negative", input: "-1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePlaylist(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parsePlaylist(%q)=%d, want error", tt.input, got)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("parsePlaylist(%q)=%d,%v want=%d", tt.input, got, err, tt.want)
			}
		})
	}
}

type chunkReader struct {
	chunks  [][]byte
	err     error
	aborted atomic.Bool
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if r.aborted.Load() {
		return 0, errors.New("aborted")
	}
	if len(r.chunks) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks = r.chunks[1:]
	return n, nil
}

func (r *chunkReader) BlockSize() int { return 16 }
func (r *chunkReader) Abort()         { r.aborted.Store(true) }

func TestCopyStream(t *testing.T) {
	r := &chunkReader{chunks: [][]byte{[]byte("abc"), {}, []byte("def")}}
	var out bytes.Buffer
	var seen []int64
	n, err := copyStream(context.Background(), &out, r, func(done int64) { seen = append(seen, done) })
	if err != nil {
		t.Fatalf("copyStream: %v", err)
	}
	if n != 6 || out.String() != "abcdef" {
		t.Fatalf("copied %d bytes %q", n, out.String())
	}
	if len(seen) != 2 || seen[1] != 6 {
		t.Fatalf("progress = %v", seen)
	}
}

func TestCopyStreamReadError(t *testing.T) {
	boom := errors.New("boom")
	r := &chunkReader{chunks: [][]byte{[]byte("abc")}, err: boom}
	n, err := copyStream(context.Background(), io.Discard, r, nil)
	if !errors.Is(err, boom) || n != 3 {
		t.Fatalf("copyStream = %d, %v", n, err)
	}
}

func TestCopyStreamCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &chunkReader{chunks: [][]byte{[]byte("abc"), []byte("def")}}
	cancel()
	_, err := copyStream(ctx, io.Discard, r, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("copyStream = %v, want context.Canceled", err)
	}
}

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("log_level = \"error\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(os.Stdout)
		rootCmd.SetArgs(nil)
	})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("bdplay %s: %v", strings.Join(args, " "), err)
	}
	return out.String()
}

func writeDisc(t *testing.T) string {
	t.Helper()
	return testsupport.WriteDisc(t, t.TempDir(), testsupport.Disc{
		HDMVTitles: 1,
		Playlists: []testsupport.Playlist{
			{ID: 1, Items: []testsupport.Clip{{Name: "00001", Out: testsupport.Ticks(60)}}},
			{ID: 2, Items: []testsupport.Clip{
				{Name: "00002", Out: testsupport.Ticks(30), Size: 2 * 6144},
				{Name: "00003", Out: testsupport.Ticks(30), Size: 3 * 6144},
			}},
		},
	})
}

func TestInfoCommand(t *testing.T) {
	root := writeDisc(t)
	out := execute(t, "info", root, "--config", writeConfig(t), "--min-length", "0")
	for _, want := range []string{"00001.MPLS", "00002.MPLS"} {
		if !strings.Contains(out, want) {
			t.Fatalf("info output missing %s:\n%s", want, out)
		}
	}
}

func TestDumpCommand(t *testing.T) {
	root := writeDisc(t)
	output := filepath.Join(t.TempDir(), "title.m2ts")
	out := execute(t, "dump", root, "--config", writeConfig(t), "-p", "00002.mpls", "-o", output)
	if !strings.Contains(out, "Wrote "+output) {
		t.Fatalf("dump output = %q", out)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 5*6144 {
		t.Fatalf("dumped %d bytes, want %d", len(data), 5*6144)
	}
	if data[0] != testsupport.FillByte("00002") || data[len(data)-1] != testsupport.FillByte("00003") {
		t.Fatalf("dumped bytes %#x..%#x", data[0], data[len(data)-1])
	}
}

func TestConfigCommand(t *testing.T) {
	out := execute(t, "config", "--config", writeConfig(t))
	if !strings.Contains(out, "playback_mode = 'title'") && !strings.Contains(out, `playback_mode = "title"`) {
		t.Fatalf("config output:\n%s", out)
	}
}

func TestVersionCommand(t *testing.T) {
	out := execute(t, "version", "--config", writeConfig(t))
	if out != "bdplay version: dev\n" {
		t.Fatalf("version output = %q", out)
	}
}
