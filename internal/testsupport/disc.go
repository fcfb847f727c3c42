// Package testsupport builds synthetic BD-ROM trees for tests.
package testsupport

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

// Ticks converts seconds to 45 kHz playlist ticks.
func Ticks(seconds float64) uint32 {
	return uint32(seconds * 45000)
}

// Stream is an elementary stream entry written to both STN and CLPI tables.
type Stream struct {
	PID  uint16
	Type byte
	Lang string
}

// DefaultStreams is the video, audio and PG set used when a clip names none.
var DefaultStreams = []Stream{
	{PID: 0x1011, Type: 0x1b},
	{PID: 0x1100, Type: 0x81, Lang: "eng"},
	{PID: 0x1200, Type: 0x90, Lang: "fra"},
}

// Clip is one play item. Size defaults to four aligned units.
type Clip struct {
	Name      string
	In, Out   uint32
	Size      int64
	Angles    []string
	Streams   []Stream
	StillMode byte
	StillTime uint16
	// Missing leaves the m2ts file out of the tree.
	Missing bool
}

type Mark struct {
	Item int
	Time uint32
}

type Playlist struct {
	ID    int
	Items []Clip
	Marks []Mark
}

type Disc struct {
	Playlists []Playlist
	// HDMVTitles and BDJTitles populate index.bdmv; no index is written
	// when both are zero and FirstPlay is false.
	HDMVTitles int
	BDJTitles  int
	FirstPlay  bool
	AACS       bool
	// Encrypted marks every m2ts as scrambled.
	Encrypted bool
	Title     string
}

// FillByte is the byte every m2ts file of the named clip is filled with.
func FillByte(name string) byte {
	n, _ := strconv.Atoi(name)
	return byte(n%63 + 1)
}

// WriteDisc writes disc below root and returns root.
func WriteDisc(t testing.TB, root string, disc Disc) string {
	t.Helper()

	bdmv := filepath.Join(root, "BDMV")
	for _, dir := range []string{"PLAYLIST", "CLIPINF", "STREAM"} {
		mustMkdir(t, filepath.Join(bdmv, dir))
	}
	if disc.AACS {
		mustWrite(t, filepath.Join(root, "AACS", "Unit_Key_RO.inf"), []byte{0})
	}
	if disc.Title != "" {
		xml := fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<disclib><di:discinfo xmlns:di="urn:BDA:bdmv;discinfo"><di:title><di:name>%s</di:name></di:title></di:discinfo></disclib>`, disc.Title)
		mustWrite(t, filepath.Join(bdmv, "META", "DL", "bdmt_eng.xml"), []byte(xml))
	}
	if disc.HDMVTitles > 0 || disc.BDJTitles > 0 || disc.FirstPlay {
		mustWrite(t, filepath.Join(bdmv, "index.bdmv"), buildIndex(disc))
	}

	written := map[string]bool{}
	writeClip := func(name string, clip Clip) {
		if written[name] {
			return
		}
		written[name] = true
		streams := clip.Streams
		if streams == nil {
			streams = DefaultStreams
		}
		mustWrite(t, filepath.Join(bdmv, "CLIPINF", name+".clpi"), buildCLPI(streams))
		if clip.Missing {
			return
		}
		size := clip.Size
		if size <= 0 {
			size = 4 * 6144
		}
		data := bytes.Repeat([]byte{FillByte(name)}, int(size))
		if disc.Encrypted {
			for off := 0; off < len(data); off += 6144 {
				data[off] |= 0xC0
			}
		}
		mustWrite(t, filepath.Join(bdmv, "STREAM", name+".m2ts"), data)
	}

	for _, pl := range disc.Playlists {
		for _, item := range pl.Items {
			writeClip(item.Name, item)
			for _, angle := range item.Angles {
				writeClip(angle, Clip{Size: item.Size, Streams: item.Streams, Missing: item.Missing})
			}
		}
		mustWrite(t, filepath.Join(bdmv, "PLAYLIST", fmt.Sprintf("%05d.mpls", pl.ID)), buildMPLS(pl))
	}
	return root
}

func buildMPLS(pl Playlist) []byte {
	const playlistOffset = 58
	var items bytes.Buffer
	for _, item := range pl.Items {
		items.Write(buildPlayItem(item))
	}

	var playlist bytes.Buffer
	put(&playlist, uint32(6+items.Len()))
	put(&playlist, uint16(0))
	put(&playlist, uint16(len(pl.Items)))
	put(&playlist, uint16(0))
	playlist.Write(items.Bytes())

	var marks bytes.Buffer
	put(&marks, uint32(2+14*len(pl.Marks)))
	put(&marks, uint16(len(pl.Marks)))
	for _, m := range pl.Marks {
		marks.WriteByte(0)
		marks.WriteByte(1) // entry mark
		put(&marks, uint16(m.Item))
		put(&marks, m.Time)
		put(&marks, uint16(0xFFFF))
		put(&marks, uint32(0))
	}

	var out bytes.Buffer
	out.WriteString("MPLS0200")
	put(&out, uint32(playlistOffset))
	put(&out, uint32(playlistOffset+playlist.Len()))
	put(&out, uint32(0))
	out.Write(make([]byte, 20))
	// AppInfoPlayList
	put(&out, uint32(14))
	appInfo := make([]byte, 14)
	appInfo[1] = 1 // sequential playback
	out.Write(appInfo)
	out.Write(playlist.Bytes())
	out.Write(marks.Bytes())
	return out.Bytes()
}

func buildPlayItem(item Clip) []byte {
	var body bytes.Buffer
	body.WriteString(item.Name)
	body.WriteString("M2TS")
	var flags byte = 0x01 // connection condition 1
	if len(item.Angles) > 0 {
		flags |= 0x10
	}
	body.WriteByte(0)
	body.WriteByte(flags)
	body.WriteByte(0) // STC id
	put(&body, item.In)
	put(&body, item.Out)
	body.Write(make([]byte, 8)) // UO mask
	body.WriteByte(0)
	body.WriteByte(item.StillMode)
	put(&body, item.StillTime)
	if len(item.Angles) > 0 {
		body.WriteByte(byte(len(item.Angles) + 1))
		body.WriteByte(0)
		for _, angle := range item.Angles {
			body.WriteString(angle)
			body.WriteString("M2TS")
			body.WriteByte(0)
		}
	}

	streams := item.Streams
	if streams == nil {
		streams = DefaultStreams
	}
	var counts [7]byte
	var entries bytes.Buffer
	for _, kind := range []int{0, 1, 2, 3} {
		for _, st := range streams {
			if streamKind(st.Type) != kind {
				continue
			}
			counts[kind]++
			entries.WriteByte(9)
			entries.WriteByte(1)
			put(&entries, st.PID)
			entries.Write(make([]byte, 6))
			entries.WriteByte(5)
			entries.WriteByte(st.Type)
			entries.Write(streamAttrs(st))
		}
	}
	put(&body, uint16(14+entries.Len()))
	body.Write([]byte{0, 0})
	body.Write(counts[:])
	body.Write(make([]byte, 5))
	body.Write(entries.Bytes())

	var out bytes.Buffer
	put(&out, uint16(body.Len()))
	out.Write(body.Bytes())
	return out.Bytes()
}

func buildCLPI(streams []Stream) []byte {
	var program bytes.Buffer
	program.WriteByte(0)
	program.WriteByte(1) // one program
	put(&program, uint32(0))
	put(&program, uint16(0x0100))
	program.WriteByte(byte(len(streams)))
	program.WriteByte(0)
	for _, st := range streams {
		put(&program, st.PID)
		program.WriteByte(5)
		program.WriteByte(st.Type)
		program.Write(streamAttrs(st))
	}
	program.Write([]byte{0, 0})

	var out bytes.Buffer
	out.WriteString("HDMV0200")
	put(&out, uint32(0))
	put(&out, uint32(40))
	out.Write(make([]byte, 24))
	put(&out, uint32(program.Len()))
	out.Write(program.Bytes())
	return out.Bytes()
}

func buildIndex(disc Disc) []byte {
	var indexes bytes.Buffer
	hdmv := func(id uint16) {
		indexes.WriteByte(0x40)
		indexes.Write(make([]byte, 3))
		indexes.Write([]byte{0, 0})
		put(&indexes, id)
		indexes.Write(make([]byte, 4))
	}
	if disc.FirstPlay {
		hdmv(0)
	} else {
		indexes.Write(make([]byte, 12))
	}
	hdmv(1)
	put(&indexes, uint16(disc.HDMVTitles+disc.BDJTitles))
	for i := 0; i < disc.HDMVTitles; i++ {
		hdmv(uint16(i + 2))
	}
	for i := 0; i < disc.BDJTitles; i++ {
		indexes.WriteByte(0x80)
		indexes.Write(make([]byte, 5))
		indexes.WriteString(fmt.Sprintf("%05d", i+1))
		indexes.WriteByte(0)
	}

	var out bytes.Buffer
	out.WriteString("INDX0200")
	put(&out, uint32(78))
	put(&out, uint32(0))
	out.Write(make([]byte, 24))
	put(&out, uint32(34))
	out.Write(make([]byte, 34))
	put(&out, uint32(indexes.Len()))
	out.Write(indexes.Bytes())
	return out.Bytes()
}

func streamKind(t byte) int {
	switch {
	case t == 0x01 || t == 0x02 || t == 0x1b || t == 0x20 || t == 0x24 || t == 0xea:
		return 0
	case t == 0x90:
		return 2
	case t == 0x91:
		return 3
	case t == 0x92:
		return 2
	default:
		return 1
	}
}

func streamAttrs(st Stream) []byte {
	lang := []byte((st.Lang + "   ")[:3])
	switch streamKind(st.Type) {
	case 0:
		return []byte{0x61, 0x30, 0, 0} // 1080p, 23.976, 16:9
	case 1:
		return append([]byte{0x61}, lang...) // 5.1, 48 kHz
	default:
		if st.Type == 0x92 {
			return append([]byte{0x01}, lang...)
		}
		return append(lang, 0)
	}
}

func put(buf *bytes.Buffer, v any) {
	_ = binary.Write(buf, binary.BigEndian, v)
}

func mustMkdir(t testing.TB, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
}

func mustWrite(t testing.TB, path string, data []byte) {
	t.Helper()
	mustMkdir(t, filepath.Dir(path))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
