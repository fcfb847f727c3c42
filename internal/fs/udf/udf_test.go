package udf

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/s0up4200/go-bdplay/internal/testsupport"
)

func TestDecodeString_UCS2BE(t *testing.T) {
	data := []byte{16, 0x00, 'B', 0x00, 'D', 0x00, 'M', 0x00, 'V', 0x00, 0x00}
	if got, want := decodeString(data), "BDMV"; got != want {
		t.Fatalf("decodeString(UCS2)=%q want %q", got, want)
	}
}

func TestDecodeString_8BitStopsAtNUL(t *testing.T) {
	if got, want := decodeString([]byte{8, 'A', 'B', 0, 'C'}), "AB"; got != want {
		t.Fatalf("decodeString(8bit)=%q want %q", got, want)
	}
}

func TestDecodeDString(t *testing.T) {
	field := make([]byte, 32)
	field[0] = 8
	copy(field[1:], "MOVIE")
	field[31] = 6
	if got := decodeDString(field); got != "MOVIE" {
		t.Fatalf("decodeDString=%q want MOVIE", got)
	}
}

func TestParsePartitionMaps_MetadataPartition(t *testing.T) {
	// Partition map table of a UDF 2.50 BD-ROM with a metadata partition.
	pm := []byte{
		0x01, 0x06, 0x01, 0x00, 0x00, 0x00, // type 1, len 6, volseq=1, part=0
		0x02, 0x40, 0x00, 0x00, // type 2, len 64, reserved
		0x00, // EntityID flags
		'*', 'U', 'D', 'F', ' ', 'M', 'e', 't', 'a', 'd', 'a', 't', 'a', ' ', 'P', 'a', 'r', 't', 'i', 't', 'i', 'o', 'n',
		0x50, 0x02, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x01, 0x00, 0x00, 0x00, // volseq=1, part=0
		0x00, 0x00, 0x00, 0x00, // metadata file location
		0x3f, 0xca, 0xb9, 0x00,
		0xff, 0xff, 0xff, 0xff,
		0x20, 0x00, 0x00, 0x00,
		0x20, 0x00, 0x01, 0x00,
		0x00, 0x00, 0x00, 0x00,
	}

	r := &Reader{}
	if err := r.parsePartitionMaps(pm, 2); err != nil {
		t.Fatalf("parsePartitionMaps err: %v", err)
	}
	if got := len(r.partitionMaps); got != 2 {
		t.Fatalf("partitionMaps len=%d want 2", got)
	}
	if !r.partitionMaps[1].isMetadata {
		t.Fatalf("partitionMaps[1].isMetadata=false want true")
	}
	if r.metadataFileICB == nil {
		t.Fatalf("metadataFileICB=nil want non-nil")
	}
	if got := r.metadataFileICB.ExtentLocation; got.LogicalBlockNumber != 0 || got.PartitionReferenceNumber != 0 {
		t.Fatalf("metadataFileICB location=%+v", got)
	}
}

func TestParsePartitionMaps_Truncated(t *testing.T) {
	r := &Reader{}
	if err := r.parsePartitionMaps([]byte{0x01, 0x06, 0x01}, 1); err == nil {
		t.Fatal("parsePartitionMaps accepted a truncated map")
	}
}

func TestResolveMetadataBlocks(t *testing.T) {
	r := &Reader{
		blockSize:      SectorSize,
		partitionStart: 100,
		partitionMaps:  []partitionMap{{}, {isMetadata: true}},
		metaExtents: []allocationDescriptor{
			{length: 2 * SectorSize, lbn: 10},
			{length: SectorSize, lbn: 50},
		},
	}
	r.metaOnce.Do(func() {})

	tests := []struct {
		pref uint16
		lbn  uint32
		want uint32
	}{
		{0, 7, 107},
		{1, 0, 110},
		{1, 1, 111},
		{1, 2, 150},
	}
	for _, tt := range tests {
		got, err := r.resolvePartitionBlock(tt.pref, tt.lbn)
		if err != nil || got != tt.want {
			t.Errorf("resolvePartitionBlock(%d,%d)=%d,%v want %d", tt.pref, tt.lbn, got, err, tt.want)
		}
	}
	if _, err := r.resolvePartitionBlock(1, 3); err == nil {
		t.Error("block past the metadata file resolved")
	}
	if _, err := r.resolvePartitionBlock(5, 0); err == nil {
		t.Error("unknown partition reference resolved")
	}
}

func TestFileReader_ReadsAcrossExtents(t *testing.T) {
	a := bytes.Repeat([]byte("A"), 1024)
	b := bytes.Repeat([]byte("B"), 1024)
	img := make([]byte, 8192)
	copy(img, a)
	copy(img[4096:], b)

	fr := &FileReader{
		reader: &Reader{file: bytes.NewReader(img)},
		extents: []extent{
			{fileStart: 0, fileEnd: 1024, physOff: 0},
			{fileStart: 1024, fileEnd: 2048, physOff: 4096},
		},
		size: 2048,
	}

	got, err := io.ReadAll(fr)
	if err != nil {
		t.Fatalf("ReadAll err: %v", err)
	}
	if want := append(a, b...); !bytes.Equal(got, want) {
		t.Fatalf("data mismatch: got len=%d want len=%d", len(got), len(want))
	}

	mid := make([]byte, 8)
	if n, err := fr.ReadAt(mid, 1020); n != 8 || err != nil || string(mid) != "AAAABBBB" {
		t.Fatalf("ReadAt across extents = %d,%v %q", n, err, mid)
	}
	tail := make([]byte, 8)
	if n, err := fr.ReadAt(tail, 2044); n != 4 || !errors.Is(err, io.EOF) {
		t.Fatalf("ReadAt at end = %d,%v", n, err)
	}
}

func buildTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"BDMV/index.bdmv":          "INDX0200",
		"BDMV/PLAYLIST/00001.mpls": "MPLS0200",
		"BDMV/STREAM/00001.m2ts":   string(bytes.Repeat([]byte{0x47}, 3*SectorSize+100)),
		"BDMV/BACKUP/empty.bin":    "",
	}
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestReaderReadsImage(t *testing.T) {
	img := testsupport.BuildImage(t, buildTree(t), "SAMPLE")
	r, err := newReader(bytes.NewReader(img), int64(len(img)))
	if err != nil {
		t.Fatalf("newReader: %v", err)
	}
	if got := r.GetVolumeLabel(); got != "SAMPLE" {
		t.Fatalf("volume label=%q", got)
	}

	root, err := r.ReadDirectory("/")
	if err != nil {
		t.Fatal(err)
	}
	dirs, err := root.GetDirectories()
	if err != nil || len(dirs) != 1 || dirs[0].Name != "BDMV" {
		t.Fatalf("root directories=%v err=%v", dirs, err)
	}

	playlists, err := r.ReadDirectory("/bdmv/playlist")
	if err != nil {
		t.Fatalf("ReadDirectory: %v", err)
	}
	files, err := playlists.GetFiles()
	if err != nil || len(files) != 1 || files[0].Name != "00001.mpls" {
		t.Fatalf("playlist files=%v err=%v", files, err)
	}

	stream, err := r.FindFile("/BDMV/STREAM/00001.M2TS")
	if err != nil {
		t.Fatalf("FindFile: %v", err)
	}
	if got, want := stream.Size(), int64(3*SectorSize+100); got != want {
		t.Fatalf("Size=%d want %d", got, want)
	}
	if stream.ModTime().Year() != 2024 {
		t.Fatalf("ModTime=%v", stream.ModTime())
	}
	fr, err := stream.Open()
	if err != nil {
		t.Fatal(err)
	}
	data, err := io.ReadAll(fr)
	if err != nil || len(data) != 3*SectorSize+100 || data[len(data)-1] != 0x47 {
		t.Fatalf("ReadAll=%d bytes err=%v", len(data), err)
	}

	empty, err := r.FindFile("BDMV/BACKUP/empty.bin")
	if err != nil {
		t.Fatal(err)
	}
	fr, err = empty.Open()
	if err != nil {
		t.Fatal(err)
	}
	if n, err := fr.Read(make([]byte, 4)); n != 0 || !errors.Is(err, io.EOF) {
		t.Fatalf("Read of empty file = %d,%v", n, err)
	}

	if _, err := r.FindFile("/BDMV/missing.bdmv"); err == nil {
		t.Fatal("FindFile found a missing file")
	}
	if _, err := r.ReadDirectory("/BDMV/CLIPINF"); err == nil {
		t.Fatal("ReadDirectory found a missing directory")
	}
}

func TestReaderRejectsNonUDF(t *testing.T) {
	img := make([]byte, 300*SectorSize)
	if _, err := newReader(bytes.NewReader(img), int64(len(img))); !errors.Is(err, ErrNotUDF) {
		t.Fatalf("newReader = %v, want ErrNotUDF", err)
	}
}

func TestNewReaderFile(t *testing.T) {
	path := testsupport.WriteImage(t, buildTree(t), filepath.Join(t.TempDir(), "disc.iso"), "SAMPLE")
	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if _, err := r.FindFile("/BDMV/index.bdmv"); err != nil {
		t.Fatal(err)
	}
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := NewReader(filepath.Join(t.TempDir(), "missing.iso")); err == nil {
		t.Fatal("NewReader opened a missing file")
	}
}
